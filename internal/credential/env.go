package credential

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
)

// EnvStore reads the secret from the environment variable Var, falling back
// to the same key in the dotenv file File. Set and Delete edit File only.
type EnvStore struct {
	Var  string
	File string
}

func (s *EnvStore) Get() (string, error) {
	if v := strings.TrimSpace(os.Getenv(s.Var)); v != "" {
		return v, nil
	}
	if s.File == "" {
		return "", ErrNotFound
	}

	env, err := s.read()
	if err != nil {
		return "", err
	}
	v := strings.TrimSpace(env[s.Var])
	if v == "" {
		return "", ErrNotFound
	}
	return v, nil
}

func (s *EnvStore) Set(value string) error {
	if s.File == "" {
		return fmt.Errorf("credential: no env file configured")
	}
	env, err := s.read()
	if err != nil {
		return err
	}
	env[s.Var] = value
	return s.write(env)
}

func (s *EnvStore) Delete() error {
	if s.File == "" {
		return nil
	}
	env, err := s.read()
	if err != nil {
		return err
	}
	if _, ok := env[s.Var]; !ok {
		return nil
	}
	delete(env, s.Var)
	return s.write(env)
}

// read returns the dotenv file's entries, or an empty map when it does not exist.
func (s *EnvStore) read() (map[string]string, error) {
	env, err := godotenv.Read(s.File)
	if errors.Is(err, os.ErrNotExist) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("credential: reading %s: %w", s.File, err)
	}
	return env, nil
}

func (s *EnvStore) write(env map[string]string) error {
	if err := os.MkdirAll(filepath.Dir(s.File), 0o700); err != nil {
		return fmt.Errorf("credential: creating dir: %w", err)
	}
	if err := godotenv.Write(env, s.File); err != nil {
		return fmt.Errorf("credential: writing %s: %w", s.File, err)
	}
	if err := os.Chmod(s.File, 0o600); err != nil {
		return fmt.Errorf("credential: chmod %s: %w", s.File, err)
	}
	return nil
}
