package credential

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/crypto/hkdf"
)

const (
	masterKeySize = 32
	saltSize      = 16
	hkdfInfo      = "gostt-dictate credential"
)

// FileStore keeps the secret sealed with AES-256-GCM in Path. The cipher
// key is derived with HKDF-SHA256 from a random master key in KeyPath and a
// per-write salt. File layout: salt(16) || nonce(12) || ciphertext+tag.
type FileStore struct {
	Path    string
	KeyPath string
}

func (s *FileStore) Get() (string, error) {
	data, err := os.ReadFile(s.Path)
	if errors.Is(err, os.ErrNotExist) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("credential: reading %s: %w", s.Path, err)
	}

	master, err := os.ReadFile(s.KeyPath)
	if err != nil {
		return "", fmt.Errorf("credential: reading master key: %w", err)
	}

	if len(data) < saltSize {
		return "", fmt.Errorf("credential: %s is truncated", s.Path)
	}
	aead, err := newAEAD(master, data[:saltSize])
	if err != nil {
		return "", err
	}
	rest := data[saltSize:]
	if len(rest) < aead.NonceSize()+aead.Overhead() {
		return "", fmt.Errorf("credential: %s is truncated", s.Path)
	}

	nonce, sealed := rest[:aead.NonceSize()], rest[aead.NonceSize():]
	plaintext, err := aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", fmt.Errorf("credential: decrypt: %w", err)
	}
	return string(plaintext), nil
}

func (s *FileStore) Set(value string) error {
	master, err := s.masterKey()
	if err != nil {
		return err
	}

	salt := make([]byte, saltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return fmt.Errorf("credential: random salt: %w", err)
	}
	aead, err := newAEAD(master, salt)
	if err != nil {
		return err
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return fmt.Errorf("credential: random nonce: %w", err)
	}

	out := make([]byte, 0, saltSize+len(nonce)+len(value)+aead.Overhead())
	out = append(out, salt...)
	out = append(out, nonce...)
	out = aead.Seal(out, nonce, []byte(value), nil)

	return writeFileAtomic(s.Path, out)
}

func (s *FileStore) Delete() error {
	if err := os.Remove(s.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("credential: removing %s: %w", s.Path, err)
	}
	return nil
}

// masterKey loads the master key, generating it on first use.
func (s *FileStore) masterKey() ([]byte, error) {
	key, err := os.ReadFile(s.KeyPath)
	if err == nil {
		if len(key) != masterKeySize {
			return nil, fmt.Errorf("credential: master key must be %d bytes, got %d", masterKeySize, len(key))
		}
		return key, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("credential: reading master key: %w", err)
	}

	key = make([]byte, masterKeySize)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return nil, fmt.Errorf("credential: generating master key: %w", err)
	}
	if err := writeFileAtomic(s.KeyPath, key); err != nil {
		return nil, err
	}
	return key, nil
}

func newAEAD(master, salt []byte) (cipher.AEAD, error) {
	r := hkdf.New(sha256.New, master, salt, []byte(hkdfInfo))
	key := make([]byte, 32)
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, fmt.Errorf("credential: HKDF: %w", err)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("credential: new cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("credential: new GCM: %w", err)
	}
	return aead, nil
}

// writeFileAtomic writes data to a 0600 temp file and renames it over path.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("credential: creating dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".credential-*")
	if err != nil {
		return fmt.Errorf("credential: creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("credential: chmod: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("credential: writing: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("credential: closing: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("credential: renaming: %w", err)
	}
	return nil
}
