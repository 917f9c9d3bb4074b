// Package credential stores the API key used by the cloud transcription
// backend. The value itself is never logged.
package credential

import (
	"errors"
	"fmt"

	"github.com/chaz8081/gostt-dictate/internal/config"
)

// ErrNotFound is returned by Get when no credential is stored.
var ErrNotFound = errors.New("credential: not found")

// Store reads and writes a single secret.
type Store interface {
	// Get returns the stored secret or ErrNotFound.
	Get() (string, error)
	// Set replaces any stored secret.
	Set(value string) error
	// Delete removes the secret. Deleting a missing secret is not an error.
	Delete() error
}

// New returns the Store selected by cfg.Store.
func New(cfg config.CredentialConfig) (Store, error) {
	switch cfg.Store {
	case "env", "":
		return &EnvStore{Var: cfg.EnvVar, File: cfg.EnvFile}, nil
	case "file":
		return &FileStore{Path: cfg.File, KeyPath: cfg.KeyFile}, nil
	default:
		return nil, fmt.Errorf("credential: unknown store %q (supported: env, file)", cfg.Store)
	}
}

// Mask renders a secret for display, keeping only the last four characters.
func Mask(secret string) string {
	if len(secret) <= 4 {
		return "****"
	}
	return "****" + secret[len(secret)-4:]
}
