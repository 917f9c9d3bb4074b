// Package transcribe turns a finished recording into text.
//
// Supported backends:
//   - cloud: OpenAI-compatible hosted endpoint (multipart upload, default)
//   - ondevice: whisper.cpp via Go bindings
package transcribe

import (
	"context"
	"fmt"

	"github.com/chaz8081/gostt-dictate/internal/config"
	"github.com/chaz8081/gostt-dictate/internal/permission"
	"github.com/rs/zerolog"
)

// Backend transcribes a recorded audio file.
type Backend interface {
	// Name identifies the backend in logs.
	Name() string
	// Transcribe returns the text spoken in the file at path. Failures are
	// *Error values.
	Transcribe(ctx context.Context, path string) (string, error)
	// Close releases backend resources.
	Close() error
}

// New creates a Backend based on the config backend setting.
func New(cfg *config.Config, creds CredentialSource, perms permission.Surface, log zerolog.Logger) (Backend, error) {
	switch cfg.Backend {
	case "cloud", "":
		return NewCloudBackend(CloudOptions{
			Endpoint:       cfg.Cloud.Endpoint,
			Model:          cfg.Cloud.Model,
			ResponseFormat: cfg.Cloud.ResponseFormat,
			FileName:       cfg.Cloud.FileName,
			ContentType:    cfg.Cloud.ContentType,
			Timeout:        cfg.Cloud.Timeout,
		}, creds, log), nil
	case "ondevice":
		rec, err := NewWhisperRecognizer(cfg.OnDevice.ModelPath, cfg.OnDevice.Language, cfg.OnDevice.Threads)
		if err != nil {
			return nil, err
		}
		return NewOnDeviceBackend(perms, rec, log), nil
	default:
		return nil, fmt.Errorf("transcribe: unknown backend %q (supported: cloud, ondevice)", cfg.Backend)
	}
}
