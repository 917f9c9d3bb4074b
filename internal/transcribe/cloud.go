package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// CredentialSource yields the bearer token for the hosted API.
type CredentialSource interface {
	Get() (string, error)
}

// CloudBackend posts recordings to an OpenAI-compatible transcription
// endpoint as multipart/form-data.
type CloudBackend struct {
	opts   CloudOptions
	creds  CredentialSource
	client *http.Client
	log    zerolog.Logger
}

// NewCloudBackend creates a backend for opts. When opts.HTTPClient is nil a
// client with opts.Timeout is used.
func NewCloudBackend(opts CloudOptions, creds CredentialSource, log zerolog.Logger) *CloudBackend {
	client := opts.HTTPClient
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 60 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	return &CloudBackend{
		opts:   opts,
		creds:  creds,
		client: client,
		log:    log,
	}
}

var _ Backend = (*CloudBackend)(nil)

// Name implements Backend.
func (b *CloudBackend) Name() string { return "cloud" }

// Close implements Backend. The HTTP client holds nothing to release.
func (b *CloudBackend) Close() error { return nil }

type successBody struct {
	Text *string `json:"text"`
}

type errorBody struct {
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Transcribe uploads the recording at path and returns the transcript.
// A missing credential fails before any network activity.
func (b *CloudBackend) Transcribe(ctx context.Context, path string) (string, error) {
	key, err := b.creds.Get()
	if err != nil {
		return "", MissingCredentialError(err)
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return "", MissingCredentialError(nil)
	}

	req, err := NewRequest(path, b.opts)
	if err != nil {
		return "", AudioError(err)
	}

	boundary := NewBoundary()
	body, err := BuildMultipartBody(req.Fields(), req.File(), boundary)
	if err != nil {
		return "", NetworkError(err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, b.opts.Endpoint, bytes.NewReader(body))
	if err != nil {
		return "", NetworkError(err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+key)
	httpReq.Header.Set("Content-Type", ContentTypeFor(boundary))

	b.log.Debug().
		Str("endpoint", b.opts.Endpoint).
		Str("model", req.Model()).
		Int("bytes", req.Size()).
		Msg("uploading recording")

	start := time.Now()
	resp, err := b.client.Do(httpReq)
	if err != nil {
		return "", NetworkError(err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", NetworkError(fmt.Errorf("reading response: %w", err))
	}

	b.log.Debug().
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("transcription response")

	if resp.StatusCode != http.StatusOK {
		var eb errorBody
		if err := json.Unmarshal(data, &eb); err != nil || eb.Error == nil {
			return "", APIError("unknown")
		}
		return "", APIError(eb.Error.Message)
	}

	var sb successBody
	if err := json.Unmarshal(data, &sb); err != nil {
		return "", DecodeError(err)
	}
	if sb.Text == nil {
		return "", DecodeError(errors.New(`response has no "text" field`))
	}
	return *sb.Text, nil
}
