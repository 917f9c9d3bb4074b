package models

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestWhisperURL(t *testing.T) {
	want := "https://huggingface.co/ggerganov/whisper.cpp/resolve/main/ggml-base.en.bin"
	if got := WhisperURL("base.en"); got != want {
		t.Errorf("WhisperURL() = %q, want %q", got, want)
	}
}

func TestDownload(t *testing.T) {
	body := strings.Repeat("x", 4096)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, body)
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "models", "ggml-test.bin")
	var progress bytes.Buffer

	if err := Download(context.Background(), srv.Client(), srv.URL, dest, &progress, zerolog.Nop()); err != nil {
		t.Fatalf("Download() error = %v", err)
	}

	got, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("reading dest: %v", err)
	}
	if string(got) != body {
		t.Errorf("downloaded %d bytes, want %d", len(got), len(body))
	}
	if _, err := os.Stat(dest + ".tmp"); !os.IsNotExist(err) {
		t.Error("temp file left behind")
	}
	if !strings.Contains(progress.String(), "ggml-test.bin") {
		t.Errorf("progress output = %q, want file label", progress.String())
	}
}

func TestDownloadHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "ggml-missing.bin")
	err := Download(context.Background(), srv.Client(), srv.URL, dest, nil, zerolog.Nop())
	if err == nil {
		t.Fatal("Download() should fail on HTTP 404")
	}
	if _, err := os.Stat(dest); !os.IsNotExist(err) {
		t.Error("dest should not exist after failed download")
	}
}

func TestDownloadWhisperKeepsExisting(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, WhisperFileName("base.en"))
	if err := os.WriteFile(path, []byte("model"), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := DownloadWhisper(context.Background(), dir, "base.en", nil, zerolog.Nop())
	if err != nil {
		t.Fatalf("DownloadWhisper() error = %v", err)
	}
	if got != path {
		t.Errorf("DownloadWhisper() = %q, want %q", got, path)
	}
}

func TestProgressWriter(t *testing.T) {
	var sink, out bytes.Buffer
	pw := &progressWriter{writer: &sink, out: &out, total: 2 * 1024 * 1024, label: "test.bin"}

	data := make([]byte, 1024*1024)
	n, err := pw.Write(data)
	if err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if n != len(data) {
		t.Errorf("Write() = %d, want %d", n, len(data))
	}
	if !strings.Contains(out.String(), "50%") {
		t.Errorf("progress = %q, want 50%%", out.String())
	}
}
