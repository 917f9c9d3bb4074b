// Package models fetches whisper.cpp ggml models for the on-device backend.
package models

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
)

const whisperBaseURL = "https://huggingface.co/ggerganov/whisper.cpp/resolve/main/"

// WhisperFileName returns the ggml file name for a model such as "base.en".
func WhisperFileName(model string) string {
	return "ggml-" + model + ".bin"
}

// WhisperURL returns the download URL for a model such as "base.en".
func WhisperURL(model string) string {
	return whisperBaseURL + WhisperFileName(model)
}

// DownloadWhisper downloads a whisper ggml model into dir and returns its
// path. An existing non-empty file is kept. Progress is written to progress
// when it is non-nil.
func DownloadWhisper(ctx context.Context, dir, model string, progress io.Writer, log zerolog.Logger) (string, error) {
	destPath := filepath.Join(dir, WhisperFileName(model))

	if info, err := os.Stat(destPath); err == nil && info.Size() > 0 {
		log.Info().Str("path", destPath).Int64("bytes", info.Size()).Msg("whisper model already exists")
		return destPath, nil
	}

	if err := Download(ctx, http.DefaultClient, WhisperURL(model), destPath, progress, log); err != nil {
		return "", err
	}
	return destPath, nil
}

// Download fetches url into destPath through a temp file that is renamed
// into place only after the body was fully written.
func Download(ctx context.Context, client *http.Client, url, destPath string, progress io.Writer, log zerolog.Logger) error {
	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return fmt.Errorf("creating models dir: %w", err)
	}

	log.Info().Str("url", url).Str("dest", destPath).Msg("downloading model")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("downloading model: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download failed: HTTP %d", resp.StatusCode)
	}

	tmpPath := destPath + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}

	var w io.Writer = f
	if progress != nil {
		w = &progressWriter{
			writer: f,
			out:    progress,
			total:  resp.ContentLength,
			label:  filepath.Base(destPath),
		}
	}

	written, err := io.Copy(w, resp.Body)
	f.Close()
	if err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("writing model file: %w", err)
	}
	if progress != nil {
		fmt.Fprintln(progress)
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("moving model file: %w", err)
	}

	log.Info().Str("path", destPath).Int64("bytes", written).Msg("model downloaded")
	return nil
}

// progressWriter wraps an io.Writer and prints download progress to out.
type progressWriter struct {
	writer  io.Writer
	out     io.Writer
	total   int64
	written int64
	label   string
}

func (pw *progressWriter) Write(p []byte) (int, error) {
	n, err := pw.writer.Write(p)
	pw.written += int64(n)
	if pw.total > 0 {
		pct := float64(pw.written) / float64(pw.total) * 100
		fmt.Fprintf(pw.out, "\r  %s: %.1f MB / %.1f MB (%.0f%%)",
			pw.label,
			float64(pw.written)/(1024*1024),
			float64(pw.total)/(1024*1024),
			pct)
	} else {
		fmt.Fprintf(pw.out, "\r  %s: %.1f MB downloaded",
			pw.label,
			float64(pw.written)/(1024*1024))
	}
	return n, err
}
