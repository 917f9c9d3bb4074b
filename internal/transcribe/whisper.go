package transcribe

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	whisper "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"
)

// WhisperRecognizer wraps a whisper.cpp model for speech-to-text.
type WhisperRecognizer struct {
	model    whisper.Model
	language string
	threads  uint
}

// NewWhisperRecognizer loads a whisper model from the given path. An empty
// language keeps the model default; threads of 0 lets whisper.cpp decide.
// The caller must call Close() when done.
func NewWhisperRecognizer(modelPath, language string, threads uint) (*WhisperRecognizer, error) {
	model, err := whisper.New(modelPath)
	if err != nil {
		return nil, fmt.Errorf("transcribe: load whisper model %q: %w", modelPath, err)
	}
	return &WhisperRecognizer{model: model, language: language, threads: threads}, nil
}

// Close releases the whisper model resources.
func (w *WhisperRecognizer) Close() error {
	if w.model != nil {
		return w.model.Close()
	}
	return nil
}

// Recognize transcribes mono 16kHz float32 audio samples to text.
func (w *WhisperRecognizer) Recognize(ctx context.Context, samples []float32) (string, error) {
	if len(samples) == 0 {
		return "", errors.New("no audio samples")
	}

	wctx, err := w.model.NewContext()
	if err != nil {
		return "", fmt.Errorf("create context: %w", err)
	}
	if w.language != "" && w.model.IsMultilingual() {
		if err := wctx.SetLanguage(w.language); err != nil {
			return "", fmt.Errorf("set language %q: %w", w.language, err)
		}
	}
	if w.threads > 0 {
		wctx.SetThreads(w.threads)
	}

	if err := wctx.Process(samples, nil, nil, nil); err != nil {
		return "", fmt.Errorf("process: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	var segments []string
	for {
		seg, err := wctx.NextSegment()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("next segment: %w", err)
		}
		segments = append(segments, seg.Text)
	}

	return strings.TrimSpace(strings.Join(segments, " ")), nil
}
