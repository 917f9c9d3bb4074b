package transcribe

import (
	"context"

	"github.com/chaz8081/gostt-dictate/internal/audio"
	"github.com/chaz8081/gostt-dictate/internal/permission"
	"github.com/rs/zerolog"
)

// RecognizerSampleRate is the rate on-device engines expect.
const RecognizerSampleRate = 16000

// SpeechAuthorizer reports whether speech recognition is permitted.
type SpeechAuthorizer interface {
	Speech() permission.SpeechStatus
}

// Recognizer is an on-device speech engine.
type Recognizer interface {
	// Recognize returns the final transcript for mono 16kHz samples.
	Recognize(ctx context.Context, samples []float32) (string, error)
	Close() error
}

// OnDeviceBackend transcribes with a local engine after checking speech
// recognition authorization.
type OnDeviceBackend struct {
	auth SpeechAuthorizer
	rec  Recognizer
	log  zerolog.Logger
}

// NewOnDeviceBackend creates an on-device backend. It takes ownership of rec.
func NewOnDeviceBackend(auth SpeechAuthorizer, rec Recognizer, log zerolog.Logger) *OnDeviceBackend {
	return &OnDeviceBackend{auth: auth, rec: rec, log: log}
}

var _ Backend = (*OnDeviceBackend)(nil)

// Name implements Backend.
func (b *OnDeviceBackend) Name() string { return "ondevice" }

// Transcribe submits the whole file to the engine and returns only the
// final result. The engine is never touched when recognition is not
// authorized.
func (b *OnDeviceBackend) Transcribe(ctx context.Context, path string) (string, error) {
	if st := b.auth.Speech(); st != permission.SpeechAuthorized {
		b.log.Debug().Stringer("status", st).Msg("speech recognition not authorized")
		return "", NotAuthorizedError()
	}

	samples, err := audio.LoadSamples(path, RecognizerSampleRate)
	if err != nil {
		return "", AudioError(err)
	}

	text, err := b.rec.Recognize(ctx, samples)
	if err != nil {
		return "", RecognitionError(err)
	}
	return text, nil
}

// Close releases the engine.
func (b *OnDeviceBackend) Close() error {
	return b.rec.Close()
}
