package transcribe

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a transcription failure.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	// KindSessionConfig: the microphone session could not be configured.
	KindSessionConfig
	// KindMissingCredential: no API key is stored.
	KindMissingCredential
	// KindNetwork: the request never produced an HTTP response.
	KindNetwork
	// KindAPI: the service answered with a non-200 status.
	KindAPI
	// KindDecode: a 200 response body could not be decoded.
	KindDecode
	// KindNotAuthorized: speech recognition permission is not granted.
	KindNotAuthorized
	// KindRecognition: the on-device engine failed.
	KindRecognition
	// KindAudio: the recorded file could not be read.
	KindAudio
)

var kindNames = map[ErrorKind]string{
	KindUnknown:           "unknown",
	KindSessionConfig:     "session_config",
	KindMissingCredential: "missing_credential",
	KindNetwork:           "network",
	KindAPI:               "api",
	KindDecode:            "decode",
	KindNotAuthorized:     "not_authorized",
	KindRecognition:       "recognition",
	KindAudio:             "audio",
}

func (k ErrorKind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

// Error is a classified transcription failure. Message is the human-readable
// text delivered to the user; Err is the underlying cause, if any.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("transcribe: %s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("transcribe: %s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error of the same kind, so callers can write
// errors.Is(err, &transcribe.Error{Kind: transcribe.KindAPI}).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind && (t.Message == "" || t.Message == e.Message)
}

func newError(kind ErrorKind, msg string, err error) *Error {
	return &Error{Kind: kind, Message: msg, Err: err}
}

// SessionConfigError wraps a capture setup failure.
func SessionConfigError(err error) *Error {
	return newError(KindSessionConfig, "Could not configure the microphone", err)
}

// MissingCredentialError reports that no API key is available.
func MissingCredentialError(err error) *Error {
	return newError(KindMissingCredential, "Missing API key", err)
}

// NetworkError reports a transport-level failure.
func NetworkError(err error) *Error {
	msg := "Network request failed"
	if err != nil {
		msg = err.Error()
	}
	return newError(KindNetwork, msg, err)
}

// APIError carries the message returned by the service, or "unknown".
func APIError(message string) *Error {
	if message == "" {
		message = "unknown"
	}
	return newError(KindAPI, message, nil)
}

// DecodeError reports an undecodable success response.
func DecodeError(err error) *Error {
	return newError(KindDecode, "Failed to decode response", err)
}

// NotAuthorizedError reports missing speech recognition permission.
func NotAuthorizedError() *Error {
	return newError(KindNotAuthorized, "Speech recognition not authorized", nil)
}

// RecognitionError wraps an on-device engine failure.
func RecognitionError(err error) *Error {
	msg := "Recognition failed"
	if err != nil {
		msg = err.Error()
	}
	return newError(KindRecognition, msg, err)
}

// AudioError reports that the recording could not be read.
func AudioError(err error) *Error {
	return newError(KindAudio, "Could not read recording", err)
}

// KindOf returns the kind of the first *Error in err's chain, or KindUnknown.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Message returns the human-readable description of err. For classified
// errors this is the Message field; otherwise err.Error().
func Message(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}
