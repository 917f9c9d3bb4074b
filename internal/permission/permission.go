// Package permission tracks the user's consent for microphone capture and
// speech recognition. Status is persisted in a small YAML file that the
// permissions subcommand edits.
package permission

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// MicrophoneStatus is the microphone record permission.
type MicrophoneStatus int

const (
	MicrophoneUndetermined MicrophoneStatus = iota
	MicrophoneDenied
	MicrophoneGranted
)

func (s MicrophoneStatus) String() string {
	switch s {
	case MicrophoneDenied:
		return "Denied"
	case MicrophoneGranted:
		return "Granted"
	default:
		return "Not determined"
	}
}

func (s MicrophoneStatus) key() string {
	switch s {
	case MicrophoneDenied:
		return "denied"
	case MicrophoneGranted:
		return "granted"
	default:
		return "not_determined"
	}
}

// SpeechStatus is the speech recognition authorization.
type SpeechStatus int

const (
	SpeechNotDetermined SpeechStatus = iota
	SpeechDenied
	SpeechRestricted
	SpeechAuthorized
)

func (s SpeechStatus) String() string {
	switch s {
	case SpeechDenied:
		return "Denied"
	case SpeechRestricted:
		return "Restricted"
	case SpeechAuthorized:
		return "Authorized"
	default:
		return "Not determined"
	}
}

func (s SpeechStatus) key() string {
	switch s {
	case SpeechDenied:
		return "denied"
	case SpeechRestricted:
		return "restricted"
	case SpeechAuthorized:
		return "authorized"
	default:
		return "not_determined"
	}
}

// ParseMicrophone parses a persisted microphone status.
func ParseMicrophone(s string) (MicrophoneStatus, error) {
	switch s {
	case "", "not_determined":
		return MicrophoneUndetermined, nil
	case "denied":
		return MicrophoneDenied, nil
	case "granted":
		return MicrophoneGranted, nil
	}
	return MicrophoneUndetermined, fmt.Errorf("permission: unknown microphone status %q", s)
}

// ParseSpeech parses a persisted speech status.
func ParseSpeech(s string) (SpeechStatus, error) {
	switch s {
	case "", "not_determined":
		return SpeechNotDetermined, nil
	case "denied":
		return SpeechDenied, nil
	case "restricted":
		return SpeechRestricted, nil
	case "authorized":
		return SpeechAuthorized, nil
	}
	return SpeechNotDetermined, fmt.Errorf("permission: unknown speech status %q", s)
}

// Surface reports current permission state.
type Surface interface {
	Microphone() MicrophoneStatus
	Speech() SpeechStatus
}

type fileState struct {
	Microphone string `yaml:"microphone"`
	Speech     string `yaml:"speech"`
}

// FileSurface is a Surface persisted as YAML.
type FileSurface struct {
	path       string
	microphone MicrophoneStatus
	speech     SpeechStatus
}

// LoadFile reads the permission file at path. A missing file yields a
// surface with both permissions undetermined.
func LoadFile(path string) (*FileSurface, error) {
	s := &FileSurface{path: path}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("permission: reading %s: %w", path, err)
	}

	var st fileState
	if err := yaml.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("permission: parsing %s: %w", path, err)
	}
	if s.microphone, err = ParseMicrophone(st.Microphone); err != nil {
		return nil, err
	}
	if s.speech, err = ParseSpeech(st.Speech); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *FileSurface) Microphone() MicrophoneStatus { return s.microphone }
func (s *FileSurface) Speech() SpeechStatus         { return s.speech }

func (s *FileSurface) SetMicrophone(st MicrophoneStatus) { s.microphone = st }
func (s *FileSurface) SetSpeech(st SpeechStatus)         { s.speech = st }

// Save writes the current state back to the file.
func (s *FileSurface) Save() error {
	data, err := yaml.Marshal(fileState{
		Microphone: s.microphone.key(),
		Speech:     s.speech.key(),
	})
	if err != nil {
		return fmt.Errorf("permission: encoding: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("permission: creating dir: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("permission: writing %s: %w", s.path, err)
	}
	return nil
}

// MicrophoneFromProbe derives the microphone status from an attempt to open
// a capture device. A nil probe error means capture works.
func MicrophoneFromProbe(err error) MicrophoneStatus {
	if err != nil {
		return MicrophoneDenied
	}
	return MicrophoneGranted
}

// Item is one row of the permission checklist.
type Item struct {
	Name   string
	Status string
	OK     bool
}

// Checklist lists each permission with its display label.
func Checklist(s Surface) []Item {
	mic := s.Microphone()
	speech := s.Speech()
	return []Item{
		{Name: "Microphone", Status: mic.String(), OK: mic == MicrophoneGranted},
		{Name: "Speech Recognition", Status: speech.String(), OK: speech == SpeechAuthorized},
	}
}
