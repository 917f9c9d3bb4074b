package permission

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestStatusLabels(t *testing.T) {
	mic := []struct {
		s    MicrophoneStatus
		want string
	}{
		{MicrophoneUndetermined, "Not determined"},
		{MicrophoneDenied, "Denied"},
		{MicrophoneGranted, "Granted"},
	}
	for _, tt := range mic {
		if got := tt.s.String(); got != tt.want {
			t.Errorf("MicrophoneStatus(%d).String() = %q, want %q", tt.s, got, tt.want)
		}
	}

	speech := []struct {
		s    SpeechStatus
		want string
	}{
		{SpeechNotDetermined, "Not determined"},
		{SpeechDenied, "Denied"},
		{SpeechRestricted, "Restricted"},
		{SpeechAuthorized, "Authorized"},
	}
	for _, tt := range speech {
		if got := tt.s.String(); got != tt.want {
			t.Errorf("SpeechStatus(%d).String() = %q, want %q", tt.s, got, tt.want)
		}
	}
}

func TestLoadFileMissing(t *testing.T) {
	s, err := LoadFile(filepath.Join(t.TempDir(), "permissions.yaml"))
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if s.Microphone() != MicrophoneUndetermined {
		t.Errorf("Microphone() = %v, want undetermined", s.Microphone())
	}
	if s.Speech() != SpeechNotDetermined {
		t.Errorf("Speech() = %v, want not determined", s.Speech())
	}
}

func TestSaveThenLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "permissions.yaml")

	s, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	s.SetMicrophone(MicrophoneGranted)
	s.SetSpeech(SpeechRestricted)
	if err := s.Save(); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() after Save error = %v", err)
	}
	if got.Microphone() != MicrophoneGranted {
		t.Errorf("Microphone() = %v, want Granted", got.Microphone())
	}
	if got.Speech() != SpeechRestricted {
		t.Errorf("Speech() = %v, want Restricted", got.Speech())
	}
}

func TestLoadFileUnknownStatus(t *testing.T) {
	path := filepath.Join(t.TempDir(), "permissions.yaml")
	if err := os.WriteFile(path, []byte("microphone: maybe\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadFile(path); err == nil {
		t.Error("LoadFile() with unknown status should return error")
	}
}

func TestMicrophoneFromProbe(t *testing.T) {
	if got := MicrophoneFromProbe(nil); got != MicrophoneGranted {
		t.Errorf("MicrophoneFromProbe(nil) = %v, want Granted", got)
	}
	if got := MicrophoneFromProbe(errors.New("device busy")); got != MicrophoneDenied {
		t.Errorf("MicrophoneFromProbe(err) = %v, want Denied", got)
	}
}

func TestChecklist(t *testing.T) {
	s := &FileSurface{microphone: MicrophoneGranted, speech: SpeechDenied}

	items := Checklist(s)
	if len(items) != 2 {
		t.Fatalf("Checklist() returned %d items, want 2", len(items))
	}
	if items[0].Name != "Microphone" || items[0].Status != "Granted" || !items[0].OK {
		t.Errorf("items[0] = %+v", items[0])
	}
	if items[1].Name != "Speech Recognition" || items[1].Status != "Denied" || items[1].OK {
		t.Errorf("items[1] = %+v", items[1])
	}
}
