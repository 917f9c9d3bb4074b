package transcribe

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

type fakeCreds struct {
	key string
	err error
}

func (f fakeCreds) Get() (string, error) { return f.key, f.err }

func writeRecording(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "voice_input.wav")
	if err := os.WriteFile(path, []byte("RIFF fake audio bytes"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func testCloudOptions(endpoint string) CloudOptions {
	return CloudOptions{
		Endpoint:       endpoint,
		Model:          "whisper-large-v3",
		ResponseFormat: "json",
		FileName:       "voice.wav",
		ContentType:    "audio/wav",
		Timeout:        5 * time.Second,
	}
}

func TestCloudBackendSuccess(t *testing.T) {
	var gotAuth, gotModel, gotFormat, gotFileName string
	var gotAudio []byte

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		gotAuth = r.Header.Get("Authorization")

		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("ParseMultipartForm() error = %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		gotModel = r.FormValue("model")
		gotFormat = r.FormValue("response_format")
		f, hdr, err := r.FormFile("file")
		if err != nil {
			t.Errorf("FormFile() error = %v", err)
		} else {
			gotFileName = hdr.Filename
			gotAudio, _ = io.ReadAll(f)
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"text":"turn off the lights"}`)
	}))
	defer srv.Close()

	b := NewCloudBackend(testCloudOptions(srv.URL), fakeCreds{key: "gsk_test"}, zerolog.Nop())
	text, err := b.Transcribe(context.Background(), writeRecording(t))
	if err != nil {
		t.Fatalf("Transcribe() error = %v", err)
	}

	if text != "turn off the lights" {
		t.Errorf("text = %q, want %q", text, "turn off the lights")
	}
	if gotAuth != "Bearer gsk_test" {
		t.Errorf("Authorization = %q, want %q", gotAuth, "Bearer gsk_test")
	}
	if gotModel != "whisper-large-v3" {
		t.Errorf("model = %q", gotModel)
	}
	if gotFormat != "json" {
		t.Errorf("response_format = %q", gotFormat)
	}
	if gotFileName != "voice.wav" {
		t.Errorf("filename = %q", gotFileName)
	}
	if string(gotAudio) != "RIFF fake audio bytes" {
		t.Errorf("audio = %q", gotAudio)
	}
}

func TestCloudBackendFreshBoundaryPerRequest(t *testing.T) {
	var boundaries []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ct := r.Header.Get("Content-Type")
		_, b, _ := strings.Cut(ct, "boundary=")
		boundaries = append(boundaries, b)
		_, _ = io.WriteString(w, `{"text":"ok"}`)
	}))
	defer srv.Close()

	b := NewCloudBackend(testCloudOptions(srv.URL), fakeCreds{key: "k"}, zerolog.Nop())
	path := writeRecording(t)
	for i := 0; i < 2; i++ {
		if _, err := b.Transcribe(context.Background(), path); err != nil {
			t.Fatalf("Transcribe() error = %v", err)
		}
	}

	if len(boundaries) != 2 || boundaries[0] == "" || boundaries[0] == boundaries[1] {
		t.Errorf("boundaries = %v, want two distinct values", boundaries)
	}
}

func TestCloudBackendFailures(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantKind ErrorKind
		wantMsg  string
	}{
		{"api error message", http.StatusUnauthorized, `{"error":{"message":"Invalid API Key"}}`, KindAPI, "Invalid API Key"},
		{"api error unparsable", http.StatusInternalServerError, `<html>oops</html>`, KindAPI, "unknown"},
		{"api error wrong shape", http.StatusBadRequest, `{"detail":"nope"}`, KindAPI, "unknown"},
		{"decode error", http.StatusOK, `not json`, KindDecode, "Failed to decode response"},
		{"decode missing text", http.StatusOK, `{"segments":[]}`, KindDecode, "Failed to decode response"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			b := NewCloudBackend(testCloudOptions(srv.URL), fakeCreds{key: "k"}, zerolog.Nop())
			_, err := b.Transcribe(context.Background(), writeRecording(t))
			if err == nil {
				t.Fatal("Transcribe() should return error")
			}
			if got := KindOf(err); got != tt.wantKind {
				t.Errorf("KindOf() = %v, want %v (err = %v)", got, tt.wantKind, err)
			}
			if got := Message(err); got != tt.wantMsg {
				t.Errorf("Message() = %q, want %q", got, tt.wantMsg)
			}
		})
	}
}

func TestCloudBackendEmptyTextSucceeds(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"text":""}`)
	}))
	defer srv.Close()

	b := NewCloudBackend(testCloudOptions(srv.URL), fakeCreds{key: "k"}, zerolog.Nop())
	text, err := b.Transcribe(context.Background(), writeRecording(t))
	if err != nil {
		t.Fatalf("Transcribe() error = %v", err)
	}
	if text != "" {
		t.Errorf("text = %q, want empty", text)
	}
}

func TestCloudBackendMissingCredentialMakesNoRequest(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer srv.Close()

	creds := []struct {
		name string
		src  fakeCreds
	}{
		{"not found", fakeCreds{err: errors.New("credential: not found")}},
		{"empty", fakeCreds{key: ""}},
		{"whitespace", fakeCreds{key: "  \n"}},
	}

	for _, tt := range creds {
		t.Run(tt.name, func(t *testing.T) {
			b := NewCloudBackend(testCloudOptions(srv.URL), tt.src, zerolog.Nop())
			_, err := b.Transcribe(context.Background(), writeRecording(t))
			if got := KindOf(err); got != KindMissingCredential {
				t.Errorf("KindOf() = %v, want MissingCredential", got)
			}
		})
	}

	if n := hits.Load(); n != 0 {
		t.Errorf("server received %d requests, want 0", n)
	}
}

func TestCloudBackendNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	b := NewCloudBackend(testCloudOptions(url), fakeCreds{key: "k"}, zerolog.Nop())
	_, err := b.Transcribe(context.Background(), writeRecording(t))
	if got := KindOf(err); got != KindNetwork {
		t.Errorf("KindOf() = %v, want Network (err = %v)", got, err)
	}
}

func TestCloudBackendTimeoutIsNetworkError(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	opts := testCloudOptions(srv.URL)
	opts.Timeout = 50 * time.Millisecond

	b := NewCloudBackend(opts, fakeCreds{key: "k"}, zerolog.Nop())
	_, err := b.Transcribe(context.Background(), writeRecording(t))
	if got := KindOf(err); got != KindNetwork {
		t.Errorf("KindOf() = %v, want Network (err = %v)", got, err)
	}
}

func TestCloudBackendMissingFile(t *testing.T) {
	b := NewCloudBackend(testCloudOptions("http://127.0.0.1:1"), fakeCreds{key: "k"}, zerolog.Nop())
	_, err := b.Transcribe(context.Background(), filepath.Join(t.TempDir(), "missing.wav"))
	if got := KindOf(err); got != KindAudio {
		t.Errorf("KindOf() = %v, want Audio", got)
	}
}
