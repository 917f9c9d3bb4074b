package transcribe

import (
	"fmt"
	"net/http"
	"os"
	"time"
)

// CloudOptions configures the hosted transcription request.
type CloudOptions struct {
	Endpoint       string
	Model          string
	ResponseFormat string
	FileName       string
	ContentType    string
	Timeout        time.Duration
	// HTTPClient overrides the default client built from Timeout.
	HTTPClient *http.Client
}

// Request is one transcription request. It is built once per cycle and
// never modified afterwards.
type Request struct {
	audio          []byte
	fileName       string
	contentType    string
	model          string
	responseFormat string
}

// NewRequest reads the recording at path and captures the request
// parameters from opts.
func NewRequest(path string, opts CloudOptions) (Request, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Request{}, fmt.Errorf("reading recording: %w", err)
	}
	return Request{
		audio:          data,
		fileName:       opts.FileName,
		contentType:    opts.ContentType,
		model:          opts.Model,
		responseFormat: opts.ResponseFormat,
	}, nil
}

func (r Request) FileName() string       { return r.fileName }
func (r Request) ContentType() string    { return r.contentType }
func (r Request) Model() string          { return r.model }
func (r Request) ResponseFormat() string { return r.responseFormat }
func (r Request) Size() int              { return len(r.audio) }

// Fields returns the text form fields in wire order.
func (r Request) Fields() []FormField {
	return []FormField{
		{Name: "model", Value: r.model},
		{Name: "response_format", Value: r.responseFormat},
	}
}

// File returns the audio part.
func (r Request) File() FilePart {
	return FilePart{
		FieldName:   "file",
		FileName:    r.fileName,
		ContentType: r.contentType,
		Data:        r.audio,
	}
}
