package transcribe

import (
	"bytes"
	"fmt"
	"mime/multipart"
	"net/textproto"
	"strings"

	"github.com/google/uuid"
)

// FormField is a plain text multipart field.
type FormField struct {
	Name  string
	Value string
}

// FilePart is the binary multipart field carrying the recording.
type FilePart struct {
	FieldName   string
	FileName    string
	ContentType string
	Data        []byte
}

// NewBoundary returns a fresh multipart boundary token.
func NewBoundary() string {
	return "Boundary-" + strings.ToUpper(uuid.NewString())
}

var quoteEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

// BuildMultipartBody encodes fields, in order, followed by file as a
// multipart/form-data body delimited by boundary. Boundary collisions with
// the file content are not escaped.
func BuildMultipartBody(fields []FormField, file FilePart, boundary string) ([]byte, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if err := w.SetBoundary(boundary); err != nil {
		return nil, fmt.Errorf("transcribe: invalid boundary %q: %w", boundary, err)
	}

	for _, f := range fields {
		if err := w.WriteField(f.Name, f.Value); err != nil {
			return nil, fmt.Errorf("transcribe: writing field %q: %w", f.Name, err)
		}
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
		quoteEscaper.Replace(file.FieldName), quoteEscaper.Replace(file.FileName)))
	h.Set("Content-Type", file.ContentType)
	part, err := w.CreatePart(h)
	if err != nil {
		return nil, fmt.Errorf("transcribe: creating file part: %w", err)
	}
	if _, err := part.Write(file.Data); err != nil {
		return nil, fmt.Errorf("transcribe: writing file part: %w", err)
	}

	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("transcribe: closing multipart body: %w", err)
	}
	return buf.Bytes(), nil
}

// ContentTypeFor returns the request Content-Type header for boundary.
func ContentTypeFor(boundary string) string {
	return "multipart/form-data; boundary=" + boundary
}
