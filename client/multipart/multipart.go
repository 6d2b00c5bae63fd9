package multipart

import (
	"bytes"
	"fmt"
	"maps"
	"mime"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

const crlf = "\r\n"

// Form accumulates the parts of a multipart/form-data body in append
// order. A Form is only valid during the construction callback it is
// passed to; it must not be retained beyond that call.
type Form struct {
	boundary string
	buf      bytes.Buffer
	err      error
}

// New creates an empty Form with a generated unique boundary token.
func New() *Form {
	return &Form{
		boundary: "restkit." + uuid.NewString(),
	}
}

// Boundary returns the MIME boundary token delimiting the parts.
func (f *Form) Boundary() string { return f.boundary }

// Err returns the first error recorded by an append method, or nil.
// Once an error is recorded, all later appends are no-ops.
func (f *Form) Err() error { return f.err }

// Bytes serializes the appended parts followed by the closing
// boundary line. It may be called more than once.
func (f *Form) Bytes() []byte {
	closing := "--" + f.boundary + "--" + crlf

	out := make([]byte, 0, f.buf.Len()+len(closing))
	out = append(out, f.buf.Bytes()...)
	out = append(out, closing...)
	return out
}

// AppendPart appends a raw part with the caller-specified headers,
// written in sorted header-name order.
func (f *Form) AppendPart(headers map[string]string, body []byte) {
	var hdr strings.Builder
	for _, name := range slices.Sorted(maps.Keys(headers)) {
		fmt.Fprintf(&hdr, "%s: %s%s", name, headers[name], crlf)
	}

	f.writePart(hdr.String(), body)
}

// AppendFormField appends a part carrying a named form field.
func (f *Form) AppendFormField(name string, value []byte) {
	if name == "" {
		f.setErr(fmt.Errorf("form field name %w", ErrMustNotBeEmpty))
		return
	}

	hdr := fmt.Sprintf("Content-Disposition: form-data; name=%q%s", name, crlf)
	f.writePart(hdr, value)
}

// AppendFileField appends a part carrying file data under the given
// field name, with a generated unique filename derived from the name
// and the MIME type's preferred extension.
func (f *Form) AppendFileField(name, mimeType string, data []byte) {
	if name == "" {
		f.setErr(fmt.Errorf("file field name %w", ErrMustNotBeEmpty))
		return
	}
	if mimeType == "" {
		f.setErr(fmt.Errorf("file field mime type %w", ErrMustNotBeEmpty))
		return
	}

	f.writeFilePart(name, generatedFilename(name, mimeType), mimeType, data)
}

// AppendFile reads the local file at path and appends its contents as
// a file part. An unreadable file records a *FileError wrapping
// [ErrFileRead]. An empty mimeType is sniffed from the file contents,
// and an empty fileName falls back to the path's base name.
func (f *Form) AppendFile(path, mimeType, fileName string) {
	if f.err != nil {
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		f.setErr(&FileError{Path: path, Err: fmt.Errorf("%w: %w", ErrFileRead, err)})
		return
	}

	if mimeType == "" {
		mimeType = mimetype.Detect(data).String()
	}
	if fileName == "" {
		fileName = filepath.Base(path)
	}

	f.writeFilePart(fileName, fileName, mimeType, data)
}

// AppendRaw appends pre-encoded content directly, outside any part
// envelope.
func (f *Form) AppendRaw(p []byte) {
	if f.err != nil {
		return
	}
	f.buf.Write(p)
}

// AppendText appends a string directly, outside any part envelope.
func (f *Form) AppendText(s string) {
	if f.err != nil {
		return
	}
	f.buf.WriteString(s)
}

// writeFilePart appends a part with a form-data disposition carrying a
// filename and an explicit Content-Type.
func (f *Form) writeFilePart(name, fileName, mimeType string, data []byte) {
	hdr := fmt.Sprintf("Content-Disposition: form-data; name=%q; filename=%q%s", name, fileName, crlf) +
		fmt.Sprintf("Content-Type: %s%s", mimeType, crlf)
	f.writePart(hdr, data)
}

// writePart appends one boundary-delimited part: the opening boundary
// line, the headers, a blank line, then the content.
func (f *Form) writePart(headers string, body []byte) {
	if f.err != nil {
		return
	}

	f.buf.WriteString("--" + f.boundary + crlf)
	f.buf.WriteString(headers)
	f.buf.WriteString(crlf)
	f.buf.Write(body)
	f.buf.WriteString(crlf)
}

func (f *Form) setErr(err error) {
	if f.err == nil {
		f.err = err
	}
}

// generatedFilename derives a unique filename from the field name, a
// random token, and the MIME type's preferred extension if one is
// registered.
func generatedFilename(name, mimeType string) string {
	var ext string
	if exts, err := mime.ExtensionsByType(mimeType); err == nil && len(exts) > 0 {
		ext = exts[0]
	}

	return name + "-" + uuid.NewString() + ext
}
