// internal/codec/encoder.go
package codec

import (
	"encoding/base64"
	"io"
	"strings"
	"unicode/utf8"

	"emtar/internal/archive"
	"emtar/internal/encoding"
)

// Encoder serializes an Archive to the wire format. It is stateless;
// binary classification has already been decided upstream by the
// detector, so encoding performs no conflict checks of its own.
type Encoder struct{}

// NewEncoder creates an encoder.
func NewEncoder() *Encoder {
	return &Encoder{}
}

// Encode renders the archive: comment first, then each file as a
// marker line followed by its content (base64 for binary files). Every
// section ends with exactly one newline.
func (e *Encoder) Encode(a *archive.Archive) (string, error) {
	var b strings.Builder

	if a.Comment != "" {
		b.WriteString(a.Comment)
		if !strings.HasSuffix(a.Comment, "\n") {
			b.WriteByte('\n')
		}
	}

	for i := range a.Files {
		if err := encodeFile(&b, &a.Files[i]); err != nil {
			return "", err
		}
	}
	return b.String(), nil
}

// EncodeTo writes the encoded archive to w.
func (e *Encoder) EncodeTo(a *archive.Archive, w io.Writer) error {
	out, err := e.Encode(a)
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, out)
	return err
}

func encodeFile(b *strings.Builder, f *archive.File) error {
	b.WriteString(encoding.MarkerPrefix)
	b.WriteString(f.ArchiveName())
	b.WriteString(encoding.MarkerSuffix)
	b.WriteByte('\n')

	var content string
	if f.IsBinary {
		content = base64.StdEncoding.EncodeToString(f.Data)
	} else {
		// Defends against hand-built files that bypassed detection.
		if !utf8.Valid(f.Data) {
			return &NotUTF8Error{Name: f.Name}
		}
		content = string(f.Data)
	}

	b.WriteString(content)
	if !strings.HasSuffix(content, "\n") {
		b.WriteByte('\n')
	}
	return nil
}
