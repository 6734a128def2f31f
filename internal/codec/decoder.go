// internal/codec/decoder.go
package codec

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"strings"
	"unicode/utf8"

	"emtar/internal/archive"
	"emtar/internal/edit"
	"emtar/internal/encoding"

	"go.uber.org/zap"
)

// FileChecker answers the decoder's edit-target existence queries. The
// codec itself never touches the filesystem; callers supply an
// implementation (see workspace.Checker) or leave it nil, in which case
// only archive entries satisfy edit targets.
type FileChecker interface {
	FileExists(name string) bool
}

// DecoderOptions configures decoding behavior.
type DecoderOptions struct {
	// StrictTags rejects unrecognized bracket tags instead of skipping
	// them.
	StrictTags bool
	// Checker resolves edit targets outside the archive.
	Checker FileChecker
	// Logger receives advisory diagnostics. Nil means no logging.
	Logger *zap.Logger
}

// Decoder parses the wire format into an Archive.
type Decoder struct {
	strictTags bool
	checker    FileChecker
	logger     *zap.Logger
}

// NewDecoder creates a decoder. The zero options give a permissive,
// archive-only, silent decoder.
func NewDecoder(opts DecoderOptions) *Decoder {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Decoder{
		strictTags: opts.StrictTags,
		checker:    opts.Checker,
		logger:     logger,
	}
}

// pending accumulates the file currently being read.
type pending struct {
	name       string
	isBinary   bool
	snippetRef *archive.SnippetRef
	editRef    *archive.EditRef
	body       bytes.Buffer
}

// Decode parses a complete archive stream: leading comment, then file
// entries delimited by "-- name --" marker lines.
func (d *Decoder) Decode(input string) (*archive.Archive, error) {
	a := archive.New()
	var cur *pending
	var comment []string

	for _, line := range splitLines(input) {
		if name, ok := markerName(line); ok {
			if err := d.finalize(a, cur); err != nil {
				return nil, err
			}
			next, err := d.parseNameAndTags(name)
			if err != nil {
				return nil, err
			}
			cur = next
			continue
		}

		switch {
		case cur == nil:
			// Blank lines before any comment text are dropped; once the
			// comment has begun every line is kept.
			if len(comment) > 0 || strings.TrimSpace(line) != "" {
				comment = append(comment, line)
			}
		case cur.isBinary:
			// Base64 bodies hold data lines only.
			if strings.TrimSpace(line) != "" {
				cur.body.WriteString(line)
				cur.body.WriteByte('\n')
			}
		default:
			cur.body.WriteString(line)
			cur.body.WriteByte('\n')
		}
	}

	if err := d.finalize(a, cur); err != nil {
		return nil, err
	}

	a.Comment = strings.Join(comment, "\n")
	a.ParseCommands()

	if err := d.resolveEdits(a); err != nil {
		return nil, err
	}
	return a, nil
}

// markerName reports whether line is a file marker and returns the
// name-and-tags region between the delimiters.
func markerName(line string) (string, bool) {
	if !encoding.IsMarkerLine(line) {
		return "", false
	}
	trimmed := strings.TrimSpace(line)
	return trimmed[len(encoding.MarkerPrefix) : len(trimmed)-len(encoding.MarkerSuffix)], true
}

// parseNameAndTags splits the marker region into the base file name and
// its bracket tags. Tags are scanned left to right; each recognized
// grammar updates the pending file, unknown tags are skipped unless
// strict decoding is on.
func (d *Decoder) parseNameAndTags(region string) (*pending, error) {
	p := &pending{}

	bracket := strings.Index(region, "[")
	if bracket < 0 {
		p.name = strings.TrimSpace(region)
		d.warnMarkerShapedName(p)
		return p, nil
	}
	p.name = strings.TrimSpace(region[:bracket])

	rest := region[bracket:]
	for {
		end := strings.Index(rest, "]")
		if end < 0 {
			break
		}
		tag := rest[:end+1]
		rest = rest[end+1:]

		if tag == encoding.Base64Tag {
			p.isBinary = true
			continue
		}
		if ref, err := archive.ParseSnippetRef(tag); err == nil {
			p.snippetRef = &ref
			continue
		}
		if ref, ok := archive.ParseEditRef(tag); ok {
			p.editRef = &ref
			continue
		}
		if d.strictTags {
			return nil, &UnknownTagError{Name: p.name, Tag: tag}
		}
	}

	d.warnMarkerShapedName(p)
	return p, nil
}

// warnMarkerShapedName emits the advisory for a non-binary file whose
// own name would look like a marker when re-encoded. Decode proceeds.
func (d *Decoder) warnMarkerShapedName(p *pending) {
	if p.isBinary {
		return
	}
	if strings.Contains(p.name, encoding.MarkerPrefix) && strings.Contains(p.name, encoding.MarkerSuffix) {
		d.logger.Warn("file name contains archive marker pattern but is not marked binary",
			zap.String("file", p.name))
	}
}

// finalize turns the accumulated entry into a File and appends it.
func (d *Decoder) finalize(a *archive.Archive, p *pending) error {
	if p == nil {
		return nil
	}

	var f archive.File
	if p.isBinary {
		filtered := filterBase64(p.body.Bytes())
		data, err := base64.StdEncoding.DecodeString(filtered)
		if err != nil {
			return fmt.Errorf("decoding base64 for file %q: %w", p.name, err)
		}
		f = archive.NewFileWithEncoding(p.name, data, true)
	} else {
		data := bytes.TrimSuffix(p.body.Bytes(), []byte("\n"))
		f = archive.NewFileWithEncoding(p.name, data, false)
	}
	f.SnippetRef = p.snippetRef
	f.EditRef = p.editRef

	return a.AddFile(f)
}

// filterBase64 strips newlines and carriage returns from an accumulated
// base64 body.
func filterBase64(data []byte) string {
	var b strings.Builder
	b.Grow(len(data))
	for _, c := range data {
		if c != '\n' && c != '\r' {
			b.WriteByte(c)
		}
	}
	return b.String()
}

// resolveEdits validates every edit file's target and parses its body
// into edit blocks. Target validation runs first for all edit files so
// no archive is returned half-resolved.
func (d *Decoder) resolveEdits(a *archive.Archive) error {
	var editFiles []int
	for i := range a.Files {
		if a.Files[i].EditRef != nil {
			editFiles = append(editFiles, i)
		}
	}

	for _, i := range editFiles {
		name := a.Files[i].Name
		if a.HasNormalFile(name) {
			continue
		}
		if d.checker != nil && d.checker.FileExists(name) {
			continue
		}
		return &TargetNotFoundError{Name: name}
	}

	for _, i := range editFiles {
		f := &a.Files[i]
		if !utf8.Valid(f.Data) {
			return &NotUTF8Error{Name: f.Name}
		}
		blocks, err := edit.Parse(string(f.Data))
		if err != nil {
			return fmt.Errorf("parsing edit blocks in %q: %w", f.Name, err)
		}
		f.EditRef.Edits = blocks
	}
	return nil
}

// splitLines iterates input as lines: no entry for a trailing newline,
// carriage returns stripped.
func splitLines(input string) []string {
	if input == "" {
		return nil
	}
	input = strings.TrimSuffix(input, "\n")
	lines := strings.Split(input, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines
}
