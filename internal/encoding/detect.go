// internal/encoding/detect.go
package encoding

import (
	"strings"
	"unicode/utf8"
)

// Archive marker format constants shared with the codec.
const (
	MarkerPrefix = "-- "
	MarkerSuffix = " --"
	Base64Tag    = "[.base64]"
)

// Config controls which detection rules run.
type Config struct {
	// CheckContentMarkers scans text content for lines that would be
	// mistaken for archive file markers.
	CheckContentMarkers bool
	// ValidateUTF8 treats non-UTF-8 data as binary.
	ValidateUTF8 bool
}

// DefaultConfig enables both detection rules.
func DefaultConfig() Config {
	return Config{
		CheckContentMarkers: true,
		ValidateUTF8:        true,
	}
}

// BinaryReason says why data must be base64-encoded in the archive.
type BinaryReason string

const (
	// ContentConflict means the content itself contains a line shaped
	// like an archive marker and would corrupt the stream as plain text.
	ContentConflict BinaryReason = "content-conflict"
	// InvalidUTF8 means the data is not valid UTF-8.
	InvalidUTF8 BinaryReason = "invalid-utf8"
	// Explicit means the caller forced binary encoding.
	Explicit BinaryReason = "explicit"
)

// TextEncoding identifies the text encoding of non-binary data.
type TextEncoding string

// UTF8 is the only encoding currently produced.
const UTF8 TextEncoding = "utf-8"

// Detection is the classification of one file's content.
type Detection struct {
	Binary   bool
	Reason   BinaryReason // set iff Binary
	Encoding TextEncoding // set iff !Binary
}

// Detect classifies data as text or binary. Rules run in order and the
// first match wins: content-marker conflict, then UTF-8 validity. Each
// rule only runs when its config flag is set.
func Detect(name string, data []byte, cfg Config) Detection {
	_ = name // reserved for name-based rules

	valid := utf8.Valid(data)

	if cfg.CheckContentMarkers && valid {
		if ContainsMarkerPattern(string(data)) {
			return Detection{Binary: true, Reason: ContentConflict}
		}
	}

	if cfg.ValidateUTF8 && !valid {
		return Detection{Binary: true, Reason: InvalidUTF8}
	}

	return Detection{Encoding: UTF8}
}

// ContainsMarkerPattern reports whether any line of text, after
// trimming, is of the form "-- name --" with non-whitespace inner
// content. A line like "--   --" is legal content and does not count.
func ContainsMarkerPattern(text string) bool {
	for _, line := range strings.Split(text, "\n") {
		if IsMarkerLine(line) {
			return true
		}
	}
	return false
}

// IsMarkerLine reports whether a single line would parse as a file
// marker when the archive is decoded.
func IsMarkerLine(line string) bool {
	trimmed := strings.TrimSpace(line)
	if len(trimmed) < len(MarkerPrefix)+len(MarkerSuffix) {
		return false
	}
	if !strings.HasPrefix(trimmed, MarkerPrefix) || !strings.HasSuffix(trimmed, MarkerSuffix) {
		return false
	}
	inner := trimmed[len(MarkerPrefix) : len(trimmed)-len(MarkerSuffix)]
	return strings.TrimSpace(inner) != ""
}
