// internal/archive/snippet.go
package archive

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	// ErrSnippetFormat reports input matching no known snippet grammar.
	ErrSnippetFormat = errors.New("invalid snippet format: expected [.snippet:N], [.snippet#href:line], or [.#href:line]")
	// ErrMissingClosingBracket reports a tag without its ']'.
	ErrMissingClosingBracket = errors.New("missing closing bracket ']'")
	// ErrMissingColon reports an href tag without its ':' separator.
	ErrMissingColon = errors.New("missing colon ':' in href:line format")
)

// InvalidLineNumberError reports a tag whose line field is not an
// unsigned decimal.
type InvalidLineNumberError struct {
	Input string
}

func (e *InvalidLineNumberError) Error() string {
	return fmt.Sprintf("invalid line number: %q", e.Input)
}

// ParseSnippetRef parses a snippet tag: [.snippet:N], [.snippet#href:line],
// or the shorthand [.#href:line].
func ParseSnippetRef(input string) (SnippetRef, error) {
	input = strings.TrimSpace(input)

	var inner string
	var hasHref bool
	switch {
	case strings.HasPrefix(input, "[.#"):
		inner, hasHref = strings.TrimPrefix(input, "[.#"), true
	case strings.HasPrefix(input, "[.snippet#"):
		inner, hasHref = strings.TrimPrefix(input, "[.snippet#"), true
	case strings.HasPrefix(input, "[.snippet:"):
		inner = strings.TrimPrefix(input, "[.snippet:")
	default:
		return SnippetRef{}, ErrSnippetFormat
	}

	inner, ok := strings.CutSuffix(inner, "]")
	if !ok {
		return SnippetRef{}, ErrMissingClosingBracket
	}

	if !hasHref {
		line, err := parseLineNumber(inner)
		if err != nil {
			return SnippetRef{}, err
		}
		return SnippetRef{Line: line}, nil
	}

	href, lineStr, ok := strings.Cut(inner, ":")
	if !ok {
		return SnippetRef{}, ErrMissingColon
	}
	line, err := parseLineNumber(lineStr)
	if err != nil {
		return SnippetRef{}, err
	}
	return SnippetRef{CommandHref: href, Line: line}, nil
}

func parseLineNumber(s string) (uint, error) {
	n, err := strconv.ParseUint(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, &InvalidLineNumberError{Input: s}
	}
	return uint(n), nil
}

// ParseEditRef parses an edit tag: [.edit] or [.edit#href:line]. The
// second return is false when the tag is not an edit tag at all.
func ParseEditRef(tag string) (EditRef, bool) {
	if tag == "[.edit]" {
		return EditRef{}, true
	}

	inner, ok := strings.CutPrefix(tag, "[.edit#")
	if !ok {
		return EditRef{}, false
	}
	inner, ok = strings.CutSuffix(inner, "]")
	if !ok {
		return EditRef{}, false
	}
	href, lineStr, ok := strings.Cut(inner, ":")
	if !ok {
		return EditRef{}, false
	}
	line, err := strconv.ParseUint(lineStr, 10, 64)
	if err != nil {
		return EditRef{}, false
	}
	return EditRef{CommandHref: href, StartLine: uint(line)}, true
}
