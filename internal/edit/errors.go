// internal/edit/errors.go
package edit

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnterminatedBlock reports an edit body that ended inside a block.
	ErrUnterminatedBlock = errors.New("unterminated edit block (missing >>>>>>> marker)")
	// ErrEmptyBlock reports a block with neither search nor replacement lines.
	ErrEmptyBlock = errors.New("empty edit block (both search and replacement are empty)")
	// ErrEmptyContent reports a non-insert edit applied to empty content.
	ErrEmptyContent = errors.New("cannot apply edit to empty content")
)

// MalformedLineError reports a line the parser could not accept, with
// its 1-based position in the edit body.
type MalformedLineError struct {
	LineNumber int
	Line       string
}

func (e *MalformedLineError) Error() string {
	return fmt.Sprintf("malformed line at %d: %q", e.LineNumber, e.Line)
}

// ExpectedSearchStartError reports content before the first block.
type ExpectedSearchStartError struct {
	LineNumber int
	Line       string
}

func (e *ExpectedSearchStartError) Error() string {
	return fmt.Sprintf("expected <<<<<<< SEARCH marker at line %d, got %q", e.LineNumber, e.Line)
}

// SearchNotFoundError reports a search pattern absent from the content.
type SearchNotFoundError struct {
	Search []string
}

func (e *SearchNotFoundError) Error() string {
	return fmt.Sprintf("search pattern not found: %q", strings.Join(e.Search, "\n"))
}

// AmbiguousMatchError reports a search pattern that matched more than
// once under strict application.
type AmbiguousMatchError struct {
	Search []string
	Count  int
}

func (e *AmbiguousMatchError) Error() string {
	return fmt.Sprintf("search pattern found %d times (ambiguous): %q", e.Count, strings.Join(e.Search, "\n"))
}
