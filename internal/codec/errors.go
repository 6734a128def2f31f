// internal/codec/errors.go
package codec

import (
	"fmt"
)

// UnknownTagError reports an unrecognized bracket tag under strict
// decoding. The permissive default skips such tags instead.
type UnknownTagError struct {
	Name string
	Tag  string
}

func (e *UnknownTagError) Error() string {
	return fmt.Sprintf("unknown tag %q on file %q", e.Tag, e.Name)
}

// TargetNotFoundError reports an edit file whose target exists neither
// in the archive nor on the filesystem.
type TargetNotFoundError struct {
	Name string
}

func (e *TargetNotFoundError) Error() string {
	return fmt.Sprintf("edit target file %q not found in archive or filesystem (at least one must exist)", e.Name)
}

// NotUTF8Error reports a file whose bytes were required to be text but
// are not valid UTF-8.
type NotUTF8Error struct {
	Name string
}

func (e *NotUTF8Error) Error() string {
	return fmt.Sprintf("file %q is not valid UTF-8", e.Name)
}
