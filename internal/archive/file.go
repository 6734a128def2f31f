// internal/archive/file.go
package archive

import (
	"emtar/internal/edit"
	"emtar/internal/encoding"
)

// SnippetRef marks a file as an excerpt of some source, starting at
// Line, optionally tied to a command in the archive comment. An empty
// CommandHref means the snippet carries no command reference.
type SnippetRef struct {
	CommandHref string
	Line        uint
}

// EditRef marks a file whose body is an edit program rather than
// literal content. StartLine is informational only (zero when absent).
// Edits is populated by the decoder after the body has been parsed.
type EditRef struct {
	CommandHref string
	StartLine   uint
	Edits       []edit.Block
}

// File is a single entry in an archive. BinaryReason is set iff
// IsBinary. Name may contain slash-separated path segments and must not
// be empty.
type File struct {
	Name         string
	Data         []byte
	IsBinary     bool
	BinaryReason encoding.BinaryReason
	SnippetRef   *SnippetRef
	EditRef      *EditRef
}

// NewFile classifies data with the default detection config.
func NewFile(name string, data []byte) File {
	return NewFileWithConfig(name, data, encoding.DefaultConfig())
}

// NewFileWithConfig classifies data with an explicit detection config.
func NewFileWithConfig(name string, data []byte, cfg encoding.Config) File {
	d := encoding.Detect(name, data, cfg)
	return File{
		Name:         name,
		Data:         data,
		IsBinary:     d.Binary,
		BinaryReason: d.Reason,
	}
}

// NewFileWithEncoding builds a file with the binary flag decided by the
// caller, bypassing detection.
func NewFileWithEncoding(name string, data []byte, isBinary bool) File {
	f := File{Name: name, Data: data, IsBinary: isBinary}
	if isBinary {
		f.BinaryReason = encoding.Explicit
	}
	return f
}

// ArchiveName is the name as written on the marker line; binary files
// carry the [.base64] tag.
func (f *File) ArchiveName() string {
	if f.IsBinary {
		return f.Name + encoding.Base64Tag
	}
	return f.Name
}

// normal reports whether the file participates in name uniqueness.
// Snippet and edit files may repeat a name.
func (f *File) normal() bool {
	return f.SnippetRef == nil && f.EditRef == nil
}
