// internal/archive/archive.go
package archive

import (
	"fmt"
)

// Archive is an in-memory extended txtar archive: leading comment,
// command references extracted from it, and an ordered list of files.
// The href index over commands is private and rebuilt by ParseCommands,
// the only path that mutates Commands.
type Archive struct {
	Comment  string
	Commands []Command
	Files    []File

	commandIndex map[string]int
}

// New creates an empty archive.
func New() *Archive {
	return &Archive{}
}

// WithComment creates an archive with a leading comment.
func WithComment(comment string) *Archive {
	return &Archive{Comment: comment}
}

// DuplicateFileError reports a second normal file with an existing name.
type DuplicateFileError struct {
	Name string
}

func (e *DuplicateFileError) Error() string {
	return fmt.Sprintf("duplicate file: %s", e.Name)
}

// AddFile appends a file. A normal file (no snippet or edit ref) whose
// name collides with an existing normal file is rejected; snippet and
// edit files may repeat names.
func (a *Archive) AddFile(f File) error {
	if f.Name == "" {
		return fmt.Errorf("file name must not be empty")
	}
	if f.normal() {
		for i := range a.Files {
			if a.Files[i].Name == f.Name && a.Files[i].normal() {
				return &DuplicateFileError{Name: f.Name}
			}
		}
	}
	a.Files = append(a.Files, f)
	return nil
}

// ParseCommands re-extracts command links from the comment and rebuilds
// the href index. Callers changing Comment must call this before using
// CommandByHref or ValidateSnippetRefs.
func (a *Archive) ParseCommands() {
	a.Commands = parseCommands(a.Comment)
	a.commandIndex = make(map[string]int, len(a.Commands))
	for i, cmd := range a.Commands {
		a.commandIndex[cmd.Href] = i
	}
}

// CommandByHref looks a command up through the index.
func (a *Archive) CommandByHref(href string) (Command, bool) {
	i, ok := a.commandIndex[href]
	if !ok {
		return Command{}, false
	}
	return a.Commands[i], true
}

// SnippetRefError records one snippet reference pointing at a command
// href that does not exist in the comment.
type SnippetRefError struct {
	File           string
	MissingCommand string
}

func (e SnippetRefError) Error() string {
	return fmt.Sprintf("file %q references missing command %q", e.File, e.MissingCommand)
}

// ValidateSnippetRefs checks every snippet command reference against
// the command index. Unresolved references are collected and returned,
// never treated as fatal; an empty result means all references resolve.
func (a *Archive) ValidateSnippetRefs() []SnippetRefError {
	var errs []SnippetRefError
	for i := range a.Files {
		f := &a.Files[i]
		if f.SnippetRef == nil || f.SnippetRef.CommandHref == "" {
			continue
		}
		if _, ok := a.commandIndex[f.SnippetRef.CommandHref]; !ok {
			errs = append(errs, SnippetRefError{
				File:           f.Name,
				MissingCommand: f.SnippetRef.CommandHref,
			})
		}
	}
	return errs
}

// HasNormalFile reports whether name exists as a non-edit file. Edit
// targets resolve against these entries.
func (a *Archive) HasNormalFile(name string) bool {
	for i := range a.Files {
		if a.Files[i].Name == name && a.Files[i].EditRef == nil {
			return true
		}
	}
	return false
}

// FindNormalFile returns the first non-edit file with the given name.
func (a *Archive) FindNormalFile(name string) (*File, bool) {
	for i := range a.Files {
		if a.Files[i].Name == name && a.Files[i].EditRef == nil {
			return &a.Files[i], true
		}
	}
	return nil, false
}
