// internal/workspace/workspace.go
package workspace

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"emtar/internal/archive"
	"emtar/internal/codec"
	"emtar/internal/edit"
	"emtar/internal/encoding"

	"go.uber.org/zap"
)

// Workspace is the disk-facing collaborator: it packs files and
// directories into archives, extracts archives back out, and applies
// edit programs to their targets. The codec core never touches the
// filesystem; everything that does lives here.
type Workspace struct {
	encCfg encoding.Config
	logger *zap.Logger
}

// New creates a workspace. A nil logger disables logging.
func New(encCfg encoding.Config, logger *zap.Logger) *Workspace {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Workspace{encCfg: encCfg, logger: logger}
}

// Checker is the codec.FileChecker backed by the OS filesystem.
type Checker struct{}

// FileExists reports whether name exists as a regular file on disk.
func (Checker) FileExists(name string) bool {
	info, err := os.Stat(name)
	return err == nil && info.Mode().IsRegular()
}

var _ codec.FileChecker = Checker{}

// PackOptions controls PackPaths filtering.
type PackOptions struct {
	// Skip drops entries by their slash-separated archive name.
	// Directories whose relative name matches are not descended into.
	Skip func(name string) bool
}

// PackPaths builds an archive from files and directories. Directories
// are walked recursively; entry names are slash-separated paths
// relative to the directory root. Classification runs through the
// detector with the workspace's encoding config.
func (w *Workspace) PackPaths(a *archive.Archive, paths []string) error {
	return w.PackPathsWith(a, paths, PackOptions{})
}

// PackPathsWith is PackPaths with an entry filter.
func (w *Workspace) PackPathsWith(a *archive.Archive, paths []string, opts PackOptions) error {
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}
		if info.IsDir() {
			if err := w.packDir(a, path, opts); err != nil {
				return err
			}
			continue
		}
		if err := w.packFile(a, path, filepath.Base(path)); err != nil {
			return err
		}
	}
	return nil
}

func (w *Workspace) packDir(a *archive.Archive, dir string, opts PackOptions) error {
	return filepath.Walk(dir, func(path string, info fs.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return fmt.Errorf("getting relative path: %w", err)
		}
		name := filepath.ToSlash(rel)

		if info.IsDir() {
			if rel != "." && opts.Skip != nil && opts.Skip(name) {
				w.logger.Debug("skipped directory", zap.String("name", name))
				return filepath.SkipDir
			}
			return nil
		}
		if opts.Skip != nil && opts.Skip(name) {
			w.logger.Debug("skipped file", zap.String("name", name))
			return nil
		}
		return w.packFile(a, path, name)
	})
}

func (w *Workspace) packFile(a *archive.Archive, path, name string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	f := archive.NewFileWithConfig(name, data, w.encCfg)
	if err := a.AddFile(f); err != nil {
		return fmt.Errorf("adding %s: %w", name, err)
	}

	w.logger.Debug("packed file",
		zap.String("name", name),
		zap.Int("bytes", len(data)),
		zap.Bool("binary", f.IsBinary))
	return nil
}

// ExtractOptions controls Extract behavior.
type ExtractOptions struct {
	// IncludeSnippets also writes snippet files (skipped by default).
	IncludeSnippets bool
}

// Extract writes the archive's files under dir, creating parent
// directories as needed. Edit files are never written out as literal
// content; ApplyEdits handles them.
func (w *Workspace) Extract(a *archive.Archive, dir string, opts ExtractOptions) error {
	for i := range a.Files {
		f := &a.Files[i]
		if f.EditRef != nil {
			w.logger.Debug("skipped edit file", zap.String("name", f.Name))
			continue
		}
		if f.SnippetRef != nil && !opts.IncludeSnippets {
			w.logger.Debug("skipped snippet", zap.String("name", f.Name))
			continue
		}

		target := filepath.Join(dir, filepath.FromSlash(f.Name))
		if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
			return fmt.Errorf("creating directory for %s: %w", f.Name, err)
		}
		if err := os.WriteFile(target, f.Data, 0644); err != nil {
			return fmt.Errorf("writing %s: %w", f.Name, err)
		}
		w.logger.Debug("extracted file", zap.String("name", f.Name))
	}
	return nil
}

// ApplyOptions controls ApplyEdits behavior.
type ApplyOptions struct {
	// Strict rejects ambiguous search matches instead of taking the
	// first occurrence.
	Strict bool
	// DryRun computes results without writing anything back.
	DryRun bool
}

// AppliedEdit is the outcome of one edit file.
type AppliedEdit struct {
	Target string
	// InArchive says whether the target was an archive entry (updated
	// in place) or a file under the working directory.
	InArchive bool
	Result    string
}

// ApplyEdits runs every edit file in the archive against its target.
// Targets resolve archive-first: an archive entry is rewritten in the
// in-memory archive, otherwise the file under dir is patched on disk.
func (w *Workspace) ApplyEdits(a *archive.Archive, dir string, opts ApplyOptions) ([]AppliedEdit, error) {
	applyFn := edit.Apply
	if opts.Strict {
		applyFn = edit.ApplyUnique
	}

	var applied []AppliedEdit
	for i := range a.Files {
		f := &a.Files[i]
		if f.EditRef == nil {
			continue
		}

		if target, ok := a.FindNormalFile(f.Name); ok {
			result, err := applyFn(string(target.Data), f.EditRef.Edits)
			if err != nil {
				return nil, fmt.Errorf("applying edits to %s: %w", f.Name, err)
			}
			if !opts.DryRun {
				target.Data = []byte(result)
			}
			applied = append(applied, AppliedEdit{Target: f.Name, InArchive: true, Result: result})
			w.logger.Info("applied edits to archive entry", zap.String("name", f.Name))
			continue
		}

		path := filepath.Join(dir, filepath.FromSlash(f.Name))
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading edit target %s: %w", f.Name, err)
		}
		result, err := applyFn(string(data), f.EditRef.Edits)
		if err != nil {
			return nil, fmt.Errorf("applying edits to %s: %w", f.Name, err)
		}
		if !opts.DryRun {
			// Keep the target's trailing-newline state; the engine works
			// on joined lines and never emits one itself.
			out := result
			if len(data) > 0 && data[len(data)-1] == '\n' {
				out += "\n"
			}
			if err := os.WriteFile(path, []byte(out), 0644); err != nil {
				return nil, fmt.Errorf("writing %s: %w", f.Name, err)
			}
		}
		applied = append(applied, AppliedEdit{Target: f.Name, Result: result})
		w.logger.Info("applied edits to file", zap.String("path", path))
	}
	return applied, nil
}
