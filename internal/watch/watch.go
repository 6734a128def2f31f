// internal/watch/watch.go
package watch

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"emtar/internal/archive"
	"emtar/internal/codec"
	"emtar/internal/vault"
	"emtar/internal/workspace"
)

// Snapshotter receives the archives produced by a Watcher.
type Snapshotter interface {
	Store(encoded []byte, label string, fileCount int) (vault.Snapshot, error)
}

// Options configures a Watcher.
type Options struct {
	// Root is the directory to watch.
	Root string
	// Debounce is how long the tree must stay quiet before a snapshot
	// is taken. Zero uses the default (500ms).
	Debounce time.Duration
	// Logger may be nil.
	Logger *zap.Logger
}

// Watcher watches a directory tree and packs it into an archive
// snapshot whenever it settles after a change.
type Watcher struct {
	root       string
	ws         *workspace.Workspace
	snaps      Snapshotter
	watcher    *fsnotify.Watcher
	ignoreDirs map[string]bool
	debounce   time.Duration
	logger     *zap.Logger

	mu     sync.Mutex
	timer  *time.Timer
	closed bool
}

// New starts watching opts.Root. Snapshots go to snaps until Close.
func New(ws *workspace.Workspace, snaps Snapshotter, opts Options) (*Watcher, error) {
	root, err := filepath.Abs(opts.Root)
	if err != nil {
		return nil, fmt.Errorf("resolving root: %w", err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating file watcher: %w", err)
	}

	if opts.Debounce == 0 {
		opts.Debounce = 500 * time.Millisecond
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	w := &Watcher{
		root:    root,
		ws:      ws,
		snaps:   snaps,
		watcher: fsw,
		ignoreDirs: map[string]bool{
			".git":         true,
			".emtar":       true,
			"node_modules": true,
			"vendor":       true,
			"dist":         true,
			"build":        true,
		},
		debounce: opts.Debounce,
		logger:   logger,
	}

	if err := w.addTree(root); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("watching tree: %w", err)
	}

	go w.watchLoop()
	return w, nil
}

// addTree registers root and every non-ignored subdirectory.
func (w *Watcher) addTree(root string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		if rel != "." && w.ShouldIgnore(rel) {
			return filepath.SkipDir
		}

		if err := w.watcher.Add(path); err != nil {
			return fmt.Errorf("adding directory to watcher: %w", err)
		}
		return nil
	})
}

// watchLoop processes filesystem events until the watcher closes.
func (w *Watcher) watchLoop() {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	rel, err := filepath.Rel(w.root, event.Name)
	if err != nil {
		w.logger.Error("getting relative path", zap.Error(err))
		return
	}
	if w.ShouldIgnore(rel) {
		return
	}

	if event.Op&fsnotify.Create == fsnotify.Create {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.watcher.Add(event.Name); err != nil {
				w.logger.Error("adding new directory to watcher", zap.Error(err))
			}
		}
	}

	w.logger.Debug("filesystem event",
		zap.String("path", rel),
		zap.String("op", event.Op.String()))
	w.scheduleSnapshot()
}

// scheduleSnapshot resets the debounce timer. A burst of events yields
// one snapshot once the tree goes quiet.
func (w *Watcher) scheduleSnapshot() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.snapshot)
}

// snapshot packs the watched tree into an archive and stores it. The
// ignore set applies here too, so snapshots hold the same files the
// watcher reacts to.
func (w *Watcher) snapshot() {
	a := archive.New()
	opts := workspace.PackOptions{
		Skip: func(name string) bool {
			return w.ShouldIgnore(filepath.FromSlash(name))
		},
	}
	if err := w.ws.PackPathsWith(a, []string{w.root}, opts); err != nil {
		w.logger.Error("packing watched tree", zap.Error(err))
		return
	}

	encoded, err := codec.NewEncoder().Encode(a)
	if err != nil {
		w.logger.Error("encoding snapshot archive", zap.Error(err))
		return
	}

	label := "auto-" + time.Now().Format("20060102-150405")
	snap, err := w.snaps.Store([]byte(encoded), label, len(a.Files))
	if err != nil {
		w.logger.Error("storing snapshot", zap.Error(err))
		return
	}

	w.logger.Info("snapshot stored",
		zap.String("id", snap.ID),
		zap.String("label", label),
		zap.Int("files", snap.FileCount))
}

// ShouldIgnore reports whether a root-relative path sits under an
// ignored directory.
func (w *Watcher) ShouldIgnore(path string) bool {
	if path == "" {
		return true
	}

	for _, part := range strings.Split(path, string(filepath.Separator)) {
		if w.ignoreDirs[part] {
			return true
		}
	}
	return false
}

// Close stops watching and cancels any pending snapshot.
func (w *Watcher) Close() error {
	w.mu.Lock()
	w.closed = true
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()
	return w.watcher.Close()
}
