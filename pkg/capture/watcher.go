package capture

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/gobwas/glob"

	"github.com/vigil-dev/vigil/pkg/types"
)

// DefaultIgnorePatterns are matched against every path segment of a
// changed file. They cover VCS metadata, build output, and editor
// state, which dominate raw filesystem event volume.
var DefaultIgnorePatterns = []string{
	".git", ".obsidian", ".idea", ".vscode",
	"node_modules", "__pycache__", ".venv", "venv",
	"dist", "build", "target",
	".DS_Store", "*.swp", "*.tmp", "*.lock", ".#*",
}

// binaryExtensions are skipped; their content is not classifiable text.
var binaryExtensions = map[string]bool{
	".pdf": true, ".zip": true, ".gz": true, ".tar": true, ".exe": true, ".bin": true,
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".ico": true, ".svg": true,
	".mp3": true, ".mp4": true, ".mov": true, ".wav": true,
	".woff": true, ".woff2": true, ".ttf": true,
	".pyc": true, ".so": true, ".dylib": true, ".dll": true, ".o": true, ".a": true,
	".sqlite": true, ".db": true,
}

// Watcher emits an item for every create/write/rename of a watchable
// file under its directories. Newly created subdirectories are added to
// the watch as they appear.
type Watcher struct {
	dirs    []string
	ignores []glob.Glob
}

// NewWatcher creates a filesystem source over dirs. Extra ignore
// patterns are added on top of the defaults.
func NewWatcher(dirs []string, extraIgnores []string) (*Watcher, error) {
	if len(dirs) == 0 {
		return nil, fmt.Errorf("capture: watcher needs at least one directory")
	}
	patterns := append(append([]string{}, DefaultIgnorePatterns...), extraIgnores...)
	ignores := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		g, err := glob.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("capture: bad ignore pattern %q: %w", p, err)
		}
		ignores = append(ignores, g)
	}
	return &Watcher{dirs: dirs, ignores: ignores}, nil
}

func (w *Watcher) Name() string { return "filewatcher" }

// Run watches until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context, sink Sink) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("capture: start watcher: %w", err)
	}
	defer fsw.Close()

	for _, dir := range w.dirs {
		if err := w.addRecursive(fsw, dir); err != nil {
			return err
		}
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			w.handleEvent(fsw, event, sink)

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			slog.Debug("capture: watch error", "err", err)
		}
	}
}

func (w *Watcher) handleEvent(fsw *fsnotify.Watcher, event fsnotify.Event, sink Sink) {
	if w.ignored(event.Name) {
		return
	}

	// Watch new directories as they appear.
	if event.Op.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.addRecursive(fsw, event.Name); err != nil {
				slog.Debug("capture: could not watch new directory", "dir", event.Name, "err", err)
			}
			return
		}
	}

	verb := eventVerb(event.Op)
	if verb == "" {
		return
	}
	if binaryExtensions[strings.ToLower(filepath.Ext(event.Name))] {
		return
	}

	sink.Put(types.RawItem{
		Text:      fmt.Sprintf("%s %s", verb, filepath.Base(event.Name)),
		Source:    types.SourceFile,
		Timestamp: time.Now(),
		Attributes: map[string]any{
			"path": event.Name,
			"op":   event.Op.String(),
		},
	})
}

func eventVerb(op fsnotify.Op) string {
	switch {
	case op.Has(fsnotify.Create):
		return "created"
	case op.Has(fsnotify.Write):
		return "modified"
	case op.Has(fsnotify.Rename):
		return "renamed"
	default:
		return ""
	}
}

// addRecursive watches dir and every non-ignored subdirectory.
func (w *Watcher) addRecursive(fsw *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // unreadable subtree, skip
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && w.ignored(path) {
			return filepath.SkipDir
		}
		if err := fsw.Add(path); err != nil {
			slog.Debug("capture: could not watch directory", "dir", path, "err", err)
		}
		return nil
	})
}

// ignored reports whether any path segment matches an ignore pattern.
func (w *Watcher) ignored(path string) bool {
	for _, segment := range strings.Split(filepath.ToSlash(path), "/") {
		if segment == "" {
			continue
		}
		for _, g := range w.ignores {
			if g.Match(segment) {
				return true
			}
		}
	}
	return false
}
