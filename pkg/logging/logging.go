// Package logging configures the process-wide slog logger. The daemon
// writes to a session-specific file under <home>/logs so long runs can
// be inspected after the fact; if the file cannot be created it falls
// back to stderr.
package logging

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
)

var sessionOnce sync.Once
var sessionID string

// SessionID returns the stable identifier for this process, used to
// name the log file.
func SessionID() string {
	sessionOnce.Do(func() {
		sessionID = uuid.New().String()[:8]
	})
	return sessionID
}

// Setup installs the default slog logger. When toFile is true, output
// goes to <home>/logs/<session>-vigil.log; otherwise, or on failure to
// open the file, it goes to stderr. The returned closer is nil in
// stderr mode.
func Setup(home string, toFile, debug bool) (func() error, error) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}

	if !toFile {
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, opts)))
		return nil, nil
	}

	dir := filepath.Join(home, "logs")
	if err := os.MkdirAll(dir, 0o750); err != nil {
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, opts)))
		return nil, fmt.Errorf("logging: create %s: %w", dir, err)
	}

	path := filepath.Join(dir, SessionID()+"-vigil.log")
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, opts)))
		return nil, fmt.Errorf("logging: open %s: %w", path, err)
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(file, opts)))
	return file.Close, nil
}
