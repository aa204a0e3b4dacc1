// Package pidfile records the daemon's process id on disk so the CLI
// can detect a running instance, refuse a second one, and stop it.
package pidfile

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
)

// Path returns the pid file location inside home.
func Path(home string) string {
	return filepath.Join(home, "daemon.pid")
}

// Alive reports whether pid refers to a live process.
func Alive(pid int) bool {
	if pid <= 0 {
		return false
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return proc.Signal(syscall.Signal(0)) == nil
}

// Read returns the pid of the running daemon recorded at path. A
// missing or malformed file, or one whose process is gone, yields
// ok=false; stale and malformed files are removed on the way.
func Read(path string) (int, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, false
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || !Alive(pid) {
		_ = os.Remove(path)
		return 0, false
	}
	return pid, true
}

// Write records pid (the current process when pid is 0) at path. It
// fails when a live daemon already holds the file.
func Write(path string, pid int) error {
	if pid == 0 {
		pid = os.Getpid()
	}
	if existing, ok := Read(path); ok {
		return fmt.Errorf("pidfile: daemon already running (pid %d)", existing)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("pidfile: create directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(strconv.Itoa(pid)+"\n"), 0o600); err != nil {
		return fmt.Errorf("pidfile: write %s: %w", path, err)
	}
	return nil
}

// Remove deletes the pid file. Missing files are not an error.
func Remove(path string) {
	_ = os.Remove(path)
}

// Stop signals SIGTERM to the daemon recorded at path and removes the
// file. It returns the signalled pid, or ok=false when no live daemon
// was found.
func Stop(path string) (int, bool) {
	pid, ok := Read(path)
	if !ok {
		return 0, false
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		Remove(path)
		return 0, false
	}
	if err := proc.Signal(syscall.SIGTERM); err != nil {
		Remove(path)
		return 0, false
	}
	Remove(path)
	return pid, true
}
