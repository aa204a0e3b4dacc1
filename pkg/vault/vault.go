// Package vault provides the file-backed resource store all other
// components persist into: markdown files with a small line-oriented
// frontmatter header, organized into a fixed directory layout under a
// single root.
package vault

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Directory families managed inside a vault root. Daily logs and tasks
// are written by the pipeline; the lifecycle janitor owns archiving.
const (
	DirLogs        = "logs"
	DirTasksActive = "tasks/active"
	DirTasksDone   = "tasks/done"
	DirInsights    = "insights"
	DirMemories    = "memories"
	DirArchive     = "archive"
)

// managedDirs are created when a vault is opened.
var managedDirs = []string{
	DirLogs,
	DirTasksActive,
	DirTasksDone,
	DirInsights,
	DirMemories,
	DirArchive,
}

var ErrNotFound = errors.New("vault: resource not found")

// Vault is a store of markdown resources keyed by root-relative path
// (e.g. "logs/2026-08-29.md"). It performs no locking across readers
// and writers; correctness relies on the convention that one logical
// owner writes a given directory family at a time.
type Vault struct {
	root string
}

// Open initializes a vault at root, creating the managed directory
// layout if absent.
func Open(root string) (*Vault, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("vault: resolve root: %w", err)
	}
	for _, dir := range managedDirs {
		if err := os.MkdirAll(filepath.Join(abs, dir), 0o750); err != nil {
			return nil, fmt.Errorf("vault: init directory %s: %w", dir, err)
		}
	}
	return &Vault{root: abs}, nil
}

// Root returns the absolute vault root path.
func (v *Vault) Root() string {
	return v.root
}

// resolve maps a root-relative key onto the filesystem, rejecting keys
// that would escape the vault root.
func (v *Vault) resolve(key string) (string, error) {
	if key == "" {
		return "", fmt.Errorf("vault: empty resource key")
	}
	resolved := filepath.Join(v.root, filepath.FromSlash(key))
	if !strings.HasPrefix(resolved, v.root+string(filepath.Separator)) {
		return "", fmt.Errorf("vault: path traversal detected for key %q", key)
	}
	return resolved, nil
}

// Read returns the content of the resource at key. The second return
// value reports whether the resource exists and was readable.
func (v *Vault) Read(key string) (string, bool) {
	path, err := v.resolve(key)
	if err != nil {
		slog.Debug("vault: rejecting read", "key", key, "err", err)
		return "", false
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return "", false
	}
	return string(b), true
}

// Write persists content under dir/name, creating dir if needed. The
// write goes through a temporary file and rename so readers never see a
// half-written resource.
func (v *Vault) Write(dir, name, content string) error {
	if strings.ContainsAny(name, "/\\") {
		return fmt.Errorf("vault: invalid resource name %q (contains path separator)", name)
	}
	path, err := v.resolve(dir + "/" + name)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("vault: create directory for %s: %w", path, err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(content), 0o600); err != nil {
		return fmt.Errorf("vault: write temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp) // best-effort cleanup
		return fmt.Errorf("vault: atomic rename %s: %w", path, err)
	}
	return nil
}

// List returns the sorted markdown resource names directly under dir.
// Dotfiles, subdirectories, and non-markdown files are skipped. A
// missing directory yields an empty list.
func (v *Vault) List(dir string) []string {
	path, err := v.resolve(dir)
	if err != nil {
		slog.Debug("vault: rejecting list", "dir", dir, "err", err)
		return nil
	}
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil
	}
	var names []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") || filepath.Ext(name) != ".md" {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Delete removes the resource at key. It returns false if the resource
// does not exist or could not be removed.
func (v *Vault) Delete(key string) bool {
	path, err := v.resolve(key)
	if err != nil {
		return false
	}
	if err := os.Remove(path); err != nil {
		return false
	}
	return true
}

// Move relocates a resource from one key to another, creating the
// destination directory if needed.
func (v *Vault) Move(fromKey, toKey string) bool {
	from, err := v.resolve(fromKey)
	if err != nil {
		return false
	}
	to, err := v.resolve(toKey)
	if err != nil {
		return false
	}
	if err := os.MkdirAll(filepath.Dir(to), 0o750); err != nil {
		return false
	}
	if err := os.Rename(from, to); err != nil {
		return false
	}
	return true
}

// SearchResult is one hit from a keyword search.
type SearchResult struct {
	Key     string
	Name    string
	Snippet string
}

// searchDirs is the default scope of a vault-wide search.
var searchDirs = []string{
	DirLogs, DirInsights, DirMemories, DirTasksActive, DirTasksDone, DirArchive,
}

// Search performs an all-token keyword match across the given
// directories (all managed directories when dirs is empty), returning
// up to limit results with a snippet around the first match.
func (v *Vault) Search(query string, dirs []string, limit int) []SearchResult {
	tokens := strings.Fields(strings.ToLower(query))
	if len(tokens) == 0 {
		return nil
	}
	if len(dirs) == 0 {
		dirs = searchDirs
	}
	if limit <= 0 {
		limit = 10
	}

	var results []SearchResult
	for _, dir := range dirs {
		for _, name := range v.List(dir) {
			key := dir + "/" + name
			content, ok := v.Read(key)
			if !ok {
				continue
			}
			lower := strings.ToLower(content)
			matched := true
			for _, tok := range tokens {
				if !strings.Contains(lower, tok) {
					matched = false
					break
				}
			}
			if !matched {
				continue
			}
			results = append(results, SearchResult{
				Key:     key,
				Name:    name,
				Snippet: snippet(content, tokens[0]),
			})
			if len(results) >= limit {
				return results
			}
		}
	}
	return results
}

// snippet extracts up to contextChars of text around the first
// occurrence of token, flattened to a single line.
func snippet(text, token string) string {
	const contextChars = 100
	idx := strings.Index(strings.ToLower(text), token)
	if idx == -1 {
		if len(text) > 200 {
			return text[:200]
		}
		return text
	}
	start := idx - contextChars
	if start < 0 {
		start = 0
	}
	end := idx + len(token) + contextChars
	if end > len(text) {
		end = len(text)
	}
	s := strings.TrimSpace(strings.ReplaceAll(text[start:end], "\n", " "))
	if start > 0 {
		s = "..." + s
	}
	if end < len(text) {
		s = s + "..."
	}
	return s
}
