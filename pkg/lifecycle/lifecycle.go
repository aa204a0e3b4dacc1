// Package lifecycle implements priority tagging, expiry scanning, and
// archival of vault resources. Every resource carries P0/P1/P2 priority
// frontmatter; P1 and P2 resources expire after their TTL and are moved
// into the archive directory by a periodic janitor.
package lifecycle

import (
	"log/slog"
	"strings"
	"time"

	"github.com/vigil-dev/vigil/pkg/vault"
)

// ScanDirs are the directory families the janitor sweeps for expired
// resources. The archive itself is never scanned.
var ScanDirs = []string{
	vault.DirLogs,
	vault.DirInsights,
	vault.DirTasksActive,
	vault.DirTasksDone,
}

// ExpiredRef identifies one expired resource found by a scan.
type ExpiredRef struct {
	Key      string
	Name     string
	Priority vault.Priority
	Expire   string
}

// Manager performs lifecycle operations against a single vault.
type Manager struct {
	vault *vault.Vault

	now func() time.Time // injected for testability
}

// NewManager creates a lifecycle manager over v.
func NewManager(v *vault.Vault) *Manager {
	return &Manager{vault: v, now: time.Now}
}

// Tag reads the resource at key, merges in priority and expire
// frontmatter (ttlDays < 0 selects the priority's default TTL), and
// rewrites the resource in place. It returns false specifically when
// the resource does not exist.
func (m *Manager) Tag(key string, priority vault.Priority, ttlDays int) bool {
	content, ok := m.vault.Read(key)
	if !ok {
		return false
	}

	fields, body := vault.ParseFrontmatter(content)
	fields = vault.AddLifecycle(fields, priority, ttlDays, m.now())

	dir, name, ok := splitKey(key)
	if !ok {
		return false
	}
	if err := m.vault.Write(dir, name, vault.BuildFrontmatter(fields, body)); err != nil {
		slog.Warn("lifecycle: tag rewrite failed", "key", key, "err", err)
		return false
	}
	return true
}

// ScanExpired walks every resource in the given directories and returns
// those past their expire date. Unreadable or non-parseable resources
// are skipped, never errored.
func (m *Manager) ScanExpired(dirs ...string) []ExpiredRef {
	today := m.now()
	var expired []ExpiredRef
	for _, dir := range dirs {
		for _, name := range m.vault.List(dir) {
			key := dir + "/" + name
			content, ok := m.vault.Read(key)
			if !ok {
				continue
			}
			fields, _ := vault.ParseFrontmatter(content)
			if !vault.IsExpired(fields, today) {
				continue
			}
			expired = append(expired, ExpiredRef{
				Key:      key,
				Name:     name,
				Priority: vault.Priority(fields["priority"]),
				Expire:   fields["expire"],
			})
		}
	}
	return expired
}

// Archive moves the resource at key into the archive directory under a
// name that encodes its original directory, so archived resources from
// different families cannot collide. Content is preserved verbatim.
// The copy is written before the original is deleted; a crash between
// the two steps duplicates the resource rather than losing it.
func (m *Manager) Archive(key string) bool {
	content, ok := m.vault.Read(key)
	if !ok {
		return false
	}

	// logs/2026-08-29.md -> logs_2026-08-29.md
	archiveName := strings.ReplaceAll(key, "/", "_")

	if err := m.vault.Write(vault.DirArchive, archiveName, content); err != nil {
		slog.Warn("lifecycle: archive write failed", "key", key, "err", err)
		return false
	}
	if !m.vault.Delete(key) {
		slog.Warn("lifecycle: archived but could not delete original", "key", key)
		return false
	}
	return true
}

func splitKey(key string) (dir, name string, ok bool) {
	idx := strings.LastIndex(key, "/")
	if idx <= 0 || idx == len(key)-1 {
		return "", "", false
	}
	return key[:idx], key[idx+1:], true
}
