// Package journal maintains the per-day activity log: one markdown
// resource per calendar day holding timestamped entries appended by the
// pipeline worker.
package journal

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/vigil-dev/vigil/pkg/types"
	"github.com/vigil-dev/vigil/pkg/vault"
)

// Journal appends entries to the current day's log. Today's body is
// cached in memory under a mutex so appends do not re-read the file;
// the cache is seeded from disk on the first touch of each day.
type Journal struct {
	vault *vault.Vault

	mu          sync.Mutex
	cacheDate   string
	cacheBody   string
	cacheFields vault.Fields

	now func() time.Time // injected for testability
}

// New creates a Journal over v.
func New(v *vault.Vault) *Journal {
	return &Journal{vault: v, now: time.Now}
}

// Append writes one timestamped entry to today's log, creating the
// day's resource with default P2 lifecycle frontmatter if absent.
func (j *Journal) Append(text string, source types.Source, category string, tags []string) error {
	now := j.now()
	today := now.Format(vault.DateFormat)
	entry := formatEntry(now, source, category, tags, text)

	j.mu.Lock()
	defer j.mu.Unlock()

	j.seedLocked(today)

	if j.cacheBody != "" {
		j.cacheBody += "\n" + entry
	} else {
		j.cacheBody = entry
	}

	content := vault.BuildFrontmatter(j.cacheFields, j.cacheBody)
	if err := j.vault.Write(vault.DirLogs, today+".md", content); err != nil {
		return fmt.Errorf("journal: append to %s: %w", today, err)
	}
	return nil
}

// Read returns the raw log resource for a given day.
func (j *Journal) Read(day time.Time) (string, bool) {
	return j.vault.Read(vault.DirLogs + "/" + day.Format(vault.DateFormat) + ".md")
}

// seedLocked loads today's log into the cache on first access, or
// initializes a fresh one with P2 lifecycle fields. Callers must hold
// j.mu.
func (j *Journal) seedLocked(today string) {
	if j.cacheDate == today {
		return
	}

	if content, ok := j.vault.Read(vault.DirLogs + "/" + today + ".md"); ok {
		fields, body := vault.ParseFrontmatter(content)
		j.cacheDate = today
		j.cacheFields = fields
		j.cacheBody = body
		return
	}

	day, _ := time.Parse(vault.DateFormat, today)
	j.cacheDate = today
	j.cacheFields = vault.AddLifecycle(vault.Fields{"date": today}, vault.PriorityP2, -1, day)
	j.cacheBody = ""
}

// formatEntry renders one log line: [HH:MM] (source) [category] text #tags
func formatEntry(now time.Time, source types.Source, category string, tags []string, text string) string {
	var sb strings.Builder
	sb.WriteString("[")
	sb.WriteString(now.Format("15:04"))
	sb.WriteString("] (")
	sb.WriteString(string(source))
	sb.WriteString(")")
	if category != "" {
		sb.WriteString(" [")
		sb.WriteString(category)
		sb.WriteString("]")
	}
	sb.WriteString(" ")
	sb.WriteString(text)
	for _, tag := range tags {
		sb.WriteString(" #")
		sb.WriteString(tag)
	}
	return sb.String()
}
