// Package tasks manages task records in the vault: creation from
// classifier actions or the CLI, activity tracking, completion, and
// removal. Active tasks live under tasks/active, completed ones move to
// tasks/done.
package tasks

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vigil-dev/vigil/pkg/types"
	"github.com/vigil-dev/vigil/pkg/vault"
)

// Task is the parsed view of a task resource.
type Task struct {
	ID           string
	Text         string
	Due          string
	Label        string
	Created      string
	LastActivity string
	Key          string
}

// Store performs task operations against a vault.
type Store struct {
	vault *vault.Vault

	now func() time.Time // injected for testability
}

// NewStore creates a task store over v.
func NewStore(v *vault.Vault) *Store {
	return &Store{vault: v, now: time.Now}
}

// newTaskID returns a short unique task identifier.
func newTaskID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

// Add creates a new active task and returns its id. Due accepts
// "today", "tomorrow", or an ISO date; label is a free-form urgency
// label ("normal" when empty). New tasks carry P1 lifecycle.
func (s *Store) Add(text, due, label string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("tasks: empty task text")
	}
	if label == "" {
		label = "normal"
	}

	now := s.now()
	id := newTaskID()
	fields := vault.Fields{
		"id":             id,
		"created":        now.Format(time.RFC3339),
		"priority_label": label,
		"status":         "active",
	}
	if parsed := parseDue(due, now); parsed != "" {
		fields["due"] = parsed
	}
	fields = vault.AddLifecycle(fields, vault.PriorityP1, -1, now)

	content := vault.BuildFrontmatter(fields, text)
	if err := s.vault.Write(vault.DirTasksActive, id+".md", content); err != nil {
		return "", fmt.Errorf("tasks: add: %w", err)
	}
	return id, nil
}

// ListActive returns all active tasks. Unreadable or malformed
// resources are skipped.
func (s *Store) ListActive() []Task {
	var out []Task
	for _, name := range s.vault.List(vault.DirTasksActive) {
		key := vault.DirTasksActive + "/" + name
		content, ok := s.vault.Read(key)
		if !ok {
			continue
		}
		fields, body := vault.ParseFrontmatter(content)
		id := fields["id"]
		if id == "" {
			id = strings.TrimSuffix(name, ".md")
		}
		out = append(out, Task{
			ID:           id,
			Text:         body,
			Due:          fields["due"],
			Label:        fields["priority_label"],
			Created:      fields["created"],
			LastActivity: fields["last_activity"],
			Key:          key,
		})
	}
	return out
}

// Summaries returns the compact open-task view handed to the
// classifier.
func (s *Store) Summaries() []types.TaskSummary {
	tasks := s.ListActive()
	out := make([]types.TaskSummary, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, types.TaskSummary{ID: t.ID, Text: t.Text})
	}
	return out
}

// Complete moves the task matching idPrefix from active to done. It
// returns false if no active task matches.
func (s *Store) Complete(idPrefix string) bool {
	name, ok := s.findActive(idPrefix)
	if !ok {
		return false
	}
	from := vault.DirTasksActive + "/" + name
	content, ok := s.vault.Read(from)
	if !ok {
		return false
	}
	fields, body := vault.ParseFrontmatter(content)
	fields["status"] = "done"
	if err := s.vault.Write(vault.DirTasksDone, name, vault.BuildFrontmatter(fields, body)); err != nil {
		slog.Warn("tasks: complete write failed", "task", name, "err", err)
		return false
	}
	return s.vault.Delete(from)
}

// Remove deletes the task matching idPrefix from either directory.
func (s *Store) Remove(idPrefix string) bool {
	for _, dir := range []string{vault.DirTasksActive, vault.DirTasksDone} {
		for _, name := range s.vault.List(dir) {
			if strings.HasPrefix(name, idPrefix) {
				return s.vault.Delete(dir + "/" + name)
			}
		}
	}
	return false
}

// RecordActivity appends one activity occurrence for today to the
// active task matching idPrefix, attributing the source. It returns
// false if no active task matches.
func (s *Store) RecordActivity(idPrefix string, source types.Source) bool {
	name, ok := s.findActive(idPrefix)
	if !ok {
		return false
	}
	key := vault.DirTasksActive + "/" + name
	content, ok := s.vault.Read(key)
	if !ok {
		return false
	}

	fields, body := vault.ParseFrontmatter(content)
	fields = vault.AppendActivity(fields, s.now().Format(vault.DateFormat), string(source))

	if err := s.vault.Write(vault.DirTasksActive, name, vault.BuildFrontmatter(fields, body)); err != nil {
		slog.Warn("tasks: activity write failed", "task", name, "err", err)
		return false
	}
	return true
}

// findActive returns the first active task resource whose name starts
// with idPrefix.
func (s *Store) findActive(idPrefix string) (string, bool) {
	if idPrefix == "" {
		return "", false
	}
	for _, name := range s.vault.List(vault.DirTasksActive) {
		if strings.HasPrefix(name, idPrefix) {
			return name, true
		}
	}
	return "", false
}

// parseDue normalizes a human-friendly due string to an ISO date.
// Unparseable input is passed through as-is.
func parseDue(due string, now time.Time) string {
	due = strings.TrimSpace(due)
	if due == "" {
		return ""
	}
	switch strings.ToLower(due) {
	case "today":
		return now.Format(vault.DateFormat)
	case "tomorrow":
		return now.AddDate(0, 0, 1).Format(vault.DateFormat)
	}
	if d, err := time.Parse(vault.DateFormat, due); err == nil {
		return d.Format(vault.DateFormat)
	}
	return due
}
