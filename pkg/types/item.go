// Package types defines the capture item model shared by the ingest
// queue, the classifier, and the pipeline worker.
package types

import "time"

// Source identifies where a captured fragment came from.
type Source string

const (
	SourceNote        Source = "note"
	SourceClipboard   Source = "clipboard"
	SourceTerminal    Source = "terminal"
	SourceBrowser     Source = "browser"
	SourceFile        Source = "file"
	SourceInputMethod Source = "input-method"
	SourceClaudeCode  Source = "claude-code"
)

// ActionKind is the side effect a classified item asks the pipeline to perform.
type ActionKind string

const (
	ActionNewTask      ActionKind = "new_task"
	ActionTaskProgress ActionKind = "task_progress"
)

// RawItem is an unclassified fragment of user activity. It is immutable
// once created; producers hand it to the ingest queue and never touch it
// again.
type RawItem struct {
	Text       string
	Source     Source
	Timestamp  time.Time
	Attributes map[string]any
}

// Action describes a follow-up the classifier requested for an item.
type Action struct {
	Kind          ActionKind
	Detail        string
	RelatedTaskID string
}

// ClassifiedItem is a RawItem enriched by the classifier. Produced only
// by classify.Batch and never mutated afterward.
type ClassifiedItem struct {
	RawItem

	Category   string
	Tags       []string
	Importance int
	Summary    string
	Action     *Action
}

// TaskSummary is the compact view of an open task handed to the
// classifier so it can relate items to existing work.
type TaskSummary struct {
	ID   string
	Text string
}
