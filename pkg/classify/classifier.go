// Package classify turns batches of raw captured items into categorized
// items. It calls an LLM oracle for semantic enrichment and falls back
// to a deterministic source-based rule when the oracle is unavailable
// or returns output it cannot trust.
package classify

import (
	"context"
	"encoding/json"
	"log/slog"
	"regexp"
	"strings"

	"github.com/vigil-dev/vigil/pkg/llm"
	"github.com/vigil-dev/vigil/pkg/types"
)

// ValidCategories is the closed set of categories a classified item may
// carry. Anything else from the oracle is replaced by the source-based
// default.
var ValidCategories = map[string]bool{
	"coding":        true,
	"work":          true,
	"learning":      true,
	"communication": true,
	"browsing":      true,
	"life":          true,
}

// sourceCategory maps capture sources to their fallback category.
var sourceCategory = map[types.Source]string{
	types.SourceTerminal:    "coding",
	types.SourceBrowser:     "browsing",
	types.SourceClaudeCode:  "coding",
	types.SourceInputMethod: "communication",
}

const (
	defaultCategory   = "work"
	neutralImportance = 3

	systemPrompt = "You are a classification engine for a personal activity memory agent. " +
		"Classify each item into exactly one category and return structured JSON."
)

// Classifier classifies batches of raw items. A nil oracle means every
// batch takes the fallback path.
type Classifier struct {
	oracle          llm.Provider
	itemTokenBudget int
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithItemTokenBudget caps how many tokens of each item's text are sent
// to the oracle. Zero or negative disables truncation.
func WithItemTokenBudget(n int) Option {
	return func(c *Classifier) { c.itemTokenBudget = n }
}

// New creates a Classifier backed by oracle, which may be nil to run
// fallback-only.
func New(oracle llm.Provider, opts ...Option) *Classifier {
	c := &Classifier{
		oracle:          oracle,
		itemTokenBudget: defaultItemTokenBudget,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// oracleEntry is one element of the JSON array the oracle is asked to
// return. Importance is a pointer so a missing field is distinguishable
// from zero and can default to the neutral value.
type oracleEntry struct {
	Category      string   `json:"category"`
	Tags          []string `json:"tags"`
	Importance    *int     `json:"importance"`
	Summary       string   `json:"summary"`
	ActionType    string   `json:"action_type"`
	ActionDetail  string   `json:"action_detail"`
	RelatedTaskID string   `json:"related_task_id"`
}

// Batch classifies items, always returning exactly len(items) results
// in input order. When the oracle is unreachable, returns malformed
// JSON, or returns an array of the wrong length, the entire batch is
// classified by the deterministic fallback; partial oracle output is
// never trusted.
func (c *Classifier) Batch(ctx context.Context, items []types.RawItem, openTasks []types.TaskSummary) []types.ClassifiedItem {
	if len(items) == 0 {
		return nil
	}

	entries := c.consultOracle(ctx, items, openTasks)

	out := make([]types.ClassifiedItem, 0, len(items))
	for i, item := range items {
		if entries != nil {
			out = append(out, merge(item, entries[i]))
		} else {
			out = append(out, Fallback(item))
		}
	}
	return out
}

// consultOracle runs the full request/parse path and returns nil when
// the batch cannot be trusted.
func (c *Classifier) consultOracle(ctx context.Context, items []types.RawItem, openTasks []types.TaskSummary) []oracleEntry {
	if c.oracle == nil {
		return nil
	}
	raw, err := c.oracle.Complete(ctx, systemPrompt, c.buildPrompt(items, openTasks))
	if err != nil {
		slog.Warn("classify: oracle unavailable, falling back", "err", err, "items", len(items))
		return nil
	}
	entries, ok := parseResponse(raw, len(items))
	if !ok {
		slog.Warn("classify: oracle response rejected, falling back", "items", len(items))
		return nil
	}
	return entries
}

// merge validates one oracle entry against item and produces the final
// classified item.
func merge(item types.RawItem, entry oracleEntry) types.ClassifiedItem {
	category := entry.Category
	if !ValidCategories[category] {
		category = fallbackCategory(item.Source)
	}
	importance := neutralImportance
	if entry.Importance != nil {
		importance = *entry.Importance
	}

	var action *types.Action
	switch types.ActionKind(entry.ActionType) {
	case types.ActionNewTask, types.ActionTaskProgress:
		action = &types.Action{
			Kind:          types.ActionKind(entry.ActionType),
			Detail:        entry.ActionDetail,
			RelatedTaskID: entry.RelatedTaskID,
		}
	}

	return types.ClassifiedItem{
		RawItem:    item,
		Category:   category,
		Tags:       entry.Tags,
		Importance: importance,
		Summary:    entry.Summary,
		Action:     action,
	}
}

// Fallback classifies a single item by its source alone. It is a pure
// function: no I/O, deterministic, always available.
func Fallback(item types.RawItem) types.ClassifiedItem {
	return types.ClassifiedItem{
		RawItem:    item,
		Category:   fallbackCategory(item.Source),
		Tags:       nil,
		Importance: neutralImportance,
		Summary:    "",
		Action:     nil,
	}
}

func fallbackCategory(source types.Source) string {
	if cat, ok := sourceCategory[source]; ok {
		return cat
	}
	return defaultCategory
}

// fenceRE strips a markdown code fence (```json ... ```) wrapper.
var fenceRE = regexp.MustCompile("(?s)```(?:json)?\\s*\\n?(.*?)\\n?\\s*```")

// parseResponse decodes the oracle response into exactly count entries.
// The second return value is false on any parse failure or length
// mismatch; callers must then fall back for the whole batch.
func parseResponse(raw string, count int) ([]oracleEntry, bool) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return nil, false
	}
	if m := fenceRE.FindStringSubmatch(text); m != nil {
		text = strings.TrimSpace(m[1])
	}

	var entries []oracleEntry
	if err := json.Unmarshal([]byte(text), &entries); err != nil {
		return nil, false
	}
	if len(entries) != count {
		return nil, false
	}
	return entries, true
}
