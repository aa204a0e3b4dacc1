package classify

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"

	"github.com/vigil-dev/vigil/pkg/types"
)

// defaultItemTokenBudget caps each item's text in the oracle prompt.
// Clipboard and file captures can be arbitrarily large; the classifier
// only needs enough to categorize.
const defaultItemTokenBudget = 200

const promptEncoding = "cl100k_base"

var (
	encOnce sync.Once
	enc     *tiktoken.Tiktoken
)

// encoder returns the shared token encoder, or nil if it could not be
// initialized (e.g. no cached BPE data); truncation then degrades to a
// character cut.
func encoder() *tiktoken.Tiktoken {
	encOnce.Do(func() {
		var err error
		enc, err = tiktoken.GetEncoding(promptEncoding)
		if err != nil {
			slog.Warn("classify: token encoder unavailable, using character truncation", "err", err)
		}
	})
	return enc
}

// truncate limits text to budget tokens, approximating with a 4-chars
// per token cut when no encoder is available.
func truncate(text string, budget int) string {
	if budget <= 0 {
		return text
	}
	if e := encoder(); e != nil {
		tokens := e.Encode(text, nil, nil)
		if len(tokens) <= budget {
			return text
		}
		return e.Decode(tokens[:budget])
	}
	if limit := budget * 4; len(text) > limit {
		return text[:limit]
	}
	return text
}

// buildPrompt renders the single batch request sent to the oracle: the
// category contract, the open-task context, and one numbered line per
// item.
func (c *Classifier) buildPrompt(items []types.RawItem, openTasks []types.TaskSummary) string {
	categories := make([]string, 0, len(ValidCategories))
	for cat := range ValidCategories {
		categories = append(categories, cat)
	}
	sort.Strings(categories)

	var sb strings.Builder
	sb.WriteString("Classify each of the following items. For every item return a JSON object with:\n")
	sb.WriteString(fmt.Sprintf("- \"category\": one of %s\n", strings.Join(categories, ", ")))
	sb.WriteString("- \"tags\": list of short keyword strings\n")
	sb.WriteString("- \"importance\": integer 1-5 (1=trivial, 5=critical)\n")
	sb.WriteString("- \"summary\": one-sentence summary\n")
	sb.WriteString("- \"action_type\": null, \"new_task\", or \"task_progress\"\n")
	sb.WriteString("- \"action_detail\": string or null - description of the action if action_type is set\n")
	sb.WriteString("- \"related_task_id\": string or null - ID of an existing task if this progresses one\n\n")
	sb.WriteString(fmt.Sprintf("Return a JSON array with exactly %d objects (one per item, same order).\n", len(items)))
	sb.WriteString("Do NOT wrap the output in markdown fences.\n\n")

	if len(openTasks) > 0 {
		sb.WriteString("Open tasks:\n")
		for _, task := range openTasks {
			sb.WriteString(fmt.Sprintf("  - [%s] %s\n", task.ID, task.Text))
		}
	} else {
		sb.WriteString("No open tasks.\n")
	}

	sb.WriteString("\nItems:\n")
	for i, item := range items {
		sb.WriteString(fmt.Sprintf("%d. [%s] %s\n", i+1, item.Source, truncate(item.Text, c.itemTokenBudget)))
	}
	return sb.String()
}
