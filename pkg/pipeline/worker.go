// Package pipeline runs the single consumer loop that drains the ingest
// queue, classifies each batch, persists entries to the daily journal,
// and dispatches classifier-declared side effects.
package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/vigil-dev/vigil/pkg/classify"
	"github.com/vigil-dev/vigil/pkg/ingest"
	"github.com/vigil-dev/vigil/pkg/journal"
	"github.com/vigil-dev/vigil/pkg/tasks"
	"github.com/vigil-dev/vigil/pkg/types"
)

// DefaultPollTimeout bounds each GetBatch wait so the loop can observe
// cancellation between batches.
const DefaultPollTimeout = 2 * time.Second

// Worker is the pipeline consumer. Exactly one Worker drains a given
// queue.
type Worker struct {
	queue      *ingest.Queue
	classifier *classify.Classifier
	journal    *journal.Journal
	tasks      *tasks.Store

	pollTimeout time.Duration
}

// NewWorker wires the pipeline stages together.
func NewWorker(q *ingest.Queue, c *classify.Classifier, j *journal.Journal, t *tasks.Store) *Worker {
	return &Worker{
		queue:       q,
		classifier:  c,
		journal:     j,
		tasks:       t,
		pollTimeout: DefaultPollTimeout,
	}
}

// Run drains the queue until ctx is cancelled. Each iteration blocks at
// most pollTimeout, which is the cooperative cancellation point.
func (w *Worker) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		batch := w.queue.GetBatch(w.pollTimeout)
		if len(batch) == 0 {
			continue
		}
		w.ProcessBatch(ctx, batch)
	}
}

// ProcessBatch classifies one batch and persists every item. Failures
// are per-item and best-effort: a failed journal write or side effect
// is logged and does not abort the rest of the batch.
func (w *Worker) ProcessBatch(ctx context.Context, batch []types.RawItem) []types.ClassifiedItem {
	// Best-effort snapshot; classification proceeds with an empty list
	// if the store is unreadable.
	openTasks := w.tasks.Summaries()

	classified := w.classifier.Batch(ctx, batch, openTasks)

	for _, item := range classified {
		if err := w.journal.Append(item.Text, item.Source, item.Category, item.Tags); err != nil {
			slog.Warn("pipeline: journal append failed", "source", item.Source, "err", err)
		}
		w.dispatchAction(item)
	}
	return classified
}

// dispatchAction performs the side effect an item's classification
// requested, if any.
func (w *Worker) dispatchAction(item types.ClassifiedItem) {
	if item.Action == nil {
		return
	}
	switch item.Action.Kind {
	case types.ActionNewTask:
		if item.Action.Detail == "" {
			return
		}
		id, err := w.tasks.Add(item.Action.Detail, "", "")
		if err != nil {
			slog.Warn("pipeline: task creation failed", "err", err)
			return
		}
		slog.Info("pipeline: task created from capture", "task", id, "source", item.Source)
	case types.ActionTaskProgress:
		if item.Action.RelatedTaskID == "" {
			return
		}
		if !w.tasks.RecordActivity(item.Action.RelatedTaskID, item.Source) {
			slog.Debug("pipeline: activity target not found", "task", item.Action.RelatedTaskID)
		}
	}
}
