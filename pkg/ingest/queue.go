// Package ingest provides the deduplicating, batching queue that sits
// between capture sources and the classification pipeline.
//
// Any number of producers may call Put concurrently; a single consumer
// drains the queue with GetBatch. A batch is released when either
// batchSize items have accumulated (size trigger) or flushInterval has
// elapsed with a non-empty buffer (time trigger), whichever comes first.
package ingest

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"github.com/vigil-dev/vigil/pkg/types"
)

const (
	DefaultBatchSize     = 10
	DefaultFlushInterval = 5 * time.Second
	DefaultDedupWindow   = 60 * time.Second
)

// Queue is a thread-safe batching queue with content deduplication.
// Items whose text hash was seen within dedupWindow are dropped.
type Queue struct {
	batchSize     int
	flushInterval time.Duration
	dedupWindow   time.Duration

	mu   sync.Mutex
	buf  []types.RawItem
	seen map[string]time.Time // text hash -> last seen

	// ready carries the size trigger; capacity 1 so a pending trigger
	// survives until the next GetBatch call.
	ready chan struct{}

	now func() time.Time // injected for testability
}

// Option configures a Queue.
type Option func(*Queue)

// WithBatchSize sets the item count that triggers an immediate batch
// release. Zero or negative disables the size trigger entirely; only
// the time trigger applies.
func WithBatchSize(n int) Option {
	return func(q *Queue) { q.batchSize = n }
}

// WithFlushInterval sets how long GetBatch waits before releasing a
// partial batch.
func WithFlushInterval(d time.Duration) Option {
	return func(q *Queue) { q.flushInterval = d }
}

// WithDedupWindow sets the rolling interval during which identical-text
// items are suppressed.
func WithDedupWindow(d time.Duration) Option {
	return func(q *Queue) { q.dedupWindow = d }
}

// NewQueue creates a Queue with the given options applied over defaults.
func NewQueue(opts ...Option) *Queue {
	q := &Queue{
		batchSize:     DefaultBatchSize,
		flushInterval: DefaultFlushInterval,
		dedupWindow:   DefaultDedupWindow,
		seen:          make(map[string]time.Time),
		ready:         make(chan struct{}, 1),
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// textHash returns a stable content hash for dedup purposes.
func textHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// Put offers an item to the queue. It returns false if an item with
// identical text was accepted within the dedup window. Put never blocks
// beyond its short critical section.
func (q *Queue) Put(item types.RawItem) bool {
	h := textHash(item.Text)
	now := q.now()

	q.mu.Lock()
	defer q.mu.Unlock()

	q.pruneSeen(now)

	if _, dup := q.seen[h]; dup {
		return false
	}
	q.seen[h] = now
	q.buf = append(q.buf, item)

	if q.batchSize > 0 && len(q.buf) >= q.batchSize {
		select {
		case q.ready <- struct{}{}:
		default:
		}
	}
	return true
}

// PendingCount returns a snapshot of the number of buffered items.
func (q *Queue) PendingCount() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.buf)
}

// GetBatch blocks until a batch is available or timeout expires and
// returns the buffered items, clearing the buffer atomically. It
// returns an empty slice if nothing accumulated before the timeout.
// GetBatch is intended for exactly one consumer.
func (q *Queue) GetBatch(timeout time.Duration) []types.RawItem {
	deadline := q.now().Add(timeout)

	for {
		remaining := deadline.Sub(q.now())
		if remaining <= 0 {
			break
		}
		wait := remaining
		if q.flushInterval < wait {
			wait = q.flushInterval
		}

		timer := time.NewTimer(wait)
		sized := false
		select {
		case <-q.ready:
			sized = true
		case <-timer.C:
		}
		timer.Stop()

		q.mu.Lock()
		if sized || len(q.buf) > 0 {
			batch := q.takeLocked()
			q.mu.Unlock()
			if len(batch) > 0 {
				return batch
			}
			continue
		}
		q.mu.Unlock()
		// Time trigger fired on an empty buffer; re-check against the
		// outer deadline.
	}

	// Final drain on timeout expiry.
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.takeLocked()
}

// takeLocked clears and returns the buffer and any pending size trigger.
// Callers must hold q.mu.
func (q *Queue) takeLocked() []types.RawItem {
	batch := q.buf
	q.buf = nil
	select {
	case <-q.ready:
	default:
	}
	return batch
}

// pruneSeen drops dedup entries older than the window. Called on every
// Put while holding q.mu; there is no separate pruning timer.
func (q *Queue) pruneSeen(now time.Time) {
	cutoff := now.Add(-q.dedupWindow)
	for h, ts := range q.seen {
		if ts.Before(cutoff) {
			delete(q.seen, h)
		}
	}
}
