package ingest

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vigil-dev/vigil/pkg/types"
)

func rawItem(text string, source types.Source) types.RawItem {
	return types.RawItem{Text: text, Source: source, Timestamp: time.Now()}
}

func TestPutDeduplicatesWithinWindow(t *testing.T) {
	q := NewQueue(WithDedupWindow(time.Minute))

	assert.True(t, q.Put(rawItem("wrote tests", types.SourceTerminal)))
	assert.False(t, q.Put(rawItem("wrote tests", types.SourceTerminal)))
	assert.Equal(t, 1, q.PendingCount())
}

func TestPutAcceptsAgainAfterWindow(t *testing.T) {
	q := NewQueue(WithDedupWindow(time.Minute))

	current := time.Now()
	q.now = func() time.Time { return current }

	assert.True(t, q.Put(rawItem("git status", types.SourceTerminal)))

	current = current.Add(2 * time.Minute)
	assert.True(t, q.Put(rawItem("git status", types.SourceTerminal)))
	assert.Equal(t, 2, q.PendingCount())
}

func TestPutDistinctTextsAllAccepted(t *testing.T) {
	q := NewQueue()
	for i := 0; i < 5; i++ {
		assert.True(t, q.Put(rawItem(fmt.Sprintf("item %d", i), types.SourceNote)))
	}
	assert.Equal(t, 5, q.PendingCount())
}

func TestSizeTriggerReleasesWithoutFlushWait(t *testing.T) {
	q := NewQueue(WithBatchSize(3), WithFlushInterval(time.Hour))

	for i := 0; i < 3; i++ {
		q.Put(rawItem(fmt.Sprintf("item %d", i), types.SourceNote))
	}

	start := time.Now()
	batch := q.GetBatch(5 * time.Second)
	assert.Less(t, time.Since(start), time.Second, "size trigger must not wait for the flush interval")
	assert.Len(t, batch, 3)
	assert.Equal(t, 0, q.PendingCount())
}

func TestSizeTriggerPendingBeforeGetBatch(t *testing.T) {
	// The trigger fires during Put; a later GetBatch must still see it.
	q := NewQueue(WithBatchSize(2), WithFlushInterval(time.Hour))
	q.Put(rawItem("a", types.SourceNote))
	q.Put(rawItem("b", types.SourceNote))

	start := time.Now()
	batch := q.GetBatch(5 * time.Second)
	assert.Less(t, time.Since(start), time.Second)
	assert.Len(t, batch, 2)
}

func TestTimeTriggerFlushesPartialBatch(t *testing.T) {
	q := NewQueue(WithBatchSize(100), WithFlushInterval(50*time.Millisecond))
	q.Put(rawItem("lonely item", types.SourceClipboard))

	batch := q.GetBatch(5 * time.Second)
	require.Len(t, batch, 1)
	assert.Equal(t, "lonely item", batch[0].Text)
}

func TestGetBatchTimeoutOnEmptyQueue(t *testing.T) {
	q := NewQueue(WithFlushInterval(10 * time.Millisecond))

	batch := q.GetBatch(50 * time.Millisecond)
	assert.Empty(t, batch)
}

func TestGetBatchDeadlineUsesInjectedClock(t *testing.T) {
	q := NewQueue(WithFlushInterval(5 * time.Millisecond))

	// Each clock read jumps 60ms, so the 150ms deadline passes after a
	// few iterations of real waiting instead of 150ms of wall time.
	base := time.Now()
	elapsed := time.Duration(0)
	q.now = func() time.Time {
		elapsed += 60 * time.Millisecond
		return base.Add(elapsed)
	}

	start := time.Now()
	batch := q.GetBatch(150 * time.Millisecond)
	assert.Empty(t, batch)
	assert.Less(t, time.Since(start), 100*time.Millisecond)
}

func TestZeroBatchSizeNeverSizeTriggers(t *testing.T) {
	q := NewQueue(WithBatchSize(0), WithFlushInterval(50*time.Millisecond))

	for i := 0; i < 20; i++ {
		q.Put(rawItem(fmt.Sprintf("item %d", i), types.SourceNote))
	}

	// Only the time trigger applies; items still come out.
	batch := q.GetBatch(time.Second)
	assert.Len(t, batch, 20)
}

func TestBatchPreservesSubmissionOrder(t *testing.T) {
	q := NewQueue(WithFlushInterval(20 * time.Millisecond))
	for i := 0; i < 8; i++ {
		q.Put(rawItem(fmt.Sprintf("item %d", i), types.SourceNote))
	}

	batch := q.GetBatch(time.Second)
	require.Len(t, batch, 8)
	for i, item := range batch {
		assert.Equal(t, fmt.Sprintf("item %d", i), item.Text)
	}
}

func TestConcurrentProducersSingleConsumer(t *testing.T) {
	q := NewQueue(WithBatchSize(25), WithFlushInterval(20*time.Millisecond))

	const producers = 8
	const perProducer = 50

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				q.Put(rawItem(fmt.Sprintf("p%d-i%d", p, i), types.SourceTerminal))
			}
		}(p)
	}

	done := make(chan struct{})
	var total int
	go func() {
		defer close(done)
		deadline := time.Now().Add(5 * time.Second)
		for total < producers*perProducer && time.Now().Before(deadline) {
			total += len(q.GetBatch(100 * time.Millisecond))
		}
	}()

	wg.Wait()
	<-done
	assert.Equal(t, producers*perProducer, total)
	assert.Equal(t, 0, q.PendingCount())
}
