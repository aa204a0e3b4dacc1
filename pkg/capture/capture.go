// Package capture hosts the in-process capture sources that feed the
// ingest queue: a clipboard poller and a filesystem watcher. Each
// source is a long-lived background loop producing RawItems; dedup and
// batching are the queue's job, not the source's.
package capture

import (
	"context"
	"log/slog"
	"sync"

	"github.com/vigil-dev/vigil/pkg/types"
)

// Sink accepts captured items. *ingest.Queue satisfies it.
type Sink interface {
	Put(item types.RawItem) bool
}

// Source is a background producer of raw items.
type Source interface {
	// Name identifies the source in logs.
	Name() string

	// Run produces items into sink until ctx is cancelled. It returns
	// only on cancellation or an unrecoverable setup failure.
	Run(ctx context.Context, sink Sink) error
}

// RunAll starts every source on its own goroutine and blocks until all
// have returned. A source failing does not stop its siblings.
func RunAll(ctx context.Context, sink Sink, sources ...Source) {
	var wg sync.WaitGroup
	for _, src := range sources {
		wg.Add(1)
		go func(src Source) {
			defer wg.Done()
			if err := src.Run(ctx, sink); err != nil {
				slog.Warn("capture: source stopped", "source", src.Name(), "err", err)
			}
		}(src)
	}
	wg.Wait()
}
