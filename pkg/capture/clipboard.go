package capture

import (
	"context"
	"log/slog"
	"time"

	"github.com/atotto/clipboard"

	"github.com/vigil-dev/vigil/pkg/types"
)

const (
	// DefaultClipboardInterval is the poll period.
	DefaultClipboardInterval = 3 * time.Second

	// maxClipboardLen skips giant copies (file contents, images as
	// text) that are noise for classification.
	maxClipboardLen = 10000
)

// Clipboard polls the system clipboard and submits changed content.
type Clipboard struct {
	interval time.Duration

	readAll func() (string, error) // injected for testability
}

// NewClipboard creates a clipboard source polling at interval
// (DefaultClipboardInterval if zero or negative).
func NewClipboard(interval time.Duration) *Clipboard {
	if interval <= 0 {
		interval = DefaultClipboardInterval
	}
	return &Clipboard{interval: interval, readAll: clipboard.ReadAll}
}

func (c *Clipboard) Name() string { return "clipboard" }

// Run polls until ctx is cancelled. Only content different from the
// previous poll is submitted; identical re-copies within the dedup
// window are additionally suppressed by the queue.
func (c *Clipboard) Run(ctx context.Context, sink Sink) error {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	var last string
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		text, err := c.readAll()
		if err != nil {
			slog.Debug("capture: clipboard read failed", "err", err)
			continue
		}
		if text == "" || text == last || len(text) > maxClipboardLen {
			continue
		}
		last = text

		sink.Put(types.RawItem{
			Text:      text,
			Source:    types.SourceClipboard,
			Timestamp: time.Now(),
			Attributes: map[string]any{
				"length": len(text),
			},
		})
	}
}
