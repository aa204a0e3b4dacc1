package lifecycle

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// DefaultSweepInterval is how often the janitor runs when idle.
const DefaultSweepInterval = time.Hour

// SweepResult summarizes one janitor pass. Archived counts successes
// only; a resource that fails to archive stays in place for the next
// pass.
type SweepResult struct {
	Scanned   int
	Archived  int
	Timestamp time.Time
}

// Stats is a snapshot of janitor state for status surfaces.
type Stats struct {
	LastRun       time.Time
	LastArchived  int
	TotalArchived int
	Running       bool
}

// Janitor periodically sweeps the managed directories and archives
// expired resources. Manual sweeps via RunOnce share the same code path
// as the timer loop.
type Janitor struct {
	manager  *Manager
	interval time.Duration

	mu    sync.Mutex
	stats Stats
}

// NewJanitor creates a janitor over m sweeping every interval
// (DefaultSweepInterval if interval is zero or negative).
func NewJanitor(m *Manager, interval time.Duration) *Janitor {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	return &Janitor{manager: m, interval: interval}
}

// RunOnce performs a single sweep: scan every managed directory, then
// archive each expired resource. One failed archive does not stop the
// rest of the sweep.
func (j *Janitor) RunOnce() SweepResult {
	expired := j.manager.ScanExpired(ScanDirs...)

	archived := 0
	for _, ref := range expired {
		if j.manager.Archive(ref.Key) {
			archived++
		}
	}

	result := SweepResult{
		Scanned:   len(expired),
		Archived:  archived,
		Timestamp: j.manager.now(),
	}

	j.mu.Lock()
	j.stats.LastRun = result.Timestamp
	j.stats.LastArchived = archived
	j.stats.TotalArchived += archived
	j.mu.Unlock()

	if archived > 0 {
		slog.Info("lifecycle: sweep archived expired resources", "scanned", result.Scanned, "archived", archived)
	}
	return result
}

// Run drives periodic sweeps until ctx is cancelled. The wait between
// passes is bounded by the sweep interval, so shutdown completes within
// one tick.
func (j *Janitor) Run(ctx context.Context) {
	j.setRunning(true)
	defer j.setRunning(false)

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			j.RunOnce()
		}
	}
}

// Stats returns a snapshot of the janitor's counters.
func (j *Janitor) Stats() Stats {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.stats
}

func (j *Janitor) setRunning(running bool) {
	j.mu.Lock()
	j.stats.Running = running
	j.mu.Unlock()
}
