package pool

import (
	"context"
	"fmt"
	"sync"

	"github.com/zjrosen/scatter/internal/runner"
)

// Stats is a point-in-time snapshot of pool progress.
type Stats struct {
	RunID     string `json:"run_id"`
	Workers   int    `json:"workers"`
	Live      int    `json:"live"`
	Busy      int    `json:"busy"`
	Completed int    `json:"completed"`
	Pending   int    `json:"pending"`
	Buffered  int    `json:"buffered"`
}

// FormatSummary returns a one-line progress string for status displays,
// e.g. "3/4 workers live, 1 busy, 12 done, 3 pending".
func (s Stats) FormatSummary() string {
	return fmt.Sprintf("%d/%d workers live, %d busy, %d done, %d pending",
		s.Live, s.Workers, s.Busy, s.Completed, s.Pending)
}

// tracker accumulates per-worker completion counters. It is written from
// worker goroutines and read by controller snapshots.
type tracker struct {
	mu        sync.Mutex
	completed map[string]int
	busy      map[string]bool
}

func newTracker() *tracker {
	return &tracker{
		completed: make(map[string]int),
		busy:      make(map[string]bool),
	}
}

func (t *tracker) jobStarted(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.busy[name] = true
}

func (t *tracker) jobFinished(name string, ok bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.busy, name)
	if ok {
		t.completed[name]++
	}
}

func (t *tracker) completedFor(name string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.completed[name]
}

func (t *tracker) totalCompleted() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	total := 0
	for _, n := range t.completed {
		total += n
	}
	return total
}

func (t *tracker) busyCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.busy)
}

// instrumented wraps a Runner so every job feeds the tracker. The panic
// path still clears the busy flag; a panicking job counts nothing.
type instrumented[T, R any] struct {
	inner runner.Runner[T, R]
	name  string
	stats *tracker
}

func (r instrumented[T, R]) PreRun(ctx context.Context) error {
	return r.inner.PreRun(ctx)
}

func (r instrumented[T, R]) Job(ctx context.Context, task T) (R, error) {
	r.stats.jobStarted(r.name)
	ok := false
	defer func() { r.stats.jobFinished(r.name, ok) }()

	result, err := r.inner.Job(ctx, task)
	ok = err == nil
	return result, err
}
