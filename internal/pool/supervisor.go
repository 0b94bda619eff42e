package pool

import (
	"sync"
	"time"

	"github.com/zjrosen/scatter/internal/worker"
)

// ExitRecord describes how a worker left the pool.
type ExitRecord struct {
	Reason worker.ExitReason
	Err    error
	At     time.Time
}

// supervisor tracks worker liveness explicitly. Workers report their exit
// through the pool's exit hook; forceful termination marks everything dead
// at once. Each worker is counted down exactly once, even when a goroutine
// that was marked dead later returns on its own.
type supervisor struct {
	mu     sync.Mutex
	live   map[string]bool
	exits  map[string]ExitRecord
	done   chan struct{}
	closed bool
}

func newSupervisor() *supervisor {
	return &supervisor{
		live:  make(map[string]bool),
		exits: make(map[string]ExitRecord),
		done:  make(chan struct{}),
	}
}

// spawned registers a worker as live.
func (s *supervisor) spawned(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.live[name] = true
}

// exited records a worker's exit. Duplicate reports for the same worker
// are ignored so a late-returning goroutine cannot double-decrement.
func (s *supervisor) exited(name string, reason worker.ExitReason, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, dup := s.exits[name]; dup {
		return
	}
	delete(s.live, name)
	s.exits[name] = ExitRecord{Reason: reason, Err: err, At: time.Now()}
	s.checkDoneLocked()
}

// markAllDead records an exit for every still-live worker. Used by
// forceful termination, where waiting on each goroutine is not an option.
func (s *supervisor) markAllDead(reason worker.ExitReason) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for name := range s.live {
		s.exits[name] = ExitRecord{Reason: reason, At: time.Now()}
		delete(s.live, name)
	}
	s.checkDoneLocked()
}

func (s *supervisor) checkDoneLocked() {
	if len(s.live) == 0 && !s.closed {
		s.closed = true
		close(s.done)
	}
}

// liveCount returns the number of workers not yet counted out.
func (s *supervisor) liveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.live)
}

// isLive reports whether one worker is spawned and not yet counted out.
func (s *supervisor) isLive(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.live[name]
}

// record returns the exit record for a worker, if it has exited.
func (s *supervisor) record(name string) (ExitRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.exits[name]
	return rec, ok
}

// doneCh is closed once the live count reaches zero.
func (s *supervisor) doneCh() <-chan struct{} {
	return s.done
}
