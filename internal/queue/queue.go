// Package queue provides the thread-safe FIFO queues that connect the pool
// controller to its workers: a Source that workers pull tasks from and a
// Sink that workers push results into.
package queue

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrSealed is returned when attempting to enqueue to a sealed source.
var ErrSealed = errors.New("source is sealed")

// ErrClosed is returned when attempting to push to a closed sink.
var ErrClosed = errors.New("sink is closed")

// PullState reports the outcome of a Source.Pull call. Emptiness check and
// removal happen under one lock, so there is no separate "is empty" query
// for a racing consumer to go stale on.
type PullState int

const (
	// PullOK means a task was removed from the source and delivered to
	// exactly this caller.
	PullOK PullState = iota
	// PullEmpty means the source has nothing right now but has not been
	// sealed; a producer may still append. Callers should back off and
	// retry.
	PullEmpty
	// PullDrained means the source is sealed and empty. No task will ever
	// arrive; consumers should stop.
	PullDrained
)

// String returns a human-readable name for the pull state.
func (s PullState) String() string {
	switch s {
	case PullOK:
		return "ok"
	case PullEmpty:
		return "empty"
	case PullDrained:
		return "drained"
	default:
		return "unknown"
	}
}

// Item wraps a task value with the bookkeeping the pool needs to trace it.
type Item[T any] struct {
	ID         string    // Unique task identifier
	Value      T         // Caller-owned task parameters
	EnqueuedAt time.Time // When the task entered the source
}

// Source is a thread-safe FIFO of pending tasks with any number of
// competing consumers. A task is delivered to exactly one consumer.
type Source[T any] struct {
	entries []Item[T]
	mu      sync.Mutex
	sealed  bool
}

// NewSource creates an empty, unsealed Source.
func NewSource[T any]() *Source[T] {
	return &Source[T]{
		entries: make([]Item[T], 0),
	}
}

// Enqueue wraps the value in an Item and appends it to the back of the
// source. Returns ErrSealed if the source has been sealed.
func (s *Source[T]) Enqueue(value T) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sealed {
		return ErrSealed
	}

	s.entries = append(s.entries, Item[T]{
		ID:         uuid.NewString(),
		Value:      value,
		EnqueuedAt: time.Now(),
	})
	return nil
}

// Pull atomically removes and returns the item at the front of the source.
// The second return value distinguishes a momentarily empty source
// (PullEmpty, producer may still append) from one that is sealed and
// exhausted (PullDrained).
func (s *Source[T]) Pull() (Item[T], PullState) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.entries) == 0 {
		if s.sealed {
			return Item[T]{}, PullDrained
		}
		return Item[T]{}, PullEmpty
	}

	item := s.entries[0]
	s.entries = s.entries[1:]
	return item, PullOK
}

// Seal marks the end of production. Once the remaining entries are pulled,
// Pull reports PullDrained. Sealing an already sealed source is a no-op.
func (s *Source[T]) Seal() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sealed = true
}

// Sealed reports whether Seal has been called.
func (s *Source[T]) Sealed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.sealed
}

// Len returns the current number of pending tasks.
func (s *Source[T]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.entries)
}

// Sink is a thread-safe FIFO of results with any number of producers and a
// single consumer polling it.
type Sink[R any] struct {
	entries []R
	mu      sync.Mutex
	closed  bool
}

// NewSink creates an empty, open Sink.
func NewSink[R any]() *Sink[R] {
	return &Sink[R]{
		entries: make([]R, 0),
	}
}

// Push appends a result to the back of the sink. Returns ErrClosed if the
// sink has been closed; results buffered before the close stay retrievable.
func (s *Sink[R]) Push(result R) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}

	s.entries = append(s.entries, result)
	return nil
}

// Poll removes and returns the result at the front of the sink without
// blocking. Returns (zero value, false) if the sink is empty.
func (s *Sink[R]) Poll() (R, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.entries) == 0 {
		var zero R
		return zero, false
	}

	result := s.entries[0]
	s.entries = s.entries[1:]
	return result, true
}

// Drain removes and returns all buffered results, leaving the sink empty.
// Returns an empty slice if the sink was already empty.
func (s *Sink[R]) Drain() []R {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.entries) == 0 {
		return []R{}
	}

	result := s.entries
	s.entries = make([]R, 0)
	return result
}

// Close rejects further pushes. Workers stopped forcefully may still attempt
// a late push; the sentinel lets them discard the result instead of racing
// the final drain. Close is idempotent.
func (s *Sink[R]) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
}

// Len returns the current number of buffered results.
func (s *Sink[R]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.entries)
}
