package queue

import (
	"errors"
	"sync"
	"testing"
)

func TestSource_FIFO(t *testing.T) {
	s := NewSource[string]()

	tasks := []string{"first", "second", "third"}
	for _, task := range tasks {
		if err := s.Enqueue(task); err != nil {
			t.Fatalf("Enqueue failed: %v", err)
		}
	}

	if s.Len() != 3 {
		t.Errorf("expected len 3, got %d", s.Len())
	}

	// Pull and verify FIFO order
	for i, expected := range tasks {
		item, state := s.Pull()
		if state != PullOK {
			t.Fatalf("Pull %d: expected PullOK, got %v", i, state)
		}
		if item.Value != expected {
			t.Errorf("Pull %d: expected %q, got %q", i, expected, item.Value)
		}
		if item.ID == "" {
			t.Errorf("Pull %d: item should carry an ID", i)
		}
		if item.EnqueuedAt.IsZero() {
			t.Errorf("Pull %d: item should carry an enqueue time", i)
		}
	}

	if s.Len() != 0 {
		t.Errorf("source should be empty after pulling all, got len %d", s.Len())
	}
}

func TestSource_PullStates(t *testing.T) {
	s := NewSource[int]()

	// Empty but unsealed: a producer may still append
	_, state := s.Pull()
	if state != PullEmpty {
		t.Errorf("empty unsealed source: expected PullEmpty, got %v", state)
	}

	// Sealed with entries remaining: still deliverable
	s.Enqueue(1)
	s.Seal()

	item, state := s.Pull()
	if state != PullOK {
		t.Errorf("sealed source with entries: expected PullOK, got %v", state)
	}
	if item.Value != 1 {
		t.Errorf("expected value 1, got %d", item.Value)
	}

	// Sealed and empty: exhausted forever
	_, state = s.Pull()
	if state != PullDrained {
		t.Errorf("sealed empty source: expected PullDrained, got %v", state)
	}

	// Drained is sticky
	_, state = s.Pull()
	if state != PullDrained {
		t.Errorf("second pull on drained source: expected PullDrained, got %v", state)
	}
}

func TestSource_SealRejectsEnqueue(t *testing.T) {
	s := NewSource[string]()

	if err := s.Enqueue("before"); err != nil {
		t.Fatalf("Enqueue before seal failed: %v", err)
	}

	s.Seal()
	if !s.Sealed() {
		t.Error("Sealed should report true after Seal")
	}

	err := s.Enqueue("after")
	if !errors.Is(err, ErrSealed) {
		t.Errorf("expected ErrSealed, got %v", err)
	}

	// Entries enqueued before the seal are still deliverable
	if s.Len() != 1 {
		t.Errorf("expected len 1, got %d", s.Len())
	}

	// Sealing again is a no-op
	s.Seal()
	if s.Len() != 1 {
		t.Errorf("double seal changed len, got %d", s.Len())
	}
}

func TestSource_ConcurrentPullNoDuplicates(t *testing.T) {
	s := NewSource[int]()

	const numTasks = 500
	const numWorkers = 8

	for i := 0; i < numTasks; i++ {
		s.Enqueue(i)
	}
	s.Seal()

	// Each goroutine records the task values it pulled
	pulled := make([][]int, numWorkers)
	var wg sync.WaitGroup
	wg.Add(numWorkers)

	for w := 0; w < numWorkers; w++ {
		go func(w int) {
			defer wg.Done()
			for {
				item, state := s.Pull()
				if state == PullDrained {
					return
				}
				if state != PullOK {
					t.Errorf("sealed source reported %v", state)
					return
				}
				pulled[w] = append(pulled[w], item.Value)
			}
		}(w)
	}

	wg.Wait()

	// Every task delivered to exactly one goroutine
	seen := make(map[int]int)
	total := 0
	for _, values := range pulled {
		for _, v := range values {
			seen[v]++
			total++
		}
	}
	if total != numTasks {
		t.Errorf("expected %d pulls total, got %d", numTasks, total)
	}
	for v, count := range seen {
		if count != 1 {
			t.Errorf("task %d pulled %d times", v, count)
		}
	}
}

func TestSink_PushPollOrder(t *testing.T) {
	s := NewSink[string]()

	// Poll empty sink: non-blocking miss
	if _, ok := s.Poll(); ok {
		t.Error("Poll on empty sink should return false")
	}

	results := []string{"r1", "r2", "r3"}
	for _, r := range results {
		if err := s.Push(r); err != nil {
			t.Fatalf("Push failed: %v", err)
		}
	}

	for i, expected := range results {
		got, ok := s.Poll()
		if !ok {
			t.Fatalf("Poll %d returned not ok", i)
		}
		if got != expected {
			t.Errorf("Poll %d: expected %q, got %q", i, expected, got)
		}
	}

	if _, ok := s.Poll(); ok {
		t.Error("Poll on emptied sink should return false")
	}
}

func TestSink_CloseRejectsPushKeepsBuffered(t *testing.T) {
	s := NewSink[int]()

	s.Push(1)
	s.Push(2)
	s.Close()

	// Late push is rejected
	err := s.Push(3)
	if !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}

	// Results pushed before the close stay retrievable
	got, ok := s.Poll()
	if !ok || got != 1 {
		t.Errorf("expected buffered result 1, got %d ok=%v", got, ok)
	}

	remaining := s.Drain()
	if len(remaining) != 1 || remaining[0] != 2 {
		t.Errorf("expected drain [2], got %v", remaining)
	}

	// Close is idempotent
	s.Close()
	if err := s.Push(4); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed after second close, got %v", err)
	}
}

func TestSink_Drain(t *testing.T) {
	s := NewSink[int]()

	// Drain empty sink
	if got := s.Drain(); len(got) != 0 {
		t.Errorf("Drain on empty sink should return empty slice, got %v", got)
	}

	for i := 1; i <= 3; i++ {
		s.Push(i)
	}

	got := s.Drain()
	if len(got) != 3 {
		t.Fatalf("Drain should return 3 results, got %d", len(got))
	}
	for i, v := range got {
		if v != i+1 {
			t.Errorf("Drain[%d]: expected %d, got %d", i, i+1, v)
		}
	}

	if s.Len() != 0 {
		t.Errorf("sink should be empty after drain, got len %d", s.Len())
	}

	if got := s.Drain(); len(got) != 0 {
		t.Error("second drain should return empty slice")
	}
}

func TestSink_ConcurrentProducers(t *testing.T) {
	s := NewSink[int]()

	const numProducers = 8
	const perProducer = 100

	var wg sync.WaitGroup
	wg.Add(numProducers)

	for p := 0; p < numProducers; p++ {
		go func(p int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				// Stamp producer ID into the value for the multiset check
				_ = s.Push(p*perProducer + i)
			}
		}(p)
	}

	wg.Wait()

	// Single consumer drains everything exactly once
	seen := make(map[int]bool)
	for {
		v, ok := s.Poll()
		if !ok {
			break
		}
		if seen[v] {
			t.Errorf("result %d polled twice", v)
		}
		seen[v] = true
	}

	if len(seen) != numProducers*perProducer {
		t.Errorf("expected %d results, got %d", numProducers*perProducer, len(seen))
	}
}
