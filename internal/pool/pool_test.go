package pool

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/zjrosen/scatter/internal/queue"
	"github.com/zjrosen/scatter/internal/runner"
	"github.com/zjrosen/scatter/internal/worker"
)

const (
	testPoll = 2 * time.Millisecond
	waitFor  = 2 * time.Second
	tick     = time.Millisecond
)

var squareRunner = runner.Funcs[int, int]{
	JobFunc: func(_ context.Context, task int) (int, error) {
		return task * task, nil
	},
}

// newSquarePool builds a pool of n workers over the given sealed tasks.
func newSquarePool(t *testing.T, n int, tasks ...int) *Pool[int, int] {
	t.Helper()
	src := queue.NewSource[int]()
	for _, task := range tasks {
		require.NoError(t, src.Enqueue(task))
	}
	src.Seal()

	p, err := New(Config[int, int]{
		Runner:       squareRunner,
		Source:       src,
		Workers:      n,
		PollInterval: testPoll,
	})
	require.NoError(t, err)
	return p
}

func infoFor(t *testing.T, p *Pool[int, int], name string) WorkerInfo {
	t.Helper()
	for _, info := range p.List() {
		if info.Name == name {
			return info
		}
	}
	t.Fatalf("worker %s not in listing", name)
	return WorkerInfo{}
}

// === Unit Tests: Construction ===

func TestNew_RequiresRunnerAndSource(t *testing.T) {
	src := queue.NewSource[int]()

	_, err := New(Config[int, int]{Source: src})
	require.Error(t, err)
	require.Contains(t, err.Error(), "runner required")

	_, err = New(Config[int, int]{Runner: squareRunner})
	require.Error(t, err)
	require.Contains(t, err.Error(), "source required")
}

func TestNew_Defaults(t *testing.T) {
	p, err := New(Config[int, int]{
		Runner: squareRunner,
		Source: queue.NewSource[int](),
	})
	require.NoError(t, err)

	require.NotNil(t, p.Sink(), "sink should be created when not provided")
	require.NotEmpty(t, p.RunID())

	infos := p.List()
	require.Len(t, infos, DefaultWorkers)
	require.Equal(t, "w1", infos[0].Name)
	require.Equal(t, "w4", infos[3].Name)
	for _, info := range infos {
		require.Equal(t, worker.StateRunning, info.State)
		require.False(t, info.Live, "nothing is live before Run")
	}
}

func TestPool_RunTwiceFails(t *testing.T) {
	p := newSquarePool(t, 1)

	require.NoError(t, p.Run(context.Background()))
	require.ErrorIs(t, p.Run(context.Background()), ErrAlreadyStarted)

	p.Wait()
	p.Close()
}

// === Unit Tests: Draining ===

func TestPool_TwoWorkersSquareFiveTasks(t *testing.T) {
	p := newSquarePool(t, 2, 1, 2, 3, 4, 5)

	require.NoError(t, p.Run(context.Background()))
	p.Wait()

	require.ElementsMatch(t, []int{1, 4, 9, 16, 25}, p.Sink().Drain(),
		"every task squared exactly once, interleaving aside")
	require.Equal(t, 0, p.Live())

	for _, info := range p.List() {
		require.Equal(t, worker.StateTerminated, info.State)
		require.Equal(t, worker.ExitDrained, info.ExitReason)
		require.False(t, info.Live)
		require.NoError(t, info.Err)
	}

	select {
	case <-p.Done():
	default:
		t.Fatal("done should be closed after all workers drain")
	}

	p.Close()
}

func TestPool_NoDuplicateConsumption(t *testing.T) {
	tasks := make([]int, 100)
	expected := make([]int, 100)
	for i := range tasks {
		tasks[i] = i
		expected[i] = i * i
	}
	p := newSquarePool(t, 4, tasks...)

	require.NoError(t, p.Run(context.Background()))
	p.Wait()

	require.ElementsMatch(t, expected, p.Sink().Drain(),
		"each task consumed by exactly one worker")
	p.Close()
}

func TestPool_PerWorkerCompletionsSumToTotal(t *testing.T) {
	p := newSquarePool(t, 3, 1, 2, 3, 4, 5, 6, 7)

	require.NoError(t, p.Run(context.Background()))
	p.Wait()

	total := 0
	for _, info := range p.List() {
		total += info.Completed
	}
	require.Equal(t, 7, total)
	p.Close()
}

// === Unit Tests: Cooperative Quit ===

func TestPool_QuitEndsIdleWorkers(t *testing.T) {
	src := queue.NewSource[int]() // open: workers idle-poll
	p, err := New(Config[int, int]{
		Runner:       squareRunner,
		Source:       src,
		Workers:      2,
		PollInterval: testPoll,
	})
	require.NoError(t, err)
	require.NoError(t, p.Run(context.Background()))

	reached := p.Quit()
	require.Equal(t, 2, reached)

	p.Wait()
	require.Equal(t, 0, p.Live())
	for _, info := range p.List() {
		require.Equal(t, worker.ExitEnded, info.ExitReason)
	}
	p.Close()
}

func TestPool_QuitLeavesUnpulledTasks(t *testing.T) {
	src := queue.NewSource[int]()
	p, err := New(Config[int, int]{
		Runner:        squareRunner,
		Source:        src,
		Workers:       2,
		PollInterval:  testPoll,
		PausedBackoff: 3 * testPoll,
	})
	require.NoError(t, err)
	require.NoError(t, p.Run(context.Background()))

	// Pause both workers, then enqueue work they must not touch
	require.NoError(t, p.Disable("w1"))
	require.NoError(t, p.Disable("w2"))
	require.Eventually(t, func() bool {
		return infoFor(t, p, "w1").State == worker.StatePaused &&
			infoFor(t, p, "w2").State == worker.StatePaused
	}, waitFor, tick)

	for _, task := range []int{10, 11, 12} {
		require.NoError(t, src.Enqueue(task))
	}

	p.Quit()
	p.Wait()

	require.Equal(t, 3, src.Len(), "ending is not draining: unpulled tasks remain")
	require.Equal(t, 0, p.Sink().Len())
	p.Close()
}

// === Unit Tests: Forceful Terminate ===

func TestPool_TerminateForcefully(t *testing.T) {
	src := queue.NewSource[int]() // stays open; workers idle after the batch
	require.NoError(t, src.Enqueue(2))
	require.NoError(t, src.Enqueue(3))

	p, err := New(Config[int, int]{
		Runner:       squareRunner,
		Source:       src,
		Workers:      2,
		PollInterval: testPoll,
	})
	require.NoError(t, err)
	require.NoError(t, p.Run(context.Background()))

	require.Eventually(t, func() bool {
		return p.Sink().Len() == 2
	}, waitFor, tick, "both results should arrive before termination")

	p.Terminate()

	// Liveness drops to zero immediately, without waiting on goroutines
	require.Equal(t, 0, p.Live())
	for _, info := range p.List() {
		require.Equal(t, worker.ExitTerminated, info.ExitReason)
	}

	// Results pushed before termination stay retrievable
	require.ErrorIs(t, p.Sink().Push(99), queue.ErrClosed)
	require.ElementsMatch(t, []int{4, 9}, p.Sink().Drain())

	p.Wait()
	p.Close()
}

func TestPool_TerminateIsIdempotent(t *testing.T) {
	p := newSquarePool(t, 2)
	require.NoError(t, p.Run(context.Background()))

	p.Terminate()
	p.Terminate()

	require.Equal(t, 0, p.Live())
	p.Close()
}

func TestPool_RunAfterTerminateFails(t *testing.T) {
	p := newSquarePool(t, 1)
	p.Terminate()

	require.ErrorIs(t, p.Run(context.Background()), ErrPoolClosed)
}

// === Unit Tests: Enable and Disable ===

func TestPool_DisableThenListThenEnable(t *testing.T) {
	src := queue.NewSource[int]()
	p, err := New(Config[int, int]{
		Runner:        squareRunner,
		Source:        src,
		Workers:       2,
		PollInterval:  testPoll,
		PausedBackoff: 3 * testPoll,
	})
	require.NoError(t, err)
	require.NoError(t, p.Run(context.Background()))

	require.NoError(t, p.Disable("w1"))
	require.Eventually(t, func() bool {
		return infoFor(t, p, "w1").State == worker.StatePaused
	}, waitFor, tick, "w1 should pause")
	require.Equal(t, worker.StateRunning, infoFor(t, p, "w2").State,
		"w2 keeps running while w1 is paused")

	require.NoError(t, p.Enable("w1"))
	require.Eventually(t, func() bool {
		return infoFor(t, p, "w1").State == worker.StateRunning
	}, waitFor, tick, "w1 should resume")

	p.Quit()
	p.Wait()
	p.Close()
}

func TestPool_EndSingleWorker(t *testing.T) {
	src := queue.NewSource[int]()
	p, err := New(Config[int, int]{
		Runner:       squareRunner,
		Source:       src,
		Workers:      2,
		PollInterval: testPoll,
	})
	require.NoError(t, err)
	require.NoError(t, p.Run(context.Background()))

	require.NoError(t, p.End("w1"))
	require.Eventually(t, func() bool {
		return !infoFor(t, p, "w1").Live
	}, waitFor, tick, "w1 should exit after end")

	info := infoFor(t, p, "w1")
	require.Equal(t, worker.ExitEnded, info.ExitReason)
	require.True(t, infoFor(t, p, "w2").Live, "w2 unaffected by ending w1")
	require.Equal(t, 1, p.Live())

	p.Quit()
	p.Wait()
	p.Close()
}

func TestPool_UnknownWorkerName(t *testing.T) {
	p := newSquarePool(t, 2)

	require.ErrorIs(t, p.Enable("w9"), ErrWorkerNotFound)
	require.ErrorIs(t, p.Disable("w9"), ErrWorkerNotFound)
	require.ErrorIs(t, p.End("w9"), ErrWorkerNotFound)
}

func TestPool_CommandToDeadWorkerFails(t *testing.T) {
	p := newSquarePool(t, 1) // sealed empty source: exits immediately
	require.NoError(t, p.Run(context.Background()))
	p.Wait()

	err := p.Enable("w1")
	require.ErrorIs(t, err, worker.ErrMailboxClosed)
	require.NotErrorIs(t, err, ErrWorkerNotFound)
	p.Close()
}

// === Unit Tests: Job Failure ===

func TestPool_JobFailureKillsOnlyThatWorker(t *testing.T) {
	src := queue.NewSource[int]()
	for _, task := range []int{1, 2, 3, 4, 5, 13} {
		require.NoError(t, src.Enqueue(task))
	}
	src.Seal()

	unlucky := runner.Funcs[int, int]{
		JobFunc: func(_ context.Context, task int) (int, error) {
			if task == 13 {
				return 0, errors.New("boom")
			}
			return task * task, nil
		},
	}

	p, err := New(Config[int, int]{
		Runner:       unlucky,
		Source:       src,
		Workers:      2,
		PollInterval: testPoll,
	})
	require.NoError(t, err)
	require.NoError(t, p.Run(context.Background()))
	p.Wait()

	// The poisoned task produced no result; everything else completed
	require.ElementsMatch(t, []int{1, 4, 9, 16, 25}, p.Sink().Drain())

	failed := 0
	for _, info := range p.List() {
		if info.ExitReason == worker.ExitJobFailed {
			failed++
			require.ErrorContains(t, info.Err, "boom")
		}
	}
	require.Equal(t, 1, failed, "exactly one worker dies; the controller sees reduced liveness")
	p.Close()
}

// === Unit Tests: Stats and Events ===

func TestPool_Stats(t *testing.T) {
	p := newSquarePool(t, 2, 1, 2, 3, 4, 5)

	s := p.Stats()
	require.Equal(t, 5, s.Pending)
	require.Equal(t, 0, s.Live)

	require.NoError(t, p.Run(context.Background()))
	p.Wait()

	s = p.Stats()
	require.Equal(t, 2, s.Workers)
	require.Equal(t, 0, s.Live)
	require.Equal(t, 0, s.Busy)
	require.Equal(t, 5, s.Completed)
	require.Equal(t, 0, s.Pending)
	require.Equal(t, 5, s.Buffered)
	require.Equal(t, p.RunID(), s.RunID)

	require.Equal(t, "0/2 workers live, 0 busy, 5 done, 0 pending", s.FormatSummary())
	p.Close()
}

func TestPool_EventsReachSubscribers(t *testing.T) {
	p := newSquarePool(t, 2, 1, 2, 3)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sub := p.Events().Subscribe(ctx)

	require.NoError(t, p.Run(context.Background()))
	p.Wait()

	exited := 0
	results := 0
	deadline := time.After(waitFor)
	for exited < 2 {
		select {
		case e := <-sub:
			switch e.Type {
			case worker.EventExited:
				exited++
			case worker.EventResult:
				results++
			}
		case <-deadline:
			t.Fatalf("timed out waiting for exit events, got %d", exited)
		}
	}
	require.Equal(t, 3, results)
	p.Close()
}

// === Property Tests ===

func TestProperty_EveryTaskConsumedExactlyOnce(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		numWorkers := rapid.IntRange(1, 6).Draw(rt, "numWorkers")
		numTasks := rapid.IntRange(0, 40).Draw(rt, "numTasks")

		src := queue.NewSource[int]()
		expected := make([]int, numTasks)
		for i := 0; i < numTasks; i++ {
			require.NoError(rt, src.Enqueue(i))
			expected[i] = i
		}
		src.Seal()

		identity := runner.Funcs[int, int]{
			JobFunc: func(_ context.Context, task int) (int, error) {
				return task, nil
			},
		}

		p, err := New(Config[int, int]{
			Runner:       identity,
			Source:       src,
			Workers:      numWorkers,
			PollInterval: time.Millisecond,
		})
		require.NoError(rt, err)
		require.NoError(rt, p.Run(context.Background()))
		p.Wait()

		require.ElementsMatch(rt, expected, p.Sink().Drain())
		require.Equal(rt, 0, p.Live())
		p.Close()
	})
}
