// Package pool supervises a fixed set of workers over one shared task
// source and result sink. It is the controller's handle on the run: listing
// workers, pausing and resuming them by name, ending the run cooperatively,
// or tearing it down forcefully.
package pool

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/zjrosen/scatter/internal/log"
	"github.com/zjrosen/scatter/internal/pubsub"
	"github.com/zjrosen/scatter/internal/queue"
	"github.com/zjrosen/scatter/internal/runner"
	"github.com/zjrosen/scatter/internal/tracing"
	"github.com/zjrosen/scatter/internal/worker"
)

// DefaultWorkers is the pool size when none is configured.
const DefaultWorkers = 4

// ErrPoolClosed is returned when operations are attempted on a terminated pool.
var ErrPoolClosed = fmt.Errorf("worker pool is closed")

// ErrAlreadyStarted is returned when Run is called twice.
var ErrAlreadyStarted = fmt.Errorf("worker pool already started")

// ErrWorkerNotFound is returned by name-addressed operations for unknown workers.
var ErrWorkerNotFound = fmt.Errorf("worker not found")

// WorkerInfo is one row of a pool listing. Listings report every worker
// ever spawned; dead workers stay visible with their exit reason.
type WorkerInfo struct {
	Name      string
	State     worker.State
	Live      bool
	Completed int
	// ExitReason is empty while the worker is live.
	ExitReason worker.ExitReason
	// Err carries the fault for workers that exited abnormally.
	Err error
}

// Config holds configuration for the worker pool.
type Config[T, R any] struct {
	// Runner is the job strategy shared by all workers.
	Runner runner.Runner[T, R]
	// Source is the shared task queue.
	Source *queue.Source[T]
	// Sink collects results. Created internally when nil.
	Sink *queue.Sink[R]
	// Workers is the fixed pool size (default: DefaultWorkers).
	Workers int
	// PollInterval and PausedBackoff are passed through to each worker.
	PollInterval  time.Duration
	PausedBackoff time.Duration
	// Tracer records one span per run and one per task. Nil disables tracing.
	Tracer trace.Tracer
}

// Pool manages a fixed set of concurrent workers.
type Pool[T, R any] struct {
	runID   string
	source  *queue.Source[T]
	sink    *queue.Sink[R]
	workers []*worker.Worker[T, R]
	byName  map[string]*worker.Worker[T, R]
	broker  *pubsub.Broker[worker.Event]
	sup     *supervisor
	stats   *tracker
	tracer  trace.Tracer

	mu      sync.Mutex
	cancel  context.CancelFunc
	span    trace.Span
	started atomic.Bool
	closed  atomic.Bool
	wg      sync.WaitGroup
}

// New builds a pool and its workers. Workers are named w1..wN in spawn
// order and start running only when Run is called.
func New[T, R any](cfg Config[T, R]) (*Pool[T, R], error) {
	if cfg.Runner == nil {
		return nil, fmt.Errorf("pool runner required")
	}
	if cfg.Source == nil {
		return nil, fmt.Errorf("pool source required")
	}
	if cfg.Sink == nil {
		cfg.Sink = queue.NewSink[R]()
	}
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers
	}
	if cfg.Tracer == nil {
		cfg.Tracer = tracing.NoopTracer()
	}

	p := &Pool[T, R]{
		runID:  uuid.NewString(),
		source: cfg.Source,
		sink:   cfg.Sink,
		byName: make(map[string]*worker.Worker[T, R], cfg.Workers),
		broker: pubsub.NewBroker[worker.Event](),
		sup:    newSupervisor(),
		stats:  newTracker(),
		tracer: cfg.Tracer,
	}

	for i := 0; i < cfg.Workers; i++ {
		name := fmt.Sprintf("w%d", i+1)
		w, err := worker.New(worker.Config[T, R]{
			Name:          name,
			Runner:        instrumented[T, R]{inner: cfg.Runner, name: name, stats: p.stats},
			Source:        cfg.Source,
			Sink:          cfg.Sink,
			Events:        p.broker,
			Tracer:        cfg.Tracer,
			PollInterval:  cfg.PollInterval,
			PausedBackoff: cfg.PausedBackoff,
			OnExit:        p.sup.exited,
		})
		if err != nil {
			return nil, fmt.Errorf("building worker %s: %w", name, err)
		}
		p.workers = append(p.workers, w)
		p.byName[name] = w
	}

	return p, nil
}

// Run spawns every worker goroutine. It returns once all workers are
// launched; use Wait or Done to observe completion.
func (p *Pool[T, R]) Run(ctx context.Context) error {
	if p.closed.Load() {
		return ErrPoolClosed
	}
	if p.started.Swap(true) {
		return ErrAlreadyStarted
	}

	spanCtx, span := p.tracer.Start(ctx, tracing.SpanPoolRun,
		trace.WithAttributes(
			attribute.String(tracing.AttrRunID, p.runID),
			attribute.Int(tracing.AttrWorkerCount, len(p.workers)),
			attribute.Int(tracing.AttrTaskCount, p.source.Len()),
		))

	runCtx, cancel := context.WithCancel(spanCtx)
	p.mu.Lock()
	p.cancel = cancel
	p.span = span
	p.mu.Unlock()

	log.Info(log.CatPool, "Pool starting",
		"run_id", p.runID,
		"workers", len(p.workers),
		"tasks", p.source.Len())

	for _, w := range p.workers {
		p.sup.spawned(w.Name())
		p.wg.Add(1)
		go func(w *worker.Worker[T, R]) {
			defer p.wg.Done()
			defer func() {
				if r := recover(); r != nil {
					log.Error(log.CatPool, "Worker goroutine panic recovered",
						"worker", w.Name(),
						"panic", r,
						"stack", string(debug.Stack()))
				}
			}()
			w.Run(runCtx)
		}(w)
	}

	// End the run span once liveness hits zero, whatever the path there.
	go func() {
		<-p.sup.doneCh()
		p.mu.Lock()
		s := p.span
		p.mu.Unlock()
		if s != nil {
			s.SetAttributes(attribute.Int("pool.completed", p.stats.totalCompleted()))
			s.End()
		}
		log.Info(log.CatPool, "All workers exited",
			"run_id", p.runID,
			"completed", p.stats.totalCompleted())
	}()

	return nil
}

// Wait blocks until every worker goroutine has returned.
func (p *Pool[T, R]) Wait() {
	p.wg.Wait()
}

// Done is closed once the live worker count reaches zero. Unlike Wait it
// also fires on forceful termination, when goroutines may still be
// unwinding.
func (p *Pool[T, R]) Done() <-chan struct{} {
	return p.sup.doneCh()
}

// Live returns the number of workers not yet counted out.
func (p *Pool[T, R]) Live() int {
	return p.sup.liveCount()
}

// List reports every registered worker in spawn order. Dead workers are
// included; liveness is reported, not filtered on.
func (p *Pool[T, R]) List() []WorkerInfo {
	infos := make([]WorkerInfo, 0, len(p.workers))
	for _, w := range p.workers {
		info := WorkerInfo{
			Name:      w.Name(),
			State:     w.State(),
			Live:      p.sup.isLive(w.Name()),
			Completed: p.stats.completedFor(w.Name()),
		}
		if rec, ok := p.sup.record(w.Name()); ok {
			info.ExitReason = rec.Reason
			info.Err = rec.Err
		}
		infos = append(infos, info)
	}
	return infos
}

// Quit asks every worker to end cooperatively: each finishes its in-flight
// task and exits without pulling another. Posts to dead workers fail; that
// is logged and skipped, not fatal. Returns the number of workers reached.
func (p *Pool[T, R]) Quit() int {
	if p.closed.Load() {
		return 0
	}

	reached := 0
	for _, w := range p.workers {
		if err := w.Mailbox().Post(worker.CmdEnd); err != nil {
			log.Debug(log.CatPool, "End command not delivered",
				"worker", w.Name(), "error", err)
			continue
		}
		reached++
	}
	log.Info(log.CatPool, "Quit requested", "run_id", p.runID, "reached", reached)
	return reached
}

// Terminate tears the run down forcefully: the run context is canceled,
// the sink stops accepting results, and every still-live worker is counted
// out immediately. Results already pushed stay retrievable from the sink.
func (p *Pool[T, R]) Terminate() {
	if p.closed.Swap(true) {
		return
	}

	log.Info(log.CatPool, "Terminating pool", "run_id", p.runID, "live", p.sup.liveCount())

	p.mu.Lock()
	cancel := p.cancel
	p.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	p.sink.Close()
	p.sup.markAllDead(worker.ExitTerminated)
}

// Enable resumes a paused worker by name.
func (p *Pool[T, R]) Enable(name string) error {
	return p.post(name, worker.CmdResume)
}

// Disable pauses a worker by name. The worker applies the command at its
// next iteration boundary; an in-flight task finishes first.
func (p *Pool[T, R]) Disable(name string) error {
	return p.post(name, worker.CmdWait)
}

// End asks a single worker to finish its in-flight task and exit.
func (p *Pool[T, R]) End(name string) error {
	return p.post(name, worker.CmdEnd)
}

func (p *Pool[T, R]) post(name string, cmd worker.Command) error {
	w, ok := p.byName[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrWorkerNotFound, name)
	}
	if err := w.Mailbox().Post(cmd); err != nil {
		log.Warn(log.CatPool, "Command not delivered",
			"worker", name, "command", cmd, "error", err)
		return fmt.Errorf("worker %s: %w", name, err)
	}
	log.Debug(log.CatPool, "Command posted", "worker", name, "command", cmd)
	return nil
}

// Events returns the broker carrying worker lifecycle events.
func (p *Pool[T, R]) Events() *pubsub.Broker[worker.Event] {
	return p.broker
}

// Source returns the shared task queue.
func (p *Pool[T, R]) Source() *queue.Source[T] {
	return p.source
}

// Sink returns the shared result queue.
func (p *Pool[T, R]) Sink() *queue.Sink[R] {
	return p.sink
}

// RunID identifies this run in logs and traces.
func (p *Pool[T, R]) RunID() string {
	return p.runID
}

// Stats snapshots pool progress.
func (p *Pool[T, R]) Stats() Stats {
	return Stats{
		RunID:     p.runID,
		Workers:   len(p.workers),
		Live:      p.sup.liveCount(),
		Busy:      p.stats.busyCount(),
		Completed: p.stats.totalCompleted(),
		Pending:   p.source.Len(),
		Buffered:  p.sink.Len(),
	}
}

// Close releases pool resources after the run is over: the run context is
// canceled, worker goroutines are awaited, and the event broker closes.
func (p *Pool[T, R]) Close() {
	p.closed.Store(true)

	p.mu.Lock()
	cancel := p.cancel
	p.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	p.wg.Wait()
	p.broker.Close()
}
