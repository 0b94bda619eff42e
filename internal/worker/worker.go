package worker

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/zjrosen/scatter/internal/log"
	"github.com/zjrosen/scatter/internal/pubsub"
	"github.com/zjrosen/scatter/internal/queue"
	"github.com/zjrosen/scatter/internal/runner"
	"github.com/zjrosen/scatter/internal/tracing"
)

const (
	// DefaultPollInterval is the sleep between iterations when the source
	// is momentarily empty.
	DefaultPollInterval = 100 * time.Millisecond
	// DefaultBackoffFactor is how many poll intervals a paused worker
	// sleeps before rechecking its mailbox.
	DefaultBackoffFactor = 3
)

// Config assembles a Worker. Name, Runner, and Source are required; the
// rest default to safe values.
type Config[T, R any] struct {
	// Name identifies the worker in listings, commands, and logs.
	Name string
	// Runner is the injected job strategy.
	Runner runner.Runner[T, R]
	// Source is the shared task queue the worker pulls from.
	Source *queue.Source[T]
	// Sink receives results. Nil means results are discarded after the
	// job returns.
	Sink *queue.Sink[R]
	// Events receives lifecycle events. Nil disables event publishing.
	Events pubsub.Publisher[Event]
	// Tracer records a span per task. Nil disables tracing.
	Tracer trace.Tracer
	// PollInterval is the retry sleep on a momentarily empty source.
	// Zero means DefaultPollInterval.
	PollInterval time.Duration
	// PausedBackoff is the sleep while paused. Zero means
	// DefaultBackoffFactor poll intervals.
	PausedBackoff time.Duration
	// OnExit is invoked exactly once when the loop returns, whatever the
	// reason. The pool's supervisor uses it for liveness accounting.
	OnExit func(name string, reason ExitReason, err error)
}

// Worker pulls tasks from the shared source and runs them through the
// injected Runner until the source drains, a command ends it, or its job
// faults. It owns exactly one inbound Mailbox and holds at most one task
// and one result at a time.
type Worker[T, R any] struct {
	name    string
	runner  runner.Runner[T, R]
	source  *queue.Source[T]
	sink    *queue.Sink[R]
	mailbox *Mailbox
	events  pubsub.Publisher[Event]
	tracer  trace.Tracer

	pollInterval  time.Duration
	pausedBackoff time.Duration
	onExit        func(name string, reason ExitReason, err error)

	mu       sync.RWMutex
	state    State
	exitOnce sync.Once
}

// New validates the config and builds a Worker in the Running state.
func New[T, R any](cfg Config[T, R]) (*Worker[T, R], error) {
	if cfg.Name == "" {
		return nil, fmt.Errorf("worker name required")
	}
	if cfg.Runner == nil {
		return nil, fmt.Errorf("worker %s: runner required", cfg.Name)
	}
	if cfg.Source == nil {
		return nil, fmt.Errorf("worker %s: source required", cfg.Name)
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.PausedBackoff <= 0 {
		cfg.PausedBackoff = DefaultBackoffFactor * cfg.PollInterval
	}
	if cfg.Tracer == nil {
		cfg.Tracer = tracing.NoopTracer()
	}

	return &Worker[T, R]{
		name:          cfg.Name,
		runner:        cfg.Runner,
		source:        cfg.Source,
		sink:          cfg.Sink,
		mailbox:       NewMailbox(),
		events:        cfg.Events,
		tracer:        cfg.Tracer,
		pollInterval:  cfg.PollInterval,
		pausedBackoff: cfg.PausedBackoff,
		onExit:        cfg.OnExit,
		state:         StateRunning,
	}, nil
}

// Name returns the worker's identity.
func (w *Worker[T, R]) Name() string {
	return w.name
}

// Mailbox returns the worker's inbound command channel. The controller
// holds this endpoint; the worker polls it between iterations.
func (w *Worker[T, R]) Mailbox() *Mailbox {
	return w.mailbox
}

// State returns the current state thread-safely.
func (w *Worker[T, R]) State() State {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.state
}

func (w *Worker[T, R]) setState(target State) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.state == target {
		return false
	}
	if !w.state.CanTransitionTo(target) {
		return false
	}
	w.state = target
	return true
}

// Run executes the worker loop until termination and then fires the exit
// hook exactly once. It is intended to run in its own goroutine; a panic
// escaping the job strategy is recovered here so one worker's fault never
// takes down the process.
func (w *Worker[T, R]) Run(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			log.Error(log.CatWorker, "Worker panic recovered",
				"worker", w.name,
				"panic", r,
				"stack", string(debug.Stack()))
			w.finish(ExitJobFailed, fmt.Errorf("panic: %v", r))
		}
	}()

	reason, err := w.run(ctx)
	w.finish(reason, err)
}

// run is the per-iteration algorithm. It returns the exit reason and, for
// failure reasons, the fault.
func (w *Worker[T, R]) run(ctx context.Context) (ExitReason, error) {
	// Pre-run hook: exactly once, before the first iteration. Failure
	// aborts startup; the loop is never entered.
	if err := w.runner.PreRun(ctx); err != nil {
		return ExitSetupFailed, fmt.Errorf("pre-run: %w", err)
	}

	w.publish(EventSpawned, "", "")
	log.Debug(log.CatWorker, "Worker started", "worker", w.name)

	for {
		// Forceful termination cancels the pool context
		select {
		case <-ctx.Done():
			return ExitTerminated, nil
		default:
		}

		// Consume at most one pending command per iteration
		if cmd, ok := w.mailbox.Take(); ok {
			if cmd == CmdEnd {
				// Stop immediately without touching the source
				return ExitEnded, nil
			}
			w.apply(cmd)
		}

		// Paused workers back off without touching the source
		if w.State() == StatePaused {
			if !w.sleep(ctx, w.pausedBackoff) {
				return ExitTerminated, nil
			}
			continue
		}

		// Atomic pull: delivered, momentarily empty, or drained forever
		item, state := w.source.Pull()
		switch state {
		case queue.PullDrained:
			return ExitDrained, nil
		case queue.PullEmpty:
			if !w.sleep(ctx, w.pollInterval) {
				return ExitTerminated, nil
			}
			continue
		}

		if err := w.process(ctx, item); err != nil {
			if ctx.Err() != nil {
				return ExitTerminated, nil
			}
			return ExitJobFailed, err
		}
	}
}

// apply handles wait and resume. Both are idempotent: waiting while paused
// and resuming while running change nothing and emit no event.
func (w *Worker[T, R]) apply(cmd Command) {
	switch cmd {
	case CmdWait:
		if w.setState(StatePaused) {
			w.publish(EventPaused, "", "")
			log.Debug(log.CatWorker, "Worker paused", "worker", w.name)
		}
	case CmdResume:
		if w.setState(StateRunning) {
			w.publish(EventResumed, "", "")
			log.Debug(log.CatWorker, "Worker resumed", "worker", w.name)
		}
	}
}

// process runs one task through the job strategy and pushes the result.
func (w *Worker[T, R]) process(ctx context.Context, item queue.Item[T]) error {
	ctx, span := w.tracer.Start(ctx, tracing.SpanTask,
		trace.WithAttributes(
			attribute.String(tracing.AttrWorkerName, w.name),
			attribute.String(tracing.AttrTaskID, item.ID),
		))
	defer span.End()

	result, err := w.runner.Job(ctx, item.Value)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("task %s: %w", item.ID, err)
	}

	if w.sink == nil {
		return nil
	}
	if err := w.sink.Push(result); err != nil {
		// Sink closes only on forceful termination; the result is
		// discarded rather than raced against the final drain
		log.Warn(log.CatWorker, "Result discarded, sink closed",
			"worker", w.name, "task", item.ID)
		return nil
	}
	w.publish(EventResult, item.ID, preview(result))
	return nil
}

// finish transitions to Terminated, closes the mailbox, and fires the exit
// hook. Safe to call from multiple paths; only the first has effect.
func (w *Worker[T, R]) finish(reason ExitReason, err error) {
	w.exitOnce.Do(func() {
		w.setState(StateTerminated)
		w.mailbox.Close()

		info := string(reason)
		if err != nil {
			info = fmt.Sprintf("%s: %v", reason, err)
			log.ErrorErr(log.CatWorker, "Worker exited abnormally", err,
				"worker", w.name, "reason", reason)
		} else {
			log.Info(log.CatWorker, "Worker exited",
				"worker", w.name, "reason", reason)
		}
		if w.events != nil {
			w.events.Publish(Event{
				Type:   EventExited,
				Worker: w.name,
				State:  w.State(),
				Reason: reason,
				Info:   info,
				At:     time.Now(),
			})
		}

		if w.onExit != nil {
			w.onExit(w.name, reason, err)
		}
	})
}

// sleep waits for d unless the context is canceled first. Returns false
// when canceled.
func (w *Worker[T, R]) sleep(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}

func (w *Worker[T, R]) publish(t EventType, taskID, info string) {
	if w.events == nil {
		return
	}
	w.events.Publish(Event{
		Type:   t,
		Worker: w.name,
		State:  w.State(),
		TaskID: taskID,
		Info:   info,
		At:     time.Now(),
	})
}

// preview renders a result for event consumers, truncated to one line.
func preview(v any) string {
	s := fmt.Sprintf("%v", v)
	for i, r := range s {
		if r == '\n' {
			s = s[:i]
			break
		}
	}
	const maxPreview = 120
	if runes := []rune(s); len(runes) > maxPreview {
		s = string(runes[:maxPreview]) + "…"
	}
	return s
}
