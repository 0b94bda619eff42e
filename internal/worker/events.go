package worker

import "time"

// EventType identifies the kind of worker event.
type EventType string

const (
	// EventSpawned is emitted when a worker enters its loop.
	EventSpawned EventType = "spawned"
	// EventPaused is emitted when a worker transitions to Paused.
	EventPaused EventType = "paused"
	// EventResumed is emitted when a paused worker transitions back to Running.
	EventResumed EventType = "resumed"
	// EventResult is emitted after a worker pushes a result into the sink.
	EventResult EventType = "result"
	// EventExited is emitted exactly once when a worker's loop returns,
	// whatever the reason.
	EventExited EventType = "exited"
)

// Event represents a lifecycle or progress event from a worker. Console
// surfaces subscribe to these through the pool's broker; nothing in the
// control path depends on them.
type Event struct {
	// Type identifies the kind of event.
	Type EventType
	// Worker identifies which worker emitted the event.
	Worker string
	// State is the worker's state at the time of the event.
	State State
	// TaskID is the task being processed, for result events.
	TaskID string
	// Reason is set on exited events only.
	Reason ExitReason
	// Info carries a human-readable detail: a result preview for result
	// events, the exit reason plus fault for exited events.
	Info string
	// At is when the event was emitted.
	At time.Time
}

// ExitReason explains why a worker's loop returned. The supervisor records
// it; `status` and the TUI display it.
type ExitReason string

const (
	// ExitDrained means the source reported no task will ever arrive.
	// Normal completion, not an error.
	ExitDrained ExitReason = "drained"
	// ExitEnded means the worker observed an end command.
	ExitEnded ExitReason = "ended"
	// ExitSetupFailed means the pre-run hook returned an error and the
	// worker never entered its loop.
	ExitSetupFailed ExitReason = "setup failed"
	// ExitJobFailed means the job strategy returned an error or panicked.
	// Fatal to this worker only; no result was produced for that task.
	ExitJobFailed ExitReason = "job failed"
	// ExitTerminated means the pool forcefully stopped the worker,
	// discarding any in-flight work.
	ExitTerminated ExitReason = "terminated"
)
