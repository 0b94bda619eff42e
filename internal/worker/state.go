// Package worker implements the pool's unit of execution: a goroutine that
// repeatedly pulls one task from the shared source, applies any pending
// control command between iterations, runs the injected job strategy, and
// pushes the result into the shared sink.
package worker

// State represents the lifecycle state of a worker.
// Valid transitions:
//
//	Running    -> Paused, Terminated
//	Paused     -> Running, Terminated
//	Terminated -> (terminal)
type State string

const (
	// StateRunning indicates the worker is pulling and processing tasks.
	StateRunning State = "running"
	// StatePaused indicates the worker is backing off without touching the
	// task source.
	StatePaused State = "paused"
	// StateTerminated indicates the worker's loop has returned. Terminal.
	StateTerminated State = "terminated"
)

// validTransitions defines the allowed state transitions for workers.
// The key is the current state, the value is a set of valid target states.
// Self-transitions are handled separately: wait while paused and resume
// while running are idempotent no-ops, not table entries.
var validTransitions = map[State]map[State]bool{
	StateRunning: {
		StatePaused:     true,
		StateTerminated: true,
	},
	StatePaused: {
		StateRunning:    true,
		StateTerminated: true,
	},
	// Terminal state has no valid transitions
	StateTerminated: {},
}

// String returns the string representation of the State.
func (s State) String() string {
	return string(s)
}

// IsValid returns true if this is a recognized State value.
func (s State) IsValid() bool {
	_, ok := validTransitions[s]
	return ok
}

// IsTerminal returns true if this state is Terminated. A terminated worker
// never re-enters the loop.
func (s State) IsTerminal() bool {
	return s == StateTerminated
}

// CanTransitionTo returns true if transitioning from the current state to
// the target state is valid according to the worker state machine.
func (s State) CanTransitionTo(target State) bool {
	allowed, ok := validTransitions[s]
	if !ok {
		return false
	}
	return allowed[target]
}
