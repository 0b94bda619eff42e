package worker

import (
	"errors"
	"sync"
)

// Command is a control verb delivered from the controller to one worker.
type Command string

const (
	// CmdWait asks the worker to stop pulling tasks and back off.
	CmdWait Command = "wait"
	// CmdResume asks a paused worker to start pulling tasks again.
	CmdResume Command = "resume"
	// CmdEnd asks the worker to stop cooperatively. In-flight work runs to
	// completion; no further task is pulled.
	CmdEnd Command = "end"
)

// String returns the string representation of the Command.
func (c Command) String() string {
	return string(c)
}

// IsValid returns true if this is a recognized Command value.
func (c Command) IsValid() bool {
	switch c {
	case CmdWait, CmdResume, CmdEnd:
		return true
	}
	return false
}

// ErrMailboxClosed is returned when posting a command to a worker whose
// loop has already returned.
var ErrMailboxClosed = errors.New("mailbox is closed")

// Mailbox is the worker's inbound command channel: a single overwrite slot
// rather than a queue. The worker consumes at most one command per loop
// iteration, so rapid posts coalesce and only the latest one posted before
// the worker polls is observed. Post never blocks the controller and Take
// never blocks the worker.
type Mailbox struct {
	mu      sync.Mutex
	pending Command
	present bool
	closed  bool
}

// NewMailbox creates an empty, open Mailbox.
func NewMailbox() *Mailbox {
	return &Mailbox{}
}

// Post places a command in the slot, replacing any command already pending.
// Returns ErrMailboxClosed if the owning worker has exited; the controller
// treats that as a logged, non-fatal condition.
func (m *Mailbox) Post(cmd Command) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrMailboxClosed
	}

	m.pending = cmd
	m.present = true
	return nil
}

// Take removes and returns the pending command without blocking.
// Returns (zero value, false) if no command is pending.
func (m *Mailbox) Take() (Command, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.present {
		return "", false
	}

	cmd := m.pending
	m.pending = ""
	m.present = false
	return cmd, true
}

// Close marks the mailbox dead. Subsequent posts return ErrMailboxClosed.
// The owning worker calls this on every exit path. Close is idempotent.
func (m *Mailbox) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	m.present = false
}

// Closed reports whether the mailbox has been closed.
func (m *Mailbox) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.closed
}
