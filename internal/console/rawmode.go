package console

import (
	"errors"
	"fmt"
	"sync"

	"golang.org/x/term"
)

// ErrRawMode marks failures switching the terminal in or out of raw
// mode. Acquisition failures abort the plain console; restore failures
// are reported, never swallowed silently.
var ErrRawMode = errors.New("terminal raw mode")

// rawModeGuard owns the saved terminal state. Restore is idempotent so
// it can sit on multiple exit paths without double-restoring.
type rawModeGuard struct {
	fd    int
	state *term.State
	once  sync.Once
	err   error
}

// enterRawMode switches fd to raw (unbuffered, no echo) input mode.
func enterRawMode(fd int) (*rawModeGuard, error) {
	if !term.IsTerminal(fd) {
		return nil, fmt.Errorf("%w: stdin is not a terminal", ErrRawMode)
	}
	state, err := term.MakeRaw(fd)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRawMode, err)
	}
	return &rawModeGuard{fd: fd, state: state}, nil
}

// Restore puts the terminal back into its prior mode. Only the first
// call restores; later calls return the first call's result.
func (g *rawModeGuard) Restore() error {
	g.once.Do(func() {
		if err := term.Restore(g.fd, g.state); err != nil {
			g.err = fmt.Errorf("%w: restore: %v", ErrRawMode, err)
		}
	})
	return g.err
}
