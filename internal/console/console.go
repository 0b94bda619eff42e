// Package console implements the plain-terminal control loop for a
// running pool. One cooperative goroutine multiplexes three sources:
// completed command lines, polled results, and worker liveness. Nothing
// in the loop blocks, so one stalled source never starves the others.
package console

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/zjrosen/scatter/internal/log"
	"github.com/zjrosen/scatter/internal/pool"
)

// DefaultPollInterval is the sleep between loop iterations.
const DefaultPollInterval = 100 * time.Millisecond

// LineSource produces completed command lines without blocking. It is
// the seam between the loop and raw-terminal mechanics: the loop never
// touches the input device itself.
type LineSource interface {
	// PollLine returns one finished line. ok is false when no full line
	// is ready yet.
	PollLine() (line string, ok bool)
	// Close releases the input device and restores its prior mode.
	Close() error
}

// NopLines is a LineSource that never produces a line. Batch mode runs
// the loop with it so result collection and liveness still work.
type NopLines struct{}

func (NopLines) PollLine() (string, bool) { return "", false }
func (NopLines) Close() error             { return nil }

// Config wires a console to a pool.
type Config[T, R any] struct {
	// Pool is the worker pool under control.
	Pool *pool.Pool[T, R]
	// Lines feeds completed command lines. Defaults to NopLines.
	Lines LineSource
	// OnResult is invoked for every result polled from the sink.
	OnResult func(R)
	// Out receives listings, prompts, and dispatch replies.
	// Defaults to os.Stdout.
	Out io.Writer
	// PollInterval is the per-iteration sleep (default 100ms).
	PollInterval time.Duration
}

// Console drives a pool from a line-oriented command surface.
type Console[T, R any] struct {
	pool     *pool.Pool[T, R]
	lines    LineSource
	onResult func(R)
	out      io.Writer
	poll     time.Duration

	closeOnce sync.Once
	closeErr  error
}

// New creates a console over cfg.Pool.
func New[T, R any](cfg Config[T, R]) (*Console[T, R], error) {
	if cfg.Pool == nil {
		return nil, fmt.Errorf("console pool required")
	}
	if cfg.Lines == nil {
		cfg.Lines = NopLines{}
	}
	if cfg.OnResult == nil {
		cfg.OnResult = func(R) {}
	}
	if cfg.Out == nil {
		cfg.Out = os.Stdout
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}

	return &Console[T, R]{
		pool:     cfg.Pool,
		lines:    cfg.Lines,
		onResult: cfg.OnResult,
		out:      cfg.Out,
		poll:     cfg.PollInterval,
	}, nil
}

// Listen runs the control loop until every worker has exited or ctx is
// canceled. The line source is closed exactly once on every exit path,
// including a panicking result callback. After the loop a final drain
// delivers any results that raced the liveness check.
func (c *Console[T, R]) Listen(ctx context.Context) error {
	defer c.closeLines()

	c.prompt()
	for {
		if err := ctx.Err(); err != nil {
			c.pool.Terminate()
			c.drain()
			return err
		}

		if line, ok := c.lines.PollLine(); ok {
			c.dispatch(line)
			c.prompt()
		}

		if res, ok := c.pool.Sink().Poll(); ok {
			c.onResult(res)
		}

		if c.pool.Live() == 0 {
			break
		}

		select {
		case <-ctx.Done():
		case <-time.After(c.poll):
		}
	}

	c.drain()
	return nil
}

// drain empties the sink through the callback until it reports empty.
func (c *Console[T, R]) drain() {
	for {
		res, ok := c.pool.Sink().Poll()
		if !ok {
			return
		}
		c.onResult(res)
	}
}

// closeLines releases the line source exactly once. A restore failure
// is reported but never masks the loop's own outcome.
func (c *Console[T, R]) closeLines() {
	c.closeOnce.Do(func() {
		if err := c.lines.Close(); err != nil {
			c.closeErr = err
			fmt.Fprintf(os.Stderr, "input mode restore failed: %v\n", err)
			log.Error(log.CatConsole, "Input mode restore failed", "error", err)
		}
	})
}

func (c *Console[T, R]) prompt() {
	fmt.Fprint(c.out, "> ")
}

// dispatch routes one command line through the verb table. Faults are
// printed and logged; the loop always survives them.
func (c *Console[T, R]) dispatch(line string) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return
	}
	verb, args := fields[0], fields[1:]

	log.Debug(log.CatConsole, "Dispatching command", "verb", verb, "args", strings.Join(args, " "))

	switch verb {
	case "list":
		c.cmdList()
	case "quit":
		n := c.pool.Quit()
		fmt.Fprintf(c.out, "end sent to %d workers\r\n", n)
	case "terminate":
		c.pool.Terminate()
		fmt.Fprint(c.out, "all workers terminated\r\n")
	case "enable":
		c.cmdPost(verb, args, c.pool.Enable)
	case "disable":
		c.cmdPost(verb, args, c.pool.Disable)
	case "end":
		c.cmdPost(verb, args, c.pool.End)
	case "status":
		fmt.Fprintf(c.out, "%s\r\n", c.pool.Stats().FormatSummary())
	case "help":
		fmt.Fprint(c.out, helpText)
	default:
		fmt.Fprintf(c.out, "unknown command %q (try help)\r\n", verb)
	}
}

// cmdPost runs a name-addressed command against the pool.
func (c *Console[T, R]) cmdPost(verb string, args []string, post func(string) error) {
	if len(args) != 1 {
		fmt.Fprintf(c.out, "usage: %s <name>\r\n", verb)
		return
	}
	if err := post(args[0]); err != nil {
		fmt.Fprintf(c.out, "%s %s: %v\r\n", verb, args[0], err)
		log.Warn(log.CatConsole, "Command dispatch failed", "verb", verb, "worker", args[0], "error", err)
	}
}

func (c *Console[T, R]) cmdList() {
	for _, info := range c.pool.List() {
		switch {
		case info.Live:
			fmt.Fprintf(c.out, "%-4s %-8s %d done\r\n", info.Name, info.State, info.Completed)
		case info.Err != nil:
			fmt.Fprintf(c.out, "%-4s exited (%s): %v\r\n", info.Name, info.ExitReason, info.Err)
		default:
			fmt.Fprintf(c.out, "%-4s exited (%s) %d done\r\n", info.Name, info.ExitReason, info.Completed)
		}
	}
}

const helpText = "commands:\r\n" +
	"  list             show all workers with state\r\n" +
	"  disable <name>   pause a worker\r\n" +
	"  enable <name>    resume a paused worker\r\n" +
	"  end <name>       stop one worker after its current task\r\n" +
	"  quit             let workers finish in-flight tasks, then stop\r\n" +
	"  terminate        stop all workers immediately\r\n" +
	"  status           pool counters\r\n" +
	"  help             this text\r\n"
