package runner

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// DefaultShell is used when no shell is configured.
const DefaultShell = "/bin/sh"

// ExecResult is the outcome of running one task line through the shell.
// A command that exits non-zero is still a valid result; the failure is
// carried in ExitCode rather than killing the worker.
type ExecResult struct {
	Task     string        // The command line that ran
	Output   string        // Combined stdout and stderr
	ExitCode int           // Exit status of the command
	Took     time.Duration // Wall-clock execution time
}

// String formats the result for display: the task, its exit status, and
// the trimmed output.
func (r ExecResult) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "$ %s", r.Task)
	if r.ExitCode != 0 {
		fmt.Fprintf(&b, " [exit %d]", r.ExitCode)
	}
	fmt.Fprintf(&b, " (%s)", r.Took.Round(time.Millisecond))
	out := strings.TrimRight(r.Output, "\n")
	if out != "" {
		b.WriteString("\n")
		b.WriteString(out)
	}
	return b.String()
}

// Shell runs each task line as a command under `<shell> -c`. It is the
// default Runner wired by the CLI.
type Shell struct {
	shell string
}

// NewShell creates a Shell runner. An empty shell path falls back to
// DefaultShell.
func NewShell(shell string) *Shell {
	if shell == "" {
		shell = DefaultShell
	}
	return &Shell{shell: shell}
}

// PreRun verifies the configured shell exists on this host.
func (s *Shell) PreRun(_ context.Context) error {
	if _, err := exec.LookPath(s.shell); err != nil {
		return fmt.Errorf("locating shell %q: %w", s.shell, err)
	}
	return nil
}

// Job executes one command line and captures its combined output. A
// non-zero exit status is reported inside the ExecResult, not as an error;
// only a canceled context or a shell that failed to start is fatal to the
// worker.
func (s *Shell) Job(ctx context.Context, task string) (ExecResult, error) {
	start := time.Now()

	cmd := exec.CommandContext(ctx, s.shell, "-c", task)
	out, err := cmd.CombinedOutput()

	result := ExecResult{
		Task:   task,
		Output: string(out),
		Took:   time.Since(start),
	}

	if err != nil {
		if ctx.Err() != nil {
			return ExecResult{}, fmt.Errorf("command canceled: %w", ctx.Err())
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
			return result, nil
		}
		return ExecResult{}, fmt.Errorf("running %q: %w", task, err)
	}

	return result, nil
}
