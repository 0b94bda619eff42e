// Package runner defines the job strategy a worker executes. The pool knows
// nothing about what a task means; it hands each pulled task to an injected
// Runner and pushes whatever comes back.
package runner

import (
	"context"
	"errors"
)

// ErrNoJob is returned by Funcs when no job function was provided.
var ErrNoJob = errors.New("no job function configured")

// Runner is the capability contract a worker invokes. Implementations own
// the semantics of the opaque task and result values.
type Runner[T, R any] interface {
	// PreRun is invoked exactly once, before the worker's first iteration,
	// for setup with side effects. A non-nil error aborts worker startup;
	// the loop is never entered.
	PreRun(ctx context.Context) error

	// Job computes the result for one task. A non-nil error is fatal to
	// the calling worker: no result is emitted and the worker exits.
	// Implementations that need failure visibility at the controller
	// should encode the failure into R and return it with a nil error.
	// The context is canceled when the pool is forcefully terminated.
	Job(ctx context.Context, task T) (R, error)
}

// Funcs adapts plain function values into a Runner. The zero value is
// usable but its Job returns ErrNoJob.
type Funcs[T, R any] struct {
	// PreRunFunc is optional; nil means no setup.
	PreRunFunc func(ctx context.Context) error
	// JobFunc computes the result for one task.
	JobFunc func(ctx context.Context, task T) (R, error)
}

// PreRun calls PreRunFunc when set.
func (f Funcs[T, R]) PreRun(ctx context.Context) error {
	if f.PreRunFunc == nil {
		return nil
	}
	return f.PreRunFunc(ctx)
}

// Job calls JobFunc. Returns ErrNoJob when no function was provided.
func (f Funcs[T, R]) Job(ctx context.Context, task T) (R, error) {
	if f.JobFunc == nil {
		var zero R
		return zero, ErrNoJob
	}
	return f.JobFunc(ctx, task)
}
