package runner

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

// === Funcs Tests ===

func TestFuncs_ZeroValueJobReturnsErrNoJob(t *testing.T) {
	var f Funcs[string, string]

	require.NoError(t, f.PreRun(context.Background()), "nil setup is a no-op")

	result, err := f.Job(context.Background(), "task")
	require.ErrorIs(t, err, ErrNoJob)
	require.Empty(t, result)
}

func TestFuncs_DelegatesToProvidedFunctions(t *testing.T) {
	setupCalls := 0
	f := Funcs[int, int]{
		PreRunFunc: func(_ context.Context) error {
			setupCalls++
			return nil
		},
		JobFunc: func(_ context.Context, task int) (int, error) {
			return task + 1, nil
		},
	}

	require.NoError(t, f.PreRun(context.Background()))
	require.Equal(t, 1, setupCalls)

	result, err := f.Job(context.Background(), 41)
	require.NoError(t, err)
	require.Equal(t, 42, result)
}

func TestFuncs_PropagatesSetupError(t *testing.T) {
	f := Funcs[int, int]{
		PreRunFunc: func(_ context.Context) error {
			return errors.New("setup broke")
		},
	}

	err := f.PreRun(context.Background())
	require.ErrorContains(t, err, "setup broke")
}

func TestFuncs_PropagatesJobError(t *testing.T) {
	f := Funcs[int, int]{
		JobFunc: func(_ context.Context, _ int) (int, error) {
			return 0, errors.New("job broke")
		},
	}

	_, err := f.Job(context.Background(), 1)
	require.ErrorContains(t, err, "job broke")
}
