package tasker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

func noop(ctx context.Context, deps []any) (any, error) { return nil, nil }

func TestNewGraphRejectsUnknownPrerequisite(t *testing.T) {
	_, err := NewGraph("root",
		Task{Name: "root", Needs: []string{"missing"}, Run: noop},
	)
	require.ErrorIs(t, err, ErrInvalidGraph)
	require.Contains(t, err.Error(), `"missing"`)
}

func TestNewGraphRejectsUnknownRoot(t *testing.T) {
	_, err := NewGraph("root", Task{Name: "a", Run: noop})
	require.ErrorIs(t, err, ErrInvalidGraph)
}

func TestNewGraphRejectsDuplicateNames(t *testing.T) {
	_, err := NewGraph("a",
		Task{Name: "a", Run: noop},
		Task{Name: "a", Run: noop},
	)
	require.ErrorIs(t, err, ErrInvalidGraph)
}

func TestNewGraphRejectsCycleBeforeAnyCallback(t *testing.T) {
	var calls atomic.Int64
	counting := func(ctx context.Context, deps []any) (any, error) {
		calls.Add(1)
		return nil, nil
	}

	_, err := NewGraph("a",
		Task{Name: "a", Needs: []string{"b"}, Run: counting},
		Task{Name: "b", Needs: []string{"c"}, Run: counting},
		Task{Name: "c", Needs: []string{"a"}, Run: counting},
	)
	require.ErrorIs(t, err, ErrCycle)
	require.Contains(t, err.Error(), "->")
	require.Zero(t, calls.Load(), "validation must not start any task")
}

func TestNewGraphAllowsCycleOutsideRootClosure(t *testing.T) {
	// The cycle contract covers cycles reachable from the root; a
	// disconnected cycle never runs, so construction still succeeds when
	// the root's own closure is acyclic.
	g, err := NewGraph("root",
		Task{Name: "root", Run: noop},
		Task{Name: "x", Needs: []string{"y"}, Run: noop},
		Task{Name: "y", Needs: []string{"x"}, Run: noop},
	)
	require.NoError(t, err)
	require.Equal(t, "root", g.Root())
}

func TestGraphNamesSorted(t *testing.T) {
	g, err := NewGraph("b",
		Task{Name: "b", Run: noop},
		Task{Name: "a", Run: noop},
		Task{Name: "c", Run: noop},
	)
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b", "c"}, g.Names())
}

func TestNewGraphRejectsMissingCallback(t *testing.T) {
	_, err := NewGraph("a", Task{Name: "a"})
	require.ErrorIs(t, err, ErrInvalidGraph)
	require.False(t, errors.Is(err, ErrCycle))
}
