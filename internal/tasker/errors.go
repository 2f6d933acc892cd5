package tasker

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidGraph covers structural problems found before any task runs.
	ErrInvalidGraph = errors.New("invalid task graph")
	// ErrCycle marks a dependency cycle reachable from the root task.
	ErrCycle = errors.New("dependency cycle")
)

// GraphError wraps a validation failure detected at construction time.
type GraphError struct {
	Kind error
	Msg  string
}

func (e *GraphError) Error() string {
	if e.Msg == "" {
		return e.Kind.Error()
	}
	return fmt.Sprintf("%s: %s", e.Kind.Error(), e.Msg)
}

func (e *GraphError) Unwrap() error { return e.Kind }

func invalidf(format string, args ...any) error {
	return &GraphError{Kind: ErrInvalidGraph, Msg: fmt.Sprintf(format, args...)}
}

func cycleError(path []string) error {
	msg := ""
	if len(path) > 0 {
		msg = strings.Join(path, " -> ")
	}
	return &GraphError{Kind: ErrCycle, Msg: msg}
}

// TaskError names the task whose callback failed and carries its cause.
// A run that fails because of a callback resolves to a TaskError; tasks
// downstream of the origin are reported skipped, never retried.
type TaskError struct {
	Task string
	Err  error
}

func (e *TaskError) Error() string {
	return fmt.Sprintf("task %q failed: %v", e.Task, e.Err)
}

func (e *TaskError) Unwrap() error { return e.Err }
