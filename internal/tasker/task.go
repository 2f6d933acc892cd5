// Package tasker resolves a named dependency graph of asynchronous
// bootstrap tasks and runs it to completion.
//
// A run starts every task whose prerequisites have all finished
// successfully, with no artificial cap on concurrency; bootstrap
// workloads are I/O-bound and small in count. Per-run state is owned by
// the coordinating goroutine of that run and discarded when Run returns.
package tasker

import (
	"context"
	"time"
)

// Callback performs the work of a single task. It receives the results
// of the task's prerequisites in declaration order, regardless of which
// prerequisite finished first. It may block on I/O; ctx is the run's
// context.
type Callback func(ctx context.Context, deps []any) (any, error)

// Task is a named unit of asynchronous work. Tasks are stateless; all
// run state lives in the scheduler.
type Task struct {
	Name string
	// Needs lists prerequisite task names. Results are delivered to Run
	// positionally in this order.
	Needs []string
	Run   Callback
}

// State is the lifecycle of one task within one run.
type State string

const (
	StatePending State = "pending"
	StateRunning State = "running"
	StateDone    State = "done"
	StateFailed  State = "failed"
	// StateSkipped marks tasks never started because a task in their
	// transitive prerequisite set failed.
	StateSkipped State = "skipped"
)

// TaskReport is the per-task diagnostic record for a finished run.
type TaskReport struct {
	Name     string
	State    State
	Duration time.Duration
	Err      error
}

// RunReport summarizes a completed run, successful or not.
type RunReport struct {
	// RunID uniquely identifies this run in diagnostic output.
	RunID   string
	Started time.Time
	Elapsed time.Duration
	Tasks   map[string]TaskReport
}
