package tasker

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type completion struct {
	name     string
	result   any
	err      error
	duration time.Duration
}

// Run executes the graph and returns the root task's result.
//
// Tasks with no unmet prerequisites start immediately; as each task
// completes successfully, every dependent whose full prerequisite set is
// satisfied starts. Independent tasks run concurrently. The first
// callback failure aborts the run: tasks not yet started whose
// transitive dependency set includes the failed task are reported
// skipped, tasks already running finish but their results are discarded,
// and the returned error is a *TaskError naming the origin.
//
// The report is returned for both successful and failed runs.
func Run(ctx context.Context, g *Graph) (any, *RunReport, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	started := time.Now()
	report := &RunReport{
		RunID:   uuid.NewString(),
		Started: started,
		Tasks:   make(map[string]TaskReport, len(g.reach)),
	}

	state := make(map[string]State, len(g.reach))
	results := make(map[string]any, len(g.reach))
	unmet := make(map[string]int, len(g.reach))
	dependents := make(map[string][]string, len(g.reach))
	for name := range g.reach {
		state[name] = StatePending
		unmet[name] = len(g.tasks[name].Needs)
		for _, need := range g.tasks[name].Needs {
			dependents[need] = append(dependents[need], name)
		}
	}

	// Buffered to the closure size so callbacks still running when the
	// run is cancelled can deliver their completion and exit instead of
	// blocking on a send nobody receives.
	done := make(chan completion, len(g.reach))
	inFlight := 0

	start := func(name string) {
		task := g.tasks[name]
		deps := make([]any, len(task.Needs))
		for i, need := range task.Needs {
			deps[i] = results[need]
		}
		state[name] = StateRunning
		inFlight++
		go func() {
			began := time.Now()
			result, err := task.Run(ctx, deps)
			done <- completion{name: name, result: result, err: err, duration: time.Since(began)}
		}()
	}

	for name := range g.reach {
		if unmet[name] == 0 {
			start(name)
		}
	}

	var failure *TaskError

	// skipDownstream marks every pending task reachable from origin
	// through the dependent relation as skipped.
	skipDownstream := func(origin string) {
		queue := append([]string{}, dependents[origin]...)
		for len(queue) > 0 {
			name := queue[0]
			queue = queue[1:]
			if state[name] != StatePending {
				continue
			}
			state[name] = StateSkipped
			queue = append(queue, dependents[name]...)
		}
	}

	for inFlight > 0 {
		select {
		case <-ctx.Done():
			finishReport(report, state, started)
			return nil, report, fmt.Errorf("task run cancelled: %w", ctx.Err())
		case c := <-done:
			inFlight--
			if c.err != nil {
				state[c.name] = StateFailed
				report.Tasks[c.name] = TaskReport{Name: c.name, State: StateFailed, Duration: c.duration, Err: c.err}
				if failure == nil {
					failure = &TaskError{Task: c.name, Err: c.err}
				}
				skipDownstream(c.name)
				continue
			}
			state[c.name] = StateDone
			report.Tasks[c.name] = TaskReport{Name: c.name, State: StateDone, Duration: c.duration}
			if failure != nil {
				// A failure already settled the run; the late result is
				// discarded and nothing downstream starts.
				continue
			}
			results[c.name] = c.result
			for _, dep := range dependents[c.name] {
				unmet[dep]--
				if unmet[dep] == 0 && state[dep] == StatePending {
					start(dep)
				}
			}
		}
	}

	finishReport(report, state, started)

	if failure != nil {
		return nil, report, failure
	}
	if state[g.root] != StateDone {
		// A validated acyclic graph always reaches its root; this guards
		// against state-machine bugs, not expected inputs.
		return nil, report, fmt.Errorf("root task %q never became ready", g.root)
	}
	return results[g.root], report, nil
}

func finishReport(report *RunReport, state map[string]State, started time.Time) {
	report.Elapsed = time.Since(started)
	for name, st := range state {
		if _, recorded := report.Tasks[name]; recorded {
			continue
		}
		report.Tasks[name] = TaskReport{Name: name, State: st}
	}
}
