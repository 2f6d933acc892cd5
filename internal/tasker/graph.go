package tasker

import "sort"

// Graph is an immutable, validated set of named tasks rooted at a
// designated target task. It is safe for concurrent read access; a Graph
// can be run any number of times.
type Graph struct {
	tasks map[string]Task
	root  string
	// reach holds the names reachable from root (root included), the
	// only tasks a run ever starts.
	reach map[string]struct{}
}

// NewGraph builds and validates a graph. Validation runs immediately and
// rejects empty or duplicate task names, a missing root, prerequisites
// referencing unknown tasks, and any dependency cycle reachable from the
// root. No callback executes during validation.
func NewGraph(root string, tasks ...Task) (*Graph, error) {
	if len(tasks) == 0 {
		return nil, invalidf("no tasks")
	}
	byName := make(map[string]Task, len(tasks))
	for _, t := range tasks {
		if t.Name == "" {
			return nil, invalidf("task name is required")
		}
		if _, dup := byName[t.Name]; dup {
			return nil, invalidf("duplicate task name: %q", t.Name)
		}
		if t.Run == nil {
			return nil, invalidf("task %q has no callback", t.Name)
		}
		byName[t.Name] = t
	}
	if _, ok := byName[root]; !ok {
		return nil, invalidf("unknown root task: %q", root)
	}
	for _, t := range byName {
		for _, need := range t.Needs {
			if _, ok := byName[need]; !ok {
				return nil, invalidf("task %q needs unknown task %q", t.Name, need)
			}
		}
	}

	g := &Graph{tasks: byName, root: root}
	if err := g.checkAcyclic(); err != nil {
		return nil, err
	}
	g.reach = g.reachable()
	return g, nil
}

// Root returns the designated target task name.
func (g *Graph) Root() string { return g.root }

// Names returns every task name in the graph, sorted.
func (g *Graph) Names() []string {
	names := make([]string, 0, len(g.tasks))
	for name := range g.tasks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// checkAcyclic walks the prerequisite relation from the root with a
// three-color DFS and reports one cycle path as a witness.
func (g *Graph) checkAcyclic() error {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[string]int, len(g.tasks))
	var stack []string

	var dfs func(name string) []string
	dfs = func(name string) []string {
		color[name] = gray
		stack = append(stack, name)
		for _, need := range g.tasks[name].Needs {
			switch color[need] {
			case white:
				if cycle := dfs(need); cycle != nil {
					return cycle
				}
			case gray:
				// Back edge: slice the stack from the first occurrence
				// of need and close the loop.
				for i, n := range stack {
					if n == need {
						cycle := append([]string{}, stack[i:]...)
						return append(cycle, need)
					}
				}
			}
		}
		stack = stack[:len(stack)-1]
		color[name] = black
		return nil
	}

	if cycle := dfs(g.root); cycle != nil {
		return cycleError(cycle)
	}
	return nil
}

// reachable collects the prerequisite closure of the root. Tasks outside
// it are ignored by Run.
func (g *Graph) reachable() map[string]struct{} {
	seen := make(map[string]struct{}, len(g.tasks))
	queue := []string{g.root}
	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		queue = append(queue, g.tasks[name].Needs...)
	}
	return seen
}
