package playbook

import (
	"fmt"
	"strings"
)

// Validate checks structural invariants: at least one step, unique step
// names, known dependencies and an acyclic dependency graph.
func (p *Playbook) Validate() error {
	if len(p.Steps) == 0 {
		return validateErr("", "steps", "", ErrNoSteps)
	}

	index := make(map[string]int, len(p.Steps))
	for i, s := range p.Steps {
		if _, dup := index[s.Name]; dup {
			return validateErr(s.Name, "name", "", ErrDuplicateStep)
		}
		index[s.Name] = i
	}

	for _, s := range p.Steps {
		for _, dep := range s.DependsOn {
			if _, ok := index[dep]; !ok {
				return validateErr(s.Name, "depends_on", fmt.Sprintf("%q", dep), ErrUnknownDependency)
			}
		}
	}

	if cycle := findCycle(p.Steps, index); cycle != nil {
		return validateErr(cycle[0], "depends_on", strings.Join(cycle, " -> "), ErrDependencyCycle)
	}
	return nil
}

const (
	unvisited = iota
	visiting
	done
)

// findCycle returns the first cycle found as a closed path of step names
// (first == last), or nil when the graph is acyclic.
func findCycle(steps []Step, index map[string]int) []string {
	state := make([]int, len(steps))
	var stack []string

	var visit func(i int) []string
	visit = func(i int) []string {
		state[i] = visiting
		stack = append(stack, steps[i].Name)
		for _, dep := range steps[i].DependsOn {
			j := index[dep]
			switch state[j] {
			case visiting:
				start := 0
				for k, n := range stack {
					if n == dep {
						start = k
						break
					}
				}
				cycle := append([]string{}, stack[start:]...)
				return append(cycle, dep)
			case unvisited:
				if c := visit(j); c != nil {
					return c
				}
			}
		}
		stack = stack[:len(stack)-1]
		state[i] = done
		return nil
	}

	for i := range steps {
		if state[i] == unvisited {
			if c := visit(i); c != nil {
				return c
			}
		}
	}
	return nil
}

// Order returns the steps in dependency order. Among steps whose
// dependencies are satisfied, declaration order wins. The playbook must
// have passed Validate.
func (p *Playbook) Order() []Step {
	index := make(map[string]int, len(p.Steps))
	for i, s := range p.Steps {
		index[s.Name] = i
	}

	indegree := make([]int, len(p.Steps))
	dependents := make([][]int, len(p.Steps))
	for i, s := range p.Steps {
		for _, dep := range s.DependsOn {
			j := index[dep]
			indegree[i]++
			dependents[j] = append(dependents[j], i)
		}
	}

	emitted := make([]bool, len(p.Steps))
	out := make([]Step, 0, len(p.Steps))
	for len(out) < len(p.Steps) {
		next := -1
		for i := range p.Steps {
			if !emitted[i] && indegree[i] == 0 {
				next = i
				break
			}
		}
		if next < 0 {
			// cycle; Validate rejects this
			return out
		}
		emitted[next] = true
		out = append(out, p.Steps[next])
		for _, d := range dependents[next] {
			indegree[d]--
		}
	}
	return out
}
