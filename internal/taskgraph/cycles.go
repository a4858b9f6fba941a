// SPDX-License-Identifier: AGPL-3.0-or-later

package taskgraph

import "fmt"

// Cycle detection uses three-color DFS: white (unvisited), gray (on the
// current path), black (done). A dependency edge into a gray node closes a
// cycle. Traversal order is sorted task IDs so results are deterministic.

type color int

const (
	white color = iota
	gray
	black
)

// DetectCycles returns every cycle found in the dependency graph. Each cycle
// is a task ID path that ends where it starts (e.g. [A B A]).
func (g *Graph) DetectCycles() [][]string {
	colors := make(map[string]color, len(g.nodes))
	var cycles [][]string
	var path []string

	var dfs func(id string) bool
	dfs = func(id string) bool {
		colors[id] = gray
		path = append(path, id)

		found := false
		for _, dep := range g.sortedDeps(id) {
			switch colors[dep] {
			case gray:
				// Back edge: slice the cycle out of the current path. A gray
				// node is always on the path because the unwind below runs on
				// every return.
				start := 0
				for i, p := range path {
					if p == dep {
						start = i
						break
					}
				}
				cycle := append(append([]string(nil), path[start:]...), dep)
				cycles = append(cycles, cycle)
				found = true
			case white:
				found = dfs(dep)
			}
			if found {
				break
			}
		}

		colors[id] = black
		path = path[:len(path)-1]
		return found
	}

	for _, id := range g.TaskIDs() {
		if colors[id] == white {
			path = path[:0]
			dfs(id)
		}
	}
	return cycles
}

func (g *Graph) sortedDeps(id string) []string {
	n := g.nodes[id]
	if n == nil {
		return nil
	}
	var deps []string
	for _, dep := range n.Dependencies {
		if _, ok := g.nodes[dep]; ok {
			deps = append(deps, dep)
		}
	}
	return deps
}

// SuggestCycleResolution produces human-readable resolution options for a cycle.
func SuggestCycleResolution(cycle []string) []string {
	if len(cycle) < 2 {
		return nil
	}
	last := cycle[len(cycle)-2]
	first := cycle[0]

	return []string{
		fmt.Sprintf("Circular dependency detected: %s", joinArrow(cycle)),
		fmt.Sprintf("Break the cycle at %s: remove its dependency on %s, or mark %s completed if it is actually done.", last, first, first),
		"Extract the shared functionality into a new task and depend on that instead.",
		fmt.Sprintf("Merge %s into a single task.", joinComma(cycle[:len(cycle)-1])),
		"Review whether the dependencies are hard requirements or just ordering preferences.",
	}
}

func joinArrow(ids []string) string {
	out := ""
	for i, id := range ids {
		if i > 0 {
			out += " -> "
		}
		out += id
	}
	return out
}

func joinComma(ids []string) string {
	out := ""
	for i, id := range ids {
		if i > 0 {
			out += ", "
		}
		out += id
	}
	return out
}
