// SPDX-License-Identifier: AGPL-3.0-or-later

// Package taskgraph analyzes dependency relationships between registry tasks:
// cycle detection, impact analysis and dependency graph rendering.
package taskgraph

import (
	"sort"

	"github.com/pyaythar-k/sam-plugin-sub000/internal/registry"
)

// Node is a task with its phase context, as seen by the graph.
type Node struct {
	TaskID       string
	Title        string
	Status       string
	PhaseID      string
	PhaseName    string
	Dependencies []string
	StoryMapping string
	SpecFile     string
}

// Graph holds the task dependency graph for one feature registry.
type Graph struct {
	nodes map[string]*Node
	// dependents maps a task to the tasks that depend on it.
	dependents map[string]map[string]bool
}

// New builds a graph from a loaded registry. Dependency references to unknown
// task IDs are kept on the node but never traversed.
func New(reg *registry.Registry) *Graph {
	g := &Graph{
		nodes:      make(map[string]*Node),
		dependents: make(map[string]map[string]bool),
	}

	for _, phase := range reg.Phases {
		for _, t := range phase.Tasks {
			n := &Node{
				TaskID:       t.TaskID,
				Title:        t.Title,
				Status:       t.Status,
				PhaseID:      phase.PhaseID,
				PhaseName:    phase.PhaseName,
				Dependencies: append([]string(nil), t.Dependencies...),
				SpecFile:     t.SpecFile,
			}
			if t.StoryMapping != nil {
				n.StoryMapping = *t.StoryMapping
			}
			g.nodes[t.TaskID] = n
		}
	}

	for id, n := range g.nodes {
		for _, dep := range n.Dependencies {
			if _, ok := g.nodes[dep]; !ok {
				continue
			}
			if g.dependents[dep] == nil {
				g.dependents[dep] = make(map[string]bool)
			}
			g.dependents[dep][id] = true
		}
	}
	return g
}

// Node returns the node for a task ID, or nil.
func (g *Graph) Node(taskID string) *Node {
	return g.nodes[taskID]
}

// Len returns the number of tasks in the graph.
func (g *Graph) Len() int {
	return len(g.nodes)
}

// TaskIDs returns all task IDs in sorted order.
func (g *Graph) TaskIDs() []string {
	ids := make([]string, 0, len(g.nodes))
	for id := range g.nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Dependents returns the direct dependents of a task, sorted.
func (g *Graph) Dependents(taskID string) []string {
	return sortedKeys(g.dependents[taskID])
}

// TransitiveDependents returns every task that transitively depends on taskID.
func (g *Graph) TransitiveDependents(taskID string) map[string]bool {
	return g.walk(taskID, func(id string) []string { return sortedKeys(g.dependents[id]) })
}

// TransitiveDependencies returns every task that taskID transitively depends on.
func (g *Graph) TransitiveDependencies(taskID string) map[string]bool {
	return g.walk(taskID, func(id string) []string {
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
	})
}

func (g *Graph) walk(start string, next func(string) []string) map[string]bool {
	visited := make(map[string]bool)
	stack := []string{start}

	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if visited[cur] {
			continue
		}
		visited[cur] = true
		for _, n := range next(cur) {
			if !visited[n] {
				stack = append(stack, n)
			}
		}
	}
	delete(visited, start)
	return visited
}

// BlockingChains maps each incomplete blocker task to the incomplete tasks it
// is blocking, sorted by blocker ID.
func (g *Graph) BlockingChains() map[string][]string {
	chains := make(map[string][]string)
	for _, id := range g.TaskIDs() {
		n := g.nodes[id]
		if n.Status == registry.StatusCompleted {
			continue
		}
		for _, dep := range n.Dependencies {
			depNode := g.nodes[dep]
			if depNode == nil || depNode.Status == registry.StatusCompleted {
				continue
			}
			chains[dep] = append(chains[dep], id)
		}
	}
	for k := range chains {
		sort.Strings(chains[k])
	}
	return chains
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
