// SPDX-License-Identifier: AGPL-3.0-or-later

package taskgraph

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pyaythar-k/sam-plugin-sub000/internal/registry"
)

// Mermaid node IDs cannot contain dots.
func nodeID(taskID string) string {
	return strings.ReplaceAll(taskID, ".", "_")
}

// MermaidForTask renders the impact neighborhood of one task as a Mermaid
// graph: the task, its direct dependents and their transitive dependents.
func (g *Graph) MermaidForTask(taskID string) string {
	n := g.nodes[taskID]
	if n == nil {
		return ""
	}

	var b strings.Builder
	b.WriteString("graph TD\n")
	fmt.Fprintf(&b, "    %s[%s: %s]\n", nodeID(taskID), taskID, n.Title)
	fmt.Fprintf(&b, "    style %s fill:#ff6b6b,stroke:#c92a2a,stroke-width:3px\n", nodeID(taskID))

	direct := g.Dependents(taskID)
	directSet := make(map[string]bool)
	for _, dep := range direct {
		directSet[dep] = true
		fmt.Fprintf(&b, "    %s[%s: %s]\n", nodeID(dep), dep, g.nodes[dep].Title)
		fmt.Fprintf(&b, "    %s -->|direct| %s\n", nodeID(taskID), nodeID(dep))
		fmt.Fprintf(&b, "    style %s fill:#ffd43b,stroke:#fab005,stroke-width:2px\n", nodeID(dep))
	}

	transitive := make(map[string]bool)
	for _, dep := range direct {
		for t := range g.TransitiveDependents(dep) {
			if !directSet[t] && t != taskID {
				transitive[t] = true
			}
		}
	}
	for _, trans := range sortedKeys(transitive) {
		fmt.Fprintf(&b, "    %s[%s: %s]\n", nodeID(trans), trans, g.nodes[trans].Title)
		for _, dep := range direct {
			if g.TransitiveDependents(dep)[trans] {
				fmt.Fprintf(&b, "    %s -.->|transitive| %s\n", nodeID(dep), nodeID(trans))
				break
			}
		}
		fmt.Fprintf(&b, "    style %s fill:#d3f9d8,stroke:#37b24d,stroke-width:1px\n", nodeID(trans))
	}

	return strings.TrimRight(b.String(), "\n")
}

// MermaidForStory renders a story node connected to its mapped tasks and
// their direct dependents.
func (g *Graph) MermaidForStory(storyID string, storyTasks []string) string {
	var b strings.Builder
	b.WriteString("graph TD\n")
	fmt.Fprintf(&b, "    Story_%s[Story %s]\n", storyID, storyID)
	fmt.Fprintf(&b, "    style Story_%s fill:#ff6b6b,stroke:#c92a2a,stroke-width:3px\n", storyID)

	for _, taskID := range storyTasks {
		n := g.nodes[taskID]
		if n == nil {
			continue
		}
		fmt.Fprintf(&b, "    %s[%s: %s]\n", nodeID(taskID), taskID, n.Title)
		fmt.Fprintf(&b, "    Story_%s -->|maps to| %s\n", storyID, nodeID(taskID))

		for _, dep := range g.Dependents(taskID) {
			fmt.Fprintf(&b, "    %s[%s: %s]\n", nodeID(dep), dep, g.nodes[dep].Title)
			fmt.Fprintf(&b, "    %s -->|dependent| %s\n", nodeID(taskID), nodeID(dep))
		}
	}

	return strings.TrimRight(b.String(), "\n")
}

// MermaidFull renders the complete dependency graph grouped by phase, with
// cycle edges emphasized when highlightCycles is set.
func (g *Graph) MermaidFull(highlightCycles bool) string {
	var b strings.Builder
	b.WriteString("graph TD\n")
	b.WriteString("    subgraph Phases\n")

	phaseGroups := make(map[string][]*Node)
	for _, id := range g.TaskIDs() {
		n := g.nodes[id]
		phaseGroups[n.PhaseID] = append(phaseGroups[n.PhaseID], n)
	}

	var phaseIDs []string
	for id := range phaseGroups {
		phaseIDs = append(phaseIDs, id)
	}
	sort.Strings(phaseIDs)

	for _, phaseID := range phaseIDs {
		nodes := phaseGroups[phaseID]
		fmt.Fprintf(&b, "        subgraph Phase_%s[%s]\n", phaseID, nodes[0].PhaseName)
		for _, n := range nodes {
			fill := "#868e96"
			if n.Status == registry.StatusCompleted {
				fill = "#51cf66"
			}
			fmt.Fprintf(&b, "            %s[%s: %s]\n", nodeID(n.TaskID), n.TaskID, n.Title)
			fmt.Fprintf(&b, "            style %s fill:%s,stroke:#228be6,stroke-width:1px\n", nodeID(n.TaskID), fill)
		}
		b.WriteString("        end\n")
	}
	b.WriteString("    end\n")

	cycleTasks := make(map[string]bool)
	if highlightCycles {
		for _, cycle := range g.DetectCycles() {
			for _, id := range cycle {
				cycleTasks[id] = true
			}
		}
	}

	for _, id := range g.TaskIDs() {
		for _, dep := range g.sortedDeps(id) {
			if highlightCycles && cycleTasks[id] && cycleTasks[dep] {
				fmt.Fprintf(&b, "    %s ==>|CYCLE| %s\n", nodeID(dep), nodeID(id))
				fmt.Fprintf(&b, "    style %s stroke:#ff0000,stroke-width:3px\n", nodeID(id))
				fmt.Fprintf(&b, "    style %s stroke:#ff0000,stroke-width:3px\n", nodeID(dep))
			} else {
				fmt.Fprintf(&b, "    %s -->|depends| %s\n", nodeID(dep), nodeID(id))
			}
		}
	}

	return strings.TrimRight(b.String(), "\n")
}
