// SPDX-License-Identifier: AGPL-3.0-or-later

package taskgraph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pyaythar-k/sam-plugin-sub000/internal/registry"
)

func strPtr(s string) *string { return &s }

// chainRegistry builds 1.1 <- 1.2 <- 2.1, with 2.2 independent.
func chainRegistry() *registry.Registry {
	return &registry.Registry{
		Metadata: registry.Metadata{FeatureID: "001"},
		Phases: []registry.Phase{
			{
				PhaseID: "1", PhaseName: "Data Layer",
				Tasks: []registry.Task{
					{TaskID: "1.1", Title: "Create schema", Status: registry.StatusCompleted,
						Dependencies: []string{}, StoryMapping: strPtr("US-1")},
					{TaskID: "1.2", Title: "Add repository", Status: registry.StatusPending,
						Dependencies: []string{"1.1"}, StoryMapping: strPtr("US-1")},
				},
			},
			{
				PhaseID: "2", PhaseName: "API Layer",
				Tasks: []registry.Task{
					{TaskID: "2.1", Title: "Expose endpoint", Status: registry.StatusPending,
						Dependencies: []string{"1.2"}, StoryMapping: strPtr("US-2")},
					{TaskID: "2.2", Title: "Write docs", Status: registry.StatusPending,
						Dependencies: []string{}},
				},
			},
		},
	}
}

func TestGraphDependents(t *testing.T) {
	g := New(chainRegistry())

	assert.Equal(t, 4, g.Len())
	assert.Equal(t, []string{"1.2"}, g.Dependents("1.1"))
	assert.Equal(t, []string{"2.1"}, g.Dependents("1.2"))
	assert.Empty(t, g.Dependents("2.2"))

	trans := g.TransitiveDependents("1.1")
	assert.True(t, trans["1.2"])
	assert.True(t, trans["2.1"])
	assert.False(t, trans["2.2"])
}

func TestGraphIgnoresUnknownDependencies(t *testing.T) {
	reg := chainRegistry()
	reg.Phases[0].Tasks[1].Dependencies = append(reg.Phases[0].Tasks[1].Dependencies, "9.9")

	g := New(reg)
	assert.Empty(t, g.Dependents("9.9"))
	assert.Empty(t, g.DetectCycles())
}

func TestBlockingChains(t *testing.T) {
	g := New(chainRegistry())
	chains := g.BlockingChains()

	// 1.1 is completed, so it blocks nothing; 1.2 blocks 2.1.
	assert.NotContains(t, chains, "1.1")
	assert.Equal(t, []string{"2.1"}, chains["1.2"])
}

func TestDetectCyclesFindsBackEdge(t *testing.T) {
	reg := chainRegistry()
	// Close the loop: 1.1 depends on 2.1.
	reg.Phases[0].Tasks[0].Dependencies = []string{"2.1"}

	g := New(reg)
	cycles := g.DetectCycles()
	require.Len(t, cycles, 1)

	cycle := cycles[0]
	assert.Equal(t, cycle[0], cycle[len(cycle)-1])
	assert.Contains(t, cycle, "1.1")
	assert.Contains(t, cycle, "1.2")
	assert.Contains(t, cycle, "2.1")
}

func TestDetectCyclesCleanGraph(t *testing.T) {
	g := New(chainRegistry())
	assert.Empty(t, g.DetectCycles())
}

func TestDetectCyclesEdgeIntoEarlierCycle(t *testing.T) {
	reg := chainRegistry()
	// 1.1 and 1.2 form a cycle; 2.1 merely depends into it and 2.2 depends
	// on 2.1, so neither is part of a cycle themselves.
	reg.Phases[0].Tasks[0].Dependencies = []string{"1.2"}
	reg.Phases[1].Tasks[1].Dependencies = []string{"2.1"}

	g := New(reg)
	cycles := g.DetectCycles()
	require.Len(t, cycles, 1)
	assert.Equal(t, []string{"1.1", "1.2", "1.1"}, cycles[0])
}

func TestSuggestCycleResolution(t *testing.T) {
	suggestions := SuggestCycleResolution([]string{"1.1", "1.2", "1.1"})
	require.NotEmpty(t, suggestions)
	assert.Contains(t, suggestions[0], "1.1 -> 1.2 -> 1.1")
	assert.Contains(t, suggestions[1], "Break the cycle at 1.2")
}

func TestAnalyzeTaskImpact(t *testing.T) {
	g := New(chainRegistry())
	report, err := g.AnalyzeTaskImpact("001", "1.1")
	require.NoError(t, err)

	assert.Equal(t, "1.1", report.Target)
	assert.Equal(t, "task", report.TargetType)
	require.Len(t, report.DirectImpact, 1)
	assert.Equal(t, "1.2", report.DirectImpact[0].ID)
	require.Len(t, report.TransitiveImpact, 1)
	assert.Equal(t, "2.1", report.TransitiveImpact[0].ID)
	assert.NotEmpty(t, report.Recommendations)
	assert.Contains(t, report.MermaidGraph, "graph TD")
}

func TestAnalyzeTaskImpactUnknownTask(t *testing.T) {
	g := New(chainRegistry())
	_, err := g.AnalyzeTaskImpact("001", "9.9")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "task not found")
}

func TestAnalyzeStoryImpact(t *testing.T) {
	g := New(chainRegistry())
	report := g.AnalyzeStoryImpact("001", "US-1")

	assert.Equal(t, "story", report.TargetType)
	ids := make([]string, 0, len(report.DirectImpact))
	for _, task := range report.DirectImpact {
		ids = append(ids, task.ID)
	}
	// Both mapped tasks plus the dependent of 1.2.
	assert.ElementsMatch(t, []string{"1.1", "1.2", "2.1"}, ids)
	require.Len(t, report.AffectedStories, 1)
	assert.Equal(t, "US-1", report.AffectedStories[0].StoryID)
}

func TestAnalyzeStoryImpactUnmappedStory(t *testing.T) {
	g := New(chainRegistry())
	report := g.AnalyzeStoryImpact("001", "US-404")

	assert.Empty(t, report.DirectImpact)
	assert.Equal(t, RiskLow, report.RiskLevel)
}

func TestMermaidFullGroupsByPhase(t *testing.T) {
	g := New(chainRegistry())
	out := g.MermaidFull(false)

	assert.Contains(t, out, "subgraph Phase_1[Data Layer]")
	assert.Contains(t, out, "subgraph Phase_2[API Layer]")
	assert.Contains(t, out, "1_1 -->|depends| 1_2")
}

func TestMermaidFullHighlightsCycles(t *testing.T) {
	reg := chainRegistry()
	reg.Phases[0].Tasks[0].Dependencies = []string{"2.1"}

	g := New(reg)
	out := g.MermaidFull(true)
	assert.Contains(t, out, "==>|CYCLE|")
}
