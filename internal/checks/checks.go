// SPDX-License-Identifier: AGPL-3.0-or-later
package checks

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pyaythar-k/sam-plugin-sub000/internal/gate"
	"github.com/pyaythar-k/sam-plugin-sub000/internal/registry"
	"github.com/pyaythar-k/sam-plugin-sub000/internal/scanner"
	"github.com/pyaythar-k/sam-plugin-sub000/internal/scenario"
	"github.com/pyaythar-k/sam-plugin-sub000/internal/taskgraph"
)

// All returns the canonical check sequence.
func All() []Check {
	return []Check{
		NewRegistryIntegrity(),
		NewDependencyCycles(),
		NewArtifactPresence(),
		NewScenarioCoverage(),
		NewCoverageThreshold(),
	}
}

// RegistryIntegrity verifies TASKS.json loads and its metadata counts match
// the actual task lists.
type RegistryIntegrity struct{}

func NewRegistryIntegrity() Check { return &RegistryIntegrity{} }

func (c *RegistryIntegrity) ID() string { return "registry:integrity" }

func (c *RegistryIntegrity) Run(ctx context.Context, deps *Deps) Result {
	store := registry.NewStore(deps.FeatureDir)
	if !store.Exists() {
		return Result{Check: c.ID(), Status: StatusSkip, Note: "no TASKS.json for this feature"}
	}
	reg, err := store.Load()
	if err != nil {
		return Result{Check: c.ID(), Status: StatusFail, Note: err.Error()}
	}

	total, completed := reg.TaskCounts()
	var problems []string
	if reg.Metadata.TotalTasks != fmt.Sprintf("%d", total) {
		problems = append(problems, fmt.Sprintf("metadata total_tasks %s does not match %d tasks", reg.Metadata.TotalTasks, total))
	}
	if reg.Metadata.CompletedTasks != fmt.Sprintf("%d", completed) {
		problems = append(problems, fmt.Sprintf("metadata completed_tasks %s does not match %d completed", reg.Metadata.CompletedTasks, completed))
	}

	seen := make(map[string]bool)
	for _, phase := range reg.Phases {
		for _, task := range phase.Tasks {
			if seen[task.TaskID] {
				problems = append(problems, "duplicate task id "+task.TaskID)
			}
			seen[task.TaskID] = true
		}
	}
	for _, phase := range reg.Phases {
		for _, task := range phase.Tasks {
			for _, dep := range task.Dependencies {
				if !seen[dep] {
					problems = append(problems, fmt.Sprintf("task %s depends on unknown task %s", task.TaskID, dep))
				}
			}
		}
	}

	if len(problems) > 0 {
		return Result{Check: c.ID(), Status: StatusFail, Note: strings.Join(problems, "; ")}
	}
	return Result{Check: c.ID(), Status: StatusPass, Note: fmt.Sprintf("%d tasks, %d completed", total, completed)}
}

// DependencyCycles fails when the task graph contains a cycle.
type DependencyCycles struct{}

func NewDependencyCycles() Check { return &DependencyCycles{} }

func (c *DependencyCycles) ID() string { return "registry:cycles" }

func (c *DependencyCycles) Run(ctx context.Context, deps *Deps) Result {
	store := registry.NewStore(deps.FeatureDir)
	if !store.Exists() {
		return Result{Check: c.ID(), Status: StatusSkip, Note: "no TASKS.json for this feature"}
	}
	reg, err := store.Load()
	if err != nil {
		return Result{Check: c.ID(), Status: StatusFail, Note: err.Error()}
	}

	cycles := taskgraph.New(reg).DetectCycles()
	if len(cycles) > 0 {
		parts := make([]string, len(cycles))
		for i, cycle := range cycles {
			parts[i] = strings.Join(cycle, " -> ")
		}
		return Result{Check: c.ID(), Status: StatusFail, Note: strings.Join(parts, "; ")}
	}
	return Result{Check: c.ID(), Status: StatusPass}
}

// ArtifactPresence verifies the artifacts a feature's stage implies.
type ArtifactPresence struct{}

func NewArtifactPresence() Check { return &ArtifactPresence{} }

func (c *ArtifactPresence) ID() string { return "artifacts:present" }

func (c *ArtifactPresence) Run(ctx context.Context, deps *Deps) Result {
	// A registry implies the planning artifacts that produce one.
	if !registry.NewStore(deps.FeatureDir).Exists() {
		return Result{Check: c.ID(), Status: StatusSkip, Note: "feature has no registry yet"}
	}

	var missing []string
	for _, name := range []string{"TECHNICAL_SPEC.md"} {
		if _, err := os.Stat(filepath.Join(deps.FeatureDir, name)); err != nil {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return Result{Check: c.ID(), Status: StatusFail, Note: "missing " + strings.Join(missing, ", ")}
	}

	// Rollback checkpoints only capture tracked files, so the planning
	// documents must be committed, not just present on disk.
	if untracked := untrackedDocs(ctx, deps); len(untracked) > 0 {
		return Result{Check: c.ID(), Status: StatusFail,
			Note: "not tracked in git: " + strings.Join(untracked, ", ")}
	}
	return Result{Check: c.ID(), Status: StatusPass}
}

func untrackedDocs(ctx context.Context, deps *Deps) []string {
	tracked, err := scanner.New(deps.ProjectDir).TrackedMarkdownFiles(ctx)
	if err != nil {
		// Outside a git worktree there is nothing to verify.
		return nil
	}
	trackedSet := make(map[string]bool, len(tracked))
	for _, f := range tracked {
		trackedSet[filepath.ToSlash(f)] = true
	}

	var untracked []string
	for _, name := range []string{"TECHNICAL_SPEC.md"} {
		rel, err := filepath.Rel(deps.ProjectDir, filepath.Join(deps.FeatureDir, name))
		if err != nil {
			continue
		}
		if !trackedSet[filepath.ToSlash(rel)] {
			untracked = append(untracked, name)
		}
	}
	return untracked
}

// ScenarioCoverage verifies every pending task has at least one scenario
// mapped to it when an executable spec exists.
type ScenarioCoverage struct{}

func NewScenarioCoverage() Check { return &ScenarioCoverage{} }

func (c *ScenarioCoverage) ID() string { return "scenarios:coverage" }

func (c *ScenarioCoverage) Run(ctx context.Context, deps *Deps) Result {
	specPath := filepath.Join(deps.FeatureDir, "EXECUTABLE_SPEC.yaml")
	if _, err := os.Stat(specPath); err != nil {
		return Result{Check: c.ID(), Status: StatusSkip, Note: "no EXECUTABLE_SPEC.yaml"}
	}
	spec, err := scenario.Load(specPath)
	if err != nil {
		return Result{Check: c.ID(), Status: StatusFail, Note: err.Error()}
	}

	store := registry.NewStore(deps.FeatureDir)
	if !store.Exists() {
		return Result{Check: c.ID(), Status: StatusSkip, Note: "no TASKS.json for this feature"}
	}
	reg, err := store.Load()
	if err != nil {
		return Result{Check: c.ID(), Status: StatusFail, Note: err.Error()}
	}

	covered := make(map[string]bool)
	for _, sc := range spec.Scenarios {
		if sc.TaskID != "" {
			covered[sc.TaskID] = true
		}
	}

	var uncovered []string
	for _, task := range reg.PendingTasks("") {
		if !covered[task.TaskID] {
			uncovered = append(uncovered, task.TaskID)
		}
	}
	if len(uncovered) > 0 {
		return Result{Check: c.ID(), Status: StatusFail,
			Note: "pending tasks without scenarios: " + strings.Join(uncovered, ", ")}
	}
	return Result{Check: c.ID(), Status: StatusPass, Note: fmt.Sprintf("%d scenarios", len(spec.Scenarios))}
}

// CoverageThreshold verifies recorded coverage meets the current phase's
// gate requirement.
type CoverageThreshold struct{}

func NewCoverageThreshold() Check { return &CoverageThreshold{} }

func (c *CoverageThreshold) ID() string { return "coverage:threshold" }

func (c *CoverageThreshold) Run(ctx context.Context, deps *Deps) Result {
	store := registry.NewStore(deps.FeatureDir)
	if !store.Exists() {
		return Result{Check: c.ID(), Status: StatusSkip, Note: "no TASKS.json for this feature"}
	}
	reg, err := store.Load()
	if err != nil {
		return Result{Check: c.ID(), Status: StatusFail, Note: err.Error()}
	}

	phase := reg.CurrentPhase()
	if phase == nil {
		return Result{Check: c.ID(), Status: StatusSkip, Note: "all phases completed"}
	}
	required := gate.CriteriaFor(phase.PhaseID).MinCoverage
	if required == 0 {
		return Result{Check: c.ID(), Status: StatusSkip,
			Note: fmt.Sprintf("phase %s has no coverage requirement", phase.PhaseID)}
	}
	if reg.Checkpoint.CoveragePercentage == nil {
		return Result{Check: c.ID(), Status: StatusFail,
			Note: fmt.Sprintf("no coverage recorded; phase %s requires %.0f%%", phase.PhaseID, required)}
	}
	cov := *reg.Checkpoint.CoveragePercentage
	if cov < required {
		return Result{Check: c.ID(), Status: StatusFail,
			Note: fmt.Sprintf("coverage %.1f%% below required %.0f%%", cov, required)}
	}
	return Result{Check: c.ID(), Status: StatusPass, Note: fmt.Sprintf("coverage %.1f%%", cov)}
}
