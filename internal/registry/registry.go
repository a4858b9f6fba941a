// SPDX-License-Identifier: AGPL-3.0-or-later

package registry

import (
	"os"
	"strconv"
	"time"
)

// DefaultParallelLimit is the fallback for SAM_MAX_PARALLEL_SUBAGENTS.
const DefaultParallelLimit = 3

// TaskCounts returns the total and completed task counts across all phases.
func (r *Registry) TaskCounts() (total, completed int) {
	for _, p := range r.Phases {
		total += len(p.Tasks)
		for _, t := range p.Tasks {
			if t.Status == StatusCompleted {
				completed++
			}
		}
	}
	return total, completed
}

// FindTask returns the task with the given ID, or nil.
func (r *Registry) FindTask(taskID string) *Task {
	for pi := range r.Phases {
		for ti := range r.Phases[pi].Tasks {
			if r.Phases[pi].Tasks[ti].TaskID == taskID {
				return &r.Phases[pi].Tasks[ti]
			}
		}
	}
	return nil
}

// FindPhase returns the phase with the given ID, or nil.
func (r *Registry) FindPhase(phaseID string) *Phase {
	for i := range r.Phases {
		if r.Phases[i].PhaseID == phaseID {
			return &r.Phases[i]
		}
	}
	return nil
}

// UpdateTaskStatus sets a task's status. It reports whether the task was found.
func (r *Registry) UpdateTaskStatus(taskID, status string) bool {
	t := r.FindTask(taskID)
	if t == nil {
		return false
	}
	t.Status = status
	return true
}

// CurrentPhase returns the phase the checkpoint points at, falling back to the
// first incomplete phase.
func (r *Registry) CurrentPhase() *Phase {
	if p := r.FindPhase(r.Checkpoint.CurrentPhase); p != nil {
		return p
	}
	for i := range r.Phases {
		if r.Phases[i].Status != PhaseCompleted {
			return &r.Phases[i]
		}
	}
	return nil
}

// PendingTasks returns pending tasks, optionally restricted to one phase.
func (r *Registry) PendingTasks(phaseID string) []Task {
	if phaseID != "" {
		p := r.FindPhase(phaseID)
		if p == nil {
			return nil
		}
		return p.PendingTasks()
	}
	var out []Task
	for i := range r.Phases {
		out = append(out, r.Phases[i].PendingTasks()...)
	}
	return out
}

// CheckpointUpdate carries optional checkpoint mutations. Nil fields are left unchanged.
type CheckpointUpdate struct {
	LastCompletedTask  *string
	IterationCount     *int
	QualityGateResults map[string]string
}

// UpdateCheckpoint applies the update, stamping times for the fields it touches.
func (r *Registry) UpdateCheckpoint(u CheckpointUpdate) {
	now := time.Now().Format(time.RFC3339)

	if u.LastCompletedTask != nil {
		r.Checkpoint.LastCompletedTask = u.LastCompletedTask
		r.Checkpoint.LastCheckpointTime = &now
	}
	if u.IterationCount != nil {
		r.Checkpoint.IterationCount = *u.IterationCount
	}
	if u.QualityGateResults != nil {
		r.Checkpoint.QualityGateLastPassed = &now
		r.Checkpoint.LastQualityGateResult = u.QualityGateResults
	}
}

// ProgressSummary is the quick progress view used by the tasks CLI.
type ProgressSummary struct {
	TotalTasks        int
	CompletedTasks    int
	CoveragePercent   float64
	CurrentPhase      string
	LastCompletedTask string
	IterationCount    int
	ProjectType       string
}

// Progress computes the registry's progress summary.
func (r *Registry) Progress() ProgressSummary {
	total, completed := r.TaskCounts()

	s := ProgressSummary{
		TotalTasks:     total,
		CompletedTasks: completed,
		CurrentPhase:   r.Metadata.CurrentPhase,
		IterationCount: r.Checkpoint.IterationCount,
		ProjectType:    r.Metadata.ProjectType,
	}
	if s.CurrentPhase == "" {
		s.CurrentPhase = "1"
	}
	if s.ProjectType == "" {
		s.ProjectType = "unknown"
	}
	if total > 0 {
		s.CoveragePercent = float64(completed) / float64(total) * 100
	}
	if r.Checkpoint.LastCompletedTask != nil {
		s.LastCompletedTask = *r.Checkpoint.LastCompletedTask
	}
	return s
}

// ParallelLimit returns the maximum number of parallel subagents, from
// SAM_MAX_PARALLEL_SUBAGENTS or the default.
func ParallelLimit() int {
	if v := os.Getenv("SAM_MAX_PARALLEL_SUBAGENTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return DefaultParallelLimit
}

// PhaseStructure returns the phase IDs used for a project type.
func PhaseStructure(projectType string) []string {
	switch projectType {
	case "frontend-only", "static-site":
		return []string{"1", "2", "3", "4"}
	default: // full-stack, baas-fullstack
		return []string{"1", "2", "3", "4", "5"}
	}
}
