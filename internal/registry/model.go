// SPDX-License-Identifier: AGPL-3.0-or-later

// Package registry manages TASKS.json task registries for SAM features.
package registry

// Task statuses.
const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
)

// ValidStatus reports whether s is a recognized task status.
func ValidStatus(s string) bool {
	return s == StatusPending || s == StatusCompleted
}

// Verification statuses.
const (
	VerificationPending  = "pending"
	VerificationVerified = "verified"
	VerificationFailed   = "failed"
	VerificationPartial  = "partial"
)

// Phase statuses.
const (
	PhasePending    = "pending"
	PhaseInProgress = "in_progress"
	PhaseCompleted  = "completed"
)

// CodeMapping links a task to a concrete artifact in the codebase.
type CodeMapping struct {
	FilePath    string  `json:"file_path"`
	MappingType string  `json:"mapping_type"` // "file", "endpoint", "component"
	Name        string  `json:"name,omitempty"`
	Confidence  float64 `json:"confidence,omitempty"`
}

// VerificationMethod describes how a task's completion is verified.
type VerificationMethod struct {
	Method string `json:"method"` // "test", "manual", "review"
	Target string `json:"target,omitempty"`
	Result string `json:"result,omitempty"`
}

// Task is a single unit of work extracted from a technical specification.
type Task struct {
	TaskID       string   `json:"task_id"`
	Title        string   `json:"title"`
	Status       string   `json:"status"`
	SpecFile     string   `json:"spec_file"`
	SectionStart int      `json:"section_start"`
	SectionEnd   int      `json:"section_end"`
	ParentTaskID *string  `json:"parent_task_id"`
	Dependencies []string `json:"dependencies"`
	StoryMapping *string  `json:"story_mapping"`
	// CompletionNote carries the completion date parsed from the spec checkbox line.
	CompletionNote *string `json:"completion_note"`

	CodeMappings         []CodeMapping        `json:"code_mappings,omitempty"`
	VerificationMethods  []VerificationMethod `json:"verification_methods,omitempty"`
	VerificationStatus   string               `json:"verification_status,omitempty"`
	VerifiedAt           *string              `json:"verified_at,omitempty"`
	VerificationCoverage float64              `json:"verification_coverage,omitempty"`
}

// GateResult records the outcome of a phase gate validation.
type GateResult struct {
	Passed      bool              `json:"passed"`
	ValidatedAt string            `json:"validated_at"`
	Criteria    map[string]bool   `json:"criteria"`
	Failures    []string          `json:"failures,omitempty"`
	Details     map[string]string `json:"details,omitempty"`
}

// Phase groups tasks under a numbered workflow phase.
type Phase struct {
	PhaseID    string      `json:"phase_id"`
	PhaseName  string      `json:"phase_name"`
	Status     string      `json:"status"`
	GateResult *GateResult `json:"gate_result,omitempty"`
	Tasks      []Task      `json:"tasks"`
}

// PendingTasks returns the phase's tasks that are still pending.
func (p *Phase) PendingTasks() []Task {
	var out []Task
	for _, t := range p.Tasks {
		if t.Status == StatusPending {
			out = append(out, t)
		}
	}
	return out
}

// CompletedTasks returns the phase's tasks that are completed.
func (p *Phase) CompletedTasks() []Task {
	var out []Task
	for _, t := range p.Tasks {
		if t.Status == StatusCompleted {
			out = append(out, t)
		}
	}
	return out
}

// CoverageSample is one point of the checkpoint coverage trend.
type CoverageSample struct {
	Timestamp string  `json:"timestamp"`
	Percent   float64 `json:"percent"`
}

// ConflictStatus summarizes the most recent conflict scan.
type ConflictStatus struct {
	LastScan       string         `json:"last_scan"`
	TotalConflicts int            `json:"total_conflicts"`
	BySeverity     map[string]int `json:"by_severity"`
	HasBlocking    bool           `json:"has_blocking"`
}

// Checkpoint captures resumable workflow state between CLI invocations.
type Checkpoint struct {
	LastCompletedTask     *string           `json:"last_completed_task"`
	LastCheckpointTime    *string           `json:"last_checkpoint_time"`
	IterationCount        int               `json:"iteration_count"`
	CurrentPhase          string            `json:"current_phase"`
	ActiveTasks           []string          `json:"active_tasks"`
	QualityGateLastPassed *string           `json:"quality_gate_last_passed"`
	LastQualityGateResult map[string]string `json:"last_quality_gate_result"`

	CoverageLastChecked *string          `json:"coverage_last_checked,omitempty"`
	CoveragePercentage  *float64         `json:"coverage_percentage,omitempty"`
	CoverageTrend       []CoverageSample `json:"coverage_trend,omitempty"`

	LastCIRun     *string           `json:"last_ci_run,omitempty"`
	CIEnvironment *string           `json:"ci_environment,omitempty"`
	CIJobID       *string           `json:"ci_job_id,omitempty"`
	CIWorkflow    *string           `json:"ci_workflow,omitempty"`
	CIStatus      *string           `json:"ci_status,omitempty"`
	CIMetadata    map[string]string `json:"ci_metadata,omitempty"`

	PhaseGateStatus   map[string]*GateResult `json:"phase_gate_status,omitempty"`
	ConflictDetection *ConflictStatus        `json:"conflict_detection,omitempty"`
}

// Metadata holds registry-level feature information.
// Counts are stored as strings to match the on-disk registry schema.
type Metadata struct {
	FeatureID      string `json:"feature_id"`
	FeatureName    string `json:"feature_name"`
	SpecVersion    string `json:"spec_version"`
	TotalTasks     string `json:"total_tasks"`
	CompletedTasks string `json:"completed_tasks"`
	CurrentPhase   string `json:"current_phase"`
	ProjectType    string `json:"project_type"`
}

// Registry is the full TASKS.json document for one feature.
type Registry struct {
	Metadata   Metadata   `json:"metadata"`
	Phases     []Phase    `json:"phases"`
	Checkpoint Checkpoint `json:"checkpoint"`
}
