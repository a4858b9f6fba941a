// SPDX-License-Identifier: AGPL-3.0-or-later

// Package statusreport summarizes the workflow state of every feature
// under a project's .sam directory.
package statusreport

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/pyaythar-k/sam-plugin-sub000/internal/projection"
	"github.com/pyaythar-k/sam-plugin-sub000/internal/registry"
)

// Workflow stages, derived from which artifacts a feature has produced.
const (
	StageDiscovery    = "discovery"
	StageStories      = "stories"
	StageSpecs        = "specs"
	StageDevelopment  = "development"
	StageVerification = "verification"
	StageCompleted    = "completed"
)

// FeatureStatus is the derived state of one feature.
type FeatureStatus struct {
	FeatureID      string  `json:"feature_id"`
	FeatureName    string  `json:"feature_name,omitempty"`
	Stage          string  `json:"stage"`
	Stories        int     `json:"stories"`
	TotalTasks     int     `json:"total_tasks"`
	CompletedTasks int     `json:"completed_tasks"`
	Percent        float64 `json:"percent"`
	CurrentPhase   string  `json:"current_phase,omitempty"`
}

// Report covers every feature found in the project.
type Report struct {
	Features []FeatureStatus `json:"features"`
}

// Collect scans .sam under projectDir and derives each feature's status.
func Collect(projectDir string) (*Report, error) {
	samDir := filepath.Join(projectDir, ".sam")
	entries, err := os.ReadDir(samDir)
	if os.IsNotExist(err) {
		return &Report{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", samDir, err)
	}

	report := &Report{}
	for _, e := range entries {
		// The observability state dir lives alongside feature dirs.
		if !e.IsDir() || strings.HasPrefix(e.Name(), ".") || e.Name() == "observability" {
			continue
		}
		featureDir := filepath.Join(samDir, e.Name())
		if !hasArtifacts(featureDir) {
			continue
		}
		report.Features = append(report.Features, featureStatus(featureDir, e.Name()))
	}
	sort.Slice(report.Features, func(i, j int) bool {
		return report.Features[i].FeatureID < report.Features[j].FeatureID
	})
	return report, nil
}

// featureStatus derives a feature's stage from the artifacts present in its
// directory. Artifacts accumulate, so the furthest stage wins.
func featureStatus(featureDir, featureID string) FeatureStatus {
	status := FeatureStatus{FeatureID: featureID, Stage: StageDiscovery}

	status.Stories = countStories(featureDir)
	if status.Stories > 0 || fileExists(filepath.Join(featureDir, "USER_STORIES.md")) {
		status.Stage = StageStories
	}
	if fileExists(filepath.Join(featureDir, "TECHNICAL_SPEC.md")) ||
		fileExists(filepath.Join(featureDir, "EXECUTABLE_SPEC.yaml")) {
		status.Stage = StageSpecs
	}

	store := registry.NewStore(featureDir)
	if !store.Exists() {
		return status
	}
	reg, err := store.Load()
	if err != nil {
		return status
	}

	status.Stage = StageDevelopment
	status.FeatureName = reg.Metadata.FeatureName

	progress := reg.Progress()
	status.TotalTasks = progress.TotalTasks
	status.CompletedTasks = progress.CompletedTasks
	status.Percent = progress.CoveragePercent

	if phase := reg.CurrentPhase(); phase != nil {
		status.CurrentPhase = phase.PhaseID
		// The last phase is verification work.
		if phase.PhaseID == reg.Phases[len(reg.Phases)-1].PhaseID && status.Percent > 0 {
			status.Stage = StageVerification
		}
	}
	if progress.TotalTasks > 0 && progress.CompletedTasks == progress.TotalTasks {
		status.Stage = StageCompleted
	}
	return status
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// featureArtifacts are the files whose presence marks a .sam subdirectory
// as a feature rather than tool state.
var featureArtifacts = []string{
	"FEATURE_DOCUMENTATION.md",
	"USER_STORIES.md",
	"TECHNICAL_SPEC.md",
	"EXECUTABLE_SPEC.yaml",
	"TASKS.json",
}

func hasArtifacts(featureDir string) bool {
	for _, name := range featureArtifacts {
		if fileExists(filepath.Join(featureDir, name)) {
			return true
		}
	}
	if info, err := os.Stat(filepath.Join(featureDir, "USER_STORIES")); err == nil && info.IsDir() {
		return true
	}
	return false
}

var storyHeadingRe = regexp.MustCompile(`(?m)^#{2,3}\s+(?:Story[:\s]+)?US-[\w.-]+`)

// countStories counts story files under USER_STORIES/ or, failing that,
// story headings inside USER_STORIES.md.
func countStories(featureDir string) int {
	if entries, err := os.ReadDir(filepath.Join(featureDir, "USER_STORIES")); err == nil {
		n := 0
		for _, e := range entries {
			if !e.IsDir() && strings.HasSuffix(e.Name(), ".md") {
				n++
			}
		}
		return n
	}
	data, err := os.ReadFile(filepath.Join(featureDir, "USER_STORIES.md"))
	if err != nil {
		return 0
	}
	return len(storyHeadingRe.FindAll(data, -1))
}

// RenderMarkdown renders the report as a markdown status table.
func (r *Report) RenderMarkdown() string {
	var b strings.Builder
	b.WriteString(projection.RenderHeader(1, "Feature Status"))

	if len(r.Features) == 0 {
		b.WriteString("No features found. Run `sam specs parse` to create one.\n")
		return b.String()
	}

	rows := make([][]string, 0, len(r.Features))
	for _, f := range r.Features {
		name := f.FeatureName
		if name == "" {
			name = "-"
		}
		rows = append(rows, []string{
			f.FeatureID,
			name,
			f.Stage,
			fmt.Sprintf("%d", f.Stories),
			fmt.Sprintf("%d/%d", f.CompletedTasks, f.TotalTasks),
			fmt.Sprintf("%.0f%%", f.Percent),
		})
	}
	b.WriteString(projection.RenderTable([]string{"Feature", "Name", "Stage", "Stories", "Tasks", "Progress"}, rows))
	return b.String()
}
