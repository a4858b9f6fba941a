// SPDX-License-Identifier: AGPL-3.0-or-later
package conflict

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/pyaythar-k/sam-plugin-sub000/internal/projection"
	"github.com/pyaythar-k/sam-plugin-sub000/internal/registry"
)

// Report aggregates all conflicts found in one detection run.
type Report struct {
	FeatureID         string             `json:"feature_id"`
	Timestamp         string             `json:"timestamp"`
	ResourceConflicts []ResourceConflict `json:"resource_conflicts"`
	LogicConflicts    []LogicConflict    `json:"logic_conflicts"`
	DependencyCycles  [][]string         `json:"dependency_cycles"`
	Summary           Summary            `json:"summary"`
}

// Summary counts conflicts by severity.
type Summary struct {
	Total    int `json:"total"`
	Critical int `json:"critical"`
	Major    int `json:"major"`
	Minor    int `json:"minor"`
}

// HasBlocking reports whether any conflict should block parallel execution.
func (r *Report) HasBlocking() bool {
	return r.Summary.Critical > 0
}

// Run performs a full detection pass and writes the results back to the
// registry checkpoint.
func (d *Detector) Run(ctx context.Context) (*Report, error) {
	report := &Report{
		FeatureID:         d.reg.Metadata.FeatureID,
		Timestamp:         time.Now().Format(time.RFC3339),
		ResourceConflicts: d.DetectResourceConflicts(ctx),
		LogicConflicts:    d.DetectLogicConflicts(ctx),
		DependencyCycles:  d.CyclesWithConflicts(ctx),
	}

	for _, c := range report.ResourceConflicts {
		report.Summary.Total++
		report.countSeverity(c.Severity)
	}
	for _, c := range report.LogicConflicts {
		report.Summary.Total++
		report.countSeverity(c.Severity)
	}

	if err := d.writeCheckpoint(report); err != nil {
		return nil, err
	}
	return report, nil
}

func (r *Report) countSeverity(severity string) {
	switch severity {
	case SeverityCritical:
		r.Summary.Critical++
	case SeverityMajor:
		r.Summary.Major++
	case SeverityMinor:
		r.Summary.Minor++
	}
}

func (d *Detector) writeCheckpoint(report *Report) error {
	d.reg.Checkpoint.ConflictDetection = &registry.ConflictStatus{
		LastScan:       report.Timestamp,
		TotalConflicts: report.Summary.Total,
		BySeverity: map[string]int{
			SeverityCritical: report.Summary.Critical,
			SeverityMajor:    report.Summary.Major,
			SeverityMinor:    report.Summary.Minor,
		},
		HasBlocking: report.Summary.Critical > 0,
	}
	if err := d.store.Save(d.reg); err != nil {
		return fmt.Errorf("saving conflict status: %w", err)
	}
	return nil
}

// WriteJSON writes the report as CONFLICTS.json under the feature directory.
func (d *Detector) WriteJSON(report *Report) (string, error) {
	path := filepath.Join(d.featureDir, "CONFLICTS.json")
	if err := projection.AtomicWriteJSON(path, report); err != nil {
		return "", err
	}
	return path, nil
}

// RenderMarkdown renders a human-readable conflict report.
func (r *Report) RenderMarkdown() string {
	var b strings.Builder

	b.WriteString(projection.RenderHeader(1, "Conflict Report: "+r.FeatureID))
	b.WriteString(fmt.Sprintf("Generated: %s\n\n", r.Timestamp))

	b.WriteString(projection.RenderHeader(2, "Summary"))
	b.WriteString(projection.RenderTable(
		[]string{"Severity", "Count"},
		[][]string{
			{"Critical", fmt.Sprintf("%d", r.Summary.Critical)},
			{"Major", fmt.Sprintf("%d", r.Summary.Major)},
			{"Minor", fmt.Sprintf("%d", r.Summary.Minor)},
			{"Total", fmt.Sprintf("%d", r.Summary.Total)},
		},
	))
	b.WriteString("\n")

	if len(r.ResourceConflicts) > 0 {
		b.WriteString(projection.RenderHeader(2, "Resource Conflicts"))
		sorted := make([]ResourceConflict, len(r.ResourceConflicts))
		copy(sorted, r.ResourceConflicts)
		sort.Slice(sorted, func(i, j int) bool {
			return severityRank(sorted[i].Severity) < severityRank(sorted[j].Severity)
		})
		for _, c := range sorted {
			b.WriteString(projection.RenderHeader(3, fmt.Sprintf("[%s] %s: %s", strings.ToUpper(c.Severity), c.ConflictType, c.ResourceID)))
			b.WriteString(c.Description + "\n\n")
			b.WriteString("**Tasks:** " + strings.Join(c.TaskIDs, ", ") + "\n\n")
			b.WriteString("**Resolution:** " + c.Resolution + "\n\n")
		}
	}

	if len(r.LogicConflicts) > 0 {
		b.WriteString(projection.RenderHeader(2, "Logic Conflicts"))
		for _, c := range r.LogicConflicts {
			b.WriteString(projection.RenderHeader(3, fmt.Sprintf("[%s] %s", strings.ToUpper(c.Severity), c.ConflictID)))
			b.WriteString(c.Description + "\n\n")
			b.WriteString("**Tasks:** " + strings.Join(c.TaskIDs, ", ") + "\n\n")
			b.WriteString("**Resolution:** " + c.Resolution + "\n\n")
		}
	}

	if len(r.DependencyCycles) > 0 {
		b.WriteString(projection.RenderHeader(2, "Dependency Cycles Involving Conflicting Tasks"))
		var items []string
		for _, cycle := range r.DependencyCycles {
			items = append(items, strings.Join(cycle, " -> "))
		}
		b.WriteString(projection.RenderList(items))
		b.WriteString("\n")
	}

	if r.Summary.Total == 0 {
		b.WriteString("No conflicts detected. Parallel execution is safe.\n")
	}

	return b.String()
}

func severityRank(s string) int {
	switch s {
	case SeverityCritical:
		return 0
	case SeverityMajor:
		return 1
	default:
		return 2
	}
}
