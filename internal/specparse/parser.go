// SPDX-License-Identifier: AGPL-3.0-or-later

// Package specparse extracts task registries from TECHNICAL_SPEC.md documents.
package specparse

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/pyaythar-k/sam-plugin-sub000/internal/registry"
	"github.com/pyaythar-k/sam-plugin-sub000/internal/util"
)

// SpecFileName is the specification document parsed within a feature directory.
const SpecFileName = "TECHNICAL_SPEC.md"

var (
	phaseRe      = regexp.MustCompile(`^## Phase (\d+):\s*(.+)$`)
	taskRe       = regexp.MustCompile(`^-\s+\[([x ])\]\s+\*\*([\d.]+)\s+(.+?)\*\*(.*)$`)
	storyRe      = regexp.MustCompile(`Maps to:\s*Story\s+([\w.-]+)`)
	completedRe  = regexp.MustCompile(`Completed:\s*([\d-]+)`)
	specTitleRe  = regexp.MustCompile(`# Technical Specification:\s*(.+)`)
	projectTypes = map[string]bool{
		"baas-fullstack": true,
		"frontend-only":  true,
		"full-stack":     true,
		"static-site":    true,
	}
)

// Parser builds a task registry from a technical specification file.
type Parser struct {
	SpecFile    string
	FeatureID   string
	FeatureName string

	lines []string
}

// NewParser creates a parser for the given spec file. FeatureName falls back to
// the spec's title line, then to a title-cased feature ID.
func NewParser(specFile, featureID, featureName string) *Parser {
	return &Parser{SpecFile: specFile, FeatureID: featureID, FeatureName: featureName}
}

// Parse reads the spec and produces a registry with phases, tasks and an
// initial checkpoint.
func (p *Parser) Parse() (*registry.Registry, error) {
	data, err := os.ReadFile(p.SpecFile)
	if err != nil {
		return nil, fmt.Errorf("reading spec: %w", err)
	}
	p.lines = strings.Split(string(data), "\n")

	if p.FeatureName == "" {
		p.FeatureName = featureNameFrom(string(data), p.FeatureID)
	}

	featureDir := filepath.Dir(p.SpecFile)
	projectType := ResolveProjectType(featureDir)

	reg := &registry.Registry{
		Metadata: registry.Metadata{
			FeatureID:    p.FeatureID,
			FeatureName:  p.FeatureName,
			SpecVersion:  "2.0",
			CurrentPhase: "1",
			ProjectType:  projectType,
		},
		Checkpoint: registry.Checkpoint{
			CurrentPhase:          "1",
			ActiveTasks:           []string{},
			LastQualityGateResult: map[string]string{},
		},
	}

	reg.Phases = p.parsePhases()

	_, completed := reg.TaskCounts()
	if completed > 0 {
		if last := lastCompletedTask(reg.Phases); last != "" {
			now := time.Now().Format(time.RFC3339)
			reg.Checkpoint.LastCompletedTask = &last
			reg.Checkpoint.LastCheckpointTime = &now
		}
	}

	return reg, nil
}

func (p *Parser) parsePhases() []registry.Phase {
	var phases []registry.Phase
	var current *registry.Phase

	for i, line := range p.lines {
		lineNum := i + 1

		if m := phaseRe.FindStringSubmatch(line); m != nil {
			if current != nil {
				phases = append(phases, *current)
			}
			current = &registry.Phase{
				PhaseID:   m[1],
				PhaseName: m[2],
				Status:    registry.PhasePending,
				Tasks:     []registry.Task{},
			}
			continue
		}

		if current == nil {
			continue
		}
		if task, ok := p.parseTask(line, lineNum, current); ok {
			current.Tasks = append(current.Tasks, task)
		}
	}
	if current != nil {
		phases = append(phases, *current)
	}

	for i := range phases {
		phases[i].Status = derivePhaseStatus(phases[i].Tasks)
	}
	return phases
}

func (p *Parser) parseTask(line string, lineNum int, phase *registry.Phase) (registry.Task, bool) {
	m := taskRe.FindStringSubmatch(strings.TrimRight(line, "\r"))
	if m == nil {
		return registry.Task{}, false
	}

	status := registry.StatusPending
	if m[1] == "x" {
		status = registry.StatusCompleted
	}

	task := registry.Task{
		TaskID:             m[2],
		Title:              strings.TrimSpace(m[3]),
		Status:             status,
		SpecFile:           SpecFileName,
		SectionStart:       lineNum,
		SectionEnd:         p.sectionEnd(lineNum),
		Dependencies:       []string{},
		VerificationStatus: registry.VerificationPending,
	}

	rest := strings.TrimSpace(m[4])
	if sm := storyRe.FindStringSubmatch(rest); sm != nil {
		task.StoryMapping = &sm[1]
	}
	if cm := completedRe.FindStringSubmatch(rest); cm != nil {
		task.CompletionNote = &cm[1]
	}
	return task, true
}

// sectionEnd finds the line where a task's spec section ends: the next task
// checkbox or phase header, or the end of the document.
func (p *Parser) sectionEnd(startLine int) int {
	for i := startLine; i < len(p.lines); i++ {
		trimmed := strings.TrimSpace(p.lines[i])
		if strings.HasPrefix(trimmed, "- [") && strings.Contains(trimmed, "**") {
			return i
		}
		if strings.HasPrefix(trimmed, "## Phase") {
			return i
		}
	}
	return len(p.lines)
}

func derivePhaseStatus(tasks []registry.Task) string {
	if len(tasks) == 0 {
		return registry.PhasePending
	}
	completed := 0
	for _, t := range tasks {
		if t.Status == registry.StatusCompleted {
			completed++
		}
	}
	switch {
	case completed == len(tasks):
		return registry.PhaseCompleted
	case completed > 0:
		return registry.PhaseInProgress
	default:
		return registry.PhasePending
	}
}

func lastCompletedTask(phases []registry.Phase) string {
	for i := len(phases) - 1; i >= 0; i-- {
		tasks := phases[i].Tasks
		for j := len(tasks) - 1; j >= 0; j-- {
			if tasks[j].Status == registry.StatusCompleted {
				return tasks[j].TaskID
			}
		}
	}
	return ""
}

func featureNameFrom(content, featureID string) string {
	if m := specTitleRe.FindStringSubmatch(content); m != nil {
		return strings.TrimSpace(m[1])
	}
	return util.TitleCase(strings.ReplaceAll(featureID, "_", " "))
}

// ResolveProjectType determines the feature's project type: an existing
// TASKS.json metadata entry wins, then a project_type field in
// FEATURE_DOCUMENTATION.md, then the full-stack default.
func ResolveProjectType(featureDir string) string {
	store := registry.NewStore(featureDir)
	if store.Exists() {
		if data, err := os.ReadFile(store.Path()); err == nil {
			var doc struct {
				Metadata struct {
					ProjectType string `json:"project_type"`
				} `json:"metadata"`
			}
			if json.Unmarshal(data, &doc) == nil && projectTypes[doc.Metadata.ProjectType] {
				return doc.Metadata.ProjectType
			}
		}
	}

	featDoc := filepath.Join(featureDir, "FEATURE_DOCUMENTATION.md")
	if data, err := os.ReadFile(featDoc); err == nil {
		for _, line := range strings.Split(string(data), "\n") {
			lower := strings.ToLower(line)
			if !strings.Contains(lower, "project_type:") {
				continue
			}
			_, value, _ := strings.Cut(lower, ":")
			value = strings.TrimSpace(value)
			if projectTypes[value] {
				return value
			}
		}
	}

	return "full-stack"
}
