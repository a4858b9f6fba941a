// SPDX-License-Identifier: AGPL-3.0-or-later

package taskgraph

import (
	"fmt"
	"path"
	"sort"
	"time"

	"github.com/pyaythar-k/sam-plugin-sub000/internal/registry"
)

// Risk levels for impact reports.
const (
	RiskLow    = "low"
	RiskMedium = "medium"
	RiskHigh   = "high"
)

// ImpactedTask summarizes one task touched by a change.
type ImpactedTask struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Status string `json:"status"`
	Phase  string `json:"phase"`
}

// AffectedStory records a story reached through the dependency graph.
type AffectedStory struct {
	StoryID string `json:"story_id"`
	Impact  string `json:"impact"` // "direct" or "indirect"
}

// ImpactReport is the result of analyzing a task or story change.
type ImpactReport struct {
	Target           string          `json:"target"`
	TargetType       string          `json:"target_type"` // "task" or "story"
	DirectImpact     []ImpactedTask  `json:"direct_impact"`
	TransitiveImpact []ImpactedTask  `json:"transitive_impact"`
	AffectedStories  []AffectedStory `json:"affected_stories"`
	AffectedFiles    []string        `json:"affected_files"`
	RiskLevel        string          `json:"risk_level"`
	MermaidGraph     string          `json:"mermaid_graph"`
	Recommendations  []string        `json:"recommendations"`
	Timestamp        string          `json:"timestamp"`
}

// AnalyzeTaskImpact reports which tasks, stories and files are affected when
// the given task changes.
func (g *Graph) AnalyzeTaskImpact(featureID, taskID string) (*ImpactReport, error) {
	target := g.nodes[taskID]
	if target == nil {
		return nil, fmt.Errorf("task not found: %s", taskID)
	}

	report := &ImpactReport{
		Target:     taskID,
		TargetType: "task",
		Timestamp:  time.Now().Format(time.RFC3339),
	}

	direct := make(map[string]bool)
	for _, id := range g.Dependents(taskID) {
		direct[id] = true
		report.DirectImpact = append(report.DirectImpact, g.impacted(id))
	}

	transitive := make(map[string]bool)
	for id := range direct {
		for t := range g.TransitiveDependents(id) {
			if t != taskID && !direct[t] {
				transitive[t] = true
			}
		}
	}
	for _, id := range sortedKeys(transitive) {
		report.TransitiveImpact = append(report.TransitiveImpact, g.impacted(id))
	}

	report.AffectedStories = g.affectedStories(target, direct, transitive)
	report.AffectedFiles = g.affectedFiles(featureID, taskID, direct, transitive)
	report.RiskLevel = riskLevel(report)
	report.Recommendations = taskRecommendations(report)
	report.MermaidGraph = g.MermaidForTask(taskID)

	return report, nil
}

// AnalyzeStoryImpact reports the blast radius of changing a user story: every
// task mapped to the story plus its dependents.
func (g *Graph) AnalyzeStoryImpact(featureID, storyID string) *ImpactReport {
	report := &ImpactReport{
		Target:     storyID,
		TargetType: "story",
		Timestamp:  time.Now().Format(time.RFC3339),
	}

	var storyTasks []string
	for _, id := range g.TaskIDs() {
		if g.nodes[id].StoryMapping == storyID {
			storyTasks = append(storyTasks, id)
		}
	}
	if len(storyTasks) == 0 {
		report.RiskLevel = RiskLow
		return report
	}

	direct := make(map[string]bool)
	for _, id := range storyTasks {
		direct[id] = true
		for _, dep := range g.Dependents(id) {
			direct[dep] = true
		}
	}

	all := make(map[string]bool)
	for id := range direct {
		all[id] = true
		for t := range g.TransitiveDependents(id) {
			all[t] = true
		}
	}

	for _, id := range sortedKeys(direct) {
		report.DirectImpact = append(report.DirectImpact, g.impacted(id))
	}
	for _, id := range sortedKeys(all) {
		if !direct[id] {
			report.TransitiveImpact = append(report.TransitiveImpact, g.impacted(id))
		}
	}

	report.AffectedStories = []AffectedStory{{StoryID: storyID, Impact: "direct"}}
	report.RiskLevel = riskLevel(report)
	report.MermaidGraph = g.MermaidForStory(storyID, storyTasks)
	report.Recommendations = storyRecommendations(report, storyID)

	return report
}

func (g *Graph) impacted(id string) ImpactedTask {
	n := g.nodes[id]
	return ImpactedTask{ID: id, Name: n.Title, Status: n.Status, Phase: n.PhaseName}
}

func (g *Graph) affectedStories(target *Node, direct, transitive map[string]bool) []AffectedStory {
	storyIDs := make(map[string]bool)
	if target.StoryMapping != "" {
		storyIDs[target.StoryMapping] = true
	}
	for id := range direct {
		if s := g.nodes[id].StoryMapping; s != "" {
			storyIDs[s] = true
		}
	}
	for id := range transitive {
		if s := g.nodes[id].StoryMapping; s != "" {
			storyIDs[s] = true
		}
	}

	var out []AffectedStory
	for _, s := range sortedKeys(storyIDs) {
		impact := "indirect"
		if target.StoryMapping == s {
			impact = "direct"
		}
		out = append(out, AffectedStory{StoryID: s, Impact: impact})
	}
	return out
}

func (g *Graph) affectedFiles(featureID, taskID string, direct, transitive map[string]bool) []string {
	files := make(map[string]bool)
	add := func(id string) {
		if n := g.nodes[id]; n != nil && n.SpecFile != "" {
			files[path.Join(".sam", featureID, n.SpecFile)] = true
		}
	}
	add(taskID)
	for id := range direct {
		add(id)
	}
	for id := range transitive {
		add(id)
	}

	out := sortedKeys(files)
	sort.Strings(out)
	return out
}

func riskLevel(r *ImpactReport) string {
	total := len(r.DirectImpact) + len(r.TransitiveImpact)
	if total == 0 {
		return RiskLow
	}

	completed := 0
	for _, t := range r.DirectImpact {
		if t.Status == registry.StatusCompleted {
			completed++
		}
	}
	for _, t := range r.TransitiveImpact {
		if t.Status == registry.StatusCompleted {
			completed++
		}
	}

	switch {
	case completed > 3:
		return RiskHigh
	case completed > 0 || total > 5:
		return RiskMedium
	default:
		return RiskLow
	}
}

func taskRecommendations(r *ImpactReport) []string {
	if len(r.DirectImpact) == 0 && len(r.TransitiveImpact) == 0 {
		return []string{"No dependent tasks - this change is isolated"}
	}

	var recs []string
	completed := 0
	for _, t := range append(append([]ImpactedTask(nil), r.DirectImpact...), r.TransitiveImpact...) {
		if t.Status == registry.StatusCompleted {
			completed++
		}
	}
	if completed > 0 {
		recs = append(recs, fmt.Sprintf("%d completed task(s) may need re-verification", completed))
	}

	switch r.RiskLevel {
	case RiskHigh:
		recs = append(recs,
			"High risk impact - consider creating a new feature branch",
			"Schedule regression testing for affected components")
	case RiskMedium:
		recs = append(recs, "Medium risk impact - verify dependent functionality")
	default:
		recs = append(recs, "Low risk impact - standard testing should suffice")
	}

	if len(r.DirectImpact) > 3 {
		recs = append(recs, "Consider updating multiple related tasks together")
	}
	if len(r.AffectedStories) > 0 {
		recs = append(recs, fmt.Sprintf("Affected %d user story(ies) - verify acceptance criteria", len(r.AffectedStories)))
	}
	return recs
}

func storyRecommendations(r *ImpactReport, storyID string) []string {
	recs := []string{fmt.Sprintf("Review user story %s for requirement changes", storyID)}

	completed := 0
	for _, t := range append(append([]ImpactedTask(nil), r.DirectImpact...), r.TransitiveImpact...) {
		if t.Status == registry.StatusCompleted {
			completed++
		}
	}
	if completed > 0 {
		recs = append(recs, fmt.Sprintf("%d implemented task(s) may be affected", completed))
	}
	if r.RiskLevel == RiskHigh {
		recs = append(recs, "Consider reverting story changes and re-issuing")
	}
	return recs
}
