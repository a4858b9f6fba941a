package gate

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pyaythar-k/sam-plugin-sub000/internal/registry"
)

func gateRegistry(t *testing.T, mutate func(*registry.Registry)) string {
	t.Helper()
	reg := &registry.Registry{
		Metadata: registry.Metadata{FeatureID: "001", FeatureName: "demo", SpecVersion: "2.0"},
		Phases: []registry.Phase{
			{PhaseID: "1", PhaseName: "Foundation", Status: registry.PhaseInProgress, Tasks: []registry.Task{
				{TaskID: "1.1", Title: "Setup", Status: registry.StatusCompleted},
				{TaskID: "1.2", Title: "Schema", Status: registry.StatusCompleted},
			}},
			{PhaseID: "2", PhaseName: "Backend", Status: registry.PhasePending, Tasks: []registry.Task{
				{TaskID: "2.1", Title: "API", Status: registry.StatusCompleted},
			}},
			{PhaseID: "3", PhaseName: "Implementation", Status: registry.PhasePending, Tasks: []registry.Task{
				{TaskID: "3.1", Title: "Build", Status: registry.StatusCompleted},
			}},
		},
	}
	if mutate != nil {
		mutate(reg)
	}
	dir := t.TempDir()
	require.NoError(t, registry.NewStore(dir).Save(reg))
	for _, doc := range []string{"FEATURE_DOCUMENTATION.md", "USER_STORIES.md"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, doc), []byte("# "+doc+"\n"), 0o644))
	}
	return dir
}

func writeScenarioSpec(t *testing.T, dir string, taskIDs ...string) {
	t.Helper()
	content := "scenarios:\n"
	for i, id := range taskIDs {
		content += "  - id: SC-00" + string(rune('1'+i)) + "\n" +
			"    task_id: \"" + id + "\"\n" +
			"    when: [x]\n" +
			"    then: [y]\n"
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "EXECUTABLE_SPEC.yaml"), []byte(content), 0o644))
}

func TestCriteriaForEscalatesCoverage(t *testing.T) {
	assert.Equal(t, 0.0, CriteriaFor("1").MinCoverage)
	assert.Equal(t, 75.0, CriteriaFor("3").MinCoverage)
	assert.Equal(t, 80.0, CriteriaFor("4").MinCoverage)
	assert.Equal(t, 80.0, CriteriaFor("5").MinCoverage)

	assert.False(t, CriteriaFor("1").AcceptanceCriteria)
	assert.True(t, CriteriaFor("3").AcceptanceCriteria)
	assert.True(t, CriteriaFor("1").DocumentationComplete)
	assert.True(t, CriteriaFor("5").DocumentationComplete)
}

func TestValidatePassesCompletePhase(t *testing.T) {
	dir := gateRegistry(t, nil)
	v, err := NewValidator(dir)
	require.NoError(t, err)

	result, err := v.Validate("1")
	require.NoError(t, err)
	assert.True(t, result.Passed)
	assert.True(t, result.Criteria["all_tasks_complete"])
	assert.True(t, result.Criteria["documentation_complete"])

	reloaded, err := registry.NewStore(dir).Load()
	require.NoError(t, err)
	assert.Equal(t, registry.PhaseCompleted, reloaded.Phases[0].Status)
	require.NotNil(t, reloaded.Checkpoint.PhaseGateStatus["1"])
	assert.True(t, reloaded.Checkpoint.PhaseGateStatus["1"].Passed)
}

func TestValidateFailsOnPendingTasks(t *testing.T) {
	dir := gateRegistry(t, func(r *registry.Registry) {
		r.Phases[0].Tasks[1].Status = registry.StatusPending
	})
	v, err := NewValidator(dir)
	require.NoError(t, err)

	result, err := v.Validate("1")
	require.NoError(t, err)
	assert.False(t, result.Passed)
	require.Len(t, result.Failures, 1)
	assert.Contains(t, result.Failures[0], "1.2")
}

func TestValidateFailsOnLowCoverage(t *testing.T) {
	dir := gateRegistry(t, func(r *registry.Registry) {
		cov := 50.0
		passing := "passing"
		r.Checkpoint.CoveragePercentage = &cov
		r.Checkpoint.CIStatus = &passing
	})
	writeScenarioSpec(t, dir, "3.1")
	v, err := NewValidator(dir)
	require.NoError(t, err)

	result, err := v.Validate("3")
	require.NoError(t, err)
	assert.False(t, result.Passed)
	assert.False(t, result.Criteria["min_coverage"])
	assert.Contains(t, result.Failures[0], "50.0%")
}

func TestValidateFailsOnCriticalConflicts(t *testing.T) {
	dir := gateRegistry(t, func(r *registry.Registry) {
		r.Checkpoint.ConflictDetection = &registry.ConflictStatus{
			TotalConflicts: 2,
			HasBlocking:    true,
		}
	})
	v, err := NewValidator(dir)
	require.NoError(t, err)

	result, err := v.Validate("1")
	require.NoError(t, err)
	assert.False(t, result.Passed)
	assert.False(t, result.Criteria["no_critical_conflicts"])
}

func TestValidateFailsOnMissingDocs(t *testing.T) {
	dir := gateRegistry(t, nil)
	require.NoError(t, os.Remove(filepath.Join(dir, "USER_STORIES.md")))
	v, err := NewValidator(dir)
	require.NoError(t, err)

	result, err := v.Validate("1")
	require.NoError(t, err)
	assert.False(t, result.Passed)
	assert.False(t, result.Criteria["documentation_complete"])
	require.Len(t, result.Failures, 1)
	assert.Contains(t, result.Failures[0], "USER_STORIES.md")
}

func TestValidateAcceptanceCriteria(t *testing.T) {
	dir := gateRegistry(t, func(r *registry.Registry) {
		cov := 90.0
		passing := "passing"
		r.Checkpoint.CoveragePercentage = &cov
		r.Checkpoint.CIStatus = &passing
	})
	v, err := NewValidator(dir)
	require.NoError(t, err)

	// Without an executable spec the criterion cannot be verified.
	result, err := v.Validate("3")
	require.NoError(t, err)
	assert.False(t, result.Passed)
	assert.False(t, result.Criteria["acceptance_criteria"])
	assert.Contains(t, result.Failures[0], "EXECUTABLE_SPEC.yaml")

	writeScenarioSpec(t, dir, "3.1")
	result, err = v.Validate("3")
	require.NoError(t, err)
	assert.True(t, result.Passed)
	assert.True(t, result.Criteria["acceptance_criteria"])
}

func TestValidateAcceptanceListsUncoveredTasks(t *testing.T) {
	dir := gateRegistry(t, func(r *registry.Registry) {
		cov := 90.0
		passing := "passing"
		r.Checkpoint.CoveragePercentage = &cov
		r.Checkpoint.CIStatus = &passing
	})
	writeScenarioSpec(t, dir, "1.1")
	v, err := NewValidator(dir)
	require.NoError(t, err)

	result, err := v.Validate("3")
	require.NoError(t, err)
	assert.False(t, result.Passed)
	assert.False(t, result.Criteria["acceptance_criteria"])
	assert.Contains(t, result.Failures[0], "3.1")
}

func TestCanTransition(t *testing.T) {
	dir := gateRegistry(t, nil)
	v, err := NewValidator(dir)
	require.NoError(t, err)

	ok, reason := v.CanTransition("1", "2")
	assert.False(t, ok)
	assert.Contains(t, reason, "not been validated")

	_, err = v.Validate("1")
	require.NoError(t, err)

	ok, reason = v.CanTransition("1", "2")
	assert.True(t, ok)
	assert.Empty(t, reason)

	ok, reason = v.CanTransition("1", "9")
	assert.False(t, ok)
	assert.Contains(t, reason, "does not exist")
}

func TestCanTransitionRequiresNextPhase(t *testing.T) {
	dir := gateRegistry(t, nil)
	v, err := NewValidator(dir)
	require.NoError(t, err)

	_, err = v.Validate("1")
	require.NoError(t, err)

	// Skipping phase 2 of a full-stack project is not allowed.
	ok, reason := v.CanTransition("1", "3")
	assert.False(t, ok)
	assert.Contains(t, reason, "next is 2")

	ok, reason = v.CanTransition("5", "1")
	assert.False(t, ok)
	assert.Contains(t, reason, "final phase")
}

func TestRenderReport(t *testing.T) {
	result := &registry.GateResult{
		Passed:      false,
		ValidatedAt: "2026-01-01T00:00:00Z",
		Criteria:    map[string]bool{"all_tasks_complete": false},
		Failures:    []string{"2 task(s) still pending: 1.1, 1.2"},
	}
	md := RenderReport("1", result)
	assert.Contains(t, md, "# Phase 1 Gate: FAILED")
	assert.Contains(t, md, "| all_tasks_complete | FAIL |")
	assert.Contains(t, md, "still pending")
}
