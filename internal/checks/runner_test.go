package checks

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pyaythar-k/sam-plugin-sub000/internal/registry"
)

type fakeCheck struct {
	id     string
	status Status
	runs   int
}

func (f *fakeCheck) ID() string { return f.id }
func (f *fakeCheck) Run(ctx context.Context, deps *Deps) Result {
	f.runs++
	return Result{Check: f.id, Status: f.status}
}

func TestRunAllAccumulatesFailures(t *testing.T) {
	dir := t.TempDir()
	store := NewStateStore(filepath.Join(dir, "run"))
	pass := &fakeCheck{id: "a", status: StatusPass}
	fail := &fakeCheck{id: "b", status: StatusFail}
	skip := &fakeCheck{id: "c", status: StatusSkip}

	var out bytes.Buffer
	r := NewRunner([]Check{pass, fail, skip}, store, &Deps{}, &out)

	err := r.RunAll(context.Background())
	require.Error(t, err)

	// Failure does not stop the sequence.
	assert.Equal(t, 1, skip.runs)

	last, err := store.ReadLastRun()
	require.NoError(t, err)
	assert.Equal(t, "fail", last.Status)
	assert.Equal(t, []string{"a", "b", "c"}, last.Checks)
	assert.Equal(t, []string{"b"}, last.Failed)

	assert.Contains(t, out.String(), "PASS a")
	assert.Contains(t, out.String(), "FAIL b")
	assert.Contains(t, out.String(), "SKIP c")
}

func TestResumeRerunsOnlyFailed(t *testing.T) {
	dir := t.TempDir()
	store := NewStateStore(filepath.Join(dir, "run"))
	a := &fakeCheck{id: "a", status: StatusPass}
	b := &fakeCheck{id: "b", status: StatusFail}

	var out bytes.Buffer
	r := NewRunner([]Check{a, b}, store, &Deps{}, &out)
	require.Error(t, r.RunAll(context.Background()))

	// The failing check now passes; resume re-runs only it.
	b.status = StatusPass
	require.NoError(t, r.Resume(context.Background()))
	assert.Equal(t, 1, a.runs)
	assert.Equal(t, 2, b.runs)

	last, err := store.ReadLastRun()
	require.NoError(t, err)
	assert.Equal(t, "pass", last.Status)
}

func TestResumeWithCleanState(t *testing.T) {
	store := NewStateStore(filepath.Join(t.TempDir(), "run"))
	var out bytes.Buffer
	r := NewRunner(nil, store, &Deps{}, &out)
	require.NoError(t, r.Resume(context.Background()))
	assert.Contains(t, out.String(), "No failed checks to resume.")
}

func TestRunListUnknownCheck(t *testing.T) {
	store := NewStateStore(filepath.Join(t.TempDir(), "run"))
	r := NewRunner(nil, store, &Deps{}, &bytes.Buffer{})
	err := r.RunList(context.Background(), []string{"nope"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "check not found")
}

func TestRegistryIntegrityCheck(t *testing.T) {
	featureDir := t.TempDir()
	reg := &registry.Registry{
		Metadata: registry.Metadata{FeatureID: "001", FeatureName: "demo", SpecVersion: "2.0"},
		Phases: []registry.Phase{
			{PhaseID: "1", PhaseName: "Foundation", Tasks: []registry.Task{
				{TaskID: "1.1", Title: "A", Status: registry.StatusCompleted},
				{TaskID: "1.2", Title: "B", Status: registry.StatusPending, Dependencies: []string{"1.1"}},
			}},
		},
	}
	require.NoError(t, registry.NewStore(featureDir).Save(reg))

	res := NewRegistryIntegrity().Run(context.Background(), &Deps{FeatureDir: featureDir})
	assert.Equal(t, StatusPass, res.Status)
	assert.Contains(t, res.Note, "2 tasks, 1 completed")
}

func TestRegistryIntegrityUnknownDependency(t *testing.T) {
	featureDir := t.TempDir()
	reg := &registry.Registry{
		Metadata: registry.Metadata{FeatureID: "001", SpecVersion: "2.0"},
		Phases: []registry.Phase{
			{PhaseID: "1", PhaseName: "Foundation", Tasks: []registry.Task{
				{TaskID: "1.1", Title: "A", Status: registry.StatusPending, Dependencies: []string{"9.9"}},
			}},
		},
	}
	require.NoError(t, registry.NewStore(featureDir).Save(reg))

	res := NewRegistryIntegrity().Run(context.Background(), &Deps{FeatureDir: featureDir})
	assert.Equal(t, StatusFail, res.Status)
	assert.Contains(t, res.Note, "unknown task 9.9")
}

func TestDependencyCyclesCheck(t *testing.T) {
	featureDir := t.TempDir()
	reg := &registry.Registry{
		Metadata: registry.Metadata{FeatureID: "001", SpecVersion: "2.0"},
		Phases: []registry.Phase{
			{PhaseID: "1", PhaseName: "Foundation", Tasks: []registry.Task{
				{TaskID: "1.1", Title: "A", Status: registry.StatusPending, Dependencies: []string{"1.2"}},
				{TaskID: "1.2", Title: "B", Status: registry.StatusPending, Dependencies: []string{"1.1"}},
			}},
		},
	}
	require.NoError(t, registry.NewStore(featureDir).Save(reg))

	res := NewDependencyCycles().Run(context.Background(), &Deps{FeatureDir: featureDir})
	assert.Equal(t, StatusFail, res.Status)
	assert.Contains(t, res.Note, "->")
}

func TestArtifactPresenceCheck(t *testing.T) {
	projectDir := t.TempDir()
	featureDir := filepath.Join(projectDir, ".sam", "001-demo")
	require.NoError(t, os.MkdirAll(featureDir, 0o755))
	reg := &registry.Registry{
		Metadata: registry.Metadata{FeatureID: "001", SpecVersion: "2.0"},
		Phases: []registry.Phase{
			{PhaseID: "1", PhaseName: "Foundation", Tasks: []registry.Task{
				{TaskID: "1.1", Title: "A", Status: registry.StatusPending},
			}},
		},
	}
	require.NoError(t, registry.NewStore(featureDir).Save(reg))

	deps := &Deps{ProjectDir: projectDir, FeatureDir: featureDir}
	res := NewArtifactPresence().Run(context.Background(), deps)
	assert.Equal(t, StatusFail, res.Status)
	assert.Contains(t, res.Note, "TECHNICAL_SPEC.md")

	require.NoError(t, os.WriteFile(filepath.Join(featureDir, "TECHNICAL_SPEC.md"), []byte("# Spec\n"), 0o644))
	res = NewArtifactPresence().Run(context.Background(), deps)
	assert.Equal(t, StatusPass, res.Status)
}

func TestChecksSkipWithoutRegistry(t *testing.T) {
	deps := &Deps{FeatureDir: t.TempDir()}
	for _, c := range All() {
		res := c.Run(context.Background(), deps)
		assert.Equal(t, StatusSkip, res.Status, c.ID())
	}
}

func TestCoverageThresholdCheck(t *testing.T) {
	featureDir := t.TempDir()
	cov := 60.0
	reg := &registry.Registry{
		Metadata: registry.Metadata{FeatureID: "001", SpecVersion: "2.0"},
		Phases: []registry.Phase{
			{PhaseID: "3", PhaseName: "Implementation", Status: registry.PhaseInProgress, Tasks: []registry.Task{
				{TaskID: "3.1", Title: "A", Status: registry.StatusPending},
			}},
		},
	}
	reg.Checkpoint.CoveragePercentage = &cov
	require.NoError(t, registry.NewStore(featureDir).Save(reg))

	res := NewCoverageThreshold().Run(context.Background(), &Deps{FeatureDir: featureDir})
	assert.Equal(t, StatusFail, res.Status)
	assert.Contains(t, res.Note, "below required 75%")

	cov = 80.0
	reg.Checkpoint.CoveragePercentage = &cov
	require.NoError(t, registry.NewStore(featureDir).Save(reg))

	res = NewCoverageThreshold().Run(context.Background(), &Deps{FeatureDir: featureDir})
	assert.Equal(t, StatusPass, res.Status)
}

func TestScenarioCoverageCheck(t *testing.T) {
	featureDir := t.TempDir()
	reg := &registry.Registry{
		Metadata: registry.Metadata{FeatureID: "001", SpecVersion: "2.0"},
		Phases: []registry.Phase{
			{PhaseID: "1", PhaseName: "Foundation", Tasks: []registry.Task{
				{TaskID: "1.1", Title: "A", Status: registry.StatusPending},
				{TaskID: "1.2", Title: "B", Status: registry.StatusPending},
			}},
		},
	}
	require.NoError(t, registry.NewStore(featureDir).Save(reg))
	require.NoError(t, os.WriteFile(filepath.Join(featureDir, "EXECUTABLE_SPEC.yaml"), []byte(`scenarios:
  - id: SC-001
    task_id: "1.1"
    when: [x]
    then: [y]
`), 0o644))

	res := NewScenarioCoverage().Run(context.Background(), &Deps{FeatureDir: featureDir})
	assert.Equal(t, StatusFail, res.Status)
	assert.Contains(t, res.Note, "1.2")
}
