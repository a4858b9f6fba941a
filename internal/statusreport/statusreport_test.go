package statusreport

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pyaythar-k/sam-plugin-sub000/internal/registry"
)

func featureDir(t *testing.T, projectDir, featureID string) string {
	t.Helper()
	dir := filepath.Join(projectDir, ".sam", featureID)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	return dir
}

func touch(t *testing.T, dir, name string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644))
}

func saveRegistry(t *testing.T, dir string, completed int) {
	t.Helper()
	tasks := []registry.Task{
		{TaskID: "1.1", Title: "A", Status: registry.StatusPending},
		{TaskID: "1.2", Title: "B", Status: registry.StatusPending},
	}
	for i := 0; i < completed && i < len(tasks); i++ {
		tasks[i].Status = registry.StatusCompleted
	}
	reg := &registry.Registry{
		Metadata: registry.Metadata{FeatureID: "001", FeatureName: "demo", SpecVersion: "2.0"},
		Phases: []registry.Phase{
			{PhaseID: "1", PhaseName: "Foundation", Status: registry.PhaseInProgress, Tasks: tasks},
		},
	}
	require.NoError(t, registry.NewStore(dir).Save(reg))
}

func TestCollectEmptyProject(t *testing.T) {
	report, err := Collect(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, report.Features)
	assert.Contains(t, report.RenderMarkdown(), "No features found")
}

func TestStageDerivation(t *testing.T) {
	projectDir := t.TempDir()

	discovery := featureDir(t, projectDir, "001")
	touch(t, discovery, "FEATURE_DOCUMENTATION.md")

	stories := featureDir(t, projectDir, "002")
	touch(t, stories, "USER_STORIES.md")

	specs := featureDir(t, projectDir, "003")
	touch(t, specs, "USER_STORIES.md")
	touch(t, specs, "TECHNICAL_SPEC.md")

	dev := featureDir(t, projectDir, "004")
	saveRegistry(t, dev, 1)

	done := featureDir(t, projectDir, "005")
	saveRegistry(t, done, 2)

	// Tool state and artifactless directories are not features.
	require.NoError(t, os.MkdirAll(filepath.Join(projectDir, ".sam", "observability", "logs"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(projectDir, ".sam", "scratch"), 0o755))

	report, err := Collect(projectDir)
	require.NoError(t, err)
	require.Len(t, report.Features, 5)

	assert.Equal(t, StageDiscovery, report.Features[0].Stage)
	assert.Equal(t, StageStories, report.Features[1].Stage)
	assert.Equal(t, StageSpecs, report.Features[2].Stage)
	assert.Equal(t, StageCompleted, report.Features[4].Stage)

	dev4 := report.Features[3]
	assert.Equal(t, 2, dev4.TotalTasks)
	assert.Equal(t, 1, dev4.CompletedTasks)
	assert.Equal(t, 50.0, dev4.Percent)
}

func TestCountStoriesFromMarkdown(t *testing.T) {
	projectDir := t.TempDir()
	dir := featureDir(t, projectDir, "001")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "USER_STORIES.md"), []byte(`# User Stories

## US-1: Login
As a user I want to log in.

## US-2: Logout
As a user I want to log out.

### US-2.1: Session expiry
`), 0o644))

	report, err := Collect(projectDir)
	require.NoError(t, err)
	require.Len(t, report.Features, 1)
	assert.Equal(t, 3, report.Features[0].Stories)
	assert.Equal(t, StageStories, report.Features[0].Stage)
}

func TestCountStoriesFromDirectory(t *testing.T) {
	projectDir := t.TempDir()
	dir := featureDir(t, projectDir, "001")
	storiesDir := filepath.Join(dir, "USER_STORIES")
	require.NoError(t, os.MkdirAll(storiesDir, 0o755))
	touch(t, storiesDir, "US-1.md")
	touch(t, storiesDir, "US-2.md")
	touch(t, storiesDir, "notes.txt")

	report, err := Collect(projectDir)
	require.NoError(t, err)
	require.Len(t, report.Features, 1)
	assert.Equal(t, 2, report.Features[0].Stories)
	assert.Equal(t, StageStories, report.Features[0].Stage)
}

func TestRenderMarkdown(t *testing.T) {
	projectDir := t.TempDir()
	saveRegistry(t, featureDir(t, projectDir, "001"), 1)

	report, err := Collect(projectDir)
	require.NoError(t, err)

	md := report.RenderMarkdown()
	assert.Contains(t, md, "# Feature Status")
	assert.Contains(t, md, "| 001 | demo |")
	assert.Contains(t, md, "| 1/2 | 50% |")
}
