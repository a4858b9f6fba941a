package rollback

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func initRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	runGit(t, dir, "init")
	runGit(t, dir, "config", "user.email", "test@example.com")
	runGit(t, dir, "config", "user.name", "Test User")
	commitFile(t, dir, "README.md", "v1", "initial commit")
	return dir
}

func runGit(t *testing.T, dir string, args ...string) {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("git %v failed: %v\n%s", args, err, out)
	}
}

func commitFile(t *testing.T, dir, name, content, message string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	runGit(t, dir, "add", ".")
	runGit(t, dir, "commit", "-m", message)
}

func TestCreateAndList(t *testing.T) {
	dir := initRepo(t)
	ctx := context.Background()
	m := NewManager(dir)

	cp, err := m.Create(ctx, "before refactor", "1.1")
	require.NoError(t, err)
	assert.NotEmpty(t, cp.Commit)
	assert.Equal(t, "1.1", cp.TaskID)

	list, err := m.List()
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, cp.ID, list[0].ID)
}

func TestCreateRejectsDirtyTree(t *testing.T) {
	dir := initRepo(t)
	ctx := context.Background()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "dirty.txt"), []byte("x"), 0o644))

	_, err := NewManager(dir).Create(ctx, "nope", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "uncommitted changes")
}

func TestRollbackRestoresState(t *testing.T) {
	dir := initRepo(t)
	ctx := context.Background()
	m := NewManager(dir)

	cp, err := m.Create(ctx, "good state", "")
	require.NoError(t, err)

	commitFile(t, dir, "README.md", "v2", "bad change")

	restored, err := m.Rollback(ctx, cp.ID)
	require.NoError(t, err)
	assert.Equal(t, cp.Commit, restored.Commit)

	data, err := os.ReadFile(filepath.Join(dir, "README.md"))
	require.NoError(t, err)
	assert.Equal(t, "v1", string(data))
}

func TestRollbackUnknownID(t *testing.T) {
	dir := initRepo(t)
	_, err := NewManager(dir).Rollback(context.Background(), "cp_missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestCheckpointHistoryIsCapped(t *testing.T) {
	dir := initRepo(t)
	ctx := context.Background()
	m := NewManager(dir)

	var lastID string
	for i := 0; i < maxCheckpoints+3; i++ {
		commitFile(t, dir, "file.txt", fmt.Sprintf("v%d", i), fmt.Sprintf("change %d", i))
		cp, err := m.Create(ctx, fmt.Sprintf("checkpoint %d", i), "")
		require.NoError(t, err)
		lastID = cp.ID
	}

	list, err := m.List()
	require.NoError(t, err)
	assert.Len(t, list, maxCheckpoints)
	assert.Equal(t, lastID, list[len(list)-1].ID)
}

func TestRenderList(t *testing.T) {
	md := RenderList([]Checkpoint{{
		ID: "cp_abcd1234", Commit: "0123456789abcdef", TaskID: "1.1",
		Description: "before refactor", CreatedAt: "2026-01-01T00:00:00Z",
	}})
	assert.Contains(t, md, "# Rollback Checkpoints")
	assert.Contains(t, md, "| cp_abcd1234 | 01234567 | 1.1 |")

	assert.Contains(t, RenderList(nil), "No checkpoints recorded.")
}
