// SPDX-License-Identifier: AGPL-3.0-or-later

// Package rollback manages git commit checkpoints so a workflow can be
// restored to a known-good state after a failed iteration.
package rollback

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pyaythar-k/sam-plugin-sub000/internal/projection"
)

// maxCheckpoints bounds the checkpoint history. Oldest entries are dropped.
const maxCheckpoints = 10

// Checkpoint is one recorded restore point.
type Checkpoint struct {
	ID          string `json:"id"`
	Commit      string `json:"commit"`
	Description string `json:"description"`
	TaskID      string `json:"task_id,omitempty"`
	CreatedAt   string `json:"created_at"`
}

type state struct {
	Checkpoints []Checkpoint `json:"checkpoints"`
}

// Manager records and restores checkpoints for one project.
type Manager struct {
	projectDir string
}

// NewManager returns a checkpoint manager rooted at projectDir.
func NewManager(projectDir string) *Manager {
	return &Manager{projectDir: projectDir}
}

func (m *Manager) statePath() string {
	return filepath.Join(m.projectDir, ".rollback", "checkpoints.json")
}

func (m *Manager) load() (*state, error) {
	data, err := os.ReadFile(m.statePath())
	if os.IsNotExist(err) {
		return &state{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading checkpoint state: %w", err)
	}
	var st state
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("parsing checkpoint state: %w", err)
	}
	return &st, nil
}

func (m *Manager) save(st *state) error {
	if err := projection.AtomicWriteJSON(m.statePath(), st); err != nil {
		return err
	}
	// The state directory ignores itself so checkpoints stay untracked and
	// survive a hard reset.
	ignore := filepath.Join(m.projectDir, ".rollback", ".gitignore")
	if _, err := os.Stat(ignore); os.IsNotExist(err) {
		return projection.AtomicWrite(ignore, []byte("*\n"))
	}
	return nil
}

func (m *Manager) git(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = m.projectDir
	out, err := cmd.CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("git %s: %w: %s", strings.Join(args, " "), err, strings.TrimSpace(string(out)))
	}
	return strings.TrimSpace(string(out)), nil
}

// Create records the current HEAD commit as a checkpoint. The working tree
// must be clean so a later rollback restores exactly this state.
func (m *Manager) Create(ctx context.Context, description, taskID string) (*Checkpoint, error) {
	status, err := m.git(ctx, "status", "--porcelain")
	if err != nil {
		return nil, err
	}
	if status != "" {
		return nil, fmt.Errorf("working tree has uncommitted changes; commit or stash them before creating a checkpoint")
	}

	commit, err := m.git(ctx, "rev-parse", "HEAD")
	if err != nil {
		return nil, err
	}

	cp := Checkpoint{
		ID:          "cp_" + uuid.NewString()[:8],
		Commit:      commit,
		Description: description,
		TaskID:      taskID,
		CreatedAt:   time.Now().Format(time.RFC3339),
	}

	st, err := m.load()
	if err != nil {
		return nil, err
	}
	st.Checkpoints = append(st.Checkpoints, cp)
	if len(st.Checkpoints) > maxCheckpoints {
		st.Checkpoints = st.Checkpoints[len(st.Checkpoints)-maxCheckpoints:]
	}
	if err := m.save(st); err != nil {
		return nil, err
	}
	return &cp, nil
}

// List returns all recorded checkpoints, oldest first.
func (m *Manager) List() ([]Checkpoint, error) {
	st, err := m.load()
	if err != nil {
		return nil, err
	}
	return st.Checkpoints, nil
}

// Find returns the checkpoint with the given ID.
func (m *Manager) Find(id string) (*Checkpoint, error) {
	st, err := m.load()
	if err != nil {
		return nil, err
	}
	for i := range st.Checkpoints {
		if st.Checkpoints[i].ID == id {
			return &st.Checkpoints[i], nil
		}
	}
	return nil, fmt.Errorf("checkpoint %s not found", id)
}

// Rollback hard-resets the working tree to the checkpoint's commit.
func (m *Manager) Rollback(ctx context.Context, id string) (*Checkpoint, error) {
	cp, err := m.Find(id)
	if err != nil {
		return nil, err
	}
	if _, err := m.git(ctx, "reset", "--hard", cp.Commit); err != nil {
		return nil, fmt.Errorf("restoring checkpoint %s: %w", id, err)
	}
	return cp, nil
}

// RenderList renders the checkpoint history as markdown.
func RenderList(checkpoints []Checkpoint) string {
	var b strings.Builder
	b.WriteString(projection.RenderHeader(1, "Rollback Checkpoints"))
	if len(checkpoints) == 0 {
		b.WriteString("No checkpoints recorded.\n")
		return b.String()
	}

	rows := make([][]string, 0, len(checkpoints))
	for _, cp := range checkpoints {
		short := cp.Commit
		if len(short) > 8 {
			short = short[:8]
		}
		rows = append(rows, []string{cp.ID, short, cp.TaskID, cp.Description, cp.CreatedAt})
	}
	b.WriteString(projection.RenderTable([]string{"ID", "Commit", "Task", "Description", "Created"}, rows))
	return b.String()
}
