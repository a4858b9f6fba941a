// SPDX-License-Identifier: AGPL-3.0-or-later
package commands

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pyaythar-k/sam-plugin-sub000/cmd/sam/internal/clierr"
	"github.com/pyaythar-k/sam-plugin-sub000/internal/obs/metrics"
)

func TestCLIContract(t *testing.T) {
	cmd := NewRootCmd()
	b := bytes.NewBufferString("")
	cmd.SetOut(b)
	cmd.SetArgs([]string{"--help"})

	err := cmd.Execute()
	if err != nil {
		t.Fatalf("root command failed: %v", err)
	}

	out := b.String()

	requiredCommands := []string{
		"specs",
		"tasks",
		"validate",
		"generate",
		"ci",
		"rollback",
		"status",
		"observe",
		"verify",
		"version",
	}

	for _, c := range requiredCommands {
		if !strings.Contains(out, c) {
			t.Errorf("expected top-level command %q in root help", c)
		}
	}
}

const contractSpec = `# Technical Specification: User Authentication

## Phase 1: Data Layer

- [x] **1.1 Create user table** (Maps to: Story US-1, Completed: 2026-08-01)
- [ ] **1.2 Add user repository** (Maps to: Story US-1)

## Phase 2: API Layer

- [ ] **2.1 Login endpoint**
`

// run executes the CLI with args from inside dir and returns combined output.
func run(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()
	t.Chdir(dir)

	cmd := NewRootCmd()
	b := bytes.NewBufferString("")
	cmd.SetOut(b)
	cmd.SetErr(b)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return b.String(), err
}

func TestParseThenReadWorkflow(t *testing.T) {
	project := t.TempDir()
	featureDir := filepath.Join(project, ".sam", "001")
	if err := os.MkdirAll(featureDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(featureDir, "TECHNICAL_SPEC.md"), []byte(contractSpec), 0o644); err != nil {
		t.Fatal(err)
	}

	out, err := run(t, project, "specs", "parse", "--feature", "001")
	if err != nil {
		t.Fatalf("specs parse failed: %v", err)
	}
	if !strings.Contains(out, "Parsed 3 tasks across 2 phases") {
		t.Errorf("unexpected parse output: %q", out)
	}
	if _, err := os.Stat(filepath.Join(featureDir, "TASKS.json")); err != nil {
		t.Fatalf("TASKS.json not written: %v", err)
	}

	out, err = run(t, project, "tasks", "read", "--feature", "001")
	if err != nil {
		t.Fatalf("tasks read failed: %v", err)
	}
	if !strings.Contains(out, "1/3 complete") {
		t.Errorf("unexpected read output: %q", out)
	}

	out, err = run(t, project, "tasks", "update", "--feature", "001", "--task", "1.2", "--status", "completed")
	if err != nil {
		t.Fatalf("tasks update failed: %v", err)
	}
	if !strings.Contains(out, "Task 1.2 -> completed") {
		t.Errorf("unexpected update output: %q", out)
	}

	out, err = run(t, project, "tasks", "read", "--feature", "001")
	if err != nil {
		t.Fatalf("tasks read failed: %v", err)
	}
	if !strings.Contains(out, "2/3 complete") {
		t.Errorf("progress not updated: %q", out)
	}
}

func TestGenerateTestsPicksUpFeatureContext(t *testing.T) {
	project := t.TempDir()
	featureDir := filepath.Join(project, ".sam", "001")
	if err := os.MkdirAll(featureDir, 0o755); err != nil {
		t.Fatal(err)
	}
	spec := `scenarios:
  - id: SC-001
    name: successful login
    task_id: "1.1"
    when: ["the user calls {{API_BASE}}/login"]
    then: ["a session token is returned"]
`
	if err := os.WriteFile(filepath.Join(featureDir, "EXECUTABLE_SPEC.yaml"), []byte(spec), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(featureDir, "CONTEXT.yaml"), []byte("API_BASE: https://api.example.com\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := run(t, project, "generate", "tests", "--feature", "001"); err != nil {
		t.Fatalf("generate tests failed: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(project, "tests", "task_1_1.test.ts"))
	if err != nil {
		t.Fatalf("generated file not written: %v", err)
	}
	if !strings.Contains(string(data), "https://api.example.com/login") {
		t.Errorf("CONTEXT.yaml placeholder not resolved:\n%s", data)
	}
}

func TestObserveMetricsOrdersSeries(t *testing.T) {
	project := t.TempDir()
	obsDir := filepath.Join(project, ".sam", "observability")
	if err := os.MkdirAll(obsDir, 0o755); err != nil {
		t.Fatal(err)
	}

	c := metrics.NewCollector()
	c.Observe("parse_duration_ms", 12, nil)
	c.Observe("conflict_scan_ms", 40, nil)
	if err := c.Flush(obsDir); err != nil {
		t.Fatal(err)
	}

	out, err := run(t, project, "observe", "metrics")
	if err != nil {
		t.Fatalf("observe metrics failed: %v", err)
	}
	first := strings.Index(out, "conflict_scan_ms")
	second := strings.Index(out, "parse_duration_ms")
	if first < 0 || second < 0 || first > second {
		t.Errorf("histogram series not sorted:\n%s", out)
	}
}

func TestTasksUpdateRejectsUnknownStatus(t *testing.T) {
	_, err := run(t, t.TempDir(), "tasks", "update", "--feature", "001", "--task", "1.1", "--status", "blocked")
	if err == nil {
		t.Fatal("expected an error for unknown status")
	}
	if code := clierr.ExitCodeOf(err); code != 2 {
		t.Errorf("exit code = %d, want 2", code)
	}
}
