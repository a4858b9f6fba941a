// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ci detects the continuous integration environment a run executes
// in and records CI results in the feature's task registry.
package ci

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/pyaythar-k/sam-plugin-sub000/internal/projection"
	"github.com/pyaythar-k/sam-plugin-sub000/internal/registry"
)

// Known CI environments.
const (
	EnvGitHubActions  = "github_actions"
	EnvGitLabCI       = "gitlab_ci"
	EnvJenkins        = "jenkins"
	EnvAzurePipelines = "azure_pipelines"
	EnvLocal          = "local"
)

// Environment describes the detected CI context for the current process.
type Environment struct {
	Name     string            `json:"name"`
	IsCI     bool              `json:"is_ci"`
	JobID    string            `json:"job_id,omitempty"`
	Workflow string            `json:"workflow,omitempty"`
	Branch   string            `json:"branch,omitempty"`
	Commit   string            `json:"commit,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Detect inspects well-known environment variables to identify the CI
// system. Detection order matters: some systems set generic variables that
// others also set.
func Detect(getenv func(string) string) Environment {
	if getenv == nil {
		getenv = os.Getenv
	}

	switch {
	case getenv("GITHUB_ACTIONS") == "true":
		return Environment{
			Name:     EnvGitHubActions,
			IsCI:     true,
			JobID:    getenv("GITHUB_RUN_ID"),
			Workflow: getenv("GITHUB_WORKFLOW"),
			Branch:   getenv("GITHUB_REF_NAME"),
			Commit:   getenv("GITHUB_SHA"),
			Metadata: map[string]string{
				"repository": getenv("GITHUB_REPOSITORY"),
				"actor":      getenv("GITHUB_ACTOR"),
			},
		}
	case getenv("GITLAB_CI") == "true":
		return Environment{
			Name:     EnvGitLabCI,
			IsCI:     true,
			JobID:    getenv("CI_JOB_ID"),
			Workflow: getenv("CI_PIPELINE_NAME"),
			Branch:   getenv("CI_COMMIT_REF_NAME"),
			Commit:   getenv("CI_COMMIT_SHA"),
			Metadata: map[string]string{
				"project": getenv("CI_PROJECT_PATH"),
			},
		}
	case getenv("JENKINS_URL") != "":
		return Environment{
			Name:     EnvJenkins,
			IsCI:     true,
			JobID:    getenv("BUILD_ID"),
			Workflow: getenv("JOB_NAME"),
			Branch:   getenv("GIT_BRANCH"),
			Commit:   getenv("GIT_COMMIT"),
		}
	case getenv("TF_BUILD") == "True":
		return Environment{
			Name:     EnvAzurePipelines,
			IsCI:     true,
			JobID:    getenv("BUILD_BUILDID"),
			Workflow: getenv("BUILD_DEFINITIONNAME"),
			Branch:   getenv("BUILD_SOURCEBRANCHNAME"),
			Commit:   getenv("BUILD_SOURCEVERSION"),
		}
	}
	return Environment{Name: EnvLocal, IsCI: false}
}

// RunResult captures the outcome of a CI run to persist in the registry.
type RunResult struct {
	Status   string  // passing or failing
	Coverage float64 // percent, negative means unknown
}

// RecordRun writes CI environment and result data into the registry
// checkpoint and appends a coverage sample when coverage is known.
func RecordRun(featureDir string, env Environment, result RunResult) error {
	store := registry.NewStore(featureDir)
	reg, err := store.Load()
	if err != nil {
		return fmt.Errorf("loading registry: %w", err)
	}

	now := time.Now().Format(time.RFC3339)
	reg.Checkpoint.LastCIRun = &now
	reg.Checkpoint.CIEnvironment = &env.Name
	reg.Checkpoint.CIStatus = &result.Status
	if env.JobID != "" {
		reg.Checkpoint.CIJobID = &env.JobID
	}
	if env.Workflow != "" {
		reg.Checkpoint.CIWorkflow = &env.Workflow
	}
	if len(env.Metadata) > 0 {
		reg.Checkpoint.CIMetadata = env.Metadata
	}

	if result.Coverage >= 0 {
		reg.Checkpoint.CoveragePercentage = &result.Coverage
		reg.Checkpoint.CoverageLastChecked = &now
		reg.Checkpoint.CoverageTrend = append(reg.Checkpoint.CoverageTrend, registry.CoverageSample{
			Timestamp: now,
			Percent:   result.Coverage,
		})
		// Keep the trend bounded.
		if len(reg.Checkpoint.CoverageTrend) > 20 {
			reg.Checkpoint.CoverageTrend = reg.Checkpoint.CoverageTrend[len(reg.Checkpoint.CoverageTrend)-20:]
		}
	}

	if err := store.Save(reg); err != nil {
		return fmt.Errorf("saving CI checkpoint: %w", err)
	}
	return nil
}

// RenderReport renders the detected environment as markdown.
func RenderReport(env Environment) string {
	var b strings.Builder
	b.WriteString(projection.RenderHeader(1, "CI Environment"))

	rows := [][]string{
		{"Environment", env.Name},
		{"Running in CI", fmt.Sprintf("%t", env.IsCI)},
	}
	if env.JobID != "" {
		rows = append(rows, []string{"Job ID", env.JobID})
	}
	if env.Workflow != "" {
		rows = append(rows, []string{"Workflow", env.Workflow})
	}
	if env.Branch != "" {
		rows = append(rows, []string{"Branch", env.Branch})
	}
	if env.Commit != "" {
		rows = append(rows, []string{"Commit", env.Commit})
	}
	b.WriteString(projection.RenderTable([]string{"Field", "Value"}, rows))
	return b.String()
}
