package testgen

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pyaythar-k/sam-plugin-sub000/internal/scenario"
	"github.com/pyaythar-k/sam-plugin-sub000/internal/testutil/golden"
)

var sampleScenarios = []scenario.Scenario{
	{
		ID:     "SC-001",
		Name:   "successful login",
		TaskID: "1.1",
		Given:  []string{"a registered user"},
		When:   []string{"the user submits valid credentials"},
		Then:   []string{"a session token is returned"},
	},
	{
		ID:     "SC-002",
		Name:   "rejected login",
		TaskID: "1.1",
		When:   []string{"the user submits an invalid password"},
		Then:   []string{"the request is rejected with 401"},
		Tags:   []string{"negative"},
	},
}

func TestNewGeneratorRejectsUnknownFramework(t *testing.T) {
	_, err := NewGenerator("mocha", t.TempDir(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported test framework")
}

func TestJestGeneration(t *testing.T) {
	g, err := NewGenerator(FrameworkJest, "tests", nil)
	require.NoError(t, err)

	files := g.Generate(sampleScenarios)
	require.Len(t, files, 1)
	assert.Equal(t, filepath.Join("tests", "task_1_1.test.ts"), files[0].Path)
	assert.Contains(t, files[0].Content, `describe("Task 1.1"`)
	assert.Contains(t, files[0].Content, `it("successful login"`)
	assert.Contains(t, files[0].Content, "Given: a registered user")

	golden.Check(t, golden.Dir(t), "jest_task_1_1", files[0].Content)
}

func TestPytestGeneration(t *testing.T) {
	g, err := NewGenerator(FrameworkPytest, "tests", nil)
	require.NoError(t, err)

	files := g.Generate(sampleScenarios)
	require.Len(t, files, 1)
	assert.Equal(t, filepath.Join("tests", "test_task_1_1.py"), files[0].Path)
	assert.Contains(t, files[0].Content, "def test_successful_login(self):")
	assert.Contains(t, files[0].Content, "assert True")
}

func TestPytestSanitizesMethodNames(t *testing.T) {
	g, err := NewGenerator(FrameworkPytest, "tests", nil)
	require.NoError(t, err)

	files := g.Generate([]scenario.Scenario{
		{ID: "SC-003", Name: "retry after 429 response!", TaskID: "1.2",
			When: []string{"the API rate limits"}, Then: []string{"the client backs off"}},
	})
	require.Len(t, files, 1)
	assert.Contains(t, files[0].Content, "def test_retry_after_429_response_(self):")
}

func TestCucumberGeneration(t *testing.T) {
	g, err := NewGenerator(FrameworkCucumber, "features", nil)
	require.NoError(t, err)

	files := g.Generate(sampleScenarios)
	require.Len(t, files, 1)
	content := files[0].Content
	assert.Contains(t, content, "Feature: Task 1.1")
	assert.Contains(t, content, "  Scenario: successful login")
	assert.Contains(t, content, "    Given a registered user")
	assert.Contains(t, content, "    When the user submits valid credentials")
	assert.Contains(t, content, "  @negative")
}

func TestContextResolution(t *testing.T) {
	dir := t.TempDir()
	yamlPath := filepath.Join(dir, "CONTEXT.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte("API_BASE: https://api.example.com\nPORT: 8080\n"), 0o644))

	ctx, err := LoadContext(yamlPath)
	require.NoError(t, err)

	assert.Equal(t, "call https://api.example.com on 8080", ctx.Resolve("call {{API_BASE}} on {{PORT}}"))
	assert.Equal(t, "missing {{UNKNOWN}}", ctx.Resolve("missing {{UNKNOWN}}"))
	assert.Equal(t, []string{"UNKNOWN"}, ctx.Unresolved("missing {{UNKNOWN}} twice {{UNKNOWN}}"))
}

func TestLoadContextMissingFile(t *testing.T) {
	ctx, err := LoadContext(filepath.Join(t.TempDir(), "CONTEXT.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "as is", ctx.Resolve("as is"))
}

func TestPlaywrightGeneration(t *testing.T) {
	g, err := NewE2EGenerator(FrameworkPlaywright, "e2e", "", nil)
	require.NoError(t, err)

	contracts := []scenario.ContractTest{
		{ID: "CT-001", Endpoint: "/api/login", Method: "POST", StatusCode: 200},
	}
	files := g.Generate(sampleScenarios[:1], contracts)
	require.Len(t, files, 2)

	assert.Equal(t, filepath.Join("e2e", "successful-login.spec.ts"), files[0].Path)
	assert.Contains(t, files[0].Content, "import { test, expect } from '@playwright/test';")
	assert.Contains(t, files[0].Content, `await page.goto("http://localhost:3000")`)

	assert.Equal(t, filepath.Join("e2e", "api-contracts.spec.ts"), files[1].Path)
	assert.Contains(t, files[1].Content, "request.post")
	assert.Contains(t, files[1].Content, "toBe(200)")
}

func TestCypressGeneration(t *testing.T) {
	g, err := NewE2EGenerator(FrameworkCypress, "cypress/e2e", "https://staging.example.com", nil)
	require.NoError(t, err)

	files := g.Generate(sampleScenarios[:1], nil)
	require.Len(t, files, 1)
	assert.Equal(t, filepath.Join("cypress/e2e", "successful-login.cy.ts"), files[0].Path)
	assert.Contains(t, files[0].Content, `cy.visit("https://staging.example.com")`)
}

func TestWriteAll(t *testing.T) {
	dir := t.TempDir()
	g, err := NewGenerator(FrameworkJest, dir, nil)
	require.NoError(t, err)

	paths, err := WriteAll(g.Generate(sampleScenarios))
	require.NoError(t, err)
	require.Len(t, paths, 1)

	data, err := os.ReadFile(paths[0])
	require.NoError(t, err)
	assert.Contains(t, string(data), "describe(")
}
