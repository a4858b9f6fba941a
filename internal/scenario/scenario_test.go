package scenario

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleSpec = `feature_id: "001"
feature_name: user-auth
version: "1.0"
scenarios:
  - id: SC-001
    name: successful login
    task_id: "1.1"
    story_id: US-1
    given:
      - a registered user
    when:
      - the user submits valid credentials
    then:
      - a session token is returned
  - id: SC-002
    name: rejected login
    task_id: "1.1"
    when:
      - the user submits an invalid password
    then:
      - the request is rejected with 401
contract_tests:
  - id: CT-001
    endpoint: /api/login
    method: POST
    status_code: 200
state_machines:
  - name: session
    initial: anonymous
    states: [anonymous, active, expired]
    transitions:
      - from: anonymous
        to: active
        trigger: login
      - from: active
        to: expired
        trigger: timeout
decision_tables:
  - name: access
    inputs: [role, resource]
    rules:
      - conditions: {role: admin, resource: any}
        outcome: allow
`

func writeSpec(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "EXECUTABLE_SPEC.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadParsesAllSections(t *testing.T) {
	spec, err := Load(writeSpec(t, sampleSpec))
	require.NoError(t, err)

	assert.Equal(t, "001", spec.FeatureID)
	require.Len(t, spec.Scenarios, 2)
	assert.Equal(t, "successful login", spec.Scenarios[0].Name)
	assert.Equal(t, []string{"a registered user"}, spec.Scenarios[0].Given)

	require.Len(t, spec.ContractTests, 1)
	assert.Equal(t, "POST", spec.ContractTests[0].Method)

	require.Len(t, spec.StateMachines, 1)
	assert.Equal(t, "anonymous", spec.StateMachines[0].Initial)

	require.Len(t, spec.DecisionTables, 1)
	assert.Equal(t, "allow", spec.DecisionTables[0].Rules[0].Outcome)
}

func TestLoadRejectsDuplicateIDs(t *testing.T) {
	_, err := Load(writeSpec(t, `scenarios:
  - id: SC-001
    when: [x]
    then: [y]
  - id: SC-001
    when: [x]
    then: [y]
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate scenario id")
}

func TestLoadRejectsMissingThen(t *testing.T) {
	_, err := Load(writeSpec(t, `scenarios:
  - id: SC-001
    when: [x]
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no then steps")
}

func TestLoadRejectsUnknownTransitionState(t *testing.T) {
	_, err := Load(writeSpec(t, `state_machines:
  - name: doc
    initial: draft
    states: [draft, published]
    transitions:
      - from: draft
        to: archived
        trigger: archive
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown state")
}

func TestExtractAndWrite(t *testing.T) {
	spec, err := Load(writeSpec(t, sampleSpec))
	require.NoError(t, err)

	ex := ExtractAll(spec)
	assert.Equal(t, 2, ex.Counts.Scenarios)
	assert.Equal(t, 1, ex.Counts.ContractTests)
	assert.Len(t, ex.ForTask("1.1"), 2)
	assert.Empty(t, ex.ForTask("9.9"))

	dir := t.TempDir()
	path, err := WriteExtract(dir, ex)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "SCENARIOS.json"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"SC-001"`)
}
