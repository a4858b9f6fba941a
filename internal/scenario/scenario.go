// SPDX-License-Identifier: AGPL-3.0-or-later

// Package scenario extracts executable test scenarios from a feature's
// EXECUTABLE_SPEC.yaml and materializes them as SCENARIOS.json.
package scenario

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/pyaythar-k/sam-plugin-sub000/internal/projection"
)

// Scenario is a single behavioral scenario in given/when/then form.
type Scenario struct {
	ID          string   `json:"id" yaml:"id"`
	Name        string   `json:"name" yaml:"name"`
	Description string   `json:"description,omitempty" yaml:"description"`
	TaskID      string   `json:"task_id,omitempty" yaml:"task_id"`
	StoryID     string   `json:"story_id,omitempty" yaml:"story_id"`
	Given       []string `json:"given" yaml:"given"`
	When        []string `json:"when" yaml:"when"`
	Then        []string `json:"then" yaml:"then"`
	Tags        []string `json:"tags,omitempty" yaml:"tags"`
}

// ContractTest describes an API contract to verify.
type ContractTest struct {
	ID             string         `json:"id" yaml:"id"`
	Endpoint       string         `json:"endpoint" yaml:"endpoint"`
	Method         string         `json:"method" yaml:"method"`
	Description    string         `json:"description,omitempty" yaml:"description"`
	RequestSchema  map[string]any `json:"request_schema,omitempty" yaml:"request_schema"`
	ResponseSchema map[string]any `json:"response_schema,omitempty" yaml:"response_schema"`
	StatusCode     int            `json:"status_code,omitempty" yaml:"status_code"`
}

// Transition is one edge in a state machine.
type Transition struct {
	From    string `json:"from" yaml:"from"`
	To      string `json:"to" yaml:"to"`
	Trigger string `json:"trigger" yaml:"trigger"`
	Guard   string `json:"guard,omitempty" yaml:"guard"`
}

// StateMachine describes allowed state transitions for an entity.
type StateMachine struct {
	Name        string       `json:"name" yaml:"name"`
	Entity      string       `json:"entity,omitempty" yaml:"entity"`
	Initial     string       `json:"initial" yaml:"initial"`
	States      []string     `json:"states" yaml:"states"`
	Transitions []Transition `json:"transitions" yaml:"transitions"`
}

// DecisionRule is one row of a decision table.
type DecisionRule struct {
	Conditions map[string]string `json:"conditions" yaml:"conditions"`
	Outcome    string            `json:"outcome" yaml:"outcome"`
}

// DecisionTable captures rule-based behavior as condition/outcome rows.
type DecisionTable struct {
	Name        string         `json:"name" yaml:"name"`
	Description string         `json:"description,omitempty" yaml:"description"`
	Inputs      []string       `json:"inputs" yaml:"inputs"`
	Rules       []DecisionRule `json:"rules" yaml:"rules"`
}

// Spec is the parsed EXECUTABLE_SPEC.yaml document.
type Spec struct {
	FeatureID      string          `json:"feature_id" yaml:"feature_id"`
	FeatureName    string          `json:"feature_name" yaml:"feature_name"`
	Version        string          `json:"version,omitempty" yaml:"version"`
	Scenarios      []Scenario      `json:"scenarios" yaml:"scenarios"`
	ContractTests  []ContractTest  `json:"contract_tests,omitempty" yaml:"contract_tests"`
	StateMachines  []StateMachine  `json:"state_machines,omitempty" yaml:"state_machines"`
	DecisionTables []DecisionTable `json:"decision_tables,omitempty" yaml:"decision_tables"`
}

// Extract holds everything pulled from the spec in one pass, plus counts
// for quick reporting.
type Extract struct {
	FeatureID      string          `json:"feature_id"`
	GeneratedAt    string          `json:"generated_at"`
	Scenarios      []Scenario      `json:"scenarios"`
	ContractTests  []ContractTest  `json:"contract_tests"`
	StateMachines  []StateMachine  `json:"state_machines"`
	DecisionTables []DecisionTable `json:"decision_tables"`
	Counts         ExtractCounts   `json:"counts"`
}

// ExtractCounts summarizes the extract.
type ExtractCounts struct {
	Scenarios      int `json:"scenarios"`
	ContractTests  int `json:"contract_tests"`
	StateMachines  int `json:"state_machines"`
	DecisionTables int `json:"decision_tables"`
}

// Load reads and parses an EXECUTABLE_SPEC.yaml file.
func Load(path string) (*Spec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading executable spec: %w", err)
	}
	var spec Spec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", filepath.Base(path), err)
	}
	if err := validate(&spec); err != nil {
		return nil, err
	}
	return &spec, nil
}

func validate(spec *Spec) error {
	seen := make(map[string]bool)
	for i, sc := range spec.Scenarios {
		if sc.ID == "" {
			return fmt.Errorf("scenario %d has no id", i+1)
		}
		if seen[sc.ID] {
			return fmt.Errorf("duplicate scenario id %q", sc.ID)
		}
		seen[sc.ID] = true
		if len(sc.When) == 0 {
			return fmt.Errorf("scenario %s has no when steps", sc.ID)
		}
		if len(sc.Then) == 0 {
			return fmt.Errorf("scenario %s has no then steps", sc.ID)
		}
	}
	for _, sm := range spec.StateMachines {
		states := make(map[string]bool, len(sm.States))
		for _, s := range sm.States {
			states[s] = true
		}
		if sm.Initial != "" && !states[sm.Initial] {
			return fmt.Errorf("state machine %s: initial state %q not in states", sm.Name, sm.Initial)
		}
		for _, tr := range sm.Transitions {
			if !states[tr.From] || !states[tr.To] {
				return fmt.Errorf("state machine %s: transition %s -> %s references unknown state", sm.Name, tr.From, tr.To)
			}
		}
	}
	return nil
}

// ExtractAll converts a parsed spec into an Extract with counts.
func ExtractAll(spec *Spec) *Extract {
	return &Extract{
		FeatureID:      spec.FeatureID,
		GeneratedAt:    time.Now().Format(time.RFC3339),
		Scenarios:      spec.Scenarios,
		ContractTests:  spec.ContractTests,
		StateMachines:  spec.StateMachines,
		DecisionTables: spec.DecisionTables,
		Counts: ExtractCounts{
			Scenarios:      len(spec.Scenarios),
			ContractTests:  len(spec.ContractTests),
			StateMachines:  len(spec.StateMachines),
			DecisionTables: len(spec.DecisionTables),
		},
	}
}

// WriteExtract writes SCENARIOS.json under the feature directory and
// returns the path.
func WriteExtract(featureDir string, ex *Extract) (string, error) {
	path := filepath.Join(featureDir, "SCENARIOS.json")
	if err := projection.AtomicWriteJSON(path, ex); err != nil {
		return "", err
	}
	return path, nil
}

// ForTask returns the scenarios mapped to a task ID.
func (e *Extract) ForTask(taskID string) []Scenario {
	var out []Scenario
	for _, sc := range e.Scenarios {
		if sc.TaskID == taskID {
			out = append(out, sc)
		}
	}
	return out
}
