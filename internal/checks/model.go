// SPDX-License-Identifier: AGPL-3.0-or-later

// Package checks runs verification checks against a feature's artifacts
// and records resumable results under the feature's run directory.
package checks

import "context"

// Status is the outcome of a check execution.
type Status string

const (
	StatusPass Status = "pass"
	StatusFail Status = "fail"
	StatusSkip Status = "skip"
)

// Result is the persisted outcome of a single check.
type Result struct {
	Check  string `json:"check"`
	Status Status `json:"status"`
	Note   string `json:"note,omitempty"`
}

// LastRun summarizes the most recent execution.
type LastRun struct {
	Status string   `json:"status"` // pass or fail
	Checks []string `json:"checks"` // ordered list of checks run
	Failed []string `json:"failed"`
}

// Deps carries what checks need to inspect a feature.
type Deps struct {
	ProjectDir string
	FeatureDir string
	FeatureID  string
}

// Check is one verification unit.
type Check interface {
	// ID returns the unique identifier, e.g. "registry:integrity".
	ID() string

	// Run executes the check.
	Run(ctx context.Context, deps *Deps) Result
}
