// SPDX-License-Identifier: AGPL-3.0-or-later
package checks

import (
	"context"
	"fmt"
	"io"
)

// Runner executes checks in order, persisting each result so a failed run
// can be resumed.
type Runner struct {
	checks []Check
	store  *StateStore
	deps   *Deps
	out    io.Writer
}

// NewRunner creates a runner. out receives human-readable progress lines.
func NewRunner(checks []Check, store *StateStore, deps *Deps, out io.Writer) *Runner {
	return &Runner{checks: checks, store: store, deps: deps, out: out}
}

// RunAll executes every check, continuing past failures and accumulating
// them. It returns an error if any check failed.
func (r *Runner) RunAll(ctx context.Context) error {
	return r.execute(ctx, r.checks)
}

// Resume re-runs only the checks that failed in the last run. A clean last
// run is a no-op.
func (r *Runner) Resume(ctx context.Context) error {
	failed, err := r.store.FailedChecks()
	if err != nil {
		return fmt.Errorf("loading failed checks: %w", err)
	}
	if len(failed) == 0 {
		fmt.Fprintln(r.out, "No failed checks to resume.")
		return nil
	}

	var toRun []Check
	for _, id := range failed {
		if c := r.find(id); c != nil {
			toRun = append(toRun, c)
		}
	}
	return r.execute(ctx, toRun)
}

// RunList executes the named checks in the given order.
func (r *Runner) RunList(ctx context.Context, ids []string) error {
	var toRun []Check
	for _, id := range ids {
		c := r.find(id)
		if c == nil {
			return fmt.Errorf("check not found: %s", id)
		}
		toRun = append(toRun, c)
	}
	return r.execute(ctx, toRun)
}

func (r *Runner) find(id string) Check {
	for _, c := range r.checks {
		if c.ID() == id {
			return c
		}
	}
	return nil
}

func (r *Runner) execute(ctx context.Context, checks []Check) error {
	var ran, failed []string

	for _, check := range checks {
		id := check.ID()
		ran = append(ran, id)

		res := check.Run(ctx, r.deps)
		if err := r.store.WriteResult(res); err != nil {
			return fmt.Errorf("writing result for %s: %w", id, err)
		}

		switch res.Status {
		case StatusSkip:
			fmt.Fprintf(r.out, "SKIP %s", id)
		case StatusPass:
			fmt.Fprintf(r.out, "PASS %s", id)
		default:
			failed = append(failed, id)
			fmt.Fprintf(r.out, "FAIL %s", id)
		}
		if res.Note != "" {
			fmt.Fprintf(r.out, ": %s", res.Note)
		}
		fmt.Fprintln(r.out)
	}

	last := LastRun{Status: "pass", Checks: ran, Failed: failed}
	if len(failed) > 0 {
		last.Status = "fail"
	}
	if err := r.store.WriteLastRun(last); err != nil {
		return fmt.Errorf("writing last run: %w", err)
	}

	if len(failed) > 0 {
		return fmt.Errorf("verification failed: %v", failed)
	}
	return nil
}
