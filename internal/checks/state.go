// SPDX-License-Identifier: AGPL-3.0-or-later
package checks

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// StateStore reads and writes check results under a feature's run directory.
type StateStore struct {
	baseDir string
}

// NewStateStore creates a store at baseDir, typically .sam/{feature}/run.
func NewStateStore(baseDir string) *StateStore {
	return &StateStore{baseDir: baseDir}
}

func (s *StateStore) lastRunPath() string {
	return filepath.Join(s.baseDir, "last-run.json")
}

// ReadLastRun loads the last execution summary, nil when none exists.
func (s *StateStore) ReadLastRun() (*LastRun, error) {
	f, err := os.Open(s.lastRunPath())
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening last run file: %w", err)
	}
	defer func() { _ = f.Close() }()

	var last LastRun
	if err := json.NewDecoder(f).Decode(&last); err != nil {
		return nil, fmt.Errorf("decoding last run: %w", err)
	}
	return &last, nil
}

// WriteLastRun saves the execution summary.
func (s *StateStore) WriteLastRun(last LastRun) (err error) {
	path := s.lastRunPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		cerr := f.Close()
		if err == nil {
			err = cerr
		}
	}()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(last)
}

// ReadResult loads one check's stored result, nil when none exists.
func (s *StateStore) ReadResult(checkID string) (*Result, error) {
	f, err := os.Open(filepath.Join(s.baseDir, "checks", checkID+".json"))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	var res Result
	if err := json.NewDecoder(f).Decode(&res); err != nil {
		return nil, err
	}
	return &res, nil
}

// WriteResult saves a check's result.
func (s *StateStore) WriteResult(res Result) (err error) {
	path := filepath.Join(s.baseDir, "checks", res.Check+".json")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		cerr := f.Close()
		if err == nil {
			err = cerr
		}
	}()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}

// Reset clears all stored state.
func (s *StateStore) Reset() error {
	return os.RemoveAll(s.baseDir)
}

// FailedChecks returns the check IDs that failed in the last run.
func (s *StateStore) FailedChecks() ([]string, error) {
	last, err := s.ReadLastRun()
	if err != nil {
		return nil, err
	}
	if last == nil {
		return nil, nil
	}
	return last.Failed, nil
}
