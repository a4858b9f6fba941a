// SPDX-License-Identifier: AGPL-3.0-or-later

package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/pyaythar-k/sam-plugin-sub000/internal/projection"
)

// RegistryFileName is the on-disk name of the task registry within a feature directory.
const RegistryFileName = "TASKS.json"

// Store reads and writes a feature's TASKS.json.
type Store struct {
	featureDir string
}

// NewStore creates a store rooted at the given feature directory (e.g. .sam/001_user_auth).
func NewStore(featureDir string) *Store {
	return &Store{featureDir: featureDir}
}

// Path returns the registry file path.
func (s *Store) Path() string {
	return filepath.Join(s.featureDir, RegistryFileName)
}

// FeatureDir returns the feature directory the store is rooted at.
func (s *Store) FeatureDir() string {
	return s.featureDir
}

// Exists reports whether the registry file is present.
func (s *Store) Exists() bool {
	_, err := os.Stat(s.Path())
	return err == nil
}

// Load reads and decodes the registry. A missing file is an error; callers
// that tolerate absence should check Exists first.
func (s *Store) Load() (*Registry, error) {
	data, err := os.ReadFile(s.Path())
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", s.Path(), err)
	}

	var reg Registry
	if err := json.Unmarshal(data, &reg); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", s.Path(), err)
	}
	return &reg, nil
}

// Save recomputes task counts and writes the registry atomically with two-space indent.
func (s *Store) Save(reg *Registry) error {
	total, completed := reg.TaskCounts()
	reg.Metadata.TotalTasks = strconv.Itoa(total)
	reg.Metadata.CompletedTasks = strconv.Itoa(completed)

	if err := projection.AtomicWriteJSON(s.Path(), reg); err != nil {
		return fmt.Errorf("writing %s: %w", s.Path(), err)
	}
	return nil
}
