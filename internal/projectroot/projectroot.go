// SPDX-License-Identifier: AGPL-3.0-or-later

// Package projectroot locates the project root directory for a CLI
// invocation from any subdirectory.
package projectroot

import (
	"fmt"
	"os"
	"path/filepath"
)

// Find walks up from start looking for a directory containing .sam or .git.
// It returns the first match, preferring the closest ancestor.
func Find(start string) (string, error) {
	dir, err := filepath.Abs(start)
	if err != nil {
		return "", fmt.Errorf("resolving start directory: %w", err)
	}

	for {
		for _, marker := range []string{".sam", ".git"} {
			if info, err := os.Stat(filepath.Join(dir, marker)); err == nil && info.IsDir() {
				return dir, nil
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("no project root found above %s (missing .sam or .git)", start)
		}
		dir = parent
	}
}

// FindFromCwd is Find starting at the current working directory.
func FindFromCwd() (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("getting working directory: %w", err)
	}
	return Find(cwd)
}

// FeatureDir returns the feature state directory for a feature ID.
func FeatureDir(root, featureID string) string {
	return filepath.Join(root, ".sam", featureID)
}
