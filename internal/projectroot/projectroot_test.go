// SPDX-License-Identifier: AGPL-3.0-or-later

package projectroot

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindWalksUpToMarker(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, ".sam"), 0o755))
	nested := filepath.Join(root, "src", "components")
	require.NoError(t, os.MkdirAll(nested, 0o755))

	found, err := Find(nested)
	require.NoError(t, err)
	assert.Equal(t, root, found)
}

func TestFindPrefersClosestAncestor(t *testing.T) {
	outer := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(outer, ".git"), 0o755))
	inner := filepath.Join(outer, "sub")
	require.NoError(t, os.MkdirAll(filepath.Join(inner, ".sam"), 0o755))

	found, err := Find(inner)
	require.NoError(t, err)
	assert.Equal(t, inner, found)
}

func TestFindIgnoresMarkerFiles(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "sub", ".git"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "sub", "inner"), 0o755))
	// A plain file named .sam does not mark a root.
	require.NoError(t, os.WriteFile(filepath.Join(root, "sub", "inner", ".sam"), nil, 0o644))

	found, err := Find(filepath.Join(root, "sub", "inner"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "sub"), found)
}

func TestFeatureDir(t *testing.T) {
	assert.Equal(t, filepath.Join("/project", ".sam", "001"), FeatureDir("/project", "001"))
}
