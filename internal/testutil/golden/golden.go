// Package golden compares rendered output against checked-in golden files.
package golden

import (
	"flag"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

var update = flag.Bool("update", false, "rewrite golden files with current output")

// Dir returns the testdata directory next to the calling test file.
func Dir(t *testing.T) string {
	t.Helper()
	_, filename, _, ok := runtime.Caller(1)
	if !ok {
		t.Fatalf("runtime.Caller failed")
	}
	return filepath.Join(filepath.Dir(filename), "testdata")
}

// Check compares got against testdata/<name>.golden. A missing golden file
// is seeded from got so a fresh checkout bootstraps itself; -update rewrites
// existing files.
func Check(t *testing.T, dir, name, got string) {
	t.Helper()
	safeName(t, name)

	path := filepath.Join(dir, name+".golden")
	want, err := os.ReadFile(path) //nolint:gosec // testdata path controlled by test
	if os.IsNotExist(err) || *update {
		write(t, path, got)
		return
	}
	if err != nil {
		t.Fatalf("read golden %s: %v", path, err)
	}
	if string(want) != got {
		t.Errorf("output does not match %s\n--- want\n%s\n--- got\n%s", path, want, got)
	}
}

func write(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		t.Fatalf("mkdir testdata: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write golden %s: %v", path, err)
	}
	t.Logf("wrote %s", path)
}

func safeName(t *testing.T, name string) {
	t.Helper()
	if strings.Contains(name, "..") || strings.ContainsAny(name, `/\`) {
		t.Fatalf("invalid golden name %q", name)
	}
}
