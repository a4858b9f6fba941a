// SPDX-License-Identifier: AGPL-3.0-or-later
package conflict

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher re-runs conflict detection whenever tracked source files change.
// Events are debounced so a burst of writes triggers a single scan.
type Watcher struct {
	featureDir string
	projectDir string
	logger     *slog.Logger
	debounce   time.Duration

	// OnReport is called after each completed scan.
	OnReport func(*Report)
}

// NewWatcher creates a watcher for the given feature and project directories.
func NewWatcher(featureDir, projectDir string, logger *slog.Logger) *Watcher {
	return &Watcher{
		featureDir: featureDir,
		projectDir: projectDir,
		logger:     logger,
		debounce:   500 * time.Millisecond,
	}
}

// Watch blocks until ctx is cancelled, running a detection pass on startup
// and after every debounced filesystem change.
func (w *Watcher) Watch(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating filesystem watcher: %w", err)
	}
	defer fw.Close()

	if err := w.addRecursive(fw, w.projectDir); err != nil {
		return err
	}

	w.runScan(ctx)

	var timer *time.Timer
	pending := make(chan struct{}, 1)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if w.ignored(event.Name) {
				continue
			}
			if event.Op.Has(fsnotify.Create) {
				// New directories need to be watched too.
				if err := w.addRecursive(fw, event.Name); err != nil {
					w.logger.Debug("watch add failed", "path", event.Name, "error", err)
				}
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(w.debounce, func() {
				select {
				case pending <- struct{}{}:
				default:
				}
			})

		case <-pending:
			w.runScan(ctx)

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watcher error", "error", err)
		}
	}
}

func (w *Watcher) runScan(ctx context.Context) {
	start := time.Now()
	detector, err := NewDetector(ctx, w.featureDir, w.projectDir)
	if err != nil {
		w.logger.Error("conflict scan failed", "error", err)
		return
	}
	report, err := detector.Run(ctx)
	if err != nil {
		w.logger.Error("conflict scan failed", "error", err)
		return
	}

	w.logger.Info("conflict scan complete",
		"total", report.Summary.Total,
		"critical", report.Summary.Critical,
		"duration", time.Since(start).Round(time.Millisecond).String(),
	)
	if w.OnReport != nil {
		w.OnReport(report)
	}
}

// addRecursive watches dir and all subdirectories, skipping ignored ones.
func (w *Watcher) addRecursive(fw *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if w.ignored(path) {
			return filepath.SkipDir
		}
		if err := fw.Add(path); err != nil {
			w.logger.Debug("watch add failed", "path", path, "error", err)
		}
		return nil
	})
}

func (w *Watcher) ignored(path string) bool {
	rel, err := filepath.Rel(w.projectDir, path)
	if err != nil {
		return false
	}
	for _, part := range strings.Split(filepath.ToSlash(rel), "/") {
		switch part {
		case ".git", "node_modules", ".sam", "dist", "build", "vendor", "__pycache__", ".venv", "coverage":
			return true
		}
	}
	return false
}
