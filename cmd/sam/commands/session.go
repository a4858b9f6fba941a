// SPDX-License-Identifier: AGPL-3.0-or-later
package commands

import (
	"context"
	"time"

	"github.com/pyaythar-k/sam-plugin-sub000/internal/obs/config"
	"github.com/pyaythar-k/sam-plugin-sub000/internal/obs/errtrack"
	"github.com/pyaythar-k/sam-plugin-sub000/internal/obs/logging"
	"github.com/pyaythar-k/sam-plugin-sub000/internal/obs/metrics"
	"github.com/pyaythar-k/sam-plugin-sub000/internal/obs/tracing"
	"github.com/pyaythar-k/sam-plugin-sub000/internal/projectroot"
)

// session bundles the observability plumbing every command shares.
type session struct {
	ProjectDir string
	ObsDir     string
	Config     *config.Config
	Logger     *logging.Logger
	Metrics    *metrics.Collector
	Tracer     *tracing.Tracer
	Errors     *errtrack.Tracker
}

// newSession resolves the project root and wires up logging, metrics,
// tracing and error tracking for one command invocation.
func newSession(command string) (*session, error) {
	projectDir, err := projectroot.FindFromCwd()
	if err != nil {
		return nil, err
	}

	cfg, err := config.Load(projectDir)
	if err != nil {
		return nil, err
	}

	obsDir := config.Dir(projectDir)
	logger, err := logging.New(obsDir, cfg.Logging.Level, cfg.Logging.MaxSizeMB, cfg.Logging.MaxFiles)
	if err != nil {
		return nil, err
	}

	return &session{
		ProjectDir: projectDir,
		ObsDir:     obsDir,
		Config:     cfg,
		Logger:     logger.WithCommand(command),
		Metrics:    metrics.NewCollector(),
		Tracer:     tracing.NewTracer(command, cfg.Tracing.Enabled, cfg.Tracing.SampleRate),
		Errors:     errtrack.NewTracker(obsDir, cfg.Errors.MaxStoredErrors),
	}, nil
}

// Close flushes metrics and traces and records err if non-nil. It is
// called on every command exit path.
func (s *session) Close(command string, cmdErr error) {
	if cmdErr != nil {
		_, _ = s.Errors.Capture(cmdErr, command, nil)
		s.Metrics.Inc("command_errors", 1, map[string]string{"command": command})
	}
	s.Metrics.Inc("command_runs", 1, map[string]string{"command": command})
	if s.Config.Metrics.Enabled {
		if err := s.Metrics.Flush(s.ObsDir); err != nil {
			s.Logger.Warn("metrics flush failed", "error", err)
		}
	}
	if err := s.Tracer.Finish(s.ObsDir); err != nil {
		s.Logger.Warn("trace flush failed", "error", err)
	}
	_ = s.Logger.Close()
}

// FlushLoop writes metrics snapshots at the configured interval so that
// long-running commands surface data before they exit. It returns when
// ctx is cancelled. Close still performs the final flush.
func (s *session) FlushLoop(ctx context.Context) {
	interval := s.Config.Metrics.FlushIntervalSeconds
	if !s.Config.Metrics.Enabled || interval <= 0 {
		return
	}
	ticker := time.NewTicker(time.Duration(interval) * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.Metrics.Flush(s.ObsDir); err != nil {
				s.Logger.Warn("metrics flush failed", "error", err)
			}
		}
	}
}

// FeatureDir returns the state directory for a feature.
func (s *session) FeatureDir(featureID string) string {
	return projectroot.FeatureDir(s.ProjectDir, featureID)
}
