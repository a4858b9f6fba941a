// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config loads observability settings from the project's
// .sam/observability/config.yaml with SAM_OBS_ environment overrides.
package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config holds the observability settings for one project.
type Config struct {
	Logging LoggingConfig `mapstructure:"logging"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Tracing TracingConfig `mapstructure:"tracing"`
	Errors  ErrorsConfig  `mapstructure:"errors"`
}

// LoggingConfig controls the JSONL log sink.
type LoggingConfig struct {
	// Level is one of DEBUG, INFO, WARN, ERROR.
	Level string `mapstructure:"level"`
	// MaxSizeMB rotates the log file when it grows past this size.
	MaxSizeMB int `mapstructure:"max_size_mb"`
	// MaxFiles is how many rotated log files to keep.
	MaxFiles int `mapstructure:"max_files"`
}

// MetricsConfig controls metric collection.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
	// FlushIntervalSeconds is how often long-running commands flush metrics.
	FlushIntervalSeconds int `mapstructure:"flush_interval_seconds"`
}

// TracingConfig controls trace recording.
type TracingConfig struct {
	Enabled bool `mapstructure:"enabled"`
	// SampleRate is the fraction of traces to record, 0.0 to 1.0.
	SampleRate float64 `mapstructure:"sample_rate"`
}

// ErrorsConfig controls error tracking.
type ErrorsConfig struct {
	Enabled bool `mapstructure:"enabled"`
	// MaxStoredErrors caps the error log. Oldest entries are dropped.
	MaxStoredErrors int `mapstructure:"max_stored_errors"`
}

// Dir returns the observability state directory for a project.
func Dir(projectDir string) string {
	return filepath.Join(projectDir, ".sam", "observability")
}

// Load reads config.yaml from the observability directory. Missing files
// yield defaults; SAM_OBS_ environment variables override file values,
// e.g. SAM_OBS_LOGGING_LEVEL=DEBUG.
func Load(projectDir string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(Dir(projectDir))

	v.SetEnvPrefix("SAM_OBS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading observability config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing observability config: %w", err)
	}
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logging.level", "INFO")
	v.SetDefault("logging.max_size_mb", 10)
	v.SetDefault("logging.max_files", 5)
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.flush_interval_seconds", 30)
	v.SetDefault("tracing.enabled", true)
	v.SetDefault("tracing.sample_rate", 1.0)
	v.SetDefault("errors.enabled", true)
	v.SetDefault("errors.max_stored_errors", 500)
}

func validate(cfg *Config) error {
	switch strings.ToUpper(cfg.Logging.Level) {
	case "DEBUG", "INFO", "WARN", "ERROR":
	default:
		return fmt.Errorf("invalid logging level %q", cfg.Logging.Level)
	}
	if cfg.Tracing.SampleRate < 0 || cfg.Tracing.SampleRate > 1 {
		return fmt.Errorf("tracing sample_rate must be between 0 and 1, got %v", cfg.Tracing.SampleRate)
	}
	if cfg.Errors.MaxStoredErrors < 1 {
		return fmt.Errorf("errors max_stored_errors must be positive, got %d", cfg.Errors.MaxStoredErrors)
	}
	return nil
}
