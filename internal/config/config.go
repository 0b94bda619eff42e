// Package config provides configuration types and defaults for scatter.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/zjrosen/scatter/internal/log"
	"github.com/zjrosen/scatter/internal/runner"
)

// Config holds all configuration options for scatter.
type Config struct {
	// Workers is the fixed pool size spawned at startup.
	Workers int `mapstructure:"workers"`

	// Shell is the interpreter each task line runs under.
	Shell string `mapstructure:"shell"`

	// PollInterval is the worker sleep between iterations when the task
	// source is momentarily empty.
	PollInterval time.Duration `mapstructure:"poll_interval"`

	// PausedBackoff is the sleep a paused worker takes before rechecking
	// its command slot. Zero derives it from PollInterval.
	PausedBackoff time.Duration `mapstructure:"paused_backoff"`

	Console ConsoleConfig `mapstructure:"console"`
	Log     LogConfig     `mapstructure:"log"`
	Tracing TracingConfig `mapstructure:"tracing"`
}

// ConsoleConfig holds interactive console configuration.
type ConsoleConfig struct {
	// Mode selects the console surface.
	// Valid values: "tui" (default), "plain"
	Mode string `mapstructure:"mode"`
}

// LogConfig holds file logging configuration. Log output never goes to the
// terminal; the console owns it.
type LogConfig struct {
	// Path is the log file location. Empty disables file logging.
	Path string `mapstructure:"path"`

	// Level is the minimum level written: debug, info, warn, error.
	Level string `mapstructure:"level"`
}

// TracingConfig holds distributed tracing configuration.
type TracingConfig struct {
	// Enabled controls whether tracing is active.
	// Default: false
	Enabled bool `mapstructure:"enabled"`

	// Exporter selects the trace export backend.
	// Options: "none", "file", "stdout", "otlp"
	// Default: "none"
	Exporter string `mapstructure:"exporter"`

	// FilePath is the output file for the "file" exporter.
	// Default: ~/.config/scatter/traces/traces.jsonl
	FilePath string `mapstructure:"file_path"`

	// OTLPEndpoint is the collector endpoint for the "otlp" exporter.
	// Default: "localhost:4317"
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`

	// SampleRate controls trace sampling (0.0 to 1.0).
	// 1.0 = all traces, 0.1 = 10% of traces
	// Default: 1.0
	SampleRate float64 `mapstructure:"sample_rate"`
}

// DefaultTracesFilePath returns the default path for trace file export.
// Returns ~/.config/scatter/traces/traces.jsonl or empty string if home dir
// unavailable.
func DefaultTracesFilePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "scatter", "traces", "traces.jsonl")
}

// DefaultLogFilePath returns the default path for file logging.
// Returns ~/.config/scatter/scatter.log or empty string if home dir
// unavailable.
func DefaultLogFilePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "scatter", "scatter.log")
}

// Defaults returns a Config with sensible default values.
func Defaults() Config {
	return Config{
		Workers:       4,
		Shell:         runner.DefaultShell,
		PollInterval:  100 * time.Millisecond,
		PausedBackoff: 300 * time.Millisecond,
		Console: ConsoleConfig{
			Mode: "tui",
		},
		Log: LogConfig{
			Path:  "", // File logging off until requested
			Level: "info",
		},
		Tracing: TracingConfig{
			Enabled:      false,
			Exporter:     "none",
			FilePath:     "", // Derived from config dir at runtime
			OTLPEndpoint: "localhost:4317",
			SampleRate:   1.0,
		},
	}
}

// Validate checks the full configuration for errors.
// Empty values are valid; they fall back to defaults at the point of use.
func Validate(cfg Config) error {
	if cfg.Workers < 0 {
		return fmt.Errorf("workers must not be negative, got %d", cfg.Workers)
	}
	if cfg.PollInterval < 0 {
		return fmt.Errorf("poll_interval must not be negative, got %v", cfg.PollInterval)
	}
	if cfg.PausedBackoff < 0 {
		return fmt.Errorf("paused_backoff must not be negative, got %v", cfg.PausedBackoff)
	}
	if err := ValidateConsole(cfg.Console); err != nil {
		return err
	}
	if err := ValidateLog(cfg.Log); err != nil {
		return err
	}
	return ValidateTracing(cfg.Tracing)
}

// ValidateConsole checks console configuration for errors.
func ValidateConsole(console ConsoleConfig) error {
	switch console.Mode {
	case "", "tui", "plain":
		return nil
	default:
		return fmt.Errorf("console.mode must be \"tui\" or \"plain\", got %q", console.Mode)
	}
}

// ValidateLog checks log configuration for errors.
func ValidateLog(lc LogConfig) error {
	if lc.Level == "" {
		return nil
	}
	if _, err := log.ParseLevel(lc.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	return nil
}

// ValidateTracing checks tracing configuration for errors.
// Returns nil if the configuration is valid (empty values use defaults).
func ValidateTracing(tracing TracingConfig) error {
	// Validate SampleRate is in range [0.0, 1.0]
	if tracing.SampleRate < 0.0 || tracing.SampleRate > 1.0 {
		return fmt.Errorf("tracing.sample_rate must be between 0.0 and 1.0, got %v", tracing.SampleRate)
	}

	// Validate Exporter is a valid option
	if tracing.Exporter != "" {
		switch tracing.Exporter {
		case "none", "file", "stdout", "otlp":
			// Valid
		default:
			return fmt.Errorf("tracing.exporter must be \"none\", \"file\", \"stdout\", or \"otlp\", got %q", tracing.Exporter)
		}
	}

	// Only validate path requirements when tracing is enabled
	if tracing.Enabled {
		if tracing.Exporter == "file" && tracing.FilePath == "" {
			return fmt.Errorf("tracing.file_path is required when exporter is \"file\"")
		}
		if tracing.Exporter == "otlp" && tracing.OTLPEndpoint == "" {
			return fmt.Errorf("tracing.otlp_endpoint is required when exporter is \"otlp\"")
		}
	}

	return nil
}

// DefaultConfigTemplate returns the default config as a YAML string with comments.
func DefaultConfigTemplate() string {
	return `# Scatter Configuration

# Number of workers spawned at startup
workers: 4

# Shell used to run each task line (as: <shell> -c "<task>")
shell: /bin/sh

# Worker sleep between iterations when the task queue is momentarily empty
poll_interval: 100ms

# Sleep a paused worker takes before rechecking for commands.
# Defaults to three poll intervals when omitted.
# paused_backoff: 300ms

# Console settings
console:
  mode: tui  # "tui" (default) or "plain" line console

# File logging. The terminal is never written to directly; tail the file
# or use the TUI log pane instead.
# log:
#   path: ~/.config/scatter/scatter.log
#   level: info  # debug, info, warn, error

# Distributed tracing
# Records one span per run and one per task
# tracing:
#   enabled: false                 # Enable/disable tracing (default: false)
#   exporter: none                 # Export backend: none, file, stdout, otlp
#   file_path: ~/.config/scatter/traces/traces.jsonl  # Output file for file exporter
#   otlp_endpoint: localhost:4317  # OTLP collector endpoint (for otlp exporter)
#   sample_rate: 1.0               # Trace sampling rate 0.0-1.0 (default: 1.0)
#
# Example: Enable tracing with file export
# tracing:
#   enabled: true
#   exporter: file
#   file_path: ~/.config/scatter/traces/traces.jsonl
`
}

// WriteDefaultConfig creates a config file at the given path with default settings and comments.
// Creates the parent directory if it doesn't exist.
func WriteDefaultConfig(configPath string) error {
	log.Debug(log.CatConfig, "Writing default config", "path", configPath)

	// Create parent directory if needed
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		log.ErrorErr(log.CatConfig, "Failed to create config directory", err, "dir", dir)
		return fmt.Errorf("creating config directory: %w", err)
	}

	// Write the template
	if err := os.WriteFile(configPath, []byte(DefaultConfigTemplate()), 0o600); err != nil {
		log.ErrorErr(log.CatConfig, "Failed to write config file", err, "path", configPath)
		return fmt.Errorf("writing config file: %w", err)
	}

	log.Info(log.CatConfig, "Created default config", "path", configPath)
	return nil
}
