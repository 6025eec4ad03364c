package config

import (
	"fmt"
	"strings"

	"github.com/conneroisu/htmt/internal/errors"
	"github.com/conneroisu/htmt/internal/logging"
)

// MaxWorkers caps build.workers.
const MaxWorkers = 256

func invalid(format string, args ...interface{}) error {
	return errors.NewConfigError(errors.ErrCodeConfigInvalid, fmt.Sprintf(format, args...))
}

// validateConfig checks every section of cfg.
func validateConfig(cfg *Config) error {
	if err := validatePath("root", cfg.Root); err != nil {
		return err
	}
	if err := validatePath("manifest", cfg.Manifest); err != nil {
		return err
	}
	if err := validateLogConfig(&cfg.Log); err != nil {
		return err
	}
	if err := validateBuildConfig(&cfg.Build); err != nil {
		return err
	}
	if cfg.Watch.Debounce < 0 {
		return invalid("watch.debounce must not be negative, got %s", cfg.Watch.Debounce)
	}
	return nil
}

func validateLogConfig(cfg *LogConfig) error {
	if _, err := logging.ParseLevel(cfg.Level); err != nil {
		return invalid("log.level: %v", err)
	}
	switch strings.ToLower(cfg.Format) {
	case "text", "json":
	default:
		return invalid("log.format must be text or json, got %q", cfg.Format)
	}
	return nil
}

func validateBuildConfig(cfg *BuildConfig) error {
	if cfg.Workers < 1 || cfg.Workers > MaxWorkers {
		return invalid("build.workers must be between 1 and %d, got %d", MaxWorkers, cfg.Workers)
	}
	if cfg.Output != "" {
		if err := validatePath("build.output", cfg.Output); err != nil {
			return err
		}
	}
	if cfg.MetricsFile != "" {
		if err := validatePath("build.metrics_file", cfg.MetricsFile); err != nil {
			return err
		}
	}
	return nil
}

// validatePath rejects empty paths and paths no filesystem accepts.
func validatePath(key, path string) error {
	if strings.TrimSpace(path) == "" {
		return invalid("%s must not be empty", key)
	}
	if strings.ContainsAny(path, "\x00\n\r") {
		return invalid("%s contains a control character", key)
	}
	return nil
}
