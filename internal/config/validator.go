package config

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/homewiseai/hwprobe/internal/constants"
	"github.com/homewiseai/hwprobe/internal/errors"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation: %s: %s", e.Field, e.Message)
}

// Validator validates configuration.
type Validator struct {
	validLogLevels  map[string]bool
	validLogFormats map[string]bool
	knownBackends   map[string]bool
}

// NewValidator creates a new validator.
func NewValidator() *Validator {
	known := make(map[string]bool)
	for _, b := range constants.KnownBackends() {
		known[b] = true
	}
	return &Validator{
		validLogLevels: map[string]bool{
			"debug": true,
			"info":  true,
			"warn":  true,
			"error": true,
		},
		validLogFormats: map[string]bool{
			"text":   true,
			"json":   true,
			"logfmt": true,
		},
		knownBackends: known,
	}
}

// Validate validates the configuration and returns all errors rather than
// stopping at the first one.
func (v *Validator) Validate(cfg *Config) []error {
	var errs []error
	add := func(field, format string, args ...interface{}) {
		errs = append(errs, &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	if !v.validLogLevels[strings.ToLower(cfg.LogLevel)] {
		add("log_level", "invalid log level %q: must be one of: debug, info, warn, error", cfg.LogLevel)
	}
	if !v.validLogFormats[strings.ToLower(cfg.LogFormat)] {
		add("log_format", "invalid log format %q: must be one of: text, json, logfmt", cfg.LogFormat)
	}

	if cfg.ProbeTimeout <= 0 {
		add("probe_timeout", "probe timeout must be positive")
	}
	if cfg.CommandTimeout <= 0 {
		add("command_timeout", "command timeout must be positive")
	}
	// The command deadline must outlast a full backend chain.
	if chain := cfg.ProbeTimeout * time.Duration(len(cfg.Backends)); cfg.ProbeTimeout > 0 && cfg.CommandTimeout > 0 && cfg.CommandTimeout < chain {
		add("command_timeout", "command timeout %s is shorter than probe_timeout x %d backends (%s)",
			cfg.CommandTimeout, len(cfg.Backends), chain)
	}
	if cfg.HardwareRetries < 1 {
		add("hardware_retries", "at least one attempt is required")
	}
	if cfg.HardwareRetryDelay < 0 {
		add("hardware_retry_delay", "retry delay cannot be negative")
	}

	if len(cfg.Backends) == 0 {
		add("backends", "at least one backend is required")
	}
	seen := make(map[string]bool)
	for _, b := range cfg.Backends {
		if !v.knownBackends[b] {
			add("backends", "unknown backend %q: must be one of: %s", b, strings.Join(constants.KnownBackends(), ", "))
			continue
		}
		if seen[b] {
			add("backends", "backend %q listed more than once", b)
		}
		seen[b] = true
	}

	if cfg.Verbose && cfg.Quiet {
		add("verbose/quiet", "verbose and quiet cannot both be true")
	}

	if cfg.LogFile != "" {
		dir := filepath.Dir(cfg.LogFile)
		if dir != "" && dir != "." {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				add("log_file", "directory does not exist: %s", dir)
			}
		}
	}

	if _, _, err := net.SplitHostPort(cfg.ListenAddr); err != nil {
		add("listen_addr", "invalid listen address %q: %v", cfg.ListenAddr, err)
	}

	if cfg.ConfigDir == "" {
		add("config_dir", "config directory cannot be empty")
	}

	return errs
}

// ValidateOrError validates and returns a single wrapped error.
// If there are no validation errors, nil is returned.
func (v *Validator) ValidateOrError(cfg *Config) error {
	errs := v.Validate(cfg)
	if len(errs) == 0 {
		return nil
	}

	msgs := make([]string, len(errs))
	for i, err := range errs {
		msgs[i] = err.Error()
	}

	return errors.New(errors.Configuration, strings.Join(msgs, "; ")).
		WithOp("config.Validate")
}

// IsValid returns true if the configuration is valid.
func (v *Validator) IsValid(cfg *Config) bool {
	return len(v.Validate(cfg)) == 0
}
