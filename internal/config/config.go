// Package config provides configuration management for hwprobe.
// It supports loading configuration from YAML files, a .env file and
// environment variables, with validation and sensible defaults. The package
// follows the XDG Base Directory specification for locating configuration files.
package config

import (
	"path/filepath"
	"time"

	"github.com/homewiseai/hwprobe/internal/constants"
)

// Config represents the application configuration.
// Configuration values can be set via YAML file or environment variables,
// with environment variables taking precedence.
type Config struct {
	// General settings
	LogLevel  string `yaml:"log_level"`
	LogFile   string `yaml:"log_file"`
	LogFormat string `yaml:"log_format"`
	NoColor   bool   `yaml:"no_color"`
	Verbose   bool   `yaml:"verbose"`
	Quiet     bool   `yaml:"quiet"`

	// Directories
	ConfigDir string `yaml:"config_dir"`

	// Detection
	Backends     []string      `yaml:"backends"`
	ProbeTimeout time.Duration `yaml:"probe_timeout"`
	SingleFlight bool          `yaml:"single_flight"`

	// Host hardware
	HardwareRetries    int           `yaml:"hardware_retries"`
	HardwareRetryDelay time.Duration `yaml:"hardware_retry_delay"`

	// Command boundary
	CommandTimeout time.Duration `yaml:"command_timeout"`
	ListenAddr     string        `yaml:"listen_addr"`
}

// ConfigPath returns the path to the config file.
func (c *Config) ConfigPath() string {
	return filepath.Join(c.ConfigDir, constants.ConfigFileName)
}

// IsVerbose returns true if verbose output is enabled and quiet is not.
func (c *Config) IsVerbose() bool {
	return c.Verbose && !c.Quiet
}

// IsSilent returns true if quiet mode is enabled.
func (c *Config) IsSilent() bool {
	return c.Quiet
}

// Clone returns a deep copy of the configuration.
func (c *Config) Clone() *Config {
	clone := *c
	clone.Backends = append([]string(nil), c.Backends...)
	return &clone
}
