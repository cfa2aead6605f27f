package config

import (
	"os"
	"path/filepath"

	"github.com/homewiseai/hwprobe/internal/constants"
)

// DefaultLogLevel is the default logging level.
const DefaultLogLevel = "info"

// DefaultLogFormat is the default log line encoding.
const DefaultLogFormat = "text"

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		LogLevel:           DefaultLogLevel,
		LogFormat:          DefaultLogFormat,
		ConfigDir:          defaultConfigDir(),
		Backends:           constants.DefaultBackends(),
		ProbeTimeout:       constants.ProbeTimeout,
		HardwareRetries:    constants.HardwareRetries,
		HardwareRetryDelay: constants.HardwareRetryDelay,
		CommandTimeout:     constants.CommandTimeout,
		ListenAddr:         constants.DefaultListenAddr,
	}
}

// defaultConfigDir returns the XDG config directory for hwprobe.
// Falls back to ~/.config/hwprobe if XDG_CONFIG_HOME is not set.
func defaultConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, constants.AppName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".config", constants.AppName)
	}
	return filepath.Join(home, ".config", constants.AppName)
}

// GetConfigDir returns the configuration directory, respecting XDG.
func GetConfigDir() string {
	return defaultConfigDir()
}
