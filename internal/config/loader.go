package config

import (
	"bytes"
	stderrors "errors"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/homewiseai/hwprobe/internal/errors"
)

const (
	// EnvPrefix is the prefix for environment variables.
	EnvPrefix = "HWPROBE_"
	// DotEnvFile is the file read by default for additional variables.
	DotEnvFile = ".env"
)

// Loader handles configuration loading from multiple sources.
// It loads configuration in order: defaults -> file -> .env -> environment,
// with later sources overriding earlier ones.
type Loader struct {
	configPath string
	envPrefix  string
	dotEnvPath string
	dotEnv     map[string]string
	getenv     func(string) string
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithEnvPrefix sets a custom environment variable prefix.
func WithEnvPrefix(prefix string) LoaderOption {
	return func(l *Loader) {
		l.envPrefix = prefix
	}
}

// WithDotEnv sets the .env file consulted after the YAML file. An empty
// path disables .env loading.
func WithDotEnv(path string) LoaderOption {
	return func(l *Loader) {
		l.dotEnvPath = path
	}
}

// WithGetenv replaces os.Getenv, mostly for tests.
func WithGetenv(fn func(string) string) LoaderOption {
	return func(l *Loader) {
		l.getenv = fn
	}
}

// NewLoader creates a new configuration loader.
// If configPath is empty, only defaults and environment variables are used.
func NewLoader(configPath string, opts ...LoaderOption) *Loader {
	l := &Loader{
		configPath: configPath,
		envPrefix:  EnvPrefix,
		dotEnvPath: DotEnvFile,
		getenv:     os.Getenv,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load loads configuration from file and environment.
// Returns an error if the file exists but cannot be parsed.
func (l *Loader) Load() (*Config, error) {
	cfg := DefaultConfig()

	if l.configPath != "" {
		if err := l.loadFromFile(cfg); err != nil {
			return nil, err
		}
	}

	if err := l.loadDotEnv(); err != nil {
		return nil, err
	}

	if err := l.loadFromEnv(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadAndValidate loads configuration and validates it.
func (l *Loader) LoadAndValidate() (*Config, error) {
	cfg, err := l.Load()
	if err != nil {
		return nil, err
	}

	if err := NewValidator().ValidateOrError(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (l *Loader) loadFromFile(cfg *Config) error {
	const op = "config.loadFromFile"

	data, err := os.ReadFile(l.configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errors.Wrap(errors.Configuration, "failed to read config file", err).WithOp(op)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !stderrors.Is(err, io.EOF) {
		return errors.Wrap(errors.Configuration, "failed to parse config file", err).WithOp(op)
	}

	return nil
}

// loadDotEnv reads the .env file without touching the process environment.
func (l *Loader) loadDotEnv() error {
	if l.dotEnvPath == "" {
		return nil
	}
	values, err := godotenv.Read(l.dotEnvPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errors.Wrap(errors.Configuration, "failed to parse .env file", err).
			WithOp("config.loadDotEnv")
	}
	l.dotEnv = values
	return nil
}

// lookup prefers the real environment over .env values.
func (l *Loader) lookup(key string) string {
	name := l.envPrefix + key
	if v := l.getenv(name); v != "" {
		return v
	}
	return l.dotEnv[name]
}

func (l *Loader) loadFromEnv(cfg *Config) error {
	const op = "config.loadFromEnv"

	if v := l.lookup("LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := l.lookup("LOG_FILE"); v != "" {
		cfg.LogFile = v
	}
	if v := l.lookup("LOG_FORMAT"); v != "" {
		cfg.LogFormat = v
	}
	if v := l.lookup("NO_COLOR"); v != "" {
		cfg.NoColor = parseBool(v)
	}
	if v := l.lookup("VERBOSE"); v != "" {
		cfg.Verbose = parseBool(v)
	}
	if v := l.lookup("QUIET"); v != "" {
		cfg.Quiet = parseBool(v)
	}
	if v := l.lookup("CONFIG_DIR"); v != "" {
		cfg.ConfigDir = v
	}
	if v := l.lookup("BACKENDS"); v != "" {
		cfg.Backends = splitList(v)
	}
	if v := l.lookup("SINGLE_FLIGHT"); v != "" {
		cfg.SingleFlight = parseBool(v)
	}
	if v := l.lookup("LISTEN_ADDR"); v != "" {
		cfg.ListenAddr = v
	}

	durations := []struct {
		key string
		dst *time.Duration
	}{
		{"PROBE_TIMEOUT", &cfg.ProbeTimeout},
		{"COMMAND_TIMEOUT", &cfg.CommandTimeout},
		{"HARDWARE_RETRY_DELAY", &cfg.HardwareRetryDelay},
	}
	for _, d := range durations {
		v := l.lookup(d.key)
		if v == "" {
			continue
		}
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return errors.Wrapf(errors.Configuration, err, "invalid duration in %s%s", l.envPrefix, d.key).WithOp(op)
		}
		*d.dst = parsed
	}

	if v := l.lookup("HARDWARE_RETRIES"); v != "" {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return errors.Wrapf(errors.Configuration, err, "invalid integer in %sHARDWARE_RETRIES", l.envPrefix).WithOp(op)
		}
		cfg.HardwareRetries = n
	}

	return nil
}

// parseBool parses a string as a boolean value.
// Accepts: true, 1, yes, on (case-insensitive) as true.
// All other values are treated as false.
func parseBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "true" || s == "1" || s == "yes" || s == "on"
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.ToLower(strings.TrimSpace(part)); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// SaveConfig saves the configuration to a YAML file, creating the directory
// if needed. An empty path writes to cfg.ConfigPath().
func SaveConfig(cfg *Config, path string) error {
	const op = "config.SaveConfig"

	if path == "" {
		path = cfg.ConfigPath()
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrap(errors.Configuration, "failed to create config directory", err).WithOp(op)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return errors.Wrap(errors.Configuration, "failed to marshal config", err).WithOp(op)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrap(errors.Configuration, "failed to write config file", err).WithOp(op)
	}

	return nil
}

// LoadDefaultConfig loads configuration from the default location.
func LoadDefaultConfig() (*Config, error) {
	return NewLoader(DefaultConfig().ConfigPath()).Load()
}
