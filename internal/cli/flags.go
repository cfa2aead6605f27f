// Package cli provides command-line argument parsing for hwprobe.
// It supports subcommands, global flags, and command-specific flags with both
// short and long variants. Global flags override values from the config
// file and environment.
package cli

import (
	"github.com/homewiseai/hwprobe/internal/config"
	"github.com/homewiseai/hwprobe/internal/gpu"
)

// GlobalFlags holds flags common to all commands.
// These flags can be specified before the command name.
type GlobalFlags struct {
	// Verbose enables debug logging.
	Verbose bool

	// Quiet only logs errors.
	Quiet bool

	// ConfigFile specifies a custom configuration file path.
	ConfigFile string

	// LogFile specifies the path to write log output.
	LogFile string

	// LogLevel sets the logging verbosity (debug, info, warn, error).
	LogLevel string

	// LogFormat sets the log line encoding (text, json, logfmt).
	LogFormat string

	// NoColor disables colored terminal output.
	NoColor bool
}

// DetectFlags holds detect command specific flags.
type DetectFlags struct {
	// JSON prints the record as JSON.
	JSON bool

	// TestMode returns a fixture instead of probing.
	TestMode bool

	// Simulate is the fixture vendor. Setting it implies TestMode.
	Simulate string

	// SimulateError makes the detection fail with the simulated error.
	SimulateError bool
}

// HardwareFlags holds hardware command specific flags.
type HardwareFlags struct {
	// JSON prints the host info as JSON.
	JSON bool
}

// ServeFlags holds serve command specific flags.
type ServeFlags struct {
	// Stdio selects the line-delimited stdio transport.
	Stdio bool

	// Addr is the websocket listen address. Empty uses the config value.
	Addr string
}

// Validate checks GlobalFlags for conflicting options.
// It returns an error if incompatible flags are set together.
func (f *GlobalFlags) Validate() error {
	if f.Verbose && f.Quiet {
		return &FlagError{
			Flag:    "verbose/quiet",
			Message: "cannot use --verbose and --quiet together",
		}
	}
	return nil
}

// Apply copies the set flags onto cfg. Unset flags leave cfg unchanged.
func (f *GlobalFlags) Apply(cfg *config.Config) {
	if f.Verbose {
		cfg.Verbose = true
	}
	if f.Quiet {
		cfg.Quiet = true
	}
	if f.NoColor {
		cfg.NoColor = true
	}
	if f.LogFile != "" {
		cfg.LogFile = f.LogFile
	}
	if f.LogLevel != "" {
		cfg.LogLevel = f.LogLevel
	}
	if f.LogFormat != "" {
		cfg.LogFormat = f.LogFormat
	}
}

// Validate checks the simulated vendor.
func (f *DetectFlags) Validate() error {
	if f.Simulate == "" {
		return nil
	}
	if _, err := gpu.ParseVendor(f.Simulate); err != nil {
		return &FlagError{Flag: "simulate", Message: err.Error()}
	}
	return nil
}

// Vendor returns the fixture vendor for test mode, VendorNone by default.
func (f *DetectFlags) Vendor() gpu.Vendor {
	if f.Simulate == "" {
		return gpu.VendorNone
	}
	v, err := gpu.ParseVendor(f.Simulate)
	if err != nil {
		return gpu.VendorNone
	}
	return v
}

// WantsTestMode reports whether detection should return a fixture.
func (f *DetectFlags) WantsTestMode() bool {
	return f.TestMode || f.Simulate != ""
}

// FlagError represents an error with a command-line flag.
type FlagError struct {
	Flag    string
	Message string
}

// Error implements the error interface.
func (e *FlagError) Error() string {
	return "flag error: " + e.Flag + ": " + e.Message
}
