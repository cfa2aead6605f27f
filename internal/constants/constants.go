// Package constants defines application-wide constants for hwprobe.
// All constants are typed to ensure type safety and prevent accidental misuse.
package constants

import "time"

// Application metadata
const (
	// AppName is the application name used in logs, configs, and user messages.
	AppName string = "hwprobe"
	// AppDescription is a short description of the application.
	AppDescription string = "Accelerator and host hardware probe"
)

// ExitCode represents process exit codes for different termination scenarios.
type ExitCode int

const (
	// ExitSuccess indicates the application completed successfully.
	ExitSuccess ExitCode = iota
	// ExitError indicates a general error occurred.
	ExitError
	// ExitValidation indicates invalid input or configuration.
	ExitValidation
	// ExitDetection indicates a detection request failed outright.
	ExitDetection
	// ExitUserAbort indicates the user cancelled the operation.
	ExitUserAbort
)

// Int returns the exit code as an int for use with os.Exit().
func (e ExitCode) Int() int {
	return int(e)
}

// Timeouts for detection and the command boundary.
const (
	// ProbeTimeout bounds a single backend attempt.
	ProbeTimeout time.Duration = 5 * time.Second
	// CommandTimeout bounds one request at the command boundary.
	CommandTimeout time.Duration = 30 * time.Second
	// MetricsTimeout bounds best-effort metrics sub-calls inside a probe.
	MetricsTimeout time.Duration = 3 * time.Second
	// HardwareRetryDelay is the pause between host hardware read attempts.
	HardwareRetryDelay time.Duration = time.Second
	// ShutdownTimeout bounds graceful shutdown of the sidecar transports.
	ShutdownTimeout time.Duration = 10 * time.Second
)

// HardwareRetries is the number of host hardware read attempts.
const HardwareRetries = 3

// Backend names accepted in configuration, in default priority order.
const (
	BackendNVIDIA string = "nvidia"
	BackendApple  string = "apple"
	BackendNVML   string = "nvml"
)

// DefaultBackends is the default backend priority: NVIDIA first, then Apple.
func DefaultBackends() []string {
	return []string{BackendNVIDIA, BackendApple}
}

// KnownBackends lists every backend name the probe registry can build.
func KnownBackends() []string {
	return []string{BackendNVIDIA, BackendApple, BackendNVML}
}

// External utilities invoked by probes.
const (
	NvidiaSMI    string = "nvidia-smi"
	IORegistry   string = "ioreg"
	PowerMetrics string = "powermetrics"
	Sysctl       string = "sysctl"
	VMStat       string = "vm_stat"
)

// File names and paths
const (
	// ConfigFileName is the configuration file name.
	ConfigFileName string = "config.yaml"
	// DefaultLogFile is the default log file name.
	DefaultLogFile string = "hwprobe.log"
	// DefaultListenAddr is the websocket transport listen address.
	DefaultListenAddr string = "127.0.0.1:7420"
	// IPCPath is the websocket endpoint path.
	IPCPath string = "/ipc"
	// HealthPath is the liveness endpoint path.
	HealthPath string = "/healthz"
)
