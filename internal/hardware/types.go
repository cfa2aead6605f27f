// Package hardware collects host CPU and memory facts for the command
// boundary. Readings are validated and retried on a constant delay.
package hardware

import (
	"runtime"
	"strings"

	"github.com/homewiseai/hwprobe/internal/errors"
)

// Info is a point-in-time host snapshot. Memory is in KiB.
type Info struct {
	CPUCount    int    `json:"cpuCount"`
	CPUBrand    string `json:"cpuBrand"`
	MemoryTotal uint64 `json:"memoryTotal"`
	MemoryUsed  uint64 `json:"memoryUsed"`
	Platform    string `json:"platform"`
}

// Validate reports the first inconsistency as a CPU, Memory or
// Compatibility error.
func (i *Info) Validate() error {
	const op = "hardware.Validate"

	switch {
	case i.CPUCount <= 0:
		return errors.New(errors.CPU, "invalid CPU count").WithOp(op)
	case strings.TrimSpace(i.CPUBrand) == "":
		return errors.New(errors.CPU, "invalid CPU brand information").WithOp(op)
	case i.MemoryTotal == 0:
		return errors.New(errors.Memory, "invalid total memory value").WithOp(op)
	case i.MemoryUsed > i.MemoryTotal:
		return errors.New(errors.Memory, "used memory exceeds total memory").WithOp(op)
	case i.Platform == "":
		return errors.New(errors.Compatibility, "unknown platform").WithOp(op)
	}
	return nil
}

// Platform returns the host platform name; darwin is reported as "macos".
func Platform() string {
	return platformName(runtime.GOOS)
}

func platformName(goos string) string {
	if goos == "darwin" {
		return "macos"
	}
	return goos
}
