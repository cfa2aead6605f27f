//go:build darwin

package hardware

import (
	"github.com/homewiseai/hwprobe/internal/exec"
	"github.com/homewiseai/hwprobe/internal/logging"
)

// NewSystemSource returns the Source for the running platform.
func NewSystemSource(executor exec.Executor, logger logging.Logger) Source {
	return NewSysctlSource(executor, logger)
}
