//go:build !cuda

package nvml

import (
	"context"

	"github.com/homewiseai/hwprobe/internal/gpu"
	"github.com/homewiseai/hwprobe/internal/logging"
)

// Library is a placeholder for builds without CUDA support.
type Library interface{}

// NewSystemLibrary returns nil when CUDA support is disabled.
func NewSystemLibrary() Library {
	return nil
}

// Probe is the NVML backend for builds without CUDA support.
type Probe struct {
	logger logging.Logger
}

// NewProbe is provided for API compatibility; lib is ignored.
func NewProbe(_ Library, logger logging.Logger) *Probe {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Probe{logger: logger}
}

// Detect always reports the library as unavailable.
func (p *Probe) Detect(context.Context) (*gpu.CapabilityRecord, error) {
	p.logger.Debug("NVML backend disabled: built without cuda tag")
	return nil, gpu.ToolUnavailable(backendName, "NVML disabled: rebuild with -tags cuda", nil)
}
