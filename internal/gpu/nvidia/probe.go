package nvidia

import (
	"context"

	"github.com/homewiseai/hwprobe/internal/constants"
	"github.com/homewiseai/hwprobe/internal/exec"
	"github.com/homewiseai/hwprobe/internal/gpu"
	"github.com/homewiseai/hwprobe/internal/logging"
)

// Probe is the nvidia-smi detection backend.
type Probe struct {
	parser Parser
	logger logging.Logger
}

// NewProbe creates an NVIDIA backend that shells out through executor.
func NewProbe(executor exec.Executor, logger logging.Logger) *Probe {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Probe{parser: NewParser(executor, logger), logger: logger}
}

// NewProbeWithParser creates an NVIDIA backend around an existing parser.
func NewProbeWithParser(parser Parser, logger logging.Logger) *Probe {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Probe{parser: parser, logger: logger}
}

// Name implements gpu.Backend.
func (p *Probe) Name() string { return constants.BackendNVIDIA }

// Vendor implements gpu.Backend.
func (p *Probe) Vendor() gpu.Vendor { return gpu.VendorNVIDIA }

// Detect implements gpu.Backend.
func (p *Probe) Detect(ctx context.Context) (*gpu.CapabilityRecord, error) {
	info, err := p.parser.Parse(ctx)
	if err != nil {
		return nil, err
	}
	p.logger.Debug("nvidia-smi parsed", "gpu", info.GPU.Name, "driver", info.DriverVersion, "cuda", info.CUDAVersion)
	return info.Record(), nil
}

var _ gpu.Backend = (*Probe)(nil)
