package apple

import (
	"context"
	"strings"

	"github.com/homewiseai/hwprobe/internal/constants"
	"github.com/homewiseai/hwprobe/internal/exec"
	"github.com/homewiseai/hwprobe/internal/gpu"
	"github.com/homewiseai/hwprobe/internal/logging"
)

var (
	registryArgs     = []string{"-l", "-w0", "-r", "-c", "AGXAccelerator", "-d", "1"}
	powerMetricsArgs = []string{"--samplers", "gpu_power", "-i", "1000", "-n", "1"}
)

// Probe is the Apple Silicon detection backend.
type Probe struct {
	executor exec.Executor
	logger   logging.Logger
}

// NewProbe creates an Apple backend that shells out through executor.
func NewProbe(executor exec.Executor, logger logging.Logger) *Probe {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Probe{executor: executor, logger: logger}
}

// Name implements gpu.Backend.
func (p *Probe) Name() string { return constants.BackendApple }

// Vendor implements gpu.Backend.
func (p *Probe) Vendor() gpu.Vendor { return gpu.VendorApple }

// Detect implements gpu.Backend.
func (p *Probe) Detect(ctx context.Context) (*gpu.CapabilityRecord, error) {
	if _, err := p.executor.LookPath(constants.IORegistry); err != nil {
		return nil, gpu.ToolUnavailable(backendName, "ioreg not found: not a macOS host", err)
	}

	result := p.executor.Execute(ctx, constants.IORegistry, registryArgs...)
	if result.Error != nil {
		return nil, gpu.ToolUnavailable(backendName, "failed to execute ioreg", result.Error)
	}
	if result.ExitCode != 0 {
		return nil, gpu.UnsupportedHardware(backendName, "ioreg failed: "+strings.TrimSpace(result.StderrString()))
	}

	device, err := ParseRegistry(result.StdoutString())
	if err != nil {
		return nil, err
	}

	if device.UnparsedMemory != "" {
		p.logger.Debug("unreadable gpu-memory-total-size, using default",
			"value", device.UnparsedMemory, "memory_mb", DefaultMemoryMB)
	}

	metrics := p.sampleMetrics(ctx)

	p.logger.Debug("apple GPU found", "model", device.Model, "memory_mb", device.MemoryTotalMB)

	return &gpu.CapabilityRecord{
		Vendor:             gpu.VendorApple,
		Name:               gpu.Ptr(device.Model),
		MemoryTotalMB:      device.MemoryTotalMB,
		TemperatureC:       metrics.TemperatureC,
		PowerUsageW:        metrics.PowerW,
		UtilizationPercent: metrics.UtilizationPercent,
	}, nil
}

// sampleMetrics is best-effort: powermetrics needs root and may be absent,
// in which case every metric stays nil.
func (p *Probe) sampleMetrics(ctx context.Context) Metrics {
	if _, err := p.executor.LookPath(constants.PowerMetrics); err != nil {
		p.logger.Debug("powermetrics unavailable", "error", err)
		return Metrics{}
	}

	ctx, cancel := context.WithTimeout(ctx, constants.MetricsTimeout)
	defer cancel()

	result := p.executor.Execute(ctx, constants.PowerMetrics, powerMetricsArgs...)
	if result.Failed() {
		p.logger.Warn("powermetrics failed", "exit_code", result.ExitCode, "stderr", strings.TrimSpace(result.StderrString()), "error", result.Error)
		return Metrics{}
	}
	return ParsePowerMetrics(result.StdoutString())
}

var _ gpu.Backend = (*Probe)(nil)
