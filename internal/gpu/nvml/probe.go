//go:build cuda

package nvml

import (
	"context"
	"strconv"
	"sync"

	"github.com/NVIDIA/go-nvml/pkg/nvml"

	"github.com/homewiseai/hwprobe/internal/gpu"
	"github.com/homewiseai/hwprobe/internal/logging"
)

// Probe reads the first NVIDIA device through NVML.
type Probe struct {
	lib    Library
	logger logging.Logger

	// NVML keeps process-global state; Init/Shutdown pairs must not interleave.
	mu sync.Mutex
}

// NewProbe creates an NVML backend. A nil lib selects the system library.
func NewProbe(lib Library, logger logging.Logger) *Probe {
	if lib == nil {
		lib = NewSystemLibrary()
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Probe{lib: lib, logger: logger}
}

// Detect implements gpu.Backend.
func (p *Probe) Detect(ctx context.Context) (*gpu.CapabilityRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, gpu.ToolUnavailable(backendName, "detection cancelled before NVML init", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if ret := p.lib.Init(); ret != nvml.SUCCESS {
		return nil, gpu.ToolUnavailable(backendName, "NVML init failed: "+nvml.ErrorString(ret), nil)
	}
	defer func() {
		if ret := p.lib.Shutdown(); ret != nvml.SUCCESS {
			p.logger.Warn("NVML shutdown failed", "error", nvml.ErrorString(ret))
		}
	}()

	count, ret := p.lib.DeviceGetCount()
	if ret != nvml.SUCCESS {
		return nil, gpu.ToolUnavailable(backendName, "NVML device count failed: "+nvml.ErrorString(ret), nil)
	}
	if count == 0 {
		return nil, gpu.UnsupportedHardware(backendName, "NVML reports no devices")
	}

	device, ret := p.lib.DeviceGetHandleByIndex(0)
	if ret != nvml.SUCCESS {
		return nil, gpu.UnsupportedHardware(backendName, "NVML device 0 unavailable: "+nvml.ErrorString(ret))
	}

	memory, ret := device.GetMemoryInfo()
	if ret != nvml.SUCCESS {
		return nil, gpu.ParseFailure(backendName, "NVML memory info failed: "+nvml.ErrorString(ret), nil)
	}

	rec := &gpu.CapabilityRecord{
		Vendor:        gpu.VendorNVIDIA,
		MemoryTotalMB: bytesToMiB(memory.Total),
		MemoryUsedMB:  gpu.Ptr(bytesToMiB(memory.Used)),
	}

	if name, ret := device.GetName(); ret == nvml.SUCCESS && name != "" {
		rec.Name = gpu.Ptr(name)
	}
	if driver, ret := p.lib.SystemGetDriverVersion(); ret == nvml.SUCCESS && driver != "" {
		rec.DriverVersion = gpu.Ptr(driver)
	}
	if cuda, ret := p.lib.SystemGetCudaDriverVersion(); ret == nvml.SUCCESS {
		if s := cudaVersionString(cuda); s != "" {
			rec.CUDAVersion = gpu.Ptr(s)
		}
	}
	if major, minor, ret := device.GetCudaComputeCapability(); ret == nvml.SUCCESS {
		rec.ComputeCapability = gpu.Ptr(strconv.Itoa(major) + "." + strconv.Itoa(minor))
	}
	if temp, ret := device.GetTemperature(nvml.TEMPERATURE_GPU); ret == nvml.SUCCESS {
		rec.TemperatureC = gpu.Ptr(float64(temp))
	}
	if milliwatts, ret := device.GetPowerUsage(); ret == nvml.SUCCESS {
		rec.PowerUsageW = gpu.Ptr(float64(milliwatts) / 1000)
	}
	if util, ret := device.GetUtilizationRates(); ret == nvml.SUCCESS {
		rec.UtilizationPercent = gpu.Ptr(float64(util.Gpu))
	}

	p.logger.Debug("NVML device read", "summary", rec.Summary())
	return rec.Normalize(), nil
}
