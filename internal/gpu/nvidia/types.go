// Package nvidia implements the NVIDIA accelerator backend on top of
// nvidia-smi. The header output supplies the driver and CUDA versions and a
// CSV query supplies the device name, memory and point-in-time metrics.
package nvidia

import (
	"fmt"

	"github.com/homewiseai/hwprobe/internal/gpu"
)

// SMIInfo is the parsed nvidia-smi output.
type SMIInfo struct {
	// DriverVersion is the installed NVIDIA driver version (e.g., "550.54.14").
	// Empty when the header could not be read.
	DriverVersion string

	// CUDAVersion is the highest CUDA version the driver supports (e.g., "12.4").
	CUDAVersion string

	// GPU is the first device listed by the query.
	GPU SMIGPUInfo
}

// String returns a human-readable summary of the SMI info.
func (s *SMIInfo) String() string {
	return fmt.Sprintf("nvidia-smi: %s, driver %q, CUDA %q", s.GPU.Name, s.DriverVersion, s.CUDAVersion)
}

// SMIGPUInfo is one line of the --query-gpu CSV output. Metrics the device
// does not report ("[N/A]", "[Not Supported]") are nil.
type SMIGPUInfo struct {
	// Name is the GPU model name (e.g., "NVIDIA GeForce RTX 4090").
	Name string

	// MemoryTotalMiB is the total framebuffer memory.
	MemoryTotalMiB uint64

	MemoryUsedMiB *uint64
	MemoryFreeMiB *uint64

	// TemperatureC is the core temperature in degrees Celsius.
	TemperatureC *float64

	// PowerDrawWatts is the current board power draw.
	PowerDrawWatts *float64

	// UtilizationPercent is the GPU core utilization.
	UtilizationPercent *float64

	// ComputeCapability is the CUDA compute capability (e.g., "8.9"). Empty
	// on drivers that predate the compute_cap query field.
	ComputeCapability string
}

// Record converts the parsed output into a capability record.
func (s *SMIInfo) Record() *gpu.CapabilityRecord {
	rec := &gpu.CapabilityRecord{
		Vendor:             gpu.VendorNVIDIA,
		MemoryTotalMB:      s.GPU.MemoryTotalMiB,
		MemoryUsedMB:       s.GPU.MemoryUsedMiB,
		MemoryFreeMB:       s.GPU.MemoryFreeMiB,
		TemperatureC:       s.GPU.TemperatureC,
		PowerUsageW:        s.GPU.PowerDrawWatts,
		UtilizationPercent: s.GPU.UtilizationPercent,
	}
	if s.GPU.Name != "" {
		rec.Name = gpu.Ptr(s.GPU.Name)
	}
	if s.DriverVersion != "" {
		rec.DriverVersion = gpu.Ptr(s.DriverVersion)
	}
	if s.CUDAVersion != "" {
		rec.CUDAVersion = gpu.Ptr(s.CUDAVersion)
	}
	if s.GPU.ComputeCapability != "" {
		rec.ComputeCapability = gpu.Ptr(s.GPU.ComputeCapability)
	}
	return rec.Normalize()
}
