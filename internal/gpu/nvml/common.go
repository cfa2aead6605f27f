// Package nvml implements an NVIDIA backend on the NVML library. It needs
// the driver's libnvidia-ml at runtime and is only compiled in with
// `-tags cuda`; other builds get a backend that always reports the tool
// as unavailable.
package nvml

import (
	"strconv"

	"github.com/homewiseai/hwprobe/internal/constants"
	"github.com/homewiseai/hwprobe/internal/gpu"
)

const backendName = constants.BackendNVML

const bytesPerMiB = 1024 * 1024

// cudaVersionString turns NVML's encoded CUDA version (e.g. 12040) into
// "12.4".
func cudaVersionString(v int) string {
	if v <= 0 {
		return ""
	}
	return strconv.Itoa(v/1000) + "." + strconv.Itoa((v%1000)/10)
}

func bytesToMiB(b uint64) uint64 {
	return b / bytesPerMiB
}

// Name implements gpu.Backend.
func (p *Probe) Name() string { return backendName }

// Vendor implements gpu.Backend.
func (p *Probe) Vendor() gpu.Vendor { return gpu.VendorNVIDIA }

var _ gpu.Backend = (*Probe)(nil)
