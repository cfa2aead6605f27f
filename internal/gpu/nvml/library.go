//go:build cuda

package nvml

import (
	"github.com/NVIDIA/go-nvml/pkg/nvml"
)

// Device is the subset of nvml.Device the probe reads.
type Device interface {
	GetName() (string, nvml.Return)
	GetMemoryInfo() (nvml.Memory, nvml.Return)
	GetUtilizationRates() (nvml.Utilization, nvml.Return)
	GetPowerUsage() (uint32, nvml.Return)
	GetTemperature(sensor nvml.TemperatureSensors) (uint32, nvml.Return)
	GetCudaComputeCapability() (int, int, nvml.Return)
}

// Library is the subset of the NVML API the probe calls.
type Library interface {
	Init() nvml.Return
	Shutdown() nvml.Return
	DeviceGetCount() (int, nvml.Return)
	DeviceGetHandleByIndex(index int) (Device, nvml.Return)
	SystemGetDriverVersion() (string, nvml.Return)
	SystemGetCudaDriverVersion() (int, nvml.Return)
}

// systemLibrary forwards to the process-wide NVML binding.
type systemLibrary struct{}

// NewSystemLibrary returns the Library backed by libnvidia-ml.
func NewSystemLibrary() Library {
	return systemLibrary{}
}

func (systemLibrary) Init() nvml.Return     { return nvml.Init() }
func (systemLibrary) Shutdown() nvml.Return { return nvml.Shutdown() }

func (systemLibrary) DeviceGetCount() (int, nvml.Return) { return nvml.DeviceGetCount() }

func (systemLibrary) DeviceGetHandleByIndex(index int) (Device, nvml.Return) {
	device, ret := nvml.DeviceGetHandleByIndex(index)
	if ret != nvml.SUCCESS {
		return nil, ret
	}
	return device, ret
}

func (systemLibrary) SystemGetDriverVersion() (string, nvml.Return) {
	return nvml.SystemGetDriverVersion()
}

func (systemLibrary) SystemGetCudaDriverVersion() (int, nvml.Return) {
	return nvml.SystemGetCudaDriverVersion()
}
