// Package apple implements the Apple Silicon accelerator backend. The
// device model and unified memory size come from the I/O Registry and the
// point-in-time metrics from a single powermetrics sample.
package apple

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/homewiseai/hwprobe/internal/constants"
	"github.com/homewiseai/hwprobe/internal/gpu"
)

const backendName = constants.BackendApple

// DefaultMemoryMB is reported when the registry omits gpu-memory-total-size
// or carries a value that is not a positive decimal.
const DefaultMemoryMB uint64 = 8192

// DeviceInfo is the parsed AGXAccelerator registry entry.
type DeviceInfo struct {
	// Model is the marketing name, e.g. "Apple M1 Pro".
	Model string
	// MemoryTotalMB is the GPU share of unified memory.
	MemoryTotalMB uint64
	// UnparsedMemory holds a gpu-memory-total-size value that was replaced
	// by DefaultMemoryMB.
	UnparsedMemory string
}

// Metrics is one powermetrics gpu_power sample. Absent values are nil.
type Metrics struct {
	UtilizationPercent *float64
	PowerW             *float64
	TemperatureC       *float64
}

var (
	modelRegex  = regexp.MustCompile(`\bM([1-4])(?: (Pro|Max|Ultra))?\b`)
	memoryRegex = regexp.MustCompile(`"gpu-memory-total-size"\s*=\s*([^,}\s]+)`)

	utilizationRegex = regexp.MustCompile(`(?m)^\s*GPU (?:HW active residency|Active|active residency):\s*([\d.]+)\s*%`)
	powerRegex       = regexp.MustCompile(`(?m)^\s*GPU Power:\s*([\d.]+)\s*(mW|W)\b`)
	temperatureRegex = regexp.MustCompile(`(?m)^\s*GPU die temperature:\s*([\d.]+)\s*C\b`)
)

// ParseRegistry extracts the device model and memory from
// `ioreg -l -w0 -r -c AGXAccelerator -d 1` output.
func ParseRegistry(output string) (*DeviceInfo, error) {
	if strings.TrimSpace(output) == "" {
		return nil, gpu.UnsupportedHardware(backendName, "no AGXAccelerator in the I/O Registry")
	}

	m := modelRegex.FindStringSubmatch(output)
	if m == nil {
		return nil, gpu.UnsupportedHardware(backendName, "no Apple Silicon GPU found")
	}
	model := "Apple M" + m[1]
	if m[2] != "" {
		model += " " + m[2]
	}

	info := &DeviceInfo{Model: model, MemoryTotalMB: DefaultMemoryMB}

	if mm := memoryRegex.FindStringSubmatch(output); mm != nil {
		if memory, err := strconv.ParseUint(strings.Trim(mm[1], `"`), 10, 64); err == nil && memory > 0 {
			info.MemoryTotalMB = memory
		} else {
			info.UnparsedMemory = mm[1]
		}
	}

	return info, nil
}

// ParsePowerMetrics extracts the GPU metrics from
// `powermetrics --samplers gpu_power` output. Power in mW is converted to W.
func ParsePowerMetrics(output string) Metrics {
	var metrics Metrics

	if m := utilizationRegex.FindStringSubmatch(output); m != nil {
		metrics.UtilizationPercent = parseFloat(m[1])
	}
	if m := powerRegex.FindStringSubmatch(output); m != nil {
		if p := parseFloat(m[1]); p != nil {
			if m[2] == "mW" {
				*p /= 1000
			}
			metrics.PowerW = p
		}
	}
	if m := temperatureRegex.FindStringSubmatch(output); m != nil {
		metrics.TemperatureC = parseFloat(m[1])
	}

	return metrics
}

func parseFloat(s string) *float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}
