package nvidia

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/homewiseai/hwprobe/internal/constants"
	"github.com/homewiseai/hwprobe/internal/exec"
	"github.com/homewiseai/hwprobe/internal/gpu"
	"github.com/homewiseai/hwprobe/internal/logging"
)

// Parser runs nvidia-smi and parses its output.
type Parser interface {
	// Parse returns the first GPU with driver details, or a probe error.
	Parse(ctx context.Context) (*SMIInfo, error)
}

// ParserImpl is the production implementation of Parser.
type ParserImpl struct {
	executor exec.Executor
	logger   logging.Logger
}

// NewParser creates a new nvidia-smi parser with the given executor.
func NewParser(executor exec.Executor, logger logging.Logger) *ParserImpl {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &ParserImpl{executor: executor, logger: logger}
}

const (
	backendName = constants.BackendNVIDIA

	queryArgs       = "--query-gpu=name,memory.total,memory.used,memory.free,temperature.gpu,power.draw,utilization.gpu,compute_cap"
	legacyQueryArgs = "--query-gpu=name,memory.total,memory.used,memory.free,temperature.gpu,power.draw,utilization.gpu"
	formatArgs      = "--format=csv,noheader,nounits"
)

// Messages printed by nvidia-smi.
const (
	errMsgDriverNotLoaded = "NVIDIA-SMI has failed"
	errMsgNoDevice        = "No devices were found"
	errMsgInvalidField    = "is not a valid field to query"
	errMsgNotFound        = "not found"
)

var (
	// Matches: "NVIDIA-SMI 550.54.14    Driver Version: 550.54.14    CUDA Version: 12.4"
	driverVersionRegex = regexp.MustCompile(`Driver Version:\s*(\d+\.\d+(?:\.\d+)?)`)
	cudaVersionRegex   = regexp.MustCompile(`CUDA Version:\s*(\d+\.\d+)`)
)

// Parse implements Parser.
func (p *ParserImpl) Parse(ctx context.Context) (*SMIInfo, error) {
	if _, err := p.executor.LookPath(constants.NvidiaSMI); err != nil {
		return nil, gpu.ToolUnavailable(backendName, "nvidia-smi not found: NVIDIA drivers may not be installed", err)
	}

	result := p.executor.Execute(ctx, constants.NvidiaSMI, queryArgs, formatArgs)
	if result.Failed() && strings.Contains(result.CombinedString(), errMsgInvalidField) {
		p.logger.Debug("nvidia-smi lacks compute_cap, retrying legacy query")
		result = p.executor.Execute(ctx, constants.NvidiaSMI, legacyQueryArgs, formatArgs)
	}
	if err := checkExecutionError(result); err != nil {
		return nil, err
	}

	line := result.FirstLine()
	if line == "" {
		return nil, gpu.UnsupportedHardware(backendName, "nvidia-smi listed no GPUs")
	}

	device, err := ParseGPULine(line)
	if err != nil {
		return nil, err
	}

	info := &SMIInfo{GPU: device}
	p.readHeader(ctx, info)
	return info, nil
}

// readHeader fills the driver and CUDA versions. It is best-effort: a
// failing header call leaves both empty.
func (p *ParserImpl) readHeader(ctx context.Context, info *SMIInfo) {
	ctx, cancel := context.WithTimeout(ctx, constants.MetricsTimeout)
	defer cancel()

	result := p.executor.Execute(ctx, constants.NvidiaSMI)
	if err := checkExecutionError(result); err != nil {
		p.logger.Debug("nvidia-smi header unavailable", "error", err)
		return
	}
	info.DriverVersion, info.CUDAVersion = ParseHeader(result.StdoutString())
}

// ParseHeader extracts the driver and CUDA versions from the plain
// nvidia-smi banner. Missing values are returned as "".
func ParseHeader(output string) (driver, cuda string) {
	if m := driverVersionRegex.FindStringSubmatch(output); len(m) == 2 {
		driver = m[1]
	}
	if m := cudaVersionRegex.FindStringSubmatch(output); len(m) == 2 {
		cuda = m[1]
	}
	return driver, cuda
}

// checkExecutionError classifies a failed nvidia-smi run.
func checkExecutionError(result *exec.Result) error {
	if result.Error != nil {
		return gpu.ToolUnavailable(backendName, "failed to execute nvidia-smi", result.Error)
	}

	if result.ExitCode != 0 {
		combined := strings.TrimSpace(result.CombinedString())

		switch {
		case strings.Contains(combined, errMsgDriverNotLoaded):
			return gpu.UnsupportedHardware(backendName, "NVIDIA driver is not loaded: nvidia-smi cannot communicate with the driver")
		case strings.Contains(combined, errMsgNoDevice):
			return gpu.UnsupportedHardware(backendName, "no NVIDIA devices found")
		case result.ExitCode == 127 || strings.HasSuffix(strings.ToLower(combined), errMsgNotFound):
			return gpu.ToolUnavailable(backendName, "nvidia-smi not found", nil)
		default:
			return gpu.UnsupportedHardware(backendName, "nvidia-smi exited with code "+strconv.Itoa(result.ExitCode)+": "+combined)
		}
	}

	return nil
}

// ParseGPULine parses one line of the CSV query. The compute_cap column is
// optional so that legacy output parses too.
func ParseGPULine(line string) (SMIGPUInfo, error) {
	var device SMIGPUInfo

	fields := splitCSVLine(line)
	if len(fields) != 7 && len(fields) != 8 {
		return device, gpu.ParseFailure(backendName, "expected 7 or 8 CSV fields, got "+strconv.Itoa(len(fields)), nil)
	}
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}

	device.Name = fields[0]
	if device.Name == "" || notReported(device.Name) {
		return device, gpu.ParseFailure(backendName, "GPU name is missing", nil)
	}

	total, err := strconv.ParseUint(fields[1], 10, 64)
	if err != nil {
		return device, gpu.ParseFailure(backendName, "invalid memory.total "+strconv.Quote(fields[1]), err)
	}
	device.MemoryTotalMiB = total

	device.MemoryUsedMiB = parseOptionalUint(fields[2])
	device.MemoryFreeMiB = parseOptionalUint(fields[3])
	device.TemperatureC = parseOptionalFloat(fields[4])
	device.PowerDrawWatts = parseOptionalFloat(fields[5])
	device.UtilizationPercent = parseOptionalFloat(fields[6])

	if len(fields) == 8 && !notReported(fields[7]) {
		device.ComputeCapability = fields[7]
	}

	return device, nil
}

// notReported matches the placeholders nvidia-smi prints for unsupported metrics.
func notReported(s string) bool {
	switch strings.ToLower(s) {
	case "", "n/a", "[n/a]", "[not supported]", "not supported", "[unknown error]":
		return true
	default:
		return false
	}
}

func parseOptionalUint(s string) *uint64 {
	if notReported(s) {
		return nil
	}
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return nil
	}
	return &v
}

func parseOptionalFloat(s string) *float64 {
	if notReported(s) {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}

// splitCSVLine splits a CSV line by comma, keeping quoted commas.
func splitCSVLine(line string) []string {
	var fields []string
	var current strings.Builder
	inQuotes := false

	for _, r := range line {
		switch {
		case r == '"':
			inQuotes = !inQuotes
		case r == ',' && !inQuotes:
			fields = append(fields, current.String())
			current.Reset()
		default:
			current.WriteRune(r)
		}
	}
	fields = append(fields, current.String())

	return fields
}

var _ Parser = (*ParserImpl)(nil)
