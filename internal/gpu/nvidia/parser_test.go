package nvidia

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/homewiseai/hwprobe/internal/constants"
	"github.com/homewiseai/hwprobe/internal/errors"
	"github.com/homewiseai/hwprobe/internal/exec"
	"github.com/homewiseai/hwprobe/internal/gpu"
)

// Sample nvidia-smi outputs for testing.
const (
	sampleHeaderOutput = `Sat Jan  4 10:00:00 2025
+-----------------------------------------------------------------------------------------+
| NVIDIA-SMI 550.54.14              Driver Version: 550.54.14      CUDA Version: 12.4     |
|-----------------------------------------+------------------------+----------------------+
| GPU  Name                 Persistence-M | Bus-Id          Disp.A | Volatile Uncorr. ECC |
|   0  NVIDIA GeForce RTX 4090        Off |   00000000:01:00.0 Off |                  N/A |
|  0%   45C    P8             28W /  450W |     123MiB /  24564MiB |      0%      Default |
+-----------------------------------------+------------------------+----------------------+`

	sampleQueryCSV = `NVIDIA GeForce RTX 4090, 24564, 1234, 23330, 45, 120.50, 35, 8.9`

	sampleMultiGPUCSV = `NVIDIA GeForce RTX 4090, 24564, 1234, 23330, 45, 120.50, 35, 8.9
NVIDIA GeForce RTX 3080, 10240, 512, 9728, 52, 85.00, 78, 8.6`

	sampleLegacyCSV = `Tesla K80, 11441, 0, 11441, 33, [N/A], 0`

	sampleDriverNotLoaded = `NVIDIA-SMI has failed because it couldn't communicate with the NVIDIA driver. Make sure that the latest NVIDIA driver is installed and running.`

	sampleNoDevices = `No devices were found`

	sampleInvalidField = `Field "compute_cap" is not a valid field to query.`

	sampleOlderDriverHeader = `NVIDIA-SMI 470.182.03   Driver Version: 470.182.03   CUDA Version: 11.4`
)

func queryKey() []string  { return []string{queryArgs, formatArgs} }
func legacyKey() []string { return []string{legacyQueryArgs, formatArgs} }

func newMock(query, header *exec.Result) *exec.MockExecutor {
	mock := exec.NewMockExecutor()
	if query != nil {
		mock.SetResponseFor(constants.NvidiaSMI, queryKey(), query)
	}
	if header != nil {
		mock.SetResponse(constants.NvidiaSMI, header)
	}
	return mock
}

// =============================================================================
// Parser
// =============================================================================

func TestNewParser(t *testing.T) {
	mock := exec.NewMockExecutor()
	parser := NewParser(mock, nil)

	assert.NotNil(t, parser)
	assert.Equal(t, mock, parser.executor)
	assert.NotNil(t, parser.logger)
}

func TestParser_Parse_SingleGPU(t *testing.T) {
	mock := newMock(exec.SuccessResult(sampleQueryCSV), exec.SuccessResult(sampleHeaderOutput))

	info, err := NewParser(mock, nil).Parse(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "550.54.14", info.DriverVersion)
	assert.Equal(t, "12.4", info.CUDAVersion)
	assert.Equal(t, "NVIDIA GeForce RTX 4090", info.GPU.Name)
	assert.Equal(t, uint64(24564), info.GPU.MemoryTotalMiB)
	assert.Equal(t, uint64(1234), *info.GPU.MemoryUsedMiB)
	assert.Equal(t, uint64(23330), *info.GPU.MemoryFreeMiB)
	assert.Equal(t, 45.0, *info.GPU.TemperatureC)
	assert.Equal(t, 120.5, *info.GPU.PowerDrawWatts)
	assert.Equal(t, 35.0, *info.GPU.UtilizationPercent)
	assert.Equal(t, "8.9", info.GPU.ComputeCapability)
	assert.True(t, mock.WasCalledWith(constants.NvidiaSMI, queryArgs, formatArgs))
}

func TestParser_Parse_FirstGPUOnly(t *testing.T) {
	mock := newMock(exec.SuccessResult(sampleMultiGPUCSV), exec.SuccessResult(sampleHeaderOutput))

	info, err := NewParser(mock, nil).Parse(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "NVIDIA GeForce RTX 4090", info.GPU.Name)
}

func TestParser_Parse_HeaderFailureIsBestEffort(t *testing.T) {
	mock := newMock(exec.SuccessResult(sampleQueryCSV), exec.FailureResult(1, "boom"))

	info, err := NewParser(mock, nil).Parse(context.Background())

	require.NoError(t, err)
	assert.Empty(t, info.DriverVersion)
	assert.Empty(t, info.CUDAVersion)
	assert.Equal(t, "NVIDIA GeForce RTX 4090", info.GPU.Name)
}

func TestParser_Parse_LegacyQueryFallback(t *testing.T) {
	mock := newMock(exec.FailureResult(2, sampleInvalidField), exec.SuccessResult(sampleOlderDriverHeader))
	mock.SetResponseFor(constants.NvidiaSMI, legacyKey(), exec.SuccessResult(sampleLegacyCSV))

	info, err := NewParser(mock, nil).Parse(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "Tesla K80", info.GPU.Name)
	assert.Empty(t, info.GPU.ComputeCapability)
	assert.Nil(t, info.GPU.PowerDrawWatts)
	assert.Equal(t, "470.182.03", info.DriverVersion)
	assert.Equal(t, "11.4", info.CUDAVersion)
	assert.True(t, mock.WasCalledWith(constants.NvidiaSMI, legacyQueryArgs, formatArgs))
}

func TestParser_Parse_Errors(t *testing.T) {
	tests := []struct {
		name     string
		setup    func(*exec.MockExecutor)
		wantCode errors.Code
		contains string
	}{
		{
			name:     "binary missing",
			setup:    func(m *exec.MockExecutor) { m.SetMissing(constants.NvidiaSMI) },
			wantCode: errors.ToolUnavailable,
			contains: "nvidia-smi not found",
		},
		{
			name: "execution error",
			setup: func(m *exec.MockExecutor) {
				m.SetResponseFor(constants.NvidiaSMI, queryKey(), exec.ErrorResult(assert.AnError))
			},
			wantCode: errors.ToolUnavailable,
		},
		{
			name: "driver not loaded",
			setup: func(m *exec.MockExecutor) {
				m.SetResponseFor(constants.NvidiaSMI, queryKey(), exec.FailureResult(9, sampleDriverNotLoaded))
			},
			wantCode: errors.UnsupportedHardware,
			contains: "driver is not loaded",
		},
		{
			name: "no devices",
			setup: func(m *exec.MockExecutor) {
				m.SetResponseFor(constants.NvidiaSMI, queryKey(), exec.FailureResult(6, sampleNoDevices))
			},
			wantCode: errors.UnsupportedHardware,
			contains: "no NVIDIA devices",
		},
		{
			name: "shell reports command not found",
			setup: func(m *exec.MockExecutor) {
				m.SetResponseFor(constants.NvidiaSMI, queryKey(), exec.FailureResult(127, "sh: nvidia-smi: command not found"))
			},
			wantCode: errors.ToolUnavailable,
		},
		{
			name: "other exit code",
			setup: func(m *exec.MockExecutor) {
				m.SetResponseFor(constants.NvidiaSMI, queryKey(), exec.FailureResult(3, "weird"))
			},
			wantCode: errors.UnsupportedHardware,
			contains: "exited with code 3",
		},
		{
			name: "empty output",
			setup: func(m *exec.MockExecutor) {
				m.SetResponseFor(constants.NvidiaSMI, queryKey(), exec.SuccessResult("\n\n"))
			},
			wantCode: errors.UnsupportedHardware,
			contains: "no GPUs",
		},
		{
			name: "malformed CSV",
			setup: func(m *exec.MockExecutor) {
				m.SetResponseFor(constants.NvidiaSMI, queryKey(), exec.SuccessResult("garbage"))
			},
			wantCode: errors.ParseFailure,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := exec.NewMockExecutor()
			tt.setup(mock)

			info, err := NewParser(mock, nil).Parse(context.Background())

			require.Error(t, err)
			assert.Nil(t, info)
			assert.Equal(t, tt.wantCode, errors.GetCode(err))
			assert.True(t, errors.GetCode(err).IsProbeFailure())
			if tt.contains != "" {
				assert.Contains(t, err.Error(), tt.contains)
			}
		})
	}
}

// =============================================================================
// Line and header parsing
// =============================================================================

func TestParseGPULine(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		wantErr bool
		check   func(*testing.T, SMIGPUInfo)
	}{
		{
			name: "full line",
			line: sampleQueryCSV,
			check: func(t *testing.T, d SMIGPUInfo) {
				assert.Equal(t, "8.9", d.ComputeCapability)
				assert.Equal(t, uint64(24564), d.MemoryTotalMiB)
			},
		},
		{
			name: "not supported metrics are absent",
			line: "NVIDIA A100, 40960, [N/A], [N/A], [Not Supported], [Not Supported], [N/A], [N/A]",
			check: func(t *testing.T, d SMIGPUInfo) {
				assert.Nil(t, d.MemoryUsedMiB)
				assert.Nil(t, d.MemoryFreeMiB)
				assert.Nil(t, d.TemperatureC)
				assert.Nil(t, d.PowerDrawWatts)
				assert.Nil(t, d.UtilizationPercent)
				assert.Empty(t, d.ComputeCapability)
			},
		},
		{
			name: "quoted name with comma",
			line: `"Quadro RTX 8000, Rev 2", 49152, 0, 49152, 30, 50.0, 0, 7.5`,
			check: func(t *testing.T, d SMIGPUInfo) {
				assert.Equal(t, "Quadro RTX 8000, Rev 2", d.Name)
			},
		},
		{name: "too few fields", line: "A, 1, 2", wantErr: true},
		{name: "bad total", line: "A, lots, 0, 0, 0, 0, 0, 8.0", wantErr: true},
		{name: "missing name", line: "[N/A], 1024, 0, 0, 0, 0, 0, 8.0", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := ParseGPULine(tt.line)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.IsCode(err, errors.ParseFailure))
				return
			}
			require.NoError(t, err)
			tt.check(t, d)
		})
	}
}

func TestParseHeader(t *testing.T) {
	driver, cuda := ParseHeader(sampleHeaderOutput)
	assert.Equal(t, "550.54.14", driver)
	assert.Equal(t, "12.4", cuda)

	driver, cuda = ParseHeader("nothing useful")
	assert.Empty(t, driver)
	assert.Empty(t, cuda)
}

func TestSplitCSVLine(t *testing.T) {
	assert.Equal(t, []string{"a", " b", " c"}, splitCSVLine("a, b, c"))
	assert.Equal(t, []string{"x,y", "z"}, splitCSVLine(`"x,y",z`))
	assert.Equal(t, []string{""}, splitCSVLine(""))
}

// =============================================================================
// Probe
// =============================================================================

func TestProbe_Detect(t *testing.T) {
	mock := newMock(exec.SuccessResult(sampleQueryCSV), exec.SuccessResult(sampleHeaderOutput))
	probe := NewProbe(mock, nil)

	assert.Equal(t, constants.BackendNVIDIA, probe.Name())
	assert.Equal(t, gpu.VendorNVIDIA, probe.Vendor())

	rec, err := probe.Detect(context.Background())

	require.NoError(t, err)
	require.NoError(t, rec.Validate())
	assert.Equal(t, gpu.VendorNVIDIA, rec.Vendor)
	assert.Equal(t, "NVIDIA GeForce RTX 4090", *rec.Name)
	assert.Equal(t, "550.54.14", *rec.DriverVersion)
	assert.Equal(t, "12.4", *rec.CUDAVersion)
	assert.Equal(t, "8.9", *rec.ComputeCapability)
	assert.Equal(t, uint64(24564), rec.MemoryTotalMB)
	assert.Equal(t, uint64(1234), *rec.MemoryUsedMB)
	assert.Equal(t, uint64(23330), *rec.MemoryFreeMB)
}

func TestProbe_DetectWithoutHeaderLeavesVersionsAbsent(t *testing.T) {
	mock := newMock(exec.SuccessResult(sampleLegacyCSV+", 7.0"), exec.FailureResult(9, sampleDriverNotLoaded))

	rec, err := NewProbe(mock, nil).Detect(context.Background())

	require.NoError(t, err)
	assert.Nil(t, rec.DriverVersion)
	assert.Nil(t, rec.CUDAVersion)
	assert.Nil(t, rec.PowerUsageW)
	assert.Equal(t, "7.0", *rec.ComputeCapability)
}

type stubParser struct {
	info *SMIInfo
	err  error
}

func (s stubParser) Parse(context.Context) (*SMIInfo, error) { return s.info, s.err }

func TestProbe_DetectPropagatesParserError(t *testing.T) {
	want := gpu.UnsupportedHardware(constants.BackendNVIDIA, "no NVIDIA devices found")
	probe := NewProbeWithParser(stubParser{err: want}, nil)

	rec, err := probe.Detect(context.Background())

	assert.Nil(t, rec)
	assert.Equal(t, want, err)
}

func TestSMIInfo_String(t *testing.T) {
	info := &SMIInfo{DriverVersion: "550.54.14", CUDAVersion: "12.4", GPU: SMIGPUInfo{Name: "RTX"}}
	assert.Contains(t, info.String(), "550.54.14")
	assert.Contains(t, info.String(), "RTX")
}
