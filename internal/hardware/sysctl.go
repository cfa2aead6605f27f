package hardware

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/homewiseai/hwprobe/internal/constants"
	"github.com/homewiseai/hwprobe/internal/errors"
	"github.com/homewiseai/hwprobe/internal/exec"
	"github.com/homewiseai/hwprobe/internal/logging"
)

// sysctlSource reads macOS host facts through sysctl and vm_stat.
type sysctlSource struct {
	executor exec.Executor
	logger   logging.Logger
}

// NewSysctlSource creates the macOS Source.
func NewSysctlSource(executor exec.Executor, logger logging.Logger) Source {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &sysctlSource{executor: executor, logger: logger}
}

func (s *sysctlSource) Read(ctx context.Context) (*Info, error) {
	brand, err := s.sysctl(ctx, "machdep.cpu.brand_string")
	if err != nil {
		return nil, errors.Wrap(errors.CPU, "failed to read CPU brand", err)
	}

	ncpu, err := s.sysctl(ctx, "hw.logicalcpu")
	if err != nil {
		return nil, errors.Wrap(errors.CPU, "failed to read CPU count", err)
	}
	count, err := strconv.Atoi(ncpu)
	if err != nil {
		return nil, errors.Wrap(errors.CPU, "invalid hw.logicalcpu "+strconv.Quote(ncpu), err)
	}

	memsize, err := s.sysctl(ctx, "hw.memsize")
	if err != nil {
		return nil, errors.Wrap(errors.Memory, "failed to read memory size", err)
	}
	totalBytes, err := strconv.ParseUint(memsize, 10, 64)
	if err != nil {
		return nil, errors.Wrap(errors.Memory, "invalid hw.memsize "+strconv.Quote(memsize), err)
	}

	info := &Info{
		CPUCount:    count,
		CPUBrand:    brand,
		MemoryTotal: totalBytes / 1024,
		Platform:    platformName("darwin"),
	}

	result := s.executor.Execute(ctx, constants.VMStat)
	if result.Failed() {
		s.logger.Debug("vm_stat failed, used memory unknown", "exit_code", result.ExitCode, "error", result.Error)
		return info, nil
	}
	usedBytes, err := ParseVMStat(result.StdoutString())
	if err != nil {
		return nil, err
	}
	info.MemoryUsed = usedBytes / 1024
	return info, nil
}

func (s *sysctlSource) sysctl(ctx context.Context, key string) (string, error) {
	result := s.executor.Execute(ctx, constants.Sysctl, "-n", key)
	if result.Error != nil {
		return "", result.Error
	}
	if result.ExitCode != 0 {
		return "", errors.Newf(errors.Execution, "sysctl %s exited with code %d", key, result.ExitCode)
	}
	value := strings.TrimSpace(result.StdoutString())
	if value == "" {
		return "", errors.Newf(errors.Execution, "sysctl %s returned nothing", key)
	}
	return value, nil
}

var (
	pageSizeRegex = regexp.MustCompile(`page size of (\d+) bytes`)
	vmStatRegex   = regexp.MustCompile(`(?m)^(Pages active|Pages wired down|Pages occupied by compressor):\s+(\d+)\.?$`)
)

// ParseVMStat returns used memory in bytes: active, wired and compressed
// pages times the page size.
func ParseVMStat(output string) (uint64, error) {
	m := pageSizeRegex.FindStringSubmatch(output)
	if m == nil {
		return 0, errors.New(errors.Memory, "vm_stat output has no page size")
	}
	pageSize, err := strconv.ParseUint(m[1], 10, 64)
	if err != nil {
		return 0, errors.Wrap(errors.Memory, "invalid vm_stat page size", err)
	}

	var pages uint64
	matches := vmStatRegex.FindAllStringSubmatch(output, -1)
	if len(matches) == 0 {
		return 0, errors.New(errors.Memory, "vm_stat output has no page counters")
	}
	for _, mm := range matches {
		n, err := strconv.ParseUint(mm[2], 10, 64)
		if err != nil {
			return 0, errors.Wrap(errors.Memory, "invalid vm_stat counter "+strconv.Quote(mm[1]), err)
		}
		pages += n
	}
	return pages * pageSize, nil
}
