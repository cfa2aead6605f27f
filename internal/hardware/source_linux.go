//go:build linux

package hardware

import (
	"context"

	"github.com/prometheus/procfs"

	"github.com/homewiseai/hwprobe/internal/errors"
	"github.com/homewiseai/hwprobe/internal/exec"
	"github.com/homewiseai/hwprobe/internal/logging"
)

// linuxSource reads the CPU through ghw and memory through /proc/meminfo.
type linuxSource struct {
	procRoot string
	logger   logging.Logger
}

// NewSystemSource returns the Source for the running platform.
func NewSystemSource(_ exec.Executor, logger logging.Logger) Source {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &linuxSource{procRoot: procfs.DefaultMountPoint, logger: logger}
}

func (s *linuxSource) Read(ctx context.Context) (*Info, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(errors.Cancelled, "hardware read cancelled", err)
	}

	count, brand, err := ghwCPU()
	if err != nil {
		return nil, err
	}

	total, used, err := readMeminfo(s.procRoot)
	if err != nil {
		s.logger.Debug("meminfo unavailable, falling back to ghw", "error", err)
		if total, err = ghwMemoryTotalKiB(); err != nil {
			return nil, err
		}
		used = 0
	}

	return &Info{
		CPUCount:    count,
		CPUBrand:    brand,
		MemoryTotal: total,
		MemoryUsed:  used,
		Platform:    Platform(),
	}, nil
}

// readMeminfo returns total and used memory in KiB. Used is MemTotal minus
// MemAvailable, falling back to MemFree on kernels without MemAvailable.
func readMeminfo(procRoot string) (total, used uint64, err error) {
	fs, err := procfs.NewFS(procRoot)
	if err != nil {
		return 0, 0, errors.Wrap(errors.System, "failed to open procfs", err)
	}
	mi, err := fs.Meminfo()
	if err != nil {
		return 0, 0, errors.Wrap(errors.Memory, "failed to read meminfo", err)
	}
	if mi.MemTotal == nil || *mi.MemTotal == 0 {
		return 0, 0, errors.New(errors.Memory, "meminfo has no MemTotal")
	}
	total = *mi.MemTotal

	available := mi.MemAvailable
	if available == nil {
		available = mi.MemFree
	}
	if available == nil || *available > total {
		return total, 0, nil
	}
	return total, total - *available, nil
}
