//go:build !linux && !darwin

package hardware

import (
	"context"

	"github.com/homewiseai/hwprobe/internal/errors"
	"github.com/homewiseai/hwprobe/internal/exec"
	"github.com/homewiseai/hwprobe/internal/logging"
)

// ghwSource reads everything through ghw. Used memory is not reported.
type ghwSource struct {
	logger logging.Logger
}

// NewSystemSource returns the Source for the running platform.
func NewSystemSource(_ exec.Executor, logger logging.Logger) Source {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &ghwSource{logger: logger}
}

func (s *ghwSource) Read(ctx context.Context) (*Info, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(errors.Cancelled, "hardware read cancelled", err)
	}

	count, brand, err := ghwCPU()
	if err != nil {
		return nil, err
	}
	total, err := ghwMemoryTotalKiB()
	if err != nil {
		return nil, err
	}

	return &Info{
		CPUCount:    count,
		CPUBrand:    brand,
		MemoryTotal: total,
		Platform:    Platform(),
	}, nil
}
