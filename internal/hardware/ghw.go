package hardware

import (
	"runtime"
	"strings"

	"github.com/jaypipes/ghw"

	"github.com/homewiseai/hwprobe/internal/errors"
)

// ghwCPU returns the logical CPU count and the first processor's model name.
func ghwCPU() (int, string, error) {
	info, err := ghw.CPU(ghw.WithDisableWarnings())
	if err != nil {
		return 0, "", errors.Wrap(errors.CPU, "failed to read CPU information", err)
	}

	brand := ""
	for _, p := range info.Processors {
		if m := strings.TrimSpace(p.Model); m != "" {
			brand = m
			break
		}
	}
	return runtime.NumCPU(), brand, nil
}

// ghwMemoryTotalKiB returns the usable physical memory in KiB.
func ghwMemoryTotalKiB() (uint64, error) {
	info, err := ghw.Memory(ghw.WithDisableWarnings())
	if err != nil {
		return 0, errors.Wrap(errors.Memory, "failed to read memory information", err)
	}
	if info.TotalUsableBytes <= 0 {
		return 0, errors.New(errors.Memory, "failed to detect system memory")
	}
	return uint64(info.TotalUsableBytes) / 1024, nil
}
