// Package probes builds the configured detection backends by name.
package probes

import (
	"strings"

	"github.com/homewiseai/hwprobe/internal/constants"
	"github.com/homewiseai/hwprobe/internal/errors"
	"github.com/homewiseai/hwprobe/internal/exec"
	"github.com/homewiseai/hwprobe/internal/gpu"
	"github.com/homewiseai/hwprobe/internal/gpu/apple"
	"github.com/homewiseai/hwprobe/internal/gpu/nvidia"
	"github.com/homewiseai/hwprobe/internal/gpu/nvml"
	"github.com/homewiseai/hwprobe/internal/logging"
)

// Build returns one backend per name, in the given priority order.
// Unknown or repeated names are a Configuration error.
func Build(names []string, executor exec.Executor, logger logging.Logger) ([]gpu.Backend, error) {
	const op = "probes.Build"

	if logger == nil {
		logger = logging.NewNop()
	}
	if len(names) == 0 {
		return nil, errors.Wrap(errors.Configuration, "no backends configured", errors.ErrNoBackends).WithOp(op)
	}

	seen := make(map[string]bool, len(names))
	backends := make([]gpu.Backend, 0, len(names))
	for _, raw := range names {
		name := strings.ToLower(strings.TrimSpace(raw))
		if seen[name] {
			return nil, errors.Newf(errors.Configuration, "backend %q listed twice", name).WithOp(op)
		}
		seen[name] = true

		backendLogger := logger.WithPrefix(name)
		switch name {
		case constants.BackendNVIDIA:
			backends = append(backends, nvidia.NewProbe(executor, backendLogger))
		case constants.BackendApple:
			backends = append(backends, apple.NewProbe(executor, backendLogger))
		case constants.BackendNVML:
			backends = append(backends, nvml.NewProbe(nvml.NewSystemLibrary(), backendLogger))
		default:
			return nil, errors.Newf(errors.Configuration, "unknown backend %q (known: %s)",
				name, strings.Join(constants.KnownBackends(), ", ")).WithOp(op)
		}
	}
	return backends, nil
}
