package gpu

import (
	"context"

	"github.com/homewiseai/hwprobe/internal/errors"
)

// Backend probes one vendor's accelerator.
//
// Detect either returns a record tagged with Vendor() or a non-fatal probe
// error classified as ToolUnavailable, UnsupportedHardware or ParseFailure.
// Implementations must honor ctx cancellation by stopping any external
// process they started.
type Backend interface {
	// Name identifies the backend in logs and configuration.
	Name() string
	// Vendor is the vendor every successful record is tagged with.
	Vendor() Vendor
	// Detect probes the hardware once.
	Detect(ctx context.Context) (*CapabilityRecord, error)
}

// ToolUnavailable reports that a backend's utility is missing or failed to start.
func ToolUnavailable(backend, message string, cause error) error {
	return errors.Wrap(errors.ToolUnavailable, message, cause).WithOp(backend + ".Detect")
}

// UnsupportedHardware reports that a backend's utility ran but found no
// matching accelerator.
func UnsupportedHardware(backend, message string) error {
	return errors.New(errors.UnsupportedHardware, message).WithOp(backend + ".Detect")
}

// ParseFailure reports output that did not match the expected schema.
func ParseFailure(backend, message string, cause error) error {
	return errors.Wrap(errors.ParseFailure, message, cause).WithOp(backend + ".Detect")
}
