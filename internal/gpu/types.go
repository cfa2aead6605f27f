// Package gpu detects the compute accelerator of the host and reports it as
// a CapabilityRecord. Detection is driven by an ordered list of vendor
// backends, guarded by a mode controller (test mode, error simulation) and
// backed by a success-only result cache.
package gpu

import (
	"fmt"
	"strings"

	"github.com/homewiseai/hwprobe/internal/errors"
)

// Vendor identifies the accelerator family a record describes.
type Vendor string

const (
	// VendorNVIDIA is a discrete NVIDIA GPU reported by nvidia-smi or NVML.
	VendorNVIDIA Vendor = "nvidia"
	// VendorApple is an Apple Silicon integrated GPU.
	VendorApple Vendor = "apple"
	// VendorNone means no accelerator was found.
	VendorNone Vendor = "none"
)

// String returns the wire form of the vendor.
func (v Vendor) String() string {
	return string(v)
}

// DisplayName returns a human readable vendor name.
func (v Vendor) DisplayName() string {
	switch v {
	case VendorNVIDIA:
		return "NVIDIA"
	case VendorApple:
		return "Apple Silicon"
	case VendorNone:
		return "No accelerator"
	default:
		return string(v)
	}
}

// IsValid reports whether v is a known vendor.
func (v Vendor) IsValid() bool {
	switch v {
	case VendorNVIDIA, VendorApple, VendorNone:
		return true
	default:
		return false
	}
}

// ParseVendor converts user input such as "NVIDIA" or "apple" to a Vendor.
func ParseVendor(s string) (Vendor, error) {
	v := Vendor(strings.ToLower(strings.TrimSpace(s)))
	if !v.IsValid() {
		return "", errors.Newf(errors.Validation, "unknown GPU vendor %q: must be one of: nvidia, apple, none", s).
			WithOp("gpu.ParseVendor")
	}
	return v, nil
}

// CapabilityRecord describes the detected accelerator. Optional fields are
// nil when the backend could not measure them and encode as JSON null.
//
// Memory figures are MiB. MemoryTotalMB is always present and is 0 for
// VendorNone. When MemoryUsedMB and MemoryFreeMB are both set they sum to
// MemoryTotalMB; Normalize enforces this.
type CapabilityRecord struct {
	Vendor             Vendor   `json:"gpu_type"`
	Name               *string  `json:"name"`
	DriverVersion      *string  `json:"driver_version"`
	CUDAVersion        *string  `json:"cuda_version"`
	ComputeCapability  *string  `json:"compute_capability"`
	TemperatureC       *float64 `json:"temperature_c"`
	PowerUsageW        *float64 `json:"power_usage_w"`
	UtilizationPercent *float64 `json:"utilization_percent"`
	MemoryTotalMB      uint64   `json:"memory_total_mb"`
	MemoryUsedMB       *uint64  `json:"memory_used_mb"`
	MemoryFreeMB       *uint64  `json:"memory_free_mb"`
}

// NoAccelerator returns the record used when every backend failed: vendor
// none, total memory 0 and every optional field absent.
func NoAccelerator() *CapabilityRecord {
	return &CapabilityRecord{Vendor: VendorNone}
}

// IsAccelerated reports whether the record describes a real accelerator.
func (r *CapabilityRecord) IsAccelerated() bool {
	return r != nil && r.Vendor != VendorNone
}

// Clone returns a deep copy so cached records never alias caller-held ones.
func (r *CapabilityRecord) Clone() *CapabilityRecord {
	if r == nil {
		return nil
	}
	return &CapabilityRecord{
		Vendor:             r.Vendor,
		Name:               clonePtr(r.Name),
		DriverVersion:      clonePtr(r.DriverVersion),
		CUDAVersion:        clonePtr(r.CUDAVersion),
		ComputeCapability:  clonePtr(r.ComputeCapability),
		TemperatureC:       clonePtr(r.TemperatureC),
		PowerUsageW:        clonePtr(r.PowerUsageW),
		UtilizationPercent: clonePtr(r.UtilizationPercent),
		MemoryTotalMB:      r.MemoryTotalMB,
		MemoryUsedMB:       clonePtr(r.MemoryUsedMB),
		MemoryFreeMB:       clonePtr(r.MemoryFreeMB),
	}
}

// Normalize repairs a record in place so it satisfies the record invariants
// and returns it for chaining.
//
// A vendor-none record loses every optional field. Otherwise free memory is
// recomputed as total minus used, and used/free figures larger than the
// total are dropped.
func (r *CapabilityRecord) Normalize() *CapabilityRecord {
	if r.Vendor == VendorNone {
		*r = CapabilityRecord{Vendor: VendorNone}
		return r
	}
	total := r.MemoryTotalMB
	if r.MemoryUsedMB != nil && *r.MemoryUsedMB > total {
		r.MemoryUsedMB = nil
		r.MemoryFreeMB = nil
		return r
	}
	if r.MemoryFreeMB != nil && *r.MemoryFreeMB > total {
		r.MemoryFreeMB = nil
	}
	if r.MemoryUsedMB != nil {
		r.MemoryFreeMB = Ptr(total - *r.MemoryUsedMB)
	}
	return r
}

// Validate checks the record invariants without modifying the record.
func (r *CapabilityRecord) Validate() error {
	const op = "gpu.CapabilityRecord.Validate"

	if !r.Vendor.IsValid() {
		return errors.Newf(errors.Validation, "unknown vendor %q", r.Vendor).WithOp(op)
	}
	if r.Vendor == VendorNone {
		if *r != (CapabilityRecord{Vendor: VendorNone}) {
			return errors.New(errors.Validation, "vendor none must have zero memory and no optional fields").WithOp(op)
		}
		return nil
	}
	if r.MemoryUsedMB != nil && r.MemoryFreeMB != nil {
		if *r.MemoryUsedMB+*r.MemoryFreeMB != r.MemoryTotalMB {
			return errors.Newf(errors.Validation, "memory used (%d) + free (%d) != total (%d)",
				*r.MemoryUsedMB, *r.MemoryFreeMB, r.MemoryTotalMB).WithOp(op)
		}
	}
	return nil
}

// Summary returns a one-line description for logs and the CLI.
func (r *CapabilityRecord) Summary() string {
	if !r.IsAccelerated() {
		return VendorNone.DisplayName()
	}
	name := r.Vendor.DisplayName()
	if r.Name != nil {
		name = *r.Name
	}
	return fmt.Sprintf("%s (%d MiB)", name, r.MemoryTotalMB)
}

// Ptr returns a pointer to v. Backends use it to fill optional fields.
func Ptr[T any](v T) *T {
	return &v
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
