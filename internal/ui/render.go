// Package ui renders detection results for terminals: static panels for
// piped or --json-less output and an interactive spinner view while a
// detection is running.
package ui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/homewiseai/hwprobe/internal/errors"
	"github.com/homewiseai/hwprobe/internal/gpu"
	"github.com/homewiseai/hwprobe/internal/hardware"
	"github.com/homewiseai/hwprobe/internal/ui/theme"
)

const unknownValue = "n/a"

// GPUPanel renders a capability record as a bordered key/value panel.
// Absent optional fields show as n/a.
func GPUPanel(s theme.Styles, rec *gpu.CapabilityRecord) string {
	if rec == nil {
		rec = gpu.NoAccelerator()
	}

	title := s.Accent(rec.Vendor).Render(rec.Summary())
	if !rec.IsAccelerated() {
		return s.Panel.Render(title + "\n" + s.Muted.Render("No supported accelerator was found on this host."))
	}

	lines := []string{
		title,
		s.RenderKeyValue("Vendor", rec.Vendor.DisplayName()),
		s.RenderKeyValue("Memory", formatMemory(rec)),
	}
	if rec.Vendor == gpu.VendorNVIDIA {
		lines = append(lines,
			s.RenderKeyValue("Driver", stringOr(rec.DriverVersion)),
			s.RenderKeyValue("CUDA", stringOr(rec.CUDAVersion)),
			s.RenderKeyValue("Compute", stringOr(rec.ComputeCapability)),
		)
	}
	lines = append(lines,
		s.RenderKeyValue("Temperature", floatOr(rec.TemperatureC, 1, " °C")),
		s.RenderKeyValue("Power", floatOr(rec.PowerUsageW, 1, " W")),
		s.RenderKeyValue("Utilization", floatOr(rec.UtilizationPercent, 0, " %")),
	)
	return s.Panel.Render(strings.Join(lines, "\n"))
}

// HardwarePanel renders host info. Memory is converted from KiB to MiB.
func HardwarePanel(s theme.Styles, info *hardware.Info) string {
	if info == nil {
		return s.Panel.Render(s.Muted.Render("Host information unavailable."))
	}
	lines := []string{
		s.Title.UnsetMarginBottom().Render("Host"),
		s.RenderKeyValue("Platform", info.Platform),
		s.RenderKeyValue("CPU", info.CPUBrand),
		s.RenderKeyValue("Cores", strconv.Itoa(info.CPUCount)),
		s.RenderKeyValue("Memory", fmt.Sprintf("%d / %d MiB used", info.MemoryUsed/1024, info.MemoryTotal/1024)),
	}
	return s.Panel.Render(strings.Join(lines, "\n"))
}

// ErrorLine renders the user-facing message of err as a status line.
func ErrorLine(s theme.Styles, err error) string {
	if err == nil {
		return ""
	}
	return s.RenderStatusLine(theme.StatusError, errors.UserMessage(err))
}

func formatMemory(rec *gpu.CapabilityRecord) string {
	total := fmt.Sprintf("%d MiB", rec.MemoryTotalMB)
	switch {
	case rec.MemoryUsedMB != nil && rec.MemoryFreeMB != nil:
		return fmt.Sprintf("%s (%d used, %d free)", total, *rec.MemoryUsedMB, *rec.MemoryFreeMB)
	case rec.MemoryUsedMB != nil:
		return fmt.Sprintf("%s (%d used)", total, *rec.MemoryUsedMB)
	default:
		return total
	}
}

func stringOr(p *string) string {
	if p == nil || *p == "" {
		return unknownValue
	}
	return *p
}

func floatOr(p *float64, precision int, unit string) string {
	if p == nil {
		return unknownValue
	}
	return strconv.FormatFloat(*p, 'f', precision, 64) + unit
}
