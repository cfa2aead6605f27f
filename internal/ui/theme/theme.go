// Package theme holds the colors and lipgloss styles of the terminal views.
// Colors adapt to light and dark terminal backgrounds.
package theme

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/homewiseai/hwprobe/internal/gpu"
)

// Vendor accent colors.
var (
	// NVIDIAGreen is the NVIDIA brand green.
	NVIDIAGreen = lipgloss.Color("#76B900")

	// AppleSilver is used for Apple Silicon records.
	AppleSilver = lipgloss.Color("#A2AAAD")

	// NeutralGray is used when no accelerator was found.
	NeutralGray = lipgloss.Color("#666666")
)

// Semantic colors.
var (
	ColorSuccess   = lipgloss.AdaptiveColor{Light: "#22C55E", Dark: "#4ADE80"}
	ColorWarning   = lipgloss.AdaptiveColor{Light: "#EAB308", Dark: "#FACC15"}
	ColorError     = lipgloss.AdaptiveColor{Light: "#DC2626", Dark: "#F87171"}
	ColorInfo      = lipgloss.AdaptiveColor{Light: "#0EA5E9", Dark: "#38BDF8"}
	ColorText      = lipgloss.AdaptiveColor{Light: "#1F2937", Dark: "#F9FAFB"}
	ColorTextMuted = lipgloss.AdaptiveColor{Light: "#6B7280", Dark: "#9CA3AF"}
	ColorBorder    = lipgloss.AdaptiveColor{Light: "#D1D5DB", Dark: "#404040"}
)

// AccentFor returns the accent color of a vendor.
func AccentFor(v gpu.Vendor) lipgloss.Color {
	switch v {
	case gpu.VendorNVIDIA:
		return NVIDIAGreen
	case gpu.VendorApple:
		return AppleSilver
	default:
		return NeutralGray
	}
}

// Styles is the set of pre-built styles used by the views.
type Styles struct {
	Title   lipgloss.Style
	Panel   lipgloss.Style
	Label   lipgloss.Style
	Value   lipgloss.Style
	Muted   lipgloss.Style
	Spinner lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Help    lipgloss.Style

	plain bool
}

// NewStyles builds the default styles. With noColor set every style renders
// text unchanged apart from layout, which keeps output stable when piped.
func NewStyles(noColor bool) Styles {
	if noColor {
		return plainStyles()
	}
	return Styles{
		Title:   lipgloss.NewStyle().Bold(true).Foreground(NVIDIAGreen).MarginBottom(1),
		Panel:   lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(ColorBorder).Padding(0, 1),
		Label:   lipgloss.NewStyle().Foreground(ColorTextMuted).Bold(true),
		Value:   lipgloss.NewStyle().Foreground(ColorText),
		Muted:   lipgloss.NewStyle().Foreground(ColorTextMuted).Italic(true),
		Spinner: lipgloss.NewStyle().Foreground(NVIDIAGreen),
		Success: lipgloss.NewStyle().Foreground(ColorSuccess).Bold(true),
		Warning: lipgloss.NewStyle().Foreground(ColorWarning).Bold(true),
		Error:   lipgloss.NewStyle().Foreground(ColorError).Bold(true),
		Help:    lipgloss.NewStyle().Foreground(ColorTextMuted).Italic(true),
	}
}

func plainStyles() Styles {
	s := lipgloss.NewStyle()
	return Styles{
		Title:   s,
		Panel:   s,
		Label:   s,
		Value:   s,
		Muted:   s,
		Spinner: s,
		Success: s,
		Warning: s,
		Error:   s,
		Help:    s,
		plain:   true,
	}
}

// IsPlain reports whether the styles were built without color.
func (s Styles) IsPlain() bool {
	return s.plain
}

// Accent returns a bold style in the accent color of v.
func (s Styles) Accent(v gpu.Vendor) lipgloss.Style {
	if s.plain {
		return lipgloss.NewStyle()
	}
	return lipgloss.NewStyle().Bold(true).Foreground(AccentFor(v))
}

// RenderKeyValue renders "key: value" with styled label and value.
func (s Styles) RenderKeyValue(key, value string) string {
	return s.Label.Render(key+":") + " " + s.Value.Render(value)
}

// StatusKind selects the indicator color of RenderStatusLine.
type StatusKind int

const (
	StatusInfo StatusKind = iota
	StatusSuccess
	StatusWarning
	StatusError
)

// RenderStatusLine renders a status indicator followed by message.
func (s Styles) RenderStatusLine(kind StatusKind, message string) string {
	var style lipgloss.Style
	switch kind {
	case StatusSuccess:
		style = s.Success
	case StatusWarning:
		style = s.Warning
	case StatusError:
		style = s.Error
	default:
		style = s.Value
	}
	indicator := "●"
	if s.plain {
		indicator = "*"
	}
	return style.Render(indicator) + " " + message
}
