package ui

import (
	"context"
	"io"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/homewiseai/hwprobe/internal/errors"
	"github.com/homewiseai/hwprobe/internal/gpu"
	"github.com/homewiseai/hwprobe/internal/ui/theme"
)

// DetectState is the phase of the detect view.
type DetectState int

const (
	StateDetecting DetectState = iota
	StateComplete
	StateError
	StateAborted
)

type detectDoneMsg struct {
	record *gpu.CapabilityRecord
}

type detectErrMsg struct {
	err error
}

type detectKeyMap struct {
	Quit key.Binding
}

func defaultDetectKeyMap() detectKeyMap {
	return detectKeyMap{
		Quit: key.NewBinding(
			key.WithKeys("q", "esc", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

// DetectModel shows a spinner while one detection runs, then the result
// panel. It quits on its own once detection finishes.
type DetectModel struct {
	ctx      context.Context
	detector gpu.Detector
	styles   theme.Styles
	keys     detectKeyMap
	spinner  spinner.Model

	state  DetectState
	record *gpu.CapabilityRecord
	err    error
}

// NewDetectModel creates the view. ctx bounds the detection call.
func NewDetectModel(ctx context.Context, detector gpu.Detector, styles theme.Styles) DetectModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = styles.Spinner
	return DetectModel{
		ctx:      ctx,
		detector: detector,
		styles:   styles,
		keys:     defaultDetectKeyMap(),
		spinner:  sp,
	}
}

// Init starts the spinner and the detection.
func (m DetectModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.detect)
}

func (m DetectModel) detect() tea.Msg {
	rec, err := m.detector.DetectGPU(m.ctx)
	if err != nil {
		return detectErrMsg{err: err}
	}
	return detectDoneMsg{record: rec}
}

// Update handles messages.
func (m DetectModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if key.Matches(msg, m.keys.Quit) {
			if m.state == StateDetecting {
				m.state = StateAborted
			}
			return m, tea.Quit
		}
		return m, nil

	case detectDoneMsg:
		m.state = StateComplete
		m.record = msg.record
		return m, tea.Quit

	case detectErrMsg:
		m.state = StateError
		m.err = msg.err
		return m, tea.Quit

	case spinner.TickMsg:
		if m.state != StateDetecting {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

// View renders the current state.
func (m DetectModel) View() string {
	switch m.state {
	case StateComplete:
		return GPUPanel(m.styles, m.record) + "\n"
	case StateError:
		return ErrorLine(m.styles, m.err) + "\n"
	case StateAborted:
		return m.styles.RenderStatusLine(theme.StatusWarning, "Detection cancelled") + "\n"
	default:
		return m.spinner.View() + " Detecting GPU... " + m.styles.Help.Render("("+m.keys.Quit.Help().Key+" to quit)") + "\n"
	}
}

// State returns the current phase.
func (m DetectModel) State() DetectState {
	return m.state
}

// Result returns the detection outcome. Aborting the view yields a
// Cancelled error.
func (m DetectModel) Result() (*gpu.CapabilityRecord, error) {
	switch m.state {
	case StateComplete:
		return m.record, nil
	case StateError:
		return nil, m.err
	default:
		return nil, errors.New(errors.Cancelled, "detection cancelled").WithOp("ui.Result")
	}
}

// RunDetect runs the detect view on in/out until detection finishes and
// returns its outcome.
func RunDetect(ctx context.Context, detector gpu.Detector, styles theme.Styles, in io.Reader, out io.Writer) (*gpu.CapabilityRecord, error) {
	const op = "ui.RunDetect"

	p := tea.NewProgram(
		NewDetectModel(ctx, detector, styles),
		tea.WithContext(ctx),
		tea.WithInput(in),
		tea.WithOutput(out),
	)
	final, err := p.Run()
	if err != nil {
		if ctx.Err() != nil {
			return nil, errors.Wrap(errors.Cancelled, "detection cancelled", ctx.Err()).WithOp(op)
		}
		return nil, errors.Wrap(errors.System, "terminal UI failed", err).WithOp(op)
	}
	return final.(DetectModel).Result()
}
