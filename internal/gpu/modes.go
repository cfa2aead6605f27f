package gpu

import (
	"sync"

	"github.com/homewiseai/hwprobe/internal/errors"
	"github.com/homewiseai/hwprobe/internal/logging"
)

// ModeState is a consistent view of the mode controller.
type ModeState struct {
	TestMode         bool   `json:"test_mode"`
	ErrorSimulation  bool   `json:"error_simulation"`
	SimulatedBackend Vendor `json:"simulated_backend"`
}

// Modes holds the process-wide switches that override real detection.
// All state lives behind one lock so a reader never observes test mode
// enabled together with a stale simulated backend.
type Modes struct {
	mu     sync.RWMutex
	state  ModeState
	logger logging.Logger
}

// NewModes returns a controller with every override off and the simulated
// backend set to VendorNone.
func NewModes(logger logging.Logger) *Modes {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Modes{
		state:  ModeState{SimulatedBackend: VendorNone},
		logger: logger,
	}
}

// Snapshot returns all switches read under a single lock.
func (m *Modes) Snapshot() ModeState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// SetTestMode turns fixture mode on or off.
func (m *Modes) SetTestMode(enabled bool) {
	m.mu.Lock()
	m.state.TestMode = enabled
	m.mu.Unlock()
	m.logger.Info("test mode changed", "enabled", enabled)
}

// IsTestMode reports whether fixture mode is on.
func (m *Modes) IsTestMode() bool {
	return m.Snapshot().TestMode
}

// SetSimulatedBackend selects the fixture returned in test mode.
func (m *Modes) SetSimulatedBackend(v Vendor) error {
	if !v.IsValid() {
		return errors.Newf(errors.Validation, "unknown GPU vendor %q", v).WithOp("gpu.SetSimulatedBackend")
	}
	m.mu.Lock()
	m.state.SimulatedBackend = v
	m.mu.Unlock()
	m.logger.Info("simulated backend changed", "vendor", v)
	return nil
}

// SimulatedBackend returns the vendor whose fixture test mode serves.
func (m *Modes) SimulatedBackend() Vendor {
	return m.Snapshot().SimulatedBackend
}

// EnterTestMode selects the simulated backend and enables test mode in one
// step.
func (m *Modes) EnterTestMode(v Vendor) error {
	if !v.IsValid() {
		return errors.Newf(errors.Validation, "unknown GPU vendor %q", v).WithOp("gpu.EnterTestMode")
	}
	m.mu.Lock()
	m.state.SimulatedBackend = v
	m.state.TestMode = true
	m.mu.Unlock()
	m.logger.Info("test mode entered", "vendor", v)
	return nil
}

// SetErrorSimulation makes every detection fail with SimulatedFailure while on.
func (m *Modes) SetErrorSimulation(enabled bool) {
	m.mu.Lock()
	m.state.ErrorSimulation = enabled
	m.mu.Unlock()
	m.logger.Info("error simulation changed", "enabled", enabled)
}

// IsErrorSimulation reports whether error simulation is on.
func (m *Modes) IsErrorSimulation() bool {
	return m.Snapshot().ErrorSimulation
}

// Reset restores the initial state.
func (m *Modes) Reset() {
	m.mu.Lock()
	m.state = ModeState{SimulatedBackend: VendorNone}
	m.mu.Unlock()
	m.logger.Info("modes reset")
}
