// Package command is the request boundary shared by every transport. A
// request names a command and carries JSON arguments; the response carries
// either a JSON result or a short human-readable error string.
package command

import (
	"bytes"
	"context"
	"encoding/json"
	"sort"
	"time"

	"github.com/homewiseai/hwprobe/internal/constants"
	"github.com/homewiseai/hwprobe/internal/errors"
	"github.com/homewiseai/hwprobe/internal/gpu"
	"github.com/homewiseai/hwprobe/internal/hardware"
	"github.com/homewiseai/hwprobe/internal/logging"
)

// Command names.
const (
	CmdDetectGPU           = "detect_gpu"
	CmdGetHardwareInfo     = "get_hardware_info"
	CmdSetTestMode         = "set_test_mode"
	CmdIsTestMode          = "is_test_mode"
	CmdSetSimulatedBackend = "set_simulated_backend"
	CmdSimulateError       = "simulate_error"
	CmdRefreshGPU          = "refresh_gpu"
)

// Request is one command invocation. ID is echoed back verbatim.
type Request struct {
	ID   json.RawMessage `json:"id,omitempty"`
	Cmd  string          `json:"cmd"`
	Args json.RawMessage `json:"args,omitempty"`
}

// Response answers a Request. Exactly one of Result and Error is set.
type Response struct {
	ID     json.RawMessage `json:"id,omitempty"`
	OK     bool            `json:"ok"`
	Result interface{}     `json:"result,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// HardwareCollector reads validated host info.
type HardwareCollector interface {
	Collect(ctx context.Context) (*hardware.Info, error)
}

type enabledArgs struct {
	Enabled bool   `json:"enabled"`
	Vendor  string `json:"vendor,omitempty"`
}

type vendorArgs struct {
	Vendor string `json:"vendor"`
}

type handlerFunc func(ctx context.Context, args json.RawMessage) (interface{}, error)

// Handler dispatches requests to the detector, the mode controller and
// the hardware collector.
type Handler struct {
	detector gpu.Detector
	modes    *gpu.Modes
	hardware HardwareCollector
	timeout  time.Duration
	logger   logging.Logger
	routes   map[string]handlerFunc
}

// Option configures a Handler.
type Option func(*Handler)

// WithTimeout bounds every command.
func WithTimeout(d time.Duration) Option {
	return func(h *Handler) {
		h.timeout = d
	}
}

// WithLogger sets the handler logger.
func WithLogger(logger logging.Logger) Option {
	return func(h *Handler) {
		h.logger = logger
	}
}

// NewHandler creates a command handler.
func NewHandler(detector gpu.Detector, modes *gpu.Modes, hw HardwareCollector, opts ...Option) *Handler {
	h := &Handler{
		detector: detector,
		modes:    modes,
		hardware: hw,
		timeout:  constants.CommandTimeout,
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.logger == nil {
		h.logger = logging.NewNop()
	}
	if h.timeout <= 0 {
		h.timeout = constants.CommandTimeout
	}

	h.routes = map[string]handlerFunc{
		CmdDetectGPU:           h.detectGPU,
		CmdGetHardwareInfo:     h.getHardwareInfo,
		CmdSetTestMode:         h.setTestMode,
		CmdIsTestMode:          h.isTestMode,
		CmdSetSimulatedBackend: h.setSimulatedBackend,
		CmdSimulateError:       h.simulateError,
		CmdRefreshGPU:          h.refreshGPU,
	}
	return h
}

// Commands returns the supported command names, sorted.
func (h *Handler) Commands() []string {
	names := make([]string, 0, len(h.routes))
	for name := range h.routes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Dispatch runs one request under the command timeout. It never panics
// and never returns a Go error: failures are flattened into the response.
func (h *Handler) Dispatch(ctx context.Context, req Request) (resp Response) {
	resp.ID = req.ID
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			h.logger.Error("command panicked", "cmd", req.Cmd, "panic", r)
			resp.OK = false
			resp.Result = nil
			resp.Error = "internal error"
		}
	}()

	route, ok := h.routes[req.Cmd]
	if !ok {
		h.logger.Warn("unknown command", "cmd", req.Cmd)
		resp.Error = "unknown command: " + req.Cmd
		return resp
	}

	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	result, err := route(ctx, req.Args)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			err = errors.Wrap(errors.Timeout, "command timed out", err)
		}
		h.logger.Warn("command failed", "cmd", req.Cmd, "code", errors.GetCode(err), "error", err, "duration", time.Since(start))
		resp.Error = errors.UserMessage(err)
		return resp
	}

	h.logger.Debug("command handled", "cmd", req.Cmd, "duration", time.Since(start))
	resp.OK = true
	resp.Result = result
	return resp
}

func (h *Handler) detectGPU(ctx context.Context, _ json.RawMessage) (interface{}, error) {
	return h.detector.DetectGPU(ctx)
}

func (h *Handler) refreshGPU(ctx context.Context, _ json.RawMessage) (interface{}, error) {
	h.detector.Invalidate()
	return h.detector.DetectGPU(ctx)
}

func (h *Handler) getHardwareInfo(ctx context.Context, _ json.RawMessage) (interface{}, error) {
	if h.hardware == nil {
		return nil, errors.New(errors.System, "hardware collection is not available")
	}
	return h.hardware.Collect(ctx)
}

func (h *Handler) setTestMode(_ context.Context, raw json.RawMessage) (interface{}, error) {
	var args enabledArgs
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}

	if args.Enabled && args.Vendor != "" {
		v, err := gpu.ParseVendor(args.Vendor)
		if err != nil {
			return nil, err
		}
		if err := h.modes.EnterTestMode(v); err != nil {
			return nil, err
		}
	} else {
		h.modes.SetTestMode(args.Enabled)
	}
	return h.modes.Snapshot(), nil
}

func (h *Handler) isTestMode(context.Context, json.RawMessage) (interface{}, error) {
	return h.modes.IsTestMode(), nil
}

func (h *Handler) setSimulatedBackend(_ context.Context, raw json.RawMessage) (interface{}, error) {
	var args vendorArgs
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}
	v, err := gpu.ParseVendor(args.Vendor)
	if err != nil {
		return nil, err
	}
	if err := h.modes.SetSimulatedBackend(v); err != nil {
		return nil, err
	}
	return h.modes.Snapshot(), nil
}

func (h *Handler) simulateError(_ context.Context, raw json.RawMessage) (interface{}, error) {
	var args enabledArgs
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}
	h.modes.SetErrorSimulation(args.Enabled)
	return h.modes.Snapshot(), nil
}

// decodeArgs rejects unknown fields. Empty args decode to the zero value.
func decodeArgs(raw json.RawMessage, dst interface{}) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return errors.Wrap(errors.Validation, "invalid arguments: "+err.Error(), err)
	}
	return nil
}
