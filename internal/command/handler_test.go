package command

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/homewiseai/hwprobe/internal/errors"
	"github.com/homewiseai/hwprobe/internal/gpu"
	"github.com/homewiseai/hwprobe/internal/hardware"
)

// mockDetector is a testify mock of gpu.Detector.
type mockDetector struct {
	mock.Mock
}

func (m *mockDetector) DetectGPU(ctx context.Context) (*gpu.CapabilityRecord, error) {
	args := m.Called(ctx)
	rec, _ := args.Get(0).(*gpu.CapabilityRecord)
	return rec, args.Error(1)
}

func (m *mockDetector) Invalidate() {
	m.Called()
}

type fakeCollector struct {
	info *hardware.Info
	err  error
}

func (f fakeCollector) Collect(context.Context) (*hardware.Info, error) { return f.info, f.err }

func sampleInfo() *hardware.Info {
	return &hardware.Info{CPUCount: 8, CPUBrand: "Test CPU", MemoryTotal: 1024, MemoryUsed: 512, Platform: "linux"}
}

// newRealHandler wires a real orchestrator with no backends.
func newRealHandler() (*Handler, *gpu.Modes) {
	modes := gpu.NewModes(nil)
	orch := gpu.NewOrchestrator(gpu.WithModes(modes))
	return NewHandler(orch, modes, fakeCollector{info: sampleInfo()}), modes
}

func req(cmd, args string) Request {
	r := Request{ID: json.RawMessage(`"1"`), Cmd: cmd}
	if args != "" {
		r.Args = json.RawMessage(args)
	}
	return r
}

// =============================================================================
// Dispatch
// =============================================================================

func TestHandler_Commands(t *testing.T) {
	h, _ := newRealHandler()
	assert.Equal(t, []string{
		CmdDetectGPU, CmdGetHardwareInfo, CmdIsTestMode, CmdRefreshGPU,
		CmdSetSimulatedBackend, CmdSetTestMode, CmdSimulateError,
	}, h.Commands())
}

func TestHandler_UnknownCommand(t *testing.T) {
	h, _ := newRealHandler()

	resp := h.Dispatch(context.Background(), req("format_disk", ""))

	assert.False(t, resp.OK)
	assert.Equal(t, json.RawMessage(`"1"`), resp.ID)
	assert.Contains(t, resp.Error, "unknown command")
}

func TestHandler_DetectGPU_NoBackends(t *testing.T) {
	h, _ := newRealHandler()

	resp := h.Dispatch(context.Background(), req(CmdDetectGPU, ""))

	require.True(t, resp.OK, resp.Error)
	assert.Equal(t, gpu.NoAccelerator(), resp.Result)
}

func TestHandler_TestModeFlow(t *testing.T) {
	h, modes := newRealHandler()
	ctx := context.Background()

	resp := h.Dispatch(ctx, req(CmdSetTestMode, `{"enabled":true,"vendor":"apple"}`))
	require.True(t, resp.OK, resp.Error)
	assert.Equal(t, gpu.ModeState{TestMode: true, SimulatedBackend: gpu.VendorApple}, resp.Result)

	resp = h.Dispatch(ctx, req(CmdIsTestMode, ""))
	assert.Equal(t, true, resp.Result)

	resp = h.Dispatch(ctx, req(CmdDetectGPU, ""))
	require.True(t, resp.OK)
	assert.Equal(t, gpu.Fixture(gpu.VendorApple), resp.Result)

	resp = h.Dispatch(ctx, req(CmdSetSimulatedBackend, `{"vendor":"nvidia"}`))
	require.True(t, resp.OK)
	resp = h.Dispatch(ctx, req(CmdDetectGPU, ""))
	assert.Equal(t, gpu.Fixture(gpu.VendorNVIDIA), resp.Result)

	resp = h.Dispatch(ctx, req(CmdSetTestMode, `{"enabled":false}`))
	require.True(t, resp.OK)
	assert.False(t, modes.IsTestMode())
	assert.Equal(t, gpu.VendorNVIDIA, modes.SimulatedBackend())
}

func TestHandler_SimulateError(t *testing.T) {
	h, _ := newRealHandler()
	ctx := context.Background()

	require.True(t, h.Dispatch(ctx, req(CmdSimulateError, `{"enabled":true}`)).OK)

	resp := h.Dispatch(ctx, req(CmdDetectGPU, ""))
	assert.False(t, resp.OK)
	assert.Equal(t, "Simulated GPU error", resp.Error)
	assert.Nil(t, resp.Result)

	require.True(t, h.Dispatch(ctx, req(CmdSimulateError, `{"enabled":false}`)).OK)
	assert.True(t, h.Dispatch(ctx, req(CmdDetectGPU, "")).OK)
}

func TestHandler_InvalidArguments(t *testing.T) {
	h, modes := newRealHandler()
	ctx := context.Background()

	tests := []struct {
		name string
		r    Request
	}{
		{"malformed json", req(CmdSetTestMode, `{"enabled":`)},
		{"unknown field", req(CmdSimulateError, `{"enable":true}`)},
		{"unknown vendor", req(CmdSetSimulatedBackend, `{"vendor":"amd"}`)},
		{"missing vendor", req(CmdSetSimulatedBackend, "")},
		{"test mode with bad vendor", req(CmdSetTestMode, `{"enabled":true,"vendor":"intel"}`)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := h.Dispatch(ctx, tt.r)
			assert.False(t, resp.OK)
			assert.NotEmpty(t, resp.Error)
		})
	}
	assert.Equal(t, gpu.ModeState{SimulatedBackend: gpu.VendorNone}, modes.Snapshot())
}

func TestHandler_RefreshInvalidatesThenDetects(t *testing.T) {
	det := new(mockDetector)
	det.On("Invalidate").Return().Once()
	det.On("DetectGPU", mock.Anything).Return(gpu.Fixture(gpu.VendorNVIDIA), nil).Once()

	h := NewHandler(det, gpu.NewModes(nil), nil)
	resp := h.Dispatch(context.Background(), req(CmdRefreshGPU, ""))

	require.True(t, resp.OK)
	assert.Equal(t, gpu.Fixture(gpu.VendorNVIDIA), resp.Result)
	det.AssertExpectations(t)
}

func TestHandler_DetectErrorIsFlattened(t *testing.T) {
	det := new(mockDetector)
	det.On("DetectGPU", mock.Anything).
		Return(nil, errors.Wrap(errors.Cancelled, "detection abandoned by caller", context.Canceled).WithOp("gpu.DetectGPU"))

	resp := NewHandler(det, gpu.NewModes(nil), nil).Dispatch(context.Background(), req(CmdDetectGPU, ""))

	assert.False(t, resp.OK)
	assert.Equal(t, "detection abandoned by caller", resp.Error)
}

func TestHandler_CommandTimeout(t *testing.T) {
	det := new(mockDetector)
	det.On("DetectGPU", mock.Anything).
		Run(func(args mock.Arguments) {
			<-args.Get(0).(context.Context).Done()
		}).
		Return(nil, context.DeadlineExceeded)

	h := NewHandler(det, gpu.NewModes(nil), nil, WithTimeout(20*time.Millisecond))
	resp := h.Dispatch(context.Background(), req(CmdDetectGPU, ""))

	assert.False(t, resp.OK)
	assert.Equal(t, "command timed out", resp.Error)
}

func TestHandler_CommandTimeoutWinsOverCancelled(t *testing.T) {
	det := new(mockDetector)
	det.On("DetectGPU", mock.Anything).
		Run(func(args mock.Arguments) {
			<-args.Get(0).(context.Context).Done()
		}).
		Return(nil, errors.Wrap(errors.Cancelled, "detection abandoned by caller", context.DeadlineExceeded).WithOp("gpu.DetectGPU"))

	h := NewHandler(det, gpu.NewModes(nil), nil, WithTimeout(20*time.Millisecond))
	resp := h.Dispatch(context.Background(), req(CmdDetectGPU, ""))

	assert.False(t, resp.OK)
	assert.Equal(t, "command timed out", resp.Error)
}

func TestHandler_HardwareInfo(t *testing.T) {
	h, _ := newRealHandler()

	resp := h.Dispatch(context.Background(), req(CmdGetHardwareInfo, ""))

	require.True(t, resp.OK)
	assert.Equal(t, sampleInfo(), resp.Result)

	failing := NewHandler(gpu.NewOrchestrator(), gpu.NewModes(nil),
		fakeCollector{err: errors.New(errors.Memory, "used memory exceeds total memory")})
	resp = failing.Dispatch(context.Background(), req(CmdGetHardwareInfo, ""))
	assert.False(t, resp.OK)
	assert.Equal(t, "used memory exceeds total memory", resp.Error)

	none := NewHandler(gpu.NewOrchestrator(), gpu.NewModes(nil), nil)
	resp = none.Dispatch(context.Background(), req(CmdGetHardwareInfo, ""))
	assert.False(t, resp.OK)
}

func TestHandler_RecoversPanics(t *testing.T) {
	det := new(mockDetector)
	det.On("DetectGPU", mock.Anything).Run(func(mock.Arguments) { panic("boom") })

	resp := NewHandler(det, gpu.NewModes(nil), nil).Dispatch(context.Background(), req(CmdDetectGPU, ""))

	assert.False(t, resp.OK)
	assert.Equal(t, "internal error", resp.Error)
}

func TestResponse_JSON(t *testing.T) {
	data, err := json.Marshal(Response{ID: json.RawMessage(`7`), OK: false, Error: "nope"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":7,"ok":false,"error":"nope"}`, string(data))
}
