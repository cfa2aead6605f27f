package app

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/homewiseai/hwprobe/internal/config"
	hwerrors "github.com/homewiseai/hwprobe/internal/errors"
	"github.com/homewiseai/hwprobe/internal/exec"
	"github.com/homewiseai/hwprobe/internal/gpu"
	"github.com/homewiseai/hwprobe/internal/logging"
)

// newTestApp returns an initialized app whose probe utilities are all
// missing, so detection falls through to the no-accelerator record.
func newTestApp(t *testing.T, override func(*config.Config)) *App {
	t.Helper()

	mock := exec.NewMockExecutor()
	for _, tool := range []string{"nvidia-smi", "ioreg", "powermetrics", "sysctl", "vm_stat"} {
		mock.SetMissing(tool)
	}

	a := New(Options{
		Version:   "test",
		Executor:  mock,
		LogOutput: &bytes.Buffer{},
		Overrides: func(cfg *config.Config) {
			cfg.ConfigDir = t.TempDir()
			cfg.Backends = []string{"nvidia", "apple"}
			if override != nil {
				override(cfg)
			}
		},
	})
	require.NoError(t, a.Initialize(context.Background(), ""))
	return a
}

// =============================================================================
// Container Tests
// =============================================================================

func TestContainer_Validate(t *testing.T) {
	c := NewContainer()

	err := c.Validate()
	require.Error(t, err)
	assert.True(t, hwerrors.IsCode(err, hwerrors.Configuration))
	assert.Contains(t, err.Error(), "config not initialized")

	c.SetConfig(config.DefaultConfig())
	assert.Contains(t, c.Validate().Error(), "logger not initialized")

	c.SetLogger(logging.NewNop())
	assert.Contains(t, c.Validate().Error(), "detector not initialized")

	modes := gpu.NewModes(nil)
	c.SetDetection(modes, gpu.NewOrchestrator(gpu.WithModes(modes)))
	assert.Contains(t, c.Validate().Error(), "command handler not initialized")
}

func TestContainer_SetGet(t *testing.T) {
	c := NewContainer()
	cfg := config.DefaultConfig()
	logger := logging.NewNop()
	executor := exec.NewMockExecutor()

	c.SetConfig(cfg)
	c.SetLogger(logger)
	c.SetExecutor(executor)

	assert.Same(t, cfg, c.GetConfig())
	assert.Equal(t, logger, c.GetLogger())
	assert.Equal(t, executor, c.GetExecutor())
	assert.Nil(t, c.GetHardware())
}

// =============================================================================
// Lifecycle Tests
// =============================================================================

func TestLifecycle_ShutdownOrderAndOnce(t *testing.T) {
	l := NewLifecycle(time.Second)
	var order []int
	l.OnShutdown(func(context.Context) error { order = append(order, 1); return nil })
	l.OnShutdown(func(context.Context) error { order = append(order, 2); return errors.New("second failed") })
	l.OnShutdown(func(context.Context) error { order = append(order, 3); return nil })

	assert.False(t, l.IsShuttingDown())
	err := l.Shutdown()
	require.Error(t, err)
	assert.Equal(t, "second failed", err.Error())
	assert.Equal(t, []int{3, 2, 1}, order)
	assert.True(t, l.IsShuttingDown())

	assert.Equal(t, err, l.Shutdown())
	assert.Len(t, order, 3)
}

type countingCloser struct{ n atomic.Int32 }

func (c *countingCloser) Close() error { c.n.Add(1); return nil }

func TestLifecycle_OnClose(t *testing.T) {
	l := NewLifecycle(time.Second)
	c := &countingCloser{}
	l.OnClose(c)

	require.NoError(t, l.Shutdown())
	assert.Equal(t, int32(1), c.n.Load())
}

func TestLifecycle_ContextCancelledByShutdown(t *testing.T) {
	l := NewLifecycle(time.Second)
	ctx, stop := l.Context(context.Background())
	defer stop()

	require.NoError(t, l.Shutdown())

	select {
	case <-ctx.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("context not cancelled by Shutdown")
	}
}

func TestLifecycle_ContextFollowsParent(t *testing.T) {
	l := NewLifecycle(time.Second)
	parent, cancel := context.WithCancel(context.Background())
	ctx, stop := l.Context(parent)
	defer stop()

	cancel()
	<-ctx.Done()
	assert.False(t, l.IsShuttingDown())
}

// =============================================================================
// App Tests
// =============================================================================

func TestApp_Initialize(t *testing.T) {
	a := newTestApp(t, nil)
	c := a.Container()

	require.NoError(t, c.Validate())
	assert.Equal(t, []string{"nvidia", "apple"}, c.GetDetector().BackendNames())
	assert.NotNil(t, c.GetHardware())
	assert.Equal(t, "test", a.Version())
}

func TestApp_Initialize_InvalidConfig(t *testing.T) {
	tests := []struct {
		name     string
		override func(*config.Config)
	}{
		{"unknown backend", func(cfg *config.Config) { cfg.Backends = []string{"amd"} }},
		{"no backends", func(cfg *config.Config) { cfg.Backends = nil }},
		{"bad log level", func(cfg *config.Config) { cfg.LogLevel = "loud" }},
		{"verbose and quiet", func(cfg *config.Config) { cfg.Verbose, cfg.Quiet = true, true }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := New(Options{Executor: exec.NewMockExecutor(), LogOutput: &bytes.Buffer{}, Overrides: tt.override})
			err := a.Initialize(context.Background(), "")
			require.Error(t, err)
			assert.True(t, hwerrors.IsCode(err, hwerrors.Configuration))
		})
	}
}

func TestApp_Initialize_ConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("backends: [apple]\nsingle_flight: true\n"), 0o644))

	a := New(Options{Executor: exec.NewMockExecutor(), LogOutput: &bytes.Buffer{}})
	require.NoError(t, a.Initialize(context.Background(), path))

	assert.Equal(t, []string{"apple"}, a.Container().GetDetector().BackendNames())
	assert.True(t, a.Container().GetConfig().SingleFlight)
}

func TestApp_LogFile(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "hwprobe.log")
	a := newTestApp(t, func(cfg *config.Config) { cfg.LogFile = logPath })

	_, err := a.Detect(context.Background())
	require.NoError(t, err)
	require.NoError(t, a.Shutdown())

	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.NotEmpty(t, data)
}

func TestApp_Detect(t *testing.T) {
	a := newTestApp(t, nil)

	rec, err := a.Detect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, gpu.NoAccelerator(), rec)

	require.NoError(t, a.Container().GetModes().EnterTestMode(gpu.VendorApple))
	rec, err = a.Detect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, gpu.Fixture(gpu.VendorApple), rec)
}

func TestApp_Hardware_FailsWithoutTools(t *testing.T) {
	a := newTestApp(t, func(cfg *config.Config) {
		cfg.HardwareRetries = 1
		cfg.HardwareRetryDelay = 0
	})

	// On Linux the collector reads procfs and ghw, which work without the
	// mocked utilities; elsewhere sysctl is missing.
	info, err := a.Hardware(context.Background())
	if err == nil {
		require.NoError(t, info.Validate())
	}
}

func TestApp_RunRecoversPanic(t *testing.T) {
	a := newTestApp(t, nil)

	err := a.Run(context.Background(), func(context.Context) error { panic("boom") })

	require.Error(t, err)
	assert.Contains(t, err.Error(), "panic: boom")
}

func TestApp_ServeStdio(t *testing.T) {
	a := newTestApp(t, nil)
	in := strings.NewReader(`{"id":1,"cmd":"set_test_mode","args":{"enabled":true,"vendor":"nvidia"}}` + "\n")
	var out bytes.Buffer

	require.NoError(t, a.ServeStdio(context.Background(), in, &out))

	assert.Contains(t, out.String(), `"ok":true`)
	assert.True(t, a.Lifecycle().IsShuttingDown())
	assert.True(t, a.Container().GetModes().IsTestMode())
}

func TestApp_ServeWebSocket_BadAddr(t *testing.T) {
	a := newTestApp(t, nil)

	err := a.ServeWebSocket(context.Background(), "256.0.0.1:bad")
	assert.Error(t, err)
}
