package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"runtime/debug"
	"time"

	"github.com/homewiseai/hwprobe/internal/command"
	"github.com/homewiseai/hwprobe/internal/config"
	"github.com/homewiseai/hwprobe/internal/constants"
	"github.com/homewiseai/hwprobe/internal/errors"
	"github.com/homewiseai/hwprobe/internal/exec"
	"github.com/homewiseai/hwprobe/internal/gpu"
	"github.com/homewiseai/hwprobe/internal/gpu/probes"
	"github.com/homewiseai/hwprobe/internal/hardware"
	"github.com/homewiseai/hwprobe/internal/ipc"
	"github.com/homewiseai/hwprobe/internal/logging"
)

// App represents the main application with its dependencies and lifecycle.
type App struct {
	container *Container
	lifecycle *Lifecycle
	version   string
	buildTime string
	gitCommit string
	overrides func(*config.Config)
	logOutput io.Writer
	executor  exec.Executor
}

// Options configures the application.
type Options struct {
	Version         string
	BuildTime       string
	GitCommit       string
	ShutdownTimeout time.Duration

	// Overrides is applied after the config is loaded and before it is
	// validated. The CLI uses it for flags.
	Overrides func(*config.Config)

	// LogOutput replaces stderr as the console log destination.
	LogOutput io.Writer

	// Executor replaces the real command executor.
	Executor exec.Executor
}

// DefaultOptions returns sensible defaults.
func DefaultOptions() Options {
	return Options{
		Version:         "unknown",
		BuildTime:       "unknown",
		GitCommit:       "unknown",
		ShutdownTimeout: constants.ShutdownTimeout,
	}
}

// New creates a new application with the given options.
func New(opts Options) *App {
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = constants.ShutdownTimeout
	}
	return &App{
		container: NewContainer(),
		lifecycle: NewLifecycle(opts.ShutdownTimeout),
		version:   opts.Version,
		buildTime: opts.BuildTime,
		gitCommit: opts.GitCommit,
		overrides: opts.Overrides,
		logOutput: opts.LogOutput,
		executor:  opts.Executor,
	}
}

// Initialize sets up all application components in the correct order.
// The initialization order is:
// 1. Configuration
// 2. Logger
// 3. Command executor
// 4. GPU backends, mode controller and orchestrator
// 5. Host hardware collector
// 6. Command handler
func (a *App) Initialize(ctx context.Context, configPath string) error {
	const op = "app.Initialize"

	// 1. Load configuration
	cfg, err := a.loadConfig(configPath)
	if err != nil {
		return errors.Wrap(errors.Configuration, "failed to load config", err).WithOp(op)
	}
	a.container.SetConfig(cfg)

	// 2. Initialize logger
	logger, err := a.initLogger(cfg)
	if err != nil {
		return errors.Wrap(errors.Configuration, "failed to initialize logger", err).WithOp(op)
	}
	a.container.SetLogger(logger)

	logger.Debug("starting application",
		"version", a.version,
		"build_time", a.buildTime,
		"git_commit", a.gitCommit,
	)

	// 3. Initialize executor
	executor := a.executor
	if executor == nil {
		execOpts := exec.DefaultOptions()
		if cfg.CommandTimeout > 0 {
			execOpts.Timeout = cfg.CommandTimeout
		}
		executor = exec.NewExecutor(execOpts)
	}
	a.container.SetExecutor(executor)

	// 4. Detection
	backends, err := probes.Build(cfg.Backends, executor, logger.WithPrefix("probe"))
	if err != nil {
		return err
	}
	modes := gpu.NewModes(logger.WithPrefix("modes"))
	detector := gpu.NewOrchestrator(
		gpu.WithBackends(backends...),
		gpu.WithModes(modes),
		gpu.WithCache(gpu.NewResultCache()),
		gpu.WithLogger(logger.WithPrefix("gpu")),
		gpu.WithProbeTimeout(cfg.ProbeTimeout),
		gpu.WithSingleFlight(cfg.SingleFlight),
	)
	a.container.SetDetection(modes, detector)

	// 5. Host hardware
	hwLogger := logger.WithPrefix("hardware")
	collector := hardware.NewCollector(
		hardware.NewSystemSource(executor, hwLogger),
		hardware.WithRetries(cfg.HardwareRetries),
		hardware.WithRetryDelay(cfg.HardwareRetryDelay),
		hardware.WithLogger(hwLogger),
	)
	a.container.SetHardware(collector)

	// 6. Command boundary
	a.container.SetCommands(command.NewHandler(detector, modes, collector,
		command.WithTimeout(cfg.CommandTimeout),
		command.WithLogger(logger.WithPrefix("command")),
	))

	if err := a.container.Validate(); err != nil {
		return err
	}

	logger.Debug("application initialized", "backends", detector.BackendNames())
	return nil
}

// Run executes fn with panic recovery.
func (a *App) Run(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = a.handlePanic(r)
		}
	}()
	return fn(ctx)
}

// Detect runs one GPU detection.
func (a *App) Detect(ctx context.Context) (*gpu.CapabilityRecord, error) {
	var rec *gpu.CapabilityRecord
	err := a.Run(ctx, func(ctx context.Context) error {
		var err error
		rec, err = a.container.GetDetector().DetectGPU(ctx)
		return err
	})
	return rec, err
}

// Hardware collects host info.
func (a *App) Hardware(ctx context.Context) (*hardware.Info, error) {
	var info *hardware.Info
	err := a.Run(ctx, func(ctx context.Context) error {
		var err error
		info, err = a.container.GetHardware().Collect(ctx)
		return err
	})
	return info, err
}

// ServeStdio answers line-delimited requests on in/out until in closes or a
// shutdown signal arrives.
func (a *App) ServeStdio(ctx context.Context, in io.Reader, out io.Writer) error {
	ctx, stop := a.lifecycle.Context(ctx)
	defer stop()

	logger := a.container.GetLogger().WithPrefix("stdio")
	server := ipc.NewStdioServer(a.container.GetCommands(), in, out, logger)
	logger.Info("serving commands on stdio")

	err := a.Run(ctx, server.Serve)
	if shutdownErr := a.Shutdown(); err == nil {
		err = shutdownErr
	}
	return err
}

// ServeWebSocket serves the command boundary on addr until a shutdown
// signal arrives. An empty addr uses the configured listen address.
func (a *App) ServeWebSocket(ctx context.Context, addr string) error {
	if addr == "" {
		addr = a.container.GetConfig().ListenAddr
	}
	ctx, stop := a.lifecycle.Context(ctx)
	defer stop()

	server := ipc.NewWSServer(a.container.GetCommands(), addr, a.container.GetLogger().WithPrefix("ws"))

	err := a.Run(ctx, server.ListenAndServe)
	if shutdownErr := a.Shutdown(); err == nil {
		err = shutdownErr
	}
	return err
}

// Shutdown gracefully shuts down the application.
func (a *App) Shutdown() error {
	if logger := a.container.GetLogger(); logger != nil {
		logger.Debug("shutting down")
	}
	return a.lifecycle.Shutdown()
}

// Container returns the dependency container.
func (a *App) Container() *Container {
	return a.container
}

// Lifecycle returns the lifecycle manager.
func (a *App) Lifecycle() *Lifecycle {
	return a.lifecycle
}

// Version returns the application version.
func (a *App) Version() string {
	return a.version
}

func (a *App) loadConfig(path string) (*config.Config, error) {
	cfg, err := config.NewLoader(path).Load()
	if err != nil {
		return nil, err
	}
	if a.overrides != nil {
		a.overrides(cfg)
	}
	if err := config.NewValidator().ValidateOrError(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (a *App) initLogger(cfg *config.Config) (logging.Logger, error) {
	level := logging.ParseLevel(cfg.LogLevel)
	switch {
	case cfg.IsSilent():
		level = logging.LevelError
	case cfg.IsVerbose():
		level = logging.LevelDebug
	}

	opts := logging.DefaultOptions()
	opts.Level = level
	opts.Format = logging.ParseFormat(cfg.LogFormat)
	opts.NoColor = cfg.NoColor
	if a.logOutput != nil {
		opts.Output = a.logOutput
	}
	console := logging.New(opts)

	if cfg.LogFile == "" {
		return console, nil
	}

	file, closer, err := logging.NewFileLogger(cfg.LogFile, logging.LevelDebug)
	if err != nil {
		return nil, err
	}
	a.lifecycle.OnClose(closer)
	return logging.NewMultiLogger(console, file), nil
}

// handlePanic handles a recovered panic and returns an error.
// It logs the panic with a stack trace if a logger is available.
func (a *App) handlePanic(r interface{}) error {
	stack := debug.Stack()
	logger := a.container.GetLogger()

	if logger != nil {
		logger.Error("panic recovered",
			"panic", fmt.Sprintf("%v", r),
			"stack", string(stack),
		)
	} else {
		fmt.Fprintf(os.Stderr, "PANIC: %v\n%s\n", r, stack)
	}

	return errors.Newf(errors.Unknown, "panic: %v", r)
}
