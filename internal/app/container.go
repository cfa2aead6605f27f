// Package app wires configuration, logging, detection and the command
// boundary into a runnable hwprobe instance.
package app

import (
	"sync"

	"github.com/homewiseai/hwprobe/internal/command"
	"github.com/homewiseai/hwprobe/internal/config"
	"github.com/homewiseai/hwprobe/internal/errors"
	"github.com/homewiseai/hwprobe/internal/exec"
	"github.com/homewiseai/hwprobe/internal/gpu"
	"github.com/homewiseai/hwprobe/internal/hardware"
	"github.com/homewiseai/hwprobe/internal/logging"
)

// Container holds all application dependencies.
// Access is guarded so transports may read it while the app initializes.
type Container struct {
	mu       sync.RWMutex
	Config   *config.Config
	Logger   logging.Logger
	Executor exec.Executor
	Modes    *gpu.Modes
	Detector *gpu.Orchestrator
	Hardware *hardware.Collector
	Commands *command.Handler
}

// NewContainer creates a new dependency container.
func NewContainer() *Container {
	return &Container{}
}

// SetConfig sets the configuration.
func (c *Container) SetConfig(cfg *config.Config) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Config = cfg
}

// SetLogger sets the logger.
func (c *Container) SetLogger(l logging.Logger) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Logger = l
}

// SetExecutor sets the command executor.
func (c *Container) SetExecutor(e exec.Executor) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Executor = e
}

// SetDetection sets the mode controller and the orchestrator sharing it.
func (c *Container) SetDetection(modes *gpu.Modes, detector *gpu.Orchestrator) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Modes = modes
	c.Detector = detector
}

// SetHardware sets the host hardware collector.
func (c *Container) SetHardware(h *hardware.Collector) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Hardware = h
}

// SetCommands sets the command handler.
func (c *Container) SetCommands(h *command.Handler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Commands = h
}

// GetConfig returns the configuration.
func (c *Container) GetConfig() *config.Config {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.Config
}

// GetLogger returns the logger.
func (c *Container) GetLogger() logging.Logger {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.Logger
}

// GetExecutor returns the command executor.
func (c *Container) GetExecutor() exec.Executor {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.Executor
}

// GetModes returns the mode controller.
func (c *Container) GetModes() *gpu.Modes {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.Modes
}

// GetDetector returns the GPU orchestrator.
func (c *Container) GetDetector() *gpu.Orchestrator {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.Detector
}

// GetHardware returns the host hardware collector.
func (c *Container) GetHardware() *hardware.Collector {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.Hardware
}

// GetCommands returns the command handler.
func (c *Container) GetCommands() *command.Handler {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.Commands
}

// Validate checks that all required dependencies are set.
func (c *Container) Validate() error {
	const op = "app.Validate"

	c.mu.RLock()
	defer c.mu.RUnlock()

	switch {
	case c.Config == nil:
		return errors.New(errors.Configuration, "config not initialized").WithOp(op)
	case c.Logger == nil:
		return errors.New(errors.Configuration, "logger not initialized").WithOp(op)
	case c.Detector == nil || c.Modes == nil:
		return errors.New(errors.Configuration, "detector not initialized").WithOp(op)
	case c.Commands == nil:
		return errors.New(errors.Configuration, "command handler not initialized").WithOp(op)
	}
	// The hardware collector is optional; get_hardware_info then fails.
	return nil
}
