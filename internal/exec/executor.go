package exec

import (
	"bytes"
	"context"
	stderrors "errors"
	"os/exec"
	"sync"
	"time"

	"github.com/homewiseai/hwprobe/internal/errors"
)

// DefaultMaxOutput caps how many bytes of stdout and stderr are kept per command.
const DefaultMaxOutput = 1 << 20

// Executor defines the interface for command execution.
// All implementations must be safe for concurrent use.
type Executor interface {
	// Execute runs a command and returns the result. Cancelling ctx kills
	// the child process.
	Execute(ctx context.Context, cmd string, args ...string) *Result

	// LookPath resolves cmd against PATH.
	LookPath(cmd string) (string, error)
}

// Options configures the executor behavior.
type Options struct {
	Timeout   time.Duration // Default timeout for commands (0 = no timeout)
	WorkDir   string        // Working directory for command execution
	Env       []string      // Environment variables to set
	MaxOutput int           // Per-stream capture limit in bytes (0 = DefaultMaxOutput)
}

// DefaultOptions returns sensible defaults for probe utilities.
func DefaultOptions() Options {
	return Options{
		Timeout:   30 * time.Second,
		MaxOutput: DefaultMaxOutput,
		// LC_ALL=C keeps decimal separators and vendor messages stable.
		Env: []string{"LC_ALL=C", "LANG=C"},
	}
}

// RealExecutor is the production implementation of Executor.
type RealExecutor struct {
	opts Options
	mu   sync.RWMutex
}

// NewExecutor creates a new real executor with the given options.
func NewExecutor(opts Options) *RealExecutor {
	return &RealExecutor{opts: opts}
}

// LookPath implements Executor.
func (e *RealExecutor) LookPath(cmd string) (string, error) {
	path, err := exec.LookPath(cmd)
	if err != nil {
		return "", errors.Wrapf(errors.ToolUnavailable, err, "%s not found in PATH", cmd).WithOp("exec.LookPath")
	}
	return path, nil
}

// Execute implements Executor.
func (e *RealExecutor) Execute(ctx context.Context, cmd string, args ...string) *Result {
	opts := e.Options()
	result := &Result{
		Command:   cmd,
		Args:      args,
		StartTime: time.Now(),
	}

	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	c := exec.CommandContext(ctx, cmd, args...)
	if opts.WorkDir != "" {
		c.Dir = opts.WorkDir
	}
	if len(opts.Env) > 0 {
		c.Env = append(c.Environ(), opts.Env...)
	}

	limit := opts.MaxOutput
	if limit <= 0 {
		limit = DefaultMaxOutput
	}
	stdout := &limitedBuffer{limit: limit}
	stderr := &limitedBuffer{limit: limit}
	c.Stdout = stdout
	c.Stderr = stderr

	err := c.Run()

	result.EndTime = time.Now()
	result.Duration = result.EndTime.Sub(result.StartTime)
	result.Stdout = stdout.Bytes()
	result.Stderr = stderr.Bytes()
	result.Truncated = stdout.truncated || stderr.truncated

	if err != nil {
		// Context errors win over exit errors because the process may have
		// been killed by the deadline.
		var exitErr *exec.ExitError
		switch {
		case stderrors.Is(ctx.Err(), context.DeadlineExceeded):
			result.Error = errors.Wrap(errors.Timeout, "command timed out", err)
			result.ExitCode = -1
		case stderrors.Is(ctx.Err(), context.Canceled):
			result.Error = errors.Wrap(errors.Cancelled, "command cancelled", err)
			result.ExitCode = -1
		case stderrors.As(err, &exitErr):
			result.ExitCode = exitErr.ExitCode()
		case stderrors.Is(err, exec.ErrNotFound):
			result.Error = errors.Wrapf(errors.ToolUnavailable, err, "%s not found", cmd)
			result.ExitCode = -1
		default:
			result.Error = errors.Wrap(errors.Execution, "command execution failed", err)
			result.ExitCode = -1
		}
	}

	return result
}

// Options returns the current executor options.
func (e *RealExecutor) Options() Options {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.opts
}

// SetTimeout updates the default timeout.
func (e *RealExecutor) SetTimeout(timeout time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.opts.Timeout = timeout
}

// limitedBuffer keeps at most limit bytes and silently discards the rest so
// that a chatty utility never blocks on a full pipe.
type limitedBuffer struct {
	buf       bytes.Buffer
	limit     int
	truncated bool
}

func (b *limitedBuffer) Write(p []byte) (int, error) {
	remaining := b.limit - b.buf.Len()
	if remaining <= 0 {
		b.truncated = len(p) > 0 || b.truncated
		return len(p), nil
	}
	if len(p) > remaining {
		b.buf.Write(p[:remaining])
		b.truncated = true
		return len(p), nil
	}
	return b.buf.Write(p)
}

func (b *limitedBuffer) Bytes() []byte {
	return b.buf.Bytes()
}

var _ Executor = (*RealExecutor)(nil)
