package exec

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/homewiseai/hwprobe/internal/errors"
)

// HandlerFunc computes a mock response at call time. It receives the
// caller's context so tests can model utilities that hang until killed.
type HandlerFunc func(ctx context.Context, args []string) *Result

// MockExecutor is a test implementation of Executor that records calls
// and returns pre-configured responses. It is safe for concurrent use.
//
// Responses are looked up by the full command line ("cmd arg1 arg2") first
// and by the bare command name second.
type MockExecutor struct {
	mu            sync.Mutex
	responses     map[string]*Result
	handlers      map[string]HandlerFunc
	missing       map[string]bool
	calls         []MockCall
	defaultResult *Result
}

// MockCall records a call to the mock executor.
type MockCall struct {
	Command string   // The command that was called
	Args    []string // The arguments passed
}

// NewMockExecutor creates a new mock executor.
func NewMockExecutor() *MockExecutor {
	return &MockExecutor{
		responses: make(map[string]*Result),
		handlers:  make(map[string]HandlerFunc),
		missing:   make(map[string]bool),
	}
}

// SetResponse sets a canned response for a command name.
func (m *MockExecutor) SetResponse(cmd string, result *Result) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[cmd] = result
}

// SetResponseFor sets a canned response for an exact command line.
func (m *MockExecutor) SetResponseFor(cmd string, args []string, result *Result) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[commandKey(cmd, args)] = result
}

// SetHandler installs a function that computes the response for a command name.
// Handlers take precedence over canned responses.
func (m *MockExecutor) SetHandler(cmd string, fn HandlerFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[cmd] = fn
}

// SetDefaultResponse sets the default response for commands without a specific response.
func (m *MockExecutor) SetDefaultResponse(result *Result) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.defaultResult = result
}

// SetMissing makes LookPath fail for cmd, and Execute return a ToolUnavailable error.
func (m *MockExecutor) SetMissing(cmd string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.missing[cmd] = true
}

// Calls returns a copy of all recorded calls.
func (m *MockExecutor) Calls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]MockCall{}, m.calls...)
}

// CallCount returns the number of calls made to the mock.
func (m *MockExecutor) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// Reset clears all recorded calls but keeps responses.
func (m *MockExecutor) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
}

// WasCalled returns true if the given command was called.
func (m *MockExecutor) WasCalled(cmd string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, call := range m.calls {
		if call.Command == cmd {
			return true
		}
	}
	return false
}

// WasCalledWith returns true if the given command was called with the specified args.
func (m *MockExecutor) WasCalledWith(cmd string, args ...string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := commandKey(cmd, args)
	for _, call := range m.calls {
		if commandKey(call.Command, call.Args) == key {
			return true
		}
	}
	return false
}

// LookPath implements Executor.
func (m *MockExecutor) LookPath(cmd string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.missing[cmd] {
		return "", errors.Newf(errors.ToolUnavailable, "%s not found in PATH", cmd).WithOp("exec.LookPath")
	}
	return "/usr/bin/" + cmd, nil
}

// Execute implements Executor.
func (m *MockExecutor) Execute(ctx context.Context, cmd string, args ...string) *Result {
	m.mu.Lock()
	m.calls = append(m.calls, MockCall{Command: cmd, Args: args})
	handler := m.handlers[cmd]
	canned := m.lookup(cmd, args)
	missing := m.missing[cmd]
	m.mu.Unlock()

	// Handlers run without the lock so they may block on ctx.
	if handler != nil {
		result := handler(ctx, args)
		result.Command = cmd
		result.Args = args
		return result
	}

	if missing {
		result := ErrorResult(errors.Newf(errors.ToolUnavailable, "%s not found", cmd))
		result.Command = cmd
		result.Args = args
		return result
	}

	if canned != nil {
		copied := *canned
		copied.Command = cmd
		copied.Args = args
		return &copied
	}

	now := time.Now()
	return &Result{
		Command:   cmd,
		Args:      args,
		StartTime: now,
		EndTime:   now,
	}
}

// lookup must be called with m.mu held.
func (m *MockExecutor) lookup(cmd string, args []string) *Result {
	if result, ok := m.responses[commandKey(cmd, args)]; ok {
		return result
	}
	if result, ok := m.responses[cmd]; ok {
		return result
	}
	return m.defaultResult
}

func commandKey(cmd string, args []string) string {
	if len(args) == 0 {
		return cmd
	}
	return cmd + " " + strings.Join(args, " ")
}

// SuccessResult creates a successful result with the given stdout.
func SuccessResult(stdout string) *Result {
	now := time.Now()
	return &Result{
		ExitCode:  0,
		Stdout:    []byte(stdout),
		StartTime: now,
		EndTime:   now,
	}
}

// FailureResult creates a failed result with the given exit code and output.
// Vendor utilities such as nvidia-smi report errors on stdout, so the
// message is placed on both streams.
func FailureResult(exitCode int, output string) *Result {
	now := time.Now()
	return &Result{
		ExitCode:  exitCode,
		Stdout:    []byte(output),
		Stderr:    []byte(output),
		StartTime: now,
		EndTime:   now,
	}
}

// ErrorResult creates a result with an execution error.
func ErrorResult(err error) *Result {
	now := time.Now()
	return &Result{
		ExitCode:  -1,
		Error:     err,
		StartTime: now,
		EndTime:   now,
	}
}

// BlockingHandler returns a handler that waits until ctx is done and then
// reports a timeout, like a hung utility killed by its deadline.
func BlockingHandler() HandlerFunc {
	return func(ctx context.Context, args []string) *Result {
		<-ctx.Done()
		return ErrorResult(errors.Wrap(errors.Timeout, "command timed out", ctx.Err()))
	}
}

var _ Executor = (*MockExecutor)(nil)
