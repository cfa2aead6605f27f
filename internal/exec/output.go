// Package exec runs the external utilities that hardware probes depend on.
// It captures bounded output, maps start failures and deadlines onto the
// hwprobe error codes, and ships a mock for tests.
package exec

import (
	"strings"
	"time"
)

// Result represents the result of command execution.
type Result struct {
	Command   string        // The command that was executed
	Args      []string      // The arguments passed to the command
	Stdout    []byte        // Captured standard output, possibly truncated
	Stderr    []byte        // Captured standard error, possibly truncated
	ExitCode  int           // Exit code of the process (0 = success)
	Duration  time.Duration // How long the command took to run
	Error     error         // Error if the command failed to execute
	Truncated bool          // Output exceeded the executor's capture limit
	StartTime time.Time     // When the command started
	EndTime   time.Time     // When the command finished
}

// Success returns true if the command exited successfully (exit code 0 and no error).
func (r *Result) Success() bool {
	return r.ExitCode == 0 && r.Error == nil
}

// Failed returns true if the command failed (non-zero exit code or error).
func (r *Result) Failed() bool {
	return !r.Success()
}

// StdoutString returns stdout as a string.
func (r *Result) StdoutString() string {
	return string(r.Stdout)
}

// StderrString returns stderr as a string.
func (r *Result) StderrString() string {
	return string(r.Stderr)
}

// CombinedString returns stdout followed by stderr.
func (r *Result) CombinedString() string {
	return string(r.Stdout) + string(r.Stderr)
}

// StdoutLines returns the non-empty trimmed lines of stdout.
func (r *Result) StdoutLines() []string {
	lines := make([]string, 0)
	for _, line := range strings.Split(r.StdoutString(), "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

// FirstLine returns the first non-empty line of stdout, or "".
func (r *Result) FirstLine() string {
	lines := r.StdoutLines()
	if len(lines) == 0 {
		return ""
	}
	return lines[0]
}
