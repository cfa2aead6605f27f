package cli

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/homewiseai/hwprobe/internal/config"
	"github.com/homewiseai/hwprobe/internal/errors"
	"github.com/homewiseai/hwprobe/internal/gpu"
)

func newTestParser() *Parser {
	return NewParser("hwprobe", "1.0.0", "2024-01-01T00:00:00Z", "abc1234def")
}

// ============================================================================
// Command Parsing Tests
// ============================================================================

func TestParseNoArgs(t *testing.T) {
	result, err := newTestParser().Parse([]string{})

	require.NoError(t, err)
	assert.True(t, result.ShowHelp)
	assert.Equal(t, CommandNone, result.Command)
}

func TestParseCommands(t *testing.T) {
	tests := []struct {
		arg  string
		want Command
	}{
		{"detect", CommandDetect},
		{"d", CommandDetect},
		{"gpu", CommandDetect},
		{"hardware", CommandHardware},
		{"hw", CommandHardware},
		{"serve", CommandServe},
		{"s", CommandServe},
		{"version", CommandVersion},
		{"v", CommandVersion},
	}

	for _, tt := range tests {
		t.Run(tt.arg, func(t *testing.T) {
			result, err := newTestParser().Parse([]string{tt.arg})
			require.NoError(t, err)
			assert.Equal(t, tt.want, result.Command)
			assert.False(t, result.ShowHelp)
		})
	}
}

func TestParseUnknownCommand(t *testing.T) {
	_, err := newTestParser().Parse([]string{"install"})

	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.Validation))
	assert.Contains(t, err.Error(), "unknown command: install")
}

func TestParseHelp(t *testing.T) {
	result, err := newTestParser().Parse([]string{"help", "serve"})
	require.NoError(t, err)
	assert.True(t, result.ShowHelp)
	assert.Equal(t, "serve", result.HelpCommand)

	result, err = newTestParser().Parse([]string{"detect", "--help"})
	require.NoError(t, err)
	assert.True(t, result.ShowHelp)
}

// ============================================================================
// Flag Parsing Tests
// ============================================================================

func TestParseGlobalFlags(t *testing.T) {
	result, err := newTestParser().Parse([]string{
		"-v", "--config", "/tmp/c.yaml", "--log-file", "/tmp/h.log",
		"--log-level", "debug", "--log-format", "json", "--no-color", "detect",
	})

	require.NoError(t, err)
	g := result.GlobalFlags
	assert.True(t, g.Verbose)
	assert.Equal(t, "/tmp/c.yaml", g.ConfigFile)
	assert.Equal(t, "/tmp/h.log", g.LogFile)
	assert.Equal(t, "debug", g.LogLevel)
	assert.Equal(t, "json", g.LogFormat)
	assert.True(t, g.NoColor)
}

func TestParseVerboseAndQuiet(t *testing.T) {
	_, err := newTestParser().Parse([]string{"-v", "-q", "detect"})

	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.Validation))
	assert.Contains(t, err.Error(), "cannot use --verbose and --quiet together")
}

func TestParseDetectFlags(t *testing.T) {
	result, err := newTestParser().Parse([]string{"detect", "--json", "--simulate", "Apple", "--simulate-error"})

	require.NoError(t, err)
	f := result.DetectFlags
	assert.True(t, f.JSON)
	assert.True(t, f.SimulateError)
	assert.True(t, f.WantsTestMode())
	assert.Equal(t, gpu.VendorApple, f.Vendor())
}

func TestParseDetectFlags_TestModeDefaultsToNone(t *testing.T) {
	result, err := newTestParser().Parse([]string{"detect", "--test-mode"})

	require.NoError(t, err)
	assert.True(t, result.DetectFlags.WantsTestMode())
	assert.Equal(t, gpu.VendorNone, result.DetectFlags.Vendor())
}

func TestParseCommandFlagErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"bad simulate vendor", []string{"detect", "--simulate", "amd"}, "unknown GPU vendor"},
		{"unknown detect flag", []string{"detect", "--brief"}, "invalid detect flags"},
		{"unknown hardware flag", []string{"hardware", "--yaml"}, "invalid hardware flags"},
		{"stdio with addr", []string{"serve", "--stdio", "--addr", ":1"}, "cannot use --stdio and --addr together"},
		{"unknown global flag", []string{"--dry-run", "detect"}, "invalid global flags"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newTestParser().Parse(tt.args)
			require.Error(t, err)
			assert.True(t, errors.IsCode(err, errors.Validation))
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestParseServeFlags(t *testing.T) {
	result, err := newTestParser().Parse([]string{"serve", "--stdio"})
	require.NoError(t, err)
	assert.True(t, result.ServeFlags.Stdio)

	result, err = newTestParser().Parse([]string{"serve", "--addr", "127.0.0.1:7878"})
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:7878", result.ServeFlags.Addr)
}

func TestGlobalFlags_Apply(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.LogLevel = "warn"

	(&GlobalFlags{}).Apply(cfg)
	assert.Equal(t, "warn", cfg.LogLevel)

	(&GlobalFlags{Quiet: true, NoColor: true, LogLevel: "error", LogFormat: "logfmt", LogFile: "x.log"}).Apply(cfg)
	assert.True(t, cfg.Quiet)
	assert.True(t, cfg.NoColor)
	assert.Equal(t, "error", cfg.LogLevel)
	assert.Equal(t, "logfmt", cfg.LogFormat)
	assert.Equal(t, "x.log", cfg.LogFile)
}

// ============================================================================
// Usage Tests
// ============================================================================

func TestUsage(t *testing.T) {
	usage := newTestParser().Usage()

	for _, info := range Commands() {
		assert.Contains(t, usage, info.Name)
	}
	assert.Contains(t, usage, "--log-format")
	assert.True(t, strings.HasPrefix(usage, "hwprobe - "))
}

func TestCommandUsage(t *testing.T) {
	p := newTestParser()

	assert.Contains(t, p.CommandUsage("serve"), "hwprobe serve [flags]")
	assert.Contains(t, p.CommandUsage("d"), "--simulate VENDOR")
	assert.Contains(t, p.CommandUsage("bogus"), "Unknown command: bogus")
}

func TestVersionString(t *testing.T) {
	v := newTestParser().VersionString()

	assert.Contains(t, v, "hwprobe version 1.0.0")
	assert.Contains(t, v, "Git commit: abc1234\n")
	assert.Contains(t, v, "Build time: 2024-01-01T00:00:00Z")

	bare := NewParser("hwprobe", "dev", "unknown", "").VersionString()
	assert.Equal(t, "hwprobe version dev\n", bare)
}

func TestCommand_String(t *testing.T) {
	for _, info := range Commands() {
		cmd := ParseCommand(info.Name)
		assert.True(t, cmd.IsValid())
		assert.Equal(t, info.Name, cmd.String())
		require.NotNil(t, GetCommandInfo(cmd))
	}
	assert.Nil(t, GetCommandInfo(CommandNone))
	assert.Equal(t, "", CommandNone.String())
}
