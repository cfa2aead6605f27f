package cli

import (
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/homewiseai/hwprobe/internal/constants"
	"github.com/homewiseai/hwprobe/internal/errors"
)

// ParseResult is a parsed command line. Only the flag group matching
// Command is populated.
type ParseResult struct {
	Command       Command
	GlobalFlags   GlobalFlags
	DetectFlags   DetectFlags
	HardwareFlags HardwareFlags
	ServeFlags    ServeFlags
	Args          []string

	// ShowHelp is set by -h, --help, a bare invocation or "help [command]".
	ShowHelp    bool
	HelpCommand string
}

// Parser handles command line argument parsing.
type Parser struct {
	programName string
	version     string
	buildTime   string
	gitCommit   string
}

// NewParser creates a new CLI parser with build information.
func NewParser(programName, version, buildTime, gitCommit string) *Parser {
	return &Parser{
		programName: programName,
		version:     version,
		buildTime:   buildTime,
		gitCommit:   gitCommit,
	}
}

// Parse parses command line arguments and returns a ParseResult.
// The args parameter should not include the program name (typically os.Args[1:]).
// Every returned error has the Validation code.
func (p *Parser) Parse(args []string) (*ParseResult, error) {
	const op = "cli.Parse"

	result := &ParseResult{}

	if len(args) == 0 {
		result.ShowHelp = true
		return result, nil
	}

	for _, arg := range args {
		if arg == "-h" || arg == "--help" || arg == "-help" {
			result.ShowHelp = true
			return result, nil
		}
	}

	// The flag package stops at the first non-flag argument.
	globalFs := p.createGlobalFlagSet(&result.GlobalFlags)
	if err := globalFs.Parse(args); err != nil {
		return nil, errors.Wrap(errors.Validation, "invalid global flags: "+err.Error(), err).WithOp(op)
	}

	remaining := globalFs.Args()
	if len(remaining) == 0 {
		result.ShowHelp = true
		return result, nil
	}

	if err := result.GlobalFlags.Validate(); err != nil {
		return nil, errors.Wrap(errors.Validation, err.Error(), err).WithOp(op)
	}

	cmdStr := remaining[0]
	result.Command = ParseCommand(cmdStr)
	if result.Command == CommandNone {
		return nil, errors.Newf(errors.Validation, "unknown command: %s", cmdStr).WithOp(op)
	}

	if err := p.parseCommandFlags(result, remaining[1:]); err != nil {
		return nil, errors.Wrap(errors.Validation, err.Error(), err).WithOp(op)
	}

	return result, nil
}

// globalShorthands maps long global flags to their one-letter aliases.
var globalShorthands = map[string]string{
	"verbose": "v",
	"quiet":   "q",
	"config":  "c",
}

func (p *Parser) createGlobalFlagSet(flags *GlobalFlags) *flag.FlagSet {
	fs := flag.NewFlagSet("global", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.BoolVar(&flags.Verbose, "verbose", false, "Enable debug logging")
	fs.BoolVar(&flags.Quiet, "quiet", false, "Only log errors")
	fs.StringVar(&flags.ConfigFile, "config", "", "Path to config file")
	fs.StringVar(&flags.LogFile, "log-file", "", "Path to log file")
	fs.StringVar(&flags.LogLevel, "log-level", "", "Log level (debug, info, warn, error)")
	fs.StringVar(&flags.LogFormat, "log-format", "", "Log format (text, json, logfmt)")
	fs.BoolVar(&flags.NoColor, "no-color", false, "Disable colored output")

	for long, short := range globalShorthands {
		f := fs.Lookup(long)
		fs.Var(f.Value, short, f.Usage)
	}
	return fs
}

func (p *Parser) parseCommandFlags(result *ParseResult, args []string) error {
	switch result.Command {
	case CommandDetect:
		return p.parseDetectFlags(result, args)
	case CommandHardware:
		return p.parseHardwareFlags(result, args)
	case CommandServe:
		return p.parseServeFlags(result, args)
	case CommandHelp:
		return p.parseHelpFlags(result, args)
	case CommandVersion:
		result.Args = args
		return nil
	}
	return nil
}

func (p *Parser) parseDetectFlags(result *ParseResult, args []string) error {
	fs := flag.NewFlagSet("detect", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.BoolVar(&result.DetectFlags.JSON, "json", false, "Output in JSON format")
	fs.BoolVar(&result.DetectFlags.TestMode, "test-mode", false, "Return a fixture instead of probing")
	fs.StringVar(&result.DetectFlags.Simulate, "simulate", "", "Fixture vendor for test mode")
	fs.BoolVar(&result.DetectFlags.SimulateError, "simulate-error", false, "Fail with a simulated error")

	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("invalid detect flags: %w", err)
	}
	if err := result.DetectFlags.Validate(); err != nil {
		return err
	}
	result.Args = fs.Args()
	return nil
}

func (p *Parser) parseHardwareFlags(result *ParseResult, args []string) error {
	fs := flag.NewFlagSet("hardware", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.BoolVar(&result.HardwareFlags.JSON, "json", false, "Output in JSON format")

	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("invalid hardware flags: %w", err)
	}
	result.Args = fs.Args()
	return nil
}

func (p *Parser) parseServeFlags(result *ParseResult, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.BoolVar(&result.ServeFlags.Stdio, "stdio", false, "Serve line-delimited JSON on stdio")
	fs.StringVar(&result.ServeFlags.Addr, "addr", "", "Websocket listen address")

	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("invalid serve flags: %w", err)
	}
	if result.ServeFlags.Stdio && result.ServeFlags.Addr != "" {
		return &FlagError{Flag: "stdio/addr", Message: "cannot use --stdio and --addr together"}
	}
	result.Args = fs.Args()
	return nil
}

func (p *Parser) parseHelpFlags(result *ParseResult, args []string) error {
	result.ShowHelp = true
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		result.HelpCommand = args[0]
	}
	return nil
}

// Usage returns the main usage string.
func (p *Parser) Usage() string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("%s - %s\n\n", p.programName, constants.AppDescription))
	b.WriteString("Usage:\n")
	b.WriteString(fmt.Sprintf("  %s [global flags] <command> [command flags]\n\n", p.programName))

	b.WriteString("Commands:\n")
	for _, cmd := range Commands() {
		b.WriteString(fmt.Sprintf("  %-12s %s\n", cmd.Name, cmd.Description))
	}

	b.WriteString("\nGlobal Flags:\n")
	p.createGlobalFlagSet(&GlobalFlags{}).VisitAll(func(f *flag.Flag) {
		if len(f.Name) == 1 {
			return
		}
		alias := "    "
		if short, ok := globalShorthands[f.Name]; ok {
			alias = "-" + short + ", "
		}
		b.WriteString(fmt.Sprintf("  %s--%-11s %s\n", alias, f.Name, f.Usage))
	})

	b.WriteString(fmt.Sprintf("\nUse \"%s help <command>\" for more information about a command.\n", p.programName))

	return b.String()
}

// CommandUsage returns the usage string for a specific command.
func (p *Parser) CommandUsage(cmd string) string {
	parsedCmd := ParseCommand(cmd)
	if parsedCmd == CommandNone {
		return fmt.Sprintf("Unknown command: %s\n\nRun '%s help' for usage.\n", cmd, p.programName)
	}

	info := GetCommandInfo(parsedCmd)
	if info == nil {
		return fmt.Sprintf("No help available for: %s\n", cmd)
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("%s\n\n", info.Description))
	b.WriteString(fmt.Sprintf("Usage:\n  %s\n\n", info.Usage))

	if info.LongDescription != "" {
		b.WriteString(info.LongDescription)
		b.WriteString("\n")
	}

	return b.String()
}

// VersionString returns formatted version information.
func (p *Parser) VersionString() string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("%s version %s\n", p.programName, p.version))

	if p.buildTime != "" && p.buildTime != "unknown" {
		b.WriteString(fmt.Sprintf("Build time: %s\n", p.buildTime))
	}

	if p.gitCommit != "" && p.gitCommit != "unknown" {
		commit := p.gitCommit
		if len(commit) > 7 {
			commit = commit[:7]
		}
		b.WriteString(fmt.Sprintf("Git commit: %s\n", commit))
	}

	return b.String()
}

// VersionInfo returns version components for structured output.
func (p *Parser) VersionInfo() map[string]string {
	return map[string]string{
		"version":   p.version,
		"buildTime": p.buildTime,
		"gitCommit": p.gitCommit,
	}
}
