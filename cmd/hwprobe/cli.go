package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"

	"github.com/homewiseai/hwprobe/internal/app"
	"github.com/homewiseai/hwprobe/internal/cli"
	"github.com/homewiseai/hwprobe/internal/config"
	"github.com/homewiseai/hwprobe/internal/constants"
	"github.com/homewiseai/hwprobe/internal/errors"
	"github.com/homewiseai/hwprobe/internal/exec"
	"github.com/homewiseai/hwprobe/internal/gpu"
	"github.com/homewiseai/hwprobe/internal/ui"
	"github.com/homewiseai/hwprobe/internal/ui/theme"
)

// CLI encapsulates the command-line interface for hwprobe.
type CLI struct {
	parser *cli.Parser
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	// executor replaces the real executor in tests.
	executor exec.Executor
	// interactive forces the spinner view on or off; nil detects a TTY.
	interactive *bool
	// app is the application of the last Run that got past parsing.
	app *app.App
}

// NewCLI creates a new CLI instance.
func NewCLI(stdin io.Reader, stdout, stderr io.Writer) *CLI {
	return &CLI{
		parser: cli.NewParser(constants.AppName, Version, BuildTime, GitCommit),
		stdin:  stdin,
		stdout: stdout,
		stderr: stderr,
	}
}

// Run parses arguments and executes the appropriate command.
// It returns an exit code suitable for os.Exit().
func (c *CLI) Run(ctx context.Context, args []string) int {
	result, err := c.parser.Parse(args)
	if err != nil {
		fmt.Fprintf(c.stderr, "Error: %v\n", errors.UserMessage(err))
		fmt.Fprintf(c.stderr, "Run '%s help' for usage.\n", constants.AppName)
		return constants.ExitValidation.Int()
	}

	if result.ShowHelp {
		return c.showHelp(result)
	}
	if result.Command == cli.CommandVersion {
		fmt.Fprint(c.stdout, c.parser.VersionString())
		return constants.ExitSuccess.Int()
	}

	application, err := c.initApp(ctx, result.GlobalFlags)
	if err != nil {
		fmt.Fprintf(c.stderr, "Error: %v\n", err)
		return constants.ExitValidation.Int()
	}
	c.app = application
	defer func() {
		if err := application.Shutdown(); err != nil {
			fmt.Fprintf(c.stderr, "Warning: shutdown: %v\n", err)
		}
	}()
	styles := theme.NewStyles(application.Container().GetConfig().NoColor)

	switch result.Command {
	case cli.CommandDetect:
		return c.cmdDetect(ctx, application, styles, result.DetectFlags)
	case cli.CommandHardware:
		return c.cmdHardware(ctx, application, styles, result.HardwareFlags)
	case cli.CommandServe:
		return c.cmdServe(ctx, application, result.ServeFlags)
	default:
		fmt.Fprint(c.stdout, c.parser.Usage())
		return constants.ExitSuccess.Int()
	}
}

func (c *CLI) initApp(ctx context.Context, flags cli.GlobalFlags) (*app.App, error) {
	configPath := flags.ConfigFile
	if configPath == "" {
		configPath = config.DefaultConfig().ConfigPath()
	}

	a := app.New(app.Options{
		Version:   Version,
		BuildTime: BuildTime,
		GitCommit: GitCommit,
		Overrides: flags.Apply,
		LogOutput: c.stderr,
		Executor:  c.executor,
	})
	if err := a.Initialize(ctx, configPath); err != nil {
		return nil, err
	}
	return a, nil
}

// showHelp displays help information and returns an exit code.
func (c *CLI) showHelp(result *cli.ParseResult) int {
	if result.HelpCommand != "" {
		fmt.Fprint(c.stdout, c.parser.CommandUsage(result.HelpCommand))
	} else {
		fmt.Fprint(c.stdout, c.parser.Usage())
	}
	return constants.ExitSuccess.Int()
}

func (c *CLI) cmdDetect(ctx context.Context, a *app.App, styles theme.Styles, flags cli.DetectFlags) int {
	modes := a.Container().GetModes()
	if flags.WantsTestMode() {
		if err := modes.EnterTestMode(flags.Vendor()); err != nil {
			return c.fail(styles, err, constants.ExitValidation)
		}
	}
	if flags.SimulateError {
		modes.SetErrorSimulation(true)
	}

	var (
		rec *gpu.CapabilityRecord
		err error
	)
	if !flags.JSON && c.isInteractive() {
		rec, err = ui.RunDetect(ctx, a.Container().GetDetector(), styles, c.stdin, c.stdout)
		if err != nil {
			if errors.IsCode(err, errors.Cancelled) {
				return constants.ExitUserAbort.Int()
			}
			// The view already rendered the failure.
			return constants.ExitDetection.Int()
		}
		return constants.ExitSuccess.Int()
	}

	rec, err = a.Detect(ctx)
	if err != nil {
		return c.fail(styles, err, constants.ExitDetection)
	}
	if flags.JSON {
		return c.printJSON(rec)
	}
	fmt.Fprintln(c.stdout, ui.GPUPanel(styles, rec))
	return constants.ExitSuccess.Int()
}

func (c *CLI) cmdHardware(ctx context.Context, a *app.App, styles theme.Styles, flags cli.HardwareFlags) int {
	info, err := a.Hardware(ctx)
	if err != nil {
		return c.fail(styles, err, constants.ExitError)
	}
	if flags.JSON {
		return c.printJSON(info)
	}
	fmt.Fprintln(c.stdout, ui.HardwarePanel(styles, info))
	return constants.ExitSuccess.Int()
}

func (c *CLI) cmdServe(ctx context.Context, a *app.App, flags cli.ServeFlags) int {
	var err error
	if flags.Stdio {
		err = a.ServeStdio(ctx, c.stdin, c.stdout)
	} else {
		err = a.ServeWebSocket(ctx, flags.Addr)
	}
	if err != nil {
		fmt.Fprintf(c.stderr, "Error: %v\n", err)
		return constants.ExitError.Int()
	}
	return constants.ExitSuccess.Int()
}

func (c *CLI) printJSON(v interface{}) int {
	enc := json.NewEncoder(c.stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(c.stderr, "Error: %v\n", err)
		return constants.ExitError.Int()
	}
	return constants.ExitSuccess.Int()
}

func (c *CLI) fail(styles theme.Styles, err error, code constants.ExitCode) int {
	fmt.Fprintln(c.stderr, ui.ErrorLine(styles, err))
	return code.Int()
}

func (c *CLI) isInteractive() bool {
	if c.interactive != nil {
		return *c.interactive
	}
	f, ok := c.stdout.(*os.File)
	return ok && isatty.IsTerminal(f.Fd())
}
