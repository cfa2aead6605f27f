package cli

// Command represents a CLI command type.
type Command int

const (
	// CommandNone represents no command or an unrecognized command.
	CommandNone Command = iota

	// CommandDetect runs one GPU detection.
	CommandDetect

	// CommandHardware prints host CPU and memory facts.
	CommandHardware

	// CommandServe answers commands over stdio or a websocket.
	CommandServe

	// CommandVersion represents the version command for displaying build information.
	CommandVersion

	// CommandHelp represents the help command for showing usage information.
	CommandHelp
)

// String returns the command name as a string.
func (c Command) String() string {
	switch c {
	case CommandDetect:
		return "detect"
	case CommandHardware:
		return "hardware"
	case CommandServe:
		return "serve"
	case CommandVersion:
		return "version"
	case CommandHelp:
		return "help"
	default:
		return ""
	}
}

// IsValid returns true if the command is a recognized command.
func (c Command) IsValid() bool {
	return c > CommandNone && c <= CommandHelp
}

// CommandInfo holds metadata about a command.
type CommandInfo struct {
	// Name is the primary command name.
	Name string

	// Aliases are alternative names for the command.
	Aliases []string

	// Description is a brief description of what the command does.
	Description string

	// Usage shows how to invoke the command.
	Usage string

	// LongDescription provides detailed help text for the command.
	LongDescription string
}

// Commands returns all available commands with their metadata.
func Commands() []CommandInfo {
	return []CommandInfo{
		{
			Name:        "detect",
			Aliases:     []string{"d", "gpu"},
			Description: "Detect the GPU and report its capabilities",
			Usage:       "hwprobe detect [flags]",
			LongDescription: `Detect the compute accelerator of this host.

Backends are tried in the configured order (nvidia, then apple by default).
When none succeeds the result is the "none" record with 0 MiB of memory.

Flags:
  --json              Print the capability record as JSON
  --test-mode         Return a fixture instead of probing hardware
  --simulate VENDOR   Fixture vendor for test mode (nvidia, apple, none)
  --simulate-error    Fail the detection with a simulated error

Examples:
  hwprobe detect                      Show the detected GPU
  hwprobe detect --json               Output as JSON for scripting
  hwprobe detect --simulate apple     Show the Apple Silicon fixture`,
		},
		{
			Name:        "hardware",
			Aliases:     []string{"hw"},
			Description: "Show host CPU and memory information",
			Usage:       "hwprobe hardware [flags]",
			LongDescription: `Show host CPU and memory information.

Readings are validated and retried on failure. Memory is reported in KiB
in JSON output.

Flags:
  --json    Print the host information as JSON`,
		},
		{
			Name:        "serve",
			Aliases:     []string{"s"},
			Description: "Answer detection commands over stdio or a websocket",
			Usage:       "hwprobe serve [flags]",
			LongDescription: `Answer detection commands until interrupted.

Each request is one JSON object {"id","cmd","args"}; each response is
{"id","ok","result"|"error"}. Commands: detect_gpu, get_hardware_info,
set_test_mode, is_test_mode, set_simulated_backend, simulate_error,
refresh_gpu.

Flags:
  --stdio        Read requests from stdin, one per line
  --addr ADDR    Websocket listen address (default from config)

Examples:
  hwprobe serve --stdio
  hwprobe serve --addr 127.0.0.1:7878`,
		},
		{
			Name:        "version",
			Aliases:     []string{"v"},
			Description: "Show version information",
			Usage:       "hwprobe version",
			LongDescription: `Display version information about hwprobe.

Shows the version number, build time, and git commit hash.`,
		},
		{
			Name:        "help",
			Aliases:     []string{"h"},
			Description: "Show help for a command",
			Usage:       "hwprobe help [command]",
			LongDescription: `Display help information.

When called without arguments, shows general help and available commands.
When called with a command name, shows detailed help for that command.

Examples:
  hwprobe help          Show general help
  hwprobe help serve    Show help for the serve command`,
		},
	}
}

// GetCommandInfo returns the CommandInfo for a given command.
// Returns nil if the command is not found.
func GetCommandInfo(cmd Command) *CommandInfo {
	if !cmd.IsValid() {
		return nil
	}

	cmds := Commands()
	for i := range cmds {
		if cmds[i].Name == cmd.String() {
			return &cmds[i]
		}
	}
	return nil
}

// ParseCommand parses a string into a Command.
// It recognizes both primary command names and aliases.
func ParseCommand(s string) Command {
	for _, info := range Commands() {
		if s == info.Name {
			return commandFromName(info.Name)
		}
		for _, alias := range info.Aliases {
			if s == alias {
				return commandFromName(info.Name)
			}
		}
	}
	return CommandNone
}

func commandFromName(name string) Command {
	switch name {
	case "detect":
		return CommandDetect
	case "hardware":
		return CommandHardware
	case "serve":
		return CommandServe
	case "version":
		return CommandVersion
	case "help":
		return CommandHelp
	default:
		return CommandNone
	}
}
