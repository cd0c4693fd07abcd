// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"io"
	"os"
	"strings"
)

// Version information (can be overridden at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Command represents the CLI command to execute.
type Command int

const (
	CmdTUI Command = iota
	CmdChat
	CmdDevServer
	CmdConfig
	CmdVersion
	CmdHelp
)

// String returns the command name as typed on the command line.
func (c Command) String() string {
	switch c {
	case CmdTUI:
		return "tui"
	case CmdChat:
		return "chat"
	case CmdDevServer:
		return "dev-server"
	case CmdConfig:
		return "config"
	case CmdVersion:
		return "version"
	default:
		return "help"
	}
}

// DefaultDevServerAddr is where dev-server listens without --addr.
const DefaultDevServerAddr = "127.0.0.1:8080"

// Args holds parsed CLI arguments.
type Args struct {
	// Global flags
	ConfigPath string
	Endpoint   string
	Provider   string
	Verbose    bool

	// Command-specific
	Subcommand string
	Addr       string
	// Unknown is set when the command word was not recognised
	Unknown string
	// Help is set by -h or --help after the command word
	Help bool

	// Raw args (remaining after the command word)
	Raw []string
}

const usageText = `chatium - terminal chat client for the chatium message store

Usage:
  chatium                        Start the TUI (line mode when stdin is not a terminal)
  chatium tui                    Start the TUI
  chatium chat                   Line-mode chat
  chatium dev-server [--addr A]  Run an in-memory message store (default %s)
  chatium config [show|path|init]
                                 Show, locate or create the config file
  chatium version                Show version
  chatium help                   Show this help

Global Flags:
  --config PATH      Config file (default ~/.chatium/config.toml)
  --endpoint URL     GraphQL endpoint (overrides config)
  --provider NAME    claude or openai (overrides config)
  -v, --verbose      Debug logging

Chat Commands (TUI and line mode):
  /clear             Clear the conversation (asks first)
  /provider [NAME]   Show or switch the provider

Environment:
  CHATIUM_ENDPOINT, CHATIUM_WS_ENDPOINT, CHATIUM_PROVIDER,
  CHATIUM_LOG_LEVEL, CHATIUM_LOG_FILE, CHATIUM_POLL_INTERVAL
  A .env file in the working directory is loaded first.

Examples:
  chatium dev-server &
  chatium --endpoint http://localhost:8080/graphql
  chatium chat --provider openai
  echo "Hello" | chatium chat

Version: %s
`

// PrintUsage writes the usage/help text.
func PrintUsage(w io.Writer) {
	fmt.Fprintf(w, usageText, DefaultDevServerAddr, Version)
}

// PrintVersion writes version information.
func PrintVersion(w io.Writer) {
	fmt.Fprintf(w, "chatium version %s\n", Version)
	fmt.Fprintf(w, "  Git commit: %s\n", GitCommit)
	fmt.Fprintf(w, "  Build date: %s\n", BuildDate)
}

// Parse parses os.Args.
func Parse() (Command, Args) {
	return ParseArgs(os.Args[1:])
}

// ParseArgs parses command-line arguments and returns the command and args.
// Global flags may appear anywhere.
func ParseArgs(argv []string) (Command, Args) {
	remaining, parsed := parseGlobalFlags(argv)

	if len(remaining) == 0 {
		return CmdTUI, parsed
	}

	cmd := strings.ToLower(remaining[0])
	remaining = remaining[1:]
	parsed.Raw = remaining
	parsed.Help = wantsHelp(remaining)

	switch cmd {
	case "tui", "chat", "config":
		if parsed.Help {
			return CmdHelp, parsed
		}
	}

	switch cmd {
	case "tui":
		return CmdTUI, parsed

	case "chat":
		return CmdChat, parsed

	case "dev-server", "devserver", "serve":
		parseDevServerArgs(&parsed, remaining)
		return CmdDevServer, parsed

	case "config":
		p := NewArgParser(remaining)
		parsed.Subcommand = p.SubcommandOrDefault("show")
		return CmdConfig, parsed

	case "version", "--version":
		return CmdVersion, parsed

	case "help", "-h", "--help":
		return CmdHelp, parsed

	default:
		parsed.Unknown = cmd
		return CmdHelp, parsed
	}
}

// parseGlobalFlags extracts global flags from args and returns remaining args.
func parseGlobalFlags(args []string) ([]string, Args) {
	var remaining []string
	var parsed Args

	// takeValue handles both "--flag value" and "--flag=value".
	takeValue := func(i *int, arg, name string) (string, bool) {
		if arg == name {
			if *i+1 < len(args) {
				*i++
				return args[*i], true
			}
			return "", true
		}
		if strings.HasPrefix(arg, name+"=") {
			return strings.TrimPrefix(arg, name+"="), true
		}
		return "", false
	}

	for i := 0; i < len(args); i++ {
		arg := args[i]

		if arg == "-v" || arg == "--verbose" {
			parsed.Verbose = true
			continue
		}
		if v, ok := takeValue(&i, arg, "--config"); ok {
			parsed.ConfigPath = v
			continue
		}
		if v, ok := takeValue(&i, arg, "--endpoint"); ok {
			parsed.Endpoint = v
			continue
		}
		if v, ok := takeValue(&i, arg, "--provider"); ok {
			parsed.Provider = v
			continue
		}
		remaining = append(remaining, arg)
	}

	return remaining, parsed
}

func wantsHelp(args []string) bool {
	for _, arg := range args {
		if arg == "-h" || arg == "--help" {
			return true
		}
	}
	return false
}

// parseDevServerArgs parses dev-server specific arguments.
func parseDevServerArgs(args *Args, remaining []string) {
	p := NewArgParser(remaining)
	args.Addr = p.FlagOrDefault("addr", DefaultDevServerAddr)
}
