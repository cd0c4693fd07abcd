// chatium - a terminal chat client for a GraphQL message store.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/jeranaias/chatium-tui/internal/cli"
	"github.com/jeranaias/chatium-tui/internal/config"
	"github.com/jeranaias/chatium-tui/internal/conversation"
	"github.com/jeranaias/chatium-tui/internal/logging"
	"github.com/jeranaias/chatium-tui/internal/model"
	"github.com/jeranaias/chatium-tui/internal/store"
	"github.com/jeranaias/chatium-tui/internal/ui/chat"
	"github.com/jeranaias/chatium-tui/internal/ui/components"
	"github.com/jeranaias/chatium-tui/internal/ui/styles"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// configReloadDebounce coalesces editor save bursts.
const configReloadDebounce = 250 * time.Millisecond

func init() {
	// Sync version info with cli package
	cli.Version = Version
	cli.GitCommit = GitCommit
	cli.BuildDate = BuildDate
}

func main() {
	os.Exit(run())
}

func run() int {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	cmd, args := cli.Parse()

	switch cmd {
	case cli.CmdVersion:
		cli.PrintVersion(os.Stdout)
		return cli.ExitSuccess
	case cli.CmdHelp:
		if args.Unknown != "" {
			fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", args.Unknown)
			cli.PrintUsage(os.Stderr)
			return cli.ExitUsageError
		}
		cli.PrintUsage(os.Stdout)
		return cli.ExitSuccess
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(cmd, args)
	if err != nil {
		cli.DisplayError(os.Stderr, err)
		return cli.ExitCode(err)
	}
	defer a.logger.Sync() //nolint:errcheck

	switch cmd {
	case cli.CmdConfig:
		err = cli.HandleConfig(os.Stdout, args, a.cfg, a.cfgPath)
	case cli.CmdDevServer:
		err = cli.HandleDevServer(ctx, os.Stdout, args, a.logger)
	case cli.CmdChat:
		err = a.runChat(ctx)
	default:
		// USABILITY: pipes and redirected output get line mode
		if cli.CanRunTUI() {
			err = a.runTUI(ctx)
		} else {
			err = a.runChat(ctx)
		}
	}

	if err != nil {
		a.logger.Error("command failed", zap.Stringer("command", cmd), zap.Error(err))
		cli.DisplayError(os.Stderr, err)
	}
	return cli.ExitCode(err)
}

// =============================================================================
// STARTUP
// =============================================================================

// app holds what every command shares.
type app struct {
	cfg     *config.Config
	cfgPath string
	logger  *zap.Logger
}

func newApp(cmd cli.Command, args cli.Args) (*app, error) {
	path := args.ConfigPath
	if path == "" {
		if p, err := config.ConfigPath(); err == nil {
			path = p
		}
	}

	cfg, err := config.LoadFromPath(path)
	if err != nil {
		return nil, err
	}

	// CLI flags override file and environment.
	if args.Endpoint != "" {
		cfg.Server.Endpoint = args.Endpoint
	}
	if args.Provider != "" {
		p, err := model.ParseProvider(args.Provider)
		if err != nil {
			return nil, &cli.UsageError{Reason: err.Error()}
		}
		cfg.Chat.Provider = string(p)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	logFile := cfg.LogPath()
	if cmd == cli.CmdDevServer && cfg.Log.File == "" {
		logFile = "-"
	}
	logger, err := logging.NewOrNop(logging.Options{
		Level:   cfg.Log.Level,
		File:    logFile,
		Verbose: args.Verbose,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s logging disabled: %v\n", cli.WarningStyle.Render("[Warning]"), err)
	}
	logger.Info("starting",
		zap.String("version", Version),
		zap.Stringer("command", cmd),
		zap.String("config", path),
		zap.String("endpoint", cfg.Server.Endpoint))

	return &app{cfg: cfg, cfgPath: path, logger: logger}, nil
}

// newView connects a conversation view to the configured store.
func (a *app) newView() (*conversation.View, error) {
	client, err := store.New(store.Options{
		Endpoint:      a.cfg.Server.Endpoint,
		WSEndpoint:    a.cfg.Server.ResolvedWSEndpoint(),
		Subscriptions: a.cfg.Server.Subscriptions,
		Timeout:       a.cfg.Server.Timeout(),
		PollInterval:  a.cfg.Server.PollInterval(),
		RefetchPerSec: a.cfg.Server.RefetchPerSec,
		Logger:        a.logger,
	})
	if err != nil {
		return nil, err
	}
	return conversation.New(client, conversation.Options{
		Provider: a.cfg.Chat.ProviderTag(),
		Logger:   a.logger,
	}), nil
}

func (a *app) timeFormat() conversation.TimeFormat {
	tf, err := conversation.ParseTimeFormat(a.cfg.UI.TimeFormat)
	if err != nil {
		return conversation.Clock12
	}
	return tf
}

// =============================================================================
// FRONTENDS
// =============================================================================

// runTUI starts the full-screen interface.
func (a *app) runTUI(ctx context.Context) error {
	view, err := a.newView()
	if err != nil {
		return err
	}

	m := chat.New(ctx, styles.NewTheme(), view, chat.Options{
		TimeFormat:   a.timeFormat(),
		Markdown:     a.cfg.UI.Markdown,
		ConfirmClear: a.cfg.Chat.ConfirmClear,
		Logger:       a.logger,
	})

	opts := []tea.ProgramOption{tea.WithMouseCellMotion()}
	if a.cfg.UI.AltScreen {
		opts = append(opts, tea.WithAltScreen())
	}
	p := tea.NewProgram(m, opts...)

	// RELIABILITY: a broken watcher only loses hot reload
	if a.cfgPath != "" {
		w, err := config.NewWatcher(a.cfgPath, configReloadDebounce, a.logger, func(cfg *config.Config) {
			p.Send(chat.ConfigReloadedMsg{Config: cfg})
		})
		if err == nil {
			err = w.Start()
		}
		if err != nil {
			a.logger.Warn("config hot reload disabled", zap.Error(err))
		} else {
			defer w.Close()
		}
	}

	// Teardown runs on quit as well; a second call is a no-op.
	defer view.Teardown()

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running chatium: %w", err)
	}
	return nil
}

// runChat starts line mode.
func (a *app) runChat(ctx context.Context) error {
	view, err := a.newView()
	if err != nil {
		return err
	}

	var render func(string) string
	if a.cfg.UI.Markdown && cli.IsStdoutTTY() {
		md := components.NewMarkdownRenderer(styles.NewTheme(), cli.GetTerminalWidth()-4, true)
		render = md.Render
	}

	return cli.HandleChatCommand(ctx, view, cli.ChatOptions{
		TimeFormat:   a.timeFormat(),
		ConfirmClear: a.cfg.Chat.ConfirmClear,
		RenderReply:  render,
		Logger:       a.logger,
	})
}
