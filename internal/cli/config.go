// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/jeranaias/chatium-tui/internal/config"
)

// ErrConfigExists is returned by "config init" when the file is present.
var ErrConfigExists = errors.New("config file already exists")

// HandleConfig runs "chatium config [show|path|init]". path is the config
// file in use; cfg is the effective configuration.
func HandleConfig(w io.Writer, args Args, cfg *config.Config, path string) error {
	switch args.Subcommand {
	case "", "show":
		return showConfig(w, cfg, path)

	case "path":
		fmt.Fprintln(w, path)
		return nil

	case "init":
		force := NewArgParser(args.Raw).BoolFlag("force")
		return NewCommandError("config", "init", initConfig(w, path, force))

	default:
		return &UsageError{Reason: fmt.Sprintf("unknown config subcommand %q", args.Subcommand)}
	}
}

func showConfig(w io.Writer, cfg *config.Config, path string) error {
	fmt.Fprintln(w, TitleStyle.Render("chatium configuration"))
	fmt.Fprintln(w, RenderSeparator())

	source := path
	if _, err := os.Stat(path); err != nil {
		source = path + " (not found, using defaults)"
	}
	fmt.Fprintln(w, RenderLabel("File:", source))
	fmt.Fprintln(w, RenderLabel("Live events:", cfg.Server.ResolvedWSEndpoint()))
	fmt.Fprintln(w, RenderLabel("Log file:", cfg.LogPath()))
	fmt.Fprintln(w)

	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return NewCommandError("config", "show", err)
	}
	return nil
}

func initConfig(w io.Writer, path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("%w: %s (use --force to overwrite)", ErrConfigExists, path)
	} else if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}

	if err := config.SaveTOML(config.Default(), path); err != nil {
		return err
	}
	fmt.Fprintf(w, "%s wrote %s\n", SuccessStyle.Render("[OK]"), path)
	return nil
}
