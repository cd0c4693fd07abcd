// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/jeranaias/chatium-tui/internal/devserver"
)

const devServerUsage = `Usage:
  chatium dev-server [--addr HOST:PORT]

Runs an in-memory chatium message store with demo replies.

Flags:
  --addr HOST:PORT   Listen address (default %s)
  -h, --help         Show this help
`

// PrintDevServerUsage writes the dev-server help text.
func PrintDevServerUsage(w io.Writer) {
	fmt.Fprintf(w, devServerUsage, DefaultDevServerAddr)
}

// HandleDevServer runs the in-memory message store until ctx is done.
func HandleDevServer(ctx context.Context, w io.Writer, args Args, logger *zap.Logger) error {
	if args.Help {
		PrintDevServerUsage(w)
		return nil
	}

	addr := args.Addr
	if addr == "" {
		addr = DefaultDevServerAddr
	}

	srv := devserver.New(devserver.Options{Logger: logger})
	defer srv.Close()

	fmt.Fprintln(w, TitleStyle.Render("chatium dev server"))
	fmt.Fprintln(w, RenderLabel("GraphQL:", "http://"+addr+"/graphql"))
	fmt.Fprintln(w, RenderLabel("Live events:", "ws://"+addr+"/graphql"))
	fmt.Fprintln(w, DimStyle.Render("Replies are demo text. Press Ctrl+C to stop."))

	return NewCommandError("dev-server", "", srv.ListenAndServe(ctx, addr))
}
