// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// chat.go - line-mode chat for terminals that cannot host the TUI.
//
// USABILITY: readline-style editing and a persistent input history.
//
// Interactive Commands (during chat):
//
//	/help, /h           Show available commands
//	/clear, /c          Clear the conversation (asks first)
//	/provider [name]    Show or switch provider (claude, openai)
//	/history            Show the conversation so far
//	/quit, /q           Exit chat
//	Ctrl+C, Ctrl+D      Exit chat
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/peterh/liner"
	"go.uber.org/zap"

	"github.com/jeranaias/chatium-tui/internal/config"
	"github.com/jeranaias/chatium-tui/internal/conversation"
	"github.com/jeranaias/chatium-tui/internal/model"
)

// =============================================================================
// INPUT
// =============================================================================

// LineReader reads edited input lines. *liner.State satisfies it.
type LineReader interface {
	Prompt(prompt string) (string, error)
	PromptWithSuggestion(prompt, text string, pos int) (string, error)
	AppendHistory(item string)
}

// historyFile is stored next to the config file.
const historyFile = "chat_history"

// openLiner creates the line editor and loads the saved history.
func openLiner() (*liner.State, string) {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	dir, err := config.ConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	path := filepath.Join(dir, historyFile)
	if f, err := os.Open(path); err == nil {
		line.ReadHistory(f)
		f.Close()
	}
	return line, path
}

// closeLiner persists the history with owner-only permissions.
func closeLiner(line *liner.State, path string) {
	defer line.Close()
	if err := config.EnsureConfigDir(); err != nil {
		return
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return
	}
	defer f.Close()
	line.WriteHistory(f)
}

// =============================================================================
// SESSION
// =============================================================================

// ChatOptions configures a line-mode session.
type ChatOptions struct {
	Out          io.Writer
	TimeFormat   conversation.TimeFormat
	ConfirmClear bool
	// RenderReply formats assistant content; nil prints it as is
	RenderReply func(string) string
	// Settle bounds how long a send waits for its message to appear
	Settle time.Duration
	Logger *zap.Logger
}

// ChatSession drives a conversation view from a line reader.
type ChatSession struct {
	view   *conversation.View
	in     LineReader
	out    io.Writer
	opts   ChatOptions
	logger *zap.Logger

	mu        sync.Mutex
	seen      map[string]bool
	lostShown bool
	loaded    bool

	updated chan struct{}
}

// NewChatSession creates a session. Output defaults to stdout.
func NewChatSession(view *conversation.View, in LineReader, opts ChatOptions) *ChatSession {
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	if opts.TimeFormat == "" {
		opts.TimeFormat = conversation.Clock12
	}
	if opts.Settle <= 0 {
		opts.Settle = 2 * time.Second
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChatSession{
		view:    view,
		in:      in,
		out:     opts.Out,
		opts:    opts,
		logger:  logger.Named("chat"),
		seen:    make(map[string]bool),
		updated: make(chan struct{}, 1),
	}
}

// HandleChatCommand runs "chatium chat" on the terminal.
func HandleChatCommand(ctx context.Context, view *conversation.View, opts ChatOptions) error {
	line, path := openLiner()
	defer closeLiner(line, path)

	return NewChatSession(view, line, opts).Run(ctx)
}

// Run subscribes, prints the conversation so far and reads input until the
// user quits, the reader fails or ctx is done.
func (s *ChatSession) Run(ctx context.Context) error {
	ch, err := s.view.Initialize(ctx)
	if err != nil {
		return NewCommandError("chat", "subscribe", err)
	}

	s.view.OnChange(s.redraw)
	pumpCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go s.pump(pumpCtx, ch, done)
	defer func() {
		cancel()
		s.view.Teardown()
		<-done
		s.view.OnChange(nil)
	}()

	s.printWelcome()
	s.awaitFirst(ctx)

	var suggestion string
	for ctx.Err() == nil {
		prompt := PromptStyle.Render("chatium> ")
		var input string
		if suggestion != "" {
			input, err = s.in.PromptWithSuggestion(prompt, suggestion, -1)
		} else {
			input, err = s.in.Prompt(prompt)
		}
		suggestion = ""
		if err != nil {
			// ErrPromptAborted (Ctrl+C) and io.EOF (Ctrl+D) both end the session
			if !errors.Is(err, liner.ErrPromptAborted) && !errors.Is(err, io.EOF) {
				s.logger.Debug("prompt failed", zap.Error(err))
			}
			s.println("")
			s.println(DimStyle.Render("Goodbye!"))
			return nil
		}

		trimmed := strings.TrimSpace(input)
		if trimmed == "" {
			continue
		}
		s.in.AppendHistory(input)

		if strings.HasPrefix(trimmed, "/") {
			if !s.handleSlashCommand(ctx, trimmed) {
				s.println(DimStyle.Render("Goodbye!"))
				return nil
			}
			continue
		}
		if strings.EqualFold(trimmed, "exit") || strings.EqualFold(trimmed, "quit") {
			s.println(DimStyle.Render("Goodbye!"))
			return nil
		}

		suggestion = s.send(ctx, input)
	}
	return nil
}

// send submits text and returns the draft to offer again on failure.
func (s *ChatSession) send(ctx context.Context, text string) string {
	s.view.SetDraft(text)
	op, ok := s.view.Submit()
	if !ok {
		return ""
	}

	res := op.Run(ctx)
	s.view.Resolve(res)
	if res.Err != nil {
		s.printError(res.Err)
		return s.view.Draft()
	}

	s.waitFor(ctx, res.Message.ID)
	return ""
}

// clear runs the two-step clear from the command line.
func (s *ChatSession) clear(ctx context.Context) {
	if !s.view.RequestClear() {
		s.println(WarningStyle.Render("[Busy]") + " wait for the current operation")
		return
	}

	if s.opts.ConfirmClear {
		answer, err := s.in.Prompt("Clear all messages? [y/N] ")
		if err != nil || !ParseYesNo(answer) {
			s.view.DeclineClear()
			s.println(DimStyle.Render("[Cancelled]"))
			return
		}
	}

	op, ok := s.view.ConfirmClear()
	if !ok {
		return
	}
	res := op.Run(ctx)
	s.view.Resolve(res)
	if res.Err != nil {
		s.printError(res.Err)
		return
	}
	s.println(SuccessStyle.Render("[Conversation cleared]"))
}

// =============================================================================
// LIVE LIST
// =============================================================================

// pump feeds store emissions into the view. Printing happens in redraw.
func (s *ChatSession) pump(ctx context.Context, ch <-chan model.Snapshot, done chan<- struct{}) {
	defer close(done)
	for {
		select {
		case <-ctx.Done():
			return
		case snap, ok := <-ch:
			if !ok {
				return
			}
			s.view.ApplySnapshot(snap)
		}
	}
}

// redraw is the view's change hook. It prints messages not shown yet and
// connection transitions, then wakes anyone waiting on output.
func (s *ChatSession) redraw() {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer func() {
		select {
		case s.updated <- struct{}{}:
		default:
		}
	}()

	if s.view.ConnectionLost() {
		if !s.lostShown {
			s.lostShown = true
			fmt.Fprintf(s.out, "%s connection lost, retrying\n", WarningStyle.Render("[Offline]"))
		}
		return
	}
	if s.lostShown {
		s.lostShown = false
		fmt.Fprintf(s.out, "%s reconnected\n", SuccessStyle.Render("[OK]"))
	}
	if s.view.Version() > 0 {
		s.loaded = true
	}

	for _, msg := range s.view.Messages() {
		if s.seen[msg.ID] {
			continue
		}
		s.seen[msg.ID] = true
		s.writeMessage(msg)
	}
}

// awaitFirst gives the initial fetch a moment so history prints before the
// first prompt.
func (s *ChatSession) awaitFirst(ctx context.Context) {
	timer := time.NewTimer(s.opts.Settle)
	defer timer.Stop()
	for {
		s.mu.Lock()
		loaded := s.loaded || s.lostShown
		s.mu.Unlock()
		if loaded {
			return
		}
		select {
		case <-s.updated:
		case <-timer.C:
			return
		case <-ctx.Done():
			return
		}
	}
}

// waitFor blocks until the message with id has been printed or Settle
// elapses.
func (s *ChatSession) waitFor(ctx context.Context, id string) {
	if id == "" {
		return
	}
	timer := time.NewTimer(s.opts.Settle)
	defer timer.Stop()
	for {
		s.mu.Lock()
		printed := s.seen[id]
		s.mu.Unlock()
		if printed {
			return
		}
		select {
		case <-s.updated:
		case <-timer.C:
			s.logger.Debug("sent message not yet visible", zap.String("id", id))
			return
		case <-ctx.Done():
			return
		}
	}
}

// =============================================================================
// SLASH COMMANDS
// =============================================================================

// handleSlashCommand runs a slash command. It returns false to exit.
func (s *ChatSession) handleSlashCommand(ctx context.Context, input string) bool {
	parts := strings.Fields(input)
	command := strings.ToLower(parts[0])
	args := parts[1:]

	switch command {
	case "/help", "/h", "/?", "/":
		s.printHelp()
	case "/clear", "/c":
		s.clear(ctx)
	case "/provider", "/p":
		s.providerCommand(args)
	case "/history":
		s.printHistory()
	case "/quit", "/q", "/exit":
		return false
	default:
		s.printError(fmt.Errorf("unknown command: %s (type /help for commands)", command))
	}
	return true
}

func (s *ChatSession) providerCommand(args []string) {
	if len(args) == 0 {
		p := s.view.Provider()
		s.printf("%s %s (%s)\n", DimStyle.Render("[Provider]"), p.DisplayName(), p)
		return
	}
	p, err := model.ParseProvider(args[0])
	if err == nil {
		err = s.view.SetProvider(p)
	}
	if err != nil {
		s.printError(err)
		return
	}
	s.printf("%s now chatting with %s\n", SuccessStyle.Render("[OK]"), p.DisplayName())
}

// =============================================================================
// OUTPUT
// =============================================================================

func (s *ChatSession) printf(format string, a ...interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintf(s.out, format, a...)
}

func (s *ChatSession) println(line string) {
	s.printf("%s\n", line)
}

func (s *ChatSession) printError(err error) {
	s.printf("%s %v\n", ErrorStyle.Render("[Error]"), err)
}

// writeMessage prints one message. Caller holds s.mu.
func (s *ChatSession) writeMessage(msg model.Message) {
	label := AssistantStyle.Render(msg.Role.DisplayName())
	content := msg.Content
	if msg.IsUser() {
		label = UserStyle.Render(msg.Role.DisplayName())
	} else if s.opts.RenderReply != nil {
		content = strings.TrimRight(s.opts.RenderReply(content), "\n")
	}
	stamp := DimStyle.Render(conversation.FormatTimestamp(msg.Timestamp, s.opts.TimeFormat))
	fmt.Fprintf(s.out, "%s %s\n%s\n\n", label, stamp, content)
}

func (s *ChatSession) printWelcome() {
	p := s.view.Provider()
	s.println("")
	s.println(TitleStyle.Render("chatium line-mode chat"))
	s.println(RenderSeparator(30))
	s.println(RenderLabel("Provider:", p.DisplayName()))
	s.println("")
	s.println(DimStyle.Render("Type your message and press Enter. Commands: /help, /quit"))
	s.println("")
}

func (s *ChatSession) printHelp() {
	commands := []struct {
		cmd  string
		desc string
	}{
		{"/help, /h", "Show this help"},
		{"/clear, /c", "Clear the conversation"},
		{"/provider [name]", "Show or switch provider (claude, openai)"},
		{"/history", "Show the conversation so far"},
		{"/quit, /q", "Exit chat"},
	}

	s.println("")
	s.println(TitleStyle.Render("Available Commands"))
	s.println(RenderSeparator(20))
	for _, c := range commands {
		s.printf("  %s  %s\n", PromptStyle.Render(fmt.Sprintf("%-18s", c.cmd)), DimStyle.Render(c.desc))
	}
	s.println("")
	s.println(DimStyle.Render("Tip: Ctrl+C or Ctrl+D exits"))
	s.println("")
}

func (s *ChatSession) printHistory() {
	msgs := s.view.Messages()
	if len(msgs) == 0 {
		s.println(DimStyle.Render("[No messages yet]"))
		return
	}

	s.println("")
	s.println(TitleStyle.Render("Conversation History"))
	s.println(RenderSeparator(25))
	for i, msg := range msgs {
		role := AssistantStyle.Render(msg.Role.DisplayName())
		if msg.IsUser() {
			role = UserStyle.Render(msg.Role.DisplayName())
		}
		s.printf("  %d. %s %s: %s\n", i+1,
			DimStyle.Render(conversation.FormatTimestamp(msg.Timestamp, s.opts.TimeFormat)),
			role, msg.Preview(100))
	}
	s.println("")
}
