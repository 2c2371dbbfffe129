// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"
	"github.com/spf13/cobra"

	"github.com/jeranaias/helia-tui/internal/auth"
	"github.com/jeranaias/helia-tui/internal/config"
	"github.com/jeranaias/helia-tui/internal/coordinator"
	"github.com/jeranaias/helia-tui/internal/engine"
	"github.com/jeranaias/helia-tui/internal/model"
	"github.com/jeranaias/helia-tui/internal/pending"
)

// errAuthRejected is returned when the server rejected the stored login
// while streaming.
var errAuthRejected = fmt.Errorf("%w: the server rejected your login, run `helia login`", auth.ErrNotLoggedIn)

// =============================================================================
// CHAT SESSION (shared by ask and the line REPL)
// =============================================================================

// chatSession drives one engine from the command line.
type chatSession struct {
	app     *App
	out     io.Writer
	info    io.Writer
	store   *pending.Store
	eng     *engine.Engine
	coord   *coordinator.Coordinator
	printer *replyPrinter
	unsub   func()

	modelID    string
	attachment *model.Attachment
}

func newChatSession(app *App, out, info io.Writer, modelID string) *chatSession {
	s := &chatSession{
		app:     app,
		out:     out,
		info:    info,
		store:   pending.NewStore(),
		printer: newReplyPrinter(out),
		modelID: modelID,
	}
	s.eng = app.NewEngine(s.store)
	s.coord = app.NewCoordinator(s.store, s.eng.SwitchSession)
	s.unsub = s.eng.Subscribe(s.printer.observe)
	return s
}

func (s *chatSession) Close() {
	s.unsub()
	s.eng.Close()
}

// open selects an existing session, optionally loading its history.
func (s *chatSession) open(ctx context.Context, sessionID string, loadHistory bool) ([]model.Message, error) {
	s.eng.SwitchSession(sessionID)
	if !loadHistory {
		return nil, nil
	}
	if err := s.eng.LoadHistory(ctx, sessionID); err != nil {
		return nil, err
	}
	return s.eng.Snapshot().Messages, nil
}

// send delivers text plus any staged attachment and blocks until the reply
// ends. With no session selected, one is created first.
func (s *chatSession) send(ctx context.Context, text string) error {
	att := s.attachment
	s.attachment = nil
	if strings.TrimSpace(text) == "" && att == nil {
		return nil
	}
	if err := s.app.Credits.Use(ctx); err != nil {
		return err
	}
	s.printer.reset()

	if sessionID := s.eng.SessionID(); sessionID != "" {
		err := s.eng.SendMessage(ctx, engine.SendRequest{
			SessionID:  sessionID,
			Content:    text,
			Attachment: att,
			ModelID:    s.modelID,
		})
		if err != nil {
			return err
		}
	} else {
		session, err := s.coord.ComposeFirstMessage(ctx, text, att, s.modelID)
		if err != nil {
			return err
		}
		fmt.Fprintln(s.info, DimStyle.Render(fmt.Sprintf("session %s: %s", session.ID, session.DisplayName())))
		if _, err := deliverPending(ctx, s.eng, s.store, session.ID); err != nil {
			return err
		}
	}

	if s.printer.Failed() {
		if s.eng.Snapshot().AuthRequired {
			return errAuthRejected
		}
		return errReplyFailed
	}
	return nil
}

// command runs a slash command. It reports whether the REPL should exit.
func (s *chatSession) command(line string) (bool, error) {
	fields := strings.Fields(line)
	name, args := fields[0], fields[1:]

	switch name {
	case "/quit", "/exit", "/q":
		return true, nil
	case "/image":
		if len(args) == 0 {
			s.attachment = nil
			fmt.Fprintln(s.info, DimStyle.Render("attachment removed"))
			return false, nil
		}
		att, err := model.LoadAttachment(strings.Join(args, " "))
		if err != nil {
			return false, err
		}
		s.attachment = att
		fmt.Fprintln(s.info, SuccessStyle.Render("attached "+att.Name))
	case "/model":
		if len(args) == 0 {
			fmt.Fprintln(s.info, RenderLabel("model", model.GetModelInfo(s.modelID).Name))
			fmt.Fprint(s.info, model.FormatModelList())
			return false, nil
		}
		s.modelID = args[0]
		fmt.Fprintln(s.info, SuccessStyle.Render("model set to "+model.GetModelInfo(s.modelID).Name))
	case "/new":
		s.eng.SwitchSession("")
		fmt.Fprintln(s.info, DimStyle.Render("new chat: the next message creates a session"))
	case "/help":
		fmt.Fprintln(s.info, DimStyle.Render("/image PATH  /model [ID]  /new  /quit"))
	default:
		return false, &UsageError{Field: "command", Reason: name + " (try /help)"}
	}
	return false, nil
}

// =============================================================================
// ASK
// =============================================================================

func newAskCommand(app *App) *cobra.Command {
	var image, modelFlag, sessionID string

	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Ask one question and stream the answer to stdout",
		Long: `Ask creates a new session named after the question, sends it and
streams the reply to stdout. Use --session to continue an existing session.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			text := strings.TrimSpace(strings.Join(args, " "))

			s := newChatSession(app, cmd.OutOrStdout(), cmd.ErrOrStderr(), app.modelID(modelFlag))
			defer s.Close()

			if image != "" {
				att, err := model.LoadAttachment(image)
				if err != nil {
					return &UsageError{Field: "--image", Reason: err.Error()}
				}
				s.attachment = att
			}
			if text == "" && s.attachment == nil {
				return &UsageError{Field: "question", Reason: "nothing to ask"}
			}
			if err := app.requireLogin(); err != nil {
				return err
			}
			if sessionID != "" {
				if _, err := s.open(ctx, sessionID, false); err != nil {
					return err
				}
			}
			return s.send(ctx, text)
		},
	}
	cmd.Flags().StringVar(&image, "image", "", "attach an image file")
	cmd.Flags().StringVarP(&modelFlag, "model", "m", "", "model id (see `helia chat` /model)")
	cmd.Flags().StringVarP(&sessionID, "session", "s", "", "continue an existing session")
	return cmd
}

// =============================================================================
// CHAT
// =============================================================================

func newChatCommand(app *App) *cobra.Command {
	var sessionID, modelFlag string
	var plain bool

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive chat",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !plain {
				return runTUI(cmd, app, TUIOptions{SessionID: sessionID, ModelID: app.modelID(modelFlag)})
			}
			if err := app.requireLogin(); err != nil {
				return err
			}
			return runREPL(cmd.Context(), app, cmd.OutOrStdout(), cmd.ErrOrStderr(), sessionID, app.modelID(modelFlag))
		},
	}
	cmd.Flags().StringVarP(&sessionID, "session", "s", "", "open an existing session")
	cmd.Flags().StringVarP(&modelFlag, "model", "m", "", "model id")
	cmd.Flags().BoolVar(&plain, "plain", false, "line-mode chat instead of the full-screen UI")
	return cmd
}

func runTUI(cmd *cobra.Command, app *App, opts TUIOptions) error {
	if app.RunTUI == nil {
		return errors.New("full-screen chat is not available in this build")
	}
	if !IsTTY() {
		return &UsageError{Field: "terminal", Reason: "the chat UI needs a terminal; use `helia chat --plain` or `helia ask`"}
	}
	return app.RunTUI(cmd.Context(), app, opts)
}

// runREPL is the --plain chat loop.
func runREPL(ctx context.Context, app *App, out, info io.Writer, sessionID, modelID string) error {
	s := newChatSession(app, out, info, modelID)
	defer s.Close()

	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	histPath := replHistoryPath()
	if f, err := os.Open(histPath); err == nil {
		line.ReadHistory(f)
		f.Close()
	}
	defer saveREPLHistory(line, histPath)

	if sessionID != "" {
		msgs, err := s.open(ctx, sessionID, true)
		if err != nil && !errors.Is(err, engine.ErrHistoryDeferred) {
			return err
		}
		printTranscript(out, msgs)
	}
	fmt.Fprintln(info, TitleStyle.Render("helia chat")+" "+DimStyle.Render("(/help for commands, /quit or Ctrl-D to exit)"))

	for {
		input, err := line.Prompt("you> ")
		if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		text := strings.TrimSpace(input)
		if text == "" {
			continue
		}
		line.AppendHistory(input)

		if strings.HasPrefix(text, "/") {
			quit, err := s.command(text)
			if err != nil {
				DisplayError(info, err)
			}
			if quit {
				return nil
			}
			continue
		}

		fmt.Fprint(out, AssistantStyle.Render("helia> "))
		if err := s.send(ctx, text); err != nil {
			if errors.Is(err, errReplyFailed) {
				continue
			}
			DisplayError(info, err)
			if errors.Is(err, auth.ErrNotLoggedIn) {
				return err
			}
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

func replHistoryPath() string {
	dir, err := config.Dir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "chat_history")
}

func saveREPLHistory(line *liner.State, path string) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return
	}
	defer f.Close()
	line.WriteHistory(f)
}

// printTranscript prints messages the way the REPL shows them.
func printTranscript(w io.Writer, msgs []model.Message) {
	for _, m := range msgs {
		prefix := UserStyle.Render("you> ")
		if m.Role == model.RoleAssistant {
			prefix = AssistantStyle.Render("helia> ")
		}
		content := m.DisplayContent()
		if m.Role == model.RoleAssistant && !m.IsError {
			content = highlightCodeBlocks(content)
		}
		if m.AttachmentURL != "" {
			content = strings.TrimSpace(content + " " + DimStyle.Render("[image "+m.AttachmentURL+"]"))
		}
		if m.IsError {
			content = ErrorStyle.Render(content)
		}
		fmt.Fprintln(w, prefix+content)
	}
}
