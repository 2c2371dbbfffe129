// helia - a terminal client for the Helia assistant.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/helia-tui/internal/cli"
	"github.com/jeranaias/helia-tui/internal/config"
	"github.com/jeranaias/helia-tui/internal/logging"
	"github.com/jeranaias/helia-tui/internal/pending"
	"github.com/jeranaias/helia-tui/internal/ui/chat"
	"github.com/jeranaias/helia-tui/internal/ui/styles"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func init() {
	cli.Version = Version
	cli.GitCommit = GitCommit
	cli.BuildDate = BuildDate
}

func main() {
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		cli.DisplayError(os.Stderr, err)
		return cli.GetExitCode(err)
	}

	// Logs go to log.file. Without one, only debug logging reaches stderr
	// so normal command output stays clean.
	var fallback io.Writer
	if cfg.Log.Level == "debug" {
		fallback = os.Stderr
	}
	logger, err := logging.New(cfg.Log, fallback)
	if err != nil {
		cli.DisplayError(os.Stderr, err)
		return cli.ExitConfigError
	}
	defer logger.Close()

	app, err := cli.NewApp(ctx, cfg, Version, logger.Logger)
	if err != nil {
		cli.DisplayError(os.Stderr, err)
		return cli.GetExitCode(err)
	}
	defer app.Close()
	app.RunTUI = runTUI

	return cli.Execute(ctx, app)
}

// runTUI runs the full-screen chat until the user quits.
func runTUI(ctx context.Context, app *cli.App, opts cli.TUIOptions) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// The TUI owns the terminal; drop debug output unless it goes to a file.
	logger := app.Logger
	if app.Config.Log.File == "" {
		logger = logging.Discard()
	}

	store := pending.NewStore()
	eng := app.NewEngine(store)
	defer eng.Close()
	coord := app.NewCoordinator(store, nil)

	m := chat.New(chat.Options{
		Engine:         eng,
		Sessions:       app.API,
		Composer:       coord,
		Pending:        store,
		Credits:        app.Credits,
		Cache:          app.DB.Sessions(),
		Theme:          styles.NewTheme(app.Config.UI.Theme),
		SessionID:      opts.SessionID,
		ModelID:        opts.ModelID,
		RenderMarkdown: app.Config.UI.RenderMarkdown,
		LoggedIn:       app.Auth.LoggedIn(),
		Context:        ctx,
		Logger:         logger,
	})

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))

	bridge := chat.NewSnapshotBridge()
	unsubscribe := eng.Subscribe(bridge.Publish)
	defer unsubscribe()
	go bridge.Run(ctx, p.Send)

	go func() {
		err := app.Auth.Watch(ctx, func(loggedIn bool) {
			p.Send(chat.AuthChangedMsg{LoggedIn: loggedIn})
		})
		if err != nil {
			logger.Warn("credentials watch stopped", "error", err)
		}
	}()

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("chat UI: %w", err)
	}
	return nil
}
