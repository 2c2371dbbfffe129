// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"io"
	"log/slog"
	"os"

	"golang.org/x/time/rate"

	"github.com/jeranaias/helia-tui/internal/api"
	"github.com/jeranaias/helia-tui/internal/auth"
	"github.com/jeranaias/helia-tui/internal/config"
	"github.com/jeranaias/helia-tui/internal/coordinator"
	"github.com/jeranaias/helia-tui/internal/credits"
	"github.com/jeranaias/helia-tui/internal/engine"
	"github.com/jeranaias/helia-tui/internal/logging"
	"github.com/jeranaias/helia-tui/internal/pending"
	"github.com/jeranaias/helia-tui/internal/storage"
	"github.com/jeranaias/helia-tui/internal/transport"
)

// TUIOptions selects what the full-screen chat opens with.
type TUIOptions struct {
	SessionID string
	ModelID   string
}

// App holds the collaborators commands run against.
type App struct {
	Config  *config.Config
	Version string
	Logger  *slog.Logger

	Auth    *auth.Manager
	API     *api.Client
	Sender  engine.Sender
	DB      *storage.DB
	Credits *credits.Ledger

	// RunTUI starts the full-screen chat. It is set by main.
	RunTUI func(ctx context.Context, app *App, opts TUIOptions) error

	// In is read for prompts. Defaults to os.Stdin.
	In io.Reader
}

// NewApp wires the API client, auth, transport, local database and credit
// ledger from cfg.
func NewApp(ctx context.Context, cfg *config.Config, version string, logger *slog.Logger) (*App, error) {
	logger = logging.OrDiscard(logger)

	var limiter *rate.Limiter
	if cfg.API.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.API.RateLimit), max(cfg.API.RateBurst, 1))
	}

	credPath, err := config.CredentialsPath()
	if err != nil {
		return nil, err
	}
	dbPath, err := config.DatabasePath()
	if err != nil {
		return nil, err
	}

	// Token endpoints run without credentials; everything else uses the
	// manager for bearer tokens and refresh.
	anon := api.New(api.Options{
		BaseURL:    cfg.API.BaseURL,
		Timeout:    cfg.API.RequestTimeout,
		MaxRetries: cfg.API.MaxRetries,
		Limiter:    limiter,
		Logger:     logger,
	})
	mgr, err := auth.NewManager(auth.NewFileStore(credPath), anon, logger)
	if err != nil {
		return nil, err
	}
	client := api.New(api.Options{
		BaseURL:     cfg.API.BaseURL,
		Credentials: mgr,
		Timeout:     cfg.API.RequestTimeout,
		MaxRetries:  cfg.API.MaxRetries,
		Limiter:     limiter,
		Logger:      logger,
	})
	sender := transport.New(transport.Options{
		BaseURL: cfg.API.BaseURL,
		Tokens:  mgr,
		Timeout: cfg.API.StreamTimeout,
		Limiter: limiter,
		Logger:  logger,
	})

	db, err := storage.Open(dbPath)
	if err != nil {
		return nil, err
	}
	ledger, err := credits.NewLedger(ctx, db.Credits(), cfg.Credits.Initial, logger)
	if err != nil {
		db.Close()
		return nil, err
	}

	return &App{
		Config:  cfg,
		Version: version,
		Logger:  logger,
		Auth:    mgr,
		API:     client,
		Sender:  sender,
		DB:      db,
		Credits: ledger,
		In:      os.Stdin,
	}, nil
}

// Close releases the local database.
func (a *App) Close() error {
	if a.DB == nil {
		return nil
	}
	return a.DB.Close()
}

// NewEngine creates a chat engine bound to store.
func (a *App) NewEngine(store *pending.Store) *engine.Engine {
	return engine.New(engine.Options{
		Sender:    a.Sender,
		History:   a.API,
		Pending:   store,
		ErrorText: a.Config.Chat.ErrorText,
		Logger:    a.Logger,
	})
}

// NewCoordinator creates a session creation coordinator writing to store.
func (a *App) NewCoordinator(store *pending.Store, navigate coordinator.Navigator) *coordinator.Coordinator {
	return coordinator.New(coordinator.Options{
		Sessions:   a.API,
		Pending:    store,
		Navigate:   navigate,
		NameLength: a.Config.Chat.SessionNameLength,
		Logger:     a.Logger,
	})
}

// requireLogin fails fast for commands that need an account.
func (a *App) requireLogin() error {
	if a.Auth == nil || !a.Auth.LoggedIn() {
		return errNotLoggedIn
	}
	return nil
}

// modelID resolves a --model flag against the configured default.
func (a *App) modelID(flag string) string {
	if flag != "" {
		return flag
	}
	return a.Config.Chat.DefaultModel
}

func (a *App) input() io.Reader {
	if a.In == nil {
		return os.Stdin
	}
	return a.In
}
