// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"log/slog"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/helia-tui/internal/engine"
	"github.com/jeranaias/helia-tui/internal/logging"
	"github.com/jeranaias/helia-tui/internal/model"
	"github.com/jeranaias/helia-tui/internal/ui/styles"
)

// =============================================================================
// COLLABORATORS
// =============================================================================

// Engine is the chat session engine as seen by the view.
type Engine interface {
	Snapshot() engine.Snapshot
	SendMessage(ctx context.Context, req engine.SendRequest) error
	LoadHistory(ctx context.Context, sessionID string) error
	SwitchSession(sessionID string)
}

// Sessions lists and deletes server sessions.
type Sessions interface {
	ListSessions(ctx context.Context) ([]model.Session, error)
	DeleteSession(ctx context.Context, id string) error
}

// Composer creates a session for a message typed before one exists.
type Composer interface {
	ComposeFirstMessage(ctx context.Context, content string, attachment *model.Attachment, modelID string) (model.Session, error)
}

// Credits gates sending.
type Credits interface {
	Balance() int
	Use(ctx context.Context) error
}

// SessionCache stores the last session list for offline use.
type SessionCache interface {
	Replace(ctx context.Context, sessions []model.Session) error
}

// Options configures the chat view.
type Options struct {
	Engine   Engine
	Sessions Sessions
	Composer Composer
	Pending  PendingSource
	Credits  Credits
	Cache    SessionCache

	Theme *styles.Theme

	// SessionID is opened on start. Empty starts a new chat.
	SessionID string
	ModelID   string

	RenderMarkdown bool
	LoggedIn       bool

	// Context parents every command the view runs.
	Context context.Context
	Logger  *slog.Logger
}

// =============================================================================
// MODEL
// =============================================================================

type focusArea int

const (
	focusInput focusArea = iota
	focusSidebar
)

const (
	sidebarWidth = 28
	inputLines   = 3
	// inputHeight includes the input border.
	inputHeight = inputLines + 2
	// chromeHeight is the header plus the status bar.
	chromeHeight = 2
)

// Model is the chat view.
type Model struct {
	engine   Engine
	sessions Sessions
	composer Composer
	pending  PendingSource
	credits  Credits
	cache    SessionCache

	ctx    context.Context
	logger *slog.Logger
	theme  *styles.Theme
	keys   KeyMap

	input    textarea.Model
	viewport viewport.Model
	spinner  spinner.Model
	md       *markdownRenderer

	snap  engine.Snapshot
	mount mountState

	sessionList []model.Session
	cursor      int
	focus       focusArea

	initialSession string
	modelID        string
	attachment     *model.Attachment
	loggedIn       bool

	// sending covers the gap between submit and the engine's first
	// responding snapshot.
	sending   bool
	composing bool
	spinning  bool
	following bool

	status string
	err    error

	width  int
	height int
	ready  bool
}

// New creates the chat view.
func New(opts Options) Model {
	theme := opts.Theme
	if theme == nil {
		theme = styles.NewTheme("auto")
	}
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	modelID := opts.ModelID
	if modelID == "" {
		modelID = model.DefaultModelID
	}

	keys := DefaultKeyMap()

	ta := textarea.New()
	ta.Placeholder = "Ask Helia anything... (/help for commands)"
	ta.ShowLineNumbers = false
	ta.Prompt = ""
	ta.CharLimit = 8000
	ta.SetHeight(inputLines)
	ta.KeyMap.InsertNewline = keys.Newline
	ta.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = theme.InfoStyle

	m := Model{
		engine:         opts.Engine,
		sessions:       opts.Sessions,
		composer:       opts.Composer,
		pending:        opts.Pending,
		credits:        opts.Credits,
		cache:          opts.Cache,
		ctx:            ctx,
		logger:         logging.OrDiscard(opts.Logger).With("component", "chat"),
		theme:          theme,
		keys:           keys,
		input:          ta,
		spinner:        sp,
		initialSession: opts.SessionID,
		modelID:        modelID,
		loggedIn:       opts.LoggedIn,
		following:      true,
	}
	if opts.RenderMarkdown {
		m.md = newMarkdownRenderer(theme.GlamourStyle(), 80)
	}
	if m.engine != nil {
		m.snap = m.engine.Snapshot()
	}
	return m
}

// Init opens the initial session and fetches the session list.
func (m Model) Init() tea.Cmd {
	initial := m.initialSession
	return tea.Batch(
		textarea.Blink,
		m.listSessionsCmd(),
		func() tea.Msg { return OpenSessionMsg{ID: initial} },
	)
}

// =============================================================================
// UPDATE
// =============================================================================

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case SnapshotMsg:
		m.applySnapshot(msg.Snapshot)
		cmd := m.spinCmd()
		return m, cmd

	case OpenSessionMsg:
		return m.openSession(msg.ID)

	case SessionsMsg:
		if msg.Err != nil {
			m.err = msg.Err
			return m, nil
		}
		m.sessionList = msg.Sessions
		m.clampCursor()
		return m, nil

	case ComposeDoneMsg:
		return m.handleComposeDone(msg)

	case SendDoneMsg:
		m.sending = false
		if msg.Err != nil && !errors.Is(msg.Err, engine.ErrClosed) {
			m.err = msg.Err
		}
		m.syncInput()
		return m, nil

	case HistoryLoadedMsg:
		switch {
		case msg.Err == nil:
		case errors.Is(msg.Err, engine.ErrHistoryDeferred):
			m.logger.Debug("history load deferred", "session", msg.SessionID)
		case msg.SessionID == m.snap.SessionID:
			m.err = msg.Err
		}
		return m, nil

	case SessionDeletedMsg:
		if msg.Err != nil {
			m.err = msg.Err
			return m, nil
		}
		m.removeSession(msg.ID)
		m.status = "session deleted"
		if msg.ID == m.snap.SessionID {
			return m.openSession("")
		}
		return m, nil

	case AuthChangedMsg:
		m.loggedIn = msg.LoggedIn
		if !msg.LoggedIn {
			m.sessionList = nil
			m.status = "logged out"
			return m, nil
		}
		m.status = "logged in"
		m.err = nil
		return m, m.listSessionsCmd()

	case ErrorMsg:
		m.err = msg.Err
		return m, nil

	case spinner.TickMsg:
		if !m.busy() {
			m.spinning = false
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		m.refreshViewport()
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.NewChat):
		m.focusOn(focusInput)
		return m.openSession("")
	case key.Matches(msg, m.keys.ToggleFocus):
		if m.focus == focusInput {
			m.focusOn(focusSidebar)
		} else {
			m.focusOn(focusInput)
		}
		return m, nil
	case key.Matches(msg, m.keys.PageUp):
		m.viewport.HalfViewUp()
		m.following = m.viewport.AtBottom()
		return m, nil
	case key.Matches(msg, m.keys.PageDown):
		m.viewport.HalfViewDown()
		m.following = m.viewport.AtBottom()
		return m, nil
	}

	if m.focus == focusSidebar {
		return m.handleSidebarKey(msg)
	}
	if key.Matches(msg, m.keys.Submit) {
		return m.submit()
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleSidebarKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(m.sessionList)-1 {
			m.cursor++
		}
	case key.Matches(msg, m.keys.Open):
		if s, ok := m.selected(); ok {
			m.focusOn(focusInput)
			return m.openSession(s.ID)
		}
	case key.Matches(msg, m.keys.Delete):
		if s, ok := m.selected(); ok {
			return m, m.deleteSessionCmd(s.ID)
		}
	case key.Matches(msg, m.keys.Refresh):
		return m, m.listSessionsCmd()
	}
	return m, nil
}

// openSession selects id in the engine and runs the mount machine for it.
func (m Model) openSession(id string) (tea.Model, tea.Cmd) {
	if m.engine == nil {
		return m, nil
	}
	m.engine.SwitchSession(id)
	m.applySnapshot(m.engine.Snapshot())
	m.err = nil
	m.following = true
	m.selectSession(id)
	mount := m.mountCmd()
	spin := m.spinCmd()
	return m, tea.Batch(mount, spin)
}

func (m *Model) mountCmd() tea.Cmd {
	action, msg := m.mount.step(m.snap.SessionID, m.pending)
	if action != mountIdle {
		m.logger.Debug("mount", "session", m.snap.SessionID, "action", action.String())
	}
	switch action {
	case mountSend:
		m.sending = true
		m.syncInput()
		return m.sendCmd(engine.SendRequest{
			SessionID:  msg.TargetSessionID,
			Content:    msg.Content,
			Attachment: msg.Attachment,
			ModelID:    msg.ModelID,
		}, msg.ID)
	case mountLoadHistory:
		return m.loadHistoryCmd(m.snap.SessionID)
	}
	return nil
}

func (m Model) handleComposeDone(msg ComposeDoneMsg) (tea.Model, tea.Cmd) {
	m.composing = false
	if msg.Err != nil {
		m.err = msg.Err
		if m.input.Value() == "" {
			m.input.SetValue(msg.Draft)
		}
		if m.attachment == nil {
			m.attachment = msg.Attachment
		}
		m.syncInput()
		return m, nil
	}
	m.sessionList = append([]model.Session{msg.Session}, m.sessionList...)
	m.syncInput()
	return m.openSession(msg.Session.ID)
}

// applySnapshot keeps the newest engine state.
func (m *Model) applySnapshot(s engine.Snapshot) {
	if s.Version < m.snap.Version {
		return
	}
	m.snap = s
	m.syncInput()
	m.refreshViewport()
}

// =============================================================================
// STATE HELPERS
// =============================================================================

// canSend reports whether a submission would be accepted.
func (m Model) canSend() bool {
	if m.busy() {
		return false
	}
	return m.credits == nil || m.credits.Balance() > 0
}

func (m Model) busy() bool {
	return m.snap.Responding || m.sending || m.composing
}

// syncInput enables the composer only when a message can be sent.
func (m *Model) syncInput() {
	if m.focus == focusInput && m.canSend() {
		m.input.Focus()
		return
	}
	m.input.Blur()
}

func (m *Model) focusOn(f focusArea) {
	m.focus = f
	m.syncInput()
}

// spinCmd starts the spinner tick loop if work is in flight and no loop is
// running.
func (m *Model) spinCmd() tea.Cmd {
	if !m.busy() || m.spinning {
		return nil
	}
	m.spinning = true
	return m.spinner.Tick
}

func (m Model) selected() (model.Session, bool) {
	if m.cursor < 0 || m.cursor >= len(m.sessionList) {
		return model.Session{}, false
	}
	return m.sessionList[m.cursor], true
}

func (m *Model) selectSession(id string) {
	for i, s := range m.sessionList {
		if s.ID == id {
			m.cursor = i
			return
		}
	}
}

func (m *Model) removeSession(id string) {
	out := make([]model.Session, 0, len(m.sessionList))
	for _, s := range m.sessionList {
		if s.ID != id {
			out = append(out, s)
		}
	}
	m.sessionList = out
	m.clampCursor()
}

func (m *Model) clampCursor() {
	if m.cursor >= len(m.sessionList) {
		m.cursor = len(m.sessionList) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

// sessionName returns the display name of the selected session.
func (m Model) sessionName() string {
	if m.snap.SessionID == "" {
		return "New chat"
	}
	for _, s := range m.sessionList {
		if s.ID == m.snap.SessionID {
			return s.DisplayName()
		}
	}
	return m.snap.SessionID
}

// Snapshot returns the engine state the view last rendered.
func (m Model) Snapshot() engine.Snapshot {
	return m.snap
}

// ModelID returns the model used for new messages.
func (m Model) ModelID() string {
	return m.modelID
}
