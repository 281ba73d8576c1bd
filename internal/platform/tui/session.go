package tui

import (
	"fmt"
	"io"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"

	"github.com/vovakirdan/padclash/internal/config"
	"github.com/vovakirdan/padclash/internal/multiplayer"
	"github.com/vovakirdan/padclash/internal/storage"
)

// Options configures a SessionModel.
type Options struct {
	Config config.Config

	// Store records local matches and backs the history screen. Nil
	// disables both.
	Store *storage.Store

	Logger *log.Logger

	// Coordinator enables online play. Events must carry the session's
	// coordinator events when it is set.
	Coordinator *multiplayer.Coordinator
	SessionID   multiplayer.SessionID
	Events      <-chan multiplayer.SessionEvent

	Width  int
	Height int

	// Start opens a screen directly instead of the menu.
	Start Screen
}

// SessionModel manages the full padclash session flow: menu -> screen -> menu.
// This is the top-level model for both local terminals and SSH sessions.
type SessionModel struct {
	opts   Options
	screen Screen

	menu    MenuModel
	local   LocalModel
	history HistoryModel

	// online is created once; its event listener outlives each visit.
	online        OnlineModel
	onlineStarted bool

	quitting bool
}

// NewSessionModel creates a new session model.
func NewSessionModel(opts Options) SessionModel {
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}
	return SessionModel{
		opts:   opts,
		screen: ScreenMenu,
		menu:   NewMenuModel(opts.Coordinator != nil, opts.Width, opts.Height),
	}
}

// Init initializes the session.
func (m SessionModel) Init() tea.Cmd {
	if m.opts.Start == ScreenMenu {
		return m.menu.Init()
	}
	// Init cannot return a changed model, so the first screen is opened
	// through a message.
	start := m.opts.Start
	return func() tea.Msg { return openScreenMsg(start) }
}

type openScreenMsg Screen

// Update handles messages for the session.
func (m SessionModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.opts.Width = msg.Width
		m.opts.Height = msg.Height
		if m.onlineStarted && m.screen != ScreenOnline {
			next, _ := m.online.Update(msg)
			m.online = next.(OnlineModel)
		}
	case openScreenMsg:
		return m.open(Screen(msg))
	case multiplayer.SessionEvent:
		// Coordinator events belong to the online model whatever screen
		// is showing, or its listener would stop.
		if !m.onlineStarted {
			return m, nil
		}
		next, cmd := m.online.Update(msg)
		m.online = next.(OnlineModel)
		return m.afterOnline(cmd)
	}

	switch m.screen {
	case ScreenLocal:
		next, cmd := m.local.Update(msg)
		m.local = next.(LocalModel)
		if m.local.IsQuitting() {
			m.quitting = true
			return m, tea.Quit
		}
		if m.local.BackToMenu() {
			return m.backToMenu("")
		}
		return m, cmd

	case ScreenOnline:
		next, cmd := m.online.Update(msg)
		m.online = next.(OnlineModel)
		return m.afterOnline(cmd)

	case ScreenHistory:
		next, cmd := m.history.Update(msg)
		m.history = next.(HistoryModel)
		if m.history.IsQuitting() {
			m.quitting = true
			return m, tea.Quit
		}
		if m.history.IsGoingBack() {
			return m.backToMenu("")
		}
		return m, cmd
	}

	next, cmd := m.menu.Update(msg)
	m.menu = next.(MenuModel)
	if m.menu.IsQuitting() {
		m.quitting = true
		return m, tea.Quit
	}
	if selected := m.menu.Selected(); selected != nil {
		return m.open(selected.Screen)
	}
	return m, cmd
}

func (m SessionModel) afterOnline(cmd tea.Cmd) (tea.Model, tea.Cmd) {
	if m.screen != ScreenOnline {
		return m, cmd
	}
	if m.online.IsQuitting() {
		m.quitting = true
		return m, tea.Quit
	}
	if m.online.BackToMenu() {
		m.online = m.online.Reset()
		next, menuCmd := m.backToMenu("")
		return next, tea.Batch(cmd, menuCmd)
	}
	return m, cmd
}

// open switches to a screen.
func (m SessionModel) open(screen Screen) (tea.Model, tea.Cmd) {
	w, h := m.opts.Width, m.opts.Height
	switch screen {
	case ScreenLocal:
		local, err := NewLocalModel(m.opts.Config, m.recorder(), m.opts.Logger, w, h)
		if err != nil {
			m.opts.Logger.Error("cannot start local match", "error", err)
			return m.backToMenu(fmt.Sprintf("cannot start match: %v", err))
		}
		m.local = local
		m.screen = ScreenLocal
		return m, m.local.Init()

	case ScreenOnline:
		if m.opts.Coordinator == nil {
			return m.backToMenu("online play is not available here")
		}
		m.screen = ScreenOnline
		if m.onlineStarted {
			m.online = m.online.Reset()
			next, _ := m.online.Update(tea.WindowSizeMsg{Width: w, Height: h})
			m.online = next.(OnlineModel)
			return m, nil
		}
		m.online = NewOnlineModel(m.opts.Config, m.opts.SessionID, m.opts.Coordinator, m.opts.Events, m.opts.Logger, w, h)
		m.onlineStarted = true
		return m, m.online.Init()

	case ScreenHistory:
		m.history = NewHistoryModel(m.opts.Store, w, h)
		m.screen = ScreenHistory
		return m, m.history.Init()
	}
	return m.backToMenu("")
}

func (m SessionModel) backToMenu(notice string) (tea.Model, tea.Cmd) {
	m.screen = ScreenMenu
	m.menu = NewMenuModel(m.opts.Coordinator != nil, m.opts.Width, m.opts.Height).WithNotice(notice)
	return m, m.menu.Init()
}

// recorder avoids handing a typed nil store to the recording layer.
func (m SessionModel) recorder() multiplayer.MatchRecorder {
	if m.opts.Store == nil {
		return nil
	}
	return m.opts.Store
}

// View renders the current view.
func (m SessionModel) View() string {
	if m.quitting {
		return ""
	}
	switch m.screen {
	case ScreenLocal:
		return m.local.View()
	case ScreenOnline:
		return m.online.View()
	case ScreenHistory:
		return m.history.View()
	}
	return m.menu.View()
}

// Screen returns the screen currently shown.
func (m SessionModel) Screen() Screen { return m.screen }

// IsQuitting returns true if the session is over.
func (m SessionModel) IsQuitting() bool { return m.quitting }

// Run starts a session in the current terminal.
func Run(opts Options) error {
	p := tea.NewProgram(NewSessionModel(opts), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
