package tui

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"

	"github.com/vovakirdan/padclash/internal/config"
	"github.com/vovakirdan/padclash/internal/game"
	"github.com/vovakirdan/padclash/internal/multiplayer"
	"github.com/vovakirdan/padclash/internal/render"
	"github.com/vovakirdan/padclash/internal/wire"
)

// OnlineState represents the current state of the online matchmaking flow.
type OnlineState int

const (
	OnlineStateChooseMode    OnlineState = iota // Choose Host or Join
	OnlineStateHostWaiting                      // Hosting, waiting for joiner
	OnlineStateJoinEnterCode                    // Entering join code
	OnlineStateJoinWaiting                      // Waiting to connect to host
	OnlineStateInMatch                          // In active match
	OnlineStateMatchEnded                       // Match has ended
)

// OnlineModel handles matchmaking and then renders the match the server
// runs. Input goes to the coordinator as wire-encoded commands.
type OnlineModel struct {
	state       OnlineState
	width       int
	height      int
	sessionID   multiplayer.SessionID
	coordinator *multiplayer.Coordinator
	eventChan   <-chan multiplayer.SessionEvent
	arena       config.Arena
	holdTicks   int
	logger      *log.Logger

	// Host state
	lobbyCode string

	// Join state
	joinCodeInput string
	joinError     string

	// Match state
	matchID    multiplayer.MatchID
	side       game.PlayerID
	opponentID multiplayer.SessionID
	notice     string
	view       arenaView
	keys       GameKeyMap
	help       help.Model
	held       *HeldKeys
	lastTick   uint64
	score      multiplayer.Score
	ended      multiplayer.MatchEndedEvent

	backToMenu bool
	quitting   bool
}

// NewOnlineModel creates the online flow for one session.
func NewOnlineModel(
	cfg config.Config,
	sessionID multiplayer.SessionID,
	coordinator *multiplayer.Coordinator,
	eventChan <-chan multiplayer.SessionEvent,
	logger *log.Logger,
	width, height int,
) OnlineModel {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	m := OnlineModel{
		state:       OnlineStateChooseMode,
		width:       width,
		height:      height,
		sessionID:   sessionID,
		coordinator: coordinator,
		eventChan:   eventChan,
		arena:       cfg.Arena,
		holdTicks:   cfg.Match.InputHoldTicks,
		logger:      logger,
		keys:        DefaultGameKeyMap().online(),
		help:        help.New(),
	}
	m.help.Width = width
	return m
}

// Init initializes the lobby model.
func (m OnlineModel) Init() tea.Cmd {
	return m.waitForEvent()
}

// waitForEvent returns a command that waits for coordinator events.
func (m OnlineModel) waitForEvent() tea.Cmd {
	return func() tea.Msg {
		if m.eventChan == nil {
			return nil
		}
		evt, ok := <-m.eventChan
		if !ok {
			return nil
		}
		return evt
	}
}

// Update handles messages.
func (m OnlineModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.view.resize(msg.Width, msg.Height)
		m.help.Width = msg.Width
		return m, nil
	case FrameMsg:
		if m.state != OnlineStateInMatch || msg.Owner != string(m.matchID) {
			return m, nil
		}
		m.view.now = msg.Time
		return m, frameCmd(msg.Owner, m.view.tickRate)
	case multiplayer.LobbyCreatedEvent:
		m.lobbyCode = msg.Code
		m.state = OnlineStateHostWaiting
		return m, m.waitForEvent()
	case multiplayer.LobbyJoinedEvent:
		m.side = msg.Side
		m.opponentID = msg.OpponentID
		return m, m.waitForEvent()
	case multiplayer.LobbyErrorEvent:
		m.joinError = msg.Message
		if m.state == OnlineStateJoinWaiting {
			m.state = OnlineStateJoinEnterCode
		}
		return m, m.waitForEvent()
	case multiplayer.LobbyPlayerLeftEvent:
		// Host keeps waiting for someone else.
		return m, m.waitForEvent()
	case multiplayer.MatchStartedEvent:
		return m.startMatch(msg)
	case multiplayer.FrameEvent:
		return m.handleFrame(msg)
	case multiplayer.MatchEndedEvent:
		m.ended = msg
		m.score = msg.Score
		m.state = OnlineStateMatchEnded
		return m, m.waitForEvent()
	}
	return m, nil
}

func (m OnlineModel) startMatch(msg multiplayer.MatchStartedEvent) (tea.Model, tea.Cmd) {
	m.matchID = msg.MatchID
	m.side = msg.Side
	m.state = OnlineStateInMatch
	m.score = multiplayer.Score{}
	m.lastTick = 0
	m.held = NewHeldKeys(m.holdTicks)
	m.view = newArenaView(m.arena, msg.TickRate, m.width, m.height)
	m.notice = ""
	if msg.Fingerprint != m.arena.Fingerprint() {
		m.notice = "arena config differs from the server"
		m.logger.Warn("fingerprint mismatch", "match", msg.MatchID,
			"server", fmt.Sprintf("%016x", msg.Fingerprint),
			"local", fmt.Sprintf("%016x", m.arena.Fingerprint()))
	}
	return m, tea.Batch(m.waitForEvent(), frameCmd(string(msg.MatchID), msg.TickRate))
}

func (m OnlineModel) handleFrame(msg multiplayer.FrameEvent) (tea.Model, tea.Cmd) {
	if m.state != OnlineStateInMatch || msg.MatchID != m.matchID {
		return m, m.waitForEvent()
	}
	env, err := wire.Decode(msg.Frame)
	if err == nil {
		var d game.DisplayState
		if d, err = env.Display(); err == nil {
			m.view.push(d, time.Now())
		}
	}
	if err != nil {
		m.logger.Warn("bad frame", "match", m.matchID, "error", err)
	}
	m.lastTick = msg.Tick
	m.score = msg.Score
	for _, cmd := range m.held.Tick() {
		m.send(cmd)
	}
	return m, m.waitForEvent()
}

// send forwards a command stamped with the last tick this client saw.
func (m OnlineModel) send(cmd game.Command) {
	packet, err := wire.EncodeCommand(m.lastTick, m.side.Seat(), cmd)
	if err != nil {
		m.logger.Error("cannot encode command", "error", err)
		return
	}
	m.coordinator.Send(multiplayer.PlayerInputMsg{
		MatchID:   m.matchID,
		SessionID: m.sessionID,
		Packet:    packet,
	})
}

func (m OnlineModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Global quit
	if msg.String() == "ctrl+c" {
		m.leave()
		m.quitting = true
		return m, tea.Quit
	}

	switch m.state {
	case OnlineStateChooseMode:
		return m.handleChooseModeKey(msg)
	case OnlineStateHostWaiting:
		return m.handleHostWaitingKey(msg)
	case OnlineStateJoinEnterCode:
		return m.handleJoinCodeKey(msg)
	case OnlineStateJoinWaiting:
		return m.handleJoinWaitingKey(msg)
	case OnlineStateInMatch:
		return m.handleMatchKey(msg)
	case OnlineStateMatchEnded:
		if MapKeyToMenuAction(msg) != MenuActionNone {
			m.backToMenu = true
		}
	}
	return m, nil
}

// leave tells the coordinator this session is gone from wherever it is.
func (m OnlineModel) leave() {
	switch m.state {
	case OnlineStateHostWaiting:
		m.coordinator.Send(multiplayer.CancelLobbyMsg{SessionID: m.sessionID, Code: m.lobbyCode})
	case OnlineStateJoinWaiting:
		m.coordinator.Send(multiplayer.LeaveLobbyMsg{SessionID: m.sessionID, Code: m.joinCodeInput})
	case OnlineStateInMatch:
		m.coordinator.Send(multiplayer.LeaveMatchMsg{SessionID: m.sessionID, MatchID: m.matchID})
	}
}

func (m OnlineModel) handleMatchKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Back):
		// The match ends for both players; wait for the end event.
		m.leave()
		return m, nil
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil
	}
	if field, ok := m.keys.Online(msg); ok {
		if cmd, changed := m.held.Press(m.side, field); changed {
			m.send(cmd)
		}
	}
	return m, nil
}

func (m OnlineModel) handleChooseModeKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "h", "H", "1":
		m.coordinator.Send(multiplayer.CreateLobbyMsg{SessionID: m.sessionID})
		return m, nil
	case "j", "J", "2":
		m.state = OnlineStateJoinEnterCode
		m.joinCodeInput = ""
		m.joinError = ""
		return m, nil
	case "esc", "b":
		m.backToMenu = true
		return m, nil
	case "q":
		m.quitting = true
		return m, tea.Quit
	}
	return m, nil
}

func (m OnlineModel) handleHostWaitingKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "b":
		m.leave()
		m.backToMenu = true
		return m, nil
	case "q":
		m.leave()
		m.quitting = true
		return m, tea.Quit
	}
	return m, nil
}

func (m OnlineModel) handleJoinCodeKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	pressed := msg.String()

	switch pressed {
	case "esc":
		m.backToMenu = true
		return m, nil
	case "enter":
		if m.joinCodeInput != "" {
			m.state = OnlineStateJoinWaiting
			m.joinError = ""
			m.coordinator.Send(multiplayer.JoinLobbyMsg{
				SessionID: m.sessionID,
				Code:      m.joinCodeInput,
			})
		}
	case "backspace":
		if m.joinCodeInput != "" {
			m.joinCodeInput = m.joinCodeInput[:len(m.joinCodeInput)-1]
		}
	default:
		// Accept alphanumeric input for code
		if len(pressed) == 1 && len(m.joinCodeInput) < 6 {
			c := strings.ToUpper(pressed)
			if (c[0] >= 'A' && c[0] <= 'Z') || (c[0] >= '0' && c[0] <= '9') {
				m.joinCodeInput += c
			}
		}
	}
	return m, nil
}

func (m OnlineModel) handleJoinWaitingKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "esc" {
		m.leave()
		m.state = OnlineStateJoinEnterCode
	}
	return m, nil
}

// View renders the current state.
func (m OnlineModel) View() string {
	if m.quitting {
		return ""
	}

	switch m.state {
	case OnlineStateChooseMode:
		return m.viewChooseMode()
	case OnlineStateHostWaiting:
		return m.viewHostWaiting()
	case OnlineStateJoinEnterCode:
		return m.viewJoinEnterCode()
	case OnlineStateJoinWaiting:
		return m.viewJoinWaiting()
	case OnlineStateInMatch:
		hud := render.HUD{Score: m.score, Message: m.notice}
		return m.view.render(hud) + "\n" + m.help.View(m.keys)
	case OnlineStateMatchEnded:
		return m.viewMatchEnded()
	}
	return ""
}

func (m OnlineModel) viewChooseMode() string {
	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(centerText("ONLINE MATCH", m.width))
	b.WriteString("\n\n")
	b.WriteString(centerText("[H] Host a match", m.width))
	b.WriteString("\n")
	b.WriteString(centerText("[J] Join a match", m.width))
	b.WriteString("\n\n")
	b.WriteString(centerText("Esc: Back  |  Q: Quit", m.width))
	return b.String()
}

func (m OnlineModel) viewHostWaiting() string {
	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(centerText("HOSTING", m.width))
	b.WriteString("\n\n")
	b.WriteString(centerText("Share this code with your opponent:", m.width))
	b.WriteString("\n\n")
	b.WriteString(centerText(fmt.Sprintf("[ %s ]", m.lobbyCode), m.width))
	b.WriteString("\n\n")
	b.WriteString(centerText("Waiting for player to join...", m.width))
	b.WriteString("\n\n")
	b.WriteString(centerText("Esc: Cancel  |  Q: Quit", m.width))
	return b.String()
}

func (m OnlineModel) viewJoinEnterCode() string {
	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(centerText("JOIN MATCH", m.width))
	b.WriteString("\n\n")
	b.WriteString(centerText("Enter the match code:", m.width))
	b.WriteString("\n\n")

	codeDisplay := m.joinCodeInput
	if len(codeDisplay) < 6 {
		codeDisplay += "_" + strings.Repeat(" ", 5-len(m.joinCodeInput))
	}
	b.WriteString(centerText(fmt.Sprintf("[ %s ]", codeDisplay), m.width))
	b.WriteString("\n")

	if m.joinError != "" {
		b.WriteString("\n")
		b.WriteString(centerText(fmt.Sprintf("Error: %s", m.joinError), m.width))
	}

	b.WriteString("\n\n")
	b.WriteString(centerText("Enter: Connect  |  Esc: Back", m.width))
	return b.String()
}

func (m OnlineModel) viewJoinWaiting() string {
	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(centerText("CONNECTING", m.width))
	b.WriteString("\n\n")
	b.WriteString(centerText(fmt.Sprintf("Joining match: %s", m.joinCodeInput), m.width))
	b.WriteString("\n\n")
	b.WriteString(centerText("Esc: Cancel", m.width))
	return b.String()
}

func (m OnlineModel) viewMatchEnded() string {
	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(centerText("MATCH OVER", m.width))
	b.WriteString("\n\n")
	b.WriteString(centerText(m.ended.Reason.String(), m.width))
	b.WriteString("\n")

	outcome := resultText(m.score)
	if m.ended.HasWinner {
		if m.ended.Winner == m.side {
			outcome = fmt.Sprintf("You win %d-%d", m.score[m.side.Seat()], m.score[m.side.Opponent().Seat()])
		} else {
			outcome = fmt.Sprintf("You lose %d-%d", m.score[m.side.Seat()], m.score[m.side.Opponent().Seat()])
		}
	}
	b.WriteString(centerText(outcome, m.width))
	b.WriteString("\n\n")
	b.WriteString(centerText("Esc: Back", m.width))
	return b.String()
}

// Reset returns the model to the host/join choice. The event listener
// started by Init keeps running, so one OnlineModel serves a session for
// its whole lifetime.
func (m OnlineModel) Reset() OnlineModel {
	return OnlineModel{
		state:       OnlineStateChooseMode,
		width:       m.width,
		height:      m.height,
		sessionID:   m.sessionID,
		coordinator: m.coordinator,
		eventChan:   m.eventChan,
		arena:       m.arena,
		holdTicks:   m.holdTicks,
		logger:      m.logger,
		keys:        m.keys,
		help:        m.help,
	}
}

// State returns the current online state.
func (m OnlineModel) State() OnlineState { return m.state }

// BackToMenu returns true if user wants to go back to menu.
func (m OnlineModel) BackToMenu() bool { return m.backToMenu }

// IsQuitting returns true if user wants to quit entirely.
func (m OnlineModel) IsQuitting() bool { return m.quitting }

// MatchID returns the match ID if a match was started.
func (m OnlineModel) MatchID() multiplayer.MatchID { return m.matchID }

// Side returns which player this session controls.
func (m OnlineModel) Side() game.PlayerID { return m.side }

// LobbyCode returns the lobby code.
func (m OnlineModel) LobbyCode() string { return m.lobbyCode }
