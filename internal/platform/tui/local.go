package tui

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"

	"github.com/vovakirdan/padclash/internal/config"
	"github.com/vovakirdan/padclash/internal/game"
	"github.com/vovakirdan/padclash/internal/multiplayer"
	"github.com/vovakirdan/padclash/internal/render"
)

// LocalModel is a hot-seat match: both players share one keyboard and the
// world is stepped in-process.
type LocalModel struct {
	cfg     config.Config
	world   *game.World
	view    arenaView
	keys    GameKeyMap
	help    help.Model
	held    *HeldKeys
	pending []game.Command

	matchID string
	rec     *multiplayer.Recording
	logger  *log.Logger

	score  multiplayer.Score
	rounds int
	over   bool

	quitting   bool
	backToMenu bool
}

// NewLocalModel creates a local match. rec may be nil.
func NewLocalModel(cfg config.Config, rec multiplayer.MatchRecorder, logger *log.Logger, width, height int) (LocalModel, error) {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	if cfg.Match.TickRate <= 0 {
		return LocalModel{}, fmt.Errorf("tui: tick rate must be positive, got %d", cfg.Match.TickRate)
	}
	world, err := game.New(cfg.Arena, game.WithLogger(logger))
	if err != nil {
		return LocalModel{}, fmt.Errorf("tui: cannot create world: %w", err)
	}

	m := LocalModel{
		cfg:     cfg,
		world:   world,
		view:    newArenaView(cfg.Arena, cfg.Match.TickRate, width, height),
		keys:    DefaultGameKeyMap(),
		help:    help.New(),
		held:    NewHeldKeys(cfg.Match.InputHoldTicks),
		matchID: fmt.Sprintf("local-%d", time.Now().UnixNano()),
		logger:  logger,
	}
	m.help.Width = width
	m.view.push(world.DisplayState(), time.Time{})
	m.rec = multiplayer.NewRecording(rec, multiplayer.MatchStartData{
		MatchID:     m.matchID,
		Mode:        multiplayer.MatchModeLocal.String(),
		Fingerprint: cfg.Arena.Fingerprint(),
	}, logger)
	return m, nil
}

// Init starts the tick and frame loops.
func (m LocalModel) Init() tea.Cmd {
	return tea.Batch(tickCmd(m.matchID, m.cfg.Match.TickRate), frameCmd(m.matchID, m.cfg.Match.TickRate))
}

// Update handles messages.
func (m LocalModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.view.resize(msg.Width, msg.Height)
		m.help.Width = msg.Width
		return m, nil

	case TickMsg:
		if msg.Owner != m.matchID || m.over || m.quitting || m.backToMenu {
			return m, nil
		}
		m.tick(msg.Time)
		return m, tickCmd(m.matchID, m.cfg.Match.TickRate)

	case FrameMsg:
		if msg.Owner != m.matchID {
			return m, nil
		}
		m.view.now = msg.Time
		if m.over || m.quitting || m.backToMenu {
			return m, nil
		}
		return m, frameCmd(m.matchID, m.cfg.Match.TickRate)
	}
	return m, nil
}

func (m LocalModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.finish(multiplayer.MatchEndReasonCancelled)
		m.quitting = true
		return m, tea.Quit
	case key.Matches(msg, m.keys.Back):
		m.finish(multiplayer.MatchEndReasonCancelled)
		m.backToMenu = true
		return m, nil
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil
	}

	if m.over {
		return m, nil
	}
	if player, field, ok := m.keys.Local(msg); ok {
		if cmd, changed := m.held.Press(player, field); changed {
			m.pending = append(m.pending, cmd)
		}
	}
	return m, nil
}

// tick applies queued presses and expired holds, then steps the world.
func (m *LocalModel) tick(now time.Time) {
	tick := m.world.Tick()
	if every := m.cfg.Match.KeyframeEvery; every > 0 && tick%uint64(every) == 0 { //nolint:gosec // positive
		m.rec.Keyframe(m.world.Snapshot())
	}

	cmds := append(m.pending, m.held.Tick()...)
	m.pending = nil
	for _, cmd := range cmds {
		m.world.ApplyCommand(cmd)
		m.rec.Command(tick, cmd)
	}

	res := m.world.Step()
	m.view.push(m.world.DisplayState(), now)
	if m.score.Record(res) {
		m.rounds++
	}
	if limit := m.cfg.Match.RoundLimit; limit > 0 && m.rounds >= limit {
		m.over = true
		m.finish(multiplayer.MatchEndReasonCompleted)
	}
}

// finish closes the recording once.
func (m *LocalModel) finish(reason multiplayer.MatchEndReason) {
	if m.rec == nil {
		return
	}
	m.rec.Finish(multiplayer.MatchResultData{
		EndReason: reason.String(),
		Rounds:    m.rounds,
		Ticks:     m.world.Tick(),
		FinalHash: m.world.Snapshot().Hash(),
		Score1:    m.score[0],
		Score2:    m.score[1],
	})
	m.rec = nil
	m.logger.Info("local match ended", "match", m.matchID, "reason", reason, "ticks", m.world.Tick())
}

// View renders the arena and help bar.
func (m LocalModel) View() string {
	if m.quitting {
		return ""
	}
	hud := render.HUD{Score: m.score}
	if m.over {
		hud.Message = resultText(m.score) + "  (esc: back)"
	}
	return m.view.render(hud) + "\n" + m.help.View(m.keys)
}

// MatchID returns the recording identifier.
func (m LocalModel) MatchID() string { return m.matchID }

// IsOver reports whether the round limit was reached.
func (m LocalModel) IsOver() bool { return m.over }

// IsQuitting returns true if user requested to quit entirely.
func (m LocalModel) IsQuitting() bool { return m.quitting }

// BackToMenu returns true if user requested to go back to menu.
func (m LocalModel) BackToMenu() bool { return m.backToMenu }
