package multiplayer

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/vovakirdan/padclash/internal/config"
	"github.com/vovakirdan/padclash/internal/game"
	"github.com/vovakirdan/padclash/internal/rollback"
	"github.com/vovakirdan/padclash/internal/wire"
)

// MatchConfig holds the rules an online match runs with.
type MatchConfig struct {
	Arena          config.Arena
	TickRate       int
	RoundLimit     int // 0 = play until someone leaves
	RollbackWindow int
	KeyframeEvery  int // 0 = no keyframes
}

// MatchConfigFrom extracts match settings from a loaded config.
func MatchConfigFrom(cfg config.Config) MatchConfig {
	return MatchConfig{
		Arena:          cfg.Arena,
		TickRate:       cfg.Match.TickRate,
		RoundLimit:     cfg.Match.RoundLimit,
		RollbackWindow: cfg.Match.RollbackWindow,
		KeyframeEvery:  cfg.Match.KeyframeEvery,
	}
}

// MatchResult contains the outcome of a finished match.
type MatchResult struct {
	MatchID   MatchID
	Reason    MatchEndReason
	Winner    PlayerID
	HasWinner bool
	Score     Score
	Rounds    int
	Ticks     uint64
	FinalHash uint64
}

// MatchOption configures an OnlineMatch.
type MatchOption func(*OnlineMatch)

// WithRecorder records the match. Recording starts when Run is called.
func WithRecorder(rec MatchRecorder) MatchOption {
	return func(m *OnlineMatch) { m.recorder = rec }
}

// WithMatchLogger sets the match logger.
func WithMatchLogger(l *log.Logger) MatchOption {
	return func(m *OnlineMatch) {
		if l != nil {
			m.logger = l
		}
	}
}

// OnlineMatch is an authoritative match between two sessions. Only the Run
// goroutine touches the simulation; everything else talks to it through
// channels.
type OnlineMatch struct {
	id       MatchID
	code     string
	cfg      MatchConfig
	timeline *rollback.Timeline
	sessions [2]SessionHandle

	score  Score
	rounds int

	recorder MatchRecorder
	rec      *Recording
	logger   *log.Logger

	inputChan      chan packet
	disconnectChan chan SessionID
	done           chan struct{}
	doneOnce       sync.Once
}

type packet struct {
	session SessionID
	data    []byte
}

// NewOnlineMatch creates a match. The first session plays Player1.
func NewOnlineMatch(id MatchID, code string, cfg MatchConfig, p1, p2 SessionHandle, opts ...MatchOption) (*OnlineMatch, error) {
	m := &OnlineMatch{
		id:             id,
		code:           code,
		cfg:            cfg,
		sessions:       [2]SessionHandle{p1, p2},
		logger:         log.New(io.Discard),
		inputChan:      make(chan packet, 64),
		disconnectChan: make(chan SessionID, 2),
		done:           make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.cfg.TickRate <= 0 {
		return nil, fmt.Errorf("multiplayer: tick rate must be positive, got %d", m.cfg.TickRate)
	}

	world, err := game.New(cfg.Arena, game.WithLogger(m.logger))
	if err != nil {
		return nil, fmt.Errorf("multiplayer: cannot create world: %w", err)
	}
	m.timeline = rollback.NewTimeline(world, cfg.RollbackWindow,
		rollback.WithLogger(m.logger),
		rollback.WithRewindHook(m.rescore),
	)
	return m, nil
}

// rescore swaps the results of resimulated ticks in the score, so a late
// command that causes or prevents a death moves the score with the world.
func (m *OnlineMatch) rescore(rw rollback.Rewind) {
	for _, res := range rw.Replaced {
		if m.score.Revert(res) {
			m.rounds--
		}
	}
	for _, res := range rw.Replayed {
		if m.score.Record(res) {
			m.rounds++
		}
	}
}

// ID returns the match identifier.
func (m *OnlineMatch) ID() MatchID {
	return m.id
}

// Code returns the join code used to create this match.
func (m *OnlineMatch) Code() string {
	return m.code
}

// Sessions returns the sessions in seat order.
func (m *OnlineMatch) Sessions() [2]SessionHandle {
	return m.sessions
}

// SendInput passes a wire-encoded command from a session to the match.
// Non-blocking, uses a buffered channel.
func (m *OnlineMatch) SendInput(session SessionID, data []byte) {
	select {
	case m.inputChan <- packet{session: session, data: data}:
	default:
		m.logger.Warn("input queue full, dropping packet", "match", m.id, "session", session)
	}
}

// PlayerDisconnected signals that a player has disconnected.
func (m *OnlineMatch) PlayerDisconnected(sessionID SessionID) {
	select {
	case m.disconnectChan <- sessionID:
	default:
	}
}

// Run starts the authoritative match loop and blocks until the match ends.
// The callback is called with the result.
func (m *OnlineMatch) Run(onComplete func(MatchResult)) {
	defer m.Stop()

	m.rec = NewRecording(m.recorder, MatchStartData{
		MatchID:        string(m.id),
		Mode:           MatchModeOnline.String(),
		Fingerprint:    m.cfg.Arena.Fingerprint(),
		Player1Session: string(m.sessions[0].ID()),
		Player2Session: string(m.sessions[1].ID()),
	}, m.logger)

	ticker := time.NewTicker(time.Second / time.Duration(m.cfg.TickRate))
	defer ticker.Stop()

	go m.monitorSessions()

	for {
		select {
		case <-ticker.C:
			if result, done := m.runTick(); done {
				m.finish(result, onComplete)
				return
			}

		case sessionID := <-m.disconnectChan:
			m.finish(m.handleDisconnect(sessionID), onComplete)
			return

		case <-m.done:
			m.finish(m.result(MatchEndReasonCancelled), onComplete)
			return
		}
	}
}

func (m *OnlineMatch) finish(result MatchResult, onComplete func(MatchResult)) {
	m.rec.Finish(MatchResultData{
		EndReason: result.Reason.String(),
		Rounds:    result.Rounds,
		Ticks:     result.Ticks,
		FinalHash: result.FinalHash,
		Score1:    result.Score[0],
		Score2:    result.Score[1],
	})
	m.logger.Info("match ended",
		"match", m.id,
		"reason", result.Reason,
		"ticks", result.Ticks,
		"score", fmt.Sprintf("%d-%d", result.Score[0], result.Score[1]),
	)
	if onComplete != nil {
		onComplete(result)
	}
}

// runTick advances the match by one tick. A panic from the simulation
// means its state can no longer be trusted and ends the match.
func (m *OnlineMatch) runTick() (result MatchResult, done bool) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("simulation panicked", "match", m.id, "tick", m.timeline.Tick(), "panic", r)
			result, done = m.result(MatchEndReasonDesync), true
		}
	}()

	m.drainInputs()

	res := m.timeline.Advance()
	if m.score.Record(res) {
		m.rounds++
	}
	m.saveKeyframe()
	m.broadcast(res.Tick)

	if m.cfg.RoundLimit > 0 && m.rounds >= m.cfg.RoundLimit {
		return m.result(MatchEndReasonCompleted), true
	}
	return MatchResult{}, false
}

func (m *OnlineMatch) drainInputs() {
	for {
		select {
		case p := <-m.inputChan:
			m.handlePacket(p)
		default:
			return
		}
	}
}

func (m *OnlineMatch) handlePacket(p packet) {
	seat := m.seatOf(p.session)
	if seat < 0 {
		m.logger.Warn("packet from a session outside the match", "match", m.id, "session", p.session)
		return
	}
	env, err := wire.Decode(p.data)
	if err != nil {
		m.logger.Warn("undecodable packet", "match", m.id, "session", p.session, "error", err)
		return
	}
	cmd, err := env.Command()
	if err != nil {
		m.logger.Warn("unexpected packet", "match", m.id, "session", p.session, "error", err)
		return
	}
	if !game.IsValid(cmd, seat) {
		m.logger.Warn("rejected command", "match", m.id, "session", p.session, "seat", seat, "command", cmd)
		return
	}

	tick := m.scheduleTick(env.Tick)
	if err := m.timeline.Submit(tick, cmd); err != nil {
		m.logger.Warn("command not scheduled", "match", m.id, "error", err)
		return
	}
	m.rec.Command(tick, cmd)
}

// scheduleTick picks the tick a command lands on. Clients stamp commands
// with the last tick they saw; anything outside the rewind window, or
// claiming to be from the future, is applied now instead.
func (m *OnlineMatch) scheduleTick(hint uint64) uint64 {
	now := m.timeline.Tick()
	if hint > now || hint < m.timeline.Oldest() {
		return now
	}
	return hint
}

func (m *OnlineMatch) seatOf(id SessionID) int {
	for seat, s := range m.sessions {
		if s.ID() == id {
			return seat
		}
	}
	return -1
}

// saveKeyframe records the oldest snapshot in the rewind window: no late
// command can change it any more.
func (m *OnlineMatch) saveKeyframe() {
	every := uint64(m.cfg.KeyframeEvery) //nolint:gosec // validated non-negative
	if m.rec == nil || every == 0 || m.timeline.Tick() < uint64(m.timeline.HistoryLen()) {
		return
	}
	oldest := m.timeline.Oldest()
	if oldest%every != 0 {
		return
	}
	if snap, ok := m.timeline.Snapshot(oldest); ok {
		m.rec.Keyframe(snap)
	}
}

func (m *OnlineMatch) broadcast(tick uint64) {
	frame, err := wire.EncodeDisplay(tick, m.timeline.World().DisplayState())
	if err != nil {
		m.logger.Error("cannot encode frame", "match", m.id, "error", err)
		return
	}
	evt := FrameEvent{MatchID: m.id, Tick: tick, Score: m.score, Frame: frame}
	for _, s := range m.sessions {
		s.Send(evt)
	}
}

func (m *OnlineMatch) result(reason MatchEndReason) MatchResult {
	r := MatchResult{
		MatchID:   m.id,
		Reason:    reason,
		Score:     m.score,
		Rounds:    m.rounds,
		Ticks:     m.timeline.Tick(),
		FinalHash: m.finalHash(),
	}
	r.Winner, r.HasWinner = m.score.Leader()
	return r
}

// finalHash returns 0 if the world is too broken to snapshot.
func (m *OnlineMatch) finalHash() (h uint64) {
	defer func() {
		if recover() != nil {
			h = 0
		}
	}()
	return m.timeline.World().Snapshot().Hash()
}

func (m *OnlineMatch) handleDisconnect(sessionID SessionID) MatchResult {
	r := m.result(MatchEndReasonDisconnect)
	if seat := m.seatOf(sessionID); seat >= 0 {
		r.Winner, r.HasWinner = game.Players[seat].Opponent(), true
	}
	return r
}

func (m *OnlineMatch) monitorSessions() {
	select {
	case <-m.sessions[0].Done():
		m.PlayerDisconnected(m.sessions[0].ID())
	case <-m.sessions[1].Done():
		m.PlayerDisconnected(m.sessions[1].ID())
	case <-m.done:
	}
}

// Stop ends the match loop. Safe to call multiple times.
func (m *OnlineMatch) Stop() {
	m.doneOnce.Do(func() {
		close(m.done)
	})
}
