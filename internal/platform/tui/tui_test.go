package tui

import (
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/vovakirdan/padclash/internal/config"
	"github.com/vovakirdan/padclash/internal/game"
	"github.com/vovakirdan/padclash/internal/multiplayer"
	"github.com/vovakirdan/padclash/internal/storage"
)

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestHeldKeys(t *testing.T) {
	h := NewHeldKeys(2)

	cmd, changed := h.Press(game.Player1, game.FieldRight)
	if !changed || cmd != game.Input(game.Player1, game.FieldRight, true) {
		t.Fatalf("first press = %+v, %v", cmd, changed)
	}
	if _, changed := h.Press(game.Player1, game.FieldRight); changed {
		t.Error("repeat press of a held key produced a command")
	}

	if out := h.Tick(); len(out) != 0 {
		t.Errorf("tick 1 released %v", out)
	}
	out := h.Tick()
	if len(out) != 1 || out[0] != game.Input(game.Player1, game.FieldRight, false) {
		t.Errorf("tick 2 = %v, want one release", out)
	}
	if h.Held(game.Player1, game.FieldRight) {
		t.Error("key still held after release")
	}
}

func TestHeldKeysOneTickHold(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Match.InputHoldTicks = 1
	m, err := NewLocalModel(cfg, nil, nil, 80, 24)
	if err != nil {
		t.Fatal(err)
	}

	next, _ := m.Update(runes("d"))
	m = next.(LocalModel)
	m.tick(time.Now())
	if !m.world.Player(game.Player1).Input().Right {
		t.Fatal("a one-tick press never reached the world")
	}
	m.tick(time.Now())
	if m.world.Player(game.Player1).Input().Right {
		t.Error("key still pressed a tick after its hold ran out")
	}
}

func TestHeldKeysReleaseOrder(t *testing.T) {
	h := NewHeldKeys(0)
	h.Press(game.Player2, game.FieldAction)
	h.Press(game.Player1, game.FieldRight)
	h.Press(game.Player1, game.FieldAction)

	want := []game.Command{
		game.Input(game.Player1, game.FieldAction, false),
		game.Input(game.Player1, game.FieldRight, false),
		game.Input(game.Player2, game.FieldAction, false),
	}
	if out := h.Tick(); len(out) != 0 {
		t.Fatalf("Tick() in the press tick = %v, want nothing", out)
	}
	got := h.Tick()
	if len(got) != len(want) {
		t.Fatalf("Tick() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("release %d = %+v, want %+v", i, got[i], want[i])
		}
	}

	h.Press(game.Player1, game.FieldLeft)
	h.Reset()
	if out := h.Tick(); len(out) != 0 {
		t.Errorf("Tick() after Reset = %v", out)
	}
}

func TestGameKeyMapLocal(t *testing.T) {
	keys := DefaultGameKeyMap()
	tests := []struct {
		msg    tea.KeyMsg
		player game.PlayerID
		field  game.InputField
		ok     bool
	}{
		{runes("a"), game.Player1, game.FieldLeft, true},
		{runes("d"), game.Player1, game.FieldRight, true},
		{runes("w"), game.Player1, game.FieldAction, true},
		{tea.KeyMsg{Type: tea.KeyLeft}, game.Player2, game.FieldLeft, true},
		{tea.KeyMsg{Type: tea.KeyRight}, game.Player2, game.FieldRight, true},
		{tea.KeyMsg{Type: tea.KeyUp}, game.Player2, game.FieldAction, true},
		{runes("x"), 0, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.msg.String(), func(t *testing.T) {
			p, f, ok := keys.Local(tt.msg)
			if ok != tt.ok || (ok && (p != tt.player || f != tt.field)) {
				t.Errorf("Local(%q) = %v %v %v, want %v %v %v", tt.msg, p, f, ok, tt.player, tt.field, tt.ok)
			}
		})
	}
}

func TestGameKeyMapOnline(t *testing.T) {
	keys := DefaultGameKeyMap().online()
	tests := []struct {
		msg   tea.KeyMsg
		field game.InputField
	}{
		{runes("a"), game.FieldLeft},
		{tea.KeyMsg{Type: tea.KeyLeft}, game.FieldLeft},
		{tea.KeyMsg{Type: tea.KeyRight}, game.FieldRight},
		{tea.KeyMsg{Type: tea.KeyUp}, game.FieldAction},
		{runes("w"), game.FieldAction},
	}
	for _, tt := range tests {
		field, ok := keys.Online(tt.msg)
		if !ok || field != tt.field {
			t.Errorf("Online(%q) = %v %v, want %v", tt.msg, field, ok, tt.field)
		}
	}
}

func TestMapKeyToMenuAction(t *testing.T) {
	tests := []struct {
		msg  tea.KeyMsg
		want MenuAction
	}{
		{tea.KeyMsg{Type: tea.KeyCtrlC}, MenuActionQuit},
		{runes("q"), MenuActionQuit},
		{tea.KeyMsg{Type: tea.KeyUp}, MenuActionUp},
		{runes("j"), MenuActionDown},
		{tea.KeyMsg{Type: tea.KeyEnter}, MenuActionSelect},
		{tea.KeyMsg{Type: tea.KeyEsc}, MenuActionBack},
		{runes("z"), MenuActionNone},
	}
	for _, tt := range tests {
		if got := MapKeyToMenuAction(tt.msg); got != tt.want {
			t.Errorf("MapKeyToMenuAction(%q) = %v, want %v", tt.msg, got, tt.want)
		}
	}
}

type fakeRecorder struct {
	mu       sync.Mutex
	started  []multiplayer.MatchStartData
	commands []game.Command
	results  []multiplayer.MatchResultData
}

func (f *fakeRecorder) StartRecording(d multiplayer.MatchStartData) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.started = append(f.started, d)
	return nil
}

func (f *fakeRecorder) RecordCommand(_ string, _ uint64, cmd game.Command) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.commands = append(f.commands, cmd)
	return nil
}

func (f *fakeRecorder) SaveKeyframe(string, game.Snapshot) error { return nil }

func (f *fakeRecorder) SaveMatchResult(d multiplayer.MatchResultData) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.results = append(f.results, d)
	return nil
}

func newLocal(t *testing.T, cfg config.Config, rec multiplayer.MatchRecorder) LocalModel {
	t.Helper()
	m, err := NewLocalModel(cfg, rec, nil, 100, 40)
	if err != nil {
		t.Fatalf("NewLocalModel: %v", err)
	}
	return m
}

func update(t *testing.T, m tea.Model, msg tea.Msg) tea.Model {
	t.Helper()
	next, _ := m.Update(msg)
	return next
}

func TestLocalModelHoldsKeys(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Match.InputHoldTicks = 2
	m := newLocal(t, cfg, nil)
	tick := TickMsg{Owner: m.MatchID(), Time: time.Now()}

	m = update(t, m, runes("d")).(LocalModel)
	m = update(t, m, tick).(LocalModel)
	if !m.world.Player(game.Player1).Input().Right {
		t.Fatal("P1 right not applied on the next tick")
	}
	m = update(t, m, tick).(LocalModel)
	if m.world.Player(game.Player1).Input().Right {
		t.Error("P1 right still held after the hold expired")
	}
	if m.world.Tick() != 2 {
		t.Errorf("world tick = %d, want 2", m.world.Tick())
	}
}

func TestLocalModelIgnoresForeignTicks(t *testing.T) {
	m := newLocal(t, config.DefaultConfig(), nil)
	m = update(t, m, TickMsg{Owner: "local-0", Time: time.Now()}).(LocalModel)
	if m.world.Tick() != 0 {
		t.Errorf("world advanced on another match's tick: %d", m.world.Tick())
	}
}

func TestLocalModelRoundLimit(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Match.RoundLimit = 1
	rec := &fakeRecorder{}
	m := newLocal(t, cfg, rec)

	m = update(t, m, runes("a")).(LocalModel)

	// Drop Player1 into the bottom lava.
	s := m.world.Snapshot()
	s.Players[0].Body.Translation = mgl32.Vec2{25, 10.5}
	m.world.Restore(s)

	m = update(t, m, TickMsg{Owner: m.MatchID(), Time: time.Now()}).(LocalModel)
	if !m.IsOver() {
		t.Fatal("match not over after the round limit")
	}
	if !strings.Contains(m.View(), "P2 wins 0-1") {
		t.Error("view does not show the result")
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.started) != 1 || rec.started[0].Mode != "local" {
		t.Errorf("started = %+v", rec.started)
	}
	if len(rec.commands) != 1 || rec.commands[0] != game.Input(game.Player1, game.FieldLeft, true) {
		t.Errorf("commands = %v", rec.commands)
	}
	if len(rec.results) != 1 {
		t.Fatalf("results = %+v, want one", rec.results)
	}
	r := rec.results[0]
	if r.EndReason != multiplayer.MatchEndReasonCompleted.String() || r.Score2 != 1 || r.Rounds != 1 {
		t.Errorf("result = %+v", r)
	}

	// Leaving afterwards must not record a second result.
	m = update(t, m, tea.KeyMsg{Type: tea.KeyEsc}).(LocalModel)
	if !m.BackToMenu() || len(rec.results) != 1 {
		t.Errorf("back = %v, results = %d", m.BackToMenu(), len(rec.results))
	}
}

func TestHistoryRow(t *testing.T) {
	started := time.Date(2026, 3, 4, 5, 6, 0, 0, time.Local)
	tests := []struct {
		name string
		rec  storage.MatchRecord
		want []string
	}{
		{
			name: "in progress",
			rec:  storage.MatchRecord{MatchID: "m1", Mode: "online", StartedAt: started},
			want: []string{"m1", "online", "Mar 04 05:06", "in progress", "-", "-", "-"},
		},
		{
			name: "finished",
			rec: storage.MatchRecord{
				MatchID: "m2", Mode: "local", StartedAt: started, EndedAt: started.Add(time.Minute),
				EndReason: "completed", Ticks: 600, FinalHash: 0xabc, Score1: 3, Score2: 2,
			},
			want: []string{"m2", "local", "Mar 04 05:06", "completed", "3-2", "600", "0000000000000abc"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			row := HistoryRow(tt.rec)
			if len(row) != len(historyColumns) {
				t.Fatalf("row has %d cells, want %d", len(row), len(historyColumns))
			}
			for i := range tt.want {
				if row[i] != tt.want[i] {
					t.Errorf("cell %d (%s) = %q, want %q", i, historyColumns[i].Title, row[i], tt.want[i])
				}
			}
		})
	}
}

func TestMenuSelection(t *testing.T) {
	tests := []struct {
		name   string
		online bool
		downs  int
		want   Screen
	}{
		{"local", false, 0, ScreenLocal},
		{"history offline", false, 1, ScreenHistory},
		{"online", true, 1, ScreenOnline},
		{"history online", true, 2, ScreenHistory},
		{"cursor stops at the end", false, 5, ScreenHistory},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var m tea.Model = NewMenuModel(tt.online, 80, 24)
			for range tt.downs {
				m = update(t, m, tea.KeyMsg{Type: tea.KeyDown})
			}
			m = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
			sel := m.(MenuModel).Selected()
			if sel == nil || sel.Screen != tt.want {
				t.Errorf("Selected() = %+v, want screen %v", sel, tt.want)
			}
		})
	}
}

func TestOnlineJoinCodeEntry(t *testing.T) {
	var m tea.Model = NewOnlineModel(config.DefaultConfig(), "s1", nil, nil, nil, 80, 24)

	m = update(t, m, runes("j"))
	if got := m.(OnlineModel).State(); got != OnlineStateJoinEnterCode {
		t.Fatalf("state = %v, want join entry", got)
	}
	for _, k := range []string{"a", "b", "!", "1", "c", "d", "e", "f"} {
		m = update(t, m, runes(k))
	}
	m = update(t, m, tea.KeyMsg{Type: tea.KeyBackspace})
	if !strings.Contains(m.View(), "AB1CD") {
		t.Errorf("view does not show the typed code:\n%s", m.View())
	}

	m = m.(OnlineModel).Reset()
	if got := m.(OnlineModel).State(); got != OnlineStateChooseMode {
		t.Errorf("state after Reset = %v", got)
	}
	if strings.Contains(m.View(), "AB1CD") {
		t.Error("Reset kept the join code")
	}
}

func TestSessionModelNavigation(t *testing.T) {
	var m tea.Model = NewSessionModel(Options{Config: config.DefaultConfig(), Width: 80, Height: 24})

	m = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if got := m.(SessionModel).Screen(); got != ScreenLocal {
		t.Fatalf("screen = %v, want local", got)
	}
	m = update(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	if got := m.(SessionModel).Screen(); got != ScreenMenu {
		t.Fatalf("screen after esc = %v, want menu", got)
	}

	m = update(t, m, tea.KeyMsg{Type: tea.KeyDown})
	m = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if got := m.(SessionModel).Screen(); got != ScreenHistory {
		t.Fatalf("screen = %v, want history", got)
	}
	if !strings.Contains(m.View(), "Recording is disabled.") {
		t.Error("history without a store should say recording is disabled")
	}

	m = update(t, m, runes("q"))
	if !m.(SessionModel).IsQuitting() {
		t.Error("q in history did not quit")
	}
}

func TestSessionModelStartScreen(t *testing.T) {
	var m tea.Model = NewSessionModel(Options{Config: config.DefaultConfig(), Start: ScreenLocal})
	msg := m.Init()()
	m = update(t, m, msg)
	if got := m.(SessionModel).Screen(); got != ScreenLocal {
		t.Errorf("screen = %v, want local", got)
	}
}

func TestSessionModelRoutesEventsToOnline(t *testing.T) {
	sessions := multiplayer.NewSessionRegistry()
	coord := multiplayer.NewCoordinator(multiplayer.DefaultCoordinatorConfig(config.DefaultConfig()), sessions)
	events := make(chan multiplayer.SessionEvent)

	var m tea.Model = NewSessionModel(Options{
		Config:      config.DefaultConfig(),
		Coordinator: coord,
		SessionID:   "s1",
		Events:      events,
		Width:       80,
		Height:      24,
	})
	m = update(t, m, tea.KeyMsg{Type: tea.KeyDown})
	m = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if got := m.(SessionModel).Screen(); got != ScreenOnline {
		t.Fatalf("screen = %v, want online", got)
	}

	m = update(t, m, multiplayer.LobbyCreatedEvent{Code: "ABC234"})
	s := m.(SessionModel)
	if s.online.State() != OnlineStateHostWaiting || s.online.LobbyCode() != "ABC234" {
		t.Errorf("online state = %v code %q", s.online.State(), s.online.LobbyCode())
	}
	if !strings.Contains(m.View(), "ABC234") {
		t.Error("view does not show the lobby code")
	}
}
