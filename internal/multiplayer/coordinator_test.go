package multiplayer

import (
	"strings"
	"testing"
	"time"

	"github.com/vovakirdan/padclash/internal/game"
	"github.com/vovakirdan/padclash/internal/wire"
)

func waitFor[T SessionEvent](t *testing.T, s *ChannelSession) T {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case evt := <-s.Events():
			if e, ok := evt.(T); ok {
				return e
			}
		case <-timeout:
			var zero T
			t.Fatalf("%s: timed out waiting for %T", s.ID(), zero)
		}
	}
}

func newTestCoordinator(t *testing.T) (*Coordinator, *SessionRegistry) {
	t.Helper()
	reg := NewSessionRegistry()
	c := NewCoordinator(CoordinatorConfig{
		LobbyTimeout:  time.Minute,
		CleanupPeriod: time.Minute,
		Match:         testMatchConfig(),
	}, reg)
	c.Start()
	t.Cleanup(c.Stop)
	return c, reg
}

func addSession(reg *SessionRegistry, id SessionID) *ChannelSession {
	s := NewChannelSession(id, 512)
	reg.Register(s)
	return s
}

func TestCoordinatorLobbyToMatch(t *testing.T) {
	c, reg := newTestCoordinator(t)
	host := addSession(reg, "host")
	guest := addSession(reg, "guest")

	c.Send(CreateLobbyMsg{SessionID: host.ID()})
	created := waitFor[LobbyCreatedEvent](t, host)
	if len(created.Code) != 6 {
		t.Fatalf("join code %q, want 6 characters", created.Code)
	}

	// Codes are case-insensitive.
	c.Send(JoinLobbyMsg{SessionID: guest.ID(), Code: strings.ToLower(created.Code)})

	hostJoined := waitFor[LobbyJoinedEvent](t, host)
	if hostJoined.Side != Player1 || hostJoined.OpponentID != guest.ID() {
		t.Errorf("host joined event = %+v", hostJoined)
	}
	guestStart := waitFor[MatchStartedEvent](t, guest)
	if guestStart.Side != Player2 || guestStart.TickRate != 200 {
		t.Errorf("guest start event = %+v", guestStart)
	}
	if want := testMatchConfig().Arena.Fingerprint(); guestStart.Fingerprint != want {
		t.Errorf("fingerprint = %016x, want %016x", guestStart.Fingerprint, want)
	}
	waitFor[MatchStartedEvent](t, host)

	if c.LobbyCount() != 0 || c.MatchCount() != 1 {
		t.Errorf("lobbies %d, matches %d, want 0 and 1", c.LobbyCount(), c.MatchCount())
	}

	packet, err := wire.EncodeCommand(0, 1, game.Input(game.Player2, game.FieldLeft, true))
	if err != nil {
		t.Fatal(err)
	}
	c.Send(PlayerInputMsg{MatchID: guestStart.MatchID, SessionID: guest.ID(), Packet: packet})
	frame := waitFor[FrameEvent](t, host)
	if frame.MatchID != guestStart.MatchID {
		t.Errorf("frame for match %q, want %q", frame.MatchID, guestStart.MatchID)
	}

	guest.Close()
	ended := waitFor[MatchEndedEvent](t, host)
	if ended.Reason != MatchEndReasonDisconnect || !ended.HasWinner || ended.Winner != Player1 {
		t.Errorf("end event = %+v, want host winning by disconnect", ended)
	}

	deadline := time.Now().Add(2 * time.Second)
	for c.MatchCount() != 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if c.MatchCount() != 0 {
		t.Error("match not cleaned up")
	}
}

func TestCoordinatorJoinErrors(t *testing.T) {
	c, reg := newTestCoordinator(t)
	host := addSession(reg, "host")
	other := addSession(reg, "other")

	c.Send(JoinLobbyMsg{SessionID: other.ID(), Code: "NOPE42"})
	if e := waitFor[LobbyErrorEvent](t, other); e.Message != "Lobby not found" {
		t.Errorf("error = %q", e.Message)
	}

	c.Send(CreateLobbyMsg{SessionID: host.ID()})
	code := waitFor[LobbyCreatedEvent](t, host).Code

	c.Send(JoinLobbyMsg{SessionID: host.ID(), Code: code})
	if e := waitFor[LobbyErrorEvent](t, host); e.Message != "Already in a lobby" {
		t.Errorf("error = %q", e.Message)
	}

	c.Send(CancelLobbyMsg{SessionID: host.ID(), Code: code})
	c.Send(JoinLobbyMsg{SessionID: other.ID(), Code: code})
	if e := waitFor[LobbyErrorEvent](t, other); e.Message != "Lobby not found" {
		t.Errorf("error after cancel = %q", e.Message)
	}
}

func TestChannelSessionDropsOldest(t *testing.T) {
	s := NewChannelSession("s", 2)
	for tick := uint64(1); tick <= 4; tick++ {
		s.Send(FrameEvent{Tick: tick})
	}
	if s.Dropped() != 2 {
		t.Errorf("Dropped() = %d, want 2", s.Dropped())
	}
	for _, want := range []uint64{3, 4} {
		if got := (<-s.Events()).(FrameEvent).Tick; got != want {
			t.Errorf("got frame %d, want %d", got, want)
		}
	}

	s.Close()
	s.Send(FrameEvent{Tick: 5})
	select {
	case evt := <-s.Events():
		t.Errorf("closed session received %v", evt)
	default:
	}
}

func TestScoreLeader(t *testing.T) {
	tests := []struct {
		score  Score
		want   PlayerID
		leader bool
	}{
		{Score{}, 0, false},
		{Score{2, 2}, 0, false},
		{Score{3, 1}, Player1, true},
		{Score{0, 1}, Player2, true},
	}
	for _, tt := range tests {
		got, ok := tt.score.Leader()
		if ok != tt.leader || (ok && got != tt.want) {
			t.Errorf("%v.Leader() = %v, %v; want %v, %v", tt.score, got, ok, tt.want, tt.leader)
		}
	}
}
