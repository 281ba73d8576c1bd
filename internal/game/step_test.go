package game

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/vovakirdan/padclash/internal/config"
)

// display converts display units to simulation units for the default arena.
func display(x, y float32) mgl32.Vec2 {
	return mgl32.Vec2{x / 20, y / 20}
}

func near(a, b mgl32.Vec2, tol float32) bool {
	return math.Abs(float64(a.X()-b.X())) <= float64(tol) && math.Abs(float64(a.Y()-b.Y())) <= float64(tol)
}

// edit restores a modified copy of the current snapshot.
func edit(w *World, fn func(s *Snapshot)) {
	s := w.Snapshot()
	fn(&s)
	w.Restore(s)
}

// onBottomPad places Player1 resting on top of the bottom pad at its
// starting (right) position.
func onBottomPad(s *Snapshot) {
	s.Players[0].Body = Kinematics{Translation: display(850, 310)}
}

func hasEvent[T Event](events []Event) bool {
	for _, e := range events {
		if _, ok := e.(T); ok {
			return true
		}
	}
	return false
}

func TestNewWorldInitialState(t *testing.T) {
	w := MustNew(config.DefaultArena())

	if w.Round() != 1 {
		t.Errorf("Round() = %d, want 1", w.Round())
	}
	if w.Advantage() != Neutral {
		t.Errorf("Advantage() = %v, want neutral", w.Advantage())
	}
	if w.ProjectileCount() != 0 {
		t.Errorf("ProjectileCount() = %d, want 0", w.ProjectileCount())
	}
	if w.CannonX() != 500 {
		t.Errorf("CannonX() = %v, want 500", w.CannonX())
	}
	if w.Pad(Player1).Status() != PadRight || w.Pad(Player2).Status() != PadLeft {
		t.Errorf("pad sides = %v/%v, want right/left", w.Pad(Player1).Status(), w.Pad(Player2).Status())
	}
	if got := w.PlayerPosition(Player1); !near(got, mgl32.Vec2{150, 400}, 1e-3) {
		t.Errorf("P1 position = %v, want (150, 400)", got)
	}
	if got := w.PlayerPosition(Player2); !near(got, mgl32.Vec2{850, 600}, 1e-3) {
		t.Errorf("P2 position = %v, want (850, 600)", got)
	}
}

func TestNewRejectsInvalidArena(t *testing.T) {
	arena := config.DefaultArena()
	arena.Physics.Scale = 0
	if _, err := New(arena); err == nil {
		t.Error("New() accepted a zero physics scale")
	}
}

func TestPlayersFallTowardsTheirOwnFloor(t *testing.T) {
	w := MustNew(config.DefaultArena())
	for i := 0; i < 90; i++ {
		w.Step()
	}

	// P1 lands on the left power platform (top edge y=300), P2 on its
	// mirror image (bottom edge y=700).
	if got := w.PlayerPosition(Player1); !near(got, mgl32.Vec2{150, 310}, 0.01) {
		t.Errorf("P1 position = %v, want (150, 310)", got)
	}
	if got := w.PlayerPosition(Player2); !near(got, mgl32.Vec2{850, 690}, 0.01) {
		t.Errorf("P2 position = %v, want (850, 690)", got)
	}
	for _, id := range Players {
		if vy := w.PlayerVelocity(id).Y(); vy != 0 {
			t.Errorf("%v vy = %v, want 0 at rest", id, vy)
		}
	}
	if w.Round() != 1 {
		t.Errorf("Round() = %d, want 1", w.Round())
	}
}

func TestJumpNeedsGround(t *testing.T) {
	w := MustNew(config.DefaultArena())

	// Airborne: action does nothing.
	w.ApplyCommand(Input(Player1, FieldAction, true))
	w.Step()
	if vy := w.PlayerVelocity(Player1).Y(); vy > 0 {
		t.Fatalf("airborne jump: vy = %v, want falling", vy)
	}

	w.ApplyCommand(Input(Player1, FieldAction, false))
	for i := 0; i < 90; i++ {
		w.Step()
	}

	w.ApplyCommand(Input(Player1, FieldAction, true))
	w.ApplyCommand(Input(Player2, FieldAction, true))
	w.Step()
	if vy := w.PlayerVelocity(Player1).Y(); vy < 19 {
		t.Errorf("P1 grounded jump: vy = %v, want about 19.2", vy)
	}
	if vy := w.PlayerVelocity(Player2).Y(); vy > -19 {
		t.Errorf("P2 grounded jump: vy = %v, want about -19.2", vy)
	}
}

func TestHorizontalMovementIsMirrored(t *testing.T) {
	w := MustNew(config.DefaultArena())
	w.ApplyCommand(Input(Player1, FieldRight, true))
	w.ApplyCommand(Input(Player2, FieldRight, true))
	w.Step()

	if vx := w.PlayerVelocity(Player1).X(); vx != 15 {
		t.Errorf("P1 vx = %v, want 15", vx)
	}
	if vx := w.PlayerVelocity(Player2).X(); vx != -15 {
		t.Errorf("P2 vx = %v, want -15", vx)
	}
}

func TestCaptureRelocatesOpponentPad(t *testing.T) {
	w := MustNew(config.DefaultArena())
	edit(w, func(s *Snapshot) {
		onBottomPad(s)
		s.Players[1].Body = Kinematics{Translation: display(300, 600)}
		s.Projectiles[3] = Kinematics{Translation: display(500, 500)}
		s.NextProjectileID = 4
	})

	res := w.Step()

	if w.Advantage() != AdvantagePlayer1 {
		t.Fatalf("Advantage() = %v, want P1", w.Advantage())
	}
	if w.Pad(Player2).Status() != PadRight {
		t.Errorf("top pad = %v, want right", w.Pad(Player2).Status())
	}
	if got := w.PadPosition(Player2); !near(got, mgl32.Vec2{850, 705}, 1e-3) {
		t.Errorf("top pad position = %v, want (850, 705)", got)
	}
	if w.ProjectileCount() != 0 {
		t.Errorf("ProjectileCount() = %d, want 0", w.ProjectileCount())
	}
	if v := w.PlayerVelocity(Player1); v != (mgl32.Vec2{}) {
		t.Errorf("P1 velocity = %v, want zero", v)
	}
	if !hasEvent[PadCaptured](res.Events) {
		t.Errorf("events = %v, want PadCaptured", res.Events)
	}
}

func TestCaptureSendsPadLeftWhenOpponentIsRight(t *testing.T) {
	w := MustNew(config.DefaultArena())
	edit(w, func(s *Snapshot) {
		onBottomPad(s)
		s.Players[1].Body = Kinematics{Translation: display(700, 600)}
	})

	w.Step()

	if w.Pad(Player2).Status() != PadLeft {
		t.Errorf("top pad = %v, want left", w.Pad(Player2).Status())
	}
}

func TestHoldingOwnPadDoesNotRecapture(t *testing.T) {
	w := MustNew(config.DefaultArena())
	edit(w, func(s *Snapshot) {
		onBottomPad(s)
		s.Advantage = AdvantagePlayer1
		s.Players[1].Body = Kinematics{Translation: display(300, 600)}
	})

	res := w.Step()

	if hasEvent[PadCaptured](res.Events) {
		t.Error("holder re-captured its own pad")
	}
	if w.Pad(Player2).Status() != PadLeft {
		t.Errorf("top pad moved to %v without a capture", w.Pad(Player2).Status())
	}
}

func TestContestedCaptureRevertsToNeutral(t *testing.T) {
	w := MustNew(config.DefaultArena())
	edit(w, func(s *Snapshot) {
		onBottomPad(s)
		// The top pad starts left at (150, 705); P2 hangs under it.
		s.Players[1].Body = Kinematics{Translation: display(150, 690)}
	})

	res := w.Step()

	if w.Advantage() != Neutral {
		t.Errorf("Advantage() = %v, want neutral", w.Advantage())
	}
	if !hasEvent[ContestedCapture](res.Events) {
		t.Errorf("events = %v, want ContestedCapture", res.Events)
	}
	if w.Pad(Player1).Status() != PadRight || w.Pad(Player2).Status() != PadLeft {
		t.Error("a contested capture must not move pads")
	}
}

func TestHolderDrivesCannon(t *testing.T) {
	tests := []struct {
		name    string
		holder  AdvantageState
		start   float32
		field   InputField
		id      PlayerID
		wantX   float32
		wantAdv AdvantageState
	}{
		{"P1 right", AdvantagePlayer1, 500, FieldRight, Player1, 505, AdvantagePlayer1},
		{"P1 left", AdvantagePlayer1, 500, FieldLeft, Player1, 495, AdvantagePlayer1},
		{"P2 right is mirrored", AdvantagePlayer2, 500, FieldRight, Player2, 495, AdvantagePlayer2},
		{"clamped high", AdvantagePlayer1, 898, FieldRight, Player1, 900, AdvantagePlayer1},
		{"clamped low", AdvantagePlayer2, 102, FieldRight, Player2, 100, AdvantagePlayer2},
		{"non-holder ignored", AdvantagePlayer1, 500, FieldRight, Player2, 500, AdvantagePlayer1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := MustNew(config.DefaultArena())
			edit(w, func(s *Snapshot) {
				s.Advantage = tt.holder
				s.CannonX = tt.start
			})
			w.ApplyCommand(Input(tt.id, tt.field, true))
			w.Step()

			if w.CannonX() != tt.wantX {
				t.Errorf("CannonX() = %v, want %v", w.CannonX(), tt.wantX)
			}
		})
	}
}

func TestProjectileCap(t *testing.T) {
	tests := []struct {
		live int
		want int
	}{
		{0, 1},
		{9, 10},
		{10, 10},
	}

	for _, tt := range tests {
		w := MustNew(config.DefaultArena())
		edit(w, func(s *Snapshot) {
			onBottomPad(s)
			s.Advantage = AdvantagePlayer1
			for i := 0; i < tt.live; i++ {
				s.Projectiles[uint16(i)] = Kinematics{Translation: display(100+float32(i)*30, 500)}
			}
			s.NextProjectileID = uint16(tt.live)
		})
		w.ApplyCommand(Input(Player1, FieldAction, true))
		res := w.Step()

		if got := w.ProjectileCount(); got != tt.want {
			t.Errorf("live=%d: ProjectileCount() = %d, want %d", tt.live, got, tt.want)
		}
		if fired := hasEvent[ProjectileFired](res.Events); fired != (tt.want > tt.live) {
			t.Errorf("live=%d: ProjectileFired emitted = %v", tt.live, fired)
		}
	}
}

func TestProjectileMovesAwayFromShooter(t *testing.T) {
	for _, id := range Players {
		w := MustNew(config.DefaultArena())
		edit(w, func(s *Snapshot) { s.Advantage = AdvantageFor(id) })
		w.ApplyCommand(Input(id, FieldAction, true))
		w.Step()

		ids := w.ProjectileIDs()
		if len(ids) != 1 {
			t.Fatalf("%v: %d projectiles, want 1", id, len(ids))
		}
		pose := w.DisplayState().Projectiles[ids[0]]
		if dy := (pose.Translation.Y() - 500) * id.Mirror(); dy <= 0 {
			t.Errorf("%v: projectile at y=%v moved the wrong way", id, pose.Translation.Y())
		}
	}
}

func TestProjectileDestroyedOnTerrain(t *testing.T) {
	w := MustNew(config.DefaultArena())
	edit(w, func(s *Snapshot) {
		onBottomPad(s)
		s.Advantage = AdvantagePlayer1
		s.CannonX = 300
	})
	w.ApplyCommand(Input(Player1, FieldAction, true))
	w.Step()
	w.ApplyCommand(Input(Player1, FieldAction, false))

	destroyed := false
	for i := 0; i < 240 && !destroyed; i++ {
		destroyed = hasEvent[ProjectileDestroyed](w.Step().Events)
	}
	if !destroyed {
		t.Fatal("projectile never hit terrain")
	}
	if w.ProjectileCount() != 0 {
		t.Errorf("ProjectileCount() = %d, want 0", w.ProjectileCount())
	}
	if w.Advantage() != AdvantagePlayer1 {
		t.Errorf("terrain hit changed advantage to %v", w.Advantage())
	}
}

func TestDeathResetsEverything(t *testing.T) {
	w := MustNew(config.DefaultArena())
	edit(w, func(s *Snapshot) {
		s.Round = 3
		s.Advantage = AdvantagePlayer2
		s.CannonX = 200
		s.Players[0].Body = Kinematics{Translation: display(500, 210), Linvel: mgl32.Vec2{3, -2}}
		s.Players[0].Input = PlayerInput{Left: true}
		s.Pads[0] = PadSnapshot{Translation: display(150, 295), Status: PadLeft}
		s.Pads[1] = PadSnapshot{Translation: display(850, 705), Status: PadRight}
		s.Projectiles[1] = Kinematics{Translation: display(300, 500), Linvel: mgl32.Vec2{0, -6}}
		s.Projectiles[2] = Kinematics{Translation: display(700, 500), Linvel: mgl32.Vec2{0, -6}}
		s.NextProjectileID = 3
	})

	res := w.Step()

	if w.Round() != 4 {
		t.Errorf("Round() = %d, want 4", w.Round())
	}
	if w.Advantage() != Neutral {
		t.Errorf("Advantage() = %v, want neutral", w.Advantage())
	}
	if got := w.PlayerPosition(Player1); !near(got, mgl32.Vec2{150, 400}, 1e-3) {
		t.Errorf("P1 position = %v, want start", got)
	}
	if got := w.PlayerPosition(Player2); !near(got, mgl32.Vec2{850, 600}, 1e-3) {
		t.Errorf("P2 position = %v, want start", got)
	}
	for _, id := range Players {
		if v := w.PlayerVelocity(id); v != (mgl32.Vec2{}) {
			t.Errorf("%v velocity = %v, want zero", id, v)
		}
	}
	if w.CannonX() != 500 {
		t.Errorf("CannonX() = %v, want 500", w.CannonX())
	}
	if w.Pad(Player1).Status() != PadRight || w.Pad(Player2).Status() != PadLeft {
		t.Errorf("pads = %v/%v, want right/left", w.Pad(Player1).Status(), w.Pad(Player2).Status())
	}
	if got := w.PadPosition(Player1); !near(got, mgl32.Vec2{850, 295}, 1e-3) {
		t.Errorf("bottom pad position = %v, want (850, 295)", got)
	}
	if w.ProjectileCount() != 0 {
		t.Errorf("ProjectileCount() = %d, want 0", w.ProjectileCount())
	}
	if !w.Player(Player1).Input().Left {
		t.Error("input must survive a round reset")
	}

	var reset *RoundReset
	for _, e := range res.Events {
		if r, ok := e.(RoundReset); ok {
			reset = &r
		}
	}
	if reset == nil || len(reset.Dead) != 1 || reset.Dead[0] != Player1 {
		t.Errorf("RoundReset event = %+v, want P1 dead", reset)
	}
}

func TestProjectileKillsPlayer(t *testing.T) {
	w := MustNew(config.DefaultArena())
	edit(w, func(s *Snapshot) {
		s.Projectiles[0] = Kinematics{Translation: display(850, 600)}
		s.NextProjectileID = 1
	})

	res := w.Step()

	if w.Round() != 2 {
		t.Errorf("Round() = %d, want 2", w.Round())
	}
	if !hasEvent[RoundReset](res.Events) {
		t.Error("missing RoundReset event")
	}
}

func TestProjectileIDsSkipLiveOnWrap(t *testing.T) {
	w := MustNew(config.DefaultArena())
	edit(w, func(s *Snapshot) {
		s.Advantage = AdvantagePlayer1
		s.Projectiles[65535] = Kinematics{Translation: display(100, 500)}
		s.Projectiles[0] = Kinematics{Translation: display(140, 500)}
		s.NextProjectileID = 65535
	})
	w.ApplyCommand(Input(Player1, FieldAction, true))
	res := w.Step()

	var fired *ProjectileFired
	for _, e := range res.Events {
		if f, ok := e.(ProjectileFired); ok {
			fired = &f
		}
	}
	if fired == nil || fired.ID != 1 {
		t.Errorf("fired = %+v, want id 1", fired)
	}
	if w.NextProjectileID() != 2 {
		t.Errorf("NextProjectileID() = %d, want 2", w.NextProjectileID())
	}
}

// script drives both players with a fixed pseudo-random input pattern.
func script(tick int) []Command {
	var cmds []Command
	x := uint32(tick)*2654435761 + 12345
	if tick%7 == 0 {
		for _, id := range Players {
			for f := FieldAction; f <= FieldRight; f++ {
				x = x*1103515245 + 12345
				cmds = append(cmds, Input(id, f, (x>>16)&3 == 0))
			}
		}
	}
	return cmds
}

func TestStepIsDeterministic(t *testing.T) {
	w1 := MustNew(config.DefaultArena())
	w2 := MustNew(config.DefaultArena())

	for tick := 0; tick < 900; tick++ {
		for _, c := range script(tick) {
			w1.ApplyCommand(c)
			w2.ApplyCommand(c)
		}
		w1.Step()
		w2.Step()

		if h1, h2 := w1.Snapshot().Hash(), w2.Snapshot().Hash(); h1 != h2 {
			t.Fatalf("diverged at tick %d: %x != %x", tick, h1, h2)
		}
	}
}
