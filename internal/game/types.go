package game

import (
	"fmt"
	"strings"

	"github.com/vovakirdan/padclash/internal/physics"
)

// PlayerID identifies one of the two players. Its numeric value is the
// player's seat index.
type PlayerID uint8

const (
	Player1 PlayerID = iota // bottom half, gravity pulls towards -y
	Player2                 // top half, gravity pulls towards +y
)

// Players lists both ids in seat order.
var Players = [2]PlayerID{Player1, Player2}

// Seat returns the seat index a connection must hold to control the player.
func (id PlayerID) Seat() int { return int(id) }

// Opponent returns the other player.
func (id PlayerID) Opponent() PlayerID { return 1 - id }

// Mirror returns +1 for Player1 and -1 for Player2. Every directional rule
// is written once for Player1 and multiplied by this sign.
func (id PlayerID) Mirror() float32 {
	if id == Player2 {
		return -1
	}
	return 1
}

// Valid reports whether id names a real player.
func (id PlayerID) Valid() bool { return id <= Player2 }

func (id PlayerID) String() string {
	switch id {
	case Player1:
		return "P1"
	case Player2:
		return "P2"
	default:
		return fmt.Sprintf("P?(%d)", uint8(id))
	}
}

// ParsePlayerID converts "P1" or "P2" (case-insensitive).
func ParsePlayerID(s string) (PlayerID, error) {
	switch strings.ToUpper(s) {
	case "P1":
		return Player1, nil
	case "P2":
		return Player2, nil
	}
	return 0, fmt.Errorf("game: unknown player %q", s)
}

// PlayerInput is the last known state of a player's buttons.
type PlayerInput struct {
	Action bool `msgpack:"a"`
	Left   bool `msgpack:"l"`
	Right  bool `msgpack:"r"`
}

// AdvantageState records who controls the cannon.
type AdvantageState uint8

const (
	Neutral AdvantageState = iota
	AdvantagePlayer1
	AdvantagePlayer2
)

// AdvantageFor returns the advantage state held by id.
func AdvantageFor(id PlayerID) AdvantageState {
	return AdvantageState(id) + 1
}

// Holder returns the player holding the advantage, if any.
func (a AdvantageState) Holder() (PlayerID, bool) {
	if a == Neutral {
		return 0, false
	}
	return PlayerID(a - 1), true
}

// HeldBy reports whether id holds the advantage.
func (a AdvantageState) HeldBy(id PlayerID) bool {
	return a == AdvantageFor(id)
}

func (a AdvantageState) String() string {
	switch a {
	case Neutral:
		return "neutral"
	case AdvantagePlayer1:
		return "P1"
	case AdvantagePlayer2:
		return "P2"
	default:
		return "unknown"
	}
}

// PadStatus is which of its two positions a power pad occupies.
type PadStatus uint8

const (
	PadLeft PadStatus = iota
	PadRight
)

// ParsePadStatus converts "left" or "right".
func ParsePadStatus(s string) (PadStatus, error) {
	switch s {
	case "left":
		return PadLeft, nil
	case "right":
		return PadRight, nil
	}
	return 0, fmt.Errorf("game: unknown pad side %q", s)
}

func (s PadStatus) String() string {
	if s == PadRight {
		return "right"
	}
	return "left"
}

// Player is one participant's body and input.
type Player struct {
	body     physics.BodyHandle
	collider physics.ColliderHandle
	input    PlayerInput
}

// Input returns the player's current input state.
func (p Player) Input() PlayerInput { return p.input }

// PowerPad is a static body that jumps between two positions.
type PowerPad struct {
	body     physics.BodyHandle
	collider physics.ColliderHandle
	status   PadStatus
}

// Status returns which side the pad is on.
func (p PowerPad) Status() PadStatus { return p.status }

// Projectile is a live cannon shot.
type Projectile struct {
	body     physics.BodyHandle
	collider physics.ColliderHandle
}
