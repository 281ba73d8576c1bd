// Package multiplayer runs online padclash matches.
// Sessions meet in lobbies, the coordinator pairs them, and an OnlineMatch
// drives the authoritative simulation through a rollback timeline.
package multiplayer

import "github.com/vovakirdan/padclash/internal/game"

// PlayerID is an alias to game.PlayerID for convenience.
// The lobby host always plays Player1, the joiner Player2.
type PlayerID = game.PlayerID

// Re-export player constants for convenience.
const (
	Player1 = game.Player1
	Player2 = game.Player2
)

// SessionID uniquely identifies a player's session (e.g., SSH connection).
type SessionID string

// MatchID uniquely identifies a match.
type MatchID string

// MatchMode records how a match was driven.
type MatchMode int

const (
	// MatchModeLocal is two players sharing one keyboard.
	MatchModeLocal MatchMode = iota

	// MatchModeOnline is two sessions paired through a lobby.
	MatchModeOnline

	// MatchModeSimulated is a headless scripted run.
	MatchModeSimulated
)

// String returns the name stored with recordings.
func (m MatchMode) String() string {
	switch m {
	case MatchModeLocal:
		return "local"
	case MatchModeOnline:
		return "online"
	case MatchModeSimulated:
		return "simulate"
	default:
		return "unknown"
	}
}

// Score counts round wins per seat.
type Score [2]int

// Record updates the score from one step. A round lost by both players at
// once counts for nobody. Returns true if the step ended a round.
func (s *Score) Record(res game.StepResult) bool {
	for _, ev := range res.Events {
		reset, ok := ev.(game.RoundReset)
		if !ok {
			continue
		}
		if len(reset.Dead) == 1 {
			s[reset.Dead[0].Opponent().Seat()]++
		}
		return true
	}
	return false
}

// Revert undoes Record for a step that a rewind replaced. Returns true if
// the step had ended a round.
func (s *Score) Revert(res game.StepResult) bool {
	for _, ev := range res.Events {
		reset, ok := ev.(game.RoundReset)
		if !ok {
			continue
		}
		if len(reset.Dead) == 1 {
			s[reset.Dead[0].Opponent().Seat()]--
		}
		return true
	}
	return false
}

// Leader returns the player with more round wins, if any.
func (s Score) Leader() (PlayerID, bool) {
	switch {
	case s[0] > s[1]:
		return Player1, true
	case s[1] > s[0]:
		return Player2, true
	default:
		return 0, false
	}
}
