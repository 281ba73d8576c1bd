package tui

import "github.com/vovakirdan/padclash/internal/game"

// HeldKeys turns key presses into press and release commands. Terminals
// only report presses (with auto-repeat), so a key counts as held for a
// number of ticks after its last press. A press always survives the tick it
// arrived in, so even a one-tick hold reaches the world.
type HeldKeys struct {
	hold   int
	remain map[heldKey]int
	fresh  map[heldKey]bool
}

type heldKey struct {
	player game.PlayerID
	field  game.InputField
}

// NewHeldKeys creates a tracker. hold is clamped to at least one tick.
func NewHeldKeys(hold int) *HeldKeys {
	return &HeldKeys{
		hold:   max(hold, 1),
		remain: make(map[heldKey]int),
		fresh:  make(map[heldKey]bool),
	}
}

// Press registers a key press. It returns the command to send when the key
// was not already held.
func (h *HeldKeys) Press(player game.PlayerID, field game.InputField) (game.Command, bool) {
	k := heldKey{player, field}
	_, held := h.remain[k]
	h.remain[k] = h.hold
	h.fresh[k] = true
	if held {
		return game.Command{}, false
	}
	return game.Input(player, field, true), true
}

// Tick counts down every held key and returns release commands for the
// ones that ran out, in player then field order.
func (h *HeldKeys) Tick() []game.Command {
	var out []game.Command
	for _, p := range game.Players {
		for f := game.FieldAction; f <= game.FieldRight; f++ {
			k := heldKey{p, f}
			n, ok := h.remain[k]
			if !ok {
				continue
			}
			if n <= 1 && !h.fresh[k] {
				delete(h.remain, k)
				out = append(out, game.Input(p, f, false))
				continue
			}
			h.remain[k] = max(n-1, 1)
		}
	}
	clear(h.fresh)
	return out
}

// Held reports whether a key is currently held.
func (h *HeldKeys) Held(player game.PlayerID, field game.InputField) bool {
	_, ok := h.remain[heldKey{player, field}]
	return ok
}

// Reset forgets every key without emitting releases.
func (h *HeldKeys) Reset() {
	clear(h.remain)
	clear(h.fresh)
}
