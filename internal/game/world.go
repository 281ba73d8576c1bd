// Package game implements the deterministic padclash simulation: two
// players on opposite halves of a mirrored arena race to their power pad to
// take over a shared cannon, and anything touching lava or a projectile ends
// the round.
//
// A World is single-threaded and never performs I/O beyond its optional
// debug logger. It is mutated only by ApplyCommand, Step and Restore.
package game

import (
	"io"
	"sort"

	"github.com/charmbracelet/log"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/vovakirdan/padclash/internal/config"
	"github.com/vovakirdan/padclash/internal/physics"
)

// World is the aggregate root of one match.
type World struct {
	arena  config.Arena
	logger *log.Logger

	phys    *physics.World
	players [2]Player
	// pads[i] is the pad contested by Players[i]: bottom for Player1,
	// top for Player2.
	pads [2]PowerPad

	cannonX          float32
	projectiles      map[uint16]*Projectile
	nextProjectileID uint16
	advantage        AdvantageState
	round            uint8
	tick             uint64

	scale    float32
	timestep float32
	padStart [2]PadStatus
}

// Option configures a World.
type Option func(*World)

// WithLogger sets the debug logger. The default discards everything.
func WithLogger(l *log.Logger) Option {
	return func(w *World) {
		if l != nil {
			w.logger = l
		}
	}
}

// New creates a world in its initial state: players at their start
// positions, pads on their starting sides, no projectiles, round 1 and no
// advantage. The arena must pass Validate.
func New(arena config.Arena, opts ...Option) (*World, error) {
	if err := arena.Validate(); err != nil {
		return nil, err
	}
	w := &World{
		arena:       arena,
		logger:      log.New(io.Discard),
		projectiles: make(map[uint16]*Projectile),
		cannonX:     arena.Cannon.DefaultX,
		advantage:   Neutral,
		round:       1,
		scale:       arena.Physics.Scale,
		timestep:    float32(arena.Physics.Timestep),
	}
	for _, opt := range opts {
		opt(w)
	}

	bottom, _ := ParsePadStatus(arena.Pads.Bottom.Start)
	top, _ := ParsePadStatus(arena.Pads.Top.Start)
	w.padStart = [2]PadStatus{bottom, top}

	w.build()
	return w, nil
}

// MustNew is New for arenas known to be valid, such as config.DefaultArena.
func MustNew(arena config.Arena, opts ...Option) *World {
	w, err := New(arena, opts...)
	if err != nil {
		panic(err)
	}
	return w
}

// Arena returns the configuration the world was built with.
func (w *World) Arena() config.Arena { return w.arena }

// Round returns the current round, starting at 1.
func (w *World) Round() uint8 { return w.round }

// Tick returns the number of steps taken since creation, as restored by
// the last Restore.
func (w *World) Tick() uint64 { return w.tick }

// Advantage returns who controls the cannon.
func (w *World) Advantage() AdvantageState { return w.advantage }

// CannonX returns the cannon position in display units.
func (w *World) CannonX() float32 { return w.cannonX }

// Player returns a copy of a player's state.
func (w *World) Player(id PlayerID) Player { return w.players[id.Seat()] }

// Pad returns the pad contested by id.
func (w *World) Pad(id PlayerID) PowerPad { return w.pads[id.Seat()] }

// ProjectileCount returns the number of live projectiles.
func (w *World) ProjectileCount() int { return len(w.projectiles) }

// ProjectileIDs returns live projectile ids in ascending order.
func (w *World) ProjectileIDs() []uint16 {
	return sortedIDs(w.projectiles)
}

// NextProjectileID returns the id the next shot will try to use.
func (w *World) NextProjectileID() uint16 { return w.nextProjectileID }

// PlayerPosition returns a player's centre in display units.
func (w *World) PlayerPosition(id PlayerID) mgl32.Vec2 {
	return w.toDisplay(w.phys.MustBody(w.players[id.Seat()].body).Translation())
}

// PlayerVelocity returns a player's velocity in simulation units.
func (w *World) PlayerVelocity(id PlayerID) mgl32.Vec2 {
	return w.phys.MustBody(w.players[id.Seat()].body).Linvel()
}

// PadPosition returns a pad's centre in display units.
func (w *World) PadPosition(id PlayerID) mgl32.Vec2 {
	return w.toDisplay(w.phys.MustBody(w.pads[id.Seat()].body).Translation())
}

// Physics exposes the underlying engine for inspection. Callers must not
// mutate it.
func (w *World) Physics() *physics.World { return w.phys }

func (w *World) toSim(p config.Point) mgl32.Vec2 {
	return mgl32.Vec2{p.X / w.scale, p.Y / w.scale}
}

func (w *World) toDisplay(v mgl32.Vec2) mgl32.Vec2 {
	return mgl32.Vec2{v.X() * w.scale, v.Y() * w.scale}
}

func sortedIDs[V any](m map[uint16]V) []uint16 {
	ids := make([]uint16, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
