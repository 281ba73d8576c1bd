package game

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// groundedEpsilon is the tolerance on |normal.y| when deciding whether a
// contact is floor (or ceiling, for Player2).
const groundedEpsilon = 1.1920929e-07 // float32 machine epsilon

// Event describes something notable that happened during a Step.
type Event interface {
	stepEvent()
}

// RoundReset is emitted when at least one player died.
type RoundReset struct {
	Round uint8 // the new round
	Dead  []PlayerID
}

// PadCaptured is emitted when a single player claimed their pad.
type PadCaptured struct {
	By PlayerID
	// Relocated is the new side of the opponent's pad.
	Relocated PadStatus
}

// ContestedCapture is emitted when both players claimed in the same tick.
type ContestedCapture struct{}

// ProjectileFired is emitted for every spawned projectile.
type ProjectileFired struct {
	ID uint16
	By PlayerID
}

// ProjectileDestroyed is emitted for every removed projectile.
type ProjectileDestroyed struct {
	ID uint16
}

func (RoundReset) stepEvent()          {}
func (PadCaptured) stepEvent()         {}
func (ContestedCapture) stepEvent()    {}
func (ProjectileFired) stepEvent()     {}
func (ProjectileDestroyed) stepEvent() {}

// StepResult summarises one Step.
type StepResult struct {
	Tick      uint64
	Round     uint8
	Advantage AdvantageState
	Events    []Event
}

type spawn struct {
	id     uint16
	by     PlayerID
	linvel mgl32.Vec2
}

// Step advances the world by one fixed timestep:
// control, spawn, integrate, death check, then pad capture or projectile
// cleanup.
func (w *World) Step() StepResult {
	var res StepResult

	// Every spawn decision sees the pre-spawn projectile count.
	var spawns []spawn
	live := len(w.projectiles)
	for _, id := range Players {
		if s, ok := w.control(id, live); ok {
			spawns = append(spawns, s)
		}
	}

	for _, s := range spawns {
		w.createProjectile(s.id, s.linvel)
		res.Events = append(res.Events, ProjectileFired{ID: s.id, By: s.by})
	}

	w.phys.Step(w.timestep)
	w.tick++

	if dead := w.deadPlayers(); len(dead) > 0 {
		w.resetRound(&res, dead)
	} else {
		w.resolvePads(&res)
	}

	res.Tick = w.tick
	res.Round = w.round
	res.Advantage = w.advantage
	return res
}

// control applies one player's input for this tick. The advantage holder
// drives the cannon; everyone else platforms. It returns a projectile to
// spawn, if any.
func (w *World) control(id PlayerID, live int) (spawn, bool) {
	p := &w.players[id.Seat()]
	mirror := id.Mirror()
	a := w.arena

	if w.advantage.HeldBy(id) {
		if p.input.Left {
			w.moveCannon(-a.Cannon.Speed * mirror)
		}
		if p.input.Right {
			w.moveCannon(a.Cannon.Speed * mirror)
		}
		if p.input.Action && live < a.Projectile.Cap {
			return spawn{
				id:     w.allocProjectileID(),
				by:     id,
				linvel: mgl32.Vec2{0, a.Projectile.Speed * mirror},
			}, true
		}
		return spawn{}, false
	}

	var vx float32
	if p.input.Left {
		vx -= mirror
	}
	if p.input.Right {
		vx += mirror
	}
	vx *= a.Player.HorizontalSpeed

	vy := w.phys.MustBody(p.body).Linvel().Y()
	if p.input.Action && w.grounded(p) {
		vy = a.Player.JumpVelocity * mirror
	}
	w.phys.SetLinvel(p.body, mgl32.Vec2{vx, vy})

	g := float32(a.Physics.Gravity * a.Physics.GravityScale)
	w.phys.ApplyForce(p.body, mgl32.Vec2{0, -g * mirror})
	return spawn{}, false
}

func (w *World) moveCannon(dx float32) {
	c := w.arena.Cannon
	w.cannonX = max(c.MinX, min(c.MaxX, w.cannonX+dx))
}

// grounded reports whether the player rests on a horizontal surface: some
// active contact has a normal of exactly zero x and unit y.
func (w *World) grounded(p *Player) bool {
	for _, pair := range w.phys.ContactsWith(p.collider) {
		if !pair.HasAnyActiveContact {
			continue
		}
		for _, m := range pair.Manifolds {
			n := m.LocalN1
			if n.X() == 0 && math.Abs(math.Abs(float64(n.Y()))-1) < groundedEpsilon {
				return true
			}
		}
	}
	return false
}

// deadPlayers returns players overlapping any sensor: lava or a projectile.
func (w *World) deadPlayers() []PlayerID {
	var dead []PlayerID
	for _, id := range Players {
		c := w.players[id.Seat()].collider
		for _, in := range w.phys.IntersectionsWith(c) {
			if w.phys.MustCollider(in.Other(c)).IsSensor() {
				dead = append(dead, id)
				break
			}
		}
	}
	return dead
}

// resetRound starts the next round. Inputs survive the reset.
func (w *World) resetRound(res *StepResult, dead []PlayerID) {
	w.round++
	w.advantage = Neutral

	for _, id := range Players {
		p := w.players[id.Seat()]
		w.phys.SetTranslation(p.body, w.startPosition(id))
		w.phys.SetLinvel(p.body, mgl32.Vec2{})
		w.movePad(id, w.padStart[id.Seat()])
	}
	w.cannonX = w.arena.Cannon.DefaultX

	for _, pid := range w.clearProjectiles() {
		res.Events = append(res.Events, ProjectileDestroyed{ID: pid})
	}
	res.Events = append(res.Events, RoundReset{Round: w.round, Dead: dead})
	w.logger.Debug("round reset", "round", w.round, "dead", dead, "tick", w.tick)
}

// resolvePads handles pad claims, or projectile impacts when nobody
// claimed.
func (w *World) resolvePads(res *StepResult) {
	var claims []PlayerID
	for _, id := range Players {
		if w.advantage.HeldBy(id) {
			continue
		}
		pair, ok := w.phys.ContactPair(w.players[id.Seat()].collider, w.pads[id.Seat()].collider)
		if ok && pair.HasAnyActiveContact {
			claims = append(claims, id)
		}
	}

	switch len(claims) {
	case 0:
		for _, pid := range w.projectilesOnTerrain() {
			w.removeProjectile(pid)
			res.Events = append(res.Events, ProjectileDestroyed{ID: pid})
		}
		return
	case 1:
		w.capture(res, claims[0])
	default:
		// Nobody gets the cannon when both reach their pads together.
		w.advantage = Neutral
		res.Events = append(res.Events, ContestedCapture{})
		w.logger.Debug("contested capture", "tick", w.tick)
	}

	for _, pid := range w.clearProjectiles() {
		res.Events = append(res.Events, ProjectileDestroyed{ID: pid})
	}
}

// capture hands the cannon to id and sends the opponent's pad to the side
// away from the opponent.
func (w *World) capture(res *StepResult, id PlayerID) {
	w.advantage = AdvantageFor(id)
	w.phys.SetLinvel(w.players[id.Seat()].body, mgl32.Vec2{})

	opp := id.Opponent()
	side := PadLeft
	if w.PlayerPosition(opp).X() < w.arena.Layout.Center() {
		side = PadRight
	}
	w.movePad(opp, side)

	res.Events = append(res.Events, PadCaptured{By: id, Relocated: side})
	w.logger.Debug("pad captured", "by", id, "pad", side, "tick", w.tick)
}

// projectilesOnTerrain returns projectiles overlapping a solid collider,
// in id order.
func (w *World) projectilesOnTerrain() []uint16 {
	var hit []uint16
	for _, pid := range sortedIDs(w.projectiles) {
		c := w.projectiles[pid].collider
		for _, in := range w.phys.IntersectionsWith(c) {
			if !w.phys.MustCollider(in.Other(c)).IsSensor() {
				hit = append(hit, pid)
				break
			}
		}
	}
	return hit
}
