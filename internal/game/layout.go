package game

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/vovakirdan/padclash/internal/config"
	"github.com/vovakirdan/padclash/internal/physics"
)

// build creates every body and collider. Insertion order is fixed (players,
// platforms, lava, pads) so handle indices are the same on every peer.
func (w *World) build() {
	a := w.arena
	size := a.Layout.Size / w.scale
	w.phys = physics.NewWorld(mgl32.Vec2{}, physics.Bounds{
		Min: mgl32.Vec2{-size, -size},
		Max: mgl32.Vec2{2 * size, 2 * size},
	})

	for _, id := range Players {
		body := w.phys.InsertBody(physics.BodyDesc{
			Type:          physics.Dynamic,
			Translation:   w.startPosition(id),
			CCD:           true,
			LockRotations: true,
		})
		coll := w.phys.InsertCollider(w.box(a.Player.Size).WithFriction(0), body)
		w.players[id.Seat()] = Player{body: body, collider: coll}
	}

	for _, r := range a.Layout.Mirrored(a.Layout.Platforms) {
		w.phys.InsertCollider(w.rect(r).WithFriction(0), physics.BodyHandle{})
	}
	for _, r := range a.Layout.Mirrored(a.Layout.Lava) {
		w.phys.InsertCollider(w.rect(r).AsSensor(), physics.BodyHandle{})
	}

	for _, id := range Players {
		status := w.padStart[id.Seat()]
		body := w.phys.InsertBody(physics.BodyDesc{
			Type:        physics.Static,
			Translation: w.padPosition(id, status),
		})
		coll := w.phys.InsertCollider(w.box(a.Pads.Size), body)
		w.pads[id.Seat()] = PowerPad{body: body, collider: coll, status: status}
	}
}

func (w *World) box(s config.Size) physics.ColliderDesc {
	return physics.Cuboid(s.W/2/w.scale, s.H/2/w.scale)
}

func (w *World) rect(r config.Rect) physics.ColliderDesc {
	return w.box(config.Size{W: r.W, H: r.H}).At(r.X/w.scale, r.Y/w.scale)
}

// startPosition is where a player spawns each round, in simulation units.
func (w *World) startPosition(id PlayerID) mgl32.Vec2 {
	if id == Player1 {
		return w.toSim(w.arena.Player.BottomStart)
	}
	return w.toSim(w.arena.Player.TopStart)
}

// padTrack returns the pair of positions of the pad contested by id.
func (w *World) padTrack(id PlayerID) config.PadTrack {
	if id == Player1 {
		return w.arena.Pads.Bottom
	}
	return w.arena.Pads.Top
}

// padPosition is the simulation-space position of id's pad on a side.
func (w *World) padPosition(id PlayerID, status PadStatus) mgl32.Vec2 {
	track := w.padTrack(id)
	if status == PadRight {
		return w.toSim(track.Right)
	}
	return w.toSim(track.Left)
}

// movePad teleports the pad contested by id to a side.
func (w *World) movePad(id PlayerID, status PadStatus) {
	pad := &w.pads[id.Seat()]
	pad.status = status
	w.phys.SetTranslation(pad.body, w.padPosition(id, status))
}

// allocProjectileID returns the next id not currently in use. Ids wrap
// around after 65535 and skip live projectiles.
func (w *World) allocProjectileID() uint16 {
	for {
		id := w.nextProjectileID
		w.nextProjectileID++
		if _, live := w.projectiles[id]; !live {
			return id
		}
	}
}

// createProjectile adds a projectile body at the cannon muzzle.
func (w *World) createProjectile(id uint16, linvel mgl32.Vec2) {
	body := w.phys.InsertBody(physics.BodyDesc{
		Type:          physics.Dynamic,
		Translation:   w.toSim(config.Point{X: w.cannonX, Y: w.arena.Cannon.MuzzleY}),
		Linvel:        linvel,
		CCD:           true,
		LockRotations: true,
	})
	coll := w.phys.InsertCollider(w.box(w.arena.Projectile.Size).AsSensor(), body)
	w.projectiles[id] = &Projectile{body: body, collider: coll}
}

func (w *World) removeProjectile(id uint16) bool {
	p, ok := w.projectiles[id]
	if !ok {
		return false
	}
	w.phys.RemoveBody(p.body)
	delete(w.projectiles, id)
	return true
}

// clearProjectiles removes every projectile in id order and returns the
// removed ids.
func (w *World) clearProjectiles() []uint16 {
	ids := sortedIDs(w.projectiles)
	for _, id := range ids {
		w.removeProjectile(id)
	}
	return ids
}
