// Package physics is a small deterministic rigid body engine for axis-aligned
// boxes: generational handles, fixed-step integration, swept movement against
// solid colliders, contact pairs and sensor intersections.
//
// All arithmetic is float32 and every iteration runs in handle order, so the
// same sequence of calls produces bit-identical state. Products that feed a
// sum are wrapped in explicit float32 conversions to keep the compiler from
// fusing them.
package physics

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

// skin is the tolerance used when deciding whether two flush boxes block
// each other.
const skin float32 = 1e-4

// World owns every body and collider plus the derived contact data.
type World struct {
	gravity   mgl32.Vec2
	bodies    arena[RigidBody]
	colliders arena[Collider]
	broad     *broadPhase
	narrow    narrowPhase
	dirty     bool
}

// NewWorld creates an empty world with the given global gravity.
func NewWorld(gravity mgl32.Vec2, bounds Bounds) *World {
	w := &World{
		gravity: gravity,
		broad:   newBroadPhase(bounds),
	}
	w.narrow.reset()
	return w
}

// Gravity returns the global gravity vector.
func (w *World) Gravity() mgl32.Vec2 { return w.gravity }

// BodyCount returns the number of live bodies.
func (w *World) BodyCount() int { return w.bodies.len() }

// ColliderCount returns the number of live colliders.
func (w *World) ColliderCount() int { return w.colliders.len() }

// InsertBody adds a body and returns its handle.
func (w *World) InsertBody(d BodyDesc) BodyHandle {
	idx, gen := w.bodies.insert(newRigidBody(d))
	return BodyHandle{index: idx, gen: gen}
}

// InsertCollider adds a collider. A zero parent creates a fixed collider
// positioned at desc.Offset.
func (w *World) InsertCollider(d ColliderDesc, parent BodyHandle) ColliderHandle {
	c := Collider{
		half:     d.HalfExtents,
		offset:   d.Offset,
		sensor:   d.Sensor,
		friction: d.Friction,
		density:  d.Density,
		parent:   parent,
	}
	idx, gen := w.colliders.insert(c)
	h := ColliderHandle{index: idx, gen: gen}
	stored := w.MustCollider(h)

	if parent.IsValid() {
		b := w.MustBody(parent)
		b.colliders = append(b.colliders, h)
		if b.typ == Dynamic {
			b.mass += float32(stored.area() * stored.density)
		}
	}
	stored.obj = w.broad.add(h, w.colliderBox(stored))
	w.dirty = true
	return h
}

// RemoveBody removes a body and every collider attached to it.
// It reports whether the handle was live.
func (w *World) RemoveBody(h BodyHandle) bool {
	b, ok := w.bodies.remove(h.index, h.gen)
	if !ok {
		return false
	}
	for _, ch := range b.colliders {
		if c, ok := w.colliders.remove(ch.index, ch.gen); ok {
			w.broad.remove(c.obj)
		}
	}
	w.dirty = true
	return true
}

// RemoveCollider removes a single collider and detaches it from its parent.
func (w *World) RemoveCollider(h ColliderHandle) bool {
	c, ok := w.colliders.remove(h.index, h.gen)
	if !ok {
		return false
	}
	w.broad.remove(c.obj)
	if b, ok := w.Body(c.parent); ok {
		for i, ch := range b.colliders {
			if ch == h {
				b.colliders = append(b.colliders[:i], b.colliders[i+1:]...)
				break
			}
		}
		if b.typ == Dynamic {
			b.mass -= float32(c.area() * c.density)
		}
	}
	w.dirty = true
	return true
}

// Body looks up a body.
func (w *World) Body(h BodyHandle) (*RigidBody, bool) {
	return w.bodies.get(h.index, h.gen)
}

// MustBody looks up a body that is known to exist. A missing body means the
// caller's bookkeeping is corrupt, so it panics.
func (w *World) MustBody(h BodyHandle) *RigidBody {
	b, ok := w.Body(h)
	if !ok {
		panic(fmt.Sprintf("physics: %s does not exist", h))
	}
	return b
}

// Collider looks up a collider.
func (w *World) Collider(h ColliderHandle) (*Collider, bool) {
	return w.colliders.get(h.index, h.gen)
}

// MustCollider is the collider counterpart of MustBody.
func (w *World) MustCollider(h ColliderHandle) *Collider {
	c, ok := w.Collider(h)
	if !ok {
		panic(fmt.Sprintf("physics: %s does not exist", h))
	}
	return c
}

// SetTranslation teleports a body, keeping its rotation.
func (w *World) SetTranslation(h BodyHandle, t mgl32.Vec2) {
	b := w.MustBody(h)
	b.pos.Translation = t
	w.syncColliders(b)
}

// SetPosition teleports a body.
func (w *World) SetPosition(h BodyHandle, iso Isometry) {
	b := w.MustBody(h)
	b.pos = iso
	w.syncColliders(b)
}

// SetLinvel overwrites the linear velocity.
func (w *World) SetLinvel(h BodyHandle, v mgl32.Vec2) {
	w.MustBody(h).linvel = v
}

// SetAngvel overwrites the angular velocity.
func (w *World) SetAngvel(h BodyHandle, v float32) {
	w.MustBody(h).angvel = v
}

// ApplyForce adds to the force accumulator. Forces are consumed and cleared
// by the next Step.
func (w *World) ApplyForce(h BodyHandle, f mgl32.Vec2) {
	b := w.MustBody(h)
	b.force = b.force.Add(f)
}

// Step advances the world by dt seconds.
func (w *World) Step(dt float32) {
	var dynamic []BodyHandle
	w.bodies.each(func(idx, gen uint32, b *RigidBody) {
		if b.typ != Dynamic {
			b.force = mgl32.Vec2{}
			return
		}
		acc := w.gravity
		if b.mass > 0 {
			acc = mgl32.Vec2{acc.X() + b.force.X()/b.mass, acc.Y() + b.force.Y()/b.mass}
		}
		b.linvel = madd(b.linvel, acc, dt)
		b.force = mgl32.Vec2{}
		if b.lockRot {
			b.angvel = 0
		} else {
			b.pos.Rotation += float32(b.angvel * dt)
		}
		dynamic = append(dynamic, BodyHandle{index: idx, gen: gen})
	})

	for _, h := range dynamic {
		w.moveBody(w.MustBody(h), dt)
	}

	w.dirty = true
	w.refresh()
}

// moveBody translates a dynamic body by its velocity one axis at a time,
// stopping at the first solid collider in the way.
func (w *World) moveBody(b *RigidBody, dt float32) {
	delta := mgl32.Vec2{float32(b.linvel.X() * dt), float32(b.linvel.Y() * dt)}

	var solids []*Collider
	for _, ch := range b.colliders {
		if c := w.MustCollider(ch); !c.sensor {
			solids = append(solids, c)
		}
	}
	if len(solids) == 0 {
		b.pos.Translation = b.pos.Translation.Add(delta)
		w.syncColliders(b)
		return
	}

	for axis := 0; axis < 2; axis++ {
		d := delta[axis]
		if d == 0 {
			continue
		}
		allowed := abs(d)
		for _, c := range solids {
			allowed = min(allowed, w.sweep(b, c, axis, d))
		}
		if allowed < abs(d) {
			b.linvel[axis] = 0
		}
		b.pos.Translation[axis] += sign(d) * allowed
		w.syncColliders(b)
	}
}

// sweep returns how far c may travel along axis (towards the sign of d)
// before touching a solid collider that does not belong to b.
func (w *World) sweep(b *RigidBody, c *Collider, axis int, d float32) float32 {
	box := w.colliderBox(c)
	var step mgl32.Vec2
	step[axis] = d
	moved := box.translate(step)
	region := moved
	if b.ccd {
		region = box.union(moved)
	}

	allowed := abs(d)
	for _, ch := range w.broad.query(c.obj, region) {
		other := w.MustCollider(ch)
		if other.sensor || (other.parent.IsValid() && other.parent == c.parent) {
			continue
		}
		ob := w.colliderBox(other)
		if !box.overlapsAxis(ob, 1-axis, skin) {
			continue
		}

		var gap float32
		if d > 0 {
			if ob.min[axis] < box.max[axis]-skin {
				continue
			}
			if !b.ccd && ob.max[axis] <= moved.min[axis] {
				continue
			}
			gap = ob.min[axis] - box.max[axis]
		} else {
			if ob.max[axis] > box.min[axis]+skin {
				continue
			}
			if !b.ccd && ob.min[axis] >= moved.max[axis] {
				continue
			}
			gap = box.min[axis] - ob.max[axis]
		}
		allowed = min(allowed, max(gap, 0))
	}
	return allowed
}

func (w *World) colliderBox(c *Collider) aabb {
	center := c.offset
	if b, ok := w.Body(c.parent); ok {
		center = b.pos.Translation.Add(c.offset)
	}
	return boxAt(center, c.half)
}

func (w *World) syncColliders(b *RigidBody) {
	for _, ch := range b.colliders {
		c := w.MustCollider(ch)
		w.broad.move(c.obj, w.colliderBox(c))
	}
	w.dirty = true
}

func (w *World) isDynamicCollider(c *Collider) bool {
	b, ok := w.Body(c.parent)
	return ok && b.typ == Dynamic
}

// refresh recomputes contacts and intersections if anything moved since the
// last computation. Pairs are only generated when at least one side is
// attached to a dynamic body; two sensors never interact.
func (w *World) refresh() {
	if !w.dirty {
		return
	}
	np := &w.narrow
	np.reset()

	w.colliders.each(func(idx, gen uint32, c *Collider) {
		if !w.isDynamicCollider(c) {
			return
		}
		h := ColliderHandle{index: idx, gen: gen}
		box := w.colliderBox(c)
		for _, ch := range w.broad.query(c.obj, box.grow(PredictionDistance)) {
			other := w.MustCollider(ch)
			if other.parent == c.parent {
				continue
			}
			if ch.index < idx && w.isDynamicCollider(other) {
				continue
			}
			c1, c2, b1, b2 := h, ch, box, w.colliderBox(other)
			if ch.index < idx {
				c1, c2, b1, b2 = ch, h, b2, b1
			}

			if c.sensor || other.sensor {
				if c.sensor && other.sensor {
					continue
				}
				if boxesIntersect(b1, b2) {
					np.addIntersection(Intersection{Collider1: c1, Collider2: c2})
				}
				continue
			}

			m, ok := boxContact(b1, b2)
			if !ok {
				continue
			}
			np.addContact(ContactPair{
				Collider1:           c1,
				Collider2:           c2,
				Manifolds:           []Manifold{m},
				HasAnyActiveContact: m.Distance <= ContactTolerance,
			})
		}
	})
	w.dirty = false
}

// ContactsWith returns every contact pair involving c.
func (w *World) ContactsWith(c ColliderHandle) []ContactPair {
	w.refresh()
	idx := w.narrow.contactIdx[c]
	out := make([]ContactPair, 0, len(idx))
	for _, i := range idx {
		out = append(out, w.narrow.contacts[i])
	}
	return out
}

// ContactPair returns the contact pair between a and b, if any.
func (w *World) ContactPair(a, b ColliderHandle) (ContactPair, bool) {
	w.refresh()
	i, ok := w.narrow.pairIdx[keyOf(a, b)]
	if !ok {
		return ContactPair{}, false
	}
	return w.narrow.contacts[i], true
}

// IntersectionsWith returns every sensor intersection involving c.
func (w *World) IntersectionsWith(c ColliderHandle) []Intersection {
	w.refresh()
	idx := w.narrow.interIdx[c]
	out := make([]Intersection, 0, len(idx))
	for _, i := range idx {
		out = append(out, w.narrow.intersections[i])
	}
	return out
}

func madd(v, a mgl32.Vec2, s float32) mgl32.Vec2 {
	return mgl32.Vec2{v.X() + float32(a.X()*s), v.Y() + float32(a.Y()*s)}
}

func abs(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
