package physics

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/solarlune/resolv"
)

// ColliderDesc describes an axis-aligned box collider.
type ColliderDesc struct {
	HalfExtents mgl32.Vec2
	// Offset is relative to the parent body, or the world position of a
	// parentless collider.
	Offset mgl32.Vec2
	Sensor bool
	// Friction is recorded but only frictionless contact is modelled:
	// tangential velocity survives a collision untouched.
	Friction float32
	Density  float32
}

// Cuboid returns a solid box description with density 1.
func Cuboid(hx, hy float32) ColliderDesc {
	return ColliderDesc{HalfExtents: mgl32.Vec2{hx, hy}, Density: 1}
}

// At sets the offset.
func (d ColliderDesc) At(x, y float32) ColliderDesc {
	d.Offset = mgl32.Vec2{x, y}
	return d
}

// AsSensor marks the collider as a sensor.
func (d ColliderDesc) AsSensor() ColliderDesc {
	d.Sensor = true
	return d
}

// WithFriction sets the friction coefficient.
func (d ColliderDesc) WithFriction(f float32) ColliderDesc {
	d.Friction = f
	return d
}

// Collider is an attached or free-standing box.
type Collider struct {
	half     mgl32.Vec2
	offset   mgl32.Vec2
	sensor   bool
	friction float32
	density  float32
	parent   BodyHandle
	obj      *resolv.Object
}

func (c *Collider) IsSensor() bool             { return c.sensor }
func (c *Collider) HalfExtents() mgl32.Vec2    { return c.half }
func (c *Collider) Friction() float32          { return c.friction }
func (c *Collider) Offset() mgl32.Vec2         { return c.offset }
func (c *Collider) Parent() (BodyHandle, bool) { return c.parent, c.parent.IsValid() }

// area is the box area used for mass.
func (c *Collider) area() float32 {
	return float32(4*c.half.X()) * c.half.Y()
}

// aabb is an axis-aligned box in simulation units.
type aabb struct {
	min, max mgl32.Vec2
}

func boxAt(center, half mgl32.Vec2) aabb {
	return aabb{
		min: mgl32.Vec2{center.X() - half.X(), center.Y() - half.Y()},
		max: mgl32.Vec2{center.X() + half.X(), center.Y() + half.Y()},
	}
}

func (b aabb) translate(d mgl32.Vec2) aabb {
	return aabb{min: b.min.Add(d), max: b.max.Add(d)}
}

// union covers both boxes.
func (b aabb) union(o aabb) aabb {
	return aabb{
		min: mgl32.Vec2{min(b.min.X(), o.min.X()), min(b.min.Y(), o.min.Y())},
		max: mgl32.Vec2{max(b.max.X(), o.max.X()), max(b.max.Y(), o.max.Y())},
	}
}

// grow expands the box by m on every side.
func (b aabb) grow(m float32) aabb {
	return aabb{
		min: mgl32.Vec2{b.min.X() - m, b.min.Y() - m},
		max: mgl32.Vec2{b.max.X() + m, b.max.Y() + m},
	}
}

// overlapsAxis reports strict overlap along one axis, shrunk by eps so that
// boxes resting flush against each other do not count.
func (b aabb) overlapsAxis(o aabb, axis int, eps float32) bool {
	return o.min[axis] < b.max[axis]-eps && o.max[axis] > b.min[axis]+eps
}

// gap returns the signed separation along an axis; negative means overlap.
func (b aabb) gap(o aabb, axis int) float32 {
	return max(o.min[axis]-b.max[axis], b.min[axis]-o.max[axis])
}

func (b aabb) center() mgl32.Vec2 {
	return mgl32.Vec2{float32(b.min.X()+b.max.X()) / 2, float32(b.min.Y()+b.max.Y()) / 2}
}
