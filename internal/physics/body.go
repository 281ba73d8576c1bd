package physics

import "github.com/go-gl/mathgl/mgl32"

// BodyType selects how the integrator treats a body.
type BodyType uint8

const (
	// Dynamic bodies integrate forces and are moved by Step.
	Dynamic BodyType = iota
	// Static bodies never move on their own; they can still be teleported.
	Static
)

func (t BodyType) String() string {
	switch t {
	case Dynamic:
		return "dynamic"
	case Static:
		return "static"
	default:
		return "unknown"
	}
}

// Isometry is a 2D rigid transform: translation plus rotation in radians.
type Isometry struct {
	Translation mgl32.Vec2
	Rotation    float32
}

// BodyDesc describes a body to insert.
type BodyDesc struct {
	Type          BodyType
	Translation   mgl32.Vec2
	Rotation      float32
	Linvel        mgl32.Vec2
	Angvel        float32
	LockRotations bool
	// CCD sweeps the whole motion of a tick against solid colliders instead
	// of only testing the destination.
	CCD bool
}

// RigidBody is the engine's view of a body. Mutate it through World setters.
type RigidBody struct {
	typ       BodyType
	pos       Isometry
	linvel    mgl32.Vec2
	angvel    float32
	force     mgl32.Vec2
	mass      float32
	lockRot   bool
	ccd       bool
	colliders []ColliderHandle
}

func newRigidBody(d BodyDesc) RigidBody {
	b := RigidBody{
		typ:     d.Type,
		pos:     Isometry{Translation: d.Translation, Rotation: d.Rotation},
		linvel:  d.Linvel,
		angvel:  d.Angvel,
		lockRot: d.LockRotations,
		ccd:     d.CCD,
	}
	if b.lockRot {
		b.angvel = 0
	}
	return b
}

func (b *RigidBody) Type() BodyType          { return b.typ }
func (b *RigidBody) IsDynamic() bool         { return b.typ == Dynamic }
func (b *RigidBody) Position() Isometry      { return b.pos }
func (b *RigidBody) Translation() mgl32.Vec2 { return b.pos.Translation }
func (b *RigidBody) Rotation() float32       { return b.pos.Rotation }
func (b *RigidBody) Linvel() mgl32.Vec2      { return b.linvel }
func (b *RigidBody) Angvel() float32         { return b.angvel }
func (b *RigidBody) Mass() float32           { return b.mass }
func (b *RigidBody) CCDEnabled() bool        { return b.ccd }

// Force returns the force accumulated since the last step.
func (b *RigidBody) Force() mgl32.Vec2 { return b.force }

// Colliders returns the handles of colliders attached to the body, in
// insertion order.
func (b *RigidBody) Colliders() []ColliderHandle {
	out := make([]ColliderHandle, len(b.colliders))
	copy(out, b.colliders)
	return out
}
