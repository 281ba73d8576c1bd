package game

import (
	"maps"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Pose is a render transform in display units.
type Pose struct {
	Translation mgl32.Vec2 `msgpack:"t"`
	Rotation    float32    `msgpack:"r"`
}

// DisplayState is what a renderer needs for one frame. Positions are in
// display units.
type DisplayState struct {
	Round       uint8           `msgpack:"round"`
	Advantage   AdvantageState  `msgpack:"adv"`
	Players     [2]Pose         `msgpack:"players"`
	CannonX     float32         `msgpack:"cannon"`
	Pads        [2]PadStatus    `msgpack:"pads"`
	Projectiles map[uint16]Pose `msgpack:"proj"`
}

// DisplayState projects the world for rendering.
func (w *World) DisplayState() DisplayState {
	d := DisplayState{
		Round:       w.round,
		Advantage:   w.advantage,
		CannonX:     w.cannonX,
		Projectiles: make(map[uint16]Pose, len(w.projectiles)),
	}
	for i, p := range w.players {
		b := w.phys.MustBody(p.body)
		d.Players[i] = Pose{Translation: w.toDisplay(b.Translation()), Rotation: b.Rotation()}
	}
	for i, pad := range w.pads {
		d.Pads[i] = pad.status
	}
	for id, p := range w.projectiles {
		b := w.phys.MustBody(p.body)
		d.Projectiles[id] = Pose{Translation: w.toDisplay(b.Translation()), Rotation: b.Rotation()}
	}
	return d
}

// Clone returns a deep copy.
func (d DisplayState) Clone() DisplayState {
	d.Projectiles = maps.Clone(d.Projectiles)
	return d
}

// Interpolate blends two consecutive display states; t is clamped to [0, 1].
// Across a round change b is returned as is. Projectiles only in a are
// gone; projectiles only in b are shown where b has them. Projectile x is
// always b's: only y is blended.
func Interpolate(a, b DisplayState, t float64) DisplayState {
	if a.Round != b.Round {
		return b.Clone()
	}
	t = math.Max(0, math.Min(1, t))
	tf := float32(t)

	out := DisplayState{
		Round:       b.Round,
		Advantage:   b.Advantage,
		CannonX:     lerp(a.CannonX, b.CannonX, tf),
		Pads:        b.Pads,
		Projectiles: make(map[uint16]Pose, len(b.Projectiles)),
	}
	for i := range out.Players {
		out.Players[i] = Pose{
			Translation: mgl32.Vec2{
				lerp(a.Players[i].Translation.X(), b.Players[i].Translation.X(), tf),
				lerp(a.Players[i].Translation.Y(), b.Players[i].Translation.Y(), tf),
			},
			Rotation: slerpAngle(a.Players[i].Rotation, b.Players[i].Rotation, tf),
		}
	}
	for id, pb := range b.Projectiles {
		pa, ok := a.Projectiles[id]
		if !ok {
			out.Projectiles[id] = pb
			continue
		}
		out.Projectiles[id] = Pose{
			Translation: mgl32.Vec2{pb.Translation.X(), lerp(pa.Translation.Y(), pb.Translation.Y(), tf)},
			Rotation:    pb.Rotation,
		}
	}
	return out
}

func lerp(a, b, t float32) float32 {
	return float32((1-t)*a) + float32(t*b)
}

// slerpAngle interpolates two planar rotations along the shortest arc.
func slerpAngle(a, b, t float32) float32 {
	axis := mgl32.Vec3{0, 0, 1}
	qa, qb := mgl32.QuatRotate(a, axis), mgl32.QuatRotate(b, axis)
	if qa.Dot(qb) < 0 {
		qb = qb.Scale(-1)
	}
	q := mgl32.QuatSlerp(qa, qb, t)
	return float32(2 * math.Atan2(float64(q.V.Z()), float64(q.W)))
}
