package physics

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

const (
	// PredictionDistance is how far apart two solid boxes may be and still
	// produce a (speculative) contact pair.
	PredictionDistance float32 = 0.02
	// ContactTolerance is the largest separation that counts as touching.
	ContactTolerance float32 = 1e-3
)

// Manifold is the contact geometry between two boxes.
type Manifold struct {
	// LocalN1 is the contact normal in collider 1's frame, pointing from
	// collider 1 towards collider 2. Face contacts give exact unit axes.
	LocalN1 mgl32.Vec2
	// Distance is the separation; negative when penetrating.
	Distance float32
}

// ContactPair links two solid colliders that are touching or close to it.
type ContactPair struct {
	Collider1           ColliderHandle
	Collider2           ColliderHandle
	Manifolds           []Manifold
	HasAnyActiveContact bool
}

// Other returns the collider in the pair that is not c.
func (p ContactPair) Other(c ColliderHandle) ColliderHandle {
	if p.Collider1 == c {
		return p.Collider2
	}
	return p.Collider1
}

// Intersection links a sensor with a collider it overlaps.
type Intersection struct {
	Collider1 ColliderHandle
	Collider2 ColliderHandle
}

// Other returns the collider in the pair that is not c.
func (i Intersection) Other(c ColliderHandle) ColliderHandle {
	if i.Collider1 == c {
		return i.Collider2
	}
	return i.Collider1
}

type pairKey struct{ a, b ColliderHandle }

func keyOf(a, b ColliderHandle) pairKey {
	if b.index < a.index {
		a, b = b, a
	}
	return pairKey{a, b}
}

// narrowPhase holds the pairs computed from the current collider positions.
type narrowPhase struct {
	contacts      []ContactPair
	intersections []Intersection
	contactIdx    map[ColliderHandle][]int
	interIdx      map[ColliderHandle][]int
	pairIdx       map[pairKey]int
}

func (np *narrowPhase) reset() {
	np.contacts = np.contacts[:0]
	np.intersections = np.intersections[:0]
	np.contactIdx = make(map[ColliderHandle][]int)
	np.interIdx = make(map[ColliderHandle][]int)
	np.pairIdx = make(map[pairKey]int)
}

func (np *narrowPhase) addContact(p ContactPair) {
	i := len(np.contacts)
	np.contacts = append(np.contacts, p)
	np.contactIdx[p.Collider1] = append(np.contactIdx[p.Collider1], i)
	np.contactIdx[p.Collider2] = append(np.contactIdx[p.Collider2], i)
	np.pairIdx[keyOf(p.Collider1, p.Collider2)] = i
}

func (np *narrowPhase) addIntersection(in Intersection) {
	i := len(np.intersections)
	np.intersections = append(np.intersections, in)
	np.interIdx[in.Collider1] = append(np.interIdx[in.Collider1], i)
	np.interIdx[in.Collider2] = append(np.interIdx[in.Collider2], i)
}

// boxContact computes the manifold between a (collider 1) and b (collider 2).
// ok is false when the boxes are further apart than PredictionDistance.
func boxContact(a, b aabb) (Manifold, bool) {
	gx := a.gap(b, 0)
	gy := a.gap(b, 1)
	ca, cb := a.center(), b.center()
	sx := sign(cb.X() - ca.X())
	sy := sign(cb.Y() - ca.Y())

	var m Manifold
	switch {
	case gx > 0 && gy > 0:
		// Corner to corner.
		d := float32(math.Sqrt(float64(float32(gx*gx) + float32(gy*gy))))
		m = Manifold{LocalN1: mgl32.Vec2{sx * gx / d, sy * gy / d}, Distance: d}
	case gx > gy:
		m = Manifold{LocalN1: mgl32.Vec2{sx, 0}, Distance: gx}
	default:
		m = Manifold{LocalN1: mgl32.Vec2{0, sy}, Distance: gy}
	}
	if m.Distance > PredictionDistance {
		return Manifold{}, false
	}
	return m, true
}

// boxesIntersect reports strict overlap.
func boxesIntersect(a, b aabb) bool {
	return a.gap(b, 0) < 0 && a.gap(b, 1) < 0
}

func sign(v float32) float32 {
	if v < 0 {
		return -1
	}
	return 1
}
