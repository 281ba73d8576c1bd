package physics

import (
	"math"
	"sort"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/solarlune/resolv"
)

const (
	// spaceScale is the number of resolv units per simulation unit.
	spaceScale = 16
	// cellSize is one simulation unit worth of resolv units.
	cellSize = spaceScale
	// spaceMargin pads every query so objects whose edges sit on a cell
	// boundary are still reported.
	spaceMargin = 2
)

// Bounds is the region covered by the broad phase grid. Colliders entirely
// outside it are invisible to queries.
type Bounds struct {
	Min mgl32.Vec2
	Max mgl32.Vec2
}

// broadPhase maps colliders onto a resolv cell space. resolv only answers
// "who shares cells with this box"; exact tests happen in float32 afterwards.
type broadPhase struct {
	space  *resolv.Space
	origin mgl32.Vec2
}

func newBroadPhase(b Bounds) *broadPhase {
	w := int(math.Ceil(float64(b.Max.X()-b.Min.X()) * spaceScale))
	h := int(math.Ceil(float64(b.Max.Y()-b.Min.Y()) * spaceScale))
	return &broadPhase{
		space:  resolv.NewSpace(max(w, cellSize), max(h, cellSize), cellSize, cellSize),
		origin: b.Min,
	}
}

func (bp *broadPhase) toSpace(box aabb) (x, y, w, h float64) {
	x = float64(box.min.X()-bp.origin.X()) * spaceScale
	y = float64(box.min.Y()-bp.origin.Y()) * spaceScale
	w = float64(box.max.X()-box.min.X()) * spaceScale
	h = float64(box.max.Y()-box.min.Y()) * spaceScale
	return x, y, w, h
}

func (bp *broadPhase) add(h ColliderHandle, box aabb) *resolv.Object {
	x, y, w, hh := bp.toSpace(box)
	obj := resolv.NewObject(x, y, w, hh)
	obj.Data = h
	bp.space.Add(obj)
	return obj
}

func (bp *broadPhase) remove(obj *resolv.Object) {
	if obj != nil {
		bp.space.Remove(obj)
	}
}

func (bp *broadPhase) move(obj *resolv.Object, box aabb) {
	obj.X, obj.Y, obj.W, obj.H = bp.toSpace(box)
	obj.Update()
}

// query returns the colliders sharing cells with region, excluding obj
// itself, sorted by handle index. obj is temporarily stretched over region
// and put back afterwards.
func (bp *broadPhase) query(obj *resolv.Object, region aabb) []ColliderHandle {
	ox, oy, ow, oh := obj.X, obj.Y, obj.W, obj.H

	x, y, w, h := bp.toSpace(region)
	obj.X, obj.Y = x-spaceMargin, y-spaceMargin
	obj.W, obj.H = w+2*spaceMargin, h+2*spaceMargin
	obj.Update()

	var out []ColliderHandle
	if col := obj.Check(0, 0); col != nil {
		out = make([]ColliderHandle, 0, len(col.Objects))
		for _, o := range col.Objects {
			if ch, ok := o.Data.(ColliderHandle); ok {
				out = append(out, ch)
			}
		}
	}

	obj.X, obj.Y, obj.W, obj.H = ox, oy, ow, oh
	obj.Update()

	sort.Slice(out, func(i, j int) bool { return out[i].index < out[j].index })
	return out
}
