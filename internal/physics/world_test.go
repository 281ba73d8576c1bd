package physics

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

var testBounds = Bounds{Min: mgl32.Vec2{-50, -50}, Max: mgl32.Vec2{50, 50}}

func approx(a, b float32) bool {
	return math.Abs(float64(a-b)) < 1e-4
}

// newBox inserts a dynamic box body with a single collider.
func newBox(w *World, x, y, hx, hy float32, ccd bool) (BodyHandle, ColliderHandle) {
	b := w.InsertBody(BodyDesc{
		Type:          Dynamic,
		Translation:   mgl32.Vec2{x, y},
		LockRotations: true,
		CCD:           ccd,
	})
	c := w.InsertCollider(Cuboid(hx, hy), b)
	return b, c
}

func TestHandleGenerations(t *testing.T) {
	w := NewWorld(mgl32.Vec2{}, testBounds)

	var zero BodyHandle
	if zero.IsValid() {
		t.Error("zero handle should be invalid")
	}
	if _, ok := w.Body(zero); ok {
		t.Error("zero handle should not resolve")
	}

	h1, _ := newBox(w, 0, 0, 0.5, 0.5, false)
	if !w.RemoveBody(h1) {
		t.Fatal("RemoveBody() returned false for live body")
	}
	if w.RemoveBody(h1) {
		t.Error("RemoveBody() returned true for stale body")
	}

	h2, _ := newBox(w, 0, 0, 0.5, 0.5, false)
	if h2.Index() != h1.Index() {
		t.Errorf("slot not reused: got %d, want %d", h2.Index(), h1.Index())
	}
	if h2 == h1 {
		t.Error("reused slot should carry a new generation")
	}
	if _, ok := w.Body(h1); ok {
		t.Error("stale handle resolved after slot reuse")
	}
	if _, ok := w.Body(h2); !ok {
		t.Error("new handle did not resolve")
	}
}

func TestMustBodyPanicsOnStaleHandle(t *testing.T) {
	w := NewWorld(mgl32.Vec2{}, testBounds)
	h, _ := newBox(w, 0, 0, 0.5, 0.5, false)
	w.RemoveBody(h)

	defer func() {
		if recover() == nil {
			t.Error("MustBody() did not panic on stale handle")
		}
	}()
	w.MustBody(h)
}

func TestRemoveBodyRemovesColliders(t *testing.T) {
	w := NewWorld(mgl32.Vec2{}, testBounds)
	h, c := newBox(w, 0, 0, 0.5, 0.5, false)
	w.InsertCollider(Cuboid(0.1, 0.1).AsSensor(), h)

	if got := w.ColliderCount(); got != 2 {
		t.Fatalf("ColliderCount() = %d, want 2", got)
	}
	w.RemoveBody(h)
	if got := w.ColliderCount(); got != 0 {
		t.Errorf("ColliderCount() after removal = %d, want 0", got)
	}
	if _, ok := w.Collider(c); ok {
		t.Error("collider handle still resolves after body removal")
	}
}

func TestMassFromColliderArea(t *testing.T) {
	w := NewWorld(mgl32.Vec2{}, testBounds)
	h, _ := newBox(w, 0, 0, 0.5, 1, false)
	if got := w.MustBody(h).Mass(); !approx(got, 2) {
		t.Errorf("Mass() = %v, want 2", got)
	}
}

func TestForceIsClearedEachStep(t *testing.T) {
	w := NewWorld(mgl32.Vec2{}, testBounds)
	h, _ := newBox(w, 0, 0, 0.5, 0.5, false) // mass 1

	w.ApplyForce(h, mgl32.Vec2{0, -10})
	w.Step(0.1)

	b := w.MustBody(h)
	if !approx(b.Linvel().Y(), -1) {
		t.Errorf("vy after forced step = %v, want -1", b.Linvel().Y())
	}
	if b.Force() != (mgl32.Vec2{}) {
		t.Errorf("force not cleared: %v", b.Force())
	}

	w.Step(0.1)
	if !approx(b.Linvel().Y(), -1) {
		t.Errorf("vy after free step = %v, want -1", b.Linvel().Y())
	}
	if !approx(b.Translation().Y(), -0.2) {
		t.Errorf("y = %v, want -0.2", b.Translation().Y())
	}
}

func TestGlobalGravity(t *testing.T) {
	w := NewWorld(mgl32.Vec2{0, -10}, testBounds)
	h, _ := newBox(w, 0, 0, 0.5, 0.5, false)
	w.Step(0.5)
	if got := w.MustBody(h).Linvel().Y(); !approx(got, -5) {
		t.Errorf("vy = %v, want -5", got)
	}
}

func TestFloorStopsBodyAndReportsContact(t *testing.T) {
	w := NewWorld(mgl32.Vec2{}, testBounds)
	floor := w.InsertCollider(Cuboid(5, 0.5), BodyHandle{})
	h, c := newBox(w, 0, 1.5, 0.5, 0.5, true)
	w.SetLinvel(h, mgl32.Vec2{0, -30})

	for i := 0; i < 10; i++ {
		w.Step(1.0 / 60)
	}

	b := w.MustBody(h)
	if !approx(b.Translation().Y(), 1) {
		t.Errorf("body y = %v, want 1 (resting on floor)", b.Translation().Y())
	}
	if b.Linvel().Y() != 0 {
		t.Errorf("vy = %v, want 0 after landing", b.Linvel().Y())
	}

	pair, ok := w.ContactPair(c, floor)
	if !ok {
		t.Fatal("no contact pair between body and floor")
	}
	if !pair.HasAnyActiveContact {
		t.Error("contact pair should be active")
	}
	n := pair.Manifolds[0].LocalN1
	if n.X() != 0 || math.Abs(math.Abs(float64(n.Y()))-1) > 1e-6 {
		t.Errorf("normal = %v, want vertical unit axis", n)
	}
	if got := len(w.ContactsWith(c)); got != 1 {
		t.Errorf("ContactsWith() returned %d pairs, want 1", got)
	}
}

func TestRestingBodySlidesAlongFloor(t *testing.T) {
	w := NewWorld(mgl32.Vec2{}, testBounds)
	w.InsertCollider(Cuboid(10, 0.5), BodyHandle{})
	h, _ := newBox(w, 0, 1, 0.5, 0.5, true)
	w.SetLinvel(h, mgl32.Vec2{6, 0})

	w.Step(0.5)

	b := w.MustBody(h)
	if !approx(b.Translation().X(), 3) {
		t.Errorf("x = %v, want 3", b.Translation().X())
	}
	if b.Linvel().X() != 6 {
		t.Errorf("vx = %v, want 6 (frictionless)", b.Linvel().X())
	}
}

func TestCCDPreventsTunneling(t *testing.T) {
	tests := []struct {
		name  string
		ccd   bool
		wantX float32
	}{
		{"swept", true, 4.45},
		{"discrete", false, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := NewWorld(mgl32.Vec2{}, testBounds)
			w.InsertCollider(Cuboid(0.05, 5).At(5, 0), BodyHandle{})
			h, _ := newBox(w, 0, 0, 0.5, 0.5, tt.ccd)
			w.SetLinvel(h, mgl32.Vec2{600, 0})

			w.Step(1.0 / 60)

			if got := w.MustBody(h).Translation().X(); !approx(got, tt.wantX) {
				t.Errorf("x = %v, want %v", got, tt.wantX)
			}
		})
	}
}

func TestSensorBodyPassesThroughSolids(t *testing.T) {
	w := NewWorld(mgl32.Vec2{}, testBounds)
	wall := w.InsertCollider(Cuboid(0.5, 5).At(1, 0), BodyHandle{})

	h := w.InsertBody(BodyDesc{Type: Dynamic, LockRotations: true, CCD: true})
	c := w.InsertCollider(Cuboid(0.25, 1).AsSensor(), h)
	w.SetLinvel(h, mgl32.Vec2{60, 0})

	w.Step(1.0 / 60)

	if got := w.MustBody(h).Translation().X(); !approx(got, 1) {
		t.Errorf("x = %v, want 1", got)
	}
	hits := w.IntersectionsWith(c)
	if len(hits) != 1 || hits[0].Other(c) != wall {
		t.Errorf("IntersectionsWith() = %v, want a single hit with the wall", hits)
	}
}

func TestIntersectionsFollowTeleports(t *testing.T) {
	w := NewWorld(mgl32.Vec2{}, testBounds)
	lava := w.InsertCollider(Cuboid(2, 2).AsSensor(), BodyHandle{})
	h, c := newBox(w, 0, 0, 0.5, 0.5, true)

	if got := w.IntersectionsWith(lava); len(got) != 1 {
		t.Fatalf("IntersectionsWith(lava) = %d hits, want 1", len(got))
	}

	w.SetTranslation(h, mgl32.Vec2{10, 10})
	if got := w.IntersectionsWith(c); len(got) != 0 {
		t.Errorf("IntersectionsWith() after teleport = %d hits, want 0", len(got))
	}
}

func TestSensorsIgnoreEachOther(t *testing.T) {
	w := NewWorld(mgl32.Vec2{}, testBounds)
	w.InsertCollider(Cuboid(2, 2).AsSensor(), BodyHandle{})
	h := w.InsertBody(BodyDesc{Type: Dynamic})
	c := w.InsertCollider(Cuboid(0.5, 0.5).AsSensor(), h)

	if got := w.IntersectionsWith(c); len(got) != 0 {
		t.Errorf("sensor pair reported %d intersections, want 0", len(got))
	}
}

func TestStepIsDeterministic(t *testing.T) {
	build := func() (*World, BodyHandle) {
		w := NewWorld(mgl32.Vec2{0, -9.81}, testBounds)
		w.InsertCollider(Cuboid(20, 0.5), BodyHandle{})
		w.InsertCollider(Cuboid(0.5, 3).At(4, 3), BodyHandle{})
		h, _ := newBox(w, -3, 5, 0.5, 0.5, true)
		w.SetLinvel(h, mgl32.Vec2{7, 3})
		return w, h
	}

	w1, h1 := build()
	w2, h2 := build()
	for i := 0; i < 240; i++ {
		w1.ApplyForce(h1, mgl32.Vec2{0, float32(i%7) - 3})
		w2.ApplyForce(h2, mgl32.Vec2{0, float32(i%7) - 3})
		w1.Step(1.0 / 60)
		w2.Step(1.0 / 60)
	}

	b1, b2 := w1.MustBody(h1), w2.MustBody(h2)
	if b1.Position() != b2.Position() || b1.Linvel() != b2.Linvel() {
		t.Errorf("diverged: %v/%v vs %v/%v", b1.Position(), b1.Linvel(), b2.Position(), b2.Linvel())
	}
}
