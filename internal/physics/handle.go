package physics

import "fmt"

// BodyHandle identifies a rigid body inside a World.
// The zero value never refers to a live body.
type BodyHandle struct {
	index uint32
	gen   uint32
}

// ColliderHandle identifies a collider inside a World.
// The zero value never refers to a live collider.
type ColliderHandle struct {
	index uint32
	gen   uint32
}

// IsValid reports whether the handle was ever issued by a World.
// A valid handle may still be stale if its body was removed.
func (h BodyHandle) IsValid() bool { return h.gen != 0 }

// IsValid reports whether the handle was ever issued by a World.
func (h ColliderHandle) IsValid() bool { return h.gen != 0 }

// Index returns the slot index of the handle.
func (h BodyHandle) Index() uint32 { return h.index }

// Index returns the slot index of the handle.
func (h ColliderHandle) Index() uint32 { return h.index }

func (h BodyHandle) String() string {
	return fmt.Sprintf("body(%d#%d)", h.index, h.gen)
}

func (h ColliderHandle) String() string {
	return fmt.Sprintf("collider(%d#%d)", h.index, h.gen)
}

// slot holds one arena entry. Generations start at 1 so the zero handle
// is always stale.
type slot[T any] struct {
	gen  uint32
	live bool
	val  T
}

// arena is a generational slot allocator. Freed slots are reused in LIFO
// order, which keeps allocation a pure function of the insert/remove sequence.
type arena[T any] struct {
	slots []slot[T]
	free  []uint32
	count int
}

func (a *arena[T]) insert(v T) (uint32, uint32) {
	a.count++
	if n := len(a.free); n > 0 {
		idx := a.free[n-1]
		a.free = a.free[:n-1]
		s := &a.slots[idx]
		s.gen++
		s.live = true
		s.val = v
		return idx, s.gen
	}
	a.slots = append(a.slots, slot[T]{gen: 1, live: true, val: v})
	return uint32(len(a.slots) - 1), 1
}

func (a *arena[T]) get(idx, gen uint32) (*T, bool) {
	if int(idx) >= len(a.slots) {
		return nil, false
	}
	s := &a.slots[idx]
	if !s.live || s.gen != gen {
		return nil, false
	}
	return &s.val, true
}

func (a *arena[T]) remove(idx, gen uint32) (T, bool) {
	var zero T
	if _, ok := a.get(idx, gen); !ok {
		return zero, false
	}
	s := &a.slots[idx]
	v := s.val
	s.live = false
	s.val = zero
	a.free = append(a.free, idx)
	a.count--
	return v, true
}

// each visits live entries in ascending slot order.
func (a *arena[T]) each(fn func(idx, gen uint32, v *T)) {
	for i := range a.slots {
		s := &a.slots[i]
		if s.live {
			fn(uint32(i), s.gen, &s.val)
		}
	}
}

func (a *arena[T]) len() int { return a.count }
