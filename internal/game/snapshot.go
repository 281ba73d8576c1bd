package game

import (
	"encoding/binary"
	"hash/fnv"
	"maps"
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/vovakirdan/padclash/internal/physics"
)

// Kinematics is the portable state of one body, in simulation units.
type Kinematics struct {
	Translation mgl32.Vec2 `msgpack:"t"`
	Rotation    float32    `msgpack:"r"`
	Linvel      mgl32.Vec2 `msgpack:"v"`
	Angvel      float32    `msgpack:"w"`
}

// PlayerSnapshot is one player's body plus input.
type PlayerSnapshot struct {
	Body  Kinematics  `msgpack:"b"`
	Input PlayerInput `msgpack:"i"`
}

// PadSnapshot is a pad's position and side.
type PadSnapshot struct {
	Translation mgl32.Vec2 `msgpack:"t"`
	Rotation    float32    `msgpack:"r"`
	Status      PadStatus  `msgpack:"s"`
}

// Snapshot is a handle-free copy of everything needed to rebuild a World.
type Snapshot struct {
	Tick             uint64                `msgpack:"tick"`
	Round            uint8                 `msgpack:"round"`
	Advantage        AdvantageState        `msgpack:"adv"`
	Players          [2]PlayerSnapshot     `msgpack:"players"`
	CannonX          float32               `msgpack:"cannon"`
	Pads             [2]PadSnapshot        `msgpack:"pads"`
	NextProjectileID uint16                `msgpack:"next"`
	Projectiles      map[uint16]Kinematics `msgpack:"proj"`
}

// Snapshot captures the world. It does not mutate anything.
func (w *World) Snapshot() Snapshot {
	s := Snapshot{
		Tick:             w.tick,
		Round:            w.round,
		Advantage:        w.advantage,
		CannonX:          w.cannonX,
		NextProjectileID: w.nextProjectileID,
		Projectiles:      make(map[uint16]Kinematics, len(w.projectiles)),
	}
	for i, p := range w.players {
		s.Players[i] = PlayerSnapshot{Body: w.kinematics(p.body), Input: p.input}
	}
	for i, pad := range w.pads {
		b := w.phys.MustBody(pad.body)
		s.Pads[i] = PadSnapshot{Translation: b.Translation(), Rotation: b.Rotation(), Status: pad.status}
	}
	for id, p := range w.projectiles {
		s.Projectiles[id] = w.kinematics(p.body)
	}
	return s
}

func (w *World) kinematics(h physics.BodyHandle) Kinematics {
	b := w.phys.MustBody(h)
	return Kinematics{
		Translation: b.Translation(),
		Rotation:    b.Rotation(),
		Linvel:      b.Linvel(),
		Angvel:      b.Angvel(),
	}
}

func (w *World) setKinematics(h physics.BodyHandle, k Kinematics) {
	w.phys.SetPosition(h, physics.Isometry{Translation: k.Translation, Rotation: k.Rotation})
	w.phys.SetLinvel(h, k.Linvel)
	w.phys.SetAngvel(h, k.Angvel)
}

// Restore rewinds the world to s. Projectiles are reconciled first, in id
// order: ids only in s are created at rest, ids only in the world are
// destroyed. Then every body and field is overwritten. Body handles may
// differ from the world that produced s.
func (w *World) Restore(s Snapshot) {
	for _, id := range sortedIDs(s.Projectiles) {
		if _, live := w.projectiles[id]; !live {
			w.logger.Debug("creating projectile from snapshot", "id", id)
			w.createProjectile(id, mgl32.Vec2{})
		}
	}
	for _, id := range sortedIDs(w.projectiles) {
		if _, keep := s.Projectiles[id]; !keep {
			w.logger.Debug("removing projectile not in snapshot", "id", id)
			w.removeProjectile(id)
		}
	}

	for i := range w.players {
		w.setKinematics(w.players[i].body, s.Players[i].Body)
		w.players[i].input = s.Players[i].Input
	}
	for i := range w.pads {
		w.phys.SetPosition(w.pads[i].body, physics.Isometry{
			Translation: s.Pads[i].Translation,
			Rotation:    s.Pads[i].Rotation,
		})
		w.pads[i].status = s.Pads[i].Status
	}
	for _, id := range sortedIDs(s.Projectiles) {
		w.setKinematics(w.projectiles[id].body, s.Projectiles[id])
	}

	w.tick = s.Tick
	w.round = s.Round
	w.advantage = s.Advantage
	w.cannonX = s.CannonX
	w.nextProjectileID = s.NextProjectileID
}

// Clone returns a deep copy.
func (s Snapshot) Clone() Snapshot {
	s.Projectiles = maps.Clone(s.Projectiles)
	if s.Projectiles == nil {
		s.Projectiles = map[uint16]Kinematics{}
	}
	return s
}

// Hash returns a digest of the snapshot for desync detection. Projectiles
// are folded in ascending id order, so equal snapshots hash equally
// regardless of map iteration.
func (s Snapshot) Hash() uint64 {
	h := fnv.New64a()
	var buf [8]byte
	mix := func(v uint64) {
		binary.LittleEndian.PutUint64(buf[:], v)
		_, _ = h.Write(buf[:])
	}
	mixF := func(f float32) { mix(uint64(math.Float32bits(f))) }
	mixK := func(k Kinematics) {
		mixF(k.Translation.X())
		mixF(k.Translation.Y())
		mixF(k.Rotation)
		mixF(k.Linvel.X())
		mixF(k.Linvel.Y())
		mixF(k.Angvel)
	}
	mixB := func(b bool) {
		if b {
			mix(1)
		} else {
			mix(0)
		}
	}

	mix(s.Tick)
	mix(uint64(s.Round))
	mix(uint64(s.Advantage))
	for _, p := range s.Players {
		mixK(p.Body)
		mixB(p.Input.Action)
		mixB(p.Input.Left)
		mixB(p.Input.Right)
	}
	mixF(s.CannonX)
	for _, pad := range s.Pads {
		mixF(pad.Translation.X())
		mixF(pad.Translation.Y())
		mixF(pad.Rotation)
		mix(uint64(pad.Status))
	}
	mix(uint64(s.NextProjectileID))
	mix(uint64(len(s.Projectiles)))
	for _, id := range sortedIDs(s.Projectiles) {
		mix(uint64(id))
		mixK(s.Projectiles[id])
	}
	return h.Sum64()
}
