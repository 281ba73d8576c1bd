// Package config provides YAML-based arena tuning and match settings, with
// embedded defaults and named presets.
package config

import (
	"fmt"
	"hash/fnv"
	"math"

	"gopkg.in/yaml.v3"
)

// Config is the full padclash configuration.
type Config struct {
	Arena Arena       `yaml:"arena"`
	Match MatchConfig `yaml:"match"`
}

// Arena contains every constant the simulation depends on. Both participants
// of a match must run with identical Arena values; see Fingerprint.
type Arena struct {
	Physics    ArenaPhysics    `yaml:"physics"`
	Player     ArenaPlayer     `yaml:"player"`
	Cannon     ArenaCannon     `yaml:"cannon"`
	Projectile ArenaProjectile `yaml:"projectile"`
	Pads       ArenaPads       `yaml:"pads"`
	Layout     ArenaLayout     `yaml:"layout"`
}

// ArenaPhysics defines engine parameters. Positions elsewhere in the config
// are in display units; the simulation runs in display units / Scale.
type ArenaPhysics struct {
	Timestep     float64 `yaml:"timestep"`      // Seconds per tick
	Scale        float32 `yaml:"scale"`         // Display units per simulation unit
	Gravity      float32 `yaml:"gravity"`       // Per-player gravity magnitude
	GravityScale float32 `yaml:"gravity_scale"` // Multiplier on Gravity
}

// ArenaPlayer defines player bodies and movement.
type ArenaPlayer struct {
	Size            Size    `yaml:"size"`
	HorizontalSpeed float32 `yaml:"horizontal_speed"` // Simulation units per second
	JumpVelocity    float32 `yaml:"jump_velocity"`    // Simulation units per second
	BottomStart     Point   `yaml:"bottom_start"`
	TopStart        Point   `yaml:"top_start"`
}

// ArenaCannon defines the shared cannon rail.
type ArenaCannon struct {
	Speed    float32 `yaml:"speed"` // Display units per tick
	MinX     float32 `yaml:"min_x"`
	MaxX     float32 `yaml:"max_x"`
	DefaultX float32 `yaml:"default_x"`
	MuzzleY  float32 `yaml:"muzzle_y"`
}

// ArenaProjectile defines projectile shape and limits.
type ArenaProjectile struct {
	Speed float32 `yaml:"speed"` // Simulation units per second
	Cap   int     `yaml:"cap"`   // Maximum live projectiles
	Size  Size    `yaml:"size"`
}

// ArenaPads defines the two power pads.
type ArenaPads struct {
	Size   Size     `yaml:"size"`
	Bottom PadTrack `yaml:"bottom"`
	Top    PadTrack `yaml:"top"`
}

// PadTrack is the pair of positions a pad jumps between.
type PadTrack struct {
	Left  Point  `yaml:"left"`
	Right Point  `yaml:"right"`
	Start string `yaml:"start"` // "left" or "right"
}

// ArenaLayout lists static terrain. Every rect is also placed mirrored
// through the centre of an arena of the given size.
type ArenaLayout struct {
	Size      float32 `yaml:"size"`
	Platforms []Rect  `yaml:"platforms"`
	Lava      []Rect  `yaml:"lava"`
}

// MatchConfig holds driver settings that do not affect the simulation.
type MatchConfig struct {
	TickRate       int `yaml:"tick_rate"`        // Ticks per second for real-time drivers
	RoundLimit     int `yaml:"round_limit"`      // 0 = unlimited
	RollbackWindow int `yaml:"rollback_window"`  // Snapshots kept for late commands
	InputHoldTicks int `yaml:"input_hold_ticks"` // How long a key press counts as held
	KeyframeEvery  int `yaml:"keyframe_every"`   // Recorder keyframe interval in ticks
}

// Point is a position in display units.
type Point struct {
	X float32 `yaml:"x"`
	Y float32 `yaml:"y"`
}

// Size is an extent in display units.
type Size struct {
	W float32 `yaml:"w"`
	H float32 `yaml:"h"`
}

// Rect is a centre-anchored box in display units.
type Rect struct {
	X float32 `yaml:"x"`
	Y float32 `yaml:"y"`
	W float32 `yaml:"w"`
	H float32 `yaml:"h"`
}

// Center returns the arena centre coordinate.
func (l ArenaLayout) Center() float32 { return l.Size / 2 }

// Mirror reflects a point through the arena centre.
func (l ArenaLayout) Mirror(p Point) Point {
	return Point{X: l.Size - p.X, Y: l.Size - p.Y}
}

// Mirrored returns rects followed by their mirrored copies, in the order
// they are placed in the world.
func (l ArenaLayout) Mirrored(rects []Rect) []Rect {
	out := make([]Rect, 0, 2*len(rects))
	for _, r := range rects {
		out = append(out, r)
		m := l.Mirror(Point{X: r.X, Y: r.Y})
		out = append(out, Rect{X: m.X, Y: m.Y, W: r.W, H: r.H})
	}
	return out
}

// Validate checks the arena for values the simulation cannot run with.
func (a Arena) Validate() error {
	switch {
	case a.Physics.Timestep <= 0:
		return fmt.Errorf("config: physics.timestep must be positive, got %v", a.Physics.Timestep)
	case a.Physics.Scale <= 0:
		return fmt.Errorf("config: physics.scale must be positive, got %v", a.Physics.Scale)
	case a.Cannon.MinX > a.Cannon.MaxX:
		return fmt.Errorf("config: cannon.min_x %v exceeds max_x %v", a.Cannon.MinX, a.Cannon.MaxX)
	case a.Projectile.Cap < 0 || a.Projectile.Cap > math.MaxUint16:
		return fmt.Errorf("config: projectile.cap must be within [0, %d], got %d", math.MaxUint16, a.Projectile.Cap)
	case a.Layout.Size <= 0:
		return fmt.Errorf("config: layout.size must be positive, got %v", a.Layout.Size)
	}
	if s := a.Pads.Bottom.Start; s != "left" && s != "right" {
		return fmt.Errorf("config: pads.bottom.start must be left or right, got %q", s)
	}
	if s := a.Pads.Top.Start; s != "left" && s != "right" {
		return fmt.Errorf("config: pads.top.start must be left or right, got %q", s)
	}
	return nil
}

// Fingerprint hashes the canonical YAML form of the arena. Two processes
// with equal fingerprints simulate identically.
func (a Arena) Fingerprint() uint64 {
	data, err := yaml.Marshal(a)
	if err != nil {
		return 0
	}
	h := fnv.New64a()
	h.Write(data)
	return h.Sum64()
}
