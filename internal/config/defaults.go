package config

import (
	_ "embed"
)

//go:embed defaults/padclash.yaml
var defaultYAML []byte

// DefaultConfig returns the built-in configuration. It mirrors the embedded
// defaults/padclash.yaml.
func DefaultConfig() Config {
	return Config{
		Arena: DefaultArena(),
		Match: MatchConfig{
			TickRate:       60,
			RoundLimit:     0,
			RollbackWindow: 120,
			InputHoldTicks: 8,
			KeyframeEvery:  60,
		},
	}
}

// DefaultArena returns the reference arena.
func DefaultArena() Arena {
	return Arena{
		Physics: ArenaPhysics{
			Timestep:     1.0 / 60.0,
			Scale:        20,
			Gravity:      9.81,
			GravityScale: 5,
		},
		Player: ArenaPlayer{
			Size:            Size{W: 20, H: 20},
			HorizontalSpeed: 15,
			JumpVelocity:    20,
			BottomStart:     Point{X: 150, Y: 400},
			TopStart:        Point{X: 850, Y: 600},
		},
		Cannon: ArenaCannon{
			Speed:    5,
			MinX:     100,
			MaxX:     900,
			DefaultX: 500,
			MuzzleY:  500,
		},
		Projectile: ArenaProjectile{
			Speed: 6,
			Cap:   10,
			Size:  Size{W: 10, H: 40},
		},
		Pads: ArenaPads{
			Size: Size{W: 70, H: 10},
			Bottom: PadTrack{
				Left:  Point{X: 150, Y: 295},
				Right: Point{X: 850, Y: 295},
				Start: "right",
			},
			Top: PadTrack{
				Left:  Point{X: 150, Y: 705},
				Right: Point{X: 850, Y: 705},
				Start: "left",
			},
		},
		Layout: ArenaLayout{
			Size: 1000,
			Platforms: []Rect{
				{X: 150, Y: 250, W: 100, H: 100}, // left power platform
				{X: 500, Y: 150, W: 800, H: 100},
				{X: 850, Y: 250, W: 100, H: 100}, // right power platform
				{X: 250, Y: 270, W: 40, H: 20},
				{X: 320, Y: 230, W: 20, H: 60},
				{X: 400, Y: 250, W: 60, H: 20},
				{X: 470, Y: 260, W: 20, H: 20},
				{X: 515, Y: 250, W: 20, H: 20},
				{X: 560, Y: 270, W: 20, H: 20},
				{X: 605, Y: 240, W: 20, H: 20},
				{X: 680, Y: 220, W: 80, H: 20},
				{X: 760, Y: 260, W: 20, H: 20},
			},
			Lava: []Rect{
				{X: 500, Y: 210, W: 600, H: 20},
				{X: 500, Y: 20, W: 2000, H: 40},
			},
		},
	}
}

// DefaultYAML returns the embedded default configuration file, used by
// `padclash config` to print a starting point.
func DefaultYAML() []byte {
	return defaultYAML
}
