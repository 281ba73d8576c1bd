package config

import "fmt"

// Preset represents a named rule variant layered over the loaded config.
type Preset string

const (
	PresetClassic Preset = "classic"
	PresetBlitz   Preset = "blitz"
	PresetSiege   Preset = "siege"
	PresetBestOf5 Preset = "best-of-5"
)

// Presets lists every known preset in display order.
func Presets() []Preset {
	return []Preset{PresetClassic, PresetBlitz, PresetSiege, PresetBestOf5}
}

// Describe returns a one-line summary of a preset.
func (p Preset) Describe() string {
	switch p {
	case PresetClassic:
		return "reference rules"
	case PresetBlitz:
		return "faster cannon, faster and more projectiles"
	case PresetSiege:
		return "slow heavy fire, only three projectiles in the air"
	case PresetBestOf5:
		return "classic rules, five rounds, most round wins takes the match"
	default:
		return "unknown preset"
	}
}

// ParsePreset validates a preset name. The empty string means classic.
func ParsePreset(name string) (Preset, error) {
	if name == "" {
		return PresetClassic, nil
	}
	for _, p := range Presets() {
		if string(p) == name {
			return p, nil
		}
	}
	return "", fmt.Errorf("config: unknown preset %q", name)
}

// ApplyPreset modifies the config in place. Presets that touch the arena
// change its fingerprint, so both sides of a match must pick the same one.
func ApplyPreset(cfg *Config, preset Preset) {
	switch preset {
	case PresetBlitz:
		cfg.Arena.Cannon.Speed = scaleF(cfg.Arena.Cannon.Speed, 1.6, 1, 50)
		cfg.Arena.Projectile.Speed = scaleF(cfg.Arena.Projectile.Speed, 1.5, 1, 60)
		cfg.Arena.Projectile.Cap = cfg.Arena.Projectile.Cap * 3 / 2
	case PresetSiege:
		cfg.Arena.Projectile.Speed = scaleF(cfg.Arena.Projectile.Speed, 0.5, 1, 60)
		cfg.Arena.Projectile.Cap = min(cfg.Arena.Projectile.Cap, 3)
	case PresetBestOf5:
		cfg.Match.RoundLimit = 5
	}
}

// scaleF multiplies val by factor and restricts it to [lo, hi].
func scaleF(val, factor, lo, hi float32) float32 {
	return max(lo, min(hi, val*factor))
}
