package config

import "slices"

// Presets adjust the default configuration for common regimes.
var Presets = map[string]func(*Config){
	"small-noise": func(c *Config) {
		c.Noise = 0.1
	},
	"large-noise": func(c *Config) {
		c.Noise = 0.9
	},
	"ordered": func(c *Config) {
		c.Noise = 0.0
		c.Steps = 200
	},
	"disordered": func(c *Config) {
		c.Particles = 500
		c.Noise = 0.9
		c.Speed = 0.1
		c.Timestep = 1.0
		c.Steps = 100
	},
	"critical": func(c *Config) {
		c.Noise = 0.5
		c.Calibration.TargetNoise = 0.5
	},
}

// GetPreset returns a fresh configuration for the named preset, or nil.
func GetPreset(name string) *Config {
	apply, ok := Presets[name]
	if !ok {
		return nil
	}
	cfg := DefaultConfig()
	apply(cfg)
	return cfg
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
