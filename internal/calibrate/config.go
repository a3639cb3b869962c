package calibrate

import (
	"fmt"
	"math"

	"github.com/san-kum/flocksim/internal/quantity"
	"github.com/san-kum/flocksim/internal/sim"
)

const (
	DefaultNoiseOffset   = 0.05
	DefaultOrderDelta    = 0.25
	DefaultTolerance     = 0.0001
	DefaultMaxIterations = 100
	DefaultMinThreshold  = 1e-3
)

// Config tunes the critical-noise search.
type Config struct {
	NoiseOffset   float64     // relative offset of the two probe noises around the target
	OrderDelta    float64     // stationary order drop expected across the probes
	Simplex       [][]float64 // initial (threshold, speed) simplex
	Tolerance     float64     // cost-spread tolerance of the simplex
	MaxIterations int
	MinThreshold  float64 // lower clamp for candidate thresholds
	Seed          uint64  // seed shared by both probe simulations of every evaluation
	Stationary    sim.StationaryConfig
	Grid          *GridConfig // optional coarse pre-search
}

// GridConfig lists the candidate values of a coarse grid pre-search. The
// simplex is translated so its first vertex sits on the best grid point.
type GridConfig struct {
	Thresholds []float64
	Speeds     []float64
}

func DefaultSimplex() [][]float64 {
	return [][]float64{{1.0, 1.0}, {1.5, 1.0}, {1.0, 1.5}}
}

func DefaultConfig() Config {
	return Config{
		NoiseOffset:   DefaultNoiseOffset,
		OrderDelta:    DefaultOrderDelta,
		Simplex:       DefaultSimplex(),
		Tolerance:     DefaultTolerance,
		MaxIterations: DefaultMaxIterations,
		MinThreshold:  DefaultMinThreshold,
		Seed:          1,
		Stationary:    sim.DefaultStationaryConfig(),
	}
}

func (c Config) Validate() error {
	if math.IsNaN(c.NoiseOffset) || c.NoiseOffset <= 0 || c.NoiseOffset >= 1 {
		return fmt.Errorf("%w: noise offset must lie in (0, 1), got %v", sim.ErrInvalidConfiguration, c.NoiseOffset)
	}
	if math.IsNaN(c.OrderDelta) || math.IsInf(c.OrderDelta, 0) {
		return fmt.Errorf("%w: order delta must be finite", sim.ErrInvalidConfiguration)
	}
	if c.MaxIterations < 0 {
		return fmt.Errorf("%w: max iterations must be non-negative, got %d", sim.ErrInvalidConfiguration, c.MaxIterations)
	}
	if math.IsNaN(c.MinThreshold) || c.MinThreshold <= 0 {
		return fmt.Errorf("%w: min threshold must be positive, got %v", sim.ErrInvalidConfiguration, c.MinThreshold)
	}
	if c.Grid != nil && (len(c.Grid.Thresholds) == 0 || len(c.Grid.Speeds) == 0) {
		return fmt.Errorf("%w: grid needs at least one threshold and one speed", sim.ErrInvalidConfiguration)
	}
	return c.Stationary.Validate()
}

// Problem describes the flock to calibrate and the target critical noise.
type Problem struct {
	Particles   int
	Boundary    quantity.Length
	Timestep    quantity.Duration
	TargetNoise quantity.Noise
}

func (p Problem) Validate() error {
	if p.Particles <= 0 {
		return fmt.Errorf("%w: at least one particle must be simulated, got %d", sim.ErrInvalidConfiguration, p.Particles)
	}
	for _, check := range []func() error{p.Boundary.Validate, p.Timestep.Validate, p.TargetNoise.Validate} {
		if err := check(); err != nil {
			return fmt.Errorf("%w: %w", sim.ErrInvalidConfiguration, err)
		}
	}
	return nil
}
