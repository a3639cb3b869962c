package sim

import (
	"math"

	"github.com/san-kum/flocksim/internal/quantity"
	"github.com/san-kum/flocksim/internal/swarm"
)

// Params is the immutable physical configuration of a simulation.
type Params struct {
	Boundary  quantity.Length
	Noise     quantity.Noise
	Speed     quantity.Speed
	Timestep  quantity.Duration
	Threshold quantity.Threshold
}

func (p Params) Validate() error {
	checks := []func() error{
		p.Boundary.Validate,
		p.Noise.Validate,
		p.Speed.Validate,
		p.Timestep.Validate,
		p.Threshold.Validate,
	}
	for _, check := range checks {
		if err := check(); err != nil {
			return invalid("%v", err)
		}
	}
	return nil
}

func (p Params) rules() swarm.Rules {
	return swarm.Rules{
		Boundary:  p.Boundary,
		Threshold: p.Threshold,
		Speed:     p.Speed,
		Noise:     p.Noise,
		Timestep:  p.Timestep,
	}
}

const (
	DefaultWindow   = 100
	DefaultEpsilon  = 0.001
	DefaultMaxSteps = 5000
)

// StationaryConfig tunes the stationary order parameter estimator.
type StationaryConfig struct {
	Window   int     // number of trailing instantaneous orders averaged
	Epsilon  float64 // convergence tolerance between newest order and window mean
	MaxSteps int     // step cap before giving up
}

func DefaultStationaryConfig() StationaryConfig {
	return StationaryConfig{
		Window:   DefaultWindow,
		Epsilon:  DefaultEpsilon,
		MaxSteps: DefaultMaxSteps,
	}
}

func (c StationaryConfig) Validate() error {
	if c.Window < 1 {
		return invalid("stationary window must be at least 1, got %d", c.Window)
	}
	if math.IsNaN(c.Epsilon) || c.Epsilon < 0 {
		return invalid("stationary epsilon must be non-negative, got %v", c.Epsilon)
	}
	if c.MaxSteps < 1 {
		return invalid("stationary step cap must be at least 1, got %d", c.MaxSteps)
	}
	return nil
}

// Metric accumulates a scalar diagnostic over a sequence of snapshots.
type Metric interface {
	Name() string
	Observe(s Simulation)
	Value() float64
	Reset()
}

// Result is the trace of a Run.
type Result struct {
	Times      []float64
	Orders     []float64
	Metrics    map[string]float64
	StepsTaken int
	Final      Simulation
}

// Data is a read-only projection of a snapshot for external plotting:
// positions and heading unit vectors.
type Data struct {
	X []float64 `json:"x"`
	Y []float64 `json:"y"`
	U []float64 `json:"u"`
	V []float64 `json:"v"`
}
