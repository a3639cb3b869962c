package calibrate

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/san-kum/flocksim/internal/quantity"
	"github.com/san-kum/flocksim/internal/sim"
)

// ErrInvalidCandidate indicates a candidate the cost function cannot clamp.
var ErrInvalidCandidate = errors.New("calibrate: invalid candidate")

// Cost is the residual minimized by the calibrator. For a candidate
// (threshold, speed) it measures how far the stationary order drop between
// two probe noises, target·(1∓offset), is from the expected OrderDelta.
//
// Both probes of every evaluation start from the same seed, so the cost is a
// deterministic function of the candidate.
type Cost struct {
	problem Problem
	cfg     Config
	left    quantity.Noise
	right   quantity.Noise
}

func NewCost(p Problem, cfg Config) (*Cost, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Cost{
		problem: p,
		cfg:     cfg,
		left:    p.TargetNoise.Scale(1 - cfg.NoiseOffset),
		right:   p.TargetNoise.Scale(1 + cfg.NoiseOffset),
	}, nil
}

// Probes returns the noise amplitudes just below and just above the target.
func (c *Cost) Probes() (left, right quantity.Noise) { return c.left, c.right }

// Candidate maps a search point onto the physical domain. Non-finite values
// are rejected; the threshold is clamped to [MinThreshold, boundary] and the
// speed to [0, boundary/timestep].
func (c *Cost) Candidate(x []float64) (quantity.Threshold, quantity.Speed, error) {
	if len(x) != 2 {
		return 0, 0, fmt.Errorf("%w: want (threshold, speed), got %d values", ErrInvalidCandidate, len(x))
	}
	for _, v := range x {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, 0, fmt.Errorf("%w: non-finite value in %v", ErrInvalidCandidate, x)
		}
	}

	L := float64(c.problem.Boundary)
	threshold := clamp(x[0], c.cfg.MinThreshold, L)
	speed := clamp(x[1], 0, L/float64(c.problem.Timestep))
	return quantity.Threshold(threshold), quantity.Speed(speed), nil
}

// Orders computes the stationary order of both probes concurrently.
func (c *Cost) Orders(ctx context.Context, threshold quantity.Threshold, speed quantity.Speed) (left, right float64, err error) {
	params := func(noise quantity.Noise) sim.Params {
		return sim.Params{
			Boundary:  c.problem.Boundary,
			Noise:     noise,
			Speed:     speed,
			Timestep:  c.problem.Timestep,
			Threshold: threshold,
		}
	}

	jobs := []sim.Job{
		{Particles: c.problem.Particles, Params: params(c.left), Seed: c.cfg.Seed},
		{Particles: c.problem.Particles, Params: params(c.right), Seed: c.cfg.Seed},
	}

	orders, err := sim.StationaryOrders(ctx, jobs, c.cfg.Stationary)
	if err != nil {
		return 0, 0, fmt.Errorf("stationary order at threshold=%g speed=%g: %w", float64(threshold), float64(speed), err)
	}
	return orders[0], orders[1], nil
}

func (c *Cost) Evaluate(ctx context.Context, x []float64) (float64, error) {
	threshold, speed, err := c.Candidate(x)
	if err != nil {
		return 0, err
	}

	left, right, err := c.Orders(ctx, threshold, speed)
	if err != nil {
		return 0, err
	}

	return math.Abs((left - right) - c.cfg.OrderDelta), nil
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}
