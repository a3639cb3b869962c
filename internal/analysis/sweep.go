package analysis

import (
	"context"
	"fmt"
	"math"

	"github.com/san-kum/flocksim/internal/quantity"
	"github.com/san-kum/flocksim/internal/sim"
)

// SweepConfig describes a noise sweep. Params.Noise is ignored.
type SweepConfig struct {
	Particles  int
	Params     sim.Params
	Noises     []float64
	Runs       int    // replicas per noise value
	SeedStart  uint64 // replica i of every noise uses seed SeedStart+i
	Stationary sim.StationaryConfig
}

// SweepPoint is the stationary order at one noise amplitude.
type SweepPoint struct {
	Noise  quantity.Noise
	Mean   float64
	Std    float64
	Orders []float64
}

// Linspace returns n evenly spaced values from lo to hi inclusive.
func Linspace(lo, hi float64, n int) []float64 {
	if n <= 0 {
		return nil
	}
	if n == 1 {
		return []float64{lo}
	}
	out := make([]float64, n)
	step := (hi - lo) / float64(n-1)
	for i := range out {
		out[i] = lo + float64(i)*step
	}
	out[n-1] = hi
	return out
}

// NoiseSweep runs an ensemble for every noise value in cfg.Noises and
// returns one point per value, in the given order.
func NoiseSweep(ctx context.Context, cfg SweepConfig) ([]SweepPoint, error) {
	if len(cfg.Noises) == 0 {
		return nil, fmt.Errorf("%w: sweep needs at least one noise value", sim.ErrInvalidConfiguration)
	}
	if cfg.Runs < 1 {
		return nil, fmt.Errorf("%w: sweep needs at least one run per noise, got %d", sim.ErrInvalidConfiguration, cfg.Runs)
	}

	points := make([]SweepPoint, 0, len(cfg.Noises))
	for _, eta := range cfg.Noises {
		p := cfg.Params
		p.Noise = quantity.Noise(eta)

		orders, err := sim.NewEnsemble(cfg.Particles, p, cfg.Runs, cfg.SeedStart).Run(ctx, cfg.Stationary)
		if err != nil {
			return nil, fmt.Errorf("noise %g: %w", eta, err)
		}

		mean, std := meanStd(orders)
		points = append(points, SweepPoint{
			Noise:  p.Noise,
			Mean:   mean,
			Std:    std,
			Orders: orders,
		})
	}
	return points, nil
}

func meanStd(xs []float64) (float64, float64) {
	if len(xs) == 0 {
		return 0, 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	mean := sum / float64(len(xs))

	var ss float64
	for _, x := range xs {
		d := x - mean
		ss += d * d
	}
	return mean, math.Sqrt(ss / float64(len(xs)))
}
