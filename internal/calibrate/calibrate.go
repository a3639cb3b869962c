// Package calibrate searches for the neighbor threshold and particle speed
// that place the order/disorder transition of a flock at a target noise.
//
// The search minimizes [Cost] with a Nelder-Mead simplex seeded around
// (1.0, 1.0), optionally after a coarse grid pre-search.
package calibrate

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/san-kum/flocksim/internal/optim"
	"github.com/san-kum/flocksim/internal/quantity"
)

// Result is a calibrated (threshold, speed) pair and the search statistics.
type Result struct {
	Threshold   quantity.Threshold
	Speed       quantity.Speed
	Residual    float64
	Iterations  int
	Evaluations int
	Converged   bool
}

type Calibrator struct {
	cfg      Config
	logger   *zap.Logger
	observer func(optim.Iteration)
}

type Option func(*Calibrator)

func WithLogger(l *zap.Logger) Option {
	return func(c *Calibrator) { c.logger = l }
}

// WithObserver is called after every simplex iteration.
func WithObserver(fn func(optim.Iteration)) Option {
	return func(c *Calibrator) { c.observer = fn }
}

func New(cfg Config, opts ...Option) *Calibrator {
	c := &Calibrator{cfg: cfg, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Calibrator) Calibrate(ctx context.Context, p Problem) (*Result, error) {
	cost, err := NewCost(p, c.cfg)
	if err != nil {
		return nil, err
	}

	left, right := cost.Probes()
	c.logger.Info("calibration started",
		zap.Int("particles", p.Particles),
		zap.Float64("boundary", float64(p.Boundary)),
		zap.Float64("timestep", float64(p.Timestep)),
		zap.Float64("target_noise", float64(p.TargetNoise)),
		zap.Float64("noise_left", float64(left)),
		zap.Float64("noise_right", float64(right)))

	simplex := c.cfg.Simplex
	evaluations := 0

	if c.cfg.Grid != nil {
		grid, err := optim.NewGridSearch([][]float64{c.cfg.Grid.Thresholds, c.cfg.Grid.Speeds}).Search(ctx, cost)
		if err != nil {
			return nil, fmt.Errorf("grid pre-search: %w", err)
		}
		evaluations += grid.Evaluations
		simplex = recentre(simplex, grid.X)

		c.logger.Info("grid pre-search finished",
			zap.Float64s("best", grid.X),
			zap.Float64("residual", grid.F),
			zap.Int("evaluations", grid.Evaluations))
	}

	nm, err := optim.NewNelderMead(simplex).WithSDTolerance(c.cfg.Tolerance)
	if err != nil {
		return nil, fmt.Errorf("could not initialize Nelder-Mead: %w", err)
	}
	nm.WithMaxIterations(c.cfg.MaxIterations).WithObserver(func(it optim.Iteration) {
		c.logger.Debug("simplex iteration",
			zap.Int("iteration", it.N),
			zap.Float64s("best", it.Best),
			zap.Float64("residual", it.BestCost),
			zap.Float64("spread", it.Spread))
		if c.observer != nil {
			c.observer(it)
		}
	})

	res, err := nm.Minimize(ctx, cost)
	if err != nil {
		return nil, fmt.Errorf("calibration failed: %w", err)
	}

	threshold, speed, err := cost.Candidate(res.X)
	if err != nil {
		return nil, fmt.Errorf("calibration failed: %w", err)
	}

	out := &Result{
		Threshold:   threshold,
		Speed:       speed,
		Residual:    res.F,
		Iterations:  res.Iterations,
		Evaluations: evaluations + res.Evaluations,
		Converged:   res.Converged,
	}

	c.logger.Info("calibration finished",
		zap.Float64("threshold", float64(out.Threshold)),
		zap.Float64("speed", float64(out.Speed)),
		zap.Float64("residual", out.Residual),
		zap.Int("iterations", out.Iterations),
		zap.Bool("converged", out.Converged))

	return out, nil
}

// CalibrateForCriticalNoise finds (threshold, speed) for the target critical
// noise with the default configuration.
func CalibrateForCriticalNoise(
	ctx context.Context,
	particles int,
	boundary quantity.Length,
	timestep quantity.Duration,
	target quantity.Noise,
) (quantity.Threshold, quantity.Speed, error) {
	res, err := New(DefaultConfig()).Calibrate(ctx, Problem{
		Particles:   particles,
		Boundary:    boundary,
		Timestep:    timestep,
		TargetNoise: target,
	})
	if err != nil {
		return 0, 0, err
	}
	return res.Threshold, res.Speed, nil
}

// recentre translates simplex so that its first vertex lands on origin.
func recentre(simplex [][]float64, origin []float64) [][]float64 {
	if len(simplex) == 0 {
		return simplex
	}
	out := make([][]float64, len(simplex))
	for i, v := range simplex {
		out[i] = make([]float64, len(v))
		for j := range v {
			out[i][j] = v[j] - simplex[0][j] + origin[j]
		}
	}
	return out
}
