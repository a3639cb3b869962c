// Package experiment ties a configuration to the simulation, calibration
// and sweep drivers and records their outcome in the run store.
package experiment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/san-kum/flocksim/internal/analysis"
	"github.com/san-kum/flocksim/internal/calibrate"
	"github.com/san-kum/flocksim/internal/config"
	"github.com/san-kum/flocksim/internal/optim"
	"github.com/san-kum/flocksim/internal/sim"
	"github.com/san-kum/flocksim/internal/storage"
)

type Experiment struct {
	cfg      *config.Config
	store    *storage.Store
	logger   *zap.Logger
	registry *Registry
}

type Option func(*Experiment)

// WithStore records every finished experiment in st.
func WithStore(st *storage.Store) Option {
	return func(e *Experiment) { e.store = st }
}

func WithLogger(l *zap.Logger) Option {
	return func(e *Experiment) { e.logger = l }
}

func New(cfg *config.Config, opts ...Option) (*Experiment, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	e := &Experiment{
		cfg:      cfg,
		logger:   zap.NewNop(),
		registry: NewRegistry(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

func (e *Experiment) Config() *config.Config { return e.cfg }

// Simulation builds the seeded initial snapshot.
func (e *Experiment) Simulation() (sim.Simulation, error) {
	return sim.New(e.cfg.Particles, e.cfg.Params(), sim.WithSeed(e.cfg.Seed))
}

func (e *Experiment) metadata(kind storage.Kind) storage.RunMetadata {
	return storage.RunMetadata{
		Kind:      kind,
		Seed:      e.cfg.Seed,
		Particles: e.cfg.Particles,
		Params:    storage.RecordParams(e.cfg.Params()),
	}
}

func (e *Experiment) save(meta storage.RunMetadata, series *storage.Series) (string, error) {
	if e.store == nil {
		return "", nil
	}
	if err := e.store.Init(); err != nil {
		return "", err
	}
	id, err := e.store.Save(meta, series)
	if err != nil {
		return "", fmt.Errorf("failed to save %s run: %w", meta.Kind, err)
	}
	e.logger.Debug("run saved", zap.String("id", id), zap.String("kind", string(meta.Kind)))
	return id, nil
}

type RunReport struct {
	ID      string
	Result  *sim.Result
	Elapsed time.Duration
}

// Run advances the configured flock to cfg.TimeEnd, or cfg.Steps times when
// no end time is set, recording the named metrics (defaults when empty).
func (e *Experiment) Run(ctx context.Context, metricNames []string) (*RunReport, error) {
	ms, err := e.registry.Metrics(metricNames)
	if err != nil {
		return nil, err
	}

	s, err := e.Simulation()
	if err != nil {
		return nil, err
	}

	e.logger.Info("simulation started",
		zap.Stringer("simulation", s),
		zap.Int("steps", e.cfg.Steps),
		zap.Float64("time_end", e.cfg.TimeEnd))
	start := time.Now()

	res, err := e.cfg.Horizon(ctx, s, ms...)
	if err != nil {
		return nil, err
	}
	elapsed := time.Since(start)

	e.logger.Info("simulation finished",
		zap.Duration("elapsed", elapsed),
		zap.Float64("order", res.Final.Order()))

	meta := e.metadata(storage.KindRun)
	meta.Metrics = res.Metrics
	id, err := e.save(meta, storage.OrderSeries(res))
	if err != nil {
		return nil, err
	}

	return &RunReport{ID: id, Result: res, Elapsed: elapsed}, nil
}

type StationaryReport struct {
	ID    string
	Order float64
}

func (e *Experiment) Stationary(ctx context.Context) (*StationaryReport, error) {
	orders, err := sim.StationaryOrders(ctx, []sim.Job{{
		Particles: e.cfg.Particles,
		Params:    e.cfg.Params(),
		Seed:      e.cfg.Seed,
	}}, e.cfg.StationaryRule())
	if err != nil {
		var nce *sim.NonConvergenceError
		if errors.As(err, &nce) {
			e.logger.Warn("stationary order did not converge",
				zap.Int("max_steps", nce.MaxSteps),
				zap.Float64("last_order", nce.LastOrder),
				zap.Float64("last_mean", nce.LastMean))
		}
		return nil, err
	}

	phi := orders[0]
	e.logger.Info("stationary order", zap.Float64("order", phi))

	meta := e.metadata(storage.KindStationary)
	meta.Metrics = map[string]float64{"stationary_order": phi}
	id, err := e.save(meta, nil)
	if err != nil {
		return nil, err
	}
	return &StationaryReport{ID: id, Order: phi}, nil
}

type CalibrationReport struct {
	ID     string
	Result *calibrate.Result
}

// Calibrate searches for the threshold and speed placing the transition at
// the configured target noise. grid and observer may be nil.
func (e *Experiment) Calibrate(ctx context.Context, grid *calibrate.GridConfig, observer func(optim.Iteration)) (*CalibrationReport, error) {
	cfg := e.cfg.CalibrateConfig()
	cfg.Grid = grid

	opts := []calibrate.Option{calibrate.WithLogger(e.logger)}
	if observer != nil {
		opts = append(opts, calibrate.WithObserver(observer))
	}

	problem := e.cfg.Problem()
	res, err := calibrate.New(cfg, opts...).Calibrate(ctx, problem)
	if err != nil {
		return nil, err
	}

	meta := e.metadata(storage.KindCalibration)
	meta.Params.Threshold = float64(res.Threshold)
	meta.Params.Speed = float64(res.Speed)
	meta.Calibration = &storage.CalibrationRecord{
		TargetNoise: float64(problem.TargetNoise),
		Threshold:   float64(res.Threshold),
		Speed:       float64(res.Speed),
		Residual:    res.Residual,
		Iterations:  res.Iterations,
		Converged:   res.Converged,
	}
	id, err := e.save(meta, nil)
	if err != nil {
		return nil, err
	}
	return &CalibrationReport{ID: id, Result: res}, nil
}

type SweepReport struct {
	ID       string
	Points   []analysis.SweepPoint
	Critical float64
}

// Sweep measures the stationary order at every noise value with runs
// replicas each.
func (e *Experiment) Sweep(ctx context.Context, noises []float64, runs int) (*SweepReport, error) {
	points, err := analysis.NoiseSweep(ctx, analysis.SweepConfig{
		Particles:  e.cfg.Particles,
		Params:     e.cfg.Params(),
		Noises:     noises,
		Runs:       runs,
		SeedStart:  e.cfg.Seed,
		Stationary: e.cfg.StationaryRule(),
	})
	if err != nil {
		return nil, err
	}

	series := &storage.Series{Columns: []string{"noise", "mean", "std"}}
	for _, p := range points {
		series.Rows = append(series.Rows, []float64{float64(p.Noise), p.Mean, p.Std})
	}

	report := &SweepReport{Points: points, Critical: -1}
	meta := e.metadata(storage.KindSweep)
	if eta, err := analysis.CriticalNoise(points); err == nil {
		report.Critical = float64(eta)
		meta.Metrics = map[string]float64{"critical_noise": report.Critical}
		e.logger.Info("critical noise estimate", zap.Float64("noise", report.Critical))
	}

	report.ID, err = e.save(meta, series)
	if err != nil {
		return nil, err
	}
	return report, nil
}
