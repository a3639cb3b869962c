package sim

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Job is one independent stationary-order evaluation.
type Job struct {
	Particles int
	Params    Params
	Seed      uint64
}

// StationaryOrders evaluates every job concurrently and returns the stationary
// orders in job order. The first failure is returned and the remaining jobs
// that have not started yet are skipped.
func StationaryOrders(ctx context.Context, jobs []Job, cfg StationaryConfig) ([]float64, error) {
	orders := make([]float64, len(jobs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))

	for i, job := range jobs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			s, err := New(job.Particles, job.Params, WithSeed(job.Seed))
			if err != nil {
				return fmt.Errorf("job %d: %w", i, err)
			}

			phi, err := s.StationaryOrder(cfg)
			if err != nil {
				return fmt.Errorf("job %d: %w", i, err)
			}

			orders[i] = phi
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return orders, nil
}

// Ensemble runs independent replicas of one configuration, seeded
// seedStart, seedStart+1, ...
type Ensemble struct {
	particles int
	params    Params
	numRuns   int
	seedStart uint64
}

func NewEnsemble(particles int, p Params, numRuns int, seedStart uint64) *Ensemble {
	return &Ensemble{particles: particles, params: p, numRuns: numRuns, seedStart: seedStart}
}

func (e *Ensemble) Run(ctx context.Context, cfg StationaryConfig) ([]float64, error) {
	if e.numRuns < 1 {
		return nil, invalid("ensemble needs at least one run, got %d", e.numRuns)
	}

	jobs := make([]Job, e.numRuns)
	for i := range jobs {
		jobs[i] = Job{Particles: e.particles, Params: e.params, Seed: e.seedStart + uint64(i)}
	}
	return StationaryOrders(ctx, jobs, cfg)
}
