package sim

import (
	"context"
	"math"

	"github.com/san-kum/flocksim/internal/quantity"
)

// Run advances s by steps timesteps, recording the time and instantaneous
// order of every snapshot including the initial one. Metrics are reset first
// and observe every recorded snapshot.
func Run(ctx context.Context, s Simulation, steps int, metrics ...Metric) (*Result, error) {
	if steps < 0 {
		return nil, invalid("steps must be non-negative, got %d", steps)
	}

	result := &Result{
		Times:   make([]float64, 0, steps+1),
		Orders:  make([]float64, 0, steps+1),
		Metrics: make(map[string]float64),
	}

	for _, m := range metrics {
		m.Reset()
	}

	record := func(cur Simulation) {
		result.Times = append(result.Times, float64(cur.time))
		result.Orders = append(result.Orders, cur.order)
		for _, m := range metrics {
			m.Observe(cur)
		}
	}

	cur := s
	record(cur)

	for i := 0; i < steps; i++ {
		select {
		case <-ctx.Done():
			result.Final = cur
			return result, ctx.Err()
		default:
		}

		cur = cur.Step()
		result.StepsTaken++
		record(cur)
	}

	for _, m := range metrics {
		result.Metrics[m.Name()] = m.Value()
	}
	result.Final = cur

	return result, nil
}

// RunUntil is Run with a stopping time instead of a step count. It takes the
// fewest steps that bring the clock to at least end; an end at or before the
// current time records only the initial snapshot.
func RunUntil(ctx context.Context, s Simulation, end quantity.Time, metrics ...Metric) (*Result, error) {
	if math.IsNaN(float64(end)) || math.IsInf(float64(end), 0) {
		return nil, invalid("end time must be finite, got %v", float64(end))
	}
	remaining := float64(end - s.time)
	steps := 0
	if remaining > 0 {
		// tolerate rounding in end so an exact multiple of the timestep is not
		// overshot by one step
		steps = int(math.Ceil(remaining/float64(s.params.Timestep) - 1e-9))
	}
	return Run(ctx, s, steps, metrics...)
}
