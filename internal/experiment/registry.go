package experiment

import (
	"fmt"
	"slices"

	"github.com/san-kum/flocksim/internal/metrics"
	"github.com/san-kum/flocksim/internal/sim"
)

// Registry maps metric names to constructors.
type Registry struct {
	metrics map[string]func() sim.Metric
}

func NewRegistry() *Registry {
	r := &Registry{
		metrics: make(map[string]func() sim.Metric),
	}

	r.metrics["mean_order"] = func() sim.Metric { return metrics.NewMeanOrder() }
	r.metrics["susceptibility"] = func() sim.Metric { return metrics.NewSusceptibility() }
	r.metrics["binder"] = func() sim.Metric { return metrics.NewBinder() }
	r.metrics["mean_neighbors"] = func() sim.Metric { return metrics.NewMeanNeighbors() }
	r.metrics["ordered_fraction"] = func() sim.Metric { return metrics.NewOrderedFraction(0.5) }

	return r
}

func (r *Registry) GetMetric(name string) (sim.Metric, error) {
	fn, ok := r.metrics[name]
	if !ok {
		return nil, fmt.Errorf("unknown metric: %s (available: %v)", name, r.ListMetrics())
	}
	return fn(), nil
}

// Metrics builds the named metrics, or the defaults when names is empty.
func (r *Registry) Metrics(names []string) ([]sim.Metric, error) {
	if len(names) == 0 {
		return metrics.Default(), nil
	}
	out := make([]sim.Metric, 0, len(names))
	for _, name := range names {
		m, err := r.GetMetric(name)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

func (r *Registry) ListMetrics() []string {
	names := make([]string, 0, len(r.metrics))
	for name := range r.metrics {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
