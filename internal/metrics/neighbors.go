package metrics

import (
	"github.com/san-kum/flocksim/internal/sim"
)

// MeanNeighbors averages the neighbor count per particle over all
// observed snapshots.
type MeanNeighbors struct {
	name    string
	sum     float64
	samples int
}

func NewMeanNeighbors() *MeanNeighbors {
	return &MeanNeighbors{name: "mean_neighbors"}
}

func (m *MeanNeighbors) Name() string { return m.name }

func (m *MeanNeighbors) Observe(s sim.Simulation) {
	n := s.Len()
	if n == 0 {
		return
	}

	p := s.Params()
	sw := s.Swarm()
	total := 0
	for i := range n {
		total += sw.NeighborCount(i, p.Boundary, p.Threshold)
	}

	m.sum += float64(total) / float64(n)
	m.samples++
}

func (m *MeanNeighbors) Value() float64 {
	if m.samples == 0 {
		return 0
	}
	return m.sum / float64(m.samples)
}

func (m *MeanNeighbors) Reset() {
	m.sum = 0
	m.samples = 0
}

// Default returns the metrics recorded by a plain run.
func Default() []sim.Metric {
	return []sim.Metric{
		NewMeanOrder(),
		NewSusceptibility(),
		NewBinder(),
		NewMeanNeighbors(),
		NewOrderedFraction(0.5),
	}
}
