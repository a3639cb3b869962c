// Package swarm holds the particle state of a Vicsek-style flock and the
// per-step physics: periodic distance, brute-force neighbor search, the
// alignment and noise rule, and motion on the torus.
//
// A [Swarm] is immutable. [Swarm.Step] returns a new swarm and leaves the
// receiver untouched, so earlier snapshots stay valid.
//
// # Conventions
//
// Neighbor distance is always measured with periodic wrap-around. A particle
// is never its own neighbor and the threshold is strict. A particle with no
// neighbors keeps its heading unchanged and receives no noise that step.
package swarm

import (
	"math"
	"math/rand/v2"

	"github.com/san-kum/flocksim/internal/quantity"
)

// Swarm is a fixed-length ordered collection of particles. Particle i has ID i.
type Swarm struct {
	particles []Particle
}

// New samples n independent particles on a domain of the given side length.
func New(n int, boundary quantity.Length, rng *rand.Rand) Swarm {
	ps := make([]Particle, n)
	for i := range ps {
		ps[i] = Sample(i, boundary, rng)
	}
	return Swarm{particles: ps}
}

// FromParticles copies ps into a swarm, re-assigning IDs to match positions.
func FromParticles(ps []Particle) Swarm {
	c := make([]Particle, len(ps))
	copy(c, ps)
	for i := range c {
		c[i].ID = i
	}
	return Swarm{particles: c}
}

func (s Swarm) Len() int { return len(s.particles) }

func (s Swarm) At(i int) Particle { return s.particles[i] }

// Particles returns a copy of the particles.
func (s Swarm) Particles() []Particle {
	c := make([]Particle, len(s.particles))
	copy(c, s.particles)
	return c
}

// Neighbors returns the indices of every particle strictly closer than
// threshold to particle i, excluding i itself.
func (s Swarm) Neighbors(i int, boundary quantity.Length, threshold quantity.Threshold) []int {
	p := s.particles[i]
	idx := make([]int, 0)
	for j, q := range s.particles {
		if j == p.ID {
			continue
		}
		if threshold.Admits(Distance(p, q, boundary)) {
			idx = append(idx, j)
		}
	}
	return idx
}

// NeighborCount is len(Neighbors(i, ...)) without allocating.
func (s Swarm) NeighborCount(i int, boundary quantity.Length, threshold quantity.Threshold) int {
	p := s.particles[i]
	n := 0
	for j, q := range s.particles {
		if j != p.ID && threshold.Admits(Distance(p, q, boundary)) {
			n++
		}
	}
	return n
}

func (s Swarm) neighborsOf(p Particle, boundary quantity.Length, threshold quantity.Threshold) []Particle {
	out := make([]Particle, 0)
	for j, q := range s.particles {
		if j == p.ID {
			continue
		}
		if threshold.Admits(Distance(p, q, boundary)) {
			out = append(out, q)
		}
	}
	return out
}

// Step returns the swarm one timestep later. Each particle is stepped against
// the receiver, never against partially updated state.
func (s Swarm) Step(r Rules, rng *rand.Rand) Swarm {
	next := make([]Particle, len(s.particles))
	for i, p := range s.particles {
		next[i] = p.Step(s, r, rng)
	}
	return Swarm{particles: next}
}

// Order is the magnitude of the mean heading unit vector, in [0, 1].
func (s Swarm) Order() float64 {
	if len(s.particles) == 0 {
		return 0
	}
	var cx, cy float64
	for _, p := range s.particles {
		cx += math.Cos(p.Theta)
		cy += math.Sin(p.Theta)
	}
	n := float64(len(s.particles))
	return math.Min(math.Hypot(cx/n, cy/n), 1)
}
