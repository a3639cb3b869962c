package swarm

import (
	"math"
	"math/cmplx"
	"math/rand/v2"

	"github.com/san-kum/flocksim/internal/quantity"
)

// Particle is the spatial and rotational state of one self-propelled particle.
type Particle struct {
	ID    int
	X, Y  float64 // position in [0, boundary)
	Theta float64 // heading in radians
	Phase float64 // noise phase in [-π, π), resampled every step
}

// Rules carries the physical inputs of one step.
type Rules struct {
	Boundary  quantity.Length
	Threshold quantity.Threshold
	Speed     quantity.Speed
	Noise     quantity.Noise
	Timestep  quantity.Duration
}

// Sample draws a particle with uniform position, heading and phase.
func Sample(id int, boundary quantity.Length, rng *rand.Rand) Particle {
	L := float64(boundary)
	return Particle{
		ID:    id,
		X:     boundary.Wrap(L * rng.Float64()),
		Y:     boundary.Wrap(L * rng.Float64()),
		Theta: 2 * math.Pi * rng.Float64(),
		Phase: samplePhase(rng),
	}
}

func samplePhase(rng *rand.Rand) float64 {
	return -math.Pi + 2*math.Pi*rng.Float64()
}

// Distance returns the periodic (toroidal) distance between two particles.
func Distance(a, b Particle, boundary quantity.Length) float64 {
	return math.Hypot(boundary.Separation(a.X, b.X), boundary.Separation(a.Y, b.Y))
}

// Heading applies the alignment and noise rule for a particle whose noise
// phase is phase. An isolated particle keeps its heading and receives no noise.
func Heading(p Particle, neighbors []Particle, phase float64, speed quantity.Speed, noise quantity.Noise) float64 {
	if len(neighbors) == 0 {
		return p.Theta
	}

	var sum complex128
	for _, n := range neighbors {
		sum += cmplx.Rect(float64(speed), n.Theta)
	}
	z := sum/complex(float64(len(neighbors)), 0) + cmplx.Rect(float64(noise), phase)

	if z == 0 {
		return p.Theta
	}
	return cmplx.Phase(z)
}

// Step advances p one timestep against the snapshot s. Neighbors are looked up
// in s, so every particle of a swarm step sees the same pre-step state.
func (p Particle) Step(s Swarm, r Rules, rng *rand.Rand) Particle {
	phase := samplePhase(rng)

	theta := Heading(p, s.neighborsOf(p, r.Boundary, r.Threshold), phase, r.Speed, r.Noise)
	step := r.Speed.Travel(r.Timestep)

	return Particle{
		ID:    p.ID,
		X:     r.Boundary.Wrap(p.X + step*math.Cos(theta)),
		Y:     r.Boundary.Wrap(p.Y + step*math.Sin(theta)),
		Theta: theta,
		Phase: phase,
	}
}
