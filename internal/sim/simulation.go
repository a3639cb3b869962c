package sim

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/san-kum/flocksim/internal/quantity"
	"github.com/san-kum/flocksim/internal/swarm"
)

const seedMix = 0x9e3779b97f4a7c15

// Simulation is one immutable snapshot of a flock.
type Simulation struct {
	swarm  swarm.Swarm
	time   quantity.Time
	params Params
	order  float64
	src    rand.PCG
}

type options struct {
	seed    uint64
	seeded  bool
	heading *float64
	swarm   *swarm.Swarm
}

type Option func(*options)

// WithSeed makes the initial placement and every later step reproducible.
func WithSeed(seed uint64) Option {
	return func(o *options) {
		o.seed = seed
		o.seeded = true
	}
}

// WithHeading overrides every sampled heading with theta.
func WithHeading(theta float64) Option {
	return func(o *options) { o.heading = &theta }
}

// WithSwarm starts from an existing swarm instead of sampling one.
func WithSwarm(s swarm.Swarm) Option {
	return func(o *options) { o.swarm = &s }
}

// New builds a simulation with n randomly placed particles at time 0.
func New(n int, p Params, opts ...Option) (Simulation, error) {
	if n <= 0 {
		return Simulation{}, invalid("at least one particle must be simulated, got %d", n)
	}
	if err := p.Validate(); err != nil {
		return Simulation{}, err
	}

	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if !o.seeded {
		o.seed = rand.Uint64()
	}

	src := *rand.NewPCG(o.seed, o.seed^seedMix)
	rng := rand.New(&src)

	var sw swarm.Swarm
	if o.swarm != nil {
		if o.swarm.Len() != n {
			return Simulation{}, invalid("swarm has %d particles, want %d", o.swarm.Len(), n)
		}
		for _, q := range o.swarm.Particles() {
			if q.X < 0 || q.X >= float64(p.Boundary) || q.Y < 0 || q.Y >= float64(p.Boundary) {
				return Simulation{}, invalid("particle %d at (%g, %g) lies outside the domain", q.ID, q.X, q.Y)
			}
		}
		sw = *o.swarm
	} else {
		sw = swarm.New(n, p.Boundary, rng)
	}

	if o.heading != nil {
		ps := sw.Particles()
		for i := range ps {
			ps[i].Theta = *o.heading
		}
		sw = swarm.FromParticles(ps)
	}

	return Simulation{
		swarm:  sw,
		params: p,
		order:  sw.Order(),
		src:    src,
	}, nil
}

// Step returns the snapshot one timestep later. The receiver is unchanged.
func (s Simulation) Step() Simulation {
	src := s.src
	next := s.swarm.Step(s.params.rules(), rand.New(&src))

	return Simulation{
		swarm:  next,
		time:   s.time.Add(s.params.Timestep),
		params: s.params,
		order:  next.Order(),
		src:    src,
	}
}

func (s Simulation) Time() quantity.Time { return s.time }
func (s Simulation) Params() Params      { return s.params }
func (s Simulation) Len() int            { return s.swarm.Len() }
func (s Simulation) Swarm() swarm.Swarm  { return s.swarm }

// Order is the instantaneous order parameter of the snapshot, in [0, 1].
func (s Simulation) Order() float64 { return s.order }

// Data projects the snapshot onto fresh parallel arrays.
func (s Simulation) Data() Data {
	n := s.swarm.Len()
	d := Data{
		X: make([]float64, n),
		Y: make([]float64, n),
		U: make([]float64, n),
		V: make([]float64, n),
	}
	for i := 0; i < n; i++ {
		p := s.swarm.At(i)
		d.X[i] = p.X
		d.Y[i] = p.Y
		d.U[i], d.V[i] = math.Cos(p.Theta), math.Sin(p.Theta)
	}
	return d
}

func (s Simulation) String() string {
	return fmt.Sprintf("Simulation(time=%.2f, particles=%d, boundary=%g, timestep=%g, noise=%g, speed=%g, threshold=%g)",
		float64(s.time), s.swarm.Len(), float64(s.params.Boundary), float64(s.params.Timestep),
		float64(s.params.Noise), float64(s.params.Speed), float64(s.params.Threshold))
}
