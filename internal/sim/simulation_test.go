package sim_test

import (
	"context"
	"errors"
	"math"

	"github.com/google/go-cmp/cmp"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/flocksim/internal/quantity"
	"github.com/san-kum/flocksim/internal/sim"
)

func problemParams(noise float64) sim.Params {
	return sim.Params{
		Boundary:  quantity.Length(5.0),
		Noise:     quantity.Noise(noise),
		Speed:     quantity.Speed(1.0),
		Timestep:  quantity.Duration(0.25),
		Threshold: quantity.Threshold(1.0),
	}
}

var _ = Describe("Simulation", func() {
	Describe("construction", func() {
		It("rejects zero particles", func() {
			_, err := sim.New(0, sim.Params{
				Boundary:  5.0,
				Noise:     0.1,
				Speed:     1.0,
				Timestep:  0.25,
				Threshold: 1.0,
			})
			Expect(err).To(MatchError(sim.ErrInvalidConfiguration))
		})

		It("rejects invalid parameters", func() {
			p := problemParams(0.1)
			p.Boundary = 0
			_, err := sim.New(10, p)
			Expect(errors.Is(err, sim.ErrInvalidConfiguration)).To(BeTrue())

			p = problemParams(-0.5)
			_, err = sim.New(10, p)
			Expect(errors.Is(err, sim.ErrInvalidConfiguration)).To(BeTrue())
		})

		It("starts at time zero with its order computed", func() {
			s, err := sim.New(125, problemParams(0.1), sim.WithSeed(1))
			Expect(err).NotTo(HaveOccurred())
			Expect(float64(s.Time())).To(BeZero())
			Expect(s.Len()).To(Equal(125))
			Expect(s.Order()).To(BeNumerically(">=", 0))
			Expect(s.Order()).To(BeNumerically("<=", 1))
			Expect(s.Order()).To(BeNumerically("~", s.Swarm().Order(), 1e-12))
		})

		It("is reproducible for a fixed seed", func() {
			a, _ := sim.New(50, problemParams(0.3), sim.WithSeed(9))
			b, _ := sim.New(50, problemParams(0.3), sim.WithSeed(9))
			Expect(cmp.Diff(a.Data(), b.Data())).To(BeEmpty())
			Expect(cmp.Diff(a.Step().Step().Data(), b.Step().Step().Data())).To(BeEmpty())
		})
	})

	Describe("stepping", func() {
		var s sim.Simulation

		BeforeEach(func() {
			var err error
			s, err = sim.New(125, problemParams(0.4), sim.WithSeed(3))
			Expect(err).NotTo(HaveOccurred())
		})

		It("advances time by the timestep and leaves the receiver unchanged", func() {
			before := s.Data()
			next := s.Step()

			Expect(float64(next.Time())).To(BeNumerically("~", 0.25, 1e-12))
			Expect(float64(s.Time())).To(BeZero())
			Expect(cmp.Diff(before, s.Data())).To(BeEmpty())
			Expect(cmp.Diff(before, next.Data())).NotTo(BeEmpty())
		})

		It("is a pure function of the snapshot", func() {
			Expect(cmp.Diff(s.Step().Data(), s.Step().Data())).To(BeEmpty())
		})

		It("keeps cardinality, domain bounds and order range", func() {
			L := float64(s.Params().Boundary)
			cur := s
			for i := 0; i < 100; i++ {
				cur = cur.Step()
				Expect(cur.Len()).To(Equal(125))
				Expect(cur.Order()).To(And(BeNumerically(">=", 0), BeNumerically("<=", 1)))
				d := cur.Data()
				for j := range d.X {
					Expect(d.X[j]).To(And(BeNumerically(">=", 0), BeNumerically("<", L)))
					Expect(d.Y[j]).To(And(BeNumerically(">=", 0), BeNumerically("<", L)))
				}
			}
			Expect(float64(cur.Time())).To(BeNumerically("~", 25.0, 1e-9))
		})
	})

	Describe("limits", func() {
		It("stays fully ordered without noise when headings start aligned", func() {
			s, err := sim.New(125, problemParams(0), sim.WithSeed(5), sim.WithHeading(0.8))
			Expect(err).NotTo(HaveOccurred())
			Expect(s.Order()).To(BeNumerically("~", 1.0, 1e-9))

			for i := 0; i < 200; i++ {
				s = s.Step()
				Expect(s.Order()).To(BeNumerically("~", 1.0, 1e-9))
			}
		})

		It("stays disordered when noise dominates the alignment term", func() {
			p := sim.Params{
				Boundary:  5.0,
				Noise:     0.9,
				Speed:     0.1,
				Timestep:  0.25,
				Threshold: 1.0,
			}
			s, err := sim.New(500, p, sim.WithSeed(17))
			Expect(err).NotTo(HaveOccurred())

			for i := 0; i < 100; i++ {
				s = s.Step()
			}
			Expect(s.Order()).To(BeNumerically("<", 0.2))
		})
	})

	Describe("stationary order parameter", func() {
		It("converges for the small-noise problem", func() {
			s, err := sim.New(125, problemParams(0.1), sim.WithSeed(21))
			Expect(err).NotTo(HaveOccurred())

			phi, err := s.StationaryOrder(sim.DefaultStationaryConfig())
			Expect(err).NotTo(HaveOccurred())
			Expect(phi).To(And(BeNumerically(">=", 0), BeNumerically("<=", 1)))
		})

		It("reports non-convergence with the step cap", func() {
			s, err := sim.New(125, problemParams(0.5), sim.WithSeed(2))
			Expect(err).NotTo(HaveOccurred())

			// the window can never fill before the cap
			cfg := sim.StationaryConfig{Window: 100, Epsilon: 0.001, MaxSteps: 50}
			_, err = s.StationaryOrder(cfg)
			Expect(err).To(MatchError(sim.ErrNonConvergence))

			var nce *sim.NonConvergenceError
			Expect(errors.As(err, &nce)).To(BeTrue())
			Expect(nce.MaxSteps).To(Equal(50))
			Expect(err.Error()).To(ContainSubstring("50 steps"))
		})

		It("gives up at the default cap when the tolerance cannot be met", func() {
			s, err := sim.New(125, problemParams(0.5), sim.WithSeed(3))
			Expect(err).NotTo(HaveOccurred())

			cfg := sim.DefaultStationaryConfig()
			cfg.Epsilon = 0
			_, err = s.StationaryOrder(cfg)
			Expect(err).To(MatchError(sim.ErrNonConvergence))

			var nce *sim.NonConvergenceError
			Expect(errors.As(err, &nce)).To(BeTrue())
			Expect(nce.MaxSteps).To(Equal(sim.DefaultMaxSteps))
			Expect(nce.Window).To(Equal(sim.DefaultWindow))
			Expect(nce.FinalTime).To(BeNumerically("~", 5000*0.25, 1e-6))
			Expect(err.Error()).To(ContainSubstring("within 5000 steps"))
		})

		It("rejects an invalid estimator configuration", func() {
			s, _ := sim.New(10, problemParams(0.1), sim.WithSeed(1))
			_, err := s.StationaryOrder(sim.StationaryConfig{Window: 0, Epsilon: 0.001, MaxSteps: 10})
			Expect(err).To(MatchError(sim.ErrInvalidConfiguration))
		})
	})

	Describe("projection", func() {
		It("is idempotent and consistent with the swarm", func() {
			s, _ := sim.New(40, problemParams(0.2), sim.WithSeed(8))
			s = s.Step()

			first, second := s.Data(), s.Data()
			Expect(cmp.Diff(first, second)).To(BeEmpty())

			first.X[0] = -1
			Expect(s.Data().X[0]).NotTo(Equal(-1.0))

			for i := 0; i < s.Len(); i++ {
				p := s.Swarm().At(i)
				Expect(second.U[i]).To(BeNumerically("~", math.Cos(p.Theta), 1e-12))
				Expect(second.V[i]).To(BeNumerically("~", math.Sin(p.Theta), 1e-12))
			}
		})
	})

	Describe("ensemble", func() {
		It("evaluates jobs independently of scheduling", func() {
			jobs := []sim.Job{
				{Particles: 60, Params: problemParams(0.1), Seed: 1},
				{Particles: 60, Params: problemParams(0.1), Seed: 1},
				{Particles: 60, Params: problemParams(0.2), Seed: 2},
			}
			orders, err := sim.StationaryOrders(context.Background(), jobs, sim.DefaultStationaryConfig())
			Expect(err).NotTo(HaveOccurred())
			Expect(orders).To(HaveLen(3))
			Expect(orders[0]).To(Equal(orders[1]))
		})

		It("propagates the first failure", func() {
			jobs := []sim.Job{
				{Particles: 10, Params: problemParams(0.1), Seed: 1},
				{Particles: 0, Params: problemParams(0.1), Seed: 1},
			}
			_, err := sim.StationaryOrders(context.Background(), jobs, sim.DefaultStationaryConfig())
			Expect(err).To(MatchError(sim.ErrInvalidConfiguration))
		})
	})
})
