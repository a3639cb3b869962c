package sim_test

import (
	"context"
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/flocksim/internal/quantity"
	"github.com/san-kum/flocksim/internal/sim"
)

type counter struct {
	count int
	sum   float64
}

func (c *counter) Name() string { return "count" }
func (c *counter) Observe(s sim.Simulation) {
	c.count++
	c.sum += s.Order()
}
func (c *counter) Value() float64 { return float64(c.count) }
func (c *counter) Reset() {
	c.count = 0
	c.sum = 0
}

var _ = Describe("Run", func() {
	var s sim.Simulation

	BeforeEach(func() {
		var err error
		s, err = sim.New(30, problemParams(0.1), sim.WithSeed(1))
		Expect(err).NotTo(HaveOccurred())
	})

	It("records every snapshot including the initial one", func() {
		m := &counter{}
		result, err := sim.Run(context.Background(), s, 10, m)
		Expect(err).NotTo(HaveOccurred())

		Expect(result.Times).To(HaveLen(11))
		Expect(result.Orders).To(HaveLen(11))
		Expect(result.StepsTaken).To(Equal(10))
		Expect(result.Metrics).To(HaveKeyWithValue("count", 11.0))
		Expect(float64(result.Final.Time())).To(Equal(result.Times[10]))
	})

	It("stops before stepping when the context is canceled", func() {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		result, err := sim.Run(ctx, s, 10)
		Expect(err).To(MatchError(context.Canceled))
		Expect(result.StepsTaken).To(BeZero())
	})

	It("rejects a negative step count", func() {
		_, err := sim.Run(context.Background(), s, -1)
		Expect(err).To(MatchError(sim.ErrInvalidConfiguration))
	})

	DescribeTable("until an end time",
		func(end float64, steps int) {
			result, err := sim.RunUntil(context.Background(), s, quantity.Time(end))
			Expect(err).NotTo(HaveOccurred())
			Expect(result.StepsTaken).To(Equal(steps))
			Expect(float64(result.Final.Time())).To(BeNumerically(">=", end-1e-9))
		},
		Entry("exact multiple of the timestep", 2.5, 10),
		Entry("partial step rounds up", 2.6, 11),
		Entry("at the start", 0.0, 0),
		Entry("before the start", -1.0, 0),
	)

	It("rejects a non-finite end time", func() {
		_, err := sim.RunUntil(context.Background(), s, quantity.Time(math.Inf(1)))
		Expect(err).To(MatchError(sim.ErrInvalidConfiguration))
	})
})

var _ = Describe("StationaryConfig", func() {
	It("defaults to window 100, epsilon 0.001 and 5000 steps", func() {
		Expect(sim.DefaultStationaryConfig()).To(Equal(sim.StationaryConfig{Window: 100, Epsilon: 0.001, MaxSteps: 5000}))
	})

	DescribeTable("validation",
		func(cfg sim.StationaryConfig, valid bool) {
			err := cfg.Validate()
			if valid {
				Expect(err).NotTo(HaveOccurred())
			} else {
				Expect(err).To(MatchError(sim.ErrInvalidConfiguration))
			}
		},
		Entry("default", sim.DefaultStationaryConfig(), true),
		Entry("zero epsilon", sim.StationaryConfig{Window: 10, Epsilon: 0, MaxSteps: 10}, true),
		Entry("zero window", sim.StationaryConfig{Window: 0, Epsilon: 0.1, MaxSteps: 10}, false),
		Entry("negative epsilon", sim.StationaryConfig{Window: 10, Epsilon: -1, MaxSteps: 10}, false),
		Entry("zero cap", sim.StationaryConfig{Window: 10, Epsilon: 0.1, MaxSteps: 0}, false),
	)

	It("gives exactly 1 for a lone particle", func() {
		s, err := sim.New(1, problemParams(0.1), sim.WithSeed(4), sim.WithHeading(0))
		Expect(err).NotTo(HaveOccurred())

		phi, err := s.StationaryOrder(sim.StationaryConfig{Window: 5, Epsilon: 0, MaxSteps: 10})
		Expect(err).NotTo(HaveOccurred())
		Expect(phi).To(Equal(1.0))
	})

	It("names its settings in the non-convergence message", func() {
		err := &sim.NonConvergenceError{MaxSteps: 5000, Window: 100, Epsilon: 0.001}
		Expect(err.Error()).To(Equal("sim: stationary order parameter did not converge within 5000 steps (window 100, epsilon 0.001, last order 0.0000, last mean 0.0000)"))
	})
})

var _ = Describe("Options", func() {
	It("summarises the snapshot", func() {
		s, err := sim.New(125, problemParams(0.1), sim.WithSeed(1))
		Expect(err).NotTo(HaveOccurred())
		Expect(s.String()).To(Equal("Simulation(time=0.00, particles=125, boundary=5, timestep=0.25, noise=0.1, speed=1, threshold=1)"))
	})

	It("starts from a given swarm", func() {
		base, _ := sim.New(5, problemParams(0.1), sim.WithSeed(1))

		s, err := sim.New(5, problemParams(0.1), sim.WithSeed(2), sim.WithSwarm(base.Swarm()))
		Expect(err).NotTo(HaveOccurred())
		for i := 0; i < 5; i++ {
			Expect(s.Swarm().At(i)).To(Equal(base.Swarm().At(i)))
		}

		_, err = sim.New(4, problemParams(0.1), sim.WithSwarm(base.Swarm()))
		Expect(err).To(HaveOccurred())

		small := problemParams(0.1)
		small.Boundary = 0.001
		_, err = sim.New(5, small, sim.WithSwarm(base.Swarm()))
		Expect(err).To(HaveOccurred())
	})
})
