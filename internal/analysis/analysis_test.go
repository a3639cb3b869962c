package analysis

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/san-kum/flocksim/internal/quantity"
	"github.com/san-kum/flocksim/internal/sim"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func sweepConfig(noises ...float64) SweepConfig {
	return SweepConfig{
		Particles:  20,
		Params:     sim.Params{Boundary: 3, Speed: 0.1, Timestep: 1, Threshold: 1},
		Noises:     noises,
		Runs:       2,
		SeedStart:  7,
		Stationary: sim.DefaultStationaryConfig(),
	}
}

func TestLinspace(t *testing.T) {
	assert.Equal(t, []float64{0, 0.25, 0.5, 0.75, 1}, Linspace(0, 1, 5))
	assert.Equal(t, []float64{2}, Linspace(2, 3, 1))
	assert.Nil(t, Linspace(0, 1, 0))
}

func TestNoiseSweep(t *testing.T) {
	cfg := sweepConfig(0.05, 2.0)

	points, err := NoiseSweep(context.Background(), cfg)
	require.NoError(t, err)
	require.Len(t, points, 2)

	for i, p := range points {
		assert.Equal(t, quantity.Noise(cfg.Noises[i]), p.Noise)
		assert.Len(t, p.Orders, cfg.Runs)
		assert.GreaterOrEqual(t, p.Mean, 0.0)
		assert.LessOrEqual(t, p.Mean, 1.0)
		assert.GreaterOrEqual(t, p.Std, 0.0)
	}

	again, err := NoiseSweep(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, points, again)
}

func TestNoiseSweepInvalid(t *testing.T) {
	_, err := NoiseSweep(context.Background(), sweepConfig())
	assert.ErrorIs(t, err, sim.ErrInvalidConfiguration)

	cfg := sweepConfig(0.1)
	cfg.Runs = 0
	_, err = NoiseSweep(context.Background(), cfg)
	assert.ErrorIs(t, err, sim.ErrInvalidConfiguration)

	cfg = sweepConfig(0.1)
	cfg.Particles = 0
	_, err = NoiseSweep(context.Background(), cfg)
	assert.ErrorIs(t, err, sim.ErrInvalidConfiguration)
}

func TestNoiseSweepNonConvergence(t *testing.T) {
	cfg := sweepConfig(0.1)
	cfg.Stationary = sim.StationaryConfig{Window: 100, Epsilon: 0.001, MaxSteps: 10}

	_, err := NoiseSweep(context.Background(), cfg)
	assert.ErrorIs(t, err, sim.ErrNonConvergence)
}

func TestCriticalNoise(t *testing.T) {
	points := []SweepPoint{
		{Noise: 0.6, Mean: 0.3},
		{Noise: 0.2, Mean: 0.9},
		{Noise: 0.4, Mean: 0.8},
		{Noise: 0.8, Mean: 0.2},
	}

	eta, err := CriticalNoise(points)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, float64(eta), 1e-12)
	assert.Equal(t, quantity.Noise(0.6), points[0].Noise, "input must not be reordered")
}

func TestCriticalNoiseTooFewPoints(t *testing.T) {
	_, err := CriticalNoise([]SweepPoint{{Noise: 1}})
	assert.ErrorIs(t, err, ErrTooFewPoints)
}

func TestMeanStd(t *testing.T) {
	mean, std := meanStd([]float64{1, 3})
	assert.Equal(t, 2.0, mean)
	assert.Equal(t, 1.0, std)
}

func TestOrderSpectrum(t *testing.T) {
	assert.Nil(t, OrderSpectrum([]float64{1}))

	const n = 64
	series := make([]float64, n)
	for i := range series {
		series[i] = 0.5 + 0.1*math.Cos(2*math.Pi*8*float64(i)/n)
	}

	ps := OrderSpectrum(series)
	require.Len(t, ps, n/2)
	assert.InDelta(t, 0, ps[0], 1e-9, "mean must be removed")

	peak := 0
	for i, v := range ps {
		if v > ps[peak] {
			peak = i
		}
	}
	assert.Equal(t, 8, peak)
	assert.InDelta(t, 0.1*n/2, ps[8], 1e-9)
}

func TestOrderSpectrumArbitraryLength(t *testing.T) {
	series := make([]float64, 100)
	for i := range series {
		series[i] = math.Sin(2 * math.Pi * 5 * float64(i) / 100)
	}

	ps := OrderSpectrum(series)
	require.Len(t, ps, 50)
	assert.InDelta(t, 50, ps[5], 1e-6)
}
