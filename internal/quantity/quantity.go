// Package quantity defines the physical scalar types used by the flocking engine.
//
// Each quantity is its own named type so a speed can never be passed where a
// noise amplitude or a domain length is expected:
//
//   - [Time]: absolute elapsed simulation time
//   - [Duration]: relative time, used for the timestep
//   - [Speed]: particle speed in length units per time unit
//   - [Noise]: angular noise amplitude
//   - [Length]: side length of the periodic square domain
//   - [Threshold]: neighbor interaction distance
//
// Only the arithmetic the engine needs is provided.
package quantity

import (
	"errors"
	"fmt"
	"math"
)

// ErrOutOfRange indicates a quantity outside its physically valid range.
var ErrOutOfRange = errors.New("quantity: value out of range")

type (
	Time      float64
	Duration  float64
	Speed     float64
	Noise     float64
	Length    float64
	Threshold float64
)

// Add advances an absolute time by a relative duration.
func (t Time) Add(d Duration) Time { return t + Time(d) }

// Scale returns the noise amplitude multiplied by f.
func (n Noise) Scale(f float64) Noise { return Noise(float64(n) * f) }

// Travel returns the distance covered at speed s during d.
func (s Speed) Travel(d Duration) float64 { return float64(s) * float64(d) }

// Wrap reduces x into [0, l).
func (l Length) Wrap(x float64) float64 {
	L := float64(l)
	r := math.Mod(x, L)
	if r < 0 {
		r += L
	}
	// r+L rounds up to L when r is a tiny negative number
	if r >= L {
		r = 0
	}
	return r
}

// Separation returns the periodic distance between two coordinates on one axis.
func (l Length) Separation(a, b float64) float64 {
	L := float64(l)
	delta := math.Mod(math.Abs(a-b), L)
	return math.Min(delta, L-delta)
}

// Admits reports whether distance d lies strictly inside the threshold.
func (r Threshold) Admits(d float64) bool { return d < float64(r) }

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

func (l Length) Validate() error {
	if !finite(float64(l)) || l <= 0 {
		return fmt.Errorf("%w: domain length must be positive, got %v", ErrOutOfRange, float64(l))
	}
	return nil
}

func (n Noise) Validate() error {
	if !finite(float64(n)) || n < 0 {
		return fmt.Errorf("%w: noise must be non-negative, got %v", ErrOutOfRange, float64(n))
	}
	return nil
}

func (s Speed) Validate() error {
	if !finite(float64(s)) || s < 0 {
		return fmt.Errorf("%w: speed must be non-negative, got %v", ErrOutOfRange, float64(s))
	}
	return nil
}

func (d Duration) Validate() error {
	if !finite(float64(d)) || d <= 0 {
		return fmt.Errorf("%w: timestep must be positive, got %v", ErrOutOfRange, float64(d))
	}
	return nil
}

func (r Threshold) Validate() error {
	if !finite(float64(r)) || r <= 0 {
		return fmt.Errorf("%w: neighbor threshold must be positive, got %v", ErrOutOfRange, float64(r))
	}
	return nil
}
