package optim

import (
	"context"
	"fmt"
	"math"
	"sort"
)

const (
	reflection  = 1.0
	expansion   = 2.0
	contraction = 0.5
	shrinkage   = 0.5
)

// NelderMead minimizes an objective by moving a simplex of n+1 vertices.
// It stops when the population standard deviation of the vertex costs drops
// below the tolerance, or after the iteration cap.
type NelderMead struct {
	initial  [][]float64
	tol      float64
	maxIters int
	observer func(Iteration)
}

func NewNelderMead(simplex [][]float64) *NelderMead {
	init := make([][]float64, len(simplex))
	for i, v := range simplex {
		init[i] = clone(v)
	}
	return &NelderMead{initial: init, tol: 1e-6, maxIters: 100}
}

// WithSDTolerance sets the cost-spread tolerance.
func (nm *NelderMead) WithSDTolerance(tol float64) (*NelderMead, error) {
	if math.IsNaN(tol) || tol < 0 {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTolerance, tol)
	}
	nm.tol = tol
	return nm, nil
}

func (nm *NelderMead) WithMaxIterations(n int) *NelderMead {
	nm.maxIters = n
	return nm
}

// WithObserver registers fn to be called after every iteration.
func (nm *NelderMead) WithObserver(fn func(Iteration)) *NelderMead {
	nm.observer = fn
	return nm
}

type vertex struct {
	x []float64
	f float64
}

type minimizer struct {
	obj   Objective
	evals int
}

func (m *minimizer) eval(ctx context.Context, x []float64) (float64, error) {
	f, err := m.obj.Evaluate(ctx, x)
	m.evals++
	if err != nil {
		return 0, fmt.Errorf("%w: cost evaluation at %v: %w", ErrOptimizerFailure, x, err)
	}
	if math.IsNaN(f) {
		f = math.Inf(1)
	}
	return f, nil
}

// Minimize runs the simplex search from the configured initial simplex.
func (nm *NelderMead) Minimize(ctx context.Context, obj Objective) (*Result, error) {
	if err := nm.validate(); err != nil {
		return nil, err
	}

	m := &minimizer{obj: obj}
	simplex := make([]vertex, len(nm.initial))
	for i, x := range nm.initial {
		f, err := m.eval(ctx, x)
		if err != nil {
			return nil, err
		}
		simplex[i] = vertex{x: clone(x), f: f}
	}
	sortSimplex(simplex)

	result := &Result{}
	for iter := 0; ; iter++ {
		if spread(simplex) < nm.tol {
			result.Converged = true
			break
		}
		if iter >= nm.maxIters {
			break
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %w", ErrOptimizerFailure, ctx.Err())
		default:
		}

		if err := nm.iterate(ctx, m, simplex); err != nil {
			return nil, err
		}
		sortSimplex(simplex)
		result.Iterations++

		if nm.observer != nil {
			nm.observer(Iteration{
				N:        result.Iterations,
				Best:     clone(simplex[0].x),
				BestCost: simplex[0].f,
				Spread:   spread(simplex),
			})
		}
	}

	best := simplex[0]
	if math.IsInf(best.f, 0) {
		return nil, ErrNoBestParam
	}

	result.X = clone(best.x)
	result.F = best.f
	result.Evaluations = m.evals
	return result, nil
}

func (nm *NelderMead) validate() error {
	n := len(nm.initial) - 1
	if n < 1 {
		return fmt.Errorf("%w: need at least 2 vertices, got %d", ErrInvalidSimplex, len(nm.initial))
	}
	for i, v := range nm.initial {
		if len(v) != n {
			return fmt.Errorf("%w: vertex %d has dimension %d, want %d", ErrInvalidSimplex, i, len(v), n)
		}
	}
	if math.IsNaN(nm.tol) || nm.tol < 0 {
		return fmt.Errorf("%w: %v", ErrInvalidTolerance, nm.tol)
	}
	return nil
}

// iterate performs one reflect/expand/contract/shrink update on a sorted simplex.
func (nm *NelderMead) iterate(ctx context.Context, m *minimizer, s []vertex) error {
	n := len(s) - 1
	worst := s[n]

	centroid := make([]float64, n)
	for _, v := range s[:n] {
		for j := range centroid {
			centroid[j] += v.x[j] / float64(n)
		}
	}

	xr := affine(centroid, worst.x, reflection)
	fr, err := m.eval(ctx, xr)
	if err != nil {
		return err
	}

	switch {
	case fr < s[0].f:
		xe := affine(centroid, xr, -expansion)
		fe, err := m.eval(ctx, xe)
		if err != nil {
			return err
		}
		if fe < fr {
			s[n] = vertex{x: xe, f: fe}
		} else {
			s[n] = vertex{x: xr, f: fr}
		}
		return nil

	case fr < s[n-1].f:
		s[n] = vertex{x: xr, f: fr}
		return nil

	case fr < worst.f:
		xc := affine(centroid, xr, -contraction)
		fc, err := m.eval(ctx, xc)
		if err != nil {
			return err
		}
		if fc <= fr {
			s[n] = vertex{x: xc, f: fc}
			return nil
		}

	default:
		xc := affine(centroid, worst.x, -contraction)
		fc, err := m.eval(ctx, xc)
		if err != nil {
			return err
		}
		if fc < worst.f {
			s[n] = vertex{x: xc, f: fc}
			return nil
		}
	}

	best := s[0].x
	for i := 1; i <= n; i++ {
		x := make([]float64, n)
		for j := range x {
			x[j] = best[j] + shrinkage*(s[i].x[j]-best[j])
		}
		f, err := m.eval(ctx, x)
		if err != nil {
			return err
		}
		s[i] = vertex{x: x, f: f}
	}
	return nil
}

// affine returns c + k·(c - p). With k > 0 this reflects p through c; with
// k < 0 it moves from c toward p by |k|.
func affine(c, p []float64, k float64) []float64 {
	out := make([]float64, len(c))
	for j := range c {
		out[j] = c[j] + k*(c[j]-p[j])
	}
	return out
}

func sortSimplex(s []vertex) {
	sort.SliceStable(s, func(i, j int) bool { return s[i].f < s[j].f })
}

// spread is the population standard deviation of the vertex costs.
func spread(s []vertex) float64 {
	mean := 0.0
	for _, v := range s {
		mean += v.f
	}
	mean /= float64(len(s))

	variance := 0.0
	for _, v := range s {
		d := v.f - mean
		variance += d * d
	}
	return math.Sqrt(variance / float64(len(s)))
}
