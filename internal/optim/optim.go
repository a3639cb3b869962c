// Package optim provides derivative-free minimizers for noisy, expensive
// objectives such as simulation-based cost functions.
//
//   - [NelderMead]: downhill simplex with a cost-spread stopping rule
//   - [GridSearch]: exhaustive search over a Cartesian grid
package optim

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrOptimizerFailure is wrapped by every error returned from this package.
	ErrOptimizerFailure = errors.New("optim: optimizer failure")

	// ErrInvalidTolerance indicates a negative or NaN convergence tolerance.
	ErrInvalidTolerance = fmt.Errorf("%w: invalid tolerance", ErrOptimizerFailure)

	// ErrInvalidSimplex indicates an initial simplex that is not n+1 points in n dimensions.
	ErrInvalidSimplex = fmt.Errorf("%w: invalid initial simplex", ErrOptimizerFailure)

	// ErrNoBestParam indicates the search finished without a finite best point.
	ErrNoBestParam = fmt.Errorf("%w: no best parameters found", ErrOptimizerFailure)
)

// Objective is a function to be minimized.
type Objective interface {
	Evaluate(ctx context.Context, x []float64) (float64, error)
}

type ObjectiveFunc func(ctx context.Context, x []float64) (float64, error)

func (f ObjectiveFunc) Evaluate(ctx context.Context, x []float64) (float64, error) { return f(ctx, x) }

// Result is the outcome of a minimization.
type Result struct {
	X           []float64
	F           float64
	Iterations  int
	Evaluations int
	Converged   bool
}

// Iteration is reported to observers after every simplex update.
type Iteration struct {
	N        int
	Best     []float64
	BestCost float64
	Spread   float64
}

func clone(x []float64) []float64 {
	c := make([]float64, len(x))
	copy(c, x)
	return c
}
