package optim

import (
	"context"
	"fmt"
	"math"
)

// GridSearch evaluates an objective at every point of a Cartesian grid.
type GridSearch struct {
	axes [][]float64
}

// NewGridSearch builds a grid from one list of candidate values per dimension.
func NewGridSearch(axes [][]float64) *GridSearch {
	return &GridSearch{axes: axes}
}

// Search returns the grid point with the lowest cost. Points whose evaluation
// fails are skipped; if every point fails the last failure is wrapped in
// ErrNoBestParam.
func (g *GridSearch) Search(ctx context.Context, obj Objective) (*Result, error) {
	if len(g.axes) == 0 {
		return nil, fmt.Errorf("%w: empty grid", ErrNoBestParam)
	}

	best := &Result{F: math.Inf(1), Converged: true}
	var lastErr error

	err := g.searchRecursive(ctx, 0, make([]float64, 0, len(g.axes)), obj, best, &lastErr)
	if err != nil {
		return nil, err
	}

	if best.X == nil {
		if lastErr != nil {
			return nil, fmt.Errorf("%w: %w", ErrNoBestParam, lastErr)
		}
		return nil, ErrNoBestParam
	}
	return best, nil
}

func (g *GridSearch) searchRecursive(
	ctx context.Context,
	depth int,
	current []float64,
	obj Objective,
	best *Result,
	lastErr *error,
) error {
	if depth == len(g.axes) {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%w: %w", ErrOptimizerFailure, err)
		}

		best.Evaluations++
		val, err := obj.Evaluate(ctx, current)
		if err != nil {
			*lastErr = err
			return nil
		}

		if val < best.F {
			best.F = val
			best.X = clone(current)
		}
		return nil
	}

	for _, val := range g.axes[depth] {
		next := append(clone(current), val)
		if err := g.searchRecursive(ctx, depth+1, next, obj, best, lastErr); err != nil {
			return err
		}
	}
	return nil
}
