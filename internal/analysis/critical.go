package analysis

import (
	"errors"
	"slices"

	"github.com/san-kum/flocksim/internal/quantity"
)

var ErrTooFewPoints = errors.New("analysis: at least two sweep points are required")

// CriticalNoise estimates the transition noise as the midpoint of the
// steepest drop in mean order between adjacent sweep points.
func CriticalNoise(points []SweepPoint) (quantity.Noise, error) {
	if len(points) < 2 {
		return 0, ErrTooFewPoints
	}

	sorted := slices.Clone(points)
	slices.SortStableFunc(sorted, func(a, b SweepPoint) int {
		switch {
		case a.Noise < b.Noise:
			return -1
		case a.Noise > b.Noise:
			return 1
		}
		return 0
	})

	best := 0
	bestDrop := sorted[0].Mean - sorted[1].Mean
	for i := 1; i < len(sorted)-1; i++ {
		drop := sorted[i].Mean - sorted[i+1].Mean
		if drop > bestDrop {
			best, bestDrop = i, drop
		}
	}

	return (sorted[best].Noise + sorted[best+1].Noise) / 2, nil
}
