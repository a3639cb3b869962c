package sim

import (
	"errors"
	"fmt"
)

// Domain errors for simulation operations.
var (
	// ErrInvalidConfiguration indicates a particle count, parameter or
	// estimator setting that cannot be simulated.
	ErrInvalidConfiguration = errors.New("sim: invalid configuration")

	// ErrNonConvergence indicates the stationary order parameter did not
	// settle within the step cap.
	ErrNonConvergence = errors.New("sim: stationary order parameter did not converge")
)

// NonConvergenceError reports the estimator settings that failed to converge.
type NonConvergenceError struct {
	MaxSteps  int
	Window    int
	Epsilon   float64
	LastMean  float64
	LastOrder float64
	FinalTime float64
}

func (e *NonConvergenceError) Error() string {
	return fmt.Sprintf("%v within %d steps (window %d, epsilon %g, last order %.4f, last mean %.4f)",
		ErrNonConvergence, e.MaxSteps, e.Window, e.Epsilon, e.LastOrder, e.LastMean)
}

func (e *NonConvergenceError) Unwrap() error { return ErrNonConvergence }

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfiguration, fmt.Sprintf(format, args...))
}
