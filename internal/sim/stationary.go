package sim

import "math"

// StationaryOrder estimates the time-averaged order parameter once the flock
// reaches a statistical steady state. Starting one step past s it keeps the
// last cfg.Window instantaneous orders; as soon as the window is full and the
// newest order lies within cfg.Epsilon of the window mean, that mean is
// returned. After cfg.MaxSteps steps it gives up with a *NonConvergenceError.
func (s Simulation) StationaryOrder(cfg StationaryConfig) (float64, error) {
	if err := cfg.Validate(); err != nil {
		return 0, err
	}

	window := make([]float64, 0, cfg.Window)
	head := 0
	mean := 0.0
	cur := s

	for step := 1; step <= cfg.MaxSteps; step++ {
		cur = cur.Step()
		o := cur.order

		if len(window) < cfg.Window {
			window = append(window, o)
			if len(window) < cfg.Window {
				continue
			}
		} else {
			window[head] = o
			head = (head + 1) % cfg.Window
		}

		sum := 0.0
		for _, v := range window {
			sum += v
		}
		mean = sum / float64(cfg.Window)

		if math.Abs(o-mean) <= cfg.Epsilon {
			return math.Min(math.Max(mean, 0), 1), nil
		}
	}

	return 0, &NonConvergenceError{
		MaxSteps:  cfg.MaxSteps,
		Window:    cfg.Window,
		Epsilon:   cfg.Epsilon,
		LastMean:  mean,
		LastOrder: cur.order,
		FinalTime: float64(cur.time),
	}
}
