// Package automation runs scripted sequences of experiments described in
// YAML scenario files.
package automation

import (
	"context"
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/flocksim/internal/calibrate"
	"github.com/san-kum/flocksim/internal/config"
	"github.com/san-kum/flocksim/internal/experiment"
	"github.com/san-kum/flocksim/internal/storage"
)

var ErrUnknownStep = errors.New("automation: unknown step kind")

// Scenario defines a scripted experiment sequence.
type Scenario struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Steps       []Step `yaml:"steps"`
}

// Step is a single experiment. Config is overlaid on the preset, or on the
// defaults when no preset is named.
type Step struct {
	Name    string                `yaml:"name"`
	Kind    storage.Kind          `yaml:"kind"`
	Preset  string                `yaml:"preset"`
	Config  yaml.Node             `yaml:"config"`
	Metrics []string              `yaml:"metrics"`
	Noises  []float64             `yaml:"noises"`
	Runs    int                   `yaml:"runs"`
	Grid    *calibrate.GridConfig `yaml:"grid"`
}

// Outcome summarizes a finished step. Value is the final order of a run, the
// stationary order, the calibration residual or the critical noise estimate.
type Outcome struct {
	Step  string
	Kind  storage.Kind
	ID    string
	Value float64
}

func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var scenario Scenario
	if err := yaml.Unmarshal(data, &scenario); err != nil {
		return nil, err
	}

	return &scenario, nil
}

// Resolve builds the configuration of a step.
func (s Step) Resolve() (*config.Config, error) {
	cfg := config.DefaultConfig()
	if s.Preset != "" {
		cfg = config.GetPreset(s.Preset)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s", s.Preset)
		}
	}
	if !s.Config.IsZero() {
		if err := s.Config.Decode(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// RunScenario executes all steps in order and stops at the first failure,
// returning the outcomes gathered so far. st may be nil.
func RunScenario(ctx context.Context, scenario *Scenario, st *storage.Store, logger *zap.Logger) ([]Outcome, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	outcomes := make([]Outcome, 0, len(scenario.Steps))

	for i, step := range scenario.Steps {
		name := step.Name
		if name == "" {
			name = fmt.Sprintf("step-%d", i+1)
		}
		logger.Info("scenario step",
			zap.String("scenario", scenario.Name),
			zap.String("step", name),
			zap.String("kind", string(step.Kind)),
			zap.Int("index", i+1),
			zap.Int("total", len(scenario.Steps)))

		out, err := runStep(ctx, step, st, logger.With(zap.String("step", name)))
		if err != nil {
			return outcomes, fmt.Errorf("step %d (%s): %w", i+1, name, err)
		}
		out.Step = name
		outcomes = append(outcomes, out)
	}

	return outcomes, nil
}

func runStep(ctx context.Context, step Step, st *storage.Store, logger *zap.Logger) (Outcome, error) {
	cfg, err := step.Resolve()
	if err != nil {
		return Outcome{}, err
	}

	opts := []experiment.Option{experiment.WithLogger(logger)}
	if st != nil {
		opts = append(opts, experiment.WithStore(st))
	}
	e, err := experiment.New(cfg, opts...)
	if err != nil {
		return Outcome{}, err
	}

	out := Outcome{Kind: step.Kind}
	switch step.Kind {
	case storage.KindRun:
		report, err := e.Run(ctx, step.Metrics)
		if err != nil {
			return out, err
		}
		out.ID, out.Value = report.ID, report.Result.Final.Order()
	case storage.KindStationary:
		report, err := e.Stationary(ctx)
		if err != nil {
			return out, err
		}
		out.ID, out.Value = report.ID, report.Order
	case storage.KindCalibration:
		report, err := e.Calibrate(ctx, step.Grid, nil)
		if err != nil {
			return out, err
		}
		out.ID, out.Value = report.ID, report.Result.Residual
	case storage.KindSweep:
		runs := step.Runs
		if runs == 0 {
			runs = 1
		}
		report, err := e.Sweep(ctx, step.Noises, runs)
		if err != nil {
			return out, err
		}
		out.ID, out.Value = report.ID, report.Critical
	default:
		return out, fmt.Errorf("%w: %q", ErrUnknownStep, step.Kind)
	}
	return out, nil
}
