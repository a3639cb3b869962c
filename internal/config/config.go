package config

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/flocksim/internal/calibrate"
	"github.com/san-kum/flocksim/internal/quantity"
	"github.com/san-kum/flocksim/internal/sim"
)

const (
	DefaultParticles   = 125
	DefaultBoundary    = 5.0
	DefaultNoise       = 0.1
	DefaultSpeed       = 1.0
	DefaultTimestep    = 0.25
	DefaultThreshold   = 1.0
	DefaultSteps       = 500
	DefaultTargetNoise = 0.5
)

var ErrInvalid = errors.New("config: invalid configuration")

//go:embed schema.json
var schemaSource string

const schemaURL = "config.schema.json"

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

type Config struct {
	Particles   int               `yaml:"particles"`
	Boundary    float64           `yaml:"boundary"`
	Noise       float64           `yaml:"noise"`
	Speed       float64           `yaml:"speed"`
	Timestep    float64           `yaml:"timestep"`
	Threshold   float64           `yaml:"threshold"`
	Seed        uint64            `yaml:"seed"`
	Steps       int               `yaml:"steps"`
	TimeEnd     float64           `yaml:"time_end,omitempty"`
	Stationary  StationaryConfig  `yaml:"stationary"`
	Calibration CalibrationConfig `yaml:"calibration"`
}

type StationaryConfig struct {
	Window   int     `yaml:"window"`
	Epsilon  float64 `yaml:"epsilon"`
	MaxSteps int     `yaml:"max_steps"`
}

type CalibrationConfig struct {
	TargetNoise   float64     `yaml:"target_noise"`
	NoiseOffset   float64     `yaml:"noise_offset"`
	OrderDelta    float64     `yaml:"order_delta"`
	Simplex       [][]float64 `yaml:"simplex"`
	Tolerance     float64     `yaml:"tolerance"`
	MaxIterations int         `yaml:"max_iterations"`
	MinThreshold  float64     `yaml:"min_threshold"`
}

func DefaultConfig() *Config {
	return &Config{
		Particles: DefaultParticles,
		Boundary:  DefaultBoundary,
		Noise:     DefaultNoise,
		Speed:     DefaultSpeed,
		Timestep:  DefaultTimestep,
		Threshold: DefaultThreshold,
		Seed:      1,
		Steps:     DefaultSteps,
		Stationary: StationaryConfig{
			Window:   sim.DefaultWindow,
			Epsilon:  sim.DefaultEpsilon,
			MaxSteps: sim.DefaultMaxSteps,
		},
		Calibration: CalibrationConfig{
			TargetNoise:   DefaultTargetNoise,
			NoiseOffset:   calibrate.DefaultNoiseOffset,
			OrderDelta:    calibrate.DefaultOrderDelta,
			Simplex:       calibrate.DefaultSimplex(),
			Tolerance:     calibrate.DefaultTolerance,
			MaxIterations: calibrate.DefaultMaxIterations,
			MinThreshold:  calibrate.DefaultMinThreshold,
		},
	}
}

// Load reads a YAML file, validates it against the embedded schema and
// overlays it on the defaults.
func Load(path string) (*Config, error) {
	return LoadOnto(path, DefaultConfig())
}

// LoadOnto is Load with an explicit base. Keys absent from the file keep
// the base values; base itself is not modified.
func LoadOnto(path string, base *Config) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := validateYAML(data); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	cfg := *base
	cfg.Calibration.Simplex = slices.Clone(base.Calibration.Simplex)
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate checks the configuration against the same schema as Load.
func (c *Config) Validate() error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return validateYAML(data)
}

func (c *Config) Params() sim.Params {
	return sim.Params{
		Boundary:  quantity.Length(c.Boundary),
		Noise:     quantity.Noise(c.Noise),
		Speed:     quantity.Speed(c.Speed),
		Timestep:  quantity.Duration(c.Timestep),
		Threshold: quantity.Threshold(c.Threshold),
	}
}

// Horizon runs s for the configured length: until TimeEnd when it is set,
// otherwise for Steps steps.
func (c *Config) Horizon(ctx context.Context, s sim.Simulation, metrics ...sim.Metric) (*sim.Result, error) {
	if c.TimeEnd > 0 {
		return sim.RunUntil(ctx, s, quantity.Time(c.TimeEnd), metrics...)
	}
	return sim.Run(ctx, s, c.Steps, metrics...)
}

func (c *Config) StationaryRule() sim.StationaryConfig {
	return sim.StationaryConfig{
		Window:   c.Stationary.Window,
		Epsilon:  c.Stationary.Epsilon,
		MaxSteps: c.Stationary.MaxSteps,
	}
}

func (c *Config) CalibrateConfig() calibrate.Config {
	cal := calibrate.DefaultConfig()
	cal.NoiseOffset = c.Calibration.NoiseOffset
	cal.OrderDelta = c.Calibration.OrderDelta
	cal.Tolerance = c.Calibration.Tolerance
	cal.MaxIterations = c.Calibration.MaxIterations
	cal.MinThreshold = c.Calibration.MinThreshold
	cal.Seed = c.Seed
	cal.Stationary = c.StationaryRule()
	if len(c.Calibration.Simplex) > 0 {
		cal.Simplex = c.Calibration.Simplex
	}
	return cal
}

func (c *Config) Problem() calibrate.Problem {
	return calibrate.Problem{
		Particles:   c.Particles,
		Boundary:    quantity.Length(c.Boundary),
		Timestep:    quantity.Duration(c.Timestep),
		TargetNoise: quantity.Noise(c.Calibration.TargetNoise),
	}
}

func compiledSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		c := jsonschema.NewCompiler()
		if err := c.AddResource(schemaURL, strings.NewReader(schemaSource)); err != nil {
			schemaErr = err
			return
		}
		schema, schemaErr = c.Compile(schemaURL)
	})
	return schema, schemaErr
}

// validateYAML re-encodes the document as JSON so the schema sees plain
// JSON values.
func validateYAML(data []byte) error {
	sch, err := compiledSchema()
	if err != nil {
		return fmt.Errorf("failed to compile schema: %w", err)
	}

	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if doc == nil {
		return nil
	}

	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}

	if err := sch.Validate(v); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	return nil
}
