package automation

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/san-kum/flocksim/internal/config"
	"github.com/san-kum/flocksim/internal/storage"
)

const scenarioYAML = `
name: smoke
description: short run, stationary estimate and sweep
steps:
  - name: warmup
    kind: run
    config:
      particles: 20
      boundary: 3
      steps: 10
    metrics: [mean_order]
  - kind: stationary
    preset: small-noise
    config:
      particles: 20
      boundary: 3
  - name: transition
    kind: sweep
    config:
      particles: 20
      boundary: 3
      speed: 0.1
    noises: [0.05, 2.0]
    runs: 2
`

func writeScenario(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoadScenario(t *testing.T) {
	sc, err := LoadScenario(writeScenario(t, scenarioYAML))
	require.NoError(t, err)

	assert.Equal(t, "smoke", sc.Name)
	require.Len(t, sc.Steps, 3)
	assert.Equal(t, storage.KindRun, sc.Steps[0].Kind)
	assert.Equal(t, []float64{0.05, 2.0}, sc.Steps[2].Noises)
}

func TestStepResolve(t *testing.T) {
	sc, err := LoadScenario(writeScenario(t, scenarioYAML))
	require.NoError(t, err)

	cfg, err := sc.Steps[1].Resolve()
	require.NoError(t, err)
	assert.Equal(t, 20, cfg.Particles)
	assert.Equal(t, 3.0, cfg.Boundary)
	assert.Equal(t, config.GetPreset("small-noise").Noise, cfg.Noise)
	assert.Equal(t, config.DefaultSpeed, cfg.Speed)
}

func TestStepResolveUnknownPreset(t *testing.T) {
	_, err := Step{Preset: "nope"}.Resolve()
	assert.Error(t, err)
}

func TestRunScenario(t *testing.T) {
	sc, err := LoadScenario(writeScenario(t, scenarioYAML))
	require.NoError(t, err)

	st := storage.New(t.TempDir())
	outcomes, err := RunScenario(context.Background(), sc, st, zaptest.NewLogger(t))
	require.NoError(t, err)
	require.Len(t, outcomes, 3)

	assert.Equal(t, "warmup", outcomes[0].Step)
	assert.Equal(t, "step-2", outcomes[1].Step)
	assert.InDelta(t, 1.025, outcomes[2].Value, 1e-12)

	runs, err := st.List()
	require.NoError(t, err)
	assert.Len(t, runs, 3)
	for _, o := range outcomes {
		assert.NotEmpty(t, o.ID)
	}
}

func TestRunScenarioStopsAtFailure(t *testing.T) {
	sc := &Scenario{Steps: []Step{{Name: "bogus", Kind: "teleport"}}}

	outcomes, err := RunScenario(context.Background(), sc, nil, nil)
	assert.ErrorIs(t, err, ErrUnknownStep)
	assert.Empty(t, outcomes)
}

func TestRunScenarioInvalidConfig(t *testing.T) {
	sc, err := LoadScenario(writeScenario(t, `
steps:
  - kind: run
    config:
      particles: 0
`))
	require.NoError(t, err)

	_, err = RunScenario(context.Background(), sc, nil, nil)
	assert.ErrorIs(t, err, config.ErrInvalid)
}
