package storage

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/flocksim/internal/sim"
)

func testSimulation(t *testing.T) sim.Simulation {
	t.Helper()
	s, err := sim.New(10, sim.Params{Boundary: 5, Noise: 0.1, Speed: 1, Timestep: 0.25, Threshold: 1}, sim.WithSeed(5))
	require.NoError(t, err)
	return s
}

func TestStoreSaveLoad(t *testing.T) {
	st := New(t.TempDir())
	require.NoError(t, st.Init())

	s := testSimulation(t)
	res, err := sim.Run(t.Context(), s, 4)
	require.NoError(t, err)

	meta := RunMetadata{
		Kind:      KindRun,
		Seed:      5,
		Particles: s.Len(),
		Params:    RecordParams(s.Params()),
		Metrics:   map[string]float64{"mean_order": 0.5},
	}

	runID, err := st.Save(meta, OrderSeries(res))
	require.NoError(t, err)
	require.NotEmpty(t, runID)

	loaded, err := st.Load(runID)
	require.NoError(t, err)
	assert.Equal(t, runID, loaded.ID)
	assert.False(t, loaded.Timestamp.IsZero(), "timestamp must be set")

	meta.ID, meta.Timestamp = loaded.ID, loaded.Timestamp
	assert.Equal(t, meta, *loaded)

	series, err := st.LoadSeries(runID)
	require.NoError(t, err)
	assert.Equal(t, OrderSeries(res), series)

	orders, err := series.Column("order")
	require.NoError(t, err)
	assert.Len(t, orders, 5)

	_, err = series.Column("energy")
	assert.ErrorIs(t, err, ErrUnknownColumn)
}

func TestStoreCalibrationRecord(t *testing.T) {
	st := New(t.TempDir())

	meta := RunMetadata{
		Kind:      KindCalibration,
		Particles: 125,
		Calibration: &CalibrationRecord{
			TargetNoise: 0.5, Threshold: 1.2, Speed: 0.8, Residual: 0.01, Iterations: 40, Converged: true,
		},
	}
	runID, err := st.Save(meta, nil)
	require.NoError(t, err)

	loaded, err := st.Load(runID)
	require.NoError(t, err)
	assert.Equal(t, meta.Calibration, loaded.Calibration)

	_, err = st.LoadSeries(runID)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestStoreList(t *testing.T) {
	st := New(t.TempDir())

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for _, offset := range []int{3, 1, 2} {
		meta := RunMetadata{Kind: KindSweep, Timestamp: base.Add(time.Duration(offset) * time.Hour), Particles: offset}
		_, err := st.Save(meta, nil)
		require.NoError(t, err)
	}

	// Stray entries are ignored.
	require.NoError(t, os.MkdirAll(filepath.Join(st.baseDir, "not-a-run"), 0755))

	runs, err := st.List()
	require.NoError(t, err)
	require.Len(t, runs, 3)
	for i, run := range runs {
		assert.Equal(t, i+1, run.Particles, "run %d out of order", i)
	}
}

func TestStoreListMissingDir(t *testing.T) {
	st := New(filepath.Join(t.TempDir(), "missing"))
	runs, err := st.List()
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestStoreRejectsInvalidID(t *testing.T) {
	st := New(t.TempDir())

	_, err := st.Load("../etc")
	assert.ErrorIs(t, err, ErrInvalidRunID)

	_, err = st.LoadSeries("nope")
	assert.ErrorIs(t, err, ErrInvalidRunID)
}

func TestExportSnapshot(t *testing.T) {
	s := testSimulation(t).Step()

	var buf bytes.Buffer
	require.NoError(t, ExportSnapshotTo(&buf, s))

	var got Snapshot
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, NewSnapshot(s), got)
	assert.Len(t, got.Data.X, 10)

	path := filepath.Join(t.TempDir(), "snapshot.json")
	require.NoError(t, ExportSnapshot(path, s))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, buf.Bytes(), data, "file and writer exports differ")
}
