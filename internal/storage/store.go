package storage

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/san-kum/flocksim/internal/sim"
)

var (
	ErrInvalidRunID  = errors.New("storage: invalid run id")
	ErrUnknownColumn = errors.New("storage: unknown column")
)

type Kind string

const (
	KindRun         Kind = "run"
	KindStationary  Kind = "stationary"
	KindCalibration Kind = "calibration"
	KindSweep       Kind = "sweep"
)

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type ParamsRecord struct {
	Boundary  float64 `json:"boundary"`
	Noise     float64 `json:"noise"`
	Speed     float64 `json:"speed"`
	Timestep  float64 `json:"timestep"`
	Threshold float64 `json:"threshold"`
}

func RecordParams(p sim.Params) ParamsRecord {
	return ParamsRecord{
		Boundary:  float64(p.Boundary),
		Noise:     float64(p.Noise),
		Speed:     float64(p.Speed),
		Timestep:  float64(p.Timestep),
		Threshold: float64(p.Threshold),
	}
}

type CalibrationRecord struct {
	TargetNoise float64 `json:"target_noise"`
	Threshold   float64 `json:"threshold"`
	Speed       float64 `json:"speed"`
	Residual    float64 `json:"residual"`
	Iterations  int     `json:"iterations"`
	Converged   bool    `json:"converged"`
}

// RunMetadata describes a stored run. Particle state is never persisted.
type RunMetadata struct {
	ID          string             `json:"id"`
	Kind        Kind               `json:"kind"`
	Timestamp   time.Time          `json:"timestamp"`
	Seed        uint64             `json:"seed"`
	Particles   int                `json:"particles"`
	Params      ParamsRecord       `json:"params"`
	Metrics     map[string]float64 `json:"metrics,omitempty"`
	Calibration *CalibrationRecord `json:"calibration,omitempty"`
}

// Series is a table of named float columns, stored as series.csv.
type Series struct {
	Columns []string
	Rows    [][]float64
}

func (s *Series) Column(name string) ([]float64, error) {
	idx := slices.Index(s.Columns, name)
	if idx < 0 {
		return nil, fmt.Errorf("%w: %q", ErrUnknownColumn, name)
	}
	out := make([]float64, 0, len(s.Rows))
	for _, row := range s.Rows {
		if idx < len(row) {
			out = append(out, row[idx])
		}
	}
	return out, nil
}

// OrderSeries tabulates the order parameter trace of a run.
func OrderSeries(res *sim.Result) *Series {
	series := &Series{Columns: []string{"time", "order"}}
	for i := range res.Times {
		series.Rows = append(series.Rows, []float64{res.Times[i], res.Orders[i]})
	}
	return series
}

// Save writes meta and an optional series under a fresh run id, which is
// returned. A zero Timestamp is set to now.
func (s *Store) Save(meta RunMetadata, series *Series) (string, error) {
	meta.ID = uuid.NewString()
	if meta.Timestamp.IsZero() {
		meta.Timestamp = time.Now()
	}

	runDir := filepath.Join(s.baseDir, meta.ID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	if err := writeMetadata(filepath.Join(runDir, "metadata.json"), meta); err != nil {
		return "", err
	}

	if series != nil {
		if err := writeSeries(filepath.Join(runDir, "series.csv"), series); err != nil {
			return "", err
		}
	}

	return meta.ID, nil
}

func writeMetadata(path string, meta RunMetadata) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(meta)
}

func writeSeries(path string, series *Series) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(series.Columns); err != nil {
		return err
	}
	for _, row := range series.Rows {
		record := make([]string, len(row))
		for i, v := range row {
			record[i] = strconv.FormatFloat(v, 'g', -1, 64)
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// List returns every readable run, oldest first.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}

	slices.SortFunc(runs, func(a, b RunMetadata) int {
		return a.Timestamp.Compare(b.Timestamp)
	})
	return runs, nil
}

func (s *Store) runDir(runID string) (string, error) {
	if _, err := uuid.Parse(runID); err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidRunID, runID)
	}
	return filepath.Join(s.baseDir, runID), nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	dir, err := s.runDir(runID)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filepath.Join(dir, "metadata.json"))
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}

	return &meta, nil
}

func (s *Store) LoadSeries(runID string) (*Series, error) {
	dir, err := s.runDir(runID)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(filepath.Join(dir, "series.csv"))
	if err != nil {
		return nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = -1

	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return &Series{}, nil
	}

	series := &Series{
		Columns: records[0],
		Rows:    make([][]float64, 0, len(records)-1),
	}
	for line, record := range records[1:] {
		row := make([]float64, len(record))
		for j, field := range record {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("series.csv line %d: %w", line+2, err)
			}
			row[j] = v
		}
		series.Rows = append(series.Rows, row)
	}

	return series, nil
}
