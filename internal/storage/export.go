package storage

import (
	"encoding/json"
	"io"
	"os"

	"github.com/san-kum/flocksim/internal/sim"
)

// Snapshot is the JSON document written for external plotting.
type Snapshot struct {
	Time      float64      `json:"time"`
	Particles int          `json:"particles"`
	Order     float64      `json:"order"`
	Params    ParamsRecord `json:"params"`
	Data      sim.Data     `json:"data"`
}

func NewSnapshot(s sim.Simulation) Snapshot {
	return Snapshot{
		Time:      float64(s.Time()),
		Particles: s.Len(),
		Order:     s.Order(),
		Params:    RecordParams(s.Params()),
		Data:      s.Data(),
	}
}

func ExportSnapshot(path string, s sim.Simulation) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return ExportSnapshotTo(file, s)
}

func ExportSnapshotTo(w io.Writer, s sim.Simulation) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(NewSnapshot(s))
}
