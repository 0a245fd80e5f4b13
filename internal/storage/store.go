// Package storage persists simulation runs to disk: one directory per
// run holding metadata.json and a states.csv trace with named columns.
package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/hemolab/pulsim/internal/circ"
	"github.com/hemolab/pulsim/internal/sim"
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

type RunMetadata struct {
	ID         string             `json:"id"`
	Model      string             `json:"model"`
	Timestamp  time.Time          `json:"timestamp"`
	Dt         float64            `json:"dt"`
	Theta      float64            `json:"theta_ost"`
	Steps      int                `json:"steps"`
	Cycles     int                `json:"cycles"`
	CycleError float64            `json:"cycle_error"`
	Periodic   bool               `json:"periodic"`
	Metrics    map[string]float64 `json:"metrics"`
}

// Save writes a run directory. names and auxNames label the trace
// columns; the converged per-step values go to states.csv and, when the
// run recorded them, the theta-weighted reporting values go to
// midpoints.csv.
func (s *Store) Save(model string, dt, theta float64, names, auxNames []string, result *sim.Result) (string, error) {
	runID := fmt.Sprintf("%s_%d", model, time.Now().Unix())
	runDir := filepath.Join(s.baseDir, runID)

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	meta := RunMetadata{
		ID:         runID,
		Model:      model,
		Timestamp:  time.Now(),
		Dt:         dt,
		Theta:      theta,
		Steps:      result.StepsTaken,
		Cycles:     result.Cycles,
		CycleError: result.CycleError,
		Periodic:   result.Periodic,
		Metrics:    result.Metrics,
	}

	metaPath := filepath.Join(runDir, "metadata.json")
	metaFile, err := os.Create(metaPath)
	if err != nil {
		return "", err
	}
	defer metaFile.Close()

	enc := json.NewEncoder(metaFile)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		return "", err
	}

	header := append([]string{"time"}, names...)
	header = append(header, auxNames...)

	if err := writeTrace(filepath.Join(runDir, "states.csv"), header, result.Times, result.States, result.Aux); err != nil {
		return "", err
	}
	if len(result.MidStates) > 0 {
		if err := writeTrace(filepath.Join(runDir, "midpoints.csv"), header, result.Times, result.MidStates, result.MidAux); err != nil {
			return "", err
		}
	}

	return runID, nil
}

func writeTrace(path string, header []string, times []float64, states []circ.State, aux []circ.Aux) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	w := csv.NewWriter(file)
	defer w.Flush()

	if err := w.Write(header); err != nil {
		return err
	}

	for i := range states {
		row := make([]string, 0, len(header))
		row = append(row, strconv.FormatFloat(times[i], 'g', 12, 64))
		for _, val := range states[i] {
			row = append(row, strconv.FormatFloat(val, 'g', 12, 64))
		}
		if i < len(aux) {
			for _, val := range aux[i] {
				row = append(row, strconv.FormatFloat(val, 'g', 12, 64))
			}
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	return w.Error()
}

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

		metaPath := filepath.Join(s.baseDir, entry.Name(), "metadata.json")
		data, err := os.ReadFile(metaPath)
		if err != nil {
			continue
		}

		var meta RunMetadata
		if err := json.Unmarshal(data, &meta); err != nil {
			continue
		}

		runs = append(runs, meta)
	}

	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	metaPath := filepath.Join(s.baseDir, runID, "metadata.json")
	data, err := os.ReadFile(metaPath)
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}

	return &meta, nil
}

// LoadTrace reads states.csv back: the column names (without the
// leading "time"), the time column, and one row of values per step.
func (s *Store) LoadTrace(runID string) ([]string, []float64, [][]float64, error) {
	csvPath := filepath.Join(s.baseDir, runID, "states.csv")
	file, err := os.Open(csvPath)
	if err != nil {
		return nil, nil, nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	records, err := r.ReadAll()
	if err != nil {
		return nil, nil, nil, err
	}

	if len(records) == 0 {
		return nil, nil, nil, fmt.Errorf("storage: %s: empty trace", runID)
	}

	header := records[0][1:]
	times := make([]float64, 0, len(records)-1)
	rows := make([][]float64, 0, len(records)-1)

	for i := 1; i < len(records); i++ {
		record := records[i]
		if len(record) != len(records[0]) {
			return nil, nil, nil, fmt.Errorf("storage: %s: ragged row %d", runID, i)
		}

		t, err := strconv.ParseFloat(record[0], 64)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("storage: %s: row %d: %w", runID, i, err)
		}
		times = append(times, t)

		row := make([]float64, len(record)-1)
		for j := 1; j < len(record); j++ {
			val, err := strconv.ParseFloat(record[j], 64)
			if err != nil {
				return nil, nil, nil, fmt.Errorf("storage: %s: row %d: %w", runID, i, err)
			}
			row[j-1] = val
		}
		rows = append(rows, row)
	}

	return header, times, rows, nil
}

// Column extracts one named column from a LoadTrace result.
func Column(header []string, rows [][]float64, name string) ([]float64, error) {
	idx := -1
	for i, h := range header {
		if h == name {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, fmt.Errorf("storage: no column named %q", name)
	}
	col := make([]float64, len(rows))
	for i, row := range rows {
		col[i] = row[idx]
	}
	return col, nil
}
