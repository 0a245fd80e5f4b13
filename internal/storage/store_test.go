package storage

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/hemolab/pulsim/internal/circ"
	"github.com/hemolab/pulsim/internal/sim"
)

func sampleResult() *sim.Result {
	return &sim.Result{
		Times:  []float64{0.0, 0.01},
		States: []circ.State{{1.0, 0.5}, {0.9, 0.45}},
		Aux:    []circ.Aux{{60}, {59.5}},
		MidStates: []circ.State{
			{1.0, 0.5},
			{0.95, 0.475},
		},
		MidAux:     []circ.Aux{{60}, {59.75}},
		StepsTaken: 1,
		Cycles:     1,
		CycleError: 0.3,
		Metrics:    map[string]float64{"stroke_volume": 1.5},
	}
}

func TestStoreSaveLoad(t *testing.T) {
	st := New(t.TempDir())
	if err := st.Init(); err != nil {
		t.Fatalf("init failed: %v", err)
	}

	runID, err := st.Save("syspul", 0.01, 0.5, []string{"q", "p"}, []string{"V"}, sampleResult())
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if runID == "" {
		t.Error("expected non-empty run id")
	}

	meta, err := st.Load(runID)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if meta.Model != "syspul" {
		t.Errorf("expected model syspul, got %q", meta.Model)
	}
	if meta.Theta != 0.5 || meta.Dt != 0.01 {
		t.Errorf("scheme controls lost: %+v", meta)
	}
	if meta.Metrics["stroke_volume"] != 1.5 {
		t.Errorf("expected stroke_volume 1.5, got %f", meta.Metrics["stroke_volume"])
	}

	header, times, rows, err := st.LoadTrace(runID)
	if err != nil {
		t.Fatalf("load trace failed: %v", err)
	}
	want := []string{"q", "p", "V"}
	if len(header) != len(want) {
		t.Fatalf("header %v, expected %v", header, want)
	}
	for i := range want {
		if header[i] != want[i] {
			t.Errorf("header[%d] = %q, expected %q", i, header[i], want[i])
		}
	}
	if len(times) != 2 || len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d times and %d rows", len(times), len(rows))
	}
	if rows[1][0] != 0.9 || rows[1][2] != 59.5 {
		t.Errorf("row values lost: %v", rows[1])
	}
}

func TestStoreList(t *testing.T) {
	st := New(t.TempDir())
	if err := st.Init(); err != nil {
		t.Fatalf("init failed: %v", err)
	}

	runs, err := st.List()
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(runs) != 0 {
		t.Errorf("expected 0 runs, got %d", len(runs))
	}

	if _, err := st.Save("syspul", 0.01, 0.5, []string{"q"}, nil, sampleResult()); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	runs, err = st.List()
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(runs) != 1 {
		t.Errorf("expected 1 run, got %d", len(runs))
	}
}

func TestStoreFileStructure(t *testing.T) {
	dir := t.TempDir()
	st := New(dir)
	if err := st.Init(); err != nil {
		t.Fatalf("init failed: %v", err)
	}

	runID, err := st.Save("syspul", 0.01, 0.5, []string{"q", "p"}, []string{"V"}, sampleResult())
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}

	for _, name := range []string{"metadata.json", "states.csv", "midpoints.csv"} {
		path := filepath.Join(dir, runID, name)
		if _, err := os.Stat(path); os.IsNotExist(err) {
			t.Errorf("%s not created", name)
		}
	}
}

func TestColumn(t *testing.T) {
	header := []string{"q", "p", "V"}
	rows := [][]float64{{1, 10, 60}, {2, 11, 59}}

	col, err := Column(header, rows, "p")
	if err != nil {
		t.Fatalf("Column: %v", err)
	}
	if col[0] != 10 || col[1] != 11 {
		t.Errorf("column values %v", col)
	}

	if _, err := Column(header, rows, "missing"); err == nil {
		t.Error("expected an error for an unknown column")
	}
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteJSON(&buf, "syspul", 0.01, 0.5, []string{"q", "p"}, []string{"V"}, sampleResult()); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}

	var data ExportData
	if err := json.Unmarshal(buf.Bytes(), &data); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if data.Model != "syspul" || data.Steps != 1 {
		t.Errorf("round-trip lost fields: %+v", data)
	}
	if len(data.States) != 2 || data.States[1][0] != 0.9 {
		t.Errorf("states lost: %v", data.States)
	}
}
