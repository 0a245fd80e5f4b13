package storage

import (
	"encoding/json"
	"io"
	"os"

	"github.com/hemolab/pulsim/internal/circ"
	"github.com/hemolab/pulsim/internal/sim"
)

type ExportData struct {
	Model      string             `json:"model"`
	Dt         float64            `json:"dt"`
	Theta      float64            `json:"theta_ost"`
	Steps      int                `json:"steps"`
	Cycles     int                `json:"cycles"`
	CycleError float64            `json:"cycle_error"`
	Periodic   bool               `json:"periodic"`
	Names      []string           `json:"names"`
	AuxNames   []string           `json:"aux_names"`
	Times      []float64          `json:"times"`
	States     []circ.State       `json:"states"`
	Aux        []circ.Aux         `json:"aux"`
	Metrics    map[string]float64 `json:"metrics"`
}

func exportData(model string, dt, theta float64, names, auxNames []string, result *sim.Result) ExportData {
	return ExportData{
		Model:      model,
		Dt:         dt,
		Theta:      theta,
		Steps:      result.StepsTaken,
		Cycles:     result.Cycles,
		CycleError: result.CycleError,
		Periodic:   result.Periodic,
		Names:      names,
		AuxNames:   auxNames,
		Times:      result.Times,
		States:     result.States,
		Aux:        result.Aux,
		Metrics:    result.Metrics,
	}
}

func WriteJSON(w io.Writer, model string, dt, theta float64, names, auxNames []string, result *sim.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(exportData(model, dt, theta, names, auxNames, result))
}

func ExportJSON(path string, model string, dt, theta float64, names, auxNames []string, result *sim.Result) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	return WriteJSON(file, model, dt, theta, names, auxNames, result)
}
