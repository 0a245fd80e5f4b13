package sim

import (
	"fmt"

	"github.com/hemolab/pulsim/internal/circ"
	"github.com/hemolab/pulsim/internal/cycle"
	"github.com/hemolab/pulsim/internal/solver"
)

// Config collects every control of a run: time stepping, Newton
// tolerances, and the periodicity/perturbation schedule.
type Config struct {
	Dt       float64
	NumSteps int
	// Theta is the one-step-theta weighting (0.5 trapezoidal, 1
	// backward Euler).
	Theta float64
	// InitialBE takes the first step with theta=1 regardless of Theta,
	// damping the startup transient of quantities whose initial time
	// derivative is zero.
	InitialBE bool
	// RecordEvery thins the recorded trajectory; 1 keeps every step.
	RecordEvery int

	Newton solver.Config
	Cycle  cycle.Config
}

func DefaultConfig() Config {
	return Config{
		Dt:          0.01,
		NumSteps:    1000,
		Theta:       0.5,
		InitialBE:   true,
		RecordEvery: 1,
		Newton:      solver.DefaultConfig(),
		Cycle:       cycle.DefaultConfig(),
	}
}

func (c Config) validate() error {
	if c.Dt <= 0 {
		return &circ.ParamError{Name: "dt", Value: c.Dt, Reason: "must be positive"}
	}
	if c.NumSteps < 1 {
		return &circ.ParamError{Name: "numstep", Value: float64(c.NumSteps), Reason: "must be at least 1"}
	}
	if c.RecordEvery < 1 {
		return &circ.ParamError{Name: "record_every", Value: float64(c.RecordEvery), Reason: "must be at least 1"}
	}
	return nil
}

// Observer is called after every completed (converged) time step.
type Observer interface {
	OnStep(t float64, s circ.State, aux circ.Aux, cyc int, cycleErr float64)
}

// Metric accumulates a scalar over the run.
type Metric interface {
	Name() string
	Observe(t float64, s circ.State, aux circ.Aux)
	Value() float64
	Reset()
}

// Result holds the recorded trajectory and the run outcome. States and
// Aux are the converged per-step values; MidStates and MidAux are the
// theta-weighted reporting values.
type Result struct {
	Times     []float64
	States    []circ.State
	Aux       []circ.Aux
	MidStates []circ.State
	MidAux    []circ.Aux

	Metrics    map[string]float64
	StepsTaken int
	Cycles     int
	CycleError float64
	Periodic   bool
}

// StepError wraps a fatal per-step failure with its position in the
// run.
type StepError struct {
	Step int
	Time float64
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("sim: step %d (t=%.6f) failed: %v", e.Step, e.Time, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }
