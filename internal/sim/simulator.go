// Package sim orchestrates a 0D circulation run: the per-step Newton
// solve of the theta-discretized model, cycle bookkeeping, and the
// recorded trajectory.
package sim

import (
	"context"

	"github.com/hemolab/pulsim/internal/circ"
	"github.com/hemolab/pulsim/internal/cycle"
	"github.com/hemolab/pulsim/internal/solver"
	"github.com/hemolab/pulsim/internal/timeint"
)

type Simulator struct {
	model     circ.Model
	cfg       Config
	metrics   []Metric
	observers []Observer
}

func New(model circ.Model, cfg Config) (*Simulator, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Simulator{model: model, cfg: cfg}, nil
}

func (sm *Simulator) AddMetric(m Metric)     { sm.metrics = append(sm.metrics, m) }
func (sm *Simulator) AddObserver(o Observer) { sm.observers = append(sm.observers, o) }

// Run steps the model from the named initial conditions until the
// configured step count, periodicity, or a fatal Newton failure. Each
// call builds fresh integrator, solver, and detector state, so Run is
// re-entrant. The context is checked only between steps; a step is
// never interrupted mid-iteration.
func (sm *Simulator) Run(ctx context.Context, ic map[string]float64) (*Result, error) {
	cfg := sm.cfg
	n := sm.model.NumDof()

	s := make(circ.State, n)
	if err := sm.model.Init(s, ic); err != nil {
		return nil, err
	}

	ti, err := timeint.New(sm.model, cfg.Dt, cfg.Theta, cfg.InitialBE)
	if err != nil {
		return nil, err
	}
	nw, err := solver.New(n, cfg.Newton)
	if err != nil {
		return nil, err
	}
	pert, _ := sm.model.(cycle.Perturber)
	det, err := cycle.New(sm.model, cfg.Cycle, pert)
	if err != nil {
		return nil, err
	}

	na := len(sm.model.AuxNames())
	aux := make(circ.Aux, na)
	auxOld := make(circ.Aux, na)
	sOld := s.Clone()
	sMid := make(circ.State, n)
	auxMid := make(circ.Aux, na)

	for _, m := range sm.metrics {
		m.Reset()
	}

	// Prime the scheme: the split residual terms and aux of the initial
	// state become the "old" values of step 1.
	ti.Accept(0, s, auxOld)

	capHint := cfg.NumSteps/cfg.RecordEvery + 2
	result := &Result{
		Times:     make([]float64, 0, capHint),
		States:    make([]circ.State, 0, capHint),
		Aux:       make([]circ.Aux, 0, capHint),
		MidStates: make([]circ.State, 0, capHint),
		MidAux:    make([]circ.Aux, 0, capHint),
		Metrics:   make(map[string]float64),
		Cycles:    1,
	}
	result.record(0, s, auxOld, s, auxOld)

	for step := 1; step <= cfg.NumSteps; step++ {
		select {
		case <-ctx.Done():
			sm.finish(result, det)
			return result, ctx.Err()
		default:
		}

		t := float64(step) * cfg.Dt

		// The previous converged state is the predictor.
		if err := nw.Solve(ti, step, t, s); err != nil {
			sm.finish(result, det)
			return result, &StepError{Step: step, Time: t, Err: err}
		}

		// Accept before the cycle check: the perturbation may swap the
		// parameter set, and the next step's "old" terms belong to the
		// pre-perturbation physics.
		ti.Accept(t, s, aux)

		th := ti.EffectiveTheta(step)
		timeint.Midpoint(th, s, sOld, sMid)
		timeint.Midpoint(th, aux, auxOld, auxMid)

		periodic, err := det.OnStep(t, s)
		if err != nil {
			sm.finish(result, det)
			return result, &StepError{Step: step, Time: t, Err: err}
		}

		for _, m := range sm.metrics {
			m.Observe(t, s, aux)
		}
		for _, o := range sm.observers {
			o.OnStep(t, s, aux, det.Cycle(), det.CycleError())
		}

		if step%cfg.RecordEvery == 0 {
			result.record(t, s, aux, sMid, auxMid)
		}

		copy(sOld, s)
		copy(auxOld, aux)
		result.StepsTaken = step

		if periodic {
			result.Periodic = true
			break
		}
	}

	sm.finish(result, det)
	return result, nil
}

func (sm *Simulator) finish(result *Result, det *cycle.Detector) {
	result.Cycles = det.Cycle()
	result.CycleError = det.CycleError()
	for _, m := range sm.metrics {
		result.Metrics[m.Name()] = m.Value()
	}
}

func (r *Result) record(t float64, s circ.State, aux circ.Aux, sMid circ.State, auxMid circ.Aux) {
	r.Times = append(r.Times, t)
	r.States = append(r.States, s.Clone())
	r.Aux = append(r.Aux, aux.Clone())
	r.MidStates = append(r.MidStates, sMid.Clone())
	r.MidAux = append(r.MidAux, auxMid.Clone())
}
