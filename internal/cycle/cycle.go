// Package cycle tracks cardiac-cycle boundaries, decides when the
// trajectory has become periodic, and injects a one-time parameter
// perturbation at a scheduled cycle.
package cycle

import (
	"fmt"
	"math"

	"github.com/hemolab/pulsim/internal/circ"
)

// CheckType selects which state entries participate in the
// periodicity check.
type CheckType string

const (
	// CheckAllVar requires every state entry to satisfy the tolerance
	// individually (the default).
	CheckAllVar CheckType = "allvar"

	// CheckPressure restricts the check to the pressure dofs.
	CheckPressure CheckType = "pressure"
)

// Perturber applies a named one-time parameter-set change at time t.
// The closed-loop model implements this.
type Perturber interface {
	Perturb(kind string, factor, t float64) error
}

// Config holds the periodicity tolerance and the perturbation
// schedule. An empty PerturbType disables perturbation.
type Config struct {
	Eps           float64
	Check         CheckType
	PerturbType   string
	PerturbFactor float64
	// PerturbAfterCycle is the trigger: the perturbation fires at the
	// first cycle boundary taking the counter past this cycle.
	PerturbAfterCycle int
}

func DefaultConfig() Config {
	return Config{Eps: 1e-8, Check: CheckAllVar}
}

func (c Config) validate() error {
	if c.Eps <= 0 {
		return &circ.ParamError{Name: "eps_periodic", Value: c.Eps, Reason: "must be positive"}
	}
	switch c.Check {
	case CheckAllVar, CheckPressure:
	default:
		return fmt.Errorf("cycle: unknown periodicity check type %q", c.Check)
	}
	if c.PerturbType != "" && c.PerturbAfterCycle < 1 {
		return &circ.ParamError{Name: "perturb_after_cycle", Value: float64(c.PerturbAfterCycle), Reason: "must be at least 1"}
	}
	return nil
}

// Detector owns the cycle counter, the boundary snapshots of the last
// two completed cycles, and the "already perturbed" latch. It runs
// strictly between completed time steps and never mutates the state
// vector.
type Detector struct {
	cfg      Config
	cycleLen float64
	dofs     []int

	cycle     int
	cycleErr  float64
	sTc       circ.State
	sTcOld    circ.State
	snapshots int

	pert        Perturber
	perturbed   bool
	perturbedAt int
}

// New builds a detector for the given model. Acyclic topologies
// (CycleLength 0) yield a detector that never advances or fires.
func New(m circ.Model, cfg Config, pert Perturber) (*Detector, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if cfg.PerturbType != "" && pert == nil {
		return nil, fmt.Errorf("cycle: perturbation %q configured but model is not perturbable", cfg.PerturbType)
	}

	dofs := make([]int, m.NumDof())
	for i := range dofs {
		dofs[i] = i
	}
	if cfg.Check == CheckPressure {
		dofs = m.PressureDofs()
		if len(dofs) == 0 {
			return nil, fmt.Errorf("cycle: model has no pressure dofs for check type %q", cfg.Check)
		}
	}

	n := m.NumDof()
	return &Detector{
		cfg:      cfg,
		cycleLen: m.CycleLength(),
		dofs:     dofs,
		cycle:    1,
		sTc:      make(circ.State, n),
		sTcOld:   make(circ.State, n),
		pert:     pert,
	}, nil
}

// Cycle returns the current cycle index (1-based).
func (d *Detector) Cycle() int { return d.cycle }

// CycleError returns the latest relative cycle-to-cycle error, or 0
// before two boundaries have been seen.
func (d *Detector) CycleError() float64 { return d.cycleErr }

// Perturbed reports whether the scheduled perturbation has fired.
func (d *Detector) Perturbed() bool { return d.perturbed }

// OnStep inspects the converged state after a completed time step. It
// advances the cycle counter at each crossed multiple of the cycle
// length, updates the boundary snapshots and the cycle error, applies
// the scheduled perturbation once, and reports whether the run is
// periodic. OnStep never mutates s.
func (d *Detector) OnStep(t float64, s circ.State) (bool, error) {
	if d.cycleLen <= 0 {
		return false, nil
	}
	// Boundary: simulated time reached the end of the current cycle.
	// The tolerance absorbs roundoff in t = N*dt.
	if t < float64(d.cycle)*d.cycleLen-1e-9*d.cycleLen {
		return false, nil
	}

	copy(d.sTcOld, d.sTc)
	copy(d.sTc, s)
	d.snapshots++
	d.cycle++

	periodic := false
	if d.snapshots >= 2 {
		d.cycleErr = d.relativeError()
		periodic = d.cycleErr <= d.cfg.Eps
	}

	if d.cfg.PerturbType != "" {
		if !d.perturbed && d.cycle > d.cfg.PerturbAfterCycle {
			if err := d.pert.Perturb(d.cfg.PerturbType, d.cfg.PerturbFactor, t); err != nil {
				return false, err
			}
			d.perturbed = true
			d.perturbedAt = d.cycle
		}
		// A pending or freshly applied perturbation suppresses the
		// periodic flag until a full post-perturbation cycle has been
		// compared against its predecessor.
		if !d.perturbed || d.cycle <= d.perturbedAt+1 {
			periodic = false
		}
	}

	return periodic, nil
}

// relativeError is the max-norm over the checked entries of the
// per-entry relative difference between the last two boundary
// snapshots.
func (d *Detector) relativeError() float64 {
	maxErr := 0.0
	for _, i := range d.dofs {
		den := math.Abs(d.sTc[i])
		if den < 1e-16 {
			den = 1
		}
		if e := math.Abs(d.sTc[i]-d.sTcOld[i]) / den; e > maxErr {
			maxErr = e
		}
	}
	return maxErr
}
