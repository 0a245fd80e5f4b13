package circ

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// State is the vector of dynamic unknowns of a 0D model.
type State []float64

func (s State) Clone() State {
	c := make(State, len(s))
	copy(c, s)
	return c
}

func (s State) IsValid() bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func (s State) Norm() float64 {
	sum := 0.0
	for _, v := range s {
		sum += v * v
	}
	return math.Sqrt(sum)
}

// Aux holds derived quantities (chamber and compartment volumes,
// activation values) recomputed from the state each step for reporting.
// Aux values never feed back into the residual.
type Aux []float64

func (a Aux) Clone() Aux {
	c := make(Aux, len(a))
	copy(c, a)
	return c
}

// Model is the residual/Jacobian contract of a circulation topology.
// The continuous dynamics are d(df)/dt + f = 0, row-wise.
type Model interface {
	NumDof() int

	// Names returns the state entry names, in dof order.
	Names() []string

	AuxNames() []string

	// Init fills s from named initial conditions. A trailing "_0" on a
	// key is accepted as an alias for the bare name. Unknown names are
	// a configuration error.
	Init(s State, ic map[string]float64) error

	// Evaluate fills df and f at (t, s). aux may be nil when derived
	// quantities are not needed. Evaluate must not mutate parameters.
	Evaluate(t float64, s State, df, f State, aux Aux)

	// Jacobians fills kdf = ∂df/∂s and kf = ∂f/∂s at (t, s). Both
	// matrices are dense NumDof×NumDof and are overwritten entirely.
	Jacobians(t float64, s State, kdf, kf *mat.Dense)

	// HasDt reports, per row, whether a time-derivative term is
	// present. Rows without one are treated as algebraic constraints
	// by the time integrator.
	HasDt() []bool

	// CycleLength returns the cardiac cycle period, or 0 for acyclic
	// topologies (periodicity checking is then disabled).
	CycleLength() float64

	// PressureDofs lists the indices of pressure unknowns, used by the
	// subset periodicity check.
	PressureDofs() []int
}
