package models

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/hemolab/pulsim/internal/circ"
)

// CouplingKind selects the scalar quantity an external collaborator
// supplies at a Windkessel inlet: a flux q(t) or a volume V(t) whose
// rate of change drives the model.
type CouplingKind string

const (
	CouplingFlux   CouplingKind = "flux"
	CouplingVolume CouplingKind = "volume"
)

// Drive is the externally supplied coupling quantity of an open
// topology. In standalone runs the curve is a plain time function.
type Drive struct {
	Kind  CouplingKind
	Curve func(t float64) float64
}

func (d Drive) validate() error {
	if d.Curve == nil {
		return fmt.Errorf("models: windkessel drive curve is nil")
	}
	if d.Kind != CouplingFlux && d.Kind != CouplingVolume {
		return fmt.Errorf("models: unknown coupling quantity %q", d.Kind)
	}
	return nil
}

// WindkesselParams are the constants of the reduced open topologies.
type WindkesselParams struct {
	R    float64 // peripheral resistance
	C    float64 // compliance
	Z    float64 // characteristic impedance (4-element only)
	L    float64 // inertance (4-element only)
	PRef float64 // distal reference pressure
}

func (p WindkesselParams) validate(fourElement bool) error {
	if p.R <= 0 {
		return &circ.ParamError{Name: "R", Value: p.R, Reason: "must be positive"}
	}
	if p.C <= 0 {
		return &circ.ParamError{Name: "C", Value: p.C, Reason: "must be positive"}
	}
	if fourElement {
		if p.Z <= 0 {
			return &circ.ParamError{Name: "Z", Value: p.Z, Reason: "must be positive"}
		}
		if p.L < 0 {
			return &circ.ParamError{Name: "L", Value: p.L, Reason: "must be non-negative"}
		}
	}
	return nil
}

// WindkesselParamsFromMap reads R, C, Z, L and p_ref from a plain
// key-value record, rejecting unknown keys.
func WindkesselParamsFromMap(overrides map[string]float64) (WindkesselParams, error) {
	p := WindkesselParams{}
	fields := map[string]*float64{
		"R": &p.R, "C": &p.C, "Z": &p.Z, "L": &p.L, "p_ref": &p.PRef,
	}
	for name, val := range overrides {
		dst, ok := fields[name]
		if !ok {
			return p, fmt.Errorf("%w: %q", circ.ErrUnknownParameter, name)
		}
		*dst = val
	}
	return p, nil
}

// Windkessel2 is the two-element RC compartment: C dp/dt +
// (p - p_ref)/R balances the driven in-flow.
type Windkessel2 struct {
	p     WindkesselParams
	drive Drive
}

func NewWindkessel2(p WindkesselParams, drive Drive) (*Windkessel2, error) {
	if err := p.validate(false); err != nil {
		return nil, err
	}
	if err := drive.validate(); err != nil {
		return nil, err
	}
	return &Windkessel2{p: p, drive: drive}, nil
}

func (m *Windkessel2) NumDof() int          { return 1 }
func (m *Windkessel2) Names() []string      { return []string{"p"} }
func (m *Windkessel2) AuxNames() []string   { return []string{"V"} }
func (m *Windkessel2) HasDt() []bool        { return []bool{true} }
func (m *Windkessel2) CycleLength() float64 { return 0 }
func (m *Windkessel2) PressureDofs() []int  { return []int{0} }

func (m *Windkessel2) Init(s circ.State, ic map[string]float64) error {
	return initByName(s, ic, m.Names())
}

func (m *Windkessel2) Evaluate(t float64, s circ.State, df, f circ.State, aux circ.Aux) {
	p := s[0]
	switch m.drive.Kind {
	case CouplingVolume:
		// d/dt(Cp + V) + (p - p_ref)/R = 0: an ejecting chamber
		// (shrinking V) raises the compartment pressure.
		df[0] = m.p.C*p + m.drive.Curve(t)
		f[0] = (p - m.p.PRef) / m.p.R
	default:
		df[0] = m.p.C * p
		f[0] = (p-m.p.PRef)/m.p.R - m.drive.Curve(t)
	}
	if aux != nil {
		aux[0] = m.p.C * p
	}
}

func (m *Windkessel2) Jacobians(t float64, s circ.State, kdf, kf *mat.Dense) {
	kdf.Zero()
	kf.Zero()
	kdf.Set(0, 0, m.p.C)
	kf.Set(0, 0, 1/m.p.R)
}

// Windkessel4LsZ is the four-element Windkessel with the inertance in
// series with the characteristic impedance. Dofs: interface pressure
// p, inlet flux q, capacitor pressure p_c.
type Windkessel4LsZ struct {
	p     WindkesselParams
	drive Drive
	hasDt []bool
}

func NewWindkessel4LsZ(p WindkesselParams, drive Drive) (*Windkessel4LsZ, error) {
	if err := p.validate(true); err != nil {
		return nil, err
	}
	if err := drive.validate(); err != nil {
		return nil, err
	}
	m := &Windkessel4LsZ{p: p, drive: drive}
	m.hasDt = []bool{p.L > 0, drive.Kind == CouplingVolume, true}
	return m, nil
}

func (m *Windkessel4LsZ) NumDof() int          { return 3 }
func (m *Windkessel4LsZ) Names() []string      { return []string{"p", "q", "p_c"} }
func (m *Windkessel4LsZ) AuxNames() []string   { return []string{"V"} }
func (m *Windkessel4LsZ) HasDt() []bool        { return m.hasDt }
func (m *Windkessel4LsZ) CycleLength() float64 { return 0 }
func (m *Windkessel4LsZ) PressureDofs() []int  { return []int{0, 2} }

func (m *Windkessel4LsZ) Init(s circ.State, ic map[string]float64) error {
	return initByName(s, ic, m.Names())
}

func (m *Windkessel4LsZ) Evaluate(t float64, s circ.State, df, f circ.State, aux circ.Aux) {
	p, q, pc := s[0], s[1], s[2]

	// p = p_c + Z q + L dq/dt
	df[0] = m.p.L * q
	f[0] = pc + m.p.Z*q - p

	switch m.drive.Kind {
	case CouplingVolume:
		// dV/dt + q = 0: the inlet flux is the negative volume rate.
		df[1] = m.drive.Curve(t)
		f[1] = q
	default:
		df[1] = 0
		f[1] = q - m.drive.Curve(t)
	}

	df[2] = m.p.C * pc
	f[2] = (pc-m.p.PRef)/m.p.R - q

	if aux != nil {
		aux[0] = m.p.C * pc
	}
}

func (m *Windkessel4LsZ) Jacobians(t float64, s circ.State, kdf, kf *mat.Dense) {
	kdf.Zero()
	kf.Zero()

	kdf.Set(0, 1, m.p.L)
	kf.Set(0, 2, 1)
	kf.Set(0, 1, m.p.Z)
	kf.Set(0, 0, -1)

	kf.Set(1, 1, 1)

	kdf.Set(2, 2, m.p.C)
	kf.Set(2, 2, 1/m.p.R)
	kf.Set(2, 1, -1)
}

// Windkessel4LpZ is the four-element Windkessel with the inertance in
// parallel to the characteristic impedance. Dofs: interface pressure
// p, inlet flux q, inductor branch flux q_l, capacitor pressure p_c.
type Windkessel4LpZ struct {
	p     WindkesselParams
	drive Drive
	hasDt []bool
}

func NewWindkessel4LpZ(p WindkesselParams, drive Drive) (*Windkessel4LpZ, error) {
	if err := p.validate(true); err != nil {
		return nil, err
	}
	if p.L <= 0 {
		return nil, &circ.ParamError{Name: "L", Value: p.L, Reason: "must be positive for the parallel-inertance variant"}
	}
	if err := drive.validate(); err != nil {
		return nil, err
	}
	m := &Windkessel4LpZ{p: p, drive: drive}
	m.hasDt = []bool{false, drive.Kind == CouplingVolume, true, true}
	return m, nil
}

func (m *Windkessel4LpZ) NumDof() int          { return 4 }
func (m *Windkessel4LpZ) Names() []string      { return []string{"p", "q", "q_l", "p_c"} }
func (m *Windkessel4LpZ) AuxNames() []string   { return []string{"V"} }
func (m *Windkessel4LpZ) HasDt() []bool        { return m.hasDt }
func (m *Windkessel4LpZ) CycleLength() float64 { return 0 }
func (m *Windkessel4LpZ) PressureDofs() []int  { return []int{0, 3} }

func (m *Windkessel4LpZ) Init(s circ.State, ic map[string]float64) error {
	return initByName(s, ic, m.Names())
}

func (m *Windkessel4LpZ) Evaluate(t float64, s circ.State, df, f circ.State, aux circ.Aux) {
	p, q, ql, pc := s[0], s[1], s[2], s[3]

	// Flux balance at the inlet node
	df[0] = 0
	f[0] = (p-pc)/m.p.Z + ql - q

	switch m.drive.Kind {
	case CouplingVolume:
		df[1] = m.drive.Curve(t)
		f[1] = q
	default:
		df[1] = 0
		f[1] = q - m.drive.Curve(t)
	}

	// Inductor branch: L dq_l/dt = p - p_c
	df[2] = m.p.L * ql
	f[2] = pc - p

	df[3] = m.p.C * pc
	f[3] = (pc-m.p.PRef)/m.p.R - (p-pc)/m.p.Z - ql

	if aux != nil {
		aux[0] = m.p.C * pc
	}
}

func (m *Windkessel4LpZ) Jacobians(t float64, s circ.State, kdf, kf *mat.Dense) {
	kdf.Zero()
	kf.Zero()

	kf.Set(0, 0, 1/m.p.Z)
	kf.Set(0, 3, -1/m.p.Z)
	kf.Set(0, 2, 1)
	kf.Set(0, 1, -1)

	kf.Set(1, 1, 1)

	kdf.Set(2, 2, m.p.L)
	kf.Set(2, 3, 1)
	kf.Set(2, 0, -1)

	kdf.Set(3, 3, m.p.C)
	kf.Set(3, 3, 1/m.p.R+1/m.p.Z)
	kf.Set(3, 0, -1/m.p.Z)
	kf.Set(3, 2, -1)
}

func initByName(s circ.State, ic map[string]float64, names []string) error {
	idx := make(map[string]int, len(names))
	for i, name := range names {
		idx[name] = i
	}
	for i := range s {
		s[i] = 0
	}
	for name, val := range ic {
		key := name
		if n := len(key); n > 2 && key[n-2:] == "_0" {
			key = key[:n-2]
		}
		i, ok := idx[key]
		if !ok {
			return fmt.Errorf("%w: %q", circ.ErrUnknownVariable, name)
		}
		s[i] = val
	}
	return nil
}
