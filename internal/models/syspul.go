package models

import (
	"errors"
	"fmt"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/hemolab/pulsim/internal/circ"
)

// State vector ordering of the closed-loop systemic+pulmonary model.
// Row i carries the equation associated with dof i: mass balances sit
// on the pressure dofs, valve and momentum balances on the flux dofs.
const (
	iQVinL = iota // mitral valve flow
	iPAtL         // left atrial pressure
	iQVoutL       // aortic valve flow
	iPVL          // left ventricular pressure
	iPArSys       // systemic arterial pressure
	iQArSys       // systemic arterial flux
	iPVenSys      // systemic venous pressure
	iQVenSys      // systemic venous flux
	iQVinR        // tricuspid valve flow
	iPAtR         // right atrial pressure
	iQVoutR       // pulmonary valve flow
	iPVR          // right ventricular pressure
	iPArPul       // pulmonary arterial pressure
	iQArPul       // pulmonary arterial flux
	iPVenPul      // pulmonary venous pressure
	iQVenPul      // pulmonary venous flux

	syspulDof
)

var syspulNames = []string{
	"q_vin_l", "p_at_l", "q_vout_l", "p_v_l",
	"p_ar_sys", "q_ar_sys", "p_ven_sys", "q_ven_sys",
	"q_vin_r", "p_at_r", "q_vout_r", "p_v_r",
	"p_ar_pul", "q_ar_pul", "p_ven_pul", "q_ven_pul",
}

var syspulAuxNames = []string{
	"V_at_l", "V_v_l", "V_at_r", "V_v_r",
	"V_ar_sys", "V_ven_sys", "V_ar_pul", "V_ven_pul",
	"act_at", "act_v",
}

// ErrUnknownPerturbation indicates a perturbation type the model does
// not implement.
var ErrUnknownPerturbation = errors.New("models: unknown perturbation type")

// ChamberKind selects how a heart chamber enters the network: as a 0D
// time-varying elastance, or with its volume prescribed externally
// (the single-scalar coupling interface of a 3D tissue model).
type ChamberKind int

const (
	ChamberElastance ChamberKind = iota
	ChamberPrescribed
)

type chamberModel struct {
	kind ChamberKind
	ch   circ.Chamber
	vol  func(t float64) float64 // ChamberPrescribed only
}

// df contribution of the chamber mass balance: the volume-like
// quantity whose time derivative balances the flows. The unstressed
// offset is omitted; constants cancel in the difference quotient.
func (c chamberModel) dfVolume(p, t float64) float64 {
	if c.kind == ChamberPrescribed {
		return c.vol(t)
	}
	return p / c.ch.Elastance(t)
}

func (c chamberModel) absVolume(p, t float64) float64 {
	if c.kind == ChamberPrescribed {
		return c.vol(t)
	}
	return c.ch.Volume(p, t)
}

// dVdp is the pressure sensitivity of the df term (the instantaneous
// compliance 1/E for an elastance chamber).
func (c chamberModel) dVdp(t float64) float64 {
	if c.kind == ChamberPrescribed {
		return 0
	}
	return 1 / c.ch.Elastance(t)
}

// Syspul is the closed-loop circulation: four chambers, four valves,
// systemic and pulmonary arterial/venous Windkessel compartments.
type Syspul struct {
	p SyspulParams

	atL, vL, atR, vR chamberModel
	mv, av, tv, pv   circ.Valve

	actAt, actV circ.ActivationCurve
	hasDt       []bool
}

// SyspulOption configures optional chamber couplings.
type SyspulOption func(*Syspul) error

// WithPrescribedChamber replaces the named chamber ("la", "lv", "ra",
// "rv") by an externally supplied volume curve.
func WithPrescribedChamber(name string, vol func(t float64) float64) SyspulOption {
	return func(m *Syspul) error {
		if vol == nil {
			return fmt.Errorf("models: nil volume curve for chamber %q", name)
		}
		cm := chamberModel{kind: ChamberPrescribed, vol: vol}
		switch strings.ToLower(name) {
		case "la":
			m.atL = cm
		case "lv":
			m.vL = cm
		case "ra":
			m.atR = cm
		case "rv":
			m.vR = cm
		default:
			return fmt.Errorf("models: unknown chamber %q", name)
		}
		return nil
	}
}

func NewSyspul(p SyspulParams, opts ...SyspulOption) (*Syspul, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	m := &Syspul{p: p}
	m.configure()
	for _, opt := range opts {
		if err := opt(m); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// configure rebuilds the derived pieces (activation curves, chambers,
// valves, dt-row mask) from the current parameter set. Prescribed
// chambers are preserved.
func (m *Syspul) configure() {
	tim := circ.Timings{CycleLength: m.p.TCycl, EndDiastole: m.p.TEd, EndSystole: m.p.TEs}
	m.actAt = circ.AtrialActivation(tim)
	m.actV = circ.VentricularActivation(tim)

	set := func(dst *chamberModel, emin, emax, vu float64, act circ.ActivationCurve) {
		if dst.kind == ChamberPrescribed {
			return
		}
		*dst = chamberModel{ch: circ.Chamber{EMin: emin, EMax: emax, VUnstressed: vu, Act: act}}
	}
	set(&m.atL, m.p.EAtMinL, m.p.EAtMaxL, m.p.VAtLu, m.actAt)
	set(&m.vL, m.p.EVMinL, m.p.EVMaxL, m.p.VVLu, m.actV)
	set(&m.atR, m.p.EAtMinR, m.p.EAtMaxR, m.p.VAtRu, m.actAt)
	set(&m.vR, m.p.EVMinR, m.p.EVMaxR, m.p.VVRu, m.actV)

	m.mv = circ.Valve{ROpen: m.p.RVinLMin, RClosed: m.p.RVinLMax}
	m.av = circ.Valve{ROpen: m.p.RVoutLMin, RClosed: m.p.RVoutLMax}
	m.tv = circ.Valve{ROpen: m.p.RVinRMin, RClosed: m.p.RVinRMax}
	m.pv = circ.Valve{ROpen: m.p.RVoutRMin, RClosed: m.p.RVoutRMax}

	hasDt := make([]bool, syspulDof)
	for _, i := range []int{iPAtL, iPVL, iPArSys, iPVenSys, iPAtR, iPVR, iPArPul, iPVenPul} {
		hasDt[i] = true
	}
	hasDt[iQArSys] = m.p.LArSys > 0
	hasDt[iQVenSys] = m.p.LVenSys > 0
	hasDt[iQArPul] = m.p.LArPul > 0
	hasDt[iQVenPul] = m.p.LVenPul > 0
	m.hasDt = hasDt
}

func (m *Syspul) NumDof() int          { return syspulDof }
func (m *Syspul) Names() []string      { return syspulNames }
func (m *Syspul) AuxNames() []string   { return syspulAuxNames }
func (m *Syspul) HasDt() []bool        { return m.hasDt }
func (m *Syspul) CycleLength() float64 { return m.p.TCycl }

func (m *Syspul) PressureDofs() []int {
	return []int{iPAtL, iPVL, iPArSys, iPVenSys, iPAtR, iPVR, iPArPul, iPVenPul}
}

// Params returns a copy of the current parameter set.
func (m *Syspul) Params() SyspulParams { return m.p }

func (m *Syspul) Init(s circ.State, ic map[string]float64) error {
	return initByName(s, ic, syspulNames)
}

// Perturb applies a one-time parameter-set change: "bleed" scales the
// systemic resistances and elastances and arms the volume-loss window
// at the current time; "as" (aortic stenosis) scales the open aortic
// resistance; "mr" (mitral regurgitation) divides the closed mitral
// resistance, making the valve leak.
func (m *Syspul) Perturb(kind string, factor, t float64) error {
	switch kind {
	case "bleed":
		m.p = m.p.Bleed(factor)
		m.p.BleedStart = t
	case "as":
		m.p.RVoutLMin *= factor
	case "mr":
		m.p.RVinLMax /= factor
	default:
		return fmt.Errorf("%w: %q", ErrUnknownPerturbation, kind)
	}
	m.configure()
	return nil
}

func (m *Syspul) Evaluate(t float64, s circ.State, df, f circ.State, aux circ.Aux) {
	qVinL, pAtL, qVoutL, pVL := s[iQVinL], s[iPAtL], s[iQVoutL], s[iPVL]
	pArSys, qArSys, pVenSys, qVenSys := s[iPArSys], s[iQArSys], s[iPVenSys], s[iQVenSys]
	qVinR, pAtR, qVoutR, pVR := s[iQVinR], s[iPAtR], s[iQVoutR], s[iPVR]
	pArPul, qArPul, pVenPul, qVenPul := s[iPArPul], s[iQArPul], s[iPVenPul], s[iQVenPul]

	p := m.p

	// Left heart: pulmonary veins -> LA -> mitral -> LV -> aortic valve
	df[iQVinL] = 0
	f[iQVinL] = qVinL - m.mv.Flow(pAtL, pVL)

	df[iPAtL] = m.atL.dfVolume(pAtL, t)
	f[iPAtL] = qVinL - qVenPul

	df[iQVoutL] = 0
	f[iQVoutL] = qVoutL - m.av.Flow(pVL, pArSys)

	df[iPVL] = m.vL.dfVolume(pVL, t)
	f[iPVL] = qVoutL - qVinL

	// Systemic arteries: proximal impedance Z in front of the
	// Windkessel capacitor, inertance on the distal resistance.
	df[iPArSys] = p.CArSys * (pArSys - p.ZArSys*qVoutL)
	f[iPArSys] = qArSys - qVoutL

	df[iQArSys] = p.LArSys / p.RArSys * qArSys
	f[iQArSys] = qArSys + (pVenSys-pArSys+p.ZArSys*qVoutL)/p.RArSys

	// Systemic veins, with the external volume sink
	df[iPVenSys] = p.CVenSys * pVenSys
	f[iPVenSys] = qVenSys - qArSys + p.bleedRate(t)

	df[iQVenSys] = p.LVenSys / p.RVenSys * qVenSys
	f[iQVenSys] = qVenSys + (pAtR-pVenSys)/p.RVenSys

	// Right heart: systemic veins -> RA -> tricuspid -> RV -> pulmonary valve
	df[iQVinR] = 0
	f[iQVinR] = qVinR - m.tv.Flow(pAtR, pVR)

	df[iPAtR] = m.atR.dfVolume(pAtR, t)
	f[iPAtR] = qVinR - qVenSys

	df[iQVoutR] = 0
	f[iQVoutR] = qVoutR - m.pv.Flow(pVR, pArPul)

	df[iPVR] = m.vR.dfVolume(pVR, t)
	f[iPVR] = qVoutR - qVinR

	// Pulmonary arteries and veins
	df[iPArPul] = p.CArPul * pArPul
	f[iPArPul] = qArPul - qVoutR

	df[iQArPul] = p.LArPul / p.RArPul * qArPul
	f[iQArPul] = qArPul + (pVenPul-pArPul)/p.RArPul

	df[iPVenPul] = p.CVenPul * pVenPul
	f[iPVenPul] = qVenPul - qArPul

	df[iQVenPul] = p.LVenPul / p.RVenPul * qVenPul
	f[iQVenPul] = qVenPul + (pAtL-pVenPul)/p.RVenPul

	if aux != nil {
		aux[0] = m.atL.absVolume(pAtL, t)
		aux[1] = m.vL.absVolume(pVL, t)
		aux[2] = m.atR.absVolume(pAtR, t)
		aux[3] = m.vR.absVolume(pVR, t)
		aux[4] = p.CArSys*(pArSys-p.ZArSys*qVoutL) + p.VArSysU
		aux[5] = p.CVenSys*pVenSys + p.VVenSysU
		aux[6] = p.CArPul*pArPul + p.VArPulU
		aux[7] = p.CVenPul*pVenPul + p.VVenPulU
		aux[8] = m.actAt(t)
		aux[9] = m.actV(t)
	}
}

func (m *Syspul) Jacobians(t float64, s circ.State, kdf, kf *mat.Dense) {
	kdf.Zero()
	kf.Zero()

	pAtL, pVL := s[iPAtL], s[iPVL]
	pArSys := s[iPArSys]
	pAtR, pVR := s[iPAtR], s[iPVR]
	pArPul := s[iPArPul]

	p := m.p

	// Valve rows: the resistance is piecewise constant in the
	// pressures, so it is held fixed in the linearization.
	rMv := m.mv.Resistance(pAtL, pVL)
	kf.Set(iQVinL, iQVinL, 1)
	kf.Set(iQVinL, iPAtL, -1/rMv)
	kf.Set(iQVinL, iPVL, 1/rMv)

	rAv := m.av.Resistance(pVL, pArSys)
	kf.Set(iQVoutL, iQVoutL, 1)
	kf.Set(iQVoutL, iPVL, -1/rAv)
	kf.Set(iQVoutL, iPArSys, 1/rAv)

	rTv := m.tv.Resistance(pAtR, pVR)
	kf.Set(iQVinR, iQVinR, 1)
	kf.Set(iQVinR, iPAtR, -1/rTv)
	kf.Set(iQVinR, iPVR, 1/rTv)

	rPv := m.pv.Resistance(pVR, pArPul)
	kf.Set(iQVoutR, iQVoutR, 1)
	kf.Set(iQVoutR, iPVR, -1/rPv)
	kf.Set(iQVoutR, iPArPul, 1/rPv)

	// Chamber mass balances
	kdf.Set(iPAtL, iPAtL, m.atL.dVdp(t))
	kf.Set(iPAtL, iQVinL, 1)
	kf.Set(iPAtL, iQVenPul, -1)

	kdf.Set(iPVL, iPVL, m.vL.dVdp(t))
	kf.Set(iPVL, iQVoutL, 1)
	kf.Set(iPVL, iQVinL, -1)

	kdf.Set(iPAtR, iPAtR, m.atR.dVdp(t))
	kf.Set(iPAtR, iQVinR, 1)
	kf.Set(iPAtR, iQVenSys, -1)

	kdf.Set(iPVR, iPVR, m.vR.dVdp(t))
	kf.Set(iPVR, iQVoutR, 1)
	kf.Set(iPVR, iQVinR, -1)

	// Systemic arteries
	kdf.Set(iPArSys, iPArSys, p.CArSys)
	kdf.Set(iPArSys, iQVoutL, -p.CArSys*p.ZArSys)
	kf.Set(iPArSys, iQArSys, 1)
	kf.Set(iPArSys, iQVoutL, -1)

	kdf.Set(iQArSys, iQArSys, p.LArSys/p.RArSys)
	kf.Set(iQArSys, iQArSys, 1)
	kf.Set(iQArSys, iPVenSys, 1/p.RArSys)
	kf.Set(iQArSys, iPArSys, -1/p.RArSys)
	kf.Set(iQArSys, iQVoutL, p.ZArSys/p.RArSys)

	// Systemic veins
	kdf.Set(iPVenSys, iPVenSys, p.CVenSys)
	kf.Set(iPVenSys, iQVenSys, 1)
	kf.Set(iPVenSys, iQArSys, -1)

	kdf.Set(iQVenSys, iQVenSys, p.LVenSys/p.RVenSys)
	kf.Set(iQVenSys, iQVenSys, 1)
	kf.Set(iQVenSys, iPAtR, 1/p.RVenSys)
	kf.Set(iQVenSys, iPVenSys, -1/p.RVenSys)

	// Pulmonary arteries
	kdf.Set(iPArPul, iPArPul, p.CArPul)
	kf.Set(iPArPul, iQArPul, 1)
	kf.Set(iPArPul, iQVoutR, -1)

	kdf.Set(iQArPul, iQArPul, p.LArPul/p.RArPul)
	kf.Set(iQArPul, iQArPul, 1)
	kf.Set(iQArPul, iPVenPul, 1/p.RArPul)
	kf.Set(iQArPul, iPArPul, -1/p.RArPul)

	// Pulmonary veins
	kdf.Set(iPVenPul, iPVenPul, p.CVenPul)
	kf.Set(iPVenPul, iQVenPul, 1)
	kf.Set(iPVenPul, iQArPul, -1)

	kdf.Set(iQVenPul, iQVenPul, p.LVenPul/p.RVenPul)
	kf.Set(iQVenPul, iQVenPul, 1)
	kf.Set(iQVenPul, iPAtL, 1/p.RVenPul)
	kf.Set(iQVenPul, iPVenPul, -1/p.RVenPul)
}

// DefaultSyspulInit returns the documented baseline initial
// conditions: both left-side pressures start at the same late-diastolic
// value, all fluxes at zero.
func DefaultSyspulInit() map[string]float64 {
	return map[string]float64{
		"q_vin_l":   0.0,
		"p_at_l":    0.599950804034,
		"q_vout_l":  0.0,
		"p_v_l":     0.599950804034,
		"p_ar_sys":  9.84,
		"q_ar_sys":  0.0,
		"p_ven_sys": 2.59,
		"q_ven_sys": 0.0,
		"q_vin_r":   0.0,
		"p_at_r":    0.0933256806275,
		"q_vout_r":  0.0,
		"p_v_r":     0.0933256806275,
		"p_ar_pul":  3.22792679389,
		"q_ar_pul":  0.0,
		"p_ven_pul": 1.59986881076,
		"q_ven_pul": 0.0,
	}
}
