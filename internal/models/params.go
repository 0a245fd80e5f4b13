package models

import (
	"fmt"
	"math"

	"github.com/hemolab/pulsim/internal/circ"
)

// SyspulParams holds every physical constant of the closed-loop
// systemic+pulmonary model, in the kg-mm-s unit system.
type SyspulParams struct {
	// Systemic circuit
	RArSys float64
	CArSys float64
	LArSys float64
	ZArSys float64 // aortic characteristic impedance

	RVenSys float64
	CVenSys float64
	LVenSys float64

	// Pulmonary circuit
	RArPul float64
	CArPul float64
	LArPul float64

	RVenPul float64
	CVenPul float64
	LVenPul float64

	// Atrial elastance bounds
	EAtMaxL float64
	EAtMinL float64
	EAtMaxR float64
	EAtMinR float64

	// Ventricular elastance bounds
	EVMaxL float64
	EVMinL float64
	EVMaxR float64
	EVMinR float64

	// Valve resistance bounds: mitral (vin_l), aortic (vout_l),
	// tricuspid (vin_r), pulmonary (vout_r)
	RVinLMin  float64
	RVinLMax  float64
	RVoutLMin float64
	RVoutLMax float64
	RVinRMin  float64
	RVinRMax  float64
	RVoutRMin float64
	RVoutRMax float64

	// Timings
	TEd   float64 // end-diastolic time
	TEs   float64 // end-systolic time
	TCycl float64 // cardiac cycle length

	// Unstressed volumes, reporting only
	VAtLu    float64
	VAtRu    float64
	VVLu     float64
	VVRu     float64
	VArSysU  float64
	VArPulU  float64
	VVenSysU float64
	VVenPulU float64

	// External volume-change schedule. The source is disarmed while
	// BleedStart is negative; a bleed perturbation arms it at the
	// trigger time.
	BleedStart    float64
	BleedDuration float64
	BleedPeriod   float64
	VolumeLoss    float64
}

// DefaultSyspulParams returns the documented baseline parameter set
// (Windkessel constants from tau_ar_sys = 1.0311433159 s and
// tau_ar_pul = 0.3 s at a 1 s cycle).
func DefaultSyspulParams() SyspulParams {
	const (
		tCycl    = 1.0
		rArSys   = 120.0e-6
		tauArSys = 1.0311433159
		tauArPul = 0.3
	)
	cArSys := tauArSys / rArSys
	rArPul := rArSys / 8.0
	cArPul := tauArPul / rArPul

	return SyspulParams{
		RArSys: rArSys,
		CArSys: cArSys,
		LArSys: 0.667e-6,
		ZArSys: rArSys / 20.0,

		RVenSys: rArSys / 5.0,
		CVenSys: 30.0 * cArSys,
		LVenSys: 0,

		RArPul: rArPul,
		CArPul: cArPul,
		LArPul: 0,

		RVenPul: rArPul,
		CVenPul: 2.5 * cArPul,
		LVenPul: 0,

		EAtMaxL: 2.9e-5,
		EAtMinL: 9.0e-6,
		EAtMaxR: 1.8e-5,
		EAtMinR: 8.0e-6,

		EVMaxL: 30.0e-5,
		EVMinL: 12.0e-6,
		EVMaxR: 20.0e-5,
		EVMinR: 10.0e-6,

		RVinLMin:  1.0e-6,
		RVinLMax:  1.0e1,
		RVoutLMin: 1.0e-6,
		RVoutLMax: 1.0e1,
		RVinRMin:  1.0e-6,
		RVinRMax:  1.0e1,
		RVoutRMin: 1.0e-6,
		RVoutRMax: 1.0e1,

		TEd:   0.2 * tCycl,
		TEs:   0.53 * tCycl,
		TCycl: tCycl,

		VAtLu:    5e3,
		VAtRu:    4e3,
		VVLu:     10e3,
		VVRu:     8e3,
		VArSysU:  611e3,
		VArPulU:  123e3,
		VVenSysU: 2596e3,
		VVenPulU: 120e3,

		BleedStart:    -1,
		BleedDuration: 2e3,
		BleedPeriod:   0,
		VolumeLoss:    0,
	}
}

// fields maps external parameter names to struct fields. The names
// follow the conventional 0D nomenclature used in result files.
func (p *SyspulParams) fields() map[string]*float64 {
	return map[string]*float64{
		"R_ar_sys": &p.RArSys, "C_ar_sys": &p.CArSys, "L_ar_sys": &p.LArSys, "Z_ar_sys": &p.ZArSys,
		"R_ven_sys": &p.RVenSys, "C_ven_sys": &p.CVenSys, "L_ven_sys": &p.LVenSys,
		"R_ar_pul": &p.RArPul, "C_ar_pul": &p.CArPul, "L_ar_pul": &p.LArPul,
		"R_ven_pul": &p.RVenPul, "C_ven_pul": &p.CVenPul, "L_ven_pul": &p.LVenPul,
		"E_at_max_l": &p.EAtMaxL, "E_at_min_l": &p.EAtMinL,
		"E_at_max_r": &p.EAtMaxR, "E_at_min_r": &p.EAtMinR,
		"E_v_max_l": &p.EVMaxL, "E_v_min_l": &p.EVMinL,
		"E_v_max_r": &p.EVMaxR, "E_v_min_r": &p.EVMinR,
		"R_vin_l_min": &p.RVinLMin, "R_vin_l_max": &p.RVinLMax,
		"R_vout_l_min": &p.RVoutLMin, "R_vout_l_max": &p.RVoutLMax,
		"R_vin_r_min": &p.RVinRMin, "R_vin_r_max": &p.RVinRMax,
		"R_vout_r_min": &p.RVoutRMin, "R_vout_r_max": &p.RVoutRMax,
		"t_ed": &p.TEd, "t_es": &p.TEs, "T_cycl": &p.TCycl,
		"V_at_l_u": &p.VAtLu, "V_at_r_u": &p.VAtRu,
		"V_v_l_u": &p.VVLu, "V_v_r_u": &p.VVRu,
		"V_ar_sys_u": &p.VArSysU, "V_ar_pul_u": &p.VArPulU,
		"V_ven_sys_u": &p.VVenSysU, "V_ven_pul_u": &p.VVenPulU,
		"bleed_start": &p.BleedStart, "bleed_duration": &p.BleedDuration,
		"bleed_period": &p.BleedPeriod, "volume_loss": &p.VolumeLoss,
	}
}

// Apply overrides named parameters from a plain key-value record.
// Unknown keys are rejected rather than silently ignored.
func (p *SyspulParams) Apply(overrides map[string]float64) error {
	f := p.fields()
	for name, val := range overrides {
		dst, ok := f[name]
		if !ok {
			return fmt.Errorf("%w: %q", circ.ErrUnknownParameter, name)
		}
		*dst = val
	}
	return nil
}

// SyspulParamsFromMap builds a parameter set from the baseline with
// named overrides applied and validated.
func SyspulParamsFromMap(overrides map[string]float64) (SyspulParams, error) {
	p := DefaultSyspulParams()
	if err := p.Apply(overrides); err != nil {
		return p, err
	}
	return p, p.Validate()
}

func (p SyspulParams) Validate() error {
	positive := map[string]float64{
		"R_ar_sys": p.RArSys, "C_ar_sys": p.CArSys,
		"R_ven_sys": p.RVenSys, "C_ven_sys": p.CVenSys,
		"R_ar_pul": p.RArPul, "C_ar_pul": p.CArPul,
		"R_ven_pul": p.RVenPul, "C_ven_pul": p.CVenPul,
		"E_at_max_l": p.EAtMaxL, "E_at_min_l": p.EAtMinL,
		"E_at_max_r": p.EAtMaxR, "E_at_min_r": p.EAtMinR,
		"E_v_max_l": p.EVMaxL, "E_v_min_l": p.EVMinL,
		"E_v_max_r": p.EVMaxR, "E_v_min_r": p.EVMinR,
		"T_cycl": p.TCycl,
	}
	for name, v := range positive {
		if v <= 0 || math.IsNaN(v) {
			return &circ.ParamError{Name: name, Value: v, Reason: "must be positive"}
		}
	}
	nonNegative := map[string]float64{
		"L_ar_sys": p.LArSys, "L_ven_sys": p.LVenSys,
		"L_ar_pul": p.LArPul, "L_ven_pul": p.LVenPul,
		"Z_ar_sys": p.ZArSys, "volume_loss": p.VolumeLoss,
	}
	for name, v := range nonNegative {
		if v < 0 || math.IsNaN(v) {
			return &circ.ParamError{Name: name, Value: v, Reason: "must be non-negative"}
		}
	}
	valves := []struct {
		name     string
		min, max float64
	}{
		{"R_vin_l", p.RVinLMin, p.RVinLMax},
		{"R_vout_l", p.RVoutLMin, p.RVoutLMax},
		{"R_vin_r", p.RVinRMin, p.RVinRMax},
		{"R_vout_r", p.RVoutRMin, p.RVoutRMax},
	}
	for _, v := range valves {
		if v.min <= 0 {
			return &circ.ParamError{Name: v.name + "_min", Value: v.min, Reason: "must be positive"}
		}
		if v.max < v.min {
			return &circ.ParamError{Name: v.name + "_max", Value: v.max, Reason: "must be >= the open resistance"}
		}
	}
	if p.TEd <= 0 || p.TEd >= p.TCycl {
		return &circ.ParamError{Name: "t_ed", Value: p.TEd, Reason: "must lie inside the cycle"}
	}
	if p.TEs <= p.TEd || p.TEs >= p.TCycl {
		return &circ.ParamError{Name: "t_es", Value: p.TEs, Reason: "must lie between t_ed and T_cycl"}
	}
	if p.VolumeLoss > 0 && p.BleedDuration <= 0 {
		return &circ.ParamError{Name: "bleed_duration", Value: p.BleedDuration, Reason: "must be positive when volume_loss is set"}
	}
	return nil
}

// Bleed returns a copy with the systemic resistances and all elastance
// bounds scaled by factor, modelling the sympathetic response to a
// hemorrhage. The volume-loss window is armed separately.
func (p SyspulParams) Bleed(factor float64) SyspulParams {
	q := p
	q.RArSys *= factor
	q.ZArSys *= factor
	q.RVenSys *= factor
	q.EAtMaxL *= factor
	q.EAtMinL *= factor
	q.EAtMaxR *= factor
	q.EAtMinR *= factor
	q.EVMaxL *= factor
	q.EVMinL *= factor
	q.EVMaxR *= factor
	q.EVMinR *= factor
	return q
}

// bleedRate is the external volume sink, nonzero only inside the
// configured window (with optional periodic repetition).
func (p SyspulParams) bleedRate(t float64) float64 {
	if p.VolumeLoss <= 0 || p.BleedStart < 0 || t < p.BleedStart {
		return 0
	}
	tl := t - p.BleedStart
	if p.BleedPeriod > 0 {
		tl = math.Mod(tl, p.BleedPeriod)
	}
	if tl >= p.BleedDuration {
		return 0
	}
	return p.VolumeLoss / p.BleedDuration
}
