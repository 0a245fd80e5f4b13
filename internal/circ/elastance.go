package circ

import "math"

// Timings are the physiological markers of one cardiac cycle. End
// diastole and end systole are fractions of the cycle length.
type Timings struct {
	CycleLength float64
	EndDiastole float64
	EndSystole  float64
}

// NewTimings derives the markers from the cycle length and two
// dimensionless fractions (classically 0.2 and 0.53).
func NewTimings(cycleLength, edFrac, esFrac float64) Timings {
	return Timings{
		CycleLength: cycleLength,
		EndDiastole: edFrac * cycleLength,
		EndSystole:  esFrac * cycleLength,
	}
}

// ActivationCurve maps absolute time to a dimensionless activation
// value in [0,1], periodic with the cycle length.
type ActivationCurve func(t float64) float64

// raisedCosine is zero outside [t0, t0+dur) within a cycle and a
// 0.5*(1-cos) pulse inside it.
func raisedCosine(cycleLength, t0, dur float64) ActivationCurve {
	return func(t float64) float64 {
		tmod := math.Mod(t, cycleLength)
		if tmod < 0 {
			tmod += cycleLength
		}
		if tmod < t0 || tmod >= t0+dur {
			return 0
		}
		return 0.5 * (1 - math.Cos(2*math.Pi*(tmod-t0)/dur))
	}
}

// AtrialActivation starts at the cycle onset and lasts twice the
// end-diastolic time.
func AtrialActivation(tim Timings) ActivationCurve {
	return raisedCosine(tim.CycleLength, 0, 2*tim.EndDiastole)
}

// VentricularActivation starts at end diastole and lasts 1.8 times the
// systolic interval.
func VentricularActivation(tim Timings) ActivationCurve {
	return raisedCosine(tim.CycleLength, tim.EndDiastole, 1.8*(tim.EndSystole-tim.EndDiastole))
}

// Chamber is a time-varying elastance pressure-volume relation
// p = E(t)·(V - Vu) with E interpolated between EMin and EMax by the
// activation curve.
type Chamber struct {
	EMin        float64
	EMax        float64
	VUnstressed float64
	Act         ActivationCurve
}

// Elastance returns E(t) in [EMin, EMax].
func (c Chamber) Elastance(t float64) float64 {
	return c.EMin + c.Act(t)*(c.EMax-c.EMin)
}

// Volume returns the chamber volume for pressure p at time t.
func (c Chamber) Volume(p, t float64) float64 {
	return p/c.Elastance(t) + c.VUnstressed
}
