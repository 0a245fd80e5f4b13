package circ

import (
	"math"
	"testing"
)

func baseTimings() Timings {
	return NewTimings(1.0, 0.2, 0.53)
}

func TestActivationRange(t *testing.T) {
	tim := baseTimings()

	curves := map[string]ActivationCurve{
		"atrial":      AtrialActivation(tim),
		"ventricular": VentricularActivation(tim),
	}

	for name, act := range curves {
		for i := 0; i < 1000; i++ {
			tt := float64(i) * 0.003
			a := act(tt)
			if a < 0 || a > 1 {
				t.Fatalf("%s activation out of [0,1] at t=%g: %g", name, tt, a)
			}
		}
	}
}

func TestActivationWindow(t *testing.T) {
	tim := baseTimings()
	act := VentricularActivation(tim)

	if act(0.0) != 0 {
		t.Errorf("ventricular activation nonzero before end diastole: %g", act(0.0))
	}
	if act(tim.EndDiastole-1e-9) != 0 {
		t.Error("ventricular activation nonzero just before onset")
	}

	// Peak at the pulse midpoint.
	dur := 1.8 * (tim.EndSystole - tim.EndDiastole)
	peak := act(tim.EndDiastole + dur/2)
	if math.Abs(peak-1.0) > 1e-12 {
		t.Errorf("expected peak activation 1, got %g", peak)
	}

	// Periodicity with the cycle length.
	if math.Abs(act(0.3)-act(0.3+tim.CycleLength)) > 1e-12 {
		t.Error("activation not periodic with cycle length")
	}
}

func TestElastanceBounds(t *testing.T) {
	tim := baseTimings()
	ch := Chamber{EMin: 12.0e-6, EMax: 30.0e-5, Act: VentricularActivation(tim)}

	for i := 0; i < 2000; i++ {
		tt := float64(i) * 0.0013
		e := ch.Elastance(tt)
		if e < ch.EMin || e > ch.EMax {
			t.Fatalf("elastance out of bounds at t=%g: %g", tt, e)
		}
	}

	// EMin achieved where activation is zero, EMax at the peak.
	if ch.Elastance(0) != ch.EMin {
		t.Errorf("expected EMin at zero activation, got %g", ch.Elastance(0))
	}
	dur := 1.8 * (tim.EndSystole - tim.EndDiastole)
	if math.Abs(ch.Elastance(tim.EndDiastole+dur/2)-ch.EMax) > 1e-18 {
		t.Errorf("expected EMax at peak activation, got %g", ch.Elastance(tim.EndDiastole+dur/2))
	}
}

func TestChamberVolume(t *testing.T) {
	tim := baseTimings()
	ch := Chamber{EMin: 9.0e-6, EMax: 2.9e-5, VUnstressed: 5e3, Act: AtrialActivation(tim)}

	// At p = 0 the chamber sits at its unstressed volume.
	if v := ch.Volume(0, 0.1); v != ch.VUnstressed {
		t.Errorf("expected unstressed volume at zero pressure, got %g", v)
	}

	p := 0.6
	v := ch.Volume(p, 0.7)
	back := ch.Elastance(0.7) * (v - ch.VUnstressed)
	if math.Abs(back-p) > 1e-12 {
		t.Errorf("pressure-volume relation not invertible: %g vs %g", back, p)
	}
}
