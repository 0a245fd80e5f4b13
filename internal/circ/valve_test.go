package circ

import (
	"math"
	"testing"
)

func TestValveResistanceSwitching(t *testing.T) {
	v := Valve{ROpen: 1e-6, RClosed: 1e1}

	tests := []struct {
		pUp, pDown float64
		expected   float64
	}{
		{1.0, 0.0, 1e-6},
		{0.0, 1.0, 1e1},
		{-2.0, -3.0, 1e-6},
		{-3.0, -2.0, 1e1},
		{0.5, 0.5, 1e-6}, // equal pressures count as open
	}

	for _, tt := range tests {
		r := v.Resistance(tt.pUp, tt.pDown)
		if r != tt.expected {
			t.Errorf("Resistance(%g, %g) = %g, expected %g", tt.pUp, tt.pDown, r, tt.expected)
		}
	}
}

func TestValveResistanceBounds(t *testing.T) {
	v := Valve{ROpen: 1e-6, RClosed: 1e1}

	for dp := -5.0; dp <= 5.0; dp += 0.1 {
		r := v.Resistance(dp, 0)
		if r < v.ROpen || r > v.RClosed {
			t.Fatalf("resistance %g outside [%g, %g]", r, v.ROpen, v.RClosed)
		}
		if r <= 0 {
			t.Fatalf("resistance must be strictly positive, got %g", r)
		}
	}
}

func TestValveFlowContinuity(t *testing.T) {
	v := Valve{ROpen: 1e-6, RClosed: 1e1}

	// Flow is continuous across the switch even though R jumps.
	eps := 1e-12
	qFwd := v.Flow(eps, 0)
	qBwd := v.Flow(-eps, 0)

	if math.Abs(qFwd-qBwd) > 1e-5 {
		t.Errorf("flow discontinuous at gradient sign change: %g vs %g", qFwd, qBwd)
	}
	if v.Flow(0, 0) != 0 {
		t.Errorf("expected zero flow at zero gradient, got %g", v.Flow(0, 0))
	}
}
