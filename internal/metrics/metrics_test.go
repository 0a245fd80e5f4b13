package metrics

import (
	"math"
	"testing"

	"github.com/hemolab/pulsim/internal/circ"
)

func TestTotalVolumeDrift(t *testing.T) {
	m := NewTotalVolumeDrift([]int{0, 1})

	m.Observe(0, nil, circ.Aux{60, 40})
	m.Observe(1, nil, circ.Aux{55, 45}) // redistribution, same total
	if m.Value() != 0 {
		t.Errorf("redistribution must not count as drift, got %g", m.Value())
	}

	m.Observe(2, nil, circ.Aux{55, 44}) // lost 1 of 100
	if math.Abs(m.Value()-0.01) > 1e-12 {
		t.Errorf("drift %g, expected 0.01", m.Value())
	}

	m.Observe(3, nil, circ.Aux{60, 40}) // back to the initial total
	if math.Abs(m.Value()-0.01) > 1e-12 {
		t.Errorf("drift must track the worst deviation, got %g", m.Value())
	}

	m.Reset()
	if m.Value() != 0 {
		t.Error("Reset must clear the drift")
	}
}

func TestMeanPressure(t *testing.T) {
	m := NewMeanPressure("mean_p_ar_sys", 1)
	if m.Value() != 0 {
		t.Error("empty metric must report 0")
	}

	for _, p := range []float64{8, 10, 12} {
		m.Observe(0, circ.State{0, p}, nil)
	}
	if m.Value() != 10 {
		t.Errorf("mean %g, expected 10", m.Value())
	}
}

func TestStrokeVolume(t *testing.T) {
	m := NewStrokeVolume(0)

	// One beat of a ventricular volume trace.
	for _, v := range []float64{120, 135, 140, 90, 70, 95, 120} {
		m.Observe(0, nil, circ.Aux{v})
	}
	if m.Value() != 70 {
		t.Errorf("stroke volume %g, expected 70", m.Value())
	}

	m.Reset()
	m.Observe(0, nil, circ.Aux{-5})
	m.Observe(0, nil, circ.Aux{-3})
	if m.Value() != 2 {
		t.Errorf("stroke volume %g after reset, expected 2", m.Value())
	}
}
