package metrics

import (
	"github.com/hemolab/pulsim/internal/circ"
)

// MeanPressure is the running time-average of one pressure dof (mean
// arterial pressure when pointed at p_ar_sys).
type MeanPressure struct {
	name    string
	dof     int
	sum     float64
	samples int
}

func NewMeanPressure(name string, dof int) *MeanPressure {
	return &MeanPressure{name: name, dof: dof}
}

func (m *MeanPressure) Name() string { return m.name }

func (m *MeanPressure) Observe(t float64, s circ.State, aux circ.Aux) {
	m.sum += s[m.dof]
	m.samples++
}

func (m *MeanPressure) Value() float64 {
	if m.samples == 0 {
		return 0
	}
	return m.sum / float64(m.samples)
}

func (m *MeanPressure) Reset() {
	m.sum = 0
	m.samples = 0
}
