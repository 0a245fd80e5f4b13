package circ

// Valve is a piecewise-linear pressure-gated resistance: open at the
// minimum resistance for a forward pressure gradient, closed at the
// maximum otherwise. The switch depends only on the instantaneous
// pressure difference; no flow-direction hysteresis is kept.
type Valve struct {
	ROpen   float64
	RClosed float64
}

// Resistance returns ROpen when pUp >= pDown and RClosed otherwise.
// Equal pressures count as open.
func (v Valve) Resistance(pUp, pDown float64) float64 {
	if pUp >= pDown {
		return v.ROpen
	}
	return v.RClosed
}

// Flow returns the flux (pUp - pDown) / Resistance(pUp, pDown). The
// flow is continuous in the pressures even though the resistance
// switches at the gradient sign change.
func (v Valve) Flow(pUp, pDown float64) float64 {
	return (pUp - pDown) / v.Resistance(pUp, pDown)
}
