// Package circ provides the core primitives for lumped-parameter (0D)
// circulation models.
//
// A model is a small dense differential-algebraic system over a fixed
// state vector of compartment pressures, connector fluxes and
// volume-like quantities. The continuous residual of row i is
//
//	d(df_i)/dt + f_i = 0
//
// where the model fills the split terms df and f at a given time and
// trial state. Capacitive compartments carry their volume in df and the
// signed flow balance in f; resistive and valve connectors are purely
// algebraic rows; inertial connectors contribute an L·q term to df.
//
// The package defines:
//
//   - [State], [Aux]: state and derived-quantity vectors
//   - [Model]: the residual/Jacobian contract all topologies implement
//   - [Valve]: pressure-gated piecewise-linear valve resistance
//   - [Chamber], [ActivationCurve]: time-varying elastance chambers
//
// Models must be callable repeatedly with different trial states
// without mutating parameters; all configuration errors surface at
// construction, never during time stepping.
package circ
