// Package solver provides the per-step Newton iteration for the
// discretized 0D circulation system. The system is small and dense, so
// each iteration performs one direct LU factorization and solve.
package solver

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/hemolab/pulsim/internal/circ"
)

// Problem is the discrete per-step nonlinear equation F(s) = 0, as
// produced by the time integrator. The system size is fixed at
// construction of the Newton solver, not queried from the problem.
type Problem interface {
	Residual(step int, t float64, s circ.State, r circ.State)
	Jacobian(step int, t float64, s circ.State, k *mat.Dense)
}

// Config holds the Newton iteration controls. The residual and
// increment tolerances are independent absolute bounds; both must be
// met for convergence.
type Config struct {
	MaxIter int
	TolRes  float64
	TolInc  float64
}

func DefaultConfig() Config {
	return Config{MaxIter: 25, TolRes: 1e-8, TolInc: 1e-8}
}

func (c Config) validate() error {
	if c.MaxIter < 1 {
		return &circ.ParamError{Name: "maxiter", Value: float64(c.MaxIter), Reason: "must be at least 1"}
	}
	if c.TolRes <= 0 {
		return &circ.ParamError{Name: "tol_res", Value: c.TolRes, Reason: "must be positive"}
	}
	if c.TolInc <= 0 {
		return &circ.ParamError{Name: "tol_inc", Value: c.TolInc, Reason: "must be positive"}
	}
	return nil
}

// NewtonError reports an exhausted iteration budget, carrying the last
// norms for diagnosis. There is no step-size reduction or continuation
// at this level; the error is fatal to the run.
type NewtonError struct {
	Iterations int
	ResNorm    float64
	IncNorm    float64
}

func (e *NewtonError) Error() string {
	return fmt.Sprintf("solver: newton diverged after %d iterations (res %.3e, inc %.3e)",
		e.Iterations, e.ResNorm, e.IncNorm)
}

// Newton owns the working residual, Jacobian and increment buffers for
// the duration of one step. It is re-entrant across repeated Solve
// calls but not safe for concurrent use.
type Newton struct {
	cfg Config

	r   *mat.VecDense
	ds  *mat.VecDense
	k   *mat.Dense
	lu  mat.LU
	res circ.State

	lastIters int
	lastRes   float64
	lastInc   float64
}

func New(n int, cfg Config) (*Newton, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Newton{
		cfg: cfg,
		r:   mat.NewVecDense(n, nil),
		ds:  mat.NewVecDense(n, nil),
		k:   mat.NewDense(n, n, nil),
		res: make(circ.State, n),
	}, nil
}

// Iterations reports the iteration count of the most recent Solve.
func (nw *Newton) Iterations() int { return nw.lastIters }

// Norms reports the final residual and increment norms of the most
// recent Solve.
func (nw *Newton) Norms() (res, inc float64) { return nw.lastRes, nw.lastInc }

// Solve drives s to a root of the discrete residual at (step, t). The
// state is updated in place; on failure it holds the last iterate.
// Convergence is checked before the first linear solve, so an already
// converged predictor returns immediately.
func (nw *Newton) Solve(p Problem, step int, t float64, s circ.State) error {
	n := len(s)

	p.Residual(step, t, s, nw.res)
	for i := 0; i < n; i++ {
		nw.r.SetVec(i, nw.res[i])
	}
	resNorm := nw.r.Norm(2)

	nw.lastIters, nw.lastRes, nw.lastInc = 0, resNorm, 0
	if resNorm <= nw.cfg.TolRes {
		return nil
	}

	for it := 1; it <= nw.cfg.MaxIter; it++ {
		p.Jacobian(step, t, s, nw.k)

		nw.lu.Factorize(nw.k)
		nw.r.ScaleVec(-1, nw.r)
		if err := nw.lu.SolveVecTo(nw.ds, false, nw.r); err != nil {
			return fmt.Errorf("solver: linear solve failed at iteration %d: %w", it, err)
		}

		for i := 0; i < n; i++ {
			s[i] += nw.ds.AtVec(i)
		}
		if !s.IsValid() {
			return fmt.Errorf("%w at newton iteration %d", circ.ErrInvalidState, it)
		}

		p.Residual(step, t, s, nw.res)
		for i := 0; i < n; i++ {
			nw.r.SetVec(i, nw.res[i])
		}
		resNorm = nw.r.Norm(2)
		incNorm := nw.ds.Norm(2)

		nw.lastIters, nw.lastRes, nw.lastInc = it, resNorm, incNorm
		if resNorm <= nw.cfg.TolRes && incNorm <= nw.cfg.TolInc {
			return nil
		}
	}

	return &NewtonError{Iterations: nw.lastIters, ResNorm: nw.lastRes, IncNorm: nw.lastInc}
}
