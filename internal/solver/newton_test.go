package solver

import (
	"errors"
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/hemolab/pulsim/internal/circ"
)

// quadratic is F(s) = s^2 - a with root sqrt(a).
type quadratic struct{ a float64 }

func (q *quadratic) Residual(step int, t float64, s circ.State, r circ.State) {
	r[0] = s[0]*s[0] - q.a
}

func (q *quadratic) Jacobian(step int, t float64, s circ.State, k *mat.Dense) {
	k.Set(0, 0, 2*s[0])
}

// coupled is a 2x2 linear system. The first iteration lands exactly on
// the root but carries the full step as its increment, so convergence
// under the dual residual+increment criterion needs a second iteration
// whose increment is zero.
type coupled struct{}

func (c *coupled) Residual(step int, t float64, s circ.State, r circ.State) {
	r[0] = 2*s[0] + s[1] - 5
	r[1] = s[0] + 3*s[1] - 10
}

func (c *coupled) Jacobian(step int, t float64, s circ.State, k *mat.Dense) {
	k.Set(0, 0, 2)
	k.Set(0, 1, 1)
	k.Set(1, 0, 1)
	k.Set(1, 1, 3)
}

func TestNewtonConvergesQuadratic(t *testing.T) {
	nw, err := New(1, DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}

	s := circ.State{3.0}
	if err := nw.Solve(&quadratic{a: 4}, 1, 0, s); err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if math.Abs(s[0]-2.0) > 1e-7 {
		t.Errorf("root %g, expected 2", s[0])
	}
	if nw.Iterations() == 0 {
		t.Error("expected at least one iteration from a non-converged predictor")
	}
}

func TestNewtonLinearSystemTwoIterations(t *testing.T) {
	nw, err := New(2, DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}

	s := circ.State{0, 0}
	if err := nw.Solve(&coupled{}, 1, 0, s); err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if nw.Iterations() != 2 {
		t.Errorf("linear system should converge in 2 iterations, took %d", nw.Iterations())
	}
	if math.Abs(s[0]-1.0) > 1e-10 || math.Abs(s[1]-3.0) > 1e-10 {
		t.Errorf("solution %v, expected [1 3]", s)
	}
}

func TestNewtonConvergedPredictorExitsImmediately(t *testing.T) {
	nw, err := New(1, DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}

	s := circ.State{2.0}
	if err := nw.Solve(&quadratic{a: 4}, 1, 0, s); err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if nw.Iterations() != 0 {
		t.Errorf("converged predictor must exit at iteration 0, took %d", nw.Iterations())
	}
}

func TestNewtonIterationBudgetExhausted(t *testing.T) {
	cfg := Config{MaxIter: 3, TolRes: 1e-300, TolInc: 1e-300}
	nw, err := New(1, cfg)
	if err != nil {
		t.Fatal(err)
	}

	s := circ.State{3.0}
	err = nw.Solve(&quadratic{a: 2}, 1, 0, s)

	var ne *NewtonError
	if !errors.As(err, &ne) {
		t.Fatalf("expected NewtonError, got %v", err)
	}
	if ne.Iterations != 3 {
		t.Errorf("error carries %d iterations, expected 3", ne.Iterations)
	}
	if ne.ResNorm <= 0 && ne.IncNorm <= 0 {
		t.Error("error should carry the last norms")
	}
}

func TestNewtonConfigValidation(t *testing.T) {
	if _, err := New(1, Config{MaxIter: 0, TolRes: 1e-8, TolInc: 1e-8}); err == nil {
		t.Error("expected error for zero maxiter")
	}
	if _, err := New(1, Config{MaxIter: 10, TolRes: 0, TolInc: 1e-8}); err == nil {
		t.Error("expected error for non-positive residual tolerance")
	}
	if _, err := New(1, Config{MaxIter: 10, TolRes: 1e-8, TolInc: -1}); err == nil {
		t.Error("expected error for negative increment tolerance")
	}
}
