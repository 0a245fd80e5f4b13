package circ

import (
	"errors"
	"fmt"
)

// Domain errors for model construction and stepping.
var (
	// ErrUnknownModel indicates an unrecognized topology tag.
	ErrUnknownModel = errors.New("circ: unknown model type")

	// ErrUnknownParameter indicates a parameter name not part of the model.
	ErrUnknownParameter = errors.New("circ: unknown parameter")

	// ErrUnknownVariable indicates an initial-condition name not part of
	// the state vector.
	ErrUnknownVariable = errors.New("circ: unknown state variable")

	// ErrInvalidState indicates NaN or Inf entries in the state vector.
	ErrInvalidState = errors.New("circ: invalid state (NaN or Inf detected)")
)

// ParamError reports a parameter whose value fails validation.
type ParamError struct {
	Name   string
	Value  float64
	Reason string
}

func (e *ParamError) Error() string {
	return fmt.Sprintf("circ: parameter %s = %g %s", e.Name, e.Value, e.Reason)
}
