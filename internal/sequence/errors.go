package sequence

import "errors"

var (
	// ErrEmptyProcedure is returned when a procedure has no steps.
	ErrEmptyProcedure = errors.New("sequence: procedure has no steps")

	// ErrInvalidStep is returned when a step fails validation.
	ErrInvalidStep = errors.New("sequence: invalid step")

	// ErrUnknownCompare is returned for an unrecognised comparison name.
	ErrUnknownCompare = errors.New("sequence: unknown comparison")

	// ErrUnknownMatch is returned for an unrecognised text match name.
	ErrUnknownMatch = errors.New("sequence: unknown text match")
)
