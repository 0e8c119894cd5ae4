package aircraft

import "errors"

var (
	// ErrUnsupportedAircraft is returned when no profile matches an ownship.
	ErrUnsupportedAircraft = errors.New("aircraft: unsupported aircraft")

	// ErrUnknownSwitch is returned when a step names a switch the catalog lacks.
	ErrUnknownSwitch = errors.New("aircraft: unknown switch")

	// ErrKindMismatch is returned when a switch is used in a way its kind does
	// not allow.
	ErrKindMismatch = errors.New("aircraft: switch kind mismatch")

	// ErrInvalidProfile is returned for structurally invalid profiles.
	ErrInvalidProfile = errors.New("aircraft: invalid profile")
)
