package indication

import "errors"

var (
	// ErrParse is returned when a value is present but malformed.
	ErrParse = errors.New("indication: malformed value")

	// ErrIndex is returned when the requested name is not present.
	ErrIndex = errors.New("indication: name not found")
)
