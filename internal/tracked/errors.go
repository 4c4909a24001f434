package tracked

import "errors"

var (
	// ErrNotFound is returned when a download is not tracked.
	ErrNotFound = errors.New("tracked download not found")
	// ErrInvalidTransition is returned when a state change is not allowed.
	ErrInvalidTransition = errors.New("invalid state transition")
	// ErrDuplicate is returned when an ignore record already exists.
	ErrDuplicate = errors.New("duplicate ignore record")
)
