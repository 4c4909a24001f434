package pending

import "errors"

var (
	// ErrNotFound is returned when no pending release has the given id.
	ErrNotFound = errors.New("pending release not found")
	// ErrInvalidRelease is returned when a release is missing required fields.
	ErrInvalidRelease = errors.New("invalid pending release")
)
