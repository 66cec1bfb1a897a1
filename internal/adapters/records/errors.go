package records

import "errors"

// Sentinel kinds for record store errors.
var (
	ErrNotFound       = errors.New("player not found")
	ErrAlreadyExists  = errors.New("player already exists")
	ErrUnknownDriver  = errors.New("unknown record store driver")
	ErrInvalidRequest = errors.New("invalid record request")
)
