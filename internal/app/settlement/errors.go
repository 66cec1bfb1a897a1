package settlement

import "errors"

// Sentinel kinds for settlement errors.
var (
	ErrAlreadyRunning = errors.New("settlement already running")
	ErrCollect        = errors.New("settlement collect failed")
	ErrCommit         = errors.New("settlement commit failed")
	ErrReset          = errors.New("settlement reset failed")
	ErrInvalidPeriod  = errors.New("settlement period must be positive")
)
