package ranking

import "errors"

// Sentinel kinds for ranking errors.
var (
	ErrNotFound     = errors.New("player not ranked")
	ErrInvalidScore = errors.New("invalid score")
)
