package seed

import "errors"

// Sentinel kinds for seed errors.
var (
	ErrUnsupportedSource = errors.New("unsupported seed source")
	ErrDecode            = errors.New("seed dataset is not valid JSON")
)
