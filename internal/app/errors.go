package service

import "errors"

// Sentinel errors returned by the Service.
var (
	ErrBackpressure = errors.New("event queue full")
	ErrStopped      = errors.New("service stopped")
	ErrInit         = errors.New("service init failed")
	ErrNoSeedSource = errors.New("no seed source configured")
)
