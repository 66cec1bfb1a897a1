// Package model contains domain models passed between layers.
package model

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

// ErrInvalidEvent marks a score event that cannot be applied.
var ErrInvalidEvent = errors.New("invalid score event")

// ScoreEvent is a scoring event submitted by clients. Earnings are added to
// the player's score for the current epoch.
type ScoreEvent struct {
	EventID  string    // unique id for idempotency
	PlayerID string    // participant identifier
	Earnings float64   // additive score delta, may be negative
	TS       time.Time // receive time
}

// Validate checks the fields a worker relies on. EventID may be empty; it is
// assigned at intake.
func (e *ScoreEvent) Validate() error {
	if strings.TrimSpace(e.PlayerID) == "" {
		return fmt.Errorf("%w: missing player_id", ErrInvalidEvent)
	}
	if math.IsNaN(e.Earnings) || math.IsInf(e.Earnings, 0) {
		return fmt.Errorf("%w: earnings must be finite", ErrInvalidEvent)
	}
	return nil
}
