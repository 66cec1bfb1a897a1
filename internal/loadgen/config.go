// Package loadgen drives a running podium server with score events and checks
// that the leaderboard it serves stays consistent.
package loadgen

import (
	"errors"
	"runtime"
	"time"
)

// Defaults.
const (
	DefaultEvents     = 10000
	DefaultTopN       = 50
	DefaultTimeout    = 30 * time.Second
	DefaultDrainWait  = 2 * time.Minute
	DefaultSampleSize = 20
	pollInterval      = 100 * time.Millisecond
)

// Sentinel errors.
var (
	ErrUnhealthy    = errors.New("service unhealthy")
	ErrNoPlayers    = errors.New("no players to score")
	ErrInconsistent = errors.New("leaderboard inconsistent")
	ErrNotDrained   = errors.New("events not processed in time")
)

// Config holds configuration for a load run.
type Config struct {
	BaseURL    string        // base URL of the service
	NumEvents  int           // events to submit
	TopN       int           // leaderboard size to verify
	Workers    int           // concurrent submitters
	Timeout    time.Duration // per-request timeout
	DrainWait  time.Duration // how long to wait for the workers to catch up
	SampleSize int           // players whose neighborhood is checked
	Players    []Player      // who to score
}

func (c *Config) withDefaults() {
	if c.NumEvents <= 0 {
		c.NumEvents = DefaultEvents
	}
	if c.TopN <= 0 {
		c.TopN = DefaultTopN
	}
	if c.Workers <= 0 {
		c.Workers = runtime.NumCPU() * 2
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.DrainWait <= 0 {
		c.DrainWait = DefaultDrainWait
	}
	if c.SampleSize <= 0 {
		c.SampleSize = DefaultSampleSize
	}
}

// Player is a scoring target.
type Player struct {
	ID   string
	Name string
}

// Report holds run statistics.
type Report struct {
	EventsSubmitted    int           `json:"eventsSubmitted"`
	EventsAccepted     int           `json:"eventsAccepted"`
	EventsDuplicate    int           `json:"eventsDuplicate"`
	EventsFailed       int           `json:"eventsFailed"`
	LeaderboardEntries int           `json:"leaderboardEntries"`
	NeighborhoodChecks int           `json:"neighborhoodChecks"`
	Duration           time.Duration `json:"duration"`
	EventsPerSecond    float64       `json:"eventsPerSecond"`
}
