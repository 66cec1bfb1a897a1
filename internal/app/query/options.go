package query

import (
	"time"

	"golang.org/x/text/language"

	"github.com/okian/podium/pkg/logger"
)

// Default query settings.
const (
	DefaultStoreTimeout      = 2 * time.Second
	DefaultEnrichConcurrency = 16
	// AutocompleteLimit caps autocomplete suggestions.
	AutocompleteLimit = 5
	// NeighborsAbove and NeighborsBelow size the neighborhood window.
	NeighborsAbove = 3
	NeighborsBelow = 2
)

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithStoreTimeout bounds every index and store call.
func WithStoreTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithEnrichConcurrency bounds parallel record lookups per request.
func WithEnrichConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithCollation sets the BCP 47 language used to order countries.
// Unparseable tags fall back to the root collation.
func WithCollation(tag string) Option {
	return func(s *Service) {
		if t, err := language.Parse(tag); err == nil {
			s.lang = t
		}
	}
}
