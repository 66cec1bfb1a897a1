package service

import (
	"github.com/okian/podium/internal/adapters/ranking"
	"github.com/okian/podium/internal/adapters/records"
	"github.com/okian/podium/internal/adapters/seed"
	"github.com/okian/podium/internal/domain/dedupe"
	"github.com/okian/podium/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithIndex replaces the index selected by index_driver.
func WithIndex(idx ranking.Index) Option {
	return func(s *Service) {
		if idx != nil {
			s.rawIndex = idx
		}
	}
}

// WithStore replaces the record store selected by store_driver.
func WithStore(st records.Store) Option {
	return func(s *Service) {
		if st != nil {
			s.store = st
		}
	}
}

// WithDeduper replaces the event deduplicator.
func WithDeduper(d dedupe.Deduper) Option {
	return func(s *Service) {
		if d != nil {
			s.deduper = d
		}
	}
}

// WithSeedSource replaces the source named by seed_source.
func WithSeedSource(src seed.Source) Option {
	return func(s *Service) {
		if src != nil {
			s.seedSource = src
		}
	}
}
