// Package query answers leaderboard reads by joining the score index with the
// record store.
package query

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/okian/podium/internal/adapters/ranking"
	"github.com/okian/podium/internal/adapters/records"
	"github.com/okian/podium/internal/domain/model"
	"github.com/okian/podium/pkg/logger"
	"github.com/okian/podium/pkg/metrics"
)

// Service is the query service.
type Service struct {
	index ranking.Index
	store records.Store

	logger      logger.Logger
	timeout     time.Duration
	concurrency int
	lang        language.Tag
}

// New builds a query service over index and store.
func New(index ranking.Index, store records.Store, opts ...Option) *Service {
	s := &Service{
		index:       index,
		store:       store,
		logger:      logger.Get().Named("query"),
		timeout:     DefaultStoreTimeout,
		concurrency: DefaultEnrichConcurrency,
		lang:        language.Und,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ListTop returns the first n ranked participants enriched with their record.
func (s *Service) ListTop(ctx context.Context, n int) ([]model.RankedParticipant, error) {
	defer observe("top", time.Now())

	if n <= 0 {
		return []model.RankedParticipant{}, nil
	}
	entries, err := s.rangeByRank(ctx, 0, n-1)
	if err != nil {
		return nil, err
	}
	return s.enrich(ctx, entries), nil
}

// ListTopByCountry groups the first n ranked participants by country and
// re-ranks each group from 1.
func (s *Service) ListTopByCountry(ctx context.Context, n int) ([][]model.RankedParticipant, error) {
	defer observe("top_by_country", time.Now())

	top, err := s.ListTop(ctx, n)
	if err != nil {
		return nil, err
	}
	return groupByCountry(top, collate.New(s.lang)), nil
}

// Neighborhood returns the named participant with up to three ranks above
// and two below. Unknown names yield an empty result.
func (s *Service) Neighborhood(ctx context.Context, name string) ([]model.RankedParticipant, error) {
	defer observe("neighborhood", time.Now())

	empty := []model.RankedParticipant{}

	id, err := s.idByName(ctx, name)
	if errors.Is(err, records.ErrNotFound) {
		return empty, nil
	}
	if err != nil {
		return nil, err
	}

	total, err := s.count(ctx)
	if err != nil {
		return nil, err
	}
	rank, err := s.rankOf(ctx, id)
	if errors.Is(err, ranking.ErrNotFound) || (err == nil && total == 0) {
		return empty, nil
	}
	if err != nil {
		return nil, err
	}

	start := max(0, rank-NeighborsAbove)
	end := min(total-1, rank+NeighborsBelow)
	window, err := s.rangeByRank(ctx, start, end)
	if err != nil {
		return nil, err
	}

	if !containsID(window, id) {
		score, err := s.scoreOf(ctx, id)
		if errors.Is(err, ranking.ErrNotFound) {
			return empty, nil
		}
		if err != nil {
			return nil, err
		}
		window = append(window, ranking.Entry{ID: id, Score: score, Rank: rank})
	}
	return s.enrich(ctx, window), nil
}

// Autocomplete suggests up to five names containing partial.
func (s *Service) Autocomplete(ctx context.Context, partial string) ([]string, error) {
	defer observe("autocomplete", time.Now())

	if strings.TrimSpace(partial) == "" {
		return []string{}, nil
	}
	cctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	names, err := s.store.SearchNames(cctx, partial, AutocompleteLimit)
	if err != nil {
		return nil, fmt.Errorf("search names: %w", err)
	}
	if len(names) > AutocompleteLimit {
		names = names[:AutocompleteLimit]
	}
	metrics.RecordAutocompleteResults(len(names))
	return names, nil
}

// enrich joins entries with their records, preserving order. Entries whose
// record is missing or fails to load are dropped.
func (s *Service) enrich(ctx context.Context, entries []ranking.Entry) []model.RankedParticipant {
	slots := make([]*model.RankedParticipant, len(entries))

	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for i, e := range entries {
		g.Go(func() error {
			cctx, cancel := context.WithTimeout(ctx, s.timeout)
			defer cancel()

			p, err := s.store.GetByID(cctx, e.ID)
			if err != nil {
				reason := "error"
				if errors.Is(err, records.ErrNotFound) {
					reason = "not_found"
				}
				metrics.RecordEnrichmentSkip(reason)
				s.logger.Warn(ctx, "skipping ranked player without record",
					logger.String("player_id", e.ID),
					logger.String("reason", reason),
					logger.Error(err),
				)
				return nil
			}
			slots[i] = &model.RankedParticipant{
				ID:           p.ID,
				Name:         p.Name,
				Country:      p.Country,
				TotalBalance: max(0, p.Balance+e.Score),
				Rank:         e.Rank + 1,
			}
			return nil
		})
	}
	_ = g.Wait()

	out := make([]model.RankedParticipant, 0, len(entries))
	for _, p := range slots {
		if p != nil {
			out = append(out, *p)
		}
	}
	return out
}

// groupByCountry stable-sorts by country and splits into runs of equal
// country, re-ranking each run from 1.
func groupByCountry(list []model.RankedParticipant, c *collate.Collator) [][]model.RankedParticipant {
	sorted := make([]model.RankedParticipant, len(list))
	copy(sorted, list)
	sort.SliceStable(sorted, func(i, j int) bool {
		return c.CompareString(sorted[i].Country, sorted[j].Country) < 0
	})

	groups := make([][]model.RankedParticipant, 0)
	for i, p := range sorted {
		if i == 0 || c.CompareString(p.Country, sorted[i-1].Country) != 0 {
			groups = append(groups, []model.RankedParticipant{})
		}
		last := len(groups) - 1
		p.Rank = len(groups[last]) + 1
		groups[last] = append(groups[last], p)
	}
	return groups
}

func containsID(entries []ranking.Entry, id string) bool {
	for _, e := range entries {
		if e.ID == id {
			return true
		}
	}
	return false
}

func (s *Service) rangeByRank(ctx context.Context, start, end int) ([]ranking.Entry, error) {
	cctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	entries, err := s.index.RangeByRankDesc(cctx, start, end)
	if err != nil {
		metrics.RecordErrorByComponent("query", "index_range")
		return nil, fmt.Errorf("range [%d, %d]: %w", start, end, err)
	}
	return entries, nil
}

func (s *Service) count(ctx context.Context) (int, error) {
	cctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	n, err := s.index.Count(cctx)
	if err != nil {
		metrics.RecordErrorByComponent("query", "index_count")
		return 0, fmt.Errorf("count: %w", err)
	}
	return n, nil
}

func (s *Service) rankOf(ctx context.Context, id string) (int, error) {
	cctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	r, err := s.index.ReverseRankOf(cctx, id)
	if err != nil && !errors.Is(err, ranking.ErrNotFound) {
		metrics.RecordErrorByComponent("query", "index_rank")
		return 0, fmt.Errorf("rank of %s: %w", id, err)
	}
	return r, err
}

func (s *Service) scoreOf(ctx context.Context, id string) (float64, error) {
	cctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	v, err := s.index.ScoreOf(cctx, id)
	if err != nil && !errors.Is(err, ranking.ErrNotFound) {
		metrics.RecordErrorByComponent("query", "index_score")
		return 0, fmt.Errorf("score of %s: %w", id, err)
	}
	return v, err
}

func (s *Service) idByName(ctx context.Context, name string) (string, error) {
	cctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	id, err := s.store.IDByName(cctx, name)
	if err != nil && !errors.Is(err, records.ErrNotFound) {
		metrics.RecordErrorByComponent("query", "store_lookup")
		return "", fmt.Errorf("lookup %q: %w", name, err)
	}
	return id, err
}

func observe(q string, start time.Time) {
	metrics.RecordQueryLatency(q, float64(time.Since(start).Microseconds())/1000)
}
