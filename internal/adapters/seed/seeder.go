package seed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/okian/podium/internal/adapters/ranking"
	"github.com/okian/podium/internal/adapters/records"
	"github.com/okian/podium/internal/domain/model"
	"github.com/okian/podium/pkg/logger"
)

// Player is one dataset row.
type Player struct {
	PlayerID string  `json:"playerId"`
	Name     string  `json:"name"`
	Country  string  `json:"country"`
	Money    float64 `json:"money"`
	Earnings float64 `json:"earnings"`
}

// Stats counts what the last Seed did.
type Stats struct {
	Players  int `json:"players"`
	Inserted int `json:"inserted"`
	Failed   int `json:"failed"`
}

// Seeder loads a dataset: missing players are inserted into the store and
// the earnings of every player with a record are written to the index.
type Seeder struct {
	source Source
	store  records.Store
	index  ranking.Index
	logger logger.Logger
}

// Option configures a Seeder.
type Option func(*Seeder)

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Seeder) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewSeeder builds a seeder.
func NewSeeder(source Source, store records.Store, index ranking.Index, opts ...Option) *Seeder {
	s := &Seeder{
		source: source,
		store:  store,
		index:  index,
		logger: logger.Get().Named("seed"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Seed loads the dataset once.
func (s *Seeder) Seed(ctx context.Context) error {
	_, err := s.Run(ctx)
	return err
}

// Run loads the dataset and reports what it did. Per-player insert failures
// are logged and counted; only players with a record get an index score.
func (s *Seeder) Run(ctx context.Context) (Stats, error) {
	players, err := ReadPlayers(ctx, s.source)
	if err != nil {
		return Stats{}, err
	}

	stats := Stats{Players: len(players)}
	scores := make([]ranking.Entry, 0, len(players))
	for i := range players {
		p := &players[i]
		if p.PlayerID == "" {
			p.PlayerID = s.resolveID(ctx, p.Name)
		}
		inserted, err := s.ensure(ctx, *p)
		if err != nil {
			stats.Failed++
			s.logger.Warn(ctx, "seeding player failed",
				logger.String("player_id", p.PlayerID),
				logger.String("name", p.Name),
				logger.Error(err),
			)
			continue
		}
		if inserted {
			stats.Inserted++
		}
		scores = append(scores, ranking.Entry{ID: p.PlayerID, Score: p.Earnings})
	}

	if err := s.index.SetScores(ctx, scores); err != nil {
		return stats, fmt.Errorf("write seed scores: %w", err)
	}
	s.logger.Info(ctx, "dataset loaded",
		logger.String("source", s.source.String()),
		logger.Int("players", stats.Players),
		logger.Int("inserted", stats.Inserted),
		logger.Int("failed", stats.Failed),
	)
	return stats, nil
}

// resolveID reuses the id of an existing player with the same name so that
// rows without an id stay stable across runs.
func (s *Seeder) resolveID(ctx context.Context, name string) string {
	if id, err := s.store.IDByName(ctx, name); err == nil {
		return id
	}
	return uuid.NewString()
}

// ensure inserts p unless it exists and reports whether it inserted. A nil
// error means p has a record afterwards.
func (s *Seeder) ensure(ctx context.Context, p Player) (bool, error) {
	ok, err := s.store.Exists(ctx, p.PlayerID)
	if err != nil || ok {
		return false, err
	}
	err = s.store.Insert(ctx, model.Participant{
		ID:      p.PlayerID,
		Name:    p.Name,
		Country: p.Country,
		Balance: p.Money,
	})
	if errors.Is(err, records.ErrAlreadyExists) {
		if ok, xerr := s.store.Exists(ctx, p.PlayerID); xerr == nil && ok {
			return false, nil
		}
		return false, fmt.Errorf("name %q taken by another player: %w", p.Name, err)
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// ReadPlayers decodes the dataset held by src.
func ReadPlayers(ctx context.Context, src Source) ([]Player, error) {
	rc, err := src.Open(ctx)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", src, err)
	}
	defer rc.Close()

	var players []Player
	if err := json.NewDecoder(rc).Decode(&players); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	return players, nil
}
