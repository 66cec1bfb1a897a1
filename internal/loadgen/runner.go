package loadgen

import (
	"context"
	"fmt"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strconv"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/podium/pkg/logger"
)

// ranked mirrors one element of GET /api/ranked.
type ranked struct {
	ID    string  `json:"playerId"`
	Name  string  `json:"name"`
	Money float64 `json:"money"`
	Rank  int     `json:"rank"`
}

type stats struct {
	Processed int64 `json:"processed"`
}

// Run submits cfg.NumEvents events, waits for the server to apply them and
// verifies the leaderboard and a sample of neighborhoods.
func Run(ctx context.Context, cfg Config) (Report, error) {
	cfg.withDefaults()
	log := logger.Get().Named("loadgen")
	if len(cfg.Players) == 0 {
		return Report{}, ErrNoPlayers
	}

	c := &client{base: cfg.BaseURL, http: &http.Client{Timeout: cfg.Timeout}}
	if err := c.getJSON(ctx, "/healthz", nil, nil); err != nil {
		return Report{}, fmt.Errorf("%w: %w", ErrUnhealthy, err)
	}
	var before stats
	if err := c.getJSON(ctx, "/stats", nil, &before); err != nil {
		return Report{}, err
	}

	log.Info(ctx, "starting load run",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("events", cfg.NumEvents),
		logger.Int("players", len(cfg.Players)),
		logger.Int("workers", cfg.Workers),
	)

	start := time.Now()
	rng := rand.New(rand.NewPCG(uint64(start.UnixNano()), 0x5eed))
	events := generateEvents(cfg.NumEvents, cfg.Players, rng)

	var acc, dup, fail atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Workers)
	for _, e := range events {
		g.Go(func() error {
			switch c.submit(gctx, e) {
			case accepted:
				acc.Add(1)
			case duplicate:
				dup.Add(1)
			default:
				fail.Add(1)
			}
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return Report{}, err
	}

	rep := Report{
		EventsSubmitted: len(events),
		EventsAccepted:  int(acc.Load()),
		EventsDuplicate: int(dup.Load()),
		EventsFailed:    int(fail.Load()),
	}
	log.Info(ctx, "event submission completed",
		logger.Int("accepted", rep.EventsAccepted),
		logger.Int("duplicate", rep.EventsDuplicate),
		logger.Int("failed", rep.EventsFailed),
	)

	if err := waitProcessed(ctx, c, before.Processed+acc.Load(), cfg.DrainWait); err != nil {
		return rep, err
	}

	if err := verifyLeaderboard(ctx, c, cfg.TopN, &rep); err != nil {
		return rep, err
	}
	if err := verifyNeighborhoods(ctx, c, sample(cfg.Players, cfg.SampleSize, rng), &rep); err != nil {
		return rep, err
	}

	rep.Duration = time.Since(start)
	if secs := rep.Duration.Seconds(); secs > 0 {
		rep.EventsPerSecond = float64(rep.EventsSubmitted) / secs
	}
	log.Info(ctx, "load run completed",
		logger.Duration("duration", rep.Duration),
		logger.Float64("eventsPerSecond", rep.EventsPerSecond),
	)
	return rep, nil
}

// waitProcessed polls /stats until the workers have applied target events.
func waitProcessed(ctx context.Context, c *client, target int64, wait time.Duration) error {
	deadline := time.Now().Add(wait)
	for {
		var st stats
		if err := c.getJSON(ctx, "/stats", nil, &st); err != nil {
			return err
		}
		if st.Processed >= target {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("%w: %d of %d", ErrNotDrained, st.Processed, target)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(pollInterval):
		}
	}
}

func verifyLeaderboard(ctx context.Context, c *client, topN int, rep *Report) error {
	var list []ranked
	q := url.Values{"limit": {strconv.Itoa(topN)}}
	if err := c.getJSON(ctx, "/api/ranked", q, &list); err != nil {
		return err
	}
	rep.LeaderboardEntries = len(list)

	seen := make(map[string]bool, len(list))
	for i, e := range list {
		if seen[e.ID] {
			return fmt.Errorf("%w: %s listed twice", ErrInconsistent, e.ID)
		}
		seen[e.ID] = true
		if i > 0 && e.Rank <= list[i-1].Rank {
			return fmt.Errorf("%w: rank %d follows rank %d", ErrInconsistent, e.Rank, list[i-1].Rank)
		}
	}
	return nil
}

func verifyNeighborhoods(ctx context.Context, c *client, players []Player, rep *Report) error {
	for _, p := range players {
		if p.Name == "" {
			continue
		}
		var window []ranked
		if err := c.getJSON(ctx, "/api/player", url.Values{"name": {p.Name}}, &window); err != nil {
			return err
		}
		rep.NeighborhoodChecks++
		if len(window) == 0 {
			continue
		}
		found := false
		for _, e := range window {
			found = found || e.ID == p.ID
		}
		if !found {
			return fmt.Errorf("%w: %s missing from its own neighborhood", ErrInconsistent, p.Name)
		}
	}
	return nil
}

func sample(players []Player, n int, rng *rand.Rand) []Player {
	if n >= len(players) {
		return players
	}
	out := make([]Player, n)
	for i, j := range rng.Perm(len(players))[:n] {
		out[i] = players[j]
	}
	return out
}
