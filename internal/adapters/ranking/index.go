// Package ranking provides the ordered score index: a live ranking of players
// by their current-epoch score with rank-based range queries.
package ranking

import "context"

// Entry is a ranked score row. Rank is the 0-based position in descending
// score order.
type Entry struct {
	ID    string
	Score float64
	Rank  int
}

// Index is the ordered score index.
//
// Absence of an id is a normal outcome and is reported with ErrNotFound.
type Index interface {
	// UpsertAdd adds delta to the id's score, creating the entry at delta when absent.
	UpsertAdd(ctx context.Context, id string, delta float64) error

	// RangeByRankDesc returns entries for the closed 0-based rank interval
	// [start, end] in descending score order. The interval is clipped to the
	// populated ranks; an empty index or start past the last rank yields an
	// empty slice.
	RangeByRankDesc(ctx context.Context, start, end int) ([]Entry, error)

	// ReverseRankOf returns the 0-based descending rank of id.
	ReverseRankOf(ctx context.Context, id string) (int, error)

	// ScoreOf returns the current score of id.
	ScoreOf(ctx context.Context, id string) (float64, error)

	// Count returns the number of ranked ids.
	Count(ctx context.Context) (int, error)

	// SetScores overwrites the score of every listed id in one atomic step.
	// Ids not listed keep their score. Entry.Rank is ignored.
	SetScores(ctx context.Context, entries []Entry) error
}

// clip normalizes a closed rank interval against count entries.
// ok is false when the interval selects nothing.
func clip(start, end, count int) (int, int, bool) {
	if count == 0 {
		return 0, 0, false
	}
	if start < 0 {
		start = 0
	}
	if end > count-1 {
		end = count - 1
	}
	if start > end {
		return 0, 0, false
	}
	return start, end, true
}
