// Package records provides the durable participant store: identity, country
// and cumulative balance.
package records

import (
	"context"
	"strings"

	"github.com/okian/podium/internal/domain/model"
)

// Store is the durable record store.
type Store interface {
	// GetByID returns the participant or ErrNotFound.
	GetByID(ctx context.Context, id string) (model.Participant, error)

	// IDByName resolves an exact name to an id or ErrNotFound.
	IDByName(ctx context.Context, name string) (string, error)

	// SearchNames returns up to limit names containing partial
	// (case-insensitive). Names starting with partial come first; ties are
	// broken lexicographically.
	SearchNames(ctx context.Context, partial string, limit int) ([]string, error)

	// ApplyEarnings increments every listed balance by its delta atomically:
	// either all updates land or none do. Unknown ids are ignored.
	ApplyEarnings(ctx context.Context, updates []model.EarningsUpdate) error

	// Exists reports whether id has a record.
	Exists(ctx context.Context, id string) (bool, error)

	// Insert creates a participant. Returns ErrAlreadyExists on a duplicate id.
	Insert(ctx context.Context, p model.Participant) error
}

// likeEscape is the LIKE escape character. A backslash is avoided because
// MySQL treats it as a string-literal escape.
const likeEscape = "!"

var likeReplacer = strings.NewReplacer(
	likeEscape, likeEscape+likeEscape,
	"%", likeEscape+"%",
	"_", likeEscape+"_",
)

// foldName is the case folding SearchNames matches under, shared by every
// driver so matching does not depend on the database's LOWER().
func foldName(s string) string {
	return strings.ToLower(s)
}

// escapeLike escapes LIKE wildcards so partial matches literally.
func escapeLike(s string) string {
	return likeReplacer.Replace(s)
}
