package api

import (
	"context"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/okian/podium/internal/domain/model"
)

// PlayerDependencies defines the by-name reads.
type PlayerDependencies interface {
	Neighborhood(ctx context.Context, name string) ([]model.RankedParticipant, error)
	Autocomplete(ctx context.Context, partial string) ([]string, error)
}

// PlayerHandler handles the player lookups.
type PlayerHandler struct {
	deps PlayerDependencies
}

// NewPlayerHandler creates a new player handler.
func NewPlayerHandler(deps PlayerDependencies) *PlayerHandler {
	return &PlayerHandler{deps: deps}
}

// HandleNeighborhood handles GET /api/player?name=X. Unknown names yield [].
func (h *PlayerHandler) HandleNeighborhood(c *fiber.Ctx) error {
	const op = "api.get_player"
	name := strings.TrimSpace(c.Query("name"))
	if name == "" {
		return WrapKind(op, ErrBadRequest, errors.New("missing name"))
	}
	list, err := h.deps.Neighborhood(c.UserContext(), name)
	if err != nil {
		return Wrap(op, err)
	}
	return c.JSON(list)
}

// HandleAutocomplete handles GET /api/autocomplete?name=X.
func (h *PlayerHandler) HandleAutocomplete(c *fiber.Ctx) error {
	const op = "api.autocomplete"
	names, err := h.deps.Autocomplete(c.UserContext(), c.Query("name"))
	if err != nil {
		return Wrap(op, err)
	}
	return c.JSON(names)
}
