package api

import (
	"context"
	"fmt"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/okian/podium/internal/domain/model"
)

// LeaderboardDependencies defines the ranked list reads.
type LeaderboardDependencies interface {
	ListTop(ctx context.Context, n int) ([]model.RankedParticipant, error)
	ListTopByCountry(ctx context.Context, n int) ([][]model.RankedParticipant, error)
}

// LeaderboardHandler handles the ranked endpoints.
type LeaderboardHandler struct {
	deps     LeaderboardDependencies
	maxLimit int
}

// NewLeaderboardHandler creates a new leaderboard handler.
func NewLeaderboardHandler(deps LeaderboardDependencies, maxLimit int) *LeaderboardHandler {
	return &LeaderboardHandler{deps: deps, maxLimit: maxLimit}
}

// HandleRanked handles GET /api/ranked[?limit=N].
func (h *LeaderboardHandler) HandleRanked(c *fiber.Ctx) error {
	const op = "api.get_ranked"
	n, err := h.limit(c)
	if err != nil {
		return WrapKind(op, ErrBadRequest, err)
	}
	list, err := h.deps.ListTop(c.UserContext(), n)
	if err != nil {
		return Wrap(op, err)
	}
	return c.JSON(list)
}

// HandleRankedByCountry handles GET /api/rankedByCountry[?limit=N].
func (h *LeaderboardHandler) HandleRankedByCountry(c *fiber.Ctx) error {
	const op = "api.get_ranked_by_country"
	n, err := h.limit(c)
	if err != nil {
		return WrapKind(op, ErrBadRequest, err)
	}
	groups, err := h.deps.ListTopByCountry(c.UserContext(), n)
	if err != nil {
		return Wrap(op, err)
	}
	return c.JSON(groups)
}

// limit reads ?limit, defaulting to and capped at maxLimit.
func (h *LeaderboardHandler) limit(c *fiber.Ctx) (int, error) {
	raw := c.Query("limit")
	if raw == "" {
		return h.maxLimit, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("limit must be a positive integer, got %q", raw)
	}
	return min(n, h.maxLimit), nil
}
