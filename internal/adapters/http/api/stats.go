package api

import (
	"context"

	"github.com/gofiber/fiber/v2"

	service "github.com/okian/podium/internal/app"
)

// StatsProvider defines the interface for getting service statistics.
type StatsProvider interface {
	Stats(ctx context.Context) service.Stats
}

// StatsHandler handles stats requests.
type StatsHandler struct {
	provider StatsProvider
}

// NewStatsHandler creates a new stats handler.
func NewStatsHandler(provider StatsProvider) *StatsHandler {
	return &StatsHandler{provider: provider}
}

// Handle handles GET /stats.
func (h *StatsHandler) Handle(c *fiber.Ctx) error {
	return c.JSON(h.provider.Stats(c.UserContext()))
}
