package api

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/okian/podium/pkg/metrics"
)

// HealthHandler serves Prometheus metrics on /healthz.
type HealthHandler struct {
	metrics fiber.Handler
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler() *HealthHandler {
	return &HealthHandler{
		metrics: adaptor.HTTPHandler(promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{})),
	}
}

// Handle handles GET /healthz.
func (h *HealthHandler) Handle(c *fiber.Ctx) error {
	return h.metrics(c)
}
