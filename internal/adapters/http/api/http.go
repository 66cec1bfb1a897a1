// Package api exposes the leaderboard over HTTP.
package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"

	"github.com/okian/podium/internal/adapters/http/swagger"
	service "github.com/okian/podium/internal/app"
	"github.com/okian/podium/internal/domain/model"
	"github.com/okian/podium/pkg/logger"
)

// Dependencies required by HTTP handlers.
type Dependencies interface {
	LeaderboardDependencies
	PlayerDependencies
	EventDependencies
	StatsProvider
}

// Server wires HTTP routes for the business API.
type Server struct {
	deps     Dependencies
	maxLimit int
	origin   string
	logger   logger.Logger

	app *fiber.App
}

// NewServer creates a fiber app with every route registered.
func NewServer(deps Dependencies, opts ...Option) *Server {
	s := &Server{
		deps:     deps,
		maxLimit: defaultLimit,
		origin:   defaultOrigin,
		logger:   logger.Get().Named("http"),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.app = fiber.New(fiber.Config{
		AppName:               "podium",
		BodyLimit:             defaultBodySize,
		DisableStartupMessage: true,
		ErrorHandler:          s.handleError,
	})
	s.register()
	return s
}

// App returns the underlying fiber app.
func (s *Server) App() *fiber.App { return s.app }

// Listen serves until Shutdown.
func (s *Server) Listen(addr string) error {
	s.logger.Info(context.Background(), "http server listening", logger.String("addr", addr))
	return s.app.Listen(addr)
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

func (s *Server) register() {
	s.app.Use(cors.New(cors.Config{
		AllowOrigins: s.origin,
		AllowMethods: "GET,POST",
		AllowHeaders: "Origin, Content-Type, Accept",
	}))
	s.app.Use(MetricsMiddleware())

	leaderboard := NewLeaderboardHandler(s.deps, s.maxLimit)
	player := NewPlayerHandler(s.deps)
	events := NewEventsHandler(s.deps)

	s.app.Get("/", func(c *fiber.Ctx) error {
		return c.SendString("Server is up and running")
	})
	s.app.Get("/healthz", NewHealthHandler().Handle)
	s.app.Get("/stats", NewStatsHandler(s.deps).Handle)
	swagger.Register(s.app)

	g := s.app.Group("/api")
	g.Get("/ranked", leaderboard.HandleRanked)
	g.Get("/rankedByCountry", leaderboard.HandleRankedByCountry)
	g.Get("/player", player.HandleNeighborhood)
	g.Get("/autocomplete", player.HandleAutocomplete)
	g.Post("/events", events.HandlePostEvent)
}

type ackResponse struct {
	Status    string `json:"status"`
	EventID   string `json:"event_id,omitempty"`
	Duplicate bool   `json:"duplicate"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// handleError renders every handler error as {code, message}.
func (s *Server) handleError(c *fiber.Ctx, err error) error {
	status, code := classify(err)
	msg := err.Error()
	if status >= fiber.StatusInternalServerError {
		s.logger.Error(c.UserContext(), "request failed",
			logger.String("path", c.Path()),
			logger.Error(err),
		)
		msg = http.StatusText(status)
	}
	return c.Status(status).JSON(errorResponse{Code: code, Message: msg})
}

func classify(err error) (int, string) {
	var fe *fiber.Error
	switch {
	case errors.Is(err, ErrBadRequest), errors.Is(err, model.ErrInvalidEvent):
		return fiber.StatusBadRequest, "bad_request"
	case errors.Is(err, ErrBackpressure), errors.Is(err, service.ErrBackpressure):
		return fiber.StatusTooManyRequests, "backpressure"
	case errors.Is(err, ErrUnavailable), errors.Is(err, service.ErrStopped):
		return fiber.StatusServiceUnavailable, "unavailable"
	case errors.As(err, &fe):
		return fe.Code, strings.ReplaceAll(strings.ToLower(http.StatusText(fe.Code)), " ", "_")
	default:
		return fiber.StatusInternalServerError, "internal_error"
	}
}
