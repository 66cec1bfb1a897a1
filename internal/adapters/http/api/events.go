package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	service "github.com/okian/podium/internal/app"
	"github.com/okian/podium/internal/domain/model"
)

// EventDependencies defines score intake.
type EventDependencies interface {
	SubmitEvent(ctx context.Context, e model.ScoreEvent) (service.Ack, error)
}

// EventsHandler handles event requests.
type EventsHandler struct {
	deps EventDependencies
}

// NewEventsHandler creates a new events handler.
func NewEventsHandler(deps EventDependencies) *EventsHandler {
	return &EventsHandler{deps: deps}
}

// eventRequest is the body of POST /api/events.
type eventRequest struct {
	EventID  string   `json:"event_id"`
	PlayerID string   `json:"player_id"`
	Earnings *float64 `json:"earnings"`
	TS       string   `json:"ts"`
}

func (e eventRequest) toModel() (model.ScoreEvent, error) {
	switch {
	case strings.TrimSpace(e.PlayerID) == "":
		return model.ScoreEvent{}, errors.New("missing player_id")
	case e.Earnings == nil:
		return model.ScoreEvent{}, errors.New("missing earnings")
	}
	ev := model.ScoreEvent{
		EventID:  strings.TrimSpace(e.EventID),
		PlayerID: e.PlayerID,
		Earnings: *e.Earnings,
	}
	if e.TS != "" {
		ts, err := time.Parse(time.RFC3339, e.TS)
		if err != nil {
			return model.ScoreEvent{}, fmt.Errorf("invalid ts; must be RFC3339")
		}
		ev.TS = ts
	}
	return ev, nil
}

// HandlePostEvent handles POST /api/events.
func (h *EventsHandler) HandlePostEvent(c *fiber.Ctx) error {
	const op = "api.post_event"
	var req eventRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return WrapKind(op, ErrBadRequest, err)
	}
	ev, err := req.toModel()
	if err != nil {
		return WrapKind(op, ErrBadRequest, err)
	}

	ack, err := h.deps.SubmitEvent(c.UserContext(), ev)
	switch {
	case errors.Is(err, service.ErrBackpressure):
		return WrapKind(op, ErrBackpressure, err)
	case errors.Is(err, service.ErrStopped):
		return WrapKind(op, ErrUnavailable, err)
	case errors.Is(err, model.ErrInvalidEvent):
		return WrapKind(op, ErrBadRequest, err)
	case err != nil:
		return Wrap(op, err)
	}

	if ack.Duplicate {
		return c.Status(fiber.StatusOK).JSON(ackResponse{Status: "duplicate", EventID: ack.EventID, Duplicate: true})
	}
	return c.Status(fiber.StatusAccepted).JSON(ackResponse{Status: "accepted", EventID: ack.EventID})
}
