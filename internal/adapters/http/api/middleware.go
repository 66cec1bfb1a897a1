package api

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/okian/podium/pkg/metrics"
)

// MetricsMiddleware records request counts and latency per route.
func MetricsMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		// The error handler has not run yet, so derive the final status here.
		status := c.Response().StatusCode()
		if err != nil {
			status, _ = classify(err)
		}

		endpoint := c.Route().Path
		if status == fiber.StatusNotFound && endpoint == "/" && c.Path() != "/" {
			endpoint = "unmatched"
		}
		durationMs := float64(time.Since(start).Microseconds()) / 1000
		code := strconv.Itoa(status)

		metrics.RecordHTTPRequest(endpoint, c.Method(), code)
		metrics.RecordHTTPRequestDuration(endpoint, c.Method(), code, durationMs)
		if status >= fiber.StatusBadRequest {
			metrics.RecordErrorByComponent("http", errorType(status))
		}
		return err
	}
}

// errorType returns a standardized error type based on HTTP status code.
func errorType(status int) string {
	switch {
	case status >= fiber.StatusInternalServerError:
		return "server_error"
	case status == fiber.StatusTooManyRequests:
		return "rate_limit"
	case status == fiber.StatusNotFound:
		return "not_found"
	default:
		return "client_error"
	}
}
