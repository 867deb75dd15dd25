package api

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HealthChecker is any dependency that can report its own health.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// CredentialStatus reports on the token store.
type CredentialStatus interface {
	HealthChecker
	Durable() bool
	ExpiresAt() time.Time
}

// RegisterRoutes registers all HTTP routes on the Fiber app. nc and st may be
// nil when NATS or the shared store are not configured.
func RegisterRoutes(app *fiber.App, nc *nats.Conn, st HealthChecker, creds CredentialStatus, h *StravaHandler) {
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		checks := map[string]string{
			"credentials": "ok",
			"nats":        "disabled",
			"store":       "disabled",
		}
		status := "ok"
		code := fiber.StatusOK

		healthCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		if err := creds.HealthCheck(healthCtx); err != nil {
			checks["credentials"] = err.Error()
			status = "degraded"
			code = fiber.StatusServiceUnavailable
		}

		if nc != nil {
			checks["nats"] = "ok"
			if !nc.IsConnected() {
				checks["nats"] = "disconnected"
				status = "degraded"
				code = fiber.StatusServiceUnavailable
			} else if err := nc.FlushTimeout(1 * time.Second); err != nil {
				checks["nats"] = err.Error()
				status = "degraded"
				code = fiber.StatusServiceUnavailable
			}
		}

		if st != nil {
			checks["store"] = "ok"
			if err := st.HealthCheck(healthCtx); err != nil {
				checks["store"] = err.Error()
				status = "degraded"
				code = fiber.StatusServiceUnavailable
			}
		}

		return c.Status(code).JSON(fiber.Map{
			"status":            status,
			"checks":            checks,
			"credentialDurable": creds.Durable(),
			"tokenExpiresAt":    creds.ExpiresAt().UTC().Format(time.RFC3339),
		})
	})

	// API routes
	v1 := app.Group("/api/v1")
	v1.Get("/athlete", h.GetAthlete)
	v1.Get("/activities", h.GetActivities)
}
