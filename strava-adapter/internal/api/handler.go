package api

import (
	"context"
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/Checker-Finance/activity-adapters/pkg/model"
	"github.com/Checker-Finance/activity-adapters/strava-adapter/internal/strava"
)

// ActivityService defines the operations the handler serves.
type ActivityService interface {
	Profile(ctx context.Context) (*model.AthleteProfile, error)
	Activities(ctx context.Context, limit int) (*model.ActivityReport, error)
}

// StravaHandler serves athlete and activity data to the dashboard.
type StravaHandler struct {
	logger       *zap.Logger
	service      ActivityService
	defaultLimit int
}

// NewStravaHandler creates a new StravaHandler. defaultLimit applies when the
// request has no limit parameter.
func NewStravaHandler(logger *zap.Logger, service ActivityService, defaultLimit int) *StravaHandler {
	if defaultLimit <= 0 {
		defaultLimit = 30
	}
	return &StravaHandler{
		logger:       logger,
		service:      service,
		defaultLimit: defaultLimit,
	}
}

// GetAthlete handles GET /api/v1/athlete.
func (h *StravaHandler) GetAthlete(c *fiber.Ctx) error {
	profile, err := h.service.Profile(c.UserContext())
	if err != nil {
		h.logger.Error("strava.get_athlete.failed", zap.Error(err))
		return writeError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(profile)
}

// GetActivities handles GET /api/v1/activities?limit=N.
func (h *StravaHandler) GetActivities(c *fiber.Ctx) error {
	limit := h.defaultLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
				Error: "limit must be a positive integer",
			})
		}
		limit = n
	}

	report, err := h.service.Activities(c.UserContext(), limit)
	if err != nil {
		h.logger.Error("strava.get_activities.failed",
			zap.Int("limit", limit),
			zap.Error(err))
		return writeError(c, err)
	}

	activities := report.Activities
	if activities == nil {
		activities = []model.ActivityRecord{}
	}
	warnings := report.Warnings
	if warnings == nil {
		warnings = []model.Warning{}
	}
	return c.Status(fiber.StatusOK).JSON(ActivitiesResponse{
		Activities: activities,
		Summary:    report.Summary,
		Warnings:   warnings,
	})
}

// writeError maps the domain error kinds to HTTP status codes.
func writeError(c *fiber.Ctx, err error) error {
	resp := ErrorResponse{
		Error:       err.Error(),
		Reauthorize: strava.NeedsReauthorization(err),
	}

	var (
		authErr      *strava.AuthError
		cfgErr       *strava.ConfigurationError
		remoteErr    *strava.RemoteServiceError
		transportErr *strava.TransportError
	)

	status := fiber.StatusInternalServerError
	switch {
	case errors.Is(err, strava.ErrInvalidLimit):
		status = fiber.StatusBadRequest
	case errors.As(err, &authErr):
		status = fiber.StatusUnauthorized
	case errors.As(err, &remoteErr):
		status = fiber.StatusBadGateway
		resp.UpstreamStatus = remoteErr.Status
	case errors.As(err, &transportErr):
		status = fiber.StatusGatewayTimeout
	case errors.As(err, &cfgErr):
		status = fiber.StatusInternalServerError
	}

	return c.Status(status).JSON(resp)
}
