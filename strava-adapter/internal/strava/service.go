package strava

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/Checker-Finance/activity-adapters/pkg/model"
)

// Repository is what the service needs from the API client.
type Repository interface {
	FetchAthleteProfile(ctx context.Context) (*model.AthleteProfile, error)
	FetchActivities(ctx context.Context, limit int) (*ActivityBatch, error)
}

// Service is the single entry point used by the HTTP API and the sync job.
type Service struct {
	logger *zap.Logger
	repo   Repository
}

func NewService(logger *zap.Logger, repo Repository) *Service {
	return &Service{logger: logger, repo: repo}
}

// Profile returns the normalized athlete profile.
func (s *Service) Profile(ctx context.Context) (*model.AthleteProfile, error) {
	return s.repo.FetchAthleteProfile(ctx)
}

// Activities fetches, normalizes and summarizes the latest limit activities.
// Records whose start date could not be parsed are kept with the zero sentinel
// and reported once through the unparsed_start_date warning.
func (s *Service) Activities(ctx context.Context, limit int) (*model.ActivityReport, error) {
	batch, err := s.repo.FetchActivities(ctx, limit)
	if err != nil {
		return nil, err
	}

	records := Normalize(batch.Activities)

	warnings := append([]model.Warning{}, batch.Warnings...)
	if n := countMissingStartDates(records); n > 0 {
		warnings = append(warnings, model.Warning{
			Code:    model.WarnUnparsedStartDate,
			Message: fmt.Sprintf("%d of %d activities have no parseable start_date", n, len(records)),
		})
		s.logger.Warn("strava.activities.unparsed_start_date",
			zap.Int("count", n),
			zap.Int("total", len(records)))
	}

	s.logger.Debug("strava.activities.normalized",
		zap.Int("count", len(records)),
		zap.Int("warnings", len(warnings)))

	return &model.ActivityReport{
		Activities: records,
		Summary:    Summarize(records),
		Warnings:   warnings,
	}, nil
}

func countMissingStartDates(records []model.ActivityRecord) int {
	n := 0
	for _, r := range records {
		if !r.HasStartDate() {
			n++
		}
	}
	return n
}
