package api

import (
	"github.com/Checker-Finance/activity-adapters/pkg/model"
)

// ErrorResponse is returned for every failed request. Reauthorize tells the
// dashboard to send the user through the authorization flow again.
type ErrorResponse struct {
	Error          string `json:"error"`
	Reauthorize    bool   `json:"reauthorize"`
	UpstreamStatus int    `json:"upstreamStatus,omitempty"`
}

// ActivitiesResponse is the body of GET /api/v1/activities.
type ActivitiesResponse struct {
	Activities []model.ActivityRecord `json:"activities"`
	Summary    model.ActivitySummary  `json:"summary"`
	Warnings   []model.Warning        `json:"warnings"`
}
