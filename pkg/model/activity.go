package model

import (
	"encoding/json"
	"time"
)

// ActivityRecord is the normalized projection of one remote activity.
// Every field is populated; numeric fields are rounded to two decimals.
type ActivityRecord struct {
	ID                 int64     `json:"id"`
	Name               string    `json:"name"`
	Type               string    `json:"type"`
	StartDate          time.Time `json:"start_date"`
	DistanceKm         float64   `json:"distance_km"`
	MovingTimeMin      float64   `json:"moving_time_min"`
	TotalElevationGain float64   `json:"total_elevation_gain"`
	AverageSpeedKmh    float64   `json:"average_speed_kmh"`
	AverageHeartrate   *float64  `json:"average_heartrate"`
	MaxHeartrate       *float64  `json:"max_heartrate"`
}

// HasStartDate reports whether StartDate was parsed from the source. The zero
// time is the sentinel for a missing or unparseable start date.
func (r ActivityRecord) HasStartDate() bool {
	return !r.StartDate.IsZero()
}

// MarshalJSON renders the zero start date as null.
func (r ActivityRecord) MarshalJSON() ([]byte, error) {
	type alias ActivityRecord
	out := struct {
		alias
		StartDate *time.Time `json:"start_date"`
	}{alias: alias(r)}
	if r.HasStartDate() {
		out.StartDate = &r.StartDate
	}
	return json.Marshal(out)
}

// AthleteProfile is the normalized athlete identity. Optional fields are nil
// when the source omits them.
type AthleteProfile struct {
	Name           string  `json:"name"`
	Username       *string `json:"username"`
	ProfileImage   *string `json:"profile_image"`
	TotalFollowers *int    `json:"total_followers"`
	TotalFriends   *int    `json:"total_friends"`
}

// ActivitySummary aggregates a batch of records for the dashboard.
type ActivitySummary struct {
	Count           int            `json:"count"`
	TotalDistanceKm float64        `json:"total_distance_km"`
	TotalMovingMin  float64        `json:"total_moving_time_min"`
	AverageSpeedKmh float64        `json:"average_speed_kmh"`
	CountByType     map[string]int `json:"count_by_type"`
}

// Warning is an observable, non-fatal condition attached to a result.
type Warning struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

const (
	WarnNoActivities      = "no_activities"
	WarnUnparsedStartDate = "unparsed_start_date"
)

// ActivityReport is what the dashboard and the sync job consume.
type ActivityReport struct {
	Activities []ActivityRecord `json:"activities"`
	Summary    ActivitySummary  `json:"summary"`
	Warnings   []Warning        `json:"warnings"`
}

// WarningCodes flattens the warnings for logs and events.
func (r *ActivityReport) WarningCodes() []string {
	if len(r.Warnings) == 0 {
		return nil
	}
	codes := make([]string, 0, len(r.Warnings))
	for _, w := range r.Warnings {
		codes = append(codes, w.Code)
	}
	return codes
}
