package strava

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Checker-Finance/activity-adapters/pkg/model"
)

const (
	defaultActivityName = "Unnamed Activity"
	defaultActivityType = "Unknown"
)

var (
	metersPerKm   = decimal.NewFromInt(1000)
	secondsPerMin = decimal.NewFromInt(60)
	msToKmh       = decimal.RequireFromString("3.6")
)

// Normalize maps each raw activity to a fully populated record, preserving
// order. It never fails: a missing or malformed field takes its default and a
// malformed element becomes an all-default record.
func Normalize(raws []RawActivity) []model.ActivityRecord {
	out := make([]model.ActivityRecord, 0, len(raws))
	for _, raw := range raws {
		out = append(out, normalizeActivity(raw))
	}
	return out
}

func normalizeActivity(raw RawActivity) model.ActivityRecord {
	fields := decodeObject(raw)

	rec := model.ActivityRecord{
		ID:        int64Field(fields, "id"),
		Name:      stringField(fields, "name", defaultActivityName),
		Type:      stringField(fields, "type", defaultActivityType),
		StartDate: timeField(fields, "start_date"),
	}

	if d, ok := decimalField(fields, "distance"); ok {
		rec.DistanceKm = nonNegative(round2(d.Div(metersPerKm)))
	}
	if d, ok := decimalField(fields, "moving_time"); ok {
		rec.MovingTimeMin = nonNegative(round2(d.Div(secondsPerMin)))
	}
	if d, ok := decimalField(fields, "total_elevation_gain"); ok {
		rec.TotalElevationGain = round2(d)
	}
	if d, ok := decimalField(fields, "average_speed"); ok {
		rec.AverageSpeedKmh = nonNegative(round2(d.Mul(msToKmh)))
	}
	rec.AverageHeartrate = optionalFloat(fields, "average_heartrate")
	rec.MaxHeartrate = optionalFloat(fields, "max_heartrate")

	return rec
}

// NormalizeProfile maps a GET /athlete body. Name is "first last" trimmed;
// every other field is nil when absent or malformed.
func NormalizeProfile(raw json.RawMessage) model.AthleteProfile {
	fields := decodeObject(raw)

	first := stringField(fields, "firstname", "")
	last := stringField(fields, "lastname", "")

	return model.AthleteProfile{
		Name:           strings.TrimSpace(first + " " + last),
		Username:       optionalString(fields, "username"),
		ProfileImage:   optionalString(fields, "profile"),
		TotalFollowers: optionalInt(fields, "follower_count"),
		TotalFriends:   optionalInt(fields, "friend_count"),
	}
}

// Summarize aggregates normalized records for the dashboard header.
func Summarize(records []model.ActivityRecord) model.ActivitySummary {
	sum := model.ActivitySummary{
		Count:       len(records),
		CountByType: make(map[string]int),
	}
	if len(records) == 0 {
		return sum
	}

	var dist, moving, speed decimal.Decimal
	for _, r := range records {
		dist = dist.Add(decimal.NewFromFloat(r.DistanceKm))
		moving = moving.Add(decimal.NewFromFloat(r.MovingTimeMin))
		speed = speed.Add(decimal.NewFromFloat(r.AverageSpeedKmh))
		sum.CountByType[r.Type]++
	}

	sum.TotalDistanceKm = round2(dist)
	sum.TotalMovingMin = round2(moving)
	sum.AverageSpeedKmh = round2(speed.Div(decimal.NewFromInt(int64(len(records)))))
	return sum
}

// round2 rounds half away from zero on the decimal representation, so
// 10.008 becomes 10.01 regardless of binary float error.
func round2(d decimal.Decimal) float64 {
	return d.Round(2).InexactFloat64()
}

func nonNegative(f float64) float64 {
	if f < 0 {
		return 0
	}
	return f
}

// decodeObject returns nil for anything that is not a JSON object.
func decodeObject(raw json.RawMessage) map[string]json.RawMessage {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil
	}
	return fields
}

func stringField(fields map[string]json.RawMessage, key, def string) string {
	if s := optionalString(fields, key); s != nil && strings.TrimSpace(*s) != "" {
		return *s
	}
	return def
}

func optionalString(fields map[string]json.RawMessage, key string) *string {
	raw, ok := fields[key]
	if !ok {
		return nil
	}
	var s *string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil
	}
	return s
}

// decimalField accepts JSON numbers and numeric strings.
func decimalField(fields map[string]json.RawMessage, key string) (decimal.Decimal, bool) {
	raw, ok := fields[key]
	if !ok {
		return decimal.Zero, false
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil || n == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(string(n))
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

func optionalFloat(fields map[string]json.RawMessage, key string) *float64 {
	d, ok := decimalField(fields, key)
	if !ok {
		return nil
	}
	f := d.InexactFloat64()
	return &f
}

func optionalInt(fields map[string]json.RawMessage, key string) *int {
	d, ok := decimalField(fields, key)
	if !ok || !d.IsInteger() {
		return nil
	}
	i := int(d.IntPart())
	return &i
}

func int64Field(fields map[string]json.RawMessage, key string) int64 {
	raw, ok := fields[key]
	if !ok {
		return 0
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return 0
	}
	id, err := strconv.ParseInt(string(n), 10, 64)
	if err != nil {
		return 0
	}
	return id
}

// timeField parses an ISO-8601 timestamp. Missing or unparseable values yield
// the zero time, which ActivityRecord.HasStartDate reports as absent.
func timeField(fields map[string]json.RawMessage, key string) time.Time {
	s := optionalString(fields, key)
	if s == nil {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(*s))
	if err != nil {
		return time.Time{}
	}
	return t.UTC()
}
