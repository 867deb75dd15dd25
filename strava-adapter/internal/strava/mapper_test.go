package strava

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Checker-Finance/activity-adapters/pkg/model"
)

func raws(t *testing.T, items ...string) []RawActivity {
	t.Helper()
	out := make([]RawActivity, 0, len(items))
	for _, s := range items {
		out = append(out, RawActivity(s))
	}
	return out
}

// ─── Unit conversion ─────────────────────────────────────────────────────────

func TestNormalize_UnitConversion(t *testing.T) {
	recs := Normalize(raws(t, `{"distance":5000,"moving_time":1800,"average_speed":2.78}`))
	require.Len(t, recs, 1)

	assert.Equal(t, 5.0, recs[0].DistanceKm)
	assert.Equal(t, 30.0, recs[0].MovingTimeMin)
	assert.Equal(t, 10.01, recs[0].AverageSpeedKmh)
}

func TestNormalize_FullActivity(t *testing.T) {
	recs := Normalize(raws(t, `{
		"id": 12345678987654321,
		"name": "Morning Run",
		"type": "Run",
		"start_date": "2024-01-15T06:30:00Z",
		"distance": 10234.7,
		"moving_time": 3125,
		"total_elevation_gain": 87.456,
		"average_speed": 3.275,
		"average_heartrate": 152.3,
		"max_heartrate": 181
	}`))
	require.Len(t, recs, 1)
	r := recs[0]

	assert.Equal(t, int64(12345678987654321), r.ID)
	assert.Equal(t, "Morning Run", r.Name)
	assert.Equal(t, "Run", r.Type)
	assert.Equal(t, time.Date(2024, 1, 15, 6, 30, 0, 0, time.UTC), r.StartDate)
	assert.Equal(t, 10.23, r.DistanceKm)
	assert.Equal(t, 52.08, r.MovingTimeMin)
	assert.Equal(t, 87.46, r.TotalElevationGain)
	assert.Equal(t, 11.79, r.AverageSpeedKmh)
	require.NotNil(t, r.AverageHeartrate)
	assert.Equal(t, 152.3, *r.AverageHeartrate)
	require.NotNil(t, r.MaxHeartrate)
	assert.Equal(t, 181.0, *r.MaxHeartrate)
}

// ─── Totality ────────────────────────────────────────────────────────────────

func TestNormalize_DefaultsForMissingFields(t *testing.T) {
	want := model.ActivityRecord{
		Name: "Unnamed Activity",
		Type: "Unknown",
	}

	for _, in := range []string{`{}`, `null`, `42`, `"run"`, `[1,2]`, `{"name":null,"type":null}`, ``} {
		t.Run(in, func(t *testing.T) {
			recs := Normalize(raws(t, in))
			require.Len(t, recs, 1)
			assert.Equal(t, want, recs[0])
			assert.False(t, recs[0].HasStartDate())
			assert.Nil(t, recs[0].AverageHeartrate)
			assert.Nil(t, recs[0].MaxHeartrate)
		})
	}
}

func TestNormalize_MalformedFieldsFallBackIndividually(t *testing.T) {
	recs := Normalize(raws(t, `{
		"name": 17,
		"type": "Ride",
		"start_date": "yesterday",
		"distance": "abc",
		"moving_time": "600",
		"total_elevation_gain": {},
		"average_speed": true,
		"average_heartrate": "n/a",
		"max_heartrate": null
	}`))
	require.Len(t, recs, 1)
	r := recs[0]

	assert.Equal(t, "Unnamed Activity", r.Name)
	assert.Equal(t, "Ride", r.Type)
	assert.False(t, r.HasStartDate())
	assert.Zero(t, r.DistanceKm)
	assert.Equal(t, 10.0, r.MovingTimeMin, "numeric strings are accepted")
	assert.Zero(t, r.TotalElevationGain)
	assert.Zero(t, r.AverageSpeedKmh)
	assert.Nil(t, r.AverageHeartrate)
	assert.Nil(t, r.MaxHeartrate)
}

func TestNormalize_ClampsNegatives(t *testing.T) {
	recs := Normalize(raws(t, `{"distance":-5,"moving_time":-60,"average_speed":-1,"total_elevation_gain":-3.333}`))
	require.Len(t, recs, 1)

	assert.Zero(t, recs[0].DistanceKm)
	assert.Zero(t, recs[0].MovingTimeMin)
	assert.Zero(t, recs[0].AverageSpeedKmh)
	assert.Equal(t, -3.33, recs[0].TotalElevationGain, "elevation gain is not clamped")
}

func TestNormalize_BadRecordDoesNotAffectOthers(t *testing.T) {
	recs := Normalize(raws(t,
		`{"name":"First","start_date":"2024-01-15T06:30:00Z","distance":1000}`,
		`{"name":"Broken","start_date":"15/01/2024"}`,
		`not json at all`,
		`{"name":"Last","start_date":"2024-01-13T18:00:00.5Z","distance":2500}`,
	))
	require.Len(t, recs, 4)

	assert.Equal(t, "First", recs[0].Name)
	assert.True(t, recs[0].HasStartDate())
	assert.Equal(t, 1.0, recs[0].DistanceKm)

	assert.Equal(t, "Broken", recs[1].Name)
	assert.False(t, recs[1].HasStartDate())

	assert.Equal(t, "Unnamed Activity", recs[2].Name)

	assert.Equal(t, "Last", recs[3].Name)
	assert.Equal(t, time.Date(2024, 1, 13, 18, 0, 0, 500_000_000, time.UTC), recs[3].StartDate)
	assert.Equal(t, 2.5, recs[3].DistanceKm)
}

func TestNormalize_OffsetStartDateConvertedToUTC(t *testing.T) {
	recs := Normalize(raws(t, `{"start_date":"2024-01-15T08:30:00+02:00"}`))
	assert.Equal(t, time.Date(2024, 1, 15, 6, 30, 0, 0, time.UTC), recs[0].StartDate)
}

// ─── Purity ──────────────────────────────────────────────────────────────────

func TestNormalize_Idempotent(t *testing.T) {
	in := raws(t,
		`{"name":"A","distance":5000,"moving_time":1800,"average_speed":2.78,"average_heartrate":140}`,
		`{}`,
	)

	first := Normalize(in)
	second := Normalize(in)
	assert.Equal(t, first, second)

	// mutating a result must not leak into later calls
	*first[0].AverageHeartrate = 0
	third := Normalize(in)
	assert.Equal(t, 140.0, *third[0].AverageHeartrate)
}

func TestNormalize_PreservesOrderAndEmptyInput(t *testing.T) {
	recs := Normalize(raws(t, `{"name":"c"}`, `{"name":"a"}`, `{"name":"b"}`))
	require.Len(t, recs, 3)
	assert.Equal(t, []string{"c", "a", "b"}, []string{recs[0].Name, recs[1].Name, recs[2].Name})

	assert.Empty(t, Normalize(nil))
	assert.NotNil(t, Normalize(nil))
}

// ─── Rounding ────────────────────────────────────────────────────────────────

func TestRound2_HalfAwayFromZero(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"10.008", 10.01},
		{"0.125", 0.13},
		{"-0.125", -0.13},
		{"2.344", 2.34},
		{"7", 7},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, round2(decimal.RequireFromString(tt.in)))
		})
	}
}

// ─── Profile ─────────────────────────────────────────────────────────────────

func TestNormalizeProfile_MissingOptionalFields(t *testing.T) {
	p := NormalizeProfile(json.RawMessage(`{"firstname":"Jane","lastname":"Doe"}`))

	assert.Equal(t, "Jane Doe", p.Name)
	assert.Nil(t, p.TotalFollowers)
	assert.Nil(t, p.TotalFriends)
	assert.Nil(t, p.Username)
	assert.Nil(t, p.ProfileImage)
}

func TestNormalizeProfile_Full(t *testing.T) {
	p := NormalizeProfile(json.RawMessage(`{
		"id": 1,
		"firstname": "Jane",
		"lastname": "Doe",
		"username": "janedoe",
		"profile": "https://dgalywyr863hv.cloudfront.net/pictures/athletes/1/large.jpg",
		"follower_count": 120,
		"friend_count": 80
	}`))

	assert.Equal(t, "Jane Doe", p.Name)
	require.NotNil(t, p.Username)
	assert.Equal(t, "janedoe", *p.Username)
	require.NotNil(t, p.ProfileImage)
	assert.Contains(t, *p.ProfileImage, "large.jpg")
	require.NotNil(t, p.TotalFollowers)
	assert.Equal(t, 120, *p.TotalFollowers)
	require.NotNil(t, p.TotalFriends)
	assert.Equal(t, 80, *p.TotalFriends)
}

func TestNormalizeProfile_NameTrimming(t *testing.T) {
	assert.Equal(t, "Jane", NormalizeProfile(json.RawMessage(`{"firstname":"Jane"}`)).Name)
	assert.Equal(t, "Doe", NormalizeProfile(json.RawMessage(`{"lastname":"Doe"}`)).Name)
	assert.Equal(t, "", NormalizeProfile(json.RawMessage(`{}`)).Name)
	assert.Equal(t, "", NormalizeProfile(json.RawMessage(`"garbage"`)).Name)
}

func TestNormalizeProfile_MalformedCounts(t *testing.T) {
	p := NormalizeProfile(json.RawMessage(`{"follower_count":"many","friend_count":1.5,"username":null}`))
	assert.Nil(t, p.TotalFollowers)
	assert.Nil(t, p.TotalFriends)
	assert.Nil(t, p.Username)
}

// ─── Summary ─────────────────────────────────────────────────────────────────

func TestSummarize(t *testing.T) {
	recs := []model.ActivityRecord{
		{Type: "Run", DistanceKm: 5.0, MovingTimeMin: 30.0, AverageSpeedKmh: 10.01},
		{Type: "Ride", DistanceKm: 20.55, MovingTimeMin: 45.5, AverageSpeedKmh: 27.1},
		{Type: "Run", DistanceKm: 3.1, MovingTimeMin: 20.25, AverageSpeedKmh: 9.19},
	}

	s := Summarize(recs)
	assert.Equal(t, 3, s.Count)
	assert.Equal(t, 28.65, s.TotalDistanceKm)
	assert.Equal(t, 95.75, s.TotalMovingMin)
	assert.Equal(t, 15.43, s.AverageSpeedKmh)
	assert.Equal(t, map[string]int{"Run": 2, "Ride": 1}, s.CountByType)
}

func TestSummarize_Empty(t *testing.T) {
	s := Summarize(nil)
	assert.Zero(t, s.Count)
	assert.Zero(t, s.AverageSpeedKmh)
	assert.NotNil(t, s.CountByType)
}
