package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestActivityRecord_MarshalJSON(t *testing.T) {
	hr := 150.5
	rec := ActivityRecord{
		ID:               7,
		Name:             "Morning Run",
		Type:             "Run",
		StartDate:        time.Date(2024, 1, 15, 6, 30, 0, 0, time.UTC),
		DistanceKm:       5,
		AverageHeartrate: &hr,
	}

	data, err := json.Marshal(rec)
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "2024-01-15T06:30:00Z", got["start_date"])
	assert.Equal(t, "Morning Run", got["name"])
	assert.InDelta(t, 150.5, got["average_heartrate"], 0)
	assert.Nil(t, got["max_heartrate"])
	assert.Contains(t, got, "max_heartrate")
}

func TestActivityRecord_ZeroStartDateIsNull(t *testing.T) {
	rec := ActivityRecord{Name: "Unnamed Activity", Type: "Unknown"}
	assert.False(t, rec.HasStartDate())

	data, err := json.Marshal(rec)
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Contains(t, got, "start_date")
	assert.Nil(t, got["start_date"])
}
