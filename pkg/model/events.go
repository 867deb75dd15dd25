package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// TopicActivitySynced is the default subject for sync completion events.
const TopicActivitySynced = "evt.activity.synced.v1"

// Envelope wraps every event the adapters publish to NATS.
type Envelope struct {
	ID            uuid.UUID       `json:"id"`
	CorrelationID uuid.UUID       `json:"correlation_id"`
	Topic         string          `json:"topic"`
	EventType     string          `json:"event_type"`
	Version       string          `json:"version"`
	Source        string          `json:"source"`
	Timestamp     time.Time       `json:"timestamp"`
	Payload       json.RawMessage `json:"payload"`
}

// ActivitySyncedEvent is emitted after a sync run stored a batch of activities.
type ActivitySyncedEvent struct {
	Athlete     string    `json:"athlete"`
	Fetched     int       `json:"fetched"`
	Stored      int       `json:"stored"`
	Skipped     int       `json:"skipped"`
	Warnings    []string  `json:"warnings,omitempty"`
	LatestStart time.Time `json:"latest_start,omitzero"`
	DurationMS  int64     `json:"duration_ms"`
	SyncedAt    time.Time `json:"synced_at"`
}
