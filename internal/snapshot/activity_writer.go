package snapshot

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"github.com/Checker-Finance/activity-adapters/pkg/model"
)

// DBExecutor defines the subset of pgxpool.Pool the writer needs.
type DBExecutor interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

const upsertActivityQuery = `
	INSERT INTO strava.activity_snapshot (
		activity_id,
		athlete,
		name,
		activity_type,
		start_date,
		distance_km,
		moving_time_min,
		total_elevation_gain,
		average_speed_kmh,
		average_heartrate,
		max_heartrate,
		source,
		synced_at
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NOW())
	ON CONFLICT (activity_id)
	DO UPDATE SET
		name = EXCLUDED.name,
		activity_type = EXCLUDED.activity_type,
		start_date = EXCLUDED.start_date,
		distance_km = EXCLUDED.distance_km,
		moving_time_min = EXCLUDED.moving_time_min,
		total_elevation_gain = EXCLUDED.total_elevation_gain,
		average_speed_kmh = EXCLUDED.average_speed_kmh,
		average_heartrate = EXCLUDED.average_heartrate,
		max_heartrate = EXCLUDED.max_heartrate,
		source = EXCLUDED.source,
		synced_at = EXCLUDED.synced_at;
`

// ActivityWriter upserts normalized activities into strava.activity_snapshot.
type ActivityWriter struct {
	db     DBExecutor
	logger *zap.Logger
	source string
}

// NewActivityWriter constructs a writer. source identifies the adapter writing rows.
func NewActivityWriter(db DBExecutor, logger *zap.Logger, source string) *ActivityWriter {
	return &ActivityWriter{
		db:     db,
		logger: logger,
		source: source,
	}
}

// UpsertResult counts what a single UpsertActivities call did.
type UpsertResult struct {
	Stored  int
	Skipped int
}

// UpsertActivities writes each record keyed by activity id. Records without an id
// cannot be keyed and are skipped. A missing start date is stored as NULL.
// The first database error aborts the batch.
func (w *ActivityWriter) UpsertActivities(ctx context.Context, athlete string, records []model.ActivityRecord) (UpsertResult, error) {
	var res UpsertResult
	if w.db == nil {
		return res, fmt.Errorf("activity writer has no database")
	}

	for _, rec := range records {
		if rec.ID == 0 {
			res.Skipped++
			w.logger.Warn("snapshot.activity_skipped_no_id",
				zap.String("athlete", athlete),
				zap.String("name", rec.Name))
			continue
		}

		var startDate any
		if rec.HasStartDate() {
			startDate = rec.StartDate
		}

		_, err := w.db.Exec(ctx, upsertActivityQuery,
			rec.ID,                 // activity_id
			athlete,                // athlete
			rec.Name,               // name
			rec.Type,               // activity_type
			startDate,              // start_date
			rec.DistanceKm,         // distance_km
			rec.MovingTimeMin,      // moving_time_min
			rec.TotalElevationGain, // total_elevation_gain
			rec.AverageSpeedKmh,    // average_speed_kmh
			rec.AverageHeartrate,   // average_heartrate
			rec.MaxHeartrate,       // max_heartrate
			w.source,               // source
		)
		if err != nil {
			w.logger.Error("snapshot.activity_upsert_failed",
				zap.Int64("activity_id", rec.ID),
				zap.String("athlete", athlete),
				zap.Error(err))
			return res, fmt.Errorf("upsert activity %d: %w", rec.ID, err)
		}
		res.Stored++
	}

	w.logger.Info("snapshot.activities_upserted",
		zap.String("athlete", athlete),
		zap.Int("stored", res.Stored),
		zap.Int("skipped", res.Skipped))
	return res, nil
}
