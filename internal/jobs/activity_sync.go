package jobs

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Checker-Finance/activity-adapters/internal/snapshot"
	"github.com/Checker-Finance/activity-adapters/pkg/model"
)

// ActivityLoader produces a normalized report for the most recent activities.
type ActivityLoader interface {
	Activities(ctx context.Context, limit int) (*model.ActivityReport, error)
}

// ActivityUpserter persists normalized activities.
type ActivityUpserter interface {
	UpsertActivities(ctx context.Context, athlete string, records []model.ActivityRecord) (snapshot.UpsertResult, error)
}

// EventPublisher announces completed sync runs.
type EventPublisher interface {
	PublishActivitySynced(ctx context.Context, evt model.ActivitySyncedEvent) error
}

// ActivitySync periodically pulls activities, stores them and emits an event.
// It never refreshes tokens itself; the loader's credential store does that lazily.
type ActivitySync struct {
	logger    *zap.Logger
	loader    ActivityLoader
	writer    ActivityUpserter
	publisher EventPublisher
	athlete   string
	limit     int
	interval  time.Duration
	onResult  func(result string)

	stopOnce sync.Once
	stopCh   chan struct{}
	now      func() time.Time
}

// NewActivitySync constructs the job. writer and publisher are optional.
func NewActivitySync(
	logger *zap.Logger,
	loader ActivityLoader,
	writer ActivityUpserter,
	publisher EventPublisher,
	athlete string,
	limit int,
	interval time.Duration,
) *ActivitySync {
	return &ActivitySync{
		logger:    logger,
		loader:    loader,
		writer:    writer,
		publisher: publisher,
		athlete:   athlete,
		limit:     limit,
		interval:  interval,
		onResult:  func(string) {},
		stopCh:    make(chan struct{}),
		now:       time.Now,
	}
}

// OnResult registers a hook receiving "success", "empty" or "error" per run.
func (s *ActivitySync) OnResult(fn func(result string)) *ActivitySync {
	if fn != nil {
		s.onResult = fn
	}
	return s
}

// Start runs the sync loop until Stop is called or ctx is canceled.
// The first run happens immediately.
func (s *ActivitySync) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("activity_sync.started",
		zap.Duration("interval", s.interval),
		zap.Int("limit", s.limit))

	_ = s.RunOnce(ctx)

	for {
		select {
		case <-ticker.C:
			_ = s.RunOnce(ctx)
		case <-s.stopCh:
			s.logger.Info("activity_sync.stopped", zap.String("reason", "manual stop"))
			return
		case <-ctx.Done():
			s.logger.Info("activity_sync.stopped", zap.String("reason", "context canceled"))
			return
		}
	}
}

// Stop gracefully halts the loop. Safe to call more than once.
func (s *ActivitySync) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
}

// RunOnce executes one sync cycle and returns the first fatal error.
// Publishing failures are logged but do not fail the run.
func (s *ActivitySync) RunOnce(ctx context.Context) error {
	start := s.now()

	report, err := s.loader.Activities(ctx, s.limit)
	if err != nil {
		s.logger.Error("activity_sync.fetch_failed", zap.String("athlete", s.athlete), zap.Error(err))
		s.onResult("error")
		return err
	}

	evt := model.ActivitySyncedEvent{
		Athlete:  s.athlete,
		Fetched:  len(report.Activities),
		Warnings: report.WarningCodes(),
	}
	for _, rec := range report.Activities {
		if rec.StartDate.After(evt.LatestStart) {
			evt.LatestStart = rec.StartDate
		}
	}

	if s.writer != nil && len(report.Activities) > 0 {
		res, err := s.writer.UpsertActivities(ctx, s.athlete, report.Activities)
		evt.Stored, evt.Skipped = res.Stored, res.Skipped
		if err != nil {
			s.logger.Error("activity_sync.store_failed", zap.String("athlete", s.athlete), zap.Error(err))
			s.onResult("error")
			return err
		}
	}

	evt.SyncedAt = s.now().UTC()
	evt.DurationMS = evt.SyncedAt.Sub(start).Milliseconds()

	if s.publisher != nil {
		if err := s.publisher.PublishActivitySynced(ctx, evt); err != nil {
			s.logger.Warn("activity_sync.nats_publish_failed", zap.Error(err))
		}
	}

	result := "success"
	if evt.Fetched == 0 {
		result = "empty"
	}
	s.onResult(result)

	s.logger.Info("activity_sync.success",
		zap.String("athlete", s.athlete),
		zap.Int("fetched", evt.Fetched),
		zap.Int("stored", evt.Stored),
		zap.Int("skipped", evt.Skipped),
		zap.Strings("warnings", evt.Warnings),
		zap.Int64("duration_ms", evt.DurationMS))
	return nil
}
