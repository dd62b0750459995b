package jobs

import (
	"context"
	"fmt"

	"github.com/wonny/hawkeye/internal/engine"
	"github.com/wonny/hawkeye/internal/scheduler"
	"github.com/wonny/hawkeye/pkg/logger"
)

// Snapshotter takes the end-of-day snapshot
type Snapshotter interface {
	TakeEndOfDaySnapshot(ctx context.Context) (*engine.SnapshotResult, error)
}

// SnapshotJob records the day's mixed estimates after the close
// Schedule: weekdays 15:05 (market closes 15:00)
type SnapshotJob struct {
	engine   Snapshotter
	schedule string
	logger   *logger.Logger
}

// NewSnapshotJob creates a new snapshot job; schedule is a cron expression with seconds
func NewSnapshotJob(e Snapshotter, schedule string, log *logger.Logger) *SnapshotJob {
	return &SnapshotJob{
		engine:   e,
		schedule: schedule,
		logger:   log,
	}
}

// Name returns the job name
func (j *SnapshotJob) Name() string {
	return "eod_snapshot"
}

// Schedule returns the cron schedule
func (j *SnapshotJob) Schedule() string {
	return j.schedule
}

// Run records the snapshot. Missing quotes and version conflicts are returned
// so the scheduler retries them.
func (j *SnapshotJob) Run(ctx context.Context) (scheduler.Coverage, error) {
	j.logger.Info("Starting scheduled end-of-day snapshot")

	result, err := j.engine.TakeEndOfDaySnapshot(ctx)
	if err != nil {
		return scheduler.Coverage{}, fmt.Errorf("snapshot: %w", err)
	}

	j.logger.WithFields(map[string]interface{}{
		"day":   result.Day,
		"funds": len(result.Values),
	}).Info("Scheduled snapshot completed")

	return scheduler.Coverage{
		Day:    result.Day,
		Counts: map[string]int{"funds": len(result.Values)},
	}, nil
}
