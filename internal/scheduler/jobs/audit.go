package jobs

import (
	"context"
	"errors"
	"fmt"

	"github.com/wonny/hawkeye/internal/calibration"
	"github.com/wonny/hawkeye/internal/scheduler"
	"github.com/wonny/hawkeye/pkg/logger"
)

// Auditor runs the nightly calibration
type Auditor interface {
	RunNightlyAudit(ctx context.Context) (*calibration.Report, error)
}

// AuditJob calibrates fund factors once official figures are out
// Schedule: daily 22:30 (official NAVs are published in the evening)
type AuditJob struct {
	engine   Auditor
	schedule string
	logger   *logger.Logger
}

// NewAuditJob creates a new audit job; schedule is a cron expression with seconds
func NewAuditJob(e Auditor, schedule string, log *logger.Logger) *AuditJob {
	return &AuditJob{
		engine:   e,
		schedule: schedule,
		logger:   log,
	}
}

// Name returns the job name
func (j *AuditJob) Name() string {
	return "nightly_audit"
}

// Schedule returns the cron schedule
func (j *AuditJob) Schedule() string {
	return j.schedule
}

// Run executes the audit. Having no snapshot yet is not a failure;
// a version conflict is, and gets retried.
func (j *AuditJob) Run(ctx context.Context) (scheduler.Coverage, error) {
	j.logger.Info("Starting scheduled nightly audit")

	report, err := j.engine.RunNightlyAudit(ctx)
	if errors.Is(err, calibration.ErrNoSnapshot) {
		j.logger.Warn("No snapshot to audit yet")
		return scheduler.Coverage{}, nil
	}
	if err != nil {
		return scheduler.Coverage{}, fmt.Errorf("audit: %w", err)
	}

	counts := map[string]int{
		"updated":           report.Count(calibration.OutcomeUpdated),
		"already_audited":   report.Count(calibration.OutcomeAlreadyAudited),
		"not_yet_published": report.Count(calibration.OutcomeNotYetPublished),
		"missing":           report.Count(calibration.OutcomeMissingSnapshot),
	}

	fields := map[string]interface{}{"day": report.Day}
	for k, v := range counts {
		fields[k] = v
	}
	j.logger.WithFields(fields).Info("Scheduled audit completed")

	return scheduler.Coverage{Day: report.Day, Counts: counts}, nil
}
