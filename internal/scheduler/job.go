package scheduler

import (
	"context"
	"time"
)

// Job represents a scheduled job
// ⭐ SSOT: 스케줄 작업 인터페이스는 여기서만 정의
type Job interface {
	// Name returns the job name
	Name() string

	// Run executes the job and reports the trading day it covered.
	// A zero Coverage with nil error means there was nothing to do.
	Run(ctx context.Context) (Coverage, error)

	// Schedule returns the cron schedule expression, with seconds
	// Examples: "0 5 15 * * 1-5" (weekdays 15:05:00)
	//           "0 30 22 * * *" (daily 22:30:00)
	Schedule() string
}

// Coverage is what one run did: the trading day and per-outcome fund counts
type Coverage struct {
	Day    string         `json:"day,omitempty"`
	Counts map[string]int `json:"counts,omitempty"`
}

// JobResult is one run of a job, retries included
type JobResult struct {
	JobName   string        `json:"job_name"`
	Coverage  Coverage      `json:"coverage"`
	Attempts  int           `json:"attempts"`
	StartTime time.Time     `json:"start_time"`
	EndTime   time.Time     `json:"end_time"`
	Duration  time.Duration `json:"duration"`
	Success   bool          `json:"success"`
	Error     string        `json:"error,omitempty"`
}

// maxHistory caps the runs kept per job (about a quarter of trading days)
const maxHistory = 64

// JobHistory keeps the recent runs of one job, oldest first
type JobHistory struct {
	Results []JobResult
}

// AddResult appends a run and drops the oldest past maxHistory
func (h *JobHistory) AddResult(result JobResult) {
	h.Results = append(h.Results, result)

	if len(h.Results) > maxHistory {
		h.Results = h.Results[len(h.Results)-maxHistory:]
	}
}

// Latest returns the last n runs
func (h *JobHistory) Latest(n int) []JobResult {
	if n > len(h.Results) {
		n = len(h.Results)
	}
	if n <= 0 {
		return []JobResult{}
	}

	return h.Results[len(h.Results)-n:]
}

// Failures returns the runs that gave up after all retries
func (h *JobHistory) Failures() []JobResult {
	failed := make([]JobResult, 0)
	for _, result := range h.Results {
		if !result.Success {
			failed = append(failed, result)
		}
	}
	return failed
}

// SuccessRate returns the share of successful runs (0.0 - 1.0)
func (h *JobHistory) SuccessRate() float64 {
	if len(h.Results) == 0 {
		return 0.0
	}

	return float64(len(h.Results)-len(h.Failures())) / float64(len(h.Results))
}

// LastCoveredDay returns the latest trading day a successful run covered, "" if none
func (h *JobHistory) LastCoveredDay() string {
	last := ""
	for _, result := range h.Results {
		// "YYYY-MM-DD" 문자열 비교 = 날짜 비교
		if result.Success && result.Coverage.Day > last {
			last = result.Coverage.Day
		}
	}
	return last
}

// Covered reports whether a successful run covered day
func (h *JobHistory) Covered(day string) bool {
	if day == "" {
		return false
	}
	for _, result := range h.Results {
		if result.Success && result.Coverage.Day == day {
			return true
		}
	}
	return false
}
