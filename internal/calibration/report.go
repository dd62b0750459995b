package calibration

import "fmt"

// Outcome is the result of auditing one fund for one day
type Outcome string

const (
	OutcomeUpdated         Outcome = "updated"
	OutcomeAlreadyAudited  Outcome = "skipped_already_audited"
	OutcomeNotYetPublished Outcome = "skipped_official_not_yet_published"
	OutcomeMissingSnapshot Outcome = "skipped_missing_snapshot_or_code"
)

// FundOutcome is one fund's audit result. Old/New/Official/Mixed are meaningful
// only when updated, and are always encoded: 0 is a valid official growth.
type FundOutcome struct {
	Fund     string  `json:"fund"`
	Outcome  Outcome `json:"outcome"`
	Old      float64 `json:"old"`
	New      float64 `json:"new"`
	Official float64 `json:"official"`
	Mixed    float64 `json:"mixed"`
	Reason   string  `json:"reason,omitempty"`
}

// Report summarizes one nightly audit run
type Report struct {
	Day      string        `json:"day"`
	Outcomes []FundOutcome `json:"outcomes"`
}

// Count returns how many funds ended with outcome o
func (r *Report) Count(o Outcome) int {
	n := 0
	for _, fo := range r.Outcomes {
		if fo.Outcome == o {
			n++
		}
	}
	return n
}

// Updated returns the updated outcomes only
func (r *Report) Updated() []FundOutcome {
	var out []FundOutcome
	for _, fo := range r.Outcomes {
		if fo.Outcome == OutcomeUpdated {
			out = append(out, fo)
		}
	}
	return out
}

// Summary is a one-line description for logs and CLI output
func (r *Report) Summary() string {
	return fmt.Sprintf("day=%s updated=%d already_audited=%d not_yet_published=%d missing=%d",
		r.Day,
		r.Count(OutcomeUpdated),
		r.Count(OutcomeAlreadyAudited),
		r.Count(OutcomeNotYetPublished),
		r.Count(OutcomeMissingSnapshot),
	)
}
