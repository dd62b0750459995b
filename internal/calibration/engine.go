package calibration

import (
	"context"
	"errors"
	"fmt"

	"github.com/wonny/hawkeye/internal/contracts"
	"github.com/wonny/hawkeye/internal/funds"
	"github.com/wonny/hawkeye/internal/snapshot"
	"github.com/wonny/hawkeye/internal/store"
	"github.com/wonny/hawkeye/pkg/logger"
)

// ErrNoSnapshot is returned when there is no snapshot day to audit
var ErrNoSnapshot = errors.New("no snapshot recorded yet")

// historyWriteAttempts bounds the reload-and-merge loop of the factor-history write
const historyWriteAttempts = 3

// Engine runs the nightly factor calibration against the latest snapshot
// ⭐ SSOT: 팩터 보정 로직은 여기서만
type Engine struct {
	funds     *funds.Repository
	snapshots *snapshot.Store
	history   *HistoryStore
	official  contracts.OfficialSource
	codes     map[string]string // fund name → official code fallback
	logger    *logger.Logger
}

// NewEngine creates a calibration engine.
// codes is consulted only for funds without an official_code of their own.
func NewEngine(
	fundRepo *funds.Repository,
	snapshots *snapshot.Store,
	history *HistoryStore,
	official contracts.OfficialSource,
	codes map[string]string,
	log *logger.Logger,
) *Engine {
	if codes == nil {
		codes = map[string]string{}
	}
	return &Engine{
		funds:     fundRepo,
		snapshots: snapshots,
		history:   history,
		official:  official,
		codes:     codes,
		logger:    log.WithComponent("calibration"),
	}
}

// Run audits every configured fund for the latest snapshot day.
// Per-fund skips are outcomes, not errors. A config version conflict fails
// the run before anything is written. Once the config is written the history
// merge is retried against a fresh read, so the dedup guard always follows
// the factor it protects.
func (e *Engine) Run(ctx context.Context) (*Report, error) {
	set, fundsVersion, err := e.funds.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load funds: %w", err)
	}

	snapshots, _, err := e.snapshots.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("load snapshots: %w", err)
	}
	day, ok := snapshots.Latest()
	if !ok {
		return nil, ErrNoSnapshot
	}

	history, historyVersion, err := e.history.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load factor history: %w", err)
	}

	report := &Report{Day: day, Outcomes: make([]FundOutcome, 0, len(set))}
	updates := make(map[string]float64)

	for _, name := range set.Names() {
		fund := set[name]
		outcome := e.auditFund(ctx, name, fund, day, snapshots, history)
		report.Outcomes = append(report.Outcomes, outcome)

		if outcome.Outcome == OutcomeUpdated {
			set[name] = fund.WithFactor(outcome.New)
			updates[name] = outcome.New
		}
	}

	if len(updates) == 0 {
		e.logger.WithField("day", day).Info("No fund updated, nothing written")
		return report, nil
	}

	// 1. 설정 문서 (시작 시점 버전으로 조건부 쓰기)
	if _, err := e.funds.Save(ctx, set, fundsVersion, "Audit Update "+day); err != nil {
		return report, fmt.Errorf("write fund config: %w", err)
	}

	// 2. 팩터 이력 병합 (충돌 시 다시 읽고 병합)
	if err := e.mergeHistory(ctx, history, historyVersion, day, updates); err != nil {
		return report, fmt.Errorf("write factor history: %w", err)
	}

	e.logger.WithFields(map[string]interface{}{
		"day":     day,
		"updated": len(updates),
		"total":   len(set),
	}).Info("Audit completed")

	return report, nil
}

// mergeHistory writes the day's updates, re-reading the history after a
// version conflict. Merging is additive, so a retry never drops another writer's entries.
func (e *Engine) mergeHistory(
	ctx context.Context,
	history contracts.DayFundValues,
	version, day string,
	updates map[string]float64,
) error {
	var err error
	for attempt := 1; attempt <= historyWriteAttempts; attempt++ {
		if attempt > 1 {
			history, version, err = e.history.Load(ctx)
			if err != nil {
				return err
			}
		}

		err = e.history.Merge(ctx, history, version, day, updates)
		if !errors.Is(err, store.ErrVersionConflict) {
			return err
		}

		e.logger.WithFields(map[string]interface{}{
			"day":     day,
			"attempt": attempt,
		}).Warn("Factor history changed underneath, merging again")
	}
	return err
}

// auditFund walks the per-fund state machine; the first matching guard wins
func (e *Engine) auditFund(
	ctx context.Context,
	name string,
	fund contracts.Fund,
	day string,
	snapshots, history contracts.DayFundValues,
) FundOutcome {
	log := e.logger.WithFields(map[string]interface{}{"fund": name, "day": day})

	if history.Has(day, name) {
		log.Debug("Already audited")
		return FundOutcome{Fund: name, Outcome: OutcomeAlreadyAudited}
	}

	mixed, ok := snapshots.Value(day, name)
	if !ok {
		return FundOutcome{Fund: name, Outcome: OutcomeMissingSnapshot, Reason: "no snapshot value"}
	}

	code := e.officialCode(name, fund)
	if code == "" {
		return FundOutcome{Fund: name, Outcome: OutcomeMissingSnapshot, Reason: "no official code"}
	}

	official, err := e.official.Fetch(ctx, code)
	if err != nil {
		if !errors.Is(err, contracts.ErrNotYetAvailable) {
			log.WithError(err).Warn("Official source failed")
		}
		log.Infof("⏳ %s: official not updated", name)
		return FundOutcome{Fund: name, Outcome: OutcomeNotYetPublished, Reason: "not yet available"}
	}
	if official.IsStaleFor(day) {
		log.Infof("⏳ %s: official not updated (as of %s)", name, official.AsOf)
		return FundOutcome{Fund: name, Outcome: OutcomeNotYetPublished, Reason: "stale as of " + official.AsOf}
	}

	old := fund.EffectiveFactor()
	next, ok := NextFactor(old, official.GrowthPct, mixed)
	if !ok {
		return FundOutcome{Fund: name, Outcome: OutcomeMissingSnapshot, Reason: "zero mixed estimate"}
	}

	if outsideBand(next) {
		log.WithFields(map[string]interface{}{
			"factor": next,
			"low":    FactorWarnLow,
			"high":   FactorWarnHigh,
		}).Warn("Factor outside advisory band")
	}
	log.Infof("✅ %s: %.4f -> %.4f", name, old, next)

	return FundOutcome{
		Fund:     name,
		Outcome:  OutcomeUpdated,
		Old:      old,
		New:      next,
		Official: official.GrowthPct,
		Mixed:    mixed,
	}
}

func (e *Engine) officialCode(name string, fund contracts.Fund) string {
	if fund.OfficialCode != "" {
		return fund.OfficialCode
	}
	return e.codes[name]
}
