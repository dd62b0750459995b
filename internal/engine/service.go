package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/hawkeye/internal/calibration"
	"github.com/wonny/hawkeye/internal/contracts"
	"github.com/wonny/hawkeye/internal/funds"
	"github.com/wonny/hawkeye/internal/snapshot"
	"github.com/wonny/hawkeye/internal/stability"
	"github.com/wonny/hawkeye/internal/valuation"
	"github.com/wonny/hawkeye/pkg/config"
	"github.com/wonny/hawkeye/pkg/logger"
)

// Service exposes the operator actions: live board, end-of-day snapshot,
// nightly audit and stability report
// ⭐ SSOT: CLI, 스케줄러, API 모두 이 서비스를 통해서만 실행
type Service struct {
	funds     *funds.Repository
	snapshots *snapshot.Store
	history   *calibration.HistoryStore
	audit     *calibration.Engine
	quotes    contracts.QuoteSource
	indices   []config.IndexConfig
	loc       *time.Location
	now       func() time.Time
	logger    *logger.Logger
}

// Deps groups the collaborators of Service
type Deps struct {
	Funds     *funds.Repository
	Snapshots *snapshot.Store
	History   *calibration.HistoryStore
	Audit     *calibration.Engine
	Quotes    contracts.QuoteSource
	Indices   []config.IndexConfig
	Location  *time.Location
	Now       func() time.Time // defaults to time.Now
}

// NewService creates the engine service
func NewService(deps Deps, log *logger.Logger) *Service {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	loc := deps.Location
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		funds:     deps.Funds,
		snapshots: deps.Snapshots,
		history:   deps.History,
		audit:     deps.Audit,
		quotes:    deps.Quotes,
		indices:   deps.Indices,
		loc:       loc,
		now:       now,
		logger:    log.WithComponent("engine"),
	}
}

// Today returns the current trading day in the configured timezone
func (s *Service) Today() string {
	return contracts.TradingDay(s.now(), s.loc)
}

// Board fetches one batch of quotes and blends every fund.
// On quote failure the returned board is marked unavailable and the error
// wraps contracts.ErrQuotesUnavailable.
func (s *Service) Board(ctx context.Context) (*Board, error) {
	set, _, err := s.funds.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load funds: %w", err)
	}

	at := s.now().In(s.loc)
	board := &Board{At: at, Day: contracts.TradingDay(at, s.loc)}

	indexCodes := make([]string, 0, len(s.indices))
	for _, idx := range s.indices {
		indexCodes = append(indexCodes, idx.Code)
	}

	quotes, err := s.fetchQuotes(ctx, set.Codes(indexCodes...))
	if err != nil {
		return board, err
	}

	board.Available = true
	board.Indices = indexQuotes(s.indices, quotes)
	board.Funds = valuation.BlendAll(set, quotes)
	return board, nil
}

// TakeEndOfDaySnapshot records today's mixed estimate of every fund.
// Nothing is written when quotes are unavailable.
func (s *Service) TakeEndOfDaySnapshot(ctx context.Context) (*SnapshotResult, error) {
	set, _, err := s.funds.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load funds: %w", err)
	}

	quotes, err := s.fetchQuotes(ctx, set.Codes())
	if err != nil {
		return nil, fmt.Errorf("snapshot: %w", err)
	}

	day := s.Today()
	estimates := valuation.BlendAll(set, quotes)
	values := valuation.MixedByFund(estimates)

	if err := s.snapshots.Record(ctx, day, values); err != nil {
		return nil, fmt.Errorf("record snapshot %s: %w", day, err)
	}

	s.logger.WithFields(map[string]interface{}{
		"day":   day,
		"funds": len(values),
	}).Info("Snapshot recorded")

	return &SnapshotResult{Day: day, Values: values, Estimates: estimates}, nil
}

// RunNightlyAudit calibrates factors against the latest snapshot day
func (s *Service) RunNightlyAudit(ctx context.Context) (*calibration.Report, error) {
	report, err := s.audit.Run(ctx)
	if err != nil {
		return report, err
	}
	s.logger.Info(report.Summary())
	return report, nil
}

// Stability analyzes the factor history
func (s *Service) Stability(ctx context.Context) ([]stability.Result, error) {
	history, _, err := s.history.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load factor history: %w", err)
	}
	return stability.Analyze(history), nil
}

// fetchQuotes asks for codes in one batch. An empty answer to a non-empty
// request is no data, never "every change is zero".
func (s *Service) fetchQuotes(ctx context.Context, codes []string) (contracts.QuoteMap, error) {
	quotes, err := s.quotes.Fetch(ctx, codes)
	if err != nil {
		return nil, err
	}
	if len(codes) > 0 && len(quotes) == 0 {
		return nil, fmt.Errorf("%w: none of %d codes resolved", contracts.ErrQuotesUnavailable, len(codes))
	}
	return quotes, nil
}

func indexQuotes(indices []config.IndexConfig, quotes contracts.QuoteMap) []IndexQuote {
	out := make([]IndexQuote, 0, len(indices))
	for _, idx := range indices {
		iq := IndexQuote{Code: idx.Code, Name: idx.Name}
		if q, ok := quotes[idx.Code]; ok {
			iq.ChangePct = q.ChangePct
			iq.Resolved = true
		}
		out = append(out, iq)
	}
	return out
}
