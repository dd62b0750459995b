package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/hawkeye/internal/calibration"
	"github.com/wonny/hawkeye/internal/contracts"
	"github.com/wonny/hawkeye/internal/funds"
	"github.com/wonny/hawkeye/internal/snapshot"
	"github.com/wonny/hawkeye/internal/store"
	"github.com/wonny/hawkeye/pkg/config"
	"github.com/wonny/hawkeye/pkg/logger"
)

type fakeQuotes struct {
	quotes contracts.QuoteMap
	err    error
	asked  [][]string
}

func (f *fakeQuotes) Fetch(_ context.Context, codes []string) (contracts.QuoteMap, error) {
	f.asked = append(f.asked, codes)
	if f.err != nil {
		return nil, f.err
	}
	out := contracts.QuoteMap{}
	for _, c := range codes {
		if q, ok := f.quotes[c]; ok {
			out[c] = q
		}
	}
	return out, nil
}

type fakeOfficial map[string]contracts.OfficialReturn

func (f fakeOfficial) Fetch(_ context.Context, code string) (contracts.OfficialReturn, error) {
	r, ok := f[code]
	if !ok {
		return contracts.OfficialReturn{}, contracts.ErrNotYetAvailable
	}
	return r, nil
}

type harness struct {
	mem      *store.MemoryStore
	quotes   *fakeQuotes
	official fakeOfficial
	service  *Service
}

var shanghai = time.FixedZone("UTC+8", 8*60*60)

func newHarness(t *testing.T, fundsJSON string, now time.Time) *harness {
	t.Helper()
	mem := store.NewMemoryStore()
	_, err := mem.Put(context.Background(), funds.DocumentName, []byte(fundsJSON), "", "seed")
	require.NoError(t, err)

	h := &harness{mem: mem, quotes: &fakeQuotes{quotes: contracts.QuoteMap{}}, official: fakeOfficial{}}

	repo := funds.NewRepository(mem)
	snaps := snapshot.New(mem)
	history := calibration.NewHistoryStore(mem)
	audit := calibration.NewEngine(repo, snaps, history, h.official, nil, logger.Nop())

	h.service = NewService(Deps{
		Funds:     repo,
		Snapshots: snaps,
		History:   history,
		Audit:     audit,
		Quotes:    h.quotes,
		Indices:   []config.IndexConfig{{Code: "sh000001", Name: "上证指数"}, {Code: "hkHSTECH", Name: "恒生科技"}},
		Location:  shanghai,
		Now:       func() time.Time { return now },
	}, logger.Nop())
	return h
}

const scenarioFunds = `{"F": {"holdings": [{"code": "A", "weight": 1}, {"code": "B", "weight": 1}], "official_code": "000001"}}`

func TestService_EndToEndScenario(t *testing.T) {
	ctx := context.Background()
	// 15:05 in Shanghai is 07:05 UTC on the same day
	h := newHarness(t, scenarioFunds, time.Date(2024, 1, 15, 7, 5, 0, 0, time.UTC))
	h.quotes.quotes["A"] = contracts.Quote{Name: "A", ChangePct: 3}
	h.quotes.quotes["B"] = contracts.Quote{Name: "B", ChangePct: 1}

	board, err := h.service.Board(ctx)
	require.NoError(t, err)
	require.Len(t, board.Funds, 1)
	assert.InDelta(t, 2.0, board.Funds[0].Final, 1e-12)

	snap, err := h.service.TakeEndOfDaySnapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, "2024-01-15", snap.Day)
	assert.InDelta(t, 2.0, snap.Values["F"], 1e-12)

	h.official["000001"] = contracts.OfficialReturn{GrowthPct: 2.4, AsOf: "2024-01-15"}

	report, err := h.service.RunNightlyAudit(ctx)
	require.NoError(t, err)
	require.Len(t, report.Outcomes, 1)
	assert.Equal(t, calibration.OutcomeUpdated, report.Outcomes[0].Outcome)
	assert.Equal(t, 1.03, report.Outcomes[0].New)

	report, err = h.service.RunNightlyAudit(ctx)
	require.NoError(t, err)
	assert.Equal(t, calibration.OutcomeAlreadyAudited, report.Outcomes[0].Outcome)

	// the board now applies the calibrated factor
	board, err = h.service.Board(ctx)
	require.NoError(t, err)
	assert.InDelta(t, 2.06, board.Funds[0].Final, 1e-9)
	assert.InDelta(t, 2.0, board.Funds[0].Mixed, 1e-12)
}

func TestService_TradingDayUsesLocation(t *testing.T) {
	// 17:00 UTC on the 15th is already the 16th in Shanghai
	h := newHarness(t, scenarioFunds, time.Date(2024, 1, 15, 17, 0, 0, 0, time.UTC))
	assert.Equal(t, "2024-01-16", h.service.Today())
}

func TestService_SnapshotWithoutQuotesWritesNothing(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, scenarioFunds, time.Date(2024, 1, 15, 7, 5, 0, 0, time.UTC))
	h.quotes.err = contracts.ErrQuotesUnavailable

	_, err := h.service.TakeEndOfDaySnapshot(ctx)
	assert.True(t, errors.Is(err, contracts.ErrQuotesUnavailable))
	assert.Equal(t, []string{"seed"}, h.mem.Reasons())
}

func TestService_EmptyQuotesKeepStoredSnapshot(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, scenarioFunds, time.Date(2024, 1, 15, 7, 5, 0, 0, time.UTC))
	h.quotes.quotes["A"] = contracts.Quote{ChangePct: 3}
	h.quotes.quotes["B"] = contracts.Quote{ChangePct: 1}

	_, err := h.service.TakeEndOfDaySnapshot(ctx)
	require.NoError(t, err)
	reasons := h.mem.Reasons()

	// feed answers but nothing resolves
	h.quotes.quotes = contracts.QuoteMap{}

	_, err = h.service.TakeEndOfDaySnapshot(ctx)
	assert.True(t, errors.Is(err, contracts.ErrQuotesUnavailable))
	assert.Equal(t, reasons, h.mem.Reasons())

	all, _, err := snapshot.New(h.mem).All(ctx)
	require.NoError(t, err)
	assert.InDelta(t, 2.0, all["2024-01-15"]["F"], 1e-12)

	board, err := h.service.Board(ctx)
	assert.True(t, errors.Is(err, contracts.ErrQuotesUnavailable))
	require.NotNil(t, board)
	assert.False(t, board.Available)
	assert.Empty(t, board.Funds)
}

func TestService_SnapshotTwiceReplacesDay(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, scenarioFunds, time.Date(2024, 1, 15, 7, 5, 0, 0, time.UTC))
	h.quotes.quotes["A"] = contracts.Quote{ChangePct: 3}
	h.quotes.quotes["B"] = contracts.Quote{ChangePct: 1}

	_, err := h.service.TakeEndOfDaySnapshot(ctx)
	require.NoError(t, err)

	h.quotes.quotes["B"] = contracts.Quote{ChangePct: -1}
	_, err = h.service.TakeEndOfDaySnapshot(ctx)
	require.NoError(t, err)

	all, _, err := snapshot.New(h.mem).All(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
	assert.InDelta(t, 1.0, all["2024-01-15"]["F"], 1e-12)
}

func TestService_BoardBatchesOneRequest(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, `{
		"F": {"holdings": [{"code": "A", "weight": 1}], "shadow_code": "S", "shadow_weight": 0.2},
		"G": {"holdings": [{"code": "A", "weight": 1}, {"code": "B", "weight": 2}]}
	}`, time.Date(2024, 1, 15, 3, 0, 0, 0, time.UTC))
	h.quotes.quotes["sh000001"] = contracts.Quote{Name: "上证指数", ChangePct: -0.5}

	board, err := h.service.Board(ctx)
	require.NoError(t, err)

	require.Len(t, h.quotes.asked, 1)
	assert.ElementsMatch(t, []string{"sh000001", "hkHSTECH", "A", "S", "B"}, h.quotes.asked[0])

	require.Len(t, board.Indices, 2)
	assert.True(t, board.Indices[0].Resolved)
	assert.Equal(t, -0.5, board.Indices[0].ChangePct)
	assert.False(t, board.Indices[1].Resolved)
	assert.True(t, board.Available)
}

func TestService_BoardUnavailable(t *testing.T) {
	h := newHarness(t, scenarioFunds, time.Date(2024, 1, 15, 3, 0, 0, 0, time.UTC))
	h.quotes.err = contracts.ErrQuotesUnavailable

	board, err := h.service.Board(context.Background())
	assert.True(t, errors.Is(err, contracts.ErrQuotesUnavailable))
	require.NotNil(t, board)
	assert.False(t, board.Available)
	assert.Empty(t, board.Funds)
}

func TestService_AuditWithoutSnapshot(t *testing.T) {
	h := newHarness(t, scenarioFunds, time.Date(2024, 1, 15, 3, 0, 0, 0, time.UTC))

	_, err := h.service.RunNightlyAudit(context.Background())
	assert.True(t, errors.Is(err, calibration.ErrNoSnapshot))
}

func TestService_Stability(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, scenarioFunds, time.Date(2024, 1, 15, 3, 0, 0, 0, time.UTC))

	history := calibration.NewHistoryStore(h.mem)
	require.NoError(t, history.Merge(ctx, contracts.DayFundValues{}, "", "2024-01-15", map[string]float64{"F": 1.0}))
	all, version, err := history.Load(ctx)
	require.NoError(t, err)
	require.NoError(t, history.Merge(ctx, all, version, "2024-01-16", map[string]float64{"F": 1.02}))

	results, err := h.service.Stability(ctx)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.True(t, results[0].Sufficient)
	assert.True(t, results[0].Stable)
}
