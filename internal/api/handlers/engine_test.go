package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/hawkeye/internal/calibration"
	"github.com/wonny/hawkeye/internal/contracts"
	"github.com/wonny/hawkeye/internal/engine"
	"github.com/wonny/hawkeye/internal/stability"
	"github.com/wonny/hawkeye/internal/store"
	"github.com/wonny/hawkeye/pkg/logger"
)

type fakeEngine struct {
	board     *engine.Board
	boardErr  error
	snapshot  *engine.SnapshotResult
	snapErr   error
	report    *calibration.Report
	auditErr  error
	results   []stability.Result
	boardRuns int
}

func (f *fakeEngine) Board(context.Context) (*engine.Board, error) {
	f.boardRuns++
	return f.board, f.boardErr
}

func (f *fakeEngine) TakeEndOfDaySnapshot(context.Context) (*engine.SnapshotResult, error) {
	return f.snapshot, f.snapErr
}

func (f *fakeEngine) RunNightlyAudit(context.Context) (*calibration.Report, error) {
	return f.report, f.auditErr
}

func (f *fakeEngine) Stability(context.Context) ([]stability.Result, error) {
	return f.results, nil
}

type fixedLatest struct{ board *engine.Board }

func (f fixedLatest) Latest() *engine.Board { return f.board }

func serve(t *testing.T, handler http.HandlerFunc, method string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, "/", nil)
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func TestGetEstimates_PrefersMonitorBoard(t *testing.T) {
	fe := &fakeEngine{}
	h := NewEngineHandler(fe, fixedLatest{&engine.Board{Day: "2024-01-15", Available: true}}, logger.Nop())

	rec := serve(t, h.GetEstimates, http.MethodGet)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"day":"2024-01-15"`)
	assert.Equal(t, 0, fe.boardRuns)
}

func TestGetEstimates_ComputesWithoutMonitor(t *testing.T) {
	fe := &fakeEngine{board: &engine.Board{Day: "2024-01-16", Available: true}}
	h := NewEngineHandler(fe, nil, logger.Nop())

	rec := serve(t, h.GetEstimates, http.MethodGet)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, fe.boardRuns)
}

func TestGetEstimates_Unavailable(t *testing.T) {
	fe := &fakeEngine{board: &engine.Board{}, boardErr: contracts.ErrQuotesUnavailable}
	h := NewEngineHandler(fe, fixedLatest{}, logger.Nop())

	rec := serve(t, h.GetEstimates, http.MethodGet)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), `"available":false`)
}

func TestPostSnapshot(t *testing.T) {
	fe := &fakeEngine{snapshot: &engine.SnapshotResult{Day: "2024-01-15", Values: map[string]float64{"F": 2}}}
	h := NewEngineHandler(fe, nil, logger.Nop())

	rec := serve(t, h.PostSnapshot, http.MethodPost)

	require.Equal(t, http.StatusOK, rec.Code)
	var body engine.SnapshotResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 2.0, body.Values["F"])
}

func TestActionErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"conflict", fmt.Errorf("write: %w", store.ErrVersionConflict), http.StatusConflict},
		{"no quotes", fmt.Errorf("snapshot: %w", contracts.ErrQuotesUnavailable), http.StatusServiceUnavailable},
		{"no snapshot", calibration.ErrNoSnapshot, http.StatusNotFound},
		{"other", fmt.Errorf("disk full"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewEngineHandler(&fakeEngine{snapErr: tt.err, auditErr: tt.err}, nil, logger.Nop())

			assert.Equal(t, tt.want, serve(t, h.PostSnapshot, http.MethodPost).Code)
			assert.Equal(t, tt.want, serve(t, h.PostAudit, http.MethodPost).Code)
		})
	}
}

func TestPostAudit(t *testing.T) {
	fe := &fakeEngine{report: &calibration.Report{Day: "2024-01-15", Outcomes: []calibration.FundOutcome{
		{Fund: "F", Outcome: calibration.OutcomeUpdated, Old: 1, New: 1.03},
	}}}
	h := NewEngineHandler(fe, nil, logger.Nop())

	rec := serve(t, h.PostAudit, http.MethodPost)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"outcome":"updated"`)
}

func TestPostAudit_ConflictKeepsOutcomes(t *testing.T) {
	fe := &fakeEngine{
		report: &calibration.Report{Day: "2024-01-15", Outcomes: []calibration.FundOutcome{
			{Fund: "F", Outcome: calibration.OutcomeUpdated, Old: 1, New: 1.03},
			{Fund: "G", Outcome: calibration.OutcomeNotYetPublished},
		}},
		auditErr: fmt.Errorf("write fund config: %w", store.ErrVersionConflict),
	}
	h := NewEngineHandler(fe, nil, logger.Nop())

	rec := serve(t, h.PostAudit, http.MethodPost)

	require.Equal(t, http.StatusConflict, rec.Code)
	var body struct {
		Error  string             `json:"error"`
		Report calibration.Report `json:"report"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.NotEmpty(t, body.Error)
	assert.Equal(t, "2024-01-15", body.Report.Day)
	require.Len(t, body.Report.Outcomes, 2)
	assert.Equal(t, calibration.OutcomeNotYetPublished, body.Report.Outcomes[1].Outcome)
}

func TestGetStability(t *testing.T) {
	fe := &fakeEngine{results: []stability.Result{{Fund: "F", Observations: 3, StdDev: 0.01, Sufficient: true, Stable: true}}}
	h := NewEngineHandler(fe, nil, logger.Nop())

	rec := serve(t, h.GetStability, http.MethodGet)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"threshold":0.05`)
	assert.Contains(t, rec.Body.String(), `"stable":true`)
}
