package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/wonny/hawkeye/internal/calibration"
	"github.com/wonny/hawkeye/internal/contracts"
	"github.com/wonny/hawkeye/internal/engine"
	"github.com/wonny/hawkeye/internal/stability"
	"github.com/wonny/hawkeye/internal/store"
	"github.com/wonny/hawkeye/pkg/logger"
)

// Engine is the subset of engine.Service the handlers need
type Engine interface {
	Board(ctx context.Context) (*engine.Board, error)
	TakeEndOfDaySnapshot(ctx context.Context) (*engine.SnapshotResult, error)
	RunNightlyAudit(ctx context.Context) (*calibration.Report, error)
	Stability(ctx context.Context) ([]stability.Result, error)
}

// LatestBoard returns the last board published by the live monitor, nil if none yet
type LatestBoard interface {
	Latest() *engine.Board
}

// EngineHandler handles estimate, snapshot, audit and stability endpoints
// ⭐ SSOT: 엔진 API 핸들러는 이 구조체에서만
type EngineHandler struct {
	engine Engine
	latest LatestBoard
	logger *logger.Logger
}

// NewEngineHandler creates a new engine handler. latest may be nil.
func NewEngineHandler(e Engine, latest LatestBoard, log *logger.Logger) *EngineHandler {
	return &EngineHandler{
		engine: e,
		latest: latest,
		logger: log,
	}
}

// GetEstimates returns the latest board, computing one if the monitor has none
// GET /api/estimates
func (h *EngineHandler) GetEstimates(w http.ResponseWriter, r *http.Request) {
	if h.latest != nil {
		if board := h.latest.Latest(); board != nil && board.Available {
			respondJSON(w, http.StatusOK, board)
			return
		}
	}

	board, err := h.engine.Board(r.Context())
	if err != nil {
		if errors.Is(err, contracts.ErrQuotesUnavailable) && board != nil {
			respondJSON(w, http.StatusServiceUnavailable, board)
			return
		}
		h.logger.WithError(err).Error("Failed to build board")
		respondError(w, http.StatusInternalServerError, "Failed to build estimates")
		return
	}

	respondJSON(w, http.StatusOK, board)
}

// PostSnapshot records today's end-of-day snapshot
// POST /api/snapshot
func (h *EngineHandler) PostSnapshot(w http.ResponseWriter, r *http.Request) {
	result, err := h.engine.TakeEndOfDaySnapshot(r.Context())
	if err != nil {
		h.respondActionError(w, "snapshot", err, nil)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// PostAudit runs the nightly calibration.
// A failed write still reports the per-fund outcomes reached before it.
// POST /api/audit
func (h *EngineHandler) PostAudit(w http.ResponseWriter, r *http.Request) {
	report, err := h.engine.RunNightlyAudit(r.Context())
	if err != nil {
		if report != nil {
			h.respondActionError(w, "audit", err, report)
		} else {
			h.respondActionError(w, "audit", err, nil)
		}
		return
	}

	respondJSON(w, http.StatusOK, report)
}

// GetStability returns per-fund factor stability
// GET /api/stability
func (h *EngineHandler) GetStability(w http.ResponseWriter, r *http.Request) {
	results, err := h.engine.Stability(r.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to analyze stability")
		respondError(w, http.StatusInternalServerError, "Failed to analyze stability")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"threshold": stability.StableThreshold,
		"funds":     results,
	})
}

// respondActionError maps action failures to status codes.
// Conflicts and missing quotes are retryable, so they are not 500s.
// partial, when non-nil, is sent along under "report".
func (h *EngineHandler) respondActionError(w http.ResponseWriter, action string, err error, partial interface{}) {
	status, message := http.StatusInternalServerError, "Action failed"
	switch {
	case errors.Is(err, store.ErrVersionConflict):
		status, message = http.StatusConflict, "Document changed concurrently, retry"
	case errors.Is(err, contracts.ErrQuotesUnavailable):
		status, message = http.StatusServiceUnavailable, "Quotes unavailable, retry later"
	case errors.Is(err, calibration.ErrNoSnapshot):
		status, message = http.StatusNotFound, "No snapshot recorded yet"
	default:
		h.logger.WithError(err).WithField("action", action).Error("Action failed")
	}

	if partial == nil {
		respondError(w, status, message)
		return
	}
	respondJSON(w, status, map[string]interface{}{
		"error":  message,
		"report": partial,
	})
}
