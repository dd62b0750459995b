package monitor

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/wonny/hawkeye/internal/contracts"
	"github.com/wonny/hawkeye/internal/engine"
	"github.com/wonny/hawkeye/pkg/logger"
)

// BoardSource produces one board per call
type BoardSource interface {
	Board(ctx context.Context) (*engine.Board, error)
}

// Renderer publishes a board. Render must return before the next cycle starts.
type Renderer interface {
	Render(ctx context.Context, board *engine.Board) error
}

// Loop is the cooperative polling loop of the live monitor:
// fetch → render → sleep → repeat, never overlapping
// ⭐ SSOT: 실시간 모니터 루프
type Loop struct {
	source    BoardSource
	renderers []Renderer
	interval  time.Duration
	retry     time.Duration
	logger    *logger.Logger

	mu     sync.RWMutex
	latest *engine.Board
}

// NewLoop creates a monitor loop.
// interval follows a good cycle, retry follows a cycle without quotes.
func NewLoop(source BoardSource, interval, retry time.Duration, log *logger.Logger, renderers ...Renderer) *Loop {
	return &Loop{
		source:    source,
		renderers: renderers,
		interval:  interval,
		retry:     retry,
		logger:    log.WithComponent("monitor"),
	}
}

// Run polls until ctx is cancelled
func (l *Loop) Run(ctx context.Context) error {
	l.logger.WithFields(map[string]interface{}{
		"interval": l.interval.String(),
		"retry":    l.retry.String(),
	}).Info("Live monitor started")

	for {
		wait := l.interval
		if _, err := l.RunOnce(ctx); err != nil {
			wait = l.retry
		}

		select {
		case <-ctx.Done():
			l.logger.Info("Live monitor stopped")
			return nil
		case <-time.After(wait):
		}
	}
}

// RunOnce performs one fetch and render cycle.
// Quote failures still publish a "no data" board and return the error.
func (l *Loop) RunOnce(ctx context.Context) (*engine.Board, error) {
	board, err := l.source.Board(ctx)
	if err != nil {
		if errors.Is(err, contracts.ErrQuotesUnavailable) {
			l.logger.WithError(err).Warn("No quotes this cycle")
		} else {
			l.logger.WithError(err).Error("Board refresh failed")
		}
	}
	if board == nil {
		return nil, err
	}

	l.mu.Lock()
	l.latest = board
	l.mu.Unlock()

	for _, r := range l.renderers {
		if rerr := r.Render(ctx, board); rerr != nil {
			l.logger.WithError(rerr).Warn("Render failed")
		}
	}
	return board, err
}

// Latest returns the last published board, nil before the first cycle
func (l *Loop) Latest() *engine.Board {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.latest
}
