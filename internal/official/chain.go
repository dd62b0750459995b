package official

import (
	"context"
	"errors"
	"fmt"

	"github.com/wonny/hawkeye/internal/contracts"
	"github.com/wonny/hawkeye/pkg/logger"
)

// Chain asks each source in order and returns the first available figure.
// With WithToday set, a figure older than today does not stop the chain: the
// next source is asked too and the freshest figure wins.
type Chain struct {
	sources []namedSource
	today   func() string
	logger  *logger.Logger
}

type namedSource struct {
	name   string
	source contracts.OfficialSource
}

// NewChain creates an empty chain; add sources with Add
func NewChain(log *logger.Logger) *Chain {
	return &Chain{logger: log.WithComponent("official")}
}

// Add appends a source under a name used in logs
func (c *Chain) Add(name string, source contracts.OfficialSource) *Chain {
	c.sources = append(c.sources, namedSource{name: name, source: source})
	return c
}

// WithToday makes the chain look past figures dated before today()
func (c *Chain) WithToday(today func() string) *Chain {
	c.today = today
	return c
}

// Fetch implements contracts.OfficialSource
func (c *Chain) Fetch(ctx context.Context, officialCode string) (contracts.OfficialReturn, error) {
	var errs []error
	var best *contracts.OfficialReturn

	for _, s := range c.sources {
		result, err := s.source.Fetch(ctx, officialCode)
		if err == nil {
			if c.today == nil || !result.IsStaleFor(c.today()) {
				return result, nil
			}

			c.logger.WithFields(map[string]interface{}{
				"source": s.name,
				"code":   officialCode,
				"as_of":  result.AsOf,
			}).Debug("Official figure is older than today, trying next")
			if best == nil || result.AsOf > best.AsOf {
				r := result
				best = &r
			}
			continue
		}
		if ctx.Err() != nil {
			break
		}

		c.logger.WithFields(map[string]interface{}{
			"source": s.name,
			"code":   officialCode,
			"error":  err.Error(),
		}).Debug("Official source unavailable, trying next")
		errs = append(errs, fmt.Errorf("%s: %w", s.name, err))
	}

	if best != nil {
		return *best, nil
	}
	if len(errs) == 0 {
		return contracts.OfficialReturn{}, fmt.Errorf("%w: no source answered", contracts.ErrNotYetAvailable)
	}
	joined := errors.Join(errs...)
	if !errors.Is(joined, contracts.ErrNotYetAvailable) {
		joined = fmt.Errorf("%w: %v", contracts.ErrNotYetAvailable, joined)
	}
	return contracts.OfficialReturn{}, joined
}
