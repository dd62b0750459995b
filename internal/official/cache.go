package official

import (
	"context"
	"time"

	"github.com/wonny/hawkeye/internal/contracts"
	"github.com/wonny/hawkeye/pkg/logger"
	"github.com/wonny/hawkeye/pkg/redis"
)

// Cache is the subset of redis.Cache used here
type Cache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// Cached remembers published figures so a re-run audit does not hit the upstream again.
// Only figures dated today or later are stored; an older figure means the fund
// has not published yet, and must be asked again next time.
type Cached struct {
	source contracts.OfficialSource
	cache  Cache
	ttl    time.Duration
	today  func() string
	logger *logger.Logger
}

// NewCached wraps source. today returns the current trading day (YYYY-MM-DD).
func NewCached(source contracts.OfficialSource, cache Cache, ttl time.Duration, today func() string, log *logger.Logger) *Cached {
	if ttl <= 0 {
		ttl = redis.TTLOfficial
	}
	return &Cached{
		source: source,
		cache:  cache,
		ttl:    ttl,
		today:  today,
		logger: log.WithComponent("official_cache"),
	}
}

// Fetch implements contracts.OfficialSource. Cache errors degrade to a direct fetch.
func (c *Cached) Fetch(ctx context.Context, officialCode string) (contracts.OfficialReturn, error) {
	key := redis.OfficialReturnKey(officialCode)

	var cached contracts.OfficialReturn
	found, err := c.cache.Get(ctx, key, &cached)
	if err != nil {
		c.logger.WithError(err).Warn("Official cache read failed")
	}
	if found {
		return cached, nil
	}

	result, err := c.source.Fetch(ctx, officialCode)
	if err != nil {
		return contracts.OfficialReturn{}, err
	}

	if !result.IsStaleFor(c.today()) {
		if err := c.cache.Set(ctx, key, result, c.ttl); err != nil {
			c.logger.WithError(err).Warn("Official cache write failed")
		}
	}
	return result, nil
}
