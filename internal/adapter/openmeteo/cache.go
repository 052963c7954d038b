package openmeteo

import (
	"context"
	"time"

	"github.com/ejsimon0408/BostonWeatherETL/internal/domain"
	"github.com/ejsimon0408/BostonWeatherETL/internal/observability"
	"github.com/patrickmn/go-cache"
)

// Source is anything that can produce the current reading.
type Source interface {
	Current(ctx context.Context) (domain.RawRealtimeRecord, error)
}

// CachedSource wraps a Source with a TTL cache so repeated runs inside the
// TTL reuse one reading.
type CachedSource struct {
	inner   Source
	key     string
	cache   *cache.Cache
	metrics *observability.Metrics
}

// NewCachedSource creates a cache decorator around a source. key identifies
// the location being read.
func NewCachedSource(inner Source, key string, ttl time.Duration, metrics *observability.Metrics) *CachedSource {
	return &CachedSource{
		inner:   inner,
		key:     key,
		cache:   cache.New(ttl, 2*ttl),
		metrics: metrics,
	}
}

func (c *CachedSource) Current(ctx context.Context) (domain.RawRealtimeRecord, error) {
	if v, ok := c.cache.Get(c.key); ok {
		c.metrics.RealtimeCache.WithLabelValues("hit").Inc()
		return v.(domain.RawRealtimeRecord), nil
	}
	c.metrics.RealtimeCache.WithLabelValues("miss").Inc()

	rec, err := c.inner.Current(ctx)
	if err != nil {
		// Failures are not cached so the next run fetches again.
		return rec, err
	}
	c.cache.Set(c.key, rec, cache.DefaultExpiration)
	return rec, nil
}
