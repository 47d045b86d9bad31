package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	metricCacheHits   = "probe_cache_hits"
	metricCacheMisses = "probe_cache_misses"

	attrCache = "cache"
)

// CacheStatsProvider reports cumulative hit/miss counts for a cache. The
// process-wide AST cache and the session cache in pkg/cache both implement it.
type CacheStatsProvider interface {
	CacheHits() int64
	CacheMisses() int64
}

// RegisterCacheMetrics registers observable gauges that sample astCache and
// sessionCache on every collection. Either provider may be nil, in which
// case its data point is simply omitted.
func RegisterCacheMetrics(mt metric.Meter, astCache, sessionCache CacheStatsProvider) error {
	hits, err := mt.Int64ObservableGauge(metricCacheHits,
		metric.WithDescription("Cumulative cache hits by cache"),
		metric.WithUnit("{hit}"),
	)
	if err != nil {
		return fmt.Errorf("create %s: %w", metricCacheHits, err)
	}

	misses, err := mt.Int64ObservableGauge(metricCacheMisses,
		metric.WithDescription("Cumulative cache misses by cache"),
		metric.WithUnit("{miss}"),
	)
	if err != nil {
		return fmt.Errorf("create %s: %w", metricCacheMisses, err)
	}

	_, err = mt.RegisterCallback(func(_ context.Context, obs metric.Observer) error {
		observeCacheStats(obs, hits, misses, "ast", astCache)
		observeCacheStats(obs, hits, misses, "session", sessionCache)

		return nil
	}, hits, misses)
	if err != nil {
		return fmt.Errorf("register cache metrics callback: %w", err)
	}

	return nil
}

func observeCacheStats(
	obs metric.Observer, hits, misses metric.Int64Observable, label string, provider CacheStatsProvider,
) {
	if provider == nil {
		return
	}

	attrs := metric.WithAttributes(attribute.String(attrCache, label))
	obs.ObserveInt64(hits, provider.CacheHits(), attrs)
	obs.ObserveInt64(misses, provider.CacheMisses(), attrs)
}
