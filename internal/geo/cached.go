package geo

import (
	"context"

	"go.uber.org/zap"

	"login-guard/internal/metrics"
)

type LocationResolver interface {
	Resolve(ctx context.Context, ip string) (string, error)
}

// Cache stores resolved locations by address.
type Cache interface {
	Get(ctx context.Context, ip string) (string, bool, error)
	Put(ctx context.Context, ip, location string) error
}

// CachedResolver serves repeat lookups from a cache. Only successful
// lookups are stored; a cache outage falls through to the resolver.
type CachedResolver struct {
	next   LocationResolver
	cache  Cache
	logger *zap.Logger
}

func NewCachedResolver(next LocationResolver, cache Cache, logger *zap.Logger) *CachedResolver {
	return &CachedResolver{next: next, cache: cache, logger: logger.Named("geo_cache")}
}

func (c *CachedResolver) Resolve(ctx context.Context, ip string) (string, error) {
	location, ok, err := c.cache.Get(ctx, ip)
	if err != nil {
		c.logger.Warn("Location cache unavailable", zap.String("ip", ip), zap.Error(err))
	}
	if ok {
		metrics.GeoLookups.WithLabelValues("cache_hit").Inc()
		return location, nil
	}

	location, err = c.next.Resolve(ctx, ip)
	if err != nil {
		return "", err
	}

	if err := c.cache.Put(ctx, ip, location); err != nil {
		c.logger.Debug("Location not cached", zap.String("ip", ip), zap.Error(err))
	}
	return location, nil
}
