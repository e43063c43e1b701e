package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"login-guard/internal/client"
	"login-guard/internal/util"
)

const (
	locationPrefix = "geo:city:"
	cacheTimeout   = 2 * time.Second
)

// LocationCache keeps successful IP lookups so repeat logins from the same
// address do not hit the geolocation API.
type LocationCache struct {
	client *client.RedisClient
	ttl    time.Duration
}

func NewLocationCache(client *client.RedisClient, ttl time.Duration) *LocationCache {
	return &LocationCache{client: client, ttl: ttl}
}

// Get reports whether ip has a cached location.
func (c *LocationCache) Get(ctx context.Context, ip string) (string, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, cacheTimeout)
	defer cancel()

	location, err := c.client.Get(ctx, locationPrefix+ip)
	if errors.Is(err, client.ErrCacheMiss) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read cached location: %w", err)
	}
	return location, true, nil
}

func (c *LocationCache) Put(ctx context.Context, ip, location string) error {
	ctx, cancel := context.WithTimeout(ctx, cacheTimeout)
	defer cancel()

	if err := c.client.Set(ctx, locationPrefix+ip, location, c.ttl); err != nil {
		util.Warn("Failed to cache location", util.String("ip", ip), util.ErrorField(err))
		return fmt.Errorf("failed to cache location: %w", err)
	}
	return nil
}
