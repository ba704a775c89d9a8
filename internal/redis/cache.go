package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

// GeoCache caches geocoding and routing results so repeated lookups for
// popular addresses skip the upstream provider.
type GeoCache struct {
	client *redis.Client
}

// NewGeoCache creates a new GeoCache.
func NewGeoCache(client *redis.Client) *GeoCache {
	return &GeoCache{client: client}
}

// Cache TTL constants
const (
	GeocodeCacheTTL = 10 * time.Minute
	RouteCacheTTL   = 10 * time.Minute
)

// Key prefixes
const (
	geocodeCachePrefix = "cache:geocode:"
	routeCachePrefix   = "cache:route:"
)

// CachedPoint is a cached geocoding result.
type CachedPoint struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// CachedRoute is a cached routing result.
type CachedRoute struct {
	DistanceKm  float64 `json:"distance_km"`
	DurationMin float64 `json:"duration_min"`
}

// GetPoint retrieves a geocoding result from cache. A nil result with a
// nil error is a cache miss.
func (s *GeoCache) GetPoint(ctx context.Context, address string) (*CachedPoint, error) {
	key := geocodeCachePrefix + address
	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}

	var point CachedPoint
	if err := json.Unmarshal(data, &point); err != nil {
		return nil, err
	}
	return &point, nil
}

// SetPoint stores a geocoding result in cache.
func (s *GeoCache) SetPoint(ctx context.Context, address string, point *CachedPoint) error {
	data, err := json.Marshal(point)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, geocodeCachePrefix+address, data, GeocodeCacheTTL).Err()
}

// GetRoute retrieves a routing result from cache. A nil result with a
// nil error is a cache miss.
func (s *GeoCache) GetRoute(ctx context.Context, origin, destination string) (*CachedRoute, error) {
	key := routeCachePrefix + origin + "|" + destination
	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}

	var route CachedRoute
	if err := json.Unmarshal(data, &route); err != nil {
		return nil, err
	}
	return &route, nil
}

// SetRoute stores a routing result in cache.
func (s *GeoCache) SetRoute(ctx context.Context, origin, destination string, route *CachedRoute) error {
	data, err := json.Marshal(route)
	if err != nil {
		return err
	}
	key := routeCachePrefix + origin + "|" + destination
	return s.client.Set(ctx, key, data, RouteCacheTTL).Err()
}
