package redis

import (
	"context"
	"time"
)

// LocationStoreInterface defines the interface for driver location operations.
type LocationStoreInterface interface {
	UpdateLocation(ctx context.Context, driverID string, lat, lng float64) error
	FindNearbyDrivers(ctx context.Context, lat, lng, radiusKm float64) ([]DriverLocation, error)
	RemoveLocation(ctx context.Context, driverID string) error
}

// LockStoreInterface defines the interface for distributed locking.
type LockStoreInterface interface {
	AcquireDispatchLock(ctx context.Context, rideID string, ttl time.Duration) (bool, error)
	ReleaseDispatchLock(ctx context.Context, rideID string) error
}

// GeoCacheInterface defines the interface for geocode/route caching.
type GeoCacheInterface interface {
	GetPoint(ctx context.Context, address string) (*CachedPoint, error)
	SetPoint(ctx context.Context, address string, point *CachedPoint) error
	GetRoute(ctx context.Context, origin, destination string) (*CachedRoute, error)
	SetRoute(ctx context.Context, origin, destination string, route *CachedRoute) error
}

// Ensure concrete types implement interfaces.
var (
	_ LocationStoreInterface = (*LocationStore)(nil)
	_ LockStoreInterface     = (*LockStore)(nil)
	_ GeoCacheInterface      = (*GeoCache)(nil)
)
