package maps

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"googlemaps.github.io/maps"

	"orbix/internal/redis"
)

var (
	// ErrNoResults is returned when an address cannot be geocoded.
	ErrNoResults = errors.New("no geocoding results")

	// ErrNoRoute is returned when no driving route connects the points.
	ErrNoRoute = errors.New("no route found")
)

// Point is a geocoded coordinate pair.
type Point struct {
	Lat float64
	Lng float64
}

// RouteEstimate is a driving estimate between two addresses.
type RouteEstimate struct {
	DistanceKm  float64
	DurationMin float64
}

// Router is the routing collaborator used by ride creation and dispatch.
type Router interface {
	Geocode(ctx context.Context, address string) (Point, error)
	Route(ctx context.Context, origin, destination string) (RouteEstimate, error)
}

// Service wraps the Google Maps client with a Redis cache and a
// request-spacing throttle, so bursts of ride creations do not hammer
// the upstream API.
type Service struct {
	client *maps.Client
	cache  redis.GeoCacheInterface

	mu       sync.Mutex
	lastCall time.Time
	spacing  time.Duration
}

// NewService creates a maps service with the given API key.
func NewService(apiKey string, cache redis.GeoCacheInterface) (*Service, error) {
	client, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create maps client: %w", err)
	}
	return &Service{
		client:  client,
		cache:   cache,
		spacing: time.Second,
	}, nil
}

// Geocode resolves an address to coordinates, consulting the cache first.
func (s *Service) Geocode(ctx context.Context, address string) (Point, error) {
	if cached, err := s.cache.GetPoint(ctx, address); err == nil && cached != nil {
		return Point{Lat: cached.Lat, Lng: cached.Lng}, nil
	}

	if err := s.throttle(ctx); err != nil {
		return Point{}, err
	}

	results, err := s.client.Geocode(ctx, &maps.GeocodingRequest{Address: address})
	if err != nil {
		return Point{}, fmt.Errorf("maps api error: %w", err)
	}
	if len(results) == 0 {
		return Point{}, ErrNoResults
	}

	loc := results[0].Geometry.Location
	point := Point{Lat: loc.Lat, Lng: loc.Lng}

	// Best effort; a failed cache write never fails the lookup.
	_ = s.cache.SetPoint(ctx, address, &redis.CachedPoint{Lat: point.Lat, Lng: point.Lng})

	return point, nil
}

// Route returns a driving estimate between two addresses, consulting
// the cache first.
func (s *Service) Route(ctx context.Context, origin, destination string) (RouteEstimate, error) {
	if cached, err := s.cache.GetRoute(ctx, origin, destination); err == nil && cached != nil {
		return RouteEstimate{DistanceKm: cached.DistanceKm, DurationMin: cached.DurationMin}, nil
	}

	if err := s.throttle(ctx); err != nil {
		return RouteEstimate{}, err
	}

	routes, _, err := s.client.Directions(ctx, &maps.DirectionsRequest{
		Origin:      origin,
		Destination: destination,
		Mode:        maps.TravelModeDriving,
	})
	if err != nil {
		return RouteEstimate{}, fmt.Errorf("maps api error: %w", err)
	}
	if len(routes) == 0 || len(routes[0].Legs) == 0 {
		return RouteEstimate{}, ErrNoRoute
	}

	leg := routes[0].Legs[0]
	estimate := RouteEstimate{
		DistanceKm:  float64(leg.Distance.Meters) / 1000,
		DurationMin: math.Ceil(leg.Duration.Minutes()),
	}

	_ = s.cache.SetRoute(ctx, origin, destination, &redis.CachedRoute{
		DistanceKm:  estimate.DistanceKm,
		DurationMin: estimate.DurationMin,
	})

	return estimate, nil
}

// throttle enforces the minimum spacing between upstream requests.
func (s *Service) throttle(ctx context.Context) error {
	s.mu.Lock()
	wait := s.spacing - time.Since(s.lastCall)
	s.lastCall = time.Now().Add(wait)
	s.mu.Unlock()

	if wait <= 0 {
		return nil
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Ensure Service implements Router.
var _ Router = (*Service)(nil)

// Offline is a Router for deployments without a Maps API key. Every
// lookup fails, which pushes callers onto their fallback estimates.
type Offline struct{}

func (Offline) Geocode(ctx context.Context, address string) (Point, error) {
	return Point{}, ErrNoResults
}

func (Offline) Route(ctx context.Context, origin, destination string) (RouteEstimate, error) {
	return RouteEstimate{}, ErrNoRoute
}

var _ Router = Offline{}
