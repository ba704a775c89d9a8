package service

import (
	"context"
	"log"
	"time"

	"orbix/internal/domain"
	"orbix/internal/maps"
	"orbix/internal/redis"
	"orbix/internal/repository"
)

const (
	defaultSearchRadiusKm = 5.0
	dispatchLockTTL       = 30 * time.Second
)

// DispatchService discovers eligible drivers for a ride and fans the
// request out. Drivers pull: they receive the offer and race to accept;
// assignment itself happens in RideService.Accept.
type DispatchService struct {
	locationStore redis.LocationStoreInterface
	lockStore     redis.LockStoreInterface
	driverRepo    repository.DriverRepository
	riderRepo     repository.RiderRepository
	router        maps.Router
	notifications *NotificationService
}

// NewDispatchService creates a new DispatchService.
func NewDispatchService(
	locationStore redis.LocationStoreInterface,
	lockStore redis.LockStoreInterface,
	driverRepo repository.DriverRepository,
	riderRepo repository.RiderRepository,
	router maps.Router,
	notifications *NotificationService,
) *DispatchService {
	return &DispatchService{
		locationStore: locationStore,
		lockStore:     lockStore,
		driverRepo:    driverRepo,
		riderRepo:     riderRepo,
		router:        router,
		notifications: notifications,
	}
}

// FindCandidates returns the IDs of drivers eligible for a ride:
// active drivers of the ride's class within the search radius of the
// pickup, nearest first. When geocoding or the geo index fails, or the
// radius is empty, it falls back to every active driver of the class.
func (s *DispatchService) FindCandidates(ctx context.Context, ride *domain.Ride) ([]string, error) {
	nearby := s.nearbyDrivers(ctx, ride)

	if len(nearby) > 0 {
		drivers, err := s.driverRepo.GetByIDs(ctx, nearby)
		if err != nil {
			return nil, err
		}

		byID := make(map[string]*domain.Driver, len(drivers))
		for _, driver := range drivers {
			byID[driver.ID] = driver
		}

		// Preserve the nearest-first ordering from the geo index.
		var candidates []string
		for _, id := range nearby {
			driver, ok := byID[id]
			if !ok {
				continue
			}
			if driver.Status != domain.DriverStatusActive {
				continue
			}
			if driver.VehicleClass != ride.VehicleClass {
				continue
			}
			candidates = append(candidates, id)
		}
		if len(candidates) > 0 {
			return candidates, nil
		}
	}

	// Radius search came up empty; widen to all active drivers of the class.
	drivers, err := s.driverRepo.ListActiveByClass(ctx, ride.VehicleClass)
	if err != nil {
		return nil, err
	}

	candidates := make([]string, 0, len(drivers))
	for _, driver := range drivers {
		candidates = append(candidates, driver.ID)
	}
	return candidates, nil
}

// Broadcast offers the ride to its candidate drivers. The dispatch lock
// ensures a single fan-out per ride across instances; the lock expires
// via TTL. A ride with no candidates simply stays pending.
func (s *DispatchService) Broadcast(ctx context.Context, ride *domain.Ride) {
	locked, err := s.lockStore.AcquireDispatchLock(ctx, ride.ID, dispatchLockTTL)
	if err != nil {
		log.Printf("dispatch: lock ride %s: %v", ride.ID, err)
		return
	}
	if !locked {
		return
	}

	candidates, err := s.FindCandidates(ctx, ride)
	if err != nil {
		log.Printf("dispatch: find candidates for ride %s: %v", ride.ID, err)
		return
	}
	if len(candidates) == 0 {
		return
	}

	rider, err := s.riderRepo.GetByID(ctx, ride.RiderID)
	if err != nil {
		log.Printf("dispatch: load rider for ride %s: %v", ride.ID, err)
	}

	s.notifications.NotifyRideRequested(ride, rider, candidates)
}

// NotifyTaken tells the losing candidates the ride has been claimed.
func (s *DispatchService) NotifyTaken(ctx context.Context, ride *domain.Ride, winnerID string) {
	candidates, err := s.FindCandidates(ctx, ride)
	if err != nil {
		log.Printf("dispatch: notify taken for ride %s: %v", ride.ID, err)
		return
	}
	s.notifications.NotifyRideTaken(ride.ID, candidates, winnerID)
}

// nearbyDrivers resolves the pickup and queries the geo index. Any
// failure degrades to the all-active fallback by returning nil.
func (s *DispatchService) nearbyDrivers(ctx context.Context, ride *domain.Ride) []string {
	point, err := s.router.Geocode(ctx, ride.Pickup)
	if err != nil {
		log.Printf("dispatch: geocode %q: %v", ride.Pickup, err)
		return nil
	}

	locations, err := s.locationStore.FindNearbyDrivers(ctx, point.Lat, point.Lng, defaultSearchRadiusKm)
	if err != nil {
		log.Printf("dispatch: geo search for ride %s: %v", ride.ID, err)
		return nil
	}

	ids := make([]string, 0, len(locations))
	for _, loc := range locations {
		ids = append(ids, loc.DriverID)
	}
	return ids
}
