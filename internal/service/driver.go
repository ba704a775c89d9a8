package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"orbix/internal/domain"
	"orbix/internal/redis"
	"orbix/internal/repository"
)

// weeklyWindow is how long a weekly counting window stays open.
const weeklyWindow = 7 * 24 * time.Hour

// DriverService handles driver registration, availability and stats.
type DriverService struct {
	locationStore redis.LocationStoreInterface
	driverRepo    repository.DriverRepository
}

// NewDriverService creates a new DriverService.
func NewDriverService(locationStore redis.LocationStoreInterface, driverRepo repository.DriverRepository) *DriverService {
	return &DriverService{
		locationStore: locationStore,
		driverRepo:    driverRepo,
	}
}

// RegisterDriverRequest contains the parameters for registering a driver.
type RegisterDriverRequest struct {
	Name         string
	Phone        string
	VehicleClass string
	Plate        string
	Color        string
}

// Register creates a driver. Drivers start inactive and come online
// with their first location update.
func (s *DriverService) Register(ctx context.Context, req RegisterDriverRequest) (*domain.Driver, error) {
	if req.Phone == "" {
		return nil, ErrInvalidPhone
	}
	class, err := ValidVehicleClass(req.VehicleClass)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	driver := &domain.Driver{
		ID:           uuid.New().String(),
		Name:         req.Name,
		Phone:        req.Phone,
		Status:       domain.DriverStatusInactive,
		VehicleClass: class,
		Plate:        req.Plate,
		Color:        req.Color,
		WeekStartAt:  now,
		CreatedAt:    now,
	}

	if err := s.driverRepo.Create(ctx, driver); err != nil {
		return nil, err
	}
	return driver, nil
}

// UpdateLocationRequest contains the parameters for updating driver location.
type UpdateLocationRequest struct {
	DriverID string
	Lat      float64
	Lng      float64
}

// UpdateLocation updates a driver's position in the geo index and
// marks them active.
func (s *DriverService) UpdateLocation(ctx context.Context, req UpdateLocationRequest) error {
	if req.DriverID == "" {
		return ErrInvalidDriverID
	}
	if !isValidLatitude(req.Lat) || !isValidLongitude(req.Lng) {
		return ErrInvalidLocation
	}

	if err := s.locationStore.UpdateLocation(ctx, req.DriverID, req.Lat, req.Lng); err != nil {
		return err
	}

	err := s.driverRepo.UpdateStatus(ctx, req.DriverID, domain.DriverStatusActive)
	if err != nil && err != repository.ErrNotFound {
		return err
	}
	return nil
}

// Deactivate takes a driver off dispatch: inactive in the database and
// removed from the geo index.
func (s *DriverService) Deactivate(ctx context.Context, driverID string) error {
	if driverID == "" {
		return ErrInvalidDriverID
	}

	if err := s.driverRepo.UpdateStatus(ctx, driverID, domain.DriverStatusInactive); err != nil {
		return err
	}
	return s.locationStore.RemoveLocation(ctx, driverID)
}

// Stats returns the driver with fresh counters: stale daily and weekly
// windows are reset before the read is returned.
func (s *DriverService) Stats(ctx context.Context, driverID string) (*domain.Driver, error) {
	if driverID == "" {
		return nil, ErrInvalidDriverID
	}

	driver, err := s.driverRepo.GetByID(ctx, driverID)
	if err != nil {
		return nil, err
	}
	return s.FreshenCounters(ctx, driver)
}

// FreshenCounters applies the lazy counter reset: today's counters are
// zeroed when the last counted ride fell on an earlier calendar day,
// and the weekly counters when the window opened seven or more days
// ago. Runs on every stats read and before every earnings application,
// so no timer is needed.
func (s *DriverService) FreshenCounters(ctx context.Context, driver *domain.Driver) (*domain.Driver, error) {
	now := time.Now()

	if !driver.LastRideDay.IsZero() && !sameCalendarDay(driver.LastRideDay, now) {
		if driver.TripsToday != 0 || driver.TodayEarnings != 0 {
			if err := s.driverRepo.ResetDailyCounters(ctx, driver.ID); err != nil {
				return nil, err
			}
			driver.TodayEarnings = 0
			driver.TripsToday = 0
		}
	}

	if now.Sub(driver.WeekStartAt) >= weeklyWindow {
		if err := s.driverRepo.ResetWeeklyCounters(ctx, driver.ID, now); err != nil {
			return nil, err
		}
		driver.WeeklyEarnings = 0
		driver.WeeklyTrips = 0
		driver.WeekStartAt = now
	}

	return driver, nil
}

func sameCalendarDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func isValidLatitude(lat float64) bool {
	return lat >= -90 && lat <= 90
}

func isValidLongitude(lng float64) bool {
	return lng >= -180 && lng <= 180
}
