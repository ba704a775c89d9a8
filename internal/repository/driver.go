package repository

import (
	"context"
	"time"

	"orbix/internal/domain"
)

// EarningsUpdate carries one settled ride's contribution to a driver's
// wallet and counters. Applied as a single statement so concurrent
// settlements never lose increments.
type EarningsUpdate struct {
	Earnings    float64
	DurationMin int
	Day         time.Time
}

// DriverRepository defines the persistence operations for drivers.
type DriverRepository interface {
	// Create adds a new driver.
	Create(ctx context.Context, driver *domain.Driver) error

	// GetByID retrieves a driver by ID.
	GetByID(ctx context.Context, id string) (*domain.Driver, error)

	// GetByPhone retrieves a driver by phone number.
	GetByPhone(ctx context.Context, phone string) (*domain.Driver, error)

	// GetByIDs retrieves the given drivers, skipping unknown IDs.
	GetByIDs(ctx context.Context, ids []string) ([]*domain.Driver, error)

	// ListActiveByClass retrieves all active drivers of a vehicle class.
	ListActiveByClass(ctx context.Context, class domain.VehicleClass) ([]*domain.Driver, error)

	// UpdateStatus updates the availability of a driver.
	UpdateStatus(ctx context.Context, id string, status domain.DriverStatus) error

	// ApplyEarnings credits the wallet and bumps the daily, weekly and
	// lifetime counters, including the running average ride time.
	ApplyEarnings(ctx context.Context, id string, u EarningsUpdate) error

	// ResetDailyCounters zeroes today's earnings and trip count.
	ResetDailyCounters(ctx context.Context, id string) error

	// ResetWeeklyCounters zeroes the weekly counters and opens a new
	// counting window starting at weekStart.
	ResetWeeklyCounters(ctx context.Context, id string, weekStart time.Time) error

	// UpdateRating stores the recomputed average rating.
	UpdateRating(ctx context.Context, id string, rating float64) error
}
