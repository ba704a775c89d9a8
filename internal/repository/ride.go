package repository

import (
	"context"
	"time"

	"orbix/internal/domain"
)

// RideCompletion carries the fields written when an ongoing ride ends.
type RideCompletion struct {
	EndedAt        time.Time
	DurationMin    int
	WaitingCharges float64
	TotalFare      float64
}

// RideFilter narrows history listings. Zero values mean "no constraint".
type RideFilter struct {
	Status domain.RideStatus
	Since  time.Time
	Limit  int
}

// RideRepository defines the persistence operations for rides.
//
// The conditional methods (ClaimIfPending, MarkStarted, MarkCompleted,
// MarkCancelled, CompletePaymentIfDue, MarkPaymentFailed, RateIfUnrated)
// compile to a single guarded UPDATE and report whether the guard
// matched. A false return with a nil error means the ride exists but
// was not in the expected state.
type RideRepository interface {
	// Create persists a new ride.
	Create(ctx context.Context, ride *domain.Ride) error

	// GetByID retrieves a ride by ID.
	GetByID(ctx context.Context, id string) (*domain.Ride, error)

	// ClaimIfPending assigns driverID and moves the ride to accepted,
	// only if it is still pending and unassigned.
	ClaimIfPending(ctx context.Context, rideID, driverID string) (bool, error)

	// MarkStarted moves an accepted ride to ongoing and records the
	// start time.
	MarkStarted(ctx context.Context, rideID string, startedAt time.Time) (bool, error)

	// MarkCompleted moves an ongoing ride to completed and records the
	// final totals.
	MarkCompleted(ctx context.Context, rideID string, c RideCompletion) (bool, error)

	// MarkCancelled cancels a ride that has not completed yet.
	MarkCancelled(ctx context.Context, rideID, reason string, at time.Time) (bool, error)

	// CompletePaymentIfDue flips payment status to completed and records
	// the method on a completed ride whose payment is still pending or
	// failed. At most one caller ever observes true.
	CompletePaymentIfDue(ctx context.Context, rideID string, method domain.PaymentMethod) (bool, error)

	// MarkPaymentFailed records a failed collection attempt on a
	// completed ride whose payment is still pending.
	MarkPaymentFailed(ctx context.Context, rideID string) (bool, error)

	// UnlinkWallet drops the ride's wallet link so settlement stops
	// retrying a wallet known to be short.
	UnlinkWallet(ctx context.Context, rideID string) error

	// RateIfUnrated stores a rating and review on a completed, unrated ride.
	RateIfUnrated(ctx context.Context, rideID string, rating int, review string) (bool, error)

	// ListPendingUnassigned retrieves rides still waiting for a driver.
	ListPendingUnassigned(ctx context.Context, class domain.VehicleClass) ([]*domain.Ride, error)

	// ListByRider retrieves a rider's rides, newest first.
	ListByRider(ctx context.Context, riderID string, f RideFilter) ([]*domain.Ride, error)

	// ListByDriver retrieves a driver's rides, newest first.
	ListByDriver(ctx context.Context, driverID string, f RideFilter) ([]*domain.Ride, error)

	// AverageRatingForDriver computes the average over the driver's
	// rated rides and the number of rides considered.
	AverageRatingForDriver(ctx context.Context, driverID string) (float64, int, error)
}
