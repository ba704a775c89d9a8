package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"orbix/internal/domain"
	"orbix/internal/repository"
)

// RideRepository is a PostgreSQL implementation of repository.RideRepository.
//
// All state transitions are single conditional UPDATEs keyed on the
// expected current state, so concurrent callers race on the row and
// exactly one wins.
type RideRepository struct {
	q Querier
}

// NewRideRepository creates a new PostgreSQL ride repository.
func NewRideRepository(db *sql.DB) *RideRepository {
	return &RideRepository{q: db}
}

// NewRideRepositoryWithTx creates a ride repository using a transaction.
func NewRideRepositoryWithTx(tx *sql.Tx) *RideRepository {
	return &RideRepository{q: tx}
}

const rideColumns = `id, rider_id, driver_id, pickup, destination, vehicle_class,
	distance_km, duration_min, fare, otp, wallet_linked, status,
	started_at, ended_at, ride_duration_min, waiting_charges, total_fare,
	payment_status, payment_method, rating, review, created_at, cancelled_at, cancel_reason`

// Create persists a new ride.
func (r *RideRepository) Create(ctx context.Context, ride *domain.Ride) error {
	query := `
		INSERT INTO rides (id, rider_id, pickup, destination, vehicle_class, distance_km, duration_min, fare, otp, wallet_linked, status, payment_status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err := r.q.ExecContext(ctx, query,
		ride.ID,
		ride.RiderID,
		ride.Pickup,
		ride.Destination,
		ride.VehicleClass,
		ride.DistanceKm,
		ride.DurationMin,
		ride.Fare,
		ride.OTP,
		ride.WalletLinked,
		ride.Status,
		ride.PaymentStatus,
		ride.CreatedAt,
	)

	return err
}

// GetByID retrieves a ride by ID.
func (r *RideRepository) GetByID(ctx context.Context, id string) (*domain.Ride, error) {
	query := `SELECT ` + rideColumns + ` FROM rides WHERE id = $1`

	ride, err := scanRide(r.q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return ride, nil
}

// ClaimIfPending assigns driverID and moves the ride to accepted, only
// if it is still pending and unassigned.
func (r *RideRepository) ClaimIfPending(ctx context.Context, rideID, driverID string) (bool, error) {
	query := `
		UPDATE rides
		SET driver_id = $1, status = $2
		WHERE id = $3 AND status = $4 AND driver_id IS NULL
	`
	return r.guarded(ctx, query, driverID, domain.RideStatusAccepted, rideID, domain.RideStatusPending)
}

// MarkStarted moves an accepted ride to ongoing and records the start time.
func (r *RideRepository) MarkStarted(ctx context.Context, rideID string, startedAt time.Time) (bool, error) {
	query := `
		UPDATE rides
		SET status = $1, started_at = $2
		WHERE id = $3 AND status = $4
	`
	return r.guarded(ctx, query, domain.RideStatusOngoing, startedAt, rideID, domain.RideStatusAccepted)
}

// MarkCompleted moves an ongoing ride to completed and records the final totals.
func (r *RideRepository) MarkCompleted(ctx context.Context, rideID string, c repository.RideCompletion) (bool, error) {
	query := `
		UPDATE rides
		SET status = $1, ended_at = $2, ride_duration_min = $3, waiting_charges = $4, total_fare = $5
		WHERE id = $6 AND status = $7
	`
	return r.guarded(ctx, query,
		domain.RideStatusCompleted,
		c.EndedAt,
		c.DurationMin,
		c.WaitingCharges,
		c.TotalFare,
		rideID,
		domain.RideStatusOngoing,
	)
}

// MarkCancelled cancels a ride that has not completed yet.
func (r *RideRepository) MarkCancelled(ctx context.Context, rideID, reason string, at time.Time) (bool, error) {
	query := `
		UPDATE rides
		SET status = $1, cancelled_at = $2, cancel_reason = $3
		WHERE id = $4 AND status IN ($5, $6, $7)
	`
	return r.guarded(ctx, query,
		domain.RideStatusCancelled,
		at,
		reason,
		rideID,
		domain.RideStatusPending,
		domain.RideStatusAccepted,
		domain.RideStatusOngoing,
	)
}

// CompletePaymentIfDue flips payment status to completed and records the
// method on a completed ride whose payment is still pending or failed.
// At most one caller ever observes true.
func (r *RideRepository) CompletePaymentIfDue(ctx context.Context, rideID string, method domain.PaymentMethod) (bool, error) {
	query := `
		UPDATE rides
		SET payment_status = $1, payment_method = $2
		WHERE id = $3 AND status = $4 AND payment_status IN ($5, $6)
	`
	return r.guarded(ctx, query,
		domain.PaymentStatusCompleted,
		method,
		rideID,
		domain.RideStatusCompleted,
		domain.PaymentStatusPending,
		domain.PaymentStatusFailed,
	)
}

// MarkPaymentFailed records a failed collection attempt. The ride stays
// settleable: CompletePaymentIfDue accepts the failed state on retry.
func (r *RideRepository) MarkPaymentFailed(ctx context.Context, rideID string) (bool, error) {
	query := `
		UPDATE rides
		SET payment_status = $1
		WHERE id = $2 AND status = $3 AND payment_status = $4
	`
	return r.guarded(ctx, query,
		domain.PaymentStatusFailed,
		rideID,
		domain.RideStatusCompleted,
		domain.PaymentStatusPending,
	)
}

// UnlinkWallet drops the ride's wallet link.
func (r *RideRepository) UnlinkWallet(ctx context.Context, rideID string) error {
	query := `UPDATE rides SET wallet_linked = FALSE WHERE id = $1`
	_, err := r.q.ExecContext(ctx, query, rideID)
	return err
}

// RateIfUnrated stores a rating and review on a completed, unrated ride.
func (r *RideRepository) RateIfUnrated(ctx context.Context, rideID string, rating int, review string) (bool, error) {
	query := `
		UPDATE rides
		SET rating = $1, review = $2
		WHERE id = $3 AND status = $4 AND rating = 0
	`
	return r.guarded(ctx, query, rating, review, rideID, domain.RideStatusCompleted)
}

// ListPendingUnassigned retrieves rides still waiting for a driver.
func (r *RideRepository) ListPendingUnassigned(ctx context.Context, class domain.VehicleClass) ([]*domain.Ride, error) {
	query := `
		SELECT ` + rideColumns + `
		FROM rides
		WHERE status = $1 AND driver_id IS NULL AND vehicle_class = $2
		ORDER BY created_at DESC LIMIT 100
	`
	rows, err := r.q.QueryContext(ctx, query, domain.RideStatusPending, class)
	if err != nil {
		return nil, err
	}
	return collectRides(rows)
}

// ListByRider retrieves a rider's rides, newest first.
func (r *RideRepository) ListByRider(ctx context.Context, riderID string, f repository.RideFilter) ([]*domain.Ride, error) {
	return r.listByParty(ctx, "rider_id", riderID, f)
}

// ListByDriver retrieves a driver's rides, newest first.
func (r *RideRepository) ListByDriver(ctx context.Context, driverID string, f repository.RideFilter) ([]*domain.Ride, error) {
	return r.listByParty(ctx, "driver_id", driverID, f)
}

func (r *RideRepository) listByParty(ctx context.Context, column, id string, f repository.RideFilter) ([]*domain.Ride, error) {
	query := `
		SELECT ` + rideColumns + `
		FROM rides
		WHERE ` + column + ` = $1
		  AND ($2 = '' OR status = $2)
		  AND ($3::timestamptz IS NULL OR created_at >= $3)
		ORDER BY created_at DESC LIMIT $4
	`

	var since sql.NullTime
	if !f.Since.IsZero() {
		since = sql.NullTime{Time: f.Since, Valid: true}
	}
	limit := f.Limit
	if limit <= 0 {
		limit = 100
	}

	rows, err := r.q.QueryContext(ctx, query, id, string(f.Status), since, limit)
	if err != nil {
		return nil, err
	}
	return collectRides(rows)
}

// AverageRatingForDriver computes the average over the driver's rated
// rides and the number of rides considered.
func (r *RideRepository) AverageRatingForDriver(ctx context.Context, driverID string) (float64, int, error) {
	query := `
		SELECT COALESCE(AVG(rating), 0), COUNT(*)
		FROM rides
		WHERE driver_id = $1 AND status = $2 AND rating > 0
	`

	var avg float64
	var count int
	err := r.q.QueryRowContext(ctx, query, driverID, domain.RideStatusCompleted).Scan(&avg, &count)
	if err != nil {
		return 0, 0, err
	}
	return avg, count, nil
}

// guarded runs a conditional UPDATE and reports whether it matched.
func (r *RideRepository) guarded(ctx context.Context, query string, args ...any) (bool, error) {
	result, err := r.q.ExecContext(ctx, query, args...)
	if err != nil {
		return false, err
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rowsAffected > 0, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRide(row rowScanner) (*domain.Ride, error) {
	var ride domain.Ride
	var driverID sql.NullString
	var startedAt, endedAt, cancelledAt sql.NullTime
	var paymentMethod, review, cancelReason sql.NullString

	err := row.Scan(
		&ride.ID,
		&ride.RiderID,
		&driverID,
		&ride.Pickup,
		&ride.Destination,
		&ride.VehicleClass,
		&ride.DistanceKm,
		&ride.DurationMin,
		&ride.Fare,
		&ride.OTP,
		&ride.WalletLinked,
		&ride.Status,
		&startedAt,
		&endedAt,
		&ride.RideDurationMin,
		&ride.WaitingCharges,
		&ride.TotalFare,
		&ride.PaymentStatus,
		&paymentMethod,
		&ride.Rating,
		&review,
		&ride.CreatedAt,
		&cancelledAt,
		&cancelReason,
	)
	if err != nil {
		return nil, err
	}

	if driverID.Valid {
		ride.DriverID = driverID.String
	}
	if paymentMethod.Valid {
		ride.PaymentMethod = domain.PaymentMethod(paymentMethod.String)
	}
	if review.Valid {
		ride.Review = review.String
	}
	if startedAt.Valid {
		ride.StartedAt = startedAt.Time
	}
	if endedAt.Valid {
		ride.EndedAt = endedAt.Time
	}
	if cancelledAt.Valid {
		ride.CancelledAt = cancelledAt.Time
	}
	if cancelReason.Valid {
		ride.CancelReason = cancelReason.String
	}

	return &ride, nil
}

func collectRides(rows *sql.Rows) ([]*domain.Ride, error) {
	defer rows.Close()

	var rides []*domain.Ride
	for rows.Next() {
		ride, err := scanRide(rows)
		if err != nil {
			return nil, err
		}
		rides = append(rides, ride)
	}
	return rides, rows.Err()
}

// Ensure RideRepository implements repository.RideRepository.
var _ repository.RideRepository = (*RideRepository)(nil)
