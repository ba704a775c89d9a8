package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/lib/pq"

	"orbix/internal/domain"
	"orbix/internal/repository"
)

// DriverRepository is a PostgreSQL implementation of repository.DriverRepository.
type DriverRepository struct {
	q Querier
}

// NewDriverRepository creates a new PostgreSQL driver repository.
func NewDriverRepository(db *sql.DB) *DriverRepository {
	return &DriverRepository{q: db}
}

// NewDriverRepositoryWithTx creates a driver repository using a transaction.
func NewDriverRepositoryWithTx(tx *sql.Tx) *DriverRepository {
	return &DriverRepository{q: tx}
}

const driverColumns = `id, name, phone, status, vehicle_class, plate, color, rating,
	wallet_balance, today_earnings, trips_today, weekly_earnings, weekly_trips,
	total_trips, avg_ride_time_min, last_ride_day, week_start_at, created_at`

// Create adds a new driver.
func (r *DriverRepository) Create(ctx context.Context, driver *domain.Driver) error {
	query := `
		INSERT INTO drivers (id, name, phone, status, vehicle_class, plate, color, week_start_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.q.ExecContext(ctx, query,
		driver.ID,
		driver.Name,
		driver.Phone,
		driver.Status,
		driver.VehicleClass,
		driver.Plate,
		driver.Color,
		driver.WeekStartAt,
		driver.CreatedAt,
	)
	return err
}

// GetByID retrieves a driver by ID.
func (r *DriverRepository) GetByID(ctx context.Context, id string) (*domain.Driver, error) {
	query := `SELECT ` + driverColumns + ` FROM drivers WHERE id = $1`

	driver, err := scanDriver(r.q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return driver, nil
}

// GetByPhone retrieves a driver by phone number.
func (r *DriverRepository) GetByPhone(ctx context.Context, phone string) (*domain.Driver, error) {
	query := `SELECT ` + driverColumns + ` FROM drivers WHERE phone = $1`

	driver, err := scanDriver(r.q.QueryRowContext(ctx, query, phone))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return driver, nil
}

// GetByIDs retrieves the given drivers, skipping unknown IDs.
func (r *DriverRepository) GetByIDs(ctx context.Context, ids []string) ([]*domain.Driver, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query := `SELECT ` + driverColumns + ` FROM drivers WHERE id = ANY($1)`
	rows, err := r.q.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return nil, err
	}
	return collectDrivers(rows)
}

// ListActiveByClass retrieves all active drivers of a vehicle class.
func (r *DriverRepository) ListActiveByClass(ctx context.Context, class domain.VehicleClass) ([]*domain.Driver, error) {
	query := `SELECT ` + driverColumns + ` FROM drivers WHERE status = $1 AND vehicle_class = $2 ORDER BY id`
	rows, err := r.q.QueryContext(ctx, query, domain.DriverStatusActive, class)
	if err != nil {
		return nil, err
	}
	return collectDrivers(rows)
}

// UpdateStatus updates the availability of a driver.
func (r *DriverRepository) UpdateStatus(ctx context.Context, id string, status domain.DriverStatus) error {
	query := `UPDATE drivers SET status = $1 WHERE id = $2`
	return r.mustMatch(ctx, query, status, id)
}

// ApplyEarnings credits the wallet and bumps the daily, weekly and
// lifetime counters. The running average ride time folds the new
// duration in against the pre-update trip count, then rounds up.
func (r *DriverRepository) ApplyEarnings(ctx context.Context, id string, u repository.EarningsUpdate) error {
	query := `
		UPDATE drivers
		SET wallet_balance = wallet_balance + $1,
		    today_earnings = today_earnings + $1,
		    trips_today = trips_today + 1,
		    weekly_earnings = weekly_earnings + $1,
		    weekly_trips = weekly_trips + 1,
		    total_trips = total_trips + 1,
		    avg_ride_time_min = CEIL((avg_ride_time_min::numeric * total_trips + $2) / (total_trips + 1)),
		    last_ride_day = $3
		WHERE id = $4
	`
	return r.mustMatch(ctx, query, u.Earnings, u.DurationMin, u.Day, id)
}

// ResetDailyCounters zeroes today's earnings and trip count.
func (r *DriverRepository) ResetDailyCounters(ctx context.Context, id string) error {
	query := `UPDATE drivers SET today_earnings = 0, trips_today = 0 WHERE id = $1`
	return r.mustMatch(ctx, query, id)
}

// ResetWeeklyCounters zeroes the weekly counters and opens a new
// counting window starting at weekStart.
func (r *DriverRepository) ResetWeeklyCounters(ctx context.Context, id string, weekStart time.Time) error {
	query := `UPDATE drivers SET weekly_earnings = 0, weekly_trips = 0, week_start_at = $1 WHERE id = $2`
	return r.mustMatch(ctx, query, weekStart, id)
}

// UpdateRating stores the recomputed average rating.
func (r *DriverRepository) UpdateRating(ctx context.Context, id string, rating float64) error {
	query := `UPDATE drivers SET rating = $1 WHERE id = $2`
	return r.mustMatch(ctx, query, rating, id)
}

func (r *DriverRepository) mustMatch(ctx context.Context, query string, args ...any) error {
	result, err := r.q.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func scanDriver(row rowScanner) (*domain.Driver, error) {
	var driver domain.Driver
	var lastRideDay sql.NullTime

	err := row.Scan(
		&driver.ID,
		&driver.Name,
		&driver.Phone,
		&driver.Status,
		&driver.VehicleClass,
		&driver.Plate,
		&driver.Color,
		&driver.Rating,
		&driver.WalletBalance,
		&driver.TodayEarnings,
		&driver.TripsToday,
		&driver.WeeklyEarnings,
		&driver.WeeklyTrips,
		&driver.TotalTrips,
		&driver.AvgRideTimeMin,
		&lastRideDay,
		&driver.WeekStartAt,
		&driver.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if lastRideDay.Valid {
		driver.LastRideDay = lastRideDay.Time
	}

	return &driver, nil
}

func collectDrivers(rows *sql.Rows) ([]*domain.Driver, error) {
	defer rows.Close()

	var drivers []*domain.Driver
	for rows.Next() {
		driver, err := scanDriver(rows)
		if err != nil {
			return nil, err
		}
		drivers = append(drivers, driver)
	}
	return drivers, rows.Err()
}

// Ensure DriverRepository implements repository.DriverRepository.
var _ repository.DriverRepository = (*DriverRepository)(nil)
