package postgres

import (
	"context"
	"database/sql"
	"errors"

	"orbix/internal/domain"
	"orbix/internal/repository"
)

// RiderRepository is a PostgreSQL implementation of repository.RiderRepository.
type RiderRepository struct {
	q Querier
}

// NewRiderRepository creates a new PostgreSQL rider repository.
func NewRiderRepository(db *sql.DB) *RiderRepository {
	return &RiderRepository{q: db}
}

// NewRiderRepositoryWithTx creates a rider repository using a transaction.
func NewRiderRepositoryWithTx(tx *sql.Tx) *RiderRepository {
	return &RiderRepository{q: tx}
}

const riderColumns = `id, name, phone, wallet_balance, wallet_linked, total_rides, total_spent, created_at`

// Create adds a new rider.
func (r *RiderRepository) Create(ctx context.Context, rider *domain.Rider) error {
	query := `
		INSERT INTO riders (id, name, phone, wallet_linked, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.q.ExecContext(ctx, query, rider.ID, rider.Name, rider.Phone, rider.WalletLinked, rider.CreatedAt)
	return err
}

// GetByID retrieves a rider by ID.
func (r *RiderRepository) GetByID(ctx context.Context, id string) (*domain.Rider, error) {
	query := `SELECT ` + riderColumns + ` FROM riders WHERE id = $1`
	return r.getOne(ctx, query, id)
}

// GetByPhone retrieves a rider by phone number.
func (r *RiderRepository) GetByPhone(ctx context.Context, phone string) (*domain.Rider, error) {
	query := `SELECT ` + riderColumns + ` FROM riders WHERE phone = $1`
	return r.getOne(ctx, query, phone)
}

// IncrementRides bumps the lifetime ride count.
func (r *RiderRepository) IncrementRides(ctx context.Context, id string) error {
	query := `UPDATE riders SET total_rides = total_rides + 1 WHERE id = $1`
	return r.mustMatch(ctx, query, id)
}

// AddSpend adds a settled fare to the lifetime spend.
func (r *RiderRepository) AddSpend(ctx context.Context, id string, amount float64) error {
	query := `UPDATE riders SET total_spent = total_spent + $1 WHERE id = $2`
	return r.mustMatch(ctx, query, amount, id)
}

// SetWalletLinked toggles whether future rides may auto-settle from the wallet.
func (r *RiderRepository) SetWalletLinked(ctx context.Context, id string, linked bool) error {
	query := `UPDATE riders SET wallet_linked = $1 WHERE id = $2`
	return r.mustMatch(ctx, query, linked, id)
}

func (r *RiderRepository) getOne(ctx context.Context, query string, arg any) (*domain.Rider, error) {
	var rider domain.Rider
	err := r.q.QueryRowContext(ctx, query, arg).Scan(
		&rider.ID,
		&rider.Name,
		&rider.Phone,
		&rider.WalletBalance,
		&rider.WalletLinked,
		&rider.TotalRides,
		&rider.TotalSpent,
		&rider.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &rider, nil
}

func (r *RiderRepository) mustMatch(ctx context.Context, query string, args ...any) error {
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

// Ensure RiderRepository implements repository.RiderRepository.
var _ repository.RiderRepository = (*RiderRepository)(nil)
