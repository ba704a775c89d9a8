package repository

import (
	"context"

	"orbix/internal/domain"
)

// RiderRepository defines the persistence operations for riders.
type RiderRepository interface {
	// Create adds a new rider.
	Create(ctx context.Context, rider *domain.Rider) error

	// GetByID retrieves a rider by ID.
	GetByID(ctx context.Context, id string) (*domain.Rider, error)

	// GetByPhone retrieves a rider by phone number.
	GetByPhone(ctx context.Context, phone string) (*domain.Rider, error)

	// IncrementRides bumps the lifetime ride count. Called once per
	// completed ride regardless of how it settles.
	IncrementRides(ctx context.Context, id string) error

	// AddSpend adds a settled fare to the lifetime spend.
	AddSpend(ctx context.Context, id string, amount float64) error

	// SetWalletLinked toggles whether future rides may auto-settle
	// from the wallet.
	SetWalletLinked(ctx context.Context, id string, linked bool) error
}
