package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"orbix/internal/domain"
	"orbix/internal/repository"
)

// RiderService handles rider registration and profile reads.
type RiderService struct {
	riderRepo repository.RiderRepository
}

// NewRiderService creates a new RiderService.
func NewRiderService(riderRepo repository.RiderRepository) *RiderService {
	return &RiderService{riderRepo: riderRepo}
}

// RegisterRiderRequest contains the parameters for registering a rider.
type RegisterRiderRequest struct {
	Name  string
	Phone string
}

// Register creates a rider. Wallets start linked; a failed settlement
// unlinks them until the rider re-links.
func (s *RiderService) Register(ctx context.Context, req RegisterRiderRequest) (*domain.Rider, error) {
	if req.Phone == "" {
		return nil, ErrInvalidPhone
	}

	rider := &domain.Rider{
		ID:           uuid.New().String(),
		Name:         req.Name,
		Phone:        req.Phone,
		WalletLinked: true,
		CreatedAt:    time.Now(),
	}

	if err := s.riderRepo.Create(ctx, rider); err != nil {
		return nil, err
	}
	return rider, nil
}

// Get retrieves a rider by ID.
func (s *RiderService) Get(ctx context.Context, riderID string) (*domain.Rider, error) {
	if riderID == "" {
		return nil, ErrInvalidRiderID
	}
	return s.riderRepo.GetByID(ctx, riderID)
}

// LinkWallet re-enables wallet auto-settlement for future rides.
func (s *RiderService) LinkWallet(ctx context.Context, riderID string) error {
	if riderID == "" {
		return ErrInvalidRiderID
	}
	return s.riderRepo.SetWalletLinked(ctx, riderID, true)
}
