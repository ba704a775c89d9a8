package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"orbix/internal/domain"
	"orbix/internal/gateway"
	"orbix/internal/repository"
)

// WalletService handles top-ups, balances and the transaction log.
type WalletService struct {
	riderRepo  repository.RiderRepository
	walletRepo repository.WalletRepository
	fare       *FareService
	providers  map[string]gateway.Provider
}

// NewWalletService creates a new WalletService.
func NewWalletService(
	riderRepo repository.RiderRepository,
	walletRepo repository.WalletRepository,
	fare *FareService,
	providers map[string]gateway.Provider,
) *WalletService {
	return &WalletService{
		riderRepo:  riderRepo,
		walletRepo: walletRepo,
		fare:       fare,
		providers:  providers,
	}
}

// ErrUnknownProvider is returned for an unconfigured gateway name.
var ErrUnknownProvider = fmt.Errorf("unknown payment provider")

// TopUpRequest contains the parameters for a wallet top-up.
type TopUpRequest struct {
	RiderID  string
	Amount   float64
	Currency string
	Provider string // gateway name, e.g. "stripe" or "razorpay"
	PayerRef string // provider-side payment method or customer ref
}

// TopUpResponse reports the credited wallet.
type TopUpResponse struct {
	Balance       float64
	TransactionID string // provider transaction id
}

// TopUp charges the gateway and credits the wallet. The ledger entry
// carries the provider transaction id; the wallet is only touched after
// the provider reports success.
func (s *WalletService) TopUp(ctx context.Context, req TopUpRequest) (*TopUpResponse, error) {
	if req.RiderID == "" {
		return nil, ErrInvalidRiderID
	}
	if req.Amount <= 0 {
		return nil, ErrInvalidAmount
	}
	provider, ok := s.providers[req.Provider]
	if !ok {
		return nil, ErrUnknownProvider
	}

	rider, err := s.riderRepo.GetByID(ctx, req.RiderID)
	if err != nil {
		return nil, err
	}

	result, err := provider.Charge(ctx, &gateway.ChargeRequest{
		Amount:      req.Amount,
		Currency:    req.Currency,
		PayerRef:    req.PayerRef,
		Description: "wallet top-up",
		Metadata:    map[string]string{"rider_id": rider.ID},
	})
	if err != nil {
		return nil, err
	}

	err = s.walletRepo.CreditRider(ctx, &domain.Transaction{
		ID:          uuid.New().String(),
		OwnerID:     rider.ID,
		OwnerRole:   domain.OwnerRider,
		Type:        domain.TransactionCredit,
		Amount:      req.Amount,
		Description: "wallet top-up via " + provider.Name(),
		ExternalRef: result.TransactionID,
		CreatedAt:   time.Now(),
	})
	if err != nil {
		return nil, err
	}

	fresh, err := s.riderRepo.GetByID(ctx, rider.ID)
	if err != nil {
		return nil, err
	}

	return &TopUpResponse{
		Balance:       fresh.WalletBalance,
		TransactionID: result.TransactionID,
	}, nil
}

// DiscountQuote reports the flat wallet discount for a fare and whether
// the rider's wallet could cover the discounted amount right now.
type DiscountQuote struct {
	Discount   float64
	Payable    float64
	WalletOK   bool
	WalletLink bool
}

// QuoteDiscount computes the wallet discount for a fare.
func (s *WalletService) QuoteDiscount(ctx context.Context, riderID string, fare float64) (*DiscountQuote, error) {
	if riderID == "" {
		return nil, ErrInvalidRiderID
	}
	if fare <= 0 {
		return nil, ErrInvalidAmount
	}

	rider, err := s.riderRepo.GetByID(ctx, riderID)
	if err != nil {
		return nil, err
	}

	discount := s.fare.WalletDiscount(fare)
	payable := fare - discount

	return &DiscountQuote{
		Discount:   discount,
		Payable:    payable,
		WalletOK:   rider.WalletLinked && rider.WalletBalance >= payable,
		WalletLink: rider.WalletLinked,
	}, nil
}

// Transactions lists a wallet's ledger entries, newest first.
func (s *WalletService) Transactions(ctx context.Context, ownerID string, role domain.OwnerRole, limit int) ([]*domain.Transaction, error) {
	if ownerID == "" {
		return nil, ErrInvalidRiderID
	}
	return s.walletRepo.ListByOwner(ctx, ownerID, role, limit)
}
