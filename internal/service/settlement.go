package service

import (
	"context"
	"log"
	"math"
	"time"

	"github.com/google/uuid"

	"orbix/internal/domain"
	"orbix/internal/gateway"
	"orbix/internal/repository"
)

// earningsShare is the driver's cut of a settled fare.
const earningsShare = 0.8

// SettlementService applies payment for a completed ride exactly once.
//
// Every path funnels through apply, which is gated by the one-shot
// payment status flip: whichever caller wins the flip credits the
// driver, bumps the counters and records the rider's spend. Losers get
// ErrAlreadySettled and touch nothing.
type SettlementService struct {
	rideRepo      repository.RideRepository
	riderRepo     repository.RiderRepository
	driverRepo    repository.DriverRepository
	walletRepo    repository.WalletRepository
	driverSvc     *DriverService
	notifications *NotificationService
	providers     map[string]gateway.Provider
}

// NewSettlementService creates a new SettlementService.
func NewSettlementService(
	rideRepo repository.RideRepository,
	riderRepo repository.RiderRepository,
	driverRepo repository.DriverRepository,
	walletRepo repository.WalletRepository,
	driverSvc *DriverService,
	notifications *NotificationService,
	providers map[string]gateway.Provider,
) *SettlementService {
	return &SettlementService{
		rideRepo:      rideRepo,
		riderRepo:     riderRepo,
		driverRepo:    driverRepo,
		walletRepo:    walletRepo,
		driverSvc:     driverSvc,
		notifications: notifications,
		providers:     providers,
	}
}

// SettleFromWallet collects the total fare from the rider's wallet and
// settles the ride. Returns ErrInsufficientBalance, leaving everything
// untouched, when the balance does not cover the fare.
func (s *SettlementService) SettleFromWallet(ctx context.Context, rideID string) error {
	ride, err := s.settleableRide(ctx, rideID)
	if err != nil {
		return err
	}

	debit := &domain.Transaction{
		ID:          uuid.New().String(),
		OwnerID:     ride.RiderID,
		OwnerRole:   domain.OwnerRider,
		RideID:      ride.ID,
		Type:        domain.TransactionDebit,
		Amount:      ride.TotalFare,
		Description: "ride fare",
		CreatedAt:   time.Now(),
	}
	ok, err := s.walletRepo.DebitRider(ctx, debit)
	if err != nil {
		return err
	}
	if !ok {
		return ErrInsufficientBalance
	}

	if err := s.apply(ctx, ride, domain.PaymentMethodWallet); err != nil {
		if err == ErrAlreadySettled {
			// A concurrent settlement won between the debit and the
			// flip; return the money.
			s.refund(ctx, ride, ride.TotalFare)
		}
		return err
	}
	return nil
}

// ConfirmExternalRequest confirms a deferred payment through a gateway.
type ConfirmExternalRequest struct {
	RideID   string
	Provider string
	PayerRef string
	Currency string
}

// ConfirmExternal charges the gateway for a deferred ride payment and
// settles the ride.
func (s *SettlementService) ConfirmExternal(ctx context.Context, req ConfirmExternalRequest) (*gateway.ChargeResult, error) {
	provider, ok := s.providers[req.Provider]
	if !ok {
		return nil, ErrUnknownProvider
	}

	ride, err := s.settleableRide(ctx, req.RideID)
	if err != nil {
		return nil, err
	}

	result, err := provider.Charge(ctx, &gateway.ChargeRequest{
		Amount:      ride.TotalFare,
		Currency:    req.Currency,
		PayerRef:    req.PayerRef,
		Description: "ride fare",
		Metadata:    map[string]string{"ride_id": ride.ID},
	})
	if err != nil {
		// Record the failed attempt; the ride stays settleable on retry.
		if _, markErr := s.rideRepo.MarkPaymentFailed(ctx, ride.ID); markErr != nil {
			log.Printf("ride %s: mark payment failed: %v", ride.ID, markErr)
		}
		return nil, err
	}

	if err := s.apply(ctx, ride, domain.PaymentMethod(provider.Name())); err != nil {
		return nil, err
	}
	return result, nil
}

// settleableRide loads the ride and rejects anything that cannot settle.
func (s *SettlementService) settleableRide(ctx context.Context, rideID string) (*domain.Ride, error) {
	if rideID == "" {
		return nil, ErrInvalidRideID
	}

	ride, err := s.rideRepo.GetByID(ctx, rideID)
	if err != nil {
		return nil, err
	}
	if ride.Status != domain.RideStatusCompleted {
		return nil, ErrInvalidTransition
	}
	if ride.PaymentStatus == domain.PaymentStatusCompleted {
		return nil, ErrAlreadySettled
	}
	return ride, nil
}

// apply is the single settlement primitive. The payment status flip is
// the commit point; everything after it runs once per ride.
func (s *SettlementService) apply(ctx context.Context, ride *domain.Ride, method domain.PaymentMethod) error {
	won, err := s.rideRepo.CompletePaymentIfDue(ctx, ride.ID, method)
	if err != nil {
		return err
	}
	if !won {
		return ErrAlreadySettled
	}
	ride.PaymentStatus = domain.PaymentStatusCompleted
	ride.PaymentMethod = method

	earnings := math.Round(ride.TotalFare * earningsShare)

	driver, err := s.driverRepo.GetByID(ctx, ride.DriverID)
	if err != nil {
		return err
	}
	if _, err := s.driverSvc.FreshenCounters(ctx, driver); err != nil {
		return err
	}

	day := ride.EndedAt
	if day.IsZero() {
		day = time.Now()
	}
	err = s.driverRepo.ApplyEarnings(ctx, driver.ID, repository.EarningsUpdate{
		Earnings:    earnings,
		DurationMin: ride.RideDurationMin,
		Day:         day,
	})
	if err != nil {
		return err
	}

	if err := s.riderRepo.AddSpend(ctx, ride.RiderID, ride.TotalFare); err != nil {
		return err
	}

	// Ledger entry for the driver's cut; the balance itself moved with
	// the counter update above.
	_ = s.walletRepo.AppendEntry(ctx, &domain.Transaction{
		ID:          uuid.New().String(),
		OwnerID:     driver.ID,
		OwnerRole:   domain.OwnerDriver,
		RideID:      ride.ID,
		Type:        domain.TransactionCredit,
		Amount:      earnings,
		Description: "ride earnings",
		CreatedAt:   time.Now(),
	})

	balance := driver.WalletBalance + earnings
	if fresh, err := s.driverRepo.GetByID(ctx, driver.ID); err == nil {
		balance = fresh.WalletBalance
	}
	s.notifications.NotifyPaymentSuccess(ride, earnings, balance)

	return nil
}

// refund returns a debit that lost the settlement race.
func (s *SettlementService) refund(ctx context.Context, ride *domain.Ride, amount float64) {
	_ = s.walletRepo.CreditRider(ctx, &domain.Transaction{
		ID:          uuid.New().String(),
		OwnerID:     ride.RiderID,
		OwnerRole:   domain.OwnerRider,
		RideID:      ride.ID,
		Type:        domain.TransactionCredit,
		Amount:      amount,
		Description: "ride fare refund",
		CreatedAt:   time.Now(),
	})
}
