package service

import (
	"context"
	"crypto/rand"
	"log"
	"math"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"orbix/internal/domain"
	"orbix/internal/maps"
	"orbix/internal/repository"
)

// RideService drives the ride lifecycle:
// pending -> accepted -> ongoing -> completed, with cancellation
// allowed from any state before completion. Every transition is a
// conditional update in the repository, so racing callers settle on
// exactly one outcome.
type RideService struct {
	rideRepo      repository.RideRepository
	riderRepo     repository.RiderRepository
	driverRepo    repository.DriverRepository
	router        maps.Router
	fare          *FareService
	dispatch      *DispatchService
	settlement    *SettlementService
	notifications *NotificationService
}

// NewRideService creates a new RideService.
func NewRideService(
	rideRepo repository.RideRepository,
	riderRepo repository.RiderRepository,
	driverRepo repository.DriverRepository,
	router maps.Router,
	fare *FareService,
	dispatch *DispatchService,
	settlement *SettlementService,
	notifications *NotificationService,
) *RideService {
	return &RideService{
		rideRepo:      rideRepo,
		riderRepo:     riderRepo,
		driverRepo:    driverRepo,
		router:        router,
		fare:          fare,
		dispatch:      dispatch,
		settlement:    settlement,
		notifications: notifications,
	}
}

// EstimateRequest contains the parameters for a fare quote.
type EstimateRequest struct {
	Pickup      string
	Destination string
}

// EstimateResponse carries a route estimate and a fare per class.
type EstimateResponse struct {
	DistanceKm  float64
	DurationMin float64
	Fares       map[domain.VehicleClass]float64
}

// Estimate quotes fares for all vehicle classes over a route.
func (s *RideService) Estimate(ctx context.Context, req EstimateRequest) (*EstimateResponse, error) {
	if req.Pickup == "" || req.Destination == "" {
		return nil, ErrInvalidAddress
	}

	route := s.routeOrFallback(ctx, req.Pickup, req.Destination)
	return &EstimateResponse{
		DistanceKm:  route.DistanceKm,
		DurationMin: route.DurationMin,
		Fares:       s.fare.EstimateAll(route.DistanceKm, route.DurationMin),
	}, nil
}

// CreateRideRequest contains the parameters for requesting a ride.
type CreateRideRequest struct {
	RiderID      string
	Pickup       string
	Destination  string
	VehicleClass string
}

// Create quotes and persists a new pending ride, then fans the request
// out to drivers in the background. The response never waits on
// dispatch: a ride with no takers simply stays pending.
func (s *RideService) Create(ctx context.Context, req CreateRideRequest) (*domain.Ride, error) {
	if req.RiderID == "" {
		return nil, ErrInvalidRiderID
	}
	if req.Pickup == "" || req.Destination == "" {
		return nil, ErrInvalidAddress
	}
	class, err := ValidVehicleClass(req.VehicleClass)
	if err != nil {
		return nil, err
	}

	rider, err := s.riderRepo.GetByID(ctx, req.RiderID)
	if err != nil {
		return nil, err
	}

	route := s.routeOrFallback(ctx, req.Pickup, req.Destination)
	fare, err := s.fare.Estimate(class, route.DistanceKm, route.DurationMin)
	if err != nil {
		return nil, err
	}

	otp, err := generateOTP()
	if err != nil {
		return nil, err
	}

	ride := &domain.Ride{
		ID:            uuid.New().String(),
		RiderID:       req.RiderID,
		Pickup:        req.Pickup,
		Destination:   req.Destination,
		VehicleClass:  class,
		DistanceKm:    route.DistanceKm,
		DurationMin:   route.DurationMin,
		Fare:          fare,
		OTP:           otp,
		WalletLinked:  rider.WalletLinked,
		Status:        domain.RideStatusPending,
		PaymentStatus: domain.PaymentStatusPending,
		CreatedAt:     time.Now(),
	}

	if err := s.rideRepo.Create(ctx, ride); err != nil {
		return nil, err
	}

	go s.dispatch.Broadcast(context.Background(), ride)

	return ride, nil
}

// AcceptRequest contains the parameters for a driver claiming a ride.
type AcceptRequest struct {
	RideID   string
	DriverID string
}

// Accept claims a pending ride for a driver. When several drivers race
// for the same ride, the conditional assignment lets exactly one
// through; the rest get ErrRideUnavailable.
func (s *RideService) Accept(ctx context.Context, req AcceptRequest) (*domain.Ride, error) {
	if req.RideID == "" {
		return nil, ErrInvalidRideID
	}
	if req.DriverID == "" {
		return nil, ErrInvalidDriverID
	}

	driver, err := s.driverRepo.GetByID(ctx, req.DriverID)
	if err != nil {
		return nil, err
	}

	claimed, err := s.rideRepo.ClaimIfPending(ctx, req.RideID, req.DriverID)
	if err != nil {
		return nil, err
	}
	if !claimed {
		if _, err := s.rideRepo.GetByID(ctx, req.RideID); err != nil {
			return nil, err
		}
		return nil, ErrRideUnavailable
	}

	ride, err := s.rideRepo.GetByID(ctx, req.RideID)
	if err != nil {
		return nil, err
	}

	s.notifications.NotifyRideAccepted(ride, driver)
	go s.dispatch.NotifyTaken(context.Background(), ride, driver.ID)

	return ride, nil
}

// StartRequest contains the parameters for starting a claimed ride.
type StartRequest struct {
	RideID   string
	DriverID string
	OTP      string
}

// Start begins the trip once the driver relays the rider's code. A
// wrong code leaves the ride accepted; a correct code on a ride that
// already started reports an invalid transition.
func (s *RideService) Start(ctx context.Context, req StartRequest) (*domain.Ride, error) {
	if req.RideID == "" {
		return nil, ErrInvalidRideID
	}

	ride, err := s.rideRepo.GetByID(ctx, req.RideID)
	if err != nil {
		return nil, err
	}
	if ride.DriverID != req.DriverID {
		return nil, ErrNotRideDriver
	}
	if strings.TrimSpace(req.OTP) != strings.TrimSpace(ride.OTP) {
		return nil, ErrInvalidOTP
	}

	startedAt := time.Now()
	started, err := s.rideRepo.MarkStarted(ctx, ride.ID, startedAt)
	if err != nil {
		return nil, err
	}
	if !started {
		return nil, ErrInvalidTransition
	}

	ride.Status = domain.RideStatusOngoing
	ride.StartedAt = startedAt

	s.notifications.NotifyRideStarted(ride)

	return ride, nil
}

// CompleteRequest contains the parameters for ending an ongoing ride.
type CompleteRequest struct {
	RideID         string
	DriverID       string
	WaitingCharges float64
}

// CompleteResponse reports the completed ride and whether payment is
// still due.
type CompleteResponse struct {
	Ride           *domain.Ride
	PaymentPending bool
}

// Complete ends an ongoing ride, fixes the total fare and tries to
// settle it from the rider's wallet. A wallet that cannot cover the
// fare defers payment: the ride completes, the wallet is unlinked and
// the fare is collected later through a gateway.
func (s *RideService) Complete(ctx context.Context, req CompleteRequest) (*CompleteResponse, error) {
	if req.RideID == "" {
		return nil, ErrInvalidRideID
	}
	if req.WaitingCharges < 0 {
		return nil, ErrInvalidAmount
	}

	ride, err := s.rideRepo.GetByID(ctx, req.RideID)
	if err != nil {
		return nil, err
	}
	if ride.DriverID != req.DriverID {
		return nil, ErrNotRideDriver
	}

	endedAt := time.Now()
	durationMin := 0
	if !ride.StartedAt.IsZero() {
		durationMin = int(math.Ceil(endedAt.Sub(ride.StartedAt).Seconds() / 60))
	}
	totalFare := ride.Fare + req.WaitingCharges

	completed, err := s.rideRepo.MarkCompleted(ctx, ride.ID, repository.RideCompletion{
		EndedAt:        endedAt,
		DurationMin:    durationMin,
		WaitingCharges: req.WaitingCharges,
		TotalFare:      totalFare,
	})
	if err != nil {
		return nil, err
	}
	if !completed {
		return nil, ErrInvalidTransition
	}

	ride.Status = domain.RideStatusCompleted
	ride.EndedAt = endedAt
	ride.RideDurationMin = durationMin
	ride.WaitingCharges = req.WaitingCharges
	ride.TotalFare = totalFare

	// Every completed ride counts for the rider, settled or not.
	if err := s.riderRepo.IncrementRides(ctx, ride.RiderID); err != nil {
		log.Printf("ride %s: increment rider rides: %v", ride.ID, err)
	}

	paymentPending := s.autoSettle(ctx, ride)

	s.notifications.NotifyRideEnded(ride, paymentPending)

	return &CompleteResponse{Ride: ride, PaymentPending: paymentPending}, nil
}

// autoSettle attempts wallet settlement and reports whether payment is
// still due. An uncovered fare demotes the ride's wallet link, so this
// ride stops retrying a wallet known to be short; the rider's link and
// their other rides are untouched.
func (s *RideService) autoSettle(ctx context.Context, ride *domain.Ride) bool {
	if !ride.WalletLinked {
		return true
	}

	switch err := s.settlement.SettleFromWallet(ctx, ride.ID); err {
	case nil:
		ride.PaymentStatus = domain.PaymentStatusCompleted
		ride.PaymentMethod = domain.PaymentMethodWallet
		return false
	case ErrInsufficientBalance:
		if err := s.rideRepo.UnlinkWallet(ctx, ride.ID); err != nil {
			log.Printf("ride %s: unlink wallet: %v", ride.ID, err)
		}
		ride.WalletLinked = false
		return true
	default:
		log.Printf("ride %s: wallet settlement: %v", ride.ID, err)
		return true
	}
}

// CancelRequest contains the parameters for cancelling a ride.
type CancelRequest struct {
	RideID  string
	ActorID string // rider or assigned driver
	Reason  string
}

// Cancel cancels a ride that has not completed yet. Pending, accepted
// and ongoing rides can all be cancelled by either party.
func (s *RideService) Cancel(ctx context.Context, req CancelRequest) (*domain.Ride, error) {
	if req.RideID == "" {
		return nil, ErrInvalidRideID
	}

	ride, err := s.rideRepo.GetByID(ctx, req.RideID)
	if err != nil {
		return nil, err
	}
	if req.ActorID != ride.RiderID && req.ActorID != ride.DriverID {
		return nil, ErrNotRideRider
	}

	cancelledAt := time.Now()
	cancelled, err := s.rideRepo.MarkCancelled(ctx, ride.ID, req.Reason, cancelledAt)
	if err != nil {
		return nil, err
	}
	if !cancelled {
		return nil, ErrInvalidTransition
	}

	ride.Status = domain.RideStatusCancelled
	ride.CancelledAt = cancelledAt
	ride.CancelReason = req.Reason

	s.notifications.NotifyRideCancelled(ride, req.ActorID, req.Reason)

	return ride, nil
}

// RateRequest contains the parameters for rating a completed ride.
type RateRequest struct {
	RideID  string
	RiderID string
	Rating  int
	Review  string
}

// Rate stores a one-time rating and review on a completed ride and
// refreshes the driver's average, computed over all their rated rides
// and rounded to one decimal.
func (s *RideService) Rate(ctx context.Context, req RateRequest) error {
	if req.RideID == "" {
		return ErrInvalidRideID
	}
	if req.Rating < 1 || req.Rating > 5 {
		return ErrInvalidRating
	}

	ride, err := s.rideRepo.GetByID(ctx, req.RideID)
	if err != nil {
		return err
	}
	if ride.RiderID != req.RiderID {
		return ErrNotRideRider
	}

	rated, err := s.rideRepo.RateIfUnrated(ctx, ride.ID, req.Rating, req.Review)
	if err != nil {
		return err
	}
	if !rated {
		if ride.Rating != 0 {
			return ErrAlreadyRated
		}
		return ErrInvalidTransition
	}

	if ride.DriverID != "" {
		avg, count, err := s.rideRepo.AverageRatingForDriver(ctx, ride.DriverID)
		if err == nil && count > 0 {
			rounded := math.Round(avg*10) / 10
			if err := s.driverRepo.UpdateRating(ctx, ride.DriverID, rounded); err != nil {
				log.Printf("ride %s: update driver rating: %v", ride.ID, err)
			}
		}
	}

	return nil
}

// Get retrieves a ride by ID.
func (s *RideService) Get(ctx context.Context, rideID string) (*domain.Ride, error) {
	if rideID == "" {
		return nil, ErrInvalidRideID
	}
	return s.rideRepo.GetByID(ctx, rideID)
}

// HistoryForRider lists a rider's rides, newest first.
func (s *RideService) HistoryForRider(ctx context.Context, riderID string, f repository.RideFilter) ([]*domain.Ride, error) {
	if riderID == "" {
		return nil, ErrInvalidRiderID
	}
	return s.rideRepo.ListByRider(ctx, riderID, f)
}

// HistoryForDriver lists a driver's rides, newest first.
func (s *RideService) HistoryForDriver(ctx context.Context, driverID string, f repository.RideFilter) ([]*domain.Ride, error) {
	if driverID == "" {
		return nil, ErrInvalidDriverID
	}
	return s.rideRepo.ListByDriver(ctx, driverID, f)
}

// AvailableRides lists pending, unassigned rides matching the driver's
// vehicle class.
func (s *RideService) AvailableRides(ctx context.Context, driverID string) ([]*domain.Ride, error) {
	if driverID == "" {
		return nil, ErrInvalidDriverID
	}

	driver, err := s.driverRepo.GetByID(ctx, driverID)
	if err != nil {
		return nil, err
	}
	return s.rideRepo.ListPendingUnassigned(ctx, driver.VehicleClass)
}

// routeOrFallback asks the routing collaborator for an estimate and
// degrades to fixed defaults when it is unreachable, so ride creation
// never fails on a maps outage.
func (s *RideService) routeOrFallback(ctx context.Context, pickup, destination string) maps.RouteEstimate {
	route, err := s.router.Route(ctx, pickup, destination)
	if err != nil {
		log.Printf("route %q -> %q: %v, using fallback estimate", pickup, destination, err)
		return maps.RouteEstimate{
			DistanceKm:  FallbackDistanceKm,
			DurationMin: FallbackDurationMin,
		}
	}
	return route
}

// generateOTP returns a crypto-random six digit code.
func generateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(n.Int64()+100000, 10), nil
}
