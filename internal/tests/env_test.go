package tests

import (
	"time"

	"orbix/internal/domain"
	"orbix/internal/gateway"
	"orbix/internal/maps"
	"orbix/internal/service"
)

// env wires the full service stack over in-memory collaborators.
type env struct {
	rides     *MockRideRepository
	riders    *MockRiderRepository
	drivers   *MockDriverRepository
	wallet    *MockWalletRepository
	locations *MockLocationStore
	locks     *MockLockStore
	router    *MockRouter
	pub       *MockPublisher
	provider  *MockProvider

	fare       *service.FareService
	driverSvc  *service.DriverService
	riderSvc   *service.RiderService
	dispatch   *service.DispatchService
	settlement *service.SettlementService
	rideSvc    *service.RideService
	walletSvc  *service.WalletService
}

func newEnv() *env {
	e := &env{
		rides:     NewMockRideRepository(),
		riders:    NewMockRiderRepository(),
		drivers:   NewMockDriverRepository(),
		locations: NewMockLocationStore(),
		locks:     NewMockLockStore(),
		router:    &MockRouter{Estimate: maps.RouteEstimate{DistanceKm: 5, DurationMin: 15}},
		pub:       NewMockPublisher(),
		provider:  NewMockProvider(),
	}
	e.wallet = NewMockWalletRepository(e.riders)

	providers := map[string]gateway.Provider{"mock": e.provider}
	notifications := service.NewNotificationService(e.pub)

	e.fare = service.NewFareService()
	e.driverSvc = service.NewDriverService(e.locations, e.drivers)
	e.riderSvc = service.NewRiderService(e.riders)
	e.walletSvc = service.NewWalletService(e.riders, e.wallet, e.fare, providers)
	e.dispatch = service.NewDispatchService(e.locations, e.locks, e.drivers, e.riders, e.router, notifications)
	e.settlement = service.NewSettlementService(e.rides, e.riders, e.drivers, e.wallet, e.driverSvc, notifications, providers)
	e.rideSvc = service.NewRideService(e.rides, e.riders, e.drivers, e.router, e.fare, e.dispatch, e.settlement, notifications)

	return e
}

func (e *env) addRider(id string, balance float64, linked bool) {
	e.riders.AddRider(&domain.Rider{
		ID:            id,
		Name:          "Rider " + id,
		Phone:         "+91" + id,
		WalletBalance: balance,
		WalletLinked:  linked,
		CreatedAt:     time.Now(),
	})
}

func (e *env) addDriver(id string, class domain.VehicleClass, status domain.DriverStatus) {
	e.drivers.AddDriver(&domain.Driver{
		ID:           id,
		Name:         "Driver " + id,
		Phone:        "+92" + id,
		Status:       status,
		VehicleClass: class,
		Plate:        "KA-01-" + id,
		Color:        "white",
		WeekStartAt:  time.Now(),
		CreatedAt:    time.Now(),
	})
}

func (e *env) addRide(ride *domain.Ride) {
	if ride.VehicleClass == "" {
		ride.VehicleClass = domain.VehicleClassAuto
	}
	if ride.PaymentStatus == "" {
		ride.PaymentStatus = domain.PaymentStatusPending
	}
	if ride.CreatedAt.IsZero() {
		ride.CreatedAt = time.Now()
	}
	e.rides.AddRide(ride)
}
