package tests

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"orbix/internal/domain"
	"orbix/internal/repository"
	"orbix/internal/service"
)

// ──────────────────────────────────────────────
// RIDE LIFECYCLE
// ──────────────────────────────────────────────

func TestCreate_RideStartsPendingWithCode(t *testing.T) {
	t.Parallel()

	e := newEnv()
	e.addRider("rider-1", 0, false)

	ride, err := e.rideSvc.Create(context.Background(), service.CreateRideRequest{
		RiderID:      "rider-1",
		Pickup:       "MG Road",
		Destination:  "Airport",
		VehicleClass: "auto",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if ride.Status != domain.RideStatusPending {
		t.Errorf("expected status %s, got %s", domain.RideStatusPending, ride.Status)
	}
	if ride.DriverID != "" {
		t.Errorf("expected no assigned driver, got %s", ride.DriverID)
	}
	if len(ride.OTP) != 6 {
		t.Errorf("expected 6 digit code, got %q", ride.OTP)
	}
	// 5 km, 15 min on auto: 30 + 10*5 + 2*15
	if ride.Fare != 110 {
		t.Errorf("expected fare 110, got %v", ride.Fare)
	}
	if stored := e.rides.GetRide(ride.ID); stored == nil {
		t.Error("ride not persisted")
	}
}

func TestCreate_StaysPendingWithNoDriversOnline(t *testing.T) {
	t.Parallel()

	e := newEnv()
	e.addRider("rider-1", 0, false)

	ride, err := e.rideSvc.Create(context.Background(), service.CreateRideRequest{
		RiderID:      "rider-1",
		Pickup:       "MG Road",
		Destination:  "Airport",
		VehicleClass: "car",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Dispatch runs in the background; give it time to come up empty.
	time.Sleep(50 * time.Millisecond)

	if got := e.rides.GetRide(ride.ID).Status; got != domain.RideStatusPending {
		t.Errorf("expected ride to stay pending, got %s", got)
	}
	if n := e.pub.CountByEvent(service.EventRideRequest); n != 0 {
		t.Errorf("expected no ride offers, got %d", n)
	}
}

func TestCreate_FallsBackWhenRoutingDown(t *testing.T) {
	t.Parallel()

	e := newEnv()
	e.addRider("rider-1", 0, false)
	e.router.RouteError = errors.New("upstream timeout")

	ride, err := e.rideSvc.Create(context.Background(), service.CreateRideRequest{
		RiderID:      "rider-1",
		Pickup:       "MG Road",
		Destination:  "Airport",
		VehicleClass: "moto",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if ride.DistanceKm != service.FallbackDistanceKm {
		t.Errorf("expected fallback distance %v, got %v", service.FallbackDistanceKm, ride.DistanceKm)
	}
	if ride.DurationMin != service.FallbackDurationMin {
		t.Errorf("expected fallback duration %v, got %v", service.FallbackDurationMin, ride.DurationMin)
	}
}

func TestCreate_UnknownRiderRejected(t *testing.T) {
	t.Parallel()

	e := newEnv()

	_, err := e.rideSvc.Create(context.Background(), service.CreateRideRequest{
		RiderID:      "ghost",
		Pickup:       "A",
		Destination:  "B",
		VehicleClass: "auto",
	})
	if !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

// ──────────────────────────────────────────────
// ACCEPT RACE
// ──────────────────────────────────────────────

func TestAccept_ExactlyOneWinnerUnderContention(t *testing.T) {
	t.Parallel()

	e := newEnv()
	e.addRider("rider-1", 0, false)

	const contenders = 20
	for i := 0; i < contenders; i++ {
		e.addDriver(fmt.Sprintf("driver-%d", i), domain.VehicleClassAuto, domain.DriverStatusActive)
	}

	e.addRide(&domain.Ride{
		ID:      "ride-1",
		RiderID: "rider-1",
		Status:  domain.RideStatusPending,
		OTP:     "123456",
	})

	var wins, losses int32
	var wg sync.WaitGroup
	for i := 0; i < contenders; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := e.rideSvc.Accept(context.Background(), service.AcceptRequest{
				RideID:   "ride-1",
				DriverID: fmt.Sprintf("driver-%d", i),
			})
			switch {
			case err == nil:
				atomic.AddInt32(&wins, 1)
			case errors.Is(err, service.ErrRideUnavailable):
				atomic.AddInt32(&losses, 1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	if wins != 1 {
		t.Errorf("expected exactly 1 winner, got %d", wins)
	}
	if losses != contenders-1 {
		t.Errorf("expected %d losers, got %d", contenders-1, losses)
	}

	ride := e.rides.GetRide("ride-1")
	if ride.Status != domain.RideStatusAccepted {
		t.Errorf("expected status %s, got %s", domain.RideStatusAccepted, ride.Status)
	}
	if ride.DriverID == "" {
		t.Error("expected an assigned driver")
	}
}

func TestAccept_WinnerReceivesStartCode(t *testing.T) {
	t.Parallel()

	e := newEnv()
	e.addRider("rider-1", 0, false)
	e.addDriver("driver-1", domain.VehicleClassAuto, domain.DriverStatusActive)
	e.addRide(&domain.Ride{
		ID:      "ride-1",
		RiderID: "rider-1",
		Status:  domain.RideStatusPending,
		OTP:     "483920",
	})

	if _, err := e.rideSvc.Accept(context.Background(), service.AcceptRequest{
		RideID:   "ride-1",
		DriverID: "driver-1",
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var accepted *PublishedEvent
	for _, event := range e.pub.EventsFor(service.DriverHandle("driver-1")) {
		if event.Event == service.EventRideAccepted {
			copied := event
			accepted = &copied
			break
		}
	}
	if accepted == nil {
		t.Fatal("expected a ride-accepted event for the winner")
	}
	data, ok := accepted.Data.(map[string]any)
	if !ok {
		t.Fatalf("expected map payload, got %T", accepted.Data)
	}
	if got := data["otp"]; got != "483920" {
		t.Errorf("expected the start code in the winner's payload, got %v", got)
	}
}

func TestAccept_UnknownRide(t *testing.T) {
	t.Parallel()

	e := newEnv()
	e.addDriver("driver-1", domain.VehicleClassAuto, domain.DriverStatusActive)

	_, err := e.rideSvc.Accept(context.Background(), service.AcceptRequest{
		RideID:   "nope",
		DriverID: "driver-1",
	})
	if !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestAccept_CancelledRideUnavailable(t *testing.T) {
	t.Parallel()

	e := newEnv()
	e.addDriver("driver-1", domain.VehicleClassAuto, domain.DriverStatusActive)
	e.addRide(&domain.Ride{
		ID:      "ride-1",
		RiderID: "rider-1",
		Status:  domain.RideStatusCancelled,
	})

	_, err := e.rideSvc.Accept(context.Background(), service.AcceptRequest{
		RideID:   "ride-1",
		DriverID: "driver-1",
	})
	if !errors.Is(err, service.ErrRideUnavailable) {
		t.Errorf("expected ErrRideUnavailable, got %v", err)
	}
}

// ──────────────────────────────────────────────
// START GATE
// ──────────────────────────────────────────────

func acceptedRide(e *env) *domain.Ride {
	e.addRider("rider-1", 0, false)
	e.addDriver("driver-1", domain.VehicleClassAuto, domain.DriverStatusActive)
	ride := &domain.Ride{
		ID:       "ride-1",
		RiderID:  "rider-1",
		DriverID: "driver-1",
		Status:   domain.RideStatusAccepted,
		OTP:      "483920",
		Fare:     200,
	}
	e.addRide(ride)
	return ride
}

func TestStart_WrongCodeLeavesRideAccepted(t *testing.T) {
	t.Parallel()

	e := newEnv()
	acceptedRide(e)

	_, err := e.rideSvc.Start(context.Background(), service.StartRequest{
		RideID:   "ride-1",
		DriverID: "driver-1",
		OTP:      "000000",
	})
	if !errors.Is(err, service.ErrInvalidOTP) {
		t.Fatalf("expected ErrInvalidOTP, got %v", err)
	}

	ride := e.rides.GetRide("ride-1")
	if ride.Status != domain.RideStatusAccepted {
		t.Errorf("expected ride to stay accepted, got %s", ride.Status)
	}
	if !ride.StartedAt.IsZero() {
		t.Error("expected no start time")
	}
}

func TestStart_CodeComparisonTrimsWhitespace(t *testing.T) {
	t.Parallel()

	e := newEnv()
	acceptedRide(e)

	ride, err := e.rideSvc.Start(context.Background(), service.StartRequest{
		RideID:   "ride-1",
		DriverID: "driver-1",
		OTP:      "  483920  ",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ride.Status != domain.RideStatusOngoing {
		t.Errorf("expected status %s, got %s", domain.RideStatusOngoing, ride.Status)
	}
}

func TestStart_OnlyAssignedDriverMayStart(t *testing.T) {
	t.Parallel()

	e := newEnv()
	acceptedRide(e)
	e.addDriver("driver-2", domain.VehicleClassAuto, domain.DriverStatusActive)

	_, err := e.rideSvc.Start(context.Background(), service.StartRequest{
		RideID:   "ride-1",
		DriverID: "driver-2",
		OTP:      "483920",
	})
	if !errors.Is(err, service.ErrNotRideDriver) {
		t.Errorf("expected ErrNotRideDriver, got %v", err)
	}
}

func TestStart_TwiceIsInvalidTransition(t *testing.T) {
	t.Parallel()

	e := newEnv()
	acceptedRide(e)

	ctx := context.Background()
	if _, err := e.rideSvc.Start(ctx, service.StartRequest{RideID: "ride-1", DriverID: "driver-1", OTP: "483920"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err := e.rideSvc.Start(ctx, service.StartRequest{RideID: "ride-1", DriverID: "driver-1", OTP: "483920"})
	if !errors.Is(err, service.ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition, got %v", err)
	}
}

// ──────────────────────────────────────────────
// CANCEL
// ──────────────────────────────────────────────

func TestCancel_RiderCancelsBeforeStart(t *testing.T) {
	t.Parallel()

	e := newEnv()
	acceptedRide(e)

	ride, err := e.rideSvc.Cancel(context.Background(), service.CancelRequest{
		RideID:  "ride-1",
		ActorID: "rider-1",
		Reason:  "changed plans",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ride.Status != domain.RideStatusCancelled {
		t.Errorf("expected status %s, got %s", domain.RideStatusCancelled, ride.Status)
	}
	if ride.CancelReason != "changed plans" {
		t.Errorf("expected reason recorded, got %q", ride.CancelReason)
	}
}

func TestCancel_OngoingRideCancels(t *testing.T) {
	t.Parallel()

	e := newEnv()
	acceptedRide(e)

	ctx := context.Background()
	if _, err := e.rideSvc.Start(ctx, service.StartRequest{RideID: "ride-1", DriverID: "driver-1", OTP: "483920"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ride, err := e.rideSvc.Cancel(ctx, service.CancelRequest{RideID: "ride-1", ActorID: "rider-1", Reason: "emergency"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ride.Status != domain.RideStatusCancelled {
		t.Errorf("expected status %s, got %s", domain.RideStatusCancelled, ride.Status)
	}
	if ride.CancelledAt.IsZero() {
		t.Error("expected a cancellation time")
	}
}

func TestCancel_CompletedRideFails(t *testing.T) {
	t.Parallel()

	e := newEnv()
	e.addRider("rider-1", 0, false)
	e.addRide(&domain.Ride{
		ID:      "ride-1",
		RiderID: "rider-1",
		Status:  domain.RideStatusCompleted,
	})

	_, err := e.rideSvc.Cancel(context.Background(), service.CancelRequest{RideID: "ride-1", ActorID: "rider-1"})
	if !errors.Is(err, service.ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestCancel_StrangerForbidden(t *testing.T) {
	t.Parallel()

	e := newEnv()
	acceptedRide(e)

	_, err := e.rideSvc.Cancel(context.Background(), service.CancelRequest{RideID: "ride-1", ActorID: "someone-else"})
	if !errors.Is(err, service.ErrNotRideRider) {
		t.Errorf("expected ErrNotRideRider, got %v", err)
	}
}

// ──────────────────────────────────────────────
// RATING
// ──────────────────────────────────────────────

func completedRide(e *env, id, driverID string, rating int) {
	e.addRide(&domain.Ride{
		ID:       id,
		RiderID:  "rider-1",
		DriverID: driverID,
		Status:   domain.RideStatusCompleted,
		Rating:   rating,
	})
}

func TestRate_UpdatesDriverAverage(t *testing.T) {
	t.Parallel()

	e := newEnv()
	e.addRider("rider-1", 0, false)
	e.addDriver("driver-1", domain.VehicleClassAuto, domain.DriverStatusActive)
	completedRide(e, "ride-1", "driver-1", 0)
	completedRide(e, "ride-2", "driver-1", 5)

	err := e.rideSvc.Rate(context.Background(), service.RateRequest{RideID: "ride-1", RiderID: "rider-1", Rating: 4, Review: "smooth trip"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ride := e.rides.GetRide("ride-1")
	if ride.Rating != 4 {
		t.Errorf("expected rating 4, got %d", ride.Rating)
	}
	if ride.Review != "smooth trip" {
		t.Errorf("expected review recorded, got %q", ride.Review)
	}
	// Average of 4 and 5 is 4.5.
	if got := e.drivers.GetDriver("driver-1").Rating; got != 4.5 {
		t.Errorf("expected driver rating 4.5, got %v", got)
	}
}

func TestRate_SecondRatingRejected(t *testing.T) {
	t.Parallel()

	e := newEnv()
	e.addRider("rider-1", 0, false)
	e.addDriver("driver-1", domain.VehicleClassAuto, domain.DriverStatusActive)
	completedRide(e, "ride-1", "driver-1", 0)

	ctx := context.Background()
	if err := e.rideSvc.Rate(ctx, service.RateRequest{RideID: "ride-1", RiderID: "rider-1", Rating: 3}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	err := e.rideSvc.Rate(ctx, service.RateRequest{RideID: "ride-1", RiderID: "rider-1", Rating: 5})
	if !errors.Is(err, service.ErrAlreadyRated) {
		t.Errorf("expected ErrAlreadyRated, got %v", err)
	}
}

func TestRate_OutOfRangeRejected(t *testing.T) {
	t.Parallel()

	e := newEnv()

	for _, rating := range []int{0, 6, -1} {
		err := e.rideSvc.Rate(context.Background(), service.RateRequest{RideID: "ride-1", RiderID: "rider-1", Rating: rating})
		if !errors.Is(err, service.ErrInvalidRating) {
			t.Errorf("rating %d: expected ErrInvalidRating, got %v", rating, err)
		}
	}
}

func TestRate_RequiresCompletedRide(t *testing.T) {
	t.Parallel()

	e := newEnv()
	e.addRider("rider-1", 0, false)
	e.addRide(&domain.Ride{
		ID:       "ride-1",
		RiderID:  "rider-1",
		DriverID: "driver-1",
		Status:   domain.RideStatusOngoing,
	})

	err := e.rideSvc.Rate(context.Background(), service.RateRequest{RideID: "ride-1", RiderID: "rider-1", Rating: 4})
	if !errors.Is(err, service.ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestRate_OnlyRiderMayRate(t *testing.T) {
	t.Parallel()

	e := newEnv()
	e.addRider("rider-1", 0, false)
	completedRide(e, "ride-1", "driver-1", 0)

	err := e.rideSvc.Rate(context.Background(), service.RateRequest{RideID: "ride-1", RiderID: "rider-2", Rating: 4})
	if !errors.Is(err, service.ErrNotRideRider) {
		t.Errorf("expected ErrNotRideRider, got %v", err)
	}
}

// ──────────────────────────────────────────────
// AVAILABLE RIDES
// ──────────────────────────────────────────────

func TestAvailableRides_MatchesDriverClass(t *testing.T) {
	t.Parallel()

	e := newEnv()
	e.addDriver("driver-1", domain.VehicleClassMoto, domain.DriverStatusActive)
	e.addRide(&domain.Ride{ID: "ride-1", RiderID: "r", Status: domain.RideStatusPending, VehicleClass: domain.VehicleClassMoto})
	e.addRide(&domain.Ride{ID: "ride-2", RiderID: "r", Status: domain.RideStatusPending, VehicleClass: domain.VehicleClassCar})
	e.addRide(&domain.Ride{ID: "ride-3", RiderID: "r", DriverID: "other", Status: domain.RideStatusAccepted, VehicleClass: domain.VehicleClassMoto})

	rides, err := e.rideSvc.AvailableRides(context.Background(), "driver-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rides) != 1 || rides[0].ID != "ride-1" {
		t.Errorf("expected only ride-1, got %d rides", len(rides))
	}
}
