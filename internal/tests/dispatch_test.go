package tests

import (
	"context"
	"errors"
	"testing"

	"orbix/internal/domain"
	"orbix/internal/redis"
	"orbix/internal/service"
)

// ──────────────────────────────────────────────
// CANDIDATE DISCOVERY
// ──────────────────────────────────────────────

func TestFindCandidates_FiltersRadiusHitsAndKeepsOrder(t *testing.T) {
	t.Parallel()

	e := newEnv()
	e.addDriver("driver-near", domain.VehicleClassAuto, domain.DriverStatusActive)
	e.addDriver("driver-wrong-class", domain.VehicleClassCar, domain.DriverStatusActive)
	e.addDriver("driver-offline", domain.VehicleClassAuto, domain.DriverStatusInactive)
	e.addDriver("driver-nearer", domain.VehicleClassAuto, domain.DriverStatusActive)

	// Geo index order is nearest first.
	e.locations.AddDriverLocation(redis.DriverLocation{DriverID: "driver-nearer", DistanceKm: 0.4})
	e.locations.AddDriverLocation(redis.DriverLocation{DriverID: "driver-wrong-class", DistanceKm: 1.1})
	e.locations.AddDriverLocation(redis.DriverLocation{DriverID: "driver-offline", DistanceKm: 2.0})
	e.locations.AddDriverLocation(redis.DriverLocation{DriverID: "driver-near", DistanceKm: 3.2})

	ride := &domain.Ride{ID: "ride-1", Pickup: "MG Road", VehicleClass: domain.VehicleClassAuto}
	candidates, err := e.dispatch.FindCandidates(context.Background(), ride)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(candidates) != 2 {
		t.Fatalf("expected 2 candidates, got %d: %v", len(candidates), candidates)
	}
	if candidates[0] != "driver-nearer" || candidates[1] != "driver-near" {
		t.Errorf("expected nearest-first [driver-nearer driver-near], got %v", candidates)
	}
}

func TestFindCandidates_FallsBackWhenGeocodeFails(t *testing.T) {
	t.Parallel()

	e := newEnv()
	e.router.GeocodeError = errors.New("upstream down")
	e.addDriver("driver-1", domain.VehicleClassAuto, domain.DriverStatusActive)
	e.addDriver("driver-2", domain.VehicleClassAuto, domain.DriverStatusActive)
	e.addDriver("driver-3", domain.VehicleClassCar, domain.DriverStatusActive)

	ride := &domain.Ride{ID: "ride-1", Pickup: "MG Road", VehicleClass: domain.VehicleClassAuto}
	candidates, err := e.dispatch.FindCandidates(context.Background(), ride)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(candidates) != 2 {
		t.Errorf("expected every active auto driver, got %v", candidates)
	}
}

func TestFindCandidates_FallsBackWhenRadiusEmpty(t *testing.T) {
	t.Parallel()

	e := newEnv()
	e.addDriver("driver-1", domain.VehicleClassMoto, domain.DriverStatusActive)

	ride := &domain.Ride{ID: "ride-1", Pickup: "MG Road", VehicleClass: domain.VehicleClassMoto}
	candidates, err := e.dispatch.FindCandidates(context.Background(), ride)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(candidates) != 1 || candidates[0] != "driver-1" {
		t.Errorf("expected [driver-1], got %v", candidates)
	}
}

// ──────────────────────────────────────────────
// FAN-OUT
// ──────────────────────────────────────────────

func TestBroadcast_OffersRideOncePerDriver(t *testing.T) {
	t.Parallel()

	e := newEnv()
	e.addDriver("driver-1", domain.VehicleClassAuto, domain.DriverStatusActive)
	e.addDriver("driver-2", domain.VehicleClassAuto, domain.DriverStatusActive)

	ride := &domain.Ride{ID: "ride-1", Pickup: "MG Road", VehicleClass: domain.VehicleClassAuto, OTP: "123456"}

	ctx := context.Background()
	e.dispatch.Broadcast(ctx, ride)
	// A second fan-out for the same ride is held off by the dispatch lock.
	e.dispatch.Broadcast(ctx, ride)

	if n := e.pub.CountByEvent(service.EventRideRequest); n != 2 {
		t.Errorf("expected 2 offers (one per driver), got %d", n)
	}
}

func TestBroadcast_NoCandidatesNoEvents(t *testing.T) {
	t.Parallel()

	e := newEnv()

	ride := &domain.Ride{ID: "ride-1", Pickup: "MG Road", VehicleClass: domain.VehicleClassAuto}
	e.dispatch.Broadcast(context.Background(), ride)

	if n := e.pub.CountByEvent(service.EventRideRequest); n != 0 {
		t.Errorf("expected no offers, got %d", n)
	}
}

func TestBroadcast_OfferCarriesCodeAndRiderContact(t *testing.T) {
	t.Parallel()

	e := newEnv()
	e.addRider("rider-1", 0, true)
	e.addDriver("driver-1", domain.VehicleClassAuto, domain.DriverStatusActive)

	ride := &domain.Ride{ID: "ride-1", RiderID: "rider-1", Pickup: "MG Road", VehicleClass: domain.VehicleClassAuto, OTP: "483920"}
	e.dispatch.Broadcast(context.Background(), ride)

	events := e.pub.EventsFor(service.DriverHandle("driver-1"))
	if len(events) != 1 {
		t.Fatalf("expected 1 offer, got %d", len(events))
	}
	data, ok := events[0].Data.(map[string]any)
	if !ok {
		t.Fatalf("expected map payload, got %T", events[0].Data)
	}
	if got := data["otp"]; got != "483920" {
		t.Errorf("expected the start code in the offer, got %v", got)
	}
	if got := data["rider_name"]; got != "Rider rider-1" {
		t.Errorf("expected the rider's name in the offer, got %v", got)
	}
	if got := data["rider_phone"]; got != "+91rider-1" {
		t.Errorf("expected the rider's phone in the offer, got %v", got)
	}
}

func TestNotifyTaken_SkipsTheWinner(t *testing.T) {
	t.Parallel()

	e := newEnv()
	e.addDriver("driver-1", domain.VehicleClassAuto, domain.DriverStatusActive)
	e.addDriver("driver-2", domain.VehicleClassAuto, domain.DriverStatusActive)
	e.addDriver("driver-3", domain.VehicleClassAuto, domain.DriverStatusActive)

	ride := &domain.Ride{ID: "ride-1", Pickup: "MG Road", VehicleClass: domain.VehicleClassAuto}
	e.dispatch.NotifyTaken(context.Background(), ride, "driver-2")

	if n := e.pub.CountByEvent(service.EventRideTaken); n != 2 {
		t.Errorf("expected 2 taken notices, got %d", n)
	}
	if got := e.pub.EventsFor(service.DriverHandle("driver-2")); len(got) != 0 {
		t.Errorf("winner should not be notified, got %d events", len(got))
	}
}
