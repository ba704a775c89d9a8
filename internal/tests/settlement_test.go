package tests

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"

	"orbix/internal/domain"
	"orbix/internal/service"
)

// ──────────────────────────────────────────────
// WALLET SETTLEMENT AT COMPLETION
// ──────────────────────────────────────────────

func ongoingRide(e *env, fare float64) {
	e.addDriver("driver-1", domain.VehicleClassAuto, domain.DriverStatusActive)
	linked := false
	if rider := e.riders.GetRider("rider-1"); rider != nil {
		linked = rider.WalletLinked
	}
	e.addRide(&domain.Ride{
		ID:           "ride-1",
		RiderID:      "rider-1",
		DriverID:     "driver-1",
		Status:       domain.RideStatusOngoing,
		Fare:         fare,
		WalletLinked: linked,
		StartedAt:    time.Now().Add(-20 * time.Minute),
	})
}

func TestComplete_WalletCoversFare(t *testing.T) {
	t.Parallel()

	e := newEnv()
	e.addRider("rider-1", 500, true)
	ongoingRide(e, 200)

	resp, err := e.rideSvc.Complete(context.Background(), service.CompleteRequest{
		RideID:   "ride-1",
		DriverID: "driver-1",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if resp.PaymentPending {
		t.Error("expected payment settled")
	}
	if resp.Ride.PaymentStatus != domain.PaymentStatusCompleted {
		t.Errorf("expected payment %s, got %s", domain.PaymentStatusCompleted, resp.Ride.PaymentStatus)
	}
	if got := e.rides.GetRide("ride-1").PaymentMethod; got != domain.PaymentMethodWallet {
		t.Errorf("expected payment method %s, got %s", domain.PaymentMethodWallet, got)
	}

	rider := e.riders.GetRider("rider-1")
	if rider.WalletBalance != 300 {
		t.Errorf("expected balance 300, got %v", rider.WalletBalance)
	}
	if rider.TotalSpent != 200 {
		t.Errorf("expected spend 200, got %v", rider.TotalSpent)
	}
	if rider.TotalRides != 1 {
		t.Errorf("expected 1 ride counted, got %d", rider.TotalRides)
	}
	if !rider.WalletLinked {
		t.Error("expected wallet to stay linked")
	}

	// Driver gets 80% of the total fare.
	driver := e.drivers.GetDriver("driver-1")
	if driver.WalletBalance != 160 {
		t.Errorf("expected driver balance 160, got %v", driver.WalletBalance)
	}
	if driver.TripsToday != 1 || driver.WeeklyTrips != 1 || driver.TotalTrips != 1 {
		t.Errorf("expected counters 1/1/1, got %d/%d/%d", driver.TripsToday, driver.WeeklyTrips, driver.TotalTrips)
	}

	if n := e.wallet.CountEntries("rider-1", domain.TransactionDebit); n != 1 {
		t.Errorf("expected 1 rider debit, got %d", n)
	}
	if n := e.wallet.CountEntries("driver-1", domain.TransactionCredit); n != 1 {
		t.Errorf("expected 1 driver credit, got %d", n)
	}

	// Both parties hear about the settlement.
	if n := e.pub.CountByEvent(service.EventPaymentSuccess); n != 2 {
		t.Errorf("expected payment-success for both parties, got %d", n)
	}
}

func TestComplete_ShortWalletDefersPayment(t *testing.T) {
	t.Parallel()

	e := newEnv()
	e.addRider("rider-1", 50, true)
	ongoingRide(e, 200)

	resp, err := e.rideSvc.Complete(context.Background(), service.CompleteRequest{
		RideID:   "ride-1",
		DriverID: "driver-1",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !resp.PaymentPending {
		t.Error("expected payment deferred")
	}

	ride := e.rides.GetRide("ride-1")
	if ride.PaymentStatus != domain.PaymentStatusPending {
		t.Errorf("expected payment to stay pending, got %s", ride.PaymentStatus)
	}
	// Only this ride loses its wallet link; the rider keeps theirs.
	if ride.WalletLinked {
		t.Error("expected the ride's wallet link dropped after a short balance")
	}

	rider := e.riders.GetRider("rider-1")
	if rider.WalletBalance != 50 {
		t.Errorf("expected balance untouched at 50, got %v", rider.WalletBalance)
	}
	if !rider.WalletLinked {
		t.Error("expected the rider's wallet link untouched")
	}
	if rider.TotalSpent != 0 {
		t.Errorf("expected no spend recorded, got %v", rider.TotalSpent)
	}
	// The ride still counts, even unsettled.
	if rider.TotalRides != 1 {
		t.Errorf("expected 1 ride counted, got %d", rider.TotalRides)
	}

	if got := e.drivers.GetDriver("driver-1").WalletBalance; got != 0 {
		t.Errorf("expected no driver earnings yet, got %v", got)
	}
}

func TestComplete_UnlinkedWalletNeverDebited(t *testing.T) {
	t.Parallel()

	e := newEnv()
	e.addRider("rider-1", 500, false)
	ongoingRide(e, 200)

	resp, err := e.rideSvc.Complete(context.Background(), service.CompleteRequest{
		RideID:   "ride-1",
		DriverID: "driver-1",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !resp.PaymentPending {
		t.Error("expected payment deferred")
	}
	if n := atomic.LoadInt32(&e.wallet.DebitCallCount); n != 0 {
		t.Errorf("expected no debit attempts, got %d", n)
	}
	if got := e.riders.GetRider("rider-1").WalletBalance; got != 500 {
		t.Errorf("expected balance untouched at 500, got %v", got)
	}
}

func TestComplete_WaitingChargesAddToTotal(t *testing.T) {
	t.Parallel()

	e := newEnv()
	e.addRider("rider-1", 500, true)
	ongoingRide(e, 200)

	resp, err := e.rideSvc.Complete(context.Background(), service.CompleteRequest{
		RideID:         "ride-1",
		DriverID:       "driver-1",
		WaitingCharges: 30,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if resp.Ride.TotalFare != 230 {
		t.Errorf("expected total fare 230, got %v", resp.Ride.TotalFare)
	}
	if got := e.riders.GetRider("rider-1").WalletBalance; got != 270 {
		t.Errorf("expected balance 270, got %v", got)
	}
	// round(230 * 0.8) = 184
	if got := e.drivers.GetDriver("driver-1").WalletBalance; got != 184 {
		t.Errorf("expected driver balance 184, got %v", got)
	}
}

func TestComplete_OnlyAssignedDriverMayComplete(t *testing.T) {
	t.Parallel()

	e := newEnv()
	e.addRider("rider-1", 500, true)
	ongoingRide(e, 200)

	_, err := e.rideSvc.Complete(context.Background(), service.CompleteRequest{
		RideID:   "ride-1",
		DriverID: "driver-2",
	})
	if !errors.Is(err, service.ErrNotRideDriver) {
		t.Errorf("expected ErrNotRideDriver, got %v", err)
	}
}

// ──────────────────────────────────────────────
// SETTLEMENT IDEMPOTENCE
// ──────────────────────────────────────────────

func TestSettle_SecondAttemptRejected(t *testing.T) {
	t.Parallel()

	e := newEnv()
	e.addRider("rider-1", 500, true)
	ongoingRide(e, 200)

	ctx := context.Background()
	if _, err := e.rideSvc.Complete(ctx, service.CompleteRequest{RideID: "ride-1", DriverID: "driver-1"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := e.settlement.SettleFromWallet(ctx, "ride-1"); !errors.Is(err, service.ErrAlreadySettled) {
		t.Errorf("expected ErrAlreadySettled from wallet path, got %v", err)
	}
	_, err := e.settlement.ConfirmExternal(ctx, service.ConfirmExternalRequest{
		RideID:   "ride-1",
		Provider: "mock",
	})
	if !errors.Is(err, service.ErrAlreadySettled) {
		t.Errorf("expected ErrAlreadySettled from gateway path, got %v", err)
	}

	// Nothing moved twice.
	if got := e.riders.GetRider("rider-1").WalletBalance; got != 300 {
		t.Errorf("expected balance 300, got %v", got)
	}
	if got := e.drivers.GetDriver("driver-1").TotalTrips; got != 1 {
		t.Errorf("expected 1 trip counted, got %d", got)
	}
	if n := atomic.LoadInt32(&e.provider.ChargeCallCount); n != 0 {
		t.Errorf("expected no gateway charges, got %d", n)
	}
}

func TestSettle_RequiresCompletedRide(t *testing.T) {
	t.Parallel()

	e := newEnv()
	e.addRider("rider-1", 500, true)
	ongoingRide(e, 200)

	err := e.settlement.SettleFromWallet(context.Background(), "ride-1")
	if !errors.Is(err, service.ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition, got %v", err)
	}
}

// ──────────────────────────────────────────────
// DEFERRED PAYMENT THROUGH A GATEWAY
// ──────────────────────────────────────────────

func deferredRide(e *env, totalFare float64) {
	e.addDriver("driver-1", domain.VehicleClassAuto, domain.DriverStatusActive)
	e.addRide(&domain.Ride{
		ID:              "ride-1",
		RiderID:         "rider-1",
		DriverID:        "driver-1",
		Status:          domain.RideStatusCompleted,
		Fare:            totalFare,
		TotalFare:       totalFare,
		RideDurationMin: 20,
		EndedAt:         time.Now(),
	})
}

func TestConfirmExternal_CollectsDeferredFare(t *testing.T) {
	t.Parallel()

	e := newEnv()
	e.addRider("rider-1", 0, false)
	deferredRide(e, 200)

	result, err := e.settlement.ConfirmExternal(context.Background(), service.ConfirmExternalRequest{
		RideID:   "ride-1",
		Provider: "mock",
		PayerRef: "cust_123",
		Currency: "inr",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.TransactionID == "" {
		t.Error("expected a gateway transaction id")
	}

	charge := e.provider.LastCharge()
	if charge == nil || charge.Amount != 200 {
		t.Fatalf("expected gateway charged 200, got %+v", charge)
	}

	ride := e.rides.GetRide("ride-1")
	if ride.PaymentStatus != domain.PaymentStatusCompleted {
		t.Errorf("expected payment %s, got %s", domain.PaymentStatusCompleted, ride.PaymentStatus)
	}
	if ride.PaymentMethod != domain.PaymentMethod("mock") {
		t.Errorf("expected payment method mock, got %s", ride.PaymentMethod)
	}
	if got := e.drivers.GetDriver("driver-1").WalletBalance; got != 160 {
		t.Errorf("expected driver balance 160, got %v", got)
	}

	rider := e.riders.GetRider("rider-1")
	if rider.TotalSpent != 200 {
		t.Errorf("expected spend 200, got %v", rider.TotalSpent)
	}
	// Settlement never bumps the ride count; that happened at completion.
	if rider.TotalRides != 0 {
		t.Errorf("expected ride count untouched, got %d", rider.TotalRides)
	}
}

func TestConfirmExternal_UnknownProvider(t *testing.T) {
	t.Parallel()

	e := newEnv()
	e.addRider("rider-1", 0, false)
	deferredRide(e, 200)

	_, err := e.settlement.ConfirmExternal(context.Background(), service.ConfirmExternalRequest{
		RideID:   "ride-1",
		Provider: "cash-app",
	})
	if !errors.Is(err, service.ErrUnknownProvider) {
		t.Errorf("expected ErrUnknownProvider, got %v", err)
	}
}

func TestConfirmExternal_FailedChargeAllowsRetry(t *testing.T) {
	t.Parallel()

	e := newEnv()
	e.addRider("rider-1", 0, false)
	deferredRide(e, 200)
	e.provider.ChargeError = errors.New("card declined")

	ctx := context.Background()
	_, err := e.settlement.ConfirmExternal(ctx, service.ConfirmExternalRequest{
		RideID:   "ride-1",
		Provider: "mock",
	})
	if err == nil {
		t.Fatal("expected error")
	}

	if got := e.rides.GetRide("ride-1").PaymentStatus; got != domain.PaymentStatusFailed {
		t.Errorf("expected payment marked %s, got %s", domain.PaymentStatusFailed, got)
	}
	if got := e.drivers.GetDriver("driver-1").WalletBalance; got != 0 {
		t.Errorf("expected no driver earnings, got %v", got)
	}

	// A later attempt collects the fare.
	e.provider.ChargeError = nil
	if _, err := e.settlement.ConfirmExternal(ctx, service.ConfirmExternalRequest{
		RideID:   "ride-1",
		Provider: "mock",
	}); err != nil {
		t.Fatalf("unexpected error on retry: %v", err)
	}
	if got := e.rides.GetRide("ride-1").PaymentStatus; got != domain.PaymentStatusCompleted {
		t.Errorf("expected payment %s after retry, got %s", domain.PaymentStatusCompleted, got)
	}
}

func TestPay_DeferredRideSettlesFromWallet(t *testing.T) {
	t.Parallel()

	e := newEnv()
	e.addRider("rider-1", 500, true)
	deferredRide(e, 200)

	if err := e.settlement.SettleFromWallet(context.Background(), "ride-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ride := e.rides.GetRide("ride-1")
	if ride.PaymentStatus != domain.PaymentStatusCompleted {
		t.Errorf("expected payment %s, got %s", domain.PaymentStatusCompleted, ride.PaymentStatus)
	}
	if ride.PaymentMethod != domain.PaymentMethodWallet {
		t.Errorf("expected payment method %s, got %s", domain.PaymentMethodWallet, ride.PaymentMethod)
	}
	if got := e.riders.GetRider("rider-1").WalletBalance; got != 300 {
		t.Errorf("expected balance 300, got %v", got)
	}
	if got := e.drivers.GetDriver("driver-1").WalletBalance; got != 160 {
		t.Errorf("expected driver balance 160, got %v", got)
	}
}

// ──────────────────────────────────────────────
// EARNINGS MATH
// ──────────────────────────────────────────────

func TestSettle_EarningsRounded(t *testing.T) {
	t.Parallel()

	e := newEnv()
	e.addRider("rider-1", 500, true)
	deferredRide(e, 101)

	if err := e.settlement.SettleFromWallet(context.Background(), "ride-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// round(101 * 0.8) = 81
	if got := e.drivers.GetDriver("driver-1").WalletBalance; got != 81 {
		t.Errorf("expected driver balance 81, got %v", got)
	}
}

func TestSettle_AverageRideTimeRoundsUp(t *testing.T) {
	t.Parallel()

	e := newEnv()
	e.addRider("rider-1", 500, true)
	e.drivers.AddDriver(&domain.Driver{
		ID:             "driver-1",
		Status:         domain.DriverStatusActive,
		VehicleClass:   domain.VehicleClassAuto,
		TotalTrips:     2,
		AvgRideTimeMin: 10,
		LastRideDay:    time.Now(),
		WeekStartAt:    time.Now(),
	})
	e.addRide(&domain.Ride{
		ID:              "ride-1",
		RiderID:         "rider-1",
		DriverID:        "driver-1",
		Status:          domain.RideStatusCompleted,
		TotalFare:       100,
		RideDurationMin: 15,
		EndedAt:         time.Now(),
	})

	if err := e.settlement.SettleFromWallet(context.Background(), "ride-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	driver := e.drivers.GetDriver("driver-1")
	// ceil((10*2 + 15) / 3) = 12
	if driver.AvgRideTimeMin != 12 {
		t.Errorf("expected average ride time 12, got %d", driver.AvgRideTimeMin)
	}
	if driver.TotalTrips != 3 {
		t.Errorf("expected 3 total trips, got %d", driver.TotalTrips)
	}
}

// ──────────────────────────────────────────────
// BALANCE FLOOR UNDER CONTENTION
// ──────────────────────────────────────────────

func TestWallet_DebitsNeverOverdraw(t *testing.T) {
	t.Parallel()

	e := newEnv()
	e.addRider("rider-1", 300, true)

	const attempts = 5
	var succeeded int32
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := e.wallet.DebitRider(context.Background(), &domain.Transaction{
				ID:        uuid.New().String(),
				OwnerID:   "rider-1",
				OwnerRole: domain.OwnerRider,
				Type:      domain.TransactionDebit,
				Amount:    100,
				CreatedAt: time.Now(),
			})
			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}
			if ok {
				atomic.AddInt32(&succeeded, 1)
			}
		}()
	}
	wg.Wait()

	if succeeded != 3 {
		t.Errorf("expected exactly 3 debits to land, got %d", succeeded)
	}
	if got := e.riders.GetRider("rider-1").WalletBalance; got != 0 {
		t.Errorf("expected balance 0, got %v", got)
	}
	if n := e.wallet.CountEntries("rider-1", domain.TransactionDebit); n != 3 {
		t.Errorf("expected 3 ledger debits, got %d", n)
	}
}
