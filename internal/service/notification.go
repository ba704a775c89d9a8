package service

import (
	"orbix/internal/domain"
)

// Event names pushed over the presence channel.
const (
	EventRideRequest    = "ride-request"
	EventRideAccepted   = "ride-accepted"
	EventRideTaken      = "ride-taken"
	EventRideStarted    = "ride-started"
	EventRideEnded      = "ride-ended"
	EventPaymentSuccess = "payment-success"
	EventRideCancelled  = "ride-cancelled"
)

// Publisher pushes an event to whoever holds the handle right now.
// Implemented by the websocket hub; absent handles are a no-op.
type Publisher interface {
	Publish(handle, event string, data any)
}

// RiderHandle returns the presence handle for a rider.
func RiderHandle(riderID string) string { return "rider:" + riderID }

// DriverHandle returns the presence handle for a driver.
func DriverHandle(driverID string) string { return "driver:" + driverID }

// NotificationService fans lifecycle events out to riders and drivers.
// Delivery is best effort; ride state never depends on it.
type NotificationService struct {
	publisher Publisher
}

// NewNotificationService creates a new NotificationService.
func NewNotificationService(publisher Publisher) *NotificationService {
	return &NotificationService{publisher: publisher}
}

// NotifyRideRequested offers a new ride to the candidate drivers. The
// offer carries the start code and a rider contact summary so the
// winner can reach the rider and begin at pickup.
func (s *NotificationService) NotifyRideRequested(ride *domain.Ride, rider *domain.Rider, driverIDs []string) {
	data := map[string]any{
		"ride_id":       ride.ID,
		"pickup":        ride.Pickup,
		"destination":   ride.Destination,
		"vehicle_class": ride.VehicleClass,
		"fare":          ride.Fare,
		"distance_km":   ride.DistanceKm,
		"otp":           ride.OTP,
	}
	if rider != nil {
		data["rider_name"] = rider.Name
		data["rider_phone"] = rider.Phone
	}
	for _, driverID := range driverIDs {
		s.publisher.Publish(DriverHandle(driverID), EventRideRequest, data)
	}
}

// NotifyRideAccepted tells both parties who they are riding with.
func (s *NotificationService) NotifyRideAccepted(ride *domain.Ride, driver *domain.Driver) {
	s.publisher.Publish(RiderHandle(ride.RiderID), EventRideAccepted, map[string]any{
		"ride_id":      ride.ID,
		"driver_id":    driver.ID,
		"driver_name":  driver.Name,
		"driver_phone": driver.Phone,
		"plate":        driver.Plate,
		"color":        driver.Color,
		"rating":       driver.Rating,
	})
	s.publisher.Publish(DriverHandle(driver.ID), EventRideAccepted, map[string]any{
		"ride_id":     ride.ID,
		"pickup":      ride.Pickup,
		"destination": ride.Destination,
		"fare":        ride.Fare,
		"otp":         ride.OTP,
	})
}

// NotifyRideTaken tells losing candidates the ride is gone.
func (s *NotificationService) NotifyRideTaken(rideID string, driverIDs []string, winnerID string) {
	data := map[string]any{"ride_id": rideID}
	for _, driverID := range driverIDs {
		if driverID == winnerID {
			continue
		}
		s.publisher.Publish(DriverHandle(driverID), EventRideTaken, data)
	}
}

// NotifyRideStarted tells the rider the trip is underway.
func (s *NotificationService) NotifyRideStarted(ride *domain.Ride) {
	s.publisher.Publish(RiderHandle(ride.RiderID), EventRideStarted, map[string]any{
		"ride_id":    ride.ID,
		"started_at": ride.StartedAt,
	})
}

// NotifyRideEnded reports the final fare, flagging payment still due.
func (s *NotificationService) NotifyRideEnded(ride *domain.Ride, paymentPending bool) {
	data := map[string]any{
		"ride_id":         ride.ID,
		"total_fare":      ride.TotalFare,
		"duration_min":    ride.RideDurationMin,
		"waiting_charges": ride.WaitingCharges,
		"payment_pending": paymentPending,
	}
	s.publisher.Publish(RiderHandle(ride.RiderID), EventRideEnded, data)
	if ride.DriverID != "" {
		s.publisher.Publish(DriverHandle(ride.DriverID), EventRideEnded, data)
	}
}

// NotifyPaymentSuccess reports a settled ride to both parties.
func (s *NotificationService) NotifyPaymentSuccess(ride *domain.Ride, earnings, driverBalance float64) {
	s.publisher.Publish(RiderHandle(ride.RiderID), EventPaymentSuccess, map[string]any{
		"ride_id": ride.ID,
		"amount":  ride.TotalFare,
	})
	if ride.DriverID != "" {
		s.publisher.Publish(DriverHandle(ride.DriverID), EventPaymentSuccess, map[string]any{
			"ride_id":  ride.ID,
			"earnings": earnings,
			"balance":  driverBalance,
		})
	}
}

// NotifyRideCancelled tells the other party about a cancellation.
func (s *NotificationService) NotifyRideCancelled(ride *domain.Ride, cancelledBy, reason string) {
	data := map[string]any{
		"ride_id":      ride.ID,
		"cancelled_by": cancelledBy,
		"reason":       reason,
	}

	if cancelledBy == ride.RiderID {
		if ride.DriverID != "" {
			s.publisher.Publish(DriverHandle(ride.DriverID), EventRideCancelled, data)
		}
		return
	}
	s.publisher.Publish(RiderHandle(ride.RiderID), EventRideCancelled, data)
}
