package domain

import "time"

// RideStatus represents the current status of a ride.
type RideStatus string

const (
	RideStatusPending   RideStatus = "pending"
	RideStatusAccepted  RideStatus = "accepted"
	RideStatusOngoing   RideStatus = "ongoing"
	RideStatusCompleted RideStatus = "completed"
	RideStatusCancelled RideStatus = "cancelled"
)

// PaymentStatus represents the settlement state of a completed ride.
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusFailed    PaymentStatus = "failed"
)

// PaymentMethod records how a settled ride was paid: the rider's wallet
// or the name of the external gateway that collected the fare.
type PaymentMethod string

const PaymentMethodWallet PaymentMethod = "wallet"

// VehicleClass represents the vehicle category requested for a ride.
type VehicleClass string

const (
	VehicleClassAuto VehicleClass = "auto"
	VehicleClassCar  VehicleClass = "car"
	VehicleClassMoto VehicleClass = "moto"
)

// Ride represents the full lifecycle of a ride, from request to settlement.
type Ride struct {
	ID           string
	RiderID      string
	DriverID     string // empty until a driver claims the ride
	Pickup       string
	Destination  string
	VehicleClass VehicleClass
	DistanceKm   float64 // estimated at creation
	DurationMin  float64 // estimated at creation
	Fare         float64 // quoted fare, fixed at creation
	OTP          string  // 6 digits, relayed by the rider at pickup
	WalletLinked bool    // rider's wallet link, snapshotted at creation
	Status       RideStatus

	StartedAt       time.Time
	EndedAt         time.Time
	RideDurationMin int // actual, minutes rounded up
	WaitingCharges  float64
	TotalFare       float64 // fare + waiting charges, set at completion
	PaymentStatus   PaymentStatus
	PaymentMethod   PaymentMethod // set when payment settles
	Rating          int           // 1..5, 0 = unrated
	Review          string        // free text, set with the rating

	CreatedAt    time.Time
	CancelledAt  time.Time
	CancelReason string
}
