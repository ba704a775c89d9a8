package service

import "errors"

var (
	// ErrInvalidRiderID is returned when rider ID is empty.
	ErrInvalidRiderID = errors.New("invalid rider id")

	// ErrInvalidDriverID is returned when driver ID is empty.
	ErrInvalidDriverID = errors.New("invalid driver id")

	// ErrInvalidRideID is returned when ride ID is empty.
	ErrInvalidRideID = errors.New("invalid ride id")

	// ErrInvalidAddress is returned when pickup or destination is empty.
	ErrInvalidAddress = errors.New("invalid address")

	// ErrInvalidVehicleClass is returned for an unknown vehicle class.
	ErrInvalidVehicleClass = errors.New("invalid vehicle class")

	// ErrInvalidLocation is returned when location coordinates are invalid.
	ErrInvalidLocation = errors.New("invalid location")

	// ErrInvalidPhone is returned when a phone number is empty.
	ErrInvalidPhone = errors.New("invalid phone number")

	// ErrRideUnavailable is returned when a driver tries to accept a
	// ride that was already claimed or is no longer pending.
	ErrRideUnavailable = errors.New("ride no longer available")

	// ErrInvalidTransition is returned when a lifecycle operation finds
	// the ride in the wrong state.
	ErrInvalidTransition = errors.New("invalid ride state for this operation")

	// ErrInvalidOTP is returned when the start code does not match.
	ErrInvalidOTP = errors.New("incorrect otp")

	// ErrNotRideDriver is returned when a driver operates on a ride
	// assigned to someone else.
	ErrNotRideDriver = errors.New("driver not assigned to this ride")

	// ErrNotRideRider is returned when a rider operates on a ride they
	// did not request.
	ErrNotRideRider = errors.New("ride does not belong to this rider")

	// ErrInsufficientBalance is returned when a wallet debit would take
	// the balance below zero.
	ErrInsufficientBalance = errors.New("insufficient wallet balance")

	// ErrAlreadySettled is returned when payment for a ride has already
	// been applied.
	ErrAlreadySettled = errors.New("ride payment already settled")

	// ErrAlreadyRated is returned when a completed ride already has a rating.
	ErrAlreadyRated = errors.New("ride already rated")

	// ErrInvalidRating is returned when a rating is outside 1..5.
	ErrInvalidRating = errors.New("rating must be between 1 and 5")

	// ErrInvalidAmount is returned when a monetary amount is not positive.
	ErrInvalidAmount = errors.New("amount must be positive")

	// ErrNoDriverAvailable is returned when dispatch finds no eligible driver.
	ErrNoDriverAvailable = errors.New("no driver available")
)
