package domain

import "time"

// DriverStatus represents the current availability of a driver.
type DriverStatus string

const (
	DriverStatusActive   DriverStatus = "active"
	DriverStatusInactive DriverStatus = "inactive"
)

// Driver represents a driver in the system, including the earning
// counters that the lazy daily/weekly reset operates on.
type Driver struct {
	ID           string
	Name         string
	Phone        string
	Status       DriverStatus
	VehicleClass VehicleClass
	Plate        string
	Color        string
	Rating       float64 // average over rated rides, 1 decimal

	WalletBalance  float64
	TodayEarnings  float64
	TripsToday     int
	WeeklyEarnings float64
	WeeklyTrips    int
	TotalTrips     int
	AvgRideTimeMin int

	LastRideDay time.Time // calendar day of the most recent counted ride
	WeekStartAt time.Time // start of the current weekly counting window

	CreatedAt time.Time
}
