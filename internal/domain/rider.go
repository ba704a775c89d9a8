package domain

import "time"

// Rider represents a rider in the system.
type Rider struct {
	ID            string
	Name          string
	Phone         string
	WalletBalance float64
	WalletLinked  bool
	TotalRides    int
	TotalSpent    float64
	CreatedAt     time.Time
}
