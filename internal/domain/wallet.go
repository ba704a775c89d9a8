package domain

import "time"

// TransactionType distinguishes ledger entries.
type TransactionType string

const (
	TransactionCredit TransactionType = "credit"
	TransactionDebit  TransactionType = "debit"
)

// OwnerRole identifies which side of the marketplace a ledger entry belongs to.
type OwnerRole string

const (
	OwnerRider  OwnerRole = "rider"
	OwnerDriver OwnerRole = "driver"
)

// Transaction is an append-only wallet ledger entry.
type Transaction struct {
	ID          string
	OwnerID     string
	OwnerRole   OwnerRole
	RideID      string // empty for top-ups
	Type        TransactionType
	Amount      float64
	Description string
	ExternalRef string // gateway transaction id for top-ups
	CreatedAt   time.Time
}
