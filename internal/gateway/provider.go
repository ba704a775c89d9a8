package gateway

import "context"

// ChargeRequest asks a provider to collect money from a payer.
type ChargeRequest struct {
	Amount      float64 // major currency units
	Currency    string
	PayerRef    string // provider-side customer or payment-method reference
	Description string
	Metadata    map[string]string
}

// ChargeResult reports the provider-side outcome of a charge.
type ChargeResult struct {
	TransactionID string
	Status        string
	Amount        float64
	Currency      string
	CreatedAt     int64
}

// Provider is an external payment gateway used for wallet top-ups and
// manual ride payments. The ledger is only touched after the provider
// reports success, with the provider transaction id as the reference.
type Provider interface {
	Charge(ctx context.Context, req *ChargeRequest) (*ChargeResult, error)
	Name() string
}
