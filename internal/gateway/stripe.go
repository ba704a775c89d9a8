package gateway

import (
	"context"
	"fmt"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
)

// StripeProvider charges cards through Stripe payment intents.
type StripeProvider struct {
	client *client.API
}

// NewStripeProvider creates a Stripe-backed provider.
func NewStripeProvider(secretKey string) *StripeProvider {
	sc := &client.API{}
	sc.Init(secretKey, nil)

	return &StripeProvider{client: sc}
}

// Name identifies the provider in transaction descriptions.
func (s *StripeProvider) Name() string { return "stripe" }

// Charge creates and confirms a payment intent.
func (s *StripeProvider) Charge(ctx context.Context, req *ChargeRequest) (*ChargeResult, error) {
	params := &stripe.PaymentIntentParams{
		Amount:        stripe.Int64(int64(req.Amount * 100)), // cents
		Currency:      stripe.String(req.Currency),
		PaymentMethod: stripe.String(req.PayerRef),
		Description:   stripe.String(req.Description),
		Confirm:       stripe.Bool(true),
	}
	params.Context = ctx
	for key, value := range req.Metadata {
		params.AddMetadata(key, value)
	}

	pi, err := s.client.PaymentIntents.New(params)
	if err != nil {
		return nil, fmt.Errorf("failed to create payment intent: %w", err)
	}

	return &ChargeResult{
		TransactionID: pi.ID,
		Status:        string(pi.Status),
		Amount:        float64(pi.Amount) / 100,
		Currency:      string(pi.Currency),
		CreatedAt:     pi.Created,
	}, nil
}

// Ensure StripeProvider implements Provider.
var _ Provider = (*StripeProvider)(nil)
