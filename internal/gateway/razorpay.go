package gateway

import (
	"context"
	"fmt"

	"github.com/razorpay/razorpay-go"
)

// RazorpayProvider collects payments through Razorpay orders.
type RazorpayProvider struct {
	client *razorpay.Client
}

// NewRazorpayProvider creates a Razorpay-backed provider.
func NewRazorpayProvider(keyID, keySecret string) *RazorpayProvider {
	return &RazorpayProvider{client: razorpay.NewClient(keyID, keySecret)}
}

// Name identifies the provider in transaction descriptions.
func (r *RazorpayProvider) Name() string { return "razorpay" }

// Charge creates an order; the payer authorizes it client-side and
// Razorpay captures against the order id returned here.
func (r *RazorpayProvider) Charge(ctx context.Context, req *ChargeRequest) (*ChargeResult, error) {
	orderData := map[string]interface{}{
		"amount":   int(req.Amount * 100), // paise
		"currency": req.Currency,
		"receipt":  req.PayerRef,
	}
	if len(req.Metadata) > 0 {
		notes := make(map[string]interface{}, len(req.Metadata))
		for key, value := range req.Metadata {
			notes[key] = value
		}
		orderData["notes"] = notes
	}

	order, err := r.client.Order.Create(orderData, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	orderID, ok := order["id"].(string)
	if !ok {
		return nil, fmt.Errorf("order response missing id: %v", order)
	}

	return &ChargeResult{
		TransactionID: orderID,
		Status:        "created",
		Amount:        req.Amount,
		Currency:      req.Currency,
	}, nil
}

// Ensure RazorpayProvider implements Provider.
var _ Provider = (*RazorpayProvider)(nil)
