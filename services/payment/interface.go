package payment

import "context"

// CheckoutRequest asks the gateway to open a hosted checkout for a fixed
// amount in the currency's minor units.
type CheckoutRequest struct {
	AmountMinor int64
	Currency    string
	Description string
	// Reference is our payment id; it rides along as the gateway's
	// client reference so terminal events correlate back.
	Reference string
	Metadata  map[string]string
}

// CheckoutSession is the gateway's handle for an opened checkout.
type CheckoutSession struct {
	SessionID       string
	PaymentIntentID string
	URL             string
}

// Gateway abstracts the payment provider. The engine only needs "open a
// checkout" here; terminal events arrive through the webhook transport.
type Gateway interface {
	Name() string
	CreateCheckout(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error)
}
