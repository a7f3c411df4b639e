package payment

import (
	"context"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/checkout/session"
	"go.uber.org/zap"
)

// StripeGateway opens Stripe Checkout sessions. The API key is set
// globally (stripe.Key) during startup.
type StripeGateway struct {
	SuccessURL string
	CancelURL  string
	Logger     *zap.Logger
}

func NewStripeGateway(successURL, cancelURL string, logger *zap.Logger) *StripeGateway {
	return &StripeGateway{SuccessURL: successURL, CancelURL: cancelURL, Logger: logger}
}

func (g *StripeGateway) Name() string { return "stripe" }

func (g *StripeGateway) CreateCheckout(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:        stripe.String(g.SuccessURL),
		CancelURL:         stripe.String(g.CancelURL),
		ClientReferenceID: stripe.String(req.Reference),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Quantity: stripe.Int64(1),
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(strings.ToLower(req.Currency)),
					UnitAmount: stripe.Int64(req.AmountMinor),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(req.Description),
					},
				},
			},
		},
	}
	params.Context = ctx
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}

	s, err := session.New(params)
	if err != nil {
		g.Logger.Error("stripe checkout creation failed",
			zap.String("reference", req.Reference), zap.Error(err))
		return nil, fmt.Errorf("stripe checkout creation failed: %w", err)
	}

	out := &CheckoutSession{SessionID: s.ID, URL: s.URL}
	if s.PaymentIntent != nil {
		out.PaymentIntentID = s.PaymentIntent.ID
	}
	return out, nil
}
