package paymentRepo

import (
	"context"
	"errors"

	"slotbook/models"
)

var (
	ErrNotFound     = errors.New("payment not found")
	ErrDuplicateKey = errors.New("idempotency key already used")
)

// PaymentRepository is the payment ledger. Status changes are conditional
// on the current status so the pending -> {paid | failed} ratchet can
// never run backwards, whatever order gateway events arrive in.
type PaymentRepository interface {
	Create(ctx context.Context, p *models.Payment) error
	GetByID(ctx context.Context, id string) (*models.Payment, error)
	FindByIdempotencyKey(ctx context.Context, key string) (*models.Payment, error)
	// FindByProviderRef locates a payment by gateway correlation id
	// (checkout session id or payment intent id).
	FindByProviderRef(ctx context.Context, sessionID, intentID string) (*models.Payment, error)

	// MarkPaid ratchets pending -> paid and records the captured amount.
	MarkPaid(ctx context.Context, id string, amountPaid float64) (bool, error)
	// MarkFailed ratchets pending -> failed.
	MarkFailed(ctx context.Context, id, reason string) (bool, error)
	// AttachBooking rewrites the reservation reference into a booking
	// reference after promotion.
	AttachBooking(ctx context.Context, id, bookingID string) error
	SetProviderRefs(ctx context.Context, id, sessionID, intentID string) error
	SetMeta(ctx context.Context, id, key, value string) error

	// SumPaidForBooking returns the booking's paid total net of refunds.
	SumPaidForBooking(ctx context.Context, bookingID string) (float64, error)
	// MarkRefundedByBooking allocates a refund across the booking's paid
	// payments, newest first. A payment flips to refunded only when its
	// whole captured amount is returned; a forfeited deposit stays paid.
	MarkRefundedByBooking(ctx context.Context, bookingID string, amount float64) error
}
