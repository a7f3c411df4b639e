package models

import "time"

// Payment statuses. Status is a one-way ratchet pending -> {paid | failed};
// refunded is set only by the refund path, and only once the payment's
// whole captured amount has been returned. A partially refunded payment
// stays paid with AmountRefunded recording the returned portion.
const (
	PaymentStatusPending  = "pending"
	PaymentStatusPaid     = "paid"
	PaymentStatusFailed   = "failed"
	PaymentStatusRefunded = "refunded"
)

// Payment methods.
const (
	PaymentMethodOnline  = "online"
	PaymentMethodOffline = "offline"
)

// Payment is a single charge attempt in the ledger. Exactly one of
// BookingID / ReservationID is set while the payment is pending; after a
// deposit-first promotion BookingID is always set.
type Payment struct {
	ID                      string            `bson:"id" json:"id"`
	BookingID               string            `bson:"booking_id,omitempty" json:"bookingId,omitempty"`
	ReservationID           string            `bson:"reservation_id,omitempty" json:"reservationId,omitempty"`
	VendorID                string            `bson:"vendor_id" json:"vendorId"`
	ServiceID               string            `bson:"service_id" json:"serviceId"`
	AmountExpected          float64           `bson:"amount_expected" json:"amountExpected"`
	AmountPaid              float64           `bson:"amount_paid" json:"amountPaid"`
	AmountRefunded          float64           `bson:"amount_refunded,omitempty" json:"amountRefunded,omitempty"` // cumulative amount returned to the client
	Currency                string            `bson:"currency" json:"currency"`
	Method                  string            `bson:"method" json:"method"`
	Provider                string            `bson:"provider" json:"provider"` // e.g. "stripe", "offline"
	Status                  string            `bson:"status" json:"status"`
	ProviderSessionID       string            `bson:"provider_session_id,omitempty" json:"providerSessionId,omitempty"`
	ProviderPaymentIntentID string            `bson:"provider_payment_intent_id,omitempty" json:"providerPaymentIntentId,omitempty"`
	IdempotencyKey          string            `bson:"idempotency_key,omitempty" json:"idempotencyKey,omitempty"`
	Meta                    map[string]string `bson:"meta,omitempty" json:"meta,omitempty"`
	CreatedAt               time.Time         `bson:"created_at" json:"createdAt"`
	UpdatedAt               time.Time         `bson:"updated_at" json:"updatedAt"`
}

// Gateway event types delivered by the payment provider. Delivery is
// at-least-once and may be re-ordered.
const (
	GatewayEventSucceeded = "succeeded"
	GatewayEventFailed    = "failed"
	GatewayEventExpired   = "expired"
)

// GatewayEvent is a terminal payment event, already stripped of
// provider-specific framing by the transport layer.
type GatewayEvent struct {
	Type            string  `json:"type"`
	ProviderEventID string  `json:"providerEventId"`
	SessionID       string  `json:"sessionId"`
	PaymentIntentID string  `json:"paymentIntentId"`
	AmountPaid      float64 `json:"amountPaid"`
	Currency        string  `json:"currency"`
	Reason          string  `json:"reason,omitempty"`
}

// DepositSession is what a client gets back from deposit initiation:
// the hold, the pending ledger entry, and where to pay. A replay of a
// checkout that already settled carries the booking id instead of a
// live hold.
type DepositSession struct {
	ReservationID string    `json:"reservationId,omitempty"`
	PaymentID     string    `json:"paymentId"`
	BookingID     string    `json:"bookingId,omitempty"`
	CheckoutURL   string    `json:"checkoutUrl"`
	ExpiresAt     time.Time `json:"expiresAt"`
}
