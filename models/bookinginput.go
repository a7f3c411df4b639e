package models

// Caller roles recognised by the engine. Authentication itself is handled
// upstream; the engine only sees the resolved identity.
const (
	RoleClient = "client"
	RoleVendor = "vendor"
)

// Caller is the resolved identity of whoever invokes a mutating operation.
type Caller struct {
	ID       string
	Role     string
	Verified bool
}

// CreateBookingRequest is the direct (no-deposit) booking flow input.
type CreateBookingRequest struct {
	VendorID   string      `json:"vendorId" binding:"required"`
	ServiceID  string      `json:"serviceId" binding:"required"`
	Client     ClientRef   `json:"client" binding:"required"`
	Date       string      `json:"date" binding:"required"` // "YYYY-MM-DD", vendor-local
	StartTime  string      `json:"startTime" binding:"required"` // "HH:mm", vendor-local
	Recurrence *Recurrence `json:"recurrence,omitempty"`
}

// InitiateDepositRequest opens the deposit-first reservation flow.
type InitiateDepositRequest struct {
	VendorID       string    `json:"vendorId" binding:"required"`
	ServiceID      string    `json:"serviceId" binding:"required"`
	Client         ClientRef `json:"client" binding:"required"`
	Date           string    `json:"date" binding:"required"`
	StartTime      string    `json:"startTime" binding:"required"`
	Amount         float64   `json:"amount" binding:"required"`
	Method         string    `json:"method" binding:"required"` // must be "online"
	IdempotencyKey string    `json:"idempotencyKey,omitempty"`
}

// RescheduleRequest moves a booking to a new slot. Only date and time may
// change; the new slot is validated like any fresh booking. BookingID is
// taken from the URL.
type RescheduleRequest struct {
	BookingID string `json:"-"`
	Date      string `json:"date" binding:"required"`
	StartTime string `json:"startTime" binding:"required"`
}

// CancelRequest cancels a booking. ServiceNotDelivered is the vendor-fault
// flag: when set, the refund policy treats the appointment as undelivered
// and refunds in full regardless of timing.
type CancelRequest struct {
	BookingID           string `json:"-"`
	ServiceNotDelivered bool   `json:"serviceNotDelivered,omitempty"`
}

// RecordPaymentRequest records a post-booking payment (offline, or an
// additional online charge) against the outstanding balance.
type RecordPaymentRequest struct {
	BookingID      string  `json:"-"`
	Amount         float64 `json:"amount" binding:"required"`
	Method         string  `json:"method" binding:"required"`
	IdempotencyKey string  `json:"idempotencyKey,omitempty"`
}
