package models

import "time"

// Booking statuses. Transitions are monotonic: terminal statuses
// (completed, cancelled_*) are never left, and cancellation is a status,
// never a document delete.
const (
	BookingStatusPendingVerification = "pending_verification"
	BookingStatusUpcoming            = "upcoming"
	BookingStatusRescheduled         = "rescheduled"
	BookingStatusCompleted           = "completed"
	BookingStatusMissed              = "missed"
	BookingStatusCancelledByClient   = "cancelled_by_client"
	BookingStatusCancelledByVendor   = "cancelled_by_vendor"
)

// Aggregate payment statuses carried on a booking.
const (
	PaymentStateUnpaid   = "unpaid"
	PaymentStatePartial  = "partial"
	PaymentStatePaid     = "paid"
	PaymentStateRefunded = "refunded"
)

// ClientRef identifies who the appointment is for. An empty ID means guest.
type ClientRef struct {
	ID    string `bson:"id,omitempty" json:"id,omitempty"`
	Name  string `bson:"name" json:"name"`
	Email string `bson:"email,omitempty" json:"email,omitempty"`
	Phone string `bson:"phone,omitempty" json:"phone,omitempty"`
}

// BookingPayment is the money aggregate on a booking, recomputed from the
// payment ledger whenever a payment lands.
type BookingPayment struct {
	Status        string  `bson:"status" json:"status"`
	PaidAmount    float64 `bson:"paid_amount" json:"paidAmount"`
	BalanceAmount float64 `bson:"balance_amount" json:"balanceAmount"`
}

// ReminderStages tracks which reminders have fired. Flags only ever flip
// to true so overlapping sweeps cannot remind twice.
type ReminderStages struct {
	At24h bool `bson:"at_24h" json:"at24h"`
	At3h  bool `bson:"at_3h" json:"at3h"`
	At1h  bool `bson:"at_1h" json:"at1h"`
}

// Recurrence records the client's recurrence intent. Expansion into
// future bookings is out of scope; only the intent is stored.
type Recurrence struct {
	Repeat   string `bson:"repeat" json:"repeat"` // "weekly", "monthly"
	Interval int    `bson:"interval" json:"interval"`
	EndDate  string `bson:"end_date,omitempty" json:"endDate,omitempty"`
}

// RefundRecord is the refund decision persisted at cancellation time.
// It is never recomputed afterwards.
type RefundRecord struct {
	Amount      float64   `bson:"amount" json:"amount"`
	Reason      string    `bson:"reason" json:"reason"`
	ProcessedAt time.Time `bson:"processed_at" json:"processedAt"`
}

// Booking is the appointment aggregate and the source of truth for
// confirmed, cancelled and missed appointments.
type Booking struct {
	ID               string          `bson:"id" json:"id"`
	VendorID         string          `bson:"vendor_id" json:"vendorId"`
	ServiceID        string          `bson:"service_id" json:"serviceId"`
	Client           ClientRef       `bson:"client" json:"client"`
	Date             string          `bson:"date" json:"date"` // vendor-local "YYYY-MM-DD"
	Start            time.Time       `bson:"start" json:"start"` // absolute UTC
	End              time.Time       `bson:"end" json:"end"`
	Timezone         string          `bson:"timezone" json:"timezone"`
	Status           string          `bson:"status" json:"status"`
	Payment          BookingPayment  `bson:"payment" json:"payment"`
	Reminders        ReminderStages  `bson:"reminders" json:"reminders"`
	VendorPromptSent bool            `bson:"vendor_prompt_sent" json:"vendorPromptSent"`
	Recurrence       *Recurrence     `bson:"recurrence,omitempty" json:"recurrence,omitempty"`
	Refund           *RefundRecord   `bson:"refund,omitempty" json:"refund,omitempty"`
	CreatedAt        time.Time       `bson:"created_at" json:"createdAt"`
	UpdatedAt        time.Time       `bson:"updated_at" json:"updatedAt"`
}

// IsTerminal reports whether the booking can no longer change status.
func (b *Booking) IsTerminal() bool {
	switch b.Status {
	case BookingStatusCompleted, BookingStatusCancelledByClient, BookingStatusCancelledByVendor:
		return true
	}
	return false
}

// ActiveStatuses are the statuses that occupy a slot on the calendar.
func ActiveStatuses() []string {
	return []string{BookingStatusUpcoming, BookingStatusRescheduled}
}
