package bookingRepo

import (
	"context"
	"errors"
	"time"

	"slotbook/models"
)

// Sentinel errors surfaced to the service layer.
var (
	ErrNotFound  = errors.New("booking not found")
	ErrSlotTaken = errors.New("slot already taken")
)

// BookingRepository is the appointment aggregate store. Status writes are
// conditional (guarded by the expected current status) so concurrent
// sweeps and requests cannot double-apply a transition.
type BookingRepository interface {
	// CreateGuarded inserts the booking unless an active booking already
	// overlaps its window. The overlap check reads committed state only,
	// so callers serialize concurrent writers for the slot by taking its
	// reservation hold before calling; the check then rejects any booking
	// that committed earlier with ErrSlotTaken.
	CreateGuarded(ctx context.Context, b *models.Booking) error
	GetByID(ctx context.Context, id string) (*models.Booking, error)
	// FindActiveInWindow returns upcoming/rescheduled bookings for the
	// vendor whose interval intersects [from, to).
	FindActiveInWindow(ctx context.Context, vendorID string, from, to time.Time) ([]models.Booking, error)

	// UpdateStatus transitions id from one of the given statuses to the
	// target; reports whether a document actually changed.
	UpdateStatus(ctx context.Context, id string, from []string, to string) (bool, error)
	// UpdateSchedule moves an active booking to a new date/window and
	// marks it rescheduled. The target window is re-checked against the
	// vendor's other active bookings; ErrSlotTaken reports an occupied
	// target. Callers hold the target slot's reservation key first.
	UpdateSchedule(ctx context.Context, id, vendorID, date string, start, end time.Time) (bool, error)
	// CancelWithRefund sets a terminal cancellation status together with
	// the persisted refund decision and the aggregate payment status.
	CancelWithRefund(ctx context.Context, id, toStatus string, refund models.RefundRecord, payStatus string) (bool, error)
	// SetPaymentAggregate rewrites the booking's money aggregate from the
	// ledger's view.
	SetPaymentAggregate(ctx context.Context, id string, paid, balance float64, status string) error

	// Reconciliation queries. Flag setters are conditional on the flag
	// still being false, keeping the flags monotonic.
	FindEndedActive(ctx context.Context, before time.Time) ([]models.Booking, error)
	FindReminderDue(ctx context.Context, stageField string, from, to time.Time) ([]models.Booking, error)
	SetReminderFlag(ctx context.Context, id, stageField string) (bool, error)
	FindVendorPromptDue(ctx context.Context, endedBefore time.Time) ([]models.Booking, error)
	SetVendorPromptSent(ctx context.Context, id string) (bool, error)
}
