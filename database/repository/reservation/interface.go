package reservationRepo

import (
	"context"
	"errors"
	"time"

	"slotbook/models"
)

var (
	// ErrSlotHeld means another checkout already holds this slot.
	ErrSlotHeld = errors.New("slot is already held by a pending checkout")
	// ErrNotFound means the reservation never existed or its TTL expired.
	ErrNotFound = errors.New("reservation not found or expired")
)

// ReservationRepository stores TTL-bounded slot holds. Expiry is enforced
// by the store itself, not by application polling: an abandoned checkout
// releases its slot even if every app process is down.
type ReservationRepository interface {
	// Create stores the reservation and takes the slot hold atomically;
	// ErrSlotHeld if a live hold already covers the slot.
	Create(ctx context.Context, res *models.Reservation, ttl time.Duration) error
	GetByID(ctx context.Context, id string) (*models.Reservation, error)
	// Delete releases the hold and the payload immediately (promotion or
	// failed payment); the TTL is only the backstop.
	Delete(ctx context.Context, res *models.Reservation) error
	// ListActive returns the vendor's live holds for a date, so slot
	// generation can exclude slots mid-checkout.
	ListActive(ctx context.Context, vendorID, date string) ([]models.Reservation, error)
}
