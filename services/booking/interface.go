package booking

import (
	"context"
	"time"

	availabilityRepo "slotbook/database/repository/availability"
	bookingRepo "slotbook/database/repository/booking"
	paymentRepo "slotbook/database/repository/payment"
	reservationRepo "slotbook/database/repository/reservation"
	serviceRepo "slotbook/database/repository/service"
	verificationRepo "slotbook/database/repository/verification"
	"slotbook/database"
	"slotbook/models"
	"slotbook/services/notification"
	"slotbook/services/payment"
)

// BookingEngine is the booking lifecycle and payment reconciliation core.
type BookingEngine interface {
	// Slot derivation.
	GenerateSlots(ctx context.Context, vendorID, date string, requiredMinutes int) ([]string, error)
	SlotsForService(ctx context.Context, vendorID, serviceID, date string) ([]string, error)

	// Direct booking lifecycle.
	CreateBooking(ctx context.Context, caller models.Caller, req models.CreateBookingRequest) (*models.Booking, error)
	VerifyBooking(ctx context.Context, token string) (*models.Booking, error)
	GetBooking(ctx context.Context, caller models.Caller, bookingID string) (*models.Booking, error)
	Reschedule(ctx context.Context, caller models.Caller, req models.RescheduleRequest) (*models.Booking, error)
	Cancel(ctx context.Context, caller models.Caller, req models.CancelRequest) (*models.Booking, error)
	Complete(ctx context.Context, caller models.Caller, bookingID string) error

	// Deposit-first flow and ledger operations.
	InitiateDeposit(ctx context.Context, caller models.Caller, req models.InitiateDepositRequest) (*models.DepositSession, error)
	FinalizePayment(ctx context.Context, evt models.GatewayEvent) error
	RecordPayment(ctx context.Context, caller models.Caller, req models.RecordPaymentRequest) (*models.Payment, error)
}

// DefaultBookingEngine implements BookingEngine against injected
// repositories; it never touches a storage driver directly.
type DefaultBookingEngine struct {
	Availability availabilityRepo.AvailabilityRepository
	Bookings     bookingRepo.BookingRepository
	Payments     paymentRepo.PaymentRepository
	Reservations reservationRepo.ReservationRepository
	Services     serviceRepo.ServiceRepository
	Tokens       verificationRepo.TokenStore
	Gateway      payment.Gateway
	Notifier     notification.NotificationService
	Txn          database.TxnRunner

	ReservationTTL time.Duration
	VerifyTokenTTL time.Duration

	// Now is overridable for tests; nil means wall clock.
	Now func() time.Time
}

func (se *DefaultBookingEngine) now() time.Time {
	if se.Now != nil {
		return se.Now()
	}
	return NowUTC()
}
