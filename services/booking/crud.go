package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	bookingRepo "slotbook/database/repository/booking"
	reservationRepo "slotbook/database/repository/reservation"
	verificationRepo "slotbook/database/repository/verification"
	"slotbook/models"
	"slotbook/utils"
)

// slotGuardTTL bounds the hold taken around a booking insert or a
// reschedule write. Redis reclaims it if the process dies mid-write.
const slotGuardTTL = time.Minute

// buildBooking assembles a booking aggregate for a validated slot.
func buildBooking(req models.CreateBookingRequest, svc *models.Service, start, end time.Time, tz string, now time.Time) *models.Booking {
	return &models.Booking{
		ID:        uuid.New().String(),
		VendorID:  req.VendorID,
		ServiceID: req.ServiceID,
		Client:    req.Client,
		Date:      req.Date,
		Start:     start,
		End:       end,
		Timezone:  tz,
		Status:    models.BookingStatusUpcoming,
		Payment: models.BookingPayment{
			Status:        models.PaymentStateUnpaid,
			PaidAmount:    0,
			BalanceAmount: svc.Price,
		},
		Recurrence: req.Recurrence,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// CreateBooking is the direct flow for services without a deposit
// requirement. The slot is re-validated and the insert happens under a
// short hold on the slot key, the same guard the deposit checkout uses,
// so two racing requests collide on the hold instead of both inserting.
func (se *DefaultBookingEngine) CreateBooking(ctx context.Context, caller models.Caller, req models.CreateBookingRequest) (*models.Booking, error) {
	logger := utils.GetLogger()

	if req.Client.Name == "" {
		return nil, NewError(CodeValidation, "client name is required")
	}
	svc, err := se.getService(ctx, req.ServiceID)
	if err != nil {
		return nil, err
	}
	if svc.RequireDeposit {
		return nil, NewError(CodeDepositRequired, "service %s requires a deposit; use the deposit checkout flow", svc.ID)
	}

	start, end, tz, err := se.validateSlot(ctx, req.VendorID, req.Date, req.StartTime, svc.SlotMinutes(), "")
	if err != nil {
		return nil, err
	}

	now := se.now()
	b := buildBooking(req, svc, start, end, tz, now)
	if !caller.Verified {
		b.Status = models.BookingStatusPendingVerification
	}

	// Validation above is a read; the write itself is protected by the
	// slot hold. A concurrent create, reschedule, or deposit checkout for
	// this slot fails the SETNX instead of racing the insert.
	guard := &models.Reservation{
		ID:        uuid.New().String(),
		VendorID:  req.VendorID,
		ServiceID: req.ServiceID,
		Date:      req.Date,
		Start:     start,
		End:       end,
		Timezone:  tz,
		Payload:   *b,
		ExpiresAt: now.Add(slotGuardTTL),
		CreatedAt: now,
	}
	if err := se.Reservations.Create(ctx, guard, slotGuardTTL); err != nil {
		if errors.Is(err, reservationRepo.ErrSlotHeld) {
			return nil, NewError(CodeSlotUnavailable, "slot %s on %s is held by another checkout", req.StartTime, req.Date)
		}
		return nil, NewError(CodeInternal, "failed to guard slot: %v", err)
	}
	defer se.releaseReservation(ctx, guard)

	if err := se.Txn.WithTransaction(ctx, func(ctx context.Context) error {
		return se.Bookings.CreateGuarded(ctx, b)
	}); err != nil {
		if errors.Is(err, bookingRepo.ErrSlotTaken) {
			return nil, NewError(CodeSlotUnavailable, "slot %s on %s was just taken", req.StartTime, req.Date)
		}
		return nil, NewError(CodeInternal, "failed to create booking: %v", err)
	}

	if b.Status == models.BookingStatusPendingVerification {
		token := uuid.New().String()
		if err := se.Tokens.Issue(ctx, token, b.ID, se.VerifyTokenTTL); err != nil {
			logger.Error("failed to issue verification token",
				zap.String("bookingID", b.ID), zap.Error(err))
		} else {
			se.notifyClient(ctx, b, "booking_verification", "Verify your booking",
				fmt.Sprintf("Confirm your appointment on %s at %s with token %s.", b.Date, req.StartTime, token))
		}
	} else {
		se.notifyClient(ctx, b, "booking_confirmed", "Booking confirmed",
			fmt.Sprintf("Your appointment on %s at %s is confirmed.", b.Date, req.StartTime))
	}
	se.notifyVendor(ctx, b, "new_booking", "New booking",
		fmt.Sprintf("%s booked %s on %s at %s.", b.Client.Name, svc.Name, b.Date, req.StartTime))

	logger.Info("booking created",
		zap.String("bookingID", b.ID),
		zap.String("vendorID", b.VendorID),
		zap.String("status", b.Status))
	return b, nil
}

// VerifyBooking consumes a single-use token and promotes the booking out
// of pending_verification.
func (se *DefaultBookingEngine) VerifyBooking(ctx context.Context, token string) (*models.Booking, error) {
	bookingID, err := se.Tokens.Consume(ctx, token)
	if errors.Is(err, verificationRepo.ErrTokenInvalid) {
		return nil, NewError(CodeNotFound, "verification token invalid or expired")
	}
	if err != nil {
		return nil, NewError(CodeInternal, "failed to consume verification token: %v", err)
	}

	changed, err := se.Bookings.UpdateStatus(ctx, bookingID,
		[]string{models.BookingStatusPendingVerification}, models.BookingStatusUpcoming)
	if err != nil {
		return nil, NewError(CodeInternal, "failed to verify booking: %v", err)
	}
	if !changed {
		return nil, NewError(CodeConflict, "booking %s is not awaiting verification", bookingID)
	}
	return se.mustGet(ctx, bookingID)
}

// GetBooking fetches a booking the caller owns one side of.
func (se *DefaultBookingEngine) GetBooking(ctx context.Context, caller models.Caller, bookingID string) (*models.Booking, error) {
	b, err := se.mustGet(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if err := authorize(caller, b); err != nil {
		return nil, err
	}
	return b, nil
}

func (se *DefaultBookingEngine) mustGet(ctx context.Context, bookingID string) (*models.Booking, error) {
	b, err := se.Bookings.GetByID(ctx, bookingID)
	if errors.Is(err, bookingRepo.ErrNotFound) {
		return nil, NewError(CodeNotFound, "booking %s not found", bookingID)
	}
	if err != nil {
		return nil, fmt.Errorf("fetching booking: %w", err)
	}
	return b, nil
}

// authorize enforces the ownership rule: a client may touch only their
// own bookings, a vendor only bookings on their calendar.
func authorize(caller models.Caller, b *models.Booking) error {
	switch caller.Role {
	case models.RoleClient:
		if b.Client.ID != "" && b.Client.ID == caller.ID {
			return nil
		}
	case models.RoleVendor:
		if b.VendorID == caller.ID {
			return nil
		}
	}
	return NewError(CodeUnauthorized, "caller %s may not act on booking %s", caller.ID, b.ID)
}

func (se *DefaultBookingEngine) notifyClient(ctx context.Context, b *models.Booking, kind, subject, body string) {
	if se.Notifier == nil || b.Client.ID == "" {
		return
	}
	if err := se.Notifier.NotifyClient(ctx, b.Client.ID, kind, subject, body); err != nil {
		utils.GetLogger().Warn("client notification failed",
			zap.String("bookingID", b.ID), zap.String("kind", kind), zap.Error(err))
	}
}

func (se *DefaultBookingEngine) notifyVendor(ctx context.Context, b *models.Booking, kind, subject, body string) {
	if se.Notifier == nil {
		return
	}
	if err := se.Notifier.NotifyVendor(ctx, b.VendorID, kind, subject, body); err != nil {
		utils.GetLogger().Warn("vendor notification failed",
			zap.String("bookingID", b.ID), zap.String("kind", kind), zap.Error(err))
	}
}
