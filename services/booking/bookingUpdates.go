package booking

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	bookingRepo "slotbook/database/repository/booking"
	reservationRepo "slotbook/database/repository/reservation"
	"slotbook/models"
	"slotbook/utils"
)

// Reschedule moves an active booking to a new slot. Only date and time
// change; the target slot must pass the same validation as a fresh
// booking, with the booking's own window excluded from the busy set.
func (se *DefaultBookingEngine) Reschedule(ctx context.Context, caller models.Caller, req models.RescheduleRequest) (*models.Booking, error) {
	b, err := se.mustGet(ctx, req.BookingID)
	if err != nil {
		return nil, err
	}
	if err := authorize(caller, b); err != nil {
		return nil, err
	}
	switch b.Status {
	case models.BookingStatusUpcoming, models.BookingStatusRescheduled:
	default:
		return nil, NewError(CodeConflict, "booking %s cannot be rescheduled from status %s", b.ID, b.Status)
	}

	svc, err := se.getService(ctx, b.ServiceID)
	if err != nil {
		return nil, err
	}
	start, end, tz, err := se.validateSlot(ctx, b.VendorID, req.Date, req.StartTime, svc.SlotMinutes(), b.ID)
	if err != nil {
		return nil, err
	}

	// Hold the target slot for the duration of the write so a racing
	// checkout or direct booking cannot land on it between validation
	// and the update.
	now := se.now()
	guard := &models.Reservation{
		ID:        uuid.New().String(),
		VendorID:  b.VendorID,
		ServiceID: b.ServiceID,
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
		return nil, NewError(CodeInternal, "failed to guard reschedule target: %v", err)
	}
	defer se.releaseReservation(ctx, guard)

	changed, err := se.Bookings.UpdateSchedule(ctx, b.ID, b.VendorID, req.Date, start, end)
	if errors.Is(err, bookingRepo.ErrSlotTaken) {
		return nil, NewError(CodeSlotUnavailable, "slot %s on %s was just taken", req.StartTime, req.Date)
	}
	if err != nil {
		return nil, NewError(CodeInternal, "failed to reschedule booking: %v", err)
	}
	if !changed {
		return nil, NewError(CodeConflict, "booking %s changed status during reschedule", b.ID)
	}

	updated, err := se.mustGet(ctx, b.ID)
	if err != nil {
		return nil, err
	}
	if caller.Role == models.RoleClient {
		se.notifyVendor(ctx, updated, "booking_rescheduled", "Booking rescheduled",
			fmt.Sprintf("%s moved their appointment to %s at %s.", updated.Client.Name, req.Date, req.StartTime))
	} else {
		se.notifyClient(ctx, updated, "booking_rescheduled", "Booking rescheduled",
			fmt.Sprintf("Your appointment was moved to %s at %s.", req.Date, req.StartTime))
	}
	return updated, nil
}

// Cancel applies a terminal cancellation and the refund decision in one
// transaction. The refund is evaluated once, here, and persisted.
func (se *DefaultBookingEngine) Cancel(ctx context.Context, caller models.Caller, req models.CancelRequest) (*models.Booking, error) {
	logger := utils.GetLogger()

	b, err := se.mustGet(ctx, req.BookingID)
	if err != nil {
		return nil, err
	}
	if err := authorize(caller, b); err != nil {
		return nil, err
	}
	if b.IsTerminal() {
		return nil, NewError(CodeConflict, "booking %s is already %s", b.ID, b.Status)
	}

	svc, err := se.getService(ctx, b.ServiceID)
	if err != nil {
		return nil, err
	}
	var deposit float64
	if svc.RequireDeposit {
		deposit = svc.MinimumDeposit()
	}

	now := se.now()
	delivered := !req.ServiceNotDelivered
	amount, reason := Refund(caller.Role, now, b.Start, deposit, b.Payment.PaidAmount, delivered)

	toStatus := models.BookingStatusCancelledByClient
	if caller.Role == models.RoleVendor {
		toStatus = models.BookingStatusCancelledByVendor
	}
	payStatus := b.Payment.Status
	if amount > 0 {
		payStatus = models.PaymentStateRefunded
	}
	record := models.RefundRecord{Amount: amount, Reason: reason, ProcessedAt: now}

	if err := se.Txn.WithTransaction(ctx, func(ctx context.Context) error {
		changed, err := se.Bookings.CancelWithRefund(ctx, b.ID, toStatus, record, payStatus)
		if err != nil {
			return err
		}
		if !changed {
			return NewError(CodeConflict, "booking %s reached a terminal status first", b.ID)
		}
		if amount > 0 {
			return se.Payments.MarkRefundedByBooking(ctx, b.ID, amount)
		}
		return nil
	}); err != nil {
		if IsCode(err, CodeConflict) {
			return nil, err
		}
		return nil, NewError(CodeInternal, "failed to cancel booking: %v", err)
	}

	logger.Info("booking cancelled",
		zap.String("bookingID", b.ID),
		zap.String("cancelledBy", caller.Role),
		zap.Float64("refund", amount),
		zap.String("reason", reason))

	updated, err := se.mustGet(ctx, b.ID)
	if err != nil {
		return nil, err
	}
	se.notifyClient(ctx, updated, "booking_cancelled", "Booking cancelled",
		fmt.Sprintf("Your appointment on %s was cancelled. Refund: %.2f (%s).", b.Date, amount, reason))
	se.notifyVendor(ctx, updated, "booking_cancelled", "Booking cancelled",
		fmt.Sprintf("The appointment on %s was cancelled by the %s.", b.Date, caller.Role))
	return updated, nil
}

// Complete marks an appointment delivered. Vendor-only; also how a vendor
// resolves a booking the missed sweep flagged.
func (se *DefaultBookingEngine) Complete(ctx context.Context, caller models.Caller, bookingID string) error {
	b, err := se.mustGet(ctx, bookingID)
	if err != nil {
		return err
	}
	if caller.Role != models.RoleVendor || b.VendorID != caller.ID {
		return NewError(CodeUnauthorized, "only the owning vendor may complete booking %s", bookingID)
	}

	from := []string{
		models.BookingStatusUpcoming,
		models.BookingStatusRescheduled,
		models.BookingStatusMissed,
	}
	changed, err := se.Bookings.UpdateStatus(ctx, bookingID, from, models.BookingStatusCompleted)
	if err != nil {
		return NewError(CodeInternal, "failed to complete booking: %v", err)
	}
	if !changed {
		return NewError(CodeConflict, "booking %s cannot be completed from status %s", bookingID, b.Status)
	}
	return nil
}
