package booking

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	paymentRepo "slotbook/database/repository/payment"
	reservationRepo "slotbook/database/repository/reservation"
	"slotbook/models"
	"slotbook/utils"
)

// errAlreadyFinalized aborts a finalization transaction when another
// delivery of the same event won the MarkPaid race. It is swallowed by
// the caller: the first delivery did all the work.
var errAlreadyFinalized = errors.New("payment already finalized")

// FinalizePayment applies a terminal gateway event to the ledger.
// Deliveries are at-least-once and unordered, so every branch must be a
// no-op when replayed and must refuse to run the status ratchet
// backwards.
func (se *DefaultBookingEngine) FinalizePayment(ctx context.Context, evt models.GatewayEvent) error {
	logger := utils.GetLogger()

	p, err := se.Payments.FindByProviderRef(ctx, evt.SessionID, evt.PaymentIntentID)
	if errors.Is(err, paymentRepo.ErrNotFound) {
		return NewError(CodeNotFound, "no payment matches session %q / intent %q", evt.SessionID, evt.PaymentIntentID)
	}
	if err != nil {
		return NewError(CodeInternal, "payment lookup failed: %v", err)
	}

	switch evt.Type {
	case models.GatewayEventSucceeded:
		if p.Status == models.PaymentStatusPaid {
			logger.Info("duplicate success event ignored", zap.String("paymentID", p.ID))
			return nil
		}
		amount := evt.AmountPaid
		if amount <= 0 {
			amount = p.AmountExpected
		}
		if p.BookingID != "" {
			return se.applyBookingPayment(ctx, p, amount)
		}
		if p.ReservationID != "" {
			return se.promoteReservation(ctx, p, amount)
		}
		return NewError(CodeInternal, "payment %s has neither booking nor reservation reference", p.ID)

	case models.GatewayEventFailed, models.GatewayEventExpired:
		if p.Status == models.PaymentStatusPaid {
			// A success already landed; a late failure/expiry for the
			// same checkout carries no information.
			logger.Info("stale terminal event ignored",
				zap.String("paymentID", p.ID), zap.String("event", evt.Type))
			return nil
		}
		reason := evt.Reason
		if reason == "" {
			reason = evt.Type
		}
		changed, err := se.Payments.MarkFailed(ctx, p.ID, reason)
		if err != nil {
			return NewError(CodeInternal, "failed to mark payment failed: %v", err)
		}
		if changed && p.ReservationID != "" {
			se.dropReservationByID(ctx, p.ReservationID)
		}
		logger.Info("payment closed without capture",
			zap.String("paymentID", p.ID),
			zap.String("event", evt.Type),
			zap.Bool("changed", changed))
		return nil

	default:
		logger.Warn("unrecognised gateway event type", zap.String("type", evt.Type))
		return nil
	}
}

// promoteReservation turns a paid checkout into a confirmed booking. The
// ledger ratchet and the booking insert commit together; the reservation
// itself is removed after commit, with its TTL as the backstop should the
// delete fail.
func (se *DefaultBookingEngine) promoteReservation(ctx context.Context, p *models.Payment, amount float64) error {
	logger := utils.GetLogger()

	res, err := se.Reservations.GetByID(ctx, p.ReservationID)
	if errors.Is(err, reservationRepo.ErrNotFound) {
		// The hold expired before the success event arrived. The money is
		// captured but the slot is gone; keep the ledger honest and leave
		// the refund to a human.
		if _, merr := se.Payments.MarkPaid(ctx, p.ID, amount); merr != nil {
			return NewError(CodeInternal, "failed to record orphaned payment: %v", merr)
		}
		if merr := se.Payments.SetMeta(ctx, p.ID, "reservation_expired", "true"); merr != nil {
			logger.Warn("failed to flag orphaned payment", zap.String("paymentID", p.ID), zap.Error(merr))
		}
		logger.Error("payment captured after reservation expiry; manual refund required",
			zap.String("paymentID", p.ID),
			zap.String("reservationID", p.ReservationID),
			zap.Float64("amount", amount))
		return nil
	}
	if err != nil {
		return NewError(CodeInternal, "reservation lookup failed: %v", err)
	}

	b := res.Payload
	total := b.Payment.PaidAmount + b.Payment.BalanceAmount
	b.Status = models.BookingStatusUpcoming
	b.Payment = paymentAggregate(amount, total)
	now := se.now()
	b.CreatedAt = now
	b.UpdatedAt = now

	err = se.Txn.WithTransaction(ctx, func(sc context.Context) error {
		changed, err := se.Payments.MarkPaid(sc, p.ID, amount)
		if err != nil {
			return err
		}
		if !changed {
			return errAlreadyFinalized
		}
		if err := se.Bookings.CreateGuarded(sc, &b); err != nil {
			return err
		}
		return se.Payments.AttachBooking(sc, p.ID, b.ID)
	})
	if errors.Is(err, errAlreadyFinalized) {
		return nil
	}
	if err != nil {
		return NewError(CodeInternal, "reservation promotion failed: %v", err)
	}

	se.releaseReservation(ctx, res)
	logger.Info("reservation promoted to booking",
		zap.String("bookingID", b.ID),
		zap.String("paymentID", p.ID),
		zap.Float64("amount", amount))
	se.notifyClient(ctx, &b, "booking_confirmed", "Booking confirmed",
		"Your deposit was received and your booking is confirmed.")
	se.notifyVendor(ctx, &b, "booking_confirmed", "New booking",
		"A deposit was received; a new booking is on your calendar.")
	return nil
}

// applyBookingPayment settles a success event against an existing
// booking and refreshes its money aggregate from the ledger.
func (se *DefaultBookingEngine) applyBookingPayment(ctx context.Context, p *models.Payment, amount float64) error {
	b, err := se.mustGet(ctx, p.BookingID)
	if err != nil {
		return err
	}
	err = se.Txn.WithTransaction(ctx, func(sc context.Context) error {
		changed, err := se.Payments.MarkPaid(sc, p.ID, amount)
		if err != nil {
			return err
		}
		if !changed {
			return errAlreadyFinalized
		}
		return se.refreshAggregate(sc, b)
	})
	if errors.Is(err, errAlreadyFinalized) {
		return nil
	}
	if err != nil {
		return NewError(CodeInternal, "failed to apply payment: %v", err)
	}
	utils.GetLogger().Info("payment applied to booking",
		zap.String("bookingID", b.ID),
		zap.String("paymentID", p.ID),
		zap.Float64("amount", amount))
	return nil
}

// RecordPayment writes a settled payment (typically offline, collected at
// the appointment) straight into the ledger and refreshes the booking
// aggregate.
func (se *DefaultBookingEngine) RecordPayment(ctx context.Context, caller models.Caller, req models.RecordPaymentRequest) (*models.Payment, error) {
	if req.Amount <= 0 {
		return nil, NewError(CodeValidation, "amount must be positive")
	}
	if req.Method != models.PaymentMethodOnline && req.Method != models.PaymentMethodOffline {
		return nil, NewError(CodeValidation, "unknown payment method %q", req.Method)
	}

	b, err := se.mustGet(ctx, req.BookingID)
	if err != nil {
		return nil, err
	}
	if err := authorize(caller, b); err != nil {
		return nil, err
	}
	if b.IsTerminal() {
		return nil, NewError(CodeConflict, "cannot record a payment on a %s booking", b.Status)
	}
	if req.Amount > b.Payment.BalanceAmount {
		return nil, NewError(CodeValidation, "amount %.2f exceeds outstanding balance %.2f", req.Amount, b.Payment.BalanceAmount)
	}

	if req.IdempotencyKey != "" {
		prev, err := se.Payments.FindByIdempotencyKey(ctx, req.IdempotencyKey)
		if err != nil && !errors.Is(err, paymentRepo.ErrNotFound) {
			return nil, NewError(CodeInternal, "idempotency lookup failed: %v", err)
		}
		if prev != nil {
			if prev.BookingID == b.ID && prev.AmountExpected == req.Amount {
				return prev, nil
			}
			return nil, NewError(CodeConflict, "idempotency key already used with a different payload")
		}
	}

	svc, err := se.getService(ctx, b.ServiceID)
	if err != nil {
		return nil, err
	}

	now := se.now()
	p := &models.Payment{
		ID:             uuid.New().String(),
		BookingID:      b.ID,
		VendorID:       b.VendorID,
		ServiceID:      b.ServiceID,
		AmountExpected: req.Amount,
		AmountPaid:     req.Amount,
		Currency:       svc.Currency,
		Method:         req.Method,
		Provider:       req.Method,
		Status:         models.PaymentStatusPaid,
		IdempotencyKey: req.IdempotencyKey,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	err = se.Txn.WithTransaction(ctx, func(sc context.Context) error {
		if err := se.Payments.Create(sc, p); err != nil {
			return err
		}
		return se.refreshAggregate(sc, b)
	})
	if errors.Is(err, paymentRepo.ErrDuplicateKey) {
		return nil, NewError(CodeConflict, "idempotency key already used with a different payload")
	}
	if err != nil {
		return nil, NewError(CodeInternal, "failed to record payment: %v", err)
	}

	utils.GetLogger().Info("payment recorded",
		zap.String("bookingID", b.ID),
		zap.String("paymentID", p.ID),
		zap.String("method", req.Method),
		zap.Float64("amount", req.Amount))
	return p, nil
}

// refreshAggregate recomputes the booking's money aggregate from the
// ledger. Total owed is invariant across refreshes: paid + balance.
func (se *DefaultBookingEngine) refreshAggregate(ctx context.Context, b *models.Booking) error {
	total := b.Payment.PaidAmount + b.Payment.BalanceAmount
	paid, err := se.Payments.SumPaidForBooking(ctx, b.ID)
	if err != nil {
		return err
	}
	agg := paymentAggregate(paid, total)
	return se.Bookings.SetPaymentAggregate(ctx, b.ID, agg.PaidAmount, agg.BalanceAmount, agg.Status)
}

func paymentAggregate(paid, total float64) models.BookingPayment {
	status := models.PaymentStatePartial
	switch {
	case paid <= 0:
		status = models.PaymentStateUnpaid
		paid = 0
	case paid >= total:
		status = models.PaymentStatePaid
	}
	balance := total - paid
	if balance < 0 {
		balance = 0
	}
	return models.BookingPayment{Status: status, PaidAmount: paid, BalanceAmount: balance}
}

func (se *DefaultBookingEngine) dropReservationByID(ctx context.Context, reservationID string) {
	res, err := se.Reservations.GetByID(ctx, reservationID)
	if errors.Is(err, reservationRepo.ErrNotFound) {
		return
	}
	if err != nil {
		utils.GetLogger().Warn("reservation lookup failed during release",
			zap.String("reservationID", reservationID), zap.Error(err))
		return
	}
	se.releaseReservation(ctx, res)
}
