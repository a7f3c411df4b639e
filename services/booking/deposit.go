package booking

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	paymentRepo "slotbook/database/repository/payment"
	reservationRepo "slotbook/database/repository/reservation"
	"slotbook/models"
	"slotbook/services/payment"
	"slotbook/utils"
)

// InitiateDeposit opens the deposit-first flow: a TTL-bounded slot hold,
// a pending ledger entry, and a gateway checkout. No booking exists yet;
// the slot must not count as taken until money moves, but it must be
// protected from double-booking during the checkout window, which the
// reservation's own TTL achieves without locking the booking store.
func (se *DefaultBookingEngine) InitiateDeposit(ctx context.Context, caller models.Caller, req models.InitiateDepositRequest) (*models.DepositSession, error) {
	logger := utils.GetLogger()

	svc, err := se.getService(ctx, req.ServiceID)
	if err != nil {
		return nil, err
	}
	if !svc.RequireDeposit {
		return nil, NewError(CodeDepositNotRequired, "service %s does not require a deposit", svc.ID)
	}
	if req.Method != models.PaymentMethodOnline {
		return nil, NewError(CodeOfflineNotAllowed, "deposit-required services accept online payment only")
	}
	if min := svc.MinimumDeposit(); req.Amount < min {
		return nil, NewError(CodeBelowMinimumDeposit, "deposit %.2f is below the minimum %.2f", req.Amount, min)
	}
	if req.Client.Name == "" {
		return nil, NewError(CodeValidation, "client name is required")
	}

	// Replaying the same idempotency key returns the original handle, or
	// the booking the checkout already became.
	if req.IdempotencyKey != "" {
		prev, err := se.Payments.FindByIdempotencyKey(ctx, req.IdempotencyKey)
		if err != nil && !errors.Is(err, paymentRepo.ErrNotFound) {
			return nil, NewError(CodeInternal, "idempotency lookup failed: %v", err)
		}
		if prev != nil {
			if prev.VendorID != req.VendorID || prev.ServiceID != req.ServiceID ||
				prev.AmountExpected != req.Amount {
				return nil, NewError(CodeConflict, "idempotency key already used with a different payload")
			}
			return se.replayDeposit(ctx, prev)
		}
	}

	// Availability may have changed since the client last queried it.
	start, end, tz, err := se.validateSlot(ctx, req.VendorID, req.Date, req.StartTime, svc.SlotMinutes(), "")
	if err != nil {
		return nil, err
	}

	now := se.now()
	payload := buildBooking(models.CreateBookingRequest{
		VendorID:  req.VendorID,
		ServiceID: req.ServiceID,
		Client:    req.Client,
		Date:      req.Date,
		StartTime: req.StartTime,
	}, svc, start, end, tz, now)

	res := &models.Reservation{
		ID:        uuid.New().String(),
		VendorID:  req.VendorID,
		ServiceID: req.ServiceID,
		Date:      req.Date,
		Start:     start,
		End:       end,
		Timezone:  tz,
		Payload:   *payload,
		ExpiresAt: now.Add(se.ReservationTTL),
		CreatedAt: now,
	}
	if err := se.Reservations.Create(ctx, res, se.ReservationTTL); err != nil {
		if errors.Is(err, reservationRepo.ErrSlotHeld) {
			return nil, NewError(CodeSlotUnavailable, "slot %s on %s is held by another checkout", req.StartTime, req.Date)
		}
		return nil, NewError(CodeInternal, "failed to reserve slot: %v", err)
	}

	p := &models.Payment{
		ID:             uuid.New().String(),
		ReservationID:  res.ID,
		VendorID:       req.VendorID,
		ServiceID:      req.ServiceID,
		AmountExpected: req.Amount,
		Currency:       svc.Currency,
		Method:         models.PaymentMethodOnline,
		Provider:       se.Gateway.Name(),
		Status:         models.PaymentStatusPending,
		IdempotencyKey: req.IdempotencyKey,
		Meta:           map[string]string{},
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := se.Payments.Create(ctx, p); err != nil {
		se.releaseReservation(ctx, res)
		if errors.Is(err, paymentRepo.ErrDuplicateKey) {
			return nil, NewError(CodeConflict, "idempotency key already used with a different payload")
		}
		return nil, NewError(CodeInternal, "failed to open payment: %v", err)
	}

	checkout, err := se.Gateway.CreateCheckout(ctx, payment.CheckoutRequest{
		AmountMinor: utils.MinorUnits(req.Amount, svc.Currency),
		Currency:    svc.Currency,
		Description: svc.Name,
		Reference:   p.ID,
		Metadata: map[string]string{
			"payment_id":     p.ID,
			"reservation_id": res.ID,
			"vendor_id":      req.VendorID,
		},
	})
	if err != nil {
		se.releaseReservation(ctx, res)
		if _, ferr := se.Payments.MarkFailed(ctx, p.ID, "checkout creation failed"); ferr != nil {
			logger.Error("failed to fail payment after gateway error",
				zap.String("paymentID", p.ID), zap.Error(ferr))
		}
		return nil, NewError(CodeGateway, "payment provider rejected checkout: %v", err)
	}

	if err := se.Payments.SetProviderRefs(ctx, p.ID, checkout.SessionID, checkout.PaymentIntentID); err != nil {
		// Without the correlation ids the success webhook can never find
		// this payment; the checkout must not be handed out.
		se.releaseReservation(ctx, res)
		if _, ferr := se.Payments.MarkFailed(ctx, p.ID, "provider references not persisted"); ferr != nil {
			logger.Error("failed to fail payment after ref persistence error",
				zap.String("paymentID", p.ID), zap.Error(ferr))
		}
		logger.Error("failed to persist provider refs; checkout session abandoned",
			zap.String("paymentID", p.ID),
			zap.String("sessionID", checkout.SessionID),
			zap.Error(err))
		return nil, NewError(CodeInternal, "failed to persist gateway references: %v", err)
	}
	if err := se.Payments.SetMeta(ctx, p.ID, "checkout_url", checkout.URL); err != nil {
		logger.Warn("failed to persist checkout url",
			zap.String("paymentID", p.ID), zap.Error(err))
	}

	logger.Info("deposit checkout opened",
		zap.String("paymentID", p.ID),
		zap.String("reservationID", res.ID),
		zap.Float64("amount", req.Amount))
	return &models.DepositSession{
		ReservationID: res.ID,
		PaymentID:     p.ID,
		CheckoutURL:   checkout.URL,
		ExpiresAt:     res.ExpiresAt,
	}, nil
}

// replayDeposit answers a repeated deposit request from the stored
// payment. A promoted payment reports the booking it became; a live
// pending checkout hands back the original handle; a checkout whose hold
// lapsed unpaid is closed so the client knows to start over.
func (se *DefaultBookingEngine) replayDeposit(ctx context.Context, prev *models.Payment) (*models.DepositSession, error) {
	if prev.Status == models.PaymentStatusPaid && prev.BookingID != "" {
		return &models.DepositSession{
			BookingID:   prev.BookingID,
			PaymentID:   prev.ID,
			CheckoutURL: prev.Meta["checkout_url"],
		}, nil
	}
	if prev.Status == models.PaymentStatusPending && prev.ReservationID != "" {
		res, err := se.Reservations.GetByID(ctx, prev.ReservationID)
		if err == nil {
			return &models.DepositSession{
				ReservationID: prev.ReservationID,
				PaymentID:     prev.ID,
				CheckoutURL:   prev.Meta["checkout_url"],
				ExpiresAt:     res.ExpiresAt,
			}, nil
		}
		if !errors.Is(err, reservationRepo.ErrNotFound) {
			return nil, NewError(CodeInternal, "reservation lookup failed: %v", err)
		}
		if _, ferr := se.Payments.MarkFailed(ctx, prev.ID, "reservation expired before payment"); ferr != nil {
			utils.GetLogger().Warn("failed to close lapsed checkout",
				zap.String("paymentID", prev.ID), zap.Error(ferr))
		}
		return nil, NewError(CodeConflict, "checkout for this key expired unpaid; retry with a new idempotency key")
	}
	return nil, NewError(CodeConflict, "idempotency key already used")
}

func (se *DefaultBookingEngine) releaseReservation(ctx context.Context, res *models.Reservation) {
	if err := se.Reservations.Delete(ctx, res); err != nil {
		utils.GetLogger().Warn("failed to release reservation; TTL will reclaim it",
			zap.String("reservationID", res.ID), zap.Error(err))
	}
}
