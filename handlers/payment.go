package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	stripe "github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/webhook"
	"go.uber.org/zap"

	"slotbook/config"
	"slotbook/middleware"
	"slotbook/models"
	"slotbook/services/booking"
	"slotbook/utils"
)

// InitiateDeposit handles POST /api/bookings/deposit.
func (h *HandlerBundle) InitiateDeposit(c *gin.Context) {
	var req models.InitiateDepositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input", "details": err.Error()})
		return
	}
	if key := c.GetHeader("Idempotency-Key"); key != "" {
		req.IdempotencyKey = key
	}

	caller := middleware.CallerFrom(c)
	session, err := h.Engine.InitiateDeposit(c.Request.Context(), caller, req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, session)
}

// StripeWebhook handles POST /api/webhooks/stripe. Signature failures are
// 400s; transient engine failures are 500s so Stripe retries; everything
// else acknowledges with 200 because retrying cannot help.
func (h *HandlerBundle) StripeWebhook(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, 1<<16))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable payload"})
		return
	}

	event, err := webhook.ConstructEvent(payload, c.GetHeader("Stripe-Signature"), config.AppConfig.StripeWebhookSecret)
	if err != nil {
		h.Logger.Warn("webhook signature verification failed", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid signature"})
		return
	}

	evt, ok := translateStripeEvent(event)
	if !ok {
		c.JSON(http.StatusOK, gin.H{"received": true})
		return
	}

	if err := h.Engine.FinalizePayment(c.Request.Context(), evt); err != nil {
		if booking.IsCode(err, booking.CodeNotFound) {
			// Events for payments this system never opened (or already
			// reconciled away) are acknowledged, not retried.
			h.Logger.Warn("webhook for unknown payment",
				zap.String("eventID", evt.ProviderEventID), zap.String("session", evt.SessionID))
			c.JSON(http.StatusOK, gin.H{"received": true})
			return
		}
		h.Logger.Error("webhook finalization failed",
			zap.String("eventID", evt.ProviderEventID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "finalization failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"received": true})
}

// translateStripeEvent strips provider framing down to the engine's
// gateway event. Unhandled event types report ok=false.
func translateStripeEvent(event stripe.Event) (models.GatewayEvent, bool) {
	evt := models.GatewayEvent{ProviderEventID: event.ID}

	switch event.Type {
	case "checkout.session.completed", "checkout.session.expired":
		var s stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &s); err != nil {
			utils.GetLogger().Warn("malformed checkout session payload", zap.String("eventID", event.ID), zap.Error(err))
			return evt, false
		}
		evt.SessionID = s.ID
		if s.PaymentIntent != nil {
			evt.PaymentIntentID = s.PaymentIntent.ID
		}
		evt.Currency = string(s.Currency)
		if event.Type == "checkout.session.expired" {
			evt.Type = models.GatewayEventExpired
		} else {
			evt.Type = models.GatewayEventSucceeded
			evt.AmountPaid = utils.FromMinorUnits(s.AmountTotal, string(s.Currency))
		}
		return evt, true

	case "payment_intent.payment_failed":
		var pi stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
			utils.GetLogger().Warn("malformed payment intent payload", zap.String("eventID", event.ID), zap.Error(err))
			return evt, false
		}
		evt.Type = models.GatewayEventFailed
		evt.PaymentIntentID = pi.ID
		if pi.LastPaymentError != nil {
			evt.Reason = pi.LastPaymentError.Msg
		}
		return evt, true
	}

	return evt, false
}
