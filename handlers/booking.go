package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"slotbook/middleware"
	"slotbook/models"
)

// CreateBooking handles POST /api/bookings.
func (h *HandlerBundle) CreateBooking(c *gin.Context) {
	var req models.CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input", "details": err.Error()})
		return
	}

	caller := middleware.CallerFrom(c)
	b, err := h.Engine.CreateBooking(c.Request.Context(), caller, req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, b)
}

// VerifyBooking handles POST /api/bookings/verify. The token arrives
// out-of-band (email or SMS link) and is single use.
func (h *HandlerBundle) VerifyBooking(c *gin.Context) {
	var body struct {
		Token string `json:"token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input", "details": err.Error()})
		return
	}

	b, err := h.Engine.VerifyBooking(c.Request.Context(), body.Token)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

// GetBooking handles GET /api/bookings/:id.
func (h *HandlerBundle) GetBooking(c *gin.Context) {
	caller := middleware.CallerFrom(c)
	b, err := h.Engine.GetBooking(c.Request.Context(), caller, c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

// RescheduleBooking handles PUT /api/bookings/:id/schedule.
func (h *HandlerBundle) RescheduleBooking(c *gin.Context) {
	var req models.RescheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input", "details": err.Error()})
		return
	}
	req.BookingID = c.Param("id")

	caller := middleware.CallerFrom(c)
	b, err := h.Engine.Reschedule(c.Request.Context(), caller, req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

// CancelBooking handles POST /api/bookings/:id/cancel.
func (h *HandlerBundle) CancelBooking(c *gin.Context) {
	var req models.CancelRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input", "details": err.Error()})
		return
	}
	req.BookingID = c.Param("id")

	caller := middleware.CallerFrom(c)
	b, err := h.Engine.Cancel(c.Request.Context(), caller, req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

// CompleteBooking handles POST /api/bookings/:id/complete.
func (h *HandlerBundle) CompleteBooking(c *gin.Context) {
	caller := middleware.CallerFrom(c)
	if err := h.Engine.Complete(c.Request.Context(), caller, c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": models.BookingStatusCompleted})
}

// RecordPayment handles POST /api/bookings/:id/payments.
func (h *HandlerBundle) RecordPayment(c *gin.Context) {
	var req models.RecordPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input", "details": err.Error()})
		return
	}
	req.BookingID = c.Param("id")

	caller := middleware.CallerFrom(c)
	p, err := h.Engine.RecordPayment(c.Request.Context(), caller, req)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.Logger.Info("payment recorded via API",
		zap.String("bookingID", req.BookingID), zap.String("paymentID", p.ID))
	c.JSON(http.StatusCreated, p)
}
