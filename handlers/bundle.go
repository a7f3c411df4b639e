package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	availabilityRepo "slotbook/database/repository/availability"
	serviceRepo "slotbook/database/repository/service"
	"slotbook/services/booking"
)

// HandlerBundle groups the HTTP handlers with their dependencies so the
// routes package wires everything in one place.
type HandlerBundle struct {
	Engine       booking.BookingEngine
	Services     serviceRepo.ServiceRepository
	Availability availabilityRepo.AvailabilityRepository
	Logger       *zap.Logger
}

func NewHandlerBundle(engine booking.BookingEngine, services serviceRepo.ServiceRepository, availability availabilityRepo.AvailabilityRepository, logger *zap.Logger) *HandlerBundle {
	return &HandlerBundle{
		Engine:       engine,
		Services:     services,
		Availability: availability,
		Logger:       logger,
	}
}

// statusFor maps engine error codes onto HTTP statuses.
func statusFor(code string) int {
	switch code {
	case booking.CodeValidation, booking.CodeBelowMinimumDeposit,
		booking.CodeDepositRequired, booking.CodeDepositNotRequired,
		booking.CodeOfflineNotAllowed:
		return http.StatusBadRequest
	case booking.CodeUnauthorized:
		return http.StatusForbidden
	case booking.CodeNotFound:
		return http.StatusNotFound
	case booking.CodeNotAvailable, booking.CodeVendorConfigMissing:
		return http.StatusUnprocessableEntity
	case booking.CodeSlotUnavailable, booking.CodeConflict:
		return http.StatusConflict
	case booking.CodeGateway:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// fail renders an engine error as JSON. Unknown errors become opaque 500s.
func (h *HandlerBundle) fail(c *gin.Context, err error) {
	code := booking.ErrCode(err)
	if code == "" || code == booking.CodeInternal {
		h.Logger.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(statusFor(code), gin.H{"error": err.Error(), "code": code})
}
