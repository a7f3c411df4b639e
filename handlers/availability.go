package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	availabilityRepo "slotbook/database/repository/availability"
	"slotbook/middleware"
	"slotbook/models"
)

// PutAvailability handles PUT /api/vendors/:vendorId/availability. Only
// the owning vendor may write their schedule.
func (h *HandlerBundle) PutAvailability(c *gin.Context) {
	vendorID := c.Param("vendorId")
	caller := middleware.CallerFrom(c)
	if caller.Role != models.RoleVendor || caller.ID != vendorID {
		c.JSON(http.StatusForbidden, gin.H{"error": "only the owning vendor may set availability"})
		return
	}

	var wa models.WeeklyAvailability
	if err := c.ShouldBindJSON(&wa); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input", "details": err.Error()})
		return
	}
	wa.VendorID = vendorID
	if err := wa.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.Availability.Upsert(c.Request.Context(), &wa); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, wa)
}

// GetAvailability handles GET /api/vendors/:vendorId/availability.
func (h *HandlerBundle) GetAvailability(c *gin.Context) {
	wa, err := h.Availability.Get(c.Request.Context(), c.Param("vendorId"))
	if errors.Is(err, availabilityRepo.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "vendor has no availability configured"})
		return
	}
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, wa)
}

// GetSlots handles GET /api/vendors/:vendorId/slots?date=YYYY-MM-DD with
// either serviceId or requiredMinutes selecting the slot size.
func (h *HandlerBundle) GetSlots(c *gin.Context) {
	vendorID := c.Param("vendorId")
	date := c.Query("date")
	if date == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "date query parameter is required"})
		return
	}

	var (
		slots []string
		err   error
	)
	if serviceID := c.Query("serviceId"); serviceID != "" {
		slots, err = h.Engine.SlotsForService(c.Request.Context(), vendorID, serviceID, date)
	} else {
		minutes, convErr := strconv.Atoi(c.Query("requiredMinutes"))
		if convErr != nil || minutes <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "serviceId or a positive requiredMinutes is required"})
			return
		}
		slots, err = h.Engine.GenerateSlots(c.Request.Context(), vendorID, date, minutes)
	}
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"vendorId": vendorID,
		"date":     date,
		"slots":    slots,
	})
}
