package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	serviceRepo "slotbook/database/repository/service"
	"slotbook/middleware"
	"slotbook/models"
)

// UpsertService handles PUT /api/vendors/:vendorId/services. Vendors
// manage their own catalog.
func (h *HandlerBundle) UpsertService(c *gin.Context) {
	vendorID := c.Param("vendorId")
	caller := middleware.CallerFrom(c)
	if caller.Role != models.RoleVendor || caller.ID != vendorID {
		c.JSON(http.StatusForbidden, gin.H{"error": "only the owning vendor may manage services"})
		return
	}

	var svc models.Service
	if err := c.ShouldBindJSON(&svc); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input", "details": err.Error()})
		return
	}
	if svc.Name == "" || svc.Price <= 0 || svc.DurationMinutes <= 0 || svc.Currency == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name, positive price, currency and durationMinutes are required"})
		return
	}
	svc.VendorID = vendorID
	if svc.ID == "" {
		svc.ID = uuid.New().String()
		svc.CreatedAt = time.Now().UTC()
	}
	svc.UpdatedAt = time.Now().UTC()

	if err := h.Services.Upsert(c.Request.Context(), &svc); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, svc)
}

// ListVendorServices handles GET /api/vendors/:vendorId/services.
func (h *HandlerBundle) ListVendorServices(c *gin.Context) {
	services, err := h.Services.ListByVendor(c.Request.Context(), c.Param("vendorId"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, services)
}

// GetService handles GET /api/services/:id.
func (h *HandlerBundle) GetService(c *gin.Context) {
	svc, err := h.Services.GetByID(c.Request.Context(), c.Param("id"))
	if errors.Is(err, serviceRepo.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "service not found"})
		return
	}
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, svc)
}
