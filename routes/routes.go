package routes

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"slotbook/handlers"
	"slotbook/middleware"
	"slotbook/utils"
)

// SetupRouter builds the gin engine with all routes and middleware.
func SetupRouter(hb *handlers.HandlerBundle) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(utils.ErrorHandler())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Idempotency-Key", "X-Caller-ID", "X-Caller-Role", "X-Caller-Verified"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	r.Use(middleware.RateLimitMiddleware())
	r.Use(middleware.CallerMiddleware())

	RegisterHealthRoute(r)
	RegisterVendorRoutes(r, hb)
	RegisterBookingRoutes(r, hb)
	RegisterWebhookRoutes(r, hb)
	return r
}

// RegisterHealthRoute registers a health-check endpoint.
func RegisterHealthRoute(r *gin.Engine) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}

// RegisterVendorRoutes registers availability and catalog endpoints.
func RegisterVendorRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	api := r.Group("/api/vendors")
	{
		// Public read endpoints: clients browse slots and catalogs.
		api.GET("/:vendorId/availability", hb.GetAvailability)
		api.GET("/:vendorId/slots", hb.GetSlots)
		api.GET("/:vendorId/services", hb.ListVendorServices)

		// Vendor-owned writes.
		protected := api.Group("")
		protected.Use(middleware.RequireCaller())
		protected.PUT("/:vendorId/availability", hb.PutAvailability)
		protected.PUT("/:vendorId/services", hb.UpsertService)
	}
	r.GET("/api/services/:id", hb.GetService)
}

// RegisterBookingRoutes registers the booking lifecycle endpoints.
func RegisterBookingRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	api := r.Group("/api/bookings")
	{
		// Verification links arrive without a session.
		api.POST("/verify", hb.VerifyBooking)

		protected := api.Group("")
		protected.Use(middleware.RequireCaller())
		protected.POST("", hb.CreateBooking)
		protected.POST("/deposit", hb.InitiateDeposit)
		protected.GET("/:id", hb.GetBooking)
		protected.PUT("/:id/schedule", hb.RescheduleBooking)
		protected.POST("/:id/cancel", hb.CancelBooking)
		protected.POST("/:id/complete", hb.CompleteBooking)
		protected.POST("/:id/payments", hb.RecordPayment)
	}
}

// RegisterWebhookRoutes registers the payment provider callbacks. These
// authenticate by signature, not by caller identity.
func RegisterWebhookRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	r.POST("/api/webhooks/stripe", hb.StripeWebhook)
}
