package routes

import (
	"time"

	"homeserve/handlers"
	"homeserve/middleware"
	"homeserve/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// RegisterCartRoutes registers the customer's cart endpoints.
func RegisterCartRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	api := r.Group("/api/cart")
	{
		api.Use(middleware.JWTAuthMiddleware(hb.JWTSecret, utils.RoleCustomer))
		api.GET("", hb.Cart.ListHandler)
		api.POST("/items", hb.Cart.AddItemHandler)
		api.DELETE("/items/:itemId", hb.Cart.RemoveItemHandler)
	}
}

// RegisterBookingRoutes registers reservation, cancellation and history endpoints.
func RegisterBookingRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	bookingGroup := r.Group("/api/bookings")
	{
		bookingGroup.Use(middleware.JWTAuthMiddleware(hb.JWTSecret, utils.RoleCustomer))
		bookingGroup.POST("/reserve", hb.Reservation.ReserveHandler)
		bookingGroup.GET("/:id/cancellation-quote", hb.Cancellation.QuoteHandler)
		bookingGroup.POST("/:id/cancel", hb.Cancellation.CancelHandler)
		bookingGroup.GET("/:id/events", hb.Events.ListBookingEventsHandler)
	}
}

// RegisterProviderRoutes registers the provider's staffing endpoints.
func RegisterProviderRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	api := r.Group("/api/provider")
	{
		api.Use(middleware.JWTAuthMiddleware(hb.JWTSecret, utils.RoleProvider))
		api.POST("/bookings/:id/assignment", hb.Tracking.AssignHandler)
	}
}

// RegisterStaffRoutes registers the field staff endpoints.
func RegisterStaffRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	api := r.Group("/api/staff")
	{
		api.Use(middleware.JWTAuthMiddleware(hb.JWTSecret, utils.RoleStaff))
		api.POST("/bookings/:id/assignment/respond", hb.Tracking.RespondHandler)
		api.PATCH("/bookings/:id/tracking", hb.Tracking.UpdateTrackingHandler)
	}
}

// RegisterDeviceRoutes lets any signed-in user register a push token.
func RegisterDeviceRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	api := r.Group("/api/devices")
	{
		api.Use(middleware.JWTAuthMiddleware(hb.JWTSecret))
		api.POST("", hb.Device.RegisterDeviceHandler)
		api.DELETE("/:token", hb.Device.RemoveDeviceHandler)
	}
}

// RegisterWebhookRoutes registers gateway callbacks; they authenticate by signature.
func RegisterWebhookRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	r.POST("/api/webhooks/stripe", hb.Webhook.StripeWebhookHandler)
}

// RegisterAdminRoutes sets up endpoints for operators.
func RegisterAdminRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	adminGroup := r.Group("/api/ops")
	{
		adminGroup.Use(middleware.JWTAuthMiddleware(hb.JWTSecret, utils.RoleAdmin))
		adminGroup.GET("/sweeps", hb.Ops.SweepStatusHandler)
		adminGroup.POST("/sweeps/:name/run", hb.Ops.RunSweepHandler)
		adminGroup.GET("/bookings/:id/events", hb.Events.ListBookingEventsHandler)
	}
}

// RegisterHealthRoute registers a health-check endpoint.
func RegisterHealthRoute(r *gin.Engine) {
	r.GET("/health", handlers.HealthHandler)
}

// RegisterRoutes centralizes registration of all endpoints and middleware.
func RegisterRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	RegisterHealthRoute(r)
	RegisterWebhookRoutes(r, hb)
	RegisterCartRoutes(r, hb)
	RegisterBookingRoutes(r, hb)
	RegisterProviderRoutes(r, hb)
	RegisterStaffRoutes(r, hb)
	RegisterDeviceRoutes(r, hb)
	RegisterAdminRoutes(r, hb)
}
