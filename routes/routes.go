package routes

import (
	"time"

	"enaya/handlers"
	"enaya/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// RegisterHealthRoute registers a health-check endpoint.
func RegisterHealthRoute(r *gin.Engine, hb *handlers.HandlerBundle) {
	r.GET("/health", hb.HealthHandler)
}

// RegisterKioskRoutes sets up the self check-in endpoints.
func RegisterKioskRoutes(r *gin.Engine, hb *handlers.HandlerBundle, kioskSecret string) {
	api := r.Group("/api")
	{
		api.Use(middleware.KioskAuthMiddleware(kioskSecret))
		api.GET("/guests", hb.SearchGuestsHandler)
		api.GET("/appointments", hb.ListAppointmentsHandler)
		api.POST("/checkin", hb.CheckInHandler)
		api.POST("/pay", hb.PayHandler)
	}
}

// RegisterRoutes centralizes registration of all endpoints and middleware.
func RegisterRoutes(r *gin.Engine, hb *handlers.HandlerBundle, kioskSecret string) {
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Authorization", "Content-Type", middleware.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", middleware.RequestIDHeader},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	RegisterHealthRoute(r, hb)
	RegisterKioskRoutes(r, hb, kioskSecret)
}
