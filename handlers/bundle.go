package handlers

import (
	"github.com/gin-gonic/gin"
)

// HandlerBundle groups all endpoint handlers into one struct.
type HandlerBundle struct {
	// Kiosk endpoints
	SearchGuestsHandler     gin.HandlerFunc
	ListAppointmentsHandler gin.HandlerFunc
	CheckInHandler          gin.HandlerFunc
	PayHandler              gin.HandlerFunc

	// Health
	HealthHandler gin.HandlerFunc
}

// NewHandlerBundle assembles the bundle from the kiosk handler.
func NewHandlerBundle(kh *KioskHandler) *HandlerBundle {
	return &HandlerBundle{
		SearchGuestsHandler:     kh.SearchGuests,
		ListAppointmentsHandler: kh.ListAppointments,
		CheckInHandler:          kh.CheckIn,
		PayHandler:              kh.Pay,
		HealthHandler:           HealthHandler,
	}
}
