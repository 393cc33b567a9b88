package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"enaya/apperrors"
	"enaya/models"
	"enaya/services/checkin"
	"enaya/services/payment"
	"enaya/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// GuestSearcher resolves search input into guests.
type GuestSearcher interface {
	Search(ctx context.Context, raw string) ([]models.Guest, error)
}

// AppointmentLister lists a guest's upcoming appointments.
type AppointmentLister interface {
	ListUpcoming(ctx context.Context, guestID string) ([]models.Appointment, error)
}

// CheckInGateway marks appointments checked in.
type CheckInGateway interface {
	CheckIn(ctx context.Context, req checkin.Request) error
}

// KioskHandler serves the self check-in endpoints.
type KioskHandler struct {
	Directory    GuestSearcher
	Appointments AppointmentLister
	Gateway      CheckInGateway
	Payments     payment.Provider
	Currency     string
}

func NewKioskHandler(dir GuestSearcher, appts AppointmentLister, gw CheckInGateway, pay payment.Provider, currency string) *KioskHandler {
	return &KioskHandler{Directory: dir, Appointments: appts, Gateway: gw, Payments: pay, Currency: currency}
}

// SearchGuests handles GET /api/guests?query=.
func (h *KioskHandler) SearchGuests(c *gin.Context) {
	logger := getLogger(c)
	query := c.Query("query")

	guests, err := h.Directory.Search(c.Request.Context(), query)
	if err != nil {
		logger.Error("Guest search failed", zap.Error(err))
		utils.JSONError(c, utils.StatusFor(err), "Guest search unavailable", apperrors.Reason(err, ""))
		return
	}
	c.JSON(http.StatusOK, gin.H{"guests": guests})
}

// ListAppointments handles GET /api/appointments?guestId=.
func (h *KioskHandler) ListAppointments(c *gin.Context) {
	logger := getLogger(c)
	guestID := c.Query("guestId")

	appts, err := h.Appointments.ListUpcoming(c.Request.Context(), guestID)
	if err != nil {
		if apperrors.IsValidation(err) {
			utils.JSONError(c, http.StatusBadRequest, "guestId required", "")
			return
		}
		logger.Error("Appointment lookup failed", zap.String("guestId", guestID), zap.Error(err))
		utils.JSONError(c, utils.StatusFor(err), "Appointments unavailable", apperrors.Reason(err, ""))
		return
	}
	c.JSON(http.StatusOK, gin.H{"appointments": appts})
}

type checkInInput struct {
	AppointmentID string `json:"appointmentId"`
	CustomerID    string `json:"customerId"`
}

// CheckIn handles POST /api/checkin.
func (h *KioskHandler) CheckIn(c *gin.Context) {
	logger := getLogger(c)

	var input checkInInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}

	err := h.Gateway.CheckIn(c.Request.Context(), checkin.Request{
		AppointmentID: input.AppointmentID,
		CustomerID:    input.CustomerID,
	})
	if err != nil {
		switch {
		case apperrors.IsValidation(err):
			utils.JSONError(c, http.StatusBadRequest, apperrors.Reason(err, "appointmentId required"), "")
		default:
			logger.Error("Check-in failed", zap.String("appointmentId", input.AppointmentID), zap.Error(err))
			utils.JSONError(c, utils.StatusFor(err), apperrors.Reason(err, "Check-in failed"), "")
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// Pay handles POST /api/pay. The body is optional.
func (h *KioskHandler) Pay(c *gin.Context) {
	logger := getLogger(c)

	var req models.PaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		utils.JSONError(c, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}
	if strings.TrimSpace(req.Currency) == "" {
		req.Currency = h.Currency
	}

	res, err := h.Payments.AttemptPayment(c.Request.Context(), req)
	if err != nil {
		logger.Error("Payment attempt failed", zap.String("appointmentId", req.AppointmentID), zap.Error(err))
		utils.JSONError(c, http.StatusBadGateway, "Payment unavailable", "")
		return
	}
	c.JSON(http.StatusOK, res)
}
