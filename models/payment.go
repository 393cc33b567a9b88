package models

import "time"

// Payment statuses reported by a payment provider.
const (
	PaymentSucceeded = "succeeded"
	PaymentFailed    = "failed"
)

// PaymentRequest asks for the amount due on one appointment.
type PaymentRequest struct {
	AppointmentID string  `json:"appointmentId,omitempty"`
	Amount        float64 `json:"amount"`
	Currency      string  `json:"currency,omitempty"`
}

// PaymentResult is the outcome of one payment attempt.
type PaymentResult struct {
	OK        bool      `json:"ok"`
	PaymentID string    `json:"paymentId,omitempty"`
	Status    string    `json:"status"`
	Reason    string    `json:"reason,omitempty"`
	PaidAt    time.Time `json:"-"`
}
