package models

import "time"

// ArrivalPayload tells the front desk a guest has checked in.
type ArrivalPayload struct {
	AppointmentID string    `json:"appointmentId"`
	CustomerID    string    `json:"customerId,omitempty"`
	CheckedInAt   time.Time `json:"checkedInAt"`
}
