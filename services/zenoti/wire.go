package zenoti

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"enaya/models"
)

type guestSearchResponse struct {
	Guests []wireGuest `json:"guests"`
}

type wirePhone struct {
	CountryCode json.Number `json:"country_code"`
	Number      string      `json:"number"`
}

type wireGuest struct {
	ID           string `json:"id"`
	PersonalInfo struct {
		FirstName   string    `json:"first_name"`
		LastName    string    `json:"last_name"`
		Email       string    `json:"email"`
		MobilePhone wirePhone `json:"mobile_phone"`
	} `json:"personal_info"`
	Membership string `json:"membership_name"`
	Notes      string `json:"notes"`
}

func (g wireGuest) toModel() models.Guest {
	name := strings.TrimSpace(g.PersonalInfo.FirstName + " " + g.PersonalInfo.LastName)
	return models.Guest{
		ID:         g.ID,
		Name:       name,
		Phone:      g.PersonalInfo.MobilePhone.Number,
		Email:      g.PersonalInfo.Email,
		Membership: membershipTier(g.Membership),
		Notes:      g.Notes,
	}
}

// membershipTier maps free-form plan names onto the three known tiers.
func membershipTier(plan string) models.Membership {
	p := strings.ToLower(plan)
	switch {
	case p == "":
		return ""
	case strings.Contains(p, "gold"):
		return models.MembershipGold
	case strings.Contains(p, "silver"):
		return models.MembershipSilver
	default:
		return models.MembershipBasic
	}
}

type appointmentsResponse struct {
	Appointments []wireAppointment `json:"appointments"`
}

type wireAppointment struct {
	AppointmentID string          `json:"appointment_id"`
	StartTime     string          `json:"start_time"`
	Status        json.RawMessage `json:"status"`
	Service       struct {
		Name  string `json:"name"`
		Price struct {
			Final    *float64 `json:"final"`
			Currency string   `json:"currency"`
		} `json:"price"`
	} `json:"service"`
	Therapist struct {
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
	} `json:"therapist"`
}

func (a wireAppointment) toModel() models.Appointment {
	appt := models.Appointment{
		ID:       a.AppointmentID,
		Staff:    strings.TrimSpace(a.Therapist.FirstName + " " + a.Therapist.LastName),
		Status:   platformStatus(a.Status),
		Currency: a.Service.Price.Currency,
	}
	if a.Service.Name != "" {
		appt.Services = models.ServiceItems{{Name: a.Service.Name, Price: a.Service.Price.Final}}
	}
	appt.Date, appt.Time = splitStart(a.StartTime)
	return appt
}

// splitStart turns "2024-05-01T15:00:00" into ("2024-05-01", "15:00").
func splitStart(start string) (date, clock string) {
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, start); err == nil {
			return t.Format("2006-01-02"), t.Format("15:04")
		}
	}
	return "", start
}

// platformStatus accepts the numeric codes the platform uses as well as names.
// 0 booked, 1 closed, 2 checked in, 4 confirmed.
func platformStatus(raw json.RawMessage) models.AppointmentStatus {
	s := strings.Trim(strings.TrimSpace(string(raw)), `"`)
	if n, err := strconv.Atoi(s); err == nil {
		switch n {
		case 0, 4:
			return models.StatusScheduled
		case 1:
			return models.StatusCompleted
		case 2:
			return models.StatusCheckedIn
		}
		return models.AppointmentStatus(s)
	}
	return models.NormalizeStatus(s)
}
