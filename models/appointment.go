package models

import (
	"encoding/json"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
)

// AppointmentStatus is the appointment lifecycle state. It only ever moves forward.
type AppointmentStatus string

const (
	StatusScheduled AppointmentStatus = "scheduled"
	StatusCheckedIn AppointmentStatus = "checked_in"
	StatusCompleted AppointmentStatus = "completed"
)

// NormalizeStatus folds the spellings seen across sources ("checked_in",
// "CheckedIn", "checked-in") onto the canonical statuses. Unknown values are
// returned lowercased and unchanged otherwise.
func NormalizeStatus(s string) AppointmentStatus {
	folded := strings.ToLower(strings.TrimSpace(s))
	compact := strings.NewReplacer("_", "", "-", "", " ", "").Replace(folded)
	switch compact {
	case "scheduled", "booked", "open", "new":
		return StatusScheduled
	case "checkedin", "arrived":
		return StatusCheckedIn
	case "completed", "closed", "done":
		return StatusCompleted
	}
	return AppointmentStatus(folded)
}

func (s AppointmentStatus) rank() int {
	switch NormalizeStatus(string(s)) {
	case StatusScheduled:
		return 1
	case StatusCheckedIn:
		return 2
	case StatusCompleted:
		return 3
	}
	return 0
}

// CanTransitionTo reports whether moving from s to next goes strictly forward.
func (s AppointmentStatus) CanTransitionTo(next AppointmentStatus) bool {
	from, to := s.rank(), next.rank()
	return from > 0 && to > from
}

// IsCheckedIn reports whether s is the checked-in status under any spelling.
func (s AppointmentStatus) IsCheckedIn() bool {
	return NormalizeStatus(string(s)) == StatusCheckedIn
}

// ServiceItem is one service line of an appointment.
type ServiceItem struct {
	Name  string   `bson:"name" json:"name"`
	Price *float64 `bson:"price,omitempty" json:"price,omitempty"`
}

// ServiceItems decodes both line items and the legacy flat list of service names.
type ServiceItems []ServiceItem

// Names returns the service names in order.
func (s ServiceItems) Names() []string {
	names := make([]string, 0, len(s))
	for _, item := range s {
		names = append(names, item.Name)
	}
	return names
}

func (s *ServiceItems) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("services: %w", err)
	}
	items := make(ServiceItems, 0, len(raw))
	for _, r := range raw {
		var name string
		if err := json.Unmarshal(r, &name); err == nil {
			items = append(items, ServiceItem{Name: name})
			continue
		}
		var item ServiceItem
		if err := json.Unmarshal(r, &item); err != nil {
			return fmt.Errorf("services: %w", err)
		}
		items = append(items, item)
	}
	*s = items
	return nil
}

func (s *ServiceItems) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	if t == bsontype.Null || t == bsontype.Undefined {
		*s = nil
		return nil
	}
	raw := bson.RawValue{Type: t, Value: data}
	arr, ok := raw.ArrayOK()
	if !ok {
		return fmt.Errorf("services: expected array, got %s", t)
	}
	values, err := arr.Values()
	if err != nil {
		return fmt.Errorf("services: %w", err)
	}
	items := make(ServiceItems, 0, len(values))
	for _, v := range values {
		if name, ok := v.StringValueOK(); ok {
			items = append(items, ServiceItem{Name: name})
			continue
		}
		var item ServiceItem
		if err := v.Unmarshal(&item); err != nil {
			return fmt.Errorf("services: %w", err)
		}
		items = append(items, item)
	}
	*s = items
	return nil
}

// Appointment is a scheduled service visit.
type Appointment struct {
	ID       string            `bson:"id" json:"id"`
	UID      string            `bson:"uid,omitempty" json:"uid,omitempty"`
	Time     string            `bson:"time" json:"time"`
	Date     string            `bson:"date,omitempty" json:"date,omitempty"`
	Services ServiceItems      `bson:"services" json:"services"`
	Staff    string            `bson:"staff" json:"staff"`
	Status   AppointmentStatus `bson:"status" json:"status"`
	Total    *float64          `bson:"total,omitempty" json:"total,omitempty"`
	Currency string            `bson:"currency,omitempty" json:"currency,omitempty"`
}

// DedupeKey identifies the logical appointment for display.
func (a Appointment) DedupeKey() string {
	if a.UID != "" {
		return a.UID
	}
	return a.ID + "|" + a.Time + "|" + a.Staff
}

// Amount is the explicit total, or the sum of priced service lines.
func (a Appointment) Amount() float64 {
	if a.Total != nil {
		return *a.Total
	}
	var sum float64
	for _, s := range a.Services {
		if s.Price != nil {
			sum += *s.Price
		}
	}
	return sum
}

// DedupeAppointments keeps the first appointment for every DedupeKey, preserving order.
func DedupeAppointments(in []Appointment) []Appointment {
	seen := make(map[string]struct{}, len(in))
	out := make([]Appointment, 0, len(in))
	for _, a := range in {
		k := a.DedupeKey()
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, a)
	}
	return out
}
