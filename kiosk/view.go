package kiosk

import (
	"strings"

	"enaya/apperrors"
	"enaya/models"
)

// State is a step of the check-in flow.
type State int

const (
	StateIdle State = iota
	StateSearching
	StateResultsShown
	StateGuestSelected
	StatePaymentPending
	StateCheckingIn
	StateCheckedIn
	StateError
)

var stateNames = map[State]string{
	StateIdle:           "idle",
	StateSearching:      "searching",
	StateResultsShown:   "results",
	StateGuestSelected:  "guest_selected",
	StatePaymentPending: "payment_pending",
	StateCheckingIn:     "checking_in",
	StateCheckedIn:      "checked_in",
	StateError:          "error",
}

func (s State) String() string {
	if n, ok := stateNames[s]; ok {
		return n
	}
	return "unknown"
}

// NoticeLevel tells the screen how to present a notice.
type NoticeLevel string

const (
	NoticeInfo    NoticeLevel = "info"
	NoticeSuccess NoticeLevel = "success"
	NoticeError   NoticeLevel = "error"
)

// Notice is a transient toast for the guest.
type Notice struct {
	Level   NoticeLevel
	Kind    apperrors.Kind
	Message string
}

// View is an immutable snapshot of what the screen shows. Version grows
// with every change; a view older than the last one rendered is dropped.
type View struct {
	Version uint64
	State   State
	Query   string
	Results []models.Guest

	// Selected is nil until a guest is picked from the results.
	Selected         *models.Guest
	AlreadyCheckedIn bool
	CanCheckIn       bool

	// OfferWalkIn is set when a search came back empty.
	OfferWalkIn bool
}

// MaskedPhone is the selected guest's phone as shown on screen.
func (v View) MaskedPhone() string {
	if v.Selected == nil {
		return ""
	}
	return models.MaskPhone(v.Selected.Phone)
}

// anyCheckedIn reports whether any of the appointments is already checked in.
func anyCheckedIn(appts []models.Appointment) bool {
	for _, a := range appts {
		if a.Status.IsCheckedIn() {
			return true
		}
	}
	return false
}

// checkInTarget picks the first appointment that has an id and may still move to checked_in.
func checkInTarget(appts []models.Appointment) (models.Appointment, bool) {
	for _, a := range appts {
		if strings.TrimSpace(a.ID) == "" {
			continue
		}
		if a.Status.CanTransitionTo(models.StatusCheckedIn) {
			return a, true
		}
	}
	return models.Appointment{}, false
}

// markCheckedIn moves every appointment that may go forward to checked_in.
func markCheckedIn(appts []models.Appointment) {
	for i := range appts {
		if appts[i].Status.CanTransitionTo(models.StatusCheckedIn) {
			appts[i].Status = models.StatusCheckedIn
		}
	}
}

func copyGuest(g models.Guest) models.Guest {
	g.Upcoming = append([]models.Appointment(nil), g.Upcoming...)
	return g
}

// Segments splits text around the first case-insensitive occurrence of query.
type Segments struct {
	Before, Match, After string
}

// Highlight locates query in text for emphasis. ok is false when there is
// nothing to emphasise, in which case Before holds the whole text.
func Highlight(text, query string) (seg Segments, ok bool) {
	if query == "" {
		return Segments{Before: text}, false
	}
	lt, lq := strings.ToLower(text), strings.ToLower(query)
	// Offsets are only valid when folding kept byte lengths.
	if len(lt) != len(text) || len(lq) != len(query) {
		return Segments{Before: text}, false
	}
	idx := strings.Index(lt, lq)
	if idx < 0 {
		return Segments{Before: text}, false
	}
	end := idx + len(query)
	return Segments{Before: text[:idx], Match: text[idx:end], After: text[end:]}, true
}
