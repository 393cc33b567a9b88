package directory

import (
	"fmt"
	"regexp"
	"strings"

	"enaya/models"
)

// fullLocalMobile is a complete local mobile number: 10 digits starting with 05.
var fullLocalMobile = regexp.MustCompile(`^05\d{8}$`)

// Policy decides which queries reach the store and which guests they match.
type Policy interface {
	Name() string
	// Accepts reports whether q warrants a store lookup at all.
	Accepts(q models.GuestQuery) bool
	// Match reports whether g is a result for q.
	Match(q models.GuestQuery, g models.Guest) bool
}

// StrictPhonePolicy only looks up complete local mobile numbers and matches
// them by exact digit equality. Name queries match by substring.
type StrictPhonePolicy struct{}

func (StrictPhonePolicy) Name() string { return "strict" }

func (StrictPhonePolicy) Accepts(q models.GuestQuery) bool {
	if q.Empty() {
		return false
	}
	if q.ByPhone {
		return fullLocalMobile.MatchString(q.Raw)
	}
	return true
}

func (StrictPhonePolicy) Match(q models.GuestQuery, g models.Guest) bool {
	if q.ByPhone {
		return g.PhoneDigits() == q.Digits
	}
	return matchName(q, g)
}

// PartialPhonePolicy matches any guest whose phone digits contain the query digits.
type PartialPhonePolicy struct{}

func (PartialPhonePolicy) Name() string { return "partial" }

func (PartialPhonePolicy) Accepts(q models.GuestQuery) bool {
	return !q.Empty()
}

func (PartialPhonePolicy) Match(q models.GuestQuery, g models.Guest) bool {
	if q.ByPhone {
		digits := g.PhoneDigits()
		return digits != "" && strings.Contains(digits, q.Digits)
	}
	return matchName(q, g)
}

func matchName(q models.GuestQuery, g models.Guest) bool {
	return strings.Contains(strings.ToLower(g.Name), strings.ToLower(q.Raw))
}

// PolicyByName resolves the SEARCH_POLICY setting.
func PolicyByName(name string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "strict":
		return StrictPhonePolicy{}, nil
	case "partial":
		return PartialPhonePolicy{}, nil
	}
	return nil, fmt.Errorf("unknown search policy %q", name)
}
