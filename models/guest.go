package models

import "strings"

// Membership tier of a guest.
type Membership string

const (
	MembershipGold   Membership = "Gold"
	MembershipSilver Membership = "Silver"
	MembershipBasic  Membership = "Basic"
)

// Valid reports whether m is empty or one of the known tiers.
func (m Membership) Valid() bool {
	switch m {
	case "", MembershipGold, MembershipSilver, MembershipBasic:
		return true
	}
	return false
}

// Guest is a salon customer as held by the system of record.
type Guest struct {
	ID         string        `bson:"id" json:"id"`
	Name       string        `bson:"name" json:"name"`
	Phone      string        `bson:"phone,omitempty" json:"phone"`
	Email      string        `bson:"email,omitempty" json:"email,omitempty"`
	Membership Membership    `bson:"membership,omitempty" json:"membership,omitempty"`
	Notes      string        `bson:"notes,omitempty" json:"notes,omitempty"`
	Upcoming   []Appointment `bson:"upcoming,omitempty" json:"upcoming,omitempty"`
}

// PhoneDigits returns only the digits of the stored phone number.
func (g Guest) PhoneDigits() string {
	return Digits(g.Phone)
}

// Digits strips every non-digit rune from s.
func Digits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// HasDigit reports whether s contains at least one decimal digit.
func HasDigit(s string) bool {
	return strings.ContainsAny(s, "0123456789")
}

// MaskPhone hides every digit but the last three. Other characters, including
// an existing mask, are kept as they are.
func MaskPhone(phone string) string {
	total := len(Digits(phone))
	if total == 0 {
		return phone
	}
	var b strings.Builder
	seen := 0
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			seen++
			if seen <= total-3 {
				b.WriteRune('•')
				continue
			}
		}
		b.WriteRune(r)
	}
	return b.String()
}

// GuestQuery is a parsed search input.
type GuestQuery struct {
	Raw     string
	Digits  string
	ByPhone bool
}

// ParseGuestQuery trims raw and decides its intent: any digit makes it a phone lookup.
func ParseGuestQuery(raw string) GuestQuery {
	trimmed := strings.TrimSpace(raw)
	return GuestQuery{
		Raw:     trimmed,
		Digits:  Digits(trimmed),
		ByPhone: HasDigit(trimmed),
	}
}

// Empty reports whether q has nothing to search for.
func (q GuestQuery) Empty() bool {
	return q.Raw == ""
}
