package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rivo/uniseg"
)

// SubscriberStatus enumerates the states a subscriber can be in.
type SubscriberStatus string

const (
	StatusPendingConfirmation SubscriberStatus = "pending_confirmation"
	StatusConfirmed           SubscriberStatus = "confirmed"
)

// Validation failures for subscriber input. Callers branch on these with
// errors.Is rather than matching message text.
var (
	ErrInvalidEmail       = errors.New("email address is not valid")
	ErrEmptyName          = errors.New("name cannot be empty")
	ErrNameTooLong        = errors.New("name must be at most 256 characters")
	ErrForbiddenCharacter = errors.New(`name may not contain any of: / ( ) " < > \ { }`)
)

// SubscriberEmail is a syntactically valid email address.
// The zero value is invalid; construct via ParseEmail.
type SubscriberEmail struct {
	value string
}

// ParseEmail validates raw input as an email address.
// The check is deliberately shape-based: one "@", a non-empty local part of
// at most 64 bytes, and a dotted domain. Deliverability is the email
// provider's problem, not ours.
func ParseEmail(raw string) (SubscriberEmail, error) {
	if len(raw) < 3 || len(raw) > 254 {
		return SubscriberEmail{}, ErrInvalidEmail
	}

	parts := strings.Split(raw, "@")
	if len(parts) != 2 {
		return SubscriberEmail{}, ErrInvalidEmail
	}

	local, host := parts[0], parts[1]
	if len(local) == 0 || len(local) > 64 {
		return SubscriberEmail{}, ErrInvalidEmail
	}
	if len(host) == 0 || len(host) > 253 || !strings.Contains(host, ".") {
		return SubscriberEmail{}, ErrInvalidEmail
	}
	if strings.ContainsAny(raw, " \t\r\n") {
		return SubscriberEmail{}, ErrInvalidEmail
	}

	return SubscriberEmail{value: raw}, nil
}

// String returns the validated address.
func (e SubscriberEmail) String() string { return e.value }

// IsZero reports whether the value was never parsed.
func (e SubscriberEmail) IsZero() bool { return e.value == "" }

// SubscriberName is a display name that is safe to store and render.
// The zero value is invalid; construct via ParseName.
type SubscriberName struct {
	value string
}

// forbiddenNameChars are rejected wholesale rather than escaped; they have
// no business in a display name and keep injection concerns out of
// downstream templates.
const forbiddenNameChars = `/()"<>\{}`

// ParseName validates raw input as a subscriber display name: non-blank,
// at most 256 grapheme clusters, no forbidden characters.
func ParseName(raw string) (SubscriberName, error) {
	if strings.TrimSpace(raw) == "" {
		return SubscriberName{}, ErrEmptyName
	}
	// Grapheme clusters, not bytes or runes: "ё" typed as e + combining
	// diaeresis still counts as one character.
	if uniseg.GraphemeClusterCount(raw) > 256 {
		return SubscriberName{}, ErrNameTooLong
	}
	if strings.ContainsAny(raw, forbiddenNameChars) {
		return SubscriberName{}, ErrForbiddenCharacter
	}
	return SubscriberName{value: raw}, nil
}

// String returns the validated name.
func (n SubscriberName) String() string { return n.value }

// NewSubscriber is the validated input to a subscribe request. It is never
// persisted directly; the store assigns identity and timestamps.
type NewSubscriber struct {
	Email SubscriberEmail
	Name  SubscriberName
}

// Subscriber is a persisted mailing list member.
type Subscriber struct {
	ID           uuid.UUID        `json:"id" db:"id"`
	Email        string           `json:"email" db:"email"`
	Name         string           `json:"name" db:"name"`
	Status       SubscriberStatus `json:"status" db:"status"`
	SubscribedAt time.Time        `json:"subscribed_at" db:"subscribed_at"`
}
