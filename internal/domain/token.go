package domain

import (
	"crypto/rand"
	"errors"
	"fmt"
	"unicode"

	"github.com/rivo/uniseg"
)

// TokenLength is the exact length of a subscription confirmation token.
const TokenLength = 25

// Validation failures for confirmation tokens.
var (
	ErrTokenLength      = errors.New("token must be 25 characters long")
	ErrTokenNotAlphanum = errors.New("token may only contain alphanumeric characters")
)

// SubscriptionToken is a single-use confirmation credential: exactly 25
// alphanumeric characters. The zero value is invalid; construct via
// ParseToken or GenerateToken.
type SubscriptionToken struct {
	value string
}

// ParseToken validates raw input as a subscription token.
func ParseToken(raw string) (SubscriptionToken, error) {
	if uniseg.GraphemeClusterCount(raw) != TokenLength {
		return SubscriptionToken{}, ErrTokenLength
	}
	for _, r := range raw {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return SubscriptionToken{}, ErrTokenNotAlphanum
		}
	}
	return SubscriptionToken{value: raw}, nil
}

const tokenAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// GenerateToken returns a fresh random subscription token drawn from
// crypto/rand.
func GenerateToken() (SubscriptionToken, error) {
	buf := make([]byte, TokenLength)
	if _, err := rand.Read(buf); err != nil {
		return SubscriptionToken{}, fmt.Errorf("generating token: %w", err)
	}
	for i, b := range buf {
		buf[i] = tokenAlphabet[int(b)%len(tokenAlphabet)]
	}
	return SubscriptionToken{value: string(buf)}, nil
}

// String returns the validated token.
func (t SubscriptionToken) String() string { return t.value }
