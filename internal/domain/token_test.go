package domain

import (
	"errors"
	"strings"
	"testing"
)

func TestParseToken(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr error
	}{
		{"25 alphanumerics", "a1B2c3D4e5F6g7H8i9J0k1L2m", nil},
		{"all digits", strings.Repeat("0", 25), nil},
		{"too short", "tooshort", ErrTokenLength},
		{"too long", strings.Repeat("a", 26), ErrTokenLength},
		{"empty", "", ErrTokenLength},
		{"punctuation", "abcde-ghijklmnopqrstuvwxy", ErrTokenNotAlphanum},
		{"embedded space", "abcde ghijklmnopqrstuvwxy", ErrTokenNotAlphanum},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseToken(tt.input)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ParseToken(%q) error = %v, want %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestGenerateToken(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		token, err := GenerateToken()
		if err != nil {
			t.Fatalf("GenerateToken() error = %v", err)
		}
		// Every generated token must survive a round-trip through ParseToken.
		if _, err := ParseToken(token.String()); err != nil {
			t.Fatalf("generated token %q failed validation: %v", token.String(), err)
		}
		if seen[token.String()] {
			t.Fatalf("generated duplicate token %q", token.String())
		}
		seen[token.String()] = true
	}
}
