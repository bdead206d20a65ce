package email

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeriveNameFromEmail(t *testing.T) {
	tests := []struct {
		email string
		first string
		last  string
	}{
		{"ola.nordmann@example.org", "Ola", "Nordmann"},
		{"kari_hansen@example.org", "Kari", "Hansen"},
		{"per-arne+news@example.org", "Per", "News"},
		{"single@example.org", "Single", "User"},
		{"no-at-sign", "No", "Sign"},
		{"", "User", "User"},
	}
	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			first, last := DeriveNameFromEmail(tt.email)
			assert.Equal(t, tt.first, first)
			assert.Equal(t, tt.last, last)
		})
	}
}
