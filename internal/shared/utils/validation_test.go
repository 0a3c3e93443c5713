package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateID(t *testing.T) {
	tests := []struct {
		name     string
		id       string
		required bool
		wantErr  bool
	}{
		{"event id", "evt_01HZX3K8J9", false, false},
		{"empty optional", "", false, false},
		{"empty required", "", true, true},
		{"path traversal", "../secret", true, true},
		{"too long", strings.Repeat("a", MaxIDLength+1), true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateID(tt.id, "id", tt.required)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalid)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateCredentials(t *testing.T) {
	assert.NoError(t, ValidateCredentials("ana", "pw"))
	assert.ErrorIs(t, ValidateCredentials("  ", "pw"), ErrInvalid)
	assert.ErrorIs(t, ValidateCredentials("ana", ""), ErrInvalid)
	assert.ErrorIs(t, ValidateCredentials("ana", strings.Repeat("p", MaxPasswordLength+1)), ErrInvalid)
	assert.ErrorIs(t, ValidateCredentials("an\x00a", "pw"), ErrInvalid)
}

func TestValidateMessage(t *testing.T) {
	assert.NoError(t, ValidateMessage(""))
	assert.NoError(t, ValidateMessage("   "))
	assert.NoError(t, ValidateMessage("¿qué tal? 👋"))
	assert.ErrorIs(t, ValidateMessage(strings.Repeat("x", MaxMessageLength+1)), ErrInvalid)
	assert.ErrorIs(t, ValidateMessage("bad\xffbytes"), ErrInvalid)
}
