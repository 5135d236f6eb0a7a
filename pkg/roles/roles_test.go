package roles

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHasPermission(t *testing.T) {
	tests := []struct {
		role     Role
		required Role
		expected bool
	}{
		{Admin, Technician, true},
		{Admin, Admin, true},
		{Technician, Staff, true},
		{Technician, Admin, false},
		{Staff, Technician, false},
		{Role("guest"), Staff, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.role)+"->"+string(tt.required), func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.role.HasPermission(tt.required))
		})
	}
}

func TestIsValid(t *testing.T) {
	assert.True(t, Technician.IsValid())
	assert.False(t, Role("moderator").IsValid())
}
