package metadata

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewOrigin(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Origin
		wantErr bool
	}{
		{"purchase", "purchase", OriginPurchase, false},
		{"uppercase donation", "DONATION", OriginDonation, false},
		{"empty defaults to purchase", "  ", OriginPurchase, false},
		{"bare other", "other", OriginOther, false},
		{"other with detail", "Other  hadiah vendor", Origin("other-hadiah-vendor"), false},
		{"other as substring", "brother", Origin("brother"), true},
		{"unknown", "stolen", Origin("stolen"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewOrigin(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidOrigin)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestOriginLabel(t *testing.T) {
	assert.Equal(t, "Hibah", OriginGrant.Label())
	assert.Equal(t, "Lainnya (hadiah vendor)", Origin("other-hadiah-vendor").Label())
	assert.False(t, OriginOther.IsValid())
	assert.True(t, OriginOther.IsOther())
}
