package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/voxline/core/internal/models"
)

func TestNormalizeContact_CanonicalForm(t *testing.T) {
	contact, err := NormalizeContact(models.Contact{
		Name:  "  jOHN   dOE ",
		Phone: "(415) 555-2671",
		Email: "John.Doe@Example.COM ",
	}, "US")
	require.NoError(t, err)

	assert.Equal(t, "John Doe", contact.Name)
	assert.Equal(t, "+14155552671", contact.Phone)
	assert.Equal(t, "john.doe@example.com", contact.Email)
}

func TestNormalizeContact_EquivalentSpellingsConverge(t *testing.T) {
	a, err := NormalizeContact(models.Contact{Name: "jane smith", Phone: "415-555-2671"}, "US")
	require.NoError(t, err)

	b, err := NormalizeContact(models.Contact{Name: "JANE  SMITH", Phone: "+1 (415) 555 2671"}, "US")
	require.NoError(t, err)

	assert.Equal(t, a, b)
}

func TestNormalizeContact_InternationalPrefixIgnoresRegion(t *testing.T) {
	contact, err := NormalizeContact(models.Contact{Name: "Pierre", Phone: "+33 6 12 34 56 78"}, "US")
	require.NoError(t, err)

	assert.Equal(t, "+33612345678", contact.Phone)
}

func TestNormalizeContact_MissingName(t *testing.T) {
	_, err := NormalizeContact(models.Contact{Phone: "415-555-2671"}, "US")
	assert.ErrorContains(t, err, "name is required")
}

func TestNormalizeContact_MissingPhone(t *testing.T) {
	_, err := NormalizeContact(models.Contact{Name: "John"}, "US")
	assert.ErrorContains(t, err, "phone is required")
}

func TestNormalizeContact_InvalidPhone(t *testing.T) {
	_, err := NormalizeContact(models.Contact{Name: "John", Phone: "12345"}, "US")
	assert.ErrorContains(t, err, "invalid phone number")
}

func TestNormalizeContact_InvalidEmail(t *testing.T) {
	_, err := NormalizeContact(models.Contact{Name: "John", Phone: "415-555-2671", Email: "not-an-email"}, "US")
	assert.ErrorContains(t, err, "invalid email")
}

func TestNormalizeContact_EmailOptional(t *testing.T) {
	contact, err := NormalizeContact(models.Contact{Name: "John", Phone: "415-555-2671"}, "US")
	require.NoError(t, err)
	assert.Empty(t, contact.Email)
}

func TestValidateSlot(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name        string
		scheduledAt time.Time
		duration    int
		wantErr     string
	}{
		{"future slot ok", now.Add(time.Hour), 30, ""},
		{"zero time", time.Time{}, 30, "required"},
		{"zero duration", now.Add(time.Hour), 0, "duration must be positive"},
		{"negative duration", now.Add(time.Hour), -15, "duration must be positive"},
		{"slot in the past", now.Add(-time.Hour), 30, "in the past"},
		{"slot exactly now", now, 30, "in the past"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSlot(tt.scheduledAt, tt.duration, now)
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				assert.ErrorContains(t, err, tt.wantErr)
			}
		})
	}
}

func TestValidateAmount(t *testing.T) {
	assert.NoError(t, ValidateAmount(1))
	assert.NoError(t, ValidateAmount(250_000))
	assert.ErrorContains(t, ValidateAmount(0), "must be positive")
	assert.ErrorContains(t, ValidateAmount(-500), "must be positive")
}
