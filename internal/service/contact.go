package service

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/nyaruka/phonenumbers"
	"github.com/voxline/core/internal/models"
)

// NormalizeContact converts a contact to its canonical identity: title-cased
// name, E.164 phone number, lowercased email. Normalization runs before any
// conflict or uniqueness comparison so differing spellings of the same
// caller resolve to one contact.
func NormalizeContact(c models.Contact, defaultRegion string) (models.Contact, error) {
	name := normalizeName(c.Name)
	if name == "" {
		return models.Contact{}, fmt.Errorf("contact name is required")
	}

	phone, err := normalizePhone(c.Phone, defaultRegion)
	if err != nil {
		return models.Contact{}, err
	}

	email := strings.ToLower(strings.TrimSpace(c.Email))
	if email != "" && !strings.Contains(email, "@") {
		return models.Contact{}, fmt.Errorf("invalid email address: %q", c.Email)
	}

	return models.Contact{
		Name:  name,
		Phone: phone,
		Email: email,
	}, nil
}

func normalizeName(name string) string {
	fields := strings.Fields(name)
	for i, f := range fields {
		runes := []rune(strings.ToLower(f))
		runes[0] = unicode.ToUpper(runes[0])
		fields[i] = string(runes)
	}
	return strings.Join(fields, " ")
}

func normalizePhone(phone, defaultRegion string) (string, error) {
	if strings.TrimSpace(phone) == "" {
		return "", fmt.Errorf("contact phone is required")
	}

	parsed, err := phonenumbers.Parse(phone, defaultRegion)
	if err != nil {
		return "", fmt.Errorf("invalid phone number %q: %w", phone, err)
	}
	if !phonenumbers.IsValidNumber(parsed) {
		return "", fmt.Errorf("invalid phone number: %q", phone)
	}

	return phonenumbers.Format(parsed, phonenumbers.E164), nil
}

// ValidateSlot checks that a requested slot is usable: in the future and
// aligned to whole minutes after normalization.
func ValidateSlot(scheduledAt time.Time, durationMinutes int, now time.Time) error {
	if scheduledAt.IsZero() {
		return fmt.Errorf("requested timestamp is required")
	}
	if durationMinutes <= 0 {
		return fmt.Errorf("duration must be positive, got %d", durationMinutes)
	}
	if !scheduledAt.After(now) {
		return fmt.Errorf("requested timestamp %s is in the past", scheduledAt.Format(time.RFC3339))
	}
	return nil
}

// ValidateAmount rejects non-positive monetary amounts.
func ValidateAmount(amountCents int64) error {
	if amountCents <= 0 {
		return fmt.Errorf("amount must be positive, got %d", amountCents)
	}
	return nil
}
