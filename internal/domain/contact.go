package domain

import (
	"errors"
	"strings"
	"time"
)

var (
	ErrContactNotFound = errors.New("contact not found")
	ErrInvalidPhone    = errors.New("phone number must contain only digits")
)

type Contact struct {
	ID        string
	Name      string
	Phone     string
	Notes     *string
	CreatedAt time.Time
}

// NormalizePhone trims the number and checks it is digits with an optional
// leading '+', allowing spaces and dashes as separators.
func NormalizePhone(phone string) (string, error) {
	cleaned := strings.TrimSpace(phone)
	digits := strings.TrimPrefix(cleaned, "+")
	digits = strings.NewReplacer(" ", "", "-", "").Replace(digits)
	if digits == "" {
		return "", ErrInvalidPhone
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return "", ErrInvalidPhone
		}
	}
	return cleaned, nil
}
