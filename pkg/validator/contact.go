package validator

import (
	"errors"
	"regexp"
	"strings"
)

// ContactKind classifies a free-form identifier entered on the kiosk.
type ContactKind string

const (
	KindEmail ContactKind = "email"
	KindPhone ContactKind = "phone"
)

var (
	// ErrEmptyContact indicates the input is empty
	ErrEmptyContact = errors.New("email or phone number cannot be empty")

	// ErrInvalidEmail indicates the input looks like an email but is malformed
	ErrInvalidEmail = errors.New("invalid email address")

	// ErrInvalidPhone indicates the input looks like a phone number but is malformed
	ErrInvalidPhone = errors.New("phone number must contain at least 10 digits")
)

// minPhoneDigits is the fewest digits a phone number may carry;
// separators do not count.
const minPhoneDigits = 10

// emailRegex is deliberately loose: one '@', no whitespace, a dot in the domain.
var emailRegex = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// phoneRegex accepts digits with optional leading + and common separators.
var phoneRegex = regexp.MustCompile(`^[+]?[\d\s\-()]+$`)

// ContactValidator classifies and validates visitor-entered identifiers.
type ContactValidator struct{}

// NewContactValidator creates a new contact validator instance
func NewContactValidator() *ContactValidator {
	return &ContactValidator{}
}

// Classify applies the single heuristic the flow relies on: anything
// containing '@' is an email, everything else is a phone number.
func (v *ContactValidator) Classify(input string) ContactKind {
	if strings.Contains(input, "@") {
		return KindEmail
	}
	return KindPhone
}

// Validate checks a free-form identifier and returns its kind and the
// trimmed value. Validation failures never reach the network layer.
func (v *ContactValidator) Validate(input string) (ContactKind, string, error) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return "", "", ErrEmptyContact
	}

	kind := v.Classify(trimmed)
	switch kind {
	case KindEmail:
		if !emailRegex.MatchString(trimmed) {
			return kind, trimmed, ErrInvalidEmail
		}
	case KindPhone:
		if !phoneRegex.MatchString(trimmed) || countDigits(trimmed) < minPhoneDigits {
			return kind, trimmed, ErrInvalidPhone
		}
	}

	return kind, trimmed, nil
}

// countDigits reports how many decimal digits the input carries.
func countDigits(s string) int {
	n := 0
	for _, r := range s {
		if r >= '0' && r <= '9' {
			n++
		}
	}
	return n
}

// ValidateEmail validates a value already known to be an email.
func (v *ContactValidator) ValidateEmail(email string) error {
	if strings.TrimSpace(email) == "" {
		return ErrEmptyContact
	}
	if !emailRegex.MatchString(strings.TrimSpace(email)) {
		return ErrInvalidEmail
	}
	return nil
}
