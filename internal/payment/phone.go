package payment

import (
	"errors"
	"strings"
)

// ErrInvalidPhone is returned when a submitted phone number does not contain
// between 8 and 15 digits once separators are stripped.
var ErrInvalidPhone = errors.New("phone number must contain 8 to 15 digits")

// ErrUnsupportedMethod is returned when the chosen payment method is not in
// the set the gateway advertised when the session was opened.
var ErrUnsupportedMethod = errors.New("payment method not offered by gateway")

// NormalizePhone strips everything but digits from a subscriber-supplied
// phone number and validates the remaining length. Gateways receive the
// stripped form.
func NormalizePhone(raw string) (string, error) {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if len(digits) < 8 || len(digits) > 15 {
		return "", ErrInvalidPhone
	}
	return digits, nil
}
