package payment

import (
	"errors"
	"strings"
)

var ErrInvalidPhoneNumber = errors.New("invalid phone number")

const (
	minPhoneDigits = 10
	maxPhoneDigits = 15
)

// NormalizePhone returns the international form without a leading '+': a
// national trunk '0' is replaced by countryCode.
func NormalizePhone(raw, countryCode string) (string, error) {
	p := strings.NewReplacer(" ", "", "-", "").Replace(strings.TrimSpace(raw))
	p = strings.TrimPrefix(p, "+")
	if strings.HasPrefix(p, "0") {
		p = countryCode + p[1:]
	}

	if len(p) < minPhoneDigits || len(p) > maxPhoneDigits {
		return "", ErrInvalidPhoneNumber
	}
	for _, c := range p {
		if c < '0' || c > '9' {
			return "", ErrInvalidPhoneNumber
		}
	}
	return p, nil
}
