package user

import (
	"errors"
	"net/mail"
	"strings"
)

var (
	ErrInvalidEmail = errors.New("invalid email format")
	ErrInvalidRole  = errors.New("invalid role")
)

// Email is a bare address; the domain part is lower-cased so the same mailbox
// always renders the same way in outgoing notifications.
type Email struct {
	value string
}

func NewEmail(s string) (Email, error) {
	s = strings.TrimSpace(s)
	addr, err := mail.ParseAddress(s)
	if err != nil || addr.Name != "" || addr.Address != s {
		return Email{}, ErrInvalidEmail
	}

	at := strings.LastIndex(s, "@")
	local, domain := s[:at], s[at+1:]
	if !strings.Contains(domain, ".") || strings.HasSuffix(domain, ".") {
		return Email{}, ErrInvalidEmail
	}
	return Email{value: local + "@" + strings.ToLower(domain)}, nil
}

func (e Email) Value() string {
	return e.value
}

func (e Email) Domain() string {
	return e.value[strings.LastIndex(e.value, "@")+1:]
}
