package auth

import (
	"errors"
	"net/mail"
	"strings"

	"github.com/easylease/sublease/internal/normalize"
)

// MinPasswordLength is the shortest password accepted at signup.
const MinPasswordLength = 6

var (
	ErrInstitutionalEmail = errors.New("an institutional .edu email is required")
	ErrPasswordMismatch   = errors.New("passwords do not match")
	ErrWeakPassword       = errors.New("password must be at least 6 characters")
	ErrMissingName        = errors.New("first and last name are required")
)

// Signup is the data collected by the registration form.
type Signup struct {
	Email           string
	Password        string
	ConfirmPassword string
	FirstName       string
	LastName        string
	University      string
}

// IsInstitutionalEmail reports whether email is a well formed address on an
// .edu domain.
func IsInstitutionalEmail(email string) bool {
	addr, err := mail.ParseAddress(normalize.Email(email))
	if err != nil || addr.Name != "" {
		return false
	}
	at := strings.LastIndexByte(addr.Address, '@')
	if at < 1 {
		return false
	}
	domain := addr.Address[at+1:]
	return strings.HasSuffix(domain, ".edu") && len(domain) > len(".edu")
}

// Validate checks the form before any account is created.
func (s Signup) Validate() error {
	if !IsInstitutionalEmail(s.Email) {
		return ErrInstitutionalEmail
	}
	if len(s.Password) < MinPasswordLength {
		return ErrWeakPassword
	}
	if s.Password != s.ConfirmPassword {
		return ErrPasswordMismatch
	}
	if strings.TrimSpace(s.FirstName) == "" || strings.TrimSpace(s.LastName) == "" {
		return ErrMissingName
	}
	return nil
}

// IsValidation reports whether err came from signup validation.
func IsValidation(err error) bool {
	return errors.Is(err, ErrInstitutionalEmail) ||
		errors.Is(err, ErrPasswordMismatch) ||
		errors.Is(err, ErrWeakPassword) ||
		errors.Is(err, ErrMissingName)
}
