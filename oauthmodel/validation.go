package oauthmodel

import (
	"net/mail"
	"strings"

	apperrors "github.com/jrsteele09/go-auth-bff/internal/errors"
)

const (
	minUsernameLength = 3
	minPasswordLength = 8
	minPhoneLength    = 10
	otpLength         = 6
)

// ValidateEmail checks the address is present and well formed
func ValidateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return apperrors.Validationf("email is required")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return apperrors.Validationf("invalid email format")
	}
	return nil
}

// ValidatePassword checks the minimum length. Strength rules belong to the backend.
func ValidatePassword(field, password string) error {
	if password == "" {
		return apperrors.Validationf("%s is required", field)
	}
	if len(password) < minPasswordLength {
		return apperrors.Validationf("%s must be at least %d characters", field, minPasswordLength)
	}
	return nil
}

func (c Credentials) Validate() error {
	if err := ValidateEmail(c.Email); err != nil {
		return err
	}
	return ValidatePassword("password", c.Password)
}

func (s SignUp) Validate() error {
	if len(strings.TrimSpace(s.Username)) < minUsernameLength {
		return apperrors.Validationf("userName must be at least %d characters", minUsernameLength)
	}
	if err := s.Credentials().Validate(); err != nil {
		return err
	}
	if len(strings.TrimSpace(s.PhoneNumber)) < minPhoneLength {
		return apperrors.Validationf("phoneNumber must be at least %d characters", minPhoneLength)
	}
	return nil
}

func (v VerifyChallenge) Validate() error {
	if len(v.Otp) != otpLength {
		return apperrors.Validationf("otp must be exactly %d characters", otpLength)
	}
	return nil
}

func (f ForgotPassword) Validate() error {
	return ValidateEmail(f.Email)
}

func (c ChangePassword) Validate() error {
	if err := (Credentials{Email: c.Email, Password: c.Password}).Validate(); err != nil {
		return err
	}
	if err := ValidatePassword("newPassword", c.NewPassword); err != nil {
		return err
	}
	if c.Password == c.NewPassword {
		return apperrors.ErrSamePassword
	}
	return nil
}

func (r UserRole) Validate() error {
	if err := ValidateEmail(r.Email); err != nil {
		return err
	}
	if strings.TrimSpace(r.Role) == "" {
		return apperrors.Validationf("role is required")
	}
	return nil
}

// Validate checks both cookie values are present. Their content is opaque.
func (m MfaChallenge) Validate() error {
	if m.MfaToken == "" || m.ChallengeID == "" {
		return apperrors.Validationf("no pending mfa challenge")
	}
	return VerifyChallenge{Otp: m.Otp}.Validate()
}
