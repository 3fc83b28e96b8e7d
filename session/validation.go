package session

import (
	"regexp"
	"strings"

	apperrors "github.com/jrsteele09/go-storefront-client/internal/errors"
)

const minPasswordLength = 6

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// LoginCredentials is the body of POST /api/auth/login.
type LoginCredentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate rejects empty fields and malformed email addresses.
func (c LoginCredentials) Validate() error {
	if strings.TrimSpace(c.Email) == "" || c.Password == "" {
		return apperrors.NewValidationError("email", "Please enter both email and password.")
	}
	if !emailPattern.MatchString(c.Email) {
		return apperrors.NewValidationError("email", "Please enter a valid email address.")
	}
	return nil
}

// RegistrationData is the sign-up form. ConfirmPassword never leaves the client.
type RegistrationData struct {
	Name            string
	Email           string
	Password        string
	ConfirmPassword string
	Role            string
}

// Validate applies the sign-up rules in the order the form reports them.
func (r RegistrationData) Validate() error {
	if strings.TrimSpace(r.Name) == "" || strings.TrimSpace(r.Email) == "" || r.Password == "" || r.ConfirmPassword == "" {
		return apperrors.NewValidationError("", "Please fill in all fields.")
	}
	if !emailPattern.MatchString(r.Email) {
		return apperrors.NewValidationError("email", "Please enter a valid email address.")
	}
	if len(r.Password) < minPasswordLength {
		return apperrors.NewValidationError("password", "Password must be at least 6 characters long.")
	}
	if r.Password != r.ConfirmPassword {
		return apperrors.NewValidationError("confirmPassword", "Passwords do not match.")
	}
	return nil
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role,omitempty"`
}

func (r RegistrationData) request() registerRequest {
	return registerRequest{
		Name:     strings.TrimSpace(r.Name),
		Email:    strings.TrimSpace(r.Email),
		Password: r.Password,
		Role:     r.Role,
	}
}
