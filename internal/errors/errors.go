package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error taxonomy shared by the transport, session and collection layers
var (
	// Credential errors
	ErrAuthRequired   = errors.New("authentication required")
	ErrSessionExpired = errors.New("session expired")
	ErrNotSignedIn    = errors.New("not signed in")

	// Transport errors
	ErrNetworkUnavailable  = errors.New("network unavailable")
	ErrUnexpectedHTML      = errors.New("server returned HTML instead of JSON")
	ErrInvalidResponseBody = errors.New("invalid response body")

	// Input errors
	ErrValidation = errors.New("validation failed")

	// Collection errors
	ErrAlreadyInCollection = errors.New("already in collection")

	// General errors
	ErrNotFound        = errors.New("not found")
	ErrRequestRejected = errors.New("request rejected") // 2xx body with success:false
)

// HTTPError is any non-2xx response that is not a session expiry.
type HTTPError struct {
	Status  int
	Message string
}

func (e *HTTPError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("http %d: %s", e.Status, http.StatusText(e.Status))
	}
	return fmt.Sprintf("http %d: %s", e.Status, e.Message)
}

// Is lets callers match 404 responses with ErrNotFound.
func (e *HTTPError) Is(target error) bool {
	return target == ErrNotFound && e.Status == http.StatusNotFound
}

// ValidationError is returned for input rejected before any network call.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// NewValidationError builds a ValidationError for field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// StatusCode returns the HTTP status carried by err, or 0 when there is none.
func StatusCode(err error) int {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Status
	}
	return 0
}

// IsAuthError reports whether err means the caller has no usable credential.
func IsAuthError(err error) bool {
	return errors.Is(err, ErrAuthRequired) || errors.Is(err, ErrSessionExpired)
}

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
