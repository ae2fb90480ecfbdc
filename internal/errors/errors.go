package errors

import (
	"errors"
	"fmt"
)

// Common error types for the portal session layer
var (
	// Input errors
	ErrValidation = errors.New("validation failed")

	// Session errors
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrNoRefreshToken   = errors.New("no refresh token")
	ErrRefreshFailed    = errors.New("token refresh failed")
	ErrCookieWrite      = errors.New("cookie write failed")

	// Backend errors
	ErrTransport       = errors.New("backend unreachable")
	ErrBackend         = errors.New("backend rejected request")
	ErrInvalidResponse = errors.New("invalid server response")
	ErrMissingToken    = errors.New("missing token in response")

	// General errors
	ErrNotFound = errors.New("not found")
	ErrInternal = errors.New("internal error")
)

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

// Join returns an error that wraps the given errors
func Join(errs ...error) error {
	return errors.Join(errs...)
}
