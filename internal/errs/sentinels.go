// Package errs contains sentinel errors used across layers for stable error mapping.
package errs

import (
	"errors"
	"fmt"
)

// Common sentinels across the client layers.
var (
	// ErrUnauthorized indicates a 401 or bad credentials on login.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrNoToken indicates no valid session token is available (login required).
	ErrNoToken = errors.New("no valid token (login required)")

	// ErrInvalidFilter indicates the filter criteria violate a range invariant;
	// no request is dispatched while it holds.
	ErrInvalidFilter = errors.New("invalid filter criteria")

	// ErrDraftInvalid indicates the edit draft fails validation and cannot be saved.
	ErrDraftInvalid = errors.New("draft validation failed")
)

// APIError carries a non-2xx backend response: status code plus the error
// body verbatim, so callers can show the server-provided message.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("request failed with status %d", e.StatusCode)
	}
	return fmt.Sprintf("request failed with status %d: %s", e.StatusCode, e.Body)
}

// Is maps 401 responses onto ErrUnauthorized and 404 onto ErrNotFound.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return e.StatusCode == 401
	case ErrNotFound:
		return e.StatusCode == 404
	}
	return false
}
