package plone

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrNetwork    = errors.New("network failure")
	ErrStatus     = errors.New("unexpected response status")
	ErrMalformed  = errors.New("malformed response body")
	ErrPermission = errors.New("permission denied")
)

// APIError is a non-2xx response. Message is the backend's own text when it
// sent one.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("http %d", e.Status)
	}
	return fmt.Sprintf("http %d: %s", e.Status, e.Message)
}

// Unwrap lets errors.Is match ErrStatus, and ErrPermission for 401/403.
func (e *APIError) Unwrap() []error {
	if e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden {
		return []error{ErrStatus, ErrPermission}
	}
	return []error{ErrStatus}
}

// UserMessage turns any client error into a line fit for display.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	switch {
	case errors.Is(err, ErrPermission):
		return "You do not have permission to do that"
	case errors.Is(err, ErrNetwork):
		return "Could not reach the server. Please try again."
	case errors.Is(err, ErrMalformed):
		return "The server sent an unexpected response"
	case errors.As(err, &apiErr):
		return fmt.Sprintf("Request failed (%d)", apiErr.Status)
	default:
		return err.Error()
	}
}
