package apiclient

import (
	"errors"
	"fmt"
	"net/http"
	"syscall"
)

// User-facing messages for failed list loads.
const (
	MsgEndpointNotFound = "Appointments endpoint not found. Check if the backend is correctly set up."
	MsgServerError      = "Server error. Please check the backend logs for details."
	MsgCannotConnect    = "Cannot connect to backend. Please ensure the server is running."
	MsgFetchFailed      = "Failed to fetch appointments. Please ensure the backend server is running and try again."
	MsgSessionExpired   = "Session expired. Please log in again."
)

// ErrUnreachable wraps a refused connection.
var ErrUnreachable = errors.New("apiclient: backend unreachable")

// ErrResponseTooLarge is returned when a response body exceeds
// maxResponseBytes.
var ErrResponseTooLarge = errors.New("apiclient: response too large")

// APIError is a non-2xx response.
type APIError struct {
	Status  int
	Message string
	Fields  []FieldError
}

// FieldError is one entry of a 400 validation response.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"msg"`
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("apiclient: status %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("apiclient: status %d", e.Status)
}

func statusOf(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

// IsAuth reports a 401 or 403 response. Callers must log out.
func IsAuth(err error) bool {
	s := statusOf(err)
	return s == http.StatusUnauthorized || s == http.StatusForbidden
}

// IsNotFound reports a 404 response.
func IsNotFound(err error) bool {
	return statusOf(err) == http.StatusNotFound
}

// IsUnreachable reports a refused connection. Timeouts and other transport
// failures are not included.
func IsUnreachable(err error) bool {
	return errors.Is(err, ErrUnreachable) || errors.Is(err, syscall.ECONNREFUSED)
}

// FetchMessage maps a list-load failure to the message shown in the fetch
// error slot.
func FetchMessage(err error) string {
	switch s := statusOf(err); {
	case err == nil:
		return ""
	case s == http.StatusUnauthorized, s == http.StatusForbidden:
		return MsgSessionExpired
	case s == http.StatusNotFound:
		return MsgEndpointNotFound
	case s >= http.StatusInternalServerError:
		return MsgServerError
	case IsUnreachable(err):
		return MsgCannotConnect
	default:
		return MsgFetchFailed
	}
}
