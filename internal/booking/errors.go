package booking

import (
	"errors"
	"strings"
)

var (
	ErrWorkflowComplete = errors.New("booking: workflow already confirmed")
	ErrWrongStep        = errors.New("booking: action not allowed in current step")
	ErrDateInPast       = errors.New("booking: date is in the past")
	ErrDateFullyBooked  = errors.New("booking: date is fully booked")
	ErrMonthInPast      = errors.New("booking: month has already ended")
	ErrSlotUnavailable  = errors.New("booking: time slot is not available")
	ErrAvailability     = errors.New("booking: availability could not be loaded")
	ErrInvalidDetails   = errors.New("booking: invalid details")
	ErrSubmitFailed     = errors.New("booking: submission failed")
)

// SubmitFailedMessage is shown when persistence rejects a booking. The form
// keeps its data so the user can retry.
const SubmitFailedMessage = "Failed to book appointment. Please try again."

// FieldError flags one invalid form field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"msg"`
}

// FieldErrors carries every failing field of one validation pass.
type FieldErrors []FieldError

func (e FieldErrors) Error() string {
	parts := make([]string, len(e))
	for i, fe := range e {
		parts[i] = fe.Field + ": " + fe.Message
	}
	return "booking: invalid details: " + strings.Join(parts, "; ")
}

func (e FieldErrors) Unwrap() error { return ErrInvalidDetails }

// Has reports whether field failed.
func (e FieldErrors) Has(field string) bool {
	for _, fe := range e {
		if fe.Field == field {
			return true
		}
	}
	return false
}
