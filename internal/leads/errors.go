package leads

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownStatus is returned for a status outside the pipeline enum.
	ErrUnknownStatus = errors.New("leads: unknown status")

	// ErrMissingID is returned when a persisted record carries no identifier.
	ErrMissingID = errors.New("leads: record has no id")

	// ErrLeadNotFound is returned when a lead is not found
	ErrLeadNotFound = errors.New("lead not found")

	// ErrValidation is the parent of every ValidationError.
	ErrValidation = errors.New("leads: validation failed")
)

// ValidationError is a user-facing input problem. It never reaches the
// network.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

var (
	ErrEmptyNote = &ValidationError{
		Field:   "note",
		Message: "Please enter a note before adding.",
	}
	ErrIncompleteSchedule = &ValidationError{
		Field:   "schedule",
		Message: "Please select both date and time for the appointment.",
	}
	ErrInvalidName = &ValidationError{
		Field:   "fullName",
		Message: "Full name is required.",
	}
	ErrMissingPhone = &ValidationError{
		Field:   "phoneNumber",
		Message: "Phone number is required.",
	}
)
