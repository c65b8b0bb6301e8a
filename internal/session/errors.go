package session

import "errors"

var (
	// ErrLoggedOut is returned when the backend rejected the credential or no
	// one is logged in. All session state has been cleared.
	ErrLoggedOut = errors.New("session: logged out")

	// ErrRequestInFlight is returned when a mutation for the same lead is
	// already pending.
	ErrRequestInFlight = errors.New("session: request already in flight")

	// ErrClosed is returned after Close; late results are dropped.
	ErrClosed = errors.New("session: closed")
)

// Action error messages shown to the operator.
const (
	MsgStatusFailed     = "Failed to update status. Please check your connection and try again."
	MsgNoteFailed       = "Failed to add note. Please try again."
	MsgRescheduleFailed = "Failed to update appointment. Please try again."
	MsgDeleteFailed     = "Failed to delete lead. Please try again."
	MsgAddLeadFailed    = "Failed to add lead. Please try again."
	MsgAddUserFailed    = "Failed to add user. Please try again."
	MsgLoginFailed      = "Invalid username/email or password."
)
