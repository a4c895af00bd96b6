package status

import (
	"errors"
	"fmt"
)

// Kind is the stable, machine-readable class of an error.
type Kind string

const (
	KindUnauthenticated Kind = "unauthenticated"
	KindForbidden       Kind = "forbidden"
	KindNotFound        Kind = "not_found"
	KindConflict        Kind = "conflict"
	KindValidation      Kind = "validation_error"
	KindInternal        Kind = "internal_error"
)

type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func New(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches on code so wrapped copies of a sentinel still compare equal.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// Wrap attaches a cause to a copy of the sentinel.
func (e *Error) Wrap(err error) *Error {
	return &Error{Kind: e.Kind, Code: e.Code, Message: e.Message, Err: err}
}

var (
	ErrUnauthenticated = New(KindUnauthenticated, "unauthenticated", "auth: authentication required")

	ErrNotGigOwner      = New(KindForbidden, "not_gig_owner", "gig: only the gig owner can do this")
	ErrNotVenueManager  = New(KindForbidden, "not_venue_manager", "venue: only a venue manager can do this")
	ErrNotSelf          = New(KindForbidden, "not_self", "auth: action is limited to the account owner")
	ErrWrongAccount     = New(KindForbidden, "wrong_account", "invitation: invitation was issued to a different email address")
	ErrEmailNotVerified = New(KindForbidden, "email_not_verified", "invitation: a verified email address is required")

	ErrGigNotFound         = New(KindNotFound, "gig_not_found", "gig: gig not found")
	ErrSlotNotFound        = New(KindNotFound, "slot_not_found", "gig: slot not found")
	ErrVenueNotFound       = New(KindNotFound, "venue_not_found", "venue: venue not found")
	ErrApplicationNotFound = New(KindNotFound, "application_not_found", "application: application not found")
	ErrInvitationNotFound  = New(KindNotFound, "invitation_not_found", "invitation: invitation not found")
	ErrMemberNotFound      = New(KindNotFound, "member_not_found", "network: musician is not in this network")

	ErrSlotAlreadyFilled         = New(KindConflict, "slot_already_filled", "application: slot already filled")
	ErrApplicationNotPending     = New(KindConflict, "application_not_pending", "application: application was already decided")
	ErrDuplicateApplication      = New(KindConflict, "duplicate_application", "application: you already applied to this slot")
	ErrGigNotOpen                = New(KindConflict, "gig_not_open", "gig: gig is not open for applications")
	ErrSlotLocked                = New(KindConflict, "slot_locked", "gig: slot cannot change after an application was accepted")
	ErrSlotBusy                  = New(KindConflict, "slot_busy", "application: another decision on this slot is in progress")
	ErrInvitationExpired         = New(KindConflict, "invitation_expired", "invitation: invitation has expired")
	ErrInvitationAlreadyAccepted = New(KindConflict, "invitation_already_accepted", "invitation: invitation was already accepted")

	ErrNotEligible          = New(KindValidation, "not_eligible", "application: you do not play this instrument")
	ErrInstrumentNotInSlot  = New(KindValidation, "instrument_not_in_slot", "application: slot does not require this instrument")
	ErrMissingGigInvitation = New(KindValidation, "missing_gig_invitation", "application: slot is invite-only and you were not invited")
	ErrInvalidInput         = New(KindValidation, "invalid_input", "request: invalid input")

	ErrCodeGenerationFailed = New(KindInternal, "code_generation_failed", "invitation: could not generate a unique code")
	ErrInternal             = New(KindInternal, "internal_error", "internal error")
)

// Invalid builds a validation error carrying a specific message.
func Invalid(message string) *Error {
	return &Error{Kind: KindValidation, Code: ErrInvalidInput.Code, Message: message}
}

// Internal wraps a store or transport failure.
func Internal(err error) *Error {
	if err == nil {
		return nil
	}
	var se *Error
	if errors.As(err, &se) {
		return se
	}
	return ErrInternal.Wrap(err)
}

// KindOf classifies any error; unknown errors are internal.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindInternal
}

// CodeOf returns the stable code of err, "internal_error" for unknown errors.
func CodeOf(err error) string {
	var se *Error
	if errors.As(err, &se) {
		return se.Code
	}
	return ErrInternal.Code
}
