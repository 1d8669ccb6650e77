// Package apperrors defines the domain error taxonomy shared by the
// service and handler layers. Each error carries a stable machine code
// and the HTTP status handlers should respond with, so services never
// import net/http and handlers never string-match error text.
package apperrors

import (
	"errors"
	"fmt"
)

// Machine-readable error codes.
const (
	CodeInvalidTransition     = "INVALID_TRANSITION"
	CodeFieldNotEditable      = "FIELD_NOT_EDITABLE"
	CodeDeletionNotAllowed    = "DELETION_NOT_ALLOWED"
	CodeEventNotOpen          = "EVENT_NOT_OPEN"
	CodeDeadlinePassed        = "DEADLINE_PASSED"
	CodeDuplicateRegistration = "DUPLICATE_REGISTRATION"
	CodeEventFull             = "EVENT_FULL"
	CodeInvalidVariant        = "INVALID_VARIANT"
	CodeInsufficientStock     = "INSUFFICIENT_STOCK"
	CodeNotPendingApproval    = "NOT_PENDING_APPROVAL"
	CodeAlreadyCancelled      = "ALREADY_CANCELLED"
	CodeInvalidTicket         = "INVALID_TICKET"
	CodeWrongEvent            = "WRONG_EVENT"
	CodeNotFound              = "NOT_FOUND"
	CodeForbidden             = "FORBIDDEN"
	CodeValidation            = "VALIDATION_FAILED"
)

// Error is a classified domain failure. Status is the HTTP status the
// API layer maps it to.
type Error struct {
	Code   string
	Status int
	Msg    string
}

func (e *Error) Error() string { return e.Msg }

// From extracts a classified *Error from an error chain.
func From(err error) (*Error, bool) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// Is reports whether err carries the given code.
func Is(err error, code string) bool {
	if appErr, ok := From(err); ok {
		return appErr.Code == code
	}
	return false
}

func InvalidTransition(current, requested string) *Error {
	return &Error{
		Code:   CodeInvalidTransition,
		Status: 409,
		Msg:    fmt.Sprintf("invalid status transition from %q to %q", current, requested),
	}
}

func FieldNotEditable(status string) *Error {
	return &Error{
		Code:   CodeFieldNotEditable,
		Status: 409,
		Msg:    fmt.Sprintf("event fields are not editable while status is %q", status),
	}
}

func DeletionNotAllowed(status string) *Error {
	return &Error{
		Code:   CodeDeletionNotAllowed,
		Status: 409,
		Msg:    fmt.Sprintf("only draft events can be deleted, current status is %q", status),
	}
}

func EventNotOpen(status string) *Error {
	return &Error{
		Code:   CodeEventNotOpen,
		Status: 409,
		Msg:    fmt.Sprintf("event is not open for registration, current status is %q", status),
	}
}

func DeadlinePassed() *Error {
	return &Error{
		Code:   CodeDeadlinePassed,
		Status: 409,
		Msg:    "registration deadline has passed",
	}
}

func DuplicateRegistration() *Error {
	return &Error{
		Code:   CodeDuplicateRegistration,
		Status: 409,
		Msg:    "an active registration for this event already exists",
	}
}

func EventFull(maxParticipants int) *Error {
	return &Error{
		Code:   CodeEventFull,
		Status: 409,
		Msg:    fmt.Sprintf("event has reached its capacity of %d participants", maxParticipants),
	}
}

func InvalidVariant(name string) *Error {
	return &Error{
		Code:   CodeInvalidVariant,
		Status: 400,
		Msg:    fmt.Sprintf("merchandise variant %q does not exist for this event", name),
	}
}

func InsufficientStock(name string) *Error {
	return &Error{
		Code:   CodeInsufficientStock,
		Status: 409,
		Msg:    fmt.Sprintf("insufficient stock for variant %q", name),
	}
}

func NotPendingApproval(paymentStatus string) *Error {
	return &Error{
		Code:   CodeNotPendingApproval,
		Status: 409,
		Msg:    fmt.Sprintf("registration payment status is %q, expected pending_approval", paymentStatus),
	}
}

func AlreadyCancelled() *Error {
	return &Error{
		Code:   CodeAlreadyCancelled,
		Status: 409,
		Msg:    "registration is already cancelled",
	}
}

// InvalidTicket deliberately carries no diagnostic detail. Scan clients
// are untrusted and must not learn why a ticket failed verification.
func InvalidTicket() *Error {
	return &Error{
		Code:   CodeInvalidTicket,
		Status: 400,
		Msg:    "invalid ticket",
	}
}

func WrongEvent() *Error {
	return &Error{
		Code:   CodeWrongEvent,
		Status: 400,
		Msg:    "invalid ticket",
	}
}

func NotFound(what string) *Error {
	return &Error{
		Code:   CodeNotFound,
		Status: 404,
		Msg:    fmt.Sprintf("%s not found", what),
	}
}

func Forbidden() *Error {
	return &Error{
		Code:   CodeForbidden,
		Status: 403,
		Msg:    "operation is forbidden for user",
	}
}

// Validation covers client-correctable request problems that have no
// dedicated code of their own.
func Validation(msg string) *Error {
	return &Error{
		Code:   CodeValidation,
		Status: 400,
		Msg:    msg,
	}
}
