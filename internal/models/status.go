package models

import (
	"felicity/internal/apperrors"
)

// EventStatus is the lifecycle state of an event. Transitions are
// monotonic, an event never moves back to an earlier state.
type EventStatus string

const (
	EventDraft     EventStatus = "draft"
	EventPublished EventStatus = "published"
	EventOngoing   EventStatus = "ongoing"
	EventClosed    EventStatus = "closed"
)

// eventTransitions is the full transition table. A status maps to the
// set of statuses it may move to; anything else is rejected.
var eventTransitions = map[EventStatus][]EventStatus{
	EventDraft:     {EventPublished},
	EventPublished: {EventOngoing, EventClosed},
	EventOngoing:   {EventClosed},
	EventClosed:    {},
}

// ValidEventStatus reports whether s names a known status.
func ValidEventStatus(s EventStatus) bool {
	_, ok := eventTransitions[s]
	return ok
}

// ApplyTransition validates a requested status change against the
// transition table and returns the next status. Every status change in
// the system goes through here; call sites never compare statuses
// themselves.
func ApplyTransition(current, requested EventStatus) (EventStatus, error) {
	for _, next := range eventTransitions[current] {
		if next == requested {
			return requested, nil
		}
	}
	return current, apperrors.InvalidTransition(string(current), string(requested))
}

// publishedEditable is the allow-list of fields an organizer may still
// change after publishing. While draft, everything is editable; once
// ongoing or closed, nothing is.
var publishedEditable = map[string]bool{
	"description":           true,
	"registration_deadline": true,
	"max_participants":      true,
}

// FieldEditable reports whether the named field may be mutated while
// the event is in the given status.
func FieldEditable(status EventStatus, field string) bool {
	switch status {
	case EventDraft:
		return true
	case EventPublished:
		return publishedEditable[field]
	default:
		return false
	}
}

// RegistrationStatus is the attendance lifecycle of a registration.
type RegistrationStatus string

const (
	RegistrationRegistered RegistrationStatus = "registered"
	RegistrationAttended   RegistrationStatus = "attended"
	RegistrationCancelled  RegistrationStatus = "cancelled"
)

// PaymentStatus is the payment sub-state of a registration. Normal
// registrations are fixed to not_required; merchandise orders walk
// pending -> pending_approval -> approved|rejected, with rejected
// re-entrant via proof re-upload.
type PaymentStatus string

const (
	PaymentNotRequired     PaymentStatus = "not_required"
	PaymentPending         PaymentStatus = "pending"
	PaymentPendingApproval PaymentStatus = "pending_approval"
	PaymentApproved        PaymentStatus = "approved"
	PaymentRejected        PaymentStatus = "rejected"
)

// CanUploadProof reports whether a payment proof upload is permitted in
// the given payment state.
func CanUploadProof(ps PaymentStatus) bool {
	return ps == PaymentPending || ps == PaymentRejected
}

// CanAttend reports whether the payment state permits marking the
// registration attended. Merchandise orders must be approved first.
func CanAttend(ps PaymentStatus) bool {
	return ps == PaymentNotRequired || ps == PaymentApproved
}
