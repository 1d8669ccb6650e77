package models

import (
	"time"

	"github.com/google/uuid"
)

// NATS subjects. The request path publishes these after its own state
// is committed; the consumers binary handles delivery.
const (
	SubjectEventPublished      = "event.published"
	SubjectRegistrationCreated = "registration.created"
	SubjectTicketIssued        = "ticket.issued"
	SubjectPaymentApproved     = "payment.approved"
	SubjectPaymentRejected     = "payment.rejected"
	SubjectAttendanceMarked    = "attendance.marked"
)

// EventPublishedEvent announces that an event went public.
type EventPublishedEvent struct {
	EventID   uuid.UUID `json:"event_id"`
	Name      string    `json:"name"`
	Type      EventType `json:"type"`
	StartAt   time.Time `json:"start_at"`
	Timestamp time.Time `json:"timestamp"`
}

// RegistrationCreatedEvent announces a new registration.
type RegistrationCreatedEvent struct {
	RegistrationID uuid.UUID `json:"registration_id"`
	EventID        uuid.UUID `json:"event_id"`
	ParticipantID  uuid.UUID `json:"participant_id"`
	Timestamp      time.Time `json:"timestamp"`
}

// TicketIssuedEvent carries everything the mailer needs to deliver a
// ticket, so consumers never read the database.
type TicketIssuedEvent struct {
	RegistrationID   uuid.UUID `json:"registration_id"`
	EventID          uuid.UUID `json:"event_id"`
	EventName        string    `json:"event_name"`
	ParticipantEmail string    `json:"participant_email"`
	Ticket           string    `json:"ticket"`
	Timestamp        time.Time `json:"timestamp"`
}

// PaymentApprovedEvent announces an approved merchandise order.
type PaymentApprovedEvent struct {
	RegistrationID uuid.UUID `json:"registration_id"`
	EventID        uuid.UUID `json:"event_id"`
	VariantName    string    `json:"variant_name"`
	Quantity       int       `json:"quantity"`
	TotalAmount    int64     `json:"total_amount"`
	Timestamp      time.Time `json:"timestamp"`
}

// PaymentRejectedEvent announces a rejected merchandise order.
type PaymentRejectedEvent struct {
	RegistrationID   uuid.UUID `json:"registration_id"`
	EventID          uuid.UUID `json:"event_id"`
	ParticipantEmail string    `json:"participant_email"`
	Notes            string    `json:"notes"`
	Timestamp        time.Time `json:"timestamp"`
}

// AttendanceMarkedEvent announces a participant was marked attended.
type AttendanceMarkedEvent struct {
	RegistrationID uuid.UUID `json:"registration_id"`
	EventID        uuid.UUID `json:"event_id"`
	ManualOverride bool      `json:"manual_override"`
	Timestamp      time.Time `json:"timestamp"`
}
