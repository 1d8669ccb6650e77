package models

import (
	"time"

	"github.com/google/uuid"
)

// EventType distinguishes plain registrations from merchandise sales.
type EventType string

const (
	EventTypeNormal      EventType = "normal"
	EventTypeMerchandise EventType = "merchandise"
)

// FormField is one custom registration form field on a normal event.
type FormField struct {
	Name     string `json:"name"`
	Kind     string `json:"kind"` // text, number, select
	Required bool   `json:"required"`
}

// MerchVariant is a purchasable option of a merchandise event. Stock is
// only decremented at payment approval time, never at registration.
type MerchVariant struct {
	ID      int64     `json:"id" db:"id"`
	EventID uuid.UUID `json:"event_id" db:"event_id"`
	Name    string    `json:"name" db:"name"`
	Price   int64     `json:"price" db:"price"`
	Stock   int       `json:"stock" db:"stock"`
}

// Event represents an event in the system.
type Event struct {
	ID                   uuid.UUID   `json:"id" db:"id"`
	OrganizerID          uuid.UUID   `json:"organizer_id" db:"organizer_id"`
	Name                 string      `json:"name" db:"name"`
	Description          string      `json:"description" db:"description"`
	Type                 EventType   `json:"type" db:"type"`
	Eligibility          string      `json:"eligibility" db:"eligibility"`
	StartAt              time.Time   `json:"start_at" db:"start_at"`
	EndAt                time.Time   `json:"end_at" db:"end_at"`
	RegistrationDeadline *time.Time  `json:"registration_deadline" db:"registration_deadline"`
	Location             string      `json:"location" db:"location"`
	MaxParticipants      int         `json:"max_participants" db:"max_participants"`
	Fee                  int64       `json:"fee" db:"fee"`
	Status               EventStatus `json:"status" db:"status"`
	FormFields           []FormField `json:"form_fields,omitempty" db:"form_fields"`
	RegisteredCount      int         `json:"registered_count" db:"registered_count"`
	AttendanceCount      int         `json:"attendance_count" db:"attendance_count"`
	CreatedAt            time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt            time.Time   `json:"updated_at" db:"updated_at"`

	Variants []MerchVariant `json:"variants,omitempty"` // Not from the events row, filled separately
}

// FieldResponse is one answer to a custom form field.
type FieldResponse struct {
	Field    string `json:"field"`
	Response string `json:"response"`
}

// Registration is one participant's enrollment or merchandise order
// against an event. Participant identity is denormalized at creation
// time so tickets can be issued without a principal lookup.
type Registration struct {
	ID               uuid.UUID          `json:"id" db:"id"`
	EventID          uuid.UUID          `json:"event_id" db:"event_id"`
	ParticipantID    uuid.UUID          `json:"participant_id" db:"participant_id"`
	ParticipantName  string             `json:"participant_name" db:"participant_name"`
	ParticipantEmail string             `json:"participant_email" db:"participant_email"`
	Type             EventType          `json:"type" db:"type"`
	Responses        []FieldResponse    `json:"responses,omitempty" db:"responses"`
	VariantName      string             `json:"variant_name,omitempty" db:"variant_name"`
	Quantity         int                `json:"quantity,omitempty" db:"quantity"`
	TotalAmount      int64              `json:"total_amount" db:"total_amount"`
	Status           RegistrationStatus `json:"status" db:"status"`
	PaymentStatus    PaymentStatus      `json:"payment_status" db:"payment_status"`
	ProofRef         *string            `json:"proof_ref,omitempty" db:"proof_ref"`
	ProofUploadedAt  *time.Time         `json:"proof_uploaded_at,omitempty" db:"proof_uploaded_at"`
	ApprovalNotes    *string            `json:"approval_notes,omitempty" db:"approval_notes"`
	ApprovedBy       *uuid.UUID         `json:"approved_by,omitempty" db:"approved_by"`
	ApprovedAt       *time.Time         `json:"approved_at,omitempty" db:"approved_at"`
	Ticket           *string            `json:"-" db:"ticket"`
	AttendedAt       *time.Time         `json:"attended_at,omitempty" db:"attended_at"`
	ScannedBy        *uuid.UUID         `json:"scanned_by,omitempty" db:"scanned_by"`
	ManualOverride   bool               `json:"manual_override" db:"manual_override"`
	OverrideReason   *string            `json:"override_reason,omitempty" db:"override_reason"`
	CreatedAt        time.Time          `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time          `json:"updated_at" db:"updated_at"`
}
