package models

import (
	"time"

	"github.com/google/uuid"
)

// CreateEventRequest - request body for creating a draft event
type CreateEventRequest struct {
	Name                 string         `json:"name" binding:"required"`
	Description          string         `json:"description"`
	Type                 EventType      `json:"type" binding:"required"`
	Eligibility          string         `json:"eligibility"`
	StartAt              time.Time      `json:"start_at" binding:"required"`
	EndAt                time.Time      `json:"end_at" binding:"required"`
	RegistrationDeadline *time.Time     `json:"registration_deadline"`
	Location             string         `json:"location"`
	MaxParticipants      int            `json:"max_participants" binding:"required,min=1"`
	Fee                  int64          `json:"fee" binding:"min=0"`
	FormFields           []FormField    `json:"form_fields"`
	Variants             []VariantInput `json:"variants"`
}

// VariantInput - one merchandise variant in a create request
type VariantInput struct {
	Name  string `json:"name" binding:"required"`
	Price int64  `json:"price" binding:"min=0"`
	Stock int    `json:"stock" binding:"min=0"`
}

// CreateEventResponse - response body when an event is created
type CreateEventResponse struct {
	ID uuid.UUID `json:"id"`
}

// UpdateEventRequest - partial update of an event. Pointers distinguish
// "absent" from zero values; fields outside the per-status allow-list
// are dropped, not rejected.
type UpdateEventRequest struct {
	Name                 *string     `json:"name"`
	Description          *string     `json:"description"`
	Eligibility          *string     `json:"eligibility"`
	StartAt              *time.Time  `json:"start_at"`
	EndAt                *time.Time  `json:"end_at"`
	RegistrationDeadline *time.Time  `json:"registration_deadline"`
	Location             *string     `json:"location"`
	MaxParticipants      *int        `json:"max_participants"`
	Fee                  *int64      `json:"fee"`
	FormFields           []FormField `json:"form_fields"`
}

// TransitionEventRequest - requested status change for an event
type TransitionEventRequest struct {
	Status EventStatus `json:"status" binding:"required"`
}

// ListEventsResponseItem - one event in a listing
type ListEventsResponseItem struct {
	ID              uuid.UUID   `json:"id"`
	Name            string      `json:"name"`
	Type            EventType   `json:"type"`
	StartAt         time.Time   `json:"start_at"`
	Location        string      `json:"location"`
	Fee             int64       `json:"fee"`
	Status          EventStatus `json:"status"`
	MaxParticipants int         `json:"max_participants"`
	RegisteredCount int         `json:"registered_count"`
}

// ListEventsResponse - list of events
type ListEventsResponse []ListEventsResponseItem

// CreateRegistrationRequest - request body for registering to an event
type CreateRegistrationRequest struct {
	EventID   uuid.UUID       `json:"event_id" binding:"required"`
	Responses []FieldResponse `json:"responses"`
	Variant   string          `json:"variant"`
	Quantity  int             `json:"quantity"`
}

// CreateRegistrationResponse - response body when a registration is created
type CreateRegistrationResponse struct {
	ID            uuid.UUID     `json:"id"`
	PaymentStatus PaymentStatus `json:"payment_status"`
	TotalAmount   int64         `json:"total_amount"`
}

// CancelRegistrationRequest - request body for cancelling a registration
type CancelRegistrationRequest struct {
	RegistrationID uuid.UUID `json:"registration_id" binding:"required"`
}

// ApprovePaymentRequest - organizer approval of a merchandise order
type ApprovePaymentRequest struct {
	RegistrationID uuid.UUID `json:"registration_id" binding:"required"`
	Notes          string    `json:"notes"`
}

// RejectPaymentRequest - organizer rejection of a merchandise order
type RejectPaymentRequest struct {
	RegistrationID uuid.UUID `json:"registration_id" binding:"required"`
	Notes          string    `json:"notes"`
}

// UploadProofResponse - response after a payment proof upload
type UploadProofResponse struct {
	ProofRef      string        `json:"proof_ref"`
	PaymentStatus PaymentStatus `json:"payment_status"`
}

// ScanRequest - a ticket presented at the door of an event
type ScanRequest struct {
	EventID uuid.UUID `json:"event_id" binding:"required"`
	Ticket  string    `json:"ticket" binding:"required"`
}

// Scan outcomes.
const (
	ScanValid     = "valid"
	ScanDuplicate = "duplicate"
	ScanInvalid   = "invalid"
)

// ScanResponse - outcome of a ticket scan or manual override
type ScanResponse struct {
	Result          string     `json:"result"`
	Reason          string     `json:"reason,omitempty"`
	RegistrationID  uuid.UUID  `json:"registration_id,omitempty"`
	ParticipantName string     `json:"participant_name,omitempty"`
	AttendedAt      *time.Time `json:"attended_at,omitempty"`
}

// OverrideRequest - manual attendance marking with a justification
type OverrideRequest struct {
	RegistrationID uuid.UUID `json:"registration_id" binding:"required"`
	Reason         string    `json:"reason" binding:"required"`
}
