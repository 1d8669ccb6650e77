package service

import (
	"context"
	"fmt"
	"time"

	"felicity/internal/apperrors"
	"felicity/internal/logger"
	"felicity/internal/middleware"
	"felicity/internal/models"
	"felicity/internal/ticket"

	"github.com/google/uuid"
)

type RegistrationService struct {
	events    EventStore
	regs      RegistrationStore
	signer    *ticket.Signer
	publisher Publisher
}

func NewRegistrationService(events EventStore, regs RegistrationStore, signer *ticket.Signer, publisher Publisher) *RegistrationService {
	return &RegistrationService{
		events:    events,
		regs:      regs,
		signer:    signer,
		publisher: publisher,
	}
}

// Register runs the full registration guard chain and creates the
// registration. Normal registrations get their ticket immediately;
// merchandise orders wait for payment approval.
func (s *RegistrationService) Register(ctx context.Context, principal middleware.Principal, req *models.CreateRegistrationRequest) (*models.CreateRegistrationResponse, error) {
	event, err := s.events.GetByID(ctx, req.EventID)
	if err != nil {
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	if event == nil {
		return nil, apperrors.NotFound("event")
	}
	if event.Status != models.EventPublished {
		return nil, apperrors.EventNotOpen(string(event.Status))
	}
	if event.RegistrationDeadline != nil && time.Now().After(*event.RegistrationDeadline) {
		return nil, apperrors.DeadlinePassed()
	}

	// Pre-check for an existing active registration. The partial unique
	// index remains the authoritative guard; this just gives the common
	// case a clean error without burning a capacity slot.
	existing, err := s.regs.GetActive(ctx, req.EventID, principal.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing registration: %w", err)
	}
	if existing != nil {
		return nil, apperrors.DuplicateRegistration()
	}

	reg := &models.Registration{
		ID:               uuid.New(),
		EventID:          event.ID,
		ParticipantID:    principal.ID,
		ParticipantName:  principal.Name,
		ParticipantEmail: principal.Email,
		Type:             event.Type,
		Status:           models.RegistrationRegistered,
	}

	switch event.Type {
	case models.EventTypeNormal:
		if err := validateResponses(event.FormFields, req.Responses); err != nil {
			return nil, err
		}
		reg.Responses = req.Responses
		reg.PaymentStatus = models.PaymentNotRequired

	case models.EventTypeMerchandise:
		if req.Quantity < 1 {
			return nil, apperrors.Validation("quantity must be at least 1")
		}
		variant, err := s.events.GetVariant(ctx, event.ID, req.Variant)
		if err != nil {
			return nil, fmt.Errorf("failed to get variant: %w", err)
		}
		if variant == nil {
			return nil, apperrors.InvalidVariant(req.Variant)
		}
		// Advisory check only. Stock is not reserved here; the
		// authoritative decrement happens at payment approval.
		if variant.Stock < req.Quantity {
			return nil, apperrors.InsufficientStock(variant.Name)
		}
		reg.VariantName = variant.Name
		reg.Quantity = req.Quantity
		reg.TotalAmount = variant.Price * int64(req.Quantity)
		reg.PaymentStatus = models.PaymentPending
	}

	// Atomically claim a capacity slot before inserting.
	reserved, err := s.events.ReserveCapacity(ctx, event.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to reserve capacity: %w", err)
	}
	if !reserved {
		return nil, apperrors.EventFull(event.MaxParticipants)
	}

	if event.Type == models.EventTypeNormal {
		encoded, err := s.issueTicket(reg, event.Name)
		if err != nil {
			s.releaseCapacity(ctx, event.ID)
			return nil, err
		}
		reg.Ticket = &encoded
	}

	if err := s.regs.Create(ctx, reg); err != nil {
		s.releaseCapacity(ctx, event.ID)
		return nil, err
	}

	s.publish(ctx, models.SubjectRegistrationCreated, models.RegistrationCreatedEvent{
		RegistrationID: reg.ID,
		EventID:        reg.EventID,
		ParticipantID:  reg.ParticipantID,
		Timestamp:      time.Now(),
	})

	if reg.Ticket != nil {
		s.publish(ctx, models.SubjectTicketIssued, models.TicketIssuedEvent{
			RegistrationID:   reg.ID,
			EventID:          reg.EventID,
			EventName:        event.Name,
			ParticipantEmail: reg.ParticipantEmail,
			Ticket:           *reg.Ticket,
			Timestamp:        time.Now(),
		})
	}

	return &models.CreateRegistrationResponse{
		ID:            reg.ID,
		PaymentStatus: reg.PaymentStatus,
		TotalAmount:   reg.TotalAmount,
	}, nil
}

// List returns the caller's registrations, newest first.
func (s *RegistrationService) List(ctx context.Context, principal middleware.Principal) ([]models.Registration, error) {
	regs, err := s.regs.ListByParticipant(ctx, principal.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list registrations: %w", err)
	}
	return regs, nil
}

// ListForEvent returns every registration of an event to its organizer.
func (s *RegistrationService) ListForEvent(ctx context.Context, principal middleware.Principal, eventID uuid.UUID) ([]models.Registration, error) {
	event, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	if event == nil {
		return nil, apperrors.NotFound("event")
	}
	if event.OrganizerID != principal.ID {
		return nil, apperrors.Forbidden()
	}

	regs, err := s.regs.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to list registrations: %w", err)
	}
	return regs, nil
}

// Cancel terminates a registration. Only the participant who holds it
// may cancel, and only while it is still in the registered state.
func (s *RegistrationService) Cancel(ctx context.Context, principal middleware.Principal, req *models.CancelRegistrationRequest) error {
	reg, err := s.regs.GetByID(ctx, req.RegistrationID)
	if err != nil {
		return fmt.Errorf("failed to get registration: %w", err)
	}
	if reg == nil {
		return apperrors.NotFound("registration")
	}
	if reg.ParticipantID != principal.ID {
		return apperrors.Forbidden()
	}
	if reg.Status == models.RegistrationCancelled {
		return apperrors.AlreadyCancelled()
	}
	if reg.Status == models.RegistrationAttended {
		return apperrors.Validation("an attended registration cannot be cancelled")
	}

	ok, err := s.regs.Cancel(ctx, reg.ID)
	if err != nil {
		return fmt.Errorf("failed to cancel registration: %w", err)
	}
	if !ok {
		// Raced with a scan or another cancel; report against fresh state.
		fresh, err := s.regs.GetByID(ctx, reg.ID)
		if err == nil && fresh != nil && fresh.Status == models.RegistrationCancelled {
			return apperrors.AlreadyCancelled()
		}
		return apperrors.Validation("an attended registration cannot be cancelled")
	}

	return nil
}

// TicketPNG renders the caller's ticket as a QR image.
func (s *RegistrationService) TicketPNG(ctx context.Context, principal middleware.Principal, regID uuid.UUID, size int) ([]byte, error) {
	reg, err := s.regs.GetByID(ctx, regID)
	if err != nil {
		return nil, fmt.Errorf("failed to get registration: %w", err)
	}
	if reg == nil {
		return nil, apperrors.NotFound("registration")
	}
	if reg.ParticipantID != principal.ID {
		return nil, apperrors.Forbidden()
	}
	if reg.Ticket == nil {
		return nil, apperrors.NotFound("ticket")
	}

	png, err := ticket.RenderPNG(*reg.Ticket, size)
	if err != nil {
		return nil, fmt.Errorf("failed to render ticket: %w", err)
	}
	return png, nil
}

func (s *RegistrationService) issueTicket(reg *models.Registration, eventName string) (string, error) {
	encoded, err := s.signer.Encode(ticket.Payload{
		RegistrationID:   reg.ID,
		EventID:          reg.EventID,
		EventName:        eventName,
		ParticipantID:    reg.ParticipantID,
		ParticipantName:  reg.ParticipantName,
		ParticipantEmail: reg.ParticipantEmail,
		RegisteredAt:     time.Now(),
	})
	if err != nil {
		return "", fmt.Errorf("failed to issue ticket: %w", err)
	}
	return encoded, nil
}

func (s *RegistrationService) releaseCapacity(ctx context.Context, eventID uuid.UUID) {
	if err := s.events.ReleaseCapacity(ctx, eventID); err != nil {
		logger.WithContext(ctx).Error("Failed to release capacity slot",
			"error", err,
			"event_id", eventID)
	}
}

func (s *RegistrationService) publish(ctx context.Context, subject string, data interface{}) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(subject, data); err != nil {
		logger.WithContext(ctx).Error("Failed to publish event",
			"error", err,
			"event_type", subject)
	}
}

// validateResponses checks answers against the event's form fields.
func validateResponses(fields []models.FormField, responses []models.FieldResponse) error {
	byField := make(map[string]string, len(responses))
	for _, r := range responses {
		byField[r.Field] = r.Response
	}

	known := make(map[string]bool, len(fields))
	for _, f := range fields {
		known[f.Name] = true
		if f.Required && byField[f.Name] == "" {
			return apperrors.Validation(fmt.Sprintf("required field %q is missing", f.Name))
		}
	}

	for _, r := range responses {
		if !known[r.Field] {
			return apperrors.Validation(fmt.Sprintf("unknown form field %q", r.Field))
		}
	}

	return nil
}
