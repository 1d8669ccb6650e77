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

// PaymentService handles the merchandise payment approval workflow:
// proof upload by the participant, approve or reject by the organizer.
type PaymentService struct {
	events    EventStore
	regs      RegistrationStore
	blobs     BlobStore
	signer    *ticket.Signer
	publisher Publisher
}

func NewPaymentService(events EventStore, regs RegistrationStore, blobs BlobStore, signer *ticket.Signer, publisher Publisher) *PaymentService {
	return &PaymentService{
		events:    events,
		regs:      regs,
		blobs:     blobs,
		signer:    signer,
		publisher: publisher,
	}
}

// UploadProof stores a payment proof blob and moves the order into
// pending_approval. Allowed from pending or rejected, so a participant
// can re-submit after a rejection.
func (s *PaymentService) UploadProof(ctx context.Context, principal middleware.Principal, regID uuid.UUID, data []byte) (*models.UploadProofResponse, error) {
	if s.blobs == nil {
		return nil, fmt.Errorf("proof storage is not configured")
	}
	if len(data) == 0 {
		return nil, apperrors.Validation("proof file is empty")
	}

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
	if reg.Status == models.RegistrationCancelled {
		return nil, apperrors.AlreadyCancelled()
	}
	if reg.Type != models.EventTypeMerchandise {
		return nil, apperrors.Validation("registration does not require payment")
	}
	if !models.CanUploadProof(reg.PaymentStatus) {
		return nil, apperrors.Validation(fmt.Sprintf("proof cannot be uploaded while payment is %s", reg.PaymentStatus))
	}

	ref, err := s.blobs.Put(data)
	if err != nil {
		return nil, fmt.Errorf("failed to store proof: %w", err)
	}

	ok, err := s.regs.SetProof(ctx, reg.ID, ref, time.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to record proof: %w", err)
	}
	if !ok {
		// Raced with an approve, reject or cancel since the read above.
		fresh, err := s.regs.GetByID(ctx, reg.ID)
		if err == nil && fresh != nil {
			return nil, apperrors.Validation(fmt.Sprintf("proof cannot be uploaded while payment is %s", fresh.PaymentStatus))
		}
		return nil, apperrors.Validation("proof cannot be uploaded in the current state")
	}

	return &models.UploadProofResponse{
		ProofRef:      ref,
		PaymentStatus: models.PaymentPendingApproval,
	}, nil
}

// ProofImage returns the stored proof blob to the event's organizer.
func (s *PaymentService) ProofImage(ctx context.Context, principal middleware.Principal, regID uuid.UUID) ([]byte, error) {
	if s.blobs == nil {
		return nil, fmt.Errorf("proof storage is not configured")
	}

	reg, err := s.regs.GetByID(ctx, regID)
	if err != nil {
		return nil, fmt.Errorf("failed to get registration: %w", err)
	}
	if reg == nil {
		return nil, apperrors.NotFound("registration")
	}

	if err := s.requireOrganizer(ctx, principal, reg.EventID); err != nil {
		return nil, err
	}
	if reg.ProofRef == nil {
		return nil, apperrors.NotFound("payment proof")
	}

	return s.blobs.Get(*reg.ProofRef)
}

// Approve confirms a payment: issues the ticket and decrements variant
// stock atomically with the status flip.
func (s *PaymentService) Approve(ctx context.Context, principal middleware.Principal, req *models.ApprovePaymentRequest) error {
	reg, err := s.regs.GetByID(ctx, req.RegistrationID)
	if err != nil {
		return fmt.Errorf("failed to get registration: %w", err)
	}
	if reg == nil {
		return apperrors.NotFound("registration")
	}

	if err := s.requireOrganizer(ctx, principal, reg.EventID); err != nil {
		return err
	}
	if reg.Status == models.RegistrationCancelled {
		return apperrors.AlreadyCancelled()
	}
	if reg.PaymentStatus != models.PaymentPendingApproval {
		return apperrors.NotPendingApproval(string(reg.PaymentStatus))
	}

	event, err := s.events.GetByID(ctx, reg.EventID)
	if err != nil {
		return fmt.Errorf("failed to get event: %w", err)
	}
	if event == nil {
		return apperrors.NotFound("event")
	}

	now := time.Now()
	encoded, err := s.signer.Encode(ticket.Payload{
		RegistrationID:   reg.ID,
		EventID:          reg.EventID,
		EventName:        event.Name,
		ParticipantID:    reg.ParticipantID,
		ParticipantName:  reg.ParticipantName,
		ParticipantEmail: reg.ParticipantEmail,
		RegisteredAt:     reg.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("failed to issue ticket: %w", err)
	}

	if err := s.regs.ApproveOrder(ctx, reg, principal.ID, req.Notes, encoded, now); err != nil {
		return err
	}

	s.publish(ctx, models.SubjectPaymentApproved, models.PaymentApprovedEvent{
		RegistrationID: reg.ID,
		EventID:        reg.EventID,
		VariantName:    reg.VariantName,
		Quantity:       reg.Quantity,
		TotalAmount:    reg.TotalAmount,
		Timestamp:      now,
	})
	s.publish(ctx, models.SubjectTicketIssued, models.TicketIssuedEvent{
		RegistrationID:   reg.ID,
		EventID:          reg.EventID,
		EventName:        event.Name,
		ParticipantEmail: reg.ParticipantEmail,
		Ticket:           encoded,
		Timestamp:        now,
	})

	return nil
}

// Reject sends a payment back to the participant with a reason. The
// participant can upload a fresh proof afterwards.
func (s *PaymentService) Reject(ctx context.Context, principal middleware.Principal, req *models.RejectPaymentRequest) error {
	reg, err := s.regs.GetByID(ctx, req.RegistrationID)
	if err != nil {
		return fmt.Errorf("failed to get registration: %w", err)
	}
	if reg == nil {
		return apperrors.NotFound("registration")
	}

	if err := s.requireOrganizer(ctx, principal, reg.EventID); err != nil {
		return err
	}
	if reg.Status == models.RegistrationCancelled {
		return apperrors.AlreadyCancelled()
	}
	if reg.PaymentStatus != models.PaymentPendingApproval {
		return apperrors.NotPendingApproval(string(reg.PaymentStatus))
	}

	notes := req.Notes
	if notes == "" {
		notes = "payment proof rejected"
	}

	now := time.Now()
	ok, err := s.regs.Reject(ctx, reg.ID, principal.ID, notes, now)
	if err != nil {
		return fmt.Errorf("failed to reject payment: %w", err)
	}
	if !ok {
		fresh, err := s.regs.GetByID(ctx, reg.ID)
		if err == nil && fresh != nil {
			return apperrors.NotPendingApproval(string(fresh.PaymentStatus))
		}
		return apperrors.NotPendingApproval(string(reg.PaymentStatus))
	}

	s.publish(ctx, models.SubjectPaymentRejected, models.PaymentRejectedEvent{
		RegistrationID:   reg.ID,
		EventID:          reg.EventID,
		ParticipantEmail: reg.ParticipantEmail,
		Notes:            notes,
		Timestamp:        now,
	})

	return nil
}

func (s *PaymentService) requireOrganizer(ctx context.Context, principal middleware.Principal, eventID uuid.UUID) error {
	event, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		return fmt.Errorf("failed to get event: %w", err)
	}
	if event == nil {
		return apperrors.NotFound("event")
	}
	if event.OrganizerID != principal.ID {
		return apperrors.Forbidden()
	}
	return nil
}

func (s *PaymentService) publish(ctx context.Context, subject string, data interface{}) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(subject, data); err != nil {
		logger.WithContext(ctx).Error("Failed to publish event",
			"error", err,
			"event_type", subject)
	}
}
