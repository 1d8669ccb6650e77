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
)

// AttendanceService marks participants attended, either by scanning
// their QR ticket or by a manual organizer override.
type AttendanceService struct {
	events    EventStore
	regs      RegistrationStore
	signer    *ticket.Signer
	publisher Publisher
}

func NewAttendanceService(events EventStore, regs RegistrationStore, signer *ticket.Signer, publisher Publisher) *AttendanceService {
	return &AttendanceService{
		events:    events,
		regs:      regs,
		signer:    signer,
		publisher: publisher,
	}
}

// Scan verifies a presented ticket and marks the holder attended. Scan
// never fails the request over a bad ticket; the outcome is the payload.
// A second scan of the same ticket reports duplicate, not valid.
func (s *AttendanceService) Scan(ctx context.Context, principal middleware.Principal, req *models.ScanRequest) (*models.ScanResponse, error) {
	event, err := s.events.GetByID(ctx, req.EventID)
	if err != nil {
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	if event == nil {
		return nil, apperrors.NotFound("event")
	}
	if event.OrganizerID != principal.ID && principal.Role != middleware.RoleAdmin {
		return nil, apperrors.Forbidden()
	}
	if event.Status != models.EventOngoing {
		return nil, apperrors.Validation(fmt.Sprintf("attendance is only tracked while the event is ongoing, not %s", event.Status))
	}

	payload, err := s.signer.Verify(req.Ticket, req.EventID)
	if err != nil {
		// Forged, malformed and wrong-event tickets all read the same
		// to the scanner.
		return invalidScan("invalid ticket"), nil
	}

	reg, err := s.regs.GetByID(ctx, payload.RegistrationID)
	if err != nil {
		return nil, fmt.Errorf("failed to get registration: %w", err)
	}
	if reg == nil || reg.EventID != req.EventID {
		return invalidScan("invalid ticket"), nil
	}
	if reg.Status == models.RegistrationCancelled {
		return invalidScan("registration cancelled"), nil
	}
	if reg.Status == models.RegistrationAttended {
		return duplicateScan(reg), nil
	}
	if !models.CanAttend(reg.PaymentStatus) {
		return invalidScan("payment not approved"), nil
	}

	now := time.Now()
	ok, err := s.regs.MarkAttended(ctx, reg.ID, principal.ID, false, "", now)
	if err != nil {
		return nil, fmt.Errorf("failed to mark attendance: %w", err)
	}
	if !ok {
		// Lost a race with a concurrent scan or a cancel.
		fresh, err := s.regs.GetByID(ctx, reg.ID)
		if err == nil && fresh != nil && fresh.Status == models.RegistrationAttended {
			return duplicateScan(fresh), nil
		}
		return invalidScan("registration cancelled"), nil
	}

	s.publish(ctx, models.SubjectAttendanceMarked, models.AttendanceMarkedEvent{
		RegistrationID: reg.ID,
		EventID:        reg.EventID,
		ManualOverride: false,
		Timestamp:      now,
	})

	return &models.ScanResponse{
		Result:          models.ScanValid,
		RegistrationID:  reg.ID,
		ParticipantName: reg.ParticipantName,
		AttendedAt:      &now,
	}, nil
}

// Override marks a registration attended without a ticket, for dead
// phones and lost mails. The recorded reason is mandatory.
func (s *AttendanceService) Override(ctx context.Context, principal middleware.Principal, req *models.OverrideRequest) (*models.ScanResponse, error) {
	reg, err := s.regs.GetByID(ctx, req.RegistrationID)
	if err != nil {
		return nil, fmt.Errorf("failed to get registration: %w", err)
	}
	if reg == nil {
		return nil, apperrors.NotFound("registration")
	}

	event, err := s.events.GetByID(ctx, reg.EventID)
	if err != nil {
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	if event == nil {
		return nil, apperrors.NotFound("event")
	}
	if event.OrganizerID != principal.ID && principal.Role != middleware.RoleAdmin {
		return nil, apperrors.Forbidden()
	}
	if event.Status != models.EventOngoing {
		return nil, apperrors.Validation(fmt.Sprintf("attendance is only tracked while the event is ongoing, not %s", event.Status))
	}
	if reg.Status == models.RegistrationCancelled {
		return nil, apperrors.AlreadyCancelled()
	}
	if reg.Status == models.RegistrationAttended {
		return duplicateScan(reg), nil
	}
	if !models.CanAttend(reg.PaymentStatus) {
		return invalidScan("payment not approved"), nil
	}

	now := time.Now()
	ok, err := s.regs.MarkAttended(ctx, reg.ID, principal.ID, true, req.Reason, now)
	if err != nil {
		return nil, fmt.Errorf("failed to mark attendance: %w", err)
	}
	if !ok {
		fresh, err := s.regs.GetByID(ctx, reg.ID)
		if err == nil && fresh != nil && fresh.Status == models.RegistrationAttended {
			return duplicateScan(fresh), nil
		}
		return nil, apperrors.AlreadyCancelled()
	}

	s.publish(ctx, models.SubjectAttendanceMarked, models.AttendanceMarkedEvent{
		RegistrationID: reg.ID,
		EventID:        reg.EventID,
		ManualOverride: true,
		Timestamp:      now,
	})

	return &models.ScanResponse{
		Result:          models.ScanValid,
		RegistrationID:  reg.ID,
		ParticipantName: reg.ParticipantName,
		AttendedAt:      &now,
	}, nil
}

func (s *AttendanceService) publish(ctx context.Context, subject string, data interface{}) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(subject, data); err != nil {
		logger.WithContext(ctx).Error("Failed to publish event",
			"error", err,
			"event_type", subject)
	}
}

func invalidScan(reason string) *models.ScanResponse {
	return &models.ScanResponse{Result: models.ScanInvalid, Reason: reason}
}

func duplicateScan(reg *models.Registration) *models.ScanResponse {
	return &models.ScanResponse{
		Result:          models.ScanDuplicate,
		RegistrationID:  reg.ID,
		ParticipantName: reg.ParticipantName,
		AttendedAt:      reg.AttendedAt,
	}
}
