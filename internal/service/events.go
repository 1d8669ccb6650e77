package service

import (
	"context"
	"fmt"
	"time"

	"felicity/internal/apperrors"
	"felicity/internal/logger"
	"felicity/internal/middleware"
	"felicity/internal/models"

	"github.com/google/uuid"
)

type EventService struct {
	events    EventStore
	search    Searcher
	publisher Publisher
}

func NewEventService(events EventStore, search Searcher, publisher Publisher) *EventService {
	return &EventService{
		events:    events,
		search:    search,
		publisher: publisher,
	}
}

// Create makes a new draft event owned by the calling organizer.
func (s *EventService) Create(ctx context.Context, principal middleware.Principal, req *models.CreateEventRequest) (*models.CreateEventResponse, error) {
	if req.Type != models.EventTypeNormal && req.Type != models.EventTypeMerchandise {
		return nil, apperrors.Validation(fmt.Sprintf("unknown event type %q", req.Type))
	}
	if req.Type == models.EventTypeMerchandise && len(req.Variants) == 0 {
		return nil, apperrors.Validation("a merchandise event needs at least one variant")
	}
	if req.Type == models.EventTypeNormal && len(req.Variants) > 0 {
		return nil, apperrors.Validation("variants are only valid on merchandise events")
	}
	if req.Type == models.EventTypeMerchandise && len(req.FormFields) > 0 {
		return nil, apperrors.Validation("custom form fields are only valid on normal events")
	}
	if !req.EndAt.After(req.StartAt) {
		return nil, apperrors.Validation("event must end after it starts")
	}

	event := &models.Event{
		OrganizerID:          principal.ID,
		Name:                 req.Name,
		Description:          req.Description,
		Type:                 req.Type,
		Eligibility:          req.Eligibility,
		StartAt:              req.StartAt,
		EndAt:                req.EndAt,
		RegistrationDeadline: req.RegistrationDeadline,
		Location:             req.Location,
		MaxParticipants:      req.MaxParticipants,
		Fee:                  req.Fee,
		Status:               models.EventDraft,
		FormFields:           req.FormFields,
	}

	for _, v := range req.Variants {
		event.Variants = append(event.Variants, models.MerchVariant{
			Name:  v.Name,
			Price: v.Price,
			Stock: v.Stock,
		})
	}

	if err := s.events.Create(ctx, event); err != nil {
		return nil, fmt.Errorf("failed to create event: %w", err)
	}

	return &models.CreateEventResponse{ID: event.ID}, nil
}

// Get returns an event. Drafts are only visible to their organizer.
func (s *EventService) Get(ctx context.Context, principal middleware.Principal, id uuid.UUID) (*models.Event, error) {
	event, err := s.events.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	if event == nil {
		return nil, apperrors.NotFound("event")
	}
	if event.Status == models.EventDraft && event.OrganizerID != principal.ID {
		return nil, apperrors.NotFound("event")
	}

	return event, nil
}

// List returns published events. Text queries go through the search
// index when available; plain listings and search failures fall back to
// the database.
func (s *EventService) List(ctx context.Context, query string, page, pageSize int) ([]models.ListEventsResponseItem, error) {
	var events []models.Event
	var err error

	if query != "" && s.search != nil {
		events, err = s.search.Search(ctx, query, page, pageSize)
		if err != nil {
			logger.WithContext(ctx).Error("Event search failed, falling back to database",
				"error", err,
				"query", query)
			events = nil
		}
	}

	if events == nil {
		events, err = s.events.List(ctx, models.EventPublished, page, pageSize)
		if err != nil {
			return nil, fmt.Errorf("failed to list events: %w", err)
		}
	}

	result := make([]models.ListEventsResponseItem, len(events))
	for i, event := range events {
		result[i] = models.ListEventsResponseItem{
			ID:              event.ID,
			Name:            event.Name,
			Type:            event.Type,
			StartAt:         event.StartAt,
			Location:        event.Location,
			Fee:             event.Fee,
			Status:          event.Status,
			MaxParticipants: event.MaxParticipants,
			RegisteredCount: event.RegisteredCount,
		}
	}

	return result, nil
}

// ListMine returns every event the calling organizer owns, drafts
// included.
func (s *EventService) ListMine(ctx context.Context, principal middleware.Principal) ([]models.Event, error) {
	events, err := s.events.ListByOrganizer(ctx, principal.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list organizer events: %w", err)
	}
	return events, nil
}

// Update applies a partial update, filtered by the per-status field
// allow-list. Disallowed fields are dropped silently; a request that
// carries nothing applicable is rejected.
func (s *EventService) Update(ctx context.Context, principal middleware.Principal, id uuid.UUID, req *models.UpdateEventRequest) (*models.Event, error) {
	event, err := s.events.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	if event == nil {
		return nil, apperrors.NotFound("event")
	}
	if event.OrganizerID != principal.ID {
		return nil, apperrors.Forbidden()
	}

	applied := 0
	requested := 0

	apply := func(field string, set func()) {
		requested++
		if models.FieldEditable(event.Status, field) {
			set()
			applied++
		}
	}

	if req.Name != nil {
		apply("name", func() { event.Name = *req.Name })
	}
	if req.Description != nil {
		apply("description", func() { event.Description = *req.Description })
	}
	if req.Eligibility != nil {
		apply("eligibility", func() { event.Eligibility = *req.Eligibility })
	}
	if req.StartAt != nil {
		apply("start_at", func() { event.StartAt = *req.StartAt })
	}
	if req.EndAt != nil {
		apply("end_at", func() { event.EndAt = *req.EndAt })
	}
	if req.RegistrationDeadline != nil {
		apply("registration_deadline", func() { event.RegistrationDeadline = req.RegistrationDeadline })
	}
	if req.Location != nil {
		apply("location", func() { event.Location = *req.Location })
	}
	if req.MaxParticipants != nil {
		apply("max_participants", func() { event.MaxParticipants = *req.MaxParticipants })
	}
	if req.Fee != nil {
		apply("fee", func() { event.Fee = *req.Fee })
	}
	if req.FormFields != nil {
		apply("form_fields", func() { event.FormFields = req.FormFields })
	}

	if requested == 0 {
		return event, nil
	}
	if applied == 0 {
		return nil, apperrors.FieldNotEditable(string(event.Status))
	}

	if event.MaxParticipants < 1 {
		return nil, apperrors.Validation("max_participants must be at least 1")
	}
	if event.MaxParticipants < event.RegisteredCount {
		return nil, apperrors.Validation(fmt.Sprintf(
			"max_participants cannot drop below the %d existing registrations", event.RegisteredCount))
	}

	if err := s.events.Update(ctx, event); err != nil {
		return nil, fmt.Errorf("failed to update event: %w", err)
	}

	s.reindex(ctx, event)

	return event, nil
}

// Transition moves an event along its lifecycle. Publishing emits an
// announcement; the announcement failing never rolls back the publish.
func (s *EventService) Transition(ctx context.Context, principal middleware.Principal, id uuid.UUID, requested models.EventStatus) (*models.Event, error) {
	if !models.ValidEventStatus(requested) {
		return nil, apperrors.Validation(fmt.Sprintf("unknown event status %q", requested))
	}

	event, err := s.events.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	if event == nil {
		return nil, apperrors.NotFound("event")
	}
	if event.OrganizerID != principal.ID {
		return nil, apperrors.Forbidden()
	}

	next, err := models.ApplyTransition(event.Status, requested)
	if err != nil {
		return nil, err
	}

	ok, err := s.events.UpdateStatus(ctx, id, event.Status, next)
	if err != nil {
		return nil, fmt.Errorf("failed to update event status: %w", err)
	}
	if !ok {
		// Lost a race with another transition; report against the fresh
		// status.
		fresh, err := s.events.GetByID(ctx, id)
		if err != nil || fresh == nil {
			return nil, apperrors.InvalidTransition(string(event.Status), string(requested))
		}
		return nil, apperrors.InvalidTransition(string(fresh.Status), string(requested))
	}
	event.Status = next

	switch next {
	case models.EventPublished:
		if s.publisher != nil {
			announcement := models.EventPublishedEvent{
				EventID:   event.ID,
				Name:      event.Name,
				Type:      event.Type,
				StartAt:   event.StartAt,
				Timestamp: time.Now(),
			}
			if err := s.publisher.Publish(models.SubjectEventPublished, announcement); err != nil {
				logger.WithContext(ctx).Error("Failed to publish event announcement",
					"error", err,
					"event_id", event.ID,
					"event_type", models.SubjectEventPublished)
			}
		}
		s.reindex(ctx, event)
	case models.EventClosed:
		if s.search != nil {
			if err := s.search.Delete(ctx, event.ID); err != nil {
				logger.WithContext(ctx).Error("Failed to remove event from search index",
					"error", err,
					"event_id", event.ID)
			}
		}
	}

	return event, nil
}

// Delete removes a draft event. Anything past draft is refused.
func (s *EventService) Delete(ctx context.Context, principal middleware.Principal, id uuid.UUID) error {
	event, err := s.events.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to get event: %w", err)
	}
	if event == nil {
		return apperrors.NotFound("event")
	}
	if event.OrganizerID != principal.ID {
		return apperrors.Forbidden()
	}
	if event.Status != models.EventDraft {
		return apperrors.DeletionNotAllowed(string(event.Status))
	}

	ok, err := s.events.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to delete event: %w", err)
	}
	if !ok {
		// Published between our check and the delete.
		fresh, err := s.events.GetByID(ctx, id)
		if err != nil || fresh == nil {
			return apperrors.NotFound("event")
		}
		return apperrors.DeletionNotAllowed(string(fresh.Status))
	}

	return nil
}

// reindex pushes the current event document to the search index, best
// effort.
func (s *EventService) reindex(ctx context.Context, event *models.Event) {
	if s.search == nil || event.Status != models.EventPublished {
		return
	}
	if err := s.search.Index(ctx, event); err != nil {
		logger.WithContext(ctx).Error("Failed to index event",
			"error", err,
			"event_id", event.ID)
	}
}
