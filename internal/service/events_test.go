package service

import (
	"context"
	"testing"
	"time"

	"felicity/internal/apperrors"
	"felicity/internal/middleware"
	"felicity/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func organizerPrincipal() middleware.Principal {
	return middleware.Principal{
		ID:    uuid.New(),
		Role:  middleware.RoleOrganizer,
		Name:  "Test Organizer",
		Email: "organizer@felicity.test",
	}
}

func draftEvent(organizerID uuid.UUID) *models.Event {
	start := time.Now().Add(48 * time.Hour)
	return &models.Event{
		OrganizerID:     organizerID,
		Name:            "Robotics Workshop",
		Type:            models.EventTypeNormal,
		StartAt:         start,
		EndAt:           start.Add(3 * time.Hour),
		MaxParticipants: 50,
		Status:          models.EventDraft,
	}
}

func TestCreateEventValidation(t *testing.T) {
	store := newFakeEventStore()
	svc := NewEventService(store, nil, nil)
	organizer := organizerPrincipal()
	start := time.Now().Add(24 * time.Hour)

	tests := []struct {
		name string
		req  models.CreateEventRequest
	}{
		{
			name: "merchandise without variants",
			req: models.CreateEventRequest{
				Name: "Fest Hoodie", Type: models.EventTypeMerchandise,
				StartAt: start, EndAt: start.Add(time.Hour), MaxParticipants: 10,
			},
		},
		{
			name: "normal with variants",
			req: models.CreateEventRequest{
				Name: "Talk", Type: models.EventTypeNormal,
				StartAt: start, EndAt: start.Add(time.Hour), MaxParticipants: 10,
				Variants: []models.VariantInput{{Name: "S"}},
			},
		},
		{
			name: "merchandise with form fields",
			req: models.CreateEventRequest{
				Name: "Fest Hoodie", Type: models.EventTypeMerchandise,
				StartAt: start, EndAt: start.Add(time.Hour), MaxParticipants: 10,
				Variants:   []models.VariantInput{{Name: "S", Price: 500, Stock: 5}},
				FormFields: []models.FormField{{Name: "size", Kind: "text"}},
			},
		},
		{
			name: "ends before it starts",
			req: models.CreateEventRequest{
				Name: "Talk", Type: models.EventTypeNormal,
				StartAt: start, EndAt: start.Add(-time.Hour), MaxParticipants: 10,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), organizer, &tt.req)
			assert.True(t, apperrors.Is(err, apperrors.CodeValidation))
		})
	}
}

func TestCreateEventStartsAsDraft(t *testing.T) {
	store := newFakeEventStore()
	svc := NewEventService(store, nil, nil)
	organizer := organizerPrincipal()
	start := time.Now().Add(24 * time.Hour)

	resp, err := svc.Create(context.Background(), organizer, &models.CreateEventRequest{
		Name: "Talk", Type: models.EventTypeNormal,
		StartAt: start, EndAt: start.Add(time.Hour), MaxParticipants: 10,
	})
	require.NoError(t, err)

	event, err := svc.Get(context.Background(), organizer, resp.ID)
	require.NoError(t, err)
	assert.Equal(t, models.EventDraft, event.Status)
	assert.Equal(t, organizer.ID, event.OrganizerID)
}

func TestGetDraftHiddenFromOthers(t *testing.T) {
	store := newFakeEventStore()
	svc := NewEventService(store, nil, nil)
	organizer := organizerPrincipal()
	event := store.add(draftEvent(organizer.ID))

	_, err := svc.Get(context.Background(), organizerPrincipal(), event.ID)
	assert.True(t, apperrors.Is(err, apperrors.CodeNotFound))

	got, err := svc.Get(context.Background(), organizer, event.ID)
	require.NoError(t, err)
	assert.Equal(t, event.ID, got.ID)
}

func TestTransitionLifecycle(t *testing.T) {
	store := newFakeEventStore()
	publisher := &fakePublisher{}
	searcher := &fakeSearcher{}
	svc := NewEventService(store, searcher, publisher)
	organizer := organizerPrincipal()
	event := store.add(draftEvent(organizer.ID))

	got, err := svc.Transition(context.Background(), organizer, event.ID, models.EventPublished)
	require.NoError(t, err)
	assert.Equal(t, models.EventPublished, got.Status)
	assert.Equal(t, []string{models.SubjectEventPublished}, publisher.subjects())
	assert.Contains(t, searcher.indexed, event.ID)

	got, err = svc.Transition(context.Background(), organizer, event.ID, models.EventOngoing)
	require.NoError(t, err)
	assert.Equal(t, models.EventOngoing, got.Status)

	got, err = svc.Transition(context.Background(), organizer, event.ID, models.EventClosed)
	require.NoError(t, err)
	assert.Equal(t, models.EventClosed, got.Status)
	assert.Contains(t, searcher.deleted, event.ID)
}

func TestTransitionRejectsSkips(t *testing.T) {
	store := newFakeEventStore()
	svc := NewEventService(store, nil, nil)
	organizer := organizerPrincipal()
	event := store.add(draftEvent(organizer.ID))

	_, err := svc.Transition(context.Background(), organizer, event.ID, models.EventOngoing)
	assert.True(t, apperrors.Is(err, apperrors.CodeInvalidTransition))

	_, err = svc.Transition(context.Background(), organizer, event.ID, models.EventDraft)
	assert.True(t, apperrors.Is(err, apperrors.CodeInvalidTransition))
}

func TestTransitionDoublePublish(t *testing.T) {
	store := newFakeEventStore()
	publisher := &fakePublisher{}
	svc := NewEventService(store, nil, publisher)
	organizer := organizerPrincipal()
	event := store.add(draftEvent(organizer.ID))

	_, err := svc.Transition(context.Background(), organizer, event.ID, models.EventPublished)
	require.NoError(t, err)

	// The second publish must fail and not announce again.
	_, err = svc.Transition(context.Background(), organizer, event.ID, models.EventPublished)
	assert.True(t, apperrors.Is(err, apperrors.CodeInvalidTransition))
	assert.Len(t, publisher.subjects(), 1)
}

func TestTransitionOwnershipEnforced(t *testing.T) {
	store := newFakeEventStore()
	svc := NewEventService(store, nil, nil)
	event := store.add(draftEvent(uuid.New()))

	_, err := svc.Transition(context.Background(), organizerPrincipal(), event.ID, models.EventPublished)
	assert.True(t, apperrors.Is(err, apperrors.CodeForbidden))
}

func TestUpdateFiltersFieldsByStatus(t *testing.T) {
	store := newFakeEventStore()
	svc := NewEventService(store, nil, nil)
	organizer := organizerPrincipal()
	event := store.add(draftEvent(organizer.ID))
	event.Status = models.EventPublished

	name := "Renamed"
	desc := "New description"
	got, err := svc.Update(context.Background(), organizer, event.ID, &models.UpdateEventRequest{
		Name:        &name,
		Description: &desc,
	})
	require.NoError(t, err)

	// name is frozen after publish, description is not.
	assert.Equal(t, "Robotics Workshop", got.Name)
	assert.Equal(t, "New description", got.Description)
}

func TestUpdateNoApplicableFields(t *testing.T) {
	store := newFakeEventStore()
	svc := NewEventService(store, nil, nil)
	organizer := organizerPrincipal()
	event := store.add(draftEvent(organizer.ID))
	event.Status = models.EventOngoing

	desc := "too late"
	_, err := svc.Update(context.Background(), organizer, event.ID, &models.UpdateEventRequest{
		Description: &desc,
	})
	assert.True(t, apperrors.Is(err, apperrors.CodeFieldNotEditable))
}

func TestUpdateMaxParticipantsFloor(t *testing.T) {
	store := newFakeEventStore()
	svc := NewEventService(store, nil, nil)
	organizer := organizerPrincipal()
	event := store.add(draftEvent(organizer.ID))
	event.Status = models.EventPublished
	event.RegisteredCount = 30

	lower := 20
	_, err := svc.Update(context.Background(), organizer, event.ID, &models.UpdateEventRequest{
		MaxParticipants: &lower,
	})
	assert.True(t, apperrors.Is(err, apperrors.CodeValidation))
}

func TestDeleteDraftOnly(t *testing.T) {
	store := newFakeEventStore()
	svc := NewEventService(store, nil, nil)
	organizer := organizerPrincipal()

	draft := store.add(draftEvent(organizer.ID))
	require.NoError(t, svc.Delete(context.Background(), organizer, draft.ID))

	published := store.add(draftEvent(organizer.ID))
	published.Status = models.EventPublished
	err := svc.Delete(context.Background(), organizer, published.ID)
	assert.True(t, apperrors.Is(err, apperrors.CodeDeletionNotAllowed))
}

func TestListUsesSearchForQueries(t *testing.T) {
	store := newFakeEventStore()
	hit := *draftEvent(uuid.New())
	hit.ID = uuid.New()
	hit.Status = models.EventPublished
	searcher := &fakeSearcher{results: []models.Event{hit}}
	svc := NewEventService(store, searcher, nil)

	items, err := svc.List(context.Background(), "robotics", 1, 20)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, hit.ID, items[0].ID)
}
