package service

import (
	"context"
	"sync"
	"time"

	"felicity/internal/apperrors"
	"felicity/internal/models"

	"github.com/google/uuid"
)

// In-memory store fakes mirroring the repository contracts, conditional
// updates included, so the services can be tested without Postgres.

type fakeEventStore struct {
	mu     sync.Mutex
	events map[uuid.UUID]*models.Event
}

func newFakeEventStore() *fakeEventStore {
	return &fakeEventStore{events: make(map[uuid.UUID]*models.Event)}
}

func (f *fakeEventStore) add(event *models.Event) *models.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	f.events[event.ID] = event
	return event
}

func (f *fakeEventStore) Create(ctx context.Context, event *models.Event) error {
	f.add(event)
	return nil
}

func (f *fakeEventStore) GetByID(ctx context.Context, id uuid.UUID) (*models.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	event, ok := f.events[id]
	if !ok {
		return nil, nil
	}
	clone := *event
	clone.Variants = append([]models.MerchVariant(nil), event.Variants...)
	return &clone, nil
}

func (f *fakeEventStore) List(ctx context.Context, status models.EventStatus, page, pageSize int) ([]models.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Event
	for _, event := range f.events {
		if event.Status == status {
			out = append(out, *event)
		}
	}
	return out, nil
}

func (f *fakeEventStore) ListByOrganizer(ctx context.Context, organizerID uuid.UUID) ([]models.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Event
	for _, event := range f.events {
		if event.OrganizerID == organizerID {
			out = append(out, *event)
		}
	}
	return out, nil
}

func (f *fakeEventStore) Update(ctx context.Context, event *models.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.events[event.ID]
	if !ok {
		return nil
	}
	clone := *event
	clone.Variants = stored.Variants
	f.events[event.ID] = &clone
	return nil
}

func (f *fakeEventStore) UpdateStatus(ctx context.Context, id uuid.UUID, from, to models.EventStatus) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	event, ok := f.events[id]
	if !ok || event.Status != from {
		return false, nil
	}
	event.Status = to
	return true, nil
}

func (f *fakeEventStore) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	event, ok := f.events[id]
	if !ok || event.Status != models.EventDraft {
		return false, nil
	}
	delete(f.events, id)
	return true, nil
}

func (f *fakeEventStore) ReserveCapacity(ctx context.Context, id uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	event, ok := f.events[id]
	if !ok || event.RegisteredCount >= event.MaxParticipants {
		return false, nil
	}
	event.RegisteredCount++
	return true, nil
}

func (f *fakeEventStore) ReleaseCapacity(ctx context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if event, ok := f.events[id]; ok && event.RegisteredCount > 0 {
		event.RegisteredCount--
	}
	return nil
}

func (f *fakeEventStore) GetVariant(ctx context.Context, eventID uuid.UUID, name string) (*models.MerchVariant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	event, ok := f.events[eventID]
	if !ok {
		return nil, nil
	}
	for i := range event.Variants {
		if event.Variants[i].Name == name {
			clone := event.Variants[i]
			return &clone, nil
		}
	}
	return nil, nil
}

type fakeRegStore struct {
	mu     sync.Mutex
	regs   map[uuid.UUID]*models.Registration
	events *fakeEventStore
}

func newFakeRegStore(events *fakeEventStore) *fakeRegStore {
	return &fakeRegStore{regs: make(map[uuid.UUID]*models.Registration), events: events}
}

func (f *fakeRegStore) Create(ctx context.Context, reg *models.Registration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.regs {
		if existing.EventID == reg.EventID && existing.ParticipantID == reg.ParticipantID &&
			existing.Status != models.RegistrationCancelled {
			return apperrors.DuplicateRegistration()
		}
	}
	if reg.ID == uuid.Nil {
		reg.ID = uuid.New()
	}
	reg.CreatedAt = time.Now()
	clone := *reg
	f.regs[reg.ID] = &clone
	return nil
}

func (f *fakeRegStore) GetByID(ctx context.Context, id uuid.UUID) (*models.Registration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	reg, ok := f.regs[id]
	if !ok {
		return nil, nil
	}
	clone := *reg
	return &clone, nil
}

func (f *fakeRegStore) GetActive(ctx context.Context, eventID, participantID uuid.UUID) (*models.Registration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, reg := range f.regs {
		if reg.EventID == eventID && reg.ParticipantID == participantID &&
			reg.Status != models.RegistrationCancelled {
			clone := *reg
			return &clone, nil
		}
	}
	return nil, nil
}

func (f *fakeRegStore) ListByParticipant(ctx context.Context, participantID uuid.UUID) ([]models.Registration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Registration
	for _, reg := range f.regs {
		if reg.ParticipantID == participantID {
			out = append(out, *reg)
		}
	}
	return out, nil
}

func (f *fakeRegStore) ListByEvent(ctx context.Context, eventID uuid.UUID) ([]models.Registration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Registration
	for _, reg := range f.regs {
		if reg.EventID == eventID {
			out = append(out, *reg)
		}
	}
	return out, nil
}

func (f *fakeRegStore) SetProof(ctx context.Context, id uuid.UUID, ref string, now time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	reg, ok := f.regs[id]
	if !ok || !models.CanUploadProof(reg.PaymentStatus) || reg.Status == models.RegistrationCancelled {
		return false, nil
	}
	reg.ProofRef = &ref
	reg.ProofUploadedAt = &now
	reg.PaymentStatus = models.PaymentPendingApproval
	reg.ApprovalNotes = nil
	return true, nil
}

func (f *fakeRegStore) ApproveOrder(ctx context.Context, reg *models.Registration, approvedBy uuid.UUID, notes, ticket string, now time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.regs[reg.ID]
	if !ok || stored.PaymentStatus != models.PaymentPendingApproval {
		return apperrors.NotPendingApproval(string(reg.PaymentStatus))
	}

	f.events.mu.Lock()
	event := f.events.events[reg.EventID]
	var variant *models.MerchVariant
	for i := range event.Variants {
		if event.Variants[i].Name == reg.VariantName {
			variant = &event.Variants[i]
		}
	}
	if variant == nil || variant.Stock < reg.Quantity {
		f.events.mu.Unlock()
		return apperrors.InsufficientStock(reg.VariantName)
	}
	variant.Stock -= reg.Quantity
	f.events.mu.Unlock()

	stored.PaymentStatus = models.PaymentApproved
	stored.ApprovedBy = &approvedBy
	stored.ApprovedAt = &now
	stored.ApprovalNotes = &notes
	stored.Ticket = &ticket
	return nil
}

func (f *fakeRegStore) Reject(ctx context.Context, id, rejectedBy uuid.UUID, notes string, now time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	reg, ok := f.regs[id]
	if !ok || reg.PaymentStatus != models.PaymentPendingApproval {
		return false, nil
	}
	reg.PaymentStatus = models.PaymentRejected
	reg.ApprovedBy = &rejectedBy
	reg.ApprovalNotes = &notes
	return true, nil
}

func (f *fakeRegStore) MarkAttended(ctx context.Context, id, scannedBy uuid.UUID, manual bool, reason string, now time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	reg, ok := f.regs[id]
	if !ok || reg.Status != models.RegistrationRegistered || !models.CanAttend(reg.PaymentStatus) {
		return false, nil
	}
	reg.Status = models.RegistrationAttended
	reg.AttendedAt = &now
	reg.ScannedBy = &scannedBy
	reg.ManualOverride = manual
	if reason != "" {
		reg.OverrideReason = &reason
	}

	f.events.mu.Lock()
	if event, ok := f.events.events[reg.EventID]; ok {
		event.AttendanceCount++
	}
	f.events.mu.Unlock()
	return true, nil
}

func (f *fakeRegStore) Cancel(ctx context.Context, id uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	reg, ok := f.regs[id]
	if !ok || reg.Status != models.RegistrationRegistered {
		return false, nil
	}
	reg.Status = models.RegistrationCancelled

	f.events.mu.Lock()
	if event, ok := f.events.events[reg.EventID]; ok && event.RegisteredCount > 0 {
		event.RegisteredCount--
	}
	f.events.mu.Unlock()
	return true, nil
}

type publishedMsg struct {
	subject string
	data    interface{}
}

type fakePublisher struct {
	mu   sync.Mutex
	msgs []publishedMsg
}

func (f *fakePublisher) Publish(subject string, data interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs = append(f.msgs, publishedMsg{subject: subject, data: data})
	return nil
}

func (f *fakePublisher) subjects() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.msgs))
	for i, m := range f.msgs {
		out[i] = m.subject
	}
	return out
}

type fakeSearcher struct {
	mu      sync.Mutex
	indexed []uuid.UUID
	deleted []uuid.UUID
	results []models.Event
}

func (f *fakeSearcher) Index(ctx context.Context, event *models.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.indexed = append(f.indexed, event.ID)
	return nil
}

func (f *fakeSearcher) Delete(ctx context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeSearcher) Search(ctx context.Context, query string, page, pageSize int) ([]models.Event, error) {
	return f.results, nil
}

type fakeBlobStore struct {
	mu    sync.Mutex
	blobs map[string][]byte
}

func newFakeBlobStore() *fakeBlobStore {
	return &fakeBlobStore{blobs: make(map[string][]byte)}
}

func (f *fakeBlobStore) Put(data []byte) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ref := uuid.New().String()
	f.blobs[ref] = data
	return ref, nil
}

func (f *fakeBlobStore) Get(ref string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.blobs[ref], nil
}
