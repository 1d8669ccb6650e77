package service

import (
	"context"
	"time"

	"felicity/internal/messaging"
	"felicity/internal/models"
	"felicity/internal/repository"
	"felicity/internal/search"
	"felicity/internal/ticket"

	"github.com/google/uuid"
)

// EventStore is the persistence surface the services need for events.
// Implemented by *repository.EventRepository.
type EventStore interface {
	Create(ctx context.Context, event *models.Event) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Event, error)
	List(ctx context.Context, status models.EventStatus, page, pageSize int) ([]models.Event, error)
	ListByOrganizer(ctx context.Context, organizerID uuid.UUID) ([]models.Event, error)
	Update(ctx context.Context, event *models.Event) error
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to models.EventStatus) (bool, error)
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
	ReserveCapacity(ctx context.Context, id uuid.UUID) (bool, error)
	ReleaseCapacity(ctx context.Context, id uuid.UUID) error
	GetVariant(ctx context.Context, eventID uuid.UUID, name string) (*models.MerchVariant, error)
}

// RegistrationStore is the persistence surface for registrations.
// Implemented by *repository.RegistrationRepository.
type RegistrationStore interface {
	Create(ctx context.Context, reg *models.Registration) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Registration, error)
	GetActive(ctx context.Context, eventID, participantID uuid.UUID) (*models.Registration, error)
	ListByParticipant(ctx context.Context, participantID uuid.UUID) ([]models.Registration, error)
	ListByEvent(ctx context.Context, eventID uuid.UUID) ([]models.Registration, error)
	SetProof(ctx context.Context, id uuid.UUID, ref string, now time.Time) (bool, error)
	ApproveOrder(ctx context.Context, reg *models.Registration, approvedBy uuid.UUID, notes, ticket string, now time.Time) error
	Reject(ctx context.Context, id, rejectedBy uuid.UUID, notes string, now time.Time) (bool, error)
	MarkAttended(ctx context.Context, id, scannedBy uuid.UUID, manual bool, reason string, now time.Time) (bool, error)
	Cancel(ctx context.Context, id uuid.UUID) (bool, error)
}

// Publisher is the fire-and-forget outbound event sink. Implemented by
// *messaging.NATSClient.
type Publisher interface {
	Publish(subject string, data interface{}) error
}

// Searcher is the event search index. Implemented by
// *search.ElasticsearchClient.
type Searcher interface {
	Index(ctx context.Context, event *models.Event) error
	Delete(ctx context.Context, id uuid.UUID) error
	Search(ctx context.Context, query string, page, pageSize int) ([]models.Event, error)
}

// BlobStore persists opaque payment proof blobs. Implemented by
// *blob.FSStore.
type BlobStore interface {
	Put(data []byte) (string, error)
	Get(ref string) ([]byte, error)
}

type Services struct {
	Events        *EventService
	Registrations *RegistrationService
	Payments      *PaymentService
	Attendance    *AttendanceService
}

func NewServices(repos *repository.Repositories, es *search.ElasticsearchClient, natsClient *messaging.NATSClient, signer *ticket.Signer, blobs BlobStore) *Services {
	// Concrete clients may be absent (tests, degraded startup); convert
	// to interfaces only when non-nil so nil checks stay meaningful.
	var searcher Searcher
	if es != nil {
		searcher = es
	}
	var publisher Publisher
	if natsClient != nil {
		publisher = natsClient
	}

	eventService := NewEventService(repos.Events, searcher, publisher)
	registrationService := NewRegistrationService(repos.Events, repos.Registrations, signer, publisher)
	paymentService := NewPaymentService(repos.Events, repos.Registrations, blobs, signer, publisher)
	attendanceService := NewAttendanceService(repos.Events, repos.Registrations, signer, publisher)

	return &Services{
		Events:        eventService,
		Registrations: registrationService,
		Payments:      paymentService,
		Attendance:    attendanceService,
	}
}
