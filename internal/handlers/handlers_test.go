package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"felicity/internal/apperrors"
	"felicity/internal/middleware"
	"felicity/internal/models"
	"felicity/internal/service"
	"felicity/internal/ticket"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testJWTSecret = "handlers-test-secret"

// memStore backs the handler tests with an in-memory implementation of
// the event and registration store contracts.
type memStore struct {
	mu     sync.Mutex
	events map[uuid.UUID]*models.Event
	regs   map[uuid.UUID]*models.Registration
}

func newMemStore() *memStore {
	return &memStore{
		events: make(map[uuid.UUID]*models.Event),
		regs:   make(map[uuid.UUID]*models.Registration),
	}
}

func (m *memStore) Create(ctx context.Context, event *models.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	event.ID = uuid.New()
	m.events[event.ID] = event
	return nil
}

func (m *memStore) GetByID(ctx context.Context, id uuid.UUID) (*models.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	event, ok := m.events[id]
	if !ok {
		return nil, nil
	}
	clone := *event
	return &clone, nil
}

func (m *memStore) List(ctx context.Context, status models.EventStatus, page, pageSize int) ([]models.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Event
	for _, event := range m.events {
		if event.Status == status {
			out = append(out, *event)
		}
	}
	return out, nil
}

func (m *memStore) ListByOrganizer(ctx context.Context, organizerID uuid.UUID) ([]models.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Event
	for _, event := range m.events {
		if event.OrganizerID == organizerID {
			out = append(out, *event)
		}
	}
	return out, nil
}

func (m *memStore) Update(ctx context.Context, event *models.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := *event
	m.events[event.ID] = &clone
	return nil
}

func (m *memStore) UpdateStatus(ctx context.Context, id uuid.UUID, from, to models.EventStatus) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	event, ok := m.events[id]
	if !ok || event.Status != from {
		return false, nil
	}
	event.Status = to
	return true, nil
}

func (m *memStore) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	event, ok := m.events[id]
	if !ok || event.Status != models.EventDraft {
		return false, nil
	}
	delete(m.events, id)
	return true, nil
}

func (m *memStore) ReserveCapacity(ctx context.Context, id uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	event, ok := m.events[id]
	if !ok || event.RegisteredCount >= event.MaxParticipants {
		return false, nil
	}
	event.RegisteredCount++
	return true, nil
}

func (m *memStore) ReleaseCapacity(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if event, ok := m.events[id]; ok && event.RegisteredCount > 0 {
		event.RegisteredCount--
	}
	return nil
}

func (m *memStore) GetVariant(ctx context.Context, eventID uuid.UUID, name string) (*models.MerchVariant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	event, ok := m.events[eventID]
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

func (m *memStore) CreateRegistration(ctx context.Context, reg *models.Registration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.regs {
		if existing.EventID == reg.EventID && existing.ParticipantID == reg.ParticipantID &&
			existing.Status != models.RegistrationCancelled {
			return apperrors.DuplicateRegistration()
		}
	}
	clone := *reg
	m.regs[reg.ID] = &clone
	return nil
}

func (m *memStore) GetRegistration(ctx context.Context, id uuid.UUID) (*models.Registration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	reg, ok := m.regs[id]
	if !ok {
		return nil, nil
	}
	clone := *reg
	return &clone, nil
}

func (m *memStore) GetActive(ctx context.Context, eventID, participantID uuid.UUID) (*models.Registration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, reg := range m.regs {
		if reg.EventID == eventID && reg.ParticipantID == participantID &&
			reg.Status != models.RegistrationCancelled {
			clone := *reg
			return &clone, nil
		}
	}
	return nil, nil
}

func (m *memStore) ListByParticipant(ctx context.Context, participantID uuid.UUID) ([]models.Registration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Registration
	for _, reg := range m.regs {
		if reg.ParticipantID == participantID {
			out = append(out, *reg)
		}
	}
	return out, nil
}

func (m *memStore) ListByEvent(ctx context.Context, eventID uuid.UUID) ([]models.Registration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Registration
	for _, reg := range m.regs {
		if reg.EventID == eventID {
			out = append(out, *reg)
		}
	}
	return out, nil
}

func (m *memStore) SetProof(ctx context.Context, id uuid.UUID, ref string, now time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	reg, ok := m.regs[id]
	if !ok || !models.CanUploadProof(reg.PaymentStatus) {
		return false, nil
	}
	reg.ProofRef = &ref
	reg.ProofUploadedAt = &now
	reg.PaymentStatus = models.PaymentPendingApproval
	reg.ApprovalNotes = nil
	return true, nil
}

func (m *memStore) ApproveOrder(ctx context.Context, reg *models.Registration, approvedBy uuid.UUID, notes, tick string, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.regs[reg.ID]
	if !ok || stored.PaymentStatus != models.PaymentPendingApproval {
		return apperrors.NotPendingApproval(string(reg.PaymentStatus))
	}
	event := m.events[reg.EventID]
	for i := range event.Variants {
		if event.Variants[i].Name == reg.VariantName {
			if event.Variants[i].Stock < reg.Quantity {
				return apperrors.InsufficientStock(reg.VariantName)
			}
			event.Variants[i].Stock -= reg.Quantity
		}
	}
	stored.PaymentStatus = models.PaymentApproved
	stored.Ticket = &tick
	stored.ApprovedBy = &approvedBy
	stored.ApprovedAt = &now
	stored.ApprovalNotes = &notes
	return nil
}

func (m *memStore) Reject(ctx context.Context, id, rejectedBy uuid.UUID, notes string, now time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	reg, ok := m.regs[id]
	if !ok || reg.PaymentStatus != models.PaymentPendingApproval {
		return false, nil
	}
	reg.PaymentStatus = models.PaymentRejected
	reg.ApprovalNotes = &notes
	return true, nil
}

func (m *memStore) MarkAttended(ctx context.Context, id, scannedBy uuid.UUID, manual bool, reason string, now time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	reg, ok := m.regs[id]
	if !ok || reg.Status != models.RegistrationRegistered {
		return false, nil
	}
	reg.Status = models.RegistrationAttended
	reg.AttendedAt = &now
	reg.ScannedBy = &scannedBy
	reg.ManualOverride = manual
	if event, ok := m.events[reg.EventID]; ok {
		event.AttendanceCount++
	}
	return true, nil
}

func (m *memStore) Cancel(ctx context.Context, id uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	reg, ok := m.regs[id]
	if !ok || reg.Status != models.RegistrationRegistered {
		return false, nil
	}
	reg.Status = models.RegistrationCancelled
	if event, ok := m.events[reg.EventID]; ok && event.RegisteredCount > 0 {
		event.RegisteredCount--
	}
	return true, nil
}

// regStoreAdapter maps the RegistrationStore method names onto memStore.
type regStoreAdapter struct{ *memStore }

func (a regStoreAdapter) Create(ctx context.Context, reg *models.Registration) error {
	return a.CreateRegistration(ctx, reg)
}

func (a regStoreAdapter) GetByID(ctx context.Context, id uuid.UUID) (*models.Registration, error) {
	return a.GetRegistration(ctx, id)
}

func setupRouter(store *memStore) *gin.Engine {
	gin.SetMode(gin.TestMode)

	signer := ticket.NewSigner("handlers-test-ticket-secret")
	regs := regStoreAdapter{store}

	services := &service.Services{
		Events:        service.NewEventService(store, nil, nil),
		Registrations: service.NewRegistrationService(store, regs, signer, nil),
		Payments:      service.NewPaymentService(store, regs, nil, signer, nil),
		Attendance:    service.NewAttendanceService(store, regs, signer, nil),
	}

	h := NewHandlers(services, nil)

	r := gin.New()
	api := r.Group("/api")
	api.Use(middleware.JWTAuth(testJWTSecret))
	{
		events := api.Group("/events")
		{
			events.POST("", middleware.RequireRole(middleware.RoleOrganizer), h.CreateEvent)
			events.GET("", h.ListEvents)
			events.GET("/:id", h.GetEvent)
			events.PATCH("/:id", middleware.RequireRole(middleware.RoleOrganizer), h.UpdateEvent)
			events.PATCH("/:id/status", middleware.RequireRole(middleware.RoleOrganizer), h.TransitionEvent)
			events.DELETE("/:id", middleware.RequireRole(middleware.RoleOrganizer), h.DeleteEvent)
		}

		registrations := api.Group("/registrations")
		{
			registrations.POST("", middleware.RequireRole(middleware.RoleParticipant), h.CreateRegistration)
			registrations.GET("", middleware.RequireRole(middleware.RoleParticipant), h.ListRegistrations)
			registrations.PATCH("/cancel", middleware.RequireRole(middleware.RoleParticipant), h.CancelRegistration)
			registrations.GET("/:id/ticket", middleware.RequireRole(middleware.RoleParticipant), h.GetTicket)
		}

		attendance := api.Group("/attendance")
		attendance.Use(middleware.RequireRole(middleware.RoleOrganizer))
		{
			attendance.POST("/scan", h.ScanTicket)
			attendance.POST("/override", h.OverrideAttendance)
		}
	}

	return r
}

func mintToken(t *testing.T, p middleware.Principal) string {
	t.Helper()
	claims := jwt.MapClaims{
		"sub":   p.ID.String(),
		"role":  p.Role,
		"name":  p.Name,
		"email": p.Email,
		"exp":   time.Now().Add(time.Hour).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testJWTSecret))
	require.NoError(t, err)
	return token
}

func testOrganizer() middleware.Principal {
	return middleware.Principal{ID: uuid.New(), Role: middleware.RoleOrganizer, Name: "Org", Email: "org@felicity.test"}
}

func testParticipant() middleware.Principal {
	return middleware.Principal{ID: uuid.New(), Role: middleware.RoleParticipant, Name: "Part", Email: "part@felicity.test"}
}

func doJSON(t *testing.T, r *gin.Engine, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf *bytes.Buffer
	if body != nil {
		jsonBody, err := json.Marshal(body)
		require.NoError(t, err)
		buf = bytes.NewBuffer(jsonBody)
	} else {
		buf = bytes.NewBuffer(nil)
	}

	req, err := http.NewRequest(method, path, buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func createEventRequest() models.CreateEventRequest {
	start := time.Now().Add(24 * time.Hour)
	return models.CreateEventRequest{
		Name:            "Hackathon",
		Type:            models.EventTypeNormal,
		StartAt:         start,
		EndAt:           start.Add(8 * time.Hour),
		MaxParticipants: 100,
	}
}

func TestAuthRequired(t *testing.T) {
	r := setupRouter(newMemStore())

	w := doJSON(t, r, "GET", "/api/events", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(t, r, "GET", "/api/events", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRoleEnforcement(t *testing.T) {
	r := setupRouter(newMemStore())
	participant := mintToken(t, testParticipant())
	organizer := mintToken(t, testOrganizer())

	w := doJSON(t, r, "POST", "/api/events", participant, createEventRequest())
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = doJSON(t, r, "POST", "/api/registrations", organizer, models.CreateRegistrationRequest{EventID: uuid.New()})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestCreateEvent(t *testing.T) {
	r := setupRouter(newMemStore())
	token := mintToken(t, testOrganizer())

	w := doJSON(t, r, "POST", "/api/events", token, createEventRequest())
	require.Equal(t, http.StatusCreated, w.Code)

	var response models.CreateEventResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.NotEqual(t, uuid.Nil, response.ID)
}

func TestCreateEventValidationError(t *testing.T) {
	r := setupRouter(newMemStore())
	token := mintToken(t, testOrganizer())

	req := createEventRequest()
	req.Type = models.EventTypeMerchandise // no variants

	w := doJSON(t, r, "POST", "/api/events", token, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, apperrors.CodeValidation, body["code"])
}

func TestEventLifecycleOverHTTP(t *testing.T) {
	store := newMemStore()
	r := setupRouter(store)
	organizer := testOrganizer()
	token := mintToken(t, organizer)

	w := doJSON(t, r, "POST", "/api/events", token, createEventRequest())
	require.Equal(t, http.StatusCreated, w.Code)
	var created models.CreateEventResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	w = doJSON(t, r, "PATCH", "/api/events/"+created.ID.String()+"/status", token,
		models.TransitionEventRequest{Status: models.EventPublished})
	require.Equal(t, http.StatusOK, w.Code)

	// Skipping straight to closed from draft is impossible, and the
	// repeated publish maps to a conflict.
	w = doJSON(t, r, "PATCH", "/api/events/"+created.ID.String()+"/status", token,
		models.TransitionEventRequest{Status: models.EventPublished})
	assert.Equal(t, http.StatusConflict, w.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, apperrors.CodeInvalidTransition, body["code"])
}

func TestRegistrationFlowOverHTTP(t *testing.T) {
	store := newMemStore()
	r := setupRouter(store)
	organizerToken := mintToken(t, testOrganizer())
	participantToken := mintToken(t, testParticipant())

	w := doJSON(t, r, "POST", "/api/events", organizerToken, createEventRequest())
	require.Equal(t, http.StatusCreated, w.Code)
	var created models.CreateEventResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	w = doJSON(t, r, "PATCH", "/api/events/"+created.ID.String()+"/status", organizerToken,
		models.TransitionEventRequest{Status: models.EventPublished})
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, r, "POST", "/api/registrations", participantToken,
		models.CreateRegistrationRequest{EventID: created.ID})
	require.Equal(t, http.StatusCreated, w.Code)

	var reg models.CreateRegistrationResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &reg))
	assert.Equal(t, models.PaymentNotRequired, reg.PaymentStatus)

	// Duplicate registration maps to a conflict.
	w = doJSON(t, r, "POST", "/api/registrations", participantToken,
		models.CreateRegistrationRequest{EventID: created.ID})
	assert.Equal(t, http.StatusConflict, w.Code)

	// The participant can fetch the QR rendering of their ticket.
	w = doJSON(t, r, "GET", "/api/registrations/"+reg.ID.String()+"/ticket", participantToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
}

func TestScanFlowOverHTTP(t *testing.T) {
	store := newMemStore()
	r := setupRouter(store)
	organizer := testOrganizer()
	organizerToken := mintToken(t, organizer)
	participantToken := mintToken(t, testParticipant())

	w := doJSON(t, r, "POST", "/api/events", organizerToken, createEventRequest())
	require.Equal(t, http.StatusCreated, w.Code)
	var created models.CreateEventResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	w = doJSON(t, r, "PATCH", "/api/events/"+created.ID.String()+"/status", organizerToken,
		models.TransitionEventRequest{Status: models.EventPublished})
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, r, "POST", "/api/registrations", participantToken,
		models.CreateRegistrationRequest{EventID: created.ID})
	require.Equal(t, http.StatusCreated, w.Code)
	var reg models.CreateRegistrationResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &reg))

	w = doJSON(t, r, "PATCH", "/api/events/"+created.ID.String()+"/status", organizerToken,
		models.TransitionEventRequest{Status: models.EventOngoing})
	require.Equal(t, http.StatusOK, w.Code)

	stored, err := store.GetRegistration(context.Background(), reg.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.Ticket)

	w = doJSON(t, r, "POST", "/api/attendance/scan", organizerToken,
		models.ScanRequest{EventID: created.ID, Ticket: *stored.Ticket})
	require.Equal(t, http.StatusOK, w.Code)

	var scan models.ScanResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &scan))
	assert.Equal(t, models.ScanValid, scan.Result)

	w = doJSON(t, r, "POST", "/api/attendance/scan", organizerToken,
		models.ScanRequest{EventID: created.ID, Ticket: *stored.Ticket})
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &scan))
	assert.Equal(t, models.ScanDuplicate, scan.Result)

	w = doJSON(t, r, "POST", "/api/attendance/scan", organizerToken,
		models.ScanRequest{EventID: created.ID, Ticket: "garbage"})
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &scan))
	assert.Equal(t, models.ScanInvalid, scan.Result)
}

func TestGetUnknownEvent(t *testing.T) {
	r := setupRouter(newMemStore())
	token := mintToken(t, testOrganizer())

	w := doJSON(t, r, "GET", "/api/events/"+uuid.New().String(), token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, r, "GET", "/api/events/not-a-uuid", token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
