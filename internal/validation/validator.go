// Package validation is a smoke checker for a running API instance. It
// drives the main endpoint flows end to end against localhost and is
// wired into the api binary as `api validate`.
package validation

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"felicity/internal/config"
	"felicity/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type APIValidator struct {
	baseURL          string
	organizerToken   string
	participantToken string
}

func NewAPIValidator(baseURL, jwtSecret string) (*APIValidator, error) {
	organizer, err := mintToken(jwtSecret, "organizer", "Smoke Organizer", "smoke-organizer@felicity.local")
	if err != nil {
		return nil, err
	}
	participant, err := mintToken(jwtSecret, "participant", "Smoke Participant", "smoke-participant@felicity.local")
	if err != nil {
		return nil, err
	}

	return &APIValidator{
		baseURL:          baseURL,
		organizerToken:   organizer,
		participantToken: participant,
	}, nil
}

// mintToken signs a short-lived token the way the identity provider
// would, so the smoke run doesn't depend on it.
func mintToken(secret, role, name, email string) (string, error) {
	claims := jwt.MapClaims{
		"sub":   uuid.New().String(),
		"role":  role,
		"name":  name,
		"email": email,
		"exp":   time.Now().Add(15 * time.Minute).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// ValidateAll runs the event lifecycle and registration flow once.
func (v *APIValidator) ValidateAll() error {
	log.Println("Starting API validation...")

	eventID, err := v.validateEventLifecycle()
	if err != nil {
		return fmt.Errorf("event lifecycle validation failed: %w", err)
	}

	if err := v.validateRegistrationFlow(eventID); err != nil {
		return fmt.Errorf("registration flow validation failed: %w", err)
	}

	if err := v.validateHealth(); err != nil {
		return fmt.Errorf("health validation failed: %w", err)
	}

	log.Println("All endpoints validated successfully")
	return nil
}

func (v *APIValidator) validateEventLifecycle() (uuid.UUID, error) {
	log.Println("Validating event endpoints...")

	start := time.Now().Add(24 * time.Hour)
	reqBody := models.CreateEventRequest{
		Name:            fmt.Sprintf("Smoke Event %d", time.Now().Unix()),
		Type:            models.EventTypeNormal,
		StartAt:         start,
		EndAt:           start.Add(2 * time.Hour),
		MaxParticipants: 10,
	}

	resp, err := v.makeRequest("POST", "/api/events", reqBody, v.organizerToken)
	if err != nil {
		return uuid.Nil, err
	}
	if resp.StatusCode != http.StatusCreated {
		return uuid.Nil, fmt.Errorf("POST /api/events: expected 201, got %d", resp.StatusCode)
	}

	var createResp models.CreateEventResponse
	if err := json.NewDecoder(resp.Body).Decode(&createResp); err != nil {
		return uuid.Nil, fmt.Errorf("POST /api/events: failed to decode response: %w", err)
	}
	resp.Body.Close()

	if createResp.ID == uuid.Nil {
		return uuid.Nil, fmt.Errorf("POST /api/events: expected non-nil ID")
	}

	// draft -> published
	transition := models.TransitionEventRequest{Status: models.EventPublished}
	resp, err = v.makeRequest("PATCH", "/api/events/"+createResp.ID.String()+"/status", transition, v.organizerToken)
	if err != nil {
		return uuid.Nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return uuid.Nil, fmt.Errorf("PATCH /api/events/:id/status: expected 200, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp, err = v.makeRequest("GET", "/api/events?pageSize=20", nil, v.participantToken)
	if err != nil {
		return uuid.Nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return uuid.Nil, fmt.Errorf("GET /api/events: expected 200, got %d", resp.StatusCode)
	}

	var listResp models.ListEventsResponse
	if err := json.NewDecoder(resp.Body).Decode(&listResp); err != nil {
		return uuid.Nil, fmt.Errorf("GET /api/events: failed to decode response: %w", err)
	}
	resp.Body.Close()

	if len(listResp) == 0 {
		return uuid.Nil, fmt.Errorf("GET /api/events: expected non-empty list")
	}

	log.Println("Event endpoints OK")
	return createResp.ID, nil
}

func (v *APIValidator) validateRegistrationFlow(eventID uuid.UUID) error {
	log.Println("Validating registration endpoints...")

	reqBody := models.CreateRegistrationRequest{EventID: eventID}
	resp, err := v.makeRequest("POST", "/api/registrations", reqBody, v.participantToken)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("POST /api/registrations: expected 201, got %d", resp.StatusCode)
	}

	var createResp models.CreateRegistrationResponse
	if err := json.NewDecoder(resp.Body).Decode(&createResp); err != nil {
		return fmt.Errorf("POST /api/registrations: failed to decode response: %w", err)
	}
	resp.Body.Close()

	if createResp.PaymentStatus != models.PaymentNotRequired {
		return fmt.Errorf("POST /api/registrations: expected payment not_required, got %s", createResp.PaymentStatus)
	}

	// Same participant again must be rejected as a duplicate.
	resp, err = v.makeRequest("POST", "/api/registrations", reqBody, v.participantToken)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusConflict {
		return fmt.Errorf("duplicate POST /api/registrations: expected 409, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp, err = v.makeRequest("GET", "/api/registrations/"+createResp.ID.String()+"/ticket", nil, v.participantToken)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET /api/registrations/:id/ticket: expected 200, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "image/png" {
		return fmt.Errorf("GET /api/registrations/:id/ticket: expected image/png, got %s", ct)
	}
	resp.Body.Close()

	log.Println("Registration endpoints OK")
	return nil
}

func (v *APIValidator) validateHealth() error {
	resp, err := v.makeRequest("GET", "/health", nil, "")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET /health: expected 200, got %d", resp.StatusCode)
	}
	return nil
}

func (v *APIValidator) makeRequest(method, path string, body interface{}, token string) (*http.Response, error) {
	var req *http.Request
	var err error

	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}

		req, err = http.NewRequest(method, v.baseURL+path, bytes.NewBuffer(jsonBody))
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
	} else {
		req, err = http.NewRequest(method, v.baseURL+path, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
	}

	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}

	return resp, nil
}

// RunValidation smoke-checks a locally running API.
func RunValidation() {
	cfg := config.Load()
	baseURL := "http://localhost:" + cfg.Port

	validator, err := NewAPIValidator(baseURL, cfg.JWTSecret)
	if err != nil {
		log.Fatalf("Validation setup failed: %v", err)
	}

	if err := validator.ValidateAll(); err != nil {
		log.Fatalf("Validation failed: %v", err)
	}
}
