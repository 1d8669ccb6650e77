package integration

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"testing"
	"time"

	"felicity/internal/models"
)

// TestClient drives the API over HTTP for the integration suite.
type TestClient struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
}

func NewTestClient(baseURL, token string) *TestClient {
	return &TestClient{
		BaseURL: baseURL,
		Token:   token,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (c *TestClient) makeRequest(t *testing.T, method, path string, body interface{}) *http.Response {
	t.Helper()

	var reqBody io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("Failed to marshal request body: %v", err)
		}
		reqBody = bytes.NewBuffer(jsonBody)
	}

	req, err := http.NewRequest(method, c.BaseURL+path, reqBody)
	if err != nil {
		t.Fatalf("Failed to create request: %v", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		t.Fatalf("Failed to make request: %v", err)
	}

	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()

	var out T
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	return out
}

// CreateEvent creates a draft event and returns its id.
func (c *TestClient) CreateEvent(t *testing.T, req models.CreateEventRequest) models.CreateEventResponse {
	t.Helper()

	resp := c.makeRequest(t, "POST", "/api/events", req)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("CreateEvent: expected 201, got %d", resp.StatusCode)
	}
	return decode[models.CreateEventResponse](t, resp)
}

// TransitionEvent moves an event to the given status.
func (c *TestClient) TransitionEvent(t *testing.T, eventID string, status models.EventStatus) {
	t.Helper()

	resp := c.makeRequest(t, "PATCH", "/api/events/"+eventID+"/status",
		models.TransitionEventRequest{Status: status})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("TransitionEvent to %s: expected 200, got %d", status, resp.StatusCode)
	}
}

// ListEvents lists published events.
func (c *TestClient) ListEvents(t *testing.T) models.ListEventsResponse {
	t.Helper()

	resp := c.makeRequest(t, "GET", "/api/events?pageSize=20", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("ListEvents: expected 200, got %d", resp.StatusCode)
	}
	return decode[models.ListEventsResponse](t, resp)
}

// Register registers the client's principal to an event.
func (c *TestClient) Register(t *testing.T, req models.CreateRegistrationRequest) (models.CreateRegistrationResponse, int) {
	t.Helper()

	resp := c.makeRequest(t, "POST", "/api/registrations", req)
	if resp.StatusCode != http.StatusCreated {
		resp.Body.Close()
		return models.CreateRegistrationResponse{}, resp.StatusCode
	}
	return decode[models.CreateRegistrationResponse](t, resp), resp.StatusCode
}

// Scan presents a ticket at an event's door.
func (c *TestClient) Scan(t *testing.T, req models.ScanRequest) models.ScanResponse {
	t.Helper()

	resp := c.makeRequest(t, "POST", "/api/attendance/scan", req)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Scan: expected 200, got %d", resp.StatusCode)
	}
	return decode[models.ScanResponse](t, resp)
}

// HealthCheck verifies the API is up.
func (c *TestClient) HealthCheck(t *testing.T) {
	t.Helper()

	resp := c.makeRequest(t, "GET", "/health", nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("HealthCheck: expected 200, got %d", resp.StatusCode)
	}
}
