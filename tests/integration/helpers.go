package integration

import (
	"os"
	"testing"
	"time"

	"felicity/internal/middleware"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// The suite needs a running stack (API, Postgres, and friends) plus the
// JWT secret the API was started with. Both come from the environment;
// without them every test skips.
const (
	baseURLEnv   = "FELICITY_TEST_BASE_URL"
	jwtSecretEnv = "FELICITY_TEST_JWT_SECRET"
)

// requireStack skips the test unless the integration environment is
// configured, and returns an organizer and a participant client.
func requireStack(t *testing.T) (*TestClient, *TestClient) {
	t.Helper()

	baseURL := os.Getenv(baseURLEnv)
	secret := os.Getenv(jwtSecretEnv)
	if baseURL == "" || secret == "" {
		t.Skipf("integration tests need %s and %s", baseURLEnv, jwtSecretEnv)
	}

	organizer := NewTestClient(baseURL, mintToken(t, secret, middleware.RoleOrganizer))
	participant := NewTestClient(baseURL, mintToken(t, secret, middleware.RoleParticipant))
	return organizer, participant
}

func mintToken(t *testing.T, secret, role string) string {
	t.Helper()

	claims := jwt.MapClaims{
		"sub":   uuid.New().String(),
		"role":  role,
		"name":  "Integration " + role,
		"email": "it-" + role + "@felicity.test",
		"exp":   time.Now().Add(time.Hour).Unix(),
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("Failed to mint token: %v", err)
	}
	return token
}
