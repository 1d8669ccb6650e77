package external

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// NotifierClient posts publish announcements to a chat webhook. Calls
// are best effort; the consumers binary logs failures and moves on.
type NotifierClient struct {
	webhookURL string
	httpClient *http.Client
}

type NotifierConfig struct {
	WebhookURL string
	Timeout    time.Duration
}

// Discord-compatible webhook body.
type webhookMessage struct {
	Content string         `json:"content"`
	Embeds  []webhookEmbed `json:"embeds,omitempty"`
}

type webhookEmbed struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Timestamp   string `json:"timestamp,omitempty"`
}

func NewNotifierClient(cfg NotifierConfig) *NotifierClient {
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}

	return &NotifierClient{
		webhookURL: cfg.WebhookURL,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// AnnounceEvent posts a "new event published" message.
func (nc *NotifierClient) AnnounceEvent(name string, startAt time.Time) error {
	if nc.webhookURL == "" {
		return nil
	}

	msg := webhookMessage{
		Content: fmt.Sprintf("New event published: %s", name),
		Embeds: []webhookEmbed{{
			Title:     name,
			Timestamp: startAt.Format(time.RFC3339),
		}},
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal webhook message: %w", err)
	}

	resp, err := nc.httpClient.Post(nc.webhookURL, "application/json", bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("failed to post webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	return nil
}
