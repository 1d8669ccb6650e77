package external

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// MailerClient talks to the campus mail relay over HTTP. Like the
// notifier it is called best effort from the consumers binary only.
type MailerClient struct {
	baseURL    string
	from       string
	httpClient *http.Client
}

type MailerConfig struct {
	BaseURL string
	From    string
	Timeout time.Duration
}

type sendMailRequest struct {
	From       string `json:"from"`
	To         string `json:"to"`
	Subject    string `json:"subject"`
	Body       string `json:"body"`
	Attachment string `json:"attachment,omitempty"` // base64 PNG
}

func NewMailerClient(cfg MailerConfig) *MailerClient {
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}

	return &MailerClient{
		baseURL: cfg.BaseURL,
		from:    cfg.From,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// SendTicket delivers a ticket QR to a participant.
func (mc *MailerClient) SendTicket(to, eventName, attachment string) error {
	return mc.send(sendMailRequest{
		From:       mc.from,
		To:         to,
		Subject:    fmt.Sprintf("Your ticket for %s", eventName),
		Body:       fmt.Sprintf("Your registration for %s is confirmed. Present the attached QR code at the venue.", eventName),
		Attachment: attachment,
	})
}

// SendRejection tells a participant their payment proof was rejected.
func (mc *MailerClient) SendRejection(to, notes string) error {
	return mc.send(sendMailRequest{
		From:    mc.from,
		To:      to,
		Subject: "Payment proof rejected",
		Body:    fmt.Sprintf("Your payment proof was rejected: %s. Please upload a new proof to retry.", notes),
	})
}

func (mc *MailerClient) send(req sendMailRequest) error {
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to marshal mail request: %w", err)
	}

	resp, err := mc.httpClient.Post(mc.baseURL+"/api/v1/send", "application/json", bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("failed to send mail: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	return nil
}
