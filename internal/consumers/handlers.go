package consumers

import (
	"encoding/base64"
	"encoding/json"
	"log/slog"

	"felicity/internal/external"
	"felicity/internal/models"
	"felicity/internal/ticket"

	"github.com/nats-io/stan.go"
)

// qrSize is the pixel edge of the QR image attached to ticket mails.
const qrSize = 512

type Handlers struct {
	notifier *external.NotifierClient
	mailer   *external.MailerClient
}

func NewHandlers(notifier *external.NotifierClient, mailer *external.MailerClient) *Handlers {
	return &Handlers{
		notifier: notifier,
		mailer:   mailer,
	}
}

// HandleEventPublished announces a freshly published event on the
// campus webhook. Delivery failures are logged and the message is acked
// anyway: an announcement is not worth a redelivery loop.
func (h *Handlers) HandleEventPublished(m *stan.Msg) {
	var event models.EventPublishedEvent
	if err := json.Unmarshal(m.Data, &event); err != nil {
		slog.Error("Failed to unmarshal event published event", "error", err)
		return
	}

	slog.Info("Processing event published event", "event_id", event.EventID, "name", event.Name)

	if err := h.notifier.AnnounceEvent(event.Name, event.StartAt); err != nil {
		slog.Error("Failed to announce event", "event_id", event.EventID, "error", err)
	}

	m.Ack()
}

// HandleTicketIssued mails the participant their ticket with the QR
// image attached. The message is not acked on failure so the mail is
// retried after the ack wait.
func (h *Handlers) HandleTicketIssued(m *stan.Msg) {
	var event models.TicketIssuedEvent
	if err := json.Unmarshal(m.Data, &event); err != nil {
		slog.Error("Failed to unmarshal ticket issued event", "error", err)
		return
	}

	slog.Info("Processing ticket issued event", "registration_id", event.RegistrationID)

	png, err := ticket.RenderPNG(event.Ticket, qrSize)
	if err != nil {
		slog.Error("Failed to render ticket QR", "registration_id", event.RegistrationID, "error", err)
		return
	}

	attachment := base64.StdEncoding.EncodeToString(png)
	if err := h.mailer.SendTicket(event.ParticipantEmail, event.EventName, attachment); err != nil {
		slog.Error("Failed to send ticket mail", "registration_id", event.RegistrationID, "error", err)
		return
	}

	m.Ack()
}

// HandlePaymentRejected mails the participant the rejection note so
// they can fix the proof and re-submit.
func (h *Handlers) HandlePaymentRejected(m *stan.Msg) {
	var event models.PaymentRejectedEvent
	if err := json.Unmarshal(m.Data, &event); err != nil {
		slog.Error("Failed to unmarshal payment rejected event", "error", err)
		return
	}

	slog.Info("Processing payment rejected event", "registration_id", event.RegistrationID)

	if err := h.mailer.SendRejection(event.ParticipantEmail, event.Notes); err != nil {
		slog.Error("Failed to send rejection mail", "registration_id", event.RegistrationID, "error", err)
		return
	}

	m.Ack()
}

// HandleAttendanceMarked records attendance marks in the log stream for
// day-of-event monitoring.
func (h *Handlers) HandleAttendanceMarked(m *stan.Msg) {
	var event models.AttendanceMarkedEvent
	if err := json.Unmarshal(m.Data, &event); err != nil {
		slog.Error("Failed to unmarshal attendance marked event", "error", err)
		return
	}

	slog.Info("Attendance marked",
		"registration_id", event.RegistrationID,
		"event_id", event.EventID,
		"manual_override", event.ManualOverride)

	m.Ack()
}
