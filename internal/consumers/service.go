package consumers

import (
	"context"
	"log/slog"

	"felicity/internal/config"
	"felicity/internal/external"
	"felicity/internal/messaging"
	"felicity/internal/models"
)

// ConsumerService runs the durable queue subscriptions that turn
// published domain events into webhook and email side effects. It has
// no database connection: every event carries what its handler needs.
type ConsumerService struct {
	nats     *messaging.NATSClient
	handlers *Handlers
}

func NewConsumerService(cfg *config.Config) (*ConsumerService, error) {
	natsClient, err := messaging.NewNATSClient(cfg.NATS)
	if err != nil {
		return nil, err
	}

	notifier := external.NewNotifierClient(cfg.Notifier)
	mailer := external.NewMailerClient(cfg.Mailer)

	return &ConsumerService{
		nats:     natsClient,
		handlers: NewHandlers(notifier, mailer),
	}, nil
}

func (cs *ConsumerService) Start() error {
	slog.Info("Starting NATS consumers...")

	_, err := cs.nats.SubscribeQueue(models.SubjectEventPublished, "consumers", cs.handlers.HandleEventPublished)
	if err != nil {
		return err
	}

	_, err = cs.nats.SubscribeQueue(models.SubjectTicketIssued, "consumers", cs.handlers.HandleTicketIssued)
	if err != nil {
		return err
	}

	_, err = cs.nats.SubscribeQueue(models.SubjectPaymentRejected, "consumers", cs.handlers.HandlePaymentRejected)
	if err != nil {
		return err
	}

	_, err = cs.nats.SubscribeQueue(models.SubjectAttendanceMarked, "consumers", cs.handlers.HandleAttendanceMarked)
	if err != nil {
		return err
	}

	slog.Info("All consumers started successfully")
	return nil
}

func (cs *ConsumerService) Shutdown(ctx context.Context) error {
	slog.Info("Shutting down consumer service...")

	if cs.nats != nil {
		if err := cs.nats.Close(); err != nil {
			slog.Error("Error closing NATS connection", "error", err)
			return err
		}
	}

	return nil
}
