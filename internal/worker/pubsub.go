package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/pubsub/v2"
	"github.com/rs/zerolog"
)

// PubSubHandler feeds Pub/Sub messages to a Dispatcher.
type PubSubHandler struct {
	client           *pubsub.Client
	subscriber       *pubsub.Subscriber
	subscriptionName string
	dispatcher       *Dispatcher
	logger           zerolog.Logger
}

// PubSubConfig holds configuration for the Pub/Sub handler.
type PubSubConfig struct {
	ProjectID        string
	SubscriptionName string
	Dispatcher       *Dispatcher
	Logger           zerolog.Logger

	// MaxOutstanding bounds concurrently handled messages (default: 4).
	MaxOutstanding int
}

// NewPubSubHandler creates a new Pub/Sub handler.
func NewPubSubHandler(ctx context.Context, cfg PubSubConfig) (*PubSubHandler, error) {
	client, err := pubsub.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}

	subscriber := client.Subscriber(cfg.SubscriptionName)

	outstanding := cfg.MaxOutstanding
	if outstanding <= 0 {
		outstanding = 4
	}
	subscriber.ReceiveSettings.MaxOutstandingMessages = outstanding
	subscriber.ReceiveSettings.MaxExtension = 10 * time.Minute

	return &PubSubHandler{
		client:           client,
		subscriber:       subscriber,
		subscriptionName: cfg.SubscriptionName,
		dispatcher:       cfg.Dispatcher,
		logger:           cfg.Logger,
	}, nil
}

// Start processes messages until ctx is cancelled.
func (h *PubSubHandler) Start(ctx context.Context) error {
	h.logger.Info().
		Str("subscription", h.subscriptionName).
		Msg("starting pubsub handler")

	return h.subscriber.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		h.handleMessage(ctx, msg)
	})
}

// Close closes the Pub/Sub client.
func (h *PubSubHandler) Close() error {
	return h.client.Close()
}

func (h *PubSubHandler) handleMessage(ctx context.Context, msg *pubsub.Message) {
	startTime := time.Now()

	logger := h.logger.With().
		Str("message_id", msg.ID).
		Str("publish_time", msg.PublishTime.Format(time.RFC3339)).
		Logger()

	logger.Debug().Msg("received pubsub message")

	err := h.dispatcher.Handle(ctx, msg.Data)
	if err == nil {
		logger.Info().Dur("duration", time.Since(startTime)).Msg("job completed")
	}
	if settle(err, logger) {
		msg.Ack()
		return
	}
	msg.Nack()
}

// settle logs err and reports whether the message should be acknowledged.
// Undecodable and unknown messages are acked so they are not redelivered.
func settle(err error, logger zerolog.Logger) bool {
	switch {
	case err == nil:
		return true
	case errors.Is(err, ErrUnknownJob), errors.Is(err, ErrMalformedJob):
		logger.Warn().Err(err).Msg("dropping job message")
		return true
	default:
		logger.Error().Err(err).Msg("job failed")
		return false
	}
}
