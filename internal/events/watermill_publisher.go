package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-kafka/v2/pkg/kafka"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

const metadataEventType = "event_type"

// WatermillPublisher publishes events through any watermill publisher
type WatermillPublisher struct {
	publisher message.Publisher
	topic     string
	logger    *slog.Logger
}

func NewWatermillPublisher(publisher message.Publisher, topic string, logger *slog.Logger) *WatermillPublisher {
	return &WatermillPublisher{
		publisher: publisher,
		topic:     topic,
		logger:    logger,
	}
}

// NewKafkaPublisher publishes to Kafka
func NewKafkaPublisher(brokers []string, topic string, logger *slog.Logger) (*WatermillPublisher, error) {
	publisher, err := kafka.NewPublisher(
		kafka.PublisherConfig{
			Brokers:   brokers,
			Marshaler: kafka.DefaultMarshaler{},
		},
		watermill.NewSlogLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka publisher: %w", err)
	}
	return NewWatermillPublisher(publisher, topic, logger), nil
}

// NewInProcessPublisher publishes on an in-memory channel. The returned
// GoChannel doubles as the subscriber for in-process listeners.
func NewInProcessPublisher(topic string, logger *slog.Logger) (*WatermillPublisher, *gochannel.GoChannel) {
	channel := gochannel.NewGoChannel(
		gochannel.Config{OutputChannelBuffer: 256},
		watermill.NewSlogLogger(logger),
	)
	return NewWatermillPublisher(channel, topic, logger), channel
}

func (p *WatermillPublisher) Publish(ctx context.Context, event *Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event %s: %w", event.Type, err)
	}

	msg := message.NewMessage(event.ID, payload)
	msg.Metadata.Set(metadataEventType, string(event.Type))
	msg.SetContext(ctx)

	if err := p.publisher.Publish(p.topic, msg); err != nil {
		return fmt.Errorf("failed to publish event %s: %w", event.Type, err)
	}

	p.logger.Debug("Event published", "event_id", event.ID, "event_type", event.Type, "topic", p.topic)
	return nil
}

func (p *WatermillPublisher) Close() error {
	return p.publisher.Close()
}

// Listen consumes events from topic until ctx ends, calling handle for each
// one. Messages are acked even when handle fails; failures are logged.
func Listen(ctx context.Context, subscriber message.Subscriber, topic string, logger *slog.Logger, handle func(context.Context, *Event) error) error {
	messages, err := subscriber.Subscribe(ctx, topic)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", topic, err)
	}

	go func() {
		for msg := range messages {
			var event Event
			if err := json.Unmarshal(msg.Payload, &event); err != nil {
				logger.Error("Failed to decode event", "error", err, "message_id", msg.UUID)
				msg.Ack()
				continue
			}
			if err := handle(ctx, &event); err != nil {
				logger.Error("Event handler failed", "error", err, "event_type", event.Type)
			}
			msg.Ack()
		}
	}()

	return nil
}
