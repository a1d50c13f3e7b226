package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/crop-water-service/internal/config"
	"github.com/couchcryptid/crop-water-service/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// EventTypeModelTrained is the event_type header of model-trained messages.
const EventTypeModelTrained = "model_trained"

// Publisher announces persisted artifact sets on a Kafka topic.
// It implements pipeline.Notifier.
type Publisher struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewPublisher creates a Kafka producer for the configured topic.
func NewPublisher(cfg *config.Config, logger *slog.Logger) *Publisher {
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(cfg.KafkaBrokers...),
		Topic:                  cfg.KafkaTopic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireAll,
		AllowAutoTopicCreation: true,
	}
	return &Publisher{writer: w, logger: logger}
}

// PublishModelTrained writes one event keyed by its run id.
func (p *Publisher) PublishModelTrained(ctx context.Context, event domain.ModelTrained) error {
	msg, err := serializeToMessage(event)
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish model trained: %w", err)
	}
	p.logger.Info("model trained event published", "topic", p.writer.Topic, "run_id", event.RunID)
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

func serializeToMessage(event domain.ModelTrained) (kafkago.Message, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize model trained event: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(event.RunID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "event_type", Value: []byte(EventTypeModelTrained)},
			{Key: "trained_at", Value: []byte(event.TrainedAt.Format(time.RFC3339))},
		},
	}, nil
}
