package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/couchcryptid/crop-water-service/internal/config"
	"github.com/couchcryptid/crop-water-service/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// Handler reacts to a model-trained event.
type Handler func(ctx context.Context, event domain.ModelTrained) error

// Subscriber consumes model-trained events so a running server can reload
// the artifacts a separate training run just persisted.
type Subscriber struct {
	reader *kafkago.Reader
	logger *slog.Logger
}

// NewSubscriber creates a consumer of the configured topic in its own group.
func NewSubscriber(cfg *config.Config, groupID string, logger *slog.Logger) *Subscriber {
	r := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     cfg.KafkaBrokers,
		Topic:       cfg.KafkaTopic,
		GroupID:     groupID,
		StartOffset: kafkago.LastOffset,
		MinBytes:    1,
		MaxBytes:    1 << 20,
	})
	return &Subscriber{reader: r, logger: logger}
}

// Run delivers events to handle until ctx is cancelled. Messages that are not
// model-trained events are skipped. A handler error is logged and the offset
// is still committed; the next event triggers another attempt anyway.
func (s *Subscriber) Run(ctx context.Context, handle Handler) error {
	for {
		msg, err := s.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("fetch message: %w", err)
		}

		event, ok, err := parseMessage(msg)
		switch {
		case err != nil:
			s.logger.Warn("skipping malformed model trained event", "error", err, "offset", msg.Offset)
		case ok:
			if err := handle(ctx, event); err != nil {
				s.logger.Error("model trained handler failed", "error", err, "run_id", event.RunID)
			}
		}

		if err := s.reader.CommitMessages(ctx, msg); err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Warn("commit offset failed", "error", err, "offset", msg.Offset)
		}
	}
}

func (s *Subscriber) Close() error {
	return s.reader.Close()
}

// parseMessage decodes a model-trained event. ok is false for messages with a
// different event_type header.
func parseMessage(msg kafkago.Message) (domain.ModelTrained, bool, error) {
	for _, h := range msg.Headers {
		if h.Key == "event_type" && string(h.Value) != EventTypeModelTrained {
			return domain.ModelTrained{}, false, nil
		}
	}
	var event domain.ModelTrained
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		return domain.ModelTrained{}, false, fmt.Errorf("decode model trained event: %w", err)
	}
	return event, true, nil
}
