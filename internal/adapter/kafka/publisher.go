package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/grid-status-aggregator/internal/config"
	"github.com/couchcryptid/grid-status-aggregator/internal/domain"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Publisher writes one message per snapshot merge to a Kafka topic.
// It implements coordinator.Publisher.
type Publisher struct {
	writer messageWriter
	logger *slog.Logger
}

// NewPublisher creates a Kafka producer for the configured snapshot topic.
func NewPublisher(cfg *config.Config, logger *slog.Logger) *Publisher {
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(cfg.KafkaBrokers...),
		Topic:                  cfg.KafkaSnapshotTopic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireAll,
		AllowAutoTopicCreation: true,
		WriteTimeout:           10 * time.Second,
	}
	return &Publisher{writer: w, logger: logger}
}

// Publish serializes ev and writes it keyed by source, so every update of
// one source lands on the same partition in order.
func (p *Publisher) Publish(ctx context.Context, ev domain.SnapshotEvent) error {
	msg, err := serializeToMessage(ev)
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write snapshot event: %w", err)
	}
	p.logger.Debug("snapshot published", "source", ev.Source, "poll_id", ev.PollID)
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

// snapshotMessage is the JSON value of a published event.
type snapshotMessage struct {
	Source      domain.SourceID `json:"source"`
	PollID      string          `json:"poll_id"`
	Outcome     string          `json:"outcome"`
	PublishedAt time.Time       `json:"published_at"`
	StatusLabel string          `json:"status_label"`
	Headline    string          `json:"forecast_headline"`
	Snapshot    domain.Snapshot `json:"snapshot"`
}

// serializeToMessage marshals a SnapshotEvent into a Kafka message.
func serializeToMessage(ev domain.SnapshotEvent) (kafkago.Message, error) {
	data, err := json.Marshal(snapshotMessage{
		Source:      ev.Source,
		PollID:      ev.PollID,
		Outcome:     ev.Outcome,
		PublishedAt: ev.PublishedAt,
		StatusLabel: ev.Snapshot.StatusLabel(),
		Headline:    ev.Snapshot.Forecast.Headline(),
		Snapshot:    ev.Snapshot,
	})
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize snapshot event: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(ev.Source),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "source", Value: []byte(ev.Source)},
			{Key: "poll_id", Value: []byte(ev.PollID)},
			{Key: "outcome", Value: []byte(ev.Outcome)},
			{Key: "published_at", Value: []byte(ev.PublishedAt.Format(time.RFC3339))},
		},
	}, nil
}
