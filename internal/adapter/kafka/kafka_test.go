package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/grid-status-aggregator/internal/config"
	"github.com/couchcryptid/grid-status-aggregator/internal/domain"
)

type fakeWriter struct {
	msgs   []kafkago.Message
	err    error
	closed bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafkago.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

func testEvent() domain.SnapshotEvent {
	now := time.Date(2026, time.October, 18, 14, 5, 0, 0, time.UTC)
	var snap domain.Snapshot
	domain.StatusUpdate{Record: domain.ParseStatusText("OP-4 Action 7")}.Apply(&snap)
	return domain.SnapshotEvent{
		Source:      domain.SourceStatus,
		PollID:      "0b6c1c1e-2f7e-4c55-9a57-0d3c2f0a9e11",
		Outcome:     domain.OutcomeSuccess,
		PublishedAt: now,
		Snapshot:    snap,
	}
}

func TestSerializeToMessage(t *testing.T) {
	ev := testEvent()
	msg, err := serializeToMessage(ev)
	require.NoError(t, err)

	assert.Equal(t, []byte("status"), msg.Key)
	require.Len(t, msg.Headers, 4)
	assert.Equal(t, "source", msg.Headers[0].Key)
	assert.Equal(t, []byte("status"), msg.Headers[0].Value)
	assert.Equal(t, "poll_id", msg.Headers[1].Key)
	assert.Equal(t, []byte(ev.PollID), msg.Headers[1].Value)
	assert.Equal(t, "outcome", msg.Headers[2].Key)
	assert.Equal(t, []byte("success"), msg.Headers[2].Value)
	assert.Equal(t, "published_at", msg.Headers[3].Key)
	assert.Equal(t, []byte("2026-10-18T14:05:00Z"), msg.Headers[3].Value)

	var body map[string]any
	require.NoError(t, json.Unmarshal(msg.Value, &body))
	assert.Equal(t, "Alert (Power Warning)", body["status_label"])
	assert.Equal(t, domain.NoData, body["forecast_headline"])
	snap, ok := body["snapshot"].(map[string]any)
	require.True(t, ok)
	status, ok := snap["status"].(map[string]any)
	require.True(t, ok)
	assert.InDelta(t, 4, status["severity"], 1e-9)
	assert.Nil(t, snap["forecast_summary"])
}

func TestPublisher_Publish(t *testing.T) {
	fw := &fakeWriter{}
	p := &Publisher{writer: fw, logger: slog.New(slog.NewTextHandler(io.Discard, nil))}

	require.NoError(t, p.Publish(context.Background(), testEvent()))
	require.Len(t, fw.msgs, 1)
	assert.Equal(t, []byte("status"), fw.msgs[0].Key)

	fw.err = errors.New("leader not available")
	err := p.Publish(context.Background(), testEvent())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "leader not available")

	require.NoError(t, p.Close())
	assert.True(t, fw.closed)
}

func TestNewPublisher(t *testing.T) {
	cfg := &config.Config{KafkaBrokers: []string{"broker1:9092", "broker2:9092"}, KafkaSnapshotTopic: "grid-snapshots"}
	p := NewPublisher(cfg, slog.Default())

	w, ok := p.writer.(*kafkago.Writer)
	require.True(t, ok)
	assert.Equal(t, "grid-snapshots", w.Topic)
	assert.Equal(t, kafkago.RequireAll, w.RequiredAcks)
}
