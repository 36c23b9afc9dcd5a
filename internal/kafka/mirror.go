package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"

	"github.com/Codetivate/social-trading-webapp-sub001/internal/domain"
)

// SignalMirror republishes every routed raw signal to a Kafka topic for
// analytics consumers (leaderboards, drawdown monitors). The mirror sits
// outside the delivery path: the router logs mirror failures and still acks.
type SignalMirror struct {
	writer *kafka.Writer
	Topic  string
}

func NewSignalMirror(brokers []string, topic string) *SignalMirror {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		RequiredAcks:           kafka.RequireAll,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
	}
	return &SignalMirror{writer: writer, Topic: topic}
}

// Publish sends one signal keyed by master id so each master's events stay
// ordered within a partition.
func (m *SignalMirror) Publish(ctx context.Context, entryID string, sig domain.RawSignal) error {
	value, err := json.Marshal(struct {
		EntryID string `json:"entryId"`
		domain.RawSignal
	}{EntryID: entryID, RawSignal: sig})
	if err != nil {
		return fmt.Errorf("marshal signal: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(sig.MasterID),
		Value: value,
	}
	if err := m.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka write: %w", err)
	}
	return nil
}

func (m *SignalMirror) Close() error {
	return m.writer.Close()
}
