package stream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/Codetivate/social-trading-webapp-sub001/internal/domain"
)

const payloadField = "payload"

// Entry is one ingestion log record: the stream-assigned id plus the decoded
// raw signal. Ids are monotonically increasing and timestamp ordered.
type Entry struct {
	ID     string
	Signal domain.RawSignal
}

// Log is the durable, append-only signal stream backed by Redis Streams. The
// bridge appends through the gateway; router workers consume it as a group
// with per-entry acknowledgment, so unacked entries stay redeliverable. The
// core never trims the stream.
type Log struct {
	client *redis.Client
	key    string
	group  string
}

func NewLog(client *redis.Client, key, group string) *Log {
	return &Log{client: client, key: key, group: group}
}

// Append writes one raw signal and returns its assigned stream id.
func (l *Log) Append(ctx context.Context, sig domain.RawSignal) (string, error) {
	if l.key == "" {
		return "", fmt.Errorf("signal stream key is not configured")
	}
	data, err := json.Marshal(sig)
	if err != nil {
		return "", fmt.Errorf("marshal signal: %w", err)
	}
	id, err := l.client.XAdd(ctx, &redis.XAddArgs{
		Stream: l.key,
		Values: map[string]any{payloadField: string(data)},
	}).Result()
	if err != nil {
		return "", fmt.Errorf("redis XADD %s: %w", l.key, err)
	}
	return id, nil
}

// EnsureGroup creates the consumer group at the start of the stream. A group
// that already exists is not an error.
func (l *Log) EnsureGroup(ctx context.Context) error {
	err := l.client.XGroupCreateMkStream(ctx, l.key, l.group, "0").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("redis XGROUP CREATE %s %s: %w", l.key, l.group, err)
	}
	return nil
}

// ReadGroup blocks up to the given timeout for new entries addressed to this
// consumer. A timeout with no entries returns an empty slice, not an error.
func (l *Log) ReadGroup(ctx context.Context, consumer string, block time.Duration, count int64) ([]Entry, error) {
	res, err := l.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    l.group,
		Consumer: consumer,
		Streams:  []string{l.key, ">"},
		Count:    count,
		Block:    block,
	}).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis XREADGROUP %s: %w", l.key, err)
	}
	return l.collect(res)
}

// Claim steals entries another consumer has held unacknowledged past minIdle,
// redelivering them to this consumer. This is the visibility timeout: a worker
// that crashed mid-entry loses the entry to a healthy one.
func (l *Log) Claim(ctx context.Context, consumer string, minIdle time.Duration, count int64) ([]Entry, error) {
	msgs, _, err := l.client.XAutoClaim(ctx, &redis.XAutoClaimArgs{
		Stream:   l.key,
		Group:    l.group,
		Consumer: consumer,
		MinIdle:  minIdle,
		Start:    "0-0",
		Count:    count,
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("redis XAUTOCLAIM %s: %w", l.key, err)
	}
	return l.decode(msgs)
}

// Ack marks one entry processed for the group. Only acked entries stop being
// redeliverable.
func (l *Log) Ack(ctx context.Context, id string) error {
	if err := l.client.XAck(ctx, l.key, l.group, id).Err(); err != nil {
		return fmt.Errorf("redis XACK %s %s: %w", l.key, id, err)
	}
	return nil
}

// DeadLetter acknowledges an entry whose payload can never be processed
// (malformed JSON): redelivering it forever would wedge the consumer.
func (l *Log) DeadLetter(ctx context.Context, id string) error {
	return l.Ack(ctx, id)
}

func (l *Log) collect(streams []redis.XStream) ([]Entry, error) {
	var msgs []redis.XMessage
	for _, s := range streams {
		msgs = append(msgs, s.Messages...)
	}
	return l.decode(msgs)
}

// decode tolerates malformed payloads by returning the entry with a zero
// signal; the router recognizes those and dead-letters them.
func (l *Log) decode(msgs []redis.XMessage) ([]Entry, error) {
	entries := make([]Entry, 0, len(msgs))
	for _, m := range msgs {
		raw, ok := m.Values[payloadField].(string)
		if !ok {
			entries = append(entries, Entry{ID: m.ID})
			continue
		}
		var sig domain.RawSignal
		if err := json.Unmarshal([]byte(raw), &sig); err != nil {
			entries = append(entries, Entry{ID: m.ID})
			continue
		}
		entries = append(entries, Entry{ID: m.ID, Signal: sig})
	}
	return entries, nil
}
