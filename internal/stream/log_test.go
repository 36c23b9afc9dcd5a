package stream

import (
	"context"
	"testing"

	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Codetivate/social-trading-webapp-sub001/internal/domain"
)

func TestDecode(t *testing.T) {
	l := NewLog(nil, "signals:raw", "router")

	msgs := []redis.XMessage{
		{ID: "1-0", Values: map[string]any{payloadField: `{"masterId":"m1","ticket":"100","symbol":"EURUSD","action":"OPEN","volume":0.10}`}},
		{ID: "2-0", Values: map[string]any{payloadField: `{not json`}},
		{ID: "3-0", Values: map[string]any{"other": "field"}},
	}

	entries, err := l.decode(msgs)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	assert.Equal(t, "m1", entries[0].Signal.MasterID)
	assert.Equal(t, "100", entries[0].Signal.Ticket)
	assert.InDelta(t, 0.10, entries[0].Signal.Volume, 1e-9)

	// Malformed payloads keep their id with a zero signal so the consumer
	// can dead-letter them instead of wedging on redelivery.
	assert.Equal(t, "2-0", entries[1].ID)
	assert.Empty(t, entries[1].Signal.MasterID)
	assert.Equal(t, "3-0", entries[2].ID)
	assert.Empty(t, entries[2].Signal.MasterID)
}

func TestAppendRequiresKey(t *testing.T) {
	l := NewLog(nil, "", "router")
	_, err := l.Append(context.Background(), domain.RawSignal{})
	assert.Error(t, err)
}
