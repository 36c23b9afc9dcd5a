package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadGatewayRequiresSecret(t *testing.T) {
	_, err := LoadGateway()
	assert.Error(t, err)
}

func TestLoadGatewayDefaults(t *testing.T) {
	t.Setenv("BRIDGE_SHARED_SECRET", "s3cret")

	cfg, err := LoadGateway()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
	assert.Equal(t, "signals:raw", cfg.SignalStreamKey)
	assert.Equal(t, "s3cret", cfg.BridgeSecret)
}

func TestLoadRouterDefaults(t *testing.T) {
	cfg, err := LoadRouter()
	require.NoError(t, err)
	assert.Equal(t, "router", cfg.ConsumerGroup)
	assert.Equal(t, 30*time.Second, cfg.VisibilityTimeout)
	assert.Equal(t, time.Minute, cfg.ExpirySweepInterval)
	assert.Equal(t, []string{"localhost:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "copyflow.signals", cfg.KafkaMirrorTopic)
}

func TestLoadRouterOverrides(t *testing.T) {
	t.Setenv("VISIBILITY_TIMEOUT", "90s")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092")
	t.Setenv("REDIS_DB", "3")

	cfg, err := LoadRouter()
	require.NoError(t, err)
	assert.Equal(t, 90*time.Second, cfg.VisibilityTimeout)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 3, cfg.RedisDB)
}

func TestLoadRouterRejectsBadValues(t *testing.T) {
	t.Setenv("VISIBILITY_TIMEOUT", "soon")
	_, err := LoadRouter()
	assert.Error(t, err)
}

func TestLoadGatewayRejectsBadRedisDB(t *testing.T) {
	t.Setenv("BRIDGE_SHARED_SECRET", "s3cret")
	t.Setenv("REDIS_DB", "two")
	_, err := LoadGateway()
	assert.Error(t, err)
}
