package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// GatewayConfig holds runtime configuration for the HTTP gateway service.
type GatewayConfig struct {
	HTTPAddr     string
	BridgeSecret string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	PostgresDSN string

	SignalStreamKey string
}

// RouterConfig holds runtime configuration for the router worker service.
type RouterConfig struct {
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	PostgresDSN string

	SignalStreamKey   string
	ConsumerGroup     string
	VisibilityTimeout time.Duration

	KafkaBrokers     []string
	KafkaMirrorTopic string

	ExpirySweepInterval time.Duration
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envIntOrDefault(key string, def int) (int, error) {
	if raw := os.Getenv(key); raw != "" {
		val, err := strconv.Atoi(raw)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %w", key, err)
		}
		return val, nil
	}
	return def, nil
}

func envDurationOrDefault(key string, def time.Duration) (time.Duration, error) {
	if raw := os.Getenv(key); raw != "" {
		val, err := time.ParseDuration(raw)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %w", key, err)
		}
		return val, nil
	}
	return def, nil
}

func envCSVOrDefault(key, def string) []string {
	raw := envOrDefault(key, def)
	parts := strings.Split(raw, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

// LoadGateway loads gateway configuration from environment variables.
func LoadGateway() (GatewayConfig, error) {
	redisDB, err := envIntOrDefault("REDIS_DB", 0)
	if err != nil {
		return GatewayConfig{}, err
	}

	cfg := GatewayConfig{
		HTTPAddr:     envOrDefault("HTTP_ADDR", ":8080"),
		BridgeSecret: os.Getenv("BRIDGE_SHARED_SECRET"),

		RedisAddr:     envOrDefault("REDIS_ADDR", "localhost:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       redisDB,

		PostgresDSN: envOrDefault("POSTGRES_DSN", "host=localhost user=copier dbname=copier sslmode=disable"),

		SignalStreamKey: envOrDefault("SIGNAL_STREAM_KEY", "signals:raw"),
	}
	if cfg.BridgeSecret == "" {
		return GatewayConfig{}, fmt.Errorf("BRIDGE_SHARED_SECRET is required")
	}
	return cfg, nil
}

// LoadRouter loads router worker configuration from environment variables.
func LoadRouter() (RouterConfig, error) {
	redisDB, err := envIntOrDefault("REDIS_DB", 0)
	if err != nil {
		return RouterConfig{}, err
	}
	visibility, err := envDurationOrDefault("VISIBILITY_TIMEOUT", 30*time.Second)
	if err != nil {
		return RouterConfig{}, err
	}
	sweep, err := envDurationOrDefault("EXPIRY_SWEEP_INTERVAL", time.Minute)
	if err != nil {
		return RouterConfig{}, err
	}

	cfg := RouterConfig{
		RedisAddr:     envOrDefault("REDIS_ADDR", "localhost:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       redisDB,

		PostgresDSN: envOrDefault("POSTGRES_DSN", "host=localhost user=copier dbname=copier sslmode=disable"),

		SignalStreamKey:   envOrDefault("SIGNAL_STREAM_KEY", "signals:raw"),
		ConsumerGroup:     envOrDefault("SIGNAL_CONSUMER_GROUP", "router"),
		VisibilityTimeout: visibility,

		KafkaBrokers:     envCSVOrDefault("KAFKA_BROKERS", "localhost:9092"),
		KafkaMirrorTopic: envOrDefault("KAFKA_TOPIC_SIGNAL_MIRROR", "copyflow.signals"),

		ExpirySweepInterval: sweep,
	}
	return cfg, nil
}
