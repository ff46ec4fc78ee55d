package config

import (
	"os"
	"strconv"
	"strings"
)

const (
	// MessageTopic carries persisted chat events between gateway instances.
	MessageTopic = "chat-messages"

	// PushTopic carries offline notification jobs to the notifier service.
	PushTopic = "push-dispatch"
)

// Config is the shared service configuration, read from the environment
// with local-development defaults.
type Config struct {
	GatewayAddr string
	APIAddr     string

	KafkaBrokers []string
	RedisAddr    string
	ScyllaHosts  []string
	Keyspace     string

	JWTSecret string

	// SnowflakeNode must be unique per process that persists messages.
	SnowflakeNode int64

	// PushWebhookURL is the opaque push provider endpoint used by the
	// notifier. Empty means dry-run (log only).
	PushWebhookURL string
}

func Load() *Config {
	return &Config{
		GatewayAddr:    getenv("GATEWAY_ADDR", ":8080"),
		APIAddr:        getenv("API_ADDR", ":8081"),
		KafkaBrokers:   strings.Split(getenv("KAFKA_BROKERS", "localhost:19092"), ","),
		RedisAddr:      getenv("REDIS_ADDR", "localhost:6379"),
		ScyllaHosts:    strings.Split(getenv("SCYLLA_HOSTS", "localhost:9042"), ","),
		Keyspace:       getenv("SCYLLA_KEYSPACE", "hatch"),
		JWTSecret:      getenv("JWT_SECRET", "dev_secret_change_me"),
		SnowflakeNode:  getenvInt64("SNOWFLAKE_NODE", 1),
		PushWebhookURL: os.Getenv("PUSH_WEBHOOK_URL"),
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt64(key string, def int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return def
	}
	return n
}
