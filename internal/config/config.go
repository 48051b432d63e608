// Package config loads service configuration from the environment. Every
// knob has a default so a service starts locally with nothing set: no
// DATABASE_URL means in-memory stores, no KAFKA_BROKERS means the no-op
// publisher and no listeners.
package config

import (
	"os"
	"strings"
	"time"
)

type Config struct {
	// HTTPAddr is the listen address for the service's HTTP edge.
	HTTPAddr string
	// DatabaseURL enables the Postgres stores when set.
	DatabaseURL string
	// KafkaBrokers enables the Kafka bus when non-empty.
	KafkaBrokers []string
	// GroupID is the consumer group shared by this service's instances.
	GroupID string
	// RedisAddr locates the expiration schedule store.
	RedisAddr string
	// ExpirationWindow is how long a reservation holds its ticket.
	ExpirationWindow time.Duration
}

// Load reads the environment for one service. The service name is the
// default consumer group, so every instance of a service shares a group
// while different services consume independently.
func Load(service string) Config {
	return Config{
		HTTPAddr:         getenv("HTTP_ADDR", ":8080"),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		KafkaBrokers:     splitList(os.Getenv("KAFKA_BROKERS")),
		GroupID:          getenv("KAFKA_GROUP_ID", service),
		RedisAddr:        getenv("REDIS_ADDR", "localhost:6379"),
		ExpirationWindow: getduration("EXPIRATION_WINDOW", 15*time.Minute),
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getduration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitList(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
