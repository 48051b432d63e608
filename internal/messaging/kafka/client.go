// Package kafka adapts the messaging contract to a Kafka cluster using
// segmentio/kafka-go. Topics are subjects; Kafka consumer groups provide
// the shared-group semantics: one instance per group handles a message,
// every group sees every message.
package kafka

import (
	"context"
	"log/slog"
	"sync"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/amkh3780/Ticketing-Microservices/internal/messaging"
)

// Config describes the cluster connection.
type Config struct {
	Brokers []string
	// ClientID identifies this process to the cluster.
	ClientID string
	// DialTimeout bounds each connection attempt. Default 5s.
	DialTimeout time.Duration
	// MaxConnectAttempts before Connect gives up. Default 8.
	MaxConnectAttempts int
	// WriteTimeout bounds each publish. Default 10s.
	WriteTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.DialTimeout <= 0 {
		c.DialTimeout = 5 * time.Second
	}
	if c.MaxConnectAttempts <= 0 {
		c.MaxConnectAttempts = 8
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 10 * time.Second
	}
	return c
}

// Client owns the connection to the cluster. It is created once at startup,
// injected into publishers and listeners, and closed on shutdown; nothing
// shares it implicitly through package state.
type Client struct {
	cfg Config
	log *slog.Logger

	mu     sync.Mutex
	onDown func(error)
}

// Connect verifies the cluster is reachable, retrying with bounded
// exponential backoff before surfacing a fatal ConnectionError.
func Connect(ctx context.Context, cfg Config, log *slog.Logger) (*Client, error) {
	cfg = cfg.withDefaults()
	c := &Client{cfg: cfg, log: log}

	backoff := 500 * time.Millisecond
	var lastErr error
	for attempt := 1; attempt <= cfg.MaxConnectAttempts; attempt++ {
		dialCtx, cancel := context.WithTimeout(ctx, cfg.DialTimeout)
		conn, err := kafkago.DialContext(dialCtx, "tcp", cfg.Brokers[0])
		cancel()
		if err == nil {
			conn.Close()
			log.Info("connected to kafka", "broker", cfg.Brokers[0], "attempt", attempt)
			return c, nil
		}
		lastErr = err
		log.Warn("kafka dial failed", "broker", cfg.Brokers[0], "attempt", attempt, "error", err)

		select {
		case <-ctx.Done():
			return nil, &messaging.ConnectionError{Endpoint: cfg.Brokers[0], Err: ctx.Err()}
		case <-time.After(backoff):
		}
		if backoff *= 2; backoff > 30*time.Second {
			backoff = 30 * time.Second
		}
	}
	return nil, &messaging.ConnectionError{Endpoint: cfg.Brokers[0], Err: lastErr}
}

// NotifyDown registers a callback invoked when a publisher or listener hits
// a transport failure. Owners use it to stop accepting new writes instead
// of silently swallowing the outage.
func (c *Client) NotifyDown(fn func(error)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onDown = fn
}

func (c *Client) reportDown(err error) {
	c.mu.Lock()
	fn := c.onDown
	c.mu.Unlock()
	if fn != nil {
		fn(err)
	}
}
