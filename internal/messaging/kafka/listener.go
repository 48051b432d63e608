package kafka

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/amkh3780/Ticketing-Microservices/internal/messaging"
	"github.com/amkh3780/Ticketing-Microservices/internal/outbox"
)

// fetcher is the slice of kafka.Reader the listener needs. Tests substitute
// a fake; production wiring passes the real reader.
type fetcher interface {
	FetchMessage(ctx context.Context) (kafkago.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafkago.Message) error
}

// ListenerConfig configures one topic subscription.
type ListenerConfig struct {
	Topic string
	// GroupID names the consumer group shared by this service's instances.
	GroupID string
	// HoldWait is the pause before re-running a Pending message. Default 2s.
	HoldWait time.Duration
	// MaxHolds bounds re-runs of a Pending message before it is
	// dead-lettered so a lost predecessor cannot stall the partition
	// forever. Default 30.
	MaxHolds int
}

func (c ListenerConfig) withDefaults() ListenerConfig {
	if c.HoldWait <= 0 {
		c.HoldWait = 2 * time.Second
	}
	if c.MaxHolds <= 0 {
		c.MaxHolds = 30
	}
	return c
}

// Listener consumes one topic under a consumer group and drives a handler.
// Commit is the acknowledgment: Applied and Skipped commit, Pending holds
// the message and re-runs it after HoldWait. Handler panics are contained
// at this boundary and treated as holds; a crash is never the redelivery
// mechanism. Each Listener runs its own loop, so a slow handler on one
// topic never blocks another topic's listener.
type Listener struct {
	reader  fetcher
	handler messaging.Handler
	dlq     outbox.DeadLetterStore
	client  *Client
	log     *slog.Logger
	cfg     ListenerConfig
}

func NewListener(client *Client, cfg ListenerConfig, h messaging.Handler, dlq outbox.DeadLetterStore, log *slog.Logger) *Listener {
	cfg = cfg.withDefaults()
	reader := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers: client.cfg.Brokers,
		GroupID: cfg.GroupID,
		Topic:   cfg.Topic,
		MaxWait: time.Second,
	})
	return &Listener{reader: reader, handler: h, dlq: dlq, client: client, log: log, cfg: cfg}
}

// Run fetches and processes messages until ctx is cancelled.
func (l *Listener) Run(ctx context.Context) error {
	for {
		msg, err := l.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if l.client != nil {
				l.client.reportDown(err)
			}
			return fmt.Errorf("fetch from %s: %w", l.cfg.Topic, err)
		}
		if err := l.process(ctx, msg); err != nil {
			return err
		}
	}
}

// process runs the handler until the message resolves to a commit. Only
// context cancellation returns an error.
func (l *Listener) process(ctx context.Context, msg kafkago.Message) error {
	evt := messaging.Event{Topic: msg.Topic, Key: string(msg.Key), Payload: msg.Value}

	for holds := 0; ; holds++ {
		out, err := l.invoke(ctx, evt)
		if err != nil {
			l.log.Warn("handler reported error",
				"topic", evt.Topic, "key", evt.Key, "outcome", out.String(), "error", err)
		}
		if out != messaging.Pending {
			return l.commit(ctx, msg, out)
		}
		if holds+1 >= l.cfg.MaxHolds {
			l.deadLetter(ctx, evt, holds+1, err)
			return l.commit(ctx, msg, out)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(l.cfg.HoldWait):
		}
	}
}

// invoke contains handler panics and converts them into holds.
func (l *Listener) invoke(ctx context.Context, evt messaging.Event) (out messaging.Outcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			out = messaging.Pending
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return l.handler(ctx, evt)
}

func (l *Listener) commit(ctx context.Context, msg kafkago.Message, out messaging.Outcome) error {
	if err := l.reader.CommitMessages(ctx, msg); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		// The broker redelivers and the idempotent handler absorbs it.
		l.log.Warn("commit failed", "topic", msg.Topic, "error", err)
	}
	l.log.Debug("message resolved", "topic", msg.Topic, "key", string(msg.Key), "outcome", out.String())
	return nil
}

func (l *Listener) deadLetter(ctx context.Context, evt messaging.Event, holds int, cause error) {
	reason := "hold ceiling exceeded"
	if cause != nil {
		reason = fmt.Sprintf("hold ceiling exceeded: %v", cause)
	}
	l.log.Error("dead-lettering held message", "topic", evt.Topic, "key", evt.Key, "holds", holds)
	err := l.dlq.AddDeadLetter(ctx, &outbox.DeadLetter{
		ID:        uuid.NewString(),
		Source:    outbox.SourceListener,
		EventType: evt.Topic,
		Payload:   evt.Payload,
		Reason:    reason,
		Attempts:  holds,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		l.log.Error("dead-letter write failed", "topic", evt.Topic, "error", err)
	}
}

// Close releases the underlying reader.
func (l *Listener) Close() error {
	if r, ok := l.reader.(*kafkago.Reader); ok {
		return r.Close()
	}
	return nil
}
