// Package outbox implements the transactional outbox: event records written
// atomically with the entity mutation they describe, relayed asynchronously
// to the bus, and dead-lettered after a retry ceiling.
package outbox

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/amkh3780/Ticketing-Microservices/internal/messaging"
)

// Record is one unpublished event waiting in the outbox. It is created in
// the same atomic unit as the entity write and mutated only by the relay.
type Record struct {
	ID            string
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
	Published     bool
	Attempts      int
	LastError     string
	CreatedAt     time.Time
}

// NewRecord wraps an event for outbox persistence.
func NewRecord(aggregateType, aggregateID string, evt messaging.Event) *Record {
	return &Record{
		ID:            uuid.NewString(),
		AggregateType: aggregateType,
		AggregateID:   aggregateID,
		EventType:     evt.Topic,
		Payload:       evt.Payload,
		CreatedAt:     time.Now().UTC(),
	}
}

// Event reconstructs the wire event for publishing.
func (r *Record) Event() messaging.Event {
	return messaging.Event{Topic: r.EventType, Key: r.AggregateID, Payload: r.Payload}
}

// Dead-letter sources.
const (
	SourceRelay    = "relay"
	SourceListener = "listener"
)

// DeadLetter is a record that exceeded its retry ceiling, held for manual
// inspection.
type DeadLetter struct {
	ID        string
	Source    string
	EventType string
	Payload   []byte
	Reason    string
	Attempts  int
	CreatedAt time.Time
}

// Store is the persistence the relay drives.
type Store interface {
	// Unpublished returns up to limit unpublished records, oldest first.
	Unpublished(ctx context.Context, limit int) ([]*Record, error)
	// MarkPublished flips Published on an unpublished record. Returns false
	// when the record was already published, which guards a concurrent
	// relay from double-accounting.
	MarkPublished(ctx context.Context, id string) (bool, error)
	// RecordFailure increments Attempts and stores the error text.
	RecordFailure(ctx context.Context, id, lastErr string) error
	// DeadLetter moves a record out of the active queue.
	DeadLetter(ctx context.Context, rec *Record, reason string) error
}

// DeadLetterStore accepts dead letters from relays and listeners.
type DeadLetterStore interface {
	AddDeadLetter(ctx context.Context, dl *DeadLetter) error
}
