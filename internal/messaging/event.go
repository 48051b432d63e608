// Package messaging defines the event contract shared by the ticketing
// services: topic names, payload types and the publish/handle interfaces.
package messaging

import (
	"encoding/json"
	"time"
)

// Topic constants for the ticketing domain events. Each topic carries one
// payload type; consumers dispatch on topic name.
const (
	TopicTicketCreated      = "ticket.created"
	TopicTicketUpdated      = "ticket.updated"
	TopicOrderCreated       = "order.created"
	TopicOrderCancelled     = "order.cancelled"
	TopicPaymentCreated     = "payment.created"
	TopicExpirationComplete = "expiration.complete"
)

// Event is the wire envelope. Key is the aggregate id and doubles as the
// partition key so one entity's events stay ordered per partition.
type Event struct {
	Topic   string
	Key     string
	Payload []byte
}

// NewEvent marshals payload into an Event for the given topic and key.
func NewEvent(topic, key string, payload any) (Event, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}
	return Event{Topic: topic, Key: key, Payload: b}, nil
}

// TicketRef identifies a ticket inside an order event.
type TicketRef struct {
	ID    string  `json:"id"`
	Price float64 `json:"price,omitempty"`
}

// OrderCreated announces a new reservation. Version is the order's version
// after creation (always 0).
type OrderCreated struct {
	ID        string    `json:"id"`
	Version   int64     `json:"version"`
	Status    string    `json:"status"`
	UserID    string    `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
	Ticket    TicketRef `json:"ticket"`
}

// OrderCancelled announces that a reservation was released.
type OrderCancelled struct {
	ID      string    `json:"id"`
	Version int64     `json:"version"`
	Ticket  TicketRef `json:"ticket"`
}

// TicketCreated announces a new catalog entry.
type TicketCreated struct {
	ID      string  `json:"id"`
	Version int64   `json:"version"`
	Title   string  `json:"title"`
	Price   float64 `json:"price"`
}

// TicketUpdated announces a catalog mutation, including reservation and
// release. OrderID is nil when the ticket is available.
type TicketUpdated struct {
	ID      string  `json:"id"`
	Version int64   `json:"version"`
	Title   string  `json:"title"`
	Price   float64 `json:"price"`
	OrderID *string `json:"order_id,omitempty"`
}

// PaymentCreated announces a successful charge. Payments are immutable so
// the payload carries no version.
type PaymentCreated struct {
	ID       string `json:"id"`
	OrderID  string `json:"order_id"`
	StripeID string `json:"stripe_id"`
}

// ExpirationComplete signals that an order's reservation window elapsed.
// The orders service decides whether that cancels anything.
type ExpirationComplete struct {
	OrderID string `json:"order_id"`
}
