// Package store defines the persistence contracts for the versioned entity
// stores. Every mutating method accepts the outbox record describing the
// mutation; entity write and record insert happen in one atomic unit. A nil
// record means the mutation emits no event (replica maintenance).
//
// All updates are conditional on the expected version. There is no lock
// manager: a write whose expected version no longer matches fails with
// domain.ErrStaleVersion, and no code path may write a versioned entity
// unconditionally.
package store

import (
	"context"

	"github.com/amkh3780/Ticketing-Microservices/internal/domain"
	"github.com/amkh3780/Ticketing-Microservices/internal/outbox"
)

// TicketStore persists tickets, authoritative or replica.
type TicketStore interface {
	// Get returns the ticket or domain.ErrNotFound.
	Get(ctx context.Context, id string) (*domain.Ticket, error)
	Create(ctx context.Context, t *domain.Ticket, rec *outbox.Record) error
	// Update writes t only if the stored version equals expected.
	Update(ctx context.Context, t *domain.Ticket, expected int64, rec *outbox.Record) error
}

// OrderStore persists orders, authoritative or replica.
type OrderStore interface {
	Get(ctx context.Context, id string) (*domain.Order, error)
	Create(ctx context.Context, o *domain.Order, rec *outbox.Record) error
	Update(ctx context.Context, o *domain.Order, expected int64, rec *outbox.Record) error
}

// PaymentStore persists payments. Create fails with domain.ErrDuplicate
// when the order already has a payment.
type PaymentStore interface {
	GetByOrder(ctx context.Context, orderID string) (*domain.Payment, error)
	Create(ctx context.Context, p *domain.Payment, rec *outbox.Record) error
}
