// Package tickets implements the catalog service: the authoritative owner
// of Ticket. Reservation and release happen here, driven by order events.
package tickets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/amkh3780/Ticketing-Microservices/internal/domain"
	"github.com/amkh3780/Ticketing-Microservices/internal/messaging"
	"github.com/amkh3780/Ticketing-Microservices/internal/outbox"
	"github.com/amkh3780/Ticketing-Microservices/internal/store"
)

const aggregate = "ticket"

type Service struct {
	store store.TicketStore
	log   *slog.Logger
}

func New(st store.TicketStore, log *slog.Logger) *Service {
	return &Service{store: st, log: log}
}

// CreateTicket adds a catalog entry at version 0 and queues ticket.created.
func (s *Service) CreateTicket(ctx context.Context, title string, price float64) (*domain.Ticket, error) {
	t := &domain.Ticket{ID: uuid.NewString(), Title: title, Price: price, Version: 0}
	evt, err := messaging.NewEvent(messaging.TopicTicketCreated, t.ID, messaging.TicketCreated{
		ID: t.ID, Version: t.Version, Title: t.Title, Price: t.Price,
	})
	if err != nil {
		return nil, err
	}
	if err := s.store.Create(ctx, t, outbox.NewRecord(aggregate, t.ID, evt)); err != nil {
		return nil, err
	}
	return t, nil
}

// Get returns one catalog entry.
func (s *Service) Get(ctx context.Context, id string) (*domain.Ticket, error) {
	return s.store.Get(ctx, id)
}

// UpdateTicket edits title and price. Reserved tickets cannot be edited;
// expectedVersion is the version the caller last read, so a concurrent edit
// surfaces as ErrStaleVersion and the caller re-reads and retries.
func (s *Service) UpdateTicket(ctx context.Context, id, title string, price float64, expectedVersion int64) (*domain.Ticket, error) {
	t, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if t.Reserved() {
		return nil, fmt.Errorf("ticket %s: %w", id, domain.ErrTicketReserved)
	}
	if t.Version != expectedVersion {
		return nil, fmt.Errorf("ticket %s at v%d, caller expected v%d: %w",
			id, t.Version, expectedVersion, domain.ErrStaleVersion)
	}

	t.Title = title
	t.Price = price
	t.Version++
	evt, err := messaging.NewEvent(messaging.TopicTicketUpdated, t.ID, updatedPayload(t))
	if err != nil {
		return nil, err
	}
	if err := s.store.Update(ctx, t, expectedVersion, outbox.NewRecord(aggregate, t.ID, evt)); err != nil {
		return nil, err
	}
	return t, nil
}

// HandleOrderCreated reserves the ordered ticket and queues ticket.updated.
func (s *Service) HandleOrderCreated(ctx context.Context, evt messaging.Event) (messaging.Outcome, error) {
	var p messaging.OrderCreated
	if err := json.Unmarshal(evt.Payload, &p); err != nil {
		return messaging.Skipped, fmt.Errorf("malformed %s payload: %w", evt.Topic, err)
	}

	t, err := s.store.Get(ctx, p.Ticket.ID)
	if errors.Is(err, domain.ErrNotFound) {
		// Catalog row should exist before any order references it.
		return messaging.Pending, err
	}
	if err != nil {
		return messaging.Pending, err
	}

	changed, err := t.Reserve(p.ID)
	if errors.Is(err, domain.ErrTicketReserved) {
		// A different order holds the ticket; this order can never win.
		return messaging.Skipped, err
	}
	if !changed {
		// Redelivery: this order already holds the ticket.
		return messaging.Skipped, nil
	}
	return s.persist(ctx, t)
}

// HandleOrderCancelled releases the ticket held by the cancelled order.
func (s *Service) HandleOrderCancelled(ctx context.Context, evt messaging.Event) (messaging.Outcome, error) {
	var p messaging.OrderCancelled
	if err := json.Unmarshal(evt.Payload, &p); err != nil {
		return messaging.Skipped, fmt.Errorf("malformed %s payload: %w", evt.Topic, err)
	}

	t, err := s.store.Get(ctx, p.Ticket.ID)
	if errors.Is(err, domain.ErrNotFound) {
		return messaging.Pending, err
	}
	if err != nil {
		return messaging.Pending, err
	}

	changed, err := t.Release(p.ID)
	if errors.Is(err, domain.ErrReservationMismatch) {
		// The ticket was re-reserved by another order; releasing it now
		// would hand it to the wrong buyer.
		return messaging.Skipped, err
	}
	if !changed {
		return messaging.Skipped, nil
	}
	return s.persist(ctx, t)
}

func (s *Service) persist(ctx context.Context, t *domain.Ticket) (messaging.Outcome, error) {
	evt, err := messaging.NewEvent(messaging.TopicTicketUpdated, t.ID, updatedPayload(t))
	if err != nil {
		return messaging.Skipped, err
	}
	err = s.store.Update(ctx, t, t.Version-1, outbox.NewRecord(aggregate, t.ID, evt))
	if errors.Is(err, domain.ErrStaleVersion) {
		// A concurrent writer got there first; redelivery re-evaluates
		// against the new state.
		return messaging.Pending, err
	}
	if err != nil {
		return messaging.Pending, err
	}
	return messaging.Applied, nil
}

func updatedPayload(t *domain.Ticket) messaging.TicketUpdated {
	return messaging.TicketUpdated{
		ID: t.ID, Version: t.Version, Title: t.Title, Price: t.Price, OrderID: t.OrderID,
	}
}
