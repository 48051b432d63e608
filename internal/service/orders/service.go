// Package orders implements the orders service: the authoritative owner of
// Order, plus a version-checked Ticket replica fed by catalog events.
package orders

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/amkh3780/Ticketing-Microservices/internal/domain"
	"github.com/amkh3780/Ticketing-Microservices/internal/messaging"
	"github.com/amkh3780/Ticketing-Microservices/internal/outbox"
	"github.com/amkh3780/Ticketing-Microservices/internal/store"
)

const aggregate = "order"

type Service struct {
	orders  store.OrderStore
	tickets store.TicketStore
	window  time.Duration
	log     *slog.Logger
	now     func() time.Time
}

// New builds the service. window is how long a reservation holds the ticket
// before the expiration check fires.
func New(orders store.OrderStore, tickets store.TicketStore, window time.Duration, log *slog.Logger) *Service {
	return &Service{orders: orders, tickets: tickets, window: window, log: log, now: time.Now}
}

// Reserve creates an order for an available ticket. The ticket replica is
// the availability view; a ticket the replica shows as reserved fails fast
// with ErrTicketReserved.
func (s *Service) Reserve(ctx context.Context, ticketID, userID string) (*domain.Order, error) {
	t, err := s.tickets.Get(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if t.Reserved() {
		return nil, fmt.Errorf("ticket %s: %w", ticketID, domain.ErrTicketReserved)
	}

	o := &domain.Order{
		ID:        uuid.NewString(),
		UserID:    userID,
		TicketID:  t.ID,
		Price:     t.Price,
		Status:    domain.OrderStatusCreated,
		ExpiresAt: s.now().Add(s.window).UTC(),
		Version:   0,
	}
	evt, err := messaging.NewEvent(messaging.TopicOrderCreated, o.ID, messaging.OrderCreated{
		ID:        o.ID,
		Version:   o.Version,
		Status:    string(o.Status),
		UserID:    o.UserID,
		ExpiresAt: o.ExpiresAt,
		Ticket:    messaging.TicketRef{ID: t.ID, Price: t.Price},
	})
	if err != nil {
		return nil, err
	}
	if err := s.orders.Create(ctx, o, outbox.NewRecord(aggregate, o.ID, evt)); err != nil {
		return nil, err
	}
	return o, nil
}

// Get returns one order.
func (s *Service) Get(ctx context.Context, id string) (*domain.Order, error) {
	return s.orders.Get(ctx, id)
}

// HandleTicketCreated feeds the ticket replica.
func (s *Service) HandleTicketCreated(ctx context.Context, evt messaging.Event) (messaging.Outcome, error) {
	var p messaging.TicketCreated
	if err := json.Unmarshal(evt.Payload, &p); err != nil {
		return messaging.Skipped, fmt.Errorf("malformed %s payload: %w", evt.Topic, err)
	}
	return s.applyTicket(ctx, &domain.Ticket{
		ID: p.ID, Title: p.Title, Price: p.Price, Version: p.Version,
	})
}

// HandleTicketUpdated feeds the ticket replica, including reservations and
// releases made by the catalog service.
func (s *Service) HandleTicketUpdated(ctx context.Context, evt messaging.Event) (messaging.Outcome, error) {
	var p messaging.TicketUpdated
	if err := json.Unmarshal(evt.Payload, &p); err != nil {
		return messaging.Skipped, fmt.Errorf("malformed %s payload: %w", evt.Topic, err)
	}
	return s.applyTicket(ctx, &domain.Ticket{
		ID: p.ID, Title: p.Title, Price: p.Price, OrderID: p.OrderID, Version: p.Version,
	})
}

// applyTicket enforces the version rule for the replica: apply only the
// immediate successor, skip what was already applied, hold what is ahead.
func (s *Service) applyTicket(ctx context.Context, incoming *domain.Ticket) (messaging.Outcome, error) {
	local := int64(-1)
	cur, err := s.tickets.Get(ctx, incoming.ID)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		// No replica yet; only a version-0 event may create it.
	case err != nil:
		return messaging.Pending, err
	default:
		local = cur.Version
	}

	switch domain.DecideVersion(local, incoming.Version) {
	case domain.SkipEvent:
		return messaging.Skipped, nil
	case domain.HoldEvent:
		return messaging.Pending, fmt.Errorf("ticket %s replica at v%d, event v%d: %w",
			incoming.ID, local, incoming.Version, domain.ErrPredecessorMissing)
	}

	if local < 0 {
		err = s.tickets.Create(ctx, incoming, nil)
	} else {
		err = s.tickets.Update(ctx, incoming, local, nil)
	}
	if errors.Is(err, domain.ErrStaleVersion) || errors.Is(err, domain.ErrDuplicate) {
		// Lost a race with another applier; redelivery re-evaluates.
		return messaging.Pending, err
	}
	if err != nil {
		return messaging.Pending, err
	}
	return messaging.Applied, nil
}

// HandlePaymentCreated completes the paid order. Payments carry no version:
// idempotence comes from terminal-state absorption.
func (s *Service) HandlePaymentCreated(ctx context.Context, evt messaging.Event) (messaging.Outcome, error) {
	var p messaging.PaymentCreated
	if err := json.Unmarshal(evt.Payload, &p); err != nil {
		return messaging.Skipped, fmt.Errorf("malformed %s payload: %w", evt.Topic, err)
	}

	o, err := s.orders.Get(ctx, p.OrderID)
	if errors.Is(err, domain.ErrNotFound) {
		return messaging.Pending, err
	}
	if err != nil {
		return messaging.Pending, err
	}

	if !o.Complete() {
		// Already complete or cancelled; a late payment must not
		// resurrect a terminal order.
		return messaging.Skipped, nil
	}
	err = s.orders.Update(ctx, o, o.Version-1, nil)
	if errors.Is(err, domain.ErrStaleVersion) {
		return messaging.Pending, err
	}
	if err != nil {
		return messaging.Pending, err
	}
	return messaging.Applied, nil
}

// HandleExpirationComplete cancels the order unless it already completed,
// and queues order.cancelled so the ticket is released.
func (s *Service) HandleExpirationComplete(ctx context.Context, evt messaging.Event) (messaging.Outcome, error) {
	var p messaging.ExpirationComplete
	if err := json.Unmarshal(evt.Payload, &p); err != nil {
		return messaging.Skipped, fmt.Errorf("malformed %s payload: %w", evt.Topic, err)
	}

	o, err := s.orders.Get(ctx, p.OrderID)
	if errors.Is(err, domain.ErrNotFound) {
		return messaging.Pending, err
	}
	if err != nil {
		return messaging.Pending, err
	}

	if !o.Cancel() {
		return messaging.Skipped, nil
	}
	cancelEvt, err := messaging.NewEvent(messaging.TopicOrderCancelled, o.ID, messaging.OrderCancelled{
		ID:      o.ID,
		Version: o.Version,
		Ticket:  messaging.TicketRef{ID: o.TicketID},
	})
	if err != nil {
		return messaging.Skipped, err
	}
	err = s.orders.Update(ctx, o, o.Version-1, outbox.NewRecord(aggregate, o.ID, cancelEvt))
	if errors.Is(err, domain.ErrStaleVersion) {
		return messaging.Pending, err
	}
	if err != nil {
		return messaging.Pending, err
	}
	return messaging.Applied, nil
}
