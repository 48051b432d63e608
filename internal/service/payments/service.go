// Package payments implements the payments service: the authoritative
// owner of Payment, plus a version-checked Order replica fed by order
// events. The gateway is opaque; idempotency is keyed on the order id.
package payments

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

const aggregate = "payment"

// Gateway charges a card through the external processor. Implementations
// must treat idempotencyKey as the dedupe key so a retried charge for the
// same order never bills twice.
type Gateway interface {
	Charge(ctx context.Context, amount float64, idempotencyKey string) (chargeID string, err error)
}

type Service struct {
	payments store.PaymentStore
	orders   store.OrderStore
	gateway  Gateway
	log      *slog.Logger
	now      func() time.Time
}

func New(payments store.PaymentStore, orders store.OrderStore, gw Gateway, log *slog.Logger) *Service {
	return &Service{payments: payments, orders: orders, gateway: gw, log: log, now: time.Now}
}

// Charge bills the order and records the payment with payment.created in
// one atomic unit. A second charge for the same order fails with
// ErrDuplicate; a charge against a cancelled order with ErrOrderCancelled.
func (s *Service) Charge(ctx context.Context, orderID string) (*domain.Payment, error) {
	o, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.Status == domain.OrderStatusCancelled {
		return nil, fmt.Errorf("order %s: %w", orderID, domain.ErrOrderCancelled)
	}
	if _, err := s.payments.GetByOrder(ctx, orderID); err == nil {
		return nil, fmt.Errorf("order %s: %w", orderID, domain.ErrDuplicate)
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	chargeID, err := s.gateway.Charge(ctx, o.Price, orderID)
	if err != nil {
		return nil, fmt.Errorf("charge order %s: %w", orderID, err)
	}

	p := &domain.Payment{
		ID:        uuid.NewString(),
		OrderID:   orderID,
		StripeID:  chargeID,
		CreatedAt: s.now().UTC(),
	}
	evt, err := messaging.NewEvent(messaging.TopicPaymentCreated, p.ID, messaging.PaymentCreated{
		ID: p.ID, OrderID: p.OrderID, StripeID: p.StripeID,
	})
	if err != nil {
		return nil, err
	}
	if err := s.payments.Create(ctx, p, outbox.NewRecord(aggregate, p.ID, evt)); err != nil {
		return nil, err
	}
	return p, nil
}

// HandleOrderCreated seeds the order replica.
func (s *Service) HandleOrderCreated(ctx context.Context, evt messaging.Event) (messaging.Outcome, error) {
	var p messaging.OrderCreated
	if err := json.Unmarshal(evt.Payload, &p); err != nil {
		return messaging.Skipped, fmt.Errorf("malformed %s payload: %w", evt.Topic, err)
	}
	return s.applyOrder(ctx, &domain.Order{
		ID:        p.ID,
		UserID:    p.UserID,
		TicketID:  p.Ticket.ID,
		Price:     p.Ticket.Price,
		Status:    domain.OrderStatus(p.Status),
		ExpiresAt: p.ExpiresAt,
		Version:   p.Version,
	})
}

// HandleOrderCancelled marks the replica cancelled so later charges are
// refused.
func (s *Service) HandleOrderCancelled(ctx context.Context, evt messaging.Event) (messaging.Outcome, error) {
	var p messaging.OrderCancelled
	if err := json.Unmarshal(evt.Payload, &p); err != nil {
		return messaging.Skipped, fmt.Errorf("malformed %s payload: %w", evt.Topic, err)
	}

	cur, err := s.orders.Get(ctx, p.ID)
	if errors.Is(err, domain.ErrNotFound) {
		return messaging.Pending, err
	}
	if err != nil {
		return messaging.Pending, err
	}

	next := *cur
	next.Status = domain.OrderStatusCancelled
	next.Version = p.Version
	return s.applyVersioned(ctx, cur.Version, &next)
}

func (s *Service) applyOrder(ctx context.Context, incoming *domain.Order) (messaging.Outcome, error) {
	local := int64(-1)
	cur, err := s.orders.Get(ctx, incoming.ID)
	switch {
	case errors.Is(err, domain.ErrNotFound):
	case err != nil:
		return messaging.Pending, err
	default:
		local = cur.Version
	}

	switch domain.DecideVersion(local, incoming.Version) {
	case domain.SkipEvent:
		return messaging.Skipped, nil
	case domain.HoldEvent:
		return messaging.Pending, fmt.Errorf("order %s replica at v%d, event v%d: %w",
			incoming.ID, local, incoming.Version, domain.ErrPredecessorMissing)
	}

	if local < 0 {
		err = s.orders.Create(ctx, incoming, nil)
	} else {
		err = s.orders.Update(ctx, incoming, local, nil)
	}
	if errors.Is(err, domain.ErrStaleVersion) || errors.Is(err, domain.ErrDuplicate) {
		return messaging.Pending, err
	}
	if err != nil {
		return messaging.Pending, err
	}
	return messaging.Applied, nil
}

func (s *Service) applyVersioned(ctx context.Context, local int64, next *domain.Order) (messaging.Outcome, error) {
	switch domain.DecideVersion(local, next.Version) {
	case domain.SkipEvent:
		return messaging.Skipped, nil
	case domain.HoldEvent:
		return messaging.Pending, fmt.Errorf("order %s replica at v%d, event v%d: %w",
			next.ID, local, next.Version, domain.ErrPredecessorMissing)
	}

	err := s.orders.Update(ctx, next, local, nil)
	if errors.Is(err, domain.ErrStaleVersion) {
		return messaging.Pending, err
	}
	if err != nil {
		return messaging.Pending, err
	}
	return messaging.Applied, nil
}
