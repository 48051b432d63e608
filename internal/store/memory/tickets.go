package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/amkh3780/Ticketing-Microservices/internal/domain"
	"github.com/amkh3780/Ticketing-Microservices/internal/outbox"
)

// Tickets is an in-memory store.TicketStore.
type Tickets struct {
	mu     sync.Mutex
	byID   map[string]*domain.Ticket
	outbox *Outbox
}

func NewTickets(ob *Outbox) *Tickets {
	return &Tickets{byID: make(map[string]*domain.Ticket), outbox: ob}
}

func (s *Tickets) Get(_ context.Context, id string) (*domain.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.byID[id]
	if !ok {
		return nil, fmt.Errorf("ticket %s: %w", id, domain.ErrNotFound)
	}
	cp := copyTicket(t)
	return cp, nil
}

func (s *Tickets) Create(_ context.Context, t *domain.Ticket, rec *outbox.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byID[t.ID]; ok {
		return fmt.Errorf("ticket %s: %w", t.ID, domain.ErrDuplicate)
	}
	s.byID[t.ID] = copyTicket(t)
	s.outbox.mu.Lock()
	s.outbox.add(rec)
	s.outbox.mu.Unlock()
	return nil
}

func (s *Tickets) Update(_ context.Context, t *domain.Ticket, expected int64, rec *outbox.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.byID[t.ID]
	if !ok {
		return fmt.Errorf("ticket %s: %w", t.ID, domain.ErrNotFound)
	}
	if cur.Version != expected {
		return fmt.Errorf("ticket %s at v%d, expected v%d: %w", t.ID, cur.Version, expected, domain.ErrStaleVersion)
	}
	s.byID[t.ID] = copyTicket(t)
	s.outbox.mu.Lock()
	s.outbox.add(rec)
	s.outbox.mu.Unlock()
	return nil
}

func copyTicket(t *domain.Ticket) *domain.Ticket {
	cp := *t
	if t.OrderID != nil {
		id := *t.OrderID
		cp.OrderID = &id
	}
	return &cp
}
