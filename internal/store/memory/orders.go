package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/amkh3780/Ticketing-Microservices/internal/domain"
	"github.com/amkh3780/Ticketing-Microservices/internal/outbox"
)

// Orders is an in-memory store.OrderStore.
type Orders struct {
	mu     sync.Mutex
	byID   map[string]*domain.Order
	outbox *Outbox
}

func NewOrders(ob *Outbox) *Orders {
	return &Orders{byID: make(map[string]*domain.Order), outbox: ob}
}

func (s *Orders) Get(_ context.Context, id string) (*domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.byID[id]
	if !ok {
		return nil, fmt.Errorf("order %s: %w", id, domain.ErrNotFound)
	}
	cp := *o
	return &cp, nil
}

func (s *Orders) Create(_ context.Context, o *domain.Order, rec *outbox.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byID[o.ID]; ok {
		return fmt.Errorf("order %s: %w", o.ID, domain.ErrDuplicate)
	}
	cp := *o
	s.byID[o.ID] = &cp
	s.outbox.mu.Lock()
	s.outbox.add(rec)
	s.outbox.mu.Unlock()
	return nil
}

func (s *Orders) Update(_ context.Context, o *domain.Order, expected int64, rec *outbox.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.byID[o.ID]
	if !ok {
		return fmt.Errorf("order %s: %w", o.ID, domain.ErrNotFound)
	}
	if cur.Version != expected {
		return fmt.Errorf("order %s at v%d, expected v%d: %w", o.ID, cur.Version, expected, domain.ErrStaleVersion)
	}
	cp := *o
	s.byID[o.ID] = &cp
	s.outbox.mu.Lock()
	s.outbox.add(rec)
	s.outbox.mu.Unlock()
	return nil
}
