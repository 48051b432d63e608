package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/amkh3780/Ticketing-Microservices/internal/domain"
	"github.com/amkh3780/Ticketing-Microservices/internal/outbox"
)

// Payments is an in-memory store.PaymentStore.
type Payments struct {
	mu      sync.Mutex
	byOrder map[string]*domain.Payment
	outbox  *Outbox
}

func NewPayments(ob *Outbox) *Payments {
	return &Payments{byOrder: make(map[string]*domain.Payment), outbox: ob}
}

func (s *Payments) GetByOrder(_ context.Context, orderID string) (*domain.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.byOrder[orderID]
	if !ok {
		return nil, fmt.Errorf("payment for order %s: %w", orderID, domain.ErrNotFound)
	}
	cp := *p
	return &cp, nil
}

func (s *Payments) Create(_ context.Context, p *domain.Payment, rec *outbox.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byOrder[p.OrderID]; ok {
		return fmt.Errorf("payment for order %s: %w", p.OrderID, domain.ErrDuplicate)
	}
	cp := *p
	s.byOrder[p.OrderID] = &cp
	s.outbox.mu.Lock()
	s.outbox.add(rec)
	s.outbox.mu.Unlock()
	return nil
}
