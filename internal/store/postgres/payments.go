package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/amkh3780/Ticketing-Microservices/internal/domain"
	"github.com/amkh3780/Ticketing-Microservices/internal/outbox"
)

// Payments is the Postgres store.PaymentStore. The UNIQUE constraint on
// order_id is what makes Create fail with ErrDuplicate on a second charge.
type Payments struct {
	pool *pgxpool.Pool
}

func NewPayments(pool *pgxpool.Pool) *Payments {
	return &Payments{pool: pool}
}

func (s *Payments) GetByOrder(ctx context.Context, orderID string) (*domain.Payment, error) {
	var p domain.Payment
	err := s.pool.QueryRow(ctx, `
		SELECT id, order_id, stripe_id, created_at FROM payments WHERE order_id = $1
	`, orderID).Scan(&p.ID, &p.OrderID, &p.StripeID, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("payment for order %s: %w", orderID, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get payment for order %s: %w", orderID, err)
	}
	return &p, nil
}

func (s *Payments) Create(ctx context.Context, p *domain.Payment, rec *outbox.Record) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO payments (id, order_id, stripe_id, created_at)
		VALUES ($1, $2, $3, $4)
	`, p.ID, p.OrderID, p.StripeID, p.CreatedAt)
	if isUniqueViolation(err) {
		return fmt.Errorf("payment for order %s: %w", p.OrderID, domain.ErrDuplicate)
	}
	if err != nil {
		return fmt.Errorf("insert payment %s: %w", p.ID, err)
	}
	if err := insertOutbox(ctx, tx, rec); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
