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

// Orders is the Postgres store.OrderStore.
type Orders struct {
	pool *pgxpool.Pool
}

func NewOrders(pool *pgxpool.Pool) *Orders {
	return &Orders{pool: pool}
}

func (s *Orders) Get(ctx context.Context, id string) (*domain.Order, error) {
	var o domain.Order
	err := s.pool.QueryRow(ctx, `
		SELECT id, user_id, ticket_id, price, status, expires_at, version
		FROM orders WHERE id = $1
	`, id).Scan(&o.ID, &o.UserID, &o.TicketID, &o.Price, &o.Status, &o.ExpiresAt, &o.Version)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("order %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get order %s: %w", id, err)
	}
	return &o, nil
}

func (s *Orders) Create(ctx context.Context, o *domain.Order, rec *outbox.Record) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO orders (id, user_id, ticket_id, price, status, expires_at, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, o.ID, o.UserID, o.TicketID, o.Price, o.Status, o.ExpiresAt, o.Version)
	if isUniqueViolation(err) {
		return fmt.Errorf("order %s: %w", o.ID, domain.ErrDuplicate)
	}
	if err != nil {
		return fmt.Errorf("insert order %s: %w", o.ID, err)
	}
	if err := insertOutbox(ctx, tx, rec); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *Orders) Update(ctx context.Context, o *domain.Order, expected int64, rec *outbox.Record) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE orders SET status = $2, version = $3 WHERE id = $1 AND version = $4
	`, o.ID, o.Status, o.Version, expected)
	if err != nil {
		return fmt.Errorf("update order %s: %w", o.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("order %s expected v%d: %w", o.ID, expected, domain.ErrStaleVersion)
	}
	if err := insertOutbox(ctx, tx, rec); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
