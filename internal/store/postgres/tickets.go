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

// Tickets is the Postgres store.TicketStore.
type Tickets struct {
	pool *pgxpool.Pool
}

func NewTickets(pool *pgxpool.Pool) *Tickets {
	return &Tickets{pool: pool}
}

func (s *Tickets) Get(ctx context.Context, id string) (*domain.Ticket, error) {
	var t domain.Ticket
	err := s.pool.QueryRow(ctx, `
		SELECT id, title, price, order_id, version FROM tickets WHERE id = $1
	`, id).Scan(&t.ID, &t.Title, &t.Price, &t.OrderID, &t.Version)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("ticket %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get ticket %s: %w", id, err)
	}
	return &t, nil
}

func (s *Tickets) Create(ctx context.Context, t *domain.Ticket, rec *outbox.Record) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO tickets (id, title, price, order_id, version)
		VALUES ($1, $2, $3, $4, $5)
	`, t.ID, t.Title, t.Price, t.OrderID, t.Version)
	if isUniqueViolation(err) {
		return fmt.Errorf("ticket %s: %w", t.ID, domain.ErrDuplicate)
	}
	if err != nil {
		return fmt.Errorf("insert ticket %s: %w", t.ID, err)
	}
	if err := insertOutbox(ctx, tx, rec); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *Tickets) Update(ctx context.Context, t *domain.Ticket, expected int64, rec *outbox.Record) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE tickets SET title = $2, price = $3, order_id = $4, version = $5
		WHERE id = $1 AND version = $6
	`, t.ID, t.Title, t.Price, t.OrderID, t.Version, expected)
	if err != nil {
		return fmt.Errorf("update ticket %s: %w", t.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("ticket %s expected v%d: %w", t.ID, expected, domain.ErrStaleVersion)
	}
	if err := insertOutbox(ctx, tx, rec); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
