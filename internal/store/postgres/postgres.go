// Package postgres implements the entity stores, outbox and dead-letter
// tables over pgx. Each mutation runs in one transaction with its outbox
// insert; conditional updates enforce the version rule at the row level.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/amkh3780/Ticketing-Microservices/internal/outbox"
)

// uniqueViolation is the Postgres error code for duplicate keys.
const uniqueViolation = "23505"

// Connect opens a pool against DATABASE_URL (or the given URL) and pings it.
func Connect(ctx context.Context, url string) (*pgxpool.Pool, error) {
	if url == "" {
		url = os.Getenv("DATABASE_URL")
	}
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return pool, nil
}

// Migrate applies the service schema. Statements are idempotent so every
// instance can run it at startup.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range schema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// insertOutbox writes the record within the caller's transaction. A nil
// record is a mutation that emits no event.
func insertOutbox(ctx context.Context, tx pgx.Tx, rec *outbox.Record) error {
	if rec == nil {
		return nil
	}
	_, err := tx.Exec(ctx, `
		INSERT INTO outbox (id, aggregate_type, aggregate_id, event_type, payload, published, attempts, last_error, created_at)
		VALUES ($1, $2, $3, $4, $5, false, 0, '', $6)
	`, rec.ID, rec.AggregateType, rec.AggregateID, rec.EventType, rec.Payload, rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert outbox record: %w", err)
	}
	return nil
}
