package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/amkh3780/Ticketing-Microservices/internal/outbox"
)

// Outbox is the Postgres outbox.Store and outbox.DeadLetterStore. Records
// are inserted by the entity stores within their transactions; this type
// only serves the relay and the listeners' dead-letter path.
type Outbox struct {
	pool *pgxpool.Pool
}

func NewOutbox(pool *pgxpool.Pool) *Outbox {
	return &Outbox{pool: pool}
}

func (s *Outbox) Unpublished(ctx context.Context, limit int) ([]*outbox.Record, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, aggregate_type, aggregate_id, event_type, payload, published, attempts, last_error, created_at
		FROM outbox
		WHERE NOT published
		ORDER BY created_at
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("select unpublished: %w", err)
	}
	defer rows.Close()

	var recs []*outbox.Record
	for rows.Next() {
		var r outbox.Record
		if err := rows.Scan(&r.ID, &r.AggregateType, &r.AggregateID, &r.EventType,
			&r.Payload, &r.Published, &r.Attempts, &r.LastError, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan outbox record: %w", err)
		}
		recs = append(recs, &r)
	}
	return recs, rows.Err()
}

// MarkPublished is conditional on the record still being unpublished, so a
// concurrent relay that already handled it reports false instead of
// double-accounting.
func (s *Outbox) MarkPublished(ctx context.Context, id string) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE outbox SET published = true WHERE id = $1 AND NOT published
	`, id)
	if err != nil {
		return false, fmt.Errorf("mark published %s: %w", id, err)
	}
	return tag.RowsAffected() == 1, nil
}

func (s *Outbox) RecordFailure(ctx context.Context, id, lastErr string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE outbox SET attempts = attempts + 1, last_error = $2 WHERE id = $1
	`, id, lastErr)
	if err != nil {
		return fmt.Errorf("record failure %s: %w", id, err)
	}
	return nil
}

// DeadLetter moves the record out of the active queue in one transaction.
func (s *Outbox) DeadLetter(ctx context.Context, rec *outbox.Record, reason string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO dead_letters (id, source, event_type, payload, reason, attempts, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, rec.ID, outbox.SourceRelay, rec.EventType, rec.Payload, reason, rec.Attempts+1, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("insert dead letter %s: %w", rec.ID, err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM outbox WHERE id = $1`, rec.ID); err != nil {
		return fmt.Errorf("delete outbox record %s: %w", rec.ID, err)
	}
	return tx.Commit(ctx)
}

func (s *Outbox) AddDeadLetter(ctx context.Context, dl *outbox.DeadLetter) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO dead_letters (id, source, event_type, payload, reason, attempts, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, dl.ID, dl.Source, dl.EventType, dl.Payload, dl.Reason, dl.Attempts, dl.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert dead letter %s: %w", dl.ID, err)
	}
	return nil
}
