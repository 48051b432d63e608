package outbox

import (
	"context"
	"log/slog"
	"time"

	"github.com/amkh3780/Ticketing-Microservices/internal/messaging"
)

// RelayConfig tunes the relay loop.
type RelayConfig struct {
	// PollInterval between batches. Default 1s.
	PollInterval time.Duration
	// BatchSize caps records per cycle. Default 50.
	BatchSize int
	// MaxAttempts before a record is dead-lettered. Default 10.
	MaxAttempts int
}

func (c RelayConfig) withDefaults() RelayConfig {
	if c.PollInterval <= 0 {
		c.PollInterval = time.Second
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 50
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 10
	}
	return c
}

// Relay drains unpublished outbox records to the bus. It runs as a
// background task in the owning process, sharing the store with the request
// path but never its code path. Delivery is at-least-once: a crash between
// publish and MarkPublished re-publishes on the next cycle.
type Relay struct {
	store Store
	pub   messaging.Publisher
	log   *slog.Logger
	cfg   RelayConfig
}

func NewRelay(store Store, pub messaging.Publisher, log *slog.Logger, cfg RelayConfig) *Relay {
	return &Relay{store: store, pub: pub, log: log, cfg: cfg.withDefaults()}
}

// Run polls until ctx is cancelled.
func (r *Relay) Run(ctx context.Context) {
	ticker := time.NewTicker(r.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := r.RunOnce(ctx); err != nil {
				r.log.Error("outbox cycle failed", "error", err)
			}
		}
	}
}

// RunOnce processes one batch and reports how many records it published.
func (r *Relay) RunOnce(ctx context.Context) (int, error) {
	recs, err := r.store.Unpublished(ctx, r.cfg.BatchSize)
	if err != nil {
		return 0, err
	}

	published := 0
	for _, rec := range recs {
		if err := r.pub.Publish(ctx, rec.Event()); err != nil {
			r.fail(ctx, rec, err)
			continue
		}
		ok, err := r.store.MarkPublished(ctx, rec.ID)
		if err != nil {
			r.log.Error("mark published failed", "record", rec.ID, "error", err)
			continue
		}
		if !ok {
			// Another relay won the race; the duplicate publish is
			// absorbed downstream by the version check.
			r.log.Debug("record already published", "record", rec.ID)
			continue
		}
		published++
	}
	return published, nil
}

func (r *Relay) fail(ctx context.Context, rec *Record, cause error) {
	if rec.Attempts+1 >= r.cfg.MaxAttempts {
		r.log.Warn("dead-lettering outbox record",
			"record", rec.ID, "event", rec.EventType, "attempts", rec.Attempts+1, "error", cause)
		if err := r.store.DeadLetter(ctx, rec, cause.Error()); err != nil {
			r.log.Error("dead-letter failed", "record", rec.ID, "error", err)
		}
		return
	}
	r.log.Warn("publish failed, will retry",
		"record", rec.ID, "event", rec.EventType, "attempts", rec.Attempts+1, "error", cause)
	if err := r.store.RecordFailure(ctx, rec.ID, cause.Error()); err != nil {
		r.log.Error("record failure update failed", "record", rec.ID, "error", err)
	}
}
