// Package expiration schedules the delayed cancellation check for each
// order. The schedule is a Redis sorted set keyed by fire time, so pending
// checks survive a process restart: the first poll after startup fires
// anything that came due while the process was down.
package expiration

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/amkh3780/Ticketing-Microservices/internal/messaging"
)

// Config tunes the scheduler.
type Config struct {
	// Key is the sorted-set key. Default "expiration:schedule".
	Key string
	// PollInterval between due-entry sweeps. Default 1s.
	PollInterval time.Duration
}

func (c Config) withDefaults() Config {
	if c.Key == "" {
		c.Key = "expiration:schedule"
	}
	if c.PollInterval <= 0 {
		c.PollInterval = time.Second
	}
	return c
}

// Scheduler stores one pending check per order and publishes
// expiration.complete when it comes due. Publishing is at-least-once: an
// entry is removed only after a successful publish, and the orders service
// absorbs duplicates because cancellation of a terminal order is a no-op.
type Scheduler struct {
	rdb *redis.Client
	pub messaging.Publisher
	log *slog.Logger
	cfg Config
	now func() time.Time
}

func NewScheduler(rdb *redis.Client, pub messaging.Publisher, log *slog.Logger, cfg Config) *Scheduler {
	return &Scheduler{rdb: rdb, pub: pub, log: log, cfg: cfg.withDefaults(), now: time.Now}
}

// Schedule records a check for orderID at the given time. ZADD overwrites,
// so rescheduling the same order (a redelivered creation event) is a no-op.
func (s *Scheduler) Schedule(ctx context.Context, orderID string, at time.Time) error {
	return s.rdb.ZAdd(ctx, s.cfg.Key, redis.Z{
		Score:  float64(at.Unix()),
		Member: orderID,
	}).Err()
}

// HandleOrderCreated is the listener entry: every new order gets a check at
// its expiry time.
func (s *Scheduler) HandleOrderCreated(ctx context.Context, evt messaging.Event) (messaging.Outcome, error) {
	var p messaging.OrderCreated
	if err := json.Unmarshal(evt.Payload, &p); err != nil {
		return messaging.Skipped, err
	}
	if err := s.Schedule(ctx, p.ID, p.ExpiresAt); err != nil {
		return messaging.Pending, err
	}
	return messaging.Applied, nil
}

// Run sweeps for due entries until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.FireDue(ctx); err != nil {
				s.log.Error("expiration sweep failed", "error", err)
			}
		}
	}
}

// FireDue publishes expiration.complete for every entry whose fire time has
// passed and reports how many fired.
func (s *Scheduler) FireDue(ctx context.Context) (int, error) {
	max := strconv.FormatInt(s.now().Unix(), 10)
	due, err := s.rdb.ZRangeByScore(ctx, s.cfg.Key, &redis.ZRangeBy{Min: "-inf", Max: max}).Result()
	if err != nil {
		return 0, err
	}

	fired := 0
	for _, orderID := range due {
		evt, err := messaging.NewEvent(messaging.TopicExpirationComplete, orderID,
			messaging.ExpirationComplete{OrderID: orderID})
		if err != nil {
			return fired, err
		}
		if err := s.pub.Publish(ctx, evt); err != nil {
			// Entry stays in the set; the next sweep retries it.
			s.log.Warn("expiration publish failed", "order", orderID, "error", err)
			continue
		}
		if err := s.rdb.ZRem(ctx, s.cfg.Key, orderID).Err(); err != nil {
			s.log.Warn("expiration dequeue failed", "order", orderID, "error", err)
			continue
		}
		s.log.Info("expiration fired", "order", orderID)
		fired++
	}
	return fired, nil
}
