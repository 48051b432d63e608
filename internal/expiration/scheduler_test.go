package expiration

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amkh3780/Ticketing-Microservices/internal/messaging"
)

type capturePub struct {
	mu     sync.Mutex
	events []messaging.Event
	fail   error
}

func (p *capturePub) Publish(_ context.Context, evt messaging.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail != nil {
		return p.fail
	}
	p.events = append(p.events, evt)
	return nil
}

func (p *capturePub) published() []messaging.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]messaging.Event(nil), p.events...)
}

func newTestScheduler(t *testing.T) (*Scheduler, *capturePub, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	pub := &capturePub{}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewScheduler(rdb, pub, log, Config{}), pub, mr
}

func TestFireDuePublishesAndRemoves(t *testing.T) {
	ctx := context.Background()
	s, pub, _ := newTestScheduler(t)

	base := time.Now()
	require.NoError(t, s.Schedule(ctx, "o1", base.Add(-time.Minute)))
	require.NoError(t, s.Schedule(ctx, "o2", base.Add(time.Hour)))

	fired, err := s.FireDue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, fired)

	events := pub.published()
	require.Len(t, events, 1)
	assert.Equal(t, messaging.TopicExpirationComplete, events[0].Topic)
	assert.Equal(t, "o1", events[0].Key)

	// o1 is gone, o2 waits for its time.
	fired, err = s.FireDue(ctx)
	require.NoError(t, err)
	assert.Zero(t, fired)
}

func TestFireDueAdvancesWithClock(t *testing.T) {
	ctx := context.Background()
	s, pub, _ := newTestScheduler(t)

	base := time.Now()
	require.NoError(t, s.Schedule(ctx, "o1", base.Add(15*time.Minute)))

	fired, err := s.FireDue(ctx)
	require.NoError(t, err)
	assert.Zero(t, fired)

	s.now = func() time.Time { return base.Add(16 * time.Minute) }
	fired, err = s.FireDue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, fired)
	require.Len(t, pub.published(), 1)
}

func TestScheduleIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s, pub, _ := newTestScheduler(t)

	at := time.Now().Add(-time.Second)
	require.NoError(t, s.Schedule(ctx, "o1", at))
	require.NoError(t, s.Schedule(ctx, "o1", at))

	fired, err := s.FireDue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, fired)
	assert.Len(t, pub.published(), 1)
}

func TestFailedPublishKeepsEntryForNextSweep(t *testing.T) {
	ctx := context.Background()
	s, pub, _ := newTestScheduler(t)

	require.NoError(t, s.Schedule(ctx, "o1", time.Now().Add(-time.Second)))

	pub.fail = errors.New("broker down")
	fired, err := s.FireDue(ctx)
	require.NoError(t, err)
	assert.Zero(t, fired)

	pub.fail = nil
	fired, err = s.FireDue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, fired)
}

func TestScheduleSurvivesRestart(t *testing.T) {
	ctx := context.Background()
	s, _, mr := newTestScheduler(t)

	require.NoError(t, s.Schedule(ctx, "o1", time.Now().Add(-time.Minute)))

	// A fresh process against the same store picks up the pending check.
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	pub := &capturePub{}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	restarted := NewScheduler(rdb, pub, log, Config{})

	fired, err := restarted.FireDue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, fired)
	require.Len(t, pub.published(), 1)
	assert.Equal(t, "o1", pub.published()[0].Key)
}

func TestHandleOrderCreatedSchedules(t *testing.T) {
	ctx := context.Background()
	s, pub, _ := newTestScheduler(t)

	evt, err := messaging.NewEvent(messaging.TopicOrderCreated, "o1", messaging.OrderCreated{
		ID:        "o1",
		ExpiresAt: time.Now().Add(-time.Second),
	})
	require.NoError(t, err)

	out, err := s.HandleOrderCreated(ctx, evt)
	require.NoError(t, err)
	assert.Equal(t, messaging.Applied, out)

	fired, err := s.FireDue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, fired)
	assert.Equal(t, "o1", pub.published()[0].Key)
}
