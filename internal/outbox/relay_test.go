package outbox_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amkh3780/Ticketing-Microservices/internal/domain"
	"github.com/amkh3780/Ticketing-Microservices/internal/messaging"
	"github.com/amkh3780/Ticketing-Microservices/internal/outbox"
	memstore "github.com/amkh3780/Ticketing-Microservices/internal/store/memory"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// capturePub records published events and can be told to fail.
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

func seed(t *testing.T, ob *memstore.Outbox, key string) *outbox.Record {
	t.Helper()
	evt, err := messaging.NewEvent(messaging.TopicOrderCreated, key, messaging.OrderCreated{ID: key})
	require.NoError(t, err)
	rec := outbox.NewRecord("order", key, evt)
	st := memstore.NewOrders(ob)
	require.NoError(t, st.Create(context.Background(), &domain.Order{ID: key, Status: domain.OrderStatusCreated}, rec))
	return rec
}

func TestRelayPublishesAndMarks(t *testing.T) {
	ctx := context.Background()
	ob := memstore.NewOutbox()
	rec := seed(t, ob, "o1")

	pub := &capturePub{}
	relay := outbox.NewRelay(ob, pub, discardLogger(), outbox.RelayConfig{})

	n, err := relay.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	require.Len(t, pub.published(), 1)
	assert.Equal(t, messaging.TopicOrderCreated, pub.published()[0].Topic)

	got, ok := ob.Record(rec.ID)
	require.True(t, ok)
	assert.True(t, got.Published)

	// Nothing left for the next cycle.
	n, err = relay.RunOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRelayRetriesFailedPublish(t *testing.T) {
	ctx := context.Background()
	ob := memstore.NewOutbox()
	rec := seed(t, ob, "o1")

	pub := &capturePub{fail: errors.New("broker unreachable")}
	relay := outbox.NewRelay(ob, pub, discardLogger(), outbox.RelayConfig{MaxAttempts: 5})

	n, err := relay.RunOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	got, ok := ob.Record(rec.ID)
	require.True(t, ok)
	assert.False(t, got.Published)
	assert.Equal(t, 1, got.Attempts)
	assert.Contains(t, got.LastError, "broker unreachable")

	// Broker recovers; the record drains.
	pub.fail = nil
	n, err = relay.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestRelayDeadLettersAfterCeiling(t *testing.T) {
	ctx := context.Background()
	ob := memstore.NewOutbox()
	rec := seed(t, ob, "o1")

	pub := &capturePub{fail: errors.New("poison")}
	relay := outbox.NewRelay(ob, pub, discardLogger(), outbox.RelayConfig{MaxAttempts: 3})

	for i := 0; i < 3; i++ {
		_, err := relay.RunOnce(ctx)
		require.NoError(t, err)
	}

	// Removed from the active queue so it cannot block the batch.
	_, ok := ob.Record(rec.ID)
	assert.False(t, ok)

	dead := ob.DeadLetters()
	require.Len(t, dead, 1)
	assert.Equal(t, outbox.SourceRelay, dead[0].Source)
	assert.Equal(t, messaging.TopicOrderCreated, dead[0].EventType)
	assert.Equal(t, 3, dead[0].Attempts)
}

func TestRelayOldestFirstWithinBatchLimit(t *testing.T) {
	ctx := context.Background()
	ob := memstore.NewOutbox()
	seed(t, ob, "o1")
	seed(t, ob, "o2")
	seed(t, ob, "o3")

	pub := &capturePub{}
	relay := outbox.NewRelay(ob, pub, discardLogger(), outbox.RelayConfig{BatchSize: 2})

	n, err := relay.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = relay.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	keys := make([]string, 0, 3)
	for _, evt := range pub.published() {
		keys = append(keys, evt.Key)
	}
	assert.Equal(t, []string{"o1", "o2", "o3"}, keys)
}
