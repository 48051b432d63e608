package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amkh3780/Ticketing-Microservices/internal/messaging"
)

func event(t *testing.T, topic, key string) messaging.Event {
	t.Helper()
	evt, err := messaging.NewEvent(topic, key, map[string]string{"id": key})
	require.NoError(t, err)
	return evt
}

func TestEveryGroupSeesEveryEvent(t *testing.T) {
	bus := NewBus()

	var ordersGot, paymentsGot int
	bus.Subscribe(messaging.TopicTicketUpdated, "orders", func(context.Context, messaging.Event) (messaging.Outcome, error) {
		ordersGot++
		return messaging.Applied, nil
	})
	bus.Subscribe(messaging.TopicTicketUpdated, "payments", func(context.Context, messaging.Event) (messaging.Outcome, error) {
		paymentsGot++
		return messaging.Applied, nil
	})

	require.NoError(t, bus.Publish(context.Background(), event(t, messaging.TopicTicketUpdated, "t1")))
	assert.Equal(t, 1, ordersGot)
	assert.Equal(t, 1, paymentsGot)
}

func TestTopicsAreIndependent(t *testing.T) {
	bus := NewBus()

	var got int
	bus.Subscribe(messaging.TopicOrderCreated, "g", func(context.Context, messaging.Event) (messaging.Outcome, error) {
		got++
		return messaging.Applied, nil
	})

	require.NoError(t, bus.Publish(context.Background(), event(t, messaging.TopicOrderCancelled, "o1")))
	assert.Zero(t, got)
}

func TestPendingEventRedeliveredAfterProgress(t *testing.T) {
	bus := NewBus()

	// The handler cannot apply v2 until v1 arrives, mirroring a consumer
	// holding an out-of-order event.
	applied := []string{}
	seen := map[string]bool{}
	bus.Subscribe(messaging.TopicTicketUpdated, "orders", func(_ context.Context, evt messaging.Event) (messaging.Outcome, error) {
		key := evt.Key
		if key == "v2" && !seen["v1"] {
			return messaging.Pending, nil
		}
		seen[key] = true
		applied = append(applied, key)
		return messaging.Applied, nil
	})

	require.NoError(t, bus.Publish(context.Background(), event(t, messaging.TopicTicketUpdated, "v2")))
	assert.Equal(t, 1, bus.Pending())

	// v1 lands; the parked v2 drains in the same publish call.
	require.NoError(t, bus.Publish(context.Background(), event(t, messaging.TopicTicketUpdated, "v1")))
	assert.Zero(t, bus.Pending())
	assert.Equal(t, []string{"v1", "v2"}, applied)
}
