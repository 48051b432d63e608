package payments

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amkh3780/Ticketing-Microservices/internal/domain"
	"github.com/amkh3780/Ticketing-Microservices/internal/messaging"
	memstore "github.com/amkh3780/Ticketing-Microservices/internal/store/memory"
)

func newTestService(t *testing.T) (*Service, *memstore.Outbox) {
	t.Helper()
	ob := memstore.NewOutbox()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(memstore.NewPayments(ob), memstore.NewOrders(ob), NewStubGateway(), log), ob
}

func orderCreated(t *testing.T, orderID string, price float64) messaging.Event {
	t.Helper()
	evt, err := messaging.NewEvent(messaging.TopicOrderCreated, orderID, messaging.OrderCreated{
		ID:        orderID,
		Version:   0,
		Status:    string(domain.OrderStatusCreated),
		UserID:    "u1",
		ExpiresAt: time.Now().Add(15 * time.Minute),
		Ticket:    messaging.TicketRef{ID: "t1", Price: price},
	})
	require.NoError(t, err)
	return evt
}

func orderCancelled(t *testing.T, orderID string, version int64) messaging.Event {
	t.Helper()
	evt, err := messaging.NewEvent(messaging.TopicOrderCancelled, orderID, messaging.OrderCancelled{
		ID:      orderID,
		Version: version,
		Ticket:  messaging.TicketRef{ID: "t1"},
	})
	require.NoError(t, err)
	return evt
}

func TestChargeCreatesPaymentAndEvent(t *testing.T) {
	ctx := context.Background()
	svc, ob := newTestService(t)

	out, err := svc.HandleOrderCreated(ctx, orderCreated(t, "o1", 20))
	require.NoError(t, err)
	require.Equal(t, messaging.Applied, out)

	p, err := svc.Charge(ctx, "o1")
	require.NoError(t, err)
	assert.Equal(t, "o1", p.OrderID)
	assert.NotEmpty(t, p.StripeID)

	recs, err := ob.Unpublished(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, messaging.TopicPaymentCreated, recs[0].EventType)
}

func TestChargeUnknownOrder(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.Charge(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSecondChargeForSameOrderRejected(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	_, err := svc.HandleOrderCreated(ctx, orderCreated(t, "o1", 20))
	require.NoError(t, err)
	_, err = svc.Charge(ctx, "o1")
	require.NoError(t, err)

	_, err = svc.Charge(ctx, "o1")
	assert.ErrorIs(t, err, domain.ErrDuplicate)
}

func TestChargeCancelledOrderRejected(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	_, err := svc.HandleOrderCreated(ctx, orderCreated(t, "o1", 20))
	require.NoError(t, err)
	out, err := svc.HandleOrderCancelled(ctx, orderCancelled(t, "o1", 1))
	require.NoError(t, err)
	require.Equal(t, messaging.Applied, out)

	_, err = svc.Charge(ctx, "o1")
	assert.ErrorIs(t, err, domain.ErrOrderCancelled)
}

func TestReplicaVersionDiscipline(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	// Cancellation ahead of the creation event is held.
	out, err := svc.HandleOrderCancelled(ctx, orderCancelled(t, "o1", 1))
	assert.Equal(t, messaging.Pending, out)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	out, err = svc.HandleOrderCreated(ctx, orderCreated(t, "o1", 20))
	require.NoError(t, err)
	assert.Equal(t, messaging.Applied, out)

	// Now the cancellation applies once...
	out, err = svc.HandleOrderCancelled(ctx, orderCancelled(t, "o1", 1))
	require.NoError(t, err)
	assert.Equal(t, messaging.Applied, out)

	// ...and its redelivery is skipped.
	out, err = svc.HandleOrderCancelled(ctx, orderCancelled(t, "o1", 1))
	require.NoError(t, err)
	assert.Equal(t, messaging.Skipped, out)

	// A cancellation two versions ahead is held for its predecessor.
	out, err = svc.HandleOrderCreated(ctx, orderCreated(t, "o2", 20))
	require.NoError(t, err)
	require.Equal(t, messaging.Applied, out)
	out, err = svc.HandleOrderCancelled(ctx, orderCancelled(t, "o2", 3))
	assert.Equal(t, messaging.Pending, out)
	assert.ErrorIs(t, err, domain.ErrPredecessorMissing)
}

func TestStubGatewayIdempotency(t *testing.T) {
	gw := NewStubGateway()
	a, err := gw.Charge(context.Background(), 20, "o1")
	require.NoError(t, err)
	b, err := gw.Charge(context.Background(), 20, "o1")
	require.NoError(t, err)
	assert.Equal(t, a, b)

	c, err := gw.Charge(context.Background(), 20, "o2")
	require.NoError(t, err)
	assert.NotEqual(t, a, c)
}
