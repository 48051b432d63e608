package kafka

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amkh3780/Ticketing-Microservices/internal/messaging"
	"github.com/amkh3780/Ticketing-Microservices/internal/outbox"
	memstore "github.com/amkh3780/Ticketing-Microservices/internal/store/memory"
)

// fakeFetcher feeds canned messages and records commits.
type fakeFetcher struct {
	msgs      []kafkago.Message
	committed []kafkago.Message
}

func (f *fakeFetcher) FetchMessage(_ context.Context) (kafkago.Message, error) {
	if len(f.msgs) == 0 {
		return kafkago.Message{}, errors.New("no more messages")
	}
	m := f.msgs[0]
	f.msgs = f.msgs[1:]
	return m, nil
}

func (f *fakeFetcher) CommitMessages(_ context.Context, msgs ...kafkago.Message) error {
	f.committed = append(f.committed, msgs...)
	return nil
}

func testListener(h messaging.Handler, dlq outbox.DeadLetterStore, maxHolds int) (*Listener, *fakeFetcher) {
	f := &fakeFetcher{}
	l := &Listener{
		reader:  f,
		handler: h,
		dlq:     dlq,
		log:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		cfg: ListenerConfig{
			Topic:    messaging.TopicOrderCreated,
			GroupID:  "test",
			HoldWait: time.Millisecond,
			MaxHolds: maxHolds,
		},
	}
	return l, f
}

func msg(key string) kafkago.Message {
	return kafkago.Message{Topic: messaging.TopicOrderCreated, Key: []byte(key), Value: []byte(`{}`)}
}

func TestListenerCommitsAppliedAndSkipped(t *testing.T) {
	for _, out := range []messaging.Outcome{messaging.Applied, messaging.Skipped} {
		t.Run(out.String(), func(t *testing.T) {
			l, f := testListener(func(context.Context, messaging.Event) (messaging.Outcome, error) {
				return out, nil
			}, memstore.NewOutbox(), 5)

			require.NoError(t, l.process(context.Background(), msg("o1")))
			assert.Len(t, f.committed, 1)
		})
	}
}

func TestListenerHoldsPendingUntilPreconditionMet(t *testing.T) {
	calls := 0
	l, f := testListener(func(context.Context, messaging.Event) (messaging.Outcome, error) {
		calls++
		if calls < 3 {
			return messaging.Pending, errors.New("predecessor missing")
		}
		return messaging.Applied, nil
	}, memstore.NewOutbox(), 10)

	require.NoError(t, l.process(context.Background(), msg("o1")))
	assert.Equal(t, 3, calls)
	assert.Len(t, f.committed, 1)
}

func TestListenerDeadLettersAfterHoldCeiling(t *testing.T) {
	dlq := memstore.NewOutbox()
	l, f := testListener(func(context.Context, messaging.Event) (messaging.Outcome, error) {
		return messaging.Pending, errors.New("predecessor never arrives")
	}, dlq, 3)

	require.NoError(t, l.process(context.Background(), msg("o1")))

	// Committed so the partition is not stalled forever...
	assert.Len(t, f.committed, 1)

	// ...and parked for manual inspection.
	dead := dlq.DeadLetters()
	require.Len(t, dead, 1)
	assert.Equal(t, outbox.SourceListener, dead[0].Source)
	assert.Equal(t, messaging.TopicOrderCreated, dead[0].EventType)
	assert.Contains(t, dead[0].Reason, "predecessor never arrives")
}

func TestListenerContainsHandlerPanic(t *testing.T) {
	calls := 0
	l, f := testListener(func(context.Context, messaging.Event) (messaging.Outcome, error) {
		calls++
		if calls == 1 {
			panic("boom")
		}
		return messaging.Applied, nil
	}, memstore.NewOutbox(), 5)

	// The panic becomes a hold, not a crash; the retry succeeds.
	require.NoError(t, l.process(context.Background(), msg("o1")))
	assert.Equal(t, 2, calls)
	assert.Len(t, f.committed, 1)
}

func TestListenerStopsOnCancelledContext(t *testing.T) {
	l, _ := testListener(func(context.Context, messaging.Event) (messaging.Outcome, error) {
		return messaging.Pending, nil
	}, memstore.NewOutbox(), 100)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	err := l.process(ctx, msg("o1"))
	assert.ErrorIs(t, err, context.Canceled)
}
