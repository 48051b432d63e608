// Package memory provides an in-process bus with the broker's delivery
// semantics: consumer-group fan-out, redelivery of held messages, and no
// ordering promises beyond what the caller publishes. It backs tests and
// single-process runs.
package memory

import (
	"context"
	"sync"

	"github.com/amkh3780/Ticketing-Microservices/internal/messaging"
)

type subscriber struct {
	group   string
	handler messaging.Handler
}

type parked struct {
	evt     messaging.Event
	handler messaging.Handler
	holds   int
}

// Bus delivers each event once per subscribed group. A handler returning
// Pending parks the event; parked events are re-driven after every publish
// until they resolve, which mirrors broker redelivery.
type Bus struct {
	mu     sync.Mutex
	subs   map[string][]subscriber // topic -> groups
	parked []parked
}

func NewBus() *Bus {
	return &Bus{subs: make(map[string][]subscriber)}
}

// Subscribe registers a handler for one (topic, group). A second subscriber
// in the same group replaces the first; the in-process bus has no need for
// competing instances.
func (b *Bus) Subscribe(topic, group string, h messaging.Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, s := range b.subs[topic] {
		if s.group == group {
			b.subs[topic][i].handler = h
			return
		}
	}
	b.subs[topic] = append(b.subs[topic], subscriber{group: group, handler: h})
}

// Publish delivers evt to every group subscribed to its topic, then
// re-drives parked events until no further progress is made.
func (b *Bus) Publish(ctx context.Context, evt messaging.Event) error {
	b.mu.Lock()
	subs := append([]subscriber(nil), b.subs[evt.Topic]...)
	b.mu.Unlock()

	for _, s := range subs {
		b.deliver(ctx, evt, s.handler)
	}
	b.redeliver(ctx)
	return nil
}

func (b *Bus) deliver(ctx context.Context, evt messaging.Event, h messaging.Handler) {
	out, _ := h(ctx, evt)
	if out == messaging.Pending {
		b.mu.Lock()
		b.parked = append(b.parked, parked{evt: evt, handler: h, holds: 1})
		b.mu.Unlock()
	}
}

// redeliver loops over parked events until a full pass applies none of
// them, mimicking the broker's redelivery-until-predecessor-lands loop.
func (b *Bus) redeliver(ctx context.Context) {
	for {
		b.mu.Lock()
		pending := b.parked
		b.parked = nil
		b.mu.Unlock()

		if len(pending) == 0 {
			return
		}

		progress := false
		for _, p := range pending {
			out, _ := p.handler(ctx, p.evt)
			if out == messaging.Pending {
				p.holds++
				b.mu.Lock()
				b.parked = append(b.parked, p)
				b.mu.Unlock()
				continue
			}
			progress = true
		}
		if !progress {
			return
		}
	}
}

// Pending reports how many events are parked awaiting a predecessor.
func (b *Bus) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.parked)
}
