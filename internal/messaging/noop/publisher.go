package noop

import (
	"context"

	"github.com/amkh3780/Ticketing-Microservices/internal/messaging"
)

// Publisher is a no-op messaging.Publisher used when the broker is not
// configured. Outbox records are still written; the relay marks them
// published without a broker round trip.
type Publisher struct{}

func (Publisher) Publish(_ context.Context, _ messaging.Event) error { return nil }
