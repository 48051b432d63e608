package messaging

import (
	"context"
	"fmt"
)

// Publisher delivers events to the bus. Implementations must treat a publish
// that times out as failed; retries are the outbox relay's job, never the
// caller's.
type Publisher interface {
	Publish(ctx context.Context, evt Event) error
}

// ConnectionError reports a failure to establish or keep a bus connection.
type ConnectionError struct {
	Endpoint string
	Err      error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("bus connection to %s: %v", e.Endpoint, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// PublishError reports a failed publish attempt on a topic.
type PublishError struct {
	Topic string
	Err   error
}

func (e *PublishError) Error() string {
	return fmt.Sprintf("publish to %s: %v", e.Topic, e.Err)
}

func (e *PublishError) Unwrap() error { return e.Err }
