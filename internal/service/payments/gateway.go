package payments

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// StubGateway stands in for the real processor when no gateway credentials
// are configured. It honors the idempotency contract: repeated charges with
// the same key return the same charge id.
type StubGateway struct {
	mu      sync.Mutex
	charges map[string]string
}

func NewStubGateway() *StubGateway {
	return &StubGateway{charges: make(map[string]string)}
}

func (g *StubGateway) Charge(_ context.Context, _ float64, idempotencyKey string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if id, ok := g.charges[idempotencyKey]; ok {
		return id, nil
	}
	id := "ch_" + uuid.NewString()
	g.charges[idempotencyKey] = id
	return id, nil
}
