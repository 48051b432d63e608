// Package memory provides mutex-guarded in-memory stores with the same
// conditional-write semantics as the Postgres implementations. They back
// tests and local runs without a database.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/amkh3780/Ticketing-Microservices/internal/outbox"
)

// Outbox holds outbox records and dead letters. Entity stores created with
// it append records under its lock so entity write and record insert stay
// atomic within the process.
type Outbox struct {
	mu      sync.Mutex
	records map[string]*outbox.Record
	dead    []*outbox.DeadLetter
}

func NewOutbox() *Outbox {
	return &Outbox{records: make(map[string]*outbox.Record)}
}

func (o *Outbox) add(rec *outbox.Record) {
	if rec == nil {
		return
	}
	cp := *rec
	o.records[cp.ID] = &cp
}

func (o *Outbox) Unpublished(_ context.Context, limit int) ([]*outbox.Record, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	var recs []*outbox.Record
	for _, r := range o.records {
		if !r.Published {
			cp := *r
			recs = append(recs, &cp)
		}
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].CreatedAt.Before(recs[j].CreatedAt) })
	if limit > 0 && len(recs) > limit {
		recs = recs[:limit]
	}
	return recs, nil
}

func (o *Outbox) MarkPublished(_ context.Context, id string) (bool, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	r, ok := o.records[id]
	if !ok || r.Published {
		return false, nil
	}
	r.Published = true
	return true, nil
}

func (o *Outbox) RecordFailure(_ context.Context, id, lastErr string) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if r, ok := o.records[id]; ok {
		r.Attempts++
		r.LastError = lastErr
	}
	return nil
}

func (o *Outbox) DeadLetter(_ context.Context, rec *outbox.Record, reason string) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	delete(o.records, rec.ID)
	o.dead = append(o.dead, &outbox.DeadLetter{
		ID:        rec.ID,
		Source:    outbox.SourceRelay,
		EventType: rec.EventType,
		Payload:   rec.Payload,
		Reason:    reason,
		Attempts:  rec.Attempts + 1,
		CreatedAt: time.Now().UTC(),
	})
	return nil
}

func (o *Outbox) AddDeadLetter(_ context.Context, dl *outbox.DeadLetter) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	cp := *dl
	o.dead = append(o.dead, &cp)
	return nil
}

// DeadLetters returns a snapshot of the dead-letter queue.
func (o *Outbox) DeadLetters() []*outbox.DeadLetter {
	o.mu.Lock()
	defer o.mu.Unlock()

	out := make([]*outbox.DeadLetter, len(o.dead))
	copy(out, o.dead)
	return out
}

// Record returns a snapshot of one record, published or not.
func (o *Outbox) Record(id string) (*outbox.Record, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()

	r, ok := o.records[id]
	if !ok {
		return nil, false
	}
	cp := *r
	return &cp, true
}
