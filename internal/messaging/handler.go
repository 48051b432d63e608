package messaging

import "context"

// Outcome tells the subscription runtime what to do with a message. The
// handler reports its decision explicitly instead of signalling through
// errors: only Pending withholds acknowledgment.
type Outcome int

const (
	// Applied: the event mutated local state. Acknowledge.
	Applied Outcome = iota
	// Skipped: stale, duplicate or permanently unprocessable. Acknowledge
	// without mutating.
	Skipped
	// Pending: a precondition is not met yet (predecessor event missing,
	// referenced entity absent). Do not acknowledge; redeliver.
	Pending
)

func (o Outcome) String() string {
	switch o {
	case Applied:
		return "applied"
	case Skipped:
		return "skipped"
	case Pending:
		return "pending"
	default:
		return "unknown"
	}
}

// Handler processes one event idempotently. The error return is diagnostic
// only; the Outcome alone drives acknowledgment.
type Handler func(ctx context.Context, evt Event) (Outcome, error)
