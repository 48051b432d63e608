package domain

import "errors"

// Sentinel errors shared by the stores and services. Callers branch with
// errors.Is; stores wrap them with context where useful.
var (
	// ErrNotFound is returned when an entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrStaleVersion is returned by a conditional write whose expected
	// version no longer matches the stored row. The write did not happen.
	ErrStaleVersion = errors.New("stale version")

	// ErrPredecessorMissing marks an event whose version is ahead of the
	// local replica. The event must be held for redelivery, not applied.
	ErrPredecessorMissing = errors.New("predecessor event missing")

	// ErrDuplicate is returned when a unique constraint is violated,
	// such as a second Payment for the same Order. Never retried.
	ErrDuplicate = errors.New("duplicate")

	// ErrTicketReserved is returned when a ticket is already held by a
	// non-terminal order.
	ErrTicketReserved = errors.New("ticket already reserved")

	// ErrReservationMismatch is returned when a release names an order
	// that does not hold the ticket. The ticket must not be released.
	ErrReservationMismatch = errors.New("reservation order mismatch")

	// ErrOrderCancelled is returned when a charge targets an order that
	// has already been cancelled.
	ErrOrderCancelled = errors.New("order cancelled")
)
