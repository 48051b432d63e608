package domain

import "time"

// Payment records a successful charge against an order. At most one payment
// exists per order; the row is immutable once written.
type Payment struct {
	ID        string
	OrderID   string
	StripeID  string
	CreatedAt time.Time
}
