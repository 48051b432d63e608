package domain

import "time"

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

const (
	OrderStatusCreated         OrderStatus = "created"
	OrderStatusAwaitingPayment OrderStatus = "awaiting_payment"
	OrderStatusComplete        OrderStatus = "complete"
	OrderStatusCancelled       OrderStatus = "cancelled"
)

// Order is a reservation of one ticket by one user. The orders service is
// the authoritative owner; the payments service holds a replica updated
// from order events. Price is captured from the ticket at creation so the
// payments replica can charge without consulting the catalog.
type Order struct {
	ID        string
	UserID    string
	TicketID  string
	Price     float64
	Status    OrderStatus
	ExpiresAt time.Time
	Version   int64
}

// Terminal reports whether the order accepts no further transitions.
func (o *Order) Terminal() bool {
	return o.Status == OrderStatusComplete || o.Status == OrderStatusCancelled
}

// Complete moves the order to complete on a validated payment. Returns
// false without mutating when the order is already terminal, so redelivered
// or late payment events are absorbed as no-ops.
func (o *Order) Complete() bool {
	if o.Terminal() {
		return false
	}
	o.Status = OrderStatusComplete
	o.Version++
	return true
}

// Cancel moves the order to cancelled via the expiration path. Returns
// false without mutating when the order is already terminal.
func (o *Order) Cancel() bool {
	if o.Terminal() {
		return false
	}
	o.Status = OrderStatusCancelled
	o.Version++
	return true
}
