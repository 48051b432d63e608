package domain

// Ticket is a catalog entry. The tickets service is the authoritative
// owner; every other service holds a read-only replica updated solely by
// ticket events. OrderID is nil while the ticket is available.
type Ticket struct {
	ID      string
	Title   string
	Price   float64
	OrderID *string
	Version int64
}

// Reserved reports whether a non-terminal order holds the ticket.
func (t *Ticket) Reserved() bool {
	return t.OrderID != nil
}

// Reserve ties the ticket to an order. Returns ErrTicketReserved when the
// ticket is already held by a different order; reserving again for the same
// order is a no-op and returns nil with changed=false.
func (t *Ticket) Reserve(orderID string) (changed bool, err error) {
	if t.OrderID != nil {
		if *t.OrderID == orderID {
			return false, nil
		}
		return false, ErrTicketReserved
	}
	id := orderID
	t.OrderID = &id
	t.Version++
	return true, nil
}

// Release clears the reservation held by orderID. A release naming an order
// that does not hold the ticket returns ErrReservationMismatch: the ticket
// was re-reserved and must not be freed. Releasing an available ticket is a
// no-op.
func (t *Ticket) Release(orderID string) (changed bool, err error) {
	if t.OrderID == nil {
		return false, nil
	}
	if *t.OrderID != orderID {
		return false, ErrReservationMismatch
	}
	t.OrderID = nil
	t.Version++
	return true, nil
}
