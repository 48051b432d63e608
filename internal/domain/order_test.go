package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOrderComplete(t *testing.T) {
	tests := []struct {
		name        string
		status      OrderStatus
		wantChanged bool
		wantStatus  OrderStatus
		wantVersion int64
	}{
		{"from created", OrderStatusCreated, true, OrderStatusComplete, 1},
		{"from awaiting payment", OrderStatusAwaitingPayment, true, OrderStatusComplete, 1},
		{"already complete", OrderStatusComplete, false, OrderStatusComplete, 0},
		{"already cancelled", OrderStatusCancelled, false, OrderStatusCancelled, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := &Order{ID: "o1", Status: tt.status, Version: 0}
			assert.Equal(t, tt.wantChanged, o.Complete())
			assert.Equal(t, tt.wantStatus, o.Status)
			assert.Equal(t, tt.wantVersion, o.Version)
		})
	}
}

func TestOrderCancel(t *testing.T) {
	tests := []struct {
		name        string
		status      OrderStatus
		wantChanged bool
		wantStatus  OrderStatus
	}{
		{"from created", OrderStatusCreated, true, OrderStatusCancelled},
		{"already complete stays complete", OrderStatusComplete, false, OrderStatusComplete},
		{"already cancelled", OrderStatusCancelled, false, OrderStatusCancelled},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := &Order{ID: "o1", Status: tt.status}
			assert.Equal(t, tt.wantChanged, o.Cancel())
			assert.Equal(t, tt.wantStatus, o.Status)
		})
	}
}

func TestOrderTerminalAbsorbsRepeatedTransitions(t *testing.T) {
	o := &Order{ID: "o1", Status: OrderStatusCreated}
	assert.True(t, o.Cancel())
	v := o.Version

	// Redelivered events must not corrupt a terminal state or move the
	// version.
	assert.False(t, o.Cancel())
	assert.False(t, o.Complete())
	assert.Equal(t, v, o.Version)
	assert.Equal(t, OrderStatusCancelled, o.Status)
}
