package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTicketReserve(t *testing.T) {
	tk := &Ticket{ID: "t1", Title: "show", Price: 20, Version: 0}

	changed, err := tk.Reserve("o1")
	require.NoError(t, err)
	assert.True(t, changed)
	assert.True(t, tk.Reserved())
	assert.Equal(t, int64(1), tk.Version)

	// Same order again: redelivery, no-op.
	changed, err = tk.Reserve("o1")
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, int64(1), tk.Version)

	// Different order: refused.
	_, err = tk.Reserve("o2")
	assert.ErrorIs(t, err, ErrTicketReserved)
	assert.Equal(t, "o1", *tk.OrderID)
}

func TestTicketRelease(t *testing.T) {
	t.Run("matching order releases", func(t *testing.T) {
		tk := &Ticket{ID: "t1", Version: 1}
		_, err := tk.Reserve("o1")
		require.NoError(t, err)

		changed, err := tk.Release("o1")
		require.NoError(t, err)
		assert.True(t, changed)
		assert.False(t, tk.Reserved())
	})

	t.Run("mismatched order must not release", func(t *testing.T) {
		tk := &Ticket{ID: "t1"}
		_, err := tk.Reserve("oA")
		require.NoError(t, err)

		_, err = tk.Release("oB")
		assert.ErrorIs(t, err, ErrReservationMismatch)
		require.NotNil(t, tk.OrderID)
		assert.Equal(t, "oA", *tk.OrderID)
	})

	t.Run("available ticket is a no-op", func(t *testing.T) {
		tk := &Ticket{ID: "t1", Version: 2}
		changed, err := tk.Release("o1")
		require.NoError(t, err)
		assert.False(t, changed)
		assert.Equal(t, int64(2), tk.Version)
	})
}
