package memstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/farmlinker/farmlinker-backend/internal/store"
	"github.com/farmlinker/farmlinker-backend/internal/store/storetest"
	"github.com/farmlinker/farmlinker-backend/pkg/db/models"
	dbtypes "github.com/farmlinker/farmlinker-backend/pkg/db/types"
	"github.com/farmlinker/farmlinker-backend/pkg/enums"
)

func TestStoreContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store { return New() })
}

func TestWithClockStampsRecords(t *testing.T) {
	fixed := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	s := New(WithClock(func() time.Time { return fixed }))

	user := storetest.MustUser(t, s, "clock@example.com", enums.UserRoleBuyer)
	assert.Equal(t, fixed, user.CreatedAt)
}

func TestCartItemsAreCopiedOnRead(t *testing.T) {
	ctx := context.Background()
	s := New()

	_, err := s.Carts().Save(ctx, 1, dbtypes.CartLines{{ProductID: 1, Quantity: 1}}, nil)
	require.NoError(t, err)

	cart, err := s.Carts().FindByUser(ctx, 1)
	require.NoError(t, err)
	cart.Items[0].Quantity = 99

	again, err := s.Carts().FindByUser(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, again.Items[0].Quantity)
}

func TestWithinTxHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := New().WithinTx(ctx, func(store.Store) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

func TestRollbackDiscardsSequenceAdvance(t *testing.T) {
	ctx := context.Background()
	s := New()

	_ = s.WithinTx(ctx, func(tx store.Store) error {
		require.NoError(t, tx.Waitlist().Create(ctx, &models.WaitlistEntry{Name: "a", Email: "a@example.com"}))
		return assert.AnError
	})

	entry := &models.WaitlistEntry{Name: "b", Email: "b@example.com"}
	require.NoError(t, s.Waitlist().Create(ctx, entry))
	assert.Equal(t, int64(1), entry.ID)
}
