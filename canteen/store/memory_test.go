package store_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lunchline/canteen/canteen"
	"github.com/lunchline/canteen/canteen/store"
)

func TestMemory_WithTx_RollsBackOnError(t *testing.T) {
	// GIVEN: a user with a balance
	// WHEN: a unit of work mutates it and then fails
	// THEN: the live state is untouched

	m := store.NewMemory()
	ctx := context.Background()

	user := &canteen.User{ID: "u-1", Email: "alice@school.com", Credit: canteen.MustMoney("10.00")}
	require.NoError(t, m.SaveUser(ctx, user))

	boom := errors.New("boom")
	err := m.WithTx(ctx, func(s canteen.Store) error {
		got, err := s.GetUser(ctx, user.ID)
		require.NoError(t, err)
		got.Credit = canteen.MustMoney("0")
		require.NoError(t, s.SaveUser(ctx, got))
		return boom
	})
	require.ErrorIs(t, err, boom)

	got, err := m.GetUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "10.00", canteen.FormatMoney(got.Credit))
}

func TestMemory_WithTx_ReadsSeeOwnWrites(t *testing.T) {
	m := store.NewMemory()
	ctx := context.Background()

	err := m.WithTx(ctx, func(s canteen.Store) error {
		item := &canteen.Item{ID: "i-1", Name: "Soup", Price: canteen.MustMoney("1.80"), Quantity: 3}
		if err := s.SaveItem(ctx, item); err != nil {
			return err
		}
		got, err := s.GetItem(ctx, item.ID)
		if err != nil {
			return err
		}
		require.NotNil(t, got, "uncommitted write must be visible inside the unit of work")
		return nil
	})
	require.NoError(t, err)

	got, err := m.GetItem(ctx, "i-1")
	require.NoError(t, err)
	assert.NotNil(t, got)
}

func TestMemory_SaveUser_EnforcesUniqueEmail(t *testing.T) {
	m := store.NewMemory()
	ctx := context.Background()

	first := &canteen.User{ID: "u-1", Email: "alice@school.com"}
	require.NoError(t, m.SaveUser(ctx, first))

	dup := &canteen.User{ID: "u-2", Email: "alice@school.com"}
	err := m.SaveUser(ctx, dup)
	assert.ErrorIs(t, err, canteen.ErrEmailTaken)

	// Re-saving the same user keeps its email.
	require.NoError(t, m.SaveUser(ctx, first))
}

func TestMemory_DeleteUser_CascadesOrders(t *testing.T) {
	m := store.NewMemory()
	ctx := context.Background()

	require.NoError(t, m.SaveUser(ctx, &canteen.User{ID: "u-1", Email: "a@school.com"}))
	require.NoError(t, m.SaveItem(ctx, &canteen.Item{ID: "i-1", Name: "Wrap", Quantity: 1}))
	require.NoError(t, m.SaveOrder(ctx, &canteen.Order{ID: "o-1", UserID: "u-1", ItemID: "i-1", Quantity: 1}))
	require.NoError(t, m.SaveOrder(ctx, &canteen.Order{ID: "o-2", UserID: "u-other", ItemID: "i-1", Quantity: 1}))

	require.NoError(t, m.DeleteUser(ctx, "u-1"))

	gone, _ := m.GetOrder(ctx, "o-1")
	assert.Nil(t, gone)
	kept, _ := m.GetOrder(ctx, "o-2")
	assert.NotNil(t, kept, "other users' orders are untouched")
}

func TestMemory_DeleteItem_BlockedWhileOrdered(t *testing.T) {
	m := store.NewMemory()
	ctx := context.Background()

	require.NoError(t, m.SaveItem(ctx, &canteen.Item{ID: "i-1", Name: "Wrap", Quantity: 1}))
	require.NoError(t, m.SaveOrder(ctx, &canteen.Order{ID: "o-1", UserID: "u-1", ItemID: "i-1", Quantity: 1}))

	err := m.DeleteItem(ctx, "i-1")
	assert.ErrorIs(t, err, canteen.ErrItemInUse)

	got, _ := m.GetItem(ctx, "i-1")
	assert.NotNil(t, got)
}

func TestMemory_ListItems_VegetarianFilter(t *testing.T) {
	m := store.NewMemory()
	ctx := context.Background()

	require.NoError(t, m.SaveItem(ctx, &canteen.Item{ID: "i-1", Name: "Fruit Cup", Vegetarian: true}))
	require.NoError(t, m.SaveItem(ctx, &canteen.Item{ID: "i-2", Name: "Chicken Wrap", Vegetarian: false}))

	veg := true
	items, err := m.ListItems(ctx, canteen.ItemFilter{Vegetarian: &veg})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Fruit Cup", items[0].Name)

	all, err := m.ListItems(ctx, canteen.ItemFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
