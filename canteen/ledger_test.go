package canteen_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lunchline/canteen/canteen"
	memstore "github.com/lunchline/canteen/canteen/store"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestLedger(t *testing.T) (*canteen.Ledger, *memstore.Memory) {
	t.Helper()
	store := memstore.NewMemory()
	return canteen.NewLedger(store, canteen.DefaultConfig()), store
}

// seedScenario loads the canonical fixture: an item with quantity=5 at
// 2.00 and a student with 10.00 credit.
func seedScenario(t *testing.T, store *memstore.Memory) (*canteen.User, *canteen.Item) {
	t.Helper()
	ctx := context.Background()

	student := &canteen.User{
		ID:     "student-1",
		Email:  "alice_student@school.com",
		Credit: canteen.MustMoney("10.00"),
	}
	require.NoError(t, store.SaveUser(ctx, student))

	item := &canteen.Item{
		ID:       "item-1",
		Name:     "Margherita Slice",
		Price:    canteen.MustMoney("2.00"),
		Quantity: 5,
	}
	require.NoError(t, store.SaveItem(ctx, item))

	return student, item
}

func staffActor() canteen.Actor {
	return canteen.Actor{ID: "staff-1", Role: canteen.RoleStaff}
}

// =============================================================================
// PLACEMENT
// =============================================================================

func TestPlaceOrder_Success(t *testing.T) {
	// GIVEN: item quantity=5 price=2.00, student credit=10.00
	// WHEN: the student orders quantity=3
	// THEN: item.quantity=2, credit=4.00, order total=6.00 at Awaiting

	ledger, store := newTestLedger(t)
	ctx := context.Background()
	student, item := seedScenario(t, store)

	order, err := ledger.PlaceOrder(ctx, student.Actor(), item.ID, 3)
	require.NoError(t, err)

	assert.Equal(t, student.ID, order.UserID)
	assert.Equal(t, item.ID, order.ItemID)
	assert.Equal(t, 3, order.Quantity)
	assert.Equal(t, "6.00", canteen.FormatMoney(order.TotalCost))
	assert.Equal(t, canteen.StatusAwaiting, order.Status)
	assert.Equal(t, "Awaiting Confirmation", order.Status.Display())
	assert.False(t, order.PlacedAt.IsZero())

	gotItem, err := store.GetItem(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, gotItem.Quantity)

	gotUser, err := store.GetUser(ctx, student.ID)
	require.NoError(t, err)
	assert.Equal(t, "4.00", canteen.FormatMoney(gotUser.Credit))
}

func TestPlaceOrder_InsufficientStock_NoMutation(t *testing.T) {
	// GIVEN: item.quantity=2 after a previous order
	// WHEN: the student orders quantity=10
	// THEN: InsufficientStock reporting available=2, nothing mutated

	ledger, store := newTestLedger(t)
	ctx := context.Background()
	student, item := seedScenario(t, store)

	_, err := ledger.PlaceOrder(ctx, student.Actor(), item.ID, 3)
	require.NoError(t, err)

	_, err = ledger.PlaceOrder(ctx, student.Actor(), item.ID, 10)
	require.Error(t, err)
	assert.ErrorIs(t, err, canteen.ErrInsufficientStock)

	var stockErr *canteen.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, 2, stockErr.Available)
	assert.Equal(t, 10, stockErr.Requested)

	// State is exactly as the first placement left it.
	gotItem, _ := store.GetItem(ctx, item.ID)
	assert.Equal(t, 2, gotItem.Quantity)
	gotUser, _ := store.GetUser(ctx, student.ID)
	assert.Equal(t, "4.00", canteen.FormatMoney(gotUser.Credit))

	orders, _ := store.ListOrdersByUser(ctx, student.ID)
	assert.Len(t, orders, 1)
}

func TestPlaceOrder_InsufficientCredit_NoMutation(t *testing.T) {
	// GIVEN: student with 1.00 credit, item priced 2.00
	// WHEN: ordering quantity=1
	// THEN: InsufficientCredit, nothing mutated

	ledger, store := newTestLedger(t)
	ctx := context.Background()

	poor := &canteen.User{ID: "student-2", Email: "poor@school.com", Credit: canteen.MustMoney("1.00")}
	require.NoError(t, store.SaveUser(ctx, poor))
	item := &canteen.Item{ID: "item-2", Name: "Chicken Wrap", Price: canteen.MustMoney("2.00"), Quantity: 5}
	require.NoError(t, store.SaveItem(ctx, item))

	_, err := ledger.PlaceOrder(ctx, poor.Actor(), item.ID, 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, canteen.ErrInsufficientCredit)

	var creditErr *canteen.InsufficientCreditError
	require.ErrorAs(t, err, &creditErr)
	assert.Equal(t, "2.00", creditErr.Required)
	assert.Equal(t, "1.00", creditErr.Available)

	gotItem, _ := store.GetItem(ctx, item.ID)
	assert.Equal(t, 5, gotItem.Quantity)
	gotUser, _ := store.GetUser(ctx, poor.ID)
	assert.Equal(t, "1.00", canteen.FormatMoney(gotUser.Credit))
}

func TestPlaceOrder_OutOfStock(t *testing.T) {
	// An item with zero stock and a missing item both fail the same way.

	ledger, store := newTestLedger(t)
	ctx := context.Background()
	student, _ := seedScenario(t, store)

	empty := &canteen.Item{ID: "item-empty", Name: "Sold Out Soup", Price: canteen.MustMoney("1.00"), Quantity: 0}
	require.NoError(t, store.SaveItem(ctx, empty))

	_, err := ledger.PlaceOrder(ctx, student.Actor(), empty.ID, 1)
	assert.ErrorIs(t, err, canteen.ErrOutOfStock)

	_, err = ledger.PlaceOrder(ctx, student.Actor(), "no-such-item", 1)
	assert.ErrorIs(t, err, canteen.ErrOutOfStock)
}

func TestPlaceOrder_StockCheckedBeforeCredit(t *testing.T) {
	// First failure wins: with both stock and credit short, the stock
	// error is the one reported.

	ledger, store := newTestLedger(t)
	ctx := context.Background()

	broke := &canteen.User{ID: "student-3", Email: "broke@school.com", Credit: canteen.MustMoney("0.50")}
	require.NoError(t, store.SaveUser(ctx, broke))
	item := &canteen.Item{ID: "item-3", Name: "Fruit Cup", Price: canteen.MustMoney("1.25"), Quantity: 2}
	require.NoError(t, store.SaveItem(ctx, item))

	_, err := ledger.PlaceOrder(ctx, broke.Actor(), item.ID, 5)
	assert.ErrorIs(t, err, canteen.ErrInsufficientStock)
	assert.NotErrorIs(t, err, canteen.ErrInsufficientCredit)
}

func TestPlaceOrder_TotalCostSnapshotSurvivesPriceChange(t *testing.T) {
	// GIVEN: an order placed at 2.00 a unit
	// WHEN: the item's price is later edited
	// THEN: the order's total cost is unchanged

	ledger, store := newTestLedger(t)
	ctx := context.Background()
	student, item := seedScenario(t, store)

	order, err := ledger.PlaceOrder(ctx, student.Actor(), item.ID, 3)
	require.NoError(t, err)
	require.Equal(t, "6.00", canteen.FormatMoney(order.TotalCost))

	// Staff repricing after the fact.
	gotItem, _ := store.GetItem(ctx, item.ID)
	gotItem.Price = canteen.MustMoney("9.99")
	require.NoError(t, store.SaveItem(ctx, gotItem))

	gotOrder, err := store.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, "6.00", canteen.FormatMoney(gotOrder.TotalCost))
}

// =============================================================================
// ADVANCEMENT
// =============================================================================

func TestAdvanceOrder_WalksPipelineAndStopsAtCompleted(t *testing.T) {
	// Five advances from Awaiting reach Completed; a sixth is a
	// successful no-op.

	ledger, store := newTestLedger(t)
	ctx := context.Background()
	student, item := seedScenario(t, store)

	order, err := ledger.PlaceOrder(ctx, student.Actor(), item.ID, 1)
	require.NoError(t, err)

	want := []canteen.Status{
		canteen.StatusConfirmed,
		canteen.StatusPreparing,
		canteen.StatusReady,
		canteen.StatusCompleted,
		canteen.StatusCompleted, // fifth advance: already terminal
	}
	for i, expected := range want {
		advanced, err := ledger.AdvanceOrder(ctx, staffActor(), order.ID)
		require.NoError(t, err, "advance %d", i+1)
		assert.Equal(t, expected, advanced.Status, "advance %d", i+1)
	}

	advanced, err := ledger.AdvanceOrder(ctx, staffActor(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, canteen.StatusCompleted, advanced.Status)
}

func TestAdvanceOrder_NotFound(t *testing.T) {
	ledger, _ := newTestLedger(t)

	_, err := ledger.AdvanceOrder(context.Background(), staffActor(), "no-such-order")
	assert.ErrorIs(t, err, canteen.ErrNotFound)
}

func TestAdvanceOrder_RequiresStaff(t *testing.T) {
	ledger, store := newTestLedger(t)
	ctx := context.Background()
	student, item := seedScenario(t, store)

	order, err := ledger.PlaceOrder(ctx, student.Actor(), item.ID, 1)
	require.NoError(t, err)

	_, err = ledger.AdvanceOrder(ctx, student.Actor(), order.ID)
	assert.ErrorIs(t, err, canteen.ErrForbidden)
}

// =============================================================================
// CANCELLATION
// =============================================================================

func TestCancelOrder_RestoresStockAndCredit(t *testing.T) {
	// GIVEN: an order placed then cancelled
	// THEN: item quantity and user credit return exactly to pre-order values

	ledger, store := newTestLedger(t)
	ctx := context.Background()
	student, item := seedScenario(t, store)

	order, err := ledger.PlaceOrder(ctx, student.Actor(), item.ID, 3)
	require.NoError(t, err)

	cancelled, err := ledger.CancelOrder(ctx, student.Actor(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, canteen.StatusCancelled, cancelled.Status)

	gotItem, _ := store.GetItem(ctx, item.ID)
	assert.Equal(t, 5, gotItem.Quantity)
	gotUser, _ := store.GetUser(ctx, student.ID)
	assert.Equal(t, "10.00", canteen.FormatMoney(gotUser.Credit))
}

func TestCancelOrder_TwiceRefundsOnce(t *testing.T) {
	// The double-refund guard: a second cancel is a no-op, not a second
	// refund and restock.

	ledger, store := newTestLedger(t)
	ctx := context.Background()
	student, item := seedScenario(t, store)

	order, err := ledger.PlaceOrder(ctx, student.Actor(), item.ID, 3)
	require.NoError(t, err)

	_, err = ledger.CancelOrder(ctx, student.Actor(), order.ID)
	require.NoError(t, err)

	again, err := ledger.CancelOrder(ctx, student.Actor(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, canteen.StatusCancelled, again.Status)

	gotItem, _ := store.GetItem(ctx, item.ID)
	assert.Equal(t, 5, gotItem.Quantity, "stock restored exactly once")
	gotUser, _ := store.GetUser(ctx, student.ID)
	assert.Equal(t, "10.00", canteen.FormatMoney(gotUser.Credit), "credit refunded exactly once")
}

func TestCancelOrder_CompletedOrder_DefaultAllowed(t *testing.T) {
	// The original system let staff cancel a completed order; the default
	// configuration keeps that.

	ledger, store := newTestLedger(t)
	ctx := context.Background()
	student, item := seedScenario(t, store)

	order, err := ledger.PlaceOrder(ctx, student.Actor(), item.ID, 2)
	require.NoError(t, err)
	for i := 0; i < 4; i++ {
		_, err = ledger.AdvanceOrder(ctx, staffActor(), order.ID)
		require.NoError(t, err)
	}

	cancelled, err := ledger.CancelOrder(ctx, staffActor(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, canteen.StatusCancelled, cancelled.Status)

	gotUser, _ := store.GetUser(ctx, student.ID)
	assert.Equal(t, "10.00", canteen.FormatMoney(gotUser.Credit))
}

func TestCancelOrder_CompletedOrder_Rejectable(t *testing.T) {
	// With CancelCompleted off, a completed order stays completed and
	// nothing is refunded.

	store := memstore.NewMemory()
	ledger := canteen.NewLedger(store, canteen.Config{CancelCompleted: false})
	ctx := context.Background()
	student, item := seedScenario(t, store)

	order, err := ledger.PlaceOrder(ctx, student.Actor(), item.ID, 2)
	require.NoError(t, err)
	for i := 0; i < 4; i++ {
		_, err = ledger.AdvanceOrder(ctx, staffActor(), order.ID)
		require.NoError(t, err)
	}

	_, err = ledger.CancelOrder(ctx, staffActor(), order.ID)
	assert.ErrorIs(t, err, canteen.ErrOrderCompleted)

	gotOrder, _ := store.GetOrder(ctx, order.ID)
	assert.Equal(t, canteen.StatusCompleted, gotOrder.Status)
	gotUser, _ := store.GetUser(ctx, student.ID)
	assert.Equal(t, "6.00", canteen.FormatMoney(gotUser.Credit), "no refund issued")
}

func TestCancelOrder_NotFound(t *testing.T) {
	ledger, _ := newTestLedger(t)

	_, err := ledger.CancelOrder(context.Background(), staffActor(), "no-such-order")
	assert.ErrorIs(t, err, canteen.ErrNotFound)
}

func TestCancelOrder_OnlyOwnerOrStaff(t *testing.T) {
	ledger, store := newTestLedger(t)
	ctx := context.Background()
	student, item := seedScenario(t, store)

	other := &canteen.User{ID: "student-9", Email: "mallory@school.com", Credit: canteen.MustMoney("5.00")}
	require.NoError(t, store.SaveUser(ctx, other))

	order, err := ledger.PlaceOrder(ctx, student.Actor(), item.ID, 1)
	require.NoError(t, err)

	_, err = ledger.CancelOrder(ctx, other.Actor(), order.ID)
	assert.ErrorIs(t, err, canteen.ErrForbidden)
}

// =============================================================================
// CREDIT TOP-UP
// =============================================================================

func TestAddCredit_Success(t *testing.T) {
	ledger, store := newTestLedger(t)
	ctx := context.Background()
	student, _ := seedScenario(t, store)

	topped, err := ledger.AddCredit(ctx, staffActor(), student.Email, canteen.MustMoney("5.50"))
	require.NoError(t, err)
	assert.Equal(t, "15.50", canteen.FormatMoney(topped.Credit))

	gotUser, _ := store.GetUser(ctx, student.ID)
	assert.Equal(t, "15.50", canteen.FormatMoney(gotUser.Credit))
}

func TestAddCredit_RejectsNonPositiveAmounts(t *testing.T) {
	ledger, store := newTestLedger(t)
	ctx := context.Background()
	student, _ := seedScenario(t, store)

	for _, amount := range []string{"0", "-3.00"} {
		_, err := ledger.AddCredit(ctx, staffActor(), student.Email, canteen.MustMoney(amount))
		assert.ErrorIs(t, err, canteen.ErrInvalidAmount, "amount %s", amount)
	}

	gotUser, _ := store.GetUser(ctx, student.ID)
	assert.Equal(t, "10.00", canteen.FormatMoney(gotUser.Credit))
}

func TestAddCredit_RequiresStaff(t *testing.T) {
	ledger, store := newTestLedger(t)
	ctx := context.Background()
	student, _ := seedScenario(t, store)

	_, err := ledger.AddCredit(ctx, student.Actor(), student.Email, canteen.MustMoney("5.00"))
	assert.ErrorIs(t, err, canteen.ErrForbidden)
}

func TestAddCredit_TargetMustBeStudent(t *testing.T) {
	// A staff email and a missing email fail identically.

	ledger, store := newTestLedger(t)
	ctx := context.Background()

	boss := &canteen.User{ID: "staff-2", Email: "bob_staff@school.com", Staff: true}
	require.NoError(t, store.SaveUser(ctx, boss))

	_, err := ledger.AddCredit(ctx, staffActor(), boss.Email, canteen.MustMoney("5.00"))
	assert.ErrorIs(t, err, canteen.ErrNotFound)

	_, err = ledger.AddCredit(ctx, staffActor(), "ghost@school.com", canteen.MustMoney("5.00"))
	assert.ErrorIs(t, err, canteen.ErrNotFound)
}

// =============================================================================
// ACCOUNT REMOVAL
// =============================================================================

func TestRemoveUser_CascadesOrders(t *testing.T) {
	ledger, store := newTestLedger(t)
	ctx := context.Background()
	student, item := seedScenario(t, store)

	order, err := ledger.PlaceOrder(ctx, student.Actor(), item.ID, 1)
	require.NoError(t, err)

	require.NoError(t, ledger.RemoveUser(ctx, staffActor(), student.ID))

	gotUser, _ := store.GetUser(ctx, student.ID)
	assert.Nil(t, gotUser)
	gotOrder, _ := store.GetOrder(ctx, order.ID)
	assert.Nil(t, gotOrder, "orders go with their user")
}

func TestRemoveUser_SelfDeletionForbidden(t *testing.T) {
	ledger, store := newTestLedger(t)
	ctx := context.Background()

	boss := &canteen.User{ID: "staff-1", Email: "bob_staff@school.com", Staff: true}
	require.NoError(t, store.SaveUser(ctx, boss))

	err := ledger.RemoveUser(ctx, boss.Actor(), boss.ID)
	assert.ErrorIs(t, err, canteen.ErrForbidden)

	gotUser, _ := store.GetUser(ctx, boss.ID)
	assert.NotNil(t, gotUser)
}

func TestRemoveUser_RequiresStaff(t *testing.T) {
	ledger, store := newTestLedger(t)
	ctx := context.Background()
	student, _ := seedScenario(t, store)

	err := ledger.RemoveUser(ctx, student.Actor(), "staff-1")
	assert.ErrorIs(t, err, canteen.ErrForbidden)
}
