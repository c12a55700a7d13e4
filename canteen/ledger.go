/*
ledger.go - Order placement, advancement, cancellation, and top-up

PURPOSE:
  The Ledger owns the consistency rules tying stock, credit, and order
  status together. Every workflow runs its read-validate-write sequence
  inside one unit of work, so the invariants hold across state
  transitions:

    - item.Quantity >= 0 after every placement and cancellation
    - user.Credit  >= 0 after every placement, cancellation, and top-up
    - order.TotalCost is snapshotted at placement and never recomputed
    - cancelling twice refunds and restocks exactly once

PRECONDITION ORDER (placement, first failure wins):
  1. Item exists and has stock          -> ErrOutOfStock
  2. Requested quantity <= stock        -> InsufficientStockError
  3. Total cost <= user credit          -> InsufficientCreditError

CONCURRENCY:
  The Ledger itself holds no locks. Serialization of overlapping
  operations on the same item or user is the TxStore's contract: both
  provided stores run one unit of work at a time, which also fixes the
  ordering of a top-up racing a placement on the same user (whichever
  unit of work starts first wins; the other sees its committed state).

SEE ALSO:
  - status.go: The pipeline AdvanceOrder walks
  - store.go: The unit-of-work contract
*/
package canteen

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Config carries the ledger's tunable behavior.
type Config struct {
	// CancelCompleted permits cancelling an order that already reached
	// Completed (refund + restock as usual). The original system allowed
	// this, so it defaults on; set false to reject with ErrOrderCompleted.
	CancelCompleted bool
}

func DefaultConfig() Config {
	return Config{CancelCompleted: true}
}

// Ledger runs the ordering workflows against a transactional store.
type Ledger struct {
	store TxStore
	cfg   Config
	now   func() time.Time
}

func NewLedger(store TxStore, cfg Config) *Ledger {
	return &Ledger{store: store, cfg: cfg, now: func() time.Time { return time.Now().UTC() }}
}

// =============================================================================
// PLACEMENT
// =============================================================================

// PlaceOrder validates stock and credit, then atomically decrements both
// and creates the order at Awaiting Confirmation.
//
// The actor must be a student; staff accounts do not place orders. That
// gate belongs to the caller (the web layer's role middleware) - calling
// this for a staff actor is a contract violation, not a handled error.
//
// Quantity is validated upstream and must be positive.
func (l *Ledger) PlaceOrder(ctx context.Context, actor Actor, itemID ItemID, quantity int) (*Order, error) {
	var placed *Order

	err := l.store.WithTx(ctx, func(s Store) error {
		item, err := s.GetItem(ctx, itemID)
		if err != nil {
			return err
		}
		if item == nil || !item.InStock() {
			return ErrOutOfStock
		}
		if quantity > item.Quantity {
			return &InsufficientStockError{
				ItemID:    itemID,
				Requested: quantity,
				Available: item.Quantity,
			}
		}

		user, err := s.GetUser(ctx, actor.ID)
		if err != nil {
			return err
		}
		if user == nil {
			return &NotFoundError{Entity: "user", Ref: string(actor.ID)}
		}

		total := item.Price.Mul(decimal.NewFromInt(int64(quantity)))
		if total.GreaterThan(user.Credit) {
			return &InsufficientCreditError{
				UserID:    user.ID,
				Required:  FormatMoney(total),
				Available: FormatMoney(user.Credit),
			}
		}

		// All checks passed; the three writes below commit together.
		item.Quantity -= quantity
		if err := s.SaveItem(ctx, item); err != nil {
			return err
		}

		user.Credit = user.Credit.Sub(total)
		if err := s.SaveUser(ctx, user); err != nil {
			return err
		}

		placed = &Order{
			ID:        NewOrderID(),
			UserID:    user.ID,
			ItemID:    item.ID,
			Quantity:  quantity,
			TotalCost: total,
			PlacedAt:  l.now(),
			Status:    StatusAwaiting,
		}
		return s.SaveOrder(ctx, placed)
	})
	if err != nil {
		return nil, err
	}
	return placed, nil
}

// =============================================================================
// ADVANCEMENT
// =============================================================================

// AdvanceOrder moves an order one stage forward in the pipeline. If the
// order is already terminal (or its stored status is unrecognized), the
// call is a successful no-op - there is nothing to do, which is not a
// failure. Staff-only.
func (l *Ledger) AdvanceOrder(ctx context.Context, actor Actor, orderID OrderID) (*Order, error) {
	if !actor.IsStaff() {
		return nil, ErrForbidden
	}

	var advanced *Order
	err := l.store.WithTx(ctx, func(s Store) error {
		order, err := s.GetOrder(ctx, orderID)
		if err != nil {
			return err
		}
		if order == nil {
			return &NotFoundError{Entity: "order", Ref: string(orderID)}
		}

		next := order.Status.Next()
		if next == order.Status {
			advanced = order
			return nil
		}

		order.Status = next
		advanced = order
		return s.SaveOrder(ctx, order)
	})
	if err != nil {
		return nil, err
	}
	return advanced, nil
}

// =============================================================================
// CANCELLATION
// =============================================================================

// CancelOrder diverts an order to Cancelled, refunds its snapshotted total
// to the user, and restocks the item. The three writes commit together.
//
// An already-cancelled order is a successful no-op. This guard is what
// prevents a double refund; it must stay explicit.
//
// A completed order is cancellable by default (Config.CancelCompleted);
// when disabled, the call fails with ErrOrderCompleted and nothing mutates.
//
// The actor must be staff or the order's owner.
func (l *Ledger) CancelOrder(ctx context.Context, actor Actor, orderID OrderID) (*Order, error) {
	var cancelled *Order
	err := l.store.WithTx(ctx, func(s Store) error {
		order, err := s.GetOrder(ctx, orderID)
		if err != nil {
			return err
		}
		if order == nil {
			return &NotFoundError{Entity: "order", Ref: string(orderID)}
		}
		if !actor.IsStaff() && order.UserID != actor.ID {
			return ErrForbidden
		}

		if !order.Refundable() {
			cancelled = order
			return nil
		}
		if order.Status == StatusCompleted && !l.cfg.CancelCompleted {
			return ErrOrderCompleted
		}

		user, err := s.GetUser(ctx, order.UserID)
		if err != nil {
			return err
		}
		if user == nil {
			return &NotFoundError{Entity: "user", Ref: string(order.UserID)}
		}
		user.Credit = user.Credit.Add(order.TotalCost)
		if err := s.SaveUser(ctx, user); err != nil {
			return err
		}

		item, err := s.GetItem(ctx, order.ItemID)
		if err != nil {
			return err
		}
		if item == nil {
			return &NotFoundError{Entity: "item", Ref: string(order.ItemID)}
		}
		item.Quantity += order.Quantity
		if err := s.SaveItem(ctx, item); err != nil {
			return err
		}

		order.Status = StatusCancelled
		cancelled = order
		return s.SaveOrder(ctx, order)
	})
	if err != nil {
		return nil, err
	}
	return cancelled, nil
}

// =============================================================================
// CREDIT TOP-UP
// =============================================================================

// AddCredit adds a positive amount to a student's balance. Staff-only;
// the target is looked up by email and must be a student account - a
// staff email fails the same way a missing one does, without revealing
// which.
func (l *Ledger) AddCredit(ctx context.Context, actor Actor, email string, amount decimal.Decimal) (*User, error) {
	if !actor.IsStaff() {
		return nil, ErrForbidden
	}
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}

	var topped *User
	err := l.store.WithTx(ctx, func(s Store) error {
		user, err := s.GetUserByEmail(ctx, email)
		if err != nil {
			return err
		}
		if user == nil || user.Staff {
			return &NotFoundError{Entity: "student", Ref: email}
		}

		user.Credit = user.Credit.Add(amount)
		topped = user
		return s.SaveUser(ctx, user)
	})
	if err != nil {
		return nil, err
	}
	return topped, nil
}

// =============================================================================
// ACCOUNT REMOVAL
// =============================================================================

// RemoveUser deletes an account and, transitively, its orders (the
// storage layer cascades). Staff-only, and self-deletion is forbidden.
func (l *Ledger) RemoveUser(ctx context.Context, actor Actor, id UserID) error {
	if !actor.IsStaff() {
		return ErrForbidden
	}
	if actor.ID == id {
		return ErrForbidden
	}

	return l.store.WithTx(ctx, func(s Store) error {
		user, err := s.GetUser(ctx, id)
		if err != nil {
			return err
		}
		if user == nil {
			return &NotFoundError{Entity: "user", Ref: string(id)}
		}
		return s.DeleteUser(ctx, id)
	})
}
