/*
errors.go - Centralized error types for the ordering engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Every failure here is a recoverable, user-facing validation outcome:
  the web layer surfaces it and the actor retries with corrected input.
  No workflow partially applies on failure - preconditions are fully
  checked inside the unit of work before any write happens.

ERROR CATEGORIES:
  1. Lookup errors   - referenced user/item/order absent
  2. Stock errors    - quantity constraint violated
  3. Credit errors   - balance constraint violated
  4. Input errors    - non-positive top-up amount, duplicate email
  5. Policy errors   - role gates, terminal-state cancellation

USAGE:
  if errors.Is(err, canteen.ErrInsufficientStock) {
      var stockErr *canteen.InsufficientStockError
      errors.As(err, &stockErr)
      // stockErr.Available tells the student what is left
  }
*/
package canteen

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrNotFound is returned when a referenced user, item, or order is absent.
	ErrNotFound = errors.New("not found")

	// ErrOutOfStock is returned when the item is missing or has no stock at all.
	ErrOutOfStock = errors.New("out of stock")

	// ErrInsufficientStock is returned when the requested quantity exceeds
	// the available stock. Wrapped by InsufficientStockError.
	ErrInsufficientStock = errors.New("insufficient stock")

	// ErrInsufficientCredit is returned when the order total exceeds the
	// user's credit balance. Wrapped by InsufficientCreditError.
	ErrInsufficientCredit = errors.New("insufficient credit")

	// ErrInvalidAmount is returned for a non-positive credit top-up.
	ErrInvalidAmount = errors.New("amount must be positive")

	// ErrForbidden is returned when the acting user lacks the role for an
	// operation, or attempts self-deletion.
	ErrForbidden = errors.New("forbidden")

	// ErrOrderCompleted is returned when cancelling a completed order and
	// the ledger is configured to reject that.
	ErrOrderCompleted = errors.New("order already completed")

	// ErrEmailTaken is returned when registering or updating to an email
	// that already belongs to another account.
	ErrEmailTaken = errors.New("email already registered")

	// ErrItemInUse is returned when deleting an item that existing orders
	// still reference.
	ErrItemInUse = errors.New("item referenced by existing orders")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// NotFoundError identifies which entity was missing.
type NotFoundError struct {
	Entity string // "user", "student", "item", "order"
	Ref    string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Entity, e.Ref)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// InsufficientStockError reports how much stock is actually available.
type InsufficientStockError struct {
	ItemID    ItemID
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for item %s: requested %d, available %d",
		e.ItemID, e.Requested, e.Available)
}

func (e *InsufficientStockError) Unwrap() error { return ErrInsufficientStock }

// InsufficientCreditError reports the shortfall on a placement.
type InsufficientCreditError struct {
	UserID    UserID
	Required  string // formatted money
	Available string // formatted money
}

func (e *InsufficientCreditError) Error() string {
	return fmt.Sprintf("insufficient credit for user %s: required %s, available %s",
		e.UserID, e.Required, e.Available)
}

func (e *InsufficientCreditError) Unwrap() error { return ErrInsufficientCredit }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsNotFound reports whether the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsClientError reports whether the error is a validation outcome the web
// layer should surface to the actor (as opposed to an internal failure).
func IsClientError(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrOutOfStock) ||
		errors.Is(err, ErrInsufficientStock) ||
		errors.Is(err, ErrInsufficientCredit) ||
		errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrForbidden) ||
		errors.Is(err, ErrOrderCompleted) ||
		errors.Is(err, ErrEmailTaken) ||
		errors.Is(err, ErrItemInUse)
}
