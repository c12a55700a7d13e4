/*
Package canteen provides the core ordering engine for the canteen service.

PURPOSE:
  This package contains the domain types and workflows for the prepaid
  ordering system: students carry a credit balance, items carry stock,
  and orders tie the two together through a fixed fulfillment pipeline.

KEY CONCEPTS IN THIS FILE (types.go):
  - User: An account with a role flag and a prepaid credit balance
  - Item: A catalog entry with unit price and stock quantity
  - Order: A placed order with a snapshotted total cost and a status
  - Actor: The request-scoped identity every workflow call runs as

DESIGN PRINCIPLES:
  1. Precision: Uses decimal.Decimal for all money values - never float64
  2. Snapshot cost: Order.TotalCost is captured at placement and immutable
  3. Type Safety: Strong ID types prevent mixing user/item/order IDs
  4. Explicit actors: No ambient session state; callers pass an Actor

SEE ALSO:
  - status.go: Order status pipeline and transitions
  - ledger.go: Placement, advancement, cancellation, top-up workflows
  - store.go: Persistence contracts and the unit-of-work boundary
*/
package canteen

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type UserID string
type ItemID string
type OrderID string

func NewUserID() UserID   { return UserID(uuid.NewString()) }
func NewItemID() ItemID   { return ItemID(uuid.NewString()) }
func NewOrderID() OrderID { return OrderID(uuid.NewString()) }

// =============================================================================
// MONEY HELPERS
// =============================================================================

// Money values are decimal.Decimal throughout. The boundary renders them
// with two decimal places; internally full precision is kept.

// MustMoney parses a decimal string, returning zero on failure.
// Intended for literals in seeds and tests, not user input.
func MustMoney(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// FormatMoney renders a money value the way the boundary displays it.
func FormatMoney(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// =============================================================================
// ACTOR - Request-scoped identity
// =============================================================================

type Role string

const (
	RoleStudent Role = "student"
	RoleStaff   Role = "staff"
)

// Actor identifies who is performing a workflow call. It is resolved per
// request by the web layer and passed explicitly; there is no ambient
// current-user state anywhere in this package.
type Actor struct {
	ID   UserID
	Role Role
}

func (a Actor) IsStaff() bool { return a.Role == RoleStaff }

// =============================================================================
// USER - Account with credential and prepaid credit
// =============================================================================

// User is an account record. Credit never goes negative: workflows check
// the balance before debiting rather than clamping after the fact.
type User struct {
	ID           UserID
	Email        string
	PasswordHash string
	Staff        bool
	Credit       decimal.Decimal
	CreatedAt    time.Time
}

func (u *User) Role() Role {
	if u.Staff {
		return RoleStaff
	}
	return RoleStudent
}

func (u *User) Actor() Actor {
	return Actor{ID: u.ID, Role: u.Role()}
}

// SetPassword hashes and stores the credential.
func (u *User) SetPassword(password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = string(hash)
	return nil
}

// CheckPassword reports whether the password matches the stored hash.
func (u *User) CheckPassword(password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil
}

// =============================================================================
// ITEM - Catalog entry with stock
// =============================================================================

// Item is a catalog record. Quantity never goes negative: placement checks
// available stock before decrementing.
type Item struct {
	ID         ItemID
	Name       string
	Price      decimal.Decimal
	Quantity   int
	Vegetarian bool
	ImageRef   string
	CreatedAt  time.Time
}

// InStock reports whether any stock remains.
func (i *Item) InStock() bool { return i.Quantity > 0 }

// =============================================================================
// ORDER - Placed order with snapshotted cost
// =============================================================================

// Order references exactly one user and one item. TotalCost is the unit
// price times quantity at placement time; later catalog price edits never
// touch it. Orders are never deleted (they are the audit trail), except
// transitively when their owning user is removed.
type Order struct {
	ID        OrderID
	UserID    UserID
	ItemID    ItemID
	Quantity  int
	TotalCost decimal.Decimal
	PlacedAt  time.Time
	Status    Status
}

// Refundable reports whether cancelling this order returns credit and
// stock. Already-cancelled orders refund nothing (the double-refund guard).
func (o *Order) Refundable() bool { return o.Status != StatusCancelled }
