/*
store.go - Persistence contracts for users, items, and orders

PURPOSE:
  Defines the interface between the ordering workflows and the database.
  The workflows treat these stores as transactional collaborators: a
  placement or cancellation touches the item, the user, and the order
  together, and either all three writes commit or none do.

KEY INTERFACES:
  Store:   Simple keyed CRUD over the three collections
  TxStore: Store plus WithTx, the named unit-of-work boundary

UNIT OF WORK:
  WithTx(ctx, fn) runs fn against a Store whose writes are atomic. The
  three workflows do all their read-validate-write inside one WithTx call,
  so a concurrent implementation can swap in real locking or database
  transactions without the workflow logic changing. Reads inside the unit
  of work observe its own uncommitted writes.

MISSING RECORDS:
  Get* methods return (nil, nil) when the record is absent. Workflows
  translate that into NotFoundError; the store layer carries no error
  taxonomy of its own beyond ErrEmailTaken and ErrItemInUse, which map
  directly to storage-level uniqueness and reference constraints.

IMPLEMENTATIONS:
  - store/sqlite: Production SQLite store
  - canteen/store: In-memory store for tests and dev

SEE ALSO:
  - ledger.go: Workflows built on these contracts
*/
package canteen

import "context"

// ItemFilter narrows catalog listings. Nil fields match everything.
type ItemFilter struct {
	Vegetarian *bool
}

// Store is keyed CRUD over users, items, and orders.
//
// Orders have no Delete: they are the audit trail. The only way an order
// disappears is the storage-layer cascade when its owning user is deleted.
type Store interface {
	// Users
	GetUser(ctx context.Context, id UserID) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	SaveUser(ctx context.Context, u *User) error
	DeleteUser(ctx context.Context, id UserID) error
	ListUsers(ctx context.Context) ([]User, error)

	// Items
	GetItem(ctx context.Context, id ItemID) (*Item, error)
	SaveItem(ctx context.Context, item *Item) error
	DeleteItem(ctx context.Context, id ItemID) error
	ListItems(ctx context.Context, filter ItemFilter) ([]Item, error)

	// Orders
	GetOrder(ctx context.Context, id OrderID) (*Order, error)
	SaveOrder(ctx context.Context, o *Order) error
	ListOrders(ctx context.Context) ([]Order, error)
	ListOrdersByUser(ctx context.Context, id UserID) ([]Order, error)
}

// TxStore extends Store with the unit-of-work boundary the workflows use.
type TxStore interface {
	Store

	// WithTx executes fn within a transaction.
	// If fn returns an error, every write inside it is rolled back.
	// If fn returns nil, the writes commit together.
	WithTx(ctx context.Context, fn func(Store) error) error
}
