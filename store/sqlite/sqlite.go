/*
Package sqlite provides a SQLite-backed implementation of the storage interfaces.

PURPOSE:
  Implements canteen.Store and canteen.TxStore using SQLite. In
  production, the same patterns apply to PostgreSQL - only minor SQL
  dialect differences.

KEY TABLES:
  users:   Accounts with role flag and credit balance (decimal as TEXT)
  items:   Catalog entries with stock quantity
  orders:  Placed orders; status stored as its display string

REFERENTIAL RULES:
  orders.user_id  ON DELETE CASCADE  - deleting a user removes their orders
  orders.item_id  ON DELETE RESTRICT - items with orders cannot be deleted
  users.email     UNIQUE             - surfaces as canteen.ErrEmailTaken

MONEY:
  Credit, price, and total cost are stored as exact decimal strings and
  parsed with shopspring/decimal. Never stored as REAL.

CONCURRENCY:
  Uses a sync.RWMutex so one unit of work runs at a time; this is the
  single-writer serialization the ledger's contract asks for. SQLite is
  opened with WAL and foreign keys on.

USAGE:
  store, err := sqlite.New("./data/canteen.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  ledger := canteen.NewLedger(store, canteen.DefaultConfig())

SEE ALSO:
  - canteen/store.go: Interface definitions
  - canteen/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/lunchline/canteen/canteen"
)

// Store implements canteen.TxStore using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// One connection: the store serializes writers anyway, and it keeps
	// ":memory:" databases from splitting across pool connections.
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		is_staff BOOLEAN NOT NULL DEFAULT FALSE,
		credit TEXT NOT NULL DEFAULT '0',
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS items (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		price TEXT NOT NULL,
		quantity INTEGER NOT NULL,
		is_vegetarian BOOLEAN NOT NULL DEFAULT FALSE,
		image_ref TEXT,
		created_at TEXT NOT NULL
	);

	-- Orders are the audit trail: no UPDATE path exists for total_cost,
	-- and the only DELETE is the cascade from their owning user.
	CREATE TABLE IF NOT EXISTS orders (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		item_id TEXT NOT NULL REFERENCES items(id) ON DELETE RESTRICT,
		quantity INTEGER NOT NULL,
		total_cost TEXT NOT NULL,
		placed_at TEXT NOT NULL,
		status TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_orders_user ON orders(user_id);
	CREATE INDEX IF NOT EXISTS idx_orders_item ON orders(item_id);
	CREATE INDEX IF NOT EXISTS idx_orders_status ON orders(status);
	CREATE INDEX IF NOT EXISTS idx_orders_placed_at ON orders(placed_at DESC);
	`

	_, err := s.db.Exec(schema)
	return err
}

// dbtx is the subset of *sql.DB and *sql.Tx the queries need, so the same
// code serves both direct calls and units of work.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// =============================================================================
// USERS
// =============================================================================

func (s *Store) GetUser(ctx context.Context, id canteen.UserID) (*canteen.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getUser(ctx, s.db, id)
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*canteen.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getUserByEmail(ctx, s.db, email)
}

func (s *Store) SaveUser(ctx context.Context, u *canteen.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return saveUser(ctx, s.db, u)
}

func (s *Store) DeleteUser(ctx context.Context, id canteen.UserID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return deleteUser(ctx, s.db, id)
}

func (s *Store) ListUsers(ctx context.Context) ([]canteen.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listUsers(ctx, s.db)
}

func getUser(ctx context.Context, db dbtx, id canteen.UserID) (*canteen.User, error) {
	row := db.QueryRowContext(ctx,
		"SELECT id, email, password_hash, is_staff, credit, created_at FROM users WHERE id = ?",
		id,
	)
	return scanUser(row)
}

func getUserByEmail(ctx context.Context, db dbtx, email string) (*canteen.User, error) {
	row := db.QueryRowContext(ctx,
		"SELECT id, email, password_hash, is_staff, credit, created_at FROM users WHERE email = ?",
		email,
	)
	return scanUser(row)
}

func scanUser(row *sql.Row) (*canteen.User, error) {
	var (
		u         canteen.User
		credit    string
		createdAt string
	)
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Staff, &credit, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}
	u.Credit = canteen.MustMoney(credit)
	u.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &u, nil
}

func saveUser(ctx context.Context, db dbtx, u *canteen.User) error {
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO users (id, email, password_hash, is_staff, credit, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			email = excluded.email,
			password_hash = excluded.password_hash,
			is_staff = excluded.is_staff,
			credit = excluded.credit
	`

	_, err := db.ExecContext(ctx, query,
		u.ID, u.Email, u.PasswordHash, u.Staff,
		u.Credit.String(),
		u.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return canteen.ErrEmailTaken
		}
		return fmt.Errorf("failed to save user: %w", err)
	}
	return nil
}

func deleteUser(ctx context.Context, db dbtx, id canteen.UserID) error {
	_, err := db.ExecContext(ctx, "DELETE FROM users WHERE id = ?", id)
	return err
}

func listUsers(ctx context.Context, db dbtx) ([]canteen.User, error) {
	rows, err := db.QueryContext(ctx,
		"SELECT id, email, password_hash, is_staff, credit, created_at FROM users ORDER BY email",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []canteen.User
	for rows.Next() {
		var (
			u         canteen.User
			credit    string
			createdAt string
		)
		if err := rows.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Staff, &credit, &createdAt); err != nil {
			return nil, err
		}
		u.Credit = canteen.MustMoney(credit)
		u.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		users = append(users, u)
	}
	return users, rows.Err()
}

// =============================================================================
// ITEMS
// =============================================================================

func (s *Store) GetItem(ctx context.Context, id canteen.ItemID) (*canteen.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getItem(ctx, s.db, id)
}

func (s *Store) SaveItem(ctx context.Context, item *canteen.Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return saveItem(ctx, s.db, item)
}

func (s *Store) DeleteItem(ctx context.Context, id canteen.ItemID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return deleteItem(ctx, s.db, id)
}

func (s *Store) ListItems(ctx context.Context, filter canteen.ItemFilter) ([]canteen.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listItems(ctx, s.db, filter)
}

func getItem(ctx context.Context, db dbtx, id canteen.ItemID) (*canteen.Item, error) {
	row := db.QueryRowContext(ctx,
		"SELECT id, name, price, quantity, is_vegetarian, image_ref, created_at FROM items WHERE id = ?",
		id,
	)

	var (
		item      canteen.Item
		price     string
		imageRef  sql.NullString
		createdAt string
	)
	err := row.Scan(&item.ID, &item.Name, &price, &item.Quantity, &item.Vegetarian, &imageRef, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan item: %w", err)
	}
	item.Price = canteen.MustMoney(price)
	item.ImageRef = imageRef.String
	item.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &item, nil
}

func saveItem(ctx context.Context, db dbtx, item *canteen.Item) error {
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO items (id, name, price, quantity, is_vegetarian, image_ref, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			price = excluded.price,
			quantity = excluded.quantity,
			is_vegetarian = excluded.is_vegetarian,
			image_ref = excluded.image_ref
	`

	_, err := db.ExecContext(ctx, query,
		item.ID, item.Name, item.Price.String(), item.Quantity,
		item.Vegetarian, nullString(item.ImageRef),
		item.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to save item: %w", err)
	}
	return nil
}

func deleteItem(ctx context.Context, db dbtx, id canteen.ItemID) error {
	_, err := db.ExecContext(ctx, "DELETE FROM items WHERE id = ?", id)
	if err != nil {
		if isForeignKeyError(err) {
			return canteen.ErrItemInUse
		}
		return fmt.Errorf("failed to delete item: %w", err)
	}
	return nil
}

func listItems(ctx context.Context, db dbtx, filter canteen.ItemFilter) ([]canteen.Item, error) {
	query := "SELECT id, name, price, quantity, is_vegetarian, image_ref, created_at FROM items"
	var args []any
	if filter.Vegetarian != nil {
		query += " WHERE is_vegetarian = ?"
		args = append(args, *filter.Vegetarian)
	}
	query += " ORDER BY name"

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []canteen.Item
	for rows.Next() {
		var (
			item      canteen.Item
			price     string
			imageRef  sql.NullString
			createdAt string
		)
		if err := rows.Scan(&item.ID, &item.Name, &price, &item.Quantity, &item.Vegetarian, &imageRef, &createdAt); err != nil {
			return nil, err
		}
		item.Price = canteen.MustMoney(price)
		item.ImageRef = imageRef.String
		item.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		items = append(items, item)
	}
	return items, rows.Err()
}

// =============================================================================
// ORDERS
// =============================================================================

func (s *Store) GetOrder(ctx context.Context, id canteen.OrderID) (*canteen.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getOrder(ctx, s.db, id)
}

func (s *Store) SaveOrder(ctx context.Context, o *canteen.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return saveOrder(ctx, s.db, o)
}

func (s *Store) ListOrders(ctx context.Context) ([]canteen.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return queryOrders(ctx, s.db, orderSelect+" ORDER BY placed_at DESC, id")
}

func (s *Store) ListOrdersByUser(ctx context.Context, id canteen.UserID) ([]canteen.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return queryOrders(ctx, s.db, orderSelect+" WHERE user_id = ? ORDER BY placed_at DESC, id", id)
}

const orderSelect = "SELECT id, user_id, item_id, quantity, total_cost, placed_at, status FROM orders"

func getOrder(ctx context.Context, db dbtx, id canteen.OrderID) (*canteen.Order, error) {
	row := db.QueryRowContext(ctx, orderSelect+" WHERE id = ?", id)

	var (
		o         canteen.Order
		totalCost string
		placedAt  string
		status    string
	)
	err := row.Scan(&o.ID, &o.UserID, &o.ItemID, &o.Quantity, &totalCost, &placedAt, &status)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan order: %w", err)
	}
	o.TotalCost = canteen.MustMoney(totalCost)
	o.PlacedAt, _ = time.Parse(time.RFC3339, placedAt)
	o.Status = canteen.ParseStatus(status)
	return &o, nil
}

func saveOrder(ctx context.Context, db dbtx, o *canteen.Order) error {
	// total_cost is deliberately absent from the update set: the snapshot
	// taken at placement is immutable.
	query := `
		INSERT INTO orders (id, user_id, item_id, quantity, total_cost, placed_at, status)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status
	`

	_, err := db.ExecContext(ctx, query,
		o.ID, o.UserID, o.ItemID, o.Quantity,
		o.TotalCost.String(),
		o.PlacedAt.Format(time.RFC3339),
		o.Status.Display(),
	)
	if err != nil {
		return fmt.Errorf("failed to save order: %w", err)
	}
	return nil
}

func queryOrders(ctx context.Context, db dbtx, query string, args ...any) ([]canteen.Order, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	var orders []canteen.Order
	for rows.Next() {
		var (
			o         canteen.Order
			totalCost string
			placedAt  string
			status    string
		)
		if err := rows.Scan(&o.ID, &o.UserID, &o.ItemID, &o.Quantity, &totalCost, &placedAt, &status); err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		o.TotalCost = canteen.MustMoney(totalCost)
		o.PlacedAt, _ = time.Parse(time.RFC3339, placedAt)
		o.Status = canteen.ParseStatus(status)
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

// =============================================================================
// UNIT OF WORK (canteen.TxStore interface)
// =============================================================================

// WithTx executes a function within a database transaction. Reads inside
// the unit of work go through the same transaction, so they observe its
// own uncommitted writes.
func (s *Store) WithTx(ctx context.Context, fn func(store canteen.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&txStore{tx: sqlTx}); err != nil {
		return err
	}

	return sqlTx.Commit()
}

// txStore routes every operation through the open transaction. No
// locking: WithTx holds the store mutex for the whole unit of work.
type txStore struct {
	tx *sql.Tx
}

func (ts *txStore) GetUser(ctx context.Context, id canteen.UserID) (*canteen.User, error) {
	return getUser(ctx, ts.tx, id)
}

func (ts *txStore) GetUserByEmail(ctx context.Context, email string) (*canteen.User, error) {
	return getUserByEmail(ctx, ts.tx, email)
}

func (ts *txStore) SaveUser(ctx context.Context, u *canteen.User) error {
	return saveUser(ctx, ts.tx, u)
}

func (ts *txStore) DeleteUser(ctx context.Context, id canteen.UserID) error {
	return deleteUser(ctx, ts.tx, id)
}

func (ts *txStore) ListUsers(ctx context.Context) ([]canteen.User, error) {
	return listUsers(ctx, ts.tx)
}

func (ts *txStore) GetItem(ctx context.Context, id canteen.ItemID) (*canteen.Item, error) {
	return getItem(ctx, ts.tx, id)
}

func (ts *txStore) SaveItem(ctx context.Context, item *canteen.Item) error {
	return saveItem(ctx, ts.tx, item)
}

func (ts *txStore) DeleteItem(ctx context.Context, id canteen.ItemID) error {
	return deleteItem(ctx, ts.tx, id)
}

func (ts *txStore) ListItems(ctx context.Context, filter canteen.ItemFilter) ([]canteen.Item, error) {
	return listItems(ctx, ts.tx, filter)
}

func (ts *txStore) GetOrder(ctx context.Context, id canteen.OrderID) (*canteen.Order, error) {
	return getOrder(ctx, ts.tx, id)
}

func (ts *txStore) SaveOrder(ctx context.Context, o *canteen.Order) error {
	return saveOrder(ctx, ts.tx, o)
}

func (ts *txStore) ListOrders(ctx context.Context) ([]canteen.Order, error) {
	return queryOrders(ctx, ts.tx, orderSelect+" ORDER BY placed_at DESC, id")
}

func (ts *txStore) ListOrdersByUser(ctx context.Context, id canteen.UserID) ([]canteen.Order, error) {
	return queryOrders(ctx, ts.tx, orderSelect+" WHERE user_id = ? ORDER BY placed_at DESC, id", id)
}

// =============================================================================
// HELPERS
// =============================================================================

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func isForeignKeyError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}
