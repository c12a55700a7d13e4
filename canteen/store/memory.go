// Package store provides Store implementations.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/lunchline/canteen/canteen"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

// Memory is an in-memory canteen.TxStore. A single mutex serializes all
// units of work, which satisfies the single-writer assumption the ledger
// relies on. WithTx works on a cloned state and swaps it in on success,
// so a failed unit of work leaves no trace.
type Memory struct {
	mu sync.RWMutex
	st *state
}

func NewMemory() *Memory {
	return &Memory{st: newState()}
}

type state struct {
	users  map[canteen.UserID]canteen.User
	items  map[canteen.ItemID]canteen.Item
	orders map[canteen.OrderID]canteen.Order
}

func newState() *state {
	return &state{
		users:  make(map[canteen.UserID]canteen.User),
		items:  make(map[canteen.ItemID]canteen.Item),
		orders: make(map[canteen.OrderID]canteen.Order),
	}
}

func (s *state) clone() *state {
	c := newState()
	for k, v := range s.users {
		c.users[k] = v
	}
	for k, v := range s.items {
		c.items[k] = v
	}
	for k, v := range s.orders {
		c.orders[k] = v
	}
	return c
}

// =============================================================================
// STATE OPERATIONS (no locking; callers hold the Memory mutex)
// =============================================================================

func (s *state) getUser(id canteen.UserID) *canteen.User {
	if u, ok := s.users[id]; ok {
		return &u
	}
	return nil
}

func (s *state) getUserByEmail(email string) *canteen.User {
	for _, u := range s.users {
		if u.Email == email {
			u := u
			return &u
		}
	}
	return nil
}

func (s *state) saveUser(u *canteen.User) error {
	if existing := s.getUserByEmail(u.Email); existing != nil && existing.ID != u.ID {
		return canteen.ErrEmailTaken
	}
	s.users[u.ID] = *u
	return nil
}

func (s *state) deleteUser(id canteen.UserID) error {
	delete(s.users, id)
	// Cascade: orders belong to their user.
	for oid, o := range s.orders {
		if o.UserID == id {
			delete(s.orders, oid)
		}
	}
	return nil
}

func (s *state) saveItem(item *canteen.Item) {
	s.items[item.ID] = *item
}

func (s *state) deleteItem(id canteen.ItemID) error {
	for _, o := range s.orders {
		if o.ItemID == id {
			return canteen.ErrItemInUse
		}
	}
	delete(s.items, id)
	return nil
}

// =============================================================================
// MEMORY - canteen.Store interface
// =============================================================================

func (m *Memory) GetUser(_ context.Context, id canteen.UserID) (*canteen.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.st.getUser(id), nil
}

func (m *Memory) GetUserByEmail(_ context.Context, email string) (*canteen.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.st.getUserByEmail(email), nil
}

func (m *Memory) SaveUser(_ context.Context, u *canteen.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.saveUser(u)
}

func (m *Memory) DeleteUser(_ context.Context, id canteen.UserID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.deleteUser(id)
}

func (m *Memory) ListUsers(_ context.Context) ([]canteen.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	users := make([]canteen.User, 0, len(m.st.users))
	for _, u := range m.st.users {
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Email < users[j].Email })
	return users, nil
}

func (m *Memory) GetItem(_ context.Context, id canteen.ItemID) (*canteen.Item, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if item, ok := m.st.items[id]; ok {
		return &item, nil
	}
	return nil, nil
}

func (m *Memory) SaveItem(_ context.Context, item *canteen.Item) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.st.saveItem(item)
	return nil
}

func (m *Memory) DeleteItem(_ context.Context, id canteen.ItemID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.deleteItem(id)
}

func (m *Memory) ListItems(_ context.Context, filter canteen.ItemFilter) ([]canteen.Item, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var items []canteen.Item
	for _, item := range m.st.items {
		if filter.Vegetarian != nil && item.Vegetarian != *filter.Vegetarian {
			continue
		}
		items = append(items, item)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Name < items[j].Name })
	return items, nil
}

func (m *Memory) GetOrder(_ context.Context, id canteen.OrderID) (*canteen.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if o, ok := m.st.orders[id]; ok {
		return &o, nil
	}
	return nil, nil
}

func (m *Memory) SaveOrder(_ context.Context, o *canteen.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.st.orders[o.ID] = *o
	return nil
}

func (m *Memory) ListOrders(_ context.Context) ([]canteen.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.st.sortedOrders(func(canteen.Order) bool { return true }), nil
}

func (m *Memory) ListOrdersByUser(_ context.Context, id canteen.UserID) ([]canteen.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.st.sortedOrders(func(o canteen.Order) bool { return o.UserID == id }), nil
}

func (s *state) sortedOrders(keep func(canteen.Order) bool) []canteen.Order {
	var orders []canteen.Order
	for _, o := range s.orders {
		if keep(o) {
			orders = append(orders, o)
		}
	}
	// Newest first, matching the sqlite store's listing order.
	sort.Slice(orders, func(i, j int) bool {
		if orders[i].PlacedAt.Equal(orders[j].PlacedAt) {
			return orders[i].ID < orders[j].ID
		}
		return orders[i].PlacedAt.After(orders[j].PlacedAt)
	})
	return orders
}

// =============================================================================
// UNIT OF WORK (canteen.TxStore interface)
// =============================================================================

// WithTx runs fn against a clone of the current state. The clone replaces
// the live state only if fn returns nil.
func (m *Memory) WithTx(_ context.Context, fn func(canteen.Store) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	working := m.st.clone()
	if err := fn(&txMemory{st: working}); err != nil {
		return err
	}
	m.st = working
	return nil
}

// txMemory exposes a working state as a canteen.Store. No locking: the
// owning Memory holds its mutex for the duration of the unit of work.
type txMemory struct {
	st *state
}

func (t *txMemory) GetUser(_ context.Context, id canteen.UserID) (*canteen.User, error) {
	return t.st.getUser(id), nil
}

func (t *txMemory) GetUserByEmail(_ context.Context, email string) (*canteen.User, error) {
	return t.st.getUserByEmail(email), nil
}

func (t *txMemory) SaveUser(_ context.Context, u *canteen.User) error {
	return t.st.saveUser(u)
}

func (t *txMemory) DeleteUser(_ context.Context, id canteen.UserID) error {
	return t.st.deleteUser(id)
}

func (t *txMemory) ListUsers(_ context.Context) ([]canteen.User, error) {
	users := make([]canteen.User, 0, len(t.st.users))
	for _, u := range t.st.users {
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Email < users[j].Email })
	return users, nil
}

func (t *txMemory) GetItem(_ context.Context, id canteen.ItemID) (*canteen.Item, error) {
	if item, ok := t.st.items[id]; ok {
		return &item, nil
	}
	return nil, nil
}

func (t *txMemory) SaveItem(_ context.Context, item *canteen.Item) error {
	t.st.saveItem(item)
	return nil
}

func (t *txMemory) DeleteItem(_ context.Context, id canteen.ItemID) error {
	return t.st.deleteItem(id)
}

func (t *txMemory) ListItems(_ context.Context, filter canteen.ItemFilter) ([]canteen.Item, error) {
	var items []canteen.Item
	for _, item := range t.st.items {
		if filter.Vegetarian != nil && item.Vegetarian != *filter.Vegetarian {
			continue
		}
		items = append(items, item)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Name < items[j].Name })
	return items, nil
}

func (t *txMemory) GetOrder(_ context.Context, id canteen.OrderID) (*canteen.Order, error) {
	if o, ok := t.st.orders[id]; ok {
		return &o, nil
	}
	return nil, nil
}

func (t *txMemory) SaveOrder(_ context.Context, o *canteen.Order) error {
	t.st.orders[o.ID] = *o
	return nil
}

func (t *txMemory) ListOrders(_ context.Context) ([]canteen.Order, error) {
	return t.st.sortedOrders(func(canteen.Order) bool { return true }), nil
}

func (t *txMemory) ListOrdersByUser(_ context.Context, id canteen.UserID) ([]canteen.Order, error) {
	return t.st.sortedOrders(func(o canteen.Order) bool { return o.UserID == id }), nil
}
