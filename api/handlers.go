/*
handlers.go - HTTP API handlers for the canteen ordering service

PURPOSE:
  Exposes the ordering engine via REST API. Handles HTTP request/response,
  JSON serialization, and delegates to the ledger workflows and stores.

ENDPOINTS:
  Auth (no actor required):
    POST   /api/auth/register        Create account (zero starting credit)
    POST   /api/auth/login           Credential check

  Account:
    GET    /api/account              Acting user's record
    PUT    /api/account              Update email/password

  Users (staff):
    GET    /api/users                List all accounts
    DELETE /api/users/{id}           Delete an account (not yourself)

  Credit (staff):
    POST   /api/credit               Top up a student's balance by email

  Items:
    GET    /api/items                Catalog listing (?vegetarian=true)
    GET    /api/items/{id}           Single item
    POST   /api/items                Create (staff)
    PUT    /api/items/{id}           Edit (staff)
    DELETE /api/items/{id}           Delete (staff; blocked while ordered)

  Orders:
    POST   /api/orders               Place order (student)
    GET    /api/orders               Own orders; all orders for staff
    GET    /api/orders/{id}          Single order (owner or staff)
    POST   /api/orders/{id}/advance  Next pipeline stage (staff)
    POST   /api/orders/{id}/cancel   Cancel with refund (owner or staff)

ERROR HANDLING:
  Domain errors are mapped to HTTP statuses:
  - 400: invalid input, non-positive amounts
  - 403: role gates, self-deletion
  - 404: missing user/item/order
  - 409: out of stock, insufficient stock/credit, duplicate email,
         completed-order cancellation (when rejected), item in use
  - 500: internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - actor.go: Actor resolution middleware
  - server.go: Router setup
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/lunchline/canteen/canteen"
)

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store  canteen.TxStore
	Ledger *canteen.Ledger
}

// NewHandler creates a new handler over the given store.
func NewHandler(store canteen.TxStore, cfg canteen.Config) *Handler {
	return &Handler{
		Store:  store,
		Ledger: canteen.NewLedger(store, cfg),
	}
}

// =============================================================================
// AUTH HANDLERS
// =============================================================================

// Register creates a student account with zero starting credit.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || !strings.Contains(req.Email, "@") {
		writeError(w, http.StatusBadRequest, "A valid email is required", nil)
		return
	}
	if len(req.Password) < 8 {
		writeError(w, http.StatusBadRequest, "Password must be at least 8 characters long", nil)
		return
	}

	user := &canteen.User{
		ID:        canteen.NewUserID(),
		Email:     req.Email,
		Credit:    decimal.Zero,
		CreatedAt: time.Now().UTC(),
	}
	if err := user.SetPassword(req.Password); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to hash password", err)
		return
	}

	if err := h.Store.SaveUser(r.Context(), user); err != nil {
		writeDomainError(w, "Failed to register", err)
		return
	}

	writeJSON(w, http.StatusCreated, toUserDTO(user))
}

// Login verifies credentials and returns the account. Session issuance is
// the outer web layer's job; a failed check never says which part was wrong.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	user, err := h.Store.GetUserByEmail(r.Context(), req.Email)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to look up user", err)
		return
	}
	if user == nil || !user.CheckPassword(req.Password) {
		writeError(w, http.StatusUnauthorized, "Invalid email or password", nil)
		return
	}

	writeJSON(w, http.StatusOK, toUserDTO(user))
}

// =============================================================================
// ACCOUNT HANDLERS
// =============================================================================

// GetAccount returns the acting user's record.
func (h *Handler) GetAccount(w http.ResponseWriter, r *http.Request) {
	actor := actorFrom(r)
	user, err := h.Store.GetUser(r.Context(), actor.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get account", err)
		return
	}
	if user == nil {
		writeError(w, http.StatusNotFound, "Account not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, toUserDTO(user))
}

// UpdateAccount changes the acting user's email and/or password. Password
// changes require the current password.
func (h *Handler) UpdateAccount(w http.ResponseWriter, r *http.Request) {
	var req UpdateAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	actor := actorFrom(r)
	user, err := h.Store.GetUser(r.Context(), actor.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get account", err)
		return
	}
	if user == nil {
		writeError(w, http.StatusNotFound, "Account not found", nil)
		return
	}

	if req.Email != "" {
		user.Email = strings.TrimSpace(req.Email)
	}
	if req.Password != "" {
		if len(req.Password) < 8 {
			writeError(w, http.StatusBadRequest, "Password must be at least 8 characters long", nil)
			return
		}
		if !user.CheckPassword(req.OldPassword) {
			writeError(w, http.StatusForbidden, "Current password is incorrect", nil)
			return
		}
		if err := user.SetPassword(req.Password); err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to hash password", err)
			return
		}
	}

	if err := h.Store.SaveUser(r.Context(), user); err != nil {
		writeDomainError(w, "Failed to update account", err)
		return
	}

	writeJSON(w, http.StatusOK, toUserDTO(user))
}

// =============================================================================
// USER ADMIN HANDLERS (staff)
// =============================================================================

// ListUsers returns all accounts.
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.Store.ListUsers(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list users", err)
		return
	}

	dtos := make([]UserDTO, len(users))
	for i := range users {
		dtos[i] = toUserDTO(&users[i])
	}
	writeJSON(w, http.StatusOK, dtos)
}

// DeleteUser removes an account and its orders. Self-deletion is forbidden.
func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id := canteen.UserID(chi.URLParam(r, "id"))

	if err := h.Ledger.RemoveUser(r.Context(), actorFrom(r), id); err != nil {
		writeDomainError(w, "Failed to delete user", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AddCredit tops up a student's balance.
func (h *Handler) AddCredit(w http.ResponseWriter, r *http.Request) {
	var req CreditRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid amount", err)
		return
	}

	user, err := h.Ledger.AddCredit(r.Context(), actorFrom(r), req.Email, amount)
	if err != nil {
		writeDomainError(w, "Failed to add credit", err)
		return
	}

	writeJSON(w, http.StatusOK, toUserDTO(user))
}

// =============================================================================
// ITEM HANDLERS
// =============================================================================

// ListItems returns the catalog, optionally filtered by the vegetarian flag.
func (h *Handler) ListItems(w http.ResponseWriter, r *http.Request) {
	var filter canteen.ItemFilter
	if v := r.URL.Query().Get("vegetarian"); v != "" {
		veg := v == "true" || v == "1"
		filter.Vegetarian = &veg
	}

	items, err := h.Store.ListItems(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list items", err)
		return
	}

	dtos := make([]ItemDTO, len(items))
	for i := range items {
		dtos[i] = toItemDTO(&items[i])
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetItem returns a single catalog entry.
func (h *Handler) GetItem(w http.ResponseWriter, r *http.Request) {
	item, err := h.Store.GetItem(r.Context(), canteen.ItemID(chi.URLParam(r, "id")))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get item", err)
		return
	}
	if item == nil {
		writeError(w, http.StatusNotFound, "Item not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, toItemDTO(item))
}

// CreateItem adds a catalog entry.
func (h *Handler) CreateItem(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeItem(w, r)
	if !ok {
		return
	}

	item := &canteen.Item{
		ID:         canteen.NewItemID(),
		Name:       req.Name,
		Price:      canteen.MustMoney(req.Price),
		Quantity:   req.Quantity,
		Vegetarian: req.Vegetarian,
		ImageRef:   req.ImageRef,
		CreatedAt:  time.Now().UTC(),
	}
	if err := h.Store.SaveItem(r.Context(), item); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create item", err)
		return
	}
	writeJSON(w, http.StatusCreated, toItemDTO(item))
}

// UpdateItem edits a catalog entry. Past orders keep their snapshotted
// totals regardless of what changes here.
func (h *Handler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	item, err := h.Store.GetItem(r.Context(), canteen.ItemID(chi.URLParam(r, "id")))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get item", err)
		return
	}
	if item == nil {
		writeError(w, http.StatusNotFound, "Item not found", nil)
		return
	}

	req, ok := h.decodeItem(w, r)
	if !ok {
		return
	}

	item.Name = req.Name
	item.Price = canteen.MustMoney(req.Price)
	item.Quantity = req.Quantity
	item.Vegetarian = req.Vegetarian
	item.ImageRef = req.ImageRef

	if err := h.Store.SaveItem(r.Context(), item); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to update item", err)
		return
	}
	writeJSON(w, http.StatusOK, toItemDTO(item))
}

// DeleteItem removes a catalog entry. Items referenced by orders stay.
func (h *Handler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.DeleteItem(r.Context(), canteen.ItemID(chi.URLParam(r, "id"))); err != nil {
		writeDomainError(w, "Failed to delete item", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) decodeItem(w http.ResponseWriter, r *http.Request) (ItemRequest, bool) {
	var req ItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return req, false
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "Item name is required", nil)
		return req, false
	}
	price, err := decimal.NewFromString(req.Price)
	if err != nil || price.IsNegative() {
		writeError(w, http.StatusBadRequest, "Price must be a non-negative decimal", err)
		return req, false
	}
	if req.Quantity < 0 {
		writeError(w, http.StatusBadRequest, "Quantity must be non-negative", nil)
		return req, false
	}
	return req, true
}

// =============================================================================
// ORDER HANDLERS
// =============================================================================

// PlaceOrder places an order for the acting student.
func (h *Handler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	var req PlaceOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Quantity < 1 {
		writeError(w, http.StatusBadRequest, "Quantity must be at least 1", nil)
		return
	}

	order, err := h.Ledger.PlaceOrder(r.Context(), actorFrom(r), canteen.ItemID(req.ItemID), req.Quantity)
	if err != nil {
		writeDomainError(w, "Failed to place order", err)
		return
	}
	writeJSON(w, http.StatusCreated, toOrderDTO(order))
}

// ListOrders returns the actor's own orders, or every order for staff.
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	actor := actorFrom(r)

	var (
		orders []canteen.Order
		err    error
	)
	if actor.IsStaff() {
		orders, err = h.Store.ListOrders(r.Context())
	} else {
		orders, err = h.Store.ListOrdersByUser(r.Context(), actor.ID)
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list orders", err)
		return
	}

	dtos := make([]OrderDTO, len(orders))
	for i := range orders {
		dtos[i] = toOrderDTO(&orders[i])
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetOrder returns a single order to its owner or staff.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.Store.GetOrder(r.Context(), canteen.OrderID(chi.URLParam(r, "id")))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get order", err)
		return
	}
	if order == nil {
		writeError(w, http.StatusNotFound, "Order not found", nil)
		return
	}

	actor := actorFrom(r)
	if !actor.IsStaff() && order.UserID != actor.ID {
		writeError(w, http.StatusForbidden, "Not your order", nil)
		return
	}
	writeJSON(w, http.StatusOK, toOrderDTO(order))
}

// AdvanceOrder moves an order to the next pipeline stage. Advancing a
// terminal order succeeds without changing anything.
func (h *Handler) AdvanceOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.Ledger.AdvanceOrder(r.Context(), actorFrom(r), canteen.OrderID(chi.URLParam(r, "id")))
	if err != nil {
		writeDomainError(w, "Failed to advance order", err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderDTO(order))
}

// CancelOrder cancels an order, refunding credit and restocking the item.
func (h *Handler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.Ledger.CancelOrder(r.Context(), actorFrom(r), canteen.OrderID(chi.URLParam(r, "id")))
	if err != nil {
		writeDomainError(w, "Failed to cancel order", err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderDTO(order))
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError maps ledger/store errors onto HTTP statuses.
func writeDomainError(w http.ResponseWriter, message string, err error) {
	status := http.StatusInternalServerError
	resp := ErrorResponse{Error: message, Details: err.Error()}

	switch {
	case errors.Is(err, canteen.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, canteen.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, canteen.ErrInvalidAmount):
		status = http.StatusBadRequest
	case errors.Is(err, canteen.ErrInsufficientStock):
		status = http.StatusConflict
		var stockErr *canteen.InsufficientStockError
		if errors.As(err, &stockErr) {
			resp.Available = &stockErr.Available
		}
	case errors.Is(err, canteen.ErrOutOfStock),
		errors.Is(err, canteen.ErrInsufficientCredit),
		errors.Is(err, canteen.ErrOrderCompleted),
		errors.Is(err, canteen.ErrEmailTaken),
		errors.Is(err, canteen.ErrItemInUse):
		status = http.StatusConflict
	}

	writeJSON(w, status, resp)
}
