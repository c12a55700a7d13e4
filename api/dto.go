/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract. Money values
  travel as strings ("4.00") to keep two-decimal exactness; order status
  travels as its display string.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

VALIDATION:
  Validation is done in handlers, not in DTOs. DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"time"

	"github.com/lunchline/canteen/canteen"
)

// =============================================================================
// RESPONSE TYPES
// =============================================================================

type UserDTO struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Staff     bool   `json:"staff"`
	Credit    string `json:"credit"`
	CreatedAt string `json:"created_at,omitempty"`
}

type ItemDTO struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Price      string `json:"price"`
	Quantity   int    `json:"quantity"`
	Vegetarian bool   `json:"vegetarian"`
	ImageRef   string `json:"image_ref,omitempty"`
}

type OrderDTO struct {
	ID        string `json:"id"`
	UserID    string `json:"user_id"`
	ItemID    string `json:"item_id"`
	Quantity  int    `json:"quantity"`
	TotalCost string `json:"total_cost"`
	PlacedAt  string `json:"placed_at"`
	Status    string `json:"status"`
}

type ErrorResponse struct {
	Error     string `json:"error"`
	Details   string `json:"details,omitempty"`
	Available *int   `json:"available,omitempty"` // set on insufficient stock
}

// =============================================================================
// REQUEST TYPES
// =============================================================================

type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type UpdateAccountRequest struct {
	Email       string `json:"email,omitempty"`
	Password    string `json:"password,omitempty"`
	OldPassword string `json:"old_password,omitempty"`
}

type CreditRequest struct {
	Email  string `json:"email"`
	Amount string `json:"amount"`
}

type ItemRequest struct {
	Name       string `json:"name"`
	Price      string `json:"price"`
	Quantity   int    `json:"quantity"`
	Vegetarian bool   `json:"vegetarian"`
	ImageRef   string `json:"image_ref,omitempty"`
}

type PlaceOrderRequest struct {
	ItemID   string `json:"item_id"`
	Quantity int    `json:"quantity"`
}

// =============================================================================
// CONVERTERS
// =============================================================================

func toUserDTO(u *canteen.User) UserDTO {
	return UserDTO{
		ID:        string(u.ID),
		Email:     u.Email,
		Staff:     u.Staff,
		Credit:    canteen.FormatMoney(u.Credit),
		CreatedAt: formatTime(u.CreatedAt),
	}
}

func toItemDTO(i *canteen.Item) ItemDTO {
	return ItemDTO{
		ID:         string(i.ID),
		Name:       i.Name,
		Price:      canteen.FormatMoney(i.Price),
		Quantity:   i.Quantity,
		Vegetarian: i.Vegetarian,
		ImageRef:   i.ImageRef,
	}
}

func toOrderDTO(o *canteen.Order) OrderDTO {
	return OrderDTO{
		ID:        string(o.ID),
		UserID:    string(o.UserID),
		ItemID:    string(o.ItemID),
		Quantity:  o.Quantity,
		TotalCost: canteen.FormatMoney(o.TotalCost),
		PlacedAt:  formatTime(o.PlacedAt),
		Status:    o.Status.Display(),
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}
