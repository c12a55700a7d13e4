/*
seed.go - Default data for development and demos

Seeds the two default accounts (one staff, one student) and a small
starter menu. Seeding is idempotent: records that already exist by email
or name are left alone, so the flag is safe on every launch.
*/
package api

import (
	"context"
	"fmt"
	"time"

	"github.com/lunchline/canteen/canteen"
)

type seedUser struct {
	email    string
	password string
	staff    bool
	credit   string
}

type seedItem struct {
	name       string
	price      string
	quantity   int
	vegetarian bool
}

var defaultUsers = []seedUser{
	{email: "bob_staff@school.com", password: "bob12345", staff: true, credit: "0"},
	{email: "alice_student@school.com", password: "alice123", staff: false, credit: "20.00"},
}

var defaultItems = []seedItem{
	{name: "Margherita Slice", price: "2.00", quantity: 30, vegetarian: true},
	{name: "Chicken Wrap", price: "3.50", quantity: 20, vegetarian: false},
	{name: "Fruit Cup", price: "1.25", quantity: 40, vegetarian: true},
	{name: "Tomato Soup", price: "1.80", quantity: 15, vegetarian: true},
}

// SeedDefaults loads the default accounts and menu into the store.
func SeedDefaults(ctx context.Context, store canteen.Store) error {
	for _, su := range defaultUsers {
		existing, err := store.GetUserByEmail(ctx, su.email)
		if err != nil {
			return fmt.Errorf("seed: look up %s: %w", su.email, err)
		}
		if existing != nil {
			continue
		}

		user := &canteen.User{
			ID:        canteen.NewUserID(),
			Email:     su.email,
			Staff:     su.staff,
			Credit:    canteen.MustMoney(su.credit),
			CreatedAt: time.Now().UTC(),
		}
		if err := user.SetPassword(su.password); err != nil {
			return fmt.Errorf("seed: hash password for %s: %w", su.email, err)
		}
		if err := store.SaveUser(ctx, user); err != nil {
			return fmt.Errorf("seed: save %s: %w", su.email, err)
		}
	}

	existing, err := store.ListItems(ctx, canteen.ItemFilter{})
	if err != nil {
		return fmt.Errorf("seed: list items: %w", err)
	}
	have := make(map[string]bool, len(existing))
	for _, item := range existing {
		have[item.Name] = true
	}

	for _, si := range defaultItems {
		if have[si.name] {
			continue
		}
		item := &canteen.Item{
			ID:         canteen.NewItemID(),
			Name:       si.name,
			Price:      canteen.MustMoney(si.price),
			Quantity:   si.quantity,
			Vegetarian: si.vegetarian,
			CreatedAt:  time.Now().UTC(),
		}
		if err := store.SaveItem(ctx, item); err != nil {
			return fmt.Errorf("seed: save item %s: %w", si.name, err)
		}
	}

	return nil
}
