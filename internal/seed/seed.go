// Package seed loads the demo marketplace used in development.
package seed

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/farmlinker/farmlinker-backend/internal/store"
	"github.com/farmlinker/farmlinker-backend/pkg/config"
	"github.com/farmlinker/farmlinker-backend/pkg/db/models"
	"github.com/farmlinker/farmlinker-backend/pkg/enums"
	"github.com/farmlinker/farmlinker-backend/pkg/security"
)

// DemoPassword is shared by every sample account.
const DemoPassword = "password"

type sampleUser struct {
	name, email, phone, address, county, idNumber string
	role                                          enums.UserRole
}

type sampleProduct struct {
	name, description, category, price, unit, image, location, county string
	quantity                                                           int
	organic                                                            bool
}

var sampleUsers = []sampleUser{
	{name: "John Farmer", email: "seller@example.com", role: enums.UserRoleSeller, phone: "+254712345678", address: "123 Farm Road", county: "nairobi", idNumber: "12345678"},
	{name: "Mary Buyer", email: "buyer@example.com", role: enums.UserRoleBuyer, phone: "+254787654321", address: "456 Market Street", county: "mombasa", idNumber: "87654321"},
	{name: "Sam Both", email: "both@example.com", role: enums.UserRoleBoth, phone: "+254723456789", address: "789 Commerce Avenue", county: "kisumu", idNumber: "23456789"},
}

// sampleProducts all belong to the first sample user.
var sampleProducts = []sampleProduct{
	{name: "Fresh Tomatoes", description: "Organic, locally grown tomatoes from Nairobi region", category: "vegetables", price: "150", quantity: 50, unit: "kg", image: "/uploads/7b39efc0-6d1b-4499-b382-81b72c7676f5.jpeg", location: "Nairobi Outskirts Farm", county: "nairobi", organic: true},
	{name: "Fresh Milk", description: "Pure cow's milk from grass-fed cattle in Kiambu", category: "dairy", price: "80", quantity: 100, unit: "liter", image: "/uploads/31a30550-f174-449e-ad49-61b1309a4198.jpeg", location: "Kiambu Dairy Farm", county: "kiambu", organic: true},
	{name: "Avocados", description: "Large Hass avocados from Nakuru", category: "fruits", price: "25", quantity: 200, unit: "piece", image: "/uploads/0fbcd262-07c5-4921-897f-bcded2264da2.jpeg", location: "Nakuru Heights Farm", county: "nakuru"},
	{name: "Maize Flour", description: "Stone-ground maize flour from Kitale", category: "grains", price: "120", quantity: 75, unit: "kg", image: "/uploads/d4eca0c0-e046-4fdc-80cd-3ac8e82519f8.jpeg", location: "Kitale Grain Milling", county: "trans-nzoia"},
}

// Result reports what Run inserted.
type Result struct {
	Users    int
	Products int
	Skipped  bool
}

// Run inserts the sample users and products when the store holds no users.
// Everything is written in one transaction.
func Run(ctx context.Context, st store.Store, passwords config.PasswordConfig) (Result, error) {
	existing, err := st.Users().List(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("list users: %w", err)
	}
	if len(existing) > 0 {
		return Result{Skipped: true}, nil
	}

	hash, err := security.HashPassword(DemoPassword, passwords)
	if err != nil {
		return Result{}, fmt.Errorf("hash demo password: %w", err)
	}

	var result Result
	err = st.WithinTx(ctx, func(tx store.Store) error {
		var sellerID int64
		for i, u := range sampleUsers {
			user := &models.User{
				Name:         u.name,
				Email:        u.email,
				PasswordHash: hash,
				Role:         u.role,
				Phone:        ptr(u.phone),
				Address:      ptr(u.address),
				County:       ptr(u.county),
				IDNumber:     ptr(u.idNumber),
				MpesaNumber:  ptr(u.phone),
			}
			if err := tx.Users().Create(ctx, user); err != nil {
				return fmt.Errorf("create user %s: %w", u.email, err)
			}
			if i == 0 {
				sellerID = user.ID
			}
			result.Users++
		}

		for _, p := range sampleProducts {
			product := &models.Product{
				Name:        p.name,
				Description: p.description,
				Category:    p.category,
				Price:       decimal.RequireFromString(p.price),
				Quantity:    p.quantity,
				Unit:        p.unit,
				ImageURL:    ptr(p.image),
				SellerID:    sellerID,
				Available:   true,
				Location:    ptr(p.location),
				County:      ptr(p.county),
				Organic:     p.organic,
			}
			if err := tx.Products().Create(ctx, product); err != nil {
				return fmt.Errorf("create product %s: %w", p.name, err)
			}
			result.Products++
		}
		return nil
	})
	if err != nil {
		return Result{}, err
	}
	return result, nil
}

func ptr(v string) *string { return &v }
