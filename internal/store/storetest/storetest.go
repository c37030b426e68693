// Package storetest holds the behavioural suite every store.Store backing
// must pass.
package storetest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/farmlinker/farmlinker-backend/internal/store"
	"github.com/farmlinker/farmlinker-backend/pkg/db/models"
	dbtypes "github.com/farmlinker/farmlinker-backend/pkg/db/types"
	"github.com/farmlinker/farmlinker-backend/pkg/enums"
)

// Factory returns a fresh, empty store for one test.
type Factory func(t *testing.T) store.Store

// Run executes the suite against the backing produced by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Helper()

	t.Run("Users", func(t *testing.T) { testUsers(t, newStore(t)) })
	t.Run("CreateFillsDefaults", func(t *testing.T) { testCreateDefaults(t, newStore(t)) })
	t.Run("Products", func(t *testing.T) { testProducts(t, newStore(t)) })
	t.Run("ProductDeleteRemovesReviews", func(t *testing.T) { testProductDelete(t, newStore(t)) })
	t.Run("AdjustQuantity", func(t *testing.T) { testAdjustQuantity(t, newStore(t)) })
	t.Run("Carts", func(t *testing.T) { testCarts(t, newStore(t)) })
	t.Run("Orders", func(t *testing.T) { testOrders(t, newStore(t)) })
	t.Run("OrderStatusSingleWinner", func(t *testing.T) { testOrderStatusSingleWinner(t, newStore(t)) })
	t.Run("Waitlist", func(t *testing.T) { testWaitlist(t, newStore(t)) })
	t.Run("WaitlistConcurrentDuplicates", func(t *testing.T) { testWaitlistConcurrent(t, newStore(t)) })
	t.Run("WithinTx", func(t *testing.T) { testWithinTx(t, newStore(t)) })
}

func ptr[T any](v T) *T { return &v }

// MustUser inserts a user with the given role.
func MustUser(t *testing.T, s store.Store, email string, role enums.UserRole) *models.User {
	t.Helper()
	user := &models.User{Name: "user " + email, Email: email, PasswordHash: "hash", Role: role}
	require.NoError(t, s.Users().Create(context.Background(), user))
	return user
}

// MustProduct inserts an available product owned by sellerID.
func MustProduct(t *testing.T, s store.Store, sellerID int64, name, price string, qty int) *models.Product {
	t.Helper()
	product := &models.Product{
		Name:        name,
		Description: name + " description",
		Category:    "vegetables",
		Price:       decimal.RequireFromString(price),
		Quantity:    qty,
		Unit:        "kg",
		SellerID:    sellerID,
		Available:   true,
	}
	require.NoError(t, s.Products().Create(context.Background(), product))
	return product
}

func testUsers(t *testing.T, s store.Store) {
	ctx := context.Background()
	user := MustUser(t, s, "seller@example.com", enums.UserRoleSeller)
	require.NotZero(t, user.ID)

	byID, err := s.Users().FindByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "seller@example.com", byID.Email)
	assert.Equal(t, enums.UserRoleSeller, byID.Role)

	byEmail, err := s.Users().FindByEmail(ctx, "seller@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, byEmail.ID)

	_, err = s.Users().FindByID(ctx, user.ID+100)
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = s.Users().FindByEmail(ctx, "missing@example.com")
	assert.ErrorIs(t, err, store.ErrNotFound)

	dup := &models.User{Name: "Dup", Email: "seller@example.com", PasswordHash: "x", Role: enums.UserRoleBuyer}
	assert.ErrorIs(t, s.Users().Create(ctx, dup), store.ErrDuplicate)

	MustUser(t, s, "buyer@example.com", enums.UserRoleBuyer)
	users, err := s.Users().List(ctx)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Less(t, users[0].ID, users[1].ID)
}

func testProducts(t *testing.T, s store.Store) {
	ctx := context.Background()
	seller := MustUser(t, s, "seller@example.com", enums.UserRoleSeller)
	other := MustUser(t, s, "other@example.com", enums.UserRoleSeller)

	tomatoes := MustProduct(t, s, seller.ID, "Tomatoes", "150", 50)
	milk := MustProduct(t, s, seller.ID, "Milk", "80", 100)
	milk2, err := s.Products().Update(ctx, milk.ID, store.ProductPatch{
		Category: ptr("dairy"),
		County:   ptr("kiambu"),
		Organic:  ptr(true),
	})
	require.NoError(t, err)
	assert.Equal(t, "dairy", milk2.Category)
	MustProduct(t, s, other.ID, "Avocados", "25", 200)

	got, err := s.Products().FindByID(ctx, tomatoes.ID)
	require.NoError(t, err)
	assert.True(t, got.Price.Equal(decimal.NewFromInt(150)))
	assert.True(t, got.Available)

	all, err := s.Products().List(ctx, store.ProductFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	bySeller, err := s.Products().List(ctx, store.ProductFilter{SellerID: &seller.ID})
	require.NoError(t, err)
	assert.Len(t, bySeller, 2)

	dairy, err := s.Products().List(ctx, store.ProductFilter{Category: ptr("dairy"), Organic: ptr(true)})
	require.NoError(t, err)
	require.Len(t, dairy, 1)
	assert.Equal(t, milk.ID, dairy[0].ID)

	kiambu, err := s.Products().List(ctx, store.ProductFilter{County: ptr("kiambu")})
	require.NoError(t, err)
	assert.Len(t, kiambu, 1)

	updated, err := s.Products().Update(ctx, tomatoes.ID, store.ProductPatch{
		Price:     ptr(decimal.RequireFromString("175.50")),
		Available: ptr(false),
	})
	require.NoError(t, err)
	assert.True(t, updated.Price.Equal(decimal.RequireFromString("175.50")))
	assert.False(t, updated.Available)
	assert.Equal(t, "Tomatoes", updated.Name)

	available, err := s.Products().List(ctx, store.ProductFilter{Available: ptr(true)})
	require.NoError(t, err)
	assert.Len(t, available, 2)

	_, err = s.Products().Update(ctx, tomatoes.ID+100, store.ProductPatch{Name: ptr("x")})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func testProductDelete(t *testing.T, s store.Store) {
	ctx := context.Background()
	seller := MustUser(t, s, "seller@example.com", enums.UserRoleSeller)
	buyer := MustUser(t, s, "buyer@example.com", enums.UserRoleBuyer)
	product := MustProduct(t, s, seller.ID, "Tomatoes", "150", 50)
	keep := MustProduct(t, s, seller.ID, "Milk", "80", 10)

	require.NoError(t, s.Reviews().Create(ctx, &models.Review{ProductID: product.ID, UserID: buyer.ID, Rating: 5}))
	require.NoError(t, s.Reviews().Create(ctx, &models.Review{ProductID: keep.ID, UserID: buyer.ID, Rating: 4, Comment: ptr("fresh")}))

	require.NoError(t, s.Products().Delete(ctx, product.ID))

	_, err := s.Products().FindByID(ctx, product.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
	reviews, err := s.Reviews().ListByProduct(ctx, product.ID)
	require.NoError(t, err)
	assert.Empty(t, reviews)

	kept, err := s.Reviews().ListByProduct(ctx, keep.ID)
	require.NoError(t, err)
	require.Len(t, kept, 1)
	assert.Equal(t, "fresh", *kept[0].Comment)

	assert.ErrorIs(t, s.Products().Delete(ctx, product.ID), store.ErrNotFound)
}

func testCreateDefaults(t *testing.T, s store.Store) {
	ctx := context.Background()

	user := &models.User{Name: "No Role", Email: "norole@example.com", PasswordHash: "hash"}
	require.NoError(t, s.Users().Create(ctx, user))
	assert.Equal(t, enums.UserRoleBuyer, user.Role)
	stored, err := s.Users().FindByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.UserRoleBuyer, stored.Role)

	explicit := MustUser(t, s, "seller@example.com", enums.UserRoleSeller)
	assert.Equal(t, enums.UserRoleSeller, explicit.Role)

	order := &models.Order{
		BuyerID:         user.ID,
		TotalAmount:     decimal.NewFromInt(10),
		ShippingAddress: "Box 1, Nairobi",
		PaymentMethod:   enums.PaymentMethodCashOnDelivery,
	}
	require.NoError(t, s.Orders().Create(ctx, order))
	assert.Equal(t, enums.OrderStatusPending, order.Status)
	storedOrder, err := s.Orders().FindByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusPending, storedOrder.Status)

	product := &models.Product{Name: "Kale", Description: "kale", Category: "vegetables",
		Price: decimal.NewFromInt(30), Quantity: 4, Unit: "bunch", SellerID: explicit.ID}
	require.NoError(t, s.Products().Create(ctx, product))
	storedProduct, err := s.Products().FindByID(ctx, product.ID)
	require.NoError(t, err)
	assert.False(t, storedProduct.Organic)

	cart, err := s.Carts().Save(ctx, user.ID, nil, nil)
	require.NoError(t, err)
	assert.NotNil(t, cart.Items)
	assert.Empty(t, cart.Items)
}

func testAdjustQuantity(t *testing.T, s store.Store) {
	ctx := context.Background()
	seller := MustUser(t, s, "seller@example.com", enums.UserRoleSeller)
	product := MustProduct(t, s, seller.ID, "Tomatoes", "150", 5)

	after, err := s.Products().AdjustQuantity(ctx, product.ID, -5)
	require.NoError(t, err)
	assert.Equal(t, 0, after.Quantity)

	_, err = s.Products().AdjustQuantity(ctx, product.ID, -1)
	assert.ErrorIs(t, err, store.ErrInsufficientStock)

	after, err = s.Products().AdjustQuantity(ctx, product.ID, 3)
	require.NoError(t, err)
	assert.Equal(t, 3, after.Quantity)

	_, err = s.Products().AdjustQuantity(ctx, product.ID+100, 1)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func testCarts(t *testing.T, s store.Store) {
	ctx := context.Background()
	buyer := MustUser(t, s, "buyer@example.com", enums.UserRoleBuyer)

	_, err := s.Carts().FindByUser(ctx, buyer.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)

	first, err := s.Carts().Save(ctx, buyer.ID, dbtypes.CartLines{{ProductID: 1, Quantity: 2}}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, first.Version)
	require.Len(t, first.Items, 1)

	second, err := s.Carts().Save(ctx, buyer.ID, dbtypes.CartLines{{ProductID: 1, Quantity: 3}, {ProductID: 2, Quantity: 1}}, ptr(1))
	require.NoError(t, err)
	assert.Equal(t, 2, second.Version)

	_, err = s.Carts().Save(ctx, buyer.ID, dbtypes.CartLines{}, ptr(1))
	assert.ErrorIs(t, err, store.ErrVersionConflict)

	stored, err := s.Carts().FindByUser(ctx, buyer.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, stored.Version)
	assert.Equal(t, dbtypes.CartLines{{ProductID: 1, Quantity: 3}, {ProductID: 2, Quantity: 1}}, stored.Items)

	cleared, err := s.Carts().Save(ctx, buyer.ID, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, cleared.Version)
	assert.Empty(t, cleared.Items)

	other := MustUser(t, s, "other@example.com", enums.UserRoleBuyer)
	_, err = s.Carts().Save(ctx, other.ID, dbtypes.CartLines{}, ptr(4))
	assert.ErrorIs(t, err, store.ErrVersionConflict)
}

func testOrders(t *testing.T, s store.Store) {
	ctx := context.Background()
	seller := MustUser(t, s, "seller@example.com", enums.UserRoleSeller)
	buyer := MustUser(t, s, "buyer@example.com", enums.UserRoleBuyer)
	other := MustUser(t, s, "other@example.com", enums.UserRoleBuyer)

	newOrder := func(buyerID int64, total string) *models.Order {
		order := &models.Order{
			BuyerID:         buyerID,
			Status:          enums.OrderStatusPending,
			TotalAmount:     decimal.RequireFromString(total),
			ShippingAddress: "Box 1, Nairobi",
			PaymentMethod:   enums.PaymentMethodMpesa,
		}
		require.NoError(t, s.Orders().Create(ctx, order))
		return order
	}

	first := newOrder(buyer.ID, "750")
	second := newOrder(buyer.ID, "80")
	newOrder(other.ID, "25")

	require.NoError(t, s.OrderItems().Create(ctx, &models.OrderItem{
		OrderID: first.ID, ProductID: 10, SellerID: seller.ID, Quantity: 5,
		UnitPrice: decimal.NewFromInt(150), TotalPrice: decimal.NewFromInt(750),
	}))
	require.NoError(t, s.OrderItems().Create(ctx, &models.OrderItem{
		OrderID: second.ID, ProductID: 11, SellerID: seller.ID, Quantity: 1,
		UnitPrice: decimal.NewFromInt(80), TotalPrice: decimal.NewFromInt(80),
	}))

	mine, err := s.Orders().List(ctx, store.OrderFilter{BuyerID: &buyer.ID})
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, second.ID, mine[0].ID, "newest first")
	assert.Equal(t, first.ID, mine[1].ID)

	none, err := s.Orders().List(ctx, store.OrderFilter{IDs: []int64{}})
	require.NoError(t, err)
	assert.Empty(t, none)

	byIDs, err := s.Orders().List(ctx, store.OrderFilter{IDs: []int64{first.ID}})
	require.NoError(t, err)
	require.Len(t, byIDs, 1)

	items, err := s.OrderItems().ListByOrder(ctx, first.ID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.True(t, items[0].TotalPrice.Equal(decimal.NewFromInt(750)))

	sold, err := s.OrderItems().ListBySeller(ctx, seller.ID)
	require.NoError(t, err)
	assert.Len(t, sold, 2)

	updated, err := s.Orders().UpdateStatus(ctx, first.ID, enums.OrderStatusPending, enums.OrderStatusConfirmed)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusConfirmed, updated.Status)

	pending, err := s.Orders().List(ctx, store.OrderFilter{Status: ptr(enums.OrderStatusPending)})
	require.NoError(t, err)
	assert.Len(t, pending, 2)

	_, err = s.Orders().UpdateStatus(ctx, first.ID, enums.OrderStatusPending, enums.OrderStatusCancelled)
	assert.ErrorIs(t, err, store.ErrStaleStatus)
	stillConfirmed, err := s.Orders().FindByID(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusConfirmed, stillConfirmed.Status)

	_, err = s.Orders().UpdateStatus(ctx, first.ID+100, enums.OrderStatusPending, enums.OrderStatusConfirmed)
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = s.Orders().FindByID(ctx, first.ID+100)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func testOrderStatusSingleWinner(t *testing.T, s store.Store) {
	ctx := context.Background()
	buyer := MustUser(t, s, "buyer@example.com", enums.UserRoleBuyer)
	order := &models.Order{
		BuyerID:         buyer.ID,
		TotalAmount:     decimal.NewFromInt(150),
		ShippingAddress: "Box 1, Nairobi",
		PaymentMethod:   enums.PaymentMethodMpesa,
	}
	require.NoError(t, s.Orders().Create(ctx, order))

	const workers = 8
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		won     int
		stale   int
		unknown []error
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Orders().UpdateStatus(ctx, order.ID, enums.OrderStatusPending, enums.OrderStatusCancelled)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				won++
			case errors.Is(err, store.ErrStaleStatus):
				stale++
			default:
				unknown = append(unknown, err)
			}
		}()
	}
	wg.Wait()

	require.Empty(t, unknown)
	assert.Equal(t, 1, won)
	assert.Equal(t, workers-1, stale)
}

func testWaitlist(t *testing.T, s store.Store) {
	ctx := context.Background()
	entry := &models.WaitlistEntry{Name: "Ada", Email: "ada@example.com", Company: ptr("Shamba Co")}
	require.NoError(t, s.Waitlist().Create(ctx, entry))
	require.NotZero(t, entry.ID)

	found, err := s.Waitlist().FindByEmail(ctx, "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, "Shamba Co", *found.Company)

	err = s.Waitlist().Create(ctx, &models.WaitlistEntry{Name: "Ada again", Email: "ada@example.com"})
	assert.ErrorIs(t, err, store.ErrDuplicate)

	entries, err := s.Waitlist().List(ctx)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func testWaitlistConcurrent(t *testing.T, s store.Store) {
	ctx := context.Background()
	const workers = 8

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		dupes     int
		unknown   []error
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			err := s.Waitlist().Create(ctx, &models.WaitlistEntry{Name: fmt.Sprintf("n%d", i), Email: "race@example.com"})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, store.ErrDuplicate):
				dupes++
			default:
				unknown = append(unknown, err)
			}
		}(i)
	}
	wg.Wait()

	require.Empty(t, unknown)
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, workers-1, dupes)
}

func testWithinTx(t *testing.T, s store.Store) {
	ctx := context.Background()
	seller := MustUser(t, s, "seller@example.com", enums.UserRoleSeller)
	product := MustProduct(t, s, seller.ID, "Tomatoes", "150", 5)

	boom := errors.New("boom")
	err := s.WithinTx(ctx, func(tx store.Store) error {
		if _, err := tx.Products().AdjustQuantity(ctx, product.ID, -2); err != nil {
			return err
		}
		if err := tx.Waitlist().Create(ctx, &models.WaitlistEntry{Name: "x", Email: "x@example.com"}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	after, err := s.Products().FindByID(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, after.Quantity)
	_, err = s.Waitlist().FindByEmail(ctx, "x@example.com")
	assert.ErrorIs(t, err, store.ErrNotFound)

	err = s.WithinTx(ctx, func(tx store.Store) error {
		if _, err := tx.Products().AdjustQuantity(ctx, product.ID, -2); err != nil {
			return err
		}
		return tx.WithinTx(ctx, func(inner store.Store) error {
			_, err := inner.Products().AdjustQuantity(ctx, product.ID, -1)
			return err
		})
	})
	require.NoError(t, err)

	after, err = s.Products().FindByID(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, after.Quantity)
}
