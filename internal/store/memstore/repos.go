package memstore

import (
	"context"
	"sort"

	"github.com/farmlinker/farmlinker-backend/internal/store"
	"github.com/farmlinker/farmlinker-backend/pkg/db/models"
	dbtypes "github.com/farmlinker/farmlinker-backend/pkg/db/types"
	"github.com/farmlinker/farmlinker-backend/pkg/enums"
)

func sortedKeys[V any](m map[int64]V, desc bool) []int64 {
	keys := make([]int64, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if desc {
			return keys[i] > keys[j]
		}
		return keys[i] < keys[j]
	})
	return keys
}

type userRepo struct{ v *view }

func (r userRepo) Create(_ context.Context, user *models.User) error {
	store.FillUserDefaults(user)
	return r.v.run(func(st *memoryState) error {
		for _, existing := range st.users {
			if existing.Email == user.Email {
				return store.ErrDuplicate
			}
		}
		st.seq.user++
		now := r.v.now()
		user.ID = st.seq.user
		user.CreatedAt = now
		user.UpdatedAt = now
		st.users[user.ID] = *user
		return nil
	})
}

func (r userRepo) FindByID(_ context.Context, id int64) (*models.User, error) {
	var out *models.User
	err := r.v.run(func(st *memoryState) error {
		user, ok := st.users[id]
		if !ok {
			return store.ErrNotFound
		}
		out = &user
		return nil
	})
	return out, err
}

func (r userRepo) FindByEmail(_ context.Context, email string) (*models.User, error) {
	var out *models.User
	err := r.v.run(func(st *memoryState) error {
		for _, user := range st.users {
			if user.Email == email {
				u := user
				out = &u
				return nil
			}
		}
		return store.ErrNotFound
	})
	return out, err
}

func (r userRepo) List(context.Context) ([]models.User, error) {
	var out []models.User
	err := r.v.run(func(st *memoryState) error {
		for _, id := range sortedKeys(st.users, false) {
			out = append(out, st.users[id])
		}
		return nil
	})
	return out, err
}

type productRepo struct{ v *view }

func (r productRepo) Create(_ context.Context, product *models.Product) error {
	return r.v.run(func(st *memoryState) error {
		st.seq.product++
		now := r.v.now()
		product.ID = st.seq.product
		product.CreatedAt = now
		product.UpdatedAt = now
		st.products[product.ID] = *product
		return nil
	})
}

func (r productRepo) FindByID(_ context.Context, id int64) (*models.Product, error) {
	var out *models.Product
	err := r.v.run(func(st *memoryState) error {
		product, ok := st.products[id]
		if !ok {
			return store.ErrNotFound
		}
		out = &product
		return nil
	})
	return out, err
}

func (r productRepo) List(_ context.Context, filter store.ProductFilter) ([]models.Product, error) {
	var out []models.Product
	err := r.v.run(func(st *memoryState) error {
		for _, id := range sortedKeys(st.products, false) {
			if product := st.products[id]; filter.Matches(product) {
				out = append(out, product)
			}
		}
		return nil
	})
	return out, err
}

func (r productRepo) Update(_ context.Context, id int64, patch store.ProductPatch) (*models.Product, error) {
	var out *models.Product
	err := r.v.run(func(st *memoryState) error {
		product, ok := st.products[id]
		if !ok {
			return store.ErrNotFound
		}
		patch.Apply(&product)
		product.UpdatedAt = r.v.now()
		st.products[id] = product
		out = &product
		return nil
	})
	return out, err
}

func (r productRepo) Delete(_ context.Context, id int64) error {
	return r.v.run(func(st *memoryState) error {
		if _, ok := st.products[id]; !ok {
			return store.ErrNotFound
		}
		delete(st.products, id)
		for reviewID, review := range st.reviews {
			if review.ProductID == id {
				delete(st.reviews, reviewID)
			}
		}
		return nil
	})
}

func (r productRepo) AdjustQuantity(_ context.Context, id int64, delta int) (*models.Product, error) {
	var out *models.Product
	err := r.v.run(func(st *memoryState) error {
		product, ok := st.products[id]
		if !ok {
			return store.ErrNotFound
		}
		if product.Quantity+delta < 0 {
			return store.ErrInsufficientStock
		}
		product.Quantity += delta
		product.UpdatedAt = r.v.now()
		st.products[id] = product
		out = &product
		return nil
	})
	return out, err
}

type cartRepo struct{ v *view }

func (r cartRepo) FindByUser(_ context.Context, userID int64) (*models.Cart, error) {
	var out *models.Cart
	err := r.v.run(func(st *memoryState) error {
		cart, ok := st.carts[userID]
		if !ok {
			return store.ErrNotFound
		}
		cart.Items = cart.Items.Clone()
		out = &cart
		return nil
	})
	return out, err
}

func (r cartRepo) Save(_ context.Context, userID int64, items dbtypes.CartLines, expectedVersion *int) (*models.Cart, error) {
	var out *models.Cart
	err := r.v.run(func(st *memoryState) error {
		cart, exists := st.carts[userID]
		current := 0
		if exists {
			current = cart.Version
		}
		if expectedVersion != nil && *expectedVersion != current {
			return store.ErrVersionConflict
		}
		if !exists {
			st.seq.cart++
			cart = models.Cart{ID: st.seq.cart, UserID: userID}
		}
		cart.Items = items.Clone()
		cart.Version = current + 1
		cart.UpdatedAt = r.v.now()
		st.carts[userID] = cart

		result := cart
		result.Items = cart.Items.Clone()
		out = &result
		return nil
	})
	return out, err
}

type orderRepo struct{ v *view }

func (r orderRepo) Create(_ context.Context, order *models.Order) error {
	store.FillOrderDefaults(order)
	return r.v.run(func(st *memoryState) error {
		st.seq.order++
		now := r.v.now()
		order.ID = st.seq.order
		order.CreatedAt = now
		order.UpdatedAt = now
		st.orders[order.ID] = *order
		return nil
	})
}

func (r orderRepo) FindByID(_ context.Context, id int64) (*models.Order, error) {
	var out *models.Order
	err := r.v.run(func(st *memoryState) error {
		order, ok := st.orders[id]
		if !ok {
			return store.ErrNotFound
		}
		out = &order
		return nil
	})
	return out, err
}

func (r orderRepo) List(_ context.Context, filter store.OrderFilter) ([]models.Order, error) {
	out := []models.Order{}
	err := r.v.run(func(st *memoryState) error {
		for _, id := range sortedKeys(st.orders, true) {
			if order := st.orders[id]; filter.Matches(order) {
				out = append(out, order)
			}
		}
		return nil
	})
	return out, err
}

func (r orderRepo) UpdateStatus(_ context.Context, id int64, from, to enums.OrderStatus) (*models.Order, error) {
	var out *models.Order
	err := r.v.run(func(st *memoryState) error {
		order, ok := st.orders[id]
		if !ok {
			return store.ErrNotFound
		}
		if order.Status != from {
			return store.ErrStaleStatus
		}
		order.Status = to
		order.UpdatedAt = r.v.now()
		st.orders[id] = order
		out = &order
		return nil
	})
	return out, err
}

type orderItemRepo struct{ v *view }

func (r orderItemRepo) Create(_ context.Context, item *models.OrderItem) error {
	return r.v.run(func(st *memoryState) error {
		st.seq.orderItem++
		item.ID = st.seq.orderItem
		st.orderItems[item.ID] = *item
		return nil
	})
}

func (r orderItemRepo) ListByOrder(_ context.Context, orderID int64) ([]models.OrderItem, error) {
	return r.list(func(item models.OrderItem) bool { return item.OrderID == orderID })
}

func (r orderItemRepo) ListBySeller(_ context.Context, sellerID int64) ([]models.OrderItem, error) {
	return r.list(func(item models.OrderItem) bool { return item.SellerID == sellerID })
}

func (r orderItemRepo) list(keep func(models.OrderItem) bool) ([]models.OrderItem, error) {
	var out []models.OrderItem
	err := r.v.run(func(st *memoryState) error {
		for _, id := range sortedKeys(st.orderItems, false) {
			if item := st.orderItems[id]; keep(item) {
				out = append(out, item)
			}
		}
		return nil
	})
	return out, err
}

type reviewRepo struct{ v *view }

func (r reviewRepo) Create(_ context.Context, review *models.Review) error {
	return r.v.run(func(st *memoryState) error {
		st.seq.review++
		review.ID = st.seq.review
		review.CreatedAt = r.v.now()
		st.reviews[review.ID] = *review
		return nil
	})
}

func (r reviewRepo) ListByProduct(_ context.Context, productID int64) ([]models.Review, error) {
	var out []models.Review
	err := r.v.run(func(st *memoryState) error {
		for _, id := range sortedKeys(st.reviews, false) {
			if review := st.reviews[id]; review.ProductID == productID {
				out = append(out, review)
			}
		}
		return nil
	})
	return out, err
}

type waitlistRepo struct{ v *view }

func (r waitlistRepo) Create(_ context.Context, entry *models.WaitlistEntry) error {
	return r.v.run(func(st *memoryState) error {
		for _, existing := range st.waitlist {
			if existing.Email == entry.Email {
				return store.ErrDuplicate
			}
		}
		st.seq.waitlist++
		entry.ID = st.seq.waitlist
		entry.CreatedAt = r.v.now()
		st.waitlist[entry.ID] = *entry
		return nil
	})
}

func (r waitlistRepo) FindByEmail(_ context.Context, email string) (*models.WaitlistEntry, error) {
	var out *models.WaitlistEntry
	err := r.v.run(func(st *memoryState) error {
		for _, entry := range st.waitlist {
			if entry.Email == email {
				e := entry
				out = &e
				return nil
			}
		}
		return store.ErrNotFound
	})
	return out, err
}

func (r waitlistRepo) List(context.Context) ([]models.WaitlistEntry, error) {
	var out []models.WaitlistEntry
	err := r.v.run(func(st *memoryState) error {
		for _, id := range sortedKeys(st.waitlist, false) {
			out = append(out, st.waitlist[id])
		}
		return nil
	})
	return out, err
}
