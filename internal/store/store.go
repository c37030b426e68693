// Package store defines the persistence contract shared by every backing
// (GORM over postgres/sqlite, and the in-memory store used in development).
package store

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/farmlinker/farmlinker-backend/pkg/db/models"
	dbtypes "github.com/farmlinker/farmlinker-backend/pkg/db/types"
	"github.com/farmlinker/farmlinker-backend/pkg/enums"
)

var (
	// ErrNotFound is returned when a lookup by key matches nothing.
	ErrNotFound = errors.New("store: record not found")
	// ErrDuplicate is returned when a unique constraint rejects a write.
	ErrDuplicate = errors.New("store: duplicate record")
	// ErrVersionConflict is returned when an optimistic version check fails.
	ErrVersionConflict = errors.New("store: version conflict")
	// ErrInsufficientStock is returned when a quantity adjustment would go negative.
	ErrInsufficientStock = errors.New("store: insufficient stock")
	// ErrStaleStatus is returned when an order is no longer in the status a
	// transition expected.
	ErrStaleStatus = errors.New("store: order status changed")
)

// Store is the entry point to every entity repository.
type Store interface {
	Users() UserRepository
	Products() ProductRepository
	Carts() CartRepository
	Orders() OrderRepository
	OrderItems() OrderItemRepository
	Reviews() ReviewRepository
	Waitlist() WaitlistRepository

	// WithinTx runs fn against a transactional view. Everything fn writes is
	// committed when it returns nil and discarded otherwise.
	WithinTx(ctx context.Context, fn func(tx Store) error) error

	Ping(ctx context.Context) error
	Close() error
}

type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	FindByID(ctx context.Context, id int64) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	List(ctx context.Context) ([]models.User, error)
}

// ProductFilter is an exact-match conjunction; nil fields are ignored.
type ProductFilter struct {
	Category  *string
	SellerID  *int64
	County    *string
	Organic   *bool
	Available *bool
}

// Matches evaluates the filter against a product in memory.
func (f ProductFilter) Matches(p models.Product) bool {
	if f.Category != nil && p.Category != *f.Category {
		return false
	}
	if f.SellerID != nil && p.SellerID != *f.SellerID {
		return false
	}
	if f.County != nil && (p.County == nil || *p.County != *f.County) {
		return false
	}
	if f.Organic != nil && p.Organic != *f.Organic {
		return false
	}
	if f.Available != nil && p.Available != *f.Available {
		return false
	}
	return true
}

// ProductPatch carries a partial update; nil fields are left untouched.
type ProductPatch struct {
	Name        *string
	Description *string
	Category    *string
	Price       *decimal.Decimal
	Quantity    *int
	Unit        *string
	ImageURL    *string
	Available   *bool
	Location    *string
	County      *string
	Organic     *bool
}

// Apply copies the set fields onto p.
func (patch ProductPatch) Apply(p *models.Product) {
	if patch.Name != nil {
		p.Name = *patch.Name
	}
	if patch.Description != nil {
		p.Description = *patch.Description
	}
	if patch.Category != nil {
		p.Category = *patch.Category
	}
	if patch.Price != nil {
		p.Price = *patch.Price
	}
	if patch.Quantity != nil {
		p.Quantity = *patch.Quantity
	}
	if patch.Unit != nil {
		p.Unit = *patch.Unit
	}
	if patch.ImageURL != nil {
		p.ImageURL = patch.ImageURL
	}
	if patch.Available != nil {
		p.Available = *patch.Available
	}
	if patch.Location != nil {
		p.Location = patch.Location
	}
	if patch.County != nil {
		p.County = patch.County
	}
	if patch.Organic != nil {
		p.Organic = *patch.Organic
	}
}

// Columns returns the column/value map for the set fields.
func (patch ProductPatch) Columns() map[string]any {
	cols := map[string]any{}
	if patch.Name != nil {
		cols["name"] = *patch.Name
	}
	if patch.Description != nil {
		cols["description"] = *patch.Description
	}
	if patch.Category != nil {
		cols["category"] = *patch.Category
	}
	if patch.Price != nil {
		cols["price"] = *patch.Price
	}
	if patch.Quantity != nil {
		cols["quantity"] = *patch.Quantity
	}
	if patch.Unit != nil {
		cols["unit"] = *patch.Unit
	}
	if patch.ImageURL != nil {
		cols["image_url"] = *patch.ImageURL
	}
	if patch.Available != nil {
		cols["available"] = *patch.Available
	}
	if patch.Location != nil {
		cols["location"] = *patch.Location
	}
	if patch.County != nil {
		cols["county"] = *patch.County
	}
	if patch.Organic != nil {
		cols["organic"] = *patch.Organic
	}
	return cols
}

type ProductRepository interface {
	Create(ctx context.Context, product *models.Product) error
	FindByID(ctx context.Context, id int64) (*models.Product, error)
	List(ctx context.Context, filter ProductFilter) ([]models.Product, error)
	Update(ctx context.Context, id int64, patch ProductPatch) (*models.Product, error)
	Delete(ctx context.Context, id int64) error
	// AdjustQuantity adds delta to the stock level, failing with
	// ErrInsufficientStock instead of going below zero.
	AdjustQuantity(ctx context.Context, id int64, delta int) (*models.Product, error)
}

type CartRepository interface {
	FindByUser(ctx context.Context, userID int64) (*models.Cart, error)
	// Save upserts the cart keyed by user id. When expectedVersion is set the
	// stored version must match or ErrVersionConflict is returned.
	Save(ctx context.Context, userID int64, items dbtypes.CartLines, expectedVersion *int) (*models.Cart, error)
}

// OrderFilter is an exact-match conjunction; nil fields are ignored.
type OrderFilter struct {
	BuyerID *int64
	Status  *enums.OrderStatus
	IDs     []int64
}

// Matches evaluates the filter against an order in memory.
func (f OrderFilter) Matches(o models.Order) bool {
	if f.BuyerID != nil && o.BuyerID != *f.BuyerID {
		return false
	}
	if f.Status != nil && o.Status != *f.Status {
		return false
	}
	if f.IDs != nil {
		for _, id := range f.IDs {
			if id == o.ID {
				return true
			}
		}
		return false
	}
	return true
}

type OrderRepository interface {
	Create(ctx context.Context, order *models.Order) error
	FindByID(ctx context.Context, id int64) (*models.Order, error)
	// List returns matching orders newest first.
	List(ctx context.Context, filter OrderFilter) ([]models.Order, error)
	// UpdateStatus moves the order from one status to another. It fails with
	// ErrStaleStatus when the stored status is no longer from.
	UpdateStatus(ctx context.Context, id int64, from, to enums.OrderStatus) (*models.Order, error)
}

type OrderItemRepository interface {
	Create(ctx context.Context, item *models.OrderItem) error
	ListByOrder(ctx context.Context, orderID int64) ([]models.OrderItem, error)
	ListBySeller(ctx context.Context, sellerID int64) ([]models.OrderItem, error)
}

type ReviewRepository interface {
	Create(ctx context.Context, review *models.Review) error
	ListByProduct(ctx context.Context, productID int64) ([]models.Review, error)
}

type WaitlistRepository interface {
	Create(ctx context.Context, entry *models.WaitlistEntry) error
	FindByEmail(ctx context.Context, email string) (*models.WaitlistEntry, error)
	List(ctx context.Context) ([]models.WaitlistEntry, error)
}
