package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/farmlinker/farmlinker-backend/internal/store"
	pkgerrors "github.com/farmlinker/farmlinker-backend/pkg/errors"
)

// Service manages each user's single cart.
type Service interface {
	Get(ctx context.Context, userID int64) (*CartDTO, error)
	Update(ctx context.Context, userID int64, req UpdateCartRequest) (*CartDTO, error)
}

type service struct {
	store store.Store
}

// NewService builds a cart service backed by the given store.
func NewService(st store.Store) (Service, error) {
	if st == nil {
		return nil, fmt.Errorf("store is required")
	}
	return &service{store: st}, nil
}

func (s *service) Get(ctx context.Context, userID int64) (*CartDTO, error) {
	record, err := s.store.Carts().FindByUser(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return emptyCart(userID), nil
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart")
	}
	return FromModel(record), nil
}

// Update overwrites the cart. Every line must reference an available product
// with enough stock, and a product may appear only once.
func (s *service) Update(ctx context.Context, userID int64, req UpdateCartRequest) (*CartDTO, error) {
	if err := s.validateItems(ctx, req.Items); err != nil {
		return nil, err
	}

	record, err := s.store.Carts().Save(ctx, userID, toLines(req.Items), req.Version)
	if errors.Is(err, store.ErrVersionConflict) {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "cart was modified by another request").
			WithDetails(map[string]any{"version": req.Version})
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "save cart")
	}
	return FromModel(record), nil
}

func (s *service) validateItems(ctx context.Context, items []CartItem) error {
	seen := make(map[int64]struct{}, len(items))
	for i, item := range items {
		if item.Quantity <= 0 {
			return invalidItem(i, item, "quantity must be positive")
		}
		if _, dup := seen[item.ProductID]; dup {
			return invalidItem(i, item, "product listed more than once")
		}
		seen[item.ProductID] = struct{}{}

		product, err := s.store.Products().FindByID(ctx, item.ProductID)
		if errors.Is(err, store.ErrNotFound) {
			return invalidItem(i, item, "product does not exist")
		}
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load product")
		}
		if !product.Available {
			return invalidItem(i, item, "product is not available")
		}
		if item.Quantity > product.Quantity {
			return invalidItem(i, item, "quantity exceeds available stock").
				WithDetails(map[string]any{"index": i, "product_id": item.ProductID, "available": product.Quantity})
		}
	}
	return nil
}

func invalidItem(index int, item CartItem, reason string) *pkgerrors.Error {
	return pkgerrors.New(pkgerrors.CodeInvalidItem, reason).
		WithDetails(map[string]any{"index": index, "product_id": item.ProductID})
}
