package products

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/farmlinker/farmlinker-backend/internal/store"
	"github.com/farmlinker/farmlinker-backend/pkg/db/models"
	pkgerrors "github.com/farmlinker/farmlinker-backend/pkg/errors"
)

const productNotFoundMessage = "product not found"

// Service exposes product catalog operations.
type Service interface {
	Create(ctx context.Context, sellerID int64, req CreateProductRequest) (*ProductDTO, error)
	Get(ctx context.Context, id int64) (*ProductDTO, error)
	List(ctx context.Context, params ListParams) ([]ProductDTO, error)
	ListBySeller(ctx context.Context, sellerID int64) ([]ProductDTO, error)
	Update(ctx context.Context, actorID, id int64, req UpdateProductRequest) (*ProductDTO, error)
	Delete(ctx context.Context, actorID, id int64) error
}

type service struct {
	store store.Store
}

// NewService builds a product service backed by the given store.
func NewService(st store.Store) (Service, error) {
	if st == nil {
		return nil, fmt.Errorf("store is required")
	}
	return &service{store: st}, nil
}

func (s *service) Create(ctx context.Context, sellerID int64, req CreateProductRequest) (*ProductDTO, error) {
	seller, err := s.store.Users().FindByID(ctx, sellerID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "seller account not found")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load seller")
	}
	if !seller.Role.CanSell() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "seller role required")
	}

	if err := validateCreate(req); err != nil {
		return nil, err
	}

	product := &models.Product{
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		Category:    normalizeTag(req.Category),
		Price:       req.Price,
		Quantity:    req.Quantity,
		Unit:        strings.TrimSpace(req.Unit),
		ImageURL:    req.ImageURL,
		SellerID:    seller.ID,
		Available:   true,
		Location:    req.Location,
		County:      normalizeOptionalTag(req.County),
		Organic:     false,
	}
	if req.Available != nil {
		product.Available = *req.Available
	}
	if req.Organic != nil {
		product.Organic = *req.Organic
	}

	if err := s.store.Products().Create(ctx, product); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create product")
	}
	return FromModel(product), nil
}

func (s *service) Get(ctx context.Context, id int64) (*ProductDTO, error) {
	product, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return FromModel(product), nil
}

func (s *service) List(ctx context.Context, params ListParams) ([]ProductDTO, error) {
	filter := store.ProductFilter{
		Category:  normalizeOptionalTag(params.Category),
		SellerID:  params.SellerID,
		County:    normalizeOptionalTag(params.County),
		Organic:   params.Organic,
		Available: params.Available,
	}
	list, err := s.store.Products().List(ctx, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list products")
	}
	return fromModels(list), nil
}

func (s *service) ListBySeller(ctx context.Context, sellerID int64) ([]ProductDTO, error) {
	return s.List(ctx, ListParams{SellerID: &sellerID})
}

func (s *service) Update(ctx context.Context, actorID, id int64, req UpdateProductRequest) (*ProductDTO, error) {
	if _, err := s.loadOwned(ctx, actorID, id); err != nil {
		return nil, err
	}
	if err := validateUpdate(req); err != nil {
		return nil, err
	}

	patch := store.ProductPatch{
		Name:        trimmedPtr(req.Name),
		Description: req.Description,
		Category:    normalizeOptionalTag(req.Category),
		Price:       req.Price,
		Quantity:    req.Quantity,
		Unit:        trimmedPtr(req.Unit),
		ImageURL:    req.ImageURL,
		Available:   req.Available,
		Location:    req.Location,
		County:      normalizeOptionalTag(req.County),
		Organic:     req.Organic,
	}
	updated, err := s.store.Products().Update(ctx, id, patch)
	if errors.Is(err, store.ErrNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, productNotFoundMessage)
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update product")
	}
	return FromModel(updated), nil
}

func (s *service) Delete(ctx context.Context, actorID, id int64) error {
	if _, err := s.loadOwned(ctx, actorID, id); err != nil {
		return err
	}
	err := s.store.Products().Delete(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, productNotFoundMessage)
	}
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete product")
	}
	return nil
}

func (s *service) load(ctx context.Context, id int64) (*models.Product, error) {
	product, err := s.store.Products().FindByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, productNotFoundMessage)
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load product")
	}
	return product, nil
}

// loadOwned resolves existence before ownership so a missing product is
// always NotFound, whoever asks.
func (s *service) loadOwned(ctx context.Context, actorID, id int64) (*models.Product, error) {
	product, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if product.SellerID != actorID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only the owning seller may modify this product")
	}
	return product, nil
}

func validateCreate(req CreateProductRequest) error {
	switch {
	case strings.TrimSpace(req.Name) == "":
		return pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	case strings.TrimSpace(req.Category) == "":
		return pkgerrors.New(pkgerrors.CodeValidation, "category is required")
	case strings.TrimSpace(req.Unit) == "":
		return pkgerrors.New(pkgerrors.CodeValidation, "unit is required")
	case !req.Price.IsPositive():
		return pkgerrors.New(pkgerrors.CodeValidation, "price must be positive")
	case req.Quantity < 0:
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity cannot be negative")
	}
	return nil
}

func validateUpdate(req UpdateProductRequest) error {
	switch {
	case req.Name != nil && strings.TrimSpace(*req.Name) == "":
		return pkgerrors.New(pkgerrors.CodeValidation, "name cannot be blank")
	case req.Category != nil && strings.TrimSpace(*req.Category) == "":
		return pkgerrors.New(pkgerrors.CodeValidation, "category cannot be blank")
	case req.Unit != nil && strings.TrimSpace(*req.Unit) == "":
		return pkgerrors.New(pkgerrors.CodeValidation, "unit cannot be blank")
	case req.Price != nil && !req.Price.IsPositive():
		return pkgerrors.New(pkgerrors.CodeValidation, "price must be positive")
	case req.Quantity != nil && *req.Quantity < 0:
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity cannot be negative")
	}
	return nil
}

func normalizeTag(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

func normalizeOptionalTag(value *string) *string {
	if value == nil {
		return nil
	}
	v := normalizeTag(*value)
	return &v
}

func trimmedPtr(value *string) *string {
	if value == nil {
		return nil
	}
	v := strings.TrimSpace(*value)
	return &v
}
