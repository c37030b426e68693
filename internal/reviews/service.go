package reviews

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/farmlinker/farmlinker-backend/internal/store"
	"github.com/farmlinker/farmlinker-backend/pkg/db/models"
	pkgerrors "github.com/farmlinker/farmlinker-backend/pkg/errors"
)

const (
	minRating = 1
	maxRating = 5
)

// Service manages product reviews.
type Service interface {
	Create(ctx context.Context, userID, productID int64, req CreateReviewRequest) (*ReviewDTO, error)
	List(ctx context.Context, productID int64) ([]ReviewDTO, error)
}

type service struct {
	store store.Store
}

func NewService(st store.Store) (Service, error) {
	if st == nil {
		return nil, fmt.Errorf("store is required")
	}
	return &service{store: st}, nil
}

// Create stores a review. A user may review the same product more than once.
func (s *service) Create(ctx context.Context, userID, productID int64, req CreateReviewRequest) (*ReviewDTO, error) {
	if req.Rating < minRating || req.Rating > maxRating {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "rating must be between %d and %d", minRating, maxRating)
	}
	if err := s.requireProduct(ctx, productID); err != nil {
		return nil, err
	}

	review := &models.Review{
		ProductID: productID,
		UserID:    userID,
		Rating:    req.Rating,
		Comment:   trimmed(req.Comment),
	}
	if err := s.store.Reviews().Create(ctx, review); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create review")
	}
	dto := FromModel(review)
	return &dto, nil
}

func (s *service) List(ctx context.Context, productID int64) ([]ReviewDTO, error) {
	if err := s.requireProduct(ctx, productID); err != nil {
		return nil, err
	}
	list, err := s.store.Reviews().ListByProduct(ctx, productID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list reviews")
	}
	out := make([]ReviewDTO, 0, len(list))
	for i := range list {
		out = append(out, FromModel(&list[i]))
	}
	return out, nil
}

func (s *service) requireProduct(ctx context.Context, productID int64) error {
	_, err := s.store.Products().FindByID(ctx, productID)
	if errors.Is(err, store.ErrNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load product")
	}
	return nil
}

func trimmed(value *string) *string {
	if value == nil {
		return nil
	}
	v := strings.TrimSpace(*value)
	if v == "" {
		return nil
	}
	return &v
}
