package gormstore

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/farmlinker/farmlinker-backend/internal/store"
	"github.com/farmlinker/farmlinker-backend/pkg/db/models"
)

type productRepo struct{ s *Store }

func (r productRepo) Create(ctx context.Context, product *models.Product) error {
	return translate(r.s.db(ctx).Create(product).Error)
}

func (r productRepo) FindByID(ctx context.Context, id int64) (*models.Product, error) {
	var product models.Product
	if err := r.s.db(ctx).Where("id = ?", id).First(&product).Error; err != nil {
		return nil, translate(err)
	}
	return &product, nil
}

func (r productRepo) List(ctx context.Context, filter store.ProductFilter) ([]models.Product, error) {
	q := r.s.db(ctx).Model(&models.Product{})
	if filter.Category != nil {
		q = q.Where("category = ?", *filter.Category)
	}
	if filter.SellerID != nil {
		q = q.Where("seller_id = ?", *filter.SellerID)
	}
	if filter.County != nil {
		q = q.Where("county = ?", *filter.County)
	}
	if filter.Organic != nil {
		q = q.Where("organic = ?", *filter.Organic)
	}
	if filter.Available != nil {
		q = q.Where("available = ?", *filter.Available)
	}

	var products []models.Product
	if err := q.Order("id ASC").Find(&products).Error; err != nil {
		return nil, translate(err)
	}
	return products, nil
}

func (r productRepo) Update(ctx context.Context, id int64, patch store.ProductPatch) (*models.Product, error) {
	cols := patch.Columns()
	cols["updated_at"] = time.Now().UTC()

	res := r.s.db(ctx).Model(&models.Product{}).Where("id = ?", id).Updates(cols)
	if res.Error != nil {
		return nil, translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, store.ErrNotFound
	}
	return r.FindByID(ctx, id)
}

func (r productRepo) Delete(ctx context.Context, id int64) error {
	return r.s.db(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("product_id = ?", id).Delete(&models.Review{}).Error; err != nil {
			return translate(err)
		}
		res := tx.Where("id = ?", id).Delete(&models.Product{})
		if res.Error != nil {
			return translate(res.Error)
		}
		if res.RowsAffected == 0 {
			return store.ErrNotFound
		}
		return nil
	})
}

func (r productRepo) AdjustQuantity(ctx context.Context, id int64, delta int) (*models.Product, error) {
	res := r.s.db(ctx).
		Model(&models.Product{}).
		Where("id = ? AND quantity + ? >= 0", id, delta).
		Updates(map[string]any{
			"quantity":   gorm.Expr("quantity + ?", delta),
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return nil, translate(res.Error)
	}
	if res.RowsAffected == 0 {
		if _, err := r.FindByID(ctx, id); err != nil {
			return nil, err
		}
		return nil, store.ErrInsufficientStock
	}
	return r.FindByID(ctx, id)
}
