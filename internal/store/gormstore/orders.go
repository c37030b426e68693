package gormstore

import (
	"context"
	"time"

	"github.com/farmlinker/farmlinker-backend/internal/store"
	"github.com/farmlinker/farmlinker-backend/pkg/db/models"
	"github.com/farmlinker/farmlinker-backend/pkg/enums"
)

type orderRepo struct{ s *Store }

func (r orderRepo) Create(ctx context.Context, order *models.Order) error {
	store.FillOrderDefaults(order)
	return translate(r.s.db(ctx).Create(order).Error)
}

func (r orderRepo) FindByID(ctx context.Context, id int64) (*models.Order, error) {
	var order models.Order
	if err := r.s.db(ctx).Where("id = ?", id).First(&order).Error; err != nil {
		return nil, translate(err)
	}
	return &order, nil
}

func (r orderRepo) List(ctx context.Context, filter store.OrderFilter) ([]models.Order, error) {
	q := r.s.db(ctx).Model(&models.Order{})
	if filter.BuyerID != nil {
		q = q.Where("buyer_id = ?", *filter.BuyerID)
	}
	if filter.Status != nil {
		q = q.Where("status = ?", *filter.Status)
	}
	if filter.IDs != nil {
		if len(filter.IDs) == 0 {
			return []models.Order{}, nil
		}
		q = q.Where("id IN ?", filter.IDs)
	}

	var orders []models.Order
	if err := q.Order("id DESC").Find(&orders).Error; err != nil {
		return nil, translate(err)
	}
	return orders, nil
}

func (r orderRepo) UpdateStatus(ctx context.Context, id int64, from, to enums.OrderStatus) (*models.Order, error) {
	res := r.s.db(ctx).Model(&models.Order{}).Where("id = ? AND status = ?", id, from).Updates(map[string]any{
		"status":     to,
		"updated_at": time.Now().UTC(),
	})
	if res.Error != nil {
		return nil, translate(res.Error)
	}
	if res.RowsAffected == 0 {
		if _, err := r.FindByID(ctx, id); err != nil {
			return nil, err
		}
		return nil, store.ErrStaleStatus
	}
	return r.FindByID(ctx, id)
}

type orderItemRepo struct{ s *Store }

func (r orderItemRepo) Create(ctx context.Context, item *models.OrderItem) error {
	return translate(r.s.db(ctx).Create(item).Error)
}

func (r orderItemRepo) ListByOrder(ctx context.Context, orderID int64) ([]models.OrderItem, error) {
	var items []models.OrderItem
	if err := r.s.db(ctx).Where("order_id = ?", orderID).Order("id ASC").Find(&items).Error; err != nil {
		return nil, translate(err)
	}
	return items, nil
}

func (r orderItemRepo) ListBySeller(ctx context.Context, sellerID int64) ([]models.OrderItem, error) {
	var items []models.OrderItem
	if err := r.s.db(ctx).Where("seller_id = ?", sellerID).Order("id ASC").Find(&items).Error; err != nil {
		return nil, translate(err)
	}
	return items, nil
}
