package gormstore

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/farmlinker/farmlinker-backend/internal/store"
	"github.com/farmlinker/farmlinker-backend/pkg/db/models"
	dbtypes "github.com/farmlinker/farmlinker-backend/pkg/db/types"
)

type cartRepo struct{ s *Store }

func (r cartRepo) FindByUser(ctx context.Context, userID int64) (*models.Cart, error) {
	var cart models.Cart
	if err := r.s.db(ctx).Where("user_id = ?", userID).First(&cart).Error; err != nil {
		return nil, translate(err)
	}
	return &cart, nil
}

func (r cartRepo) Save(ctx context.Context, userID int64, items dbtypes.CartLines, expectedVersion *int) (*models.Cart, error) {
	if items == nil {
		items = dbtypes.CartLines{}
	}

	updated, err := r.bump(ctx, userID, items, expectedVersion)
	if err != nil {
		return nil, err
	}
	if updated {
		return r.FindByUser(ctx, userID)
	}
	if expectedVersion != nil && *expectedVersion != 0 {
		return nil, store.ErrVersionConflict
	}

	cart := &models.Cart{UserID: userID, Items: items, Version: 1}
	err = translate(r.s.db(ctx).Create(cart).Error)
	if err == nil {
		return cart, nil
	}
	if !errors.Is(err, store.ErrDuplicate) {
		return nil, err
	}
	if expectedVersion != nil {
		return nil, store.ErrVersionConflict
	}

	// Lost the insert race against a concurrent first save; last writer wins.
	if updated, err = r.bump(ctx, userID, items, nil); err != nil {
		return nil, err
	}
	if !updated {
		return nil, store.ErrVersionConflict
	}
	return r.FindByUser(ctx, userID)
}

func (r cartRepo) bump(ctx context.Context, userID int64, items dbtypes.CartLines, expectedVersion *int) (bool, error) {
	q := r.s.db(ctx).Model(&models.Cart{}).Where("user_id = ?", userID)
	if expectedVersion != nil {
		q = q.Where("version = ?", *expectedVersion)
	}
	res := q.Updates(map[string]any{
		"items":      items,
		"version":    gorm.Expr("version + 1"),
		"updated_at": time.Now().UTC(),
	})
	if res.Error != nil {
		return false, translate(res.Error)
	}
	return res.RowsAffected > 0, nil
}
