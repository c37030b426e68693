package gormstore

import (
	"context"

	"github.com/farmlinker/farmlinker-backend/pkg/db/models"
)

type reviewRepo struct{ s *Store }

func (r reviewRepo) Create(ctx context.Context, review *models.Review) error {
	return translate(r.s.db(ctx).Create(review).Error)
}

func (r reviewRepo) ListByProduct(ctx context.Context, productID int64) ([]models.Review, error) {
	var reviews []models.Review
	if err := r.s.db(ctx).Where("product_id = ?", productID).Order("id ASC").Find(&reviews).Error; err != nil {
		return nil, translate(err)
	}
	return reviews, nil
}

type waitlistRepo struct{ s *Store }

func (r waitlistRepo) Create(ctx context.Context, entry *models.WaitlistEntry) error {
	return translate(r.s.db(ctx).Create(entry).Error)
}

func (r waitlistRepo) FindByEmail(ctx context.Context, email string) (*models.WaitlistEntry, error) {
	var entry models.WaitlistEntry
	if err := r.s.db(ctx).Where("email = ?", email).First(&entry).Error; err != nil {
		return nil, translate(err)
	}
	return &entry, nil
}

func (r waitlistRepo) List(ctx context.Context) ([]models.WaitlistEntry, error) {
	var entries []models.WaitlistEntry
	if err := r.s.db(ctx).Order("id ASC").Find(&entries).Error; err != nil {
		return nil, translate(err)
	}
	return entries, nil
}
