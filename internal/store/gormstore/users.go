package gormstore

import (
	"context"

	"github.com/farmlinker/farmlinker-backend/internal/store"
	"github.com/farmlinker/farmlinker-backend/pkg/db/models"
)

type userRepo struct{ s *Store }

func (r userRepo) Create(ctx context.Context, user *models.User) error {
	store.FillUserDefaults(user)
	return translate(r.s.db(ctx).Create(user).Error)
}

func (r userRepo) FindByID(ctx context.Context, id int64) (*models.User, error) {
	var user models.User
	if err := r.s.db(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (r userRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.s.db(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (r userRepo) List(ctx context.Context) ([]models.User, error) {
	var users []models.User
	if err := r.s.db(ctx).Order("id ASC").Find(&users).Error; err != nil {
		return nil, translate(err)
	}
	return users, nil
}
