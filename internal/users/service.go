package users

import (
	"context"
	"errors"
	"fmt"

	"github.com/farmlinker/farmlinker-backend/internal/store"
	pkgerrors "github.com/farmlinker/farmlinker-backend/pkg/errors"
)

// Service exposes account lookups.
type Service interface {
	Me(ctx context.Context, userID int64) (*UserDTO, error)
}

type service struct {
	store store.Store
}

// NewService builds a users service backed by the given store.
func NewService(st store.Store) (Service, error) {
	if st == nil {
		return nil, fmt.Errorf("store is required")
	}
	return &service{store: st}, nil
}

func (s *service) Me(ctx context.Context, userID int64) (*UserDTO, error) {
	user, err := s.store.Users().FindByID(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load user")
	}
	return FromModel(user), nil
}
