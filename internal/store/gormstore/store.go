// Package gormstore implements store.Store on GORM, backed by postgres in
// production and sqlite for local development and tests.
package gormstore

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/farmlinker/farmlinker-backend/internal/store"
	"github.com/farmlinker/farmlinker-backend/pkg/db"
	"github.com/farmlinker/farmlinker-backend/pkg/db/models"
)

// Store is a store.Store over a GORM connection. A Store produced by WithinTx
// is bound to the open transaction.
type Store struct {
	conn   *gorm.DB
	client *db.Client
}

var _ store.Store = (*Store)(nil)

// New builds a Store from a database client.
func New(client *db.Client) (*Store, error) {
	if client == nil {
		return nil, fmt.Errorf("database client required")
	}
	return &Store{conn: client.DB(), client: client}, nil
}

// AutoMigrate creates or updates the schema from the models. Used for sqlite,
// where goose migrations (written for postgres) do not apply.
func AutoMigrate(ctx context.Context, conn *gorm.DB) error {
	if err := conn.WithContext(ctx).AutoMigrate(models.All()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}

func (s *Store) db(ctx context.Context) *gorm.DB {
	return s.conn.WithContext(ctx)
}

func (s *Store) inTx() bool {
	return s.client == nil
}

func (s *Store) Users() store.UserRepository           { return userRepo{s} }
func (s *Store) Products() store.ProductRepository     { return productRepo{s} }
func (s *Store) Carts() store.CartRepository           { return cartRepo{s} }
func (s *Store) Orders() store.OrderRepository         { return orderRepo{s} }
func (s *Store) OrderItems() store.OrderItemRepository { return orderItemRepo{s} }
func (s *Store) Reviews() store.ReviewRepository       { return reviewRepo{s} }
func (s *Store) Waitlist() store.WaitlistRepository    { return waitlistRepo{s} }

// WithinTx runs fn in a database transaction. Nested calls join the outer one.
func (s *Store) WithinTx(ctx context.Context, fn func(tx store.Store) error) error {
	if s.inTx() {
		return fn(s)
	}
	return s.client.WithTx(ctx, func(tx *gorm.DB) error {
		return fn(&Store{conn: tx})
	})
}

func (s *Store) Ping(ctx context.Context) error {
	if s.client == nil {
		return nil
	}
	return s.client.Ping(ctx)
}

func (s *Store) Close() error {
	if s.client == nil {
		return nil
	}
	return s.client.Close()
}

// translate maps driver and GORM errors onto the store sentinels, keeping the
// original error in the chain for diagnostics.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return store.ErrNotFound
	case db.IsUniqueViolation(err):
		return fmt.Errorf("%w: %w", store.ErrDuplicate, err)
	}
	return err
}
