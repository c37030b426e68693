// Package memstore is an in-process store.Store. All reads and writes are
// serialized by one mutex; WithinTx works on a cloned snapshot that replaces
// the live state only when the callback succeeds.
package memstore

import (
	"context"
	"sync"
	"time"

	"github.com/farmlinker/farmlinker-backend/internal/store"
	"github.com/farmlinker/farmlinker-backend/pkg/db/models"
)

type sequences struct {
	user      int64
	product   int64
	cart      int64
	order     int64
	orderItem int64
	review    int64
	waitlist  int64
}

type memoryState struct {
	users      map[int64]models.User
	products   map[int64]models.Product
	carts      map[int64]models.Cart // keyed by user id
	orders     map[int64]models.Order
	orderItems map[int64]models.OrderItem
	reviews    map[int64]models.Review
	waitlist   map[int64]models.WaitlistEntry
	seq        sequences
}

func newMemoryState() memoryState {
	return memoryState{
		users:      map[int64]models.User{},
		products:   map[int64]models.Product{},
		carts:      map[int64]models.Cart{},
		orders:     map[int64]models.Order{},
		orderItems: map[int64]models.OrderItem{},
		reviews:    map[int64]models.Review{},
		waitlist:   map[int64]models.WaitlistEntry{},
	}
}

func (s memoryState) clone() memoryState {
	out := newMemoryState()
	for k, v := range s.users {
		out.users[k] = v
	}
	for k, v := range s.products {
		out.products[k] = v
	}
	for k, v := range s.carts {
		v.Items = v.Items.Clone()
		out.carts[k] = v
	}
	for k, v := range s.orders {
		out.orders[k] = v
	}
	for k, v := range s.orderItems {
		out.orderItems[k] = v
	}
	for k, v := range s.reviews {
		out.reviews[k] = v
	}
	for k, v := range s.waitlist {
		out.waitlist[k] = v
	}
	out.seq = s.seq
	return out
}

// Store is the in-memory store.Store.
type Store struct {
	mu    sync.Mutex
	state memoryState
	nowFn func() time.Time
}

var _ store.Store = (*Store)(nil)

// Option customizes a Store.
type Option func(*Store)

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.nowFn = now
		}
	}
}

// New returns an empty store.
func New(opts ...Option) *Store {
	s := &Store{
		state: newMemoryState(),
		nowFn: func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// view binds the repositories to a state. The root view takes the store lock
// per call; a transactional view runs while WithinTx already holds it.
type view struct {
	store *Store
	state *memoryState
	inTx  bool
}

func (s *Store) root() *view {
	return &view{store: s, state: &s.state}
}

func (v *view) run(fn func(st *memoryState) error) error {
	if !v.inTx {
		v.store.mu.Lock()
		defer v.store.mu.Unlock()
	}
	return fn(v.state)
}

func (v *view) now() time.Time {
	return v.store.nowFn()
}

func (s *Store) Users() store.UserRepository           { return userRepo{s.root()} }
func (s *Store) Products() store.ProductRepository     { return productRepo{s.root()} }
func (s *Store) Carts() store.CartRepository           { return cartRepo{s.root()} }
func (s *Store) Orders() store.OrderRepository         { return orderRepo{s.root()} }
func (s *Store) OrderItems() store.OrderItemRepository { return orderItemRepo{s.root()} }
func (s *Store) Reviews() store.ReviewRepository       { return reviewRepo{s.root()} }
func (s *Store) Waitlist() store.WaitlistRepository    { return waitlistRepo{s.root()} }

func (s *Store) WithinTx(ctx context.Context, fn func(tx store.Store) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.state.clone()
	tx := &txStore{view: &view{store: s, state: &snapshot, inTx: true}}
	if err := fn(tx); err != nil {
		return err
	}
	s.state = snapshot
	return nil
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() error { return nil }

// txStore exposes a transactional view through the store.Store interface.
type txStore struct {
	view *view
}

func (t *txStore) Users() store.UserRepository           { return userRepo{t.view} }
func (t *txStore) Products() store.ProductRepository     { return productRepo{t.view} }
func (t *txStore) Carts() store.CartRepository           { return cartRepo{t.view} }
func (t *txStore) Orders() store.OrderRepository         { return orderRepo{t.view} }
func (t *txStore) OrderItems() store.OrderItemRepository { return orderItemRepo{t.view} }
func (t *txStore) Reviews() store.ReviewRepository       { return reviewRepo{t.view} }
func (t *txStore) Waitlist() store.WaitlistRepository    { return waitlistRepo{t.view} }

// WithinTx joins the enclosing transaction.
func (t *txStore) WithinTx(_ context.Context, fn func(tx store.Store) error) error {
	return fn(t)
}

func (t *txStore) Ping(context.Context) error { return nil }

func (t *txStore) Close() error { return nil }
