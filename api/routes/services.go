package routes

import (
	"fmt"

	"github.com/farmlinker/farmlinker-backend/internal/auth"
	"github.com/farmlinker/farmlinker-backend/internal/cart"
	"github.com/farmlinker/farmlinker-backend/internal/orders"
	"github.com/farmlinker/farmlinker-backend/internal/products"
	"github.com/farmlinker/farmlinker-backend/internal/reviews"
	"github.com/farmlinker/farmlinker-backend/internal/store"
	"github.com/farmlinker/farmlinker-backend/internal/users"
	"github.com/farmlinker/farmlinker-backend/internal/waitlist"
	"github.com/farmlinker/farmlinker-backend/pkg/config"
	"github.com/farmlinker/farmlinker-backend/pkg/metrics"
)

// Services is every domain service the router serves.
type Services struct {
	Auth     auth.Service
	Users    users.Service
	Products products.Service
	Cart     cart.Service
	Orders   orders.Service
	Reviews  reviews.Service
	Waitlist waitlist.Service
}

// BuildServices wires the domain services onto one store.
func BuildServices(cfg *config.Config, st store.Store, orderMetrics *metrics.OrderMetrics) (Services, error) {
	var (
		svc Services
		err error
	)
	if svc.Auth, err = auth.NewService(auth.ServiceParams{
		Store:          st,
		JWTConfig:      cfg.JWT,
		PasswordConfig: cfg.Password,
	}); err != nil {
		return svc, fmt.Errorf("auth service: %w", err)
	}
	if svc.Users, err = users.NewService(st); err != nil {
		return svc, fmt.Errorf("users service: %w", err)
	}
	if svc.Products, err = products.NewService(st); err != nil {
		return svc, fmt.Errorf("products service: %w", err)
	}
	if svc.Cart, err = cart.NewService(st); err != nil {
		return svc, fmt.Errorf("cart service: %w", err)
	}
	orderParams := orders.ServiceParams{Store: st}
	if orderMetrics != nil {
		orderParams.Metrics = orderMetrics
	}
	if svc.Orders, err = orders.NewService(orderParams); err != nil {
		return svc, fmt.Errorf("orders service: %w", err)
	}
	if svc.Reviews, err = reviews.NewService(st); err != nil {
		return svc, fmt.Errorf("reviews service: %w", err)
	}
	if svc.Waitlist, err = waitlist.NewService(st); err != nil {
		return svc, fmt.Errorf("waitlist service: %w", err)
	}
	return svc, nil
}
