package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/farmlinker/farmlinker-backend/api/controllers"
	"github.com/farmlinker/farmlinker-backend/api/middleware"
	"github.com/farmlinker/farmlinker-backend/api/responses"
	"github.com/farmlinker/farmlinker-backend/internal/store"
	"github.com/farmlinker/farmlinker-backend/pkg/config"
	pkgerrors "github.com/farmlinker/farmlinker-backend/pkg/errors"
	"github.com/farmlinker/farmlinker-backend/pkg/logger"
	"github.com/farmlinker/farmlinker-backend/pkg/metrics"
	"github.com/farmlinker/farmlinker-backend/pkg/redis"
)

// RouterParams carries the router dependencies. Redis, Registry and
// HTTPMetrics are optional.
type RouterParams struct {
	Config      *config.Config
	Logger      *logger.Logger
	Store       store.Store
	Redis       *redis.Client
	Registry    *prometheus.Registry
	HTTPMetrics *metrics.HTTPMetrics
	Services    Services
}

func NewRouter(p RouterParams) http.Handler {
	cfg, logg, svc := p.Config, p.Logger, p.Services

	// a nil *redis.Client must not reach the middleware as a non-nil interface
	var (
		limiter     redis.RateLimiter
		idempotency redis.IdempotencyStore
		redisPinger controllers.Pinger
	)
	if p.Redis != nil {
		limiter, idempotency, redisPinger = p.Redis, p.Redis, p.Redis
	}
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)
	if p.HTTPMetrics != nil {
		r.Use(middleware.Metrics(p.HTTPMetrics))
	}
	r.Use(middleware.CORS(cfg.App.CORSOrigins))
	if cfg.App.RequestTimeout > 0 {
		r.Use(chimiddleware.Timeout(cfg.App.RequestTimeout))
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		responses.WriteError(r.Context(), nil, w, pkgerrors.New(pkgerrors.CodeNotFound, "route not found"))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusMethodNotAllowed)
	})

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, map[string]controllers.Pinger{
			"store": p.Store,
			"redis": redisPinger,
		}))
	})
	if p.Registry != nil {
		r.Handle("/metrics", promhttp.HandlerFor(p.Registry, promhttp.HandlerOpts{}))
	}

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterEmailLimit,
	)
	authenticate := middleware.Authenticate(middleware.NewIdentityResolver(cfg), p.Store.Users(), logg)

	r.Route("/api", func(r chi.Router) {
		register := controllers.AuthRegister(svc.Auth, logg)
		login := controllers.AuthLogin(svc.Auth, logg)
		for _, prefix := range []string{"", "/auth"} {
			r.With(middleware.AuthRateLimit(registerPolicy, limiter, logg)).Post(prefix+"/register", register)
			r.With(middleware.AuthRateLimit(loginPolicy, limiter, logg)).Post(prefix+"/login", login)
		}

		r.Get("/products", controllers.ProductsList(svc.Products, logg))
		r.Get("/products/seller/{sellerId}", controllers.ProductsBySeller(svc.Products, logg))
		r.Get("/products/{id}", controllers.ProductsGet(svc.Products, logg))
		r.Get("/products/{id}/reviews", controllers.ReviewsList(svc.Reviews, logg))

		r.Get("/waitlist", controllers.WaitlistList(svc.Waitlist, logg))
		r.Post("/waitlist", controllers.WaitlistJoin(svc.Waitlist, logg))

		r.Group(func(r chi.Router) {
			r.Use(authenticate)

			r.Get("/users/me", controllers.UsersMe(svc.Users, logg))

			r.Get("/cart", controllers.CartGet(svc.Cart, logg))
			r.Post("/cart", controllers.CartUpdate(svc.Cart, logg))
			r.Put("/cart", controllers.CartUpdate(svc.Cart, logg))

			r.Get("/orders", controllers.OrdersList(svc.Orders, logg))
			r.With(middleware.Idempotency(idempotency, p.Config.Redis.IdempotencyTTL, logg)).Post("/orders", controllers.OrdersCreate(svc.Orders, logg))
			r.Get("/orders/{id}", controllers.OrdersGet(svc.Orders, logg))
			r.Patch("/orders/{id}/status", controllers.OrdersUpdateStatus(svc.Orders, logg))

			r.Post("/products/{id}/reviews", controllers.ReviewsCreate(svc.Reviews, logg))

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireSeller(logg))

				r.Post("/products", controllers.ProductsCreate(svc.Products, logg))
				r.Patch("/products/{id}", controllers.ProductsUpdate(svc.Products, logg))
				r.Put("/products/{id}", controllers.ProductsUpdate(svc.Products, logg))
				r.Delete("/products/{id}", controllers.ProductsDelete(svc.Products, logg))
				r.Get("/seller/orders", controllers.SellerOrders(svc.Orders, logg))
			})
		})
	})

	return r
}
