package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lightbikeshop/storefront-backend/api/controllers"
	"github.com/lightbikeshop/storefront-backend/api/middleware"
	"github.com/lightbikeshop/storefront-backend/internal/catalog"
	checkoutsvc "github.com/lightbikeshop/storefront-backend/internal/checkout"
	"github.com/lightbikeshop/storefront-backend/internal/orders"
	"github.com/lightbikeshop/storefront-backend/internal/promo"
	"github.com/lightbikeshop/storefront-backend/internal/users"
	"github.com/lightbikeshop/storefront-backend/pkg/config"
	"github.com/lightbikeshop/storefront-backend/pkg/db"
	"github.com/lightbikeshop/storefront-backend/pkg/logger"
	"github.com/lightbikeshop/storefront-backend/pkg/metrics"
	"github.com/lightbikeshop/storefront-backend/pkg/redis"
)

// Deps bundles everything the router wires into handlers.
type Deps struct {
	Config          *config.Config
	Logger          *logger.Logger
	DB              *db.Client
	Redis           *redis.Client
	Gatherer        prometheus.Gatherer
	CartResolver    *controllers.CartResolver
	CatalogRepo     catalog.Repository
	PromoRepo       promo.Repository
	UsersService    users.Service
	OrdersService   orders.Service
	CheckoutService checkoutsvc.Service
	CheckoutMetrics *metrics.CheckoutMetrics
}

func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(d.Logger),
		middleware.RequestID(d.Logger),
		middleware.Logging(d.Logger),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(d.Config))
		r.Get("/ready", controllers.HealthReady(d.Config, d.Logger, d.DB, d.Redis))
	})

	if d.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", controllers.AuthRegister(d.UsersService, d.Logger))
			r.Post("/login", controllers.AuthLogin(d.UsersService, d.Logger))
			r.With(middleware.Auth(d.Config.JWT, d.Logger)).Get("/me", controllers.AuthMe(d.UsersService, d.Logger))
		})

		r.Get("/catalog/variants", controllers.CatalogList(d.CatalogRepo, d.Logger))

		// cart and checkout serve guests and signed-in shoppers alike
		r.Group(func(r chi.Router) {
			r.Use(middleware.OptionalAuth(d.Config.JWT, d.Logger))
			r.Use(middleware.Session(d.Logger))

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", controllers.CartFetch(d.CartResolver, d.Logger))
				r.Post("/lines", controllers.CartAddLine(d.CartResolver, d.Logger))
				r.Delete("/lines", controllers.CartRemoveLine(d.CartResolver, d.Logger))
				r.Post("/promo", controllers.CartApplyPromo(d.CartResolver, d.PromoRepo, d.CheckoutMetrics, d.Logger))
				r.Delete("/promo", controllers.CartRemovePromo(d.CartResolver, d.Logger))
			})

			r.Post("/checkout", controllers.Checkout(d.CheckoutService, d.CartResolver, d.Logger))
			r.Get("/orders/{code}", controllers.OrderDetail(d.OrdersService, d.Logger))
		})

		r.With(middleware.Auth(d.Config.JWT, d.Logger)).Get("/orders", controllers.OrdersList(d.OrdersService, d.Logger))
	})

	return r
}
