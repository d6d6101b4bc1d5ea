package routes

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bowenSteve/kipsunya-biz/api/controllers"
	"github.com/bowenSteve/kipsunya-biz/api/middleware"
	cartsvc "github.com/bowenSteve/kipsunya-biz/internal/cart"
	"github.com/bowenSteve/kipsunya-biz/internal/catalog"
	checkoutsvc "github.com/bowenSteve/kipsunya-biz/internal/checkout"
	"github.com/bowenSteve/kipsunya-biz/internal/identity"
	"github.com/bowenSteve/kipsunya-biz/internal/notify"
	ordersvc "github.com/bowenSteve/kipsunya-biz/internal/orders"
	refundsvc "github.com/bowenSteve/kipsunya-biz/internal/refunds"
	"github.com/bowenSteve/kipsunya-biz/pkg/config"
	"github.com/bowenSteve/kipsunya-biz/pkg/db"
	"github.com/bowenSteve/kipsunya-biz/pkg/enums"
	"github.com/bowenSteve/kipsunya-biz/pkg/logger"
	"github.com/bowenSteve/kipsunya-biz/pkg/redis"
)

// Deps bundles everything the router mounts.
type Deps struct {
	Config   *config.Config
	Logger   *logger.Logger
	DB       *db.Client
	Redis    *redis.Client
	Registry *prometheus.Registry

	Identity identity.Service
	Catalog  catalog.Service
	Cart     cartsvc.Service
	Checkout checkoutsvc.Service
	Orders   ordersvc.Service
	Refunds  refundsvc.Service
	Notify   notify.Service
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.HTTP.AllowedOrigins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, deps.DB, deps.Redis))
	})

	if deps.Registry != nil {
		r.Handle("/metrics", promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(
			middleware.RateLimit("register", 5, time.Minute, deps.Redis, logg),
			middleware.Idempotency(deps.Redis, logg),
		).Post("/register", controllers.AuthRegister(deps.Identity, logg))
		r.With(middleware.RateLimit("login", 10, time.Minute, deps.Redis, logg)).
			Post("/login", controllers.AuthLogin(deps.Identity, logg))
		r.With(middleware.Auth(cfg.JWT, logg)).Get("/me", controllers.AuthMe(deps.Identity, logg))
	})

	r.Route("/api/v1/products", func(r chi.Router) {
		r.Get("/", controllers.ProductList(deps.Catalog, logg))
		r.Get("/{productId}", controllers.ProductDetail(deps.Catalog, logg))
	})

	// Cart works for both logged-in accounts and anonymous sessions.
	r.Route("/api/v1/cart", func(r chi.Router) {
		r.Use(middleware.OptionalAuth(cfg.JWT, logg))
		r.Get("/", controllers.CartFetch(deps.Cart, logg))
		r.Post("/items", controllers.CartAddItem(deps.Cart, logg))
		r.Put("/items/{productId}", controllers.CartUpdateItem(deps.Cart, logg))
		r.Delete("/items/{productId}", controllers.CartRemoveItem(deps.Cart, logg))
		r.Delete("/", controllers.CartClear(deps.Cart, logg))
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(deps.Redis, logg))

		r.Post("/api/v1/cart/merge", controllers.CartMerge(deps.Cart, logg))

		r.Route("/api/v1/saved-items", func(r chi.Router) {
			r.Get("/", controllers.SavedItemList(deps.Cart, logg))
			r.Post("/{productId}", controllers.SaveForLater(deps.Cart, logg))
			r.Post("/{productId}/move-to-cart", controllers.MoveSavedToCart(deps.Cart, logg))
			r.Delete("/{productId}", controllers.RemoveSavedItem(deps.Cart, logg))
		})

		r.Post("/api/v1/checkout", controllers.Checkout(deps.Checkout, logg))

		r.Route("/api/v1/orders", func(r chi.Router) {
			r.Get("/", controllers.OrderList(deps.Orders, logg))
			r.With(middleware.RequireRole(enums.UserRoleAdmin, logg)).
				Post("/bulk-status", controllers.OrderBulkChangeStatus(deps.Orders, logg))
			r.Get("/{orderId}", controllers.OrderDetail(deps.Orders, logg))
			r.Get("/{orderId}/history", controllers.OrderHistory(deps.Orders, logg))
			r.Post("/{orderId}/status", controllers.OrderChangeStatus(deps.Orders, logg))
			r.Post("/{orderId}/refunds", controllers.RefundRequest(deps.Refunds, logg))
		})

		r.Route("/api/v1/refunds", func(r chi.Router) {
			r.Get("/", controllers.RefundList(deps.Refunds, logg))
			r.Get("/{refundId}", controllers.RefundDetail(deps.Refunds, logg))
			r.Post("/{refundId}/status", controllers.RefundProcess(deps.Refunds, logg))
		})

		r.With(middleware.RequireRole(enums.UserRoleVendor, logg)).
			Get("/api/v1/vendor/summary", controllers.VendorOrderSummary(deps.Orders, logg))

		r.Route("/api/v1/notifications", func(r chi.Router) {
			r.Get("/", controllers.ListNotifications(deps.Notify, logg))
			r.Get("/unread-count", controllers.UnreadNotificationCount(deps.Notify, logg))
			r.Post("/{notificationId}/read", controllers.MarkNotificationRead(deps.Notify, logg))
			r.Post("/read-all", controllers.MarkAllNotificationsRead(deps.Notify, logg))
		})
	})

	return r
}
