package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/storefront-backend/api/controllers"
	cartcontrollers "github.com/angelmondragon/storefront-backend/api/controllers/cart"
	ordercontrollers "github.com/angelmondragon/storefront-backend/api/controllers/orders"
	"github.com/angelmondragon/storefront-backend/api/middleware"
	"github.com/angelmondragon/storefront-backend/internal/cart"
	checkoutsvc "github.com/angelmondragon/storefront-backend/internal/checkout"
	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/internal/products"
	"github.com/angelmondragon/storefront-backend/internal/promos"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	pkgredis "github.com/angelmondragon/storefront-backend/pkg/redis"
)

// RedisStore is the slice of the redis client the HTTP layer uses.
type RedisStore interface {
	pkgredis.IdempotencyStore
	IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error)
	Ping(ctx context.Context) error
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisStore RedisStore,
	gatherer prometheus.Gatherer,
	productService products.Service,
	cartService cart.Service,
	promoService promos.Service,
	checkoutService checkoutsvc.Service,
	ordersService orders.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.CORS),
	)

	var (
		idempotencyStore pkgredis.IdempotencyStore
		rateStore        interface {
			IncrWithTTL(context.Context, string, time.Duration) (int64, error)
		}
		readiness = map[string]db.Pinger{}
	)
	if dbP != nil {
		readiness["db"] = dbP
	}
	if redisStore != nil {
		idempotencyStore = redisStore
		rateStore = redisStore
		readiness["redis"] = redisStore
	}

	promoPolicy := middleware.NewRateLimitPolicy("promo", cfg.RateLimit.Window, cfg.RateLimit.PromoIPLimit, cfg.RateLimit.PromoCartLimit)
	checkoutPolicy := middleware.NewRateLimitPolicy("checkout", cfg.RateLimit.Window, cfg.RateLimit.CheckoutIPLimit, 0)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, readiness))
	})
	r.Method(http.MethodGet, "/metrics", metrics.Handler(gatherer))

	idempotent := middleware.Idempotency(idempotencyStore, cfg.Idempotency, logg)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/products", controllers.ListProducts(productService, logg))
		r.Get("/products/{productID}", controllers.GetProduct(productService, logg))
		r.Get("/products/slug/{slug}", controllers.GetProductBySlug(productService, logg))
		r.Get("/categories", controllers.ListCategories(productService, logg))
		r.Get("/brands", controllers.ListBrands(productService, logg))

		r.Route("/cart", func(r chi.Router) {
			r.Post("/", cartcontrollers.CartOpen(cartService, logg))
			r.Get("/", cartcontrollers.CartFetch(cartService, logg))
			r.Delete("/", cartcontrollers.CartClear(cartService, logg))
			r.Post("/items", cartcontrollers.CartAddItem(cartService, logg))
			r.Patch("/items/{productID}/{variantID}", cartcontrollers.CartUpdateItem(cartService, logg))
			r.Delete("/items/{productID}/{variantID}", cartcontrollers.CartRemoveItem(cartService, logg))
			r.With(middleware.RateLimit(promoPolicy, rateStore, logg)).Post("/promo", cartcontrollers.CartApplyPromo(cartService, logg))
			r.Delete("/promo", cartcontrollers.CartRemovePromo(cartService, logg))
		})

		r.With(middleware.RateLimit(promoPolicy, rateStore, logg)).Post("/promos/validate", controllers.ValidatePromo(promoService, logg))

		r.Route("/checkout", func(r chi.Router) {
			r.With(middleware.RateLimit(checkoutPolicy, rateStore, logg), idempotent).Post("/", controllers.Checkout(checkoutService, logg))
			r.Post("/validate", controllers.CheckoutValidate(checkoutService, logg))
			r.Post("/preview", controllers.CheckoutPreview(checkoutService, logg))
		})

		r.Get("/orders/track", ordercontrollers.TrackOrder(ordersService, logg))

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.StaffAuth(cfg.JWT, logg))

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(logg, enums.StaffRoleAdmin, enums.StaffRoleFulfillment))
				r.Use(idempotent)
				r.Get("/orders", ordercontrollers.AdminListOrders(ordersService, logg))
				r.Get("/orders/{orderID}", ordercontrollers.AdminGetOrder(ordersService, logg))
				r.Patch("/orders/{orderID}/status", ordercontrollers.AdminSetOrderStatus(ordersService, logg))
			})

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(logg, enums.StaffRoleAdmin))
				r.Use(idempotent)
				r.Post("/products", controllers.AdminCreateProduct(productService, logg))
				r.Patch("/products/variants/{variantID}/stock", controllers.AdminAdjustStock(productService, logg))

				r.Get("/promos", controllers.AdminListPromos(promoService, logg))
				r.Post("/promos", controllers.AdminCreatePromo(promoService, logg))
				r.Get("/promos/stats", controllers.AdminPromoStats(promoService, logg))
				r.Patch("/promos/{promoID}", controllers.AdminUpdatePromo(promoService, logg))
				r.Delete("/promos/{promoID}", controllers.AdminDeactivatePromo(promoService, logg))

				r.Patch("/orders/{orderID}/payment-status", ordercontrollers.AdminSetPaymentStatus(ordersService, logg))
				r.Get("/reports/revenue", ordercontrollers.AdminRevenueReport(ordersService, logg))
			})
		})
	})

	return r
}
