package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/wallcraft/storefront-backend/api/controllers"
	webhookcontrollers "github.com/wallcraft/storefront-backend/api/controllers/webhooks"
	"github.com/wallcraft/storefront-backend/api/middleware"
	"github.com/wallcraft/storefront-backend/internal/cart"
	"github.com/wallcraft/storefront-backend/internal/checkout"
	"github.com/wallcraft/storefront-backend/internal/coupons"
	"github.com/wallcraft/storefront-backend/internal/orders"
	"github.com/wallcraft/storefront-backend/internal/payments"
	"github.com/wallcraft/storefront-backend/internal/wishlist"
	"github.com/wallcraft/storefront-backend/pkg/config"
	"github.com/wallcraft/storefront-backend/pkg/enums"
	"github.com/wallcraft/storefront-backend/pkg/logger"
)

// Store backs idempotency replay and rate limiting.
type Store interface {
	middleware.ReplayStore
	IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error)
}

// Dependencies are the services the HTTP surface dispatches to. Nil services
// answer 500 rather than panicking.
type Dependencies struct {
	DB    controllers.Pinger
	Redis controllers.Pinger
	Store Store

	Cart        cart.Service
	Coupons     coupons.Service
	Checkout    checkout.Service
	Orders      orders.Service
	Fulfillment controllers.FulfillmentRetrier
	Wishlist    wishlist.Service
	Payments    payments.Gateway
	Shipments   controllers.ShipmentGateway
	Notifier    controllers.TrackingNotifier

	StripeWebhook  webhookcontrollers.StripeWebhookService
	StripeVerifier webhookcontrollers.StripeVerifier
	StripeGuard    webhookcontrollers.StripeEventGuard

	Metrics     http.Handler
	CORSOrigins []string
}

func NewRouter(cfg *config.Config, logg *logger.Logger, deps Dependencies) http.Handler {
	r := chi.NewRouter()
	r.Use(
		chimw.RealIP,
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.Recoverer(logg),
		middleware.CORS(deps.CORSOrigins...),
	)

	couponPolicy := middleware.NewRateLimitPolicy(
		"coupon_validate",
		cfg.RateLimit.Window,
		cfg.RateLimit.CouponIPLimit,
		cfg.RateLimit.CouponOwnerLimit,
	)
	checkoutPolicy := middleware.NewRateLimitPolicy(
		"checkout_start",
		cfg.RateLimit.Window,
		cfg.RateLimit.CheckoutIPLimit,
		cfg.RateLimit.CheckoutOwnerLimit,
	)
	secureCookies := cfg.App.IsProd()

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, map[string]controllers.Pinger{
			"db":    deps.DB,
			"redis": deps.Redis,
		}, logg))
	})
	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics)
	}

	r.Post("/api/webhooks/stripe", webhookcontrollers.StripeWebhook(deps.StripeWebhook, deps.StripeVerifier, deps.StripeGuard, logg))

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.OptionalAuth(cfg.JWT, logg))
		r.Use(middleware.GuestSession(cfg.Checkout.GuestSessionTTL, secureCookies, logg))
		r.Use(middleware.Idempotency(deps.Store, cfg.Checkout.IdempotencyTTL, logg))

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", controllers.CartList(deps.Cart, logg))
			r.Post("/add", controllers.CartAdd(deps.Cart, logg))
			r.Put("/update", controllers.CartUpdate(deps.Cart, logg))
			r.Delete("/remove", controllers.CartRemove(deps.Cart, logg))
			r.Delete("/clear", controllers.CartClear(deps.Cart, logg))
			r.Post("/merge", controllers.CartMerge(deps.Cart, secureCookies, logg))
		})

		r.With(middleware.RateLimit(couponPolicy, deps.Store, logg)).
			Get("/coupons/validate", controllers.CouponValidate(deps.Coupons, logg))

		r.Route("/checkout", func(r chi.Router) {
			r.With(middleware.RateLimit(checkoutPolicy, deps.Store, logg)).
				Post("/", controllers.CheckoutStart(deps.Checkout, logg))
			r.Get("/{orderId}", controllers.CheckoutStatus(deps.Checkout, logg))
			r.Post("/{orderId}/confirm", controllers.CheckoutConfirm(deps.Checkout, logg))
			r.Post("/{orderId}/cancel", controllers.CheckoutCancel(deps.Checkout, logg))
		})

		r.Post("/payment/create-order", controllers.PaymentCreateOrder(deps.Payments, logg))

		r.Route("/shiprocket", func(r chi.Router) {
			r.Post("/auth", controllers.ShiprocketAuth(deps.Shipments, logg))
			r.Post("/create-order", controllers.ShiprocketCreateOrder(deps.Shipments, logg))
			r.Get("/track-order", controllers.ShiprocketTrackOrder(deps.Shipments, deps.Notifier, logg))
		})

		r.Route("/wishlist", func(r chi.Router) {
			r.Get("/", controllers.WishlistList(deps.Wishlist, logg))
			r.Post("/", controllers.WishlistAdd(deps.Wishlist, logg))
			r.Delete("/{productId}", controllers.WishlistRemove(deps.Wishlist, logg))
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, logg))
			r.Use(middleware.RequireRole(string(enums.UserRoleAdmin), logg))

			r.Get("/orders", controllers.AdminOrderList(deps.Orders, logg))
			r.Patch("/orders/{orderId}/status", controllers.AdminOrderStatus(deps.Orders, logg))
			r.Post("/fulfillments/{paymentId}/retry", controllers.AdminFulfillmentRetry(deps.Fulfillment, logg))

			r.Route("/coupons", func(r chi.Router) {
				r.Get("/", controllers.AdminCouponList(deps.Coupons, logg))
				r.Post("/", controllers.AdminCouponCreate(deps.Coupons, logg))
				r.Delete("/{code}", controllers.AdminCouponDelete(deps.Coupons, logg))
			})
		})
	})

	return r
}
