package main

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wallcraft/storefront-backend/api/routes"
	"github.com/wallcraft/storefront-backend/internal/cart"
	"github.com/wallcraft/storefront-backend/internal/catalog"
	"github.com/wallcraft/storefront-backend/internal/checkout"
	"github.com/wallcraft/storefront-backend/internal/coupons"
	"github.com/wallcraft/storefront-backend/internal/fulfillment"
	"github.com/wallcraft/storefront-backend/internal/notifications"
	"github.com/wallcraft/storefront-backend/internal/orders"
	"github.com/wallcraft/storefront-backend/internal/payments"
	"github.com/wallcraft/storefront-backend/internal/pricing"
	"github.com/wallcraft/storefront-backend/internal/shipment"
	stripewebhook "github.com/wallcraft/storefront-backend/internal/webhooks/stripe"
	"github.com/wallcraft/storefront-backend/internal/wishlist"
	"github.com/wallcraft/storefront-backend/pkg/config"
	"github.com/wallcraft/storefront-backend/pkg/db"
	"github.com/wallcraft/storefront-backend/pkg/logger"
	"github.com/wallcraft/storefront-backend/pkg/metrics"
	"github.com/wallcraft/storefront-backend/pkg/outbox"
	"github.com/wallcraft/storefront-backend/pkg/redis"
	pkgstripe "github.com/wallcraft/storefront-backend/pkg/stripe"
)

// buildDependencies assembles every service the router dispatches to.
// Interface fields are only assigned from non-nil values.
func buildDependencies(ctx context.Context, cfg *config.Config, logg *logger.Logger, dbClient *db.Client, redisClient *redis.Client) (routes.Dependencies, error) {
	gormDB := dbClient.DB()
	checkoutMetrics := metrics.NewCheckoutMetrics(prometheus.DefaultRegisterer)

	catalogRepo := catalog.NewRepository(gormDB)
	catalogSvc, err := catalog.NewService(catalogRepo)
	if err != nil {
		return routes.Dependencies{}, fmt.Errorf("catalog service: %w", err)
	}
	calculator, err := pricing.NewCalculator(cfg.Checkout.ShippingFee, cfg.Checkout.Tax)
	if err != nil {
		return routes.Dependencies{}, fmt.Errorf("pricing calculator: %w", err)
	}

	guestStore, err := cart.NewGuestStore(redisClient, cfg.Checkout.GuestSessionTTL)
	if err != nil {
		return routes.Dependencies{}, fmt.Errorf("guest cart store: %w", err)
	}
	cartSvc, err := cart.NewService(cart.ServiceParams{
		Repo:       cart.NewRepository(gormDB),
		Guests:     guestStore,
		Pricer:     catalogSvc,
		Calculator: calculator,
		Tx:         dbClient,
	})
	if err != nil {
		return routes.Dependencies{}, fmt.Errorf("cart service: %w", err)
	}

	couponSvc, err := coupons.NewService(coupons.NewRepository(gormDB))
	if err != nil {
		return routes.Dependencies{}, fmt.Errorf("coupon service: %w", err)
	}

	outboxSvc := outbox.NewService(outbox.NewRepository(gormDB), logg)
	orderRepo := orders.NewRepository(gormDB)
	orderSvc, err := orders.NewService(orderRepo, dbClient, outboxSvc)
	if err != nil {
		return routes.Dependencies{}, fmt.Errorf("order service: %w", err)
	}

	var stripeClient *pkgstripe.Client
	if cfg.Payment().Provider == config.PaymentProviderStripe || cfg.Stripe.APIKey != "" {
		stripeClient, err = pkgstripe.NewClient(ctx, cfg.Stripe, logg)
		if err != nil {
			return routes.Dependencies{}, fmt.Errorf("stripe client: %w", err)
		}
	}
	gateway, err := payments.NewGateway(cfg.Payment(), stripeClient)
	if err != nil {
		return routes.Dependencies{}, fmt.Errorf("payment gateway: %w", err)
	}

	shipments := shipment.NewClient(cfg.Shiprocket)
	dispatcher := notifications.NewDispatcher(
		notifications.NewEmailSender(cfg.SMTP, logg),
		notifications.NewLogMessenger(logg),
		cfg.SMTP.AdminEmail,
		logg,
	)

	fulfillmentRepo := fulfillment.NewRepository(gormDB)
	processor, err := fulfillment.NewProcessor(fulfillment.ProcessorParams{
		Repo:           fulfillmentRepo,
		Orders:         orderRepo,
		Tx:             dbClient,
		Shipments:      shipments,
		Notifier:       dispatcher,
		Cart:           cartSvc,
		Outbox:         outboxSvc,
		Config:         cfg.Fulfillment,
		PickupLocation: cfg.Shiprocket.PickupLocation,
		Metrics:        checkoutMetrics,
		Logger:         logg,
	})
	if err != nil {
		return routes.Dependencies{}, fmt.Errorf("fulfillment processor: %w", err)
	}

	checkoutSvc, err := checkout.NewService(checkout.ServiceParams{
		Tx:           dbClient,
		Orders:       orderRepo,
		Cart:         cartSvc,
		Pricer:       catalogSvc,
		Coupons:      couponSvc,
		Gateway:      gateway,
		Fulfillments: processor,
		Progress:     fulfillmentRepo,
		Outbox:       outboxSvc,
		Calculator:   calculator,
		Currency:     cfg.Checkout.Currency,
		Metrics:      checkoutMetrics,
		Logger:       logg,
	})
	if err != nil {
		return routes.Dependencies{}, fmt.Errorf("checkout service: %w", err)
	}

	wishlistSvc, err := wishlist.NewService(wishlist.NewRepository(gormDB), catalogRepo)
	if err != nil {
		return routes.Dependencies{}, fmt.Errorf("wishlist service: %w", err)
	}

	deps := routes.Dependencies{
		DB:          dbClient,
		Redis:       redisClient,
		Store:       redisClient,
		Cart:        cartSvc,
		Coupons:     couponSvc,
		Checkout:    checkoutSvc,
		Orders:      orderSvc,
		Fulfillment: processor,
		Wishlist:    wishlistSvc,
		Payments:    gateway,
		Shipments:   shipments,
		Notifier:    dispatcher,
		Metrics:     promhttp.Handler(),
		CORSOrigins: cfg.App.CORSOrigins,
	}

	if stripeClient != nil {
		webhookSvc, err := stripewebhook.NewService(stripewebhook.ServiceParams{
			Checkout: checkoutSvc,
			Logger:   logg,
		})
		if err != nil {
			return routes.Dependencies{}, fmt.Errorf("stripe webhook service: %w", err)
		}
		guard, err := stripewebhook.NewEventGuard(redisClient, cfg.Checkout.IdempotencyTTL)
		if err != nil {
			return routes.Dependencies{}, fmt.Errorf("stripe event guard: %w", err)
		}
		deps.StripeWebhook = webhookSvc
		deps.StripeVerifier = stripeClient
		deps.StripeGuard = guard
	}

	return deps, nil
}
