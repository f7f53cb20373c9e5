package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/wallcraft/storefront-backend/internal/cart"
	"github.com/wallcraft/storefront-backend/internal/catalog"
	"github.com/wallcraft/storefront-backend/internal/cron"
	"github.com/wallcraft/storefront-backend/internal/fulfillment"
	"github.com/wallcraft/storefront-backend/internal/notifications"
	"github.com/wallcraft/storefront-backend/internal/orders"
	"github.com/wallcraft/storefront-backend/internal/pricing"
	"github.com/wallcraft/storefront-backend/internal/shipment"
	"github.com/wallcraft/storefront-backend/pkg/config"
	"github.com/wallcraft/storefront-backend/pkg/db"
	"github.com/wallcraft/storefront-backend/pkg/logger"
	"github.com/wallcraft/storefront-backend/pkg/metrics"
	"github.com/wallcraft/storefront-backend/pkg/outbox"
	"github.com/wallcraft/storefront-backend/pkg/redis"
)

type ServiceParams struct {
	Config     *config.Config
	Logger     *logger.Logger
	DB         *db.Client
	Redis      *redis.Client
	Registerer prometheus.Registerer
}

// Service runs the fulfillment dispatcher and the housekeeping jobs as two
// independently locked schedulers, so a slow expiry sweep never delays
// shipment creation.
type Service struct {
	logg       *logger.Logger
	schedulers []*cron.Service
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Config == nil {
		return nil, errors.New("config is required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if params.DB == nil {
		return nil, errors.New("database client is required")
	}
	if params.Redis == nil {
		return nil, errors.New("redis client is required")
	}

	cfg := params.Config
	logg := params.Logger
	gormDB := params.DB.DB()
	checkoutMetrics := metrics.NewCheckoutMetrics(params.Registerer)
	jobMetrics := metrics.NewJobMetrics(params.Registerer)

	processor, err := buildProcessor(cfg, logg, params.DB, params.Redis, checkoutMetrics)
	if err != nil {
		return nil, err
	}
	fulfillmentJob, err := cron.NewFulfillmentJob(logg, processor)
	if err != nil {
		return nil, fmt.Errorf("fulfillment job: %w", err)
	}

	outboxSvc := outbox.NewService(outbox.NewRepository(gormDB), logg)
	expiryJob, err := cron.NewCheckoutExpiryJob(cron.CheckoutExpiryJobParams{
		Logger:  logg,
		DB:      params.DB,
		Orders:  orders.NewRepository(gormDB),
		Outbox:  outboxSvc,
		Metrics: checkoutMetrics,
		Window:  cfg.Checkout.PaymentWindow,
	})
	if err != nil {
		return nil, fmt.Errorf("checkout expiry job: %w", err)
	}
	retentionJob, err := cron.NewOutboxRetentionJob(cron.OutboxRetentionJobParams{
		Logger:           logg,
		DB:               params.DB,
		Repository:       outbox.NewRepository(gormDB),
		RetentionDays:    cfg.Outbox.RetentionDays,
		TerminalAttempts: cfg.Outbox.MaxAttempts,
	})
	if err != nil {
		return nil, fmt.Errorf("outbox retention job: %w", err)
	}

	fulfillmentScheduler, err := newScheduler(params, jobMetrics, "fulfillment", cfg.Fulfillment.PollInterval, fulfillmentJob)
	if err != nil {
		return nil, err
	}
	housekeepingScheduler, err := newScheduler(params, jobMetrics, "housekeeping", cfg.Fulfillment.HousekeepingInterval, expiryJob, retentionJob)
	if err != nil {
		return nil, err
	}

	return &Service{
		logg:       logg,
		schedulers: []*cron.Service{fulfillmentScheduler, housekeepingScheduler},
	}, nil
}

func newScheduler(params ServiceParams, jobMetrics *metrics.JobMetrics, name string, interval time.Duration, jobs ...cron.Job) (*cron.Service, error) {
	lock, err := cron.NewRedisLock(params.Redis, lockName(params.Config.App.Env, name), 0)
	if err != nil {
		return nil, fmt.Errorf("%s lock: %w", name, err)
	}
	svc, err := cron.NewService(cron.ServiceParams{
		Name:     name,
		Logger:   params.Logger,
		Jobs:     jobs,
		Lock:     lock,
		Metrics:  jobMetrics,
		Interval: interval,
	})
	if err != nil {
		return nil, fmt.Errorf("%s scheduler: %w", name, err)
	}
	return svc, nil
}

// buildProcessor wires the shipment processor with the same collaborators the
// API uses, minus the HTTP-only services.
func buildProcessor(cfg *config.Config, logg *logger.Logger, dbClient *db.Client, redisClient *redis.Client, checkoutMetrics *metrics.CheckoutMetrics) (*fulfillment.Processor, error) {
	gormDB := dbClient.DB()

	catalogSvc, err := catalog.NewService(catalog.NewRepository(gormDB))
	if err != nil {
		return nil, fmt.Errorf("catalog service: %w", err)
	}
	calculator, err := pricing.NewCalculator(cfg.Checkout.ShippingFee, cfg.Checkout.Tax)
	if err != nil {
		return nil, fmt.Errorf("pricing calculator: %w", err)
	}
	guestStore, err := cart.NewGuestStore(redisClient, cfg.Checkout.GuestSessionTTL)
	if err != nil {
		return nil, fmt.Errorf("guest cart store: %w", err)
	}
	cartSvc, err := cart.NewService(cart.ServiceParams{
		Repo:       cart.NewRepository(gormDB),
		Guests:     guestStore,
		Pricer:     catalogSvc,
		Calculator: calculator,
		Tx:         dbClient,
	})
	if err != nil {
		return nil, fmt.Errorf("cart service: %w", err)
	}

	dispatcher := notifications.NewDispatcher(
		notifications.NewEmailSender(cfg.SMTP, logg),
		notifications.NewLogMessenger(logg),
		cfg.SMTP.AdminEmail,
		logg,
	)

	processor, err := fulfillment.NewProcessor(fulfillment.ProcessorParams{
		Repo:           fulfillment.NewRepository(gormDB),
		Orders:         orders.NewRepository(gormDB),
		Tx:             dbClient,
		Shipments:      shipment.NewClient(cfg.Shiprocket),
		Notifier:       dispatcher,
		Cart:           cartSvc,
		Outbox:         outbox.NewService(outbox.NewRepository(gormDB), logg),
		Config:         cfg.Fulfillment,
		PickupLocation: cfg.Shiprocket.PickupLocation,
		Metrics:        checkoutMetrics,
		Logger:         logg,
	})
	if err != nil {
		return nil, fmt.Errorf("fulfillment processor: %w", err)
	}
	return processor, nil
}

// Run blocks until every scheduler exits. The first failure cancels the rest.
func (s *Service) Run(ctx context.Context) error {
	s.logg.Info(s.logg.WithField(ctx, "schedulers", len(s.schedulers)), "starting schedulers")
	group, groupCtx := errgroup.WithContext(ctx)
	for _, scheduler := range s.schedulers {
		group.Go(func() error {
			return scheduler.Run(groupCtx)
		})
	}
	return group.Wait()
}

func lockName(env, scheduler string) string {
	if env == "" {
		env = "local"
	}
	return fmt.Sprintf("worker:%s:%s", env, scheduler)
}
