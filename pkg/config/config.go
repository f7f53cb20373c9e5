package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	FeatureFlags FeatureFlagsConfig
	Checkout     CheckoutConfig
	Shiprocket   ShiprocketConfig
	Razorpay     RazorpayConfig
	Stripe       StripeConfig
	SMTP         SMTPConfig
	Fulfillment  FulfillmentConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
	RateLimit    RateLimitConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(cfg.FeatureFlags.UseSQLite); err != nil {
		return nil, err
	}
	if err := cfg.Payment().validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"STOREFRONT_APP_ENV" required:"true"`
	Port         string `envconfig:"STOREFRONT_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"STOREFRONT_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"STOREFRONT_LOG_WARN_STACK" default:"false"`
	LogFormat    string `envconfig:"STOREFRONT_LOG_FORMAT" default:"json"`
	APIBaseURL   string `envconfig:"API_BASE_URL" default:"http://localhost:8080"`
	// CORSOrigins extends the storefront origins allowed by default.
	CORSOrigins []string `envconfig:"STOREFRONT_CORS_ORIGINS"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"STOREFRONT_DB_DSN"`
	Driver string `envconfig:"STOREFRONT_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"STOREFRONT_DB_HOST"`
	Port     int    `envconfig:"STOREFRONT_DB_PORT" default:"5432"`
	User     string `envconfig:"STOREFRONT_DB_USER"`
	Password string `envconfig:"STOREFRONT_DB_PASSWORD"`
	Name     string `envconfig:"STOREFRONT_DB_NAME"`
	SSLMode  string `envconfig:"STOREFRONT_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"STOREFRONT_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"STOREFRONT_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"STOREFRONT_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"STOREFRONT_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"STOREFRONT_REDIS_URL"`
	Address      string        `envconfig:"STOREFRONT_REDIS_ADDR"`
	Password     string        `envconfig:"STOREFRONT_REDIS_PASSWORD"`
	DB           int           `envconfig:"STOREFRONT_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"STOREFRONT_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"STOREFRONT_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"STOREFRONT_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"STOREFRONT_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"STOREFRONT_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// JWTConfig verifies access tokens minted by the account service.
type JWTConfig struct {
	Secret            string `envconfig:"STOREFRONT_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"STOREFRONT_JWT_ISSUER" default:"storefront"`
	ExpirationMinutes int    `envconfig:"STOREFRONT_JWT_EXPIRATION_MINUTES" default:"60"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"STOREFRONT_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"STOREFRONT_AUTO_MIGRATE" default:"false"`
}

type CheckoutConfig struct {
	ShippingFee     string        `envconfig:"STOREFRONT_CHECKOUT_SHIPPING_FEE" default:"300"`
	Tax             string        `envconfig:"STOREFRONT_CHECKOUT_TAX" default:"50"`
	Currency        string        `envconfig:"STOREFRONT_CHECKOUT_CURRENCY" default:"INR"`
	IdempotencyTTL  time.Duration `envconfig:"STOREFRONT_CHECKOUT_IDEMPOTENCY_TTL" default:"24h"`
	GuestSessionTTL time.Duration `envconfig:"STOREFRONT_GUEST_SESSION_TTL" default:"720h"`
	PaymentProvider string        `envconfig:"STOREFRONT_PAYMENT_PROVIDER" default:"razorpay"`
	// PaymentWindow is how long an order may wait in AwaitingUserPayment
	// before the worker cancels it.
	PaymentWindow time.Duration `envconfig:"STOREFRONT_CHECKOUT_PAYMENT_WINDOW" default:"2h"`
}

type ShiprocketConfig struct {
	Email          string        `envconfig:"SHIPROCKET_EMAIL"`
	Password       string        `envconfig:"SHIPROCKET_PASSWORD"`
	Token          string        `envconfig:"SHIPROCKET_TOKEN"`
	BaseURL        string        `envconfig:"SHIPROCKET_BASE_URL" default:"https://apiv2.shiprocket.in/v1/external"`
	PickupLocation string        `envconfig:"SHIPROCKET_PICKUP_LOCATION" default:"Primary"`
	Timeout        time.Duration `envconfig:"SHIPROCKET_TIMEOUT" default:"20s"`
}

type RazorpayConfig struct {
	KeyID     string        `envconfig:"RAZORPAY_KEY_ID"`
	KeySecret string        `envconfig:"RAZORPAY_KEY_SECRET"`
	BaseURL   string        `envconfig:"RAZORPAY_BASE_URL" default:"https://api.razorpay.com/v1"`
	Timeout   time.Duration `envconfig:"RAZORPAY_TIMEOUT" default:"15s"`
}

type StripeConfig struct {
	APIKey         string `envconfig:"STOREFRONT_STRIPE_API_KEY"`
	WebhookSecret  string `envconfig:"STOREFRONT_STRIPE_WEBHOOK_SECRET"`
	Env            string `envconfig:"STOREFRONT_STRIPE_ENV" default:"test"`
	PublishableKey string `envconfig:"STOREFRONT_STRIPE_PUBLISHABLE_KEY"`
}

// Environment returns the normalized Stripe environment (test/live).
func (s StripeConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "test"
	}
	return env
}

type SMTPConfig struct {
	Host       string        `envconfig:"SMTP_HOST"`
	Port       int           `envconfig:"SMTP_PORT" default:"587"`
	User       string        `envconfig:"SMTP_USER"`
	Pass       string        `envconfig:"SMTP_PASS"`
	From       string        `envconfig:"EMAIL_FROM"`
	AdminEmail string        `envconfig:"ADMIN_EMAIL"`
	Timeout    time.Duration `envconfig:"SMTP_TIMEOUT" default:"15s"`
}

// Enabled reports whether enough SMTP settings exist to deliver mail.
func (s SMTPConfig) Enabled() bool {
	return strings.TrimSpace(s.Host) != "" && strings.TrimSpace(s.From) != ""
}

type FulfillmentConfig struct {
	PollInterval time.Duration `envconfig:"STOREFRONT_FULFILLMENT_POLL_INTERVAL" default:"5s"`
	BatchSize    int           `envconfig:"STOREFRONT_FULFILLMENT_BATCH_SIZE" default:"20"`
	MaxAttempts  int           `envconfig:"STOREFRONT_FULFILLMENT_MAX_ATTEMPTS" default:"8"`
	BaseBackoff  time.Duration `envconfig:"STOREFRONT_FULFILLMENT_BASE_BACKOFF" default:"30s"`
	MaxBackoff   time.Duration `envconfig:"STOREFRONT_FULFILLMENT_MAX_BACKOFF" default:"30m"`
	ClaimTTL     time.Duration `envconfig:"STOREFRONT_FULFILLMENT_CLAIM_TTL" default:"2m"`
	// HousekeepingInterval paces checkout expiry and outbox retention.
	HousekeepingInterval time.Duration `envconfig:"STOREFRONT_HOUSEKEEPING_INTERVAL" default:"1h"`
}

type GCPConfig struct {
	ProjectID       string `envconfig:"STOREFRONT_GCP_PROJECT_ID"`
	CredentialsJSON string `envconfig:"STOREFRONT_GCP_CREDENTIALS_JSON"`
}

type PubSubConfig struct {
	OrdersTopic string `envconfig:"STOREFRONT_PUBSUB_ORDERS_TOPIC" default:"storefront-order-events"`
	// CreateTopics creates missing topics at startup; meant for the emulator.
	CreateTopics bool `envconfig:"STOREFRONT_PUBSUB_CREATE_TOPICS" default:"false"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"STOREFRONT_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"STOREFRONT_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"STOREFRONT_OUTBOX_MAX_ATTEMPTS" default:"10"`
	RetentionDays  int `envconfig:"STOREFRONT_OUTBOX_RETENTION_DAYS" default:"30"`
}

// RateLimitConfig caps request bursts per client IP and per shopper on the
// coupon and checkout endpoints.
type RateLimitConfig struct {
	Window             time.Duration `envconfig:"STOREFRONT_RATE_LIMIT_WINDOW" default:"1m"`
	CouponIPLimit      int           `envconfig:"STOREFRONT_RATE_LIMIT_COUPON_IP" default:"30"`
	CouponOwnerLimit   int           `envconfig:"STOREFRONT_RATE_LIMIT_COUPON_OWNER" default:"10"`
	CheckoutIPLimit    int           `envconfig:"STOREFRONT_RATE_LIMIT_CHECKOUT_IP" default:"20"`
	CheckoutOwnerLimit int           `envconfig:"STOREFRONT_RATE_LIMIT_CHECKOUT_OWNER" default:"5"`
}

// PaymentSettings is the resolved view of the configured payment provider.
type PaymentSettings struct {
	Provider string
	Razorpay RazorpayConfig
	Stripe   StripeConfig
}

func (c *Config) Payment() PaymentSettings {
	provider := strings.ToLower(strings.TrimSpace(c.Checkout.PaymentProvider))
	if provider == "" {
		provider = PaymentProviderRazorpay
	}
	return PaymentSettings{Provider: provider, Razorpay: c.Razorpay, Stripe: c.Stripe}
}

func (p PaymentSettings) validate() error {
	switch p.Provider {
	case PaymentProviderRazorpay, PaymentProviderStripe:
		return nil
	default:
		return fmt.Errorf("unsupported payment provider %q", p.Provider)
	}
}

func (db *DBConfig) ensureDSN(sqlite bool) error {
	if db.DSN != "" {
		return nil
	}
	if sqlite {
		db.DSN = "file:storefront.db?_foreign_keys=on"
		return nil
	}

	missing := []string{}
	values := map[string]string{
		EnvDBHost: db.Host,
		EnvDBUser: db.User,
		EnvDBName: db.Name,
	}
	for _, env := range dbPartEnvVars {
		if values[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.User)
	if db.Password != "" {
		userInfo = url.UserPassword(db.User, db.Password)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.Host, db.Port),
		Path:   db.Name,
	}

	if db.SSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.SSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
