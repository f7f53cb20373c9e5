package config

// EnvPrefix scopes envconfig lookups. Every field also declares its full
// variable name so unprefixed names like SHIPROCKET_TOKEN resolve directly.
const EnvPrefix = "STOREFRONT"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	PaymentProviderRazorpay = "razorpay"
	PaymentProviderStripe   = "stripe"
)

const (
	EnvAppEnv    = "STOREFRONT_APP_ENV"
	EnvPort      = "STOREFRONT_APP_PORT"
	EnvDBDSN     = "STOREFRONT_DB_DSN"
	EnvDBHost    = "STOREFRONT_DB_HOST"
	EnvDBUser    = "STOREFRONT_DB_USER"
	EnvDBName    = "STOREFRONT_DB_NAME"
	EnvRedisURL  = "STOREFRONT_REDIS_URL"
	EnvJWTSecret = "STOREFRONT_JWT_SECRET"
	EnvUseSQLite = "STOREFRONT_USE_SQLITE"

	EnvPaymentProvider = "STOREFRONT_PAYMENT_PROVIDER"

	EnvShiprocketEmail    = "SHIPROCKET_EMAIL"
	EnvShiprocketPassword = "SHIPROCKET_PASSWORD"
	EnvShiprocketToken    = "SHIPROCKET_TOKEN"
	EnvAdminEmail         = "ADMIN_EMAIL"
	EnvSMTPHost           = "SMTP_HOST"
	EnvSMTPPort           = "SMTP_PORT"
	EnvEmailFrom          = "EMAIL_FROM"
	EnvRazorpayKeyID      = "RAZORPAY_KEY_ID"
	EnvAPIBaseURL         = "API_BASE_URL"
)

var dbPartEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
