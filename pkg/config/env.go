package config

// EnvPrefix is empty because every field carries its full variable name.
const EnvPrefix = ""

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv   = "STOREFRONT_APP_ENV"
	EnvPort     = "STOREFRONT_APP_PORT"
	EnvLogLevel = "STOREFRONT_LOG_LEVEL"

	EnvDBDSN  = "STOREFRONT_DB_DSN"
	EnvDBHost = "STOREFRONT_DB_HOST"
	EnvDBUser = "STOREFRONT_DB_USER"
	EnvDBName = "STOREFRONT_DB_NAME"

	EnvRedisURL = "STOREFRONT_REDIS_URL"

	EnvSurgeMinMultiplier = "STOREFRONT_SURGE_MIN_MULTIPLIER"
	EnvSurgeMaxMultiplier = "STOREFRONT_SURGE_MAX_MULTIPLIER"
	EnvSurgeTTL           = "STOREFRONT_SURGE_TTL"
	EnvSurgeCurve         = "STOREFRONT_SURGE_CURVE"

	EnvCheckoutTaxRate       = "STOREFRONT_CHECKOUT_TAX_RATE"
	EnvCheckoutSubmitTimeout = "STOREFRONT_CHECKOUT_SUBMIT_TIMEOUT"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
