package config

const EnvPrefix = "storefront"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv         = "STOREFRONT_APP_ENV"
	EnvLogLevel       = "STOREFRONT_LOG_LEVEL"
	EnvDBPath         = "STOREFRONT_DB_PATH"
	EnvCatalogBaseURL = "STOREFRONT_CATALOG_BASE_URL"
	EnvStoreBaseURL   = "STOREFRONT_STORE_BASE_URL"
	EnvAPITimeout     = "STOREFRONT_API_TIMEOUT"
	EnvAutoMigrate    = "STOREFRONT_AUTO_MIGRATE"
)
