package config

// EnvPrefix is passed to envconfig; variable names carry the full WATTLY_
// prefix in their tags, so the process prefix stays empty.
const EnvPrefix = ""

const (
	AppEnvDev  = "dev"
	AppEnvProd = "production"
)

const (
	EnvAppEnv     = "WATTLY_APP_ENV"
	EnvPort       = "WATTLY_APP_PORT"
	EnvDBDSN      = "WATTLY_DB_DSN"
	EnvDBHost     = "WATTLY_DB_HOST"
	EnvDBUser     = "WATTLY_DB_USER"
	EnvDBName     = "WATTLY_DB_NAME"
	EnvRedisURL   = "WATTLY_REDIS_URL"
	EnvJWTSecret  = "WATTLY_JWT_SECRET"
	EnvJWTIssuer  = "WATTLY_JWT_ISSUER"
	EnvJWTExpMins = "WATTLY_JWT_EXPIRATION_MINUTES"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
