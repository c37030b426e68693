package config

const EnvPrefix = "FARMLINKER"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DBDriverPostgres = "postgres"
	DBDriverSQLite   = "sqlite"
	DefaultSQLiteDSN = "file:farmlinker.db?_foreign_keys=on"

	AuthModeBearer = "bearer"
	AuthModeHeader = "header"
)

const (
	EnvAppEnv      = "FARMLINKER_APP_ENV"
	EnvPort        = "FARMLINKER_APP_PORT"
	EnvLogLevel    = "FARMLINKER_LOG_LEVEL"
	EnvDBDSN       = "FARMLINKER_DB_DSN"
	EnvDBDriver    = "FARMLINKER_DB_DRIVER"
	EnvDBHost      = "FARMLINKER_DB_HOST"
	EnvDBUser      = "FARMLINKER_DB_USER"
	EnvDBName      = "FARMLINKER_DB_NAME"
	EnvRedisURL    = "FARMLINKER_REDIS_URL"
	EnvJWTSecret   = "FARMLINKER_JWT_SECRET"
	EnvJWTIssuer   = "FARMLINKER_JWT_ISSUER"
	EnvJWTExpMins  = "FARMLINKER_JWT_EXPIRATION_MINUTES"
	EnvAuthMode    = "FARMLINKER_AUTH_MODE"
	EnvMemoryStore = "FARMLINKER_USE_MEMORY_STORE"
	EnvCORSOrigins = "FARMLINKER_CORS_ORIGINS"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
