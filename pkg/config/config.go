package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App           AppConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	Auth          AuthConfig
	Cron          CronConfig
	FeatureFlags  FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Auth.validate(); err != nil {
		return nil, err
	}
	if cfg.FeatureFlags.UseMemoryStore {
		return &cfg, nil
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env             string        `envconfig:"FARMLINKER_APP_ENV" required:"true"`
	Port            string        `envconfig:"FARMLINKER_APP_PORT" default:"5000"`
	LogLevel        string        `envconfig:"FARMLINKER_LOG_LEVEL" default:"info"`
	LogFormat       string        `envconfig:"FARMLINKER_LOG_FORMAT" default:"json"`
	LogWarnStack    bool          `envconfig:"FARMLINKER_LOG_WARN_STACK" default:"false"`
	RequestTimeout  time.Duration `envconfig:"FARMLINKER_REQUEST_TIMEOUT" default:"15s"`
	ShutdownTimeout time.Duration `envconfig:"FARMLINKER_SHUTDOWN_TIMEOUT" default:"10s"`
	CORSOrigins     []string      `envconfig:"FARMLINKER_CORS_ORIGINS" default:"http://localhost:3000,http://localhost:8081"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"FARMLINKER_DB_DSN"`
	Driver string `envconfig:"FARMLINKER_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"FARMLINKER_DB_HOST"`
	LegacyPort     int    `envconfig:"FARMLINKER_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"FARMLINKER_DB_USER"`
	LegacyPassword string `envconfig:"FARMLINKER_DB_PASSWORD"`
	LegacyName     string `envconfig:"FARMLINKER_DB_NAME"`
	LegacySSLMode  string `envconfig:"FARMLINKER_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"FARMLINKER_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"FARMLINKER_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"FARMLINKER_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"FARMLINKER_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

// IsSQLite reports whether the SQLite driver is selected.
func (db DBConfig) IsSQLite() bool {
	return strings.EqualFold(strings.TrimSpace(db.Driver), DBDriverSQLite)
}

// RedisConfig is optional; rate limiting and idempotency are skipped without it.
type RedisConfig struct {
	URL          string        `envconfig:"FARMLINKER_REDIS_URL"`
	Address      string        `envconfig:"FARMLINKER_REDIS_ADDR"`
	Password     string        `envconfig:"FARMLINKER_REDIS_PASSWORD"`
	DB           int           `envconfig:"FARMLINKER_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"FARMLINKER_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"FARMLINKER_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"FARMLINKER_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"FARMLINKER_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"FARMLINKER_REDIS_WRITE_TIMEOUT" default:"5s"`

	IdempotencyTTL time.Duration `envconfig:"FARMLINKER_IDEMPOTENCY_TTL" default:"24h"`
}

// Enabled reports whether any redis endpoint is configured.
func (r RedisConfig) Enabled() bool {
	return strings.TrimSpace(r.URL) != "" || strings.TrimSpace(r.Address) != ""
}

type JWTConfig struct {
	Secret            string `envconfig:"FARMLINKER_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"FARMLINKER_JWT_ISSUER" default:"farmlinker"`
	ExpirationMinutes int    `envconfig:"FARMLINKER_JWT_EXPIRATION_MINUTES" default:"1440"`
}

// TTL returns the access token lifetime.
func (j JWTConfig) TTL() time.Duration {
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"FARMLINKER_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"FARMLINKER_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"FARMLINKER_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"FARMLINKER_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"FARMLINKER_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"FARMLINKER_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"FARMLINKER_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"FARMLINKER_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"FARMLINKER_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"FARMLINKER_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"FARMLINKER_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
}

// AuthConfig selects how request identity is resolved.
type AuthConfig struct {
	Mode string `envconfig:"FARMLINKER_AUTH_MODE" default:"bearer"`
}

// HeaderMode reports whether the X-User-Id development stand-in is active.
func (a AuthConfig) HeaderMode() bool {
	return strings.EqualFold(strings.TrimSpace(a.Mode), AuthModeHeader)
}

func (a AuthConfig) validate() error {
	switch strings.ToLower(strings.TrimSpace(a.Mode)) {
	case AuthModeBearer, AuthModeHeader:
		return nil
	}
	return fmt.Errorf("%s must be %q or %q, got %q", EnvAuthMode, AuthModeBearer, AuthModeHeader, a.Mode)
}

// CronConfig drives the scheduled jobs. InProcess runs them inside the api
// binary, which is the only option with the in-memory store.
type CronConfig struct {
	Interval        time.Duration `envconfig:"FARMLINKER_CRON_INTERVAL" default:"1h"`
	PendingOrderTTL time.Duration `envconfig:"FARMLINKER_PENDING_ORDER_TTL" default:"168h"`
	LockTTL         time.Duration `envconfig:"FARMLINKER_CRON_LOCK_TTL" default:"30m"`
	InProcess       bool          `envconfig:"FARMLINKER_CRON_IN_PROCESS" default:"false"`
}

type FeatureFlagsConfig struct {
	AutoMigrate    bool `envconfig:"FARMLINKER_AUTO_MIGRATE" default:"false"`
	SeedSampleData bool `envconfig:"FARMLINKER_SEED_SAMPLE_DATA" default:"false"`
	UseMemoryStore bool `envconfig:"FARMLINKER_USE_MEMORY_STORE" default:"false"`
}

func (db *DBConfig) ensureDSN() error {
	switch strings.ToLower(strings.TrimSpace(db.Driver)) {
	case DBDriverPostgres:
	case DBDriverSQLite:
		if db.DSN == "" {
			db.DSN = DefaultSQLiteDSN
		}
		return nil
	default:
		return fmt.Errorf("%s must be %q or %q, got %q", EnvDBDriver, DBDriverPostgres, DBDriverSQLite, db.Driver)
	}

	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
