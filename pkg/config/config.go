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
	Service       ServiceConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	Billing       BillingConfig
	GCP           GCPConfig
	PubSub        PubSubConfig
	Outbox        OutboxConfig
	Cron          CronConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"WATTLY_APP_ENV" required:"true"`
	Port         string `envconfig:"WATTLY_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"WATTLY_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"WATTLY_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"WATTLY_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"WATTLY_DB_DSN"`
	Driver string `envconfig:"WATTLY_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"WATTLY_DB_HOST"`
	LegacyPort     int    `envconfig:"WATTLY_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"WATTLY_DB_USER"`
	LegacyPassword string `envconfig:"WATTLY_DB_PASSWORD"`
	LegacyName     string `envconfig:"WATTLY_DB_NAME"`
	LegacySSLMode  string `envconfig:"WATTLY_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"WATTLY_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"WATTLY_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"WATTLY_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"WATTLY_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"WATTLY_REDIS_URL" required:"true"`
	Address      string        `envconfig:"WATTLY_REDIS_ADDR"`
	Password     string        `envconfig:"WATTLY_REDIS_PASSWORD"`
	DB           int           `envconfig:"WATTLY_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"WATTLY_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"WATTLY_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"WATTLY_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"WATTLY_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"WATTLY_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"WATTLY_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"WATTLY_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"WATTLY_JWT_EXPIRATION_MINUTES" required:"true"`
	RefreshTTLHours   int    `envconfig:"WATTLY_JWT_REFRESH_TTL_HOURS" default:"720"`
}

// RefreshTokenTTL returns the refresh token lifetime.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	return time.Duration(j.RefreshTTLHours) * time.Hour
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"WATTLY_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"WATTLY_ARGON_TIME" default:"1"`
	ArgonParallelism int `envconfig:"WATTLY_ARGON_PARALLELISM" default:"4"`
	ArgonSaltLen     int `envconfig:"WATTLY_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"WATTLY_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"WATTLY_AUTH_RL_LOGIN_WINDOW" default:"5m"`
	LoginIPLimit       int           `envconfig:"WATTLY_AUTH_RL_LOGIN_IP_LIMIT" default:"30"`
	LoginEmailLimit    int           `envconfig:"WATTLY_AUTH_RL_LOGIN_EMAIL_LIMIT" default:"10"`
	RegisterWindow     time.Duration `envconfig:"WATTLY_AUTH_RL_REGISTER_WINDOW" default:"1h"`
	RegisterIPLimit    int           `envconfig:"WATTLY_AUTH_RL_REGISTER_IP_LIMIT" default:"10"`
	RegisterEmailLimit int           `envconfig:"WATTLY_AUTH_RL_REGISTER_EMAIL_LIMIT" default:"3"`
}

type CronConfig struct {
	Interval time.Duration `envconfig:"WATTLY_CRON_INTERVAL" default:"24h"`
	LockTTL  time.Duration `envconfig:"WATTLY_CRON_LOCK_TTL" default:"23h"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"WATTLY_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"WATTLY_AUTO_MIGRATE" default:"false"`
}

// BillingConfig carries the platform billing knobs. Rates travel as decimal
// strings so env round-trips never introduce binary float drift.
type BillingConfig struct {
	PlatformRatePerKwh     string `envconfig:"WATTLY_PLATFORM_RATE_PER_KWH" default:"0.015"`
	PlatformMonthlyMinimum string `envconfig:"WATTLY_PLATFORM_MONTHLY_MINIMUM" default:"25.00"`
	PlatformVATPercent     string `envconfig:"WATTLY_PLATFORM_VAT_PERCENT" default:"8.1"`
	PlatformPaymentDays    int    `envconfig:"WATTLY_PLATFORM_PAYMENT_TERM_DAYS" default:"30"`
	DefaultPaymentDays     int    `envconfig:"WATTLY_DEFAULT_PAYMENT_TERM_DAYS" default:"30"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"WATTLY_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"WATTLY_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"WATTLY_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	DocumentTopic        string `envconfig:"WATTLY_PUBSUB_DOCUMENT_TOPIC" default:"wattly-document-events"`
	DocumentSubscription string `envconfig:"WATTLY_PUBSUB_DOCUMENT_SUBSCRIPTION"`
	DomainTopic          string `envconfig:"WATTLY_PUBSUB_DOMAIN_TOPIC" default:"wattly-domain-events"`
	DomainSubscription   string `envconfig:"WATTLY_PUBSUB_DOMAIN_SUBSCRIPTION"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"WATTLY_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"WATTLY_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"WATTLY_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

func (db *DBConfig) ensureDSN() error {
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
