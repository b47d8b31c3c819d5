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
	Bootstrap     BootstrapConfig
	FeatureFlags  FeatureFlagsConfig
	GCP           GCPConfig
	PubSub        PubSubConfig
	Outbox        OutboxConfig
	Sweep         SweepConfig
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
	Env          string `envconfig:"GRAMSEVA_APP_ENV" required:"true"`
	Port         string `envconfig:"GRAMSEVA_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"GRAMSEVA_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"GRAMSEVA_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"GRAMSEVA_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"GRAMSEVA_DB_DSN"`
	Driver string `envconfig:"GRAMSEVA_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"GRAMSEVA_DB_HOST"`
	LegacyPort     int    `envconfig:"GRAMSEVA_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"GRAMSEVA_DB_USER"`
	LegacyPassword string `envconfig:"GRAMSEVA_DB_PASSWORD"`
	LegacyName     string `envconfig:"GRAMSEVA_DB_NAME"`
	LegacySSLMode  string `envconfig:"GRAMSEVA_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"GRAMSEVA_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"GRAMSEVA_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"GRAMSEVA_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"GRAMSEVA_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"GRAMSEVA_REDIS_URL" required:"true"`
	Address      string        `envconfig:"GRAMSEVA_REDIS_ADDR"`
	Password     string        `envconfig:"GRAMSEVA_REDIS_PASSWORD"`
	DB           int           `envconfig:"GRAMSEVA_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"GRAMSEVA_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"GRAMSEVA_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"GRAMSEVA_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"GRAMSEVA_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"GRAMSEVA_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"GRAMSEVA_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"GRAMSEVA_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"GRAMSEVA_JWT_EXPIRATION_MINUTES" required:"true"`
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"GRAMSEVA_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"GRAMSEVA_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"GRAMSEVA_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"GRAMSEVA_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"GRAMSEVA_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"GRAMSEVA_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"GRAMSEVA_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"GRAMSEVA_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"GRAMSEVA_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"GRAMSEVA_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"GRAMSEVA_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
}

// BootstrapConfig seeds the first admin account on a fresh install. Leaving
// the credentials unset disables seeding.
type BootstrapConfig struct {
	AdminName     string `envconfig:"GRAMSEVA_BOOTSTRAP_ADMIN_NAME"`
	AdminEmail    string `envconfig:"GRAMSEVA_BOOTSTRAP_ADMIN_EMAIL"`
	AdminPassword string `envconfig:"GRAMSEVA_BOOTSTRAP_ADMIN_PASSWORD"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"GRAMSEVA_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"GRAMSEVA_AUTO_MIGRATE" default:"false"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"GRAMSEVA_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"GRAMSEVA_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"GRAMSEVA_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	RequestsTopic             string `envconfig:"GRAMSEVA_PUBSUB_REQUESTS_TOPIC" default:"gs-request-events"`
	RequestsSubscription      string `envconfig:"GRAMSEVA_PUBSUB_REQUESTS_SUBSCRIPTION" default:"gs-request-events-sub"`
	CommissionTopic           string `envconfig:"GRAMSEVA_PUBSUB_COMMISSION_TOPIC" default:"gs-commission-events"`
	CommissionSubscription    string `envconfig:"GRAMSEVA_PUBSUB_COMMISSION_SUBSCRIPTION" default:"gs-commission-events-sub"`
	NotificationTopic         string `envconfig:"GRAMSEVA_PUBSUB_NOTIFICATION_TOPIC" default:"gs-notification-events"`
	NotificationSubscription  string `envconfig:"GRAMSEVA_PUBSUB_NOTIFICATION_SUBSCRIPTION" default:"gs-notification-events-sub"`
}

type OutboxConfig struct {
	BatchSize      int           `envconfig:"GRAMSEVA_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int           `envconfig:"GRAMSEVA_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int           `envconfig:"GRAMSEVA_OUTBOX_MAX_ATTEMPTS" default:"10"`
	IdempotencyTTL time.Duration `envconfig:"GRAMSEVA_OUTBOX_IDEMPOTENCY_TTL" default:"72h"`
}

// SweepConfig drives the cron worker's reconciliation passes.
type SweepConfig struct {
	PendingCreditBatch    int           `envconfig:"GRAMSEVA_SWEEP_PENDING_CREDIT_BATCH" default:"100"`
	PendingCreditInterval time.Duration `envconfig:"GRAMSEVA_SWEEP_PENDING_CREDIT_INTERVAL" default:"5m"`
	StuckRequestAge       time.Duration `envconfig:"GRAMSEVA_SWEEP_STUCK_REQUEST_AGE" default:"72h"`
	StuckRequestInterval  time.Duration `envconfig:"GRAMSEVA_SWEEP_STUCK_REQUEST_INTERVAL" default:"1h"`
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
