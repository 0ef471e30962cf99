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
	PIN           PINConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	Eventing      EventingConfig
	GCP           GCPConfig
	PubSub        PubSubConfig
	Mail          MailConfig
	Outbox        OutboxConfig
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
	Env          string `envconfig:"PUMPLINK_APP_ENV" required:"true"`
	Port         string `envconfig:"PUMPLINK_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"PUMPLINK_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"PUMPLINK_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"PUMPLINK_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"PUMPLINK_DB_DSN"`
	Driver string `envconfig:"PUMPLINK_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"PUMPLINK_DB_HOST"`
	LegacyPort     int    `envconfig:"PUMPLINK_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"PUMPLINK_DB_USER"`
	LegacyPassword string `envconfig:"PUMPLINK_DB_PASSWORD"`
	LegacyName     string `envconfig:"PUMPLINK_DB_NAME"`
	LegacySSLMode  string `envconfig:"PUMPLINK_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"PUMPLINK_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"PUMPLINK_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"PUMPLINK_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"PUMPLINK_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"PUMPLINK_REDIS_URL" required:"true"`
	Address      string        `envconfig:"PUMPLINK_REDIS_ADDR"`
	Password     string        `envconfig:"PUMPLINK_REDIS_PASSWORD"`
	DB           int           `envconfig:"PUMPLINK_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"PUMPLINK_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"PUMPLINK_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"PUMPLINK_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"PUMPLINK_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"PUMPLINK_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"PUMPLINK_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"PUMPLINK_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"PUMPLINK_JWT_EXPIRATION_MINUTES" default:"720"`
}

// Expiration returns the access token lifetime.
func (j JWTConfig) Expiration() time.Duration {
	if j.ExpirationMinutes <= 0 {
		return 0
	}
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

// PINConfig holds the Argon2id parameters used to hash login PINs.
type PINConfig struct {
	ArgonMemoryKB    int `envconfig:"PUMPLINK_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"PUMPLINK_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"PUMPLINK_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"PUMPLINK_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"PUMPLINK_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow     time.Duration `envconfig:"PUMPLINK_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginPhoneLimit int           `envconfig:"PUMPLINK_AUTH_RATE_LIMIT_LOGIN_PHONE_LIMIT" default:"5"`
	LoginIPLimit    int           `envconfig:"PUMPLINK_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"PUMPLINK_AUTO_MIGRATE" default:"false"`
}

type EventingConfig struct {
	OutboxIdempotencyTTL time.Duration `envconfig:"PUMPLINK_EVENTING_IDEMPOTENCY_TTL" default:"720h"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"PUMPLINK_GCP_PROJECT_ID" required:"true"`
	CredentialsJSON        string `envconfig:"PUMPLINK_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"PUMPLINK_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	CustodyTopic        string `envconfig:"PUMPLINK_PUBSUB_CUSTODY_TOPIC" default:"pl-custody-events"`
	CustodySubscription string `envconfig:"PUMPLINK_PUBSUB_CUSTODY_SUBSCRIPTION" required:"true"`
}

type MailConfig struct {
	Host     string `envconfig:"PUMPLINK_SMTP_HOST"`
	Port     int    `envconfig:"PUMPLINK_SMTP_PORT" default:"587"`
	Username string `envconfig:"PUMPLINK_SMTP_USERNAME"`
	Password string `envconfig:"PUMPLINK_SMTP_PASSWORD"`
	From     string `envconfig:"PUMPLINK_SMTP_FROM"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"PUMPLINK_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"PUMPLINK_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"PUMPLINK_OUTBOX_MAX_ATTEMPTS" default:"10"`
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
