package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	HTTP         HTTPConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Password     PasswordConfig
	Commerce     CommerceConfig
	FeatureFlags FeatureFlagsConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Commerce.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"KIPSUNYA_APP_ENV" required:"true"`
	Port         string `envconfig:"KIPSUNYA_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"KIPSUNYA_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"KIPSUNYA_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"KIPSUNYA_SERVICE_KIND" default:"api"`
}

type HTTPConfig struct {
	AllowedOrigins  []string      `envconfig:"KIPSUNYA_HTTP_ALLOWED_ORIGINS" default:"*"`
	ReadTimeout     time.Duration `envconfig:"KIPSUNYA_HTTP_READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `envconfig:"KIPSUNYA_HTTP_WRITE_TIMEOUT" default:"30s"`
	ShutdownTimeout time.Duration `envconfig:"KIPSUNYA_HTTP_SHUTDOWN_TIMEOUT" default:"10s"`
}

type DBConfig struct {
	DSN    string `envconfig:"KIPSUNYA_DB_DSN"`
	Driver string `envconfig:"KIPSUNYA_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"KIPSUNYA_DB_HOST"`
	LegacyPort     int    `envconfig:"KIPSUNYA_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"KIPSUNYA_DB_USER"`
	LegacyPassword string `envconfig:"KIPSUNYA_DB_PASSWORD"`
	LegacyName     string `envconfig:"KIPSUNYA_DB_NAME"`
	LegacySSLMode  string `envconfig:"KIPSUNYA_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"KIPSUNYA_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"KIPSUNYA_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"KIPSUNYA_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"KIPSUNYA_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"KIPSUNYA_REDIS_URL"`
	Address      string        `envconfig:"KIPSUNYA_REDIS_ADDR"`
	Password     string        `envconfig:"KIPSUNYA_REDIS_PASSWORD"`
	DB           int           `envconfig:"KIPSUNYA_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"KIPSUNYA_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"KIPSUNYA_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"KIPSUNYA_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"KIPSUNYA_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"KIPSUNYA_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"KIPSUNYA_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"KIPSUNYA_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"KIPSUNYA_JWT_EXPIRATION_MINUTES" default:"60"`
}

// AccessTokenTTL returns the access token TTL configured in minutes.
func (j JWTConfig) AccessTokenTTL() time.Duration {
	if j.ExpirationMinutes <= 0 {
		return 0
	}
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"KIPSUNYA_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"KIPSUNYA_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"KIPSUNYA_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"KIPSUNYA_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"KIPSUNYA_ARGON_KEY_LEN" default:"32"`
}

// CommerceConfig carries the platform-wide monetary rates expressed as
// percentages (0-100).
type CommerceConfig struct {
	TaxRatePercent        string `envconfig:"KIPSUNYA_TAX_RATE_PERCENT" default:"16"`
	CommissionRatePercent string `envconfig:"KIPSUNYA_COMMISSION_RATE_PERCENT" default:"15"`
	Currency              string `envconfig:"KIPSUNYA_CURRENCY" default:"KES"`
}

func (c CommerceConfig) validate() error {
	for name, raw := range map[string]string{
		"tax rate":        c.TaxRatePercent,
		"commission rate": c.CommissionRatePercent,
	} {
		rate, err := decimal.NewFromString(raw)
		if err != nil {
			return fmt.Errorf("parsing %s: %w", name, err)
		}
		if rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(100)) {
			return fmt.Errorf("%s must be between 0 and 100, got %s", name, raw)
		}
	}
	return nil
}

// TaxRate returns the configured tax percentage as a decimal.
func (c CommerceConfig) TaxRate() decimal.Decimal {
	rate, err := decimal.NewFromString(c.TaxRatePercent)
	if err != nil {
		return decimal.NewFromInt(16)
	}
	return rate
}

// CommissionRate returns the configured commission percentage as a decimal.
func (c CommerceConfig) CommissionRate() decimal.Decimal {
	rate, err := decimal.NewFromString(c.CommissionRatePercent)
	if err != nil {
		return decimal.NewFromInt(15)
	}
	return rate
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"KIPSUNYA_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"KIPSUNYA_AUTO_MIGRATE" default:"false"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"KIPSUNYA_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"KIPSUNYA_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"KIPSUNYA_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	DomainTopic        string `envconfig:"KIPSUNYA_PUBSUB_DOMAIN_TOPIC" default:"kipsunya-domain-events"`
	DomainSubscription string `envconfig:"KIPSUNYA_PUBSUB_DOMAIN_SUBSCRIPTION"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"KIPSUNYA_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"KIPSUNYA_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"KIPSUNYA_OUTBOX_MAX_ATTEMPTS" default:"10"`
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
