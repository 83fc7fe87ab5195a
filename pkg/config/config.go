package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "lightbike"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "LIGHTBIKE_DB_DSN"
	EnvDBHost = "LIGHTBIKE_DB_HOST"
	EnvDBUser = "LIGHTBIKE_DB_USER"
	EnvDBName = "LIGHTBIKE_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Session      SessionConfig
	Checkout     CheckoutConfig
	Shipping     ShippingConfig
	FeatureFlags FeatureFlagsConfig
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
	Env          string `envconfig:"LIGHTBIKE_APP_ENV" required:"true"`
	Port         string `envconfig:"LIGHTBIKE_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"LIGHTBIKE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"LIGHTBIKE_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"LIGHTBIKE_DB_DSN"`
	Driver string `envconfig:"LIGHTBIKE_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"LIGHTBIKE_DB_HOST"`
	LegacyPort     int    `envconfig:"LIGHTBIKE_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"LIGHTBIKE_DB_USER"`
	LegacyPassword string `envconfig:"LIGHTBIKE_DB_PASSWORD"`
	LegacyName     string `envconfig:"LIGHTBIKE_DB_NAME"`
	LegacySSLMode  string `envconfig:"LIGHTBIKE_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"LIGHTBIKE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"LIGHTBIKE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"LIGHTBIKE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"LIGHTBIKE_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"LIGHTBIKE_REDIS_URL" required:"true"`
	Address      string        `envconfig:"LIGHTBIKE_REDIS_ADDR"`
	Password     string        `envconfig:"LIGHTBIKE_REDIS_PASSWORD"`
	DB           int           `envconfig:"LIGHTBIKE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"LIGHTBIKE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"LIGHTBIKE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"LIGHTBIKE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"LIGHTBIKE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"LIGHTBIKE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"LIGHTBIKE_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"LIGHTBIKE_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"LIGHTBIKE_JWT_EXPIRATION_MINUTES" default:"60"`
}

// AccessTokenTTL returns the access token lifetime.
func (j JWTConfig) AccessTokenTTL() time.Duration {
	if j.ExpirationMinutes <= 0 {
		return 0
	}
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

// SessionConfig controls anonymous session carts stored in Redis.
type SessionConfig struct {
	CartTTL time.Duration `envconfig:"LIGHTBIKE_SESSION_CART_TTL" default:"720h"`
}

// CheckoutConfig carries order-level guards applied before allocation.
type CheckoutConfig struct {
	MinPayableTotal string `envconfig:"LIGHTBIKE_CHECKOUT_MIN_PAYABLE_TOTAL" default:"1.00"`
}

// ShippingConfig feeds the flat-rate shipping quoter. Shipping is an
// external concern; it is added to the order total but never distributed
// across order lines.
type ShippingConfig struct {
	FlatRate string `envconfig:"LIGHTBIKE_SHIPPING_FLAT_RATE" default:"0.00"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"LIGHTBIKE_AUTO_MIGRATE" default:"false"`
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
