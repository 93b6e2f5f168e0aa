package app

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/caveo-app/caveo-api/pkg/httpx"
	"github.com/joho/godotenv"
)

// Database drivers accepted by DATABASE_DRIVER.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type Config struct {
	Env                 string        `env:"ENV" envDefault:"dev"`
	LogLevel            string        `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat           string        `env:"LOG_FORMAT" envDefault:"json"`
	Port                int           `env:"PORT" envDefault:"8080"`
	ShutdownGracePeriod time.Duration `env:"SHUTDOWN_GRACE_PERIOD" envDefault:"10s"`
	CORSAllowedOrigins  []string      `env:"CORS_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`

	Database  DatabaseConfig  `envPrefix:"DATABASE_"`
	Cognito   CognitoConfig   `envPrefix:"COGNITO_"`
	Reconcile ReconcileConfig `envPrefix:"RECONCILE_"`

	// AWSRegion is shared by the Cognito client and the JWKS issuer URL.
	AWSRegion    string        `env:"AWS_REGION"`
	JWKSCacheTTL time.Duration `env:"JWKS_CACHE_TTL" envDefault:"10m"`

	RateLimits httpx.RateLimits `envPrefix:"RATELIMIT_"`
}

type DatabaseConfig struct {
	Driver string `env:"DRIVER" envDefault:"sqlite"`
	DSN    string `env:"DSN" envDefault:"file:caveo.db?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"`
}

type CognitoConfig struct {
	UserPoolID  string        `env:"USER_POOL_ID"`
	ClientID    string        `env:"CLIENT_ID"`
	Timeout     time.Duration `env:"TIMEOUT" envDefault:"10s"`
	MaxAttempts int           `env:"MAX_ATTEMPTS" envDefault:"3"`
}

type ReconcileConfig struct {
	Interval    time.Duration `env:"INTERVAL" envDefault:"1m"`
	Batch       int           `env:"BATCH" envDefault:"50"`
	MaxAttempts int           `env:"MAX_ATTEMPTS" envDefault:"5"`
}

// LoadConfig reads a .env file when envFile names one that exists, then
// parses the environment. Variables already set win over the file.
func LoadConfig(envFile string) (Config, error) {
	if envFile != "" {
		if _, err := os.Stat(envFile); err == nil {
			if err := godotenv.Load(envFile); err != nil {
				return Config{}, fmt.Errorf("load %s: %w", envFile, err)
			}
		}
	}

	cfg := Config{RateLimits: httpx.DefaultRateLimits()}
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.RateLimits = cfg.RateLimits.Sanitize()
	cfg.Database.Driver = strings.ToLower(strings.TrimSpace(cfg.Database.Driver))

	return cfg, nil
}

// Validate reports every missing or invalid setting at once.
func (c Config) Validate() error {
	var errs []error
	if c.AWSRegion == "" {
		errs = append(errs, errors.New("AWS_REGION is required"))
	}
	if c.Cognito.UserPoolID == "" {
		errs = append(errs, errors.New("COGNITO_USER_POOL_ID is required"))
	}
	if c.Cognito.ClientID == "" {
		errs = append(errs, errors.New("COGNITO_CLIENT_ID is required"))
	}
	switch c.Database.Driver {
	case DriverSQLite, DriverPostgres:
	default:
		errs = append(errs, fmt.Errorf("DATABASE_DRIVER must be %q or %q, got %q", DriverSQLite, DriverPostgres, c.Database.Driver))
	}
	if c.Database.DSN == "" {
		errs = append(errs, errors.New("DATABASE_DSN is required"))
	}
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("PORT out of range: %d", c.Port))
	}
	return errors.Join(errs...)
}
