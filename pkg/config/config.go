package config

import (
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all configuration for leadwerk-engine.
// Configuration comes from config.yaml with environment variable overrides;
// environment variables always win. Secrets (database password, NATS creds)
// must only come from environment variables.
type Config struct {
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"127.0.0.1"`
	Port     string `yaml:"port" env:"PORT" env-default:"8090"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	Version  string `yaml:"-"` // Set at load time, not from config

	Database DatabaseConfig `yaml:"database"`
	Auth     AuthConfig     `yaml:"auth"`
	NATS     NATSConfig     `yaml:"nats"`
	Billing  BillingConfig  `yaml:"billing"`
	Sweeper  SweeperConfig  `yaml:"sweeper"`
}

// DatabaseConfig holds PostgreSQL configuration.
type DatabaseConfig struct {
	Host           string `yaml:"host" env:"PGHOST" env-default:"localhost"`
	Port           int    `yaml:"port" env:"PGPORT" env-default:"5432"`
	User           string `yaml:"user" env:"PGUSER" env-default:"leadwerk"`
	Password       string `yaml:"-" env:"PGPASSWORD"` // Secret - not in YAML
	Database       string `yaml:"database" env:"PGDATABASE" env-default:"leadwerk_engine"`
	SSLMode        string `yaml:"ssl_mode" env:"PGSSLMODE" env-default:"disable"`
	MaxConnections int32  `yaml:"max_connections" env:"PGMAX_CONNECTIONS" env-default:"25"`
	MigrationsPath string `yaml:"migrations_path" env:"PGMIGRATIONS_PATH" env-default:"migrations"`
}

// AuthConfig holds verification settings for the external identity
// provider's tokens.
type AuthConfig struct {
	// EnableVerification controls whether JWTs are validated. Set to false
	// for local development without the identity provider.
	EnableVerification bool `yaml:"enable_verification" env:"AUTH_ENABLE_VERIFICATION" env-default:"true"`

	// JWKSURL is the identity provider's JWKS endpoint.
	JWKSURL string `yaml:"jwks_url" env:"AUTH_JWKS_URL" env-default:""`

	// Issuer is the expected iss claim.
	Issuer string `yaml:"issuer" env:"AUTH_ISSUER" env-default:""`
}

// NATSConfig holds the notification publisher settings. An empty URL
// disables publishing (a no-op sink is used instead).
type NATSConfig struct {
	URL     string `yaml:"url" env:"NATS_URL" env-default:""`
	Subject string `yaml:"subject" env:"NATS_SUBJECT" env-default:"leadwerk.events"`
	Creds   string `yaml:"-" env:"NATS_CREDS"` // Secret - not in YAML
}

// BillingConfig holds billing defaults.
type BillingConfig struct {
	// DefaultLeadPrice applies when an industry has no price_per_lead.
	DefaultLeadPrice string `yaml:"default_lead_price" env:"BILLING_DEFAULT_LEAD_PRICE" env-default:"10.00"`
}

// SweeperConfig controls the periodic backup auto-assign sweep.
type SweeperConfig struct {
	Enabled   bool          `yaml:"enabled" env:"SWEEPER_ENABLED" env-default:"false"`
	Interval  time.Duration `yaml:"interval" env:"SWEEPER_INTERVAL" env-default:"15m"`
	BatchSize int           `yaml:"batch_size" env:"SWEEPER_BATCH_SIZE" env-default:"50"`
}

// Load reads configuration from config.yaml with environment variable
// overrides. The version parameter is injected at build time. If config.yaml
// does not exist, configuration comes from environment variables alone.
func Load(version string) (*Config, error) {
	cfg := &Config{
		Version: version,
	}

	if _, err := os.Stat("config.yaml"); err == nil {
		if err := cleanenv.ReadConfig("config.yaml", cfg); err != nil {
			return nil, fmt.Errorf("failed to read config.yaml: %w", err)
		}
	} else {
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("failed to read environment: %w", err)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Auth.EnableVerification && c.Auth.JWKSURL == "" {
		return fmt.Errorf("auth verification enabled but jwks_url is empty")
	}
	if c.Sweeper.Enabled && c.Sweeper.Interval <= 0 {
		return fmt.Errorf("sweeper interval must be positive")
	}
	return nil
}

// ConnectionString returns a PostgreSQL connection string.
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}
