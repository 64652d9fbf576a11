package infra

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config holds all application configuration parsed from environment variables.
type Config struct {
	// Database
	DatabaseURL string `env:"DATABASE_URL"`
	PGHost      string `env:"PGHOST" envDefault:"localhost"`
	PGPort      int    `env:"PGPORT" envDefault:"5432"`
	PGUser      string `env:"PGUSER" envDefault:"console"`
	PGPassword  string `env:"PGPASSWORD" envDefault:"console"`
	PGDatabase  string `env:"PGDATABASE" envDefault:"console"`

	// Admin identity: the sole authorized operator email
	AdminEmail string `env:"ADMIN_EMAIL" envDefault:"skillbridgeladder@gmail.com"`

	// Cookie signing
	CookieSecret string `env:"COOKIE_SECRET" envDefault:"change-me-in-production"`
	CookieMaxAge string `env:"COOKIE_MAX_AGE" envDefault:"24h"`

	// Server
	APIPort   int    `env:"API_PORT" envDefault:"3200"`
	Subdomain string `env:"SUBDOMAIN" envDefault:"admin"`

	// Geolocation proxy target (ip-api.com shape)
	GeoBaseURL string `env:"GEO_BASE_URL" envDefault:"http://ip-api.com"`

	// Mail (Resend-compatible HTTP API)
	MailAPIKey  string `env:"MAIL_API_KEY"`
	MailBaseURL string `env:"MAIL_BASE_URL" envDefault:"https://api.resend.com"`
	MailFrom    string `env:"MAIL_FROM" envDefault:"SBL Security <security@skillbridgeladder.in>"`

	// Kafka threat event bus
	KafkaBrokers string `env:"KAFKA_BROKERS" envDefault:"localhost:9092"`
	KafkaEnabled bool   `env:"KAFKA_ENABLED" envDefault:"false"`

	// Keep-alive pulse targets (comma-separated URLs)
	PulseTargets []string `env:"PULSE_TARGETS" envSeparator:"," envDefault:"https://skillbridgeladder.in,https://hire.skillbridgeladder.in,https://admin.skillbridgeladder.in"`

	// CORS
	CORSAllowedOrigins string `env:"CORS_ALLOWED_ORIGINS" envDefault:"*"`

	// Dev
	AllowInsecureDefaults bool `env:"ALLOW_INSECURE_DEFAULTS" envDefault:"false"`
}

// LoadConfig parses environment variables into a Config struct.
func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// Validate checks for insecure configuration that must not run in production.
// Set ALLOW_INSECURE_DEFAULTS=true to bypass (local dev only).
func (c *Config) Validate() error {
	if c.AllowInsecureDefaults {
		return nil
	}
	if c.CookieSecret == "change-me-in-production" {
		return fmt.Errorf("COOKIE_SECRET is set to the insecure default; set a strong secret or set ALLOW_INSECURE_DEFAULTS=true for local dev")
	}
	if len(c.CookieSecret) < 32 {
		return fmt.Errorf("COOKIE_SECRET is too short (%d chars); minimum 32 characters required", len(c.CookieSecret))
	}
	return nil
}

// DSN returns the PostgreSQL connection string, preferring DATABASE_URL if set.
func (c *Config) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.PGUser, c.PGPassword, c.PGHost, c.PGPort, c.PGDatabase)
}
