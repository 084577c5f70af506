package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds the full application configuration, loaded from the
// environment (optionally seeded from a .env file).
type Config struct {
	Port      string `env:"PORT" envDefault:"8080"`
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"` // "json" or "text"

	// Database
	DBDriver   string `env:"DB_DRIVER" envDefault:"sqlite"` // "sqlite" or "postgres"
	DBPath     string `env:"DB_PATH" envDefault:"./bridge.db"`
	DBHost     string `env:"DB_HOST" envDefault:"localhost"`
	DBPort     string `env:"DB_PORT" envDefault:"5432"`
	DBUser     string `env:"DB_USER" envDefault:"postgres"`
	DBPassword string `env:"DB_PASSWORD"`
	DBName     string `env:"DB_NAME" envDefault:"bridge"`
	DBSSLMode  string `env:"DB_SSLMODE" envDefault:"disable"`

	// Kylas CRM
	KylasAPIURL       string `env:"KYLAS_API_URL" envDefault:"https://api.kylas.io"`
	KylasClientID     string `env:"KYLAS_CLIENT_ID"`
	KylasClientSecret string `env:"KYLAS_CLIENT_SECRET"`
	KylasRedirectURI  string `env:"KYLAS_REDIRECT_URI" envDefault:"https://api.wapiy.ai/"`
	// Custom field on a deal that cross-references the originating lead id.
	DealLeadField string `env:"KYLAS_DEAL_LEAD_FIELD" envDefault:"cfLeadId"`

	// Wapiy messaging provider
	WapiyAPIURL   string `env:"WAPIY_API_URL" envDefault:"https://apis.whatsapp.redingtongroup.com"`
	WapiyAppURL   string `env:"WAPIY_APP_URL" envDefault:"https://www.app.wapiy.ai"`
	PartnerAPIKey string `env:"WAPIY_PARTNER_API_KEY"`
	PartnerID     string `env:"WAPIY_PARTNER_ID"`

	// Inbound webhook authentication. Empty disables signature verification.
	WebhookSecret string `env:"WEBHOOK_SECRET"`

	// OTP email
	EmailHost string `env:"EMAIL_HOST"`
	EmailPort int    `env:"EMAIL_PORT" envDefault:"465"`
	EmailUser string `env:"EMAIL_USER"`
	EmailPass string `env:"EMAIL_PASS"`
}

// Load reads configuration from the environment.
func Load() (*Config, error) {
	// Load .env file if exists (ignore error if not found)
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}
