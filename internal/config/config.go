package config

import (
	"errors"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config carries the runtime configuration for the billing service.
type Config struct {
	Environment string
	Port        string

	DatabaseURL string

	StripeSecretKey     string
	StripeWebhookSecret string

	// SiteURL is the public URL of the CRM frontend, used to build
	// post-checkout and post-portal redirect targets.
	SiteURL string

	Tracing TracingConfig

	Bootstrap BootstrapConfig
}

// TracingConfig configures the OpenTelemetry exporter.
type TracingConfig struct {
	Enabled          bool
	ExporterEndpoint string
	ExporterProtocol string
	SamplingRatio    float64
}

// BootstrapConfig controls optional startup seeding.
type BootstrapConfig struct {
	SeedDemoProfile bool
}

// Load reads configuration from the environment. A local .env file is
// honored when present so development does not require exported variables.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		Environment:         getEnv("ENVIRONMENT", "development"),
		Port:                getEnv("PORT", "8080"),
		DatabaseURL:         strings.TrimSpace(os.Getenv("DATABASE_URL")),
		StripeSecretKey:     strings.TrimSpace(os.Getenv("STRIPE_SECRET_KEY")),
		StripeWebhookSecret: strings.TrimSpace(os.Getenv("STRIPE_WEBHOOK_SECRET")),
		SiteURL:             getEnv("SITE_URL", "http://localhost:3000"),
		Tracing: TracingConfig{
			Enabled:          getBool("TRACING_ENABLED", false),
			ExporterEndpoint: strings.TrimSpace(os.Getenv("OTEL_EXPORTER_ENDPOINT")),
			ExporterProtocol: getEnv("OTEL_EXPORTER_PROTOCOL", "grpc"),
			SamplingRatio:    getFloat("TRACING_SAMPLING_RATIO", 1.0),
		},
		Bootstrap: BootstrapConfig{
			SeedDemoProfile: getBool("SEED_DEMO_PROFILE", false),
		},
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.DatabaseURL == "" {
		return errors.New("DATABASE_URL is required")
	}
	if c.StripeWebhookSecret == "" {
		return errors.New("STRIPE_WEBHOOK_SECRET is required")
	}
	if c.StripeSecretKey == "" {
		return errors.New("STRIPE_SECRET_KEY is required")
	}
	return nil
}

// IsProduction reports whether the service runs in production mode.
func (c Config) IsProduction() bool {
	return strings.EqualFold(strings.TrimSpace(c.Environment), "production")
}

func getEnv(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func getBool(key string, fallback bool) bool {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getFloat(key string, fallback float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return parsed
}
