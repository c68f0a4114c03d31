package internal

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/DukeRupert/tradeslink/internal/storage"
)

type Config struct {
	Env         string `envconfig:"ENV" default:"development"`
	Port        int    `envconfig:"PORT" default:"8080"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"debug"`
	DatabaseUrl string `envconfig:"DATABASE_URL"`

	// Application base URL (for redirects and email links)
	BaseURL string `envconfig:"BASE_URL" default:"http://localhost:8080"`

	// Sessions
	SessionDuration time.Duration `envconfig:"SESSION_DURATION" default:"168h"`
	// Cookie keys are base64 encoded. openssl rand -base64 32
	CookieHashKey  string `envconfig:"COOKIE_HASH_KEY"`
	CookieBlockKey string `envconfig:"COOKIE_BLOCK_KEY"`

	// Email delivery: "log" writes notifications to the log, "smtp" sends them.
	EmailProvider string `envconfig:"EMAIL_PROVIDER" default:"log"`

	// SMTP Configuration
	SMTPHost     string `envconfig:"SMTP_HOST" default:"localhost"`
	SMTPPort     int    `envconfig:"SMTP_PORT" default:"1025"`
	SMTPUsername string `envconfig:"SMTP_USERNAME"`
	SMTPPassword string `envconfig:"SMTP_PASSWORD"`
	SMTPFrom     string `envconfig:"SMTP_FROM" default:"noreply@tradeslink.app"`
	SMTPFromName string `envconfig:"SMTP_FROM_NAME" default:"Tradeslink"`

	// Storage Configuration: "local" or "r2"
	StorageProvider  string `envconfig:"STORAGE_PROVIDER" default:"local"`
	LocalStoragePath string `envconfig:"LOCAL_STORAGE_PATH" default:"./storage"`
	LocalStorageURL  string `envconfig:"LOCAL_STORAGE_URL" default:"http://localhost:8080/files"`

	// R2 Storage (production)
	R2AccountID       string `envconfig:"R2_ACCOUNT_ID"`
	R2AccessKeyID     string `envconfig:"R2_ACCESS_KEY_ID"`
	R2SecretAccessKey string `envconfig:"R2_SECRET_ACCESS_KEY"`
	R2BucketName      string `envconfig:"R2_BUCKET_NAME"`
	R2PublicURL       string `envconfig:"R2_PUBLIC_URL"`

	// Stripe Billing Configuration. In development the billing handlers
	// answer with an external-service error when these are empty.
	StripeSecretKey      string `envconfig:"STRIPE_SECRET_KEY"`
	StripeWebhookSecret  string `envconfig:"STRIPE_WEBHOOK_SECRET"`
	StripeProPriceID     string `envconfig:"STRIPE_PRO_PRICE_ID"`
	StripePremiumPriceID string `envconfig:"STRIPE_PREMIUM_PRICE_ID"`

	// Admin access control: comma separated emails promoted on registration
	AdminEmails []string `envconfig:"ADMIN_EMAILS"`

	// Metrics endpoint authentication.
	// If both are empty, the /metrics endpoint is unprotected.
	MetricsUsername string `envconfig:"METRICS_USERNAME"`
	MetricsPassword string `envconfig:"METRICS_PASSWORD"`

	// Failed logins allowed per client IP in each 15 minute window.
	LoginAttempts int `envconfig:"LOGIN_ATTEMPTS" default:"5"`
}

func NewConfig() (*Config, error) {
	// Load .env file if it exists (ignored in production)
	_ = godotenv.Load()

	cfg := new(Config)
	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("process environment config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the rules envconfig cannot express.
func (c *Config) Validate() error {
	if c.DatabaseUrl == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	for i, email := range c.AdminEmails {
		c.AdminEmails[i] = strings.TrimSpace(strings.ToLower(email))
	}

	switch c.EmailProvider {
	case "log", "smtp":
	default:
		return fmt.Errorf("EMAIL_PROVIDER must be either 'log' or 'smtp', got: %s", c.EmailProvider)
	}

	switch c.StorageProvider {
	case "local":
	case "r2":
		if c.R2AccountID == "" {
			return fmt.Errorf("R2_ACCOUNT_ID is required when STORAGE_PROVIDER is 'r2'")
		}
		if c.R2AccessKeyID == "" {
			return fmt.Errorf("R2_ACCESS_KEY_ID is required when STORAGE_PROVIDER is 'r2'")
		}
		if c.R2SecretAccessKey == "" {
			return fmt.Errorf("R2_SECRET_ACCESS_KEY is required when STORAGE_PROVIDER is 'r2'")
		}
		if c.R2BucketName == "" {
			return fmt.Errorf("R2_BUCKET_NAME is required when STORAGE_PROVIDER is 'r2'")
		}
	default:
		return fmt.Errorf("STORAGE_PROVIDER must be either 'local' or 'r2', got: %s", c.StorageProvider)
	}

	if c.Env == "production" && (c.CookieHashKey == "" || c.CookieBlockKey == "") {
		return fmt.Errorf("COOKIE_HASH_KEY and COOKIE_BLOCK_KEY are required in production")
	}
	return nil
}

// CookieKeys decodes the cookie keys. Empty keys decode to nil, which the
// session cookie codec replaces with random keys.
func (c *Config) CookieKeys() (hashKey, blockKey []byte, err error) {
	if c.CookieHashKey != "" {
		if hashKey, err = base64.StdEncoding.DecodeString(c.CookieHashKey); err != nil {
			return nil, nil, fmt.Errorf("decode COOKIE_HASH_KEY: %w", err)
		}
	}
	if c.CookieBlockKey != "" {
		if blockKey, err = base64.StdEncoding.DecodeString(c.CookieBlockKey); err != nil {
			return nil, nil, fmt.Errorf("decode COOKIE_BLOCK_KEY: %w", err)
		}
	}
	return hashKey, blockKey, nil
}

// IsSecure reports whether cookies and HSTS assume HTTPS.
func (c *Config) IsSecure() bool {
	return c.Env != "development"
}

// StorageConfig maps the environment onto the storage provider settings.
func (c *Config) StorageConfig() storage.Config {
	return storage.Config{
		Provider: c.StorageProvider,
		Local: storage.LocalConfig{
			BasePath: c.LocalStoragePath,
			BaseURL:  c.LocalStorageURL,
		},
		R2: storage.R2Config{
			AccountID:       c.R2AccountID,
			AccessKeyID:     c.R2AccessKeyID,
			SecretAccessKey: c.R2SecretAccessKey,
			BucketName:      c.R2BucketName,
			PublicURL:       c.R2PublicURL,
		},
	}
}

func (c *Config) IsAdminEmail(email string) bool {
	email = strings.ToLower(strings.TrimSpace(email))
	for _, admin := range c.AdminEmails {
		if admin == email {
			return true
		}
	}
	return false
}
