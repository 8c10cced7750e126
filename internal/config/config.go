// Package config loads and validates audit service configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Scraper   ScraperConfig   `mapstructure:"scraper"`
	AI        AIConfig        `mapstructure:"ai"`
	Cache     CacheConfig     `mapstructure:"cache"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
	Payment   PaymentConfig   `mapstructure:"payment"`
	Email     EmailConfig     `mapstructure:"email"`
	Reports   ReportsConfig   `mapstructure:"reports"`
	DB        DBConfig        `mapstructure:"db"`
	PubSub    PubSubConfig    `mapstructure:"pubsub"`
	Features  FeatureConfig   `mapstructure:"features"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port           int `mapstructure:"port"`
	TimeoutSeconds int `mapstructure:"timeout_seconds"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// ScraperConfig governs website fetching.
type ScraperConfig struct {
	UserAgent      string `mapstructure:"user_agent"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	MaxBodyBytes   int    `mapstructure:"max_body_bytes"`
}

// AIConfig holds credentials for the analysis providers.
type AIConfig struct {
	OpenAIKey       string `mapstructure:"openai_key"`
	OpenAIModel     string `mapstructure:"openai_model"`
	OpenRouterKey   string `mapstructure:"openrouter_key"`
	OpenRouterModel string `mapstructure:"openrouter_model"`
	TimeoutSeconds  int    `mapstructure:"timeout_seconds"`
}

// CacheConfig controls the file-backed result cache.
type CacheConfig struct {
	Dir               string `mapstructure:"dir"`
	FreeTTLSeconds    int    `mapstructure:"free_ttl_seconds"`
	PremiumTTLSeconds int    `mapstructure:"premium_ttl_seconds"`
}

// RateLimitConfig bounds audit request rates.
type RateLimitConfig struct {
	PerIP         int `mapstructure:"per_ip"`
	PerEmail      int `mapstructure:"per_email"`
	WindowSeconds int `mapstructure:"window_seconds"`
}

// PaymentConfig holds Stripe credentials and pricing.
type PaymentConfig struct {
	StripeSecretKey     string `mapstructure:"stripe_secret_key"`
	StripeWebhookSecret string `mapstructure:"stripe_webhook_secret"`
	PremiumPriceUSD     int64  `mapstructure:"premium_price_usd"`
	PremiumMonthlySlots int    `mapstructure:"premium_monthly_slots"`
	SuccessURL          string `mapstructure:"success_url"`
	CancelURL           string `mapstructure:"cancel_url"`
}

// EmailConfig holds Resend delivery settings.
type EmailConfig struct {
	ResendKey      string `mapstructure:"resend_key"`
	FromAddress    string `mapstructure:"from_address"`
	ReplyTo        string `mapstructure:"reply_to"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// ReportsConfig sets where rendered PDFs live.
type ReportsConfig struct {
	Dir string `mapstructure:"dir"`
}

// DBConfig controls access to the relational database.
type DBConfig struct {
	Provider string `mapstructure:"provider"`
	DSN      string `mapstructure:"dsn"`
}

// PubSubConfig holds metadata for audit-completed notifications.
type PubSubConfig struct {
	Provider  string `mapstructure:"provider"`
	ProjectID string `mapstructure:"project_id"`
	TopicName string `mapstructure:"topic_name"`
}

// FeatureConfig toggles audit features on and off.
type FeatureConfig struct {
	FreeAudits    bool `mapstructure:"free_audits"`
	PremiumAudits bool `mapstructure:"premium_audits"`
	Payments      bool `mapstructure:"payments"`
	Email         bool `mapstructure:"email"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("AUDITOR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.timeout_seconds", 120)
	v.SetDefault("logging.development", true)
	v.SetDefault("logging.level", "")
	v.SetDefault("scraper.user_agent", "seo-audit-bot/1.0")
	v.SetDefault("scraper.timeout_seconds", 30)
	v.SetDefault("scraper.max_body_bytes", 2<<20)
	v.SetDefault("ai.openai_model", "gpt-4o")
	v.SetDefault("ai.openrouter_model", "anthropic/claude-sonnet-4")
	v.SetDefault("ai.timeout_seconds", 90)
	v.SetDefault("cache.dir", "cache")
	v.SetDefault("cache.free_ttl_seconds", 7200)
	v.SetDefault("cache.premium_ttl_seconds", 0)
	v.SetDefault("ratelimit.per_ip", 100)
	v.SetDefault("ratelimit.per_email", 50)
	v.SetDefault("ratelimit.window_seconds", 3600)
	v.SetDefault("payment.premium_price_usd", 997)
	v.SetDefault("payment.premium_monthly_slots", 50)
	v.SetDefault("email.from_address", "reports@seoaudit.example.com")
	v.SetDefault("email.timeout_seconds", 30)
	v.SetDefault("reports.dir", "reports")
	v.SetDefault("db.provider", "memory")
	v.SetDefault("pubsub.provider", "none")
	v.SetDefault("features.free_audits", true)
	v.SetDefault("features.premium_audits", true)
	v.SetDefault("features.payments", true)
	v.SetDefault("features.email", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Scraper.TimeoutSeconds <= 0 {
		return fmt.Errorf("scraper.timeout_seconds must be > 0")
	}
	if c.RateLimit.PerIP <= 0 || c.RateLimit.PerEmail <= 0 {
		return fmt.Errorf("ratelimit.per_ip and ratelimit.per_email must be > 0")
	}
	if c.RateLimit.WindowSeconds <= 0 {
		return fmt.Errorf("ratelimit.window_seconds must be > 0")
	}
	if c.Cache.FreeTTLSeconds <= 0 {
		return fmt.Errorf("cache.free_ttl_seconds must be > 0")
	}
	if c.Cache.PremiumTTLSeconds < 0 {
		return fmt.Errorf("cache.premium_ttl_seconds must be >= 0")
	}
	if c.Payment.PremiumPriceUSD <= 0 {
		return fmt.Errorf("payment.premium_price_usd must be > 0")
	}
	if c.AI.OpenAIKey == "" && c.AI.OpenRouterKey == "" {
		return fmt.Errorf("at least one of ai.openai_key and ai.openrouter_key must be set")
	}
	if c.Features.Payments {
		if c.Payment.StripeSecretKey == "" || c.Payment.StripeWebhookSecret == "" {
			return fmt.Errorf("payment.stripe_secret_key and payment.stripe_webhook_secret must be set when payments are enabled")
		}
	}
	if c.Features.Email && c.Email.ResendKey == "" {
		return fmt.Errorf("email.resend_key must be set when email is enabled")
	}
	switch c.DB.Provider {
	case "memory":
	case "postgres":
		if c.DB.DSN == "" {
			return fmt.Errorf("db.dsn must be set when db.provider is postgres")
		}
	default:
		return fmt.Errorf("db.provider must be one of memory, postgres")
	}
	switch c.PubSub.Provider {
	case "none", "memory":
	case "pubsub":
		if c.PubSub.ProjectID == "" || c.PubSub.TopicName == "" {
			return fmt.Errorf("pubsub.project_id and pubsub.topic_name must be set when pubsub.provider is pubsub")
		}
	default:
		return fmt.Errorf("pubsub.provider must be one of none, memory, pubsub")
	}
	return nil
}

// ScrapeTimeout converts the scraper timeout into a duration.
func (c Config) ScrapeTimeout() time.Duration {
	return time.Duration(c.Scraper.TimeoutSeconds) * time.Second
}

// AnalysisTimeout converts the AI timeout into a duration.
func (c Config) AnalysisTimeout() time.Duration {
	return time.Duration(c.AI.TimeoutSeconds) * time.Second
}

// FreeCacheTTL converts the free-tier cache TTL into a duration.
func (c Config) FreeCacheTTL() time.Duration {
	return time.Duration(c.Cache.FreeTTLSeconds) * time.Second
}

// RateLimitWindow converts the shared rate-limit window into a duration.
func (c Config) RateLimitWindow() time.Duration {
	return time.Duration(c.RateLimit.WindowSeconds) * time.Second
}
