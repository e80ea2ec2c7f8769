package config

import (
	"log"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration values.
type Config struct {
	AppPort  string `mapstructure:"APP_PORT"`
	Env      string `mapstructure:"ENV"`
	LogLevel string `mapstructure:"LOG_LEVEL"`

	// Marketplace (flights & stays) API.
	MarketplaceBaseURL string `mapstructure:"MARKETPLACE_BASE_URL"`
	MarketplaceToken   string `mapstructure:"MARKETPLACE_API_TOKEN"`
	MarketplaceVersion string `mapstructure:"MARKETPLACE_API_VERSION"`
	RequestTimeoutSecs int    `mapstructure:"REQUEST_TIMEOUT_SECS"`
	MaxRetries         int    `mapstructure:"MAX_RETRIES"`

	// Stripe.
	StripeKey        string `mapstructure:"STRIPE_SECRET_KEY"`
	PaymentReturnURL string `mapstructure:"PAYMENT_RETURN_URL"`

	// Redis configuration.
	RedisAddr      string `mapstructure:"REDIS_ADDR"`
	RedisPassword  string `mapstructure:"REDIS_PASSWORD"`
	RedisPendingDB int    `mapstructure:"REDIS_PENDING_DB"`

	// Mongo (payment ledger).
	DatabaseURL string `mapstructure:"DATABASE_URL"`

	// Pending-confirmation tokens expire after this many minutes.
	PendingTTLMins int `mapstructure:"PENDING_TTL_MINS"`

	MaxRequestsPerMin int `mapstructure:"MAX_REQUESTS_PER_MIN"`
}

var AppConfig Config

func LoadConfig() {
	// Look for a config file named "config.yaml" in the current and "config" directory.
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	// Automatically use environment variables where available.
	viper.AutomaticEnv()

	// Set default values.
	viper.SetDefault("APP_PORT", "8080")
	viper.SetDefault("ENV", "development")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("MARKETPLACE_BASE_URL", "https://api.duffel.com")
	viper.SetDefault("MARKETPLACE_API_VERSION", "v2")
	viper.SetDefault("REQUEST_TIMEOUT_SECS", 30)
	viper.SetDefault("MAX_RETRIES", 3)
	viper.SetDefault("PAYMENT_RETURN_URL", "https://localhost/payments/return")
	viper.SetDefault("REDIS_ADDR", "localhost:6379")
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("REDIS_PENDING_DB", 0)
	viper.SetDefault("DATABASE_URL", "mongodb://localhost:27017")
	viper.SetDefault("PENDING_TTL_MINS", 30)
	viper.SetDefault("MAX_REQUESTS_PER_MIN", 100)

	if err := viper.ReadInConfig(); err != nil {
		log.Println("No config file found, using environment variables only")
	}

	if err := viper.Unmarshal(&AppConfig); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
}

// RequestTimeout returns the per-request timeout for outbound gateway calls.
func RequestTimeout() time.Duration {
	return time.Duration(AppConfig.RequestTimeoutSecs) * time.Second
}

// PendingTTL returns how long pending-confirmation tokens live.
func PendingTTL() time.Duration {
	return time.Duration(AppConfig.PendingTTLMins) * time.Minute
}

func GetEnv() string {
	return AppConfig.Env
}

func IsProduction() bool {
	return GetEnv() == "production"
}
