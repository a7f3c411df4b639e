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

	DatabaseURL string `mapstructure:"DATABASE_URL"`
	DatabaseName string `mapstructure:"DATABASE_NAME"`

	// Redis configuration.
	RedisAddr          string `mapstructure:"REDIS_ADDR"`
	RedisPassword      string `mapstructure:"REDIS_PASSWORD"`
	RedisReservationDB int    `mapstructure:"REDIS_RESERVATION_DB"`
	RedisTokenDB       int    `mapstructure:"REDIS_TOKEN_DB"`
	RedisQueueDB       int    `mapstructure:"REDIS_QUEUE_DB"`

	// Stripe.
	StripeKey           string `mapstructure:"STRIPE_KEY"`
	StripeWebhookSecret string `mapstructure:"STRIPE_WEBHOOK_SECRET"`
	CheckoutSuccessURL  string `mapstructure:"CHECKOUT_SUCCESS_URL"`
	CheckoutCancelURL   string `mapstructure:"CHECKOUT_CANCEL_URL"`

	// Engine tunables.
	ReservationTTLMinutes    int `mapstructure:"RESERVATION_TTL_MINUTES"`
	ReconcileIntervalMinutes int `mapstructure:"RECONCILE_INTERVAL_MINUTES"`
	VendorPromptGraceHours   int `mapstructure:"VENDOR_PROMPT_GRACE_HOURS"`
	VerifyTokenTTLHours      int `mapstructure:"VERIFY_TOKEN_TTL_HOURS"`
	MaxRequestsPerMin        int `mapstructure:"MAX_REQUESTS_PER_MIN"`
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
	viper.SetDefault("DATABASE_URL", "mongodb://localhost:27017")
	viper.SetDefault("DATABASE_NAME", "slotbook")
	viper.SetDefault("REDIS_ADDR", "localhost:6379")
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("REDIS_RESERVATION_DB", 0)
	viper.SetDefault("REDIS_TOKEN_DB", 1)
	viper.SetDefault("REDIS_QUEUE_DB", 2)
	viper.SetDefault("RESERVATION_TTL_MINUTES", 15)
	viper.SetDefault("RECONCILE_INTERVAL_MINUTES", 10)
	viper.SetDefault("VENDOR_PROMPT_GRACE_HOURS", 2)
	viper.SetDefault("VERIFY_TOKEN_TTL_HOURS", 24)
	viper.SetDefault("MAX_REQUESTS_PER_MIN", 100)

	if err := viper.ReadInConfig(); err != nil {
		log.Println("No config file found, using environment variables only")
	}

	if err := viper.Unmarshal(&AppConfig); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
}

func GetEnv() string {
	return AppConfig.Env
}

func IsProduction() bool {
	return GetEnv() == "production"
}

// ReservationTTL is the configured checkout hold lifetime.
func ReservationTTL() time.Duration {
	return time.Duration(AppConfig.ReservationTTLMinutes) * time.Minute
}

// ReconcileInterval is how often the reconciliation sweeps run.
func ReconcileInterval() time.Duration {
	return time.Duration(AppConfig.ReconcileIntervalMinutes) * time.Minute
}
