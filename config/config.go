package config

import (
	"fmt"
	"log"
	"time"

	"github.com/spf13/viper"
)

// Data sources the guest directory can be backed by.
const (
	SourceJSON   = "json"
	SourceMongo  = "mongo"
	SourceZenoti = "zenoti"
)

// Config holds all configuration values.
type Config struct {
	AppPort           string `mapstructure:"APP_PORT"`
	Env               string `mapstructure:"ENV"`
	LogLevel          string `mapstructure:"LOG_LEVEL"`
	MaxRequestsPerMin int    `mapstructure:"MAX_REQUESTS_PER_MIN"`

	// Guest directory.
	DataSource   string `mapstructure:"DATA_SOURCE"`
	DataFile     string `mapstructure:"DATA_FILE"`
	DatabaseURL  string `mapstructure:"DATABASE_URL"`
	DatabaseName string `mapstructure:"DATABASE_NAME"`
	SearchPolicy string `mapstructure:"SEARCH_POLICY"`
	SearchLimit  int    `mapstructure:"SEARCH_LIMIT"`

	// Redis configuration.
	RedisEnabled  bool   `mapstructure:"REDIS_ENABLED"`
	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisCacheDB  int    `mapstructure:"REDIS_CACHE_DB"`
	RedisQueueDB  int    `mapstructure:"REDIS_QUEUE_DB"`

	// Salon platform.
	ZenotiBaseURL          string `mapstructure:"ZENOTI_BASE_URL"`
	ZenotiOrgID            string `mapstructure:"ZENOTI_ORG_ID"`
	ZenotiCenterID         string `mapstructure:"ZENOTI_CENTER_ID"`
	ZenotiAPIKey           string `mapstructure:"ZENOTI_API_KEY"`
	ZenotiClientID         string `mapstructure:"ZENOTI_CLIENT_ID"`
	ZenotiClientSecret     string `mapstructure:"ZENOTI_CLIENT_SECRET"`
	AppointmentWindowHours int    `mapstructure:"APPOINTMENT_WINDOW_HOURS"`

	// Payment step.
	PaymentProvider    string  `mapstructure:"PAYMENT_PROVIDER"`
	PaymentLatencyMS   int     `mapstructure:"PAYMENT_LATENCY_MS"`
	PaymentFailureRate float64 `mapstructure:"PAYMENT_FAILURE_RATE"`
	PaymentCurrency    string  `mapstructure:"PAYMENT_CURRENCY"`
	StripeKey          string  `mapstructure:"STRIPE_KEY"`

	// Kiosk device auth; empty disables it.
	KioskJWTSecret string `mapstructure:"KIOSK_JWT_SECRET"`

	// Kiosk front-end.
	KioskAPIURL         string `mapstructure:"KIOSK_API_URL"`
	KioskToken          string `mapstructure:"KIOSK_TOKEN"`
	KioskDebounceMS     int    `mapstructure:"KIOSK_DEBOUNCE_MS"`
	KioskRequirePayment bool   `mapstructure:"KIOSK_REQUIRE_PAYMENT"`
}

var AppConfig Config

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_PORT", "8080")
	v.SetDefault("ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("MAX_REQUESTS_PER_MIN", 120)
	v.SetDefault("DATA_SOURCE", SourceJSON)
	v.SetDefault("DATA_FILE", "data/enaya.json")
	v.SetDefault("DATABASE_URL", "mongodb://localhost:27017")
	v.SetDefault("DATABASE_NAME", "enaya")
	v.SetDefault("SEARCH_POLICY", "strict")
	v.SetDefault("SEARCH_LIMIT", 20)
	v.SetDefault("REDIS_ENABLED", false)
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_CACHE_DB", 0)
	v.SetDefault("REDIS_QUEUE_DB", 1)
	v.SetDefault("ZENOTI_BASE_URL", "")
	v.SetDefault("ZENOTI_ORG_ID", "")
	v.SetDefault("ZENOTI_CENTER_ID", "")
	v.SetDefault("ZENOTI_API_KEY", "")
	v.SetDefault("ZENOTI_CLIENT_ID", "")
	v.SetDefault("ZENOTI_CLIENT_SECRET", "")
	v.SetDefault("APPOINTMENT_WINDOW_HOURS", 24)
	v.SetDefault("PAYMENT_PROVIDER", "mock")
	v.SetDefault("PAYMENT_LATENCY_MS", 400)
	v.SetDefault("PAYMENT_FAILURE_RATE", 0.15)
	v.SetDefault("PAYMENT_CURRENCY", "SAR")
	v.SetDefault("STRIPE_KEY", "")
	v.SetDefault("KIOSK_JWT_SECRET", "")
	v.SetDefault("KIOSK_API_URL", "http://localhost:8080")
	v.SetDefault("KIOSK_TOKEN", "")
	v.SetDefault("KIOSK_DEBOUNCE_MS", 200)
	v.SetDefault("KIOSK_REQUIRE_PAYMENT", false)
}

// Load reads configuration from the given viper instance. Missing config
// files are not an error; environment variables and defaults still apply.
func Load(v *viper.Viper) (Config, error) {
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadConfig populates AppConfig or exits.
func LoadConfig() {
	cfg, err := Load(viper.GetViper())
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	AppConfig = cfg
}

// Validate rejects values that would otherwise fail late at request time.
func (c Config) Validate() error {
	switch c.DataSource {
	case SourceJSON, SourceMongo:
	case SourceZenoti:
		if c.ZenotiBaseURL == "" || c.ZenotiAPIKey == "" {
			return fmt.Errorf("DATA_SOURCE=zenoti requires ZENOTI_BASE_URL and ZENOTI_API_KEY")
		}
	default:
		return fmt.Errorf("unknown DATA_SOURCE %q", c.DataSource)
	}
	switch c.SearchPolicy {
	case "strict", "partial":
	default:
		return fmt.Errorf("unknown SEARCH_POLICY %q", c.SearchPolicy)
	}
	switch c.PaymentProvider {
	case "mock", "random":
	case "stripe":
		if c.StripeKey == "" {
			return fmt.Errorf("PAYMENT_PROVIDER=stripe requires STRIPE_KEY")
		}
	default:
		return fmt.Errorf("unknown PAYMENT_PROVIDER %q", c.PaymentProvider)
	}
	if c.SearchLimit <= 0 {
		return fmt.Errorf("SEARCH_LIMIT must be positive")
	}
	return nil
}

// PaymentLatency returns the simulated payment delay.
func (c Config) PaymentLatency() time.Duration {
	return time.Duration(c.PaymentLatencyMS) * time.Millisecond
}

// KioskDebounce returns the search debounce interval.
func (c Config) KioskDebounce() time.Duration {
	return time.Duration(c.KioskDebounceMS) * time.Millisecond
}

// AppointmentWindow returns how far ahead upcoming appointments are fetched.
func (c Config) AppointmentWindow() time.Duration {
	return time.Duration(c.AppointmentWindowHours) * time.Hour
}

func GetEnv() string {
	return AppConfig.Env
}

func IsProduction() bool {
	return GetEnv() == "production"
}
