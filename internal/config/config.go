// Package config provides configuration loading for the Weatherapp API.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Stripe    StripeConfig    `mapstructure:"stripe"`
	Weather   WeatherConfig   `mapstructure:"weather"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port         int           `mapstructure:"port"`
	Host         string        `mapstructure:"host"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	Environment  string        `mapstructure:"environment"` // dev, staging, prod
}

// IsProduction reports whether the server runs in production mode.
func (c ServerConfig) IsProduction() bool {
	return c.Environment == "prod"
}

// DatabaseConfig holds PostgreSQL configuration.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Database        string        `mapstructure:"database"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// DSN returns the PostgreSQL connection string.
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// URL returns the PostgreSQL URL used by the migration driver.
func (c DatabaseConfig) URL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Database, c.SSLMode,
	)
}

// RedisConfig holds Redis configuration.
type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Addr returns the Redis address string.
func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// AuthConfig holds session and Google sign-in configuration.
type AuthConfig struct {
	SessionSecret     string        `mapstructure:"session_secret"`
	SessionExpiry     time.Duration `mapstructure:"session_expiry"`
	OAuthGoogleID     string        `mapstructure:"oauth_google_id"`
	OAuthGoogleSecret string        `mapstructure:"oauth_google_secret"`
	OAuthCallbackURL  string        `mapstructure:"oauth_callback_url"`
	AppURL            string        `mapstructure:"app_url"`
}

// StripeConfig holds payment provider configuration.
type StripeConfig struct {
	SecretKey      string `mapstructure:"secret_key"`
	PublishableKey string `mapstructure:"publishable_key"`
	WebhookSecret  string `mapstructure:"webhook_secret"`
	PremiumPriceID string `mapstructure:"premium_price_id"`
}

// WeatherConfig holds OpenWeatherMap client configuration.
type WeatherConfig struct {
	APIKey         string        `mapstructure:"api_key"`
	BaseURL        string        `mapstructure:"base_url"`
	HistoryBaseURL string        `mapstructure:"history_base_url"`
	Units          string        `mapstructure:"units"`
	Timeout        time.Duration `mapstructure:"timeout"`
	CacheTTL       time.Duration `mapstructure:"cache_ttl"`
	MaxConcurrency int           `mapstructure:"max_concurrency"`
	HistoryDays    int           `mapstructure:"history_days"`
}

// RateLimitConfig holds API rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerMinute int `mapstructure:"requests_per_minute"`
	BurstSize         int `mapstructure:"burst_size"`
}

// Load reads configuration from a .env file, config files and environment variables.
func Load() (*Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/weatherapp")

	v.SetEnvPrefix("WEATHERAPP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Keys without defaults are invisible to AutomaticEnv during Unmarshal.
	for _, key := range []string{
		"auth.session_secret",
		"auth.oauth_google_id",
		"auth.oauth_google_secret",
		"stripe.secret_key",
		"stripe.publishable_key",
		"stripe.webhook_secret",
		"stripe.premium_price_id",
		"weather.api_key",
	} {
		_ = v.BindEnv(key)
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate rejects configurations the server cannot run with.
func (c *Config) Validate() error {
	if c.Server.IsProduction() && len(c.Auth.SessionSecret) < 32 {
		return fmt.Errorf("auth.session_secret must be at least 32 bytes in production")
	}
	if c.Weather.MaxConcurrency < 1 {
		return fmt.Errorf("weather.max_concurrency must be positive")
	}
	if c.Weather.HistoryDays < 0 || c.Weather.HistoryDays > 5 {
		return fmt.Errorf("weather.history_days must be between 0 and 5")
	}
	return nil
}

// setDefaults configures default values for all settings.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.environment", "dev")

	// Database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "weatherapp")
	v.SetDefault("database.password", "weatherapp")
	v.SetDefault("database.database", "weatherapp")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "5m")

	// Redis defaults
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	// Auth defaults
	v.SetDefault("auth.session_secret", "dev-session-secret-change-me-in-prod")
	v.SetDefault("auth.session_expiry", "1h")
	v.SetDefault("auth.oauth_callback_url", "http://localhost:8080")
	v.SetDefault("auth.app_url", "http://localhost:3000")

	// Weather defaults
	v.SetDefault("weather.base_url", "https://api.openweathermap.org/data/2.5")
	v.SetDefault("weather.history_base_url", "https://api.openweathermap.org/data/3.0")
	v.SetDefault("weather.units", "metric")
	v.SetDefault("weather.timeout", "10s")
	v.SetDefault("weather.cache_ttl", "10m")
	v.SetDefault("weather.max_concurrency", 8)
	v.SetDefault("weather.history_days", 5)

	// Rate limit defaults
	v.SetDefault("ratelimit.requests_per_minute", 120)
	v.SetDefault("ratelimit.burst_size", 20)
}
