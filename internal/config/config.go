package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the newsletter service.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	App       AppConfig       `yaml:"app"`
	Email     EmailConfig     `yaml:"email"`
	Admin     AdminConfig     `yaml:"admin"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port int    `yaml:"port"`
	Host string `yaml:"host"`
}

// GetHost returns the listen host, with container detection: inside ECS the
// service must bind all interfaces regardless of what the file says.
func (c ServerConfig) GetHost() string {
	if os.Getenv("ECS_CONTAINER_METADATA_URI") != "" || os.Getenv("AWS_EXECUTION_ENV") != "" {
		return "0.0.0.0"
	}
	if host := os.Getenv("SERVER_HOST"); host != "" {
		return host
	}
	return c.Host
}

// Addr returns the host:port pair to listen on.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.GetHost(), c.Port)
}

// DatabaseConfig holds Postgres connection settings.
type DatabaseConfig struct {
	URL          string `yaml:"url"`
	MaxOpenConns int    `yaml:"max_open_conns"`
	MaxIdleConns int    `yaml:"max_idle_conns"`
}

// AppConfig holds application-level settings.
type AppConfig struct {
	// BaseURL is the public URL of this service; confirmation links in
	// outgoing email are built against it.
	BaseURL string `yaml:"base_url"`
}

// EmailConfig selects and configures the outbound mail provider.
type EmailConfig struct {
	// Provider is "postmark" or "ses".
	Provider string         `yaml:"provider"`
	Sender   string         `yaml:"sender"`
	Postmark PostmarkConfig `yaml:"postmark"`
	SES      SESConfig      `yaml:"ses"`
}

// PostmarkConfig holds Postmark-compatible HTTP API settings.
type PostmarkConfig struct {
	BaseURL        string `yaml:"base_url"`
	ServerToken    string `yaml:"server_token"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// Timeout returns the configured timeout as a duration.
func (c PostmarkConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// SESConfig holds AWS SES v2 API settings.
type SESConfig struct {
	Region         string `yaml:"region"`
	AccessKey      string `yaml:"access_key"`
	SecretKey      string `yaml:"secret_key"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// Timeout returns the configured timeout as a duration.
func (c SESConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// AdminConfig guards the newsletter publish endpoint.
type AdminConfig struct {
	// APIToken is compared (constant-time) against the bearer token on
	// POST /admin/newsletters. Credential storage and user management are
	// deliberately out of scope; one operator token is all there is.
	APIToken string `yaml:"api_token"`
}

// RateLimitConfig holds the Redis-backed subscribe rate limiter settings.
type RateLimitConfig struct {
	Enabled   bool   `yaml:"enabled"`
	RedisAddr string `yaml:"redis_addr"`
	PerMinute int    `yaml:"per_minute"`
}

// Load reads and parses the configuration file, applying defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 10
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.App.BaseURL == "" {
		cfg.App.BaseURL = fmt.Sprintf("http://%s:%d", cfg.Server.Host, cfg.Server.Port)
	}
	if cfg.Email.Provider == "" {
		cfg.Email.Provider = "postmark"
	}
	if cfg.Email.Postmark.BaseURL == "" {
		cfg.Email.Postmark.BaseURL = "https://api.postmarkapp.com"
	}
	if cfg.Email.Postmark.TimeoutSeconds == 0 {
		cfg.Email.Postmark.TimeoutSeconds = 10
	}
	if cfg.Email.SES.Region == "" {
		cfg.Email.SES.Region = "us-west-2"
	}
	if cfg.Email.SES.TimeoutSeconds == 0 {
		cfg.Email.SES.TimeoutSeconds = 10
	}
	if cfg.RateLimit.RedisAddr == "" {
		cfg.RateLimit.RedisAddr = "localhost:6379"
	}
	if cfg.RateLimit.PerMinute == 0 {
		cfg.RateLimit.PerMinute = 10
	}

	return &cfg, nil
}

// LoadFromEnv loads configuration with environment variable overrides.
// It loads a .env file (if present) first, so secrets can live in .env
// locally and in real env vars in deployment.
func LoadFromEnv(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		cfg.Database.URL = dbURL
	}
	if v := os.Getenv("APP_BASE_URL"); v != "" {
		cfg.App.BaseURL = v
	}
	if v := os.Getenv("EMAIL_PROVIDER"); v != "" {
		cfg.Email.Provider = v
	}
	if v := os.Getenv("EMAIL_SENDER"); v != "" {
		cfg.Email.Sender = v
	}
	if v := os.Getenv("POSTMARK_SERVER_TOKEN"); v != "" {
		cfg.Email.Postmark.ServerToken = v
	}
	if v := os.Getenv("POSTMARK_BASE_URL"); v != "" {
		cfg.Email.Postmark.BaseURL = v
	}
	if v := os.Getenv("AWS_SES_ACCESS_KEY"); v != "" {
		cfg.Email.SES.AccessKey = v
	}
	if v := os.Getenv("AWS_SES_SECRET_KEY"); v != "" {
		cfg.Email.SES.SecretKey = v
	}
	if v := os.Getenv("AWS_SES_REGION"); v != "" {
		cfg.Email.SES.Region = v
	}
	if v := os.Getenv("ADMIN_API_TOKEN"); v != "" {
		cfg.Admin.APIToken = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.RateLimit.RedisAddr = v
		cfg.RateLimit.Enabled = true
	}
	if v := os.Getenv("RATE_LIMIT_PER_MINUTE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.RateLimit.PerMinute = n
		}
	}

	return cfg, nil
}
