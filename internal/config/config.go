// Package config loads application configuration from an optional YAML file
// and environment variables. Environment variables win over the file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	// Server settings
	Port              string        `yaml:"port"`
	ReadTimeout       time.Duration `yaml:"read_timeout"`
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout"`
	WriteTimeout      time.Duration `yaml:"write_timeout"`
	IdleTimeout       time.Duration `yaml:"idle_timeout"`
	MaxHeaderBytes    int           `yaml:"max_header_bytes"`

	// Redis settings
	RedisURL      string `yaml:"redis_url"`
	RedisPoolSize int    `yaml:"redis_pool_size"`
	RedisMinIdle  int    `yaml:"redis_min_idle"`

	// Shutdown settings
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// Security settings
	RequireHTTPS bool `yaml:"require_https"`

	// Mail settings
	AllowEmail      bool   `yaml:"allow_email"`
	MailProvider    string `yaml:"mail_provider"` // one of: log, smtp
	SMTPAddr        string `yaml:"smtp_addr"`
	SMTPUsername    string `yaml:"smtp_username"`
	SMTPPassword    string `yaml:"smtp_password"`
	MailerFromEmail string `yaml:"mailer_from_email"`

	// UI link settings, used to build recipient-facing URLs in emails.
	UIHostname         string `yaml:"ui_hostname"`
	UIViewSecretURL    string `yaml:"ui_view_secret_url"`
	UIFulfilRequestURI string `yaml:"ui_fulfil_request_uri"`

	// Verification settings
	VerificationExpirySeconds int `yaml:"verification_expiry_seconds"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Port:              "8080",
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20, // 1 MB

		RedisURL:      "redis://localhost:6379/0",
		RedisPoolSize: 10,
		RedisMinIdle:  2,

		ShutdownTimeout: 5 * time.Second,

		RequireHTTPS: true,

		AllowEmail:      false,
		MailProvider:    "log",
		MailerFromEmail: "noreply@secretburner.local",

		UIHostname:         "http://localhost:8080",
		UIViewSecretURL:    "/view/",
		UIFulfilRequestURI: "/fulfil/",

		VerificationExpirySeconds: 900,
	}
}

// Load reads configuration and validates it. An optional YAML file named by
// CONFIG_FILE is applied over the defaults first, then environment
// variables.
func Load() (Config, error) {
	cfg := DefaultConfig()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file: %w", err)
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	if port := os.Getenv("PORT"); port != "" {
		if _, err := strconv.Atoi(port); err != nil {
			return fmt.Errorf("PORT must be a valid number: %w", err)
		}
		cfg.Port = port
	}

	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		cfg.RedisURL = redisURL
	}
	if poolSize := os.Getenv("REDIS_POOL_SIZE"); poolSize != "" {
		size, err := strconv.Atoi(poolSize)
		if err != nil || size < 1 {
			return errors.New("REDIS_POOL_SIZE must be a positive integer")
		}
		cfg.RedisPoolSize = size
	}
	if minIdle := os.Getenv("REDIS_MIN_IDLE"); minIdle != "" {
		idle, err := strconv.Atoi(minIdle)
		if err != nil || idle < 0 {
			return errors.New("REDIS_MIN_IDLE must be a non-negative integer")
		}
		cfg.RedisMinIdle = idle
	}

	if timeout := os.Getenv("SHUTDOWN_TIMEOUT"); timeout != "" {
		dur, err := time.ParseDuration(timeout)
		if err != nil {
			return fmt.Errorf("SHUTDOWN_TIMEOUT must be a valid duration: %w", err)
		}
		cfg.ShutdownTimeout = dur
	}

	if noHTTPS := os.Getenv("NO_HTTPS"); noHTTPS == "1" || noHTTPS == "true" {
		cfg.RequireHTTPS = false
	}

	if allowEmail := os.Getenv("ALLOW_EMAIL"); allowEmail == "1" || allowEmail == "true" {
		cfg.AllowEmail = true
	}
	if provider := os.Getenv("MAIL_PROVIDER"); provider != "" {
		cfg.MailProvider = provider
	}
	if addr := os.Getenv("SMTP_ADDR"); addr != "" {
		cfg.SMTPAddr = addr
	}
	if user := os.Getenv("SMTP_USERNAME"); user != "" {
		cfg.SMTPUsername = user
	}
	if pw := os.Getenv("SMTP_PASSWORD"); pw != "" {
		cfg.SMTPPassword = pw
	}
	if from := os.Getenv("MAILER_FROM_EMAIL"); from != "" {
		cfg.MailerFromEmail = from
	}

	if host := os.Getenv("UI_HOSTNAME"); host != "" {
		cfg.UIHostname = host
	}
	if uri := os.Getenv("UI_VIEW_SECRET_URL"); uri != "" {
		cfg.UIViewSecretURL = uri
	}
	if uri := os.Getenv("UI_FULFIL_REQUEST_URI"); uri != "" {
		cfg.UIFulfilRequestURI = uri
	}

	if expiry := os.Getenv("EMAIL_VERIFICATION_EXPIRY_SECONDS"); expiry != "" {
		seconds, err := strconv.Atoi(expiry)
		if err != nil || seconds < 1 {
			return errors.New("EMAIL_VERIFICATION_EXPIRY_SECONDS must be a positive integer")
		}
		cfg.VerificationExpirySeconds = seconds
	}

	return nil
}

func (c Config) validate() error {
	switch c.MailProvider {
	case "log", "smtp":
	default:
		return fmt.Errorf("unsupported mail provider %q", c.MailProvider)
	}
	if c.MailProvider == "smtp" && c.SMTPAddr == "" {
		return errors.New("SMTP_ADDR is required for the smtp mail provider")
	}
	if c.VerificationExpirySeconds < 1 {
		return errors.New("verification expiry must be a positive number of seconds")
	}
	return nil
}

// ListenAddr returns the address string for the HTTP server.
func (c Config) ListenAddr() string {
	return ":" + c.Port
}
