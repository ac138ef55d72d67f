package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "8080" {
		t.Errorf("Port = %q, want %q", cfg.Port, "8080")
	}
	if !cfg.RequireHTTPS {
		t.Error("expected HTTPS to be required by default")
	}
	if cfg.AllowEmail {
		t.Error("expected email to be disabled by default")
	}
	if cfg.MailProvider != "log" {
		t.Errorf("MailProvider = %q, want %q", cfg.MailProvider, "log")
	}
	if cfg.VerificationExpirySeconds != 900 {
		t.Errorf("VerificationExpirySeconds = %d, want 900", cfg.VerificationExpirySeconds)
	}
	if cfg.ListenAddr() != ":8080" {
		t.Errorf("ListenAddr = %q, want %q", cfg.ListenAddr(), ":8080")
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9999")
	t.Setenv("REDIS_URL", "redis://example.com:6379/1")
	t.Setenv("REDIS_POOL_SIZE", "25")
	t.Setenv("SHUTDOWN_TIMEOUT", "30s")
	t.Setenv("NO_HTTPS", "1")
	t.Setenv("ALLOW_EMAIL", "true")
	t.Setenv("UI_HOSTNAME", "https://ui.example.com")
	t.Setenv("EMAIL_VERIFICATION_EXPIRY_SECONDS", "600")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "9999" {
		t.Errorf("Port = %q, want %q", cfg.Port, "9999")
	}
	if cfg.RedisURL != "redis://example.com:6379/1" {
		t.Errorf("RedisURL = %q", cfg.RedisURL)
	}
	if cfg.RedisPoolSize != 25 {
		t.Errorf("RedisPoolSize = %d, want 25", cfg.RedisPoolSize)
	}
	if cfg.ShutdownTimeout != 30*time.Second {
		t.Errorf("ShutdownTimeout = %v, want 30s", cfg.ShutdownTimeout)
	}
	if cfg.RequireHTTPS {
		t.Error("expected NO_HTTPS to disable the HTTPS requirement")
	}
	if !cfg.AllowEmail {
		t.Error("expected ALLOW_EMAIL to enable email")
	}
	if cfg.UIHostname != "https://ui.example.com" {
		t.Errorf("UIHostname = %q", cfg.UIHostname)
	}
	if cfg.VerificationExpirySeconds != 600 {
		t.Errorf("VerificationExpirySeconds = %d, want 600", cfg.VerificationExpirySeconds)
	}
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	raw := []byte("port: \"7070\"\nredis_pool_size: 42\nmail_provider: smtp\nsmtp_addr: mail.example.com:587\n")
	if err := os.WriteFile(path, raw, 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	t.Setenv("CONFIG_FILE", path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "7070" {
		t.Errorf("Port = %q, want %q", cfg.Port, "7070")
	}
	if cfg.RedisPoolSize != 42 {
		t.Errorf("RedisPoolSize = %d, want 42", cfg.RedisPoolSize)
	}
	if cfg.SMTPAddr != "mail.example.com:587" {
		t.Errorf("SMTPAddr = %q", cfg.SMTPAddr)
	}

	// Environment still wins over the file.
	t.Setenv("PORT", "7071")
	cfg, err = Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "7071" {
		t.Errorf("Port = %q, want %q", cfg.Port, "7071")
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"bad port", "PORT", "not-a-number"},
		{"bad pool size", "REDIS_POOL_SIZE", "0"},
		{"bad min idle", "REDIS_MIN_IDLE", "-1"},
		{"bad shutdown timeout", "SHUTDOWN_TIMEOUT", "soon"},
		{"unknown mail provider", "MAIL_PROVIDER", "pigeon"},
		{"bad verification expiry", "EMAIL_VERIFICATION_EXPIRY_SECONDS", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			if _, err := Load(); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestValidateSMTPNeedsAddr(t *testing.T) {
	t.Setenv("MAIL_PROVIDER", "smtp")
	if _, err := Load(); err == nil {
		t.Error("expected an error when smtp has no address")
	}
}
