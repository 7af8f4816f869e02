package config

import (
	"log/slog"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	t.Setenv("GOOGLE_CLOUD_PROJECT", "test-project")
	t.Setenv("FIREBASE_API_KEY", "fb-key")
	t.Setenv("DISCORD_WEBHOOK_URL", "https://test.webhook")
	t.Setenv("PORT", "9090")
	t.Setenv("AMAZON_AFFILIATE_TAG", "test-tag-20")
	t.Setenv("SESSION_TTL", "")
	t.Setenv("APP_BASE_URL", "")
	t.Setenv("CORS_ALLOWED_ORIGINS", "")
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("LOG_FORMAT", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned unexpected error: %v", err)
	}

	if cfg.ProjectID != "test-project" {
		t.Errorf("Expected test-project, got %s", cfg.ProjectID)
	}
	if !cfg.Configured() {
		t.Error("Expected Configured() to be true with a project ID")
	}
	if cfg.DiscordWebhookURL != "https://test.webhook" {
		t.Errorf("Expected https://test.webhook, got %s", cfg.DiscordWebhookURL)
	}
	if cfg.Port != "9090" {
		t.Errorf("Expected 9090, got %s", cfg.Port)
	}
	if cfg.AmazonAffiliateTag != "test-tag-20" {
		t.Errorf("Expected test-tag-20, got %s", cfg.AmazonAffiliateTag)
	}
	if cfg.SessionTTL != 24*time.Hour {
		t.Errorf("Expected default 24h, got %s", cfg.SessionTTL)
	}
	if cfg.AppBaseURL != "http://localhost:9090" {
		t.Errorf("Expected default base URL on the configured port, got %s", cfg.AppBaseURL)
	}
	if len(cfg.CORSAllowedOrigins) != 1 || cfg.CORSAllowedOrigins[0] != cfg.AppBaseURL {
		t.Errorf("Expected CORS origins to default to the base URL, got %v", cfg.CORSAllowedOrigins)
	}
	if cfg.LogLevel != slog.LevelInfo || cfg.LogFormat != "json" {
		t.Errorf("Expected info/json logging defaults, got %v/%s", cfg.LogLevel, cfg.LogFormat)
	}
}

func TestLoad_MissingProjectIDRunsUnconfigured(t *testing.T) {
	t.Setenv("GOOGLE_CLOUD_PROJECT", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() should not fail without a project: %v", err)
	}
	if cfg.Configured() {
		t.Error("Configured() should be false without GOOGLE_CLOUD_PROJECT")
	}
}

func TestLoad_DefaultAffiliateTag(t *testing.T) {
	t.Setenv("AMAZON_AFFILIATE_TAG", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned unexpected error: %v", err)
	}
	if cfg.AmazonAffiliateTag != "maodevaca-20" {
		t.Errorf("Expected default affiliate tag 'maodevaca-20', got %s", cfg.AmazonAffiliateTag)
	}
}

func TestLoad_InvalidSessionTTL(t *testing.T) {
	t.Setenv("SESSION_TTL", "not-a-duration")

	if _, err := Load(); err == nil {
		t.Error("Load() should return error for invalid SESSION_TTL")
	}
}

func TestLoad_InvalidAIRate(t *testing.T) {
	t.Setenv("AI_REQUESTS_PER_MINUTE", "lots")

	if _, err := Load(); err == nil {
		t.Error("Load() should return error for invalid AI_REQUESTS_PER_MINUTE")
	}
}

func TestLoad_InvalidLogFormat(t *testing.T) {
	t.Setenv("LOG_FORMAT", "xml")

	if _, err := Load(); err == nil {
		t.Error("Load() should return error for invalid LOG_FORMAT")
	}
}

func TestLoad_PreviewDomains(t *testing.T) {
	t.Setenv("PREVIEW_ALLOWED_DOMAINS", "amazon.com.br, kabum.com.br ,")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned unexpected error: %v", err)
	}
	want := []string{"amazon.com.br", "kabum.com.br"}
	if len(cfg.PreviewDomains) != len(want) {
		t.Fatalf("Expected %v, got %v", want, cfg.PreviewDomains)
	}
	for i := range want {
		if cfg.PreviewDomains[i] != want[i] {
			t.Errorf("PreviewDomains[%d] = %s, want %s", i, cfg.PreviewDomains[i], want[i])
		}
	}
}

func TestLoad_DebugTextLogging(t *testing.T) {
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "TEXT")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned unexpected error: %v", err)
	}
	if cfg.LogLevel != slog.LevelDebug {
		t.Errorf("Expected debug level, got %v", cfg.LogLevel)
	}
	if cfg.LogFormat != "text" {
		t.Errorf("Expected text format, got %s", cfg.LogFormat)
	}
	if cfg.NewLogger() == nil {
		t.Error("NewLogger() returned nil")
	}
}
