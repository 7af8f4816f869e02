package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ProjectID           string
	FirebaseAPIKey      string
	GeminiAPIKey        string
	GeminiModel         string
	DiscordWebhookURL   string
	Port                string
	AppBaseURL          string
	AmazonAffiliateTag  string
	SessionTTL          time.Duration
	AIRequestsPerMinute int
	PreviewDomains      []string
	CORSAllowedOrigins  []string
	LogLevel            slog.Level
	LogFormat           string
}

// Configured reports whether a hosted data store is available.
func (c *Config) Configured() bool {
	return c.ProjectID != ""
}

var defaultPreviewDomains = []string{
	"amazon.com.br",
	"mercadolivre.com.br",
	"aliexpress.com",
	"shopee.com.br",
	"magazineluiza.com.br",
	"kabum.com.br",
}

// Load reads configuration from the environment. A .env file in the working
// directory is applied first when present; real environment variables win.
func Load() (*Config, error) {
	if err := godotenv.Load(); err == nil {
		slog.Info("Loaded environment from .env file")
	}

	projectID := os.Getenv("GOOGLE_CLOUD_PROJECT")
	if projectID == "" {
		slog.Warn("GOOGLE_CLOUD_PROJECT not set, running without a data store")
	}

	firebaseAPIKey := os.Getenv("FIREBASE_API_KEY")
	if firebaseAPIKey == "" {
		slog.Warn("FIREBASE_API_KEY not set, sign-in will be unavailable")
	}

	geminiAPIKey := os.Getenv("GEMINI_API_KEY")
	if geminiAPIKey == "" {
		slog.Warn("GEMINI_API_KEY not set, assistant will return the static fallback")
	}

	geminiModel := os.Getenv("GEMINI_MODEL")
	if geminiModel == "" {
		geminiModel = "gemini-2.5-flash"
	}

	discordWebhookURL := os.Getenv("DISCORD_WEBHOOK_URL")
	if discordWebhookURL == "" {
		slog.Warn("DISCORD_WEBHOOK_URL not set, moderator notifications will be skipped")
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
		slog.Info("Defaulting to port", "port", port)
	}

	appBaseURL := os.Getenv("APP_BASE_URL")
	if appBaseURL == "" {
		appBaseURL = "http://localhost:" + port
	}

	amazonAffiliateTag := os.Getenv("AMAZON_AFFILIATE_TAG")
	if amazonAffiliateTag == "" {
		amazonAffiliateTag = "maodevaca-20"
	}

	sessionTTLStr := os.Getenv("SESSION_TTL")
	if sessionTTLStr == "" {
		sessionTTLStr = "24h"
	}
	sessionTTL, err := time.ParseDuration(sessionTTLStr)
	if err != nil {
		return nil, fmt.Errorf("invalid SESSION_TTL %q: %w", sessionTTLStr, err)
	}

	aiRequestsPerMinute := 10
	if v := os.Getenv("AI_REQUESTS_PER_MINUTE"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 0 {
			return nil, fmt.Errorf("invalid AI_REQUESTS_PER_MINUTE %q", v)
		}
		aiRequestsPerMinute = parsed
	}

	previewDomains := splitList(os.Getenv("PREVIEW_ALLOWED_DOMAINS"))
	if len(previewDomains) == 0 {
		previewDomains = defaultPreviewDomains
	}

	corsOrigins := splitList(os.Getenv("CORS_ALLOWED_ORIGINS"))
	if len(corsOrigins) == 0 {
		corsOrigins = []string{appBaseURL}
	}

	logLevel := slog.LevelInfo
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		if err := logLevel.UnmarshalText([]byte(v)); err != nil {
			return nil, fmt.Errorf("invalid LOG_LEVEL %q: %w", v, err)
		}
	}

	logFormat := strings.ToLower(os.Getenv("LOG_FORMAT"))
	if logFormat == "" {
		logFormat = "json"
	}
	if logFormat != "json" && logFormat != "text" {
		return nil, fmt.Errorf("invalid LOG_FORMAT %q: want json or text", logFormat)
	}

	return &Config{
		ProjectID:           projectID,
		FirebaseAPIKey:      firebaseAPIKey,
		GeminiAPIKey:        geminiAPIKey,
		GeminiModel:         geminiModel,
		DiscordWebhookURL:   discordWebhookURL,
		Port:                port,
		AppBaseURL:          appBaseURL,
		AmazonAffiliateTag:  amazonAffiliateTag,
		SessionTTL:          sessionTTL,
		AIRequestsPerMinute: aiRequestsPerMinute,
		PreviewDomains:      previewDomains,
		CORSAllowedOrigins:  corsOrigins,
		LogLevel:            logLevel,
		LogFormat:           logFormat,
	}, nil
}

// NewLogger builds the process logger from the configured level and format.
func (c *Config) NewLogger() *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.LogLevel}
	if c.LogFormat == "text" {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
