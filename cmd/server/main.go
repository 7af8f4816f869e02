package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/pauljones0/maodevaca/internal/ai"
	"github.com/pauljones0/maodevaca/internal/auth"
	"github.com/pauljones0/maodevaca/internal/config"
	"github.com/pauljones0/maodevaca/internal/deals"
	"github.com/pauljones0/maodevaca/internal/httpapi"
	"github.com/pauljones0/maodevaca/internal/metrics"
	"github.com/pauljones0/maodevaca/internal/moderation"
	"github.com/pauljones0/maodevaca/internal/notifier"
	"github.com/pauljones0/maodevaca/internal/preview"
	"github.com/pauljones0/maodevaca/internal/storage"
)

// backend is the persistence the server runs on: Firestore, or the
// unconfigured stand-in when no project is set.
type backend interface {
	deals.Store
	auth.ProfileStore
	Configured() bool
	Close() error
}

func main() {
	slog.Info("Starting Mão de Vaca API server...")
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Critical error loading configuration", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(cfg.NewLogger())

	ctx := context.Background()
	store := openStore(ctx, cfg)
	defer store.Close()

	var provider auth.Provider
	if cfg.FirebaseAPIKey != "" {
		itk, err := auth.NewIdentityToolkit(ctx, cfg.FirebaseAPIKey)
		if err != nil {
			slog.Error("Failed to initialize identity provider, sign-in disabled", "error", err)
		} else {
			provider = itk
		}
	}
	sessions := auth.NewSessions(cfg.SessionTTL)
	metrics.RegisterActiveSessions(prometheus.DefaultRegisterer, sessions.Len)
	authService := auth.NewService(provider, store, sessions, cfg.AppBaseURL)

	assistant, err := ai.NewClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, cfg.AIRequestsPerMinute)
	if err != nil {
		slog.Error("Failed to initialize assistant, using static fallback", "error", err)
		assistant, _ = ai.NewClient(ctx, "", "", cfg.AIRequestsPerMinute)
	}

	n := notifier.New(cfg.DiscordWebhookURL, cfg.AppBaseURL+"/admin")
	images := preview.New(cfg.PreviewDomains, preview.LoadConfig())
	repo := deals.New(store, n, images, cfg.AmazonAffiliateTag)
	workflow := moderation.New(repo)

	api := httpapi.New(repo, workflow, authService, assistant, httpapi.Options{
		AllowedOrigins: cfg.CORSAllowedOrigins,
		Configured:     store.Configured(),
	})

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      api.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown on SIGTERM/SIGINT
	idle := make(chan struct{})
	go func() {
		defer close(idle)
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
		sig := <-sigCh
		slog.Info("Received signal, shutting down gracefully...", "signal", sig)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("HTTP server shutdown error", "error", err)
		}
	}()

	slog.Info("Listening on port", "port", cfg.Port, "configured", store.Configured())
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Failed to listen and serve", "error", err)
		os.Exit(1)
	}
	<-idle
	repo.Wait()
	slog.Info("Server stopped.")
}

// openStore connects to Firestore. Without a project, or when the client
// cannot be created, the server still starts: reads come back empty and
// writes fail with a configuration error.
func openStore(ctx context.Context, cfg *config.Config) backend {
	if !cfg.Configured() {
		return storage.Unconfigured{}
	}
	client, err := storage.New(ctx, cfg.ProjectID)
	if err != nil {
		slog.Error("Failed to initialize Firestore client, running unconfigured", "error", err)
		return storage.Unconfigured{}
	}
	return client
}
