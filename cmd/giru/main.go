package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/asgardlabs/giru/internal/activity"
	"github.com/asgardlabs/giru/internal/api"
	"github.com/asgardlabs/giru/internal/catalog"
	"github.com/asgardlabs/giru/internal/config"
	"github.com/asgardlabs/giru/internal/gateway"
	"github.com/asgardlabs/giru/internal/httputil"
	"github.com/asgardlabs/giru/internal/notifications"
	"github.com/asgardlabs/giru/internal/provider"
	"github.com/asgardlabs/giru/internal/provider/anthropic"
	"github.com/asgardlabs/giru/internal/provider/gemini"
	"github.com/asgardlabs/giru/internal/provider/ollama"
	"github.com/asgardlabs/giru/internal/provider/openaicompat"
	"github.com/asgardlabs/giru/internal/secrets"
	"github.com/asgardlabs/giru/internal/telemetry"
	"github.com/asgardlabs/giru/internal/usage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	setupLogger(cfg.LogLevel)

	slog.Info("starting giru", "addr", cfg.Addr, "version", "0.3.0")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTracing, err := telemetry.Init(ctx, "giru", cfg.OTLPEndpoint)
	if err != nil {
		slog.Error("failed to initialize telemetry", "error", err)
		os.Exit(1)
	}
	defer shutdownTracing(context.Background())

	if cfg.ProviderSecretsName != "" {
		store, err := secrets.NewAWSStore(ctx, cfg.AWSRegion)
		if err != nil {
			slog.Error("failed to create secrets store", "error", err)
			os.Exit(1)
		}
		keys, err := store.GetProviderKeys(ctx, cfg.ProviderSecretsName)
		if err != nil {
			slog.Error("failed to resolve provider keys", "error", err)
			os.Exit(1)
		}
		cfg.ApplyProviderKeys(keys)
		slog.Info("provider keys resolved from secrets manager", "secret", cfg.ProviderSecretsName)
	}

	httpClient := httputil.DefaultClient()

	adapters := map[string]provider.Adapter{
		"google":     gemini.New(cfg.GoogleAPIKey, httpClient),
		"anthropic":  anthropic.New(cfg.AnthropicAPIKey, httpClient),
		"openai":     openaicompat.NewOpenAI(cfg.OpenAIAPIKey, httpClient),
		"groq":       openaicompat.NewGroq(cfg.GroqAPIKey, httpClient),
		"together":   openaicompat.NewTogether(cfg.TogetherAPIKey, httpClient),
		"openrouter": openaicompat.NewOpenRouter(cfg.OpenRouterAPIKey, httpClient),
		"ollama":     ollama.New(cfg.OllamaBaseURL, httpClient),
	}
	for id, ad := range adapters {
		if ad.Available() {
			slog.Info("registered provider", "provider", id)
		}
	}

	var checkers []api.HealthChecker

	var recorder usage.Recorder
	var stats usage.StatsProvider
	switch {
	case cfg.DatabaseURL != "":
		pg, err := usage.NewPostgresRecorder(cfg.DatabaseURL)
		if err != nil {
			slog.Error("failed to connect to postgres", "error", err)
			os.Exit(1)
		}
		defer pg.Close()
		recorder, stats = pg, pg
		checkers = append(checkers, api.NewPostgresHealthChecker(pg.DB()))
		slog.Info("using postgres usage recorder")
	case cfg.UsageQueueURL != "":
		sqsRecorder, err := usage.NewSQSRecorder(ctx, cfg.AWSRegion, cfg.UsageQueueURL)
		if err != nil {
			slog.Error("failed to create sqs recorder", "error", err)
			os.Exit(1)
		}
		recorder = sqsRecorder
		slog.Info("using sqs usage recorder", "queue", cfg.UsageQueueURL)
	default:
		mem := usage.NewInMemoryRecorder()
		recorder, stats = mem, mem
		slog.Info("using in-memory usage recorder")
	}

	var publisher activity.Publisher
	if cfg.RedisURL != "" {
		redisPublisher, err := activity.NewRedisPublisher(cfg.RedisURL, cfg.ActivityChannel)
		if err != nil {
			slog.Error("failed to connect to redis", "error", err)
			os.Exit(1)
		}
		defer redisPublisher.Close()
		publisher = redisPublisher

		redisChecker, err := api.NewRedisHealthChecker(cfg.RedisURL)
		if err == nil {
			checkers = append(checkers, redisChecker)
		}
		slog.Info("using redis activity publisher", "channel", cfg.ActivityChannel)
	} else {
		publisher = activity.NewInMemoryPublisher()
		slog.Info("using in-memory activity publisher")
	}

	var notifier notifications.Notifier
	if cfg.SNSTopicArn != "" {
		snsNotifier, err := notifications.NewSNSNotifier(ctx, cfg.AWSRegion, cfg.SNSTopicArn)
		if err != nil {
			slog.Error("failed to create sns notifier", "error", err)
			os.Exit(1)
		}
		notifier = snsNotifier
		slog.Info("using sns notifier", "topic", cfg.SNSTopicArn)
	} else {
		notifier = notifications.NewInMemoryNotifier()
	}

	gw, err := gateway.New(gateway.Config{
		Catalog:  catalog.Default(),
		Adapters: adapters,
		Usage:    recorder,
		Activity: publisher,
		Notifier: notifier,
	})
	if err != nil {
		slog.Error("failed to build gateway", "error", err)
		os.Exit(1)
	}
	defer gw.Close()

	handler := api.NewHandler(api.HandlerConfig{
		Gateway:  gw,
		Stats:    stats,
		Checkers: checkers,
	})

	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		slog.Info("server listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}

	slog.Info("server stopped")
}

func setupLogger(level string) {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})
	slog.SetDefault(slog.New(handler))
}
