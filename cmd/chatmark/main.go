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

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/MikeSquared-Agency/chatmark/internal/api"
	"github.com/MikeSquared-Agency/chatmark/internal/config"
	"github.com/MikeSquared-Agency/chatmark/internal/detector"
	"github.com/MikeSquared-Agency/chatmark/internal/export"
	"github.com/MikeSquared-Agency/chatmark/internal/hermes"
	"github.com/MikeSquared-Agency/chatmark/internal/jump"
	"github.com/MikeSquared-Agency/chatmark/internal/session"
	"github.com/MikeSquared-Agency/chatmark/internal/settings"
	"github.com/MikeSquared-Agency/chatmark/internal/store"
	"github.com/MikeSquared-Agency/chatmark/internal/tracker"
)

func main() {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	cfg := config.Load()
	setupLogging(cfg.LogLevel)

	slog.Info("chatmark starting", "port", cfg.Port)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Settings storage
	var kv settings.KV
	if cfg.DatabaseURL != "" {
		db, err := store.New(ctx, cfg.DatabaseURL)
		if err != nil {
			slog.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		if err := db.Migrate(ctx); err != nil {
			slog.Error("failed to migrate database", "error", err)
			os.Exit(1)
		}
		kv = db
		slog.Info("database connected")
	} else {
		kv = settings.NewMemoryKV()
		slog.Warn("DATABASE_URL not set, settings are kept in memory")
	}
	cfgService := settings.New(kv, slog.Default())

	// Jump history
	var history func(tabID string) jump.History
	if cfg.RedisURL != "" {
		rdb, err := jump.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			slog.Error("failed to connect to redis", "error", err)
			os.Exit(1)
		}
		defer rdb.Close()
		history = redisHistory(rdb)
		slog.Info("redis connected")
	} else {
		slog.Warn("REDIS_URL not set, jump history is kept in memory")
	}

	deps := session.Deps{
		Registry:         detector.Default(slog.Default()),
		Settings:         cfgService,
		Exporter:         export.NewWriter(cfg.ExportDir),
		History:          history,
		ClipboardSubject: cfg.ClipboardSubject,
		ClipboardTimeout: cfg.ClipboardTimeout,
		Tracker: tracker.Options{
			PollInterval: cfg.PollInterval,
			SettleDelay:  cfg.SettleDelay,
			Debounce:     cfg.Debounce,
		},
		Logger: slog.Default(),
	}

	// NATS/Hermes (optional: without it there are no notifications and the
	// clipboard goes through the page command queue only)
	var hermesClient *hermes.Client
	if cfg.NatsURL != "" {
		c, err := hermes.NewClient(ctx, cfg.NatsURL, cfg.NatsToken, slog.Default())
		if err != nil {
			slog.Warn("failed to connect to NATS, running without notifications", "error", err)
		} else {
			hermesClient = c
			defer hermesClient.Close()
			deps.Publisher = hermesClient
			deps.Bridge = hermesClient
			slog.Info("NATS connected", "url", cfg.NatsURL)
		}
	}

	mgr := session.NewManager(deps)

	// Tab requests over NATS, alongside the HTTP rpc route
	if hermesClient != nil {
		if err := hermesClient.Reply(hermes.SubjectRPC, mgr.ReplyHandler(10*time.Second)); err != nil {
			slog.Warn("failed to serve rpc over NATS", "error", err)
		}
	}

	// HTTP API
	srv := api.NewServer(cfg.Port, cfg.APIToken, mgr, cfgService, slog.Default())
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server error", "error", err)
		}
	}()

	// Announce registration
	if hermesClient != nil {
		if err := hermesClient.Publish(hermes.SubjectRegistered, map[string]any{
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"port":      cfg.Port,
			"mode":      "tracking",
		}); err != nil {
			slog.Warn("failed to publish registration", "error", err)
		}
	}

	slog.Info("chatmark ready", "port", cfg.Port)

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	slog.Info("shutting down")

	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Warn("HTTP shutdown", "error", err)
	}
	mgr.Shutdown()
	cancel()
	slog.Info("chatmark stopped")
}

func redisHistory(rdb *redis.Client) func(tabID string) jump.History {
	return func(tabID string) jump.History {
		return jump.NewRedisHistory(rdb, tabID, jump.HistoryLimit)
	}
}

func setupLogging(level string) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(handler))
}
