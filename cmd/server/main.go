// Package main is the entrypoint for the keyserver API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kiranshivaraju/keyserver/internal/api"
	"github.com/kiranshivaraju/keyserver/internal/api/handler"
	"github.com/kiranshivaraju/keyserver/internal/api/response"
	"github.com/kiranshivaraju/keyserver/internal/cache"
	"github.com/kiranshivaraju/keyserver/internal/config"
	"github.com/kiranshivaraju/keyserver/internal/keys"
	"github.com/kiranshivaraju/keyserver/internal/store"
)

const shutdownTimeout = 30 * time.Second

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := run(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load config, fail fast on invalid config
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	slog.Info("config loaded",
		"env", cfg.Server.Env,
		"database_driver", cfg.Database.Driver,
		"admin", cfg.Admin.String(),
		"buy_url_set", cfg.BuyURL != "",
	)
	if !cfg.Admin.Configured() {
		slog.Warn("ADMIN_KEY is not set; add, remove and table requests will fail")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Open the key store
	keyStore, closeStore, err := openStore(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer closeStore()

	// 3. Optional Redis cache
	keyCache, closeCache, err := openCache(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	defer closeCache()

	// 4. Build the service and router
	svc := keys.NewService(keyStore, keyCache, keys.NewAdminGate(cfg.Admin), cfg.BuyURL)

	deps := api.Dependencies{
		HealthHandler:  healthHandler(keyStore, keyCache),
		VerifyHandler:  handler.NewVerifyHandler(svc),
		AddHandler:     handler.NewAddHandler(svc),
		TableHandler:   handler.NewTableHandler(svc),
		RemoveHandler:  handler.NewRemoveHandler(svc),
		BuyLinkHandler: handler.NewBuyLinkHandler(svc),
	}

	router := api.NewRouter(deps)

	// 5. Start HTTP server
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		slog.Info("shutdown signal received, draining connections...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("server stopped gracefully")
	return nil
}

// openStore connects to the configured backend and returns it with its closer.
func openStore(ctx context.Context, cfg config.DatabaseConfig) (store.Store, func(), error) {
	switch cfg.Driver {
	case config.DriverSQLite:
		db, err := store.OpenSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite: %w", err)
		}
		slog.Info("database connected", "driver", cfg.Driver, "path", cfg.SQLitePath)
		return store.NewSQLiteStore(db), func() { store.CloseSQLite(db) }, nil
	default:
		pool, err := store.Connect(ctx, cfg)
		if err != nil {
			return nil, nil, fmt.Errorf("connect database: %w", err)
		}
		slog.Info("database connected", "driver", cfg.Driver)

		if err := store.RunMigrations(cfg.URL, cfg.MigrationsDir); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("run migrations: %w", err)
		}
		slog.Info("database migrations applied")
		return store.NewPostgresStore(pool), pool.Close, nil
	}
}

// openCache connects to Redis when REDIS_URL is set and falls back to a
// no-op cache otherwise.
func openCache(ctx context.Context, cfg config.RedisConfig) (cache.Cache, func(), error) {
	if cfg.URL == "" {
		slog.Info("redis not configured, caching disabled")
		return cache.NopCache{}, func() {}, nil
	}

	redisCache, err := cache.NewRedisCache(cfg.URL, cfg.CacheTTL)
	if err != nil {
		return nil, nil, fmt.Errorf("create redis cache: %w", err)
	}
	if err := redisCache.Ping(ctx); err != nil {
		redisCache.Close()
		return nil, nil, fmt.Errorf("ping redis: %w", err)
	}
	slog.Info("redis connected", "ttl", cfg.CacheTTL)
	return redisCache, closer(redisCache), nil
}

func closer(c io.Closer) func() {
	return func() {
		if err := c.Close(); err != nil {
			slog.Warn("close failed", "error", err)
		}
	}
}

// healthHandler checks database and cache connectivity.
func healthHandler(s store.Store, c cache.Cache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := map[string]string{
			"database": "ok",
			"cache":    "ok",
		}

		if err := s.Ping(r.Context()); err != nil {
			checks["database"] = "degraded"
		}
		if err := c.Ping(r.Context()); err != nil {
			checks["cache"] = "degraded"
		}

		status, code := "ok", http.StatusOK
		if checks["database"] != "ok" || checks["cache"] != "ok" {
			status, code = "degraded", http.StatusServiceUnavailable
		}

		response.JSON(w, code, map[string]any{
			"status":   status,
			"services": checks,
		})
	}
}
