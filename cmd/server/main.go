package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonboulle/clockwork"
	goredis "github.com/redis/go-redis/v9"

	"github.com/refty/hamcounter/internal/adapter/httpserver"
	"github.com/refty/hamcounter/internal/adapter/line"
	"github.com/refty/hamcounter/internal/adapter/metrics"
	"github.com/refty/hamcounter/internal/adapter/postgres"
	"github.com/refty/hamcounter/internal/adapter/redis"
	"github.com/refty/hamcounter/internal/adapter/websocket"
	"github.com/refty/hamcounter/internal/app"
	"github.com/refty/hamcounter/internal/domain"
	"github.com/refty/hamcounter/internal/platform/config"
	"github.com/refty/hamcounter/internal/platform/logging"
	"github.com/refty/hamcounter/internal/platform/retry"
)

const (
	connectTimeout  = 10 * time.Second
	shutdownTimeout = 10 * time.Second
)

func setupConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		// Use log before slog is initialized
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

// setupDB retries the initial connection a few times so the server can start
// alongside its database container.
func setupDB(ctx context.Context, cfg *config.Config, clock clockwork.Clock, m *metrics.DBMetrics) *pgxpool.Pool {
	policy := retry.Policy{
		MaxAttempts:    5,
		InitialBackoff: time.Second,
		MaxBackoff:     8 * time.Second,
		Clock:          clock,
		OnRetry: func(attempt int, err error, backoff time.Duration) {
			slog.Warn("Database not reachable, retrying", "attempt", attempt, "backoff", backoff, "error", err)
		},
	}
	pool, err := retry.Do(ctx, policy, retry.Always, func(ctx context.Context) (*pgxpool.Pool, error) {
		ctx, cancel := context.WithTimeout(ctx, connectTimeout)
		defer cancel()
		return postgres.Connect(ctx, cfg.DatabaseURL, postgres.NewMetricsTracer(m))
	})
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}

	if err := postgres.RunMigrationsWithLock(ctx, pool); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}

	return pool
}

// setupRedis returns nil when no REDIS_URL is configured.
func setupRedis(ctx context.Context, cfg *config.Config, m *metrics.RedisMetrics) *goredis.Client {
	if cfg.RedisURL == "" {
		slog.Info("REDIS_URL not set, today's count is not cached")
		return nil
	}
	client, err := redis.NewClient(ctx, cfg.RedisURL, m)
	if err != nil {
		slog.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	return client
}

func healthChecks(pool *pgxpool.Pool, rdb *goredis.Client, listener *postgres.Listener) []httpserver.HealthCheck {
	checks := []httpserver.HealthCheck{
		{Name: "postgres", Check: pool.Ping},
		{Name: "change_feed", Check: listener.Check},
	}
	if rdb != nil {
		checks = append(checks, httpserver.HealthCheck{
			Name:  "redis",
			Check: func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
		})
	}
	return checks
}

func main() {
	clock := clockwork.NewRealClock()

	cfg := setupConfig()

	logging.InitLogger(cfg.LogLevel, cfg.LogFormat)
	slog.Info("Application starting", "env", cfg.AppEnv, "port", cfg.Port, "timezone", cfg.Timezone)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry := metrics.NewRegistry()
	m := metrics.NewSet(registry)

	pool := setupDB(ctx, cfg, clock, m.DB)
	defer pool.Close()

	var cache domain.CountCache
	rdb := setupRedis(ctx, cfg, m.Redis)
	if rdb != nil {
		defer func() { _ = rdb.Close() }()
		cache = redis.NewCountCache(rdb, cfg.CountCacheTTL, m.Cache)
	}

	runRepo := postgres.NewRunRepo(pool)
	sprintRepo := postgres.NewSprintRepo(pool)

	counter := app.NewDailyCounter(runRepo, cache, cfg.Location(), clock)
	appSvc := app.NewService(runRepo, sprintRepo, counter, clock)

	hub := websocket.NewHub(websocket.HubConfig{
		Counter:           counter,
		Clock:             clock,
		HeartbeatInterval: cfg.HeartbeatInterval,
		MaxClients:        cfg.MaxWebSocketConnections,
		Metrics:           m.Realtime,
	})

	if !cfg.AlertsEnabled() {
		slog.Info("LINE_ACCESS_TOKEN not set, activity alerts are disabled")
	}
	alerter := app.NewAlerter(app.AlerterConfig{
		Runs:         runRepo,
		Notifier:     line.NewClient(cfg.LineAPIURL, cfg.LineAccessToken),
		Clock:        clock,
		Gap:          cfg.AlertGap,
		DashboardURL: cfg.DashboardURL,
		Metrics:      m.Alert,
	})
	dispatcher := app.NewDispatcher(counter, hub, alerter, clock, m.Feed)
	listener := postgres.NewListener(cfg.DatabaseURL, clock, m.Feed)

	var background sync.WaitGroup
	background.Add(2)
	go func() {
		defer background.Done()
		if err := listener.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("Change listener stopped", "error", err)
		}
	}()
	go func() {
		defer background.Done()
		if err := dispatcher.Run(ctx, listener); err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("Dispatcher stopped", "error", err)
		}
	}()

	srv := httpserver.NewServer(cfg, appSvc, httpserver.Options{
		WebsocketHandler: websocket.NewHandler(hub, websocket.NewCheckOrigin(cfg.Origins())),
		HTTPMetrics:      m.HTTP,
		Registry:         registry,
		HealthChecks:     healthChecks(pool, rdb, listener),
	})

	serverErr := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	exitCode := 0
	select {
	case <-ctx.Done():
		slog.Info("Shutdown signal received, cleaning up...")
	case err := <-serverErr:
		slog.Error("Server error", "error", err)
		exitCode = 1
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server shutdown error", "error", err)
	}

	hub.Stop()
	stop()
	background.Wait()

	slog.Info("Shutdown complete")
	if exitCode != 0 {
		pool.Close()
		os.Exit(exitCode)
	}
}
