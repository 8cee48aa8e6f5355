// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Command gateway is the entry point for the campuslink realtime relay.
//
// # Startup Sequence
//
//  1. Initialize structured logger.
//  2. Load configuration from environment variables.
//  3. Connect to PostgreSQL (pgxpool) and run migrations.
//  4. Connect to Redis and open the pub/sub bus.
//  5. Wire session, message, room and websocket handlers.
//  6. Start HTTP server with graceful shutdown.
//
// No business logic lives here. All wiring is explicit constructor injection.
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

	"github.com/taibuivan/campuslink/internal/api"
	"github.com/taibuivan/campuslink/internal/platform/config"
	"github.com/taibuivan/campuslink/internal/platform/constants"
	"github.com/taibuivan/campuslink/internal/platform/migration"
	pgstore "github.com/taibuivan/campuslink/internal/platform/postgres"
	redisstore "github.com/taibuivan/campuslink/internal/platform/redis"
	"github.com/taibuivan/campuslink/internal/relay/gateway"
	"github.com/taibuivan/campuslink/internal/relay/identity"
	"github.com/taibuivan/campuslink/internal/relay/message"
	"github.com/taibuivan/campuslink/internal/relay/room"
	"github.com/taibuivan/campuslink/internal/relay/session"
)

func main() {
	// ── 1. Logger ──────────────────────────────────────────────────────────
	log := newLogger(slog.LevelInfo)
	log.Info("gateway_initializing")

	// ── 2. Configuration ──────────────────────────────────────────────────
	cfg, err := config.LoadGateway()
	must(log, err, "load configuration")

	if cfg.Debug {
		log = newLogger(slog.LevelDebug)
		log.Debug("debug_logging_enabled")
	}

	log.Info("configuration_loaded",
		slog.String("environment", cfg.Environment),
		slog.String("port", cfg.ServerPort),
	)

	// Root context lives until shutdown; startup gets its own deadline.
	rootCtx, rootCancel := context.WithCancel(context.Background())
	defer rootCancel()

	startupCtx, startupCancel := context.WithTimeout(rootCtx, 30*time.Second)
	defer startupCancel()

	// ── 3. PostgreSQL ─────────────────────────────────────────────────────
	pool, err := pgstore.NewPool(startupCtx, cfg.DatabaseURL, log)
	must(log, err, "connect to postgres")
	defer func() {
		log.Info("closing_postgres_pool")
		pool.Close()
	}()

	must(log, migration.RunUp(cfg.DatabaseURL, cfg.MigrationPath, log), "run migrations")

	// ── 4. Redis ──────────────────────────────────────────────────────────
	rdb, err := redisstore.NewClient(startupCtx, cfg.RedisURL, redisstore.Options{}, log)
	must(log, err, "connect to redis")
	defer func() {
		log.Info("closing_redis_client")
		if cerr := rdb.Close(); cerr != nil {
			log.Error("redis_close_error", slog.Any("error", cerr))
		}
	}()

	bus := room.NewRedisBus(rootCtx, rdb, log)
	defer func() { _ = bus.Close() }()

	hub := room.NewHub(bus, log)
	go hub.Run(rootCtx)

	// ── 5. Domain Wiring ──────────────────────────────────────────────────
	identityClient := identity.NewClient(cfg.IdentityURL, cfg.IdentityTimeout)

	sessionService := session.NewService(session.NewRedisRepository(rdb), cfg.SessionTTL, log)
	messageService := message.NewService(message.NewPostgresRepository(pool), log)
	coordinator := room.NewCoordinator(room.NewRedisRepository(rdb), bus, cfg.RoomTTL, log).WithRoles(identityClient)

	realtime := gateway.New(identityClient, sessionService, messageService, coordinator, hub, gateway.Options{
		FrameRate:  cfg.FrameRateLimit,
		FrameBurst: cfg.FrameBurst,
		Origins:    cfg,
	}, log)

	liveness, readiness := api.NewHealthHandlers([]api.Check{
		{Name: "postgres", Ping: func(ctx context.Context) error { return pgstore.Ping(ctx, pool) }},
		{Name: "redis", Ping: func(ctx context.Context) error { return redisstore.Ping(ctx, rdb) }},
	}, log)

	// ── 6. HTTP Server ────────────────────────────────────────────────────
	server := api.NewServer(rootCtx, cfg.ServerPort, cfg, log, api.Handlers{
		Liveness:  liveness,
		Readiness: readiness,
		Sessions:  sessionService,
		Session:   session.NewHandler(sessionService, identityClient),
		Messages:  message.NewHandler(messageService),
		Rooms:     room.NewHandler(coordinator),
		Realtime:  realtime,
	})

	// ── 7. Graceful Shutdown ──────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)

	serverErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case sig := <-quit:
		log.Info("shutdown_signal_received", slog.String("signal", sig.String()))
	case err := <-serverErr:
		log.Error("server_startup_error", slog.Any("error", err))
	}

	shutdownTimeout := constants.ShutdownTimeout
	log.Info("shutting_down_server", slog.Duration("timeout", shutdownTimeout))

	if err := server.Shutdown(shutdownTimeout); err != nil {
		log.Error("shutdown_error", slog.Any("error", err))
		os.Exit(1)
	}

	log.Info("server_stopped_cleanly")
}

// newLogger builds the process logger and installs it as the default.
func newLogger(level slog.Level) *slog.Logger {
	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})).
		With(slog.String("app", "campuslink-gateway"))
	slog.SetDefault(log)
	return log
}

// must logs a structured fatal error and terminates the process if err is non-nil.
//
// It is limited to startup wiring. After startup, all errors are returned and
// handled explicitly.
func must(log *slog.Logger, err error, context string) {
	if err != nil {
		log.Error("startup_failure",
			slog.String("context", context),
			slog.Any("error", err),
		)
		os.Exit(1)
	}
}
