// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Command queue is the entry point for the campuslink task queue.
//
// # Startup Sequence
//
//  1. Initialize structured logger.
//  2. Load configuration and the downstream service registry.
//  3. Connect to Redis and bind the task stream.
//  4. Wire the service authenticator, ingress and task handlers.
//  5. Start the consumer loop and the HTTP server with graceful shutdown.
//
// Ingress and consumer can be disabled independently; /health and /ready are
// always served.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/taibuivan/campuslink/internal/api"
	"github.com/taibuivan/campuslink/internal/platform/config"
	"github.com/taibuivan/campuslink/internal/platform/constants"
	redisstore "github.com/taibuivan/campuslink/internal/platform/redis"
	"github.com/taibuivan/campuslink/internal/platform/sec"
	"github.com/taibuivan/campuslink/internal/queue/consumer"
	"github.com/taibuivan/campuslink/internal/queue/dispatch"
	"github.com/taibuivan/campuslink/internal/queue/ingress"
	"github.com/taibuivan/campuslink/internal/queue/serviceauth"
	"github.com/taibuivan/campuslink/internal/queue/stream"
)

func main() {
	// ── 1. Logger ──────────────────────────────────────────────────────────
	log := newLogger(slog.LevelInfo)
	log.Info("queue_initializing")

	// ── 2. Configuration ──────────────────────────────────────────────────
	cfg, err := config.LoadQueue()
	must(log, err, "load configuration")

	if cfg.Debug {
		log = newLogger(slog.LevelDebug)
		log.Debug("debug_logging_enabled")
	}

	registry, err := config.LoadRegistry(cfg)
	must(log, err, "load downstream registry")

	consumerName := cfg.ConsumerName
	if consumerName == "" {
		consumerName = defaultConsumerName()
	}

	log.Info("configuration_loaded",
		slog.String("environment", cfg.Environment),
		slog.String("port", cfg.ServerPort),
		slog.Bool("ingress", cfg.RunIngress),
		slog.Bool("consumer", cfg.RunConsumer),
		slog.String("consumer_name", consumerName),
		slog.Int("downstream_services", len(registry)),
	)

	rootCtx, rootCancel := context.WithCancel(context.Background())
	defer rootCancel()

	startupCtx, startupCancel := context.WithTimeout(rootCtx, 30*time.Second)
	defer startupCancel()

	// ── 3. Redis & Stream ─────────────────────────────────────────────────
	rdb, err := redisstore.NewClient(startupCtx, cfg.RedisURL, redisstore.Options{BlockTimeout: cfg.BlockTimeout}, log)
	must(log, err, "connect to redis")
	defer func() {
		log.Info("closing_redis_client")
		if cerr := rdb.Close(); cerr != nil {
			log.Error("redis_close_error", slog.Any("error", cerr))
		}
	}()

	tasks := stream.New(rdb, stream.Options{
		Stream:     cfg.StreamName,
		MaxLen:     cfg.StreamMaxLen,
		Group:      cfg.ConsumerGroup,
		Consumer:   consumerName,
		DeadLetter: cfg.DeadLetterStream,
	})

	liveness, readiness := api.NewHealthHandlers([]api.Check{
		{Name: "redis", Ping: func(ctx context.Context) error { return redisstore.Ping(ctx, rdb) }},
	}, log)

	handlers := api.Handlers{Liveness: liveness, Readiness: readiness}

	// ── 4. Ingress ────────────────────────────────────────────────────────
	if cfg.RunIngress {
		authenticator := serviceauth.NewAuthenticator(
			serviceauth.NewClient(cfg.ServiceAuthURL, cfg.ServiceAuthTimeout),
			serviceauth.NewRedisCache(rdb),
			cfg.ValidCacheTTL,
			cfg.InvalidCacheTTL,
			log,
		)
		handlers.Services = authenticator
		handlers.Ingress = ingress.NewHandler(ingress.NewService(tasks, log))
	}

	group, groupCtx := errgroup.WithContext(rootCtx)

	// ── 5. Consumer ───────────────────────────────────────────────────────
	if cfg.RunConsumer {
		signer, err := sec.NewTokenService(cfg.JWTPrivKeyPath, cfg.JWTPubKeyPath, constants.AuthIssuer)
		must(log, err, "initialize jwt service")

		mailer := dispatch.NewSMTPMailer(dispatch.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
			Timeout:  cfg.SMTPTimeout,
		})
		downstream := dispatch.NewDownstream(registry, signer, cfg.DownstreamTimeout, cfg.ServiceTokenTTL)

		worker := consumer.New(tasks, dispatch.NewDispatcher(mailer, downstream, log), consumer.Options{
			BlockTimeout:  cfg.BlockTimeout,
			ErrorBackoff:  cfg.ErrorBackoff,
			RetryInterval: cfg.RetryInterval,
			MaxDeliveries: cfg.MaxDeliveries,
			ClaimIdle:     cfg.ClaimIdle,
		}, log)

		group.Go(func() error {
			return worker.Run(groupCtx)
		})
	}

	// ── 6. HTTP Server ────────────────────────────────────────────────────
	server := api.NewServer(rootCtx, cfg.ServerPort, cfg, log, handlers)

	group.Go(func() error {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	// ── 7. Graceful Shutdown ──────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)

	select {
	case sig := <-quit:
		log.Info("shutdown_signal_received", slog.String("signal", sig.String()))
	case <-groupCtx.Done():
		log.Error("component_stopped_unexpectedly", slog.Any("error", context.Cause(groupCtx)))
	}

	shutdownTimeout := constants.ShutdownTimeout
	log.Info("shutting_down_server", slog.Duration("timeout", shutdownTimeout))

	exitCode := 0
	if err := server.Shutdown(shutdownTimeout); err != nil {
		log.Error("shutdown_error", slog.Any("error", err))
		exitCode = 1
	}

	// Stops the consumer between records; an unacknowledged record stays pending.
	rootCancel()

	if err := group.Wait(); err != nil {
		log.Error("component_error", slog.Any("error", err))
		exitCode = 1
	}

	if exitCode != 0 {
		os.Exit(exitCode)
	}
	log.Info("queue_stopped_cleanly")
}

// defaultConsumerName identifies this process within the consumer group.
func defaultConsumerName() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "queue"
	}
	return fmt.Sprintf("%s-%d", host, os.Getpid())
}

// newLogger builds the process logger and installs it as the default.
func newLogger(level slog.Level) *slog.Logger {
	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})).
		With(slog.String("app", "campuslink-queue"))
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
