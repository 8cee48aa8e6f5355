// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package config handles application-wide settings and environment parsing.

It leverages 'caarlos0/env' to map OS environment variables into strongly-typed
Go structs, one per binary, sharing the [Common] block.

Usage:

	cfg, err := config.LoadGateway()
	if err != nil {
	    log.Fatal(err)
	}

Architecture:

  - Immutability: Once loaded, configuration is read-only.
  - DI-Friendly: Passed to core components (Redis, Postgres, consumer) via constructors.
  - Zero Hidden State: No global variables are used to store config.

The static downstream service registry used by the queue may additionally be read
from a YAML file, see [LoadRegistry].
*/
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// # Configuration Schema

// Common holds settings shared by every campuslink binary.
type Common struct {
	Environment string `env:"ENVIRONMENT"  envDefault:"development"`
	Debug       bool   `env:"DEBUG"        envDefault:"false"`

	// Coordination store (Redis)
	RedisURL string `env:"REDIS_URL,required"`

	// Cross-Origin Resource Sharing
	AllowedOriginSuffix string `env:"ALLOWED_ORIGIN_SUFFIX" envDefault:"campuslink.app"`
}

// Gateway holds runtime configuration for the realtime gateway.
type Gateway struct {
	Common

	ServerPort string `env:"GATEWAY_PORT" envDefault:"8080"`

	// Message document store (PostgreSQL)
	DatabaseURL   string `env:"DATABASE_URL,required"`
	MigrationPath string `env:"MIGRATION_PATH" envDefault:"./migrations"`

	// External identity gateway
	IdentityURL     string        `env:"IDENTITY_URL,required"`
	IdentityTimeout time.Duration `env:"IDENTITY_TIMEOUT" envDefault:"5s"`

	// Lifetimes of volatile relay state
	SessionTTL time.Duration `env:"SESSION_TTL" envDefault:"3600s"`
	RoomTTL    time.Duration `env:"ROOM_TTL"    envDefault:"24h"`

	// Per-connection inbound frame budget
	FrameRateLimit float64 `env:"WS_FRAME_RATE" envDefault:"20"`
	FrameBurst     int     `env:"WS_FRAME_BURST" envDefault:"40"`
}

// Queue holds runtime configuration for the task ingress and consumer.
type Queue struct {
	Common

	ServerPort  string `env:"QUEUE_PORT"          envDefault:"8081"`
	RunIngress  bool   `env:"QUEUE_RUN_INGRESS"   envDefault:"true"`
	RunConsumer bool   `env:"QUEUE_RUN_CONSUMER"  envDefault:"true"`

	// External service validation gateway
	ServiceAuthURL     string        `env:"SERVICE_AUTH_URL,required"`
	ServiceAuthTimeout time.Duration `env:"SERVICE_AUTH_TIMEOUT"     envDefault:"5s"`
	ValidCacheTTL      time.Duration `env:"SERVICE_AUTH_VALID_TTL"   envDefault:"10m"`
	InvalidCacheTTL    time.Duration `env:"SERVICE_AUTH_INVALID_TTL" envDefault:"5m"`

	// Durable stream and consumer group
	StreamName       string        `env:"QUEUE_STREAM"             envDefault:"tasks"`
	StreamMaxLen     int64         `env:"QUEUE_STREAM_MAXLEN"      envDefault:"100000"`
	ConsumerGroup    string        `env:"QUEUE_CONSUMER_GROUP"     envDefault:"task-workers"`
	ConsumerName     string        `env:"QUEUE_CONSUMER_NAME"`
	BlockTimeout     time.Duration `env:"QUEUE_BLOCK_TIMEOUT"      envDefault:"5s"`
	ErrorBackoff     time.Duration `env:"QUEUE_ERROR_BACKOFF"      envDefault:"1s"`
	RetryInterval    time.Duration `env:"QUEUE_RETRY_INTERVAL"     envDefault:"30s"`
	MaxDeliveries    int64         `env:"QUEUE_MAX_DELIVERIES"     envDefault:"0"`
	DeadLetterStream string        `env:"QUEUE_DEAD_LETTER_STREAM" envDefault:"tasks:dead"`
	ClaimIdle        time.Duration `env:"QUEUE_CLAIM_IDLE"         envDefault:"0s"`

	// Downstream services (name=baseURL pairs) and optional YAML registry file
	DownstreamServices map[string]string `env:"QUEUE_DOWNSTREAM_SERVICES" envKeyValSeparator:"="`
	RegistryPath       string            `env:"QUEUE_REGISTRY_PATH"`
	DownstreamTimeout  time.Duration     `env:"QUEUE_DOWNSTREAM_TIMEOUT" envDefault:"30s"`

	// Keys used to sign service tokens for downstream calls
	JWTPrivKeyPath  string        `env:"JWT_PRIVATE_KEY_PATH,required"`
	JWTPubKeyPath   string        `env:"JWT_PUBLIC_KEY_PATH,required"`
	ServiceTokenTTL time.Duration `env:"SERVICE_TOKEN_TTL" envDefault:"2m"`

	// Email delivery provider (SMTP)
	SMTPHost     string        `env:"SMTP_HOST,required"`
	SMTPPort     int           `env:"SMTP_PORT"     envDefault:"587"`
	SMTPUsername string        `env:"SMTP_USERNAME"`
	SMTPPassword string        `env:"SMTP_PASSWORD"`
	SMTPFrom     string        `env:"SMTP_FROM,required"`
	SMTPTimeout  time.Duration `env:"SMTP_TIMEOUT"  envDefault:"30s"`
}

// # Configuration Loading

// LoadGateway parses environment variables into a [Gateway] struct.
func LoadGateway() (*Gateway, error) {
	cfg := &Gateway{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse gateway environment: %w", err)
	}
	return cfg, nil
}

// LoadQueue parses environment variables into a [Queue] struct.
func LoadQueue() (*Queue, error) {
	cfg := &Queue{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse queue environment: %w", err)
	}
	if !cfg.RunIngress && !cfg.RunConsumer {
		return nil, fmt.Errorf("config: at least one of QUEUE_RUN_INGRESS or QUEUE_RUN_CONSUMER must be enabled")
	}
	return cfg, nil
}

// IsDevelopment reports whether the server is running in development mode.
func (c *Common) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction reports whether the server is running in production mode.
func (c *Common) IsProduction() bool {
	return c.Environment == "production"
}

// OriginSuffix is the domain suffix accepted by the CORS middleware outside development.
func (c *Common) OriginSuffix() string {
	return c.AllowedOriginSuffix
}
