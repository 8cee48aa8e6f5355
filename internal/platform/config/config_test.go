// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/campuslink/internal/platform/config"
)

func setQueueEnv(t *testing.T) {
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("SERVICE_AUTH_URL", "http://auth.internal")
	t.Setenv("JWT_PRIVATE_KEY_PATH", "/keys/private.pem")
	t.Setenv("JWT_PUBLIC_KEY_PATH", "/keys/public.pem")
	t.Setenv("SMTP_HOST", "smtp.internal")
	t.Setenv("SMTP_FROM", "noreply@campuslink.app")
}

/*
TestLoadQueue_Defaults verifies that timing defaults match the documented values.
*/
func TestLoadQueue_Defaults(t *testing.T) {
	setQueueEnv(t)

	cfg, err := config.LoadQueue()
	require.NoError(t, err)

	assert.Equal(t, "tasks", cfg.StreamName)
	assert.Equal(t, "task-workers", cfg.ConsumerGroup)
	assert.Equal(t, 5*time.Second, cfg.BlockTimeout)
	assert.Equal(t, time.Second, cfg.ErrorBackoff)
	assert.Equal(t, 10*time.Minute, cfg.ValidCacheTTL)
	assert.Equal(t, 5*time.Minute, cfg.InvalidCacheTTL)
	assert.Equal(t, 30*time.Second, cfg.DownstreamTimeout)
	assert.Equal(t, 30*time.Second, cfg.SMTPTimeout)
	assert.Zero(t, cfg.MaxDeliveries)
	assert.Zero(t, cfg.ClaimIdle)
	assert.True(t, cfg.IsDevelopment())
}

func TestLoadQueue_DownstreamMap(t *testing.T) {
	setQueueEnv(t)
	t.Setenv("QUEUE_DOWNSTREAM_SERVICES", "media=http://media:8080,notifications=http://push:9000")

	cfg, err := config.LoadQueue()
	require.NoError(t, err)

	assert.Equal(t, "http://media:8080", cfg.DownstreamServices["media"])
	assert.Equal(t, "http://push:9000", cfg.DownstreamServices["notifications"])
}

func TestLoadQueue_RequiresOneRole(t *testing.T) {
	setQueueEnv(t)
	t.Setenv("QUEUE_RUN_INGRESS", "false")
	t.Setenv("QUEUE_RUN_CONSUMER", "false")

	_, err := config.LoadQueue()
	assert.Error(t, err)
}

func TestLoadGateway_MissingRequired(t *testing.T) {
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")

	_, err := config.LoadGateway()
	assert.Error(t, err)
}

func TestLoadGateway_Defaults(t *testing.T) {
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("DATABASE_URL", "postgres://localhost/campuslink")
	t.Setenv("IDENTITY_URL", "http://identity.internal")

	cfg, err := config.LoadGateway()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.ServerPort)
	assert.Equal(t, time.Hour, cfg.SessionTTL)
	assert.Equal(t, 24*time.Hour, cfg.RoomTTL)
}

/*
TestLoadRegistry verifies YAML parsing, ${VAR} expansion and env overrides.
*/
func TestLoadRegistry(t *testing.T) {
	t.Setenv("PUSH_URL", "http://push.internal:9000")

	path := filepath.Join(t.TempDir(), "registry.yaml")
	content := "services:\n  media: http://media.internal\n  notifications: ${PUSH_URL}\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg := &config.Queue{
		RegistryPath:       path,
		DownstreamServices: map[string]string{"media": "http://media-override/"},
	}

	reg, err := config.LoadRegistry(cfg)
	require.NoError(t, err)

	base, ok := reg.Lookup("notifications")
	assert.True(t, ok)
	assert.Equal(t, "http://push.internal:9000", base)

	base, ok = reg.Lookup("media")
	assert.True(t, ok)
	assert.Equal(t, "http://media-override", base)

	_, ok = reg.Lookup("directory")
	assert.False(t, ok)
}

func TestRegistry_Validate(t *testing.T) {
	tests := []struct {
		name    string
		reg     config.Registry
		wantErr bool
	}{
		{"valid", config.Registry{"media": "https://media"}, false},
		{"missing scheme", config.Registry{"media": "media:8080"}, true},
		{"unset variable", config.Registry{"media": ""}, true},
		{"empty name", config.Registry{"": "http://x"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.reg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
