package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("REALTIME_DRIVER", "")
	t.Setenv("MESSAGE_LIMIT", "")

	cfg := Load()
	assert.Equal(t, "8083", cfg.Port)
	assert.Equal(t, RealtimePostgres, cfg.RealtimeDriver)
	assert.Equal(t, 100, cfg.MessageLimit)
	assert.Equal(t, 50, cfg.NotificationLimit)
	assert.Equal(t, 5*time.Minute, cfg.ManagerIdleTTL)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("REALTIME_DRIVER", RealtimeMemory)
	t.Setenv("MESSAGE_LIMIT", "20")
	t.Setenv("REALTIME_MAX_RECONNECT", "30s")
	t.Setenv("DEBUG_ROUTES", "true")
	t.Setenv("WS_ALLOWED_ORIGINS", "https://a.example, https://b.example,https://a.example")

	cfg := Load()
	assert.Equal(t, RealtimeMemory, cfg.RealtimeDriver)
	assert.Equal(t, 20, cfg.MessageLimit)
	assert.Equal(t, 30*time.Second, cfg.RealtimeMaxReconnect)
	assert.True(t, cfg.DebugRoutes)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedWSOrigins)
}

func TestMalformedValuesFallBack(t *testing.T) {
	t.Setenv("X_INT", "-3")
	t.Setenv("X_BOOL", "maybe")
	t.Setenv("X_DURATION", "soon")

	assert.Equal(t, 7, Int("X_INT", 7))
	assert.False(t, Bool("X_BOOL", false))
	assert.Equal(t, time.Second, Duration("X_DURATION", time.Second))
}
