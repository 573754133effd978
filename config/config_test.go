package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("REGISTRATION_ENFORCE_OPEN_SESSION", "")
	t.Setenv("CORS_ALLOWED_ORIGINS", "")
	t.Setenv("PORT", "")
	t.Setenv("CACHE_OPEN_SESSIONS_TTL", "")
	t.Setenv("RATE_LIMIT_ENABLED", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.False(t, cfg.Registration.EnforceOpenSession)
	assert.Equal(t, 30*time.Second, cfg.Cache.OpenSessionsTTL)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.Server.CORSAllowedOrigins)
	assert.True(t, cfg.RateLimit.Enabled)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("REGISTRATION_ENFORCE_OPEN_SESSION", "true")
	t.Setenv("CACHE_OPEN_SESSIONS_TTL", "2m")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example ,")
	t.Setenv("SITE_URL", "https://aura.example/")
	t.Setenv("TELEGRAM_ADMIN_CHAT_ID", "-100123")
	t.Setenv("RATE_LIMIT_CAPACITY", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.Server.Port)
	assert.True(t, cfg.Registration.EnforceOpenSession)
	assert.Equal(t, 2*time.Minute, cfg.Cache.OpenSessionsTTL)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.CORSAllowedOrigins)
	assert.Equal(t, "https://aura.example", cfg.Server.SiteURL)
	assert.Equal(t, int64(-100123), cfg.Telegram.AdminChatID)
	assert.Equal(t, 20, cfg.RateLimit.Capacity)
}

func TestDSN(t *testing.T) {
	d := DatabaseConfig{Host: "db", Port: "5432", User: "u", Password: "p", DBName: "formations", SSLMode: "disable"}
	assert.Equal(t, "postgres://u:p@db:5432/formations?sslmode=disable", d.DSN())
	d.URL = "postgres://override"
	assert.Equal(t, "postgres://override", d.DSN())
}
