package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("FALLBACK_ON_ERROR", "")
	t.Setenv("DEFAULT_LAT", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "4000", cfg.ServerPort)
	assert.True(t, cfg.FallbackOnError)
	assert.Equal(t, 19.0760, cfg.DefaultLat)
	assert.Equal(t, 30*time.Second, cfg.WebhookTimeout)
	assert.Equal(t, []string{"*"}, cfg.CORSOrigins)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PORT", "8080")
	t.Setenv("FALLBACK_ON_ERROR", "false")
	t.Setenv("WEBHOOK_TIMEOUT", "5s")
	t.Setenv("CORS_ORIGINS", "http://a.test, http://b.test,")
	t.Setenv("DEFAULT_LNG", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.ServerPort)
	assert.False(t, cfg.FallbackOnError)
	assert.Equal(t, 5*time.Second, cfg.WebhookTimeout)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORSOrigins)
	assert.Equal(t, 72.8777, cfg.DefaultLng)
}
