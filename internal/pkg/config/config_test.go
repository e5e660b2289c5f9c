package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("POSTGRES_PASSWORD", "secret")
	t.Setenv("APP_MODE", "development")
	t.Setenv("JWT_SECRET_KEY", "")
	t.Setenv("MAX_ANONYMOUS_TRIPS", "")
	t.Setenv("LLM_PROVIDER", "")
	t.Setenv("LLM_TIMEOUT", "")
	t.Setenv("TRUSTED_PROXIES", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.Usage.MaxAnonymousTrips)
	assert.Equal(t, ProviderGemini, cfg.LLM.Provider)
	assert.Equal(t, 60*time.Second, cfg.LLM.Timeout)
	assert.NotEmpty(t, cfg.JWT.SecretKey)
	assert.False(t, cfg.JWT.SecureCookie)
	assert.Equal(t, []string{"127.0.0.1", "::1"}, cfg.TrustedProxies)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("POSTGRES_PASSWORD", "secret")
	t.Setenv("MAX_ANONYMOUS_TRIPS", "5")
	t.Setenv("LLM_PROVIDER", "GROQ")
	t.Setenv("GROQ_API_KEY", "gsk-test")
	t.Setenv("LLM_TIMEOUT", "15s")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://voyage.example, ,https://admin.voyage.example")
	t.Setenv("TRUSTED_PROXIES", "10.0.0.0/8, 192.0.2.10")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.Usage.MaxAnonymousTrips)
	assert.Equal(t, ProviderGroq, cfg.LLM.Provider)
	assert.Equal(t, "gsk-test", cfg.LLM.APIKey())
	assert.Equal(t, 15*time.Second, cfg.LLM.Timeout)
	assert.Equal(t, []string{"https://voyage.example", "https://admin.voyage.example"}, cfg.CORSOrigins)
	assert.Equal(t, []string{"10.0.0.0/8", "192.0.2.10"}, cfg.TrustedProxies)
}

func TestLoadErrors(t *testing.T) {
	t.Run("MissingPassword", func(t *testing.T) {
		t.Setenv("POSTGRES_PASSWORD", "")
		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "POSTGRES_PASSWORD")
	})

	t.Run("ShortSecretInProduction", func(t *testing.T) {
		t.Setenv("POSTGRES_PASSWORD", "secret")
		t.Setenv("APP_MODE", "production")
		t.Setenv("JWT_SECRET_KEY", "short")
		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "JWT_SECRET_KEY")
	})

	t.Run("BadLimit", func(t *testing.T) {
		t.Setenv("POSTGRES_PASSWORD", "secret")
		t.Setenv("MAX_ANONYMOUS_TRIPS", "three")
		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "MAX_ANONYMOUS_TRIPS")
	})

	t.Run("BadTrustedProxy", func(t *testing.T) {
		t.Setenv("POSTGRES_PASSWORD", "secret")
		t.Setenv("TRUSTED_PROXIES", "10.0.0.0/8,load-balancer")
		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), `"load-balancer"`)
	})

	t.Run("UnknownProvider", func(t *testing.T) {
		t.Setenv("POSTGRES_PASSWORD", "secret")
		t.Setenv("LLM_PROVIDER", "llamafile")
		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "LLM_PROVIDER")
	})
}
