// internal/config/config_test.go
package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "development", cfg.App.Environment)
	assert.True(t, cfg.IsDevelopment())
	assert.False(t, cfg.IsProduction())
	assert.Equal(t, "INR", cfg.External.Razorpay.Currency)
	assert.Equal(t, "https://api.razorpay.com/v1", cfg.External.Razorpay.BaseURL)
	assert.Equal(t, 10*time.Second, cfg.External.Razorpay.Timeout)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("APP_PORT", "9999")
	t.Setenv("RAZORPAY_CURRENCY", "USD")
	t.Setenv("RAZORPAY_TIMEOUT", "3s")
	t.Setenv("DB_MAX_OPEN_CONNS", "50")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9999", cfg.Server.Port)
	assert.Equal(t, "USD", cfg.External.Razorpay.Currency)
	assert.Equal(t, 3*time.Second, cfg.External.Razorpay.Timeout)
	assert.Equal(t, 50, cfg.Database.MaxOpenConns)
}

func TestValidateRejectsShortJWTSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "short")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET")
}

func TestValidateRequiresGatewayCredsInProduction(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("JWT_SECRET", "an-explicit-production-secret-of-length")
	t.Setenv("RAZORPAY_KEY_ID", "")
	t.Setenv("RAZORPAY_KEY_SECRET", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "RAZORPAY")
}

func TestValidateRejectsDefaultJWTSecretInProduction(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("RAZORPAY_KEY_ID", "rzp_live_key")
	t.Setenv("RAZORPAY_KEY_SECRET", "rzp_live_secret")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET")

	// An explicit secret passes.
	t.Setenv("JWT_SECRET", "an-explicit-production-secret-of-length")
	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.IsProduction())
}

func TestDSNHelpers(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Contains(t, cfg.GetDatabaseDSN(), "host=localhost")
	assert.Contains(t, cfg.GetDatabaseDSN(), "sslmode=disable")
	assert.Equal(t, "localhost:6379", cfg.GetRedisAddr())
}
