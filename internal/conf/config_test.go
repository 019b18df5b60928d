package conf

import (
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"os"
	"testing"
	"time"
)

func TestConfigParse(t *testing.T) {
	t.Setenv("CASHIER_STRIPE_SECRET_KEY", "sk_test_1234")
	t.Setenv("CASHIER_STRIPE_URL", "http://localhost:12111")
	t.Setenv("CASHIER_HTTP_SERVER_PORT", "8001")
	t.Setenv("CASHIER_CIRCUIT_BREAKER_TIMEOUT", "10s")
	t.Setenv("CASHIER_DATABASE_DRIVER", "postgres")
	t.Setenv("CASHIER_DATABASE_DSN", "host=localhost user=cashier")

	var cfg Config
	require.NoError(t, cfg.Parse())

	assert.Equal(t, "sk_test_1234", cfg.Stripe.SecretKey)
	assert.Equal(t, "http://localhost:12111", cfg.Stripe.URL)
	assert.Equal(t, uint(8001), cfg.Port)
	assert.Equal(t, 10*time.Second, cfg.Timeout)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "host=localhost user=cashier", cfg.Database.DSN)
}

func TestConfigDefaultValues(t *testing.T) {
	t.Setenv("CASHIER_STRIPE_SECRET_KEY", "sk_test_1234")

	var cfg Config
	require.NoError(t, cfg.Parse())

	assert.Equal(t, uint(80), cfg.Port)
	assert.Equal(t, 30*time.Second, cfg.Timeout)
	assert.Equal(t, "usd", cfg.Currency)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, int64(0), cfg.Stripe.MaxNetworkRetries)
	assert.Empty(t, cfg.Stripe.URL)
}

func TestConfigMissingSecretKey(t *testing.T) {
	t.Setenv("CASHIER_STRIPE_SECRET_KEY", "")
	require.NoError(t, os.Unsetenv("CASHIER_STRIPE_SECRET_KEY"))

	var cfg Config
	assert.Error(t, cfg.Parse())
}
