package config_test

import (
	"os"
	"testing"
	"time"

	"github.com/Zhima-Mochi/coffee-register/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	tmpFile, err := os.CreateTemp(t.TempDir(), "config_test_*.yaml")
	require.NoError(t, err)
	_, err = tmpFile.WriteString(content)
	require.NoError(t, err)
	require.NoError(t, tmpFile.Close())
	return tmpFile.Name()
}

func TestMustLoadByPath_Success(t *testing.T) {
	t.Setenv("API_KEY", "till-7-key")

	path := writeConfig(t, `
env: "local"
service_name: "register-test"
http_server:
  address: "localhost:9090"
  read_timeout: "2s"
upstream:
  base_url: "http://pos-api:5000"
  timeout: "3s"
checkout:
  stock_check: false
  point_rate: 0.05
catalog:
  cache_ttl: "1m"
mock_backend:
  enabled: true
  address: "localhost:5001"
`)

	cfg := config.MustLoadByPath(path)

	assert.Equal(t, "local", cfg.Env)
	assert.Equal(t, "register-test", cfg.ServiceName)
	assert.Equal(t, "localhost:9090", cfg.HTTPServer.Address)
	assert.Equal(t, 2*time.Second, cfg.HTTPServer.ReadTimeout)
	assert.Equal(t, 60*time.Second, cfg.HTTPServer.IdleTimeout)
	assert.Equal(t, "http://pos-api:5000", cfg.Upstream.BaseURL)
	assert.Equal(t, "till-7-key", cfg.Upstream.APIKey)
	assert.Equal(t, 3*time.Second, cfg.Upstream.Timeout)
	assert.False(t, cfg.Checkout.StockCheck)
	assert.True(t, cfg.Checkout.StockConsume)
	assert.Equal(t, 0.05, cfg.Checkout.PointRate)
	assert.Equal(t, time.Minute, cfg.Catalog.CacheTTL)
	assert.True(t, cfg.MockBackend.Enabled)
	assert.Equal(t, "localhost:5001", cfg.MockBackend.Address)
}

func TestMustLoadByPath_CheckoutTogglesOff(t *testing.T) {
	path := writeConfig(t, `
checkout:
  stock_check: false
  stock_consume: false
  point_accrual: false
  point_rate: 0
`)

	cfg := config.MustLoadByPath(path)

	assert.False(t, cfg.Checkout.StockCheck)
	assert.False(t, cfg.Checkout.StockConsume)
	assert.False(t, cfg.Checkout.PointAccrual)
	assert.Zero(t, cfg.Checkout.PointRate)
}

func TestMustLoadByPath_CheckoutDefaultsAndEnv(t *testing.T) {
	t.Setenv("CHECKOUT_POINT_ACCRUAL", "false")
	path := writeConfig(t, `
env: "local"
`)

	cfg := config.MustLoadByPath(path)

	assert.True(t, cfg.Checkout.StockCheck)
	assert.True(t, cfg.Checkout.StockConsume)
	assert.False(t, cfg.Checkout.PointAccrual)
	assert.Equal(t, 0.1, cfg.Checkout.PointRate)
}

func TestMustLoadByPath_FileNotFound(t *testing.T) {
	assert.Panics(t, func() {
		config.MustLoadByPath("non_existent_config.yaml")
	})
}

func TestMustLoadByPath_InvalidPointRate(t *testing.T) {
	path := writeConfig(t, `
checkout:
  point_rate: 2
`)
	assert.Panics(t, func() {
		config.MustLoadByPath(path)
	})
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPServer.Address)
	assert.Equal(t, "shop-system-key", cfg.Upstream.APIKey)
	assert.Equal(t, 5*time.Second, cfg.Upstream.Timeout)
	assert.True(t, cfg.Checkout.StockCheck)
	assert.True(t, cfg.Checkout.PointAccrual)
	assert.Equal(t, 0.1, cfg.Checkout.PointRate)
	assert.False(t, cfg.MockBackend.Enabled)
}
