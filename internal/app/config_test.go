package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("CHECKOUT_DATABASE_URL", "postgres://checkout@localhost/checkout")
	t.Setenv("REDIS_URL", "")
	t.Setenv("PORT", "")

	cfg, err := loadConfig([]string{})
	require.NoError(t, err)

	assert.Equal(t, defaultAddr, cfg.Addr)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, "checkout", cfg.Redis.Prefix)
	assert.Equal(t, 720*time.Hour, cfg.Redis.CartTTL)
	assert.Equal(t, int64(500000), cfg.Pricing.FreeShippingThreshold)
	assert.Equal(t, 5*time.Second, cfg.Store.MirrorTimeout)
	assert.Equal(t, 100, cfg.RateLimit.Max)
}

func TestLoadConfig_PlatformDefaults(t *testing.T) {
	t.Setenv("CHECKOUT_DATABASE_URL", "")
	t.Setenv("DATABASE_URL", "postgres://platform@db/checkout")
	t.Setenv("REDIS_URL", "redis://cache:6379/2")
	t.Setenv("PORT", "9000")

	cfg, err := loadConfig([]string{})
	require.NoError(t, err)

	assert.Equal(t, "postgres://platform@db/checkout", cfg.DatabaseURL)
	assert.Equal(t, "redis://cache:6379/2", cfg.Redis.Addr)
	assert.Equal(t, "0.0.0.0:9000", cfg.Addr)
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{
			name: "no database",
			env:  map[string]string{"DATABASE_URL": "", "CHECKOUT_DATABASE_URL": ""},
			want: "database URL is required",
		},
		{
			name: "negative threshold",
			env: map[string]string{
				"CHECKOUT_DATABASE_URL":                   "postgres://localhost/checkout",
				"CHECKOUT_PRICING_FREE_SHIPPING_THRESHOLD": "-1",
			},
			want: "free shipping threshold",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := loadConfig([]string{})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
