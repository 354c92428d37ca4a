package app

import (
	"testing"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testLoader reads env only; go test owns os.Args.
func testLoader() aconfig.Config {
	return aconfig.Config{EnvPrefix: "COUPON", SkipFlags: true, SkipFiles: true}
}

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("PORT", "")

	cfg, err := loadConfig(testLoader())
	require.NoError(t, err)
	assert.Equal(t, defaultAddr, cfg.Addr)
	assert.Empty(t, cfg.DatabaseURL)
	assert.True(t, cfg.Seed)
	assert.Equal(t, 100, cfg.RateLimit.Max)
	assert.Equal(t, time.Minute, cfg.RateLimit.Window)
	assert.Equal(t, []string{"*"}, cfg.CORS.Origins)
	assert.Equal(t, 3*time.Second, cfg.Graceful.ReadinessDelay)
	assert.Equal(t, 15*time.Second, cfg.Graceful.ShutdownTimeout)
}

func TestLoadConfig_Env(t *testing.T) {
	t.Setenv("COUPON_SEED", "false")
	t.Setenv("COUPON_RATE_LIMIT_MAX", "5")
	t.Setenv("DATABASE_URL", "postgres://localhost/coupons")
	t.Setenv("PORT", "9090")

	cfg, err := loadConfig(testLoader())
	require.NoError(t, err)
	assert.False(t, cfg.Seed)
	assert.Equal(t, 5, cfg.RateLimit.Max)
	assert.Equal(t, "postgres://localhost/coupons", cfg.DatabaseURL)
	assert.Equal(t, "0.0.0.0:9090", cfg.Addr)
}

func TestConfig_ApplyPlatformDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://platform")
	t.Setenv("PORT", "3000")

	cfg := Config{Addr: "127.0.0.1:1234", DatabaseURL: "postgres://explicit"}
	cfg.applyPlatformDefaults()
	assert.Equal(t, "postgres://explicit", cfg.DatabaseURL)
	assert.Equal(t, "127.0.0.1:1234", cfg.Addr)
}

func TestConfig_Validate(t *testing.T) {
	cfg := Config{RateLimit: RateLimitConfig{Max: 0, Window: time.Second}}
	assert.Error(t, cfg.validate())

	cfg.RateLimit = RateLimitConfig{Max: 1, Window: 0}
	assert.Error(t, cfg.validate())

	cfg.RateLimit = RateLimitConfig{Max: 1, Window: time.Second}
	assert.NoError(t, cfg.validate())
}
