package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func baseEnv() map[string]string {
	return map[string]string{
		"DATABASE_URL":       "postgres://localhost:5432/printshop?sslmode=disable",
		"REDIS_URL":          "redis://localhost:6379/0",
		"PAYMENT_EPSILON":    "",
		"CATALOG_CACHE_TTL":  "",
		"RATE_LIMIT":         "",
		"RATE_LIMIT_BACKEND": "",
		"DB_MAX_CONNS":       "",
		"DB_MIN_CONNS":       "",
		"MIGRATE_ON_START":   "",
		"HSTS_MAX_AGE":       "",
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := LoadForTests(baseEnv())
	require.NoError(t, err)
	require.Equal(t, "0.01", cfg.PaymentEpsilon.String())
	require.Equal(t, 5*time.Minute, cfg.CatalogCacheTTL)
	require.Equal(t, "120-M", cfg.RateLimit)
	require.Equal(t, "fixed", cfg.RateLimitBackend)
	require.Equal(t, int32(10), cfg.DBMaxConns)
	require.True(t, cfg.MigrateOnStart)
	require.Zero(t, cfg.HSTSMaxAge)
	require.Equal(t, ":8080", (&Config{}).HTTPAddr())
}

func TestLoadOverrides(t *testing.T) {
	env := baseEnv()
	env["PAYMENT_EPSILON"] = "0.5"
	env["CATALOG_CACHE_TTL"] = "90s"
	env["DB_MAX_CONNS"] = "4"
	env["DB_MIN_CONNS"] = "8"
	env["MIGRATE_ON_START"] = "false"
	env["HSTS_MAX_AGE"] = "4320h"
	cfg, err := LoadForTests(env)
	require.NoError(t, err)
	require.Equal(t, "0.5", cfg.PaymentEpsilon.String())
	require.Equal(t, 90*time.Second, cfg.CatalogCacheTTL)
	require.Equal(t, int32(4), cfg.DBMinConns)
	require.False(t, cfg.MigrateOnStart)
	require.Equal(t, 180*24*time.Hour, cfg.HSTSMaxAge)
}

func TestLoadRejectsInvalidEpsilon(t *testing.T) {
	env := baseEnv()
	env["PAYMENT_EPSILON"] = "-1"
	_, err := LoadForTests(env)
	require.Error(t, err)

	env["PAYMENT_EPSILON"] = "abc"
	_, err = LoadForTests(env)
	require.Error(t, err)
}

func TestLoadRequiresDatabase(t *testing.T) {
	env := baseEnv()
	env["DATABASE_URL"] = ""
	_, err := LoadForTests(env)
	require.ErrorContains(t, err, "DATABASE_URL")
}
