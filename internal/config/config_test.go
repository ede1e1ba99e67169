package config

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")

	cfg, err := Parse()
	require.NoError(t, err)
	assert.Equal(t, "dev", cfg.Env)
	assert.Equal(t, DriverMySQL, cfg.StoreDriver)
	assert.Equal(t, 15*time.Minute, cfg.RegisterSessionTTL())
	assert.Equal(t, 30*time.Second, cfg.SweepInterval())
	assert.Equal(t, 12*time.Hour, cfg.StaffSessionTTL())
	assert.Equal(t, 100, cfg.RegisterSessionSweepBatchSize)
	assert.Equal(t, 360, cfg.VisitInitialDurationMinutes)
	assert.Equal(t, 840, cfg.VisitMaxTotalDurationMinutes)
	assert.Equal(t, TransportRabbitMQ, cfg.LivenessTransport)
	assert.Equal(t, 1024, cfg.LivenessBufferSize)
}

func TestParseRequiresSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	_, err := Parse()
	require.Error(t, err)
}

func TestParseRejectsBadValues(t *testing.T) {
	cases := map[string]string{
		"STORE_DRIVER":                   "postgres",
		"LIVENESS_TRANSPORT":             "kafka",
		"REGISTER_SESSION_TTL_SECONDS":   "0",
		"VISIT_INITIAL_DURATION_MINUTES": "900",
		"LIVENESS_BUFFER_SIZE":           "0",
	}
	for key, val := range cases {
		t.Run(key, func(t *testing.T) {
			t.Setenv("JWT_SECRET", "s3cret")
			t.Setenv(key, val)
			_, err := Parse()
			require.Error(t, err)
			assert.Contains(t, err.Error(), key)
		})
	}
}

func TestDSN(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("DB_USER", "app")
	t.Setenv("DB_PASS", "pw")
	t.Setenv("DB_HOST", "db")
	t.Setenv("DB_PORT", "3307")
	t.Setenv("DB_NAME", "facility")

	cfg, err := Parse()
	require.NoError(t, err)
	dsn := cfg.DSN()
	assert.True(t, strings.HasPrefix(dsn, "app:pw@tcp(db:3307)/facility?"), dsn)
	assert.Contains(t, dsn, "parseTime=true")
}

func TestRateLimitNormalize(t *testing.T) {
	t.Setenv("RATE_LIMIT_CAPACITY", "0")
	t.Setenv("RATE_LIMIT_REFILL_INTERVAL", "2s")
	t.Setenv("RATE_LIMIT_TTL", "1s")

	cfg, err := LoadRateLimitConfig()
	require.NoError(t, err)
	assert.Equal(t, 1, cfg.Capacity)
	assert.Equal(t, 10*time.Second, cfg.TTL)
	assert.Equal(t, "device", cfg.KeyStrategy)
}

func TestRedisHostPortOverridesAddr(t *testing.T) {
	t.Setenv("REDIS_ADDR", "ignored:1")
	t.Setenv("REDIS_HOST", "cache")
	t.Setenv("REDIS_PORT", "6380")
	cfg, err := LoadRedisConfig()
	require.NoError(t, err)
	assert.Equal(t, "cache:6380", cfg.Addr)
}
