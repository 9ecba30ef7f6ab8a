package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "rahasia")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":8081", cfg.HTTPAddr)
	assert.Equal(t, []string{"kafka:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 5*time.Second, cfg.TxTimeout)
	assert.Equal(t, "serializable", cfg.TxIsolation)
	assert.False(t, cfg.AutoMigrate)
	assert.Equal(t, 8, cfg.ProjectorWorkers)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "rahasia")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,,")
	t.Setenv("TX_TIMEOUT", "750ms")
	t.Setenv("AUTO_MIGRATE", "true")
	t.Setenv("PROJECTOR_WORKERS", "3")
	t.Setenv("ORDER_CACHE_TTL", "1m")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 750*time.Millisecond, cfg.TxTimeout)
	assert.True(t, cfg.AutoMigrate)
	assert.Equal(t, 3, cfg.ProjectorWorkers)
	assert.Equal(t, time.Minute, cfg.OrderCacheTTL)
}

func TestLoad_Invalid(t *testing.T) {
	tests := map[string][2]string{
		"missing secret":   {"JWT_SECRET", ""},
		"bad timeout":      {"TX_TIMEOUT", "soon"},
		"negative timeout": {"TX_TIMEOUT", "-1s"},
		"bad bool":         {"AUTO_MIGRATE", "maybe"},
		"bad workers":      {"PROJECTOR_WORKERS", "many"},
	}
	for name, kv := range tests {
		t.Run(name, func(t *testing.T) {
			t.Setenv("JWT_SECRET", "rahasia")
			t.Setenv(kv[0], kv[1])
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
