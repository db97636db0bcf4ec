package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnv(t *testing.T) {
	t.Run("defaults are valid", func(t *testing.T) {
		cfg, err := FromEnv()
		require.NoError(t, err)
		assert.Equal(t, ":8080", cfg.Addr)
		assert.Equal(t, "memory", cfg.StoreBackend)
		assert.Equal(t, "enforce", cfg.TerminalPolicy)
		assert.Equal(t, "case-lifecycle", cfg.KafkaTopic)
		assert.False(t, cfg.IsProduction())
	})

	t.Run("postgres backend requires database url", func(t *testing.T) {
		t.Setenv("STORE_BACKEND", "postgres")
		_, err := FromEnv()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "DATABASE_URL")
	})

	t.Run("redis backend requires url", func(t *testing.T) {
		t.Setenv("NOTIFICATION_BACKEND", "redis")
		_, err := FromEnv()
		require.Error(t, err)
	})

	t.Run("rejects unknown terminal policy", func(t *testing.T) {
		t.Setenv("CASE_TERMINAL_POLICY", "sometimes")
		_, err := FromEnv()
		require.Error(t, err)
	})

	t.Run("reads broker list", func(t *testing.T) {
		t.Setenv("KAFKA_BROKERS", "a:9092,b:9092")
		cfg, err := FromEnv()
		require.NoError(t, err)
		assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.KafkaBrokers)
	})
}
