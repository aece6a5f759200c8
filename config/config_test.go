package config

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", base64.StdEncoding.EncodeToString([]byte("secret")))
}

func TestFromEnv_Defaults(t *testing.T) {
	setSecret(t)

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, []byte("secret"), cfg.JWTSecret)
	assert.Equal(t, "8080", cfg.HostPort)
	assert.Equal(t, 1000, cfg.HistoryLimit)
	assert.Equal(t, StoreBackendPostgres, cfg.Store.Backend)
	assert.Contains(t, cfg.Store.DatabaseURL, "dbname=sketchroom")
	assert.Equal(t, "Sketchroom", cfg.Store.DynamoDBTable)
	assert.Equal(t, "DeleteUserChatsQueue", cfg.SQS.DeleteUserChatsQueue)
	assert.Equal(t, 128, cfg.WebSocket.SendBuffer)
	assert.Equal(t, OverflowDisconnect, cfg.WebSocket.OverflowPolicy)
	assert.Equal(t, float64(20), cfg.WebSocket.MessagesPerSecond)
	assert.Equal(t, int64(65536), cfg.WebSocket.MaxMessageBytes)
	assert.Equal(t, 60*time.Second, cfg.Activity.FlushInterval)
}

func TestFromEnv_Overrides(t *testing.T) {
	setSecret(t)
	t.Setenv("STORE_BACKEND", "dynamo")
	t.Setenv("WS_OVERFLOW_POLICY", "drop-oldest")
	t.Setenv("ACTIVITY_FLUSH_INTERVAL", "5")
	t.Setenv("DATABASE_URL", "postgres://x")
	t.Setenv("DEV_MODE", "true")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, StoreBackendDynamo, cfg.Store.Backend)
	assert.Equal(t, OverflowDropOldest, cfg.WebSocket.OverflowPolicy)
	assert.Equal(t, 5*time.Second, cfg.Activity.FlushInterval)
	assert.Equal(t, "postgres://x", cfg.Store.DatabaseURL)
	assert.True(t, cfg.DevMode)
}

func TestFromEnv_Errors(t *testing.T) {
	t.Run("missing secret", func(t *testing.T) {
		t.Setenv("JWT_SECRET", "")
		_, err := FromEnv()
		assert.Error(t, err)
	})

	t.Run("secret not base64", func(t *testing.T) {
		t.Setenv("JWT_SECRET", "%%%")
		_, err := FromEnv()
		assert.Error(t, err)
	})

	t.Run("unknown backend", func(t *testing.T) {
		setSecret(t)
		t.Setenv("STORE_BACKEND", "mysql")
		_, err := FromEnv()
		assert.Error(t, err)
	})

	t.Run("unknown overflow policy", func(t *testing.T) {
		setSecret(t)
		t.Setenv("WS_OVERFLOW_POLICY", "block")
		_, err := FromEnv()
		assert.Error(t, err)
	})
}
